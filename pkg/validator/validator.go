// Package validator composes the rule registry and the timeout executor into
// the three validation entry points: cell, row and dataset.
package validator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/ratelimit"

	"github.com/gridflow/gridval/pkg/executor"
	"github.com/gridflow/gridval/pkg/registry"
	"github.com/gridflow/gridval/pkg/rules"
	"github.com/gridflow/gridval/pkg/types"
)

// Option configures a Service
type Option func(*Service)

// WithLogger sets the structured logger. The default is a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector used to record per-rule execution
// outcomes and durations. The default is a no-op collector.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(s *Service) {
		if collector != nil {
			s.collector = collector
		}
	}
}

// WithLimiter throttles rule dispatch during row and dataset validation.
// Useful when batch-validating very large grids. The default is unlimited.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(s *Service) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// WithConfig overrides the registry defaults (priority, timeout bounds)
func WithConfig(cfg registry.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// Service is the validation orchestrator. It owns a rule registry and runs
// every rule predicate through the timeout executor, aggregating failures
// into ordered result lists. A Service is safe for concurrent use; multiple
// validation calls may run alongside each other and alongside registration.
type Service struct {
	registry  *registry.Registry
	cfg       registry.Config
	logger    types.Logger
	collector types.MetricsCollector
	limiter   ratelimit.Limiter

	executions types.Metric
	durations  types.Metric
}

// New creates a Service with an empty rule registry
func New(opts ...Option) *Service {
	s := &Service{
		cfg:       registry.DefaultConfig(),
		logger:    types.NewNoOpLogger(),
		collector: types.NewNoOpMetricsCollector(),
		limiter:   ratelimit.NewUnlimited(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = registry.New(s.cfg)

	s.executions = s.metric(types.MetricOpts{
		Namespace: "gridval",
		Subsystem: "rules",
		Name:      "executions_total",
		Help:      "Rule executions by scope and outcome",
		Type:      types.MetricTypeCounter,
		Labels: []types.MetricLabel{
			{Name: "scope"},
			{Name: "outcome"},
		},
	})
	s.durations = s.metric(types.MetricOpts{
		Namespace: "gridval",
		Subsystem: "rules",
		Name:      "execution_duration_seconds",
		Help:      "Rule execution duration by scope",
		Type:      types.MetricTypeHistogram,
		Labels: []types.MetricLabel{
			{Name: "scope"},
		},
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10, 30},
	})
	return s
}

// metric creates a metric, falling back to a no-op on bad options
func (s *Service) metric(opts types.MetricOpts) types.Metric {
	m, err := s.collector.NewMetric(opts)
	if err != nil {
		s.logger.Error("failed to create metric",
			types.LogField{Key: "metric", Value: opts.Name},
			types.LogField{Key: "error", Value: err.Error()})
		return &types.NoOpMetric{}
	}
	return m
}

// Registry returns the underlying rule registry
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Register adds a rule. Malformed rules are rejected with
// registry.ErrInvalidRule and never stored.
func (s *Service) Register(rule rules.Rule) error {
	if err := s.registry.Add(rule); err != nil {
		s.logger.Warn("rule registration rejected",
			types.LogField{Key: "rule", Value: rule.Name},
			types.LogField{Key: "error", Value: err.Error()})
		return err
	}
	s.logger.Debug("rule registered",
		types.LogField{Key: "rule", Value: rule.Name},
		types.LogField{Key: "scope", Value: string(rule.Scope)})
	return nil
}

// UnregisterByColumns removes all single-cell rules keyed to the given
// columns and returns the number removed
func (s *Service) UnregisterByColumns(columnNames ...string) int {
	return s.registry.RemoveByColumns(columnNames...)
}

// UnregisterByName removes rules with the given name and returns the number
// removed
func (s *Service) UnregisterByName(name string) int {
	return s.registry.RemoveByName(name)
}

// ClearAll removes every registered rule and returns the prior count
func (s *Service) ClearAll() int {
	return s.registry.Clear()
}

// ValidateCell runs the single-cell rules registered for the column, in
// (priority, insertion) order, then the conditional rules for the column.
// The first failing, erroring or timed-out rule short-circuits: its result
// is returned alone and later rules are never started. An empty list means
// every applicable rule passed.
//
// A cancelled context stops dispatch; the context error is returned so a
// cancelled pass is distinguishable from a clean one. Rule-internal problems
// never surface as an error.
func (s *Service) ValidateCell(ctx context.Context, columnName string, value interface{}, rowData map[string]interface{}) ([]types.ValidationResult, error) {
	log := s.logger.With(
		types.LogField{Key: "validation_id", Value: uuid.NewString()},
		types.LogField{Key: "column", Value: columnName})

	// Snapshot both buckets up front so concurrent registration never
	// reorders this call.
	cellRules := s.registry.CellRules(columnName)
	conditionalRules := s.registry.ConditionalRules(columnName)

	for _, rule := range cellRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome := s.execute(ctx, rule, func() ([]types.ValidationResult, error) {
			if rule.Cell(value) {
				return nil, nil
			}
			return []types.ValidationResult{
				types.InvalidResult(rule.Name, rule.ErrorMessage, rule.Severity),
			}, nil
		})
		if outcome.Status == executor.StatusCancelled {
			return nil, outcome.Err
		}
		if result, failed := s.failure(rule, outcome, log); failed {
			return []types.ValidationResult{result.ForColumn(columnName)}, nil
		}
	}

	for _, rule := range conditionalRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		applies, condErr := evalCondition(rule.Condition, rowData)
		if condErr != nil {
			log.Warn("condition evaluation failed",
				types.LogField{Key: "rule", Value: rule.Name},
				types.LogField{Key: "error", Value: condErr.Error()})
			result := types.InvalidResult(rule.Name, rule.ErrorMessage+": "+condErr.Error(), rule.Severity)
			return []types.ValidationResult{result.ForColumn(columnName)}, nil
		}
		if !applies {
			continue
		}
		inner := rule.Inner
		outcome := s.execute(ctx, rule, func() ([]types.ValidationResult, error) {
			if inner.Cell(value) {
				return nil, nil
			}
			return []types.ValidationResult{
				types.InvalidResult(rule.Name, rule.ErrorMessage, rule.Severity),
			}, nil
		})
		if outcome.Status == executor.StatusCancelled {
			return nil, outcome.Err
		}
		if result, failed := s.failure(rule, outcome, log); failed {
			return []types.ValidationResult{result.ForColumn(columnName)}, nil
		}
	}

	return nil, nil
}

// ValidateRow runs every cross-column rule against the row, in (priority,
// insertion) order, without short-circuiting: each failing rule contributes
// one result tagged with the row index, and a rule that errors or times out
// is converted to a failing result while evaluation continues.
func (s *Service) ValidateRow(ctx context.Context, rowIndex int, rowData map[string]interface{}) ([]types.ValidationResult, error) {
	log := s.logger.With(
		types.LogField{Key: "validation_id", Value: uuid.NewString()},
		types.LogField{Key: "row", Value: rowIndex})

	var results []types.ValidationResult
	for _, rule := range s.registry.CrossColumnRules() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.limiter.Take()

		outcome := s.execute(ctx, rule, func() ([]types.ValidationResult, error) {
			ok, message := rule.Row(rowData)
			if ok {
				return nil, nil
			}
			if message == "" {
				message = rule.ErrorMessage
			}
			return []types.ValidationResult{
				types.InvalidResult(rule.Name, message, rule.Severity),
			}, nil
		})
		if outcome.Status == executor.StatusCancelled {
			return results, outcome.Err
		}
		if result, failed := s.failure(rule, outcome, log); failed {
			results = append(results, result.ForRow(rowIndex))
		}
	}
	return results, nil
}

// ValidateDataset runs every cross-row rule, then every complex rule, each
// bucket in (priority, insertion) order, without short-circuiting. Cross-row
// rules may yield several results each; only invalid results are kept, in
// evaluation order, cross-row before complex. A rule that errors or times
// out never aborts the pass.
func (s *Service) ValidateDataset(ctx context.Context, allRows []map[string]interface{}) ([]types.ValidationResult, error) {
	log := s.logger.With(
		types.LogField{Key: "validation_id", Value: uuid.NewString()},
		types.LogField{Key: "rows", Value: len(allRows)})

	crossRowRules := s.registry.CrossRowRules()
	complexRules := s.registry.ComplexRules()

	var results []types.ValidationResult
	for _, rule := range crossRowRules {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.limiter.Take()

		outcome := s.execute(ctx, rule, func() ([]types.ValidationResult, error) {
			var failures []types.ValidationResult
			for _, r := range rule.CrossRow(allRows) {
				if r.IsValid {
					continue
				}
				if r.RuleName == "" {
					r.RuleName = rule.Name
				}
				failures = append(failures, r)
			}
			return failures, nil
		})
		if outcome.Status == executor.StatusCancelled {
			return results, outcome.Err
		}
		switch outcome.Status {
		case executor.StatusCompleted:
			results = append(results, outcome.Results...)
		default:
			if result, failed := s.failure(rule, outcome, log); failed {
				results = append(results, result)
			}
		}
	}

	for _, rule := range complexRules {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		s.limiter.Take()

		outcome := s.execute(ctx, rule, func() ([]types.ValidationResult, error) {
			r := rule.Complex(allRows)
			if r.IsValid {
				return nil, nil
			}
			if r.RuleName == "" {
				r.RuleName = rule.Name
			}
			return []types.ValidationResult{r}, nil
		})
		if outcome.Status == executor.StatusCancelled {
			return results, outcome.Err
		}
		switch outcome.Status {
		case executor.StatusCompleted:
			results = append(results, outcome.Results...)
		default:
			if result, failed := s.failure(rule, outcome, log); failed {
				results = append(results, result)
			}
		}
	}

	return results, nil
}

// execute runs one rule predicate through the timeout executor with the
// rule's effective deadline and records metrics for the execution
func (s *Service) execute(ctx context.Context, rule rules.Rule, fn executor.Predicate) executor.Outcome {
	start := time.Now()
	outcome := executor.Run(ctx, s.cfg.EffectiveTimeout(rule), fn)

	scope := types.MetricLabel{Name: "scope", Value: string(rule.Scope)}
	s.durations.Observe(time.Since(start).Seconds(), scope)
	s.executions.Inc(scope, types.MetricLabel{Name: "outcome", Value: string(outcome.Status)})
	return outcome
}

// failure maps a non-passing outcome to the single failing result the
// callers report. Timeouts carry the fixed timeout message; rule-internal
// errors carry the rule's configured message plus the underlying error text.
// The distinction survives in logs even though the result only says invalid.
func (s *Service) failure(rule rules.Rule, outcome executor.Outcome, log types.Logger) (types.ValidationResult, bool) {
	switch outcome.Status {
	case executor.StatusCompleted:
		if len(outcome.Results) == 0 {
			return types.ValidationResult{}, false
		}
		return outcome.Results[0], true
	case executor.StatusTimedOut:
		log.Warn("rule timed out",
			types.LogField{Key: "rule", Value: rule.Name},
			types.LogField{Key: "timeout", Value: s.cfg.EffectiveTimeout(rule).String()})
		return types.InvalidResult(rule.Name, types.TimeoutMessage, rule.Severity), true
	case executor.StatusFailed:
		log.Error("rule execution failed",
			types.LogField{Key: "rule", Value: rule.Name},
			types.LogField{Key: "error", Value: outcome.Err.Error()})
		return types.InvalidResult(rule.Name, rule.ErrorMessage+": "+outcome.Err.Error(), rule.Severity), true
	default:
		return types.ValidationResult{}, false
	}
}

// evalCondition evaluates a conditional rule's gate, converting a panic in
// the host-supplied condition into an error
func evalCondition(condition rules.Condition, rowData map[string]interface{}) (applies bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			applies = false
			err = errors.Errorf("condition panicked: %v", p)
		}
	}()
	return condition(rowData), nil
}
