// Package registry stores registered validation rules, bucketed by scope and
// keyed by column for cell-level rules, in deterministic evaluation order.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/gridflow/gridval/pkg/rules"
)

// ErrInvalidRule is returned by Add when a rule is malformed. Use errors.Is
// to classify registration failures.
var ErrInvalidRule = errors.New("invalid rule")

// Config carries the defaults and bounds applied to registered rules. Each
// registry instance owns its own copy so independent registries (one per
// test, for example) do not interfere.
type Config struct {
	// DefaultPriority is the effective priority of rules that do not set one
	DefaultPriority int

	// DefaultTimeout is the effective deadline of rules that do not set one
	DefaultTimeout time.Duration

	// MinTimeout is the lowest timeout a rule may configure
	MinTimeout time.Duration

	// MaxTimeout is the highest timeout a rule may configure
	MaxTimeout time.Duration
}

// DefaultConfig returns the standard registry configuration
func DefaultConfig() Config {
	return Config{
		DefaultPriority: 1000,
		DefaultTimeout:  2 * time.Second,
		MinTimeout:      100 * time.Millisecond,
		MaxTimeout:      30 * time.Second,
	}
}

// EffectivePriority resolves a rule's priority against the defaults
func (c Config) EffectivePriority(r rules.Rule) int {
	if r.Priority == 0 {
		return c.DefaultPriority
	}
	return r.Priority
}

// EffectiveTimeout resolves a rule's timeout against the defaults
func (c Config) EffectiveTimeout(r rules.Rule) time.Duration {
	if r.Timeout == 0 {
		return c.DefaultTimeout
	}
	return r.Timeout
}

// entry pairs a rule with its insertion sequence so sorting by priority can
// break ties on insertion order.
type entry struct {
	rule rules.Rule
	seq  int
}

// Registry owns all registered rules. A single coarse mutex guards every
// bucket: registration is rare, validation reads take ordered snapshots.
type Registry struct {
	mu  sync.RWMutex
	cfg Config
	seq int

	cell        map[string][]entry
	conditional []entry
	crossColumn []entry
	crossRow    []entry
	complex     []entry
}

// New creates an empty registry with the given configuration
func New(cfg Config) *Registry {
	return &Registry{
		cfg:  cfg,
		cell: make(map[string][]entry),
	}
}

// Config returns the registry's configuration
func (r *Registry) Config() Config {
	return r.cfg
}

// Add validates the rule and inserts it into the scope-appropriate bucket,
// keeping the bucket sorted by (effective priority ascending, insertion
// order ascending). Malformed rules are rejected with ErrInvalidRule and
// never stored.
func (r *Registry) Add(rule rules.Rule) error {
	if err := r.validate(rule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := entry{rule: rule, seq: r.seq}
	r.seq++

	switch rule.Scope {
	case rules.ScopeSingleCell:
		r.cell[rule.ColumnName] = r.sorted(append(r.cell[rule.ColumnName], e))
	case rules.ScopeConditional:
		r.conditional = r.sorted(append(r.conditional, e))
	case rules.ScopeCrossColumn:
		r.crossColumn = r.sorted(append(r.crossColumn, e))
	case rules.ScopeCrossRow:
		r.crossRow = r.sorted(append(r.crossRow, e))
	case rules.ScopeComplex:
		r.complex = r.sorted(append(r.complex, e))
	}
	return nil
}

// RemoveByColumns removes all single-cell rules keyed to any of the given
// columns and returns the number removed. Unknown columns are a no-op.
func (r *Registry) RemoveByColumns(columnNames ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, name := range columnNames {
		removed += len(r.cell[name])
		delete(r.cell, name)
	}
	return removed
}

// RemoveByName removes the first rule with the given name from each bucket
// and returns the number removed. Absent names are a no-op.
func (r *Registry) RemoveByName(name string) int {
	if name == "" {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for column, bucket := range r.cell {
		trimmed, ok := removeFirst(bucket, name)
		if ok {
			removed++
			if len(trimmed) == 0 {
				delete(r.cell, column)
			} else {
				r.cell[column] = trimmed
			}
			break
		}
	}
	for _, bucket := range []*[]entry{&r.conditional, &r.crossColumn, &r.crossRow, &r.complex} {
		trimmed, ok := removeFirst(*bucket, name)
		if ok {
			removed++
			*bucket = trimmed
		}
	}
	return removed
}

// Clear empties every bucket and returns the number of rules removed
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(r.conditional) + len(r.crossColumn) + len(r.crossRow) + len(r.complex)
	for _, bucket := range r.cell {
		total += len(bucket)
	}

	r.cell = make(map[string][]entry)
	r.conditional = nil
	r.crossColumn = nil
	r.crossRow = nil
	r.complex = nil
	return total
}

// Len returns the total number of registered rules
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.conditional) + len(r.crossColumn) + len(r.crossRow) + len(r.complex)
	for _, bucket := range r.cell {
		total += len(bucket)
	}
	return total
}

// CellRules returns an ordered snapshot of the single-cell rules registered
// for the given column. The snapshot is taken atomically; concurrent
// mutation never reorders an in-flight validation pass.
func (r *Registry) CellRules(columnName string) []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.cell[columnName], "")
}

// ConditionalRules returns an ordered snapshot of the conditional rules
// registered for the given column
func (r *Registry) ConditionalRules(columnName string) []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.conditional, columnName)
}

// CrossColumnRules returns an ordered snapshot of the cross-column rules
func (r *Registry) CrossColumnRules() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.crossColumn, "")
}

// CrossRowRules returns an ordered snapshot of the cross-row rules
func (r *Registry) CrossRowRules() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.crossRow, "")
}

// ComplexRules returns an ordered snapshot of the complex rules
func (r *Registry) ComplexRules() []rules.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.complex, "")
}

// sorted re-sorts a bucket by (effective priority, insertion order). The
// sort is stable but the explicit seq tiebreak keeps ordering independent of
// how the bucket was assembled.
func (r *Registry) sorted(bucket []entry) []entry {
	cfg := r.cfg
	sort.SliceStable(bucket, func(i, j int) bool {
		pi, pj := cfg.EffectivePriority(bucket[i].rule), cfg.EffectivePriority(bucket[j].rule)
		if pi != pj {
			return pi < pj
		}
		return bucket[i].seq < bucket[j].seq
	})
	return bucket
}

// validate enforces the registration contract for every scope
func (r *Registry) validate(rule rules.Rule) error {
	if rule.Priority < 0 {
		return errors.Wrapf(ErrInvalidRule, "rule %q: negative priority %d", rule.Name, rule.Priority)
	}
	if rule.Timeout != 0 && (rule.Timeout < r.cfg.MinTimeout || rule.Timeout > r.cfg.MaxTimeout) {
		return errors.Wrapf(ErrInvalidRule, "rule %q: timeout %s outside [%s, %s]",
			rule.Name, rule.Timeout, r.cfg.MinTimeout, r.cfg.MaxTimeout)
	}

	switch rule.Scope {
	case rules.ScopeSingleCell:
		if rule.ColumnName == "" {
			return errors.Wrapf(ErrInvalidRule, "rule %q: single-cell rule needs a column name", rule.Name)
		}
		if rule.Cell == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: single-cell rule needs a predicate", rule.Name)
		}
	case rules.ScopeCrossColumn:
		if len(rule.DependentColumns) == 0 {
			return errors.Wrapf(ErrInvalidRule, "rule %q: cross-column rule needs dependent columns", rule.Name)
		}
		if rule.Row == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: cross-column rule needs a predicate", rule.Name)
		}
	case rules.ScopeCrossRow:
		if rule.CrossRow == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: cross-row rule needs a predicate", rule.Name)
		}
	case rules.ScopeConditional:
		if rule.ColumnName == "" {
			return errors.Wrapf(ErrInvalidRule, "rule %q: conditional rule needs a column name", rule.Name)
		}
		if rule.Condition == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: conditional rule needs a condition", rule.Name)
		}
		if rule.Inner == nil || rule.Inner.Cell == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: conditional rule needs an inner single-cell rule", rule.Name)
		}
	case rules.ScopeComplex:
		if rule.Complex == nil {
			return errors.Wrapf(ErrInvalidRule, "rule %q: complex rule needs a predicate", rule.Name)
		}
	default:
		return errors.Wrapf(ErrInvalidRule, "rule %q: unknown scope %q", rule.Name, rule.Scope)
	}

	if rule.ErrorMessage == "" {
		return errors.Wrapf(ErrInvalidRule, "rule %q: error message is required", rule.Name)
	}
	return nil
}

// removeFirst removes the first entry whose rule carries the given name
func removeFirst(bucket []entry, name string) ([]entry, bool) {
	for i, e := range bucket {
		if e.rule.Name == name {
			return append(bucket[:i:i], bucket[i+1:]...), true
		}
	}
	return bucket, false
}

// snapshot copies a bucket into a plain ordered rule slice, optionally
// filtered by column name
func snapshot(bucket []entry, columnName string) []rules.Rule {
	out := make([]rules.Rule, 0, len(bucket))
	for _, e := range bucket {
		if columnName != "" && e.rule.ColumnName != columnName {
			continue
		}
		out = append(out, e.rule)
	}
	return out
}
