package validator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"

	"github.com/gridflow/gridval/pkg/registry"
	"github.com/gridflow/gridval/pkg/rules"
	"github.com/gridflow/gridval/pkg/types"
)

func TestRegisterRejectsInvalidRule(t *testing.T) {
	svc := New()

	err := svc.Register(rules.NewSingleCell("", func(interface{}) bool { return true }, "msg"))
	assert.ErrorIs(t, err, registry.ErrInvalidRule)
	assert.Equal(t, 0, svc.Registry().Len())
}

func TestValidateCellInvokesRulesInPriorityOrder(t *testing.T) {
	svc := New()

	var trace []int
	record := func(n int) rules.CellPredicate {
		return func(interface{}) bool {
			trace = append(trace, n)
			return true
		}
	}

	require.NoError(t, svc.Register(rules.NewSingleCell("Age", record(3), "r3", rules.WithPriority(3))))
	require.NoError(t, svc.Register(rules.NewSingleCell("Age", record(1), "r1", rules.WithPriority(1))))
	require.NoError(t, svc.Register(rules.NewSingleCell("Age", record(2), "r2", rules.WithPriority(2))))

	results, err := svc.ValidateCell(context.Background(), "Age", 30, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, []int{1, 2, 3}, trace, "rules must run in ascending priority order")
}

func TestValidateCellShortCircuits(t *testing.T) {
	svc := New()

	var laterInvocations int64
	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return false }, "first failure", rules.WithPriority(1))))
	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool {
			atomic.AddInt64(&laterInvocations, 1)
			return false
		}, "second failure", rules.WithPriority(2))))

	results, err := svc.ValidateCell(context.Background(), "Age", 30, nil)
	require.NoError(t, err)
	require.Len(t, results, 1, "only the first failing rule is reported")
	assert.Equal(t, "first failure", results[0].ErrorMessage)
	assert.Equal(t, int64(0), atomic.LoadInt64(&laterInvocations),
		"the lower-priority rule must never be started")
}

func TestValidateCellEndToEnd(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(value interface{}) bool {
			age, ok := value.(int)
			return ok && age >= 0
		}, "Age must be non-negative")))

	results, err := svc.ValidateCell(context.Background(), "Age", -5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Equal(t, "Age must be non-negative", results[0].ErrorMessage)
	assert.Equal(t, "Age", results[0].ColumnName)

	results, err = svc.ValidateCell(context.Background(), "Age", 30, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestValidateCellTimeoutClassification(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool {
			time.Sleep(2 * time.Second)
			return true
		}, "too slow", rules.WithTimeout(100*time.Millisecond))))

	start := time.Now()
	results, err := svc.ValidateCell(context.Background(), "Age", 30, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Equal(t, types.TimeoutMessage, results[0].ErrorMessage)
	assert.Less(t, elapsed, time.Second, "the call must return at the deadline")
}

func TestValidateCellRulePanicBecomesFailure(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { panic("broken predicate") }, "age check failed")))

	results, err := svc.ValidateCell(context.Background(), "Age", 30, nil)
	require.NoError(t, err, "rule-internal problems never surface as an error")
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Contains(t, results[0].ErrorMessage, "age check failed")
	assert.Contains(t, results[0].ErrorMessage, "broken predicate")
}

func TestConditionalGating(t *testing.T) {
	svc := New()

	var innerInvocations int64
	inner := rules.NewSingleCell("Discount", func(interface{}) bool {
		atomic.AddInt64(&innerInvocations, 1)
		return false
	}, "discount requires membership")
	condition := func(rowData map[string]interface{}) bool {
		member, _ := rowData["Member"].(bool)
		return member
	}
	require.NoError(t, svc.Register(rules.NewConditional("Discount", condition, inner)))

	results, err := svc.ValidateCell(context.Background(), "Discount", 10, map[string]interface{}{"Member": false})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), atomic.LoadInt64(&innerInvocations),
		"the inner predicate must not run when the condition is false")

	results, err = svc.ValidateCell(context.Background(), "Discount", 10, map[string]interface{}{"Member": true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "discount requires membership", results[0].ErrorMessage)
	assert.Equal(t, int64(1), atomic.LoadInt64(&innerInvocations))
}

func TestConditionalRunsAfterCellRules(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return false }, "cell rule failed")))
	require.NoError(t, svc.Register(rules.NewConditional("Age",
		func(map[string]interface{}) bool { return true },
		rules.NewSingleCell("Age", func(interface{}) bool { return false }, "conditional failed"))))

	results, err := svc.ValidateCell(context.Background(), "Age", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "cell rule failed", results[0].ErrorMessage,
		"a failing cell rule masks conditional rules")
}

func TestValidateRowDoesNotShortCircuit(t *testing.T) {
	svc := New()

	failing := func(map[string]interface{}) (bool, string) { return false, "" }
	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"A", "B"}, failing, "first row rule")))
	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"A", "C"}, failing, "second row rule")))

	results, err := svc.ValidateRow(context.Background(), 4, map[string]interface{}{"A": 1})
	require.NoError(t, err)
	require.Len(t, results, 2, "every failing cross-column rule contributes a result")
	assert.Equal(t, "first row rule", results[0].ErrorMessage)
	assert.Equal(t, "second row rule", results[1].ErrorMessage)
	assert.Equal(t, 4, results[0].RowIndex)
	assert.Equal(t, 4, results[1].RowIndex)
}

func TestValidateRowPredicateMessageOverridesConfigured(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"Start", "End"},
		func(map[string]interface{}) (bool, string) { return false, "end precedes start" },
		"date range invalid")))

	results, err := svc.ValidateRow(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "end precedes start", results[0].ErrorMessage)
}

func TestValidateRowPanicIsolation(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"A"},
		func(map[string]interface{}) (bool, string) { panic("rule bug") }, "first rule failed")))
	var survived int64
	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"B"},
		func(map[string]interface{}) (bool, string) {
			atomic.AddInt64(&survived, 1)
			return true, ""
		}, "second rule failed")))

	results, err := svc.ValidateRow(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].ErrorMessage, "first rule failed")
	assert.Contains(t, results[0].ErrorMessage, "rule bug")
	assert.Equal(t, int64(1), atomic.LoadInt64(&survived),
		"a panicking rule must not abort the row pass")
}

func TestValidateDatasetOrderingAndFlattening(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewCrossRow(
		func(rows []map[string]interface{}) []types.ValidationResult {
			return []types.ValidationResult{
				types.InvalidResult("", "duplicate id", types.SeverityError).ForRow(1),
				types.ValidResult("dup-check"),
				types.InvalidResult("", "duplicate id", types.SeverityError).ForRow(3),
			}
		}, "duplicates found", rules.WithName("dup-check"))))
	require.NoError(t, svc.Register(rules.NewComplex(
		func(rows []map[string]interface{}) types.ValidationResult {
			return types.InvalidResult("totals", "totals do not balance", types.SeverityCritical)
		}, "totals check failed")))

	results, err := svc.ValidateDataset(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3, "valid results are dropped, invalid ones flattened")

	assert.Equal(t, "duplicate id", results[0].ErrorMessage)
	assert.Equal(t, 1, results[0].RowIndex)
	assert.Equal(t, "dup-check", results[0].RuleName, "empty rule names are filled from the rule")
	assert.Equal(t, 3, results[1].RowIndex)
	assert.Equal(t, "totals do not balance", results[2].ErrorMessage,
		"cross-row results come before complex results")
	assert.Equal(t, types.SeverityCritical, results[2].Severity)
}

func TestValidateDatasetComplexPanicIsolation(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewComplex(
		func([]map[string]interface{}) types.ValidationResult { panic("complex bug") },
		"complex check failed", rules.WithName("complex-1"))))
	require.NoError(t, svc.Register(rules.NewComplex(
		func([]map[string]interface{}) types.ValidationResult {
			return types.InvalidResult("complex-2", "second failure", types.SeverityWarning)
		}, "second check failed")))

	results, err := svc.ValidateDataset(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].ErrorMessage, "complex bug")
	assert.Equal(t, "second failure", results[1].ErrorMessage)
}

func TestValidateRowCancellationReturnsPartialResults(t *testing.T) {
	svc := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"A"},
		func(map[string]interface{}) (bool, string) { return false, "" }, "collected before cancel",
		rules.WithPriority(1))))
	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"B"},
		func(map[string]interface{}) (bool, string) {
			cancel()
			time.Sleep(5 * time.Second)
			return true, ""
		}, "cancelling rule", rules.WithPriority(2))))
	var afterCancel int64
	require.NoError(t, svc.Register(rules.NewCrossColumn([]string{"C"},
		func(map[string]interface{}) (bool, string) {
			atomic.AddInt64(&afterCancel, 1)
			return true, ""
		}, "never dispatched", rules.WithPriority(3))))

	results, err := svc.ValidateRow(ctx, 0, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1, "results collected before cancellation are returned")
	assert.Equal(t, "collected before cancel", results[0].ErrorMessage)
	assert.Equal(t, int64(0), atomic.LoadInt64(&afterCancel))
}

func TestValidateCellCancelledContext(t *testing.T) {
	svc := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return false }, "never runs")))

	results, err := svc.ValidateCell(ctx, "Age", 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestUnregisterAndClear(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return true }, "a", rules.WithName("age-check"))))
	require.NoError(t, svc.Register(rules.NewSingleCell("Name",
		func(interface{}) bool { return true }, "b")))

	assert.Equal(t, 1, svc.UnregisterByName("age-check"))
	assert.Equal(t, 1, svc.UnregisterByColumns("Name"))
	assert.Equal(t, 0, svc.ClearAll())

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return true }, "a")))
	assert.Equal(t, 1, svc.ClearAll())
}

func TestValidateDatasetWithLimiter(t *testing.T) {
	svc := New(WithLimiter(ratelimit.New(1000)))

	require.NoError(t, svc.Register(rules.NewComplex(
		func([]map[string]interface{}) types.ValidationResult {
			return types.ValidResult("ok")
		}, "never fails")))

	results, err := svc.ValidateDataset(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConcurrentValidationAndRegistration(t *testing.T) {
	svc := New()

	require.NoError(t, svc.Register(rules.NewSingleCell("Age",
		func(interface{}) bool { return true }, "base rule")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = svc.Register(rules.NewSingleCell("Other",
				func(interface{}) bool { return true }, "churn"))
			svc.UnregisterByColumns("Other")
		}
	}()

	for i := 0; i < 100; i++ {
		results, err := svc.ValidateCell(context.Background(), "Age", 1, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	<-done
}
