package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridflow/gridval/pkg/types"
)

func TestCellStateAggregation(t *testing.T) {
	cell := NewCellState()
	assert.False(t, cell.HasErrors())
	assert.Equal(t, types.SeverityInfo, cell.HighestSeverity())

	cell.SetResults([]types.ValidationResult{
		types.InvalidResult("a", "warn", types.SeverityWarning),
		types.InvalidResult("b", "crit", types.SeverityCritical),
	})
	assert.True(t, cell.HasErrors())
	assert.Equal(t, types.SeverityCritical, cell.HighestSeverity())
	assert.Len(t, cell.Results(), 2)

	cell.Clear()
	assert.False(t, cell.HasErrors())
	assert.Empty(t, cell.Results())
}

func TestCellStateResultsAreCopies(t *testing.T) {
	cell := NewCellState()
	cell.SetResults([]types.ValidationResult{types.InvalidResult("a", "msg", types.SeverityError)})

	got := cell.Results()
	got[0].ErrorMessage = "mutated"
	assert.Equal(t, "msg", cell.Results()[0].ErrorMessage, "callers cannot mutate the cache")
}

func TestRowStateAggregatesCellsAndRowResults(t *testing.T) {
	row := NewRowState()
	assert.False(t, row.HasErrors())

	row.Cell("Age").SetResults([]types.ValidationResult{
		types.InvalidResult("a", "bad age", types.SeverityWarning),
	})
	assert.True(t, row.HasErrors())
	assert.Equal(t, types.SeverityWarning, row.HighestSeverity())

	row.SetRowResults([]types.ValidationResult{
		types.InvalidResult("b", "row broken", types.SeverityError),
	})
	assert.Equal(t, types.SeverityError, row.HighestSeverity(),
		"row-level results participate in the aggregate")
}

func TestRowStateCellIsStable(t *testing.T) {
	row := NewRowState()
	assert.Same(t, row.Cell("Age"), row.Cell("Age"), "the same holder is returned per column")
}

func TestAlertsText(t *testing.T) {
	assert.Empty(t, AlertsText(nil))
	assert.Empty(t, AlertsText([]types.ValidationResult{types.ValidResult("a")}))

	text := AlertsText([]types.ValidationResult{
		types.InvalidResult("a", "first alert", types.SeverityError),
		types.ValidResult("b"),
		types.InvalidResult("c", "second alert", types.SeverityWarning),
	})
	assert.Equal(t, "first alert; second alert", text)
}
