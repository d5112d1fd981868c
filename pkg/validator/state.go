package validator

import (
	"strings"
	"sync"

	"github.com/gridflow/gridval/pkg/types"
)

// CellState caches the latest validation results for one cell so a
// presentation layer can query error state without re-running rules.
type CellState struct {
	mu      sync.RWMutex
	results []types.ValidationResult
}

// NewCellState creates an empty cell state
func NewCellState() *CellState {
	return &CellState{}
}

// SetResults replaces the cached results with the output of a validation
// pass
func (c *CellState) SetResults(results []types.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append([]types.ValidationResult(nil), results...)
}

// Clear drops the cached results
func (c *CellState) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = nil
}

// Results returns a copy of the cached results
func (c *CellState) Results() []types.ValidationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.ValidationResult(nil), c.results...)
}

// HasErrors reports whether any cached result is failing
func (c *CellState) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.results {
		if !r.IsValid {
			return true
		}
	}
	return false
}

// HighestSeverity returns the worst severity among cached failures, or
// SeverityInfo when the cell is clean
func (c *CellState) HighestSeverity() types.Severity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.HighestSeverity(c.results)
}

// RowState aggregates validation state over one row: the per-column cell
// states plus any row-level results attached by cross-column validation.
type RowState struct {
	mu       sync.RWMutex
	cells    map[string]*CellState
	rowLevel []types.ValidationResult
}

// NewRowState creates an empty row state
func NewRowState() *RowState {
	return &RowState{cells: make(map[string]*CellState)}
}

// Cell returns the state holder for the given column, creating it on first
// use
func (r *RowState) Cell(columnName string) *CellState {
	r.mu.Lock()
	defer r.mu.Unlock()
	cell, ok := r.cells[columnName]
	if !ok {
		cell = NewCellState()
		r.cells[columnName] = cell
	}
	return cell
}

// SetRowResults replaces the row-level results attached to this row
func (r *RowState) SetRowResults(results []types.ValidationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rowLevel = append([]types.ValidationResult(nil), results...)
}

// HasErrors reports whether any cell or row-level result is failing
func (r *RowState) HasErrors() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.rowLevel {
		if !res.IsValid {
			return true
		}
	}
	for _, cell := range r.cells {
		if cell.HasErrors() {
			return true
		}
	}
	return false
}

// HighestSeverity returns the worst severity across cells and row-level
// results
func (r *RowState) HighestSeverity() types.Severity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	worst := types.HighestSeverity(r.rowLevel)
	for _, cell := range r.cells {
		if s := cell.HighestSeverity(); s > worst {
			worst = s
		}
	}
	return worst
}

// AlertsText concatenates the messages of failing results into a single
// semicolon-separated line, the shape expected by export pipelines that add
// an alerts column to the output.
func AlertsText(results []types.ValidationResult) string {
	var messages []string
	for _, r := range results {
		if r.IsValid {
			continue
		}
		messages = append(messages, r.ErrorMessage)
	}
	return strings.Join(messages, "; ")
}
