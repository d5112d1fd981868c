// Package rules defines the validation rule type system: a closed set of
// five rule scopes sharing a common header, dispatched on a scope tag.
package rules

import (
	"time"

	"github.com/gridflow/gridval/pkg/types"
)

// Scope represents the granularity of data a rule inspects
type Scope string

const (
	// ScopeSingleCell validates one cell value in isolation
	ScopeSingleCell Scope = "single_cell"

	// ScopeCrossColumn validates one row across several columns
	ScopeCrossColumn Scope = "cross_column"

	// ScopeCrossRow validates relationships between rows of the dataset
	ScopeCrossRow Scope = "cross_row"

	// ScopeConditional wraps a single-cell rule behind a row-level condition
	ScopeConditional Scope = "conditional"

	// ScopeComplex validates the whole dataset as one business rule
	ScopeComplex Scope = "complex"
)

// CellPredicate reports whether a single cell value is valid
type CellPredicate func(value interface{}) bool

// RowPredicate validates one row across columns. It returns ok and, when
// not ok, an optional message that overrides the rule's configured one.
type RowPredicate func(rowData map[string]interface{}) (bool, string)

// CrossRowPredicate validates relationships between rows and may report any
// number of results, valid or not.
type CrossRowPredicate func(rows []map[string]interface{}) []types.ValidationResult

// ComplexPredicate validates the whole dataset as a single business rule
type ComplexPredicate func(rows []map[string]interface{}) types.ValidationResult

// Condition gates a conditional rule on the content of a row
type Condition func(rowData map[string]interface{}) bool

// Rule represents one validation rule. The header fields (Name,
// ErrorMessage, Severity, Priority, Timeout) are shared by every scope; the
// predicate fields are scope-specific and exactly one set is populated,
// according to Scope. Rules are immutable once registered; changing a rule's
// configuration requires remove-then-re-add.
type Rule struct {
	// Name identifies the rule in results and logs. Optional.
	Name string

	// ErrorMessage is the message carried by failing results. Required.
	ErrorMessage string

	// Severity of failures produced by this rule. Defaults to SeverityError.
	Severity types.Severity

	// Priority orders evaluation; lower runs first. Zero means "use the
	// registry default". Negative values are rejected at registration.
	Priority int

	// Timeout bounds the predicate's execution. Zero means "use the
	// registry default"; non-zero values outside the registry's allowed
	// range are rejected at registration.
	Timeout time.Duration

	// Scope selects which predicate fields apply
	Scope Scope

	// ColumnName keys SingleCell and Conditional rules to a column
	ColumnName string

	// DependentColumns lists the columns a CrossColumn rule reads
	DependentColumns []string

	// Cell is the SingleCell predicate
	Cell CellPredicate

	// Row is the CrossColumn predicate
	Row RowPredicate

	// CrossRow is the CrossRow predicate
	CrossRow CrossRowPredicate

	// Complex is the Complex predicate
	Complex ComplexPredicate

	// Condition gates a Conditional rule
	Condition Condition

	// Inner is the SingleCell rule wrapped by a Conditional rule
	Inner *Rule
}

// Option configures the common header of a rule under construction
type Option func(*Rule)

// WithName sets the rule name
func WithName(name string) Option {
	return func(r *Rule) { r.Name = name }
}

// WithSeverity sets the severity of failures produced by the rule
func WithSeverity(severity types.Severity) Option {
	return func(r *Rule) { r.Severity = severity }
}

// WithPriority sets the evaluation priority; lower runs first
func WithPriority(priority int) Option {
	return func(r *Rule) { r.Priority = priority }
}

// WithTimeout sets the per-execution deadline for the rule's predicate
func WithTimeout(timeout time.Duration) Option {
	return func(r *Rule) { r.Timeout = timeout }
}

// NewSingleCell creates a single-cell rule for the given column
func NewSingleCell(columnName string, predicate CellPredicate, errorMessage string, opts ...Option) Rule {
	r := Rule{
		Scope:        ScopeSingleCell,
		ColumnName:   columnName,
		Cell:         predicate,
		ErrorMessage: errorMessage,
		Severity:     types.SeverityError,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewCrossColumn creates a rule validating one row across several columns
func NewCrossColumn(dependentColumns []string, predicate RowPredicate, errorMessage string, opts ...Option) Rule {
	r := Rule{
		Scope:            ScopeCrossColumn,
		DependentColumns: dependentColumns,
		Row:              predicate,
		ErrorMessage:     errorMessage,
		Severity:         types.SeverityError,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewCrossRow creates a rule validating relationships between rows
func NewCrossRow(predicate CrossRowPredicate, errorMessage string, opts ...Option) Rule {
	r := Rule{
		Scope:        ScopeCrossRow,
		CrossRow:     predicate,
		ErrorMessage: errorMessage,
		Severity:     types.SeverityError,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewConditional wraps a single-cell rule behind a row-level condition. The
// inner rule's predicate only runs when the condition holds for the row.
func NewConditional(columnName string, condition Condition, inner Rule, opts ...Option) Rule {
	r := Rule{
		Scope:        ScopeConditional,
		ColumnName:   columnName,
		Condition:    condition,
		Inner:        &inner,
		ErrorMessage: inner.ErrorMessage,
		Severity:     inner.Severity,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewComplex creates a whole-dataset business rule
func NewComplex(predicate ComplexPredicate, errorMessage string, opts ...Option) Rule {
	r := Rule{
		Scope:        ScopeComplex,
		Complex:      predicate,
		ErrorMessage: errorMessage,
		Severity:     types.SeverityError,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}
