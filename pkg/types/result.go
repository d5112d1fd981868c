package types

// NoRow is the RowIndex value of a result that is not attached to a row.
const NoRow = -1

// TimeoutMessage is the error message carried by results produced when a
// rule's predicate did not complete within its deadline.
const TimeoutMessage = "Timeout"

// ValidationResult represents the outcome of evaluating a single validation
// rule. Values are treated as immutable: helper methods return copies.
type ValidationResult struct {
	// IsValid indicates if the validation passed
	IsValid bool `json:"isValid"`

	// ErrorMessage describes the failure. It is empty if and only if the
	// result is valid.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Severity indicates how severe the failure is. Valid results always
	// carry SeverityInfo.
	Severity Severity `json:"severity"`

	// RuleName is the name of the rule that produced this result
	RuleName string `json:"ruleName,omitempty"`

	// RowIndex is the row the result applies to, or NoRow
	RowIndex int `json:"rowIndex,omitempty"`

	// ColumnName is the column the result applies to, if any
	ColumnName string `json:"columnName,omitempty"`
}

// ValidResult returns a passing result for the given rule
func ValidResult(ruleName string) ValidationResult {
	return ValidationResult{
		IsValid:  true,
		Severity: SeverityInfo,
		RuleName: ruleName,
		RowIndex: NoRow,
	}
}

// InvalidResult returns a failing result with the given message and severity
func InvalidResult(ruleName, message string, severity Severity) ValidationResult {
	return ValidationResult{
		IsValid:      false,
		ErrorMessage: message,
		Severity:     severity,
		RuleName:     ruleName,
		RowIndex:     NoRow,
	}
}

// ForRow returns a copy of the result attached to the given row index
func (r ValidationResult) ForRow(rowIndex int) ValidationResult {
	r.RowIndex = rowIndex
	return r
}

// ForColumn returns a copy of the result attached to the given column
func (r ValidationResult) ForColumn(columnName string) ValidationResult {
	r.ColumnName = columnName
	return r
}

// Combine picks the single worst result from a set of failures. Results with
// a numerically higher severity win; ties are broken by first-seen order.
// The boolean is false when no failing result was present.
func Combine(results []ValidationResult) (ValidationResult, bool) {
	var worst ValidationResult
	found := false
	for _, r := range results {
		if r.IsValid {
			continue
		}
		if !found || r.Severity > worst.Severity {
			worst = r
			found = true
		}
	}
	return worst, found
}

// HighestSeverity returns the highest severity among failing results, or
// SeverityInfo when every result passed.
func HighestSeverity(results []ValidationResult) Severity {
	worst, found := Combine(results)
	if !found {
		return SeverityInfo
	}
	return worst.Severity
}
