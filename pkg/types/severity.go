package types

// Severity represents the severity of a validation result. Severities are
// ordered so that the worst outcome of several failures can be selected by
// numeric comparison.
type Severity int

const (
	// SeverityInfo indicates an informational validation message
	SeverityInfo Severity = iota

	// SeverityWarning indicates a validation warning
	SeverityWarning

	// SeverityError indicates a validation error
	SeverityError

	// SeverityCritical indicates a validation failure that must block
	// further processing of the dataset
	SeverityCritical
)

// String returns the human-readable name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// IsValid reports whether the severity is one of the defined values
func (s Severity) IsValid() bool {
	return s >= SeverityInfo && s <= SeverityCritical
}
