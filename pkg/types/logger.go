package types

// LogField represents a structured log field with a key-value pair
type LogField struct {
	Key   string
	Value interface{}
}

// Logger defines the interface for structured logging. The validation engine
// only ever logs through this interface and functions correctly with a no-op
// implementation.
//
// Example usage:
//
//	logger.Warn("rule timed out",
//	    LogField{Key: "rule", Value: "age-range"},
//	    LogField{Key: "column", Value: "Age"})
type Logger interface {
	// Debug logs a debug message with optional structured fields
	Debug(msg string, fields ...LogField)
	// Info logs an informational message with optional structured fields
	Info(msg string, fields ...LogField)
	// Warn logs a warning message with optional structured fields
	Warn(msg string, fields ...LogField)
	// Error logs an error message with optional structured fields
	Error(msg string, fields ...LogField)
	// With returns a new logger with the given fields added to all messages
	With(fields ...LogField) Logger
	// Flush ensures all logs are written before shutdown
	Flush() error
}

// NoOpLogger implements Logger with no-op operations
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, fields ...LogField) {}
func (l *NoOpLogger) Info(msg string, fields ...LogField)  {}
func (l *NoOpLogger) Warn(msg string, fields ...LogField)  {}
func (l *NoOpLogger) Error(msg string, fields ...LogField) {}
func (l *NoOpLogger) With(fields ...LogField) Logger       { return l }
func (l *NoOpLogger) Flush() error                         { return nil }

// NewNoOpLogger creates a new no-op logger
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}
