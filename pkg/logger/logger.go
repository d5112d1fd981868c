// Package logger provides logging utilities
package logger

import (
	"github.com/gridflow/gridval/pkg/types"
)

// defaultLogger is the process-wide fallback logger
var defaultLogger types.Logger = types.NewNoOpLogger()

// SetDefaultLogger sets the default logger implementation
func SetDefaultLogger(logger types.Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

// GetDefaultLogger returns the default logger
func GetDefaultLogger() types.Logger {
	return defaultLogger
}

// New creates a new logger scoped to the given component name
func New(name string) types.Logger {
	return defaultLogger.With(types.LogField{Key: "component", Value: name})
}
