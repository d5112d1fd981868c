package logger

import (
	"go.uber.org/zap"

	"github.com/gridflow/gridval/pkg/types"
)

// ZapLogger is an implementation of the types.Logger interface using zap
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates a new ZapLogger
func NewZapLogger(zapLogger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: zapLogger}
}

// NewProductionLogger creates a new production-configured ZapLogger
func NewProductionLogger() (*ZapLogger, error) {
	config := zap.NewProductionConfig()
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// NewDevelopmentLogger creates a new development-configured ZapLogger
func NewDevelopmentLogger() (*ZapLogger, error) {
	config := zap.NewDevelopmentConfig()
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(logger), nil
}

// convertFields converts structured log fields to zap fields
func convertFields(fields []types.LogField) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}

// Debug implements types.Logger.Debug
func (l *ZapLogger) Debug(msg string, fields ...types.LogField) {
	l.logger.Debug(msg, convertFields(fields)...)
}

// Info implements types.Logger.Info
func (l *ZapLogger) Info(msg string, fields ...types.LogField) {
	l.logger.Info(msg, convertFields(fields)...)
}

// Warn implements types.Logger.Warn
func (l *ZapLogger) Warn(msg string, fields ...types.LogField) {
	l.logger.Warn(msg, convertFields(fields)...)
}

// Error implements types.Logger.Error
func (l *ZapLogger) Error(msg string, fields ...types.LogField) {
	l.logger.Error(msg, convertFields(fields)...)
}

// With implements types.Logger.With
func (l *ZapLogger) With(fields ...types.LogField) types.Logger {
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

// Flush implements types.Logger.Flush
func (l *ZapLogger) Flush() error {
	return l.logger.Sync()
}

// FromZap converts a zap.Logger to a types.Logger
func FromZap(logger *zap.Logger) types.Logger {
	return NewZapLogger(logger)
}

// ToZap extracts the underlying zap.Logger from a ZapLogger.
// Returns nil if the logger is not a ZapLogger.
func ToZap(logger types.Logger) *zap.Logger {
	if zapLogger, ok := logger.(*ZapLogger); ok {
		return zapLogger.logger
	}
	return nil
}
