package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProductionLogger creates a production-ready logger with JSON encoding.
// Every entry carries the service name so server and worker logs can share a sink.
func NewProductionLogger(service string, debugMode bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = levelFor(debugMode)

	config.Encoding = "json"
	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	config.DisableStacktrace = false
	if service != "" {
		config.InitialFields = map[string]any{"service": service}
	}

	return config.Build()
}

// NewDevelopmentLogger creates a console logger, used by the configure CLI.
func NewDevelopmentLogger(debugMode bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = levelFor(debugMode)
	config.DisableStacktrace = true
	return config.Build()
}

// Sync flushes any buffered log entries. Safe to call with a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

func levelFor(debugMode bool) zap.AtomicLevel {
	if debugMode {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}
