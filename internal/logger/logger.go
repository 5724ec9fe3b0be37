package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func atomicLevel(debugMode bool) zap.AtomicLevel {
	if debugMode {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}

// jsonEncoderConfig is shared by every production logger in the project, so
// the server and the worker emit identically shaped entries.
func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
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
}

// NewProductionLogger creates a JSON logger. The service name is attached to
// every entry so server, worker, and CLI logs can be told apart when shipped
// to the same sink. Stack traces attach at error level and above.
func NewProductionLogger(service string, debugMode bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = atomicLevel(debugMode)
	config.Encoding = "json"
	config.EncoderConfig = jsonEncoderConfig()
	config.DisableStacktrace = false

	log, err := config.Build()
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}

// NewDevelopmentLogger creates a console logger for local runs.
func NewDevelopmentLogger(service string, debugMode bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = atomicLevel(debugMode)

	log, err := config.Build()
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}

// Sync flushes any buffered entries. Call before process exit; safe to call
// more than once or with a nil logger.
func Sync(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	return logger.Sync()
}
