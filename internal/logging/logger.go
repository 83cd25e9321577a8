// Package logging builds structured zap.Logger instances the way the
// teacher stack's telemetry package does, minus the OpenTelemetry span
// correlation (no component in this system emits traces).
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string
	// Format is the log encoding: json or console.
	Format string
	// ServiceName is attached to every log line.
	ServiceName string
	// Environment is attached to every log line: development or production.
	Environment string
}

// DefaultConfig returns sane defaults for a named service.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       "info",
		Format:      "console",
		ServiceName: serviceName,
		Environment: "development",
	}
}

// New builds a *zap.Logger from cfg, falling back to info level if the
// configured level string does not parse.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig("parkingsim")
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Environment == "development",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"service":     cfg.ServiceName,
			"environment": cfg.Environment,
		},
	}

	return zapConfig.Build()
}

// Must is New, panicking on error; used at process start-up where a
// logger failing to build leaves nothing to log the failure to.
func Must(cfg *Config) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return logger
}
