// Package logger provides structured logging functionality
// Using Uber Zap for high-performance, structured logging
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string
	Format      string
	Development bool
	OutputPaths []string
}

// New creates a new logger instance together with the atomic level that
// controls it, so the level can be changed while running.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	// Parse log level
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	// Configure encoder
	var encoderConfig zapcore.EncoderConfig
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Choose encoder format
	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	// Configure output
	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	writeSyncer, _, err := zap.Open(outputPaths...)
	if err != nil {
		return nil, level, err
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	// Add caller info for development
	options := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		options = append(options, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, options...), level, nil
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
