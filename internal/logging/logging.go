// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes logger construction parameters.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New constructs a zap logger. Format is "console" (default) or "json"; an
// unparsable level falls back to info.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)

	var cfg zap.Config
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.Development = opts.Development
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Sampling = nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = defaultSlice(opts.OutputPaths, []string{"stderr"})
	cfg.ErrorOutputPaths = defaultSlice(opts.ErrorOutputPaths, []string{"stderr"})
	// Caller info is noise at info level and above.
	cfg.DisableCaller = !opts.Development && level > zapcore.DebugLevel
	cfg.DisableStacktrace = !opts.Development

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.TrimSpace(s))
	if err != nil || s == "" {
		return zapcore.InfoLevel
	}
	return level
}

func defaultSlice(v, fallback []string) []string {
	if len(v) == 0 {
		return fallback
	}
	return v
}
