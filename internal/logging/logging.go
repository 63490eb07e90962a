// Package logging builds the process logger. One zap logger is constructed
// at startup and handed down as named sub-loggers per subsystem (interp,
// bridge, lower, cli).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Verbose switches the production config to
// debug level with console encoding for readable step traces.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a discard-all logger for tests and library callers that do
// not care about logs.
func Nop() *zap.Logger { return zap.NewNop() }
