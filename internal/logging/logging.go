// Package logging builds the zap logger shared by the server and CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger writing to stderr. debug lowers the
// level to Debug; quiet raises it to Warn. debug wins when both are set.
func New(debug, quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch {
	case debug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("hillchart"), nil
}
