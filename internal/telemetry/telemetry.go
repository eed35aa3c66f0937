// Package telemetry builds the engine's structured logger. The
// teacher's own setupLogger singles out zap as the upgrade path from
// its bare *log.Logger ("you might want to use zap... for structured
// logging") — this is that upgrade, applied everywhere a logger is
// threaded through a constructor.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a production logger for "production"/"staging" and
// a human-readable development logger otherwise.
func NewLogger(environment string) (*zap.SugaredLogger, error) {
	var base *zap.Logger
	var err error

	switch environment {
	case "production", "staging":
		base, err = zap.NewProduction()
	default:
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: build logger: %w", err)
	}

	return base.Sugar().With("service", "botarena"), nil
}
