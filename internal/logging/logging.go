// Package logging wires a zerolog.Logger for the engine, configured once
// in main and attached per-request to context.Context, mirroring the
// zerolog conventions of the corpus's services.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// New builds the base logger from a level name ("debug", "info", "warn",
// "error"); unrecognized or empty levels fall back to info.
func New(levelName string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// WithContext attaches logger to ctx, returning the derived context.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext recovers the request-scoped logger attached by WithContext,
// falling back to a disabled logger if none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// Stage logs a pipeline stage transition at debug level, per spec §7's
// stage-tagged error propagation policy mirrored into the happy path.
func Stage(ctx context.Context, stage, msg string) {
	FromContext(ctx).Debug().Str("stage", stage).Msg(msg)
}

// StageError logs a stage failure at error level with the stage tag and
// underlying error.
func StageError(ctx context.Context, stage string, err error) {
	FromContext(ctx).Error().Str("stage", stage).Err(err).Msg("stage failed")
}
