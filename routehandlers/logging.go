package routehandlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitalvas/pathway/route"
)

// LoggingConfig configures the Logging middleware behaviour.
type LoggingConfig struct {
	// Logger receives one record per invocation. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Level is the level of records for successful invocations. Failed
	// invocations are always logged at slog.LevelError.
	Level slog.Level
}

// LoggingMiddleware returns a middleware that logs every loader and action
// invocation with its route id, kind, URL, duration and outcome. Records
// are logged with the handler context so context extractors apply.
func LoggingMiddleware(cfg LoggingConfig) route.MiddlewareFunc {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	level := cfg.Level

	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			start := time.Now()

			value, err := next(ctx, args)

			result := outcome(value, err)

			attrs := []slog.Attr{
				slog.String("route_id", args.RouteID),
				slog.String("kind", string(args.Kind)),
				slog.String("url", requestURL(args)),
				slog.Duration("duration", time.Since(start)),
				slog.String("outcome", result),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				log.LogAttrs(ctx, slog.LevelError, "route handler failed", attrs...)
				return value, err
			}

			log.LogAttrs(ctx, level, "route handler", attrs...)

			return value, err
		}
	}
}
