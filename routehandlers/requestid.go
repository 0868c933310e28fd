package routehandlers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vitalvas/pathway/route"
)

type requestIDKey struct{}

// RequestIDFromContext returns the id RequestIDMiddleware assigned to the
// current loader or action call, or "" outside of one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}

	return ""
}

// RequestIDExtractor is a logger.ContextExtractor adding the request ID
// as "request_id".
func RequestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

// RequestIDConfig configures RequestIDMiddleware.
type RequestIDConfig struct {
	// HeaderName overrides the request header carrying the ID. Defaults to
	// "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc returns the id for a call. Defaults to GenerateUUIDv4.
	GenerateFunc func(args route.Args) string

	// TrustIncoming keeps an id assigned by an outer middleware or set
	// on the request header by a wrapping handler.
	TrustIncoming bool
}

// RequestIDMiddleware returns a middleware that assigns an ID to every
// invocation. The ID is stored in the handler context and set on a clone
// of the request.
func RequestIDMiddleware(cfg RequestIDConfig) route.MiddlewareFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming

	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			id := ""
			if trustIncoming {
				id = RequestIDFromContext(ctx)
				if id == "" && args.Request != nil {
					id = args.Request.Header.Get(headerName)
				}
			}

			if id == "" {
				id = generate(args)
			}

			if id != "" {
				ctx = context.WithValue(ctx, requestIDKey{}, id)
				if args.Request != nil {
					args.Request = args.Request.Clone(ctx)
					args.Request.Header.Set(headerName, id)
				}
			}

			return next(ctx, args)
		}
	}
}

// GenerateUUIDv4 returns a random UUID.
func GenerateUUIDv4(_ route.Args) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a time-ordered UUID, so ids of later calls sort
// after earlier ones.
func GenerateUUIDv7(_ route.Args) string {
	return uuid.Must(uuid.NewV7()).String()
}
