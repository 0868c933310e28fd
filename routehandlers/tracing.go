package routehandlers

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vitalvas/pathway/route"
)

const defaultTracerName = "github.com/vitalvas/pathway/routehandlers"

// TracingConfig configures the OpenTelemetry middleware.
type TracingConfig struct {
	// TracerName is the name of the tracer taken from the global provider.
	// Defaults to the package import path.
	TracerName string

	// Tracer overrides the tracer. When nil, otel.Tracer(TracerName) is
	// used.
	Tracer trace.Tracer

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(args route.Args) []attribute.KeyValue
}

// TracingMiddleware returns a middleware that wraps every invocation in a
// span named "<kind> <route id>". Errors, including error status
// responses, set the span status to Error; redirects record their target.
func TracingMiddleware(cfg TracingConfig) route.MiddlewareFunc {
	tracer := cfg.Tracer
	if tracer == nil {
		name := cfg.TracerName
		if name == "" {
			name = defaultTracerName
		}
		tracer = otel.Tracer(name)
	}

	extract := cfg.AttributeExtractor

	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			attrs := []attribute.KeyValue{
				attribute.String("pathway.route_id", args.RouteID),
				attribute.String("pathway.kind", string(args.Kind)),
			}
			if args.Request != nil {
				attrs = append(attrs,
					attribute.String("http.request.method", args.Request.Method),
					attribute.String("url.full", requestURL(args)),
				)
			}
			if extract != nil {
				attrs = append(attrs, extract(args)...)
			}

			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", args.Kind, args.RouteID),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			if args.Request != nil {
				args.Request = args.Request.WithContext(ctx)
			}

			value, err := next(ctx, args)

			result := outcome(value, err)
			span.SetAttributes(attribute.String("pathway.outcome", result))

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result == outcomeError:
				span.SetStatus(codes.Error, "error status response")
			default:
				if result == outcomeRedirect {
					span.SetAttributes(attribute.String("pathway.redirect", redirectLocation(value)))
				}
				span.SetStatus(codes.Ok, "")
			}

			return value, err
		}
	}
}
