// Package routehandlers provides middleware for route loaders and actions.
//
// Every constructor returns a route.MiddlewareFunc (or a type implementing
// route.Middleware) that can be passed to router.Config.Middleware. The
// router wraps each handler once and caches the result, so per-handler
// setup done by a middleware runs once per route and kind.
//
// # Timeout Middleware
//
// TimeoutMiddleware bounds handler execution. The deadline is layered on
// top of the abort signal: a navigation interrupted before the deadline
// still reports its cancellation. A handler that does not return in time
// yields a 503 router.ErrorResponse wrapping ErrTimeout.
//
//	mw, err := routehandlers.TimeoutMiddleware(routehandlers.TimeoutConfig{
//	    Duration: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Recovery Middleware
//
// RecoveryMiddleware turns a panicking handler into a 500 router.ErrorResponse
// wrapping ErrPanic and optionally reports the recovered value.
//
//	mw := routehandlers.RecoveryMiddleware(routehandlers.RecoveryConfig{
//	    LogFunc: func(args route.Args, err any) {
//	        slog.Error("handler panic", "route_id", args.RouteID, "panic", err)
//	    },
//	})
//
// # Logging Middleware
//
// LoggingMiddleware logs each invocation with its route id, kind, URL,
// duration and outcome (data, redirect or error).
//
// # Request ID Middleware
//
// RequestIDMiddleware assigns every invocation an id, stores it in the
// handler context and sets it on the request header. RequestIDExtractor
// adds it to every record logged with that context by a logger built with
// logger.New.
//
//	log := logger.New(routehandlers.RequestIDExtractor)
//
// # Dedupe Middleware
//
// DedupeMiddleware collapses concurrent identical loader calls into one
// execution. Actions are never de-duplicated.
//
// # Metrics
//
// NewMetrics registers Prometheus collectors for handler calls, durations
// and in-flight handlers and returns a middleware recording them.
//
//	m, err := routehandlers.NewMetrics(routehandlers.MetricsConfig{
//	    Registry: prometheus.DefaultRegisterer,
//	})
//
// # Tracing Middleware
//
// TracingMiddleware starts an OpenTelemetry span per invocation. The span
// context is propagated to the handler context and request.
package routehandlers
