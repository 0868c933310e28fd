// Package logger builds the slog loggers used by the router and its
// handler middleware.
//
// Loggers decorate a JSON (or text) handler with context extractors that
// add invocation-scoped attributes, such as the id assigned to a loader
// call by routehandlers.RequestID, to every record:
//
//	log := logger.New(routehandlers.RequestIDExtractor)
//	r, err := router.New(router.Config{Routes: routes, Logger: log})
//
// NewNope returns a logger that discards everything. The router uses it
// when no logger is configured.
package logger
