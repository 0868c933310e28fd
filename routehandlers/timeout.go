package routehandlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vitalvas/pathway/route"
	"github.com/vitalvas/pathway/router"
)

var (
	// ErrInvalidTimeout is returned when TimeoutConfig.Duration is not
	// greater than zero.
	ErrInvalidTimeout = errors.New("timeout: duration must be greater than zero")

	// ErrTimeout is wrapped by the error returned for a handler that did
	// not complete in time.
	ErrTimeout = errors.New("timeout: handler did not complete in time")
)

// TimeoutConfig configures the Timeout middleware behaviour.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the handler to complete.
	// Must be greater than zero.
	Duration time.Duration

	// Message is the data of the error returned when the handler times
	// out. Defaults to the status text of 503.
	Message string
}

type timeoutOutput struct {
	value any
	err   error
	panic any
}

// TimeoutMiddleware returns a middleware that limits handler execution
// time. The handler context gets a deadline and the handler runs in its
// own goroutine; when the deadline passes first a 503 *router.ErrorResponse
// wrapping ErrTimeout is returned. A panic in the handler is re-raised in
// the calling goroutine.
//
// It returns ErrInvalidTimeout if Duration is not greater than zero.
func TimeoutMiddleware(cfg TimeoutConfig) (route.MiddlewareFunc, error) {
	if cfg.Duration <= 0 {
		return nil, ErrInvalidTimeout
	}

	duration := cfg.Duration
	message := cfg.Message
	if message == "" {
		message = http.StatusText(http.StatusServiceUnavailable)
	}

	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			tctx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			if args.Request != nil {
				args.Request = args.Request.WithContext(tctx)
			}

			done := make(chan timeoutOutput, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						done <- timeoutOutput{panic: p}
					}
				}()

				value, err := next(tctx, args)
				done <- timeoutOutput{value: value, err: err}
			}()

			select {
			case out := <-done:
				if out.panic != nil {
					panic(out.panic)
				}
				return out.value, out.err

			case <-tctx.Done():
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				return nil, &router.ErrorResponse{
					Status:     http.StatusServiceUnavailable,
					StatusText: http.StatusText(http.StatusServiceUnavailable),
					Data:       message,
					Err:        ErrTimeout,
				}
			}
		}
	}, nil
}
