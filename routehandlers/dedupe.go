package routehandlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vitalvas/pathway/route"
)

// DedupeConfig configures the Dedupe middleware behaviour.
type DedupeConfig struct {
	// KeyFunc returns the key identifying equivalent calls. Calls with an
	// empty key are not de-duplicated. Defaults to the route id joined
	// with the request URL.
	KeyFunc func(args route.Args) string
}

// dedupedResponse is a response with its body buffered so every waiting
// caller can read it.
type dedupedResponse struct {
	resp *http.Response
	body []byte
}

func (d dedupedResponse) clone() *http.Response {
	out := new(http.Response)
	*out = *d.resp
	out.Header = d.resp.Header.Clone()
	out.Body = io.NopCloser(bytes.NewReader(d.body))
	return out
}

// dedupedPanic carries a panic of the shared call back to its callers.
type dedupedPanic struct {
	value any
}

// flight is the context of one shared call. It is cancelled once every
// caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type flights struct {
	mu sync.Mutex
	m  map[string]*flight
}

func (f *flights) join(ctx context.Context, key string) *flight {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl, ok := f.m[key]
	if !ok {
		sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: sctx, cancel: cancel}
		f.m[key] = fl
	}
	fl.waiters++

	return fl
}

func (f *flights) leave(key string, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fl.waiters--
	if fl.waiters > 0 {
		return
	}

	if f.m[key] == fl {
		delete(f.m, key)
	}
	fl.cancel()
}

// DedupeMiddleware returns a middleware that shares one loader execution
// between concurrent calls with the same key, for example a navigation
// and a fetcher loading the same URL.
//
// The shared execution keeps the values of the first caller's context but
// not its cancellation: it is cancelled only when every caller waiting on
// it has returned. A caller whose context ends returns its context error
// without waiting. Response bodies are buffered so every caller receives
// its own copy. Actions always run.
func DedupeMiddleware(cfg DedupeConfig) route.MiddlewareFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = defaultDedupeKey
	}

	var group singleflight.Group
	inflight := &flights{m: make(map[string]*flight)}

	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			if args.Kind != route.KindLoader {
				return next(ctx, args)
			}

			key := keyFunc(args)
			if key == "" {
				return next(ctx, args)
			}

			fl := inflight.join(ctx, key)
			defer inflight.leave(key, fl)

			ch := group.DoChan(key, func() (value any, err error) {
				defer func() {
					if p := recover(); p != nil {
						value, err = dedupedPanic{value: p}, nil
					}
				}()

				shared := args
				if shared.Request != nil {
					shared.Request = shared.Request.WithContext(fl.ctx)
				}

				return runShared(fl.ctx, next, shared)
			})

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case res := <-ch:
				// The call this caller joined belonged to a flight that was
				// abandoned and cancelled; run again on the caller's context.
				if isContextError(res.Err) && ctx.Err() == nil {
					return next(ctx, args)
				}
				if res.Err != nil {
					return nil, res.Err
				}

				switch v := res.Val.(type) {
				case dedupedPanic:
					panic(v.value)
				case dedupedResponse:
					return v.clone(), nil
				}
				return res.Val, nil
			}
		}
	}
}

func runShared(ctx context.Context, next route.HandlerFunc, args route.Args) (any, error) {
	value, err := next(ctx, args)
	if err != nil {
		return nil, err
	}

	resp, ok := value.(*http.Response)
	if !ok || resp == nil || resp.Body == nil {
		return value, nil
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return dedupedResponse{resp: resp, body: body}, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func defaultDedupeKey(args route.Args) string {
	url := requestURL(args)
	if url == "" {
		return ""
	}
	return args.RouteID + " " + url
}
