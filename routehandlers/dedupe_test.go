package routehandlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/pathway/route"
	"github.com/vitalvas/pathway/router"
)

func TestDedupeMiddleware(t *testing.T) {
	t.Run("concurrent loaders share one call", func(t *testing.T) {
		var calls atomic.Int32
		entered := make(chan struct{})
		release := make(chan struct{})

		h := DedupeMiddleware(DedupeConfig{})(func(context.Context, route.Args) (any, error) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			<-release
			return router.JSON(map[string]string{"name": "gopher"}, http.StatusOK)
		})

		first := make(chan any, 1)
		go func() {
			v, _ := h(context.Background(), loaderArgs("/users/1"))
			first <- v
		}()
		<-entered

		second := make(chan any, 1)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := h(context.Background(), loaderArgs("/users/1"))
			second <- v
		}()

		// A caller joining after release runs its own call.
		close(release)
		wg.Wait()

		for _, ch := range []chan any{first, second} {
			resp, ok := (<-ch).(*http.Response)
			require.True(t, ok)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"gopher"}`, string(body))
		}

		assert.LessOrEqual(t, calls.Load(), int32(2))
	})

	t.Run("different urls are not shared", func(t *testing.T) {
		var calls atomic.Int32
		h := DedupeMiddleware(DedupeConfig{})(func(context.Context, route.Args) (any, error) {
			calls.Add(1)
			return "ok", nil
		})

		for _, target := range []string{"/users/1", "/users/2"} {
			v, err := h(context.Background(), loaderArgs(target))
			require.NoError(t, err)
			assert.Equal(t, "ok", v)
		}
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("actions always run", func(t *testing.T) {
		var calls atomic.Int32
		h := DedupeMiddleware(DedupeConfig{KeyFunc: func(route.Args) string { return "same" }})(
			func(context.Context, route.Args) (any, error) {
				calls.Add(1)
				return nil, nil
			})

		args := loaderArgs("/users")
		args.Kind = route.KindAction

		_, _ = h(context.Background(), args)
		_, _ = h(context.Background(), args)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("errors are returned", func(t *testing.T) {
		errBoom := errors.New("boom")
		h := DedupeMiddleware(DedupeConfig{})(returning(nil, errBoom))

		_, err := h(context.Background(), loaderArgs("/users"))
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("waiting caller honours its context", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		defer close(release)

		h := DedupeMiddleware(DedupeConfig{KeyFunc: func(route.Args) string { return "k" }})(
			func(context.Context, route.Args) (any, error) {
				close(entered)
				<-release
				return "ok", nil
			})

		go func() {
			_, _ = h(context.Background(), loaderArgs("/users"))
		}()
		<-entered

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := h(ctx, loaderArgs("/users"))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled first caller does not fail the others", func(t *testing.T) {
		var once sync.Once
		entered := make(chan struct{})
		release := make(chan struct{})

		h := DedupeMiddleware(DedupeConfig{KeyFunc: func(route.Args) string { return "k" }})(
			func(ctx context.Context, args route.Args) (any, error) {
				once.Do(func() { close(entered) })
				select {
				case <-release:
					return "ok", args.Request.Context().Err()
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			})

		ctx1, cancel1 := context.WithCancel(context.Background())
		first := make(chan error, 1)
		go func() {
			_, err := h(ctx1, loaderArgs("/users"))
			first <- err
		}()
		<-entered

		type outcome struct {
			value any
			err   error
		}
		second := make(chan outcome, 1)
		go func() {
			v, err := h(context.Background(), loaderArgs("/users"))
			second <- outcome{value: v, err: err}
		}()

		cancel1()
		assert.ErrorIs(t, <-first, context.Canceled)

		close(release)
		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, "ok", res.value)
	})

	t.Run("shared call outlives its first caller", func(t *testing.T) {
		entered := make(chan struct{})
		release := make(chan struct{})
		var sharedCtx context.Context

		h := DedupeMiddleware(DedupeConfig{KeyFunc: func(route.Args) string { return "k" }})(
			func(ctx context.Context, _ route.Args) (any, error) {
				sharedCtx = ctx
				close(entered)
				<-release
				return "ok", nil
			})

		ctx1, cancel1 := context.WithCancel(context.WithValue(context.Background(), requestIDKey{}, "first"))
		defer cancel1()

		done := make(chan any, 1)
		go func() {
			v, _ := h(ctx1, loaderArgs("/users"))
			done <- v
		}()
		<-entered

		assert.Equal(t, "first", RequestIDFromContext(sharedCtx))
		assert.NoError(t, sharedCtx.Err())

		close(release)
		assert.Equal(t, "ok", <-done)

		// The last caller leaving releases the shared context.
		assert.ErrorIs(t, sharedCtx.Err(), context.Canceled)
	})

	t.Run("panic reaches the caller", func(t *testing.T) {
		h := DedupeMiddleware(DedupeConfig{})(func(context.Context, route.Args) (any, error) {
			panic("loader bug")
		})

		assert.PanicsWithValue(t, "loader bug", func() {
			_, _ = h(context.Background(), loaderArgs("/users"))
		})
	})

	t.Run("empty key bypasses", func(t *testing.T) {
		var calls atomic.Int32
		h := DedupeMiddleware(DedupeConfig{KeyFunc: func(route.Args) string { return "" }})(
			func(context.Context, route.Args) (any, error) {
				calls.Add(1)
				return nil, nil
			})

		_, _ = h(context.Background(), loaderArgs("/users"))
		assert.Equal(t, int32(1), calls.Load())
	})
}
