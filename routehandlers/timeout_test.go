package routehandlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/pathway/route"
	"github.com/vitalvas/pathway/router"
)

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("config validation", func(t *testing.T) {
		tests := []struct {
			name    string
			config  TimeoutConfig
			wantErr error
		}{
			{"zero duration", TimeoutConfig{Duration: 0}, ErrInvalidTimeout},
			{"negative duration", TimeoutConfig{Duration: -1 * time.Second}, ErrInvalidTimeout},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := TimeoutMiddleware(tt.config)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}

		t.Run("valid duration", func(t *testing.T) {
			_, err := TimeoutMiddleware(TimeoutConfig{Duration: time.Second})
			assert.NoError(t, err)
		})
	})

	t.Run("handler completes before timeout", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: 2 * time.Second})
		require.NoError(t, err)

		var deadline bool
		h := mw(func(ctx context.Context, args route.Args) (any, error) {
			_, deadline = ctx.Deadline()
			assert.Equal(t, ctx, args.Request.Context())
			return "ok", nil
		})

		value, err := h(context.Background(), loaderArgs("/users"))
		require.NoError(t, err)
		assert.Equal(t, "ok", value)
		assert.True(t, deadline)
	})

	t.Run("handler exceeds timeout", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: 20 * time.Millisecond, Message: "too slow"})
		require.NoError(t, err)

		release := make(chan struct{})
		defer close(release)

		h := mw(func(context.Context, route.Args) (any, error) {
			<-release
			return "late", nil
		})

		value, err := h(context.Background(), loaderArgs("/users"))
		assert.Nil(t, value)
		assert.ErrorIs(t, err, ErrTimeout)

		resp, ok := router.IsErrorResponse(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
		assert.Equal(t, "too slow", resp.Data)
	})

	t.Run("parent cancellation wins", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: time.Second})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		h := mw(func(ctx context.Context, _ route.Args) (any, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		})

		_, err = h(ctx, loaderArgs("/users"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrTimeout)
	})

	t.Run("panic is re-raised", func(t *testing.T) {
		mw, err := TimeoutMiddleware(TimeoutConfig{Duration: time.Second})
		require.NoError(t, err)

		h := mw(func(context.Context, route.Args) (any, error) {
			panic("boom")
		})

		assert.PanicsWithValue(t, "boom", func() {
			_, _ = h(context.Background(), loaderArgs("/users"))
		})
	})
}
