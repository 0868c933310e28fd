package routehandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/pathway/logger"
	"github.com/vitalvas/pathway/route"
)

func TestRequestIDMiddleware(t *testing.T) {
	capture := func(gotID, gotHeader *string, header string) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (any, error) {
			*gotID = RequestIDFromContext(ctx)
			*gotHeader = args.Request.Header.Get(header)
			return nil, nil
		}
	}

	t.Run("generates uuid", func(t *testing.T) {
		var id, header string
		h := RequestIDMiddleware(RequestIDConfig{})(capture(&id, &header, "X-Request-ID"))

		args := loaderArgs("/users")
		_, err := h(context.Background(), args)
		require.NoError(t, err)

		_, parseErr := uuid.Parse(id)
		assert.NoError(t, parseErr)
		assert.Equal(t, id, header)
		assert.Empty(t, args.Request.Header.Get("X-Request-ID"), "caller request is not modified")
	})

	t.Run("custom generator and header", func(t *testing.T) {
		var id, header string
		h := RequestIDMiddleware(RequestIDConfig{
			HeaderName:   "X-Trace",
			GenerateFunc: func(args route.Args) string { return "id-" + args.RouteID },
		})(capture(&id, &header, "X-Trace"))

		_, err := h(context.Background(), loaderArgs("/users"))
		require.NoError(t, err)
		assert.Equal(t, "id-users", id)
		assert.Equal(t, "id-users", header)
	})

	t.Run("trust incoming", func(t *testing.T) {
		tests := []struct {
			name  string
			trust bool
			want  string
		}{
			{name: "trusted", trust: true, want: "incoming"},
			{name: "untrusted", trust: false, want: "generated"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var id, header string
				h := RequestIDMiddleware(RequestIDConfig{
					TrustIncoming: tt.trust,
					GenerateFunc:  func(route.Args) string { return "generated" },
				})(capture(&id, &header, "X-Request-ID"))

				args := loaderArgs("/users")
				args.Request.Header.Set("X-Request-ID", "incoming")

				_, err := h(context.Background(), args)
				require.NoError(t, err)
				assert.Equal(t, tt.want, id)
			})
		}
	})

	t.Run("uuid v7", func(t *testing.T) {
		id, err := uuid.Parse(GenerateUUIDv7(route.Args{}))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	})
}

func TestRequestIDExtractor(t *testing.T) {
	_, ok := RequestIDExtractor(context.Background())
	assert.False(t, ok)

	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Writer: &buf}, RequestIDExtractor)

	h := RequestIDMiddleware(RequestIDConfig{
		GenerateFunc: func(route.Args) string { return "req-1" },
	})(func(ctx context.Context, _ route.Args) (any, error) {
		log.InfoContext(ctx, "loading")
		return nil, nil
	})

	_, err := h(context.Background(), loaderArgs("/users"))
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
}
