package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

type requestState struct{ closed bool }

func (s *requestState) Close() error {
	s.closed = true
	return nil
}

var stateKey = container.KeyFor[*requestState]()

func TestRequestScope_ScopedPerRequest(t *testing.T) {
	root := container.New()
	root.Scoped(stateKey, func(*container.Container) (any, error) { return &requestState{}, nil })

	var seen []*requestState
	r := routing.New(routing.RequestScope(root))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		scope, ok := container.FromContext(req.Context())
		require.True(t, ok)
		a := container.MustResolve[*requestState](scope, stateKey)
		b := container.MustResolve[*requestState](scope, stateKey)
		assert.Same(t, a, b, "one instance per request")
		seen = append(seen, a)
	})

	do(t, r, http.MethodGet, "/")
	do(t, r, http.MethodGet, "/")

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1], "a fresh instance per request")
	assert.True(t, seen[0].closed, "scope closed after the request")
	assert.True(t, seen[1].closed)
}

func TestRequestScope_RequestID(t *testing.T) {
	var got string
	r := routing.New(routing.RequestScope(container.New()))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		got = routing.RequestID(req.Context())
	})

	t.Run("generated", func(t *testing.T) {
		rr := do(t, r, http.MethodGet, "/")
		id := rr.Header().Get(routing.RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("inbound kept", func(t *testing.T) {
		want := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(routing.RequestIDHeader, want)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, want, rr.Header().Get(routing.RequestIDHeader))
		assert.Equal(t, want, got)
	})

	t.Run("garbage replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(routing.RequestIDHeader, "<script>")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.NotEqual(t, "<script>", rr.Header().Get(routing.RequestIDHeader))
	})
}
