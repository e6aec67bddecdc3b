package routing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/container"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestScope opens a child scope of root for every request and stores it
// in the request context (see container.FromContext). The scope is closed
// once the handler returns. A valid inbound X-Request-ID is kept; otherwise
// a new UUID is issued. Either way it is echoed on the response.
func RequestScope(root *container.Container) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			scope := root.NewScope()
			defer func() {
				if err := scope.Close(context.WithoutCancel(r.Context())); err != nil {
					zap.L().Warn("closing request scope", zap.String("request_id", id), zap.Error(err))
				}
			}()

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(container.WithScope(ctx, scope)))
		})
	}
}

// RequestID returns the ID assigned by RequestScope, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
