package middleware

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

const CorrelationIDHeader = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationCtx returns the request's correlation ID, or "" outside a
// request scope.
func CorrelationCtx(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// CorrelationID tags each request with an ID that flows through the request
// log, the audit trail and error responses. A caller-supplied header wins so
// the host framework can tie its login flow to the gate's decision.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)

		ctx := context.WithValue(r.Context(), correlationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
