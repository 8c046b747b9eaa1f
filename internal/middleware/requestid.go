// Package middleware provides HTTP middleware shared by the relay routes.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jnst/egisz-callback-relay/internal/logger"
)

// RequestIDHeader is the header carrying the request id.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, echoes it in
// the response and stores a logger tagged with it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, reqID)

		log := logger.FromContext(r.Context()).With(slog.String("request_id", reqID))
		next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), log)))
	})
}
