package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ollyhq/olly-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// Inbound ids longer than this are replaced rather than echoed.
	maxRequestIDLen = 64
)

// RequestID tags each request with an id, honoring a sane inbound header so
// the extension can correlate its own traces.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
