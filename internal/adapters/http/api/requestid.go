package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/inactives/pkg/logger"
)

// RequestIDHeader carries the id of a request in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps ids supplied by callers.
const maxRequestIDLen = 128

// RequestIDMiddleware tags every request with an id, taken from the caller's
// X-Request-ID header when usable or generated otherwise. The id is echoed in
// the response and attached to the request context for logging.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
