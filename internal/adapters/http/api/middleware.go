package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/inactives/pkg/logger"
	"github.com/okian/inactives/pkg/metrics"
)

// metricsMiddleware records request counts, latency and error classes for
// endpoint. Server side failures are also logged with the request id.
func (s *Server) metricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		tookMs := float64(time.Since(start).Milliseconds())
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, tookMs)

		if rec.status < http.StatusBadRequest {
			return
		}
		class := errorClass(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		metrics.RecordErrorByType(class, severity(rec.status))
		metrics.RecordErrorLatency("http", class, tookMs)

		if rec.status >= http.StatusInternalServerError {
			s.log().Warn(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.Int("status", rec.status),
				logger.String("class", class),
				logger.Float64("tookMs", tookMs),
			)
		}
	}
}

// errorClass names the failure behind an HTTP status.
func errorClass(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_query"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case statusClientClosedRequest:
		return "client_closed"
	case http.StatusBadGateway:
		return "upstream_error"
	case http.StatusGatewayTimeout:
		return "upstream_timeout"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// severity is high when the service or the game API is at fault.
func severity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
