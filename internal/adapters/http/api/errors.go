package api

import (
	"errors"
	"net/http"

	service "github.com/okian/inactives/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// requestError carries the client-facing message of a rejected request.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return ErrBadRequest }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// statusFor maps an error returned by a search to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	switch service.Kind(err) {
	case service.KindInvalidQuery:
		return http.StatusBadRequest
	case service.KindProvider, service.KindMalformed:
		return http.StatusBadGateway
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	case service.KindCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosedRequest is the nginx convention for a caller that went
// away before the response was ready.
const statusClientClosedRequest = 499
