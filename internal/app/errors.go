package service

import (
	"context"
	"errors"

	"github.com/okian/inactives/internal/adapters/provider"
	"github.com/okian/inactives/internal/domain/model"
)

// Sentinel errors for this package.
var (
	ErrInvalidQuery = errors.New("invalid query")
	ErrNoProvider   = errors.New("no provider configured")
)

// Error kinds reported by Kind.
const (
	KindInvalidQuery = "invalid_query"
	KindProvider     = "provider"
	KindMalformed    = "malformed_record"
	KindCanceled     = "canceled"
	KindTimeout      = "timeout"
	KindInternal     = "internal"
)

// Kind classifies err for metrics and status mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuery):
		return KindInvalidQuery
	case errors.Is(err, model.ErrMalformedRecord):
		return KindMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, provider.ErrProviderFailure):
		return KindProvider
	default:
		return KindInternal
	}
}
