package hardening

import (
	"context"
	"errors"
	"time"

	"github.com/journeyman-jobs/hardening/security"
	"github.com/journeyman-jobs/hardening/storage"
	"github.com/journeyman-jobs/hardening/validation"
)

// Error codes as constants. They classify errors for logs, span attributes
// and callers that map errors onto their own transport.
const (
	ErrorCodeValidationFailed     = "validation_failed"
	ErrorCodeRateLimited          = "rate_limited"
	ErrorCodeNotFound             = "not_found"
	ErrorCodeInvalidCursor        = "invalid_cursor"
	ErrorCodeAuthenticationFailed = "authentication_failed"
	ErrorCodeCanceled             = "canceled"
	ErrorCodeInternal             = "internal"
)

// ErrClosed is returned by operations on a closed SecureStore
var ErrClosed = errors.New("secure store is closed")

// ErrorCode classifies err into one of the ErrorCode constants.
// A nil error yields "".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, validation.ErrValidationFailed):
		return ErrorCodeValidationFailed
	case errors.Is(err, security.ErrRateLimitExceeded):
		return ErrorCodeRateLimited
	case errors.Is(err, storage.ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, storage.ErrInvalidCursor):
		return ErrorCodeInvalidCursor
	case errors.Is(err, security.ErrAuthenticationFailed):
		return ErrorCodeAuthenticationFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeCanceled
	default:
		return ErrorCodeInternal
	}
}

// IsRetryable reports whether err is transient. Validation failures are never
// retryable; rate-limit rejections are, after RetryAfter(err).
func IsRetryable(err error) bool {
	return errors.Is(err, security.ErrRateLimitExceeded)
}

// RetryAfter returns the wait carried by a rate-limit error, or 0 for any
// other error.
func RetryAfter(err error) time.Duration {
	var rle *security.RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}
