package security

import (
	"errors"
	"fmt"
	"time"
)

// Rate limiting errors
var (
	// ErrRateLimitExceeded is matched by every *RateLimitError via errors.Is
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrCostExceedsCapacity is returned for a request costing more tokens
	// than its bucket can ever hold. It is not retryable.
	ErrCostExceedsCapacity = errors.New("request cost exceeds bucket capacity")
)

// Encryption errors. Each is fatal to the single operation that returned it.
var (
	// ErrAuthenticationFailed indicates that a ciphertext failed its integrity
	// check: wrong key, wrong password or tampered data.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMalformedPayload indicates that a serialized payload is too short or
	// not valid base64.
	ErrMalformedPayload = errors.New("malformed encrypted payload")

	// ErrRandomSource indicates that the random source failed to produce bytes
	ErrRandomSource = errors.New("random source failure")

	// ErrInvalidKey indicates a key of the wrong size
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrEmptyPassword is returned when a password-based operation gets no password
	ErrEmptyPassword = errors.New("password must not be empty")
)

// RateLimitError is returned when a request is rejected by the rate limiter.
// It is transient: the caller may retry after RetryAfter.
type RateLimitError struct {
	Operation  OperationClass
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s operations, retry after %s",
		e.Operation, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrRateLimitExceeded
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}
