package hardening

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/journeyman-jobs/hardening/security"
	"github.com/journeyman-jobs/hardening/storage"
	"github.com/journeyman-jobs/hardening/validation"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", validation.NewError("id", "document id is required"), ErrorCodeValidationFailed},
		{"rate limit", &security.RateLimitError{Operation: security.ClassWrite, RetryAfter: time.Second}, ErrorCodeRateLimited},
		{"wrapped rate limit", fmt.Errorf("outer: %w", &security.RateLimitError{}), ErrorCodeRateLimited},
		{"not found", storage.ErrNotFound, ErrorCodeNotFound},
		{"invalid cursor", fmt.Errorf("%w: bad base64", storage.ErrInvalidCursor), ErrorCodeInvalidCursor},
		{"authentication", fmt.Errorf("failed to decrypt: %w", security.ErrAuthenticationFailed), ErrorCodeAuthenticationFailed},
		{"canceled", context.Canceled, ErrorCodeCanceled},
		{"deadline", context.DeadlineExceeded, ErrorCodeCanceled},
		{"other", errors.New("boom"), ErrorCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	err := fmt.Errorf("write rejected: %w", &security.RateLimitError{
		Operation:  security.ClassWrite,
		RetryAfter: 1500 * time.Millisecond,
	})

	assert.Equal(t, 1500*time.Millisecond, RetryAfter(err))
	assert.True(t, IsRetryable(err))

	assert.Zero(t, RetryAfter(storage.ErrNotFound))
	assert.Zero(t, RetryAfter(nil))
	assert.False(t, IsRetryable(validation.NewError("email", "is required")))
}
