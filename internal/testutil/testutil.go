// Package testutil provides testing utilities and helpers for the hardening library.
package testutil

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// MockTime provides a controllable time source for deterministic testing.
// It is safe for concurrent use so it can back a rate limiter's clock while
// the cleanup goroutine is running.
type MockTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTime creates a new mock time provider
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time
func (m *MockTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock time forward by the given duration.
// A negative duration moves it backwards, which is useful for clock skew tests.
func (m *MockTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value
func (m *MockTime) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// NewTestLogger returns a debug-level text logger writing into the returned buffer.
func NewTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), &buf
}

// GenerateRandomString generates a random URL-safe string of the given length
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// GenerateTestKey returns a random 32-byte AES-256 key
func GenerateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

// GenerateTestToken creates a test OAuth2 token as cached from an identity provider
func GenerateTestToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  GenerateRandomString(32),
		TokenType:    "Bearer",
		RefreshToken: GenerateRandomString(32),
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

// GenerateTestJob returns a well-formed job posting document body
func GenerateTestJob() map[string]any {
	return map[string]any{
		"company":        "Sparks Electric",
		"location":       "Seattle, WA",
		"classification": "Inside Wireman",
		"localNumber":    46,
		"wage":           52.75,
		"numberOfJobs":   3,
		"details": map[string]any{
			"hours":     40,
			"perDiem":   false,
			"shiftNote": "days",
		},
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertDurationNear fails the test if got is farther than tolerance from want
func AssertDurationNear(t *testing.T, got, want, tolerance time.Duration) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		t.Errorf("duration = %v, want %v (±%v)", got, want, tolerance)
	}
}
