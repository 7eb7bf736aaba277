package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/validation"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger          *slog.Logger
	enabled         bool
	now             Clock
	instrumentation *instrumentation.Instrumentation
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
		now:     time.Now,
	}
}

// SetInstrumentation enables audit event metrics
func (a *Auditor) SetInstrumentation(inst *instrumentation.Instrumentation) {
	a.instrumentation = inst
}

// Event represents a security audit event
type Event struct {
	Type       string
	Identity   string // hashed before logging
	Operation  string
	Collection string
	DocumentID string // hashed before logging
	Details    map[string]any
	Timestamp  time.Time
}

// LogEvent logs a security event with hashed identifiers. String details are
// stripped of control characters.
func (a *Auditor) LogEvent(ctx context.Context, event Event) {
	if !a.enabled {
		return
	}

	event.Timestamp = a.now()

	attrs := []any{
		"event_type", event.Type,
		"identity_hash", HashIdentifier(event.Identity),
		"timestamp", event.Timestamp,
	}
	if event.Operation != "" {
		attrs = append(attrs, "operation", event.Operation)
	}
	if event.Collection != "" {
		attrs = append(attrs, "collection", validation.SanitizeForDisplay(event.Collection))
	}
	if event.DocumentID != "" {
		attrs = append(attrs, "document_id_hash", HashIdentifier(event.DocumentID))
	}
	if len(event.Details) > 0 {
		attrs = append(attrs, "details", sanitizeDetails(event.Details))
	}

	a.logger.InfoContext(ctx, "security_audit", attrs...)

	if a.instrumentation != nil {
		a.instrumentation.Metrics().RecordAuditEvent(ctx, event.Type)
	}
}

// LogValidationFailed logs rejected input. Only the field name is recorded,
// never the rejected value.
func (a *Auditor) LogValidationFailed(ctx context.Context, identity, operation, field string) {
	a.LogEvent(ctx, Event{
		Type:      EventValidationFailed,
		Identity:  identity,
		Operation: operation,
		Details: map[string]any{
			"field": field,
		},
	})
}

// LogRateLimitExceeded logs a rate limit violation
func (a *Auditor) LogRateLimitExceeded(ctx context.Context, identity string, class OperationClass, retryAfter time.Duration) {
	a.LogEvent(ctx, Event{
		Type:      EventRateLimitExceeded,
		Identity:  identity,
		Operation: string(class),
		Details: map[string]any{
			"retry_after_ms": retryAfter.Milliseconds(),
		},
	})
}

// LogDecryptionFailed logs a failed decryption
func (a *Auditor) LogDecryptionFailed(ctx context.Context, identity, reason string) {
	a.LogEvent(ctx, Event{
		Type:     EventDecryptionFailed,
		Identity: identity,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogDocumentWritten logs a successful write
func (a *Auditor) LogDocumentWritten(ctx context.Context, identity, operation, collection, id string) {
	a.LogEvent(ctx, Event{
		Type:       EventDocumentWritten,
		Identity:   identity,
		Operation:  operation,
		Collection: collection,
		DocumentID: id,
	})
}

// LogDocumentDeleted logs a successful delete
func (a *Auditor) LogDocumentDeleted(ctx context.Context, identity, collection, id string) {
	a.LogEvent(ctx, Event{
		Type:       EventDocumentDeleted,
		Identity:   identity,
		Operation:  "delete",
		Collection: collection,
		DocumentID: id,
	})
}

// LogTokenCached logs that an identity-provider token was stored
func (a *Auditor) LogTokenCached(ctx context.Context, identity string, expiry time.Time) {
	a.LogEvent(ctx, Event{
		Type:     EventTokenCached,
		Identity: identity,
		Details: map[string]any{
			"expiry": expiry,
		},
	})
}

// LogTokenEvicted logs that a cached token was removed
func (a *Auditor) LogTokenEvicted(ctx context.Context, identity string) {
	a.LogEvent(ctx, Event{
		Type:     EventTokenEvicted,
		Identity: identity,
	})
}

func sanitizeDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		if s, ok := v.(string); ok {
			v = validation.SanitizeForDisplay(s)
		}
		out[validation.SanitizeForDisplay(k)] = v
	}
	return out
}

// HashIdentifier returns a short SHA-256 digest of an identifier for logging
func HashIdentifier(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
