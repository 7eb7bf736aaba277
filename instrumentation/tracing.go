package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never put document contents, passwords, keys or plaintext
// in traces. Identities are recorded only as hashes (see security.HashIdentifier).
const (
	// Facade attributes
	AttrOperation    = "hardening.operation"
	AttrCollection   = "hardening.collection"
	AttrIdentityHash = "hardening.identity_hash"
	AttrErrorCode    = "hardening.error_code"
	AttrQueryLimit   = "hardening.query.limit"
	AttrResultCount  = "hardening.result.count"

	// Storage attributes
	AttrStorageOperation = "storage.operation"
	AttrStorageResult    = "storage.result"
	AttrStorageType      = "storage.type"

	// Security attributes
	AttrRateLimiterType     = "security.rate_limiter.type"
	AttrOperationClass      = "security.operation_class"
	AttrRetryAfterMs        = "security.retry_after_ms"
	AttrAuditEventType      = "security.audit.event_type"
	AttrEncryptionOperation = "security.encryption.operation"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddOperationAttributes adds facade operation attributes to a span (nil-safe).
// identityHash must already be hashed.
func AddOperationAttributes(span trace.Span, operation, collection, identityHash string) {
	SetSpanAttributes(span, attribute.String(AttrOperation, operation))
	if collection != "" {
		SetSpanAttributes(span, attribute.String(AttrCollection, collection))
	}
	if identityHash != "" {
		SetSpanAttributes(span, attribute.String(AttrIdentityHash, identityHash))
	}
}

// AddStorageAttributes adds storage operation attributes to a span (nil-safe)
func AddStorageAttributes(span trace.Span, operation, storageType string) {
	SetSpanAttributes(span,
		attribute.String(AttrStorageOperation, operation),
		attribute.String(AttrStorageType, storageType),
	)
}

// AddRateLimitAttributes adds rate-limit decision attributes to a span (nil-safe)
func AddRateLimitAttributes(span trace.Span, limiter, class string, retryAfterMs int64) {
	SetSpanAttributes(span,
		attribute.String(AttrRateLimiterType, limiter),
		attribute.String(AttrOperationClass, class),
		attribute.Int64(AttrRetryAfterMs, retryAfterMs),
	)
}
