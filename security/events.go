package security

// Event type constants for security audit logging
const (
	// EventValidationFailed is logged when input is rejected by the validator
	EventValidationFailed = "validation_failed"

	// EventRateLimitExceeded is logged when a request is rejected by the rate limiter
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventDecryptionFailed is logged when a ciphertext fails authentication
	EventDecryptionFailed = "decryption_failed"

	// EventDocumentWritten is logged when a document is created, replaced or merged
	EventDocumentWritten = "document_written"

	// EventDocumentDeleted is logged when a document is deleted
	EventDocumentDeleted = "document_deleted"

	// EventTokenCached is logged when an identity-provider token is stored in the vault
	EventTokenCached = "token_cached" //nolint:gosec // G101: event type name, not a credential

	// EventTokenEvicted is logged when a cached token is removed from the vault
	EventTokenEvicted = "token_evicted" //nolint:gosec // G101: event type name, not a credential
)
