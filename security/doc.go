// Package security provides the rate limiting, encryption and audit logging
// primitives of the hardening layer.
//
// # Rate Limiting
//
// RateLimiter keeps one token bucket per (identifier, operation class). A
// bucket holds at most Policy.MaxRequests tokens and refills continuously at
// MaxRequests/Window tokens per second; each request consumes
// Policy.CostPerRequest tokens unless an explicit cost is given. Buckets are
// created lazily, full.
//
// A rejected request increments the bucket's violation count and an admitted
// one resets it. RetryAfter multiplies the refill wait by
// min(2^(violations-1), 32) so that repeat offenders back off exponentially.
//
// Default configuration:
//   - MaxEntries: 10,000 buckets (LRU eviction beyond that)
//   - CleanupInterval: 5 minutes
//   - IdleTimeout: 10 minutes
//
// Example:
//
//	limiter, err := security.NewRateLimiter(security.RateLimiterConfig{
//	    Name:     "user",
//	    Policies: security.DefaultUserPolicies(),
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer limiter.Stop()
//
//	if err := limiter.Enforce(ctx, userID, security.ClassWrite); err != nil {
//	    var rlErr *security.RateLimitError
//	    errors.As(err, &rlErr) // rlErr.RetryAfter
//	    return err
//	}
//
// The limiter never fails for bookkeeping reasons. Clock steps backwards are
// treated as zero elapsed time. State is process local.
//
// Stats reports CurrentEntries, TotalEvictions, TotalCleanups, TotalRejections
// and MemoryPressure for monitoring. Alert when MemoryPressure stays above 80%.
//
// # Encryption
//
// EncryptionService seals data with AES-256-GCM under a fresh 96-bit IV from
// its random source and derives password keys with PBKDF2-HMAC-SHA256 (100,000
// iterations by default). EncryptString produces
// base64(salt || iv || authTag || ciphertext). Encryptor wraps a fixed raw key
// and produces base64(iv || authTag || ciphertext).
//
// Every failure is fatal to the single operation: ErrAuthenticationFailed for
// a tag mismatch, ErrMalformedPayload for truncated or undecodable input and
// ErrRandomSource when the random source fails. RSA-OAEP (SHA-256) helpers
// with PEM encoding cover asymmetric use.
//
// # Audit Logging
//
// Auditor logs security events with identities and document ids replaced by
// a truncated SHA-256 digest.
package security
