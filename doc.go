// Package hardening is a security hardening layer in front of a document store.
//
// A SecureStore wraps any storage.DocumentStore and guarantees that nothing
// reaches the store before it has been checked:
//
//   - Input validation: identities, collection paths, document ids, field
//     names (recursively) and values are validated by the validation package.
//     Rejections are *validation.ValidationError values and are never retried.
//   - Rate limiting: writes are charged against a per-identity token bucket
//     (security.RateLimiter) under the "write" operation class. Reads can be
//     charged too with RateLimitConfig.LimitReads. Rejections are
//     *security.RateLimitError values carrying a retry-after duration.
//   - Audit logging: validation failures, rate-limit violations, writes and
//     deletes are logged with hashed identities.
//
// Store errors such as storage.ErrNotFound are passed through unmodified.
//
// # Usage
//
//	store, err := hardening.New(memory.New(), hardening.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	id, err := store.CreateJobPosting(ctx, userID, "jobs", hardening.JobPosting{
//	    Company:        "Sparks Electric",
//	    Location:       "Seattle, WA",
//	    Classification: "Inside Wireman",
//	    LocalNumber:    46,
//	    Wage:           52.75,
//	})
//	if hardening.IsRetryable(err) {
//	    time.Sleep(hardening.RetryAfter(err))
//	}
//
// Cached identity-provider tokens are kept in a TokenVault, which encrypts
// them with AES-256-GCM when EncryptionConfig.TokenCacheKey is set.
//
// Configuration can be loaded from TOML with LoadConfigFile.
package hardening
