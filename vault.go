package hardening

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/journeyman-jobs/hardening/security"
	"github.com/journeyman-jobs/hardening/storage"
)

// TokenVault caches identity-provider tokens per identity in the
// TokenCacheCollection. Access and refresh tokens are encrypted with the
// configured token cache key; without a key they are stored as-is.
// All access goes through the SecureStore, so vault writes share the
// identity's write budget.
type TokenVault struct {
	store     *SecureStore
	encryptor *security.Encryptor
}

// NewTokenVault creates a vault on top of s
func NewTokenVault(s *SecureStore) (*TokenVault, error) {
	if s == nil {
		return nil, fmt.Errorf("secure store is required")
	}
	enc, err := security.NewEncryptor(s.config.Encryption.TokenCacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token encryptor: %w", err)
	}
	if !enc.IsEnabled() {
		s.logger.Warn("Token cache key not configured, cached tokens are stored unencrypted")
	}
	return &TokenVault{store: s, encryptor: enc}, nil
}

// Encrypted reports whether cached tokens are encrypted at rest
func (v *TokenVault) Encrypted() bool {
	return v.encryptor.IsEnabled()
}

// SaveToken stores token for identity, replacing any cached token
func (v *TokenVault) SaveToken(ctx context.Context, identity string, token *oauth2.Token) error {
	data, err := storage.TokenToData(token, v.encryptor)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := v.store.Set(ctx, identity, TokenCacheCollection, vaultID(identity), data, false); err != nil {
		return err
	}
	v.store.auditor.LogTokenCached(ctx, identity, token.Expiry)
	return nil
}

// LoadToken returns the cached token for identity. It returns
// storage.ErrNotFound when nothing is cached and an error matching
// security.ErrAuthenticationFailed when the stored ciphertext does not verify.
func (v *TokenVault) LoadToken(ctx context.Context, identity string) (*oauth2.Token, error) {
	doc, err := v.store.Get(ctx, identity, TokenCacheCollection, vaultID(identity))
	if err != nil {
		return nil, err
	}
	token, err := storage.TokenFromData(doc.Data, v.encryptor)
	if err != nil {
		reason := "invalid_document"
		switch {
		case errors.Is(err, security.ErrAuthenticationFailed):
			reason = "authentication_failed"
		case errors.Is(err, security.ErrMalformedPayload):
			reason = "malformed_payload"
		}
		v.store.auditor.LogDecryptionFailed(ctx, identity, reason)
		return nil, fmt.Errorf("failed to decode cached token: %w", err)
	}
	return token, nil
}

// DeleteToken evicts the cached token for identity
func (v *TokenVault) DeleteToken(ctx context.Context, identity string) error {
	if err := v.store.Delete(ctx, identity, TokenCacheCollection, vaultID(identity)); err != nil {
		return err
	}
	v.store.auditor.LogTokenEvicted(ctx, identity)
	return nil
}

// vaultID derives the document id for an identity so raw identities never
// appear in storage keys.
func vaultID(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}
