package storage

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/journeyman-jobs/hardening/security"
)

// Token document field names.
const (
	TokenFieldAccessToken  = "accessToken"
	TokenFieldRefreshToken = "refreshToken"
	TokenFieldTokenType    = "tokenType"
	TokenFieldExpiry       = "expiry"
	TokenFieldExtra        = "extra"
)

// KnownExtraFields lists the identity-provider extra fields kept when a token
// is stored. Unknown extra fields are dropped.
var KnownExtraFields = []string{
	"id_token",
	"scope",
	"expires_in",
}

// SensitiveExtraFields lists the extra fields encrypted at rest.
var SensitiveExtraFields = []string{
	"id_token",
}

// ExtractTokenExtra returns the known extra fields of a token, or nil when
// there are none.
func ExtractTokenExtra(token *oauth2.Token) map[string]any {
	if token == nil {
		return nil
	}

	extra := make(map[string]any, len(KnownExtraFields))
	for _, field := range KnownExtraFields {
		if v := token.Extra(field); v != nil {
			extra[field] = v
		}
	}

	if len(extra) == 0 {
		return nil
	}
	return extra
}

// TokenToData converts a token into a document payload. Access token, refresh
// token and sensitive extra fields are encrypted when the encryptor is enabled.
func TokenToData(token *oauth2.Token, enc *security.Encryptor) (map[string]any, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: token is nil", ErrInvalidDocument)
	}

	access, err := transformString(token.AccessToken, enc, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refresh, err := transformString(token.RefreshToken, enc, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	data := map[string]any{
		TokenFieldAccessToken:  access,
		TokenFieldRefreshToken: refresh,
		TokenFieldTokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		data[TokenFieldExpiry] = token.Expiry.UTC().Format(time.RFC3339Nano)
	}

	extra, err := transformExtraFields(ExtractTokenExtra(token), enc, true)
	if err != nil {
		return nil, err
	}
	if extra != nil {
		data[TokenFieldExtra] = extra
	}
	return data, nil
}

// TokenFromData rebuilds a token from a payload written by TokenToData.
func TokenFromData(data map[string]any, enc *security.Encryptor) (*oauth2.Token, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: token document is empty", ErrInvalidDocument)
	}

	access, err := transformString(stringField(data, TokenFieldAccessToken), enc, false)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refresh, err := transformString(stringField(data, TokenFieldRefreshToken), enc, false)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    stringField(data, TokenFieldTokenType),
	}

	if raw := stringField(data, TokenFieldExpiry); raw != "" {
		expiry, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expiry: %w", err)
		}
		token.Expiry = expiry
	}

	if rawExtra, ok := data[TokenFieldExtra].(map[string]any); ok {
		extra, err := transformExtraFields(rawExtra, enc, false)
		if err != nil {
			return nil, err
		}
		if extra != nil {
			token = token.WithExtra(extra)
		}
	}
	return token, nil
}

func stringField(data map[string]any, field string) string {
	s, _ := data[field].(string)
	return s
}

func transformString(value string, enc *security.Encryptor, encrypt bool) (string, error) {
	if value == "" || enc == nil || !enc.IsEnabled() {
		return value, nil
	}
	if encrypt {
		return enc.Encrypt(value)
	}
	return enc.Decrypt(value)
}

// transformExtraFields encrypts or decrypts the sensitive entries of an extra
// map, copying everything else. Unknown fields are dropped.
func transformExtraFields(extra map[string]any, enc *security.Encryptor, encrypt bool) (map[string]any, error) {
	if extra == nil {
		return nil, nil
	}

	known := make(map[string]bool, len(KnownExtraFields))
	for _, field := range KnownExtraFields {
		known[field] = true
	}
	sensitive := make(map[string]bool, len(SensitiveExtraFields))
	for _, field := range SensitiveExtraFields {
		sensitive[field] = true
	}

	result := make(map[string]any, len(extra))
	for key, value := range extra {
		if !known[key] {
			continue
		}
		strVal, isString := value.(string)
		if !sensitive[key] || !isString {
			result[key] = value
			continue
		}
		out, err := transformString(strVal, enc, encrypt)
		if err != nil {
			return nil, fmt.Errorf("failed to transform extra field %s: %w", key, err)
		}
		result[key] = out
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result, nil
}
