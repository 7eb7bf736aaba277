package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// emailPattern is a simplified RFC 5322 address: a dot-atom local part and a
// hostname with at least one dot. Input is lowercased before matching.
var emailPattern = regexp.MustCompile(
	"^[a-z0-9.!#$%&'*+/=?^_`{|}~-]+@" +
		"[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?" +
		"(?:\\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)+$")

// StringRule bounds a free-text value. Lengths are measured in characters after
// trimming surrounding whitespace.
type StringRule struct {
	Min        int  // Minimum length (ignored for an allowed empty value)
	Max        int  // Maximum length, 0 means unbounded
	AllowEmpty bool // Accept "" even when Min > 0
}

// SanitizeEmail trims and lowercases an email address and checks it against a
// simplified RFC 5322 pattern. The result is idempotent.
func (v *Validator) SanitizeEmail(email string) (string, error) {
	const field = "email"

	sanitized := strings.ToLower(strings.TrimSpace(email))
	if sanitized == "" {
		return "", NewError(field, "is required")
	}
	if utf8.RuneCountInString(sanitized) > v.cfg.MaxEmailLength {
		return "", NewError(field, "must be at most %d characters", v.cfg.MaxEmailLength)
	}
	if !emailPattern.MatchString(sanitized) {
		return "", NewError(field, "is not a valid email address")
	}
	return sanitized, nil
}

// ValidatePassword checks password strength. The password is never modified.
func (v *Validator) ValidatePassword(password string) error {
	const field = "password"

	n := utf8.RuneCountInString(password)
	if n < v.cfg.PasswordMinLength {
		return NewError(field, "must be at least %d characters", v.cfg.PasswordMinLength)
	}
	if n > v.cfg.PasswordMaxLength {
		return NewError(field, "must be at most %d characters", v.cfg.PasswordMaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(v.cfg.PasswordSpecialChars, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return NewError(field, "must contain at least one uppercase letter")
	case !hasLower:
		return NewError(field, "must contain at least one lowercase letter")
	case !hasDigit:
		return NewError(field, "must contain at least one digit")
	case !hasSpecial:
		return NewError(field, "must contain at least one special character (%s)", v.cfg.PasswordSpecialChars)
	}
	return nil
}

// SanitizeString trims value and enforces rule
func (v *Validator) SanitizeString(field, value string, rule StringRule) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if rule.AllowEmpty {
			return "", nil
		}
		if rule.Min > 0 {
			return "", NewError(field, "is required")
		}
	}

	n := utf8.RuneCountInString(trimmed)
	if n < rule.Min {
		return "", NewError(field, "must be at least %d characters", rule.Min)
	}
	if rule.Max > 0 && n > rule.Max {
		return "", NewError(field, "must be at most %d characters", rule.Max)
	}
	return trimmed, nil
}

// SanitizeForDisplay removes control characters and invisible format characters
// (zero-width spaces and joiners, byte order marks, bidi overrides) so a value
// can be written to logs. It is not a substitute for output encoding.
func SanitizeForDisplay(s string) string {
	clean := true
	for _, r := range s {
		if isHidden(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !isHidden(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isHidden(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}

// SanitizeEmail validates email with the default validator
func SanitizeEmail(email string) (string, error) {
	return defaultValidator.SanitizeEmail(email)
}

// ValidatePassword validates password with the default validator
func ValidatePassword(password string) error {
	return defaultValidator.ValidatePassword(password)
}

// SanitizeString validates a bounded string with the default validator
func SanitizeString(field, value string, rule StringRule) (string, error) {
	return defaultValidator.SanitizeString(field, value, rule)
}
