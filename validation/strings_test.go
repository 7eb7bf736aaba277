package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "user@example.com", want: "user@example.com"},
		{name: "trim and lowercase", input: "  User@Example.COM ", want: "user@example.com"},
		{name: "plus addressing", input: "a.b+jobs@ibew46.org", want: "a.b+jobs@ibew46.org"},
		{name: "subdomain", input: "x@mail.local46.example.org", want: "x@mail.local46.example.org"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "missing at", input: "user.example.com", wantErr: true},
		{name: "missing domain dot", input: "user@localhost", wantErr: true},
		{name: "double at", input: "a@b@example.com", wantErr: true},
		{name: "space inside", input: "us er@example.com", wantErr: true},
		{name: "leading hyphen label", input: "user@-example.com", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 250) + "@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeEmail(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SanitizeEmail(%q) = %q, want error", tt.input, got)
				}
				if got != "" {
					t.Errorf("SanitizeEmail(%q) returned partial value %q", tt.input, got)
				}
				if FieldOf(err) != "email" {
					t.Errorf("FieldOf() = %q, want %q", FieldOf(err), "email")
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeEmail(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeEmail_Idempotent(t *testing.T) {
	inputs := []string{"  Foo.Bar@Example.com", "A+B@SUB.EXAMPLE.ORG", "x@y.co"}
	for _, in := range inputs {
		once, err := SanitizeEmail(in)
		if err != nil {
			t.Fatalf("SanitizeEmail(%q) error = %v", in, err)
		}
		twice, err := SanitizeEmail(once)
		if err != nil {
			t.Fatalf("SanitizeEmail(%q) error = %v", once, err)
		}
		if once != twice {
			t.Errorf("SanitizeEmail not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	const strong = "Str0ng!Pass"

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid", password: strong},
		{name: "backtick special", password: "Abcdef1`"},
		{name: "backslash special", password: "Abcdef1\\"},
		{name: "too short", password: "Ab1!", wantErr: "at least 8"},
		{name: "too long", password: "Aa1!" + strings.Repeat("x", 125), wantErr: "at most 128"},
		{name: "no upper", password: strings.ToLower(strong), wantErr: "uppercase"},
		{name: "no lower", password: strings.ToUpper(strong), wantErr: "lowercase"},
		{name: "no digit", password: "Strong!Pass", wantErr: "digit"},
		{name: "no special", password: "Str0ngPass", wantErr: "special"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePassword() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidatePassword() expected error")
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("errors.Is(err, ErrValidationFailed) = false")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidatePassword() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword_RemovingAnyClassFails(t *testing.T) {
	base := "Abcdef1!"
	if err := ValidatePassword(base); err != nil {
		t.Fatalf("ValidatePassword(%q) error = %v", base, err)
	}

	// Replace each class representative with a character of an already present class.
	variants := map[string]string{
		"upper":   "bbcdef1!",
		"lower":   "ABCDEF1!",
		"digit":   "Abcdefg!",
		"special": "Abcdef1x",
	}
	for class, pw := range variants {
		if err := ValidatePassword(pw); err == nil {
			t.Errorf("ValidatePassword(%q) without %s should fail", pw, class)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		rule    StringRule
		want    string
		wantErr bool
	}{
		{name: "trimmed", value: "  ACME Electric ", rule: StringRule{Min: 1, Max: 50}, want: "ACME Electric"},
		{name: "empty required", value: "  ", rule: StringRule{Min: 1, Max: 50}, wantErr: true},
		{name: "empty allowed", value: "", rule: StringRule{Min: 1, Max: 50, AllowEmpty: true}, want: ""},
		{name: "empty no min", value: "", rule: StringRule{Max: 10}, want: ""},
		{name: "too short", value: "ab", rule: StringRule{Min: 3}, wantErr: true},
		{name: "too long", value: "abcdef", rule: StringRule{Max: 5}, wantErr: true},
		{name: "runes not bytes", value: "ééééé", rule: StringRule{Max: 5}, want: "ééééé"},
		{name: "unbounded", value: strings.Repeat("x", 5000), rule: StringRule{}, want: strings.Repeat("x", 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeString("company", tt.value, tt.rule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if FieldOf(err) != "company" {
					t.Errorf("FieldOf() = %q, want company", FieldOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeForDisplay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello world", want: "hello world"},
		{name: "newline", input: "line1\nline2", want: "line1line2"},
		{name: "escape sequence", input: "\x1b[31mred", want: "[31mred"},
		{name: "zero width space", input: "ad\u200bmin", want: "admin"},
		{name: "bom", input: "\ufeffvalue", want: "value"},
		{name: "bidi override", input: "abc\u202edef", want: "abcdef"},
		{name: "unicode letters kept", input: "café", want: "café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForDisplay(tt.input); got != tt.want {
				t.Errorf("SanitizeForDisplay(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
