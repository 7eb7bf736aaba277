package validation

import (
	"errors"
	"testing"
)

func TestNew_AppliesDefaults(t *testing.T) {
	v, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg := v.Config()
	if cfg.MaxEmailLength != DefaultMaxEmailLength {
		t.Errorf("MaxEmailLength = %d, want %d", cfg.MaxEmailLength, DefaultMaxEmailLength)
	}
	if cfg.MaxIdentifierLength != DefaultMaxIdentifierLength {
		t.Errorf("MaxIdentifierLength = %d, want %d", cfg.MaxIdentifierLength, DefaultMaxIdentifierLength)
	}
	if cfg.MinLocalNumber != DefaultMinLocalNumber || cfg.MaxLocalNumber != DefaultMaxLocalNumber {
		t.Errorf("local number range = [%d, %d]", cfg.MinLocalNumber, cfg.MaxLocalNumber)
	}
	if len(cfg.Classifications) != len(AllClassifications()) {
		t.Errorf("len(Classifications) = %d, want %d", len(cfg.Classifications), len(AllClassifications()))
	}
}

func TestNew_DefaultsEachBoundSeparately(t *testing.T) {
	v, err := New(Config{MaxLocalNumber: 500, MaxWage: 120})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg := v.Config()
	if cfg.MinLocalNumber != DefaultMinLocalNumber || cfg.MaxLocalNumber != 500 {
		t.Errorf("local number range = [%d, %d], want [%d, 500]", cfg.MinLocalNumber, cfg.MaxLocalNumber, DefaultMinLocalNumber)
	}
	if cfg.MinWage != DefaultMinWage || cfg.MaxWage != 120 {
		t.Errorf("wage range = [%.2f, %.2f], want [%.2f, 120.00]", cfg.MinWage, cfg.MaxWage, DefaultMinWage)
	}
	if _, err := v.ValidateLocalNumber(0); err == nil {
		t.Error("ValidateLocalNumber(0) expected error with only the maximum configured")
	}
	if _, err := v.ValidateWage(0.50); err == nil {
		t.Error("ValidateWage(0.50) expected error with only the maximum configured")
	}

	v, err = New(Config{MinLocalNumber: 100})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := v.Config().MaxLocalNumber; got != DefaultMaxLocalNumber {
		t.Errorf("MaxLocalNumber = %d, want %d", got, DefaultMaxLocalNumber)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "password max below min", cfg: Config{PasswordMinLength: 20, PasswordMaxLength: 10}},
		{name: "negative identifier length", cfg: Config{MaxIdentifierLength: -1}},
		{name: "inverted local range", cfg: Config{MinLocalNumber: 10, MaxLocalNumber: 5}},
		{name: "minimum above default maximum", cfg: Config{MinLocalNumber: 20000}},
		{name: "inverted wage range", cfg: Config{MinWage: 10, MaxWage: 5}},
		{name: "unknown classification", cfg: Config{Classifications: []Classification{ClassificationUnknown}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestValidator_ConfigIsCopy(t *testing.T) {
	v := Default()
	cfg := v.Config()
	cfg.Classifications[0] = ClassificationUnknown
	if v.Config().Classifications[0] == ClassificationUnknown {
		t.Error("Config() must return a copy")
	}
}

func TestValidationError(t *testing.T) {
	err := NewError("wage", "must be between %d and %d", 1, 500)
	if err.Error() != "wage: must be between 1 and 500" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("errors.Is(err, ErrValidationFailed) = false")
	}

	noField := &ValidationError{Message: "bad"}
	if noField.Error() != "bad" {
		t.Errorf("Error() = %q", noField.Error())
	}

	if FieldOf(errors.New("other")) != "" {
		t.Error("FieldOf(non-validation error) should be empty")
	}
}
