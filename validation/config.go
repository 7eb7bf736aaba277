package validation

import (
	"fmt"
	"math"
)

// Default bounds
const (
	DefaultMaxEmailLength       = 254
	DefaultPasswordMinLength    = 8
	DefaultPasswordMaxLength    = 128
	DefaultMaxIdentifierLength  = 1500
	DefaultMaxStringValueLength = 1 << 20
	DefaultMaxNestingDepth      = 20
	DefaultMinLocalNumber       = 1
	DefaultMaxLocalNumber       = 9999
	DefaultMinWage              = 1.00
	DefaultMaxWage              = 500.00

	// DefaultPasswordSpecialChars is the set of characters accepted as the
	// required special character of a password.
	DefaultPasswordSpecialChars = "!@#$%^&*(),.?\":{}|<>_-+=[]\\/;'~`"
)

// Config holds the bounds used by a Validator. Zero values are replaced with
// the package defaults by New.
type Config struct {
	// MaxEmailLength is the maximum length of an email address.
	// Default: 254
	MaxEmailLength int

	// PasswordMinLength and PasswordMaxLength bound password length in characters.
	// Default: 8 and 128
	PasswordMinLength int
	PasswordMaxLength int

	// PasswordSpecialChars lists the characters that satisfy the special-character rule.
	PasswordSpecialChars string

	// MaxIdentifierLength bounds field names, document ids, collection names and
	// query string values.
	// Default: 1500
	MaxIdentifierLength int

	// MaxStringValueLength bounds string values written into documents (bytes).
	// Default: 1 MiB
	MaxStringValueLength int

	// MaxNestingDepth bounds map/slice nesting inside written documents.
	// Default: 20
	MaxNestingDepth int

	// MinLocalNumber and MaxLocalNumber bound union-local numbers (inclusive).
	// Default: 1 and 9999
	MinLocalNumber int
	MaxLocalNumber int

	// MinWage and MaxWage bound hourly wage figures in dollars (inclusive).
	// Default: 1.00 and 500.00
	MinWage float64
	MaxWage float64

	// Classifications restricts the accepted job classifications.
	// Default: AllClassifications()
	Classifications []Classification
}

// DefaultConfig returns the default validation bounds
func DefaultConfig() Config {
	return Config{
		MaxEmailLength:       DefaultMaxEmailLength,
		PasswordMinLength:    DefaultPasswordMinLength,
		PasswordMaxLength:    DefaultPasswordMaxLength,
		PasswordSpecialChars: DefaultPasswordSpecialChars,
		MaxIdentifierLength:  DefaultMaxIdentifierLength,
		MaxStringValueLength: DefaultMaxStringValueLength,
		MaxNestingDepth:      DefaultMaxNestingDepth,
		MinLocalNumber:       DefaultMinLocalNumber,
		MaxLocalNumber:       DefaultMaxLocalNumber,
		MinWage:              DefaultMinWage,
		MaxWage:              DefaultMaxWage,
		Classifications:      AllClassifications(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxEmailLength == 0 {
		c.MaxEmailLength = d.MaxEmailLength
	}
	if c.PasswordMinLength == 0 {
		c.PasswordMinLength = d.PasswordMinLength
	}
	if c.PasswordMaxLength == 0 {
		c.PasswordMaxLength = d.PasswordMaxLength
	}
	if c.PasswordSpecialChars == "" {
		c.PasswordSpecialChars = d.PasswordSpecialChars
	}
	if c.MaxIdentifierLength == 0 {
		c.MaxIdentifierLength = d.MaxIdentifierLength
	}
	if c.MaxStringValueLength == 0 {
		c.MaxStringValueLength = d.MaxStringValueLength
	}
	if c.MaxNestingDepth == 0 {
		c.MaxNestingDepth = d.MaxNestingDepth
	}
	if c.MinLocalNumber == 0 {
		c.MinLocalNumber = d.MinLocalNumber
	}
	if c.MaxLocalNumber == 0 {
		c.MaxLocalNumber = d.MaxLocalNumber
	}
	if c.MinWage == 0 {
		c.MinWage = d.MinWage
	}
	if c.MaxWage == 0 {
		c.MaxWage = d.MaxWage
	}
	if len(c.Classifications) == 0 {
		c.Classifications = d.Classifications
	}
}

// Validate checks that the configured bounds are consistent
func (c Config) Validate() error {
	if c.MaxEmailLength < 3 {
		return fmt.Errorf("max email length must be at least 3, got %d", c.MaxEmailLength)
	}
	if c.PasswordMinLength < 4 {
		return fmt.Errorf("password min length must be at least 4, got %d", c.PasswordMinLength)
	}
	if c.PasswordMaxLength < c.PasswordMinLength {
		return fmt.Errorf("password max length (%d) must not be below min length (%d)",
			c.PasswordMaxLength, c.PasswordMinLength)
	}
	if c.MaxIdentifierLength < 1 {
		return fmt.Errorf("max identifier length must be positive, got %d", c.MaxIdentifierLength)
	}
	if c.MaxStringValueLength < 1 {
		return fmt.Errorf("max string value length must be positive, got %d", c.MaxStringValueLength)
	}
	if c.MaxNestingDepth < 1 {
		return fmt.Errorf("max nesting depth must be positive, got %d", c.MaxNestingDepth)
	}
	if c.MinLocalNumber < 0 || c.MaxLocalNumber < c.MinLocalNumber {
		return fmt.Errorf("invalid local number range [%d, %d]", c.MinLocalNumber, c.MaxLocalNumber)
	}
	if math.IsNaN(c.MinWage) || math.IsNaN(c.MaxWage) || c.MinWage < 0 || c.MaxWage < c.MinWage {
		return fmt.Errorf("invalid wage range [%.2f, %.2f]", c.MinWage, c.MaxWage)
	}
	for _, cl := range c.Classifications {
		if !cl.valid() {
			return fmt.Errorf("unknown classification %d", int(cl))
		}
	}
	return nil
}

// Validator validates input against a fixed set of bounds. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	cfg             Config
	classifications map[Classification]bool
}

// New creates a Validator. Zero-valued Config fields take their defaults.
func New(cfg Config) (*Validator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validation config: %w", err)
	}

	allowed := make(map[Classification]bool, len(cfg.Classifications))
	for _, cl := range cfg.Classifications {
		allowed[cl] = true
	}
	cfg.Classifications = append([]Classification(nil), cfg.Classifications...)

	return &Validator{cfg: cfg, classifications: allowed}, nil
}

// Config returns a copy of the validator's effective configuration
func (v *Validator) Config() Config {
	cfg := v.cfg
	cfg.Classifications = append([]Classification(nil), v.cfg.Classifications...)
	return cfg
}

var defaultValidator = mustNew(DefaultConfig())

func mustNew(cfg Config) *Validator {
	v, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// Default returns the validator built from DefaultConfig
func Default() *Validator {
	return defaultValidator
}
