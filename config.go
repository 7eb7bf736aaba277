package hardening

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/security"
	"github.com/journeyman-jobs/hardening/validation"
)

// DefaultMaxQueryLimit is the default upper bound on documents returned by one query
const DefaultMaxQueryLimit = 100

// TokenCacheCollection is the collection holding cached identity-provider tokens
const TokenCacheCollection = "token_cache"

// Config holds the hardening layer configuration.
// Structured using composition for better organization and maintainability.
type Config struct {
	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Validation bounds (zero values take the validation package defaults)
	Validation validation.Config

	// Query result bounds
	Query QueryConfig

	// Encryption settings
	Encryption EncryptionConfig

	// EnableAuditLogging enables security audit logging.
	// Logs validation failures, rate-limit violations and writes (identities hashed).
	EnableAuditLogging bool

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation for metrics and traces (optional, noop if not provided)
	Instrumentation *instrumentation.Instrumentation
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Policies apply to authenticated identities, keyed by operation class.
	// Default: security.DefaultUserPolicies()
	Policies security.Policies

	// AnonymousPolicies apply to unauthenticated callers keyed by IP address.
	// Default: security.DefaultAnonymousPolicies()
	AnonymousPolicies security.Policies

	// MaxEntries bounds tracked buckets per limiter (0 = 10000, negative = unlimited)
	MaxEntries int

	// CleanupInterval is how often idle buckets are swept.
	// Default: 5 minutes
	CleanupInterval time.Duration

	// IdleTimeout is how long a bucket may go unused before the sweep removes it.
	// Default: 10 minutes
	IdleTimeout time.Duration

	// LimitReads also charges reads against the read policy.
	// Default: false (only writes are limited)
	LimitReads bool
}

// QueryConfig holds query bounds
type QueryConfig struct {
	// MaxLimit caps the number of documents one query or page returns.
	// Default: 100
	MaxLimit int
}

// EncryptionConfig holds encryption settings
type EncryptionConfig struct {
	// PBKDF2Iterations for password-derived keys.
	// Default: 100000
	PBKDF2Iterations int

	// TokenCacheKey is the AES-256 key (32 bytes) protecting cached tokens.
	// Nil stores cached tokens unencrypted.
	TokenCacheKey []byte
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{
			Policies:          security.DefaultUserPolicies(),
			AnonymousPolicies: security.DefaultAnonymousPolicies(),
			CleanupInterval:   security.DefaultCleanupInterval,
			IdleTimeout:       security.DefaultIdleTimeout,
		},
		Validation:         validation.DefaultConfig(),
		Query:              QueryConfig{MaxLimit: DefaultMaxQueryLimit},
		Encryption:         EncryptionConfig{PBKDF2Iterations: security.DefaultPBKDF2Iterations},
		EnableAuditLogging: true,
	}
}

// applyDefaults fills zero values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.RateLimit.Policies == nil {
		c.RateLimit.Policies = d.RateLimit.Policies
	}
	if c.RateLimit.AnonymousPolicies == nil {
		c.RateLimit.AnonymousPolicies = d.RateLimit.AnonymousPolicies
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = d.RateLimit.CleanupInterval
	}
	if c.RateLimit.IdleTimeout == 0 {
		c.RateLimit.IdleTimeout = d.RateLimit.IdleTimeout
	}
	if c.Query.MaxLimit == 0 {
		c.Query.MaxLimit = d.Query.MaxLimit
	}
	if c.Encryption.PBKDF2Iterations == 0 {
		c.Encryption.PBKDF2Iterations = d.Encryption.PBKDF2Iterations
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.RateLimit.Policies.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit policies: %w", err)
	}
	if err := c.RateLimit.AnonymousPolicies.Validate(); err != nil {
		return fmt.Errorf("invalid anonymous rate limit policies: %w", err)
	}
	if c.RateLimit.CleanupInterval < 0 {
		return fmt.Errorf("cleanup interval must not be negative, got %s", c.RateLimit.CleanupInterval)
	}
	if c.RateLimit.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", c.RateLimit.IdleTimeout)
	}
	if c.Query.MaxLimit < 1 {
		return fmt.Errorf("query max limit must be positive, got %d", c.Query.MaxLimit)
	}
	if c.Encryption.PBKDF2Iterations < 1 {
		return fmt.Errorf("PBKDF2 iterations must be positive, got %d", c.Encryption.PBKDF2Iterations)
	}
	if n := len(c.Encryption.TokenCacheKey); n != 0 && n != security.KeySize {
		return fmt.Errorf("token cache key must be %d bytes, got %d", security.KeySize, n)
	}
	return nil
}

// fileConfig is the TOML representation of Config
type fileConfig struct {
	AuditLogging *bool `toml:"audit_logging"`

	RateLimit struct {
		MaxEntries      int                   `toml:"max_entries"`
		CleanupInterval string                `toml:"cleanup_interval"`
		IdleTimeout     string                `toml:"idle_timeout"`
		LimitReads      bool                  `toml:"limit_reads"`
		Policies        map[string]filePolicy `toml:"policies"`
		Anonymous       map[string]filePolicy `toml:"anonymous"`
	} `toml:"rate_limit"`

	Validation struct {
		MaxEmailLength       int      `toml:"max_email_length"`
		PasswordMinLength    int      `toml:"password_min_length"`
		PasswordMaxLength    int      `toml:"password_max_length"`
		MaxIdentifierLength  int      `toml:"max_identifier_length"`
		MaxStringValueLength int      `toml:"max_string_value_length"`
		MaxNestingDepth      int      `toml:"max_nesting_depth"`
		MinLocalNumber       int      `toml:"min_local_number"`
		MaxLocalNumber       int      `toml:"max_local_number"`
		MinWage              float64  `toml:"min_wage"`
		MaxWage              float64  `toml:"max_wage"`
		Classifications      []string `toml:"classifications"`
	} `toml:"validation"`

	Query struct {
		MaxLimit int `toml:"max_limit"`
	} `toml:"query"`

	Encryption struct {
		PBKDF2Iterations int    `toml:"pbkdf2_iterations"`
		TokenCacheKey    string `toml:"token_cache_key"`
	} `toml:"encryption"`
}

type filePolicy struct {
	MaxRequests    int `toml:"max_requests"`
	WindowSeconds  int `toml:"window_seconds"`
	CostPerRequest int `toml:"cost"`
}

// LoadConfigFile reads a TOML configuration file. Settings absent from the
// file keep their defaults; a policy table replaces the default policy of
// that class only. Unknown keys are rejected.
func LoadConfigFile(path string) (Config, error) {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return fc.toConfig()
}

func (fc *fileConfig) toConfig() (Config, error) {
	cfg := DefaultConfig()

	if fc.AuditLogging != nil {
		cfg.EnableAuditLogging = *fc.AuditLogging
	}

	rl := &cfg.RateLimit
	rl.MaxEntries = fc.RateLimit.MaxEntries
	rl.LimitReads = fc.RateLimit.LimitReads
	if err := parseDuration(fc.RateLimit.CleanupInterval, &rl.CleanupInterval); err != nil {
		return Config{}, fmt.Errorf("invalid cleanup_interval: %w", err)
	}
	if err := parseDuration(fc.RateLimit.IdleTimeout, &rl.IdleTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid idle_timeout: %w", err)
	}
	if err := overlayPolicies(rl.Policies, fc.RateLimit.Policies); err != nil {
		return Config{}, fmt.Errorf("invalid rate_limit.policies: %w", err)
	}
	if err := overlayPolicies(rl.AnonymousPolicies, fc.RateLimit.Anonymous); err != nil {
		return Config{}, fmt.Errorf("invalid rate_limit.anonymous: %w", err)
	}

	v := fc.Validation
	vc := validation.Config{
		MaxEmailLength:       v.MaxEmailLength,
		PasswordMinLength:    v.PasswordMinLength,
		PasswordMaxLength:    v.PasswordMaxLength,
		MaxIdentifierLength:  v.MaxIdentifierLength,
		MaxStringValueLength: v.MaxStringValueLength,
		MaxNestingDepth:      v.MaxNestingDepth,
		MinLocalNumber:       v.MinLocalNumber,
		MaxLocalNumber:       v.MaxLocalNumber,
		MinWage:              v.MinWage,
		MaxWage:              v.MaxWage,
	}
	for _, name := range v.Classifications {
		cl, err := validation.ParseClassification(name)
		if err != nil {
			return Config{}, fmt.Errorf("invalid validation.classifications: %w", err)
		}
		vc.Classifications = append(vc.Classifications, cl)
	}
	cfg.Validation = vc

	if fc.Query.MaxLimit != 0 {
		cfg.Query.MaxLimit = fc.Query.MaxLimit
	}
	if fc.Encryption.PBKDF2Iterations != 0 {
		cfg.Encryption.PBKDF2Iterations = fc.Encryption.PBKDF2Iterations
	}
	if fc.Encryption.TokenCacheKey != "" {
		key, err := base64.StdEncoding.DecodeString(fc.Encryption.TokenCacheKey)
		if err != nil {
			return Config{}, fmt.Errorf("invalid encryption.token_cache_key: %w", err)
		}
		cfg.Encryption.TokenCacheKey = key
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayPolicies(dst security.Policies, src map[string]filePolicy) error {
	for name, fp := range src {
		class, err := security.ParseOperationClass(name)
		if err != nil {
			return err
		}
		cost := fp.CostPerRequest
		if cost == 0 {
			cost = 1
		}
		p := security.Policy{
			MaxRequests:    fp.MaxRequests,
			Window:         time.Duration(fp.WindowSeconds) * time.Second,
			CostPerRequest: cost,
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", class, err)
		}
		dst[class] = p
	}
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
