package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/journeyman-jobs/hardening/instrumentation"
)

// AES-256-GCM and PBKDF2 parameters
const (
	KeySize  = 32 // AES-256 key size in bytes
	IVSize   = 12 // GCM nonce size in bytes
	TagSize  = 16 // GCM authentication tag size in bytes
	SaltSize = 16 // PBKDF2 salt size in bytes

	// DefaultPBKDF2Iterations is the default PBKDF2-HMAC-SHA256 iteration count
	DefaultPBKDF2Iterations = 100000
)

// EncryptedPayload is the result of one AES-256-GCM encryption
type EncryptedPayload struct {
	Ciphertext []byte
	IV         [IVSize]byte
	AuthTag    [TagSize]byte
}

// Bytes serializes the payload as iv || authTag || ciphertext
func (p *EncryptedPayload) Bytes() []byte {
	out := make([]byte, 0, IVSize+TagSize+len(p.Ciphertext))
	out = append(out, p.IV[:]...)
	out = append(out, p.AuthTag[:]...)
	return append(out, p.Ciphertext...)
}

// ParseEncryptedPayload parses iv || authTag || ciphertext
func ParseEncryptedPayload(data []byte) (*EncryptedPayload, error) {
	if len(data) < IVSize+TagSize {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrMalformedPayload, IVSize+TagSize, len(data))
	}
	p := &EncryptedPayload{
		Ciphertext: append([]byte(nil), data[IVSize+TagSize:]...),
	}
	copy(p.IV[:], data[:IVSize])
	copy(p.AuthTag[:], data[IVSize:IVSize+TagSize])
	return p, nil
}

// DeriveKey derives a 32-byte key from password and salt with
// PBKDF2-HMAC-SHA256.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

// EncryptAESGCM encrypts plaintext under key with a fresh random IV
func EncryptAESGCM(plaintext, key []byte) (*EncryptedPayload, error) {
	return seal(rand.Reader, plaintext, key)
}

// DecryptAESGCM verifies and decrypts payload under key. It returns
// ErrAuthenticationFailed if the tag does not verify.
func DecryptAESGCM(payload *EncryptedPayload, key []byte) ([]byte, error) {
	return open(payload, key)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: must be exactly %d bytes for AES-256, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func seal(random io.Reader, plaintext, key []byte) (*EncryptedPayload, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	p := &EncryptedPayload{}
	if _, err := io.ReadFull(random, p.IV[:]); err != nil {
		return nil, fmt.Errorf("%w: failed to generate IV: %v", ErrRandomSource, err)
	}

	// GCM appends the tag to the ciphertext; split it off.
	sealed := gcm.Seal(nil, p.IV[:], plaintext, nil)
	n := len(sealed) - TagSize
	p.Ciphertext = sealed[:n:n]
	copy(p.AuthTag[:], sealed[n:])
	return p, nil
}

func open(p *EncryptedPayload, key []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrMalformedPayload)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(p.Ciphertext)+TagSize)
	sealed = append(sealed, p.Ciphertext...)
	sealed = append(sealed, p.AuthTag[:]...)

	plaintext, err := gcm.Open(nil, p.IV[:], sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// EncryptionConfig configures an EncryptionService
type EncryptionConfig struct {
	// PBKDF2Iterations is the iteration count for password-based keys.
	// Default: 100,000
	PBKDF2Iterations int

	// Random is the CSPRNG used for IVs and salts. Default: crypto/rand.Reader
	Random io.Reader

	// Logger receives failure logs. Default: slog.Default()
	Logger *slog.Logger
}

// EncryptionService provides AES-256-GCM encryption with raw keys and with
// PBKDF2-derived password keys. It is safe for concurrent use provided the
// configured random source is.
type EncryptionService struct {
	iterations int
	random     io.Reader
	logger     *slog.Logger

	mu              sync.RWMutex
	instrumentation *instrumentation.Instrumentation
}

// NewEncryptionService creates an encryption service
func NewEncryptionService(cfg EncryptionConfig) (*EncryptionService, error) {
	if cfg.PBKDF2Iterations == 0 {
		cfg.PBKDF2Iterations = DefaultPBKDF2Iterations
	}
	if cfg.PBKDF2Iterations < 1 {
		return nil, fmt.Errorf("PBKDF2 iterations must be positive, got %d", cfg.PBKDF2Iterations)
	}
	if cfg.Random == nil {
		cfg.Random = rand.Reader
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &EncryptionService{
		iterations: cfg.PBKDF2Iterations,
		random:     cfg.Random,
		logger:     cfg.Logger,
	}, nil
}

// SetInstrumentation enables encryption metrics
func (s *EncryptionService) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instrumentation = inst
}

// Iterations returns the configured PBKDF2 iteration count
func (s *EncryptionService) Iterations() int {
	return s.iterations
}

// DeriveKey derives a 32-byte key from password and salt
func (s *EncryptionService) DeriveKey(password string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt must not be empty")
	}
	return DeriveKey(password, salt, s.iterations), nil
}

// Seal encrypts plaintext under a 32-byte key with a fresh IV from the
// configured random source.
func (s *EncryptionService) Seal(plaintext, key []byte) (*EncryptedPayload, error) {
	start := time.Now()
	p, err := seal(s.random, plaintext, key)
	s.record("seal", err, start)
	return p, err
}

// Open verifies and decrypts payload under key
func (s *EncryptionService) Open(payload *EncryptedPayload, key []byte) ([]byte, error) {
	start := time.Now()
	plaintext, err := open(payload, key)
	s.record("open", err, start)
	if err != nil {
		s.logger.Warn("Decryption failed", "error", err)
	}
	return plaintext, err
}

// EncryptString encrypts plaintext with a key derived from password and a
// fresh random salt. The result is base64(salt || iv || authTag || ciphertext).
func (s *EncryptionService) EncryptString(plaintext, password string) (string, error) {
	start := time.Now()
	out, err := s.encryptString(plaintext, password)
	s.record("encrypt_string", err, start)
	return out, err
}

func (s *EncryptionService) encryptString(plaintext, password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(s.random, salt); err != nil {
		return "", fmt.Errorf("%w: failed to generate salt: %v", ErrRandomSource, err)
	}
	key, err := s.DeriveKey(password, salt)
	if err != nil {
		return "", err
	}
	p, err := seal(s.random, []byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(append(salt, p.Bytes()...)), nil
}

// DecryptString reverses EncryptString. A wrong password or any modification
// of the blob yields ErrAuthenticationFailed.
func (s *EncryptionService) DecryptString(encoded, password string) (string, error) {
	start := time.Now()
	out, err := s.decryptString(encoded, password)
	s.record("decrypt_string", err, start)
	if err != nil {
		s.logger.Warn("Decryption failed", "error", err)
	}
	return out, err
}

func (s *EncryptionService) decryptString(encoded, password string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrMalformedPayload, err)
	}
	if len(blob) < SaltSize+IVSize+TagSize {
		return "", fmt.Errorf("%w: need at least %d bytes, got %d",
			ErrMalformedPayload, SaltSize+IVSize+TagSize, len(blob))
	}
	key, err := s.DeriveKey(password, blob[:SaltSize])
	if err != nil {
		return "", err
	}
	p, err := ParseEncryptedPayload(blob[SaltSize:])
	if err != nil {
		return "", err
	}
	plaintext, err := open(p, key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *EncryptionService) record(operation string, err error, start time.Time) {
	s.mu.RLock()
	inst := s.instrumentation
	s.mu.RUnlock()

	if inst == nil {
		return
	}
	inst.Metrics().RecordEncryptionOperation(context.Background(), operation,
		instrumentation.ResultOf(err), float64(time.Since(start).Microseconds())/1000.0)
}
