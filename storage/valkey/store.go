package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys
	DefaultKeyPrefix = "hardening:"

	// DefaultMaxDocumentSize is the default limit on a serialized document (1 MiB)
	DefaultMaxDocumentSize = 1 << 20

	// storageType labels this backend in metrics and spans
	storageType = "valkey"

	// idLogLength is the number of characters to include when logging document ids
	idLogLength = 8

	// scanBatchSize is the number of index entries fetched per round trip
	scanBatchSize = 100

	// maxCASRetries bounds optimistic retries of merge and update writes
	maxCASRetries = 8

	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second
)

var (
	errInputTooLarge = fmt.Errorf("%w: document exceeds maximum allowed size", storage.ErrInvalidDocument)
	errWriteConflict = errors.New("concurrent modification")
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g., "localhost:6379"
	Address string

	// Password is the optional password for Valkey authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is the prefix for all keys (default "hardening:")
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// MaxDocumentSize limits the serialized size of one document in bytes
	// (default 1 MiB)
	MaxDocumentSize int

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of storage.DocumentStore.
//
// Each document is a JSON string key; each collection has a sorted set of its
// document ids (all with score 0) so that listings come back in id order.
type Store struct {
	client          valkeygo.Client
	prefix          string
	maxDocumentSize int
	logger          *slog.Logger

	mu              sync.RWMutex
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
}

var _ storage.DocumentStore = (*Store)(nil)

// New creates a new Valkey-backed storage instance.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	s := NewWithClient(client, cfg)
	s.logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", s.prefix)
	return s, nil
}

// NewWithClient wraps an existing client. Address, Password, DB and TLS in cfg
// are ignored.
func NewWithClient(client valkeygo.Client, cfg Config) *Store {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := cfg.MaxDocumentSize
	if maxSize <= 0 {
		maxSize = DefaultMaxDocumentSize
	}
	return &Store{
		client:          client,
		prefix:          prefix,
		maxDocumentSize: maxSize,
		logger:          logger,
	}
}

// Close closes the Valkey client connection.
func (s *Store) Close() {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// SetInstrumentation enables spans and operation metrics for this store.
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	} else {
		s.tracer = nil
	}
}

// ============================================================
// Key Helpers
// ============================================================

// docKey returns the key of a document: {prefix}doc:{collection}/{id}
func (s *Store) docKey(collection, id string) string {
	return fmt.Sprintf("%sdoc:%s/%s", s.prefix, collection, id)
}

// indexKey returns the id index of a collection: {prefix}idx:{collection}
func (s *Store) indexKey(collection string) string {
	return fmt.Sprintf("%sidx:%s", s.prefix, collection)
}

// ============================================================
// Lua Scripts for Atomic Operations
// ============================================================
//
// A document key and its index entry must change together, otherwise
// listings return ids whose documents are gone or miss stored documents.

// luaSetDocument writes a document and adds its id to the collection index.
//
// KEYS[1] = document key
// KEYS[2] = index key
// ARGV[1] = document JSON
// ARGV[2] = document id
const luaSetDocument = `
redis.call('SET', KEYS[1], ARGV[1])
redis.call('ZADD', KEYS[2], 0, ARGV[2])
return 'OK'
`

// luaCompareAndSetDocument writes a document only if its current value is
// still the one the caller read. An empty expected value means the document
// must not exist.
//
// KEYS[1] = document key
// KEYS[2] = index key
// ARGV[1] = expected current JSON, or ""
// ARGV[2] = new document JSON
// ARGV[3] = document id
//
// Returns "OK" or "CONFLICT".
const luaCompareAndSetDocument = `
local current = redis.call('GET', KEYS[1])
if ARGV[1] == '' then
    if current then
        return 'CONFLICT'
    end
elseif current ~= ARGV[1] then
    return 'CONFLICT'
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('ZADD', KEYS[2], 0, ARGV[3])
return 'OK'
`

// luaDeleteDocument removes a document and its index entry.
//
// KEYS[1] = document key
// KEYS[2] = index key
// ARGV[1] = document id
const luaDeleteDocument = `
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return 'OK'
`

// ============================================================
// Helper methods
// ============================================================

// encode serializes a document payload, enforcing the size limit
func (s *Store) encode(data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	if len(raw) > s.maxDocumentSize {
		return "", errInputTooLarge
	}
	return string(raw), nil
}

func decode(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return data, nil
}

// getRaw returns the stored JSON of a document, or "" when it does not exist
func (s *Store) getRaw(ctx context.Context, collection, id string) (string, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(s.docKey(collection, id)).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get document: %w", err)
	}
	return raw, nil
}

// compareAndSet runs luaCompareAndSetDocument and maps a conflict to errWriteConflict
func (s *Store) compareAndSet(ctx context.Context, collection, id, expected, next string) error {
	result, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaCompareAndSetDocument).
			Numkeys(2).
			Key(s.docKey(collection, id), s.indexKey(collection)).
			Arg(expected, next, id).
			Build(),
	).ToString()
	if err != nil {
		return fmt.Errorf("failed to execute atomic document write: %w", err)
	}
	if result == "CONFLICT" {
		return errWriteConflict
	}
	return nil
}

// isNilError reports whether err is the Valkey nil reply
func isNilError(err error) bool {
	return valkeygo.IsValkeyNil(err)
}

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	s.mu.RLock()
	tracer := s.tracer
	s.mu.RUnlock()

	if tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}

	ctx, span := tracer.Start(ctx, fmt.Sprintf("storage.%s", operation))
	instrumentation.AddStorageAttributes(span, operation, storageType)
	return ctx, span
}

// recordStorageOperation records span status and operation metrics
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	s.mu.RLock()
	inst := s.instrumentation
	s.mu.RUnlock()

	if inst == nil {
		return
	}

	if err != nil {
		instrumentation.RecordError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	durationMs := float64(time.Since(startTime).Microseconds()) / 1000
	inst.Metrics().RecordStorageOperation(ctx, storageType, operation, instrumentation.ResultOf(err), durationMs)
}
