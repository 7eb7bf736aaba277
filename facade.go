package hardening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/internal/util"
	"github.com/journeyman-jobs/hardening/security"
	"github.com/journeyman-jobs/hardening/storage"
	"github.com/journeyman-jobs/hardening/validation"
)

// Facade operation names used in logs, spans and metrics
const (
	OpGet              = "get"
	OpSet              = "set"
	OpMerge            = "merge"
	OpUpdate           = "update"
	OpDelete           = "delete"
	OpQueryEquals      = "query_equals"
	OpQueryMultiEquals = "query_multi_equals"
	OpList             = "list"
	OpCreateJobPosting = "create_job_posting"
	OpGuardAnonymous   = "guard_anonymous"
)

// SecureStore is a validated, rate-limited view of a storage.DocumentStore.
// Every operation checks its inputs and, for writes, the caller's write budget
// before the store is touched. Store errors are returned unmodified.
type SecureStore struct {
	store       storage.DocumentStore
	validator   *validation.Validator
	userLimiter *security.RateLimiter
	anonLimiter *security.RateLimiter
	auditor     *security.Auditor
	logger      *slog.Logger
	config      Config

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	closed atomic.Bool
}

// instrumentable is implemented by store adapters that emit metrics and spans
type instrumentable interface {
	SetInstrumentation(inst *instrumentation.Instrumentation)
}

// loggable is implemented by store adapters that accept a logger
type loggable interface {
	SetLogger(logger *slog.Logger)
}

// New creates a SecureStore in front of store
func New(store storage.DocumentStore, cfg Config) (*SecureStore, error) {
	if store == nil {
		return nil, fmt.Errorf("document store is required")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	validator, err := validation.New(cfg.Validation)
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	userLimiter, err := security.NewRateLimiter(security.RateLimiterConfig{
		Name:            "user",
		Policies:        cfg.RateLimit.Policies,
		MaxEntries:      cfg.RateLimit.MaxEntries,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		IdleTimeout:     cfg.RateLimit.IdleTimeout,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user rate limiter: %w", err)
	}

	anonLimiter, err := security.NewRateLimiter(security.RateLimiterConfig{
		Name:            "anonymous",
		Policies:        cfg.RateLimit.AnonymousPolicies,
		MaxEntries:      cfg.RateLimit.MaxEntries,
		CleanupInterval: cfg.RateLimit.CleanupInterval,
		IdleTimeout:     cfg.RateLimit.IdleTimeout,
		Logger:          cfg.Logger,
	})
	if err != nil {
		userLimiter.Stop()
		return nil, fmt.Errorf("failed to create anonymous rate limiter: %w", err)
	}

	inst := cfg.Instrumentation
	if inst == nil {
		inst = instrumentation.NewNoop()
	}

	auditor := security.NewAuditor(cfg.Logger, cfg.EnableAuditLogging)
	auditor.SetInstrumentation(inst)
	userLimiter.SetInstrumentation(inst)
	anonLimiter.SetInstrumentation(inst)

	// Adapters pick up the facade's logger and telemetry when they support it.
	if l, ok := store.(loggable); ok {
		l.SetLogger(cfg.Logger)
	}
	if i, ok := store.(instrumentable); ok && cfg.Instrumentation != nil {
		i.SetInstrumentation(cfg.Instrumentation)
	}

	s := &SecureStore{
		store:           store,
		validator:       validator,
		userLimiter:     userLimiter,
		anonLimiter:     anonLimiter,
		auditor:         auditor,
		logger:          cfg.Logger,
		config:          cfg,
		instrumentation: inst,
		tracer:          inst.Tracer("facade"),
	}

	cfg.Logger.Info("Secure store initialized",
		"max_query_limit", cfg.Query.MaxLimit,
		"limit_reads", cfg.RateLimit.LimitReads,
		"audit_logging", cfg.EnableAuditLogging)

	return s, nil
}

// Close stops the rate limiters' background sweeps. The underlying store is
// not closed. Close is idempotent.
func (s *SecureStore) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.userLimiter.Stop()
	s.anonLimiter.Stop()
}

// Validator returns the validator used by the store
func (s *SecureStore) Validator() *validation.Validator {
	return s.validator
}

// RateLimiter returns the limiter applied to authenticated identities
func (s *SecureStore) RateLimiter() *security.RateLimiter {
	return s.userLimiter
}

// AnonymousRateLimiter returns the limiter applied to unauthenticated callers
func (s *SecureStore) AnonymousRateLimiter() *security.RateLimiter {
	return s.anonLimiter
}

// Auditor returns the security auditor
func (s *SecureStore) Auditor() *security.Auditor {
	return s.auditor
}

// Get reads one document
func (s *SecureStore) Get(ctx context.Context, identity, collection, id string) (doc *storage.Document, err error) {
	ctx, span, start := s.begin(ctx, OpGet, collection, identity)
	defer func() { s.finish(ctx, span, OpGet, identity, start, err) }()

	if err = s.checkTarget(identity, collection, &id); err != nil {
		return nil, err
	}
	if err = s.limitRead(ctx, identity); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, collection, id)
}

// Set writes a document. With merge the data is deep-merged into an existing
// document, otherwise the document is replaced.
func (s *SecureStore) Set(ctx context.Context, identity, collection, id string, data map[string]any, merge bool) (err error) {
	op := OpSet
	if merge {
		op = OpMerge
	}
	ctx, span, start := s.begin(ctx, op, collection, identity)
	defer func() { s.finish(ctx, span, op, identity, start, err) }()

	if err = s.checkTarget(identity, collection, &id); err != nil {
		return err
	}
	if err = s.validator.ValidateData(data); err != nil {
		return err
	}
	return s.write(ctx, op, identity, collection, id, func() error {
		return s.store.Set(ctx, collection, id, data, merge)
	})
}

// Update replaces the given top-level fields of an existing document. The
// store reports storage.ErrNotFound when the document does not exist.
func (s *SecureStore) Update(ctx context.Context, identity, collection, id string, data map[string]any) (err error) {
	ctx, span, start := s.begin(ctx, OpUpdate, collection, identity)
	defer func() { s.finish(ctx, span, OpUpdate, identity, start, err) }()

	if err = s.checkTarget(identity, collection, &id); err != nil {
		return err
	}
	if len(data) == 0 {
		return validation.NewError("data", "must contain at least one field")
	}
	if err = s.validator.ValidateData(data); err != nil {
		return err
	}
	return s.write(ctx, OpUpdate, identity, collection, id, func() error {
		return s.store.Update(ctx, collection, id, data)
	})
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *SecureStore) Delete(ctx context.Context, identity, collection, id string) (err error) {
	ctx, span, start := s.begin(ctx, OpDelete, collection, identity)
	defer func() { s.finish(ctx, span, OpDelete, identity, start, err) }()

	if err = s.checkTarget(identity, collection, &id); err != nil {
		return err
	}
	if err = s.limitWrite(ctx, identity); err != nil {
		return err
	}
	if err = s.store.Delete(ctx, collection, id); err != nil {
		return err
	}
	s.auditor.LogDocumentDeleted(ctx, identity, collection, id)
	return nil
}

// QueryEquals returns documents whose field equals value, in id order.
// limit is clamped to the configured maximum; non-positive means the maximum.
func (s *SecureStore) QueryEquals(ctx context.Context, identity, collection, field string, value any, limit int) (docs []*storage.Document, err error) {
	ctx, span, start := s.begin(ctx, OpQueryEquals, collection, identity)
	defer func() {
		instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrResultCount, len(docs)))
		s.finish(ctx, span, OpQueryEquals, identity, start, err)
	}()

	return s.query(ctx, span, identity, collection, map[string]any{field: value}, limit)
}

// QueryMultiEquals returns documents matching every field/value pair, in id
// order. At least one condition is required.
func (s *SecureStore) QueryMultiEquals(ctx context.Context, identity, collection string, conditions map[string]any, limit int) (docs []*storage.Document, err error) {
	ctx, span, start := s.begin(ctx, OpQueryMultiEquals, collection, identity)
	defer func() {
		instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrResultCount, len(docs)))
		s.finish(ctx, span, OpQueryMultiEquals, identity, start, err)
	}()

	return s.query(ctx, span, identity, collection, conditions, limit)
}

// ListPaginated returns one page of a collection in id order. An empty cursor
// starts at the beginning; the returned NextCursor is empty on the last page.
func (s *SecureStore) ListPaginated(ctx context.Context, identity, collection string, limit int, cursor string) (page *storage.Page, err error) {
	ctx, span, start := s.begin(ctx, OpList, collection, identity)
	defer func() {
		if page != nil {
			instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrResultCount, len(page.Documents)))
		}
		s.finish(ctx, span, OpList, identity, start, err)
	}()

	if err = s.checkCollection(identity, collection); err != nil {
		return nil, err
	}
	if len(cursor) > s.validator.Config().MaxIdentifierLength*2 {
		return nil, validation.NewError("cursor", "is too long")
	}
	limit = util.ClampLimit(limit, s.config.Query.MaxLimit)
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrQueryLimit, limit))

	if err = s.limitRead(ctx, identity); err != nil {
		return nil, err
	}
	return s.store.List(ctx, collection, limit, cursor)
}

// GuardAnonymous charges an unauthenticated caller, keyed by IP address,
// against the anonymous policy for class. It returns a *security.RateLimitError
// when the caller must back off.
func (s *SecureStore) GuardAnonymous(ctx context.Context, ip string, class security.OperationClass) (err error) {
	ctx, span, start := s.begin(ctx, OpGuardAnonymous, "", ip)
	defer func() { s.finish(ctx, span, OpGuardAnonymous, ip, start, err) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if _, err = s.validator.SanitizeString("ip", ip, validation.StringRule{Min: 1, Max: maxIPLength}); err != nil {
		return err
	}
	return s.enforce(ctx, s.anonLimiter, ip, class)
}

// maxIPLength fits an IPv6 address with a zone
const maxIPLength = 64

func (s *SecureStore) query(ctx context.Context, span trace.Span, identity, collection string, conditions map[string]any, limit int) ([]*storage.Document, error) {
	if err := s.checkCollection(identity, collection); err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, validation.NewError("filters", "at least one condition is required")
	}

	fields := make([]string, 0, len(conditions))
	for field := range conditions {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	filters := make([]storage.Filter, 0, len(fields))
	for _, field := range fields {
		name, err := s.validator.SanitizeFieldName(field)
		if err != nil {
			return nil, err
		}
		if err := s.validator.ValidateQueryValue(name, conditions[field]); err != nil {
			return nil, err
		}
		filters = append(filters, storage.Filter{Field: name, Value: conditions[field]})
	}

	limit = util.ClampLimit(limit, s.config.Query.MaxLimit)
	instrumentation.SetSpanAttributes(span, attribute.Int(instrumentation.AttrQueryLimit, limit))

	if err := s.limitRead(ctx, identity); err != nil {
		return nil, err
	}
	return s.store.Query(ctx, collection, filters, limit)
}

// write charges the write budget, runs fn and audits a successful write
func (s *SecureStore) write(ctx context.Context, op, identity, collection, id string, fn func() error) error {
	if err := s.limitWrite(ctx, identity); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	s.auditor.LogDocumentWritten(ctx, identity, op, collection, id)
	return nil
}

// checkCollection validates the identity and collection path
func (s *SecureStore) checkCollection(identity, collection string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.validator.SanitizeString("identity", identity, validation.StringRule{
		Min: 1,
		Max: s.validator.Config().MaxIdentifierLength,
	}); err != nil {
		return err
	}
	_, err := s.validator.ValidateCollectionPath(collection)
	return err
}

// checkTarget validates identity, collection and document id. The id is
// replaced by its sanitized form.
func (s *SecureStore) checkTarget(identity, collection string, id *string) error {
	if err := s.checkCollection(identity, collection); err != nil {
		return err
	}
	sanitized, err := s.validator.SanitizeDocumentID(*id)
	if err != nil {
		return err
	}
	*id = sanitized
	return nil
}

func (s *SecureStore) limitWrite(ctx context.Context, identity string) error {
	return s.enforce(ctx, s.userLimiter, identity, security.ClassWrite)
}

func (s *SecureStore) limitRead(ctx context.Context, identity string) error {
	if !s.config.RateLimit.LimitReads {
		return nil
	}
	return s.enforce(ctx, s.userLimiter, identity, security.ClassRead)
}

func (s *SecureStore) enforce(ctx context.Context, limiter *security.RateLimiter, identifier string, class security.OperationClass) error {
	err := limiter.Enforce(ctx, identifier, class)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		instrumentation.AddRateLimitAttributes(span, limiter.Name(), string(class), RetryAfter(err).Milliseconds())
	}
	return err
}

// begin starts the span for a facade operation
func (s *SecureStore) begin(ctx context.Context, op, collection, identity string) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "hardening."+op)
	hash := ""
	if identity != "" {
		hash = security.HashIdentifier(identity)
	}
	instrumentation.AddOperationAttributes(span, op, validation.SanitizeForDisplay(collection), hash)
	return ctx, span, time.Now()
}

// finish records the outcome of a facade operation and ends its span
func (s *SecureStore) finish(ctx context.Context, span trace.Span, op, identity string, start time.Time, err error) {
	defer span.End()

	metrics := s.instrumentation.Metrics()
	metrics.RecordOperation(ctx, op, instrumentation.ResultOf(err), float64(time.Since(start).Milliseconds()))

	if err == nil {
		instrumentation.SetSpanSuccess(span)
		return
	}

	code := ErrorCode(err)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrErrorCode, code))
	instrumentation.RecordError(span, err)

	var rle *security.RateLimitError
	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		metrics.RecordValidationFailure(ctx, op)
		s.auditor.LogValidationFailed(ctx, identity, op, validation.FieldOf(err))
	case errors.As(err, &rle):
		s.auditor.LogRateLimitExceeded(ctx, identity, rle.Operation, rle.RetryAfter)
	default:
		s.logger.DebugContext(ctx, "Secure store operation failed",
			"operation", op,
			"error_code", code,
			"error", err)
	}
}
