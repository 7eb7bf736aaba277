package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/internal/util"
	"github.com/journeyman-jobs/hardening/storage"
)

// storageType labels this backend in metrics and spans
const storageType = "memory"

// idLogLength is the number of id characters included in debug logs
const idLogLength = 8

// Store is an in-memory implementation of storage.DocumentStore.
// Documents are deep-copied on the way in and on the way out, so callers never
// share maps with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any // collection -> id -> data
	logger      *slog.Logger

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
	registration    metric.Registration

	// documentCount mirrors the number of stored documents for the size gauge
	documentCount atomic.Int64
}

var _ storage.DocumentStore = (*Store)(nil)

// New creates a new empty in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		logger:      slog.Default(),
	}
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// SetInstrumentation enables spans, operation metrics and the document count
// gauge for this store.
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	old := s.registration
	s.instrumentation = inst
	s.registration = nil
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	} else {
		s.tracer = nil
	}
	s.mu.Unlock()

	if old != nil {
		_ = old.Unregister()
	}
	if inst == nil {
		return
	}

	reg, err := inst.RegisterStorageSizeCallback(storageType, s.documentCount.Load)
	if err != nil {
		s.logger.Warn("Failed to register storage size callback", "error", err)
		return
	}
	s.mu.Lock()
	s.registration = reg
	s.mu.Unlock()
}

// Stop releases the metric registration. The store remains usable.
func (s *Store) Stop() {
	s.mu.Lock()
	reg := s.registration
	s.registration = nil
	s.mu.Unlock()

	if reg != nil {
		_ = reg.Unregister()
	}
}

// Count returns the number of stored documents across all collections.
func (s *Store) Count() int {
	return int(s.documentCount.Load())
}

// Get returns a copy of the document, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (doc *storage.Document, err error) {
	ctx, span := s.startStorageSpan(ctx, "get")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "get", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &storage.Document{
		ID:         id,
		Collection: collection,
		Data:       storage.CloneData(data),
	}, nil
}

// Set writes a document, deep-merging into an existing one when merge is true.
func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) (err error) {
	ctx, span := s.startStorageSpan(ctx, "set")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "set", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: data is required", storage.ErrInvalidDocument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}

	existing, exists := docs[id]
	if merge && exists {
		docs[id] = storage.MergeData(existing, data)
	} else {
		docs[id] = storage.CloneData(data)
	}
	if !exists {
		s.documentCount.Add(1)
	}

	s.logger.Debug("Stored document",
		"collection", collection,
		"id_prefix", util.SafeTruncate(id, idLogLength),
		"merge", merge)
	return nil
}

// Update replaces the given top-level fields of an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]any) (err error) {
	ctx, span := s.startStorageSpan(ctx, "update")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "update", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return storage.ErrNotFound
	}
	s.collections[collection][id] = storage.ApplyUpdate(existing, data)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) (err error) {
	ctx, span := s.startStorageSpan(ctx, "delete")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "delete", err, startTime)
	}()

	if err := storage.CheckKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, exists := docs[id]; !exists {
		return nil
	}
	delete(docs, id)
	s.documentCount.Add(-1)
	if len(docs) == 0 {
		delete(s.collections, collection)
	}
	return nil
}

// Query returns up to limit documents matching every filter, in id order.
// A non-positive limit returns all matches.
func (s *Store) Query(ctx context.Context, collection string, filters []storage.Filter, limit int) (docs []*storage.Document, err error) {
	ctx, span := s.startStorageSpan(ctx, "query")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "query", err, startTime)
	}()

	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", storage.ErrInvalidDocument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	for _, id := range sortedIDs(coll) {
		if limit > 0 && len(docs) >= limit {
			break
		}
		data := coll[id]
		if !storage.Matches(data, filters) {
			continue
		}
		docs = append(docs, &storage.Document{
			ID:         id,
			Collection: collection,
			Data:       storage.CloneData(data),
		})
	}
	return docs, nil
}

// List returns one page of a collection in id order. The cursor is the
// NextCursor of the previous page.
func (s *Store) List(ctx context.Context, collection string, limit int, cursor string) (page *storage.Page, err error) {
	ctx, span := s.startStorageSpan(ctx, "list")
	defer span.End()
	startTime := time.Now()
	defer func() {
		s.recordStorageOperation(ctx, span, "list", err, startTime)
	}()

	if collection == "" {
		return nil, fmt.Errorf("%w: collection is required", storage.ErrInvalidDocument)
	}
	after, err := storage.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[collection]
	ids := sortedIDs(coll)
	start := sort.SearchStrings(ids, after)
	if after != "" && start < len(ids) && ids[start] == after {
		start++
	}

	page = &storage.Page{}
	for i := start; i < len(ids); i++ {
		if limit > 0 && len(page.Documents) >= limit {
			break
		}
		page.Documents = append(page.Documents, &storage.Document{
			ID:         ids[i],
			Collection: collection,
			Data:       storage.CloneData(coll[ids[i]]),
		})
	}

	if n := len(page.Documents); n > 0 && start+n < len(ids) {
		page.NextCursor = storage.EncodeCursor(page.Documents[n-1].ID)
	}
	return page, nil
}

func sortedIDs(docs map[string]map[string]any) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// startStorageSpan starts a new span for a storage operation
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	s.mu.RLock()
	tracer := s.tracer
	s.mu.RUnlock()

	if tracer == nil {
		// non-recording span; ending it leaves the caller's span open
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
