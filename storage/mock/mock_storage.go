// Package mock provides a mock implementation of storage.DocumentStore for testing.
package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/journeyman-jobs/hardening/instrumentation"
	"github.com/journeyman-jobs/hardening/storage"
	"github.com/journeyman-jobs/hardening/storage/memory"
)

// MockDocumentStore is a mock implementation of storage.DocumentStore.
// Every method delegates to the matching Func field, which by default is
// backed by an in-memory store. Replace a Func to inject failures.
type MockDocumentStore struct {
	mu         sync.Mutex
	callCounts map[string]int

	GetFunc    func(ctx context.Context, collection, id string) (*storage.Document, error)
	SetFunc    func(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	UpdateFunc func(ctx context.Context, collection, id string, data map[string]any) error
	DeleteFunc func(ctx context.Context, collection, id string) error
	QueryFunc  func(ctx context.Context, collection string, filters []storage.Filter, limit int) ([]*storage.Document, error)
	ListFunc   func(ctx context.Context, collection string, limit int, cursor string) (*storage.Page, error)

	// Backing is the in-memory store used by the default Funcs
	Backing *memory.Store
}

var _ storage.DocumentStore = (*MockDocumentStore)(nil)

// NewMockDocumentStore creates a new mock backed by an in-memory store
func NewMockDocumentStore() *MockDocumentStore {
	backing := memory.New()
	return &MockDocumentStore{
		callCounts: make(map[string]int),
		GetFunc:    backing.Get,
		SetFunc:    backing.Set,
		UpdateFunc: backing.Update,
		DeleteFunc: backing.Delete,
		QueryFunc:  backing.Query,
		ListFunc:   backing.List,
		Backing:    backing,
	}
}

// SetLogger forwards the logger to the backing store
func (m *MockDocumentStore) SetLogger(logger *slog.Logger) {
	m.Backing.SetLogger(logger)
}

// SetInstrumentation forwards instrumentation to the backing store
func (m *MockDocumentStore) SetInstrumentation(inst *instrumentation.Instrumentation) {
	m.Backing.SetInstrumentation(inst)
}

// CallCount returns how many times the named method was called
func (m *MockDocumentStore) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCounts[method]
}

// TotalCalls returns the number of calls across all methods
func (m *MockDocumentStore) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.callCounts {
		total += n
	}
	return total
}

// ResetCalls clears the call counters
func (m *MockDocumentStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCounts = make(map[string]int)
}

func (m *MockDocumentStore) count(method string) {
	m.mu.Lock()
	m.callCounts[method]++
	m.mu.Unlock()
}

// Get retrieves a document
func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (*storage.Document, error) {
	m.count("Get")
	return m.GetFunc(ctx, collection, id)
}

// Set writes a document
func (m *MockDocumentStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	m.count("Set")
	return m.SetFunc(ctx, collection, id, data, merge)
}

// Update updates an existing document
func (m *MockDocumentStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	m.count("Update")
	return m.UpdateFunc(ctx, collection, id, data)
}

// Delete removes a document
func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	m.count("Delete")
	return m.DeleteFunc(ctx, collection, id)
}

// Query runs an equality query
func (m *MockDocumentStore) Query(ctx context.Context, collection string, filters []storage.Filter, limit int) ([]*storage.Document, error) {
	m.count("Query")
	return m.QueryFunc(ctx, collection, filters, limit)
}

// List returns one page of a collection
func (m *MockDocumentStore) List(ctx context.Context, collection string, limit int, cursor string) (*storage.Page, error) {
	m.count("List")
	return m.ListFunc(ctx, collection, limit, cursor)
}
