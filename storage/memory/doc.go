// Package memory provides an in-memory implementation of storage.DocumentStore.
//
// Documents are kept in nested maps guarded by a sync.RWMutex and are
// deep-copied on every read and write. It is suitable for development, tests
// and single-instance deployments where persistence is not required.
//
// Features:
//   - Thread-safe operations using sync.RWMutex
//   - Deep merge for Set with merge=true
//   - Equality queries and cursor pagination in id order
//   - OpenTelemetry spans, operation metrics and a document count gauge
//
// For persistence use storage/postgres or storage/valkey instead.
//
// Example usage:
//
//	store := memory.New()
//	defer store.Stop()
//
//	secure, _ := hardening.New(store, hardening.DefaultConfig())
package memory
