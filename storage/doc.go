// Package storage defines the document store contract used by the hardening
// facade, together with the data helpers shared by its implementations.
//
// A document is a map of field values addressed by a collection path and an id.
// Collection paths may be nested ("locals/123/jobs"); the store treats them as
// opaque names. Values are the JSON-compatible types accepted by the validation
// package: nil, booleans, numbers, strings, time.Time, slices and nested maps.
//
// Implementations are provided in subpackages:
//   - storage/memory: In-memory storage for development and testing
//   - storage/mock: Mock storage with per-method hooks for unit testing
//   - storage/valkey: Valkey/Redis-compatible storage with a sorted id index
//   - storage/postgres: PostgreSQL storage on a JSONB table with embedded migrations
//
// This package also converts oauth2 tokens to and from document payloads,
// encrypting the sensitive fields with a security.Encryptor.
package storage
