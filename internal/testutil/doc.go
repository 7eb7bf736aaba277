// Package testutil provides testing utilities and fixtures for the hardening
// library. It includes a controllable clock for deterministic rate-limiter
// tests, generators for keys, documents and tokens, and small assertions.
package testutil
