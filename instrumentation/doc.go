// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the
// hardening layer.
//
// Every component (rate limiter, validator-facing facade, storage backends,
// encryption service, auditor) accepts an *Instrumentation through
// SetInstrumentation. When instrumentation is disabled, no-op providers are
// used and recording has no measurable cost.
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "job-board-api",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//		MeterProvider:  meterProvider,  // optional, defaults to the global provider
//		TracerProvider: tracerProvider, // optional, defaults to the global provider
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	limiter.SetInstrumentation(inst)
//	store.SetInstrumentation(inst)
//
// # Available Metrics
//
// Security:
//   - hardening.rate_limit.exceeded{limiter, operation} - Rejected requests
//   - hardening.rate_limit.active_buckets{limiter} - Tracked token buckets
//   - hardening.audit.events.total{event_type} - Audit events
//   - hardening.encryption.operations.total{operation, result} - Encryption operations
//   - hardening.encryption.duration{operation} - Encryption duration in milliseconds
//
// Validation and facade:
//   - hardening.validation.failures{operation} - Rejected inputs
//   - hardening.operation.total{operation, result} - Secure data-access operations
//   - hardening.operation.duration{operation} - Operation duration in milliseconds
//
// Storage:
//   - storage.operation.total{storage_type, operation, result} - Storage operations
//   - storage.operation.duration{storage_type, operation} - Duration in milliseconds
//   - storage.documents{storage_type} - Stored documents
//
// # Privacy
//
// Identities (user ids, client IPs) never appear as attribute values in clear
// text. Callers record only hashed identifiers.
package instrumentation
