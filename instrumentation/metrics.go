package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Result values used on metric attributes
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds all metric instruments for the hardening layer
type Metrics struct {
	// Security Metrics
	RateLimitExceeded      metric.Int64Counter
	RateLimitActiveBuckets metric.Int64ObservableGauge
	AuditEventsTotal       metric.Int64Counter

	// Validation Metrics
	ValidationFailures metric.Int64Counter

	// Facade Metrics
	OperationTotal    metric.Int64Counter
	OperationDuration metric.Float64Histogram

	// Storage Metrics
	StorageOperationTotal    metric.Int64Counter
	StorageOperationDuration metric.Float64Histogram
	StorageDocuments         metric.Int64ObservableGauge

	// Encryption Metrics
	EncryptionOperationsTotal metric.Int64Counter
	EncryptionDuration        metric.Float64Histogram
}

// newMetrics creates and registers all metric instruments
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}

	securityMeter := inst.Meter("security")
	validationMeter := inst.Meter("validation")
	facadeMeter := inst.Meter("facade")
	storageMeter := inst.Meter("storage")

	var err error

	// Security Metrics
	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"hardening.rate_limit.exceeded",
		metric.WithDescription("Number of requests rejected by the rate limiter"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.exceeded counter: %w", err)
	}

	m.RateLimitActiveBuckets, err = securityMeter.Int64ObservableGauge(
		"hardening.rate_limit.active_buckets",
		metric.WithDescription("Number of token buckets currently tracked"),
		metric.WithUnit("{bucket}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate_limit.active_buckets gauge: %w", err)
	}

	m.AuditEventsTotal, err = securityMeter.Int64Counter(
		"hardening.audit.events.total",
		metric.WithDescription("Total number of audit events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit.events.total counter: %w", err)
	}

	// Validation Metrics
	m.ValidationFailures, err = validationMeter.Int64Counter(
		"hardening.validation.failures",
		metric.WithDescription("Number of rejected inputs"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation.failures counter: %w", err)
	}

	// Facade Metrics
	m.OperationTotal, err = facadeMeter.Int64Counter(
		"hardening.operation.total",
		metric.WithDescription("Total number of secure data-access operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation.total counter: %w", err)
	}

	m.OperationDuration, err = facadeMeter.Float64Histogram(
		"hardening.operation.duration",
		metric.WithDescription("Secure data-access operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation.duration histogram: %w", err)
	}

	// Storage Metrics
	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"storage.operation.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.total counter: %w", err)
	}

	m.StorageOperationDuration, err = storageMeter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	m.StorageDocuments, err = storageMeter.Int64ObservableGauge(
		"storage.documents",
		metric.WithDescription("Number of documents held by the storage backend"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.documents gauge: %w", err)
	}

	// Encryption Metrics
	m.EncryptionOperationsTotal, err = securityMeter.Int64Counter(
		"hardening.encryption.operations.total",
		metric.WithDescription("Total number of encryption/decryption operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.operations.total counter: %w", err)
	}

	m.EncryptionDuration, err = securityMeter.Float64Histogram(
		"hardening.encryption.duration",
		metric.WithDescription("Encryption/decryption operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.duration histogram: %w", err)
	}

	return m, nil
}

// Helper methods for common metric recording patterns

// RecordRateLimitExceeded records a rejected request
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, limiter, operation string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		limiterAttr(limiter),
		attribute.String("operation", operation),
	))
}

// RecordValidationFailure records a rejected input for an operation
func (m *Metrics) RecordValidationFailure(ctx context.Context, operation string) {
	m.ValidationFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordOperation records a secure data-access operation
func (m *Metrics) RecordOperation(ctx context.Context, operation, result string, durationMs float64) {
	m.OperationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
	m.OperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(ctx context.Context, storageType, operation, result string, durationMs float64) {
	attrs := []attribute.KeyValue{
		storageTypeAttr(storageType),
		attribute.String("operation", operation),
		attribute.String("result", result),
	}

	m.StorageOperationTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.StorageOperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		storageTypeAttr(storageType),
		attribute.String("operation", operation),
	))
}

// RecordAuditEvent records an audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordEncryptionOperation records an encryption/decryption operation
func (m *Metrics) RecordEncryptionOperation(ctx context.Context, operation, result string, durationMs float64) {
	m.EncryptionOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
	m.EncryptionDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

func limiterAttr(name string) attribute.KeyValue {
	return attribute.String("limiter", name)
}

func storageTypeAttr(storageType string) attribute.KeyValue {
	return attribute.String("storage_type", storageType)
}

// ResultOf maps an error to a result attribute value
func ResultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
