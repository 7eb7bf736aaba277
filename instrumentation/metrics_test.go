package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestInstrumentation returns enabled instrumentation backed by a manual reader
func newTestInstrumentation(t *testing.T) (*Instrumentation, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	inst, err := New(Config{
		Enabled:       true,
		MeterProvider: provider,
		ShutdownFuncs: []func(context.Context) error{provider.Shutdown},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = inst.Shutdown(context.Background()) })
	return inst, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func sumInt64(t *testing.T, m metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_RecordRateLimitExceeded(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordRateLimitExceeded(ctx, "user", "write")
	inst.Metrics().RecordRateLimitExceeded(ctx, "user", "write")
	inst.Metrics().RecordRateLimitExceeded(ctx, "user", "auth")

	m, ok := findMetric(collect(t, reader), "hardening.rate_limit.exceeded")
	if !ok {
		t.Fatal("hardening.rate_limit.exceeded not recorded")
	}
	if got := sumInt64(t, m, attribute.String("operation", "write")); got != 2 {
		t.Errorf("write violations = %d, want 2", got)
	}
	if got := sumInt64(t, m, attribute.String("operation", "auth")); got != 1 {
		t.Errorf("auth violations = %d, want 1", got)
	}
}

func TestMetrics_RecordStorageOperation(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordStorageOperation(ctx, "memory", "set", ResultSuccess, 0.5)
	inst.Metrics().RecordStorageOperation(ctx, "memory", "get", ResultOf(errors.New("x")), 0.1)

	rm := collect(t, reader)
	total, ok := findMetric(rm, "storage.operation.total")
	if !ok {
		t.Fatal("storage.operation.total not recorded")
	}
	if got := sumInt64(t, total, attribute.String("result", ResultError)); got != 1 {
		t.Errorf("error results = %d, want 1", got)
	}
	if _, ok := findMetric(rm, "storage.operation.duration"); !ok {
		t.Error("storage.operation.duration not recorded")
	}
}

func TestMetrics_ValidationAndAudit(t *testing.T) {
	inst, reader := newTestInstrumentation(t)
	ctx := context.Background()

	inst.Metrics().RecordValidationFailure(ctx, "set")
	inst.Metrics().RecordAuditEvent(ctx, "validation_failed")
	inst.Metrics().RecordEncryptionOperation(ctx, "seal", ResultSuccess, 0.2)
	inst.Metrics().RecordOperation(ctx, "set", ResultError, 0.3)

	rm := collect(t, reader)
	for _, name := range []string{
		"hardening.validation.failures",
		"hardening.audit.events.total",
		"hardening.encryption.operations.total",
		"hardening.encryption.duration",
		"hardening.operation.total",
		"hardening.operation.duration",
	} {
		if _, ok := findMetric(rm, name); !ok {
			t.Errorf("%s not recorded", name)
		}
	}
}

func TestRegisterRateLimiterCallback(t *testing.T) {
	inst, reader := newTestInstrumentation(t)

	reg, err := inst.RegisterRateLimiterCallback("anonymous", func() int64 { return 42 })
	if err != nil {
		t.Fatalf("RegisterRateLimiterCallback() error = %v", err)
	}

	m, ok := findMetric(collect(t, reader), "hardening.rate_limit.active_buckets")
	if !ok {
		t.Fatal("active_buckets gauge not observed")
	}
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("metric data is %T, want Gauge[int64]", m.Data)
	}
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 42 {
		t.Errorf("gauge data points = %+v, want single value 42", gauge.DataPoints)
	}

	if err := reg.Unregister(); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if m, ok := findMetric(collect(t, reader), "hardening.rate_limit.active_buckets"); ok {
		if g, _ := m.Data.(metricdata.Gauge[int64]); len(g.DataPoints) != 0 {
			t.Errorf("gauge still observed after Unregister(): %+v", g.DataPoints)
		}
	}
}

func TestRegisterStorageSizeCallback(t *testing.T) {
	inst, reader := newTestInstrumentation(t)

	if _, err := inst.RegisterStorageSizeCallback("memory", func() int64 { return 7 }); err != nil {
		t.Fatalf("RegisterStorageSizeCallback() error = %v", err)
	}

	m, ok := findMetric(collect(t, reader), "storage.documents")
	if !ok {
		t.Fatal("storage.documents gauge not observed")
	}
	gauge := m.Data.(metricdata.Gauge[int64])
	if len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 7 {
		t.Errorf("gauge data points = %+v, want single value 7", gauge.DataPoints)
	}
}

func TestResultOf(t *testing.T) {
	if ResultOf(nil) != ResultSuccess {
		t.Errorf("ResultOf(nil) = %q", ResultOf(nil))
	}
	if ResultOf(errors.New("x")) != ResultError {
		t.Errorf("ResultOf(err) = %q", ResultOf(errors.New("x")))
	}
}
