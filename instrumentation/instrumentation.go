package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName is the service name used when none is provided
	DefaultServiceName = "hardening"

	// DefaultServiceVersion is the default service version used when none is provided
	DefaultServiceVersion = "unknown"

	// scopePrefix is prepended to every meter and tracer name
	scopePrefix = "github.com/journeyman-jobs/hardening/"
)

// Config holds instrumentation configuration
type Config struct {
	// ServiceName is the name of the service (e.g., "job-board-api")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Enabled controls whether instrumentation is active.
	// When false, no-op providers are used regardless of the providers below.
	Enabled bool

	// MeterProvider receives all metric instruments when Enabled is true.
	// If nil, the global provider from otel.GetMeterProvider is used.
	MeterProvider metric.MeterProvider

	// TracerProvider receives all spans when Enabled is true.
	// If nil, the global provider from otel.GetTracerProvider is used.
	TracerProvider trace.TracerProvider

	// Resource allows custom resource attributes
	// If nil, default resource is created with service name and version
	Resource *resource.Resource

	// ShutdownFuncs are called once by Shutdown, in order. Use them to flush
	// SDK providers owned by the caller.
	ShutdownFuncs []func(context.Context) error
}

// Instrumentation provides OpenTelemetry instrumentation components
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	metrics *Metrics

	// Shutdown functions (registered during New() only)
	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates a new instrumentation instance
func New(config Config) (*Instrumentation, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}

	var res *resource.Resource
	var err error
	if config.Resource != nil {
		res = config.Resource
	} else {
		res, err = resource.New(
			context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}
	}

	inst := &Instrumentation{
		config:        config,
		resource:      res,
		shutdownFuncs: append([]func(context.Context) error(nil), config.ShutdownFuncs...),
	}

	if config.Enabled {
		inst.initializeProviders()
	} else {
		// Use no-op providers for zero overhead
		inst.meterProvider = noop.NewMeterProvider()
		inst.tracerProvider = tracenoop.NewTracerProvider()
	}

	inst.metrics, err = newMetrics(inst)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return inst, nil
}

// NewNoop returns disabled instrumentation. It never fails.
func NewNoop() *Instrumentation {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		panic(fmt.Sprintf("noop instrumentation: %v", err))
	}
	return inst
}

// initializeProviders picks the configured providers, falling back to the
// globally registered ones.
func (i *Instrumentation) initializeProviders() {
	i.meterProvider = i.config.MeterProvider
	if i.meterProvider == nil {
		i.meterProvider = otel.GetMeterProvider()
	}
	i.tracerProvider = i.config.TracerProvider
	if i.tracerProvider == nil {
		i.tracerProvider = otel.GetTracerProvider()
	}
}

// Shutdown gracefully shuts down all instrumentation providers
// This should be called when the application is terminating
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var shutdownErr error

	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			if err := fn(ctx); err != nil {
				// Capture first error, but continue shutting down other components
				if shutdownErr == nil {
					shutdownErr = err
				}
			}
		}
	})

	return shutdownErr
}

// Meter returns a named meter for the given scope
// Scopes are layer names like "security", "storage", "validation", "facade".
func (i *Instrumentation) Meter(scope string) metric.Meter {
	return i.meterProvider.Meter(scopePrefix + scope)
}

// Tracer returns a named tracer for the given scope
func (i *Instrumentation) Tracer(scope string) trace.Tracer {
	return i.tracerProvider.Tracer(scopePrefix + scope)
}

// Metrics returns the metrics holder for recording metric values
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// Resource returns the resource describing this service
func (i *Instrumentation) Resource() *resource.Resource {
	return i.resource
}

// TracerProvider returns the underlying tracer provider
func (i *Instrumentation) TracerProvider() trace.TracerProvider {
	return i.tracerProvider
}

// MeterProvider returns the underlying meter provider
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	return i.meterProvider
}

// SizeCallback returns the current size of a component
type SizeCallback func() int64

// RegisterRateLimiterCallback reports the number of active buckets of the
// named limiter through the active-buckets gauge. The returned registration
// should be unregistered when the limiter stops.
func (i *Instrumentation) RegisterRateLimiterCallback(limiter string, active SizeCallback) (metric.Registration, error) {
	if active == nil {
		return nil, fmt.Errorf("callback must not be nil")
	}
	attrs := metric.WithAttributes(limiterAttr(limiter))
	return i.Meter("security").RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(i.metrics.RateLimitActiveBuckets, active(), attrs)
			return nil
		},
		i.metrics.RateLimitActiveBuckets,
	)
}

// RegisterStorageSizeCallback reports the number of stored documents of a
// storage backend through the storage size gauge.
//
// Example:
//
//	func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
//	    s.instrumentation = inst
//	    _, _ = inst.RegisterStorageSizeCallback("memory", s.count)
//	}
func (i *Instrumentation) RegisterStorageSizeCallback(storageType string, size SizeCallback) (metric.Registration, error) {
	if size == nil {
		return nil, fmt.Errorf("callback must not be nil")
	}
	attrs := metric.WithAttributes(storageTypeAttr(storageType))
	return i.Meter("storage").RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(i.metrics.StorageDocuments, size(), attrs)
			return nil
		},
		i.metrics.StorageDocuments,
	)
}
