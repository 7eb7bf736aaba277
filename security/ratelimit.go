package security

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/journeyman-jobs/hardening/instrumentation"
)

const (
	// DefaultMaxEntries is the default bound on tracked buckets
	DefaultMaxEntries = 10000

	// DefaultCleanupInterval is how often idle buckets are swept
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultIdleTimeout is how long a bucket may stay unused before it is swept
	DefaultIdleTimeout = 10 * time.Minute

	// NeverAdmitted is the retry-after reported for a cost above the bucket capacity
	NeverAdmitted = time.Duration(math.MaxInt64)
)

// RateLimiterConfig configures a RateLimiter
type RateLimiterConfig struct {
	// Name labels the limiter in logs and metrics (e.g., "user", "anonymous").
	// Default: "default"
	Name string

	// Policies maps operation classes to limits. Must contain ClassDefault.
	// Default: DefaultUserPolicies()
	Policies Policies

	// MaxEntries bounds the number of tracked buckets. When the bound is
	// reached the least recently used bucket is evicted.
	// Default: 10,000. Negative means unlimited (not recommended for production).
	MaxEntries int

	// CleanupInterval is the period of the background idle sweep.
	// Default: 5 minutes
	CleanupInterval time.Duration

	// IdleTimeout is how long a bucket may stay unused before the sweep removes it.
	// Default: 10 minutes
	IdleTimeout time.Duration

	// Now is the clock used for refills. Default: time.Now
	Now Clock

	// Logger receives debug and warning logs. Default: slog.Default()
	Logger *slog.Logger
}

type bucketKey struct {
	identifier string
	class      OperationClass
}

// bucket is the token bucket for one (identifier, operation class) pair
type bucket struct {
	key        bucketKey
	limiter    *rate.Limiter
	violations int
	lastSeen   time.Time
}

// retryAfter returns the wait until needed tokens are available, multiplied
// by the exponential backoff of the bucket's violation count.
func (b *bucket) retryAfter(now time.Time, needed int) time.Duration {
	deficit := float64(needed) - b.limiter.TokensAt(now)
	if deficit <= 0 {
		return 0
	}
	seconds := deficit / float64(b.limiter.Limit()) * backoffMultiplier(b.violations)
	if seconds >= math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

// RateLimiter provides per-identifier, per-operation-class rate limiting using
// the token bucket algorithm, with exponential backoff for repeat offenders and
// LRU eviction to prevent unbounded memory growth.
type RateLimiter struct {
	buckets         map[bucketKey]*list.Element // key -> list element
	lruList         *list.List                  // LRU list of *bucket
	mu              sync.RWMutex
	name            string
	policies        Policies
	maxEntries      int
	cleanupInterval time.Duration
	idleTimeout     time.Duration
	now             Clock
	logger          *slog.Logger
	stopCleanup     chan struct{}
	stopOnce        sync.Once

	instrumentation *instrumentation.Instrumentation
	registration    metric.Registration

	// Statistics
	totalEvictions  int64
	totalCleanups   int64
	totalRejections int64
}

// NewRateLimiter creates a rate limiter and starts its background cleanup loop.
// Call Stop to end the loop.
func NewRateLimiter(cfg RateLimiterConfig) (*RateLimiter, error) {
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultUserPolicies()
	}
	if err := cfg.Policies.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit policies: %w", err)
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rl := &RateLimiter{
		buckets:         make(map[bucketKey]*list.Element),
		lruList:         list.New(),
		name:            cfg.Name,
		policies:        cfg.Policies.Clone(),
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		idleTimeout:     cfg.IdleTimeout,
		now:             cfg.Now,
		logger:          cfg.Logger.With("limiter", cfg.Name),
		stopCleanup:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl, nil
}

// SetInstrumentation enables metrics for rejections and active buckets
func (rl *RateLimiter) SetInstrumentation(inst *instrumentation.Instrumentation) {
	rl.mu.Lock()
	prev := rl.registration
	rl.registration = nil
	rl.instrumentation = inst
	rl.mu.Unlock()

	// Unregister outside the lock: a concurrent collection may be reading Stats.
	if prev != nil {
		_ = prev.Unregister()
	}
	if inst == nil {
		return
	}

	reg, err := inst.RegisterRateLimiterCallback(rl.name, func() int64 {
		return int64(rl.Stats().CurrentEntries)
	})
	if err != nil {
		rl.logger.Warn("Failed to register rate limiter metrics", "error", err)
		return
	}

	rl.mu.Lock()
	rl.registration = reg
	rl.mu.Unlock()
}

// Name returns the limiter's label
func (rl *RateLimiter) Name() string {
	return rl.name
}

// Policy returns the effective policy for class
func (rl *RateLimiter) Policy(class OperationClass) Policy {
	return rl.policies.Lookup(normalizeClass(class))
}

// Policies returns a copy of the configured policies
func (rl *RateLimiter) Policies() Policies {
	return rl.policies.Clone()
}

// Allow reports whether a request of the policy's default cost is admitted.
// Tokens are consumed only when the request is admitted.
func (rl *RateLimiter) Allow(identifier string, class OperationClass) bool {
	return rl.AllowN(identifier, class, 0)
}

// AllowN reports whether a request of the given cost is admitted. A
// non-positive cost uses the policy's CostPerRequest.
func (rl *RateLimiter) AllowN(identifier string, class OperationClass, cost int) bool {
	allowed, _ := rl.consume(context.Background(), identifier, class, cost)
	return allowed
}

// Enforce is Allow returning a *RateLimitError carrying the retry-after
// duration when the request is rejected.
func (rl *RateLimiter) Enforce(ctx context.Context, identifier string, class OperationClass) error {
	return rl.EnforceN(ctx, identifier, class, 0)
}

// EnforceN is AllowN returning a *RateLimitError on rejection. A cost above
// the bucket capacity returns an error matching ErrCostExceedsCapacity instead.
func (rl *RateLimiter) EnforceN(ctx context.Context, identifier string, class OperationClass, cost int) error {
	if err := rl.checkCost(class, cost); err != nil {
		return err
	}
	allowed, retry := rl.consume(ctx, identifier, class, cost)
	if allowed {
		return nil
	}
	return &RateLimitError{Operation: normalizeClass(class), RetryAfter: retry}
}

// checkCost rejects a cost no bucket of the class can ever admit
func (rl *RateLimiter) checkCost(class OperationClass, cost int) error {
	class = normalizeClass(class)
	capacity := rl.policies.Lookup(class).capacity()
	if cost > capacity {
		return fmt.Errorf("%w: cost %d, capacity %d for %s operations",
			ErrCostExceedsCapacity, cost, capacity, class)
	}
	return nil
}

// consume refills and charges the bucket under a single lock. On rejection it
// returns the retry-after computed after the violation was counted. A cost
// above capacity is rejected without touching the bucket.
func (rl *RateLimiter) consume(ctx context.Context, identifier string, class OperationClass, cost int) (bool, time.Duration) {
	class = normalizeClass(class)
	policy := rl.policies.Lookup(class)
	if cost <= 0 {
		cost = policy.CostPerRequest
	}
	if cost > policy.capacity() {
		rl.logger.Debug("Request cost exceeds bucket capacity",
			"identifier_hash", HashIdentifier(identifier),
			"operation", string(class),
			"cost", cost,
			"capacity", policy.capacity())
		return false, NeverAdmitted
	}

	rl.mu.Lock()
	b := rl.getOrCreate(bucketKey{identifier: identifier, class: class}, policy)
	now := observe(b.lastSeen, rl.now())
	b.lastSeen = now

	if b.limiter.AllowN(now, cost) {
		b.violations = 0
		rl.mu.Unlock()
		return true, 0
	}

	b.violations++
	violations := b.violations
	retry := b.retryAfter(now, cost)
	rl.totalRejections++
	inst := rl.instrumentation
	rl.mu.Unlock()

	rl.logger.Warn("Rate limit exceeded",
		"identifier_hash", HashIdentifier(identifier),
		"operation", string(class),
		"cost", cost,
		"violations", violations,
		"retry_after", retry)

	if inst != nil {
		inst.Metrics().RecordRateLimitExceeded(ctx, rl.name, string(class))
	}
	return false, retry
}

// Remaining returns the number of whole tokens currently available. An
// identifier without a bucket has the full capacity available.
func (rl *RateLimiter) Remaining(identifier string, class OperationClass) int {
	class = normalizeClass(class)

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	elem, ok := rl.buckets[bucketKey{identifier: identifier, class: class}]
	if !ok {
		return rl.policies.Lookup(class).capacity()
	}
	b := elem.Value.(*bucket)
	return int(math.Floor(b.limiter.TokensAt(observe(b.lastSeen, rl.now()))))
}

// RetryAfter returns how long the caller should wait before a request of the
// policy's default cost can succeed, including backoff for prior violations.
func (rl *RateLimiter) RetryAfter(identifier string, class OperationClass) time.Duration {
	return rl.RetryAfterN(identifier, class, 0)
}

// RetryAfterN is RetryAfter for a request needing tokensNeeded tokens.
// It returns NeverAdmitted when tokensNeeded exceeds the bucket capacity.
func (rl *RateLimiter) RetryAfterN(identifier string, class OperationClass, tokensNeeded int) time.Duration {
	class = normalizeClass(class)
	policy := rl.policies.Lookup(class)
	if tokensNeeded <= 0 {
		tokensNeeded = policy.CostPerRequest
	}
	if tokensNeeded > policy.capacity() {
		return NeverAdmitted
	}

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	elem, ok := rl.buckets[bucketKey{identifier: identifier, class: class}]
	if !ok {
		return 0
	}
	b := elem.Value.(*bucket)
	return b.retryAfter(observe(b.lastSeen, rl.now()), tokensNeeded)
}

// Reset removes the identifier's buckets for the given classes, or all of its
// buckets when no class is given.
func (rl *RateLimiter) Reset(identifier string, classes ...OperationClass) {
	if len(classes) == 0 {
		classes = AllOperationClasses()
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for _, class := range classes {
		key := bucketKey{identifier: identifier, class: normalizeClass(class)}
		if elem, ok := rl.buckets[key]; ok {
			delete(rl.buckets, key)
			rl.lruList.Remove(elem)
		}
	}
}

// getOrCreate returns the bucket for key, creating a full bucket if needed.
// Must be called with mutex locked.
func (rl *RateLimiter) getOrCreate(key bucketKey, policy Policy) *bucket {
	if elem, ok := rl.buckets[key]; ok {
		rl.lruList.MoveToFront(elem)
		return elem.Value.(*bucket)
	}

	if rl.maxEntries > 0 && len(rl.buckets) >= rl.maxEntries {
		rl.evictLRU()
	}

	b := &bucket{
		key:     key,
		limiter: rate.NewLimiter(rate.Limit(policy.refillRate()), policy.capacity()),
	}
	rl.buckets[key] = rl.lruList.PushFront(b)
	return b
}

// evictLRU removes the least recently used bucket.
// Must be called with mutex locked.
func (rl *RateLimiter) evictLRU() {
	elem := rl.lruList.Back()
	if elem == nil {
		return
	}

	b := elem.Value.(*bucket)
	delete(rl.buckets, b.key)
	rl.lruList.Remove(elem)
	rl.totalEvictions++

	rl.logger.Debug("Rate limiter LRU eviction",
		"identifier_hash", HashIdentifier(b.key.identifier),
		"operation", string(b.key.class),
		"total_evictions", rl.totalEvictions,
		"current_entries", len(rl.buckets))
}

// cleanupLoop periodically removes idle buckets
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup(rl.idleTimeout)
		case <-rl.stopCleanup:
			return
		}
	}
}

// Cleanup removes buckets that have not been used for longer than maxIdle
// and returns how many were removed.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0

	var next *list.Element
	for elem := rl.lruList.Front(); elem != nil; elem = next {
		next = elem.Next()
		b := elem.Value.(*bucket)

		if now.Sub(b.lastSeen) > maxIdle {
			delete(rl.buckets, b.key)
			rl.lruList.Remove(elem)
			removed++
		}
	}

	if removed > 0 {
		rl.totalCleanups++
		rl.logger.Debug("Rate limiter cleanup completed",
			"removed", removed,
			"remaining", len(rl.buckets),
			"total_cleanups", rl.totalCleanups)
	}
	return removed
}

// Stop ends the cleanup loop and unregisters metrics. It is safe to call more
// than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)

		rl.mu.Lock()
		reg := rl.registration
		rl.registration = nil
		rl.mu.Unlock()

		if reg != nil {
			_ = reg.Unregister()
		}
	})
}

// Stats holds rate limiter statistics for monitoring
type Stats struct {
	CurrentEntries  int     // Current number of tracked buckets
	MaxEntries      int     // Maximum allowed buckets (0 = unlimited)
	TotalEvictions  int64   // Total number of LRU evictions
	TotalCleanups   int64   // Total number of sweeps that removed buckets
	TotalRejections int64   // Total number of rejected requests
	MemoryPressure  float64 // Percentage of max capacity used (0-100)
}

// Stats returns current rate limiter statistics for monitoring and alerting
func (rl *RateLimiter) Stats() Stats {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	stats := Stats{
		CurrentEntries:  len(rl.buckets),
		MaxEntries:      rl.maxEntries,
		TotalEvictions:  rl.totalEvictions,
		TotalCleanups:   rl.totalCleanups,
		TotalRejections: rl.totalRejections,
	}

	if rl.maxEntries > 0 {
		stats.MemoryPressure = float64(stats.CurrentEntries) / float64(rl.maxEntries) * 100.0
	}

	return stats
}

// normalizeClass maps unknown classes to ClassDefault so that a caller can
// never create buckets outside the closed set.
func normalizeClass(class OperationClass) OperationClass {
	if class.Valid() {
		return class
	}
	return ClassDefault
}
