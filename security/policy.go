package security

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// OperationClass groups operations that share a rate-limit policy
type OperationClass string

// Supported operation classes
const (
	ClassAuth    OperationClass = "auth"
	ClassRead    OperationClass = "read"
	ClassWrite   OperationClass = "write"
	ClassDefault OperationClass = "default"
)

// AllOperationClasses returns every operation class
func AllOperationClasses() []OperationClass {
	return []OperationClass{ClassAuth, ClassRead, ClassWrite, ClassDefault}
}

// Valid reports whether c is one of the known operation classes
func (c OperationClass) Valid() bool {
	switch c {
	case ClassAuth, ClassRead, ClassWrite, ClassDefault:
		return true
	}
	return false
}

// String implements fmt.Stringer
func (c OperationClass) String() string {
	return string(c)
}

// ParseOperationClass parses a case-insensitive operation class name
func ParseOperationClass(s string) (OperationClass, error) {
	c := OperationClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown operation class %q", s)
	}
	return c, nil
}

// Policy limits one operation class: at most MaxRequests requests of cost
// CostPerRequest per Window, refilled continuously.
type Policy struct {
	MaxRequests    int
	Window         time.Duration
	CostPerRequest int
}

// Validate checks that the policy can ever admit a request
func (p Policy) Validate() error {
	if p.MaxRequests < 1 {
		return fmt.Errorf("max requests must be positive, got %d", p.MaxRequests)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", p.Window)
	}
	if p.CostPerRequest < 1 {
		return fmt.Errorf("cost per request must be positive, got %d", p.CostPerRequest)
	}
	if p.CostPerRequest > p.MaxRequests {
		return fmt.Errorf("cost per request (%d) exceeds max requests (%d)", p.CostPerRequest, p.MaxRequests)
	}
	return nil
}

// capacity is the bucket size in tokens
func (p Policy) capacity() int {
	return p.MaxRequests
}

// refillRate is the refill rate in tokens per second
func (p Policy) refillRate() float64 {
	return float64(p.MaxRequests) / p.Window.Seconds()
}

// String formats the policy for display
func (p Policy) String() string {
	return fmt.Sprintf("%d per %s (cost %d)", p.MaxRequests, p.Window, p.CostPerRequest)
}

// Policies maps operation classes to their policy. The ClassDefault entry is
// required and applies to every class without its own entry.
type Policies map[OperationClass]Policy

// Lookup returns the policy for class, falling back to ClassDefault
func (ps Policies) Lookup(class OperationClass) Policy {
	if p, ok := ps[class]; ok {
		return p
	}
	return ps[ClassDefault]
}

// Validate checks every policy and requires a default policy
func (ps Policies) Validate() error {
	if _, ok := ps[ClassDefault]; !ok {
		return fmt.Errorf("policies must define the %q class", ClassDefault)
	}
	for class, p := range ps {
		if !class.Valid() {
			return fmt.Errorf("unknown operation class %q", class)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid %s policy: %w", class, err)
		}
	}
	return nil
}

// Classes returns the configured classes in sorted order
func (ps Policies) Classes() []OperationClass {
	out := make([]OperationClass, 0, len(ps))
	for class := range ps {
		out = append(out, class)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a copy of ps
func (ps Policies) Clone() Policies {
	out := make(Policies, len(ps))
	for class, p := range ps {
		out[class] = p
	}
	return out
}

// DefaultUserPolicies returns the policies applied to authenticated users
func DefaultUserPolicies() Policies {
	return Policies{
		ClassRead:    {MaxRequests: 100, Window: time.Minute, CostPerRequest: 1},
		ClassWrite:   {MaxRequests: 50, Window: time.Minute, CostPerRequest: 2},
		ClassAuth:    {MaxRequests: 5, Window: time.Minute, CostPerRequest: 1},
		ClassDefault: {MaxRequests: 60, Window: time.Minute, CostPerRequest: 1},
	}
}

// DefaultAnonymousPolicies returns the stricter policies applied to
// unauthenticated callers identified by client IP.
func DefaultAnonymousPolicies() Policies {
	return Policies{
		ClassAuth:    {MaxRequests: 10, Window: 5 * time.Minute, CostPerRequest: 1},
		ClassRead:    {MaxRequests: 30, Window: time.Minute, CostPerRequest: 1},
		ClassWrite:   {MaxRequests: 10, Window: time.Minute, CostPerRequest: 2},
		ClassDefault: {MaxRequests: 20, Window: time.Minute, CostPerRequest: 1},
	}
}
