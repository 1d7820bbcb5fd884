package query

import "time"

// Policy controls freshness and retries for a resource.
type Policy struct {
	RefetchInterval time.Duration
	RetryCount      int
	RetryDelay      time.Duration
	// RefetchOnFocus has no server-side trigger; templates read it as a
	// polling hint.
	RefetchOnFocus bool
}

// DefaultPolicy applies to every resource without an override.
var DefaultPolicy = Policy{
	RefetchInterval: 60 * time.Second,
	RetryCount:      1,
	RetryDelay:      250 * time.Millisecond,
}

var resourcePolicies = map[Resource]Policy{
	ResourceExecutions: {RefetchInterval: 30 * time.Second, RetryCount: 1, RetryDelay: 250 * time.Millisecond},
	ResourceMetrics:    {RefetchInterval: 5 * time.Minute, RetryCount: 1, RetryDelay: 250 * time.Millisecond},
	ResourceFreshness:  {RefetchInterval: 2 * time.Minute, RetryCount: 1, RetryDelay: 250 * time.Millisecond},
}

// PolicyFor returns the built-in policy of r.
func PolicyFor(r Resource) Policy {
	if p, ok := resourcePolicies[r]; ok {
		return p
	}
	return DefaultPolicy
}

func (p Policy) normalised() Policy {
	if p.RefetchInterval <= 0 {
		p.RefetchInterval = DefaultPolicy.RefetchInterval
	}
	if p.RetryCount < 0 {
		p.RetryCount = 0
	}
	// the constant backoff rejects non-positive delays
	if p.RetryDelay <= 0 {
		p.RetryDelay = time.Millisecond
	}
	return p
}
