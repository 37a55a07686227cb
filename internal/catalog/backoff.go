package catalog

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffPolicy computes jittered exponential delays between retry attempts
// of the same request. Attempt n waits 2^n time units plus a uniform random
// jitter in [0, 1) units. The policy is only consulted between attempts of a
// single operation, never between independent books.
type BackoffPolicy struct {
	unit time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoffPolicy builds a policy with the given time unit (one second when
// zero or negative), seeded from the wall clock.
func NewBackoffPolicy(unit time.Duration) *BackoffPolicy {
	return NewBackoffPolicyWithSource(unit, rand.NewSource(time.Now().UnixNano()))
}

// NewBackoffPolicyWithSource builds a policy with an explicit jitter source,
// keeping delay sequences reproducible in tests.
func NewBackoffPolicyWithSource(unit time.Duration, src rand.Source) *BackoffPolicy {
	if unit <= 0 {
		unit = time.Second
	}
	return &BackoffPolicy{
		unit: unit,
		rng:  rand.New(src),
	}
}

// Delay returns the wait duration before retrying after the given 0-based
// attempt: unit*2^attempt plus jitter in [0, unit).
func (p *BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.unit << uint(attempt)

	p.mu.Lock()
	jitter := p.rng.Float64()
	p.mu.Unlock()

	return base + time.Duration(jitter*float64(p.unit))
}
