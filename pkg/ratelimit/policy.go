package ratelimit

import (
	"math/rand"
	"time"

	"followersweep/pkg/models"
)

// DelayPolicy computes the pacing between browser-facing actions and tracks
// how many removals the run is still allowed to perform.
type DelayPolicy struct {
	scrollDelay   time.Duration
	removalDelay  time.Duration
	jitterFactor  float64
	actionLimiter Limiter
}

// NewDelayPolicy creates a delay policy with the given base delays. Jitter
// randomizes each delay by up to the given fraction in either direction so
// actions do not land on a fixed, fingerprintable interval. actionLimiter
// may be nil when no per-minute ceiling applies.
func NewDelayPolicy(scrollDelay, removalDelay time.Duration, jitterFactor float64, actionLimiter Limiter) *DelayPolicy {
	return &DelayPolicy{
		scrollDelay:   scrollDelay,
		removalDelay:  removalDelay,
		jitterFactor:  jitterFactor,
		actionLimiter: actionLimiter,
	}
}

// DelayBeforeScroll returns the jittered wait before the next scroll
func (p *DelayPolicy) DelayBeforeScroll() time.Duration {
	return p.jitter(p.scrollDelay)
}

// DelayBeforeRemoval returns the jittered wait before the next removal
func (p *DelayPolicy) DelayBeforeRemoval() time.Duration {
	return p.jitter(p.removalDelay)
}

// RemainingBudget returns how many more removals the run may perform. It is
// a pure function of the run state against limit and daily cap, and must be
// consulted before every removal attempt; retries never bypass it.
func (p *DelayPolicy) RemainingBudget(state *models.RunState) int {
	remaining := state.Budget() - state.RemovedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WaitAction blocks until the per-minute action ceiling allows another
// browser action. No-op without a limiter.
func (p *DelayPolicy) WaitAction() {
	if p.actionLimiter != nil {
		p.actionLimiter.Wait()
	}
}

func (p *DelayPolicy) jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if p.jitterFactor <= 0 {
		return base
	}
	jitter := float64(base) * p.jitterFactor
	d := float64(base) + (rand.Float64()*2*jitter - jitter)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
