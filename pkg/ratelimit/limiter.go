package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if an action is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another action
	Wait()
	// Reset resets the rate limiter state
	Reset()
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize time.Duration
	maxActions int
	actions    []time.Time
	mu         sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxActions int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize: windowSize,
		maxActions: maxActions,
		actions:    make([]time.Time, 0, maxActions),
	}
}

// Allow checks if an action can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldActions(now)

	if len(sw.actions) < sw.maxActions {
		sw.actions = append(sw.actions, now)
		return true
	}

	return false
}

// Wait blocks until an action is allowed
func (sw *SlidingWindow) Wait() {
	for !sw.Allow() {
		sw.mu.Lock()
		if len(sw.actions) > 0 {
			oldest := sw.actions[0]
			timeToWait := sw.windowSize - time.Since(oldest)
			sw.mu.Unlock()

			if timeToWait > 0 {
				time.Sleep(timeToWait)
			}
		} else {
			sw.mu.Unlock()
			// Small sleep to prevent busy waiting
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Reset clears all recorded actions
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.actions = sw.actions[:0]
}

// cleanOldActions removes actions outside the sliding window
func (sw *SlidingWindow) cleanOldActions(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.actions) && sw.actions[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.actions, sw.actions[i:])
		sw.actions = sw.actions[:len(sw.actions)-i]
	}
}
