// Package ratelimit paces the browser actions a cleanup run performs so the
// automation stays within the platform's tolerance.
//
// Two layers of pacing:
//
// DelayPolicy:
//   - Jittered base delays between scrolls and between removals
//   - Removal budget accounting against the per-run limit and daily cap
//   - The budget is a pure function of run state; retries never bypass it
//
// Sliding Window:
//   - Tracks actions within a moving time window
//   - Caps total browser actions per minute across scrolls and removals
//
// All limiters implement the Limiter interface:
//   - Allow() bool - Check if an action is allowed
//   - Wait() - Block until an action is allowed
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	limiter := ratelimit.NewSlidingWindow(30, time.Minute)
//	policy := ratelimit.NewDelayPolicy(1500*time.Millisecond, 2*time.Second, 0.2, limiter)
//
//	time.Sleep(policy.DelayBeforeRemoval())
//	policy.WaitAction()
//	// Proceed with removal
package ratelimit
