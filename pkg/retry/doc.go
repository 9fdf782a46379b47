// Package retry provides backoff and retry logic for transient failures in
// browser-driven operations, particularly follower removal and list
// extraction.
//
// Features:
//   - Multiple backoff strategies (exponential, linear, constant)
//   - Jitter so repeated attempts do not land on a fixed interval
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the run error taxonomy
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return session.RemoveFollower(ctx, profileID)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// DefaultRetryIf consults the error taxonomy: transient removal and browser
// errors are retried, authentication and fatal removal errors are not, and
// context cancellation always stops immediately.
package retry
