// Package enumerator walks the follower list through the browser
// collaborator, yielding each follower exactly once per run.
package enumerator

import (
	"context"
	"fmt"
	"time"

	"followersweep/pkg/browser"
	"followersweep/pkg/logger"
	"followersweep/pkg/models"
	"followersweep/pkg/ratelimit"
	"followersweep/pkg/retry"
)

// ScanIncompleteError signals that enumeration ended early but the records
// already yielded are still usable. The run continues with the partial set.
type ScanIncompleteError struct {
	// Collected is how many records were yielded before the failure
	Collected int
	// Err is the underlying failure that ended enumeration
	Err error
}

func (e *ScanIncompleteError) Error() string {
	return fmt.Sprintf("scan incomplete after %d followers: %v", e.Collected, e.Err)
}

func (e *ScanIncompleteError) Unwrap() error {
	return e.Err
}

// YieldFunc receives each newly discovered follower in list order. Returning
// false stops enumeration cleanly.
type YieldFunc func(models.FollowerRecord) bool

// Config holds enumeration bounds.
type Config struct {
	// ScanLimit caps how many followers are yielded (0 means unbounded)
	ScanLimit int
	// StallThreshold is the number of consecutive scrolls with zero new
	// followers before enumeration treats the list as exhausted
	StallThreshold int
	// MaxScrollAttempts bounds the scroll loop outright
	MaxScrollAttempts int
	// MaxExtractionRetries bounds retries of a failing extract/scroll step
	MaxExtractionRetries int
}

// Enumerator drives the scroll / settle / extract loop. Not restartable:
// a new run begins from the top of the list, there is no persisted cursor.
type Enumerator struct {
	session browser.Session
	policy  *ratelimit.DelayPolicy
	cfg     Config
	logger  logger.Logger

	seen map[string]struct{}
}

// New creates an enumerator for one run
func New(session browser.Session, policy *ratelimit.DelayPolicy, cfg Config, log logger.Logger) *Enumerator {
	return &Enumerator{
		session: session,
		policy:  policy,
		cfg:     cfg,
		logger:  log,
		seen:    make(map[string]struct{}),
	}
}

// Run enumerates followers until the scan limit, end of list, a stall, or
// cancellation. Extraction failures are retried with backoff; exhausting
// retries returns a ScanIncompleteError so the caller can proceed with what
// was collected.
func (e *Enumerator) Run(ctx context.Context, yield YieldFunc) error {
	yielded := 0
	stalls := 0
	atEnd := false

	backoff := &retry.LinearBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		Increment:    time.Second,
		JitterFactor: 0.1,
	}

	for scrolls := 0; scrolls < e.cfg.MaxScrollAttempts; scrolls++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		visible, err := e.extractWithRetry(ctx, backoff)
		if err != nil {
			e.logger.WithError(err).Warn("extraction retries exhausted, ending scan early")
			return &ScanIncompleteError{Collected: yielded, Err: err}
		}

		newFound := 0
		for _, v := range visible {
			if _, ok := e.seen[v.ProfileID]; ok {
				continue
			}
			e.seen[v.ProfileID] = struct{}{}
			newFound++

			rec := models.FollowerRecord{
				ProfileID:    v.ProfileID,
				Username:     v.Username,
				DisplayName:  v.DisplayName,
				DiscoveredAt: time.Now(),
			}
			yielded++
			if !yield(rec) {
				return nil
			}
			if e.cfg.ScanLimit > 0 && yielded >= e.cfg.ScanLimit {
				e.logger.WithField("scanned", yielded).Info("scan limit reached")
				return nil
			}
		}

		e.logger.DebugWithFields("scroll batch processed", map[string]interface{}{
			"scroll":  scrolls + 1,
			"visible": len(visible),
			"new":     newFound,
			"total":   yielded,
		})

		if atEnd {
			e.logger.WithField("scanned", yielded).Info("end of follower list")
			return nil
		}

		if newFound == 0 {
			stalls++
			if stalls >= e.cfg.StallThreshold {
				e.logger.WithField("scanned", yielded).Info("no more followers to load")
				return nil
			}
		} else {
			stalls = 0
		}

		if err := retry.Wait(ctx, e.policy.DelayBeforeScroll()); err != nil {
			return err
		}

		res, err := e.scrollWithRetry(ctx, backoff)
		if err != nil {
			e.logger.WithError(err).Warn("scroll retries exhausted, ending scan early")
			return &ScanIncompleteError{Collected: yielded, Err: err}
		}
		// One more extraction pass picks up anything the final scroll
		// rendered before we stop.
		atEnd = res.AtEnd
	}

	e.logger.WithField("scanned", yielded).Warn("max scroll attempts reached")
	return nil
}

// SeenCount returns how many distinct profiles were observed this run
func (e *Enumerator) SeenCount() int {
	return len(e.seen)
}

func (e *Enumerator) extractWithRetry(ctx context.Context, backoff retry.BackoffStrategy) ([]browser.VisibleFollower, error) {
	return retry.DoWithResult(func() ([]browser.VisibleFollower, error) {
		return e.session.ExtractVisibleFollowers(ctx)
	}, &retry.Config{
		MaxAttempts: e.cfg.MaxExtractionRetries,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      e.logger,
	})
}

func (e *Enumerator) scrollWithRetry(ctx context.Context, backoff retry.BackoffStrategy) (browser.ScrollResult, error) {
	return retry.DoWithResult(func() (browser.ScrollResult, error) {
		e.policy.WaitAction()
		return e.session.ScrollFollowerList(ctx)
	}, &retry.Config{
		MaxAttempts: e.cfg.MaxExtractionRetries,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      e.logger,
	})
}
