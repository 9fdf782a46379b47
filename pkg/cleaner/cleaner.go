// Package cleaner contains the removal orchestrator: the state machine that
// drives authentication, follower scanning, classification, operator review,
// removal with retry and circuit-breaker policy, and report flushing.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"followersweep/pkg/browser"
	"followersweep/pkg/classifier"
	"followersweep/pkg/config"
	"followersweep/pkg/enumerator"
	errs "followersweep/pkg/errors"
	"followersweep/pkg/logger"
	"followersweep/pkg/models"
	"followersweep/pkg/ratelimit"
	"followersweep/pkg/report"
	"followersweep/pkg/retry"
	"followersweep/pkg/ui"
)

// Options are the per-run choices made on the command line.
type Options struct {
	TargetHandle     string
	DryRun           bool
	SkipConfirmation bool
}

// ConfirmFunc asks the operator a yes/no question
type ConfirmFunc func(message string, def bool) bool

// ReviewFunc presents the candidate list to the operator
type ReviewFunc func(candidates []models.ClassifiedRecord)

// Result is what a finished run hands back to the CLI.
type Result struct {
	State     *models.RunState
	Artifacts *report.Artifacts
}

// Cleaner orchestrates a single cleanup run. All run state is owned here;
// the browser session is injected and released by the caller.
type Cleaner struct {
	cfg        *config.Config
	session    browser.Session
	classifier *classifier.Classifier
	policy     *ratelimit.DelayPolicy
	reporter   *report.Reporter
	logger     logger.Logger

	confirm ConfirmFunc
	review  ReviewFunc

	opts  Options
	state models.RunState
}

// New creates a Cleaner for one run
func New(cfg *config.Config, session browser.Session, opts Options) (*Cleaner, error) {
	if opts.TargetHandle == "" {
		return nil, fmt.Errorf("target handle is required")
	}

	log := logger.GetLogger()

	extra := cfg.Detection.ExtraPatterns
	if cfg.Detection.UseSuspiciousPatterns {
		extra = append(classifier.DefaultSuspiciousPatterns, extra...)
	}
	cls, err := classifier.New(cfg.Detection.MinTrailingDigits, extra)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	var limiter ratelimit.Limiter
	if cfg.Limits.ActionsPerMinute > 0 {
		limiter = ratelimit.NewSlidingWindow(cfg.Limits.ActionsPerMinute, time.Minute)
	}
	policy := ratelimit.NewDelayPolicy(
		cfg.Delays.AfterScroll,
		cfg.Delays.BetweenRemovals,
		cfg.Delays.JitterFactor,
		limiter,
	)

	mode := models.ModeLive
	if opts.DryRun {
		mode = models.ModeDryRun
	}

	c := &Cleaner{
		cfg:        cfg,
		session:    session,
		classifier: cls,
		policy:     policy,
		reporter:   report.NewReporter(cfg.Output.ReportsDir, cfg.Output.BackupsDir, log),
		logger:     log,
		confirm:    ui.Confirm,
		review: func(candidates []models.ClassifiedRecord) {
			fmt.Println(ui.RenderCandidateList(candidates))
		},
		opts: opts,
		state: models.RunState{
			RunID:        uuid.NewString(),
			TargetHandle: opts.TargetHandle,
			Mode:         mode,
			Limit:        cfg.Limits.Limit,
			DailyCap:     cfg.Limits.DailyCap,
			Phase:        models.PhaseIdle,
		},
	}
	return c, nil
}

// SetConfirmFunc replaces the operator confirmation prompt
func (c *Cleaner) SetConfirmFunc(f ConfirmFunc) {
	c.confirm = f
}

// SetReviewFunc replaces the candidate list presentation
func (c *Cleaner) SetReviewFunc(f ReviewFunc) {
	c.review = f
}

// State returns a copy of the current run state
func (c *Cleaner) State() models.RunState {
	return c.state
}

// Run executes the full state machine. Every exit path except an
// authentication failure flushes the report artifacts; an authentication
// failure has no partial work to report.
func (c *Cleaner) Run(ctx context.Context) (*Result, error) {
	c.state.StartedAt = time.Now()

	c.logger.InfoWithFields("starting cleanup run", map[string]interface{}{
		"run_id":    c.state.RunID,
		"target":    c.state.TargetHandle,
		"mode":      string(c.state.Mode),
		"limit":     c.state.Limit,
		"daily_cap": c.state.DailyCap,
	})

	// Authenticating. Fatal on timeout, nothing to report yet.
	c.transition(models.PhaseAuthenticating)
	if err := c.authenticate(ctx); err != nil {
		c.state.Phase = models.PhaseAborted
		c.state.EndedAt = time.Now()
		return nil, err
	}

	if err := c.session.NavigateToFollowers(ctx, c.state.TargetHandle); err != nil {
		c.reporter.RecordRunError(err)
		return c.finish(true, err)
	}

	// Scanning. Only suspected bots are retained; the rest are discarded
	// after tallying to bound memory.
	c.transition(models.PhaseScanning)
	candidates, scanned, scanErr := c.scan(ctx)
	if scanErr != nil {
		var incomplete *enumerator.ScanIncompleteError
		if errors.As(scanErr, &incomplete) {
			c.logger.WithError(scanErr).Warn("continuing with partial follower set")
			c.reporter.RecordRunError(scanErr)
		} else {
			c.reporter.RecordRunError(scanErr)
			return c.finish(true, scanErr)
		}
	}
	c.reporter.SetTotalScanned(scanned)

	c.logger.InfoWithFields("scan finished", map[string]interface{}{
		"scanned":    scanned,
		"candidates": len(candidates),
	})

	// Reviewing. Presentation only, no state mutation.
	c.transition(models.PhaseReviewing)
	if len(candidates) > 0 {
		c.review(candidates)
	}

	// AwaitingConfirmation. Skipped for dry runs and --yes.
	if !c.opts.DryRun && !c.opts.SkipConfirmation && len(candidates) > 0 {
		c.transition(models.PhaseAwaitingConfirmation)
		msg := fmt.Sprintf("Proceed with removing %d suspected bot followers from @%s?",
			len(candidates), c.state.TargetHandle)
		if !c.confirm(msg, false) {
			c.logger.Info("removal declined by operator")
			for _, cand := range candidates {
				c.recordOutcome(cand, models.Outcome{
					Kind:   models.OutcomeSkipped,
					Reason: models.SkipReasonDeclined,
				})
			}
			return c.finish(true, nil)
		}
	}

	// Removing, or marking DryRunOnly without touching the collaborator.
	aborted := false
	if len(candidates) > 0 {
		c.transition(models.PhaseRemoving)
		aborted = c.remove(ctx, candidates)
	}

	return c.finish(aborted, nil)
}

// authenticate polls the collaborator until it reports a logged-in session
// or the login timeout elapses.
func (c *Cleaner) authenticate(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.Browser.LoginTimeout)
	lastNotice := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.KindAuthentication, "cancelled while waiting for login", err)
		}

		ok, err := c.session.IsAuthenticated(ctx)
		if err != nil {
			c.logger.WithError(err).Debug("authentication check failed")
		}
		if ok {
			c.logger.Info("authenticated session detected")
			return nil
		}

		if time.Now().After(deadline) {
			return errs.New(errs.KindAuthentication,
				fmt.Sprintf("no authenticated session within %s", c.cfg.Browser.LoginTimeout))
		}

		if time.Since(lastNotice) >= 30*time.Second {
			remaining := time.Until(deadline).Round(time.Second)
			c.logger.WithField("remaining", remaining.String()).Info("still waiting for login")
			lastNotice = time.Now()
		}

		if err := retry.Wait(ctx, c.cfg.Delays.LoginCheckInterval); err != nil {
			return errs.Wrap(errs.KindAuthentication, "cancelled while waiting for login", err)
		}
	}
}

// scan drives the enumerator, classifying each record as it arrives.
func (c *Cleaner) scan(ctx context.Context) ([]models.ClassifiedRecord, int, error) {
	enum := enumerator.New(c.session, c.policy, enumerator.Config{
		ScanLimit:            0,
		StallThreshold:       c.cfg.Limits.StallThreshold,
		MaxScrollAttempts:    c.cfg.Limits.MaxScrollAttempts,
		MaxExtractionRetries: c.cfg.Limits.MaxRetryAttempts,
	}, c.logger)

	var candidates []models.ClassifiedRecord
	scanned := 0

	err := enum.Run(ctx, func(rec models.FollowerRecord) bool {
		scanned++
		verdict := c.classifier.Classify(rec.Username)
		if verdict.SuspectedBot {
			c.logger.InfoWithFields("bot detected", map[string]interface{}{
				"username": rec.Username,
				"pattern":  verdict.MatchedPattern,
			})
			candidates = append(candidates, models.ClassifiedRecord{
				FollowerRecord: rec,
				Classification: verdict,
			})
		}
		return true
	})

	return candidates, scanned, err
}

// remove processes candidates in enumeration order. Returns true when the
// queue was aborted early (circuit breaker or cancellation).
func (c *Cleaner) remove(ctx context.Context, candidates []models.ClassifiedRecord) bool {
	if c.opts.DryRun {
		for _, cand := range candidates {
			c.recordOutcome(cand, models.Outcome{Kind: models.OutcomeDryRunOnly})
		}
		c.logger.WithField("candidates", len(candidates)).Info("dry run, no followers removed")
		return false
	}

	consecutiveFailures := 0

	for i, cand := range candidates {
		if ctx.Err() != nil {
			c.skipRemaining(candidates[i:], models.SkipReasonCancelled)
			return true
		}

		// Budget is checked before every attempt and never bypassed by
		// retries.
		if c.policy.RemainingBudget(&c.state) == 0 {
			c.logger.WithField("removed", c.state.RemovedCount).Info("removal budget exhausted")
			c.skipRemaining(candidates[i:], models.SkipReasonBudgetExhausted)
			return false
		}

		if err := retry.Wait(ctx, c.policy.DelayBeforeRemoval()); err != nil {
			c.skipRemaining(candidates[i:], models.SkipReasonCancelled)
			return true
		}

		err := c.removeOne(ctx, cand)
		if err == nil {
			c.recordOutcome(cand, models.Outcome{Kind: models.OutcomeRemoved})
			consecutiveFailures = 0
			c.logger.InfoWithFields("follower removed", map[string]interface{}{
				"username": cand.Username,
				"removed":  c.state.RemovedCount,
				"budget":   c.state.Budget(),
			})
			continue
		}

		if ctx.Err() != nil {
			c.skipRemaining(candidates[i:], models.SkipReasonCancelled)
			return true
		}

		c.recordOutcome(cand, models.Outcome{Kind: models.OutcomeFailed, Reason: err.Error()})
		consecutiveFailures++
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"username":             cand.Username,
			"consecutive_failures": consecutiveFailures,
		}).Warn("failed to remove follower")

		if consecutiveFailures >= c.cfg.Limits.CircuitBreakerThreshold {
			tripErr := errs.New(errs.KindCircuitBreaker,
				fmt.Sprintf("%d consecutive removal failures", consecutiveFailures))
			c.reporter.RecordRunError(tripErr)
			c.logger.Error(tripErr.Error())
			c.skipRemaining(candidates[i+1:], models.SkipReasonCircuitBreaker)
			return true
		}
	}

	return false
}

// removeOne performs one removal with bounded retry and backoff. The
// per-minute action ceiling is honored on every attempt.
func (c *Cleaner) removeOne(ctx context.Context, cand models.ClassifiedRecord) error {
	return retry.Do(func() error {
		c.policy.WaitAction()
		return c.session.RemoveFollower(ctx, cand.ProfileID)
	}, &retry.Config{
		MaxAttempts: c.cfg.Limits.MaxRetryAttempts,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     browser.IsTransient,
		Context:     ctx,
		Logger:      c.logger,
	})
}

func (c *Cleaner) skipRemaining(rest []models.ClassifiedRecord, reason string) {
	for _, cand := range rest {
		c.recordOutcome(cand, models.Outcome{Kind: models.OutcomeSkipped, Reason: reason})
	}
}

// recordOutcome updates the tallies and hands the entry to the reporter
func (c *Cleaner) recordOutcome(cand models.ClassifiedRecord, outcome models.Outcome) {
	c.state.ProcessedCount++
	switch outcome.Kind {
	case models.OutcomeRemoved:
		c.state.RemovedCount++
	case models.OutcomeFailed:
		c.state.FailedCount++
	case models.OutcomeSkipped:
		c.state.SkippedCount++
	case models.OutcomeDryRunOnly:
		c.state.DryRunCount++
	}

	c.reporter.Record(report.Entry{
		Record:         cand.FollowerRecord,
		Classification: cand.Classification,
		Outcome:        outcome,
	})
}

// finish runs the Reporting phase and settles the terminal phase. Artifact
// write failure is fatal: the run must not claim success without its audit
// trail.
func (c *Cleaner) finish(aborted bool, runErr error) (*Result, error) {
	c.transition(models.PhaseReporting)
	c.state.EndedAt = time.Now()

	// Settle the terminal phase before flushing so the report records it.
	if aborted || runErr != nil {
		c.state.Phase = models.PhaseAborted
	} else {
		c.state.Phase = models.PhaseCompleted
	}

	artifacts, err := c.reporter.Flush(&c.state)
	if err != nil {
		c.state.Phase = models.PhaseAborted
		c.logger.WithError(err).Error("failed to write artifacts")
		if runErr != nil {
			return nil, errors.Join(runErr, err)
		}
		return nil, err
	}

	c.logger.InfoWithFields("run finished", map[string]interface{}{
		"phase":     string(c.state.Phase),
		"processed": c.state.ProcessedCount,
		"removed":   c.state.RemovedCount,
		"failed":    c.state.FailedCount,
		"skipped":   c.state.SkippedCount,
	})

	return &Result{State: &c.state, Artifacts: artifacts}, runErr
}

func (c *Cleaner) transition(next models.Phase) {
	c.logger.DebugWithFields("phase transition", map[string]interface{}{
		"from": string(c.state.Phase),
		"to":   string(next),
	})
	c.state.Phase = next
}
