package cleaner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followersweep/pkg/browser"
	"followersweep/pkg/config"
	errs "followersweep/pkg/errors"
	"followersweep/pkg/models"
	"followersweep/pkg/report"
)

// fakeSession serves a fixed follower list and records removal calls. The
// optional extractFn and scrollFn hooks script per-call behavior for runs
// that span more than one viewport.
type fakeSession struct {
	authenticated bool
	followers     []browser.VisibleFollower
	removeErr     func(profileID string) error
	extractFn     func(call int) ([]browser.VisibleFollower, error)
	scrollFn      func(call int) (browser.ScrollResult, error)

	extractCalls int
	scrollCalls  int
	removed      []string
	navigated    string
	closed       bool
}

func (f *fakeSession) IsAuthenticated(ctx context.Context) (bool, error) {
	return f.authenticated, nil
}

func (f *fakeSession) NavigateToFollowers(ctx context.Context, handle string) error {
	f.navigated = handle
	return nil
}

func (f *fakeSession) ScrollFollowerList(ctx context.Context) (browser.ScrollResult, error) {
	f.scrollCalls++
	if f.scrollFn != nil {
		return f.scrollFn(f.scrollCalls)
	}
	return browser.ScrollResult{NewHeight: 100, AtEnd: true}, nil
}

func (f *fakeSession) ExtractVisibleFollowers(ctx context.Context) ([]browser.VisibleFollower, error) {
	f.extractCalls++
	if f.extractFn != nil {
		return f.extractFn(f.extractCalls)
	}
	return f.followers, nil
}

func (f *fakeSession) RemoveFollower(ctx context.Context, profileID string) error {
	if f.removeErr != nil {
		if err := f.removeErr(profileID); err != nil {
			return err
		}
	}
	f.removed = append(f.removed, profileID)
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func follower(id string) browser.VisibleFollower {
	return browser.VisibleFollower{ProfileID: id, Username: id, DisplayName: id}
}

// bots generates n usernames the default trailing-digit rule flags.
func bots(n int) []browser.VisibleFollower {
	out := make([]browser.VisibleFollower, n)
	for i := range out {
		out[i] = follower("bot" + string(rune('a'+i)) + "12345")
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Browser.LoginTimeout = 200 * time.Millisecond
	cfg.Delays.LoginCheckInterval = 10 * time.Millisecond
	cfg.Delays.BetweenRemovals = 0
	cfg.Delays.AfterScroll = 0
	cfg.Delays.JitterFactor = 0
	cfg.Limits.MaxRetryAttempts = 1
	cfg.Limits.ActionsPerMinute = 0
	cfg.Output.ReportsDir = filepath.Join(dir, "reports")
	cfg.Output.BackupsDir = filepath.Join(dir, "backups")
	return cfg
}

func newCleaner(t *testing.T, cfg *config.Config, session *fakeSession, opts Options) *Cleaner {
	t.Helper()
	c, err := New(cfg, session, opts)
	require.NoError(t, err)
	// Tests never prompt.
	c.SetReviewFunc(func([]models.ClassifiedRecord) {})
	return c
}

func readReport(t *testing.T, path string) *report.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc report.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	return &doc
}

func TestDryRunRemovesNothing(t *testing.T) {
	session := &fakeSession{
		authenticated: true,
		followers: []browser.VisibleFollower{
			follower("alice"),
			follower("bob123456"),
			follower("carol99"),
			follower("dave_2024"),
			follower("crypto_bot99999"),
		},
	}

	c := newCleaner(t, testConfig(t), session, Options{
		TargetHandle: "myaccount",
		DryRun:       true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, session.removed, "dry run must not remove anyone")
	assert.Equal(t, "myaccount", session.navigated)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Equal(t, models.ModeDryRun, state.Mode)
	assert.Equal(t, 2, state.DryRunCount, "bob123456 and crypto_bot99999 should be flagged")
	assert.Equal(t, 2, state.ProcessedCount)
	assert.Zero(t, state.RemovedCount)
	assert.Zero(t, state.FailedCount)
	assert.Zero(t, state.SkippedCount)

	doc := readReport(t, result.Artifacts.ReportPath)
	assert.Equal(t, 5, doc.TotalScanned)
	assert.Equal(t, 2, doc.BotsIdentified)
	for _, e := range doc.Followers {
		assert.Equal(t, models.OutcomeDryRunOnly, e.Outcome.Kind)
	}
}

func TestLiveRunRemovesCandidates(t *testing.T) {
	session := &fakeSession{
		authenticated: true,
		followers:     append(bots(3), follower("realperson")),
	}

	c := newCleaner(t, testConfig(t), session, Options{TargetHandle: "myaccount"})
	confirmed := false
	c.SetConfirmFunc(func(msg string, def bool) bool {
		confirmed = true
		return true
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, confirmed, "live run should ask for confirmation")
	assert.Len(t, session.removed, 3)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Equal(t, 3, state.RemovedCount)
	assert.Equal(t, 3, state.ProcessedCount)
	assert.Zero(t, state.FailedCount)
	assert.Zero(t, state.SkippedCount)

	// Backup lists every removed follower.
	data, err := os.ReadFile(result.Artifacts.BackupPath)
	require.NoError(t, err)
	var backup struct {
		Followers []report.Entry `json:"followers"`
	}
	require.NoError(t, json.Unmarshal(data, &backup))
	assert.Len(t, backup.Followers, 3)
}

func TestTruncatedScanProceedsWithPartialSet(t *testing.T) {
	// One viewport loads normally, then the follower list stops rendering
	// for good. The run must keep the followers it already has.
	firstWindow := append(bots(2), follower("realperson"))
	session := &fakeSession{
		authenticated: true,
		extractFn: func(call int) ([]browser.VisibleFollower, error) {
			if call == 1 {
				return firstWindow, nil
			}
			return nil, browser.NewFatalError("follower cells missing", nil)
		},
		scrollFn: func(call int) (browser.ScrollResult, error) {
			return browser.ScrollResult{NewHeight: int64(call) * 100}, nil
		},
	}

	c := newCleaner(t, testConfig(t), session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err, "a truncated scan must not abort the run")

	assert.GreaterOrEqual(t, session.extractCalls, 2, "scan should have attempted a second viewport")
	assert.Equal(t, []string{firstWindow[0].ProfileID, firstWindow[1].ProfileID}, session.removed)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Equal(t, 2, state.RemovedCount)
	assert.Equal(t, 2, state.ProcessedCount)

	doc := readReport(t, result.Artifacts.ReportPath)
	assert.Equal(t, 3, doc.TotalScanned)
	assert.Equal(t, 2, doc.BotsIdentified)
	require.NotEmpty(t, doc.Errors, "the truncation must be recorded in the report")
	assert.Contains(t, doc.Errors[0], "scan incomplete after 3 followers")
}

func TestSkipConfirmationFlag(t *testing.T) {
	session := &fakeSession{authenticated: true, followers: bots(2)}

	c := newCleaner(t, testConfig(t), session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})
	c.SetConfirmFunc(func(msg string, def bool) bool {
		t.Error("confirmation prompt must not fire with --yes")
		return false
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.State.RemovedCount)
}

func TestLimitCapsRemovals(t *testing.T) {
	session := &fakeSession{authenticated: true, followers: bots(10)}

	cfg := testConfig(t)
	cfg.Limits.Limit = 5

	c := newCleaner(t, cfg, session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, session.removed, 5)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase, "hitting the budget is a normal completion")
	assert.Equal(t, 5, state.RemovedCount)
	assert.Equal(t, 5, state.SkippedCount)
	assert.Equal(t, 10, state.ProcessedCount)

	doc := readReport(t, result.Artifacts.ReportPath)
	skipped := 0
	for _, e := range doc.Followers {
		if e.Outcome.Kind == models.OutcomeSkipped {
			skipped++
			assert.Equal(t, models.SkipReasonBudgetExhausted, e.Outcome.Reason)
		}
	}
	assert.Equal(t, 5, skipped)
}

func TestDailyCapBindsBelowLimit(t *testing.T) {
	session := &fakeSession{authenticated: true, followers: bots(6)}

	cfg := testConfig(t)
	cfg.Limits.Limit = 100
	cfg.Limits.DailyCap = 4

	c := newCleaner(t, cfg, session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.State.RemovedCount)
	assert.Equal(t, 2, result.State.SkippedCount)
}

func TestDeclineSkipsEveryCandidate(t *testing.T) {
	session := &fakeSession{authenticated: true, followers: bots(4)}

	c := newCleaner(t, testConfig(t), session, Options{TargetHandle: "myaccount"})
	c.SetConfirmFunc(func(msg string, def bool) bool { return false })

	result, err := c.Run(context.Background())
	require.NoError(t, err, "declining is not a run failure")

	assert.Empty(t, session.removed)

	state := result.State
	assert.Equal(t, models.PhaseAborted, state.Phase)
	assert.Equal(t, 4, state.SkippedCount)
	assert.Equal(t, 4, state.ProcessedCount)
	assert.Zero(t, state.RemovedCount)

	doc := readReport(t, result.Artifacts.ReportPath)
	for _, e := range doc.Followers {
		assert.Equal(t, models.SkipReasonDeclined, e.Outcome.Reason)
	}
}

func TestCircuitBreakerTripsOnConsecutiveFailures(t *testing.T) {
	session := &fakeSession{
		authenticated: true,
		followers:     bots(8),
		removeErr: func(profileID string) error {
			return browser.NewFatalError("remove button missing", nil)
		},
	}

	cfg := testConfig(t)
	cfg.Limits.CircuitBreakerThreshold = 3

	c := newCleaner(t, cfg, session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err, "a tripped breaker aborts but still reports")

	state := result.State
	assert.Equal(t, models.PhaseAborted, state.Phase)
	assert.Equal(t, 3, state.FailedCount)
	assert.Equal(t, 5, state.SkippedCount)
	assert.Equal(t, 8, state.ProcessedCount)
	assert.Zero(t, state.RemovedCount)

	doc := readReport(t, result.Artifacts.ReportPath)
	require.NotEmpty(t, doc.Errors)
	skippedReasons := map[string]int{}
	for _, e := range doc.Followers {
		if e.Outcome.Kind == models.OutcomeSkipped {
			skippedReasons[e.Outcome.Reason]++
		}
	}
	assert.Equal(t, 5, skippedReasons[models.SkipReasonCircuitBreaker])
}

func TestFailuresResetOnSuccess(t *testing.T) {
	// Alternating failures never reach the consecutive threshold.
	session := &fakeSession{authenticated: true, followers: bots(6)}
	fail := true
	session.removeErr = func(profileID string) error {
		fail = !fail
		if !fail {
			return nil
		}
		return browser.NewFatalError("remove button missing", nil)
	}

	cfg := testConfig(t)
	cfg.Limits.CircuitBreakerThreshold = 2

	c := newCleaner(t, cfg, session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Equal(t, 3, state.RemovedCount)
	assert.Equal(t, 3, state.FailedCount)
	assert.Zero(t, state.SkippedCount)
}

func TestAuthenticationTimeoutAborts(t *testing.T) {
	session := &fakeSession{authenticated: false, followers: bots(2)}

	cfg := testConfig(t)
	c := newCleaner(t, cfg, session, Options{TargetHandle: "myaccount"})

	result, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)

	var runErr *errs.Error
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, errs.KindAuthentication, runErr.Kind)

	assert.Equal(t, models.PhaseAborted, c.State().Phase)
	assert.Empty(t, session.removed)

	// No artifacts: there is nothing to report.
	entries, readErr := os.ReadDir(cfg.Output.ReportsDir)
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestCancellationSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	session := &fakeSession{authenticated: true, followers: bots(5)}
	count := 0
	session.removeErr = func(profileID string) error {
		count++
		if count == 2 {
			cancel()
		}
		return nil
	}

	c := newCleaner(t, testConfig(t), session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(ctx)
	require.NoError(t, err)

	state := result.State
	assert.Equal(t, models.PhaseAborted, state.Phase)
	assert.Equal(t, 2, state.RemovedCount)
	assert.Equal(t, 3, state.SkippedCount)
	assert.Equal(t, 5, state.ProcessedCount)
}

func TestCountsReconcile(t *testing.T) {
	session := &fakeSession{authenticated: true, followers: bots(7)}
	n := 0
	session.removeErr = func(profileID string) error {
		n++
		if n%3 == 0 {
			return browser.NewFatalError("remove button missing", nil)
		}
		return nil
	}

	cfg := testConfig(t)
	cfg.Limits.CircuitBreakerThreshold = 10

	c := newCleaner(t, cfg, session, Options{
		TargetHandle:     "myaccount",
		SkipConfirmation: true,
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	state := result.State
	assert.Equal(t, state.ProcessedCount,
		state.RemovedCount+state.FailedCount+state.SkippedCount,
		"every processed candidate has exactly one outcome")
	assert.Equal(t, 7, state.ProcessedCount)
}

func TestNoCandidatesCompletesQuietly(t *testing.T) {
	session := &fakeSession{
		authenticated: true,
		followers:     []browser.VisibleFollower{follower("alice"), follower("jane_doe")},
	}

	c := newCleaner(t, testConfig(t), session, Options{TargetHandle: "myaccount"})
	c.SetConfirmFunc(func(msg string, def bool) bool {
		t.Error("no confirmation should be requested without candidates")
		return false
	})

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	state := result.State
	assert.Equal(t, models.PhaseCompleted, state.Phase)
	assert.Zero(t, state.ProcessedCount)
	assert.Empty(t, session.removed)

	doc := readReport(t, result.Artifacts.ReportPath)
	assert.Equal(t, 2, doc.TotalScanned)
	assert.Zero(t, doc.BotsIdentified)
}

func TestNewRejectsEmptyHandle(t *testing.T) {
	_, err := New(testConfig(t), &fakeSession{}, Options{})
	assert.Error(t, err)
}
