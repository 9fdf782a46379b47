// Package browser defines the browser-automation collaborator the cleanup
// engine drives, and provides a Chrome DevTools implementation of it. The
// engine only ever talks to the Session interface; tests substitute fakes.
package browser

import (
	"context"
	"errors"

	errs "followersweep/pkg/errors"
)

// VisibleFollower is one follower cell currently rendered in the list.
type VisibleFollower struct {
	ProfileID   string
	Username    string
	DisplayName string
}

// ScrollResult describes what a scroll step did to the follower list.
type ScrollResult struct {
	// NewHeight is the document scroll height after the scroll settled
	NewHeight int64
	// AtEnd is true when the scroll produced no further content
	AtEnd bool
}

// Session is the narrow contract the cleanup engine consumes. A session is
// a scoped resource: acquired at run start, released via Close on every
// exit path.
type Session interface {
	// IsAuthenticated reports whether the platform considers the current
	// browser session logged in.
	IsAuthenticated(ctx context.Context) (bool, error)

	// NavigateToFollowers opens the followers page for the given handle and
	// waits for the first follower cells to render.
	NavigateToFollowers(ctx context.Context, handle string) error

	// ScrollFollowerList advances the follower list by one scroll step and
	// waits for it to settle.
	ScrollFollowerList(ctx context.Context) (ScrollResult, error)

	// ExtractVisibleFollowers returns the follower cells currently rendered.
	ExtractVisibleFollowers(ctx context.Context) ([]VisibleFollower, error)

	// RemoveFollower performs the remove-follower action for the profile.
	// Errors are transient (worth retrying) or fatal; see IsTransient.
	RemoveFollower(ctx context.Context, profileID string) error

	// Close releases the browser session.
	Close() error
}

// NewTransientError wraps a recoverable browser failure
func NewTransientError(message string, err error) error {
	return errs.Wrap(errs.KindTransientRemoval, message, err)
}

// NewFatalError wraps a browser failure that should not be retried
func NewFatalError(message string, err error) error {
	return errs.Wrap(errs.KindFatalRemoval, message, err)
}

// IsTransient reports whether a collaborator error is worth retrying
func IsTransient(err error) bool {
	var runErr *errs.Error
	if errors.As(err, &runErr) {
		return errs.IsRetryable(runErr.Kind)
	}
	return false
}
