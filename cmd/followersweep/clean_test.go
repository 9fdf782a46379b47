package main

import (
	"context"
	"errors"
	"testing"

	"followersweep/pkg/browser"
	"followersweep/pkg/config"
	"followersweep/pkg/logger"
)

// stubSession fails on navigation so runClean hits its error path without
// launching a browser.
type stubSession struct {
	navErr error
	closed bool
}

func (s *stubSession) IsAuthenticated(ctx context.Context) (bool, error) { return true, nil }

func (s *stubSession) NavigateToFollowers(ctx context.Context, handle string) error {
	return s.navErr
}

func (s *stubSession) ScrollFollowerList(ctx context.Context) (browser.ScrollResult, error) {
	return browser.ScrollResult{AtEnd: true}, nil
}

func (s *stubSession) ExtractVisibleFollowers(ctx context.Context) ([]browser.VisibleFollower, error) {
	return nil, nil
}

func (s *stubSession) RemoveFollower(ctx context.Context, profileID string) error { return nil }

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func TestRunCleanClosesSessionOnError(t *testing.T) {
	stub := &stubSession{navErr: errors.New("profile page gone")}

	origSession := newSession
	newSession = func(cfg *config.Config, log logger.Logger) (browser.Session, error) {
		return stub, nil
	}
	defer func() { newSession = origSession }()

	origUser, origOutput := userID, outputDir
	userID = "myhandle"
	outputDir = t.TempDir()
	defer func() { userID, outputDir = origUser, origOutput }()

	err := runClean(cleanCmd, nil)
	if err == nil {
		t.Fatal("expected the navigation failure to surface as an error")
	}
	if !stub.closed {
		t.Error("browser session must be released when the run fails")
	}
}
