package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"followersweep/pkg/config"
	errs "followersweep/pkg/errors"
	"followersweep/pkg/logger"
)

// ChromeSession drives a real Chrome instance over the DevTools protocol.
// It uses a persistent user data directory so a manual login survives
// across runs.
type ChromeSession struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	pageTimeout time.Duration
	settleDelay time.Duration
	logger      logger.Logger
}

// NewChromeSession launches Chrome and opens the platform's home page. The
// caller owns the session and must Close it on every exit path.
func NewChromeSession(cfg *config.BrowserConfig, settleDelay time.Duration, log logger.Logger) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.UserDataDir),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		pageTimeout: cfg.PageTimeout,
		settleDelay: settleDelay,
		logger:      log,
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.PageTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(baseURL)); err != nil {
		// The platform keeps network activity going forever; a slow initial
		// load is not fatal as long as the browser came up.
		if !errors.Is(err, context.DeadlineExceeded) {
			s.Close()
			return nil, errs.Wrap(errs.KindBrowser, "failed to launch browser", err)
		}
		log.Warn("initial page load slow, continuing anyway")
	}

	return s, nil
}

// Close releases the browser and its allocator
func (s *ChromeSession) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	return nil
}

// IsAuthenticated checks for the logged-in account switcher or the home
// timeline column.
func (s *ChromeSession) IsAuthenticated(ctx context.Context) (bool, error) {
	js := fmt.Sprintf(
		`document.querySelector(%q) !== null || document.querySelector(%q) !== null`,
		selProfileButton, selPrimaryColumn,
	)

	var loggedIn bool
	if err := s.run(ctx, 10*time.Second, chromedp.Evaluate(js, &loggedIn)); err != nil {
		return false, err
	}
	return loggedIn, nil
}

// NavigateToFollowers opens the followers page and waits for cells to render
func (s *ChromeSession) NavigateToFollowers(ctx context.Context, handle string) error {
	url := fmt.Sprintf(followersURLFmt, handle)
	s.logger.WithField("url", url).Info("navigating to followers page")

	err := s.run(ctx, s.pageTimeout,
		chromedp.Navigate(url),
		chromedp.WaitVisible(selFollowerCell, chromedp.ByQuery),
	)
	if err != nil {
		return errs.Wrap(errs.KindBrowser, "followers page did not load", err)
	}
	return nil
}

// ScrollFollowerList advances the list one step and waits for it to settle
func (s *ChromeSession) ScrollFollowerList(ctx context.Context) (ScrollResult, error) {
	js := fmt.Sprintf(`(() => {
		const before = document.body.scrollHeight;
		window.scrollBy(0, %d);
		return before;
	})()`, scrollStepPixels)

	var before int64
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(js, &before)); err != nil {
		return ScrollResult{}, errs.Wrap(errs.KindBrowser, "scroll failed", err)
	}

	// Give the virtualized list time to render the next chunk.
	if err := sleepCtx(ctx, s.settleDelay); err != nil {
		return ScrollResult{}, err
	}

	const afterJS = `({height: document.body.scrollHeight, atBottom: window.innerHeight + window.scrollY >= document.body.scrollHeight - 1})`
	var after struct {
		Height   int64 `json:"height"`
		AtBottom bool  `json:"atBottom"`
	}
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(afterJS, &after)); err != nil {
		return ScrollResult{}, errs.Wrap(errs.KindBrowser, "scroll settle check failed", err)
	}

	return ScrollResult{
		NewHeight: after.Height,
		AtEnd:     after.AtBottom && after.Height == before,
	}, nil
}

// ExtractVisibleFollowers reads all currently rendered follower cells
func (s *ChromeSession) ExtractVisibleFollowers(ctx context.Context) ([]VisibleFollower, error) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(cell => {
		const link = cell.querySelector('a[role="link"][href^="/"]');
		if (!link) return null;
		const href = link.getAttribute('href') || '';
		const username = href.replace(/^\//, '').split('/')[0];
		const nameSpan = cell.querySelector('[dir="ltr"] > span');
		return {
			profile_id: username.toLowerCase(),
			username: username,
			display_name: nameSpan ? nameSpan.textContent : ''
		};
	}).filter(f => f && f.username &&
		!['home', 'explore', 'notifications', 'messages'].includes(f.username))`,
		selFollowerCell)

	var raw []struct {
		ProfileID   string `json:"profile_id"`
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, errs.Wrap(errs.KindBrowser, "follower extraction failed", err)
	}

	followers := make([]VisibleFollower, 0, len(raw))
	for _, f := range raw {
		followers = append(followers, VisibleFollower{
			ProfileID:   f.ProfileID,
			Username:    f.Username,
			DisplayName: f.DisplayName,
		})
	}
	return followers, nil
}

// RemoveFollower drives the cell menu -> remove entry -> confirmation dialog
// sequence for the given profile.
func (s *ChromeSession) RemoveFollower(ctx context.Context, profileID string) error {
	status, err := s.openCellMenu(ctx, profileID)
	if err != nil {
		return NewTransientError("could not open follower menu", err)
	}
	switch status {
	case "ok":
	case "not_found":
		// The cell may have scrolled out of the virtualized list.
		return NewTransientError(fmt.Sprintf("follower %s not visible", profileID), nil)
	default:
		s.pressEscape(ctx)
		return NewTransientError(fmt.Sprintf("no menu button for %s", profileID), nil)
	}

	if err := s.run(ctx, 3*time.Second, chromedp.WaitVisible(selMenuItem, chromedp.ByQuery)); err != nil {
		s.pressEscape(ctx)
		return NewTransientError("follower menu did not appear", err)
	}

	clicked, err := s.clickRemoveMenuItem(ctx)
	if err != nil {
		s.pressEscape(ctx)
		return NewTransientError("failed to click remove entry", err)
	}
	if !clicked {
		s.pressEscape(ctx)
		return NewTransientError(fmt.Sprintf("no remove entry in menu for %s", profileID), nil)
	}

	s.confirmDialog(ctx)
	return nil
}

// openCellMenu scrolls the target cell into view and clicks its menu button
func (s *ChromeSession) openCellMenu(ctx context.Context, profileID string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const cells = document.querySelectorAll(%q);
		for (const cell of cells) {
			const link = cell.querySelector('a[role="link"][href^="/"]');
			if (!link) continue;
			const u = (link.getAttribute('href') || '').replace(/^\//, '').split('/')[0].toLowerCase();
			if (u !== %q) continue;
			cell.scrollIntoView({block: 'center'});
			const caret = cell.querySelector(%q) ||
				cell.querySelector('[aria-label="More"]') ||
				cell.querySelector('button[aria-haspopup="menu"]');
			if (!caret) return 'no_menu';
			caret.click();
			return 'ok';
		}
		return 'not_found';
	})()`, selFollowerCell, strings.ToLower(profileID), selCaretButton)

	var status string
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(js, &status)); err != nil {
		return "", err
	}
	return status, nil
}

// clickRemoveMenuItem finds the remove-follower entry by text and clicks it
func (s *ChromeSession) clickRemoveMenuItem(ctx context.Context) (bool, error) {
	var quoted []string
	for _, t := range removeFollowerTexts {
		quoted = append(quoted, fmt.Sprintf("%q", strings.ToLower(t)))
	}

	js := fmt.Sprintf(`(() => {
		const wanted = [%s];
		for (const item of document.querySelectorAll(%q)) {
			const text = (item.textContent || '').toLowerCase();
			if (wanted.some(w => text.includes(w))) {
				item.click();
				return true;
			}
		}
		return false;
	})()`, strings.Join(quoted, ", "), selMenuItem)

	var clicked bool
	if err := s.run(ctx, s.pageTimeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

// confirmDialog clicks the confirmation sheet if one appears. Absence of a
// dialog is not an error.
func (s *ChromeSession) confirmDialog(ctx context.Context) {
	err := s.run(ctx, 2*time.Second,
		chromedp.WaitVisible(selConfirmButton, chromedp.ByQuery),
		chromedp.Click(selConfirmButton, chromedp.ByQuery),
	)
	if err != nil {
		s.logger.WithError(err).Debug("no confirmation dialog")
	}
}

// pressEscape closes any open menu, best effort
func (s *ChromeSession) pressEscape(ctx context.Context) {
	_ = s.run(ctx, 2*time.Second, chromedp.KeyEvent(kb.Escape))
}

// run executes chromedp actions against the session tab, bounded by both
// the caller's context and a local timeout.
func (s *ChromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(runCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
