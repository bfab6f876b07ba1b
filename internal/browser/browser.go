// Package browser exposes the browser-driver collaborator: low-level
// navigate/locate/click/type/upload primitives over a headless Chrome
// session, plus the block-signal probe. Requires Chrome/Chromium installed.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultActionTimeout bounds each individual browser action.
const DefaultActionTimeout = 30 * time.Second

// Driver is the primitive surface the submission strategies and the session
// supervisor drive. Implementations other than ChromeDriver exist only in
// tests.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// Type sends text one rune at a time; delays, when non-empty, paces the
	// keystrokes (one entry per rune).
	Type(ctx context.Context, selector, text string, delays []time.Duration) error
	Upload(ctx context.Context, selector, path string) error
	Text(ctx context.Context, selector string) (string, error)
	// DetectBlockSignal probes the current page for challenge or
	// account-restriction markers.
	DetectBlockSignal(ctx context.Context) (bool, error)
	Close() error
}

// ActionError represents a failed browser primitive. Timeout distinguishes
// retryable slowness from a selector that simply is not on the page.
type ActionError struct {
	Op       string
	Selector string
	Timeout  bool
	Cause    error
}

func (e *ActionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("browser %s failed for %q: %v", e.Op, e.Selector, e.Cause)
	}
	return fmt.Sprintf("browser %s failed: %v", e.Op, e.Cause)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// Options configures the Chrome session.
type Options struct {
	Headless      bool
	UserAgent     string
	ActionTimeout time.Duration
}

// DefaultOptions returns headless defaults.
func DefaultOptions() *Options {
	return &Options{
		Headless:      true,
		ActionTimeout: DefaultActionTimeout,
	}
}

// ChromeDriver implements Driver over a long-lived chromedp context. The
// session (cookies, login state) survives across actions until Close.
type ChromeDriver struct {
	opts       *Options
	browserCtx context.Context
	cancels    []context.CancelFunc
}

// NewChromeDriver starts a Chrome session.
func NewChromeDriver(ctx context.Context, opts *Options) (*ChromeDriver, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so failures surface here, not on the
	// first action.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeDriver{
		opts:       opts,
		browserCtx: browserCtx,
		cancels:    []context.CancelFunc{cancelBrowser, cancelAlloc},
	}, nil
}

// run executes actions with the per-action timeout, honoring the caller's
// cancellation.
func (d *ChromeDriver) run(ctx context.Context, op, selector string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.browserCtx, d.opts.ActionTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		// The in-flight chromedp action is left to finish against its own
		// timeout; we only stop waiting for it.
		return &ActionError{Op: op, Selector: selector, Cause: ctx.Err()}
	case err := <-done:
		if err != nil {
			return &ActionError{
				Op:       op,
				Selector: selector,
				Timeout:  errors.Is(err, context.DeadlineExceeded),
				Cause:    err,
			}
		}
		return nil
	}
}

// Navigate loads a URL and waits for the body to be ready.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, "navigate", url,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

// WaitVisible blocks until the selector is visible.
func (d *ChromeDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, "wait", selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the first visible node matching the selector.
func (d *ChromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, "click", selector, chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery))
}

// Type focuses the field and sends text rune by rune, sleeping the paced
// delay between keystrokes when provided.
func (d *ChromeDriver) Type(ctx context.Context, selector, text string, delays []time.Duration) error {
	if err := d.run(ctx, "focus", selector, chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return err
	}
	for i, r := range []rune(text) {
		if err := d.run(ctx, "type", selector, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
		if i < len(delays) && delays[i] > 0 {
			select {
			case <-ctx.Done():
				return &ActionError{Op: "type", Selector: selector, Cause: ctx.Err()}
			case <-time.After(delays[i]):
			}
		}
	}
	return nil
}

// Upload attaches a local file to a file input.
func (d *ChromeDriver) Upload(ctx context.Context, selector, path string) error {
	return d.run(ctx, "upload", selector, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery))
}

// Text extracts the text content of the first matching node.
func (d *ChromeDriver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, "text", selector, chromedp.Text(selector, &text, chromedp.NodeVisible, chromedp.ByQuery))
	return text, err
}

// blockMarkers are page-text fragments indicating automated-behavior
// detection: challenge pages, verification walls, restriction banners.
var blockMarkers = []string{
	"verify you are a human",
	"unusual activity",
	"security verification",
	"account has been restricted",
	"complete this security check",
	"captcha",
}

// DetectBlockSignal scans the page body for block markers.
func (d *ChromeDriver) DetectBlockSignal(ctx context.Context) (bool, error) {
	var body string
	if err := d.run(ctx, "probe", "body", chromedp.Text("body", &body, chromedp.ByQuery)); err != nil {
		return false, err
	}
	lower := strings.ToLower(body)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true, nil
		}
	}
	return false, nil
}

// Close tears down the browser session.
func (d *ChromeDriver) Close() error {
	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}
