// Package capture renders an assembled preview document in headless Chrome
// and returns a PNG of the visible viewport.
package capture

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
)

// loadPollInterval is how often document.readyState is checked.
const loadPollInterval = 50 * time.Millisecond

// Options describes one capture.
type Options struct {
	Width   int
	Height  int
	Timeout time.Duration // 0 means no timeout
}

// OptionsFromConfig builds capture options from the screenshot config.
func OptionsFromConfig(cfg config.ScreenshotConfig) Options {
	return Options{
		Width:   cfg.GetWidth(),
		Height:  cfg.GetHeight(),
		Timeout: cfg.GetTimeout(),
	}
}

// Capturer renders a document and returns PNG bytes.
type Capturer interface {
	Capture(ctx context.Context, document string, opts Options) ([]byte, error)
}

// ChromeCapturer captures through chromedp, either against a running Chrome
// DevTools endpoint or by launching a local headless Chrome.
type ChromeCapturer struct {
	chromeURL    string
	chromePath   string
	allowNetwork bool
	debug        bool
}

// NewChromeCapturer creates a capturer from the screenshot config. It returns
// nil when screenshots are disabled.
func NewChromeCapturer(cfg config.ScreenshotConfig, debug bool) *ChromeCapturer {
	if !cfg.Enabled {
		return nil
	}
	return &ChromeCapturer{
		chromeURL:    cfg.ChromeURL,
		chromePath:   cfg.ChromePath,
		allowNetwork: cfg.AllowNetwork,
		debug:        debug,
	}
}

// Capture loads document into a fresh tab, waits for it to finish loading,
// scrolls to the origin and screenshots a Width x Height viewport. The
// document runs sandboxed and every request it makes goes through isolate.
//
// Failing to start or reach Chrome is reported as
// tinkerpen.ErrCaptureUnavailable; a document without a body is reported as
// tinkerpen.ErrNoContent.
func (c *ChromeCapturer) Capture(ctx context.Context, document string, opts Options) ([]byte, error) {
	if c == nil {
		return nil, tinkerpen.ErrCaptureUnavailable
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocCtx, allocCancel := c.allocator(ctx)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(c.logf))
	defer browserCancel()

	// Running with no actions starts (or connects to) the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", tinkerpen.ErrCaptureUnavailable, err)
	}

	c.isolate(browserCtx, document)

	started := time.Now()
	var buf []byte
	err := chromedp.Run(browserCtx,
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*", RequestStage: fetch.RequestStageRequest},
		}),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(previewURL),
		waitForLoad(),
		requireBody(),
		chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("capture preview: %w", err)
	}

	if c.debug {
		log.Printf("[Capture] %dx%d screenshot, %d bytes in %v", opts.Width, opts.Height, len(buf), time.Since(started))
	}
	return buf, nil
}

// allocator picks a remote allocator when a DevTools URL is configured,
// otherwise launches a local headless Chrome.
func (c *ChromeCapturer) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.chromeURL != "" {
		return chromedp.NewRemoteAllocator(ctx, c.chromeURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)
	if c.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.chromePath))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

func (c *ChromeCapturer) logf(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[Capture] chromedp: "+format, args...)
	}
}

// waitForLoad polls document.readyState until the page reports complete.
// The surrounding context bounds the wait.
func waitForLoad() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(loadPollInterval)
		defer ticker.Stop()

		for {
			var state string
			if err := chromedp.Evaluate(`document.readyState`, &state).Do(ctx); err != nil {
				return fmt.Errorf("read document state: %w", err)
			}
			if state == "complete" {
				return nil
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("waiting for preview to load: %w", ctx.Err())
			case <-ticker.C:
			}
		}
	})
}

// requireBody fails with ErrNoContent when the document has no body.
func requireBody() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var hasBody bool
		if err := chromedp.Evaluate(`document.body !== null`, &hasBody).Do(ctx); err != nil {
			return fmt.Errorf("inspect preview body: %w", err)
		}
		if !hasBody {
			return tinkerpen.ErrNoContent
		}
		return nil
	})
}
