package capture

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/livetemplate/tinkerpen/internal/security"
)

// previewURL is where the captured tab navigates. The request never leaves
// the browser: isolate answers it with the document.
const previewURL = "https://preview.tinkerpen.invalid/"

// verdict is what happens to one request made by the captured page.
type verdict int

const (
	verdictBlock verdict = iota
	verdictServe
	verdictContinue
)

// captureCSP sandboxes the captured document like the live preview
// (scripts run in an opaque origin) and limits what it may load. Frames,
// workers and script-initiated connections are always refused; remote
// subresources only when allowNetwork is set.
func captureCSP(allowNetwork bool) string {
	remote := ""
	if allowNetwork {
		remote = " http: https:"
	}
	return strings.Join([]string{
		"sandbox allow-scripts",
		"default-src 'none'",
		"script-src 'unsafe-inline' 'unsafe-eval'" + remote,
		"style-src 'unsafe-inline'" + remote,
		"img-src data: blob:" + remote,
		"font-src data:" + remote,
		"media-src data: blob:" + remote,
		"connect-src 'none'",
		"frame-src 'none'",
		"worker-src 'none'",
		"form-action 'none'",
	}, "; ")
}

// decide picks the verdict for a request to rawURL.
func (c *ChromeCapturer) decide(ctx context.Context, rawURL string) verdict {
	if rawURL == previewURL {
		return verdictServe
	}
	if !c.allowNetwork {
		return verdictBlock
	}
	if err := security.ValidateHTTPURL(ctx, rawURL); err != nil {
		if c.debug {
			log.Printf("[Capture] Blocked %s: %v", rawURL, err)
		}
		return verdictBlock
	}
	return verdictContinue
}

// isolate answers every request paused by the Fetch domain in ctx's tab:
// the preview URL with the document and its CSP, allowed public URLs by
// letting them through, everything else by failing it.
func (c *ChromeCapturer) isolate(ctx context.Context, document string) {
	body := base64.StdEncoding.EncodeToString([]byte(document))
	headers := []*fetch.HeaderEntry{
		{Name: "Content-Type", Value: "text/html; charset=utf-8"},
		{Name: "Content-Security-Policy", Value: captureCSP(c.allowNetwork)},
		{Name: "Cache-Control", Value: "no-store"},
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}

		// Listeners must not block the event loop.
		go func() {
			execCtx := cdp.WithExecutor(ctx, chromedp.FromContext(ctx).Target)

			var err error
			switch c.decide(execCtx, paused.Request.URL) {
			case verdictServe:
				err = fetch.FulfillRequest(paused.RequestID, http.StatusOK).
					WithResponseHeaders(headers).
					WithBody(body).
					Do(execCtx)
			case verdictContinue:
				err = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
			default:
				err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			}
			if err != nil && ctx.Err() == nil && c.debug {
				log.Printf("[Capture] Answering request for %s failed: %v", paused.Request.URL, err)
			}
		}()
	})
}
