//go:build !ci

package tinkerpen_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/capture"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/server"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func TestE2EScreenshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	chrome, cleanup := SetupDockerChrome(t, 60*time.Second)
	defer cleanup()

	cfg := config.DefaultConfig().Screenshot
	cfg.Enabled = true
	cfg.ChromeURL = chrome.URL
	c := capture.NewChromeCapturer(cfg, false)

	doc := tinkerpen.AssembleInline(tinkerpen.Fragments{
		HTML: "<h1>Hello</h1>",
		CSS:  "h1 { color: tomato; }",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	png, err := c.Capture(ctx, doc, capture.OptionsFromConfig(cfg))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngSignature), "capture should return a PNG")
}

func TestE2EScreenshotBlocksLocalRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("secret"))
	}))
	defer internal.Close()
	target := ConvertURLForDockerChrome(internal.URL)

	chrome, cleanup := SetupDockerChrome(t, 60*time.Second)
	defer cleanup()

	doc := tinkerpen.AssembleInline(tinkerpen.Fragments{
		HTML: fmt.Sprintf(`<iframe src="%[1]s/frame" width="400" height="300"></iframe><img src="%[1]s/img.png">`, target),
		CSS:  fmt.Sprintf(`body { background: url("%s/bg.png"); }`, target),
		JS:   fmt.Sprintf(`fetch("%[1]s/fetch").catch(() => {}); new Image().src = "%[1]s/script-img";`, target),
	})

	for _, allowNetwork := range []bool{false, true} {
		cfg := config.DefaultConfig().Screenshot
		cfg.Enabled = true
		cfg.ChromeURL = chrome.URL
		cfg.AllowNetwork = allowNetwork
		c := capture.NewChromeCapturer(cfg, false)

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		png, err := c.Capture(ctx, doc, capture.OptionsFromConfig(cfg))
		cancel()

		require.NoError(t, err, "allow_network=%v", allowNetwork)
		assert.True(t, bytes.HasPrefix(png, pngSignature))
	}
	assert.Zero(t, hits.Load(), "the captured page must not reach local services")
}

func TestE2EEditorLivePreview(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>seed</p>"), 0644))

	cfg := config.DefaultConfig()
	cfg.Screenshot.Enabled = false
	srv := server.New(cfg, server.WithProjectDir(dir))
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close()

	chrome, cleanup := SetupDockerChrome(t, 60*time.Second)
	defer cleanup()

	var seeded, previewSrc string
	err := chromedp.Run(chrome.Context,
		chromedp.Navigate(ConvertURLForDockerChrome(ts.URL)+"/"),
		chromedp.WaitVisible(`textarea[data-kind="html"]`, chromedp.ByQuery),
		chromedp.Poll(`document.querySelector('textarea[data-kind="html"]').value === "<p>seed</p>"`, nil,
			chromedp.WithPollingTimeout(10*time.Second)),
		chromedp.Value(`textarea[data-kind="html"]`, &seeded, chromedp.ByQuery),
		chromedp.SetValue(`textarea[data-kind="html"]`, "", chromedp.ByQuery),
		chromedp.SendKeys(`textarea[data-kind="html"]`, "<h1>typed</h1>", chromedp.ByQuery),
	)
	require.NoError(t, err)
	assert.Equal(t, "<p>seed</p>", seeded)

	sess, ok := srv.Sessions().MostRecent()
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return strings.Contains(sess.Controller.Document(), "<h1>typed</h1>")
	}, 10*time.Second, 100*time.Millisecond, "typed HTML should reach the preview document")

	err = chromedp.Run(chrome.Context,
		chromedp.Poll(`document.getElementById("preview").getAttribute("src") || ""`, &previewSrc,
			chromedp.WithPollingTimeout(10*time.Second)),
	)
	require.NoError(t, err)
	assert.Contains(t, previewSrc, "/preview/"+sess.ID)
}
