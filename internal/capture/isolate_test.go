package capture

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen/internal/config"
)

func TestCaptureCSPOffline(t *testing.T) {
	csp := captureCSP(false)

	assert.True(t, strings.HasPrefix(csp, "sandbox allow-scripts;"), "the document must run sandboxed: %s", csp)
	for _, directive := range []string{
		"default-src 'none'",
		"connect-src 'none'",
		"frame-src 'none'",
		"worker-src 'none'",
		"img-src data: blob:;",
	} {
		assert.Contains(t, csp, directive)
	}
	assert.NotContains(t, csp, "http:")
	assert.NotContains(t, csp, "allow-same-origin")
}

func TestCaptureCSPAllowNetwork(t *testing.T) {
	csp := captureCSP(true)

	assert.Contains(t, csp, "img-src data: blob: http: https:")
	assert.Contains(t, csp, "script-src 'unsafe-inline' 'unsafe-eval' http: https:")
	assert.Contains(t, csp, "connect-src 'none'", "scripts never open connections")
	assert.Contains(t, csp, "frame-src 'none'", "frames are never loaded")
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		offline verdict
		online  verdict
	}{
		{"preview document", previewURL, verdictServe, verdictServe},
		{"loopback debug endpoint", "http://127.0.0.1:6060/debug/pprof/", verdictBlock, verdictBlock},
		{"localhost", "http://localhost:8080/api/sessions", verdictBlock, verdictBlock},
		{"cloud metadata", "http://169.254.169.254/latest/meta-data/", verdictBlock, verdictBlock},
		{"private network", "http://10.0.0.5/", verdictBlock, verdictBlock},
		{"file url", "file:///etc/passwd", verdictBlock, verdictBlock},
		{"preview host other path", "https://preview.tinkerpen.invalid/other", verdictBlock, verdictBlock},
		{"public address", "https://93.184.216.34/logo.png", verdictBlock, verdictContinue},
	}

	offline := &ChromeCapturer{}
	online := &ChromeCapturer{allowNetwork: true}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offline, offline.decide(context.Background(), tt.url), "offline")
			assert.Equal(t, tt.online, online.decide(context.Background(), tt.url), "allow_network")
		})
	}
}

func TestNewChromeCapturerAllowNetwork(t *testing.T) {
	cfg := config.DefaultConfig().Screenshot

	c := NewChromeCapturer(cfg, false)
	require.NotNil(t, c)
	assert.False(t, c.allowNetwork)

	cfg.AllowNetwork = true
	assert.True(t, NewChromeCapturer(cfg, false).allowNetwork)
}
