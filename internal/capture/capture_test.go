package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/cache"
	"github.com/livetemplate/tinkerpen/internal/config"
)

type countingCapturer struct {
	calls atomic.Int32
	err   error
}

func (c *countingCapturer) Capture(ctx context.Context, document string, opts Options) ([]byte, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []byte(document), nil
}

func TestNewChromeCapturerDisabled(t *testing.T) {
	cfg := config.DefaultConfig().Screenshot
	cfg.Enabled = false

	assert.Nil(t, NewChromeCapturer(cfg, false))
}

func TestNilChromeCapturerIsUnavailable(t *testing.T) {
	var c *ChromeCapturer

	_, err := c.Capture(context.Background(), "<p>x</p>", Options{Width: 10, Height: 10})
	assert.ErrorIs(t, err, tinkerpen.ErrCaptureUnavailable)
}

func TestChromeCapturerUnreachable(t *testing.T) {
	cfg := config.DefaultConfig().Screenshot
	// Nothing listens on port 1.
	cfg.ChromeURL = "ws://127.0.0.1:1/devtools/browser/none"

	c := NewChromeCapturer(cfg, false)
	_, err := c.Capture(context.Background(), "<p>x</p>", Options{Width: 10, Height: 10, Timeout: 5 * time.Second})
	require.Error(t, err)
	assert.ErrorIs(t, err, tinkerpen.ErrCaptureUnavailable)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.ScreenshotConfig{Width: 320, Timeout: "3s"}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, Options{Width: 320, Height: 800, Timeout: 3 * time.Second}, opts)
}

func TestCachedCapturerReusesResult(t *testing.T) {
	inner := &countingCapturer{}
	mc := cache.NewMemoryCache()
	defer mc.Stop()

	c := NewCachedCapturer(inner, mc, time.Minute)
	opts := Options{Width: 100, Height: 100}

	first, err := c.Capture(context.Background(), "doc", opts)
	require.NoError(t, err)
	second, err := c.Capture(context.Background(), "doc", opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = c.Capture(context.Background(), "doc", Options{Width: 200, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "a different viewport is a different capture")
}

func TestCachedCapturerDoesNotCacheFailures(t *testing.T) {
	inner := &countingCapturer{err: errors.New("boom")}
	mc := cache.NewMemoryCache()
	defer mc.Stop()

	c := NewCachedCapturer(inner, mc, time.Minute)

	_, err := c.Capture(context.Background(), "doc", Options{})
	require.Error(t, err)
	_, err = c.Capture(context.Background(), "doc", Options{})
	require.Error(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 0, mc.Len())
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Screenshot

	cfg.Enabled = false
	c, stop := FromConfig(cfg, false)
	stop()
	assert.True(t, c == nil, "disabled screenshots must give a nil interface, not a typed nil")

	cfg.Enabled = true
	c, stop = FromConfig(cfg, false)
	stop()
	assert.IsType(t, &ChromeCapturer{}, c)

	cfg.CacheTTL = "1m"
	c, stop = FromConfig(cfg, false)
	defer stop()
	assert.IsType(t, &CachedCapturer{}, c)
}

func TestNewCachedCapturerZeroTTL(t *testing.T) {
	inner := &countingCapturer{}

	c := NewCachedCapturer(inner, nil, 0)
	assert.Same(t, inner, c)
}
