package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/capture"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// setupTestProject writes a project directory with the given files.
func setupTestProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

type fakeCapturer struct {
	png []byte
	err error
}

func (f fakeCapturer) Capture(ctx context.Context, document string, opts capture.Options) ([]byte, error) {
	return f.png, f.err
}

func TestParseArgs(t *testing.T) {
	p, err := parseArgs(
		[]string{"./demo", "--port", "9000", "--host=0.0.0.0", "-w", "--pretty", "extra"},
		[]string{"port", "host"},
		map[string]string{"w": "watch"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"./demo", "extra"}, p.positional)
	assert.Equal(t, "9000", p.values["port"])
	assert.Equal(t, "0.0.0.0", p.values["host"])
	assert.True(t, p.switches["watch"])
	assert.True(t, p.switches["pretty"])
	assert.Equal(t, "./demo", p.arg(0, "."))
	assert.Equal(t, ".", p.arg(5, "."))
}

func TestParseArgsMissingValue(t *testing.T) {
	_, err := parseArgs([]string{"--port"}, []string{"port"}, nil)
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	dir := setupTestProject(t, map[string]string{
		"index.html": "<p>Hi</p>",
		"styles.css": "p{color:red}",
		"script.js":  "console.log(1)",
	})

	var out bytes.Buffer
	require.NoError(t, assemble([]string{dir}, &out))
	assert.Equal(t,
		"<!DOCTYPE html><html><head><style>p{color:red}</style></head>\n<body><p>Hi</p><script>console.log(1)</script></body></html>\n",
		out.String())
}

func TestAssemblePrettyMissingFiles(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<h1>Only HTML</h1>"})

	var out bytes.Buffer
	require.NoError(t, assemble([]string{dir, "--pretty"}, &out))
	assert.Equal(t, tinkerpen.AssemblePretty(tinkerpen.Fragments{HTML: "<h1>Only HTML</h1>"}), out.String())
}

func TestAssembleMissingDirectory(t *testing.T) {
	var out bytes.Buffer
	err := assemble([]string{filepath.Join(t.TempDir(), "nope")}, &out)
	assert.Error(t, err)
}

func TestFormatStdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, format(nil, strings.NewReader("<div><!-- note --><p>Hi</p></div>"), &out))
	assert.Equal(t, "<div>\n  <p>Hi</p>\n</div>\n", out.String())
}

func TestFormatWrite(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<ul><li>a</li></ul>"})
	path := filepath.Join(dir, "index.html")

	var out bytes.Buffer
	require.NoError(t, format([]string{path, "--write"}, nil, &out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<ul>\n  <li>a</li>\n</ul>\n", string(data))
}

func TestFormatWriteNeedsFile(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, format([]string{"--write"}, strings.NewReader(""), &out))
}

func TestExport(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<p>x</p>", "script.js": "go()"})
	outDir := filepath.Join(t.TempDir(), "dist")

	var out bytes.Buffer
	require.NoError(t, exportProject([]string{dir, "--out", outDir}, &out))

	for name, want := range map[string]string{"index.html": "<p>x</p>", "styles.css": "", "script.js": "go()"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(data), name)
	}
	assert.Contains(t, out.String(), "Exported 3 files")
}

func TestExportNeedsOut(t *testing.T) {
	dir := setupTestProject(t, nil)

	var out bytes.Buffer
	assert.Error(t, exportProject([]string{dir}, &out))
	assert.Error(t, exportProject(nil, &out))
}

func TestCopy(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<h1>Hi</h1>", "styles.css": "h1{}"})

	var copied string
	orig := newClipboard
	newClipboard = func() export.Clipboard {
		return export.ClipboardFunc(func(s string) error {
			copied = s
			return nil
		})
	}
	t.Cleanup(func() { newClipboard = orig })

	var out bytes.Buffer
	require.NoError(t, copyDocument([]string{dir}, &out))
	assert.Equal(t, tinkerpen.AssemblePretty(tinkerpen.Fragments{HTML: "<h1>Hi</h1>", CSS: "h1{}"}), copied)
	assert.Contains(t, out.String(), "Copied")
}

func TestCopyClipboardFailure(t *testing.T) {
	dir := setupTestProject(t, nil)

	orig := newClipboard
	newClipboard = func() export.Clipboard {
		return export.ClipboardFunc(func(string) error { return errors.New("no display") })
	}
	t.Cleanup(func() { newClipboard = orig })

	var out bytes.Buffer
	err := copyDocument([]string{dir}, &out)
	require.Error(t, err)
	assert.Contains(t, FormatError(err), "💡 Tip:")
}

func TestScreenshot(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<p>x</p>"})
	outPath := filepath.Join(t.TempDir(), "shot.png")

	orig := newCapturer
	var gotCfg config.ScreenshotConfig
	newCapturer = func(cfg config.ScreenshotConfig, debug bool) (capture.Capturer, func()) {
		gotCfg = cfg
		return fakeCapturer{png: []byte("PNG")}, func() {}
	}
	t.Cleanup(func() { newCapturer = orig })

	var out bytes.Buffer
	require.NoError(t, screenshot([]string{dir, "--out", outPath, "--chrome", "ws://chrome:9222", "--width", "640"}, &out))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "PNG", string(data))
	assert.True(t, gotCfg.Enabled)
	assert.Equal(t, "ws://chrome:9222", gotCfg.ChromeURL)
	assert.Equal(t, 640, gotCfg.Width)
}

func TestScreenshotFailureWritesNothing(t *testing.T) {
	dir := setupTestProject(t, map[string]string{"index.html": "<p>x</p>"})
	outPath := filepath.Join(t.TempDir(), "shot.png")

	orig := newCapturer
	newCapturer = func(cfg config.ScreenshotConfig, debug bool) (capture.Capturer, func()) {
		return fakeCapturer{err: tinkerpen.ErrCaptureUnavailable}, func() {}
	}
	t.Cleanup(func() { newCapturer = orig })

	var out bytes.Buffer
	err := screenshot([]string{dir, "--out", outPath}, &out)
	require.ErrorIs(t, err, tinkerpen.ErrCaptureUnavailable)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScreenshotInvalidWidth(t *testing.T) {
	dir := setupTestProject(t, nil)

	var out bytes.Buffer
	assert.Error(t, screenshot([]string{dir, "--width", "wide"}, &out))
}

func TestServeConfigOverrides(t *testing.T) {
	dir := setupTestProject(t, map[string]string{
		"tinkerpen.yaml": "server:\n  port: 7000\nscreenshot:\n  enabled: false\n",
	})

	p, err := parseArgs([]string{dir, "--port", "9001", "--chrome", "http://localhost:9222", "--watch"},
		[]string{"port", "host", "config", "chrome"}, nil)
	require.NoError(t, err)

	cfg, err := serveConfig(p, dir)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.True(t, cfg.Screenshot.Enabled)
	assert.Equal(t, "http://localhost:9222", cfg.Screenshot.ChromeURL)
	assert.True(t, cfg.Features.HotReload)
}

func TestServeConfigInvalidPort(t *testing.T) {
	p, err := parseArgs([]string{"--port", "eighty"}, []string{"port"}, nil)
	require.NoError(t, err)

	_, err = serveConfig(p, t.TempDir())
	assert.Error(t, err)
}

func TestServeCommandMissingDirectory(t *testing.T) {
	err := ServeCommand([]string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFormatErrorPlain(t *testing.T) {
	assert.Equal(t, "Error: boom\n", FormatError(errors.New("boom")))
}
