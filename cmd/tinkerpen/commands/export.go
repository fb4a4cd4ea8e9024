package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/capture"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// newClipboard returns the clipboard used by the copy command.
var newClipboard = func() export.Clipboard { return export.SystemClipboard{} }

// newCapturer builds the screenshot capability from the config.
var newCapturer = capture.FromConfig

// ExportCommand writes the three project files into --out.
// Usage: tinkerpen export <dir> --out <dir>
func ExportCommand(args []string) error {
	return exportProject(args, os.Stdout)
}

func exportProject(args []string, out io.Writer) error {
	p, err := parseArgs(args, []string{"out"}, map[string]string{"o": "out"})
	if err != nil {
		return err
	}
	if len(p.positional) == 0 {
		return fmt.Errorf("usage: tinkerpen export <dir> --out <dir>")
	}
	outDir, ok := p.values["out"]
	if !ok || outDir == "" {
		return fmt.Errorf("--out is required")
	}

	f, err := export.LoadProject(p.positional[0])
	if err != nil {
		return err
	}

	if err := export.DownloadProject(context.Background(), f, export.DirSaver{Dir: outDir}); err != nil {
		return err
	}

	for _, file := range export.ProjectFiles(f) {
		fmt.Fprintf(out, "  %s\n", filepath.Join(outDir, file.Name))
	}
	fmt.Fprintf(out, "✅ Exported %d files\n", len(export.ProjectFiles(f)))
	return nil
}

// CopyCommand copies the readable document to the system clipboard.
// Usage: tinkerpen copy [dir]
func CopyCommand(args []string) error {
	return copyDocument(args, os.Stdout)
}

func copyDocument(args []string, out io.Writer) error {
	p, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}

	f, err := export.LoadProject(p.arg(0, "."))
	if err != nil {
		return err
	}

	c := tinkerpen.NewController(tinkerpen.WithFragments(f))
	defer c.Close()

	text, err := export.Copy(c, newClipboard())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "📋 Copied %d bytes to the clipboard\n", len(text))
	return nil
}

// ScreenshotCommand renders a project in headless Chrome and saves a PNG.
// Usage: tinkerpen screenshot [dir] [--out file.png] [--chrome URL] [--width N] [--height N]
func ScreenshotCommand(args []string) error {
	return screenshot(args, os.Stdout)
}

func screenshot(args []string, out io.Writer) error {
	p, err := parseArgs(args,
		[]string{"out", "chrome", "config", "width", "height"},
		map[string]string{"o": "out", "c": "config"},
	)
	if err != nil {
		return err
	}

	dir := p.arg(0, ".")
	cfg, err := loadConfig(dir, p.values["config"])
	if err != nil {
		return err
	}
	cfg.Screenshot.Enabled = true
	if chrome, ok := p.values["chrome"]; ok {
		cfg.Screenshot.ChromeURL = chrome
	}
	for _, dim := range []struct {
		flag string
		dst  *int
	}{{"width", &cfg.Screenshot.Width}, {"height", &cfg.Screenshot.Height}} {
		if v, ok := p.values[dim.flag]; ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid --%s: %s", dim.flag, v)
			}
			*dim.dst = n
		}
	}

	f, err := export.LoadProject(dir)
	if err != nil {
		return err
	}

	outPath := p.values["out"]
	if outPath == "" {
		outPath = export.ScreenshotFile
	}

	capturer, stop := newCapturer(cfg.Screenshot, cfg.Server.Debug)
	defer stop()

	saver := export.SaverFunc(func(ctx context.Context, name, mimeType string, content []byte) error {
		return os.WriteFile(outPath, content, 0644)
	})

	doc := tinkerpen.AssembleInline(f)
	if err := export.SaveScreenshot(context.Background(), capturer, doc, capture.OptionsFromConfig(cfg.Screenshot), saver); err != nil {
		return err
	}

	fmt.Fprintf(out, "📷 Saved %s\n", outPath)
	return nil
}
