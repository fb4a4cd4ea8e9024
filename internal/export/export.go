// Package export turns preview sessions into clipboard text, project files
// and screenshots.
package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/capture"
)

// Project and screenshot file names.
const (
	HTMLFile       = "index.html"
	CSSFile        = "styles.css"
	JSFile         = "script.js"
	ScreenshotFile = "preview-screenshot.png"
)

// Clipboard receives text copied from a session.
type Clipboard interface {
	WriteText(text string) error
}

// ClipboardFunc adapts a function to the Clipboard interface.
type ClipboardFunc func(text string) error

// WriteText calls f(text).
func (f ClipboardFunc) WriteText(text string) error { return f(text) }

// FileSaver delivers one file to the user.
type FileSaver interface {
	Save(ctx context.Context, name, mimeType string, content []byte) error
}

// File is one file of an exported project.
type File struct {
	Name     string
	MIMEType string
	Content  string
}

// ProjectFiles returns the three project files for f in download order.
// Buffers are exported raw, without the document skeleton.
func ProjectFiles(f tinkerpen.Fragments) []File {
	return []File{
		{Name: HTMLFile, MIMEType: "text/html", Content: f.HTML},
		{Name: CSSFile, MIMEType: "text/css", Content: f.CSS},
		{Name: JSFile, MIMEType: "text/javascript", Content: f.JS},
	}
}

// LookupProjectFile finds a project file by name.
func LookupProjectFile(f tinkerpen.Fragments, name string) (File, bool) {
	for _, file := range ProjectFiles(f) {
		if file.Name == name {
			return file, true
		}
	}
	return File{}, false
}

// Copy writes the pretty document to the clipboard and turns the copied
// indicator on. The indicator is left off when the clipboard write fails.
func Copy(c *tinkerpen.Controller, clip Clipboard) (string, error) {
	text := tinkerpen.AssemblePretty(c.Fragments())

	if clip != nil {
		if err := clip.WriteText(text); err != nil {
			return "", tinkerpen.NewExportError("copy", "clipboard", err).
				WithHint("The host refused clipboard access; the document is still available from the export menu")
		}
	}

	c.MarkCopied()
	return text, nil
}

// DownloadProject saves index.html, styles.css and script.js as three
// independent saves. Every file is attempted; the returned error joins all
// failures.
func DownloadProject(ctx context.Context, f tinkerpen.Fragments, saver FileSaver) error {
	var errs []error
	for _, file := range ProjectFiles(f) {
		if err := saver.Save(ctx, file.Name, file.MIMEType, []byte(file.Content)); err != nil {
			log.Printf("[Export] Save %s failed: %v", file.Name, err)
			errs = append(errs, tinkerpen.NewExportError("save", file.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Screenshot captures document and returns the PNG. Every failure, including
// a missing capturer, comes back as an *ExportError; session state is never
// touched.
func Screenshot(ctx context.Context, capturer capture.Capturer, document string, opts capture.Options) ([]byte, error) {
	if isNil(capturer) {
		return nil, tinkerpen.NewExportError("screenshot", ScreenshotFile, tinkerpen.ErrCaptureUnavailable).
			WithHint("Enable screenshots in tinkerpen.yaml or pass --chrome with a DevTools URL")
	}

	png, err := capturer.Capture(ctx, document, opts)
	if err != nil {
		exportErr := tinkerpen.NewExportError("screenshot", ScreenshotFile, err)
		switch {
		case errors.Is(err, tinkerpen.ErrCaptureUnavailable):
			exportErr.WithHint("Check that Chrome is installed or that the DevTools URL is reachable")
		case errors.Is(err, tinkerpen.ErrNoContent):
			exportErr.WithHint("Add some HTML to the preview before taking a screenshot")
		}
		return nil, exportErr
	}
	if len(png) == 0 {
		return nil, tinkerpen.NewExportError("screenshot", ScreenshotFile, tinkerpen.ErrNoContent)
	}

	return png, nil
}

// SaveScreenshot captures document and saves it as preview-screenshot.png.
func SaveScreenshot(ctx context.Context, capturer capture.Capturer, document string, opts capture.Options, saver FileSaver) error {
	png, err := Screenshot(ctx, capturer, document, opts)
	if err != nil {
		return err
	}
	if err := saver.Save(ctx, ScreenshotFile, "image/png", png); err != nil {
		return tinkerpen.NewExportError("save", ScreenshotFile, err)
	}
	return nil
}

// DataURI encodes a PNG as a data: URI.
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// isNil catches typed nil pointers stored in the interface, such as a
// disabled *capture.ChromeCapturer.
func isNil(c capture.Capturer) bool {
	if c == nil {
		return true
	}
	if cc, ok := c.(*capture.ChromeCapturer); ok && cc == nil {
		return true
	}
	return false
}

// String names a file for log lines.
func (f File) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", f.Name, f.MIMEType, len(f.Content))
}
