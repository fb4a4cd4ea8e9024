package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the operating system clipboard.
type SystemClipboard struct{}

// WriteText implements Clipboard.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available on this system")
	}
	return clipboard.WriteAll(text)
}

// DirSaver writes files into a directory, creating it if needed.
type DirSaver struct {
	Dir string
}

// Save implements FileSaver. Names are reduced to their base so a save can
// never escape Dir.
func (s DirSaver) Save(ctx context.Context, name, mimeType string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", s.Dir, err)
	}

	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SaverFunc adapts a function to the FileSaver interface.
type SaverFunc func(ctx context.Context, name, mimeType string, content []byte) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, name, mimeType string, content []byte) error {
	return f(ctx, name, mimeType, content)
}
