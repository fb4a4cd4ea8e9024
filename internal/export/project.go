package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/livetemplate/tinkerpen"
)

// KindForFile maps a project file name to its fragment kind.
func KindForFile(name string) (tinkerpen.Kind, bool) {
	switch filepath.Base(name) {
	case HTMLFile:
		return tinkerpen.KindHTML, true
	case CSSFile:
		return tinkerpen.KindCSS, true
	case JSFile:
		return tinkerpen.KindJS, true
	}
	return "", false
}

// FileForKind returns the project file name that stores kind.
func FileForKind(kind tinkerpen.Kind) string {
	switch kind {
	case tinkerpen.KindCSS:
		return CSSFile
	case tinkerpen.KindJS:
		return JSFile
	default:
		return HTMLFile
	}
}

// LoadProject reads index.html, styles.css and script.js from dir.
// Missing files are empty fragments; a missing directory is an error.
func LoadProject(dir string) (tinkerpen.Fragments, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return tinkerpen.Fragments{}, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return tinkerpen.Fragments{}, fmt.Errorf("open project: %s is not a directory", dir)
	}

	var f tinkerpen.Fragments
	for _, kind := range tinkerpen.Kinds {
		text, err := LoadProjectFile(filepath.Join(dir, FileForKind(kind)))
		if err != nil {
			return tinkerpen.Fragments{}, err
		}
		f = f.With(kind, text)
	}
	return f, nil
}

// LoadProjectFile reads one project file. A missing file reads as empty.
func LoadProjectFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
