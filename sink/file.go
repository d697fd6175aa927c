package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSink writes export files under one root directory, refusing to
// clobber: a name collision gets a numeric suffix before the extension.
type FileSink struct {
	Root string
}

func NewFileSink(root string) *FileSink {
	return &FileSink{Root: root}
}

// Write stores data under name inside the sink root and returns the final
// path, which differs from the requested name when uniquification kicked
// in.
func (fs *FileSink) Write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(fs.Root, 0o755); err != nil {
		return "", fmt.Errorf("sink: create export dir: %w", err)
	}
	path, err := fs.uniquePath(name)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("sink: create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("sink: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sink: close %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// uniquePath finds the first free variant: name.ext, name (1).ext,
// name (2).ext. Bounded so a pathological directory cannot loop forever.
func (fs *FileSink) uniquePath(name string) (string, error) {
	base := filepath.Base(name) // strip any directory escape
	candidate := filepath.Join(fs.Root, base)
	if !exists(candidate) {
		return candidate, nil
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; i <= 999; i++ {
		candidate = filepath.Join(fs.Root, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("sink: no free name for %s", base)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GuessMime maps an export file extension to its content type.
func GuessMime(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html"
	case ".diff", ".patch":
		return "text/x-diff"
	default:
		return "text/plain"
	}
}
