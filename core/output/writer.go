// Package output handles file naming and writing for downloaded documents.
// Callers pass a bare file name such as "report.pdf"; directory parts are
// dropped so a download can never escape the output directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer writes documents into one directory. It implements core.Saver.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Save writes data under a sanitized form of name and returns the path.
func (w *Writer) Save(name string, data []byte) (string, error) {
	clean := sanitize(name)
	if clean == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(w.OutputDir, clean)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// sanitize keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with underscores. Names made only of dots are rejected.
func sanitize(name string) string {
	name = filepath.Base(filepath.ToSlash(strings.TrimSpace(name)))
	if strings.Trim(name, ".") == "" {
		return ""
	}
	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '.', ch == '-', ch == '_':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
