// Package bundle turns a zip archive into a template Bundle.
//
// Loading is a pure transformation: the archive is decompressed, entries
// are classified as text or binary by extension, a single wrapping folder
// is stripped when it holds the manifest, and the result is validated to
// carry Quill.toml at its root. Nothing is returned on failure.
package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrArchiveDecode means the input is not a readable zip archive.
	ErrArchiveDecode = errors.New("archive could not be decoded")
	// ErrManifestMissing means the archive has no Quill.toml at its root.
	ErrManifestMissing = errors.New(core.ManifestName + " not found")
)

// entry is one decompressed archive member.
type entry struct {
	path string
	data []byte
}

// LoadFile reads an archive from disk and loads it.
func LoadFile(path string) (*core.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive %s: %w", path, err)
	}
	return Load(data)
}

// LoadReader drains r and loads the archive it held.
func LoadReader(r io.Reader) (*core.Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return Load(data)
}

// LoadReaderAt loads the size bytes readable from r.
func LoadReaderAt(r io.ReaderAt, size int64) (*core.Bundle, error) {
	return LoadReader(io.NewSectionReader(r, 0, size))
}

// Load converts raw zip bytes into a validated Bundle.
func Load(data []byte) (*core.Bundle, error) {
	entries, err := readArchive(data)
	if err != nil {
		return nil, err
	}

	prefix := wrapperPrefix(entries)

	files := core.Tree{}
	for _, e := range entries {
		p := e.path
		if prefix != "" {
			p = strings.TrimPrefix(p, prefix)
		}
		if err := insert(files, p, contents(p, e.data)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
		}
	}

	if _, ok := files[core.ManifestName].(*core.FileEntry); !ok {
		return nil, fmt.Errorf("%w: %s must be at the archive root (or inside a single top-level folder)",
			ErrManifestMissing, core.ManifestName)
	}

	return &core.Bundle{Files: files}, nil
}

// readArchive decompresses every non-directory member in archive order.
func readArchive(data []byte) ([]entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveDecode, err)
	}

	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := cleanPath(f.Name)
		if name == "" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrArchiveDecode, f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrArchiveDecode, f.Name, err)
		}
		entries = append(entries, entry{path: name, data: body})
	}
	return entries, nil
}

// wrapperPrefix returns "<folder>/" when the manifest is missing from the
// root, every entry sits under one top-level folder, and that folder holds
// the manifest directly. Otherwise it returns "".
func wrapperPrefix(entries []entry) string {
	present := make(map[string]bool, len(entries))
	tops := make(map[string]bool)
	for _, e := range entries {
		present[e.path] = true
		top, _, _ := strings.Cut(e.path, "/")
		tops[top] = true
	}
	if present[core.ManifestName] || len(tops) != 1 {
		return ""
	}
	for top := range tops {
		if present[top+"/"+core.ManifestName] {
			return top + "/"
		}
	}
	return ""
}

// contents decodes an archive member into its File Entry payload.
func contents(name string, data []byte) any {
	if IsBinary(name) {
		out := make([]int, len(data))
		for i, b := range data {
			out[i] = int(b)
		}
		return out
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// insert places a file at path, creating directories on the way.
func insert(root core.Tree, path string, value any) error {
	segs := strings.Split(path, "/")
	dir := root
	for i, seg := range segs[:len(segs)-1] {
		switch next := dir[seg].(type) {
		case nil:
			sub := core.Tree{}
			dir[seg] = sub
			dir = sub
		case core.Tree:
			dir = next
		default:
			return fmt.Errorf("%s is both a file and a directory", strings.Join(segs[:i+1], "/"))
		}
	}
	name := segs[len(segs)-1]
	if _, isDir := dir[name].(core.Tree); isDir {
		return fmt.Errorf("%s is both a file and a directory", path)
	}
	dir[name] = &core.FileEntry{Contents: value}
	return nil
}

// cleanPath drops empty segments so "a//b" and "/a/b" land at "a/b".
func cleanPath(name string) string {
	segs := strings.Split(name, "/")
	kept := segs[:0]
	for _, s := range segs {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}
