package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Bundle is the file-tree contract handed to an Engine when registering a
// template.
type Bundle struct {
	Files    Tree           `json:"files"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Manifest returns the root manifest entry, if present.
func (b *Bundle) Manifest() (*FileEntry, bool) {
	if b == nil {
		return nil, false
	}
	f, ok := b.Files[ManifestName].(*FileEntry)
	return f, ok
}

// Node is either a *FileEntry or a Tree.
type Node interface {
	isNode()
}

// FileEntry is a leaf of the tree. Contents is a string for text files and
// an []int with values 0-255 for binary files.
type FileEntry struct {
	Contents any `json:"contents"`
}

func (*FileEntry) isNode() {}

// Text returns the contents of a text entry.
func (f *FileEntry) Text() (string, bool) {
	s, ok := f.Contents.(string)
	return s, ok
}

// Binary returns the contents of a binary entry.
func (f *FileEntry) Binary() ([]int, bool) {
	b, ok := f.Contents.([]int)
	return b, ok
}

// Size reports the entry length in bytes.
func (f *FileEntry) Size() int {
	switch c := f.Contents.(type) {
	case string:
		return len(c)
	case []int:
		return len(c)
	}
	return 0
}

// Tree is a directory: names mapped to files or nested directories. An
// empty Tree is an empty directory.
type Tree map[string]Node

func (Tree) isNode() {}

// Lookup resolves a slash-separated path inside the tree.
func (t Tree) Lookup(path string) (Node, bool) {
	var node Node = t
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		dir, ok := node.(Tree)
		if !ok {
			return nil, false
		}
		if node, ok = dir[seg]; !ok {
			return nil, false
		}
	}
	return node, true
}

// Walk calls fn for every file in lexical path order.
func (t Tree) Walk(fn func(path string, f *FileEntry)) {
	t.walk("", fn)
}

func (t Tree) walk(prefix string, fn func(string, *FileEntry)) {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch n := t[name].(type) {
		case *FileEntry:
			fn(prefix+name, n)
		case Tree:
			n.walk(prefix+name+"/", fn)
		}
	}
}

// UnmarshalJSON decodes the tree contract. An object whose "contents" is a
// string or an array is a file; any other object is a directory.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Tree, len(raw))
	for name, msg := range raw {
		node, err := decodeNode(msg)
		if err != nil {
			return fmt.Errorf("decoding %q: %w", name, err)
		}
		out[name] = node
	}
	*t = out
	return nil
}

func decodeNode(msg json.RawMessage) (Node, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(msg, &probe); err != nil {
		return nil, err
	}
	if contents, ok := probe["contents"]; ok && len(probe) == 1 {
		trimmed := bytes.TrimSpace(contents)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return nil, err
			}
			return &FileEntry{Contents: s}, nil
		case len(trimmed) > 0 && trimmed[0] == '[':
			var b []int
			if err := json.Unmarshal(trimmed, &b); err != nil {
				return nil, err
			}
			for i, v := range b {
				if v < 0 || v > 255 {
					return nil, fmt.Errorf("contents[%d] = %d is not a byte", i, v)
				}
			}
			return &FileEntry{Contents: b}, nil
		}
	}
	var sub Tree
	if err := sub.UnmarshalJSON(msg); err != nil {
		return nil, err
	}
	return sub, nil
}
