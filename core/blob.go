package core

import (
	"bytes"
	"io"
)

// Blob is an immutable typed byte payload.
type Blob struct {
	Type string
	data []byte
}

// NewBlob copies data so later changes by the caller do not leak in.
func NewBlob(data []byte, mimeType string) Blob {
	return Blob{Type: mimeType, data: bytes.Clone(data)}
}

// Size returns the payload length.
func (b Blob) Size() int {
	return len(b.data)
}

// Bytes returns a copy of the payload.
func (b Blob) Bytes() []byte {
	return bytes.Clone(b.data)
}

// Reader streams the payload without copying it.
func (b Blob) Reader() io.Reader {
	return bytes.NewReader(b.data)
}
