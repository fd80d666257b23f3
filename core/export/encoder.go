package export

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/quillpipe/core"
)

// ErrEncoderUnavailable lets an Encoder decline so the next one is tried.
var ErrEncoderUnavailable = errors.New("encoder unavailable")

// Encoder produces the base64 body of a data URL.
type Encoder interface {
	Encode(ctx context.Context, b core.Blob) (string, error)
}

// DefaultEncoders streams through a reader first and falls back to a
// one-shot encode.
func DefaultEncoders() []Encoder {
	return []Encoder{StreamEncoder{}, BufferEncoder{Encoding: base64.StdEncoding}}
}

// streamChunk is a multiple of 3 so chunks encode without padding.
const streamChunk = 48 * 1024

// StreamEncoder reads the blob in chunks, checking ctx between them.
type StreamEncoder struct{}

func (StreamEncoder) Encode(ctx context.Context, b core.Blob) (string, error) {
	var out strings.Builder
	out.Grow(base64.StdEncoding.EncodedLen(b.Size()))
	enc := base64.NewEncoder(base64.StdEncoding, &out)

	r := b.Reader()
	buf := make([]byte, streamChunk)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := enc.Write(buf[:n]); werr != nil {
				return "", werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading blob: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// BufferEncoder encodes the whole blob at once. A nil Encoding declines.
type BufferEncoder struct {
	Encoding *base64.Encoding
}

func (e BufferEncoder) Encode(_ context.Context, b core.Blob) (string, error) {
	if e.Encoding == nil {
		return "", ErrEncoderUnavailable
	}
	return e.Encoding.EncodeToString(b.Bytes()), nil
}
