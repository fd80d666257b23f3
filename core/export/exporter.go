package export

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/blobstore"
)

// DefaultRevokeDelay is how long a download's transient URL stays live.
//
// The delay is a timing heuristic, not a lifetime protocol: a slow consumer
// may still be resolving the URL when it is revoked, and a long download
// keeps the blob in memory until the timer fires. Callers that know when a
// download completes should revoke explicitly instead.
const DefaultRevokeDelay = time.Second

var (
	// ErrDataURLUnavailable means no data URL encoder is configured.
	ErrDataURLUnavailable = errors.New("no base64 encoder available for data URL")
	// ErrNoSaver means Download was called on an Exporter without a Saver.
	ErrNoSaver = errors.New("no saver configured for downloads")
)

// Config configures an Exporter. The zero value is usable except for
// Download, which needs a Saver.
type Config struct {
	// Blobs issues transient URLs. Nil creates a private store.
	Blobs *blobstore.Store
	// Saver receives downloaded documents.
	Saver core.Saver
	// RevokeDelay defaults to DefaultRevokeDelay.
	RevokeDelay time.Duration
	// Encoders are tried in order by ToDataURL. Nil selects
	// DefaultEncoders; an empty non-nil slice disables data URLs.
	Encoders []Encoder
	Logger   *slog.Logger
}

// Exporter wraps render results into output shapes.
type Exporter struct {
	blobs       *blobstore.Store
	saver       core.Saver
	revokeDelay time.Duration
	encoders    []Encoder
	logger      *slog.Logger
}

// New creates an Exporter from cfg.
func New(cfg Config) *Exporter {
	e := &Exporter{
		blobs:       cfg.Blobs,
		saver:       cfg.Saver,
		revokeDelay: cfg.RevokeDelay,
		encoders:    cfg.Encoders,
		logger:      cfg.Logger,
	}
	if e.blobs == nil {
		e.blobs = blobstore.New("")
	}
	if e.revokeDelay <= 0 {
		e.revokeDelay = DefaultRevokeDelay
	}
	if e.encoders == nil {
		e.encoders = DefaultEncoders()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Blobs returns the store transient URLs are issued from.
func (e *Exporter) Blobs() *blobstore.Store {
	return e.blobs
}

// ToBlob wraps the primary artifact in a Blob typed for format. An empty
// format means PDF.
func ToBlob(result *core.RenderResult, format core.Format) (core.Blob, error) {
	data, err := PrimaryArtifact(result)
	if err != nil {
		return core.Blob{}, err
	}
	if format == "" {
		format = core.DefaultFormat
	}
	return core.NewBlob(data, format.MIMEType()), nil
}

// ToBlob is the method form of the package-level ToBlob.
func (e *Exporter) ToBlob(result *core.RenderResult, format core.Format) (core.Blob, error) {
	return ToBlob(result, format)
}

// ToDataURL encodes the primary artifact as a base64 data URL.
func (e *Exporter) ToDataURL(ctx context.Context, result *core.RenderResult, format core.Format) (string, error) {
	blob, err := ToBlob(result, format)
	if err != nil {
		return "", err
	}
	for _, enc := range e.encoders {
		encoded, err := enc.Encode(ctx, blob)
		if errors.Is(err, ErrEncoderUnavailable) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("encoding data URL: %w", err)
		}
		return "data:" + blob.Type + ";base64," + encoded, nil
	}
	return "", ErrDataURLUnavailable
}

// ToElement replaces the content of target with the primary artifact. SVG
// is injected as markup, PDF as an embed tag pointing at a blob URL, and
// everything else as preformatted text. The embed URL is not revoked here;
// it belongs to the caller from now on.
//
// The artifact is fully extracted before target is touched, so a failure
// leaves the previous content in place.
func (e *Exporter) ToElement(result *core.RenderResult, format core.Format, target core.Container) error {
	data, err := PrimaryArtifact(result)
	if err != nil {
		return err
	}
	if format == "" {
		format = core.DefaultFormat
	}

	switch format {
	case core.FormatSVG:
		target.SetMarkup(string(data))
	case core.FormatPDF:
		url := e.blobs.Create(core.NewBlob(data, format.MIMEType()))
		target.SetMarkup(embedTag(url, format.MIMEType()))
		e.logger.Debug("embedded pdf preview", "url", url, "bytes", len(data))
	default:
		target.SetPreformatted(string(data))
	}
	return nil
}

func embedTag(url, mimeType string) string {
	return fmt.Sprintf(`<embed src="%s" type="%s" width="100%%" height="100%%"/>`,
		html.EscapeString(url), html.EscapeString(mimeType))
}

// Download saves the primary artifact under filename, which defaults to
// "document.<format>". A transient URL is issued for the download and
// revoked after the configured delay. The saved path is returned.
func (e *Exporter) Download(result *core.RenderResult, format core.Format, filename string) (string, error) {
	if e.saver == nil {
		return "", ErrNoSaver
	}
	blob, err := ToBlob(result, format)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(filename) == "" {
		filename = DefaultFilename(format)
	}

	url := e.blobs.Create(blob)
	path, err := e.saver.Save(filename, blob.Bytes())
	if err != nil {
		e.blobs.Revoke(url)
		return "", fmt.Errorf("saving %s: %w", filename, err)
	}

	time.AfterFunc(e.revokeDelay, func() {
		if e.blobs.Revoke(url) {
			e.logger.Debug("revoked download url", "url", url)
		}
	})
	e.logger.Debug("downloaded document", "path", path, "type", blob.Type, "bytes", blob.Size())
	return path, nil
}

// DefaultFilename returns "document.pdf", "document.svg" or "document.txt".
func DefaultFilename(format core.Format) string {
	return "document" + format.Extension()
}
