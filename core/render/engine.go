package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gaurav-prasanna/quillpipe/core"
)

var (
	// ErrUnknownTemplate means no template is registered under the name.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrUnsupportedFormat means the template does not produce the format.
	ErrUnsupportedFormat = errors.New("format not supported by template")
)

// quillManifest is the part of Quill.toml the engine reads.
type quillManifest struct {
	Quill struct {
		Name    string   `toml:"name"`
		Formats []string `toml:"formats"`
	} `toml:"Quill"`
}

// template is one registered bundle.
type template struct {
	bundle  *core.Bundle
	formats []core.Format
}

// Engine is the built-in core.Engine. It lays markdown out as PDF, SVG,
// or plain text. Templates are validated and remembered; their files do
// not change the layout.
type Engine struct {
	logger *slog.Logger

	mu        sync.RWMutex
	templates map[string]*template
}

// NewEngine creates an empty Engine. A nil logger discards output.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{logger: logger, templates: make(map[string]*template)}
}

// RegisterTemplate stores bundle under name, replacing any earlier one.
func (e *Engine) RegisterTemplate(_ context.Context, name string, bundle *core.Bundle) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("template name is empty")
	}
	manifest, ok := bundle.Manifest()
	if !ok {
		return fmt.Errorf("registering %s: %s missing from bundle", name, core.ManifestName)
	}
	src, ok := manifest.Text()
	if !ok {
		return fmt.Errorf("registering %s: %s is not text", name, core.ManifestName)
	}
	formats, err := manifestFormats(src)
	if err != nil {
		return fmt.Errorf("registering %s: %w", name, err)
	}

	e.mu.Lock()
	e.templates[name] = &template{bundle: bundle, formats: formats}
	e.mu.Unlock()

	e.logger.Debug("registered template", "name", name, "formats", formats)
	return nil
}

// manifestFormats reads [Quill].formats; absent or empty means all.
func manifestFormats(src string) ([]core.Format, error) {
	var m quillManifest
	if _, err := toml.Decode(src, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", core.ManifestName, err)
	}
	if len(m.Quill.Formats) == 0 {
		return append([]core.Format(nil), core.Formats...), nil
	}
	formats := make([]core.Format, 0, len(m.Quill.Formats))
	for _, raw := range m.Quill.Formats {
		f, err := core.ParseFormat(raw)
		if err != nil {
			return nil, err
		}
		if f == "" {
			return nil, fmt.Errorf("%s lists an empty format", core.ManifestName)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// TemplateInfo reports the formats a template supports.
func (e *Engine) TemplateInfo(_ context.Context, name string) (*core.TemplateInfo, error) {
	e.mu.RLock()
	t, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return &core.TemplateInfo{Name: name, SupportedFormats: append([]core.Format(nil), t.formats...)}, nil
}

// Render lays markdown out with the template named in opts.QuillName. When
// no name is given and exactly one template is registered, that one is used.
func (e *Engine) Render(ctx context.Context, markdown string, opts core.RenderOptions) (*core.RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, t, err := e.lookup(opts.QuillName)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = core.DefaultFormat
	}
	supported := false
	for _, f := range t.formats {
		supported = supported || f == format
	}
	if !supported {
		return nil, fmt.Errorf("%w: %s does not produce %s", ErrUnsupportedFormat, name, format)
	}

	blocks := parseBlocks(markdown)
	var data []byte
	switch format {
	case core.FormatPDF:
		data, err = renderPDF(blocks, name)
	case core.FormatSVG:
		data = renderSVG(blocks)
	case core.FormatTXT:
		data = renderText(blocks)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", format, err)
	}

	e.logger.Debug("rendered document", "template", name, "format", format, "blocks", len(blocks), "bytes", len(data))
	return &core.RenderResult{
		Artifacts: []core.Artifact{{Bytes: data, MIMEType: format.MIMEType()}},
	}, nil
}

func (e *Engine) lookup(name string) (string, *template, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if name != "" {
		t, ok := e.templates[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
		}
		return name, t, nil
	}
	if len(e.templates) != 1 {
		names := make([]string, 0, len(e.templates))
		for n := range e.templates {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", nil, fmt.Errorf("%w: no template named and %d registered %v", ErrUnknownTemplate, len(names), names)
	}
	for n, t := range e.templates {
		return n, t, nil
	}
	return "", nil, ErrUnknownTemplate
}
