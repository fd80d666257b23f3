// Package cmd — shared pipeline steps.
// archive → bundle → engine registration → source → render.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/quillpipe/core"
	"github.com/gaurav-prasanna/quillpipe/core/bundle"
	"github.com/gaurav-prasanna/quillpipe/core/export"
	"github.com/gaurav-prasanna/quillpipe/core/fetch"
	"github.com/gaurav-prasanna/quillpipe/core/render"
	"github.com/gaurav-prasanna/quillpipe/core/source"
	"github.com/gaurav-prasanna/quillpipe/core/wasm"
	"github.com/spf13/pflag"
)

// addTemplateFlags registers the flags render and preview share.
func addTemplateFlags(fs *pflag.FlagSet, template, format *string) {
	fs.StringVar(template, "template", "", "Template archive path or URL (required)")
	fs.StringVar(format, "format", "", "Output format: pdf, svg or txt")
}

// readArchive returns archive bytes from a path or an http(s) URL.
func readArchive(ctx context.Context, src string) ([]byte, error) {
	if fetch.IsURL(src) {
		logger.Debug("fetching archive", "url", src)
		return fetch.New().Fetch(ctx, src)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	return data, nil
}

// loadTemplate loads the bundle at src.
func loadTemplate(ctx context.Context, src string) (*core.Bundle, error) {
	data, err := readArchive(ctx, src)
	if err != nil {
		return nil, err
	}
	b, err := bundle.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src, err)
	}
	return b, nil
}

// templateName derives a registration name from an archive path or URL.
func templateName(src string) string {
	base := path.Base(filepath.ToSlash(src))
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// openEngine starts the configured engine. The returned func releases it.
func openEngine(ctx context.Context) (core.Engine, func() error, error) {
	module := flagEngine
	if module == "" {
		module = cfg.Engine.Module
	}
	if module == "" {
		return render.NewEngine(logger), func() error { return nil }, nil
	}

	src, err := os.ReadFile(module)
	if err != nil {
		return nil, nil, fmt.Errorf("reading engine module: %w", err)
	}
	e, err := wasm.Start(ctx, wasm.Options{
		ModuleSource: src,
		ModuleName:   templateName(module),
		PoolSize:     cfg.Engine.PoolSize,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting engine %s: %w", module, err)
	}
	return e, e.Close, nil
}

// rendered is one document ready for export.
type rendered struct {
	result *core.RenderResult
	format core.Format
	name   string
}

// renderDocument registers the template, prepares the input, resolves the
// format and renders.
func renderDocument(ctx context.Context, engine core.Engine, templateSrc, input, requested string) (*rendered, error) {
	format, err := core.ParseFormat(requested)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = cfg.Format()
	}

	b, err := loadTemplate(ctx, templateSrc)
	if err != nil {
		return nil, err
	}
	name := templateName(templateSrc)
	if err := engine.RegisterTemplate(ctx, name, b); err != nil {
		return nil, fmt.Errorf("registering template %s: %w", name, err)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	markdown, err := source.Prepare(input, data)
	if err != nil {
		return nil, err
	}

	format = export.ResolveFormat(ctx, engine, name, format, logger)
	result, err := engine.Render(ctx, markdown, core.RenderOptions{Format: format, QuillName: name})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	for _, w := range result.Warnings {
		logger.Warn("render warning", "template", name, "warning", w)
	}

	base := filepath.Base(input)
	return &rendered{
		result: result,
		format: format,
		name:   strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}
