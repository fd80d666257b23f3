// Package core defines the shared data contract for quillpipe.
// Bundles flow from the loader into an Engine; render results flow from the
// Engine into the exporters. Each collaborator is a small interface.
package core

import (
	"context"
	"fmt"
	"strings"
)

// ManifestName is the file every template bundle must carry at its root.
// The name is case-sensitive.
const ManifestName = "Quill.toml"

// Format is a renderer output format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatTXT Format = "txt"
)

// DefaultFormat is used when a caller does not declare a format.
const DefaultFormat = FormatPDF

// Formats lists every known format in inline-preview preference order.
var Formats = []Format{FormatSVG, FormatPDF, FormatTXT}

// ParseFormat validates a user-supplied format name. An empty name yields
// an empty Format, meaning "not requested".
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "", FormatPDF, FormatSVG, FormatTXT:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want pdf, svg, or txt)", s)
}

// MIMEType returns the media type for documents in this format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF, "":
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	case FormatTXT:
		return "text/plain"
	}
	return "application/octet-stream"
}

// Extension returns the file extension for this format, including the dot.
func (f Format) Extension() string {
	if f == "" {
		f = DefaultFormat
	}
	return "." + string(f)
}

// Artifact is one rendered payload. Bytes may hold any shape the byte
// normalizer understands.
type Artifact struct {
	Bytes    any    `json:"bytes"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ArtifactBytes exposes the wrapped payload to the byte normalizer.
func (a Artifact) ArtifactBytes() any {
	return a.Bytes
}

// RenderOptions controls a single render call.
type RenderOptions struct {
	Format    Format         `json:"format"`
	Assets    map[string]any `json:"assets,omitempty"`
	QuillName string         `json:"quillName,omitempty"`
}

// RenderResult is what an Engine returns. Artifacts is deliberately loose:
// engines return a list, a map with a "main" key, or a single artifact.
type RenderResult struct {
	Artifacts any      `json:"artifacts"`
	Warnings  []string `json:"warnings,omitempty"`
}

// TemplateInfo describes a registered template.
type TemplateInfo struct {
	Name             string   `json:"name"`
	SupportedFormats []Format `json:"supportedFormats"`
}

// Supports reports whether the template advertises format f.
func (ti *TemplateInfo) Supports(f Format) bool {
	for _, sf := range ti.SupportedFormats {
		if sf == f {
			return true
		}
	}
	return false
}

// Engine is the document renderer. Implementations include the built-in
// Go engine and a WebAssembly-hosted one.
type Engine interface {
	RegisterTemplate(ctx context.Context, name string, bundle *Bundle) error
	Render(ctx context.Context, markdown string, opts RenderOptions) (*RenderResult, error)
	TemplateInfo(ctx context.Context, name string) (*TemplateInfo, error)
}

// Container is a UI target whose content can be replaced.
type Container interface {
	// SetMarkup replaces the container's children with raw markup.
	SetMarkup(markup string)
	// SetPreformatted replaces the container's children with preformatted text.
	SetPreformatted(text string)
}

// Saver persists a downloaded document under a file name and returns where
// it ended up.
type Saver interface {
	Save(name string, data []byte) (string, error)
}
