package export

import (
	"context"
	"log/slog"

	"github.com/gaurav-prasanna/quillpipe/core"
)

// TemplateInformer is the part of core.Engine used to pick a format.
type TemplateInformer interface {
	TemplateInfo(ctx context.Context, name string) (*core.TemplateInfo, error)
}

// ResolveFormat picks the format for an inline preview. An explicit
// request wins. Otherwise the template's advertised formats are consulted
// in the order svg, pdf, txt. When nothing can be learned, svg is assumed.
// Lookup failures are logged at debug level and otherwise ignored.
func ResolveFormat(ctx context.Context, info TemplateInformer, template string, requested core.Format, logger *slog.Logger) core.Format {
	if requested != "" {
		return requested
	}
	if info == nil || template == "" {
		return core.FormatSVG
	}
	ti, err := info.TemplateInfo(ctx, template)
	if err != nil || ti == nil {
		if logger != nil {
			logger.Debug("template info unavailable, assuming svg", "template", template, "error", err)
		}
		return core.FormatSVG
	}
	for _, f := range core.Formats {
		if ti.Supports(f) {
			return f
		}
	}
	return core.FormatSVG
}
