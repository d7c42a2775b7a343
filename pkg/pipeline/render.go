package pipeline

import (
	"context"
	"time"

	"github.com/screenflow/screenflow/pkg/errors"
	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/observability"
	"github.com/screenflow/screenflow/pkg/render/nodelink"
)

// Export loads a stored flow and renders it in format.
func (r *Runner) Export(ctx context.Context, id, format string, opts nodelink.Options) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	f, err := r.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return Render(ctx, f, format, opts)
}

// Render produces one output format of f: a flow document (json, yaml) or
// a diagram (dot, svg, png).
func Render(ctx context.Context, f *flow.Flow, format string, opts nodelink.Options) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	hooks := observability.Build()
	hooks.OnRenderStart(ctx, f.ID, format)
	start := time.Now()
	data, err := render(ctx, f, format, opts)
	hooks.OnRenderComplete(ctx, f.ID, format, time.Since(start), err)
	return data, err
}

func render(ctx context.Context, f *flow.Flow, format string, opts nodelink.Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return graph.MarshalFlow(f, graph.FormatJSON)
	case FormatYAML:
		return graph.MarshalFlow(f, graph.FormatYAML)
	}

	dot := nodelink.ToDOT(f, opts)
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		data, err := nodelink.RenderSVG(ctx, dot)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
		}
		return data, nil
	case FormatPNG:
		data, err := nodelink.RenderPNG(ctx, dot)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render png")
		}
		return data, nil
	}
	return nil, ValidateFormat(format)
}
