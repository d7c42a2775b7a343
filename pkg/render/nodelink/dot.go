package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/screenflow/screenflow/pkg/flow"
)

const pointsPerInch = 72.0

// Defaults applied by [Options.withDefaults].
const (
	DefaultSpacingRatio = 1.5
	DefaultScale        = 0.25
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the image reference and grid cell to node labels.
	// When false, only the screen number is shown.
	Detailed bool
	// SpacingRatio is the distance between grid cells as a multiple of the
	// screen size.
	SpacingRatio float64
	// Scale shrinks frame pixels to diagram points.
	Scale float64
}

func (o Options) withDefaults() Options {
	if o.SpacingRatio <= 0 {
		o.SpacingRatio = DefaultSpacingRatio
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	return o
}

// ToDOT converts a laid-out flow to Graphviz DOT for the neato engine.
// Placed screens are pinned to their grid cell, row 0 on top. Unplaced
// screens are left for neato to position.
func ToDOT(f *flow.Flow, opts Options) string {
	opts = opts.withDefaults()
	w := float64(f.Frame.Width) * opts.Scale
	h := float64(f.Frame.Height) * opts.Scale

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, fixedsize=true, width=%.2f, height=%.2f];\n",
		w/pointsPerInch, h/pointsPerInch)
	buf.WriteString("  edge [arrowsize=0.8];\n")
	buf.WriteString("\n")

	g := f.Graph
	for _, s := range g.Screens() {
		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(*s, opts.Detailed))}
		if s.Placed {
			x := float64(s.Pos.X) * w * opts.SpacingRatio / pointsPerInch
			y := float64(-s.Pos.Y) * h * opts.SpacingRatio / pointsPerInch
			attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", x, y))
		} else {
			attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", strconv.Itoa(s.Number), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, c := range g.Connections() {
		var attrs []string
		if src, dst, ok := g.Anchors(c); ok && placed(g, c.Out) && placed(g, c.In) {
			attrs = append(attrs, "tailport="+port(src), "headport="+port(dst))
		}
		if c.Bidirectional {
			attrs = append(attrs, "dir=both")
		}
		fmt.Fprintf(&buf, "  %q -> %q", strconv.Itoa(c.Out), strconv.Itoa(c.In))
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
		}
		buf.WriteString(";\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(s flow.Screen, detailed bool) string {
	label := strconv.Itoa(s.Number)
	if !detailed {
		return label
	}
	parts := []string{label}
	if s.Image != "" {
		parts = append(parts, string(s.Image))
	}
	if s.Placed {
		parts = append(parts, fmt.Sprintf("(%d, %d)", s.Pos.X, s.Pos.Y))
	}
	return strings.Join(parts, "\n")
}

func port(a flow.Anchor) string {
	switch a {
	case flow.AnchorTop:
		return "n"
	case flow.AnchorBottom:
		return "s"
	case flow.AnchorLeft:
		return "w"
	default:
		return "e"
	}
}

func placed(g *flow.Graph, n int) bool {
	s, ok := g.Screen(n)
	return ok && s.Placed
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
