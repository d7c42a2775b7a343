// Package nodelink renders screen flows as node-link diagrams.
//
// # Overview
//
// This package produces flow diagrams using Graphviz, where screens appear
// as boxes pinned to their layout cell and connections as arrows between
// them. Bidirectional connections carry arrowheads on both ends.
//
// # Usage
//
// Convert a flow to DOT format, then render:
//
//	dot := nodelink.ToDOT(f, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # Geometry
//
// Each grid cell is one frame (scaled by [Options.Scale]) plus spacing
// ([Options.SpacingRatio]). Rows grow downward, so row 0 is the top of the
// diagram. Edge endpoints use the ports implied by the connection anchors:
// right → e, left → w, top → n, bottom → s.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering
// with the neato engine, which honours pinned node positions.
package nodelink
