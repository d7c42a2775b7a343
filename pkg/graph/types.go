package graph

import (
	"fmt"
	"slices"
	"time"

	"github.com/screenflow/screenflow/pkg/flow"
)

// =============================================================================
// Constants
// =============================================================================

// Serialization formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// =============================================================================
// Flow - Serialized Flow Document
// =============================================================================

// Flow is the canonical serialization format for a screen flow.
type Flow struct {
	ID          string       `json:"id" yaml:"id" bson:"_id"`
	Title       string       `json:"title" yaml:"title" bson:"title"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	Ordinal     int          `json:"ordinal,omitempty" yaml:"ordinal,omitempty" bson:"ordinal,omitempty"`
	Status      string       `json:"status" yaml:"status" bson:"status"`
	Frame       flow.Frame   `json:"frame" yaml:"frame" bson:"frame"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at" bson:"created_at"`
	Screens     []Screen     `json:"screens" yaml:"screens" bson:"screens"`
	Connections []Connection `json:"connections" yaml:"connections" bson:"connections"`
}

// Screen is a serialized screen. X and Y are only meaningful when Placed.
type Screen struct {
	Number int    `json:"number" yaml:"number" bson:"number"`
	Image  string `json:"image,omitempty" yaml:"image,omitempty" bson:"image,omitempty"`
	X      int    `json:"x" yaml:"x" bson:"x"`
	Y      int    `json:"y" yaml:"y" bson:"y"`
	Placed bool   `json:"placed" yaml:"placed" bson:"placed"`
}

// Connection is a serialized connection row with its resolved anchors.
type Connection struct {
	Out           int    `json:"out" yaml:"out" bson:"out"`
	In            int    `json:"in" yaml:"in" bson:"in"`
	Bidirectional bool   `json:"bidirectional" yaml:"bidirectional" bson:"bidirectional"`
	SourceAnchor  string `json:"source_anchor,omitempty" yaml:"source_anchor,omitempty" bson:"-"`
	TargetAnchor  string `json:"target_anchor,omitempty" yaml:"target_anchor,omitempty" bson:"-"`
}

// =============================================================================
// flow.Flow ↔ Flow Conversion
// =============================================================================

// FromFlow converts a flow to its serialization format. Anchors are resolved
// for every connection whose screens are both placed.
func FromFlow(f *flow.Flow) Flow {
	out := Flow{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Ordinal:     f.Ordinal,
		Status:      string(f.Status),
		Frame:       f.Frame,
		CreatedAt:   f.CreatedAt,
		Screens:     []Screen{},
		Connections: []Connection{},
	}

	g := f.Graph
	if g == nil {
		return out
	}
	for _, s := range g.Screens() {
		out.Screens = append(out.Screens, Screen{
			Number: s.Number,
			Image:  string(s.Image),
			X:      s.Pos.X,
			Y:      s.Pos.Y,
			Placed: s.Placed,
		})
	}
	for _, c := range g.Connections() {
		cj := Connection{Out: c.Out, In: c.In, Bidirectional: c.Bidirectional}
		if placed(g, c.Out) && placed(g, c.In) {
			src, dst, _ := g.Anchors(c)
			cj.SourceAnchor, cj.TargetAnchor = string(src), string(dst)
		}
		out.Connections = append(out.Connections, cj)
	}
	return out
}

// ToFlow converts a serialized flow back into a flow. Screens must number
// 1..n without gaps. Connections are merged by unordered pair and the result
// is validated before it is returned.
func ToFlow(fj Flow) (*flow.Flow, error) {
	status := flow.Status(fj.Status)
	if fj.Status == "" {
		status = flow.StatusPending
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", fj.Status)
	}
	if fj.Ordinal < 0 {
		return nil, fmt.Errorf("negative ordinal %d", fj.Ordinal)
	}

	f := &flow.Flow{
		ID:          fj.ID,
		Title:       fj.Title,
		Description: fj.Description,
		Ordinal:     fj.Ordinal,
		Status:      status,
		Frame:       fj.Frame,
		CreatedAt:   fj.CreatedAt,
		Graph:       flow.NewGraph(),
	}
	if f.Frame.Width <= 0 || f.Frame.Height <= 0 {
		f.Frame = flow.DefaultFrame
	}

	screens := slices.Clone(fj.Screens)
	slices.SortFunc(screens, func(a, b Screen) int { return a.Number - b.Number })
	for _, sj := range screens {
		s := flow.Screen{
			Number: sj.Number,
			Image:  flow.ImageRef(sj.Image),
			Pos:    flow.Position{X: sj.X, Y: sj.Y},
			Placed: sj.Placed,
		}
		if err := f.Graph.RestoreScreen(s); err != nil {
			return nil, fmt.Errorf("screen %d: %w", sj.Number, err)
		}
	}

	for _, cj := range fj.Connections {
		c := flow.Connection{Out: cj.Out, In: cj.In, Bidirectional: cj.Bidirectional}
		if err := f.Graph.RestoreConnection(c); err != nil {
			return nil, fmt.Errorf("connection %d→%d: %w", cj.Out, cj.In, err)
		}
	}

	if err := f.Graph.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func placed(g *flow.Graph, n int) bool {
	s, ok := g.Screen(n)
	return ok && s.Placed
}
