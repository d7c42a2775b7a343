package build

import "github.com/screenflow/screenflow/pkg/flow"

// Images addresses the frames a set of predictions refers to.
type Images interface {
	Len() int
	Ref(index int) flow.ImageRef
}

// Refs is an in-memory Images.
type Refs []flow.ImageRef

func (r Refs) Len() int                    { return len(r) }
func (r Refs) Ref(index int) flow.ImageRef { return r[index] }

// Pair couples a prediction with the screen it was resolved to.
type Pair struct {
	Prediction flow.Prediction
	Screen     int
}

// Deduplicate resolves each prediction to a screen of g. The first prediction
// naming a frame index creates a screen; later ones reuse it. When g already
// holds screens from an earlier pass, a frame whose image reference matches an
// existing screen reuses that screen.
//
// The result has the same length and order as preds. Indices must already be
// valid for images.
func Deduplicate(g *flow.Graph, preds []flow.Prediction, images Images) []Pair {
	if len(preds) == 0 {
		return nil
	}

	byImage := make(map[flow.ImageRef]int, g.ScreenCount())
	for _, s := range g.Screens() {
		if s.Image != "" {
			if _, ok := byImage[s.Image]; !ok {
				byImage[s.Image] = s.Number
			}
		}
	}

	seen := make(map[int]int, len(preds))
	pairs := make([]Pair, len(preds))
	for i, p := range preds {
		n, ok := seen[p.Index]
		if !ok {
			ref := images.Ref(p.Index)
			if existing, found := byImage[ref]; found && ref != "" {
				n = existing
			} else {
				n = g.AddScreen(ref).Number
			}
			seen[p.Index] = n
		}
		pairs[i] = Pair{Prediction: p, Screen: n}
	}
	return pairs
}
