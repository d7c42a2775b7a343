package build

import (
	"fmt"

	"github.com/screenflow/screenflow/pkg/flow"
)

// DefaultMaxGap is the largest gap, in timeline units, between one
// prediction's TimeOut and the next one's TimeIn that still counts as a
// direct navigation.
const DefaultMaxGap = 100.0

// Stats counts what a resolve pass did.
type Stats struct {
	Created     int // new one-way rows
	Promoted    int // rows promoted to bidirectional
	Existing    int // requests that matched a row in the same direction
	SkippedGap  int // adjacent pairs further apart than MaxGap
	SkippedSelf int // adjacent pairs resolving to the same screen
}

// Requests returns the number of connections requested from the graph.
func (s Stats) Requests() int { return s.Created + s.Promoted + s.Existing }

// Resolver derives connections from adjacent prediction pairs.
type Resolver struct {
	MaxGap float64
}

// Resolve requests a connection screen[i-1] -> screen[i] for every adjacent
// pair whose gap is strictly below MaxGap and whose screens differ.
func (r Resolver) Resolve(g *flow.Graph, pairs []Pair) (Stats, error) {
	var st Stats
	for i := 1; i < len(pairs); i++ {
		prev, cur := pairs[i-1], pairs[i]
		if cur.Prediction.TimeIn-prev.Prediction.TimeOut >= r.MaxGap {
			st.SkippedGap++
			continue
		}
		if prev.Screen == cur.Screen {
			st.SkippedSelf++
			continue
		}
		_, res, err := g.Connect(prev.Screen, cur.Screen)
		if err != nil {
			return st, fmt.Errorf("connect %d -> %d: %w", prev.Screen, cur.Screen, err)
		}
		switch res {
		case flow.Created:
			st.Created++
		case flow.Promoted:
			st.Promoted++
		case flow.Existing:
			st.Existing++
		}
	}
	return st, nil
}
