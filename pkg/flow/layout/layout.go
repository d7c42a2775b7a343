package layout

import (
	"errors"
	"fmt"
	"slices"

	"github.com/screenflow/screenflow/pkg/flow"
)

// ErrUnknownNeighbor is returned by [Compute] when a neighbour list names a
// screen that is not a key of the adjacency map. This usually means screens of
// two flows were mixed.
var ErrUnknownNeighbor = errors.New("neighbor is not a screen of this flow")

// Placement is the coordinate assigned to one screen.
type Placement struct {
	Screen int
	Pos    flow.Position
}

// Result holds the placements of one layout run in placement order.
type Result struct {
	Placements []Placement
	byScreen   map[int]int
}

// Position returns the coordinate assigned to screen n.
func (r Result) Position(n int) (flow.Position, bool) {
	i, ok := r.byScreen[n]
	if !ok {
		return flow.Position{}, false
	}
	return r.Placements[i].Pos, true
}

// Bounds returns the number of columns and rows the layout spans.
func (r Result) Bounds() (cols, rows int) {
	for _, p := range r.Placements {
		cols = max(cols, p.Pos.X+1)
		rows = max(rows, p.Pos.Y+1)
	}
	return cols, rows
}

type state uint8

const (
	unvisited state = iota
	queued
	placed
)

// frame is one pending placement on the explicit stack.
type frame struct {
	node     int // dense index
	x, y     int // y is the running row cursor of this subtree
	children int // neighbours placed so far
	next     int // next neighbour to consider
}

// Compute lays out every screen of adj. Neighbour lists are walked in the
// order given; [flow.Graph.Adjacency] supplies them sorted by screen number.
func Compute(adj flow.Adjacency) (Result, error) {
	ids := adj.Screens()
	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	nbrs := make([][]int, len(ids))
	for i, id := range ids {
		list := adj[id]
		nbrs[i] = make([]int, len(list))
		for j, nb := range list {
			k, ok := index[nb]
			if !ok {
				return Result{}, fmt.Errorf("%w: screen %d lists %d", ErrUnknownNeighbor, id, nb)
			}
			nbrs[i][j] = k
		}
	}

	// Degrees never change during the walk, so root order can be fixed up front.
	roots := make([]int, len(ids))
	for i := range roots {
		roots[i] = i
	}
	slices.SortStableFunc(roots, func(a, b int) int {
		return len(nbrs[b]) - len(nbrs[a])
	})

	res := Result{
		Placements: make([]Placement, 0, len(ids)),
		byScreen:   make(map[int]int, len(ids)),
	}
	states := make([]state, len(ids))
	commit := func(node, x, y int) {
		states[node] = queued
		res.byScreen[ids[node]] = len(res.Placements)
		res.Placements = append(res.Placements, Placement{Screen: ids[node], Pos: flow.Position{X: x, Y: y}})
	}

	var stack []frame
	row := 0
	for _, root := range roots {
		if states[root] != unvisited {
			continue
		}
		commit(root, 0, row)
		stack = append(stack[:0], frame{node: root, x: 0, y: row})
		last := row

		for len(stack) > 0 {
			top := len(stack) - 1
			f := &stack[top]
			if f.next < len(nbrs[f.node]) {
				nb := nbrs[f.node][f.next]
				f.next++
				if states[nb] != unvisited {
					continue
				}
				y := f.y
				if f.children > 0 {
					y++
				}
				commit(nb, f.x+1, y)
				stack = append(stack, frame{node: nb, x: f.x + 1, y: y})
				continue
			}

			states[f.node] = placed
			done := *f
			stack = stack[:top]
			if top == 0 {
				last = done.y
				break
			}
			parent := &stack[top-1]
			parent.y = done.y
			parent.children++
		}
		row = last + 1
	}
	return res, nil
}

// Apply commits the positions of r onto g.
func Apply(g *flow.Graph, r Result) error {
	for _, p := range r.Placements {
		if err := g.Place(p.Screen, p.Pos); err != nil {
			return err
		}
	}
	return nil
}

// Graph computes a fresh layout for g from its current connections and
// commits it. Screens keep their positions if the layout fails.
func Graph(g *flow.Graph) (Result, error) {
	r, err := Compute(g.Adjacency())
	if err != nil {
		return Result{}, err
	}
	g.ResetPositions()
	if err := Apply(g, r); err != nil {
		return Result{}, err
	}
	return r, nil
}
