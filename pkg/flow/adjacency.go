package flow

import (
	"maps"
	"slices"
)

// Adjacency maps every screen number of a flow to its connected set. Each
// neighbour list is sorted by screen number and free of duplicates; that is
// the order in which layout walks it.
type Adjacency map[int][]int

// Screens returns the keys in ascending order.
func (a Adjacency) Screens() []int {
	return slices.Sorted(maps.Keys(a))
}

// Degree returns the size of n's connected set.
func (a Adjacency) Degree(n int) int { return len(a[n]) }

// ConnectedScreens returns the connected set of screen n: targets of its
// out-edges plus sources of bidirectional connections into n. Returns nil for
// an unknown screen or one with no reachable neighbours.
func (g *Graph) ConnectedScreens(n int) []int {
	var out []int
	for _, c := range g.conns {
		switch {
		case c.Out == n:
			out = append(out, c.In)
		case c.In == n && c.Bidirectional:
			out = append(out, c.Out)
		}
	}
	return normalize(out)
}

// Adjacency assembles the connected set of every screen from the current
// connection rows. Screens without neighbours are present with an empty list.
func (g *Graph) Adjacency() Adjacency {
	adj := make(Adjacency, len(g.screens))
	for _, s := range g.screens {
		adj[s.Number] = []int{}
	}
	for _, c := range g.conns {
		adj[c.Out] = append(adj[c.Out], c.In)
		if c.Bidirectional {
			adj[c.In] = append(adj[c.In], c.Out)
		}
	}
	for n, nbs := range adj {
		adj[n] = normalize(nbs)
	}
	return adj
}

func normalize(s []int) []int {
	if len(s) == 0 {
		return s
	}
	slices.Sort(s)
	return slices.Compact(s)
}
