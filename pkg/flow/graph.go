package flow

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrSelfConnection is returned by [Graph.Connect] when both ends name the
	// same screen. Consecutive sightings of one screen never form an edge.
	ErrSelfConnection = errors.New("screen cannot connect to itself")

	// ErrUnknownScreen is returned when a screen number is not part of the graph.
	ErrUnknownScreen = errors.New("unknown screen")

	// ErrPositionTaken is returned by [Graph.MoveScreen] when another placed
	// screen already holds the target coordinate.
	ErrPositionTaken = errors.New("position already taken")

	// ErrDuplicatePair is returned by [Graph.Validate] when two connection rows
	// cover the same unordered pair.
	ErrDuplicatePair = errors.New("duplicate connection pair")

	// ErrOutOfSequence is returned by [Graph.RestoreScreen] when the screen
	// number does not continue the existing sequence.
	ErrOutOfSequence = errors.New("screen number out of sequence")
)

// ImageRef is an opaque reference to the frame image a screen was created from.
type ImageRef string

// Position is a cell of the layout grid. X grows to the right, Y grows down.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Screen is one distinct UI view of a flow.
type Screen struct {
	Number int      // 1-based sequence number, stable for the flow's lifetime
	Image  ImageRef // Frame the screen was first seen in
	Pos    Position // Grid coordinate, meaningful only when Placed
	Placed bool     // Set by layout or a manual move
}

// Connection is a navigational edge between two screens. Out and In keep the
// direction in which the edge was first detected.
type Connection struct {
	Out           int
	In            int
	Bidirectional bool
}

// Resolution tells how [Graph.Connect] satisfied a request.
type Resolution int

const (
	// Existing means the same-direction connection was already present.
	Existing Resolution = iota
	// Promoted means the reverse connection existed and is now bidirectional.
	Promoted
	// Created means a new one-way connection was added.
	Created
)

func (r Resolution) String() string {
	switch r {
	case Existing:
		return "existing"
	case Promoted:
		return "promoted"
	case Created:
		return "created"
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

type pair struct{ lo, hi int }

func pairOf(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Graph is the arena holding one flow's screens and connections.
//
// The zero value is not usable - use NewGraph.
type Graph struct {
	screens []*Screen
	conns   []*Connection
	pairs   map[pair]*Connection
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{pairs: make(map[pair]*Connection)}
}

// AddScreen creates a screen with the next sequence number.
func (g *Graph) AddScreen(img ImageRef) *Screen {
	s := &Screen{Number: len(g.screens) + 1, Image: img}
	g.screens = append(g.screens, s)
	return s
}

// RestoreScreen re-creates a previously stored screen, keeping its position.
// Screens must be restored in sequence order.
func (g *Graph) RestoreScreen(s Screen) error {
	if s.Number != len(g.screens)+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrOutOfSequence, s.Number, len(g.screens)+1)
	}
	g.screens = append(g.screens, &s)
	return nil
}

// Screen returns the screen with the given number.
func (g *Graph) Screen(n int) (*Screen, bool) {
	if n < 1 || n > len(g.screens) {
		return nil, false
	}
	return g.screens[n-1], true
}

// Screens returns all screens in sequence order. The pointers refer to the
// graph's screens.
func (g *Graph) Screens() []*Screen { return slices.Clone(g.screens) }

// ScreenCount returns the number of screens.
func (g *Graph) ScreenCount() int { return len(g.screens) }

// ConnectionCount returns the number of connection rows.
func (g *Graph) ConnectionCount() int { return len(g.conns) }

// Connect requests a connection from out to in and applies the merge rule:
// an existing same-direction row is returned unchanged, an existing reverse
// row is promoted to bidirectional, otherwise a one-way row is created.
func (g *Graph) Connect(out, in int) (Connection, Resolution, error) {
	if out == in {
		return Connection{}, Existing, fmt.Errorf("%w: %d", ErrSelfConnection, out)
	}
	if _, ok := g.Screen(out); !ok {
		return Connection{}, Existing, fmt.Errorf("%w: %d", ErrUnknownScreen, out)
	}
	if _, ok := g.Screen(in); !ok {
		return Connection{}, Existing, fmt.Errorf("%w: %d", ErrUnknownScreen, in)
	}

	key := pairOf(out, in)
	if c, ok := g.pairs[key]; ok {
		if c.Out == out {
			return *c, Existing, nil
		}
		c.Bidirectional = true
		return *c, Promoted, nil
	}

	c := &Connection{Out: out, In: in}
	g.conns = append(g.conns, c)
	g.pairs[key] = c
	return *c, Created, nil
}

// RestoreConnection re-creates a stored connection row. A row for a pair that
// is already present is merged into it: the flag can only be promoted.
func (g *Graph) RestoreConnection(c Connection) error {
	stored, _, err := g.Connect(c.Out, c.In)
	if err != nil {
		return err
	}
	if c.Bidirectional && !stored.Bidirectional {
		g.pairs[pairOf(c.Out, c.In)].Bidirectional = true
	}
	return nil
}

// Connection returns the row covering the pair {a, b}, in either direction.
func (g *Graph) Connection(a, b int) (Connection, bool) {
	c, ok := g.pairs[pairOf(a, b)]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Connections returns a copy of all connection rows in creation order.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.conns))
	for i, c := range g.conns {
		out[i] = *c
	}
	return out
}

// Place commits a layout position without collision checks. Layout results
// are collision-free by construction; use MoveScreen for manual edits.
func (g *Graph) Place(n int, pos Position) error {
	s, ok := g.Screen(n)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScreen, n)
	}
	s.Pos = pos
	s.Placed = true
	return nil
}

// MoveScreen moves a screen to pos. The move is refused when another placed
// screen already occupies pos.
func (g *Graph) MoveScreen(n int, pos Position) error {
	s, ok := g.Screen(n)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScreen, n)
	}
	for _, other := range g.screens {
		if other.Number != n && other.Placed && other.Pos == pos {
			return fmt.Errorf("%w: (%d,%d) held by screen %d", ErrPositionTaken, pos.X, pos.Y, other.Number)
		}
	}
	s.Pos = pos
	s.Placed = true
	return nil
}

// ResetPositions marks every screen as unplaced.
func (g *Graph) ResetPositions() {
	for _, s := range g.screens {
		s.Pos = Position{}
		s.Placed = false
	}
}

// Validate checks the pair uniqueness and coordinate uniqueness invariants.
func (g *Graph) Validate() error {
	seen := make(map[pair]bool, len(g.conns))
	for _, c := range g.conns {
		if _, ok := g.Screen(c.Out); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownScreen, c.Out)
		}
		if _, ok := g.Screen(c.In); !ok {
			return fmt.Errorf("%w: %d", ErrUnknownScreen, c.In)
		}
		k := pairOf(c.Out, c.In)
		if seen[k] {
			return fmt.Errorf("%w: {%d,%d}", ErrDuplicatePair, k.lo, k.hi)
		}
		seen[k] = true
	}

	held := make(map[Position]int, len(g.screens))
	for _, s := range g.screens {
		if !s.Placed {
			continue
		}
		if other, ok := held[s.Pos]; ok {
			return fmt.Errorf("%w: screens %d and %d at (%d,%d)", ErrPositionTaken, other, s.Number, s.Pos.X, s.Pos.Y)
		}
		held[s.Pos] = s.Number
	}
	return nil
}
