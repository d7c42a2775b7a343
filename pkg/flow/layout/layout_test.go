package layout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/screenflow/screenflow/pkg/flow"
)

func pos(x, y int) flow.Position { return flow.Position{X: x, Y: y} }

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		adj   flow.Adjacency
		want  map[int]flow.Position
		order []int
	}{
		{
			name: "Empty",
			adj:  flow.Adjacency{},
			want: map[int]flow.Position{},
		},
		{
			name:  "FanOut",
			adj:   flow.Adjacency{1: {2, 3}, 2: {}, 3: {}},
			want:  map[int]flow.Position{1: pos(0, 0), 2: pos(1, 0), 3: pos(1, 1)},
			order: []int{1, 2, 3},
		},
		{
			name:  "IsolatedScreens",
			adj:   flow.Adjacency{4: {}, 5: {}},
			want:  map[int]flow.Position{4: pos(0, 0), 5: pos(0, 1)},
			order: []int{4, 5},
		},
		{
			name: "MostConnectedRootFirst",
			adj:  flow.Adjacency{1: {2}, 2: {}, 3: {1, 2}},
			// 3 is the root; 1 continues its row, 2 is reached through 1.
			want:  map[int]flow.Position{3: pos(0, 0), 1: pos(1, 0), 2: pos(2, 0)},
			order: []int{3, 1, 2},
		},
		{
			name:  "TieGoesToLowestNumber",
			adj:   flow.Adjacency{2: {1}, 1: {2}},
			want:  map[int]flow.Position{1: pos(0, 0), 2: pos(1, 0)},
			order: []int{1, 2},
		},
		{
			name: "Cycle",
			adj:  flow.Adjacency{1: {2}, 2: {3}, 3: {1}},
			want: map[int]flow.Position{1: pos(0, 0), 2: pos(1, 0), 3: pos(2, 0)},
		},
		{
			name: "VisitedFirstNeighbourKeepsRow",
			// 2 is already placed when 3 walks its list, so 4 still continues
			// 3's row.
			adj:  flow.Adjacency{1: {2, 3}, 2: {}, 3: {2, 4}, 4: {}},
			want: map[int]flow.Position{1: pos(0, 0), 2: pos(1, 0), 3: pos(1, 1), 4: pos(2, 1)},
		},
		{
			name: "SiblingsStackBelowSubtree",
			adj: flow.Adjacency{
				1: {2, 5, 6},
				2: {3, 4},
				3: {}, 4: {}, 5: {}, 6: {},
			},
			want: map[int]flow.Position{
				1: pos(0, 0), 2: pos(1, 0), 3: pos(2, 0), 4: pos(2, 1),
				5: pos(1, 2), 6: pos(1, 3),
			},
		},
		{
			name: "ComponentsStartBelowPreviousBlock",
			adj:  flow.Adjacency{1: {2, 3}, 2: {}, 3: {}, 4: {5}, 5: {}},
			want: map[int]flow.Position{
				1: pos(0, 0), 2: pos(1, 0), 3: pos(1, 1),
				4: pos(0, 2), 5: pos(1, 2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(tt.adj)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if len(res.Placements) != len(tt.want) {
				t.Fatalf("placements = %d, want %d", len(res.Placements), len(tt.want))
			}
			for n, want := range tt.want {
				got, ok := res.Position(n)
				if !ok {
					t.Errorf("screen %d not placed", n)
					continue
				}
				if got != want {
					t.Errorf("screen %d at %v, want %v", n, got, want)
				}
			}
			for i, n := range tt.order {
				if res.Placements[i].Screen != n {
					t.Errorf("placement %d = screen %d, want %d", i, res.Placements[i].Screen, n)
				}
			}
		})
	}
}

func TestComputeUnknownNeighbor(t *testing.T) {
	_, err := Compute(flow.Adjacency{1: {2}, 3: {}})
	if !errors.Is(err, ErrUnknownNeighbor) {
		t.Errorf("err = %v, want ErrUnknownNeighbor", err)
	}
}

func TestComputeNoCollision(t *testing.T) {
	// Dense pseudo-random graphs with cycles and back edges.
	for seed := 1; seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed%d", seed), func(t *testing.T) {
			n := 5 + seed
			adj := flow.Adjacency{}
			for i := 1; i <= n; i++ {
				adj[i] = nil
				for j := 1; j <= n; j++ {
					if i != j && (i*31+j*17+seed)%7 == 0 {
						adj[i] = append(adj[i], j)
					}
				}
			}
			res, err := Compute(adj)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Placements) != n {
				t.Fatalf("placed %d screens, want %d", len(res.Placements), n)
			}
			seen := map[flow.Position]int{}
			for _, p := range res.Placements {
				if other, ok := seen[p.Pos]; ok {
					t.Fatalf("screens %d and %d share %v", other, p.Screen, p.Pos)
				}
				seen[p.Pos] = p.Screen
			}
		})
	}
}

func TestComputeDeepChain(t *testing.T) {
	const n = 100000
	adj := make(flow.Adjacency, n)
	for i := 1; i < n; i++ {
		adj[i] = []int{i + 1}
	}
	adj[n] = nil
	res, err := Compute(adj)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := res.Position(n); p != pos(n-1, 0) {
		t.Errorf("last screen at %v, want (%d,0)", p, n-1)
	}
	if cols, rows := res.Bounds(); cols != n || rows != 1 {
		t.Errorf("Bounds = (%d,%d), want (%d,1)", cols, rows, n)
	}
}

func TestGraph(t *testing.T) {
	g := flow.NewGraph()
	for range 3 {
		g.AddScreen("")
	}
	g.Connect(1, 2)
	g.Connect(1, 3)
	g.Connect(3, 1)

	if _, err := Graph(g); err != nil {
		t.Fatal(err)
	}
	for n, want := range map[int]flow.Position{1: pos(0, 0), 2: pos(1, 0), 3: pos(1, 1)} {
		s, _ := g.Screen(n)
		if !s.Placed || s.Pos != want {
			t.Errorf("screen %d = %+v, want placed at %v", n, s, want)
		}
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
