package flow

import (
	"slices"
	"testing"
)

func TestConnectedScreens(t *testing.T) {
	g := newGraph(4)
	g.Connect(1, 2) // one-way
	g.Connect(3, 1) // one-way into 1
	g.Connect(4, 1)
	g.Connect(1, 4) // promotes 4<->1

	tests := []struct {
		screen int
		want   []int
	}{
		{1, []int{2, 4}},
		{2, nil},
		{3, []int{1}},
		{4, []int{1}},
		{9, nil},
	}
	for _, tt := range tests {
		if got := g.ConnectedScreens(tt.screen); !slices.Equal(got, tt.want) {
			t.Errorf("ConnectedScreens(%d) = %v, want %v", tt.screen, got, tt.want)
		}
	}
}

func TestAdjacency(t *testing.T) {
	g := newGraph(4)
	g.Connect(1, 3)
	g.Connect(1, 2)
	g.Connect(2, 1)

	adj := g.Adjacency()
	want := Adjacency{1: {2, 3}, 2: {1}, 3: {}, 4: {}}
	if len(adj) != len(want) {
		t.Fatalf("len = %d, want %d", len(adj), len(want))
	}
	for n, nbs := range want {
		if !slices.Equal(adj[n], nbs) {
			t.Errorf("adj[%d] = %v, want %v", n, adj[n], nbs)
		}
	}
	if got := adj.Screens(); !slices.Equal(got, []int{1, 2, 3, 4}) {
		t.Errorf("Screens = %v", got)
	}
	if adj.Degree(1) != 2 {
		t.Errorf("Degree(1) = %d, want 2", adj.Degree(1))
	}
}

func TestAdjacencyTracksLiveRows(t *testing.T) {
	g := newGraph(2)
	g.Connect(1, 2)
	if got := g.Adjacency()[2]; len(got) != 0 {
		t.Errorf("before promotion adj[2] = %v, want empty", got)
	}
	g.Connect(2, 1)
	if got := g.Adjacency()[2]; !slices.Equal(got, []int{1}) {
		t.Errorf("after promotion adj[2] = %v, want [1]", got)
	}
}
