package flow

import "testing"

func TestResolveAnchors(t *testing.T) {
	tests := []struct {
		name       string
		out, in    Position
		wantSource Anchor
		wantTarget Anchor
	}{
		{"SameRowForward", Position{0, 0}, Position{1, 0}, AnchorRight, AnchorLeft},
		{"SameRowBackward", Position{1, 0}, Position{0, 0}, AnchorRight, AnchorLeft},
		{"BelowSameColumn", Position{1, 0}, Position{1, 2}, AnchorBottom, AnchorTop},
		{"BelowLeft", Position{2, 0}, Position{1, 1}, AnchorBottom, AnchorTop},
		{"BelowRight", Position{0, 0}, Position{1, 1}, AnchorRight, AnchorLeft},
		{"Above", Position{0, 1}, Position{0, 0}, AnchorRight, AnchorLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := ResolveAnchors(tt.out, tt.in)
			if src != tt.wantSource || dst != tt.wantTarget {
				t.Errorf("ResolveAnchors(%v, %v) = (%s, %s), want (%s, %s)",
					tt.out, tt.in, src, dst, tt.wantSource, tt.wantTarget)
			}
		})
	}
}

func TestGraphAnchors(t *testing.T) {
	g := newGraph(2)
	g.Place(1, Position{0, 0})
	g.Place(2, Position{0, 1})
	c, _, _ := g.Connect(1, 2)
	src, dst, ok := g.Anchors(c)
	if !ok || src != AnchorBottom || dst != AnchorTop {
		t.Errorf("Anchors = (%s, %s, %v), want (bottom, top, true)", src, dst, ok)
	}
	if _, _, ok := g.Anchors(Connection{Out: 1, In: 5}); ok {
		t.Error("Anchors for unknown screen should report !ok")
	}
}
