package flow

// Anchor names the side of a screen a drawn connection attaches to.
type Anchor string

const (
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
)

// ResolveAnchors returns the attachment sides for a connection drawn from the
// screen at out to the screen at in. An edge leaves from the bottom only when
// its target sits on a lower row at or left of the source, and enters from the
// top only in that same situation. Otherwise it leaves on the right and
// enters on the left.
func ResolveAnchors(out, in Position) (source, target Anchor) {
	source, target = AnchorRight, AnchorLeft
	if out.Y < in.Y && out.X >= in.X {
		source = AnchorBottom
	}
	if in.Y > out.Y && in.X <= out.X {
		target = AnchorTop
	}
	return source, target
}

// Anchors resolves the attachment sides of c from the current screen
// positions. ok is false when either screen is missing from the graph.
func (g *Graph) Anchors(c Connection) (source, target Anchor, ok bool) {
	out, ok1 := g.Screen(c.Out)
	in, ok2 := g.Screen(c.In)
	if !ok1 || !ok2 {
		return "", "", false
	}
	source, target = ResolveAnchors(out.Pos, in.Pos)
	return source, target, true
}
