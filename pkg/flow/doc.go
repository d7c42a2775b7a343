// Package flow provides the data model for screen flows: the screens detected
// in a recording, the navigational connections between them and the per-flow
// graph that owns both.
//
// # Overview
//
// A [Flow] is one navigable UI walkthrough. Its [Graph] is an arena of
// [Screen] values indexed by their 1-based sequence number and a table of
// [Connection] rows indexed by the unordered screen pair. The arena is the
// only way to create screens and connections, so the structural invariants
// hold by construction:
//
//   - at most one connection exists for any unordered pair of screens
//   - a connection's bidirectional flag is promoted, never reverted
//   - no two placed screens share a grid coordinate
//
// # Connections
//
// [Graph.Connect] applies the merge rule used by every producer of
// connections (the build resolver, imports, store loads):
//
//	c, res, err := g.Connect(1, 2) // Created
//	c, res, err = g.Connect(1, 2)  // Existing, unchanged
//	c, res, err = g.Connect(2, 1)  // Promoted, c.Bidirectional == true
//
// The stored Out/In fields keep the first-detected direction.
//
// # Connectivity
//
// The connected set of a screen is every screen reachable through one of its
// out-edges, plus the source of every bidirectional connection pointing at it.
// A one-way connection never makes its source reachable from its target.
// [Graph.ConnectedScreens] answers this for one screen and [Graph.Adjacency]
// for all of them; both are computed from the live connection table on every
// call.
//
// # Anchors
//
// [ResolveAnchors] maps the positions of a connection's two screens to the
// side of each screen the drawn edge attaches to. It is evaluated at export
// time and never stored.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. Builds of the same flow must be
// serialized by the caller (see package lock).
package flow
