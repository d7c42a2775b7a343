// Package layout assigns grid coordinates to the screens of a flow.
//
// # Algorithm
//
// [Compute] walks the adjacency of one flow depth-first:
//
//  1. The unplaced screen with the largest connected set becomes the next
//     root. Ties go to the lowest screen number. The root is placed at
//     column 0 on the current row.
//  2. A placed screen's neighbours are visited in list order. The first one
//     that gets placed continues the same row one column to the right. Each
//     later one opens the row below the last row used by its previous
//     sibling's subtree.
//  3. A screen reached a second time, through a cycle or a second path, is
//     skipped and does not advance the row.
//  4. When a root's subtree is done the next root starts one row below the
//     last row used.
//
// Dominant chains therefore read left to right and alternatives stack
// downwards. The layout is deterministic but not optimal: each screen's
// neighbour list is consulted once, at its first visit.
//
// Every placed screen gets a distinct coordinate. Rows only grow during a
// walk, and within the lowest row in use columns only grow along the first
// child chain.
//
// # Implementation
//
// Screens are mapped to dense indices and walked with an explicit stack, so
// deep flows do not grow the goroutine stack. Each screen carries a traversal
// state (unvisited, queued, placed) and the row cursor is passed back from
// each finished subtree to its parent frame.
package layout
