// Package pkg provides the core libraries of screenflow.
//
// # Overview
//
// Screenflow turns a screen recording of a UI walkthrough into a navigation
// graph. A detection service reports which frames show distinct screens and
// when each was visible; screenflow merges those detections into screens and
// connections, places the screens on a grid and renders the result.
//
// # Architecture
//
// The data flow of a build:
//
//	frames directory
//	         ↓
//	    [frames] package (ordered frames, digest, frame size)
//	         ↓
//	    [oracle] package (predictions from the detection service)
//	         ↓
//	    [flow/build] package (deduplicate screens, resolve connections)
//	         ↓
//	    [flow/layout] package (grid positions)
//	         ↓
//	    [store] package (persisted flow)
//	         ↓
//	    [render/nodelink] or [graph] (SVG/PNG/DOT or JSON/YAML)
//
// [pipeline] runs these stages for the CLI, adding caching, per-flow locks
// and failure bookkeeping.
//
// # Quick Start
//
//	g := flow.NewGraph()
//	res, err := build.Build(g, preds, build.Refs{"a.png", "b.png"}, build.Options{})
//	if err != nil {
//	    return err
//	}
//	if _, err := layout.Graph(g); err != nil {
//	    return err
//	}
//	for _, c := range g.Connections() {
//	    src, dst, _ := g.Anchors(c)
//	    fmt.Println(c.Out, c.In, c.Bidirectional, src, dst)
//	}
//
// # Main Packages
//
// [flow] - Screens, connections and the merge rule that turns a reverse
// transition into a bidirectional connection. Anchors derive from positions.
//
// [flow/build] - Prediction deduplication and connection resolution.
//
// [flow/layout] - Depth-first grid placement.
//
// [store] - Flow persistence with memory, file, SQLite and MongoDB backends.
//
// [cache] - Prediction and layout caches on disk or in Redis.
//
// [lock] - Per-flow build locks, in process or in Redis.
//
// [config] - TOML/YAML settings with SCREENFLOW_* environment overrides.
//
// [observability] - Hooks for build, cache and HTTP events.
//
// [errors] - Coded errors shared by every package.
package pkg
