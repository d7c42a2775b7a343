// Package graph provides the serialization format for screen flows.
//
// This package defines the canonical wire format for screenflow data, used
// for exported files, imports, the document store and caching.
//
// # Architecture
//
// The package sits at the serialization boundary between the in-memory model
// and external formats:
//
//   - [Flow], [Screen], [Connection]: Serialization types (this package)
//   - pkg/flow.Flow: Internal flow representation
//
// Use [FromFlow]/[ToFlow] to convert between them.
//
// # Flow Serialization
//
// Flows use a screen/connection document:
//
//	{
//	  "id": "7b0d...",
//	  "title": "checkout",
//	  "status": "success",
//	  "frame": {"width": 480, "height": 270},
//	  "screens": [{"number": 1, "image": "cart.png", "x": 0, "y": 0, "placed": true}],
//	  "connections": [{"out": 1, "in": 2, "bidirectional": true,
//	                   "source_anchor": "right", "target_anchor": "left"}]
//	}
//
// Anchors are derived from screen positions on export and ignored on import.
// Import rebuilds connections through the flow graph's merge rule, so a
// document listing the same pair twice collapses into one row.
//
// Both JSON and YAML are supported:
//
//	f, _ := graph.ReadFlowFile("checkout.yaml")         // File → Flow
//	graph.WriteFlowFile(f, "checkout.json")             // Flow → File
//	data, _ := graph.MarshalFlow(f, graph.FormatJSON)   // Flow → []byte
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
