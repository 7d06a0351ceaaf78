// Package server implements the MCP (Model Context Protocol) server for spine annotation.
//
// The server exposes one annotation session (a folder of time-lapse frames plus
// the spines and bounding boxes drawn on them) and the motility calculator as
// MCP tools, so a client can annotate frames and analyze the exported lengths
// without the desktop annotator.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Session:
//   - session_load_folder: Open a folder of frames, replacing the session
//   - session_status: Spines, active spine and current frame
//
// Spines and frames:
//   - spine_create: Add a spine (auto-named when no name is given)
//   - spine_select: Make a spine active
//   - frame_goto: Jump to a frame index or step to the next/previous one
//
// Boxes:
//   - box_set: Assign a bounding box to a spine on a frame
//   - box_delete: Remove a spine's box from a frame
//   - box_suggest: Propose a box by region growing from a seed pixel
//   - box_crop: Return the pixels inside a box as PNG
//
// Measurements and files:
//   - measurements_list: Length and stability of every box
//   - export_csv: Write the measurement CSV
//   - annotations_save / annotations_load: Annotation JSON round trip
//   - frame_render: A frame with every box outlined in its spine color
//
// Analysis:
//   - motility_compute: Per-spine motility and per-file summaries from CSVs,
//     optionally charted (PNG, HTML) and recorded in a SQLite history
//   - motility_history: Runs recorded in a history database
//
// # Image Caching
//
// Decoded frames are cached by path for the lifetime of the process. Loading
// a new folder clears the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Lines that are not valid JSON get a -32700 parse error.
//
// # Usage
//
//	srv := server.New(cfg, server.WithLogger(logger), server.WithVersion(version))
//	if err := srv.Run(); err != nil {
//	    logger.Error("server stopped", "err", err)
//	}
package server
