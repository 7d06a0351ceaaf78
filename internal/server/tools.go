package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// boxProperties are the corner coordinates shared by the box tools.
func boxProperties() map[string]interface{} {
	return map[string]interface{}{
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "X coordinate of one corner (pixels, 0-based)",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Y coordinate of one corner",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "X coordinate of the opposite corner",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Y coordinate of the opposite corner",
		},
	}
}

var spineProperty = map[string]interface{}{
	"type":        "string",
	"description": "Spine name. Defaults to the active spine",
}

var frameProperty = map[string]interface{}{
	"type":        "integer",
	"description": "Frame index (0-based). Defaults to the current frame",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	boxSet := boxProperties()
	boxSet["spine"] = spineProperty
	boxSet["frame"] = frameProperty
	boxSet["clamp"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Clip the box to the image instead of rejecting it. Default false",
		"default":     false,
	}

	return []Tool{
		// Session
		{
			Name:        "session_load_folder",
			Description: "Load every image in a folder as the frame sequence, sorted by filename. Replaces the current session and discards its spines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the folder of frames",
					},
				},
				"required": []string{"folder"},
			},
		},
		{
			Name:        "session_status",
			Description: "Report the loaded folder, current frame, active spine and the frames each spine is annotated on.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Spines and navigation
		{
			Name:        "spine_create",
			Description: "Create a new spine and make it the active spine. Names must be unique.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Spine name. Defaults to the next free spine_N",
					},
				},
			},
		},
		{
			Name:        "spine_select",
			Description: "Make an existing spine the active spine.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Spine name",
					},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "frame_goto",
			Description: "Move to a frame by index, or step to the next or previous frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Frame index (0-based)",
					},
					"step": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"next", "prev"},
						"description": "Step relative to the current frame instead of jumping to index",
					},
				},
			},
		},

		// Boxes
		{
			Name:        "box_set",
			Description: "Draw a spine's bounding box on a frame, replacing any box it already has there. Corners may be given in any order. Returns the resulting measurement.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": boxSet,
				"required":   []string{"x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "box_delete",
			Description: "Remove a spine's box from a frame. Removing a box that does not exist is not an error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"spine": spineProperty,
					"frame": frameProperty,
				},
			},
		},
		{
			Name:        "box_suggest",
			Description: "Suggest a box around the bright region containing a seed point. The suggestion is not stored; pass it to box_set to keep it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame": frameProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Seed X coordinate on the spine",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Seed Y coordinate on the spine",
					},
					"tolerance": map[string]interface{}{
						"type":        "integer",
						"description": "Largest gray level difference from the seed (1-255). Default 40",
						"default":     40,
					},
					"blur": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur radius applied first. Default 1.0",
						"default":     1.0,
					},
					"pad": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added on every side. Default 2",
						"default":     2,
					},
				},
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "box_crop",
			Description: "Return a spine's box on a frame, with some context, as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"spine": spineProperty,
					"frame": frameProperty,
					"pad": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels of context around the box. Default 10",
						"default":     10,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
			},
		},

		// Measurements and files
		{
			Name:        "measurements_list",
			Description: "List the length and stability of every spine on every frame it has a box on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"spine": map[string]interface{}{
						"type":        "string",
						"description": "Only list this spine",
					},
				},
			},
		},
		{
			Name:        "export_csv",
			Description: "Write the measurements to a CSV file, replacing it if it exists.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the CSV file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "annotations_save",
			Description: "Save every spine and box with the measurement parameters to a JSON file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the JSON file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "annotations_load",
			Description: "Replace the session's spines with those in an annotation JSON file. Nothing changes if the file does not fit the loaded frames.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the JSON file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Display
		{
			Name:        "frame_render",
			Description: "Render a frame with every spine's box and name drawn on it, as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame": frameProperty,
					"zoom": map[string]interface{}{
						"type":        "number",
						"description": "Zoom factor between 0.1 and 10. Default 1.0",
						"default":     1.0,
					},
				},
			},
		},

		// Motility
		{
			Name:        "motility_compute",
			Description: "Compute per-spine motility from length CSV files, such as those written by export_csv, and summarize each file by mean and SEM.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "CSV files or folders of CSV files",
					},
					"delta": map[string]interface{}{
						"type":        "integer",
						"description": "Lag in frame steps for the lagged method, at least 1. Default 1",
						"default":     1,
					},
					"method": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"lagged", "absolute"},
						"description": "lagged: mean signed change over delta samples. absolute: summed absolute change per time unit. Default lagged",
						"default":     "lagged",
					},
					"period": map[string]interface{}{
						"type":        "number",
						"description": "Ignore samples after this time. Default 0 (keep all)",
					},
					"frame_interval": map[string]interface{}{
						"type":        "number",
						"description": "Time between frames when a CSV has no time column. Default 1",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for the per-spine results CSV",
					},
					"chart": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for a PNG bar chart of the per-file summaries",
					},
					"html": map[string]interface{}{
						"type":        "string",
						"description": "Optional path for an interactive HTML page of the summaries and per-spine values",
					},
					"history": map[string]interface{}{
						"type":        "string",
						"description": "Optional SQLite database to record this run in; the run_id is returned",
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "motility_history",
			Description: "List the motility runs recorded in a history database, or the per-spine results of one run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"history": map[string]interface{}{
						"type":        "string",
						"description": "SQLite database written by motility_compute",
					},
					"run_id": map[string]interface{}{
						"type":        "string",
						"description": "Run to show. Omit to list every run, newest first",
					},
				},
				"required": []string{"history"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
