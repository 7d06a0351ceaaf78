package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"session_load_folder",
		"session_status",
		"spine_create",
		"spine_select",
		"frame_goto",
		"box_set",
		"box_delete",
		"box_suggest",
		"box_crop",
		"measurements_list",
		"export_csv",
		"annotations_save",
		"annotations_load",
		"frame_render",
		"motility_compute",
		"motility_history",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(tools))
	}

	toolMap := make(map[string]bool)
	for _, tool := range tools {
		if toolMap[tool.Name] {
			t.Errorf("Duplicate tool name: %s", tool.Name)
		}
		toolMap[tool.Name] = true
	}

	for _, name := range expectedTools {
		if !toolMap[name] {
			t.Errorf("Missing expected tool: %s", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Name == "" {
				t.Error("Tool name should not be empty")
			}
			if tool.Description == "" {
				t.Error("Tool description should not be empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("InputSchema should not be nil")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type should be 'object', got %v", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties map")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required property %q is not defined", name)
				}
			}

			// Every tool dispatches, even if it then fails for lack of a session.
			s := New(nil)
			if _, err := s.executeTool(tool.Name, json.RawMessage(`{}`)); err != nil && err.Error() == "unknown tool: "+tool.Name {
				t.Errorf("tool %s is listed but not dispatched", tool.Name)
			}
		})
	}
}

func TestToolDefinitions_BoxSetCoordinates(t *testing.T) {
	var boxSet *Tool
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "box_set" {
			tool := tool
			boxSet = &tool
		}
	}
	if boxSet == nil {
		t.Fatal("box_set not found")
	}

	props := boxSet.InputSchema["properties"].(map[string]interface{})
	for _, coord := range []string{"x1", "y1", "x2", "y2", "spine", "frame", "clamp"} {
		if _, ok := props[coord]; !ok {
			t.Errorf("box_set missing %s property", coord)
		}
	}

	required := boxSet.InputSchema["required"].([]string)
	if len(required) != 4 {
		t.Errorf("box_set should require the four corners, got %v", required)
	}
}

func TestToolDefinitions_SharedPropertiesNotAliased(t *testing.T) {
	a := GetToolDefinitions()
	b := GetToolDefinitions()

	var propsA, propsB map[string]interface{}
	for i := range a {
		if a[i].Name == "box_set" {
			propsA = a[i].InputSchema["properties"].(map[string]interface{})
			propsB = b[i].InputSchema["properties"].(map[string]interface{})
		}
	}
	propsA["extra"] = true
	if _, ok := propsB["extra"]; ok {
		t.Error("box_set properties are shared between calls")
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(nil)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 42})

	if resp.ID != 42 {
		t.Errorf("ID: got %v, want 42", resp.ID)
	}
	if resp.JSONRPC != "2.0" {
		t.Errorf("JSONRPC: got %s, want 2.0", resp.JSONRPC)
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %v", resp.Error)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("tools/list response does not marshal: %v", err)
	}
	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string                 `json:"name"`
				InputSchema map[string]interface{} `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(decoded.Result.Tools) != len(GetToolDefinitions()) {
		t.Errorf("Expected %d tools on the wire, got %d", len(GetToolDefinitions()), len(decoded.Result.Tools))
	}
}
