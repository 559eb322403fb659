package server

import (
	"context"
	"encoding/json"
	"testing"
)

var allToolNames = []string{
	"image_info",
	"wall_detect_colors",
	"image_recolor",
	"image_adjust_brightness",
	"image_sample_color",
	"color_info",
	"paint_match_color",
	"paint_list",
	"paint_get",
	"paint_popular",
	"paint_brands",
	"paint_search",
	"editor_load_image",
	"editor_apply_color",
	"editor_update_settings",
	"editor_reset",
	"editor_clear",
	"editor_state",
	"editor_export",
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) != len(allToolNames) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(allToolNames))
	}

	byName := make(map[string]Tool, len(tools))
	for _, tool := range tools {
		if _, dup := byName[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		byName[tool.Name] = tool
	}
	for _, name := range allToolNames {
		if _, ok := byName[name]; !ok {
			t.Errorf("missing tool %s", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("empty description")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("schema type: got %v, want object", tool.InputSchema["type"])
			}
			properties, ok := tool.InputSchema["properties"].(props)
			if !ok {
				t.Fatalf("properties has type %T", tool.InputSchema["properties"])
			}
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, name := range required {
					if _, ok := properties[name]; !ok {
						t.Errorf("required property %q is not declared", name)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_ImageSources(t *testing.T) {
	imageTools := map[string]bool{
		"image_info":              true,
		"wall_detect_colors":      true,
		"image_recolor":           true,
		"image_adjust_brightness": true,
		"image_sample_color":      true,
		"editor_load_image":       true,
	}

	for _, tool := range GetToolDefinitions() {
		if !imageTools[tool.Name] {
			continue
		}
		properties := tool.InputSchema["properties"].(props)
		for _, key := range []string{"path", "url", "image_base64"} {
			if _, ok := properties[key]; !ok {
				t.Errorf("%s: missing image source %q", tool.Name, key)
			}
		}
		if required, ok := tool.InputSchema["required"].([]string); ok {
			for _, r := range required {
				if r == "path" || r == "url" || r == "image_base64" {
					t.Errorf("%s: image source %q must not be individually required", tool.Name, r)
				}
			}
		}
	}
}

func TestToolDefinitions_EveryToolDispatches(t *testing.T) {
	s := New(Options{})
	for _, tool := range GetToolDefinitions() {
		_, err := s.executeTool(context.Background(), tool.Name, json.RawMessage(`{}`))
		if err != nil {
			if code, kind := classifyError(err); kind == "UnknownTool" {
				t.Errorf("%s is listed but not dispatched (code %d)", tool.Name, code)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(Options{})
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	// Round-trip through JSON the way a client sees it.
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
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
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Result.Tools) != len(allToolNames) {
		t.Errorf("tools: got %d, want %d", len(decoded.Result.Tools), len(allToolNames))
	}
	for _, tool := range decoded.Result.Tools {
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: inputSchema lost its type", tool.Name)
		}
	}
}
