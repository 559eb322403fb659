package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type props = map[string]interface{}

func prop(typ, description string) props {
	return props{"type": typ, "description": description}
}

// imageSourceProps describes the three ways a tool accepts an image.
// Exactly one must be given; the check happens at call time.
func imageSourceProps() props {
	return props{
		"path":         prop("string", "Absolute path to an image file (JPEG, PNG, GIF, or WebP)"),
		"url":          prop("string", "HTTP(S) URL of an image"),
		"image_base64": prop("string", "Base64-encoded image bytes; a data: URL prefix is accepted"),
	}
}

func blendProps() props {
	return props{
		"tolerance": prop("number", "Max RGB distance from a wall color for a pixel to be repainted (>= 0). Default 50"),
		"feather":   prop("number", "Softens the blend inside tolerance in feathered mode (>= 0). Default 20"),
		"opacity":   prop("number", "Strength of the new color, 0-1. Default 0.7"),
	}
}

func merge(sets ...props) props {
	out := props{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func objectSchema(properties props, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_info",
			Description: "Load an image and report its original dimensions and format. The decoded image is cached for later tools.",
			InputSchema: objectSchema(imageSourceProps()),
		},

		// Wall Detection and Recoloring
		{
			Name:        "wall_detect_colors",
			Description: "Find the dominant wall-like colors in a room photo. Near-black, blown-out, saturated, and dark pixels are ignored; the rest are quantized to steps of 10 and counted. Returns colors most frequent first.",
			InputSchema: objectSchema(merge(imageSourceProps(), props{
				"sample_target": prop("integer", "Approximate number of pixels to inspect. Default 5000"),
				"max_colors":    prop("integer", "Maximum number of colors returned. Default 5"),
				"region": props{
					"type":        "object",
					"description": "Optional rectangle (x1,y1 inclusive; x2,y2 exclusive) in working-buffer coordinates",
					"properties": props{
						"x1": prop("integer", "Left edge"),
						"y1": prop("integer", "Top edge"),
						"x2": prop("integer", "Right edge (exclusive)"),
						"y2": prop("integer", "Bottom edge (exclusive)"),
					},
				},
			})),
		},
		{
			Name:        "image_recolor",
			Description: "Repaint the walls of a room photo with a new color and return the preview as base64. Without mask_colors the wall colors are detected first; if none are found the whole image is tinted at reduced strength.",
			InputSchema: objectSchema(merge(imageSourceProps(), blendProps(), props{
				"color": prop("string", "Target paint color as #RRGGBB"),
				"mask_colors": props{
					"type":        "array",
					"items":       props{"type": "string"},
					"description": "Wall colors to repaint as #RRGGBB. Omit to detect them",
				},
				"mode": props{
					"type":        "string",
					"enum":        []string{"overlay", "feathered"},
					"description": "overlay: uniform blend inside tolerance. feathered: blend fades with distance. Default overlay",
				},
				"format": props{
					"type":        "string",
					"enum":        []string{"jpeg", "png"},
					"description": "Output format. Default jpeg",
				},
			}), "color"),
		},
		{
			Name:        "image_adjust_brightness",
			Description: "Brighten or darken a photo by a fixed amount per channel and return it as base64.",
			InputSchema: objectSchema(merge(imageSourceProps(), props{
				"delta": prop("integer", "Brightness change from -100 to 100"),
				"format": props{
					"type":        "string",
					"enum":        []string{"jpeg", "png"},
					"description": "Output format. Default jpeg",
				},
			}), "delta"),
		},
		{
			Name:        "image_sample_color",
			Description: "Eyedropper: read the color at a pixel of the full-resolution image, with HSL and Lab values.",
			InputSchema: objectSchema(merge(imageSourceProps(), props{
				"x": prop("integer", "X coordinate (0-based)"),
				"y": prop("integer", "Y coordinate (0-based)"),
			}), "x", "y"),
		},

		// Color Information
		{
			Name:        "color_info",
			Description: "Describe a hex color: RGB, HSL, and CIE Lab components plus canonical hex.",
			InputSchema: objectSchema(props{
				"color": prop("string", "Color as #RRGGBB"),
			}, "color"),
		},

		// Paint Catalog
		{
			Name:        "paint_match_color",
			Description: "Find in-stock catalog paints closest to a color, using a perceptually weighted RGB distance. Each match carries a 0-100 score and a CIEDE2000 delta E.",
			InputSchema: objectSchema(props{
				"color":        prop("string", "Color to match as #RRGGBB"),
				"max_results":  prop("integer", "Maximum matches returned. Default 5"),
				"max_distance": prop("number", "Maximum weighted distance for a match. Default 100"),
			}, "color"),
		},
		{
			Name:        "paint_list",
			Description: "List catalog paints, popular first then by brand and name. Supports filtering and paging.",
			InputSchema: objectSchema(props{
				"brand":   prop("string", "Only this brand (exact match)"),
				"finish":  prop("string", "Only this finish, e.g. mat or zijdeglans"),
				"popular": prop("boolean", "Only popular paints"),
				"limit":   prop("integer", "Page size. Default 50"),
				"offset":  prop("integer", "Number of paints to skip. Default 0"),
			}),
		},
		{
			Name:        "paint_get",
			Description: "Get a single catalog paint by id.",
			InputSchema: objectSchema(props{
				"id": prop("string", "Paint id"),
			}, "id"),
		},
		{
			Name:        "paint_popular",
			Description: "List popular catalog paints.",
			InputSchema: objectSchema(props{
				"limit": prop("integer", "Maximum paints returned. Default 10"),
			}),
		},
		{
			Name:        "paint_brands",
			Description: "List catalog brands with their product counts.",
			InputSchema: objectSchema(props{}),
		},
		{
			Name:        "paint_search",
			Description: "Case-insensitive search over paint name, code, and brand. Popular paints rank first.",
			InputSchema: objectSchema(props{
				"q":     prop("string", "Search text, at least 2 characters"),
				"limit": prop("integer", "Maximum paints returned. Default 20"),
			}, "q"),
		},

		// Editor Session
		{
			Name:        "editor_load_image",
			Description: "Load a room photo into the editing session. The photo is scaled to the working width and its wall colors are detected. A newer load supersedes one still in progress.",
			InputSchema: objectSchema(imageSourceProps()),
		},
		{
			Name:        "editor_apply_color",
			Description: "Preview the loaded photo with its walls painted in a color, using the session's blend settings.",
			InputSchema: objectSchema(props{
				"color": prop("string", "Paint color as #RRGGBB"),
			}, "color"),
		},
		{
			Name:        "editor_update_settings",
			Description: "Change blend settings or render mode. If a color is applied the preview is re-rendered from the original photo.",
			InputSchema: objectSchema(merge(blendProps(), props{
				"mode": props{
					"type":        "string",
					"enum":        []string{"overlay", "feathered"},
					"description": "Render mode",
				},
			})),
		},
		{
			Name:        "editor_reset",
			Description: "Discard the applied color and return to the original photo.",
			InputSchema: objectSchema(props{}),
		},
		{
			Name:        "editor_clear",
			Description: "Unload the photo and return the session to its empty state.",
			InputSchema: objectSchema(props{}),
		},
		{
			Name:        "editor_state",
			Description: "Report the session state, detected wall colors, selected color, and settings.",
			InputSchema: objectSchema(props{}),
		},
		{
			Name:        "editor_export",
			Description: "Encode the current preview (or the original if no color is applied) as base64.",
			InputSchema: objectSchema(props{
				"format": props{
					"type":        "string",
					"enum":        []string{"jpeg", "png"},
					"description": "Output format. Default jpeg",
				},
			}),
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
