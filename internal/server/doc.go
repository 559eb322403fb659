// Package server implements the MCP (Model Context Protocol) server for wall
// recoloring and paint matching.
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
// A line that is not valid JSON gets a -32700 parse error response.
//
// # Available Tools
//
// Stateless image tools take exactly one of path, url, or image_base64:
//   - image_info: Original dimensions and format
//   - wall_detect_colors: Dominant wall-like colors of a photo
//   - image_recolor: Paint the walls and return a preview
//   - image_adjust_brightness: Brighten or darken a photo
//   - image_sample_color: Eyedropper at a pixel
//
// color_info describes a hex color as RGB, HSL, and Lab.
//
// Paint catalog:
//   - paint_match_color: Closest in-stock paints to a color
//   - paint_list, paint_get, paint_popular, paint_brands, paint_search
//
// Editor session (one per server process):
//   - editor_load_image, editor_apply_color, editor_update_settings
//   - editor_reset, editor_clear, editor_state, editor_export
//
// # Image Caching
//
// Decoded images are cached by file path or URL. Base64 uploads are decoded
// per call and never cached. The editor session releases its photo from the
// cache when it is cleared or replaced by a different one. Stateless tools
// downscale a copy to the configured working width before detection or
// rendering; the eyedropper reads the full-resolution image.
//
// # Error Handling
//
// Tool failures are JSON-RPC error responses. Invalid caller input (bad hex
// color, blend settings, match options, short search text, unknown tool) uses
// code -32602; decode failures, missing images, unknown paints, and
// superseded loads use -32000. The data member is an ErrorData whose Kind
// names the failure, for example:
//
//	{"code": -32602, "message": "Tool execution failed",
//	 "data": {"kind": "InvalidColorFormat", "details": "invalid color format: \"#12\""}}
//
// # Usage
//
//	srv := server.New(server.Options{Config: cfg, Store: store, Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Error("server stopped", "error", err)
//	}
package server
