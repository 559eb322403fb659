package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/paint-match-mcp/internal/colormath"
	"github.com/ironsheep/paint-match-mcp/internal/detection"
	"github.com/ironsheep/paint-match-mcp/internal/editor"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
	"github.com/ironsheep/paint-match-mcp/internal/paint"
)

var (
	errInvalidArguments = errors.New("invalid arguments")
	errUnknownTool      = errors.New("unknown tool")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "wall_detect_colors", "paint_match_color").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ErrorData is the data member of a tool error response.
type ErrorData struct {
	// Kind names the failure class, e.g. "InvalidColorFormat" or "NoImageLoaded".
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool errors return a JSON-RPC error response: code -32602 for bad caller
// input and -32000 for everything else, with ErrorData describing the failure.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", ErrorData{Kind: "InvalidParams", Details: err.Error()})
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		code, kind := classifyError(err)
		s.logger.Debug("tool failed", "tool", params.Name, "kind", kind, "error", err)
		return s.errorResponse(req.ID, code, "Tool execution failed", ErrorData{Kind: kind, Details: err.Error()})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// classifyError maps an error to a JSON-RPC code and a failure kind.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, colormath.ErrInvalidColorFormat):
		return -32602, "InvalidColorFormat"
	case errors.Is(err, imaging.ErrInvalidSettings):
		return -32602, "InvalidSettings"
	case errors.Is(err, paint.ErrInvalidOptions):
		return -32602, "InvalidOptions"
	case errors.Is(err, paint.ErrQueryTooShort):
		return -32602, "QueryTooShort"
	case errors.Is(err, errInvalidArguments):
		return -32602, "InvalidArguments"
	case errors.Is(err, errUnknownTool):
		return -32602, "UnknownTool"
	case errors.Is(err, imaging.ErrImageDecode):
		return -32000, "ImageDecodeError"
	case errors.Is(err, imaging.ErrNoImageLoaded):
		return -32000, "NoImageLoaded"
	case errors.Is(err, paint.ErrPaintNotFound):
		return -32000, "PaintNotFound"
	case errors.Is(err, editor.ErrSuperseded):
		return -32000, "Superseded"
	default:
		return -32000, "ToolError"
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for absent optional parameters
//  3. Loads images through the cache as needed
//  4. Calls the detection/imaging/paint/editor function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image information
	case "image_info":
		return s.handleImageInfo(ctx, args)

	// Wall detection and recoloring
	case "wall_detect_colors":
		return s.handleWallDetectColors(ctx, args)
	case "image_recolor":
		return s.handleImageRecolor(ctx, args)
	case "image_adjust_brightness":
		return s.handleImageAdjustBrightness(ctx, args)
	case "image_sample_color":
		return s.handleImageSampleColor(ctx, args)

	// Color information
	case "color_info":
		return s.handleColorInfo(args)

	// Paint catalog
	case "paint_match_color":
		return s.handlePaintMatchColor(ctx, args)
	case "paint_list":
		return s.handlePaintList(ctx, args)
	case "paint_get":
		return s.handlePaintGet(ctx, args)
	case "paint_popular":
		return s.handlePaintPopular(ctx, args)
	case "paint_brands":
		return s.catalog.Brands(ctx)
	case "paint_search":
		return s.handlePaintSearch(ctx, args)

	// Editor session
	case "editor_load_image":
		return s.handleEditorLoadImage(ctx, args)
	case "editor_apply_color":
		return s.handleEditorApplyColor(args)
	case "editor_update_settings":
		return s.handleEditorUpdateSettings(args)
	case "editor_reset":
		return s.session.Reset()
	case "editor_clear":
		return s.session.Clear(), nil
	case "editor_state":
		return s.session.Snapshot(), nil
	case "editor_export":
		return s.handleEditorExport(args)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. Absent arguments decode as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	return nil
}

// === Image Source Handling ===

// imageArgs is embedded by every tool that takes an image. Exactly one of
// the fields must be set.
type imageArgs struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	ImageBase64 string `json:"image_base64"`
}

func (a imageArgs) source() (imaging.Source, error) {
	src := imaging.Source{Path: a.Path, URL: a.URL}
	if a.ImageBase64 != "" {
		data := a.ImageBase64
		// Accept data URLs such as "data:image/png;base64,...."
		if strings.HasPrefix(data, "data:") {
			if i := strings.IndexByte(data, ','); i >= 0 {
				data = data[i+1:]
			}
		}
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return imaging.Source{}, fmt.Errorf("%w: invalid base64 image data: %w", imaging.ErrImageDecode, err)
		}
		src.Bytes = raw
	}
	if err := src.Validate(); err != nil {
		return imaging.Source{}, err
	}
	return src, nil
}

// loadImage decodes an image argument at full resolution.
func (s *Server) loadImage(ctx context.Context, a imageArgs) (image.Image, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	if s.cfg.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DecodeTimeout)
		defer cancel()
	}
	return s.cache.Load(ctx, src)
}

// loadBuffer decodes an image argument into a working buffer no wider than
// the configured maximum.
func (s *Server) loadBuffer(ctx context.Context, a imageArgs) (*image.NRGBA, error) {
	img, err := s.loadImage(ctx, a)
	if err != nil {
		return nil, err
	}
	return imaging.FitWidth(img, s.cfg.MaxImageWidth), nil
}

// blendArgs holds optional blend overrides. Nil fields take server defaults;
// an explicit 0 is kept.
type blendArgs struct {
	Tolerance *float64 `json:"tolerance"`
	Feather   *float64 `json:"feather"`
	Opacity   *float64 `json:"opacity"`
}

func (a blendArgs) settings(base imaging.BlendSettings) imaging.BlendSettings {
	if a.Tolerance != nil {
		base.Tolerance = *a.Tolerance
	}
	if a.Feather != nil {
		base.Feather = *a.Feather
	}
	if a.Opacity != nil {
		base.Opacity = *a.Opacity
	}
	return base
}

func (s *Server) defaultSettings() imaging.BlendSettings {
	return imaging.BlendSettings{
		Tolerance: s.cfg.Tolerance,
		Feather:   s.cfg.Feather,
		Opacity:   s.cfg.Opacity,
	}
}

type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// === Image Information Handlers ===

func (s *Server) handleImageInfo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	if s.cfg.DecodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DecodeTimeout)
		defer cancel()
	}
	return imaging.LoadImageInfo(ctx, s.cache, src)
}

// === Wall Detection and Recoloring Handlers ===

type wallDetectColorsArgs struct {
	imageArgs
	SampleTarget *int        `json:"sample_target"`
	MaxColors    *int        `json:"max_colors"`
	Region       *regionArgs `json:"region,omitempty"`
}

type wallDetectColorsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	*detection.Result
}

func (s *Server) handleWallDetectColors(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a wallDetectColorsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	opts := detection.Options{SampleTarget: s.cfg.SampleTarget, MaxColors: detection.DefaultMaxColors}
	if a.SampleTarget != nil {
		if *a.SampleTarget <= 0 {
			return nil, fmt.Errorf("%w: sample_target must be > 0", errInvalidArguments)
		}
		opts.SampleTarget = *a.SampleTarget
	}
	if a.MaxColors != nil {
		if *a.MaxColors <= 0 {
			return nil, fmt.Errorf("%w: max_colors must be > 0", errInvalidArguments)
		}
		opts.MaxColors = *a.MaxColors
	}

	buf, err := s.loadBuffer(ctx, a.imageArgs)
	if err != nil {
		return nil, err
	}
	if a.Region != nil {
		// Region coordinates refer to the working (downscaled) buffer.
		r := image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2)
		opts.Region = &r
	}

	res, err := detection.Detect(buf, opts)
	if err != nil {
		return nil, err
	}
	return &wallDetectColorsResult{
		Width:  buf.Rect.Dx(),
		Height: buf.Rect.Dy(),
		Result: res,
	}, nil
}

type imageRecolorArgs struct {
	imageArgs
	blendArgs
	Color      string    `json:"color"`
	MaskColors *[]string `json:"mask_colors"`
	Mode       string    `json:"mode"`
	Format     string    `json:"format"`
}

type imageRecolorResult struct {
	*imaging.EncodedImage
	Color      string                `json:"color"`
	MaskColors []string              `json:"mask_colors"`
	Mode       imaging.Mode          `json:"mode"`
	Settings   imaging.BlendSettings `json:"settings"`
}

func (s *Server) handleImageRecolor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageRecolorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	target, err := colormath.Canonicalize(a.Color)
	if err != nil {
		return nil, err
	}
	mode, err := imaging.ParseMode(a.Mode)
	if err != nil {
		return nil, err
	}
	format, err := imaging.ParseFormat(a.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	settings := a.settings(s.defaultSettings())
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var mask []colormath.RGB
	if a.MaskColors != nil {
		for _, h := range *a.MaskColors {
			c, err := colormath.HexToRGB(h)
			if err != nil {
				return nil, err
			}
			mask = append(mask, c)
		}
	}

	buf, err := s.loadBuffer(ctx, a.imageArgs)
	if err != nil {
		return nil, err
	}
	if a.MaskColors == nil {
		colors, err := detection.DetectWallColors(buf, detection.Options{SampleTarget: s.cfg.SampleTarget})
		if err != nil {
			return nil, err
		}
		mask = detection.MaskColors(colors)
	}

	out, err := imaging.Recolor(buf, mask, target, settings, mode)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeBase64(out, format, s.cfg.JPEGQuality)
	if err != nil {
		return nil, err
	}

	maskHex := make([]string, len(mask))
	for i, c := range mask {
		maskHex[i] = c.Hex()
	}
	return &imageRecolorResult{
		EncodedImage: enc,
		Color:        target,
		MaskColors:   maskHex,
		Mode:         mode,
		Settings:     settings,
	}, nil
}

type imageAdjustBrightnessArgs struct {
	imageArgs
	Delta  int    `json:"delta"`
	Format string `json:"format"`
}

func (s *Server) handleImageAdjustBrightness(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageAdjustBrightnessArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	format, err := imaging.ParseFormat(a.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	buf, err := s.loadBuffer(ctx, a.imageArgs)
	if err != nil {
		return nil, err
	}
	out, err := imaging.AdjustBrightness(buf, a.Delta)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeBase64(out, format, s.cfg.JPEGQuality)
}

type imageSampleColorArgs struct {
	imageArgs
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleImageSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(ctx, a.imageArgs)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Color Information Handlers ===

type colorArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleColorInfo(args json.RawMessage) (interface{}, error) {
	var a colorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	c, err := colormath.HexToRGB(a.Color)
	if err != nil {
		return nil, err
	}
	return colormath.Describe(c), nil
}

// === Paint Catalog Handlers ===

type paintMatchColorArgs struct {
	Color       string   `json:"color"`
	MaxResults  *int     `json:"max_results"`
	MaxDistance *float64 `json:"max_distance"`
}

func (s *Server) handlePaintMatchColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paintMatchColorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	opts := paint.DefaultMatchOptions()
	if a.MaxResults != nil {
		opts.MaxResults = *a.MaxResults
	}
	if a.MaxDistance != nil {
		opts.MaxDistance = *a.MaxDistance
	}
	return s.catalog.MatchColor(ctx, a.Color, opts)
}

type paintListArgs struct {
	Brand   string `json:"brand"`
	Finish  string `json:"finish"`
	Popular bool   `json:"popular"`
	Limit   *int   `json:"limit"`
	Offset  int    `json:"offset"`
}

func (s *Server) handlePaintList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paintListArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.catalog.List(ctx, paint.ListOptions{
		Brand:   a.Brand,
		Finish:  a.Finish,
		Popular: a.Popular,
		Limit:   a.Limit,
		Offset:  a.Offset,
	})
}

type paintGetArgs struct {
	ID string `json:"id"`
}

func (s *Server) handlePaintGet(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paintGetArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidArguments)
	}
	return s.catalog.Get(ctx, a.ID)
}

type limitArgs struct {
	Limit *int `json:"limit"`
}

func (s *Server) handlePaintPopular(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a limitArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	limit := paint.DefaultPopularLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	return s.catalog.Popular(ctx, limit)
}

type paintSearchArgs struct {
	Q     string `json:"q"`
	Limit *int   `json:"limit"`
}

func (s *Server) handlePaintSearch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paintSearchArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	limit := paint.DefaultSearchLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	return s.catalog.Search(ctx, a.Q, limit)
}

// === Editor Session Handlers ===

func (s *Server) handleEditorLoadImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	return s.session.LoadImage(ctx, src)
}

func (s *Server) handleEditorApplyColor(args json.RawMessage) (interface{}, error) {
	var a colorArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.session.ApplyColor(a.Color)
}

type editorUpdateSettingsArgs struct {
	blendArgs
	Mode *string `json:"mode"`
}

func (s *Server) handleEditorUpdateSettings(args json.RawMessage) (interface{}, error) {
	var a editorUpdateSettingsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Mode != nil {
		if _, err := imaging.ParseMode(*a.Mode); err != nil {
			return nil, err
		}
	}

	snap, err := s.session.UpdateSettings(editor.SettingsPatch{
		Tolerance: a.Tolerance,
		Feather:   a.Feather,
		Opacity:   a.Opacity,
	})
	if err != nil {
		return nil, err
	}
	if a.Mode != nil {
		return s.session.SetMode(imaging.Mode(*a.Mode))
	}
	return snap, nil
}

type editorExportArgs struct {
	Format string `json:"format"`
}

func (s *Server) handleEditorExport(args json.RawMessage) (interface{}, error) {
	var a editorExportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := imaging.ParseFormat(a.Format); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
	}
	return s.session.Export(a.Format)
}
