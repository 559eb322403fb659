package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/paint-match-mcp/internal/config"
	"github.com/ironsheep/paint-match-mcp/internal/detection"
	"github.com/ironsheep/paint-match-mcp/internal/editor"
	"github.com/ironsheep/paint-match-mcp/internal/imaging"
	"github.com/ironsheep/paint-match-mcp/internal/paint"
)

// maxRequestBytes bounds one JSON-RPC line. Base64 photos make requests large.
const maxRequestBytes = 64 << 20

// Server handles MCP protocol communication
type Server struct {
	cfg     config.Config
	cache   *imaging.ImageCache
	session *editor.Session
	catalog *paint.Service
	logger  hclog.Logger
	version string
}

// Options configures a Server. Zero values select defaults.
type Options struct {
	// Config supplies limits and default blend settings. A zero Config uses config.Default().
	Config config.Config

	// Store is the paint catalog. Nil means an empty catalog.
	Store paint.Store

	Logger  hclog.Logger
	Version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	store := opts.Store
	if store == nil {
		store = paint.NewMemoryStore(nil)
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	cache := imaging.NewImageCache(imaging.NewFetcher(imaging.FetchOptions{
		Timeout:          cfg.FetchTimeout,
		UserAgentVersion: version,
	}))

	session := editor.New(cache, editor.Options{
		MaxWidth: cfg.MaxImageWidth,
		Detection: detection.Options{
			SampleTarget: cfg.SampleTarget,
			MaxColors:    detection.DefaultMaxColors,
		},
		Settings: imaging.BlendSettings{
			Tolerance: cfg.Tolerance,
			Feather:   cfg.Feather,
			Opacity:   cfg.Opacity,
		},
		Mode:          imaging.ModeOverlay,
		DecodeTimeout: cfg.DecodeTimeout,
		JPEGQuality:   cfg.JPEGQuality,
		Logger:        logger.Named("editor"),
	})

	return &Server{
		cfg:     cfg,
		cache:   cache,
		session: session,
		catalog: paint.NewService(store, logger.Named("catalog")),
		logger:  logger,
		version: version,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve processes newline-delimited JSON-RPC requests from r until EOF or
// until ctx is done, writing responses to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for base64 image payloads
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxRequestBytes)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "paint-match-mcp",
				"version": s.version,
			},
		},
	}
}
