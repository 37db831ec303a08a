package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/ocr"
	"github.com/ironsheep/bbox-annotator/internal/reconcile"
	"github.com/ironsheep/bbox-annotator/internal/store"
)

// ServerName is reported to clients during initialize.
const ServerName = "bbox-annotator"

// maxLineSize bounds a single JSON-RPC request line.
const maxLineSize = 4 * 1024 * 1024

// Deps are the components the tools operate on.
type Deps struct {
	// Store supplies the original and working detection sets. Tools that
	// only do geometry work without it.
	Store *store.Store

	// Loader opens artwork images by file name.
	Loader *imaging.Loader

	// OCR reads text inside detection boxes.
	OCR *ocr.Engine

	// Match holds the default IoU threshold, tolerance and strategy.
	Match reconcile.Options

	Logger  *slog.Logger
	Version string
}

// Server answers MCP requests against the annotation components in Deps.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// MCPRequest is one JSON-RPC 2.0 request line. Notifications carry no ID.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse carries either Result or Error, never both.
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeToolFailed     = -32000
)

// protocolVersion is the MCP revision the server speaks.
const protocolVersion = "2024-11-05"

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

// New returns a server over deps, filling in a discard logger, a "dev"
// version and a default OCR engine when they are missing.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.OCR == nil {
		deps.OCR = ocr.NewEngine("", "")
	}
	return &Server{deps: deps, logger: deps.Logger.With("component", "mcp")}
}

// Run reads one JSON-RPC request per line from in and writes responses to
// out until in is exhausted. Malformed lines are logged and skipped.
func (s *Server) Run(in io.Reader, out io.Writer) error {
	lines := bufio.NewScanner(in)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(out)

	for lines.Scan() {
		req, ok := s.parse(lines.Bytes())
		if !ok {
			continue
		}
		resp := s.handleRequest(req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			s.logger.Error("write response", "method", req.Method, "error", err)
		}
	}
	if err := lines.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (s *Server) parse(line []byte) (*MCPRequest, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, false
	}
	req := new(MCPRequest)
	if err := json.Unmarshal(line, req); err != nil {
		s.logger.Warn("skipping malformed request", "error", err, "bytes", len(line))
		return nil, false
	}
	return req, true
}

// handleRequest dispatches on method. A nil response means nothing is sent.
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return reply(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      serverInfo{Name: ServerName, Version: s.deps.Version},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return reply(req.ID, map[string]interface{}{"tools": GetToolDefinitions()})
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return reply(req.ID, struct{}{})
	}
	return s.errorResponse(req.ID, CodeMethodNotFound, "Method not found: "+req.Method, "")
}

func reply(id, result interface{}) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
}
