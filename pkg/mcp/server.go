package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/amenity"
	"github.com/nestfind/nestfind/pkg/logger"
	"github.com/nestfind/nestfind/pkg/models"
)

const protocolVersion = "2024-11-05"

// AmenityHandler answers nearby-amenity requests.
type AmenityHandler interface {
	Handle(ctx context.Context, req amenity.Request) (*models.NearbyResponse, error)
}

// PropertySearcher answers property searches.
type PropertySearcher interface {
	Search(ctx context.Context, f models.SearchFilters) (models.SearchResult, error)
}

// CacheStatter provides cache statistics without coupling to a concrete cache implementation.
type CacheStatter interface {
	Stats() (models.CacheStats, error)
}

// QuotaStatuser reports today's provider quota.
type QuotaStatuser interface {
	Status(ctx context.Context) (models.QuotaStatus, error)
}

// Defaults fill arguments a tool call leaves out.
type Defaults struct {
	Radius       int
	Limit        int
	WithDistance bool
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
type Server struct {
	amenities  AmenityHandler
	properties PropertySearcher
	cache      CacheStatter
	quota      QuotaStatuser
	defaults   Defaults
	version    string
	logger     *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCache exposes amenity cache statistics.
func WithCache(c CacheStatter) Option {
	return func(s *Server) { s.cache = c }
}

// WithQuota exposes the daily provider quota.
func WithQuota(q QuotaStatuser) Option {
	return func(s *Server) { s.quota = q }
}

// WithDefaults sets radius, limit and distance defaults for nearby_amenities.
func WithDefaults(d Defaults) Option {
	return func(s *Server) { s.defaults = d }
}

// WithLogger sets the logger. Output must not go to stdout.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a new MCP Server.
func New(a AmenityHandler, p PropertySearcher, version string, opts ...Option) *Server {
	s := &Server{
		amenities:  a,
		properties: p,
		version:    version,
		defaults:   Defaults{Radius: 5000, Limit: 5},
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logger.OrNop(s.logger)
	return s
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, errorResponse(nil, CodeParseError, "parse error"))
			continue
		}
		if req.JSONRPC != jsonRPCVersion {
			s.writeResponse(w, errorResponse(req.ID, CodeInvalidRequest, "jsonrpc must be 2.0"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.writeResponse(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "nestfind", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return resultResponse(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return resultResponse(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	s.logger.Debug("mcp tool call", zap.String("tool", params.Name))
	return resultResponse(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) writeResponse(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("mcp marshal", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("mcp write", zap.Error(err))
	}
}
