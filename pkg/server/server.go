// Package server exposes a tools.Registry over the Model Context Protocol
// on stdio.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
)

// Identity advertised during initialization
const (
	Name    = "elevenlabs-image-mcp"
	Version = "1.0.0"
)

// Server adapts registered tools to an MCP server.
type Server struct {
	mcp      *mcpserver.MCPServer
	registry *tools.Registry
	log      *logging.Logger

	// onShutdown runs once after Serve returns
	onShutdown func() error
}

// Option configures a Server.
type Option func(*Server)

// WithShutdown registers a cleanup hook that runs when Serve returns.
func WithShutdown(fn func() error) Option {
	return func(s *Server) {
		s.onShutdown = fn
	}
}

// New registers every tool in registry with a fresh MCP server.
func New(registry *tools.Registry, log *logging.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{
		mcp: mcpserver.NewMCPServer(Name, Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithRecovery(),
		),
		registry: registry,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, tool := range registry.List() {
		schema, err := json.Marshal(tool.Schema())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema for %s: %w", tool.Name(), err)
		}
		s.mcp.AddTool(
			mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema),
			s.Handler(tool),
		)
	}

	return s, nil
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// Handler adapts a tool to an MCP tool handler. Tool failures become error
// results carrying {"error": message}; the handler itself never fails, so a
// broken tool call never tears down the transport.
func (s *Server) Handler(tool tools.Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		log := s.log.With("tool", tool.Name())

		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return errorResult(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		log.Infof("tool call started")
		out, metadata, err := tool.Execute(ctx, args)
		if err != nil {
			log.Warnf("tool call failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
			return errorResult(err), nil
		}

		log.Infof("tool call finished after %s %v", time.Since(start).Round(time.Millisecond), metadata)
		return mcp.NewToolResultText(out), nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	body, merr := tools.MarshalResult(map[string]string{"error": err.Error()})
	if merr != nil {
		body = err.Error()
	}
	return mcp.NewToolResultError(body)
}

// Serve speaks MCP over in and out until ctx is canceled or in is closed,
// then runs the shutdown hook. Protocol diagnostics go to the log, never to
// out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.log.Writer(), "mcp: ", 0))

	s.log.Infof("serving %d tools over stdio", len(s.registry.List()))
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		err = nil
	}

	if s.onShutdown != nil {
		if serr := s.onShutdown(); serr != nil {
			s.log.Warnf("shutdown: %v", serr)
		}
	}
	s.log.Infof("server stopped")
	return err
}
