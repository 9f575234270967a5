// Package mcp implements a Model Context Protocol server exposing read-only
// access to a CascadeDP record tree as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

const (
	// serverName is the MCP server implementation name.
	serverName = "cascadedp"
	// serverVersion is the MCP server implementation version.
	serverVersion = "1.0.0"

	// toolCount is the expected number of registered tools.
	toolCount = 3

	// mcpDispatchAgent is the pseudo-agent name metrics attribute every MCP
	// tool call is recorded under, since a tool call is itself a dispatch
	// against the tree from the agent's perspective.
	mcpDispatchAgent = "mcp"

	statusOK    = "ok"
	statusError = "error"
)

// ServerDeps holds injectable dependencies for the MCP server.
// Root is the record whose subtree the server exposes; it must be a
// store-bearing record (commonly the system root). Zero-value Logger,
// Metrics, and Tracer fields use production defaults (no-op).
type ServerDeps struct {
	Root    *cdp.Record
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

// Server wraps the MCP SDK server with CascadeDP tree-browsing tools.
type Server struct {
	inner   *mcpsdk.Server
	mu      sync.RWMutex
	tools   []string
	root    *cdp.Record
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// NewServer creates a new MCP server with all tree-browsing tools
// registered against deps.Root.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		opts,
	)

	srv := &Server{
		inner:   inner,
		tools:   make([]string, 0, toolCount),
		root:    deps.Root,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	err := s.inner.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

// registerTools adds all tree-browsing tools to the server.
func (s *Server) registerTools() {
	s.registerFindByPathTool()
	s.registerListChildrenTool()
	s.registerPathTool()
}

func (s *Server) registerFindByPathTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameFindByPath,
		Description: findByPathToolDescription,
	}, withMetrics(s.metrics, ToolNameFindByPath, withTracing(s.tracer, ToolNameFindByPath, handleFindByPath(s.root))))

	s.trackTool(ToolNameFindByPath)
}

func (s *Server) registerListChildrenTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameListChildren,
		Description: listChildrenToolDescription,
	}, withMetrics(s.metrics, ToolNameListChildren, withTracing(s.tracer, ToolNameListChildren, handleListChildren(s.root))))

	s.trackTool(ToolNameListChildren)
}

func (s *Server) registerPathTool() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNamePath,
		Description: pathToolDescription,
	}, withMetrics(s.metrics, ToolNamePath, withTracing(s.tracer, ToolNamePath, handlePath(s.root))))

	s.trackTool(ToolNamePath)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record a dispatch outcome per
// invocation, keyed by toolName as the dispatch action.
func withMetrics[Input any](
	metrics *observability.Metrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		result, output, err := handler(ctx, req, input)

		status := statusOK
		if err != nil || (result != nil && result.IsError) {
			status = statusError
		}

		metrics.RecordDispatch(ctx, mcpDispatchAgent, toolName, status)

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	findByPathToolDescription = "Resolve a slash-separated path from the tree root to a single " +
		"record, returning its identity, kind (data or store), and metadata."

	listChildrenToolDescription = "List the direct children of a store-bearing record at the " +
		"given path, one level deep."

	pathToolDescription = "Search the full tree for a record by its decoded domain and/or tag " +
		"name, returning the path from the root to the first match."
)
