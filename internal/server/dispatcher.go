// Package server exposes the tool registry over MCP: a JSON-RPC dispatcher
// and its HTTP and server-sent-events transport.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vajrock/debugger-mcp/internal/metrics"
	"github.com/vajrock/debugger-mcp/internal/protocol"
	"github.com/vajrock/debugger-mcp/internal/tools"
)

// MCP method names.
const (
	methodInitialize         = "initialize"
	methodInitialized        = "notifications/initialized"
	methodPing               = "ping"
	methodToolsList          = "tools/list"
	methodToolsCall          = "tools/call"
	notificationToolsChanged = "notifications/tools/list_changed"
)

// Conn is the per-connection handshake state.
type Conn struct {
	id string

	mu          sync.Mutex
	initialized bool
	version     string
	client      string
}

// NewConn returns an uninitialized connection.
func NewConn(id string) *Conn {
	return &Conn{id: id}
}

// ID identifies the connection.
func (c *Conn) ID() string { return c.id }

// Initialized reports whether initialize succeeded on this connection.
func (c *Conn) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Version is the negotiated protocol version.
func (c *Conn) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Dispatcher routes JSON-RPC messages to the tool registry.
type Dispatcher struct {
	registry    *tools.Registry
	identity    protocol.ServerIdentity
	preferred   string
	listChanged bool
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Identity protocol.ServerIdentity
	// ProtocolVersion is offered when the client asks for an unknown one.
	ProtocolVersion string
	// ListChanged advertises tools.listChanged in the handshake.
	ListChanged bool
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *tools.Registry, opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:    registry,
		identity:    opts.Identity,
		preferred:   opts.ProtocolVersion,
		listChanged: opts.ListChanged,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Handle processes one JSON-RPC message and returns the response to send,
// or nil for notifications.
func (d *Dispatcher) Handle(ctx context.Context, conn *Conn, payload []byte) *protocol.Response {
	req, rpcErr := protocol.DecodeRequest(payload)
	if rpcErr != nil {
		d.metrics.RPCRequest("invalid", "error")
		d.logger.Debug("rejecting malformed message", "conn", conn.ID(), "error", rpcErr.Message)
		return protocol.NewErrorResponse(req.ID, rpcErr)
	}

	if req.IsNotification() {
		d.notify(conn, req)
		return nil
	}

	result, rpcErr := d.call(ctx, conn, req)
	if rpcErr != nil {
		d.metrics.RPCRequest(req.Method, "error")
		return protocol.NewErrorResponse(req.ID, rpcErr)
	}
	d.metrics.RPCRequest(req.Method, "ok")
	return protocol.NewResult(req.ID, result)
}

func (d *Dispatcher) notify(conn *Conn, req *protocol.Request) {
	switch req.Method {
	case methodInitialized:
		d.logger.Debug("client initialized", "conn", conn.ID())
	default:
		d.logger.Debug("ignoring notification", "conn", conn.ID(), "method", req.Method)
	}
}

func (d *Dispatcher) call(ctx context.Context, conn *Conn, req *protocol.Request) (result any, rpcErr *protocol.Error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling request", "method", req.Method, "panic", r)
			result, rpcErr = nil, protocol.NewError(protocol.CodeInternalError, "internal error: %v", r)
		}
	}()

	switch req.Method {
	case methodInitialize:
		return d.initialize(conn, req.Params)
	case methodPing:
		return struct{}{}, nil
	}

	if !conn.Initialized() {
		return nil, protocol.NewError(protocol.CodeNotInitialized, "server not initialized")
	}

	switch req.Method {
	case methodToolsList:
		return protocol.ListToolsResult{Tools: d.registry.Definitions()}, nil
	case methodToolsCall:
		return d.callTool(ctx, req.Params)
	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "method not found: %s", req.Method)
	}
}

func (d *Dispatcher) initialize(conn *Conn, raw json.RawMessage) (any, *protocol.Error) {
	var params protocol.InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid initialize params: %v", err)
		}
	}
	version := protocol.NegotiateVersion(params.ProtocolVersion, d.preferred)

	var client string
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name + " " + params.ClientInfo.Version
	}
	conn.mu.Lock()
	conn.initialized = true
	conn.version = version
	conn.client = client
	conn.mu.Unlock()

	d.logger.Info("client connected", "conn", conn.ID(), "client", client, "requested_version", params.ProtocolVersion, "version", version)
	return protocol.NewInitializeResult(d.identity, version, d.listChanged), nil
}

func (d *Dispatcher) callTool(ctx context.Context, raw json.RawMessage) (any, *protocol.Error) {
	var params protocol.CallToolParams
	if len(raw) == 0 {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid params: missing tool name")
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid params: %v", err)
	}
	if params.Name == "" {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "invalid params: missing tool name")
	}

	tool, ok := d.registry.Get(params.Name)
	if !ok {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "unknown tool: %s", params.Name)
	}
	args := tools.Arguments(params.Arguments)
	if args == nil {
		args = tools.Arguments{}
	}
	d.validate(tool, args)

	start := time.Now()
	result := d.invoke(ctx, tool, args)
	elapsed := time.Since(start)
	d.metrics.ToolCall(tool.Name(), result.IsError, elapsed)
	d.logger.Debug("tool call", "tool", tool.Name(), "is_error", result.IsError, "duration", elapsed)
	return result, nil
}

// validate checks args against the tool schema. Mismatches are only logged.
func (d *Dispatcher) validate(tool tools.Tool, args tools.Arguments) {
	schema := tool.InputSchema()
	if schema == nil {
		return
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		d.logger.Debug("tool schema does not resolve", "tool", tool.Name(), "error", err)
		return
	}
	if err := resolved.Validate(map[string]any(args)); err != nil {
		d.logger.Debug("arguments do not match schema", "tool", tool.Name(), "error", err)
	}
}

func (d *Dispatcher) invoke(ctx context.Context, tool tools.Tool, args tools.Arguments) (result protocol.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", tool.Name(), "panic", r)
			result = protocol.ErrorResult(fmt.Sprintf("Tool %s failed: %v", tool.Name(), r))
		}
	}()
	return tool.Invoke(ctx, args)
}
