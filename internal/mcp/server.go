package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"calendly-mcp/internal/canonical"
)

const protocolVersion = "2025-11-25"

// Dispatcher runs one tool invocation.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) canonical.Result
}

type Server struct {
	registry   *Registry
	dispatcher Dispatcher
	logger     *slog.Logger
	version    string
}

func NewServer(registry *Registry, dispatcher Dispatcher, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger.With("component", "mcp"),
		version:    version,
	}
}

// Serve speaks newline-delimited JSON-RPC over in/out until in is exhausted
// or ctx is cancelled. The request in progress is answered before returning.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	reqs := make(chan rpcRequest)
	readErr := make(chan error, 1)
	go func() {
		dec := json.NewDecoder(in)
		for {
			var req rpcRequest
			if err := dec.Decode(&req); err != nil {
				readErr <- err
				return
			}
			select {
			case reqs <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case req := <-reqs:
			resp := s.handleRequest(ctx, &req)
			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return err
			}
		}
	}
}

// handleAll answers a batch, skipping notifications.
func (s *Server) handleAll(ctx context.Context, reqs []rpcRequest) []*rpcResponse {
	var out []*rpcResponse
	for i := range reqs {
		if resp := s.handleRequest(ctx, &reqs[i]); resp != nil {
			out = append(out, resp)
		}
	}
	return out
}

func (s *Server) handleRequest(ctx context.Context, req *rpcRequest) *rpcResponse {
	if req.Jsonrpc != "2.0" {
		return rpcErrorResponse(req.ID, -32600, "invalid jsonrpc version", nil)
	}
	if len(req.ID) == 0 || string(req.ID) == "null" {
		// Notification; no response.
		return nil
	}

	switch req.Method {
	case "initialize":
		return rpcSuccess(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": map[string]any{
				"name":    "Calendly MCP",
				"version": s.version,
			},
		})
	case "tools/list":
		return s.handleListTools(req.ID)
	case "tools/call":
		return s.handleCallTool(ctx, req.ID, req.Params)
	case "ping":
		return rpcSuccess(req.ID, map[string]any{})
	default:
		return rpcErrorResponse(req.ID, -32601, "method not found", nil)
	}
}

func (s *Server) handleListTools(id json.RawMessage) *rpcResponse {
	tools := s.registry.SortedTools()
	result := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		result = append(result, map[string]any{
			"name":         tool.Name,
			"description":  tool.Description,
			"inputSchema":  tool.InputSchema,
			"outputSchema": tool.OutputSchema,
		})
	}
	return rpcSuccess(id, map[string]any{"tools": result})
}

// handleCallTool hands every call to the dispatcher, unknown names included.
// Dispatch outcomes are tool results; only undecodable params are RPC errors.
func (s *Server) handleCallTool(ctx context.Context, id json.RawMessage, params json.RawMessage) *rpcResponse {
	var payload toolCallParams
	if err := json.Unmarshal(params, &payload); err != nil {
		return rpcErrorResponse(id, -32602, "invalid params", nil)
	}
	args := payload.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result := s.dispatcher.Dispatch(ctx, payload.Name, args)
	return rpcSuccess(id, toolResult(result))
}

// RPC types

type rpcRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func rpcSuccess(id json.RawMessage, result any) *rpcResponse {
	return &rpcResponse{
		Jsonrpc: "2.0",
		ID:      id,
		Result:  result,
	}
}

func rpcErrorResponse(id json.RawMessage, code int, message string, data any) *rpcResponse {
	return &rpcResponse{
		Jsonrpc: "2.0",
		ID:      id,
		Error: &rpcError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
