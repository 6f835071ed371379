// Package protocol holds the MCP wire types: the JSON-RPC 2.0 envelope,
// the initialize handshake, tool definitions and tool call results.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const jsonrpcVersion = "2.0"

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeNotInitialized is returned for any method other than initialize
	// and ping received before the handshake completed.
	CodeNotInitialized = -32002
)

var nullID = json.RawMessage("null")

// Request is an incoming JSON-RPC request or notification.
// ID is kept raw so it can be echoed back unchanged.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a server-initiated message without an id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds an *Error with the given code.
func NewError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DecodeRequest parses one envelope. A non-nil *Error means the payload
// must be answered with that error and must not reach any tool; the
// returned request still carries whatever id could be recovered.
func DecodeRequest(payload []byte) (*Request, *Error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return &Request{}, &Error{Code: CodeParseError, Message: "parse error", Data: err.Error()}
	}
	if req.JSONRPC != jsonrpcVersion {
		return &req, NewError(CodeInvalidRequest, "invalid request: jsonrpc must be %q", jsonrpcVersion)
	}
	if req.Method == "" {
		return &req, NewError(CodeInvalidRequest, "invalid request: missing method")
	}
	if len(req.ID) > 0 && !validID(req.ID) {
		return &Request{}, NewError(CodeInvalidRequest, "invalid request: id must be a string, number or null")
	}
	return &req, nil
}

func validID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return false
}

// NewResult wraps result into a response for id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: responseID(id), Result: result}
}

// NewErrorResponse wraps rpcErr into a response for id.
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: jsonrpcVersion, ID: responseID(id), Error: rpcErr}
}

// NewNotification builds a server-initiated notification.
func NewNotification(method string, params any) *Notification {
	return &Notification{JSONRPC: jsonrpcVersion, Method: method, Params: params}
}

func responseID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}
