// Package jsonrpc defines the JSON-RPC 2.0 wire types shared by the stdio
// transport and the HTTP/WS front end, and the inbound validation rules.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"

	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
)

// Version is the only JSON-RPC version the gateway accepts or emits.
const Version = "2.0"

// MaxBodyBytes is the absolute cap on a single /mcp request body,
// independent of the configurable SecurityConfig.MaxRequestBytes.
const MaxBodyBytes = 1 << 20 // 1 MiB

// ID is a JSON-RPC request/response id: string, number, or null/omitted.
// json.RawMessage preserves whichever of those the client sent so it can be
// echoed back byte-for-byte.
type ID = json.RawMessage

// Request is an inbound (or outbound-to-child) JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response: exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResultResponse builds a successful response echoing the given id.
func NewResultResponse(id ID, result json.RawMessage) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse builds an error response for the given id and error.
// Unwraps *errors.Error to select the JSON-RPC error code and the bare
// message ("Method not found: nope", not the type-prefixed Error()
// string); any other error maps to -32603 with its own Error() text.
func NewErrorResponse(id ID, err error) *Response {
	message := err.Error()
	if e, ok := err.(*gwerrors.Error); ok {
		message = e.Message
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error: &RPCError{
			Code:    gwerrors.JSONRPCCode(err),
			Message: message,
		},
	}
}

// ToolCallParams is the decoded params object for a tools/call request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ResourceReadParams is the decoded params object for a resources/read request.
type ResourceReadParams struct {
	URI string `json:"uri"`
}

// PromptGetParams is the decoded params object for a prompts/get request.
type PromptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// Validate enforces the inbound request rules: jsonrpc version, non-empty
// method, well-formed id, and tools/call params shape. It does not enforce
// body size; callers check that separately before unmarshalling since the
// limit applies to raw bytes.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return gwerrors.NewInvalidJSONRPCError(fmt.Sprintf("jsonrpc must be %q", Version), nil)
	}
	if r.Method == "" {
		return gwerrors.NewInvalidJSONRPCError("method must be a non-empty string", nil)
	}
	if len(r.ID) > 0 {
		if err := validateIDShape(r.ID); err != nil {
			return gwerrors.NewInvalidJSONRPCError("id must be a string, number, or omitted", err)
		}
	}
	if r.Method == "tools/call" {
		var p ToolCallParams
		if err := json.Unmarshal(r.Params, &p); err != nil {
			return gwerrors.NewInvalidParamsError("params.name is required for tools/call", err)
		}
		if p.Name == "" {
			return gwerrors.NewInvalidParamsError("params.name is required for tools/call", nil)
		}
	}
	return nil
}

func validateIDShape(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64, nil:
		return nil
	default:
		return errors.New("id must be string, number, or null")
	}
}
