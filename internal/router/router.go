// Package router translates one inbound MCP JSON-RPC request into a target
// server (or a locally-served reply) and forwards it with the JSON-RPC id
// rewritten to the instance-local id.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/stacklok/mcp-vgateway/internal/capability"
	"github.com/stacklok/mcp-vgateway/internal/configloader"
	"github.com/stacklok/mcp-vgateway/internal/orgcontext"
	"github.com/stacklok/mcp-vgateway/internal/servermanager"
	"github.com/stacklok/mcp-vgateway/internal/transport"
	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/pkg/jsonrpc"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// InstancePool is the subset of *servermanager.Manager the router needs,
// kept as an interface so router tests can substitute a fake pool.
type InstancePool interface {
	Acquire(ctx context.Context, serverID string) (*servermanager.Instance, error)
	Release(inst *servermanager.Instance)
}

// Router resolves and forwards MCP requests.
type Router struct {
	index       *capability.Index
	pool        InstancePool
	loader      configloader.ConfigLoader
	callTimeout time.Duration
}

// New builds a Router. loader may be nil if no org-scoped overrides apply.
func New(index *capability.Index, pool InstancePool, loader configloader.ConfigLoader, callTimeout time.Duration) *Router {
	if callTimeout <= 0 {
		callTimeout = transport.DefaultCallTimeout
	}
	return &Router{index: index, pool: pool, loader: loader, callTimeout: callTimeout}
}

// Handle routes one inbound JSON-RPC request and returns the response to
// send back to the client, with the client's original id preserved.
func (r *Router) Handle(ctx context.Context, rc orgcontext.RequestContext, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case "initialize":
		return r.handleInitialize(req.ID)
	case "tools/call":
		return r.forwardToolCall(ctx, req)
	case "resources/read":
		return r.forwardResourceRead(ctx, rc, req)
	case "prompts/get":
		return r.handlePromptGet(ctx, rc, req)
	case "tools/list":
		return r.fanOutList(ctx, rc, req.ID, "tools/list")
	case "resources/list":
		return r.fanOutList(ctx, rc, req.ID, "resources/list")
	case "prompts/list":
		return r.fanOutList(ctx, rc, req.ID, "prompts/list")
	default:
		err := gwerrors.NewUnknownMethodError(fmt.Sprintf("Method not found: %s", req.Method), nil)
		return jsonrpc.NewErrorResponse(req.ID, err)
	}
}

func (r *Router) handleInitialize(id jsonrpc.ID) *jsonrpc.Response {
	result, _ := json.Marshal(map[string]any{
		"protocolVersion": transport.ProtocolVersion,
		"serverInfo":      transport.ClientInfo,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
	})
	return jsonrpc.NewResultResponse(id, result)
}

// forwardToolCall handles tools/call: resolve params.name through the
// capability index and forward verbatim to the owning server.
func (r *Router) forwardToolCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params jsonrpc.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return jsonrpc.NewErrorResponse(req.ID, gwerrors.NewInvalidParamsError("params.name is required", err))
	}

	serverID, ok := r.index.Resolve(params.Name)
	if !ok {
		err := gwerrors.NewUnknownCapabilityError(fmt.Sprintf("Method not found: %s", params.Name), nil)
		return jsonrpc.NewErrorResponse(req.ID, err)
	}

	return r.forward(ctx, req.ID, serverID, req.Method, req.Params)
}

func (r *Router) forwardResourceRead(ctx context.Context, rc orgcontext.RequestContext, req *jsonrpc.Request) *jsonrpc.Response {
	var params jsonrpc.ResourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		return jsonrpc.NewErrorResponse(req.ID, gwerrors.NewInvalidParamsError("params.uri is required", err))
	}

	if r.loader != nil {
		if res, ok := r.loader.GetResource(ctx, rc, params.URI); ok {
			result, _ := json.Marshal(map[string]any{"contents": []configloader.ResourceDefinition{*res}})
			return jsonrpc.NewResultResponse(req.ID, result)
		}
	}

	serverID, ok := r.index.Resolve(params.URI)
	if !ok {
		err := gwerrors.NewUnknownCapabilityError(fmt.Sprintf("Method not found: %s", params.URI), nil)
		return jsonrpc.NewErrorResponse(req.ID, err)
	}
	return r.forward(ctx, req.ID, serverID, req.Method, req.Params)
}

// handlePromptGet serves prompts/get: an org-scoped override takes priority
// and is rendered locally; otherwise the request is forwarded to the server
// that registered the prompt.
func (r *Router) handlePromptGet(ctx context.Context, rc orgcontext.RequestContext, req *jsonrpc.Request) *jsonrpc.Response {
	var params jsonrpc.PromptGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return jsonrpc.NewErrorResponse(req.ID, gwerrors.NewInvalidParamsError("params.name is required", err))
	}

	if r.loader != nil {
		if tpl, ok := r.loader.GetPrompt(ctx, rc, params.Name); ok {
			messages := configloader.RenderPrompt(tpl, params.Arguments)
			result, _ := json.Marshal(map[string]any{"description": tpl.Description, "messages": messages})
			return jsonrpc.NewResultResponse(req.ID, result)
		}
	}

	serverID, ok := r.index.Resolve(params.Name)
	if !ok {
		err := gwerrors.NewUnknownCapabilityError(fmt.Sprintf("Method not found: %s", params.Name), nil)
		return jsonrpc.NewErrorResponse(req.ID, err)
	}
	return r.forward(ctx, req.ID, serverID, req.Method, req.Params)
}

// forward acquires an instance of serverID and relays the call, rewriting
// the id through transport.Conn.Send (which assigns its own instance-local
// monotone id) while the caller's id is reattached to the response here.
func (r *Router) forward(ctx context.Context, clientID jsonrpc.ID, serverID, method string, params json.RawMessage) *jsonrpc.Response {
	inst, err := r.pool.Acquire(ctx, serverID)
	if err != nil {
		return jsonrpc.NewErrorResponse(clientID, err)
	}
	defer r.pool.Release(inst)

	resp, err := inst.Conn.Send(ctx, method, params, r.callTimeout)
	if err != nil {
		if gwerrors.IsTransportChildExited(err) || gwerrors.IsTransportHandshakeFailed(err) {
			logger.Warnf("forward to %s failed, instance will be reaped by the health loop: %v", serverID, err)
		}
		return jsonrpc.NewErrorResponse(clientID, err)
	}

	if resp.Error != nil {
		return &jsonrpc.Response{JSONRPC: jsonrpc.Version, ID: clientID, Error: resp.Error}
	}
	return jsonrpc.NewResultResponse(clientID, resp.Result)
}

var listKinds = map[string]string{
	"tools/list":     "tools",
	"resources/list": "resources",
	"prompts/list":   "prompts",
}

var listItemKeys = map[string]string{
	"tools/list":     "name",
	"resources/list": "uri",
	"prompts/list":   "name",
}

// fanOutList serves tools/list, resources/list, and prompts/list: ask every
// healthy server, concatenate results, de-duplicate by name/uri with
// first-wins by serverId lexical order. ConfigLoader org overrides (if any)
// are merged in ahead of server results, so they take priority under the
// same first-wins rule.
func (r *Router) fanOutList(ctx context.Context, rc orgcontext.RequestContext, clientID jsonrpc.ID, method string) *jsonrpc.Response {
	itemKey := listItemKeys[method]
	resultKey := listKinds[method]

	seen := make(map[string]bool)
	var merged []map[string]any

	addItems := func(items []map[string]any) {
		for _, item := range items {
			key, _ := item[itemKey].(string)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}

	if r.loader != nil {
		addItems(overridesAsItems(ctx, rc, method, r.loader))
	}

	for _, serverID := range r.index.ServerIDs() {
		items, err := r.listFromServer(ctx, serverID, method, resultKey)
		if err != nil {
			logger.Warnf("tools fan-out: %s unavailable for %s: %v", serverID, method, err)
			continue
		}
		addItems(items)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, _ := merged[i][itemKey].(string)
		b, _ := merged[j][itemKey].(string)
		return a < b
	})

	result, _ := json.Marshal(map[string]any{resultKey: merged})
	return jsonrpc.NewResultResponse(clientID, result)
}

func (r *Router) listFromServer(ctx context.Context, serverID, method, resultKey string) ([]map[string]any, error) {
	inst, err := r.pool.Acquire(ctx, serverID)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(inst)

	resp, err := inst.Conn.Send(ctx, method, nil, r.callTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, gwerrors.NewTransportDecodeError(resp.Error.Message, nil)
	}

	var decoded map[string][]map[string]any
	if err := json.Unmarshal(resp.Result, &decoded); err != nil {
		return nil, gwerrors.NewTransportDecodeError("malformed list result", err)
	}
	return decoded[resultKey], nil
}

func overridesAsItems(ctx context.Context, rc orgcontext.RequestContext, method string, loader configloader.ConfigLoader) []map[string]any {
	var out []map[string]any
	switch method {
	case "prompts/list":
		for _, p := range loader.ListPrompts(ctx, rc) {
			b, _ := json.Marshal(p)
			var m map[string]any
			_ = json.Unmarshal(b, &m)
			out = append(out, m)
		}
	case "resources/list":
		for _, res := range loader.ListResources(ctx, rc) {
			b, _ := json.Marshal(res)
			var m map[string]any
			_ = json.Unmarshal(b, &m)
			out = append(out, m)
		}
	}
	return out
}
