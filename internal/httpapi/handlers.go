package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stacklok/mcp-vgateway/internal/orgcontext"
	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/pkg/jsonrpc"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string                        `json:"status"`
	Timestamp time.Time                     `json:"timestamp"`
	Servers   map[string]healthServerDetail `json:"servers"`
}

type healthServerDetail struct {
	Instances    int       `json:"instances"`
	Healthy      int       `json:"healthy"`
	Capabilities []string  `json:"capabilities"`
	LastCheck    time.Time `json:"lastCheck"`
}

// handleHealth implements GET /health: always bypasses auth, reports
// "degraded" when any configured server has zero healthy instances.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.pool.Snapshot()

	status := "healthy"
	servers := make(map[string]healthServerDetail, len(snapshot))
	for serverID, snap := range snapshot {
		if snap.Healthy == 0 {
			status = "degraded"
		}
		servers[serverID] = healthServerDetail{
			Instances:    snap.Instances,
			Healthy:      snap.Healthy,
			Capabilities: s.index.Capabilities(serverID),
			LastCheck:    snap.LastCheck,
		}
		if s.metrics != nil {
			s.metrics.ObserveSnapshot(serverID, snap.Instances, snap.Healthy)
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Servers:   servers,
	})
}

// handleMCP implements POST /mcp: body limit, JSON parse, rate limit, auth,
// then routing (CORS and security headers already ran as router middleware).
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBodyOrReject(w, r)
	if !ok {
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONRPCError(w, http.StatusBadRequest, nil, -32700, "Parse error: "+err.Error())
		return
	}

	apiKey := apiKeyFromRequest(r, !s.cfg.IsProduction())
	if s.cfg.Security.EnableRateLimit {
		if allowed, retryAfter := s.limiter.Allow(rateLimitKey(r, apiKey)); !allowed {
			if s.metrics != nil {
				s.metrics.RateLimitRejections.WithLabelValues(rateLimitKeyKind(apiKey)).Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":      "TooManyRequests",
				"message":    "rate limit exceeded",
				"retryAfter": retryAfter,
			})
			return
		}
	}

	if _, err := s.authenticate(r); err != nil {
		writeJSONError(w, gwerrors.Code(err), "Unauthorized", authErrorMessage(err))
		return
	}

	resp := s.serveJSONRPC(r.Context(), orgcontext.Extract(r), &req)
	status := http.StatusOK
	if resp.Error != nil && resp.Error.Code == gwerrors.JSONRPCNoHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// serveJSONRPC runs validation, routing, and metrics recording for one
// decoded JSON-RPC request. Shared by the POST /mcp handler and the
// WebSocket relay, which authenticates and rate-limits once at upgrade time
// and then calls this directly for every inbound frame.
func (s *Server) serveJSONRPC(ctx context.Context, rc orgcontext.RequestContext, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if s.metrics != nil {
			s.metrics.RequestDuration.WithLabelValues(req.Method, outcome).Observe(time.Since(start).Seconds())
		}
	}()

	if err := req.Validate(); err != nil {
		outcome = "error"
		return jsonrpc.NewErrorResponse(req.ID, err)
	}

	resp := s.rtr.Handle(ctx, rc, req)
	if resp.Error != nil {
		outcome = "error"
	}
	return resp
}

func (s *Server) readBodyOrReject(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	limit := s.cfg.Security.MaxRequestBytes
	if limit <= 0 || limit > jsonrpc.MaxBodyBytes {
		limit = jsonrpc.MaxBodyBytes
	}

	limited := io.LimitReader(r.Body, limit+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "BadRequest", "failed to read request body")
		return nil, false
	}
	if int64(len(body)) > limit {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "BodyTooLarge", "request body exceeds the configured size limit")
		return nil, false
	}
	return body, true
}

func rateLimitKeyKind(apiKey string) string {
	if apiKey != "" {
		return "api_key"
	}
	return "ip"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONRPCError(w http.ResponseWriter, httpStatus int, id jsonrpc.ID, code int, message string) {
	resp := jsonrpc.Response{
		JSONRPC: jsonrpc.Version,
		ID:      id,
		Error:   &jsonrpc.RPCError{Code: code, Message: message},
	}
	writeJSON(w, httpStatus, resp)
}
