package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stacklok/mcp-vgateway/internal/orgcontext"
	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
	"github.com/stacklok/mcp-vgateway/pkg/jsonrpc"
	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		// The Origin header is not checked on upgrade: securityHeadersMiddleware
		// only decides whether CORS headers are added and never rejects a
		// request. Access is gated by the API-key and rate-limit checks in
		// handleMCPWebSocket.
		return true
	},
}

// handleMCPWebSocket implements GET /mcp/ws: authenticate and
// rate-limit once at upgrade time, then relay each inbound text frame
// through the same JSON-RPC pipeline as POST /mcp, replying on the same
// connection. Frame order per connection is preserved by construction: one
// reader loop processes and replies to frames sequentially.
func (s *Server) handleMCPWebSocket(w http.ResponseWriter, r *http.Request) {
	apiKey, err := s.authenticate(r)
	if err != nil {
		writeJSONError(w, gwerrors.Code(err), "Unauthorized", authErrorMessage(err))
		return
	}

	if s.cfg.Security.EnableRateLimit {
		if allowed, retryAfter := s.limiter.Allow(rateLimitKey(r, apiKey)); !allowed {
			if s.metrics != nil {
				s.metrics.RateLimitRejections.WithLabelValues(rateLimitKeyKind(apiKey)).Inc()
			}
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":      "TooManyRequests",
				"message":    "rate limit exceeded",
				"retryAfter": retryAfter,
			})
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	rc := orgcontext.Extract(r)
	// r.Context() stays live for the handler's duration, which is the whole
	// connection lifetime since wsLoop blocks below.
	s.wsLoop(r.Context(), conn, rc)
}

// wsLoop reads text frames until the connection closes, handling each as an
// independent JSON-RPC request and writing the reply back as a single text
// frame.
func (s *Server) wsLoop(ctx context.Context, conn *websocket.Conn, rc orgcontext.RequestContext) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("websocket read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req jsonrpc.Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.wsWriteError(conn, nil, -32700, "Parse error: "+err.Error())
			continue
		}

		resp := s.serveJSONRPC(ctx, rc, &req)
		if err := s.wsWriteJSON(conn, resp); err != nil {
			logger.Warnf("websocket write failed: %v", err)
			return
		}
	}
}

func (s *Server) wsWriteJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) wsWriteError(conn *websocket.Conn, id jsonrpc.ID, code int, message string) {
	resp := jsonrpc.Response{
		JSONRPC: jsonrpc.Version,
		ID:      id,
		Error:   &jsonrpc.RPCError{Code: code, Message: message},
	}
	if err := s.wsWriteJSON(conn, resp); err != nil {
		logger.Warnf("websocket error write failed: %v", err)
	}
}
