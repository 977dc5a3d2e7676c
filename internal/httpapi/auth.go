package httpapi

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	gwerrors "github.com/stacklok/mcp-vgateway/pkg/errors"
)

// apiKeyFromRequest extracts the caller's API key from the headers and,
// outside production, the dev-only `api_key` query parameter.
func apiKeyFromRequest(r *http.Request, allowQueryParam bool) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	if allowQueryParam {
		if key := r.URL.Query().Get("api_key"); key != "" {
			return key
		}
	}
	return ""
}

// authenticate enforces API-key auth. /health is the caller's
// responsibility to skip this check entirely.
func (s *Server) authenticate(r *http.Request) (apiKey string, err error) {
	if !s.cfg.Security.RequireAPIKey {
		return "", nil
	}
	key := apiKeyFromRequest(r, !s.cfg.IsProduction())
	if key == "" {
		return "", gwerrors.NewMissingAPIKeyError("API key required. Provide it via Authorization: Bearer <key>, x-api-key header, or api_key query parameter.", nil)
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Security.APIKey)) != 1 {
		return "", gwerrors.NewInvalidAPIKeyError("invalid API key", nil)
	}
	return key, nil
}

// rateLimitKey picks the rate-limit bucket key: API key if present, else
// client IP.
func rateLimitKey(r *http.Request, apiKey string) string {
	if apiKey != "" {
		return "key:" + apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// authErrorMessage unwraps a gwerrors.Error to its bare message; the
// type-prefixed Error() string is for logs, not client-facing bodies.
func authErrorMessage(err error) string {
	if e, ok := err.(*gwerrors.Error); ok {
		return e.Message
	}
	return err.Error()
}

func writeJSONError(w http.ResponseWriter, status int, errName, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + jsonEscape(errName) + `","message":"` + jsonEscape(message) + `"}`))
}

func jsonEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
