package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

// securityHeadersMiddleware sets the CORS and CSP headers on every
// response, including the CORS preflight path.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.applyCORS(w, r)
		if s.cfg.Security.SecurityHeaders {
			w.Header().Set("Content-Security-Policy", s.csp())
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	if !s.originAllowed(origin) {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Vary", "Origin")
	if s.cfg.Security.CORSCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, x-api-key, x-request-id, x-organization-id, x-organization-clerk-id, x-organization-name, x-organization-slug")
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.Security.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.Security.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// csp builds the Content-Security-Policy header, augmenting connect-src
// with the configured allowed origins and disabling embedding entirely
// (frame-src 'none').
func (s *Server) csp() string {
	connectSrc := "'self'"
	for _, o := range s.cfg.Security.AllowedOrigins {
		connectSrc += " " + o
	}
	return fmt.Sprintf(
		"default-src 'self'; script-src 'self' 'unsafe-inline'; connect-src %s; frame-src 'none'",
		connectSrc,
	)
}
