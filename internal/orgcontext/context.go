// Package orgcontext extracts the per-request organisation context from
// inbound HTTP headers or an unverified JWT.
package orgcontext

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stacklok/mcp-vgateway/pkg/logger"
)

// Organization identifies the requesting tenant.
type Organization struct {
	ID      string
	ClerkID string
	Name    string
	Slug    string
}

// RequestContext carries the identity attached to one inbound call. It is
// immutable once built.
type RequestContext struct {
	RequestID    string
	Organization *Organization
	UserID       string
	APIKeyMasked string
}

const (
	headerOrgID      = "x-organization-id"
	headerOrgClerkID = "x-organization-clerk-id"
	headerOrgName    = "x-organization-name"
	headerOrgSlug    = "x-organization-slug"
	headerRequestID  = "x-request-id"
)

// Extract resolves a RequestContext from r. Extraction never fails the
// request: if neither source matches, an empty context with only RequestID
// populated is returned.
func Extract(r *http.Request) RequestContext {
	rc := RequestContext{RequestID: r.Header.Get(headerRequestID)}

	if org, ok := fromHeaders(r); ok {
		rc.Organization = org
		return rc
	}

	if org, userID, requestID, ok := fromBearerJWT(r); ok {
		rc.Organization = org
		rc.UserID = userID
		if requestID != "" {
			rc.RequestID = requestID
		}
	}

	return rc
}

// fromHeaders builds an Organization when all four org headers are present.
func fromHeaders(r *http.Request) (*Organization, bool) {
	id := r.Header.Get(headerOrgID)
	clerkID := r.Header.Get(headerOrgClerkID)
	name := r.Header.Get(headerOrgName)
	slug := r.Header.Get(headerOrgSlug)

	if id == "" || clerkID == "" || name == "" || slug == "" {
		return nil, false
	}
	return &Organization{ID: id, ClerkID: clerkID, Name: name, Slug: slug}, true
}

// fromBearerJWT decodes an org claim out of a bearer token. The JWT
// signature is not verified here: org context is informational only, and
// any trust boundary must be enforced by the identity gateway in front of
// this service.
func fromBearerJWT(r *http.Request) (org *Organization, userID, requestID string, ok bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return nil, "", "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return nil, "", "", false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		logger.Debugf("org context: could not decode bearer token payload: %v", err)
		return nil, "", "", false
	}

	orgClaim, ok := claims["org"].(map[string]any)
	if !ok {
		return nil, "", "", false
	}

	organization := &Organization{
		ID:      stringField(orgClaim, "id"),
		ClerkID: stringField(orgClaim, "clerk_id"),
		Name:    stringField(orgClaim, "name"),
		Slug:    stringField(orgClaim, "slug"),
	}

	return organization, stringField(claims, "sub"), stringField(claims, "jti"), true
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
