// Package middleware holds the HTTP middleware chain: request logging, org
// extraction, API key auth and tracing.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// OrgKey is the context key for the resolved organization ID.
const OrgKey contextKey = "org"

// OrgExtractor resolves the organization a request acts on. It checks the
// X-Org header, then the org query parameter, and falls back to "default";
// single-tenant installs never have to think about it.
func OrgExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := strings.TrimSpace(r.Header.Get("X-Org"))
		if org == "" {
			org = strings.TrimSpace(r.URL.Query().Get("org"))
		}
		if org == "" {
			org = "default"
		}
		ctx := context.WithValue(r.Context(), OrgKey, org)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrg retrieves the organization ID from the request context.
func GetOrg(ctx context.Context) string {
	if v, ok := ctx.Value(OrgKey).(string); ok {
		return v
	}
	return "default"
}
