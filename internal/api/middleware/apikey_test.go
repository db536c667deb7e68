package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_DisabledPassesThrough(t *testing.T) {
	auth := NewAPIKeyAuth("")
	if auth.Enabled() {
		t.Fatal("Enabled = true with no keys")
	}

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	rec := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAPIKeyAuth_RejectsMissingAndBadKeys(t *testing.T) {
	auth := NewAPIKeyAuth("secret-1, secret-2")

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	rec := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", rec.Code)
	}
}

func TestAPIKeyAuth_AcceptsValidKeys(t *testing.T) {
	auth := NewAPIKeyAuth("secret-1,secret-2")

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer secret-1")
	rec := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("X-API-Key", "secret-2")
	rec = httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("x-api-key: status = %d, want 200", rec.Code)
	}
}

func TestAPIKeyAuth_HealthStaysPublic(t *testing.T) {
	auth := NewAPIKeyAuth("secret-1")

	for _, path := range []string{"/health", "/version"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		auth.Middleware(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestOrgExtractor(t *testing.T) {
	var got string
	handler := OrgExtractor(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetOrg(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("X-Org", "studio-north")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "studio-north" {
		t.Errorf("org = %q, want studio-north", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/users?org=from-query", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "from-query" {
		t.Errorf("org = %q, want from-query", got)
	}

	req = httptest.NewRequest("GET", "/api/v1/users", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "default" {
		t.Errorf("org = %q, want default", got)
	}
}
