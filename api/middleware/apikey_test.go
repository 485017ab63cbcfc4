package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdminAPIKeyAllowsMatchingKey(t *testing.T) {
	handler := AdminAPIKey("secret-key", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/tracking", nil)
	req.Header.Set("X-Api-Key", "secret-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestAdminAPIKeyRejectsWrongOrMissingKey(t *testing.T) {
	handler := AdminAPIKey("secret-key", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a valid key")
	}))

	for _, key := range []string{"", "wrong-key"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/tracking", nil)
		if key != "" {
			req.Header.Set("X-Api-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for key %q, got %d", key, rec.Code)
		}
	}
}

func TestAdminAPIKeyFailsClosedWhenUnconfigured(t *testing.T) {
	handler := AdminAPIKey("", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a configured key")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/tracking", nil)
	req.Header.Set("X-Api-Key", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when key unconfigured, got %d", rec.Code)
	}
}
