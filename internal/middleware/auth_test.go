package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(okHandler())

	tests := []struct {
		name   string
		method string
		path   string
		cookie bool
		status int
	}{
		{"public decode", http.MethodPost, "/api/decode", false, http.StatusOK},
		{"health", http.MethodGet, "/health", false, http.StatusOK},
		{"login page", http.MethodGet, "/login", false, http.StatusOK},
		{"static css", http.MethodGet, "/css/site.css", false, http.StatusOK},
		{"api without cookie", http.MethodGet, "/api/readings", false, http.StatusUnauthorized},
		{"page without cookie", http.MethodGet, "/settings", false, http.StatusSeeOther},
		{"api with cookie", http.MethodGet, "/api/readings", true, http.StatusOK},
		{"preflight", http.MethodOptions, "/api/readings", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "true"})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("got status %d, expected %d", rec.Code, tt.status)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/decode", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, expected 204 for preflight", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS origin header")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Errorf("Expected pass-through with CORS headers, got %d", rec.Code)
	}
}
