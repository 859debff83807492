package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestRequireToken(t *testing.T) {
	const secret = "test-secret-12345"
	tests := []struct {
		name   string
		secret string
		header string
		target string
		want   int
	}{
		{"valid bearer", secret, "Bearer " + secret, "/jsonrpc", http.StatusOK},
		{"missing header", secret, "", "/jsonrpc", http.StatusUnauthorized},
		{"wrong token", secret, "Bearer nope", "/jsonrpc", http.StatusUnauthorized},
		{"no bearer prefix", secret, secret, "/jsonrpc", http.StatusUnauthorized},
		{"empty secret", "", "Bearer anything", "/jsonrpc", http.StatusUnauthorized},
		{"query token", secret, "", "/jsonrpc/ws?token=" + secret, http.StatusOK},
		{"wrong query token", secret, "", "/jsonrpc/ws?token=nope", http.StatusUnauthorized},
		{"header wins over query", secret, "Bearer nope", "/jsonrpc/ws?token=" + secret, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			requireToken(tt.secret, okHandler).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequireToken_JSONRPCErrorBody(t *testing.T) {
	rr := httptest.NewRecorder()
	requireToken("s", okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jsonrpc", nil))

	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.JSONRPC != "2.0" || resp.Error.Code != -32600 || resp.Error.Message != "Unauthorized" {
		t.Fatalf("unexpected body %+v", resp)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestValidToken(t *testing.T) {
	if !validToken("secret", "Bearer secret") {
		t.Fatal("expected matching tokens to pass")
	}
	for _, h := range []string{"Bearer wrong", "", "secret", "bearer secret"} {
		if validToken("secret", h) {
			t.Errorf("header %q must not pass", h)
		}
	}
	if validToken("", "Bearer ") {
		t.Fatal("empty secret must never pass")
	}
}
