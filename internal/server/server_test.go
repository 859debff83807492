package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/logger"
)

const testSecret = "rpc-test-secret"

func newTestRPC(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(logger.NewMockLogger(), &Config{
		Secret:  testSecret,
		Version: "1.2.3",
		Commit:  "abc123",
		Routes: func(mux *http.ServeMux) {
			mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("pong"))
			})
		},
	})
	s.RegisterHandler("test.echo", handler.New(func(_ context.Context, p []string) ([]string, error) {
		return p, nil
	}))
	s.RegisterHandler("test.fail", handler.New(func(context.Context) error {
		return InvalidParams("nope")
	}))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return s, ts
}

type rpcReply struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(t *testing.T, url, method string, params any) rpcReply {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	req, _ := http.NewRequest(http.MethodPost, url+common.RPCPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out rpcReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", method, err)
	}
	return out
}

func TestServer_Version(t *testing.T) {
	_, ts := newTestRPC(t)
	r := call(t, ts.URL, common.MethodVersion, nil)
	if r.Error != nil {
		t.Fatalf("unexpected error %+v", r.Error)
	}
	var v common.VersionResult
	_ = json.Unmarshal(r.Result, &v)
	if v.Version != "1.2.3" || v.Commit != "abc123" {
		t.Errorf("unexpected version %+v", v)
	}
}

func TestServer_RegisteredMethods(t *testing.T) {
	_, ts := newTestRPC(t)
	r := call(t, ts.URL, "test.echo", []string{"a", "b"})
	if r.Error != nil || string(r.Result) != `["a","b"]` {
		t.Fatalf("echo: %s %+v", r.Result, r.Error)
	}
	r = call(t, ts.URL, "test.fail", nil)
	if r.Error == nil || r.Error.Code != int(CodeInvalidParams) {
		t.Fatalf("expected invalid params, got %+v", r.Error)
	}
	r = call(t, ts.URL, "no.such", nil)
	if r.Error == nil || r.Error.Code != int(jrpc2.MethodNotFound) {
		t.Fatalf("expected method not found, got %+v", r.Error)
	}
}

func TestServer_RoutesAreNotAuthenticated(t *testing.T) {
	_, ts := newTestRPC(t)
	resp, err := http.Get(ts.URL + "/api/ping")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, err = http.Post(ts.URL+common.RPCPath, "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := NewServer(nil, &Config{Secret: testSecret})
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	r := call(t, "http://"+l.Addr().String(), common.MethodVersion, nil)
	if r.Error != nil {
		t.Fatalf("unexpected error %+v", r.Error)
	}

	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()
	if err := s.Shutdown(sctx); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
