package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/rewindhq/rewind/common"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + common.RPCWSPath
}

func dialWS(t *testing.T, url string, header http.Header) *cws.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := cws.Dial(ctx, url, &cws.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(cws.StatusNormalClosure, "") })
	return conn
}

func TestWebSocket_AuthRequired(t *testing.T) {
	_, ts := newTestRPC(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, resp, err := cws.Dial(ctx, wsURL(ts.URL), nil)
	if err == nil {
		t.Fatal("expected error for unauthorized WebSocket connection")
	}
	if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestWebSocket_CallAndPush(t *testing.T) {
	s, ts := newTestRPC(t)
	conn := dialWS(t, wsURL(ts.URL), http.Header{"Authorization": {"Bearer " + testSecret}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": common.MethodVersion})
	if err := conn.Write(ctx, cws.MessageText, req); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version":"1.2.3"`) {
		t.Fatalf("unexpected response %s", data)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Notifier().Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Notifier().Count() != 1 {
		t.Fatalf("expected 1 registered client, got %d", s.Notifier().Count())
	}
	s.Notifier().Broadcast(common.NotifyCountdown, &common.CountdownNotification{SessionID: "x", RemainingMs: 1500})
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var push struct {
		Method string                       `json:"method"`
		Params common.CountdownNotification `json:"params"`
	}
	if err := json.Unmarshal(data, &push); err != nil {
		t.Fatal(err)
	}
	if push.Method != common.NotifyCountdown || push.Params.RemainingMs != 1500 {
		t.Errorf("unexpected push %s", data)
	}
}

func TestWebSocket_QueryToken(t *testing.T) {
	_, ts := newTestRPC(t)
	dialWS(t, wsURL(ts.URL)+"?token="+testSecret, nil)
}

func TestWebSocket_UnregistersOnClose(t *testing.T) {
	s, ts := newTestRPC(t)
	conn := dialWS(t, wsURL(ts.URL), http.Header{"Authorization": {"Bearer " + testSecret}})

	deadline := time.Now().Add(2 * time.Second)
	for s.Notifier().Count() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	conn.Close(cws.StatusNormalClosure, "bye")
	for s.Notifier().Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Notifier().Count() != 0 {
		t.Fatalf("expected client to unregister, got %d", s.Notifier().Count())
	}
}
