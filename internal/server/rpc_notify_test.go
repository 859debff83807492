package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// newTestServer creates a push-capable jrpc2 server over an io.Pipe
// channel. The client channel must be drained or closed so pushes do not
// block.
func newTestServer(t *testing.T) (channel.Channel, *jrpc2.Server, func()) {
	t.Helper()
	cr, sw := io.Pipe()
	sr, cw := io.Pipe()
	cli := channel.Line(cr, cw)
	srvCh := channel.Line(sr, sw)

	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(srvCh)

	cleanup := func() {
		cli.Close()
		_ = srv.Wait()
	}
	return cli, srv, cleanup
}

func TestRPCNotifier_RegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(nil)
	_, srv, cleanup := newTestServer(t)
	defer cleanup()

	n.Register(srv)
	n.Register(srv)
	if n.Count() != 1 {
		t.Fatalf("expected 1 server, got %d", n.Count())
	}
	n.Unregister(srv)
	n.Unregister(srv)
	if n.Count() != 0 {
		t.Fatalf("expected 0 servers, got %d", n.Count())
	}
}

func TestRPCNotifier_Broadcast_NoServers(t *testing.T) {
	NewRPCNotifier(nil).Broadcast(common.NotifyState, replaylib.Snapshot{})
}

func TestRPCNotifier_Broadcast_DeliversShow(t *testing.T) {
	n := NewRPCNotifier(nil)
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	done := make(chan []byte, 1)
	go func() {
		data, _ := cli.Recv()
		done <- data
	}()

	n.Broadcast(common.NotifyShow, &common.ShowNotification{
		SessionID: "s1",
		Frame:     replaylib.Frame{Index: 2, Label: "URL_C", Target: "/pages/url_c.html"},
	})

	var msg struct {
		Method string                  `json:"method"`
		Params common.ShowNotification `json:"params"`
	}
	if err := json.Unmarshal(<-done, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Method != common.NotifyShow || msg.Params.Frame.Index != 2 || msg.Params.SessionID != "s1" {
		t.Errorf("unexpected push %+v", msg)
	}
	if n.Count() != 1 {
		t.Fatalf("expected server to stay registered, got %d", n.Count())
	}
}

func TestRPCNotifier_Broadcast_DropsDisconnected(t *testing.T) {
	ml := logger.NewMockLogger()
	n := NewRPCNotifier(ml)

	cli1, srv1, cleanup1 := newTestServer(t)
	defer cleanup1()
	cli2, srv2, _ := newTestServer(t)
	n.Register(srv1)
	n.Register(srv2)

	cli2.Close()
	_ = srv2.Wait()

	done := make(chan struct{})
	go func() { _, _ = cli1.Recv(); close(done) }()
	n.Broadcast(common.NotifyCountdown, &common.CountdownNotification{RemainingMs: 900})
	<-done

	if n.Count() != 1 {
		t.Fatalf("expected 1 server after partial failure, got %d", n.Count())
	}
	if !ml.HasWarning("RPC push replay.countdown failed") {
		t.Errorf("expected a push warning, got %v", ml.Warnings())
	}
}

func TestRPCNotifier_PublishKeepsOrder(t *testing.T) {
	n := NewRPCNotifier(nil)
	cli, srv, cleanup := newTestServer(t)
	defer cleanup()
	n.Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	for i := 0; i < 5; i++ {
		n.Publish(common.NotifyCountdown, &common.CountdownNotification{RemainingMs: int64(i)})
	}
	for i := 0; i < 5; i++ {
		data, err := cli.Recv()
		if err != nil {
			t.Fatal(err)
		}
		var msg struct {
			Params common.CountdownNotification `json:"params"`
		}
		_ = json.Unmarshal(data, &msg)
		if msg.Params.RemainingMs != int64(i) {
			t.Fatalf("push %d carried %d", i, msg.Params.RemainingMs)
		}
	}
}

func TestRPCNotifier_PublishFullQueueDrops(t *testing.T) {
	ml := logger.NewMockLogger()
	n := NewRPCNotifier(ml)
	for i := 0; i < pushQueueSize+3; i++ {
		n.Publish(common.NotifyState, nil)
	}
	if !ml.HasWarning("queue full") {
		t.Error("expected queue-full warning")
	}
}

func TestRPCNotifier_PublishAfterRunStops(t *testing.T) {
	n := NewRPCNotifier(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() { n.Run(ctx); close(stopped) }()
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	n.Publish(common.NotifyState, nil)
	if len(n.queue) != 0 {
		t.Error("publish after shutdown must not queue")
	}
}

func TestRPCNotifier_ConcurrentRegisterUnregister(t *testing.T) {
	n := NewRPCNotifier(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cli, srv, _ := newTestServer(t)
			n.Register(srv)
			_ = n.Count()
			n.Unregister(srv)
			cli.Close()
			_ = srv.Wait()
		}()
	}
	wg.Wait()
	if n.Count() != 0 {
		t.Fatalf("expected 0 servers, got %d", n.Count())
	}
}
