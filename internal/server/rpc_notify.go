package server

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rewindhq/rewind/pkg/logger"
)

// pushQueueSize bounds Publish's backlog. Notifications beyond it are
// dropped with a warning.
const pushQueueSize = 256

type push struct {
	method string
	params any
}

// RPCNotifier maintains the set of connected jrpc2 WebSocket servers and
// pushes notifications to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
	queue   chan push
	once    sync.Once
	done    chan struct{}
}

func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     l,
		queue:   make(chan push, pushQueueSize),
		done:    make(chan struct{}),
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast sends a notification to every registered server and waits
// for the sends. Servers that fail to receive are unregistered.
func (n *RPCNotifier) Broadcast(method string, params any) {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			n.log.Warning("RPC push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Publish queues a notification for Run to broadcast. It never blocks,
// so it is safe to call from the replay event loop.
func (n *RPCNotifier) Publish(method string, params any) {
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.queue <- push{method, params}:
	default:
		n.log.Warning("RPC push queue full, dropping %s", method)
	}
}

// Run broadcasts queued notifications in order until ctx is cancelled.
func (n *RPCNotifier) Run(ctx context.Context) {
	defer n.once.Do(func() { close(n.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-n.queue:
			n.Broadcast(p.method, p.params)
		}
	}
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}
