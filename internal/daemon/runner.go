// Package daemon runs the rewind server: it owns the listener, caps
// concurrent connections and drives graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

var (
	ErrAlreadyRunning  = errors.New("daemon is already running")
	ErrNotRunning      = errors.New("daemon is not running")
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout is used when Config.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 10 * time.Second

type Config struct {
	// Addr is the host:port to listen on. Port 0 picks an ephemeral port.
	Addr string
	// MaxConns caps concurrent connections. Zero means no cap.
	MaxConns int
	// ShutdownTimeout bounds the graceful part of Shutdown.
	ShutdownTimeout time.Duration
}

// Dependencies are injected so tests can swap the network and server.
type Dependencies struct {
	// ListenerFactory creates the listener. Defaults to net.Listen.
	ListenerFactory func(network, address string) (net.Listener, error)
	// Serve runs the server on l until it is shut down.
	Serve func(ctx context.Context, l net.Listener) error
	// ShutdownFunc stops Serve gracefully.
	ShutdownFunc func(ctx context.Context) error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	ready    chan struct{}
	onReady  sync.Once
}

// New creates a runner. A nil config listens on an ephemeral loopback
// port.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
		ready:  make(chan struct{}),
	}
}

func applyConfigDefaults(config *Config) *Config {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &cfg
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	d := Dependencies{}
	if deps != nil {
		d = *deps
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	if d.Serve == nil {
		d.Serve = func(ctx context.Context, _ net.Listener) error {
			<-ctx.Done()
			return nil
		}
	}
	return &d
}

func (r *Runner) Config() *Config {
	return r.config
}

// Start listens and serves until ctx is cancelled, Shutdown is called or
// Serve fails.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)

	listener, err := r.deps.ListenerFactory("tcp", r.config.Addr)
	if err != nil {
		r.cancel()
		r.mu.Unlock()
		return err
	}
	if r.config.MaxConns > 0 {
		listener = netutil.LimitListener(listener, r.config.MaxConns)
	}
	r.listener = listener
	r.running = true
	r.onReady.Do(func() { close(r.ready) })
	r.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() { serveErr <- r.deps.Serve(ctx, listener) }()

	select {
	case <-ctx.Done():
		err = ctx.Err()
		r.shutdownServer()
		<-serveErr
	case err = <-serveErr:
	}
	r.cleanupOnStop()
	return err
}

// Ready is closed once the listener is first up.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the bound address, or nil before Start.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.closeListener()
}

// closeListener closes the listener if it exists. Caller must hold mu.
func (r *Runner) closeListener() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
}

// Shutdown stops the daemon, giving Serve ShutdownTimeout to finish
// in-flight requests.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}
	err := r.shutdownServer()
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
	return err
}

func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}
	return nil
}

func (r *Runner) shutdownServer() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
	defer cancel()
	err := r.deps.ShutdownFunc(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrShutdownTimeout
	}
	return err
}

func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
