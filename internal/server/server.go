// Package server serves the rewind HTTP surface: the history routes, the
// JSON-RPC session control endpoint and its WebSocket push channel.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/logger"
)

// Config holds the server settings.
type Config struct {
	// Secret is the RPC bearer token. Empty disables the RPC endpoints.
	Secret string
	// OriginPatterns are extra origins allowed to open the WebSocket.
	OriginPatterns []string
	// Routes registers plain HTTP handlers, such as the history API.
	Routes func(mux *http.ServeMux)

	Version   string
	Commit    string
	BuildType string
}

// Server multiplexes the HTTP routes and the JSON-RPC endpoints.
// Register every RPC method before the first call to Handler.
type Server struct {
	log      logger.Logger
	cfg      *Config
	methods  handler.Map
	notifier *RPCNotifier

	once     sync.Once
	handler  http.Handler
	bridge   jhttp.Bridge
	bridgeUp bool

	mu   sync.Mutex
	http *http.Server
}

func NewServer(l logger.Logger, cfg *Config) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Server{
		log:      l,
		cfg:      cfg,
		methods:  handler.Map{},
		notifier: NewRPCNotifier(l),
	}
	s.RegisterHandler(common.MethodVersion, handler.New(s.systemGetVersion))
	return s
}

// RegisterHandler associates an RPC method name with its handler.
func (s *Server) RegisterHandler(method string, h jrpc2.Handler) {
	s.methods[method] = h
}

// Notifier returns the push notifier shared by all WebSocket clients.
func (s *Server) Notifier() *RPCNotifier {
	return s.notifier
}

func (s *Server) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
		BuildType: s.cfg.BuildType,
	}, nil
}

// Handler returns the root http.Handler. The method set is frozen on the
// first call.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		mux := http.NewServeMux()
		if s.cfg.Routes != nil {
			s.cfg.Routes(mux)
		}
		s.bridge = jhttp.NewBridge(s.methods, nil)
		s.bridgeUp = true
		mux.Handle(common.RPCPath, requireToken(s.cfg.Secret, s.bridge))
		mux.Handle(common.RPCWSPath, requireToken(s.cfg.Secret, http.HandlerFunc(s.serveWS)))
		s.handler = mux
	})
	return s.handler
}

// Serve accepts connections on l until Shutdown. The push notifier runs
// for as long as ctx does.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.http = hs
	s.mu.Unlock()

	go s.notifier.Run(ctx)
	s.log.Info("serving on %s", l.Addr())
	err := hs.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.http
	s.mu.Unlock()
	var err error
	if hs != nil {
		err = hs.Shutdown(ctx)
	}
	if s.bridgeUp {
		s.bridge.Close()
	}
	return err
}
