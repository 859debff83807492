// Package api owns the server's replay session and exposes it as JSON-RPC
// methods.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2/handler"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/scheduler"
	"github.com/rewindhq/rewind/internal/server"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// scheduledStartTimeout bounds a cron-triggered Start.
const scheduledStartTimeout = 30 * time.Second

// Notifier queues push notifications for connected clients.
type Notifier interface {
	Publish(method string, params any)
}

type Api struct {
	log       *logger.TraceLogger
	src       replaylib.HistorySource
	ctl       *replaylib.Controller
	notify    Notifier
	scheduler *scheduler.Scheduler
}

// NewApi creates the session controller over src. The controller's logger,
// renderer and handlers are owned by the Api; the remaining opts are kept.
func NewApi(ctx context.Context, l logger.Logger, src replaylib.HistorySource, opts *replaylib.ControllerOpts, n Notifier) (*Api, error) {
	if src == nil {
		return nil, errors.New("history source is required")
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	if n == nil {
		n = nopNotifier{}
	}
	var o replaylib.ControllerOpts
	if opts != nil {
		o = *opts
	}
	s := &Api{
		log:    logger.NewTraceLogger(l, logger.DefaultRingSize),
		src:    src,
		notify: n,
	}
	o.Logger = s.log
	o.Renderer = replaylib.RendererFunc(s.show)
	o.Handlers = &replaylib.Handlers{
		CountdownHandler: s.countdown,
		StateHandler:     s.state,
		ErrorHandler:     s.sourceError,
	}
	s.ctl = replaylib.NewController(ctx, src, &o)
	return s, nil
}

// SetScheduler attaches the autoplay scheduler listed by schedule.list.
func (s *Api) SetScheduler(sch *scheduler.Scheduler) {
	s.scheduler = sch
}

func (s *Api) RegisterHandlers(srv *server.Server) {
	srv.RegisterHandler(common.MethodStart, handler.New(s.replayStart))
	srv.RegisterHandler(common.MethodStop, handler.New(s.command(s.ctl.Stop)))
	srv.RegisterHandler(common.MethodStepForward, handler.New(s.command(s.ctl.StepForward)))
	srv.RegisterHandler(common.MethodStepBackward, handler.New(s.command(s.ctl.StepBackward)))
	srv.RegisterHandler(common.MethodFastForward, handler.New(s.command(s.ctl.FastForward)))
	srv.RegisterHandler(common.MethodFastBackward, handler.New(s.command(s.ctl.FastBackward)))
	srv.RegisterHandler(common.MethodReset, handler.New(s.command(s.ctl.Reset)))
	srv.RegisterHandler(common.MethodReconnect, handler.New(s.command(s.ctl.Reconnect)))
	srv.RegisterHandler(common.MethodStatus, handler.New(s.replayStatus))
	srv.RegisterHandler(common.MethodLog, handler.New(s.replayLog))

	srv.RegisterHandler(common.MethodCount, handler.New(s.historyCount))
	srv.RegisterHandler(common.MethodGet, handler.New(s.historyGet))
	srv.RegisterHandler(common.MethodFind, handler.New(s.historyFind))

	srv.RegisterHandler(common.MethodSchedules, handler.New(s.scheduleList))
}

// Logger returns the session logger, which also feeds replay.log.
func (s *Api) Logger() logger.Logger {
	return s.log
}

func (s *Api) Controller() *replaylib.Controller {
	return s.ctl
}

// Close ends the session. The base logger passed to NewApi stays open.
func (s *Api) Close() error {
	err := s.ctl.Close()
	s.log.Close()
	return err
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, any) {}
