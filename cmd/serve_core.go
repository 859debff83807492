package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rewindhq/rewind/internal/api"
	"github.com/rewindhq/rewind/internal/config"
	"github.com/rewindhq/rewind/internal/history"
	"github.com/rewindhq/rewind/internal/scheduler"
	"github.com/rewindhq/rewind/internal/server"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// ServeComponents holds everything "rewind serve" runs, so setup and
// teardown happen in one place.
type ServeComponents struct {
	Store     *history.Store
	Api       *api.Api
	Server    *server.Server
	Scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
	logger    logger.Logger
}

// Close releases the components in reverse order of initialization.
func (c *ServeComponents) Close() {
	c.logger.Info("Shutting down server...")

	// stops the scheduler goroutine
	if c.cancel != nil {
		c.cancel()
	}
	if c.Api != nil {
		_ = c.Api.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}

	c.logger.Info("Server stopped")
}

// openStore opens the history database named by cfg, creating its
// directory.
func openStore(cfg *config.Config) (*history.Store, error) {
	policy, err := replaylib.ParseFindPolicy(cfg.History.FindPolicy)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("error: cannot create database directory: %w", err)
	}
	return history.Open(cfg.History.DBPath, policy)
}

// initServeComponents wires the store, session, RPC server and
// scheduler. On error, anything already opened is closed.
var initServeComponents = func(ctx context.Context, log logger.Logger, cfg *config.Config, token string) (*ServeComponents, error) {
	store, err := openStore(cfg)
	if err != nil {
		log.Error("History store initialization failed: %v", err)
		return nil, err
	}

	if cfg.History.SeedDemo {
		n, err := store.Count(ctx)
		if err == nil && n == 0 {
			n, err = store.Seed(ctx, time.Now())
			if err != nil {
				log.Error("Demo seeding failed: %v", err)
				store.Close()
				return nil, err
			}
			log.Info("Seeded %d demo events", n)
		}
	}

	opts, err := cfg.Replay.ControllerOpts()
	if err != nil {
		store.Close()
		return nil, err
	}
	events, err := scheduler.LoadSchedules(cfg.Schedules, time.Now())
	if err != nil {
		store.Close()
		return nil, err
	}

	serv := server.NewServer(log, &server.Config{
		Secret:    token,
		Routes:    history.NewHandler(store, log).Register,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	})

	sctx, cancel := context.WithCancel(ctx)
	s, err := api.NewApi(sctx, log, store, opts, serv.Notifier())
	if err != nil {
		log.Error("API initialization failed: %v", err)
		cancel()
		store.Close()
		return nil, err
	}
	s.RegisterHandlers(serv)

	sch := scheduler.New(sctx, s.OnSchedule)
	for _, e := range events {
		sch.Add(e)
		log.Info("Schedule %q armed for %s", e.Name, e.TriggerAt.Format(time.RFC3339))
	}
	s.SetScheduler(sch)

	return &ServeComponents{
		Store:     store,
		Api:       s,
		Server:    serv,
		Scheduler: sch,
		cancel:    cancel,
		logger:    log,
	}, nil
}
