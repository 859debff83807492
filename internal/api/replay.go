package api

import (
	"context"
	"time"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/server"
)

// Start begins playback at the first event, or at the event due at or
// after at.
func (s *Api) Start(ctx context.Context, at *time.Time) error {
	if at == nil {
		return s.ctl.Start(ctx)
	}
	return s.ctl.StartAt(ctx, *at)
}

func (s *Api) replayStart(ctx context.Context, p *common.StartParams) (*common.StatusResult, error) {
	var at *time.Time
	if p != nil && p.AtEpochMs != nil {
		if *p.AtEpochMs < 0 {
			return nil, server.InvalidParams("atEpochMs must not be negative")
		}
		t := time.UnixMilli(*p.AtEpochMs)
		at = &t
	}
	if err := s.Start(ctx, at); err != nil {
		return nil, server.RPCError(err)
	}
	return s.status(ctx)
}

// command adapts a parameterless controller command to an RPC method
// answering with the resulting status.
func (s *Api) command(fn func(context.Context) error) func(context.Context) (*common.StatusResult, error) {
	return func(ctx context.Context) (*common.StatusResult, error) {
		if err := fn(ctx); err != nil {
			return nil, server.RPCError(err)
		}
		return s.status(ctx)
	}
}

func (s *Api) replayStatus(ctx context.Context) (*common.StatusResult, error) {
	return s.status(ctx)
}

func (s *Api) status(ctx context.Context) (*common.StatusResult, error) {
	snap, err := s.ctl.Snapshot(ctx)
	if err != nil {
		return nil, server.RPCError(err)
	}
	return &snap, nil
}

func (s *Api) replayLog(_ context.Context, p *common.LogParams) (*common.LogResult, error) {
	limit := 0
	if p != nil {
		if p.Limit < 0 {
			return nil, server.InvalidParams("limit must not be negative")
		}
		limit = p.Limit
	}
	return &common.LogResult{Lines: s.log.Lines(limit)}, nil
}
