package api

import (
	"context"
	"time"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/server"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

func (s *Api) historyCount(ctx context.Context) (*common.CountResult, error) {
	n, err := s.src.Count(ctx)
	if err != nil {
		return nil, server.RPCError(err)
	}
	return &common.CountResult{Count: n}, nil
}

func (s *Api) historyGet(ctx context.Context, p *common.IndexParams) (*replaylib.TimelineEvent, error) {
	if p == nil || p.Index < 0 {
		return nil, server.InvalidParams("index must not be negative")
	}
	ev, err := s.src.Fetch(ctx, p.Index)
	if err != nil {
		return nil, server.RPCError(err)
	}
	return ev, nil
}

func (s *Api) historyFind(ctx context.Context, p *common.FindParams) (*common.FindResult, error) {
	if p == nil {
		return nil, server.InvalidParams("atOrAfterEpochMs required")
	}
	idx, err := s.src.FindIndexAtOrAfter(ctx, time.UnixMilli(p.AtOrAfterEpochMs))
	if err != nil {
		return nil, server.RPCError(err)
	}
	return &common.FindResult{Index: idx}, nil
}
