package replaycli

import (
	"context"
	"time"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.invoke(ctx, method, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.MethodVersion, nil)
}

// Start begins playback at the first event, or at the event due at or
// after at when at is non-nil.
func (c *Client) Start(ctx context.Context, at *time.Time) (*common.StatusResult, error) {
	p := &common.StartParams{}
	if at != nil {
		ms := at.UnixMilli()
		p.AtEpochMs = &ms
	}
	return invoke[common.StatusResult](ctx, c, common.MethodStart, p)
}

func (c *Client) Stop(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodStop, nil)
}

func (c *Client) StepForward(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodStepForward, nil)
}

func (c *Client) StepBackward(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodStepBackward, nil)
}

func (c *Client) FastForward(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodFastForward, nil)
}

func (c *Client) FastBackward(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodFastBackward, nil)
}

func (c *Client) Reset(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodReset, nil)
}

func (c *Client) Reconnect(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodReconnect, nil)
}

func (c *Client) Status(ctx context.Context) (*common.StatusResult, error) {
	return invoke[common.StatusResult](ctx, c, common.MethodStatus, nil)
}

// Log returns up to limit recent session log lines; zero means all.
func (c *Client) Log(ctx context.Context, limit int) ([]string, error) {
	res, err := invoke[common.LogResult](ctx, c, common.MethodLog, &common.LogParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Lines, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	res, err := invoke[common.CountResult](ctx, c, common.MethodCount, nil)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (c *Client) Get(ctx context.Context, index int) (*replaylib.TimelineEvent, error) {
	return invoke[replaylib.TimelineEvent](ctx, c, common.MethodGet, &common.IndexParams{Index: index})
}

func (c *Client) Find(ctx context.Context, at time.Time) (int, error) {
	res, err := invoke[common.FindResult](ctx, c, common.MethodFind, &common.FindParams{AtOrAfterEpochMs: at.UnixMilli()})
	if err != nil {
		return 0, err
	}
	return res.Index, nil
}

func (c *Client) Schedules(ctx context.Context) ([]common.ScheduleItem, error) {
	res, err := invoke[common.ScheduleResult](ctx, c, common.MethodSchedules, nil)
	if err != nil {
		return nil, err
	}
	return res.Schedules, nil
}
