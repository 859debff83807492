// Package historyhttp is a replaylib.HistorySource that talks to a history
// server over HTTP.
package historyhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rewindhq/rewind/pkg/replaylib"
)

// DefaultTimeout is used when no http.Client is supplied.
const DefaultTimeout = 5 * time.Second

// Client implements replaylib.HistorySource and replaylib.TimeSource.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: hc}
}

// event accepts both the current field names and the legacy ones
// (epochMs, url, nextEpochMs) older servers answer with.
type event struct {
	Index            *int   `json:"index"`
	ID               *int   `json:"id"`
	DueAtEpochMs     *int64 `json:"dueAtEpochMs"`
	EpochMs          *int64 `json:"epochMs"`
	Label            string `json:"label"`
	Target           string `json:"target"`
	URL              string `json:"url"`
	Action           string `json:"action"`
	NextDueAtEpochMs *int64 `json:"nextDueAtEpochMs"`
	NextEpochMs      *int64 `json:"nextEpochMs"`
}

func (e *event) toTimeline() (*replaylib.TimelineEvent, error) {
	idx := e.Index
	if idx == nil {
		idx = e.ID
	}
	due := e.DueAtEpochMs
	if due == nil {
		due = e.EpochMs
	}
	if idx == nil || due == nil {
		return nil, fmt.Errorf("%w: event without index or due time", replaylib.ErrMalformedResponse)
	}
	ev := &replaylib.TimelineEvent{
		Index:            *idx,
		DueAtEpochMs:     *due,
		Label:            e.Label,
		Target:           e.Target,
		Action:           e.Action,
		NextDueAtEpochMs: e.NextDueAtEpochMs,
	}
	if ev.Target == "" {
		ev.Target = e.URL
	}
	if ev.NextDueAtEpochMs == nil {
		ev.NextDueAtEpochMs = e.NextEpochMs
	}
	return ev, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var out struct {
		Count *int `json:"count"`
	}
	if err := c.get(ctx, "/api/history/count", nil, &out); err != nil {
		return 0, err
	}
	if out.Count == nil || *out.Count < 0 {
		return 0, fmt.Errorf("%w: count missing", replaylib.ErrMalformedResponse)
	}
	return *out.Count, nil
}

func (c *Client) Fetch(ctx context.Context, index int) (*replaylib.TimelineEvent, error) {
	var out event
	q := url.Values{"index": {strconv.Itoa(index)}}
	if err := c.get(ctx, "/api/history", q, &out); err != nil {
		return nil, err
	}
	return out.toTimeline()
}

func (c *Client) FindIndexAtOrAfter(ctx context.Context, remote time.Time) (int, error) {
	var out struct {
		Index *int `json:"index"`
	}
	q := url.Values{"atOrAfter": {strconv.FormatInt(remote.UnixMilli(), 10)}}
	if err := c.get(ctx, "/api/history/find", q, &out); err != nil {
		return 0, err
	}
	if out.Index == nil || *out.Index < 0 {
		return 0, fmt.Errorf("%w: index missing", replaylib.ErrMalformedResponse)
	}
	return *out.Index, nil
}

func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var out struct {
		EpochMs *int64 `json:"epochMs"`
		Now     string `json:"now"`
	}
	if err := c.get(ctx, "/api/time", nil, &out); err != nil {
		return time.Time{}, err
	}
	if out.EpochMs != nil {
		return time.UnixMilli(*out.EpochMs), nil
	}
	t, err := time.Parse(time.RFC3339Nano, out.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: server time %q", replaylib.ErrMalformedResponse, out.Now)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", replaylib.ErrMalformedResponse, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", replaylib.ErrUnreachable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", replaylib.ErrUnreachable, path, err)
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", replaylib.ErrMalformedResponse, path, err)
	}
	return nil
}

// statusError maps an HTTP status onto the replaylib error classes.
// Servers that answer an out-of-range index with 400 are treated as
// not-found.
func statusError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var e struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &e)
	msg := e.Error
	if msg == "" {
		msg = http.StatusText(code)
	}
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", replaylib.ErrNotFound, msg)
	case code == http.StatusBadRequest && strings.Contains(msg, "out of range"):
		return fmt.Errorf("%w: %s", replaylib.ErrNotFound, msg)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", replaylib.ErrUnreachable, code, msg)
	}
	return fmt.Errorf("%w: status %d: %s", replaylib.ErrMalformedResponse, code, msg)
}

// IsNotFound reports whether err is a not-found answer.
func IsNotFound(err error) bool {
	return errors.Is(err, replaylib.ErrNotFound)
}

var (
	_ replaylib.HistorySource = (*Client)(nil)
	_ replaylib.TimeSource    = (*Client)(nil)
)
