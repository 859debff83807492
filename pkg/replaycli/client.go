// Package replaycli is a client for the rewind JSON-RPC API.
package replaycli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/rewindhq/rewind/common"
)

// Client invokes session methods on a rewind server. Clients made with
// DialWS also receive push notifications.
type Client struct {
	mu  sync.Mutex
	rpc *jrpc2.Client
	ws  *wsChannel
}

// authClient adds the bearer token to every request.
type authClient struct {
	hc    *http.Client
	token string
}

func (a authClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+a.token)
	return a.hc.Do(req)
}

// NewClient returns a Client speaking JSON-RPC over plain HTTP POSTs to
// baseURL. A nil hc uses http.DefaultClient.
func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	ch := jhttp.NewChannel(strings.TrimRight(baseURL, "/")+common.RPCPath, &jhttp.ChannelOptions{
		Client: authClient{hc: hc, token: token},
	})
	return &Client{rpc: jrpc2.NewClient(ch, nil)}
}

// DialWS opens the WebSocket channel at baseURL. h receives the server's
// push notifications on the client's reader goroutine.
func DialWS(ctx context.Context, baseURL, token string, h *Handlers) (*Client, error) {
	u := strings.TrimRight(baseURL, "/") + common.RPCWSPath
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	conn, _, err := cws.Dial(ctx, u, &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + token}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u, err)
	}
	ch := &wsChannel{conn: conn, ctx: context.Background(), done: make(chan struct{})}
	opts := &jrpc2.ClientOptions{}
	if h != nil {
		opts.OnNotify = h.dispatch
	}
	return &Client{rpc: jrpc2.NewClient(ch, opts), ws: ch}, nil
}

func (c *Client) invoke(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	rpc := c.rpc
	c.mu.Unlock()
	if rpc == nil {
		return fmt.Errorf("failed to invoke %s: client closed", method)
	}
	if err := rpc.CallResult(ctx, method, params, out); err != nil {
		return fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	c.rpc = nil
	return err
}

// Done is closed when a WebSocket client's connection ends. It is nil
// for HTTP clients.
func (c *Client) Done() <-chan struct{} {
	if c.ws == nil {
		return nil
	}
	return c.ws.done
}

type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
	once sync.Once
	done chan struct{}
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		c.once.Do(func() { close(c.done) })
	}
	return data, err
}

func (c *wsChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close(cws.StatusNormalClosure, "")
}
