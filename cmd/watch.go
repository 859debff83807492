package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewindhq/rewind/cmd/common"
	rcommon "github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/config"
	"github.com/rewindhq/rewind/pkg/replaycli"
	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/urfave/cli"
)

// watchHandlers routes push notifications into view. State changes that
// are not stops are written to out as one line each.
func watchHandlers(view *consoleView, out io.Writer) *replaycli.Handlers {
	return &replaycli.Handlers{
		OnShow: func(n *rcommon.ShowNotification) {
			view.show(n.Frame)
		},
		OnCountdown: func(n *rcommon.CountdownNotification) {
			view.countdown(time.Duration(n.RemainingMs) * time.Millisecond)
		},
		OnState: func(s *rcommon.StatusResult) {
			if s.Mode != replaylib.ModeStopped {
				fmt.Fprintln(out, statusLine(s))
			}
			view.state(*s)
		},
		OnError: func(method string, err error) {
			fmt.Fprintf(out, "bad %s notification: %v\n", method, err)
		},
	}
}

var dialWatch = func(ctx context.Context, cfg *config.Config, h *replaycli.Handlers) (*replaycli.Client, error) {
	tok, err := rpcToken(cfg)
	if err != nil {
		return nil, err
	}
	return replaycli.DialWS(ctx, serverURL(cfg), tok, h)
}

func watch(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "load_config", err)
		return nil
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	view := newConsoleView(os.Stdout)
	defer view.Close()

	dctx, cancel := context.WithTimeout(sigCtx, ctlTimeout)
	client, err := dialWatch(dctx, cfg, watchHandlers(view, os.Stderr))
	cancel()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "dial", err)
		return nil
	}
	defer client.Close()

	sctx, cancel := context.WithTimeout(sigCtx, ctlTimeout)
	st, err := client.Status(sctx)
	cancel()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "status", err)
		return nil
	}
	fmt.Printf("Watching session %s on %s: %s\n", st.SessionID, serverURL(cfg), statusLine(st))

	select {
	case <-sigCtx.Done():
	case <-client.Done():
		fmt.Println("rewind: server closed the connection")
	}
	return nil
}
