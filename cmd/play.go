package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/pkg/historyhttp"
	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/urfave/cli"
)

var (
	playFrom     string
	playURL      string
	playRelative bool

	playFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "from, f",
			Usage:       "start at this time: RFC 3339, epoch ms or an offset like -5m (default: first event)",
			Destination: &playFrom,
		},
		cli.StringFlag{
			Name:        "url, u",
			Usage:       "history server base URL (default: replay.source_url from the config)",
			Destination: &playURL,
		},
		cli.BoolFlag{
			Name:        "relative, r",
			Usage:       "show the first event at once and keep the recorded spacing after it (default: false)",
			Destination: &playRelative,
		},
	}
)

const keysHelp = "keys: p play, s stop, n next, b prev, N skip, B back, r reset, q quit (then enter)"

// transport is the playback surface the key loop drives.
type transport interface {
	Start(ctx context.Context) error
	StartAt(ctx context.Context, at time.Time) error
	Stop(ctx context.Context) error
	StepForward(ctx context.Context) error
	StepBackward(ctx context.Context) error
	FastForward(ctx context.Context) error
	FastBackward(ctx context.Context) error
	Reset(ctx context.Context) error
}

// player maps keys onto a transport. Play restarts at from when set.
type player struct {
	t    transport
	from *time.Time
	out  io.Writer
}

func (p *player) start(ctx context.Context) error {
	if p.from != nil {
		return p.t.StartAt(ctx, *p.from)
	}
	return p.t.Start(ctx)
}

func (p *player) bindings() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"p": p.start,
		"s": p.t.Stop,
		"n": p.t.StepForward,
		"b": p.t.StepBackward,
		"N": p.t.FastForward,
		"B": p.t.FastBackward,
		"r": p.t.Reset,
	}
}

// run reads one key per line from in until "q", EOF or ctx is done.
// Command errors are printed; only a closed controller ends the loop.
func (p *player) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	keys := p.bindings()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			key := strings.TrimSpace(line)
			switch key {
			case "":
				continue
			case "q":
				return nil
			}
			fn, found := keys[key]
			if !found {
				fmt.Fprintf(p.out, "unknown key %q\n%s\n", key, keysHelp)
				continue
			}
			if err := fn(ctx); err != nil {
				if errors.Is(err, replaylib.ErrClosed) {
					return err
				}
				fmt.Fprintf(p.out, "error: %v\n", err)
			}
		}
	}
}

func play(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "play", "load_config", err)
		return nil
	}
	from, err := parseWhen(playFrom, time.Now())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	opts, err := cfg.Replay.ControllerOpts()
	if err != nil {
		common.PrintRuntimeErr(ctx, "play", "controller_opts", err)
		return nil
	}
	if playRelative {
		opts.Anchor = replaylib.AnchorRelative
	}
	url := cfg.Replay.SourceURL
	if playURL != "" {
		url = playURL
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = replaylib.DefaultFetchTimeout
	}
	src := historyhttp.New(url, &http.Client{Timeout: timeout + time.Second})

	view := newConsoleView(os.Stdout)
	opts.Logger = newLogger(false)
	opts.Renderer = replaylib.RendererFunc(view.show)
	opts.Handlers = &replaylib.Handlers{
		CountdownHandler: view.countdown,
		StateHandler:     view.state,
		ErrorHandler:     view.sourceError,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctl := replaylib.NewController(sigCtx, src, opts)
	defer view.Close()
	defer ctl.Close()

	fmt.Printf("Replaying %s\n%s\n", url, keysHelp)
	p := &player{t: ctl, from: from, out: os.Stdout}
	if err := p.start(sigCtx); err != nil {
		common.PrintRuntimeErr(ctx, "play", "start", err)
		return nil
	}
	if err := p.run(sigCtx, os.Stdin); err != nil {
		common.PrintRuntimeErr(ctx, "play", "keys", err)
	}
	return nil
}
