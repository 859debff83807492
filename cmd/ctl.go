package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rewindhq/rewind/cmd/common"
	rcommon "github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/replaycli"
	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/urfave/cli"
)

// ctlTimeout bounds one ctl round trip.
const ctlTimeout = 15 * time.Second

var (
	ctlAt    string
	ctlLimit int

	ctlStartFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "at, a",
			Usage:       "start at this time: RFC 3339, epoch ms or an offset like -5m (default: first event)",
			Destination: &ctlAt,
		},
	}
	ctlLogFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of trace lines to print, 0 for all (default: 50)",
			Value:       50,
			Destination: &ctlLimit,
		},
	}
)

type sessionCall func(c *replaycli.Client, ctx context.Context) (*rcommon.StatusResult, error)

var ctlCommands = []cli.Command{
	ctlCommand("start", "start playback", ctlStart, ctlStartFlags...),
	ctlCommand("stop", "stop playback at the current event", (*replaycli.Client).Stop),
	ctlCommand("next", "step to the next event", (*replaycli.Client).StepForward),
	ctlCommand("prev", "step to the previous event and play in reverse", (*replaycli.Client).StepBackward),
	ctlCommand("ffwd", "skip one event forward", (*replaycli.Client).FastForward),
	ctlCommand("frew", "skip one event backward", (*replaycli.Client).FastBackward),
	ctlCommand("reset", "return the session to idle", (*replaycli.Client).Reset),
	ctlCommand("reconnect", "resample the server clock", (*replaycli.Client).Reconnect),
	ctlCommand("status", "print the session state", (*replaycli.Client).Status),
	{
		Name:               "log",
		Usage:              "print the session trace",
		CustomHelpTemplate: CMD_HELP_TEMPL,
		OnUsageError:       common.UsageErrorCallback,
		Action:             ctlLog,
		Flags:              ctlLogFlags,
	},
	{
		Name:               "schedules",
		Usage:              "list pending autoplay schedules",
		CustomHelpTemplate: CMD_HELP_TEMPL,
		OnUsageError:       common.UsageErrorCallback,
		Action:             ctlSchedules,
	},
}

func ctlStart(c *replaycli.Client, ctx context.Context) (*rcommon.StatusResult, error) {
	at, err := parseWhen(ctlAt, time.Now())
	if err != nil {
		return nil, err
	}
	return c.Start(ctx, at)
}

func ctlCommand(name, usage string, call sessionCall, flags ...cli.Flag) cli.Command {
	return cli.Command{
		Name:               name,
		Usage:              usage,
		CustomHelpTemplate: CMD_HELP_TEMPL,
		OnUsageError:       common.UsageErrorCallback,
		Flags:              flags,
		Action: func(ctx *cli.Context) error {
			client, err := ctlClient(ctx)
			if err != nil {
				return nil
			}
			defer client.Close()
			rctx, cancel := context.WithTimeout(context.Background(), ctlTimeout)
			defer cancel()
			st, err := call(client, rctx)
			if err != nil {
				common.PrintRuntimeErr(ctx, "ctl", name, err)
				return nil
			}
			printStatus(os.Stdout, st)
			return nil
		},
	}
}

// ctlClient connects to the configured server, reporting failures itself.
func ctlClient(ctx *cli.Context) (*replaycli.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "ctl", "load_config", err)
		return nil, err
	}
	client, err := newRPCClient(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "ctl", "new_client", err)
		return nil, err
	}
	vctx, cancel := context.WithTimeout(context.Background(), ctlTimeout)
	defer cancel()
	client.CheckVersionMismatch(vctx, os.Stderr, currentBuildArgs.Version)
	return client, nil
}

func ctlLog(ctx *cli.Context) error {
	client, err := ctlClient(ctx)
	if err != nil {
		return nil
	}
	defer client.Close()
	rctx, cancel := context.WithTimeout(context.Background(), ctlTimeout)
	defer cancel()
	lines, err := client.Log(rctx, ctlLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "ctl", "log", err)
		return nil
	}
	if len(lines) == 0 {
		fmt.Println("rewind: trace is empty")
		return nil
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func ctlSchedules(ctx *cli.Context) error {
	client, err := ctlClient(ctx)
	if err != nil {
		return nil
	}
	defer client.Close()
	rctx, cancel := context.WithTimeout(context.Background(), ctlTimeout)
	defer cancel()
	items, err := client.Schedules(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "ctl", "schedules", err)
		return nil
	}
	printSchedules(os.Stdout, items)
	return nil
}

func printStatus(w io.Writer, s *rcommon.StatusResult) {
	fmt.Fprintf(w, "Session:   %s\n", s.SessionID)
	mode := s.Mode.String()
	if s.Mode == replaylib.ModeStopped && s.Reason.Kind != replaylib.StopNone {
		mode += " (" + s.Reason.String() + ")"
	}
	fmt.Fprintf(w, "Mode:      %s\n", mode)
	pos := "none"
	if s.CurrentIndex >= 0 {
		pos = fmt.Sprintf("%d", s.CurrentIndex)
	}
	switch {
	case s.Count >= 0:
		pos += fmt.Sprintf(" of %d", s.Count)
	case s.MinCount > 0:
		pos += fmt.Sprintf(" of at least %d", s.MinCount)
	}
	fmt.Fprintf(w, "Position:  %s, %s\n", pos, s.Direction)
	if s.Buffered >= 0 {
		fmt.Fprintf(w, "Next:      #%d in %s\n", s.Buffered, common.FormatRemaining(time.Duration(s.CountdownMs)*time.Millisecond))
	}
	if s.Reconciled {
		fmt.Fprintf(w, "Offset:    %+dms\n", s.OffsetMs)
	} else {
		fmt.Fprintln(w, "Offset:    not sampled")
	}
	if s.Drops > 0 {
		fmt.Fprintf(w, "Dropped:   %d buffered events\n", s.Drops)
	}
}

func printSchedules(w io.Writer, items []rcommon.ScheduleItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "rewind: no schedules pending")
		return
	}
	txt := "Pending schedules:"
	txt += "\n\n--------------------------------------------------------------"
	txt += "\n|" + common.Beaut("Name", 16) + "|" + common.Beaut("Next run", 22) + "|" + common.Beaut("Cron", 20) + "|"
	txt += "\n|----------------|----------------------|--------------------|"
	for _, it := range items {
		next := time.UnixMilli(it.NextEpochMs).Local().Format("2006-01-02 15:04:05")
		txt += "\n|" + fit(it.Name, 16) + "|" + fit(next, 22) + "|" + fit(it.Cron, 20) + "|"
	}
	txt += "\n--------------------------------------------------------------"
	fmt.Fprintln(w, txt)
}

// fit centers s in n columns, eliding the tail when it is too long.
func fit(s string, n int) string {
	if len(s) > n {
		s = s[:n-2] + ".."
	}
	return common.Beaut(s, n)
}

// statusLine is the one-line form used by watch.
func statusLine(s *rcommon.StatusResult) string {
	parts := []string{s.Mode.String()}
	if s.CurrentIndex >= 0 {
		parts = append(parts, fmt.Sprintf("at #%d", s.CurrentIndex))
	}
	if s.Mode == replaylib.ModeStopped && s.Reason.Kind != replaylib.StopNone {
		parts = append(parts, s.Reason.String())
	}
	return strings.Join(parts, ", ")
}
