package cmd

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/internal/config"
	"github.com/rewindhq/rewind/internal/secret"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaycli"
	"github.com/spf13/afero"
)

// appFs is the filesystem for the config file, import files and the
// token fallback. Tests swap in a MemMapFs.
var appFs afero.Fs = afero.NewOsFs()

var loadConfig = func() (*config.Config, error) {
	return config.Load(appFs, configPath)
}

// rpcToken returns the configured secret, or the one kept by the secret
// store.
func rpcToken(cfg *config.Config) (string, error) {
	if cfg.Server.RPCSecret != "" {
		return cfg.Server.RPCSecret, nil
	}
	return secret.NewStore(appFs, config.Dir()).Token()
}

// serverURL is the base URL ctl and watch talk to. A wildcard listen
// host is reached over loopback.
func serverURL(cfg *config.Config) string {
	if u := os.Getenv(common.ServerEnv); u != "" {
		return strings.TrimRight(u, "/")
	}
	host, port, err := net.SplitHostPort(cfg.Server.Listen)
	if err != nil {
		return "http://" + cfg.Server.Listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

var newRPCClient = func(cfg *config.Config) (*replaycli.Client, error) {
	tok, err := rpcToken(cfg)
	if err != nil {
		return nil, err
	}
	return replaycli.NewClient(serverURL(cfg), tok, nil), nil
}

// newLogger writes to stderr. Info lines are dropped unless debug is
// set or verbose is requested.
func newLogger(verbose bool) *logger.StandardLogger {
	l := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	l.Quiet = !verbose && os.Getenv(common.DebugEnv) != "1"
	return l
}

// parseWhen parses a playback target. It accepts RFC 3339 instants,
// epoch milliseconds and durations relative to now such as "-5m".
// An empty string means the first event.
func parseWhen(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		t := time.UnixMilli(ms)
		return &t, nil
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		if d, err := time.ParseDuration(s); err == nil {
			t := now.Add(d)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse time %q: want RFC 3339, epoch milliseconds or an offset like -5m", s)
}
