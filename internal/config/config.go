// Package config loads the rewind configuration file.
//
// The file is YAML. Every field is optional; missing values keep the
// defaults returned by Default. A few settings can also be overridden
// from the environment (see common/env.go).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rewindhq/rewind/common"
	"github.com/rewindhq/rewind/pkg/replaylib"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	FileName        = "config.yaml"
	DefaultPort     = 8080
	DefaultMaxConns = 64
)

type Config struct {
	Server    ServerConfig  `yaml:"server"`
	History   HistoryConfig `yaml:"history"`
	Replay    ReplayConfig  `yaml:"replay"`
	Schedules []Schedule    `yaml:"schedules"`
}

type ServerConfig struct {
	// Listen is the host:port of the HTTP and RPC server.
	Listen string `yaml:"listen"`
	// ListenAll binds every interface instead of loopback.
	ListenAll bool `yaml:"listen_all"`
	// MaxConns caps concurrent connections. Zero disables the cap.
	MaxConns  int    `yaml:"max_conns"`
	RPCSecret string `yaml:"rpc_secret"`
}

type HistoryConfig struct {
	DBPath     string `yaml:"db_path"`
	FindPolicy string `yaml:"find_policy"`
	// SeedDemo fills an empty database with the demo timeline.
	SeedDemo bool `yaml:"seed_demo"`
}

type ReplayConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	DisablePolling bool          `yaml:"disable_polling"`
	DueThreshold   time.Duration `yaml:"due_threshold"`
	CountdownTick  time.Duration `yaml:"countdown_tick"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	PrefetchDelay  time.Duration `yaml:"prefetch_delay"`
	Anchor         string        `yaml:"anchor"`
	// SourceURL is the history server the terminal player talks to.
	SourceURL string `yaml:"source_url"`
}

// Schedule starts playback whenever Cron fires. From, when set, is an
// RFC 3339 instant playback starts at instead of the first event.
type Schedule struct {
	Name string `yaml:"name"`
	Cron string `yaml:"cron"`
	From string `yaml:"from"`
}

// Dir returns the directory holding the config file and database.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".rewind"
	}
	return filepath.Join(base, "rewind")
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:   fmt.Sprintf("127.0.0.1:%d", DefaultPort),
			MaxConns: DefaultMaxConns,
		},
		History: HistoryConfig{
			DBPath:     filepath.Join(Dir(), "history.db"),
			FindPolicy: replaylib.FindStrict.String(),
		},
		Replay: ReplayConfig{
			PollInterval:  replaylib.DefaultPollInterval,
			DueThreshold:  replaylib.DefaultDueThreshold,
			CountdownTick: replaylib.DefaultCountdownTick,
			FetchTimeout:  replaylib.DefaultFetchTimeout,
			Anchor:        replaylib.AnchorAbsolute.String(),
			SourceURL:     fmt.Sprintf("http://127.0.0.1:%d", DefaultPort),
		},
	}
}

// Load reads the config at path. An empty path falls back to
// $REWIND_CONFIG and then to Dir()/config.yaml; a missing default file
// is not an error, a missing explicit one is.
func Load(afs afero.Fs, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(common.ConfigEnv)
		explicit = path != ""
	}
	if !explicit {
		path = filepath.Join(Dir(), FileName)
	}
	cfg := Default()
	data, err := afero.ReadFile(afs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error: parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("error: reading config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if s := os.Getenv(common.RPCSecretEnv); s != "" {
		c.Server.RPCSecret = s
	}
}

// Save writes c as YAML to path, creating its directory.
func (c *Config) Save(afs afero.Fs, path string) error {
	if err := afs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return afero.WriteFile(afs, path, data, 0600)
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}
	if c.Server.MaxConns < 0 {
		return errors.New("server.max_conns must not be negative")
	}
	if _, err := replaylib.ParseFindPolicy(c.History.FindPolicy); err != nil {
		return fmt.Errorf("history.find_policy: %w", err)
	}
	if _, err := replaylib.ParseAnchorMode(c.Replay.Anchor); err != nil {
		return fmt.Errorf("replay.anchor: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"poll_interval":  c.Replay.PollInterval,
		"due_threshold":  c.Replay.DueThreshold,
		"countdown_tick": c.Replay.CountdownTick,
		"fetch_timeout":  c.Replay.FetchTimeout,
		"prefetch_delay": c.Replay.PrefetchDelay,
	} {
		if d < 0 {
			return fmt.Errorf("replay.%s must not be negative", name)
		}
	}
	seen := make(map[string]bool, len(c.Schedules))
	for i, s := range c.Schedules {
		if s.Name == "" {
			return fmt.Errorf("schedules[%d]: name required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("schedules[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if !gronx.IsValid(s.Cron) {
			return fmt.Errorf("schedules[%d]: invalid cron expression %q", i, s.Cron)
		}
		if _, err := s.StartAt(); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
	}
	return nil
}

// ListenAddr returns the address to bind, honoring ListenAll.
func (s ServerConfig) ListenAddr() string {
	if !s.ListenAll {
		return s.Listen
	}
	_, port, err := net.SplitHostPort(s.Listen)
	if err != nil {
		return s.Listen
	}
	return net.JoinHostPort("", port)
}

// StartAt parses From. A nil time means the first event.
func (s Schedule) StartAt() (*time.Time, error) {
	if s.From == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from %q: %w", s.From, err)
	}
	return &t, nil
}

// ControllerOpts maps the replay section onto controller options.
func (r ReplayConfig) ControllerOpts() (*replaylib.ControllerOpts, error) {
	anchor, err := replaylib.ParseAnchorMode(r.Anchor)
	if err != nil {
		return nil, err
	}
	return &replaylib.ControllerOpts{
		DueThreshold:   r.DueThreshold,
		CountdownTick:  r.CountdownTick,
		PollInterval:   r.PollInterval,
		DisablePolling: r.DisablePolling,
		FetchTimeout:   r.FetchTimeout,
		PrefetchDelay:  r.PrefetchDelay,
		Anchor:         anchor,
	}, nil
}
