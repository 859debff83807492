package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/rewindhq/rewind/internal/config"
)

func TestExecuteVersion(t *testing.T) {
	useTestConfig(t, "")
	out := run(t, "version")
	if !strings.Contains(out, "rewind v-test-test") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestExecuteHelp(t *testing.T) {
	useTestConfig(t, "")
	out := run(t, "help")
	if !strings.Contains(out, "rewind") {
		t.Fatalf("expected app name in help output: %q", out)
	}
}

func TestExecuteCommandHelp(t *testing.T) {
	useTestConfig(t, "")
	out := run(t, "help", "play")
	if !strings.Contains(out, "rewind play --from") {
		t.Fatalf("expected play examples in help: %q", out)
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
		none bool
		bad  bool
	}{
		{in: "", none: true},
		{in: "   ", none: true},
		{in: "2024-05-01T09:30:00Z", want: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)},
		{in: "1714555800000", want: time.UnixMilli(1714555800000)},
		{in: "-5m", want: now.Add(-5 * time.Minute)},
		{in: "+90s", want: now.Add(90 * time.Second)},
		{in: "5m", bad: true},
		{in: "yesterday", bad: true},
	}
	for _, tt := range tests {
		got, err := parseWhen(tt.in, now)
		switch {
		case tt.bad:
			if err == nil {
				t.Errorf("parseWhen(%q): expected error", tt.in)
			}
		case err != nil:
			t.Errorf("parseWhen(%q): %v", tt.in, err)
		case tt.none:
			if got != nil {
				t.Errorf("parseWhen(%q) = %v, want nil", tt.in, got)
			}
		case got == nil || !got.Equal(tt.want):
			t.Errorf("parseWhen(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"0.0.0.0:9000", "http://127.0.0.1:9000"},
		{":9000", "http://127.0.0.1:9000"},
		{"[::]:9000", "http://127.0.0.1:9000"},
		{"example.com:80", "http://example.com:80"},
	}
	t.Setenv("REWIND_SERVER", "")
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Server.Listen = tt.listen
		if got := serverURL(cfg); got != tt.want {
			t.Errorf("serverURL(%q) = %q, want %q", tt.listen, got, tt.want)
		}
	}
}

func TestServerURLFromEnv(t *testing.T) {
	t.Setenv("REWIND_SERVER", "http://replay.internal:8080/")
	if got := serverURL(config.Default()); got != "http://replay.internal:8080" {
		t.Fatalf("serverURL = %q", got)
	}
}

func TestRPCTokenPrefersConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RPCSecret = "from-config"
	tok, err := rpcToken(cfg)
	if err != nil || tok != "from-config" {
		t.Fatalf("rpcToken = %q, %v", tok, err)
	}
}
