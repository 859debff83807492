package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaycli"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

const (
	testConfigPath = "/rewind.yaml"
	testSecret     = "cmd-test-secret"
)

func TestMain(m *testing.M) {
	common.SetShowAppHelpAndExit(func(*cli.Context, int) {})
	os.Setenv(replaycli.VersionCheckEnv, "1")
	os.Exit(m.Run())
}

// syncBuffer is written by mpb's render goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// useTestConfig points loadConfig at an in-memory config file whose
// database lives in a temp dir. extra is appended to the YAML.
func useTestConfig(t *testing.T, extra string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	oldFs, oldPath := appFs, configPath
	appFs = fs
	configPath = testConfigPath
	t.Cleanup(func() {
		appFs = oldFs
		configPath = oldPath
	})
	db := filepath.Join(t.TempDir(), "data", "history.db")
	yml := fmt.Sprintf("server:\n  rpc_secret: %s\nhistory:\n  db_path: %q\n%s", testSecret, db, extra)
	if err := afero.WriteFile(fs, testConfigPath, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

// captureStdout runs fn with os.Stdout redirected and returns the output.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	old := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()
	defer func() { os.Stdout = old }()
	fn()
	w.Close()
	os.Stdout = old
	return <-done
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	return captureStdout(t, func() {
		argv := append([]string{"rewind", "--config", testConfigPath}, args...)
		if err := Execute(argv, BuildArgs{Version: "v-test", BuildType: "test"}); err != nil {
			t.Errorf("Execute(%v): %v", args, err)
		}
	})
}

// startTestServer runs the serve components behind httptest and points
// ctl and watch at it.
func startTestServer(t *testing.T, extra string) (*ServeComponents, *httptest.Server) {
	t.Helper()
	useTestConfig(t, "  seed_demo: true\n"+extra)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	comps, err := initServeComponents(ctx, logger.NewMockLogger(), cfg, cfg.Server.RPCSecret)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	go comps.Server.Notifier().Run(ctx)
	ts := httptest.NewServer(comps.Server.Handler())
	t.Setenv("REWIND_SERVER", ts.URL)
	t.Cleanup(func() {
		ts.Close()
		comps.Close()
		cancel()
	})
	return comps, ts
}
