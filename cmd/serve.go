package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/internal/daemon"
	"github.com/urfave/cli"
)

var (
	serveListen  string
	serveVerbose bool

	serveFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "listen, l",
			Usage:       "host:port to listen on (default: server.listen from the config)",
			Destination: &serveListen,
		},
		cli.BoolFlag{
			Name:        "verbose, V",
			Usage:       "log every displayed event and RPC push (default: false)",
			Destination: &serveVerbose,
		},
	}
)

func serve(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "load_config", err)
		return nil
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	tok, err := rpcToken(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "rpc_token", err)
		return nil
	}
	// quiet info lines still reach replay.log through the session's ring
	l := newLogger(serveVerbose)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := initServeComponents(sigCtx, l, cfg, tok)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "init", err)
		return nil
	}
	defer comps.Close()

	runner := daemon.New(&daemon.Config{
		Addr:     cfg.Server.ListenAddr(),
		MaxConns: cfg.Server.MaxConns,
	}, &daemon.Dependencies{
		Serve:        comps.Server.Serve,
		ShutdownFunc: comps.Server.Shutdown,
	})
	go func() {
		select {
		case <-runner.Ready():
			fmt.Printf("rewind listening on %s\n", runner.Addr())
		case <-sigCtx.Done():
		}
	}()
	err = runner.Start(sigCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
