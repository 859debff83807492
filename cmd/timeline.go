package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/internal/history"
	"github.com/urfave/cli"
)

func importTimeline(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no file provided"))
	} else if path == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "load_config", err)
		return nil
	}
	records, err := history.LoadRecords(appFs, path)
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "load_records", err)
		return nil
	}
	store, err := openStore(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "open_store", err)
		return nil
	}
	defer store.Close()
	n, err := store.Import(context.Background(), records)
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "import", err)
		return nil
	}
	fmt.Printf("Imported %d events into %s\n", n, cfg.History.DBPath)
	return nil
}

func seed(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "seed", "load_config", err)
		return nil
	}
	store, err := openStore(cfg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "seed", "open_store", err)
		return nil
	}
	defer store.Close()
	n, err := store.Seed(context.Background(), time.Now())
	if err != nil {
		common.PrintRuntimeErr(ctx, "seed", "seed", err)
		return nil
	}
	fmt.Printf("Seeded %d demo events into %s\n", n, cfg.History.DBPath)
	return nil
}
