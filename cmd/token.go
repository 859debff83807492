package cmd

import (
	"errors"
	"fmt"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/rewindhq/rewind/internal/config"
	"github.com/rewindhq/rewind/internal/secret"
	"github.com/urfave/cli"
)

var (
	rotateToken bool

	tokenFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "rotate",
			Usage:       "replace the stored token; running servers keep the old one until restarted (default: false)",
			Destination: &rotateToken,
		},
	}
)

func token(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "token", "load_config", err)
		return nil
	}
	if cfg.Server.RPCSecret != "" {
		if rotateToken {
			return common.PrintErrWithCmdHelp(ctx, errors.New("token is set by the config or the environment and cannot be rotated"))
		}
		fmt.Println(cfg.Server.RPCSecret)
		return nil
	}
	store := secret.NewStore(appFs, config.Dir())
	var tok string
	if rotateToken {
		tok, err = store.Rotate()
	} else {
		tok, err = store.Token()
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "token", "secret_store", err)
		return nil
	}
	fmt.Println(tok)
	return nil
}
