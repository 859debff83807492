package cmd

import (
	"fmt"
	"runtime"

	"github.com/rewindhq/rewind/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

var (
	configPath string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "path to the config file (default: $REWIND_CONFIG or the user config dir)",
			Destination: &configPath,
		},
	}
)

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "rewind",
		HelpName:              "rewind",
		Usage:                 "Replay a recorded timeline against the clock.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "rewind <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "serve",
				Usage:              "run the history server and the shared replay session",
				Description:        ServeDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             serve,
				Flags:              serveFlags,
			},
			{
				Name:                   "play",
				Aliases:                []string{"p"},
				Usage:                  "replay a timeline in this terminal",
				Description:            PlayDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 play,
				Flags:                  playFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "ctl",
				Usage:              "control the server's replay session",
				Description:        CtlDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Subcommands:        ctlCommands,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "follow the server's replay session",
				Description:        WatchDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             watch,
			},
			{
				Name:               "import",
				Usage:              "replace the stored timeline with a JSON or YAML file",
				Description:        ImportDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             importTimeline,
			},
			{
				Name:               "seed",
				Usage:              "replace the stored timeline with the demo timeline",
				Description:        SeedDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             seed,
			},
			{
				Name:               "token",
				Usage:              "print the RPC token",
				Description:        TokenDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             token,
				Flags:              tokenFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of rewind",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      common.Help,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
