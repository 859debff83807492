package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}{{if .VisibleCommands}}

Commands:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{end}}

`

const DESCRIPTION = `
rewind replays a recorded timeline of events at the moments they
originally happened, measured on the history server's clock. One
shared session runs inside "rewind serve"; "rewind play" runs a
private session in your terminal.
`

const (
	ServeDescription = `The serve command opens the history database, serves the
history HTTP API and exposes the shared replay session over
JSON-RPC (HTTP and WebSocket). Cron schedules from the config
file start playback automatically.

Example:
        rewind serve
        rewind serve --listen 0.0.0.0:9000

`
	PlayDescription = `The play command replays the timeline in this terminal,
fetching events from a history server. Type a key and press
enter to control playback:

        p  play          s  stop
        n  next          b  previous
        N  skip 10       B  back 10
        r  reset         q  quit

Example:
        rewind play
        rewind play --from 2024-05-01T10:00:00Z
        rewind play --from -5m --relative

`
	CtlDescription = `The ctl command drives the shared session of a running
"rewind serve". The server is taken from $REWIND_SERVER or
the listen address in the config file.

Example:
        rewind ctl start --at -2m
        rewind ctl next
        rewind ctl status

`
	WatchDescription = `The watch command connects to the server's WebSocket and
prints every event the shared session displays, with a
countdown to the next one.

Example:
        rewind watch

`
	ImportDescription = `The import command replaces the stored timeline with the
events in a JSON or YAML file. Events are sorted by time and
reindexed from 0.

Example:
        rewind import timeline.json

`
	SeedDescription = `The seed command replaces the stored timeline with thirty
demo events spread around the current time.

Example:
        rewind seed

`
	TokenDescription = `The token command prints the bearer token RPC clients
must send, creating it on first use.

Example:
        rewind token
        rewind token --rotate

`
)
