package main

import (
	"github.com/alecthomas/kong"
)

// CLI is the lotctl command tree
type CLI struct {
	Globals

	Report  ReportCmd  `cmd:"" help:"Match sells against buy lots and print the tax report as JSON."`
	Watch   WatchCmd   `cmd:"" help:"Follow a submission on a running server until it finishes."`
	Migrate MigrateCmd `cmd:"" help:"Create the transactions table in the configured store."`
}

func options(cli *CLI) []kong.Option {
	return []kong.Option{
		kong.Name("lotctl"),
		kong.Description("Capital-gains lot matching from the command line."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, options(&cli)...)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
