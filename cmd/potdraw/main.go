package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the draw rooms server"`
	Sweep   SweepCmd         `cmd:"" help:"Delete settlement records past their retention horizon"`
}

func main() {
	_ = godotenv.Load() // .env is optional; flags read POTDRAW_* from it

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("potdraw"),
		kong.Description("Pooled-stake draw rooms server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
