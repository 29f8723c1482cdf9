package main

import (
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var Version = "v0.1.0"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML configuration file",
	Value:   "config.yml",
	EnvVars: []string{"CONFIG_FILE"},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "relayctl"
	app.Version = Version
	app.Usage = "cross-chain gateway dispatch and contract authority tooling"
	app.Flags = []cli.Flag{configFlag}
	app.Commands = []*cli.Command{
		resolveCommand,
		dispatchCommand,
		checkCommand,
		remediateCommand,
		verifyCommand,
		balanceCommand,
		serveCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}
