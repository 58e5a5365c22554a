package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/nspcc-dev/neofs-vault/common"
	"github.com/urfave/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(ctx).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "vaultctl"
	app.Usage = "Operate custodial vaults on a local ledger"
	app.Version = common.VersionString(common.Version)
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the YAML configuration file, in-memory ledger is used if omitted",
		},
	}
	app.Commands = newCommands(ctx)

	return app
}
