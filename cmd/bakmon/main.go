package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "path to configuration yaml file",
		Value: "bakmon_config.yaml",
	}

	cmd := &cli.Command{
		Name:    "bakmon",
		Usage:   "Network device backup metadata monitor",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the collection daemon",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runDaemon(ctx, cmd.String("config"))
				},
			},
			{
				Name:  "check",
				Usage: "Verify configuration, state store and upstream access",
				Flags: []cli.Flag{configFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runCheck(ctx, cmd.String("config"))
				},
			},
			{
				Name:  "check-manifest",
				Usage: "Validate a manifest document file and print violations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the manifest JSON file",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return checkManifest(cmd.String("file"))
				},
			},
			{
				Name:  "list",
				Usage: "List published backup state",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "vendor",
						Usage: "Filter by vendor",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return listStates(ctx, cmd.String("config"), cmd.String("vendor"))
				},
			},
			{
				Name:  "get",
				Usage: "Show published backup state for one host",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:     "vendor",
						Usage:    "Vendor identity",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "hostname",
						Usage:    "Hostname",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return getState(ctx, cmd.String("config"), cmd.String("vendor"), cmd.String("hostname"))
				},
			},
			{
				Name:  "vendors",
				Usage: "Print the registered vendor contracts",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return printVendors()
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		slog.Error("CLI error", "error", err)
		os.Exit(1)
	}
}
