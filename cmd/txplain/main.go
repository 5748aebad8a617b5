package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "txplain",
		Usage: "Sui transaction interpretation CLI",
		Description: `A command-line tool for explaining Sui transactions and operating the txplain service.

Use this CLI to interpret transactions locally, inspect the archive, follow
published interpretations, and manage background jobs.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			interpretCommand(),
			explainCommand(),
			// Database inspection commands
			{
				Name:  "db",
				Usage: "Archive inspection commands",
				Subcommands: []*cli.Command{
					listInterpretationsCommand(),
					getInterpretationCommand(),
					pruneCommand(),
				},
			},
			// Temporal inspection and management commands
			{
				Name:  "temporal",
				Usage: "Temporal job and schedule commands",
				Subcommands: []*cli.Command{
					startJobCommand(),
					describePruneScheduleCommand(),
					upsertPruneScheduleCommand(),
					deletePruneScheduleCommand(),
				},
			},
			// NATS streaming commands
			{
				Name:  "nats",
				Usage: "NATS interpretation streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
			// Client commands (HTTP API)
			clientCommands(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Primary Sui JSON-RPC endpoint",
				EnvVars: []string{"SUI_RPC_URL"},
				Value:   "https://fullnode.mainnet.sui.io:443",
			},
			&cli.StringSliceFlag{
				Name:    "fallback-rpc-url",
				Usage:   "Alternate Sui JSON-RPC endpoint (repeatable)",
				EnvVars: []string{"SUI_FALLBACK_RPC_URLS"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server address",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "temporal-task-queue",
				Usage:   "Temporal task queue",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "txplain-interpret",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "txplain server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
