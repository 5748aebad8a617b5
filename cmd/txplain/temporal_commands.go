package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"
	"go.temporal.io/sdk/client"

	"github.com/brojonat/txplain/service/sui"
	"github.com/brojonat/txplain/service/temporal"
)

func startJobCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start an interpretation workflow for a transaction",
		ArgsUsage: "DIGEST",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Block until the workflow completes and print its result",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long --wait blocks",
				Value: 5 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction digest")
			}
			digest := c.Args().First()
			if err := sui.ValidateDigest(digest); err != nil {
				return err
			}

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			workflowID, err := tc.StartInterpretWorkflow(ctx, digest)
			if err != nil {
				return err
			}

			if !c.Bool("wait") {
				if c.Bool("json") {
					return outputJSON(map[string]string{"workflow_id": workflowID})
				}
				fmt.Printf("✓ Started workflow %s\n", workflowID)
				return nil
			}

			result, err := tc.WaitInterpretWorkflow(ctx, workflowID)
			if err != nil {
				return err
			}
			if c.Bool("json") || result.Transaction == nil {
				return outputJSON(result)
			}
			printInterpretation(result.Transaction, result.Source)
			fmt.Printf("Archived: %v  Published: %v\n", result.Archived, result.Published)
			return nil
		},
	}
}

func describePruneScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "describe-prune-schedule",
		Usage: "Describe the archive prune schedule",
		Action: func(c *cli.Context) error {
			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			handle := tc.SDKClient().ScheduleClient().GetHandle(ctx, temporal.PruneScheduleID)
			desc, err := handle.Describe(ctx)
			if err != nil {
				return fmt.Errorf("failed to describe schedule: %w", err)
			}

			fmt.Printf("Schedule ID:    %s\n", temporal.PruneScheduleID)
			fmt.Printf("Paused:         %v\n", desc.Schedule.State.Paused)

			if action, ok := desc.Schedule.Action.(*client.ScheduleWorkflowAction); ok {
				fmt.Printf("\nWorkflow:\n")
				fmt.Printf("  Workflow:     %v\n", action.Workflow)
				fmt.Printf("  Task Queue:   %s\n", action.TaskQueue)
				fmt.Printf("  Args:         %v\n", action.Args)
			}

			for i, interval := range desc.Schedule.Spec.Intervals {
				fmt.Printf("  Interval %d:   Every %v\n", i+1, interval.Every)
			}

			fmt.Printf("\nRecent Actions: %d\n", len(desc.Info.RecentActions))
			if n := len(desc.Info.RecentActions); n > 0 {
				fmt.Printf("Last Action:  %s\n", desc.Info.RecentActions[n-1].ActualTime.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func upsertPruneScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "upsert-prune-schedule",
		Usage: "Create or update the archive prune schedule",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:     "retention",
				Usage:    "Delete interpretations older than this (e.g. 720h)",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "every",
				Usage: "How often the prune runs",
				Value: 24 * time.Hour,
			},
		},
		Action: func(c *cli.Context) error {
			retention, every := c.Duration("retention"), c.Duration("every")
			if retention <= 0 || every <= 0 {
				return fmt.Errorf("--retention and --every must be positive")
			}

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.UpsertPruneSchedule(context.Background(), every, retention); err != nil {
				return err
			}
			fmt.Printf("✓ Prune schedule set: every %s, retention %s\n", every, retention)
			return nil
		},
	}
}

func deletePruneScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete-prune-schedule",
		Usage: "Delete the archive prune schedule",
		Action: func(c *cli.Context) error {
			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.DeletePruneSchedule(context.Background()); err != nil {
				return err
			}
			fmt.Printf("✓ Deleted schedule %s\n", temporal.PruneScheduleID)
			return nil
		},
	}
}

// getTemporalClient dials Temporal using the global flags.
func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	host := c.String("temporal-host")
	if host == "" {
		host = "localhost:7233"
	}
	namespace := c.String("temporal-namespace")
	if namespace == "" {
		namespace = "default"
	}
	taskQueue := c.String("temporal-task-queue")
	if taskQueue == "" {
		taskQueue = "txplain-interpret"
	}

	// The wrapper logs connection progress at info; keep the CLI quiet.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return temporal.NewClient(host, namespace, taskQueue, quiet)
}
