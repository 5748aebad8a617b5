package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/txplain/client"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the txplain server",
		Subcommands: []*cli.Command{
			clientInterpretCommand(),
			clientExplainCommand(),
			clientListCommand(),
			clientJobCommand(),
		},
	}
}

func newAPIClient(c *cli.Context, timeout time.Duration) *client.Client {
	return client.NewClient(c.String("server-url"), &http.Client{Timeout: timeout}, cliLogger())
}

func clientInterpretCommand() *cli.Command {
	return &cli.Command{
		Name:      "interpret",
		Usage:     "Interpret a transaction through the server",
		ArgsUsage: "DIGEST",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "cached",
				Usage: "Return the archived interpretation when one exists",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 90 * time.Second,
			},
		}, jqFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("transaction digest is required")
			}
			filter, requirements, err := compileJQFlags(c)
			if err != nil {
				return err
			}

			cl := newAPIClient(c, c.Duration("timeout"))
			res, err := cl.Interpret(context.Background(), c.Args().First(), c.Bool("cached"))
			if err != nil {
				return err
			}

			source := res.Source
			if res.Cached && source != "" {
				source += " (archived)"
			}
			return render(c, res.Transaction, source, filter, requirements)
		},
	}
}

func clientExplainCommand() *cli.Command {
	return &cli.Command{
		Name:  "explain",
		Usage: "Send a transaction JSON file to the server for offline interpretation",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the transaction JSON (\"-\" for stdin)",
				Required: true,
			},
		}, jqFlags()...),
		Action: func(c *cli.Context) error {
			filter, requirements, err := compileJQFlags(c)
			if err != nil {
				return err
			}

			var data []byte
			if path := c.String("file"); path == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("failed to read transaction file: %w", err)
			}
			raw, objects, err := decodeExplainInput(data)
			if err != nil {
				return err
			}

			cl := newAPIClient(c, 30*time.Second)
			tx, err := cl.Explain(context.Background(), raw, objects)
			if err != nil {
				return err
			}
			return render(c, tx, "", filter, requirements)
		},
	}
}

func clientListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List archived interpretations through the server",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sender", Usage: "Only show transactions sent by this address"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum rows to return", Value: 50},
			&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c, 30*time.Second)
			rows, err := cl.ListArchived(context.Background(), client.ListOptions{
				Sender: c.String("sender"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DIGEST\tSENDER\tOK\tTIER\tHEADLINE\tCREATED")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\t%s\n",
					row.Digest,
					shorten(row.Sender),
					row.Success,
					row.HeadlineTier,
					row.Headline,
					row.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()
			fmt.Fprintf(os.Stderr, "\nTotal: %d interpretations\n", len(rows))
			return nil
		},
	}
}

func clientJobCommand() *cli.Command {
	return &cli.Command{
		Name:      "job",
		Usage:     "Start a background interpretation, or check one with --id",
		ArgsUsage: "[DIGEST]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Workflow ID of an existing job",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Poll until the job finishes",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval for --wait",
				Value: 2 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long --wait polls",
				Value: 5 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			workflowID := c.String("id")
			if (workflowID == "") == (c.NArg() == 0) {
				return fmt.Errorf("give either a transaction digest or --id")
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			cl := newAPIClient(c, 30*time.Second)
			if workflowID == "" {
				id, err := cl.StartJob(ctx, c.Args().First())
				if err != nil {
					return err
				}
				workflowID = id
				if !c.Bool("json") {
					fmt.Fprintf(os.Stderr, "Started job %s\n", workflowID)
				}
			}

			var job *client.Job
			var err error
			if c.Bool("wait") {
				job, err = cl.AwaitJob(ctx, workflowID, c.Duration("interval"))
			} else {
				job, err = cl.GetJob(ctx, workflowID)
			}
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(job)
			}
			fmt.Printf("Workflow ID:  %s\n", job.WorkflowID)
			fmt.Printf("Status:       %s\n", job.Status)
			if job.Error != "" {
				fmt.Printf("Error:        %s\n", job.Error)
			}
			if len(job.Result) > 0 {
				fmt.Printf("Result:       %s\n", string(job.Result))
			}
			return nil
		},
	}
}
