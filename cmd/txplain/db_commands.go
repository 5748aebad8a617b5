package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/txplain/service/db"
)

func listInterpretationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List archived interpretations, newest first",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sender",
				Usage: "Only show transactions sent by this address",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum rows to return",
				Value: 50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Rows to skip",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rows, err := store.ListInterpretations(context.Background(), db.ListInterpretationsParams{
				Sender: c.String("sender"),
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list interpretations: %w", err)
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

func getInterpretationCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one archived interpretation",
		ArgsUsage: "DIGEST",
		Flags:     jqFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction digest")
			}
			filter, requirements, err := compileJQFlags(c)
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			row, err := store.GetInterpretation(context.Background(), c.Args().First())
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("no archived interpretation for %s", c.Args().First())
			}
			if err != nil {
				return fmt.Errorf("failed to get interpretation: %w", err)
			}

			tx, err := row.Decode()
			if err != nil {
				return fmt.Errorf("failed to decode archived payload: %w", err)
			}

			source := ""
			if row.Source != nil {
				source = *row.Source
			}
			return render(c, tx, source, filter, requirements)
		},
	}
}

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete archived interpretations older than a retention window",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:     "older-than",
				Usage:    "Retention window (e.g. 720h)",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			retention := c.Duration("older-than")
			if retention <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			deleted, err := store.DeleteInterpretationsOlderThan(context.Background(), time.Now().Add(-retention))
			if err != nil {
				return fmt.Errorf("failed to prune archive: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(map[string]int64{"deleted": deleted})
			}
			fmt.Printf("✓ Deleted %d interpretations older than %s\n", deleted, retention)
			return nil
		},
	}
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		// Try environment variable directly if flag not found
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// shorten keeps long addresses readable in tables.
func shorten(addr string) string {
	if len(addr) <= 16 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-6:]
}
