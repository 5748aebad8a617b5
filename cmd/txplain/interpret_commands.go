package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/sui"
)

func jqFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "jq",
			Usage: "jq filter applied to the interpretation before printing (e.g. '.bullets[]')",
		},
		&cli.StringSliceFlag{
			Name:  "must-jq",
			Usage: "jq filter that must evaluate truthy, otherwise the command fails (repeatable)",
		},
	}
}

func interpretCommand() *cli.Command {
	return &cli.Command{
		Name:      "interpret",
		Usage:     "Fetch and interpret a transaction directly from a Sui fullnode",
		ArgsUsage: "DIGEST",
		Description: `Interpret a transaction without a running server. The primary RPC source is
tried first; if it keeps failing the first healthy fallback is used once.

Example:
  txplain interpret 5K7rW2nC5x... --jq '.headline'`,
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Overall deadline for the interpretation",
				Value: time.Minute,
			},
		}, jqFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("transaction digest is required")
			}
			digest := c.Args().First()
			if err := sui.ValidateDigest(digest); err != nil {
				return err
			}

			filter, requirements, err := compileJQFlags(c)
			if err != nil {
				return err
			}

			logger := cliLogger()
			engine, active, err := localEngine(c, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			res, err := engine.Interpret(ctx, active.Get(), digest)
			if err != nil {
				return fmt.Errorf("failed to interpret transaction: %w", err)
			}
			if res.Switched && !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "primary source failed, answered by %s\n", res.Source.Name)
			}

			return render(c, res.Transaction, res.Source.Name, filter, requirements)
		},
	}
}

func explainCommand() *cli.Command {
	return &cli.Command{
		Name:  "explain",
		Usage: "Interpret a transaction from a JSON file without any RPC calls",
		Description: `The file holds either a raw sui_getTransactionBlock result (optionally still
wrapped in its JSON-RPC envelope) or an object of the form
{"transaction": {...}, "objects": {"0x..": {...}}}. Use "-" to read stdin.

Example:
  txplain explain --file tx.json --must-jq '.success'`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the transaction JSON",
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

			engine := interpret.NewEngine(nil, nil, nil, nil, cliLogger())
			tx := engine.InterpretRaw(context.Background(), raw, objects)
			return render(c, tx, "", filter, requirements)
		},
	}
}

// decodeExplainInput accepts a bare transaction, a JSON-RPC response
// wrapping one, or an explain request body.
func decodeExplainInput(data []byte) (*sui.RawTransaction, map[string]*sui.EnrichedObject, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, fmt.Errorf("invalid transaction JSON: %w", err)
	}

	if result, ok := top["result"]; ok {
		return decodeExplainInput(result)
	}

	if _, ok := top["digest"]; ok {
		var raw sui.RawTransaction
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, nil, fmt.Errorf("invalid transaction JSON: %w", err)
		}
		return &raw, nil, nil
	}

	var req struct {
		Transaction *sui.RawTransaction            `json:"transaction"`
		Objects     map[string]*sui.EnrichedObject `json:"objects"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, nil, fmt.Errorf("invalid explain request: %w", err)
	}
	if req.Transaction == nil {
		return nil, nil, fmt.Errorf("file holds neither a transaction nor an explain request")
	}
	return req.Transaction, req.Objects, nil
}

// localEngine builds an engine over the --rpc-url and --fallback-rpc-url sources.
func localEngine(c *cli.Context, logger *slog.Logger) (*interpret.Engine, *sui.ActiveSource, error) {
	primary, err := sui.NewSource(c.String("rpc-url"))
	if err != nil {
		return nil, nil, err
	}
	alternates, err := sui.ParseSources(c.StringSlice("fallback-rpc-url"))
	if err != nil {
		return nil, nil, err
	}
	fetcher := sui.NewFetcher(primary, alternates, sui.NewRPCClient, sui.DefaultFetchConfig, nil, logger)
	return interpret.NewEngine(fetcher, nil, nil, nil, logger), sui.NewActiveSource(primary), nil
}

// cliLogger only surfaces errors so stdout stays parseable.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// render checks requirements, then prints tx as jq output, JSON, or text.
func render(c *cli.Context, tx *interpret.InterpretedTransaction, source string, filter *gojq.Code, requirements []*gojq.Code) error {
	if filter != nil || len(requirements) > 0 {
		input, err := toJQInput(tx)
		if err != nil {
			return err
		}
		if err := checkRequirements(requirements, input); err != nil {
			return err
		}
		if filter != nil {
			results, err := runJQ(filter, input)
			if err != nil {
				return err
			}
			for _, v := range results {
				if err := printJQValue(v); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if c.Bool("json") {
		return outputJSON(tx)
	}
	printInterpretation(tx, source)
	return nil
}

func printInterpretation(tx *interpret.InterpretedTransaction, source string) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%s\n", tx.Headline)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Digest:      %s\n", tx.Digest)
	fmt.Printf("Sender:      %s\n", tx.Sender)
	if tx.Success {
		fmt.Printf("Status:      success\n")
	} else {
		fmt.Printf("Status:      failed (%s)\n", tx.StatusError)
	}
	fmt.Printf("Gas:         %s SUI\n", tx.GasCost)
	if tx.TimestampMs != "" {
		fmt.Printf("Timestamp:   %s\n", formatTimestampMs(tx.TimestampMs))
	}
	if source != "" {
		fmt.Printf("Source:      %s\n", source)
	}

	if len(tx.Bullets) > 0 {
		fmt.Printf("\nWhat happened:\n")
		for _, b := range tx.Bullets {
			fmt.Printf("  • %s\n", b)
		}
	}
	if len(tx.Breakdown) > 0 {
		fmt.Printf("\nDetails:\n")
		for _, b := range tx.Breakdown {
			fmt.Printf("  %s\n", b)
		}
	}
	if len(tx.Labels) > 0 {
		fmt.Printf("\nParticipants:\n")
		for _, e := range tx.Labels {
			fmt.Printf("  %-12s %s\n", e.Label, e.Address)
		}
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

func formatTimestampMs(ms string) string {
	v, err := strconv.ParseInt(strings.TrimSpace(ms), 10, 64)
	if err != nil {
		return ms
	}
	return time.UnixMilli(v).UTC().Format(time.RFC3339)
}
