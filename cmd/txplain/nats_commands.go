package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/txplain/service/nats"
)

// subscribeCommand streams interpretation events from JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to interpretation events, optionally for one sender",
		ArgsUsage: "[sender_address]",
		Description: `Subscribe to interpretation events published to NATS JetStream.

Events are published to the subject interpretations.{sender}. Without a sender
argument every event is streamed.

Example:
  txplain nats subscribe 0x7d20dcdb2bca4f508ea9613994683eb4e76e9c4ed371169677c1be02aaf0b58e --json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "txplain-cli",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long (0 waits for Ctrl-C)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one sender address may be given")
			}

			subject := natspkg.StreamSubjects
			if c.NArg() == 1 {
				subject = natspkg.SubjectFor(c.Args().First())
			}

			return streamInterpretations(c.String("nats-url"), subject, c.Bool("durable"), c.String("consumer-name"), c.Duration("timeout"), c.Bool("json"))
		},
	}
}

// streamInterpretations connects to NATS and prints events until
// interrupted or timeout elapses.
func streamInterpretations(natsURL, subject string, durable bool, consumerName string, timeout time.Duration, jsonOutput bool) error {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("📡 Subscribing to: %s\n", subject)
		fmt.Printf("   NATS: %s\n", natsURL)
		if durable {
			fmt.Printf("   Consumer: %s (durable)\n", consumerName)
		}
		fmt.Printf("\nWaiting for interpretations... (Ctrl-C to exit)\n\n")
	}

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}
	if durable {
		consumerConfig.Durable = consumerName
		consumerConfig.Name = consumerName
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	msgChan := make(chan jetstream.Msg, 10)
	consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	defer consumeCtx.Stop()

	count := 0
	for {
		select {
		case msg := <-msgChan:
			var event natspkg.InterpretationEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				if !jsonOutput {
					fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
				}
				msg.Ack()
				continue
			}

			count++
			if jsonOutput {
				data, _ := json.Marshal(event)
				fmt.Println(string(data))
			} else {
				printEvent(count, &event)
			}
			msg.Ack()

		case <-ctx.Done():
			if !jsonOutput {
				fmt.Printf("\n✅ Received %d interpretations\n", count)
			}
			return nil

		case <-sigChan:
			if !jsonOutput {
				fmt.Printf("\n\n✅ Received %d interpretations\n", count)
				fmt.Println("Shutting down...")
			}
			return nil
		}
	}
}

func printEvent(n int, event *natspkg.InterpretationEvent) {
	fmt.Printf("─────────────────────────────────────────────────────\n")
	fmt.Printf("Interpretation #%d\n", n)
	fmt.Printf("─────────────────────────────────────────────────────\n")
	fmt.Printf("Digest:       %s\n", event.Digest)
	fmt.Printf("Sender:       %s\n", event.Sender)
	fmt.Printf("Headline:     %s\n", event.Headline)
	fmt.Printf("Tier:         %s\n", event.HeadlineTier)
	fmt.Printf("Success:      %v\n", event.Success)
	fmt.Printf("Gas (MIST):   %s\n", event.GasCostMist)
	if event.Source != "" {
		fmt.Printf("Source:       %s\n", event.Source)
	}
	fmt.Printf("Published:    %s\n", event.PublishedAt.Format(time.RFC3339))
	fmt.Printf("\n")
}

// inspectStreamCommand shows information about the NATS JetStream stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the INTERPRETATIONS JetStream stream",
		Action: func(c *cli.Context) error {
			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(context.Background(), natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}

			info, err := stream.Info(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(info)
			}
			fmt.Printf("Stream: %s\n", info.Config.Name)
			fmt.Printf("─────────────────────────────────────────────────────\n")
			fmt.Printf("Description:  %s\n", info.Config.Description)
			fmt.Printf("Subjects:     %v\n", info.Config.Subjects)
			fmt.Printf("Messages:     %d\n", info.State.Msgs)
			fmt.Printf("Bytes:        %d\n", info.State.Bytes)
			fmt.Printf("First Seq:    %d\n", info.State.FirstSeq)
			fmt.Printf("Last Seq:     %d\n", info.State.LastSeq)
			fmt.Printf("Consumers:    %d\n", info.State.Consumers)
			fmt.Printf("Max Age:      %s\n", info.Config.MaxAge)
			fmt.Printf("Storage:      %s\n", info.Config.Storage)
			return nil
		},
	}
}
