package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/txplain/service/metrics"
)

// Publisher publishes interpretation events.
type Publisher interface {
	// PublishInterpretation publishes a single event to its sender subject.
	PublishInterpretation(ctx context.Context, event *InterpretationEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes interpretation events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for interpretations.
	StreamName = "INTERPRETATIONS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "interpretations.*"

	// StreamRetention is how long messages are retained.
	StreamRetention = 7 * 24 * time.Hour

	subjectPrefix = "interpretations."
)

// NewPublisher connects to NATS and ensures the stream exists.
// If metrics is nil, no metrics will be recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("txplain-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		metrics: m,
		logger:  logger,
	}

	if err := EnsureStream(context.Background(), js, logger); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// EnsureStream creates the interpretations stream if it doesn't exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stream, err := js.Stream(ctx, StreamName)
	if err == nil {
		if info, err := stream.Info(ctx); err == nil {
			logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	logger.Info("creating JetStream stream", "stream", StreamName)

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Interpreted Sui transactions keyed by sender",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishInterpretation publishes a single interpretation event. The
// message ID is the digest so JetStream drops duplicates within its window.
func (p *JetStreamPublisher) PublishInterpretation(ctx context.Context, event *InterpretationEvent) error {
	subject := event.Subject()
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interpretation event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.Digest))

	status := "success"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(StreamSubjects, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish interpretation: %w", err)
	}

	p.logger.Debug("published interpretation event",
		"subject", subject,
		"digest", event.Digest,
	)
	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
