package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads status events published by KafkaSink and hands them to the
// sink that actually reaches the user, e.g. a chat push client.
type Consumer struct {
	reader messageReader
	target Sink
	log    *slog.Logger
}

func NewConsumer(topic, groupID string, target Sink, log *slog.Logger, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, target, log)
}

func newConsumer(r messageReader, target Sink, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{reader: r, target: target, log: log}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.log.ErrorContext(ctx, "error reading status event", "error", err)
		return
	}

	if err := c.handle(ctx, m); err != nil {
		c.log.ErrorContext(ctx, "error handling status event",
			"partition", m.Partition, "offset", m.Offset, "error", err)
	}

	// poison messages are logged and skipped, not retried forever
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.ErrorContext(ctx, "error committing status event", "offset", m.Offset, "error", err)
	}
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	eventType := ""
	carrier := propagation.MapCarrier{}
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
			continue
		}
		carrier[h.Key] = string(h.Value)
	}
	if eventType != EventTypeStatusChanged {
		c.log.DebugContext(ctx, "skipping event", "event_type", eventType)
		return nil
	}

	var e Event
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return fmt.Errorf("parse status event: %w", err)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	return c.target.StatusChanged(ctx, e)
}
