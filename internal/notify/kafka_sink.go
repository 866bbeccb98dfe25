package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/zxc1031408077/line-bot-ordering/pkg/circuitbreaker"
)

const DefaultTopic = "order-status"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes status changes keyed by order id, so one order's
// events stay ordered within a partition.
type KafkaSink struct {
	writer  messageWriter
	breaker *circuitbreaker.Breaker
	timeout time.Duration
	log     *slog.Logger
}

func NewKafkaSink(topic string, log *slog.Logger, brokers ...string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return newKafkaSink(w, log)
}

func newKafkaSink(w messageWriter, log *slog.Logger) *KafkaSink {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaSink{
		writer:  w,
		breaker: circuitbreaker.New(circuitbreaker.DefaultSettings("kafka-order-status"), log),
		timeout: 5 * time.Second,
		log:     log,
	}
}

func (s *KafkaSink) StatusChanged(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: payload,
		Headers: injectTraceHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeStatusChanged)},
		}),
	}

	return s.breaker.Do(func() error {
		writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
			return fmt.Errorf("publish status event for order %s: %w", e.OrderID, err)
		}
		return nil
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func injectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
