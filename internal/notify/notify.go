// Package notify delivers order status changes to whoever tells the user
// about them.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

const EventTypeStatusChanged = "order.status_changed"

type Event struct {
	OrderID string             `json:"order_id"`
	UserID  string             `json:"user_id"`
	From    domain.OrderStatus `json:"from"`
	To      domain.OrderStatus `json:"to"`
	At      time.Time          `json:"at"`
}

// Sink receives one event per successful status transition.
type Sink interface {
	StatusChanged(ctx context.Context, e Event) error
}

type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) StatusChanged(ctx context.Context, e Event) error {
	s.log.InfoContext(ctx, "order status changed",
		"order_id", e.OrderID,
		"user_id", e.UserID,
		"from", e.From.String(),
		"to", e.To.String(),
	)
	return nil
}

// Multi fans an event out to every sink and returns the first error.
type Multi []Sink

func (m Multi) StatusChanged(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.StatusChanged(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
