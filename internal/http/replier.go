package http

import (
	"context"
	"log/slog"

	"github.com/zxc1031408077/line-bot-ordering/internal/dispatch"
)

// Replier sends a command result back to the chat user. Message rendering
// lives behind this interface.
type Replier interface {
	Reply(ctx context.Context, replyToken, userID string, res dispatch.Result) error
}

type LogReplier struct {
	log *slog.Logger
}

func NewLogReplier(log *slog.Logger) *LogReplier {
	if log == nil {
		log = slog.Default()
	}
	return &LogReplier{log: log}
}

func (r *LogReplier) Reply(ctx context.Context, replyToken, userID string, res dispatch.Result) error {
	attrs := []any{
		"reply_token", replyToken,
		"user_id", userID,
		"kind", string(res.Kind),
	}
	switch {
	case res.Rejected != nil:
		attrs = append(attrs, "reason", res.Rejected.Error())
	case res.Order != nil:
		attrs = append(attrs, "order_id", res.Order.ID, "total", res.Order.Total.StringFixed(2))
	case res.Quote != nil:
		attrs = append(attrs, "lines", len(res.Cart.Lines), "total", res.Quote.Total.StringFixed(2))
	case res.Kind == dispatch.KindMenu:
		attrs = append(attrs, "items", len(res.Items))
	case res.Kind == dispatch.KindOrders:
		attrs = append(attrs, "orders", len(res.Orders))
	}
	r.log.InfoContext(ctx, "chat reply", attrs...)
	return nil
}
