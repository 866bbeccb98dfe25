// Package orders is the append-only order ledger: checkout turns a cart into
// a priced order, and Advance walks it through its lifecycle.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zxc1031408077/line-bot-ordering/internal/cart"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/notify"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
	DefaultCurrency  = "TWD"
)

type Service struct {
	repo     Repository
	carts    *cart.Service
	sink     notify.Sink
	policy   pricing.Policy
	currency string
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

func WithSink(s notify.Sink) Option {
	return func(svc *Service) { svc.sink = s }
}

func WithCurrency(c string) Option {
	return func(svc *Service) { svc.currency = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func withIDGenerator(fn func() string) Option {
	return func(svc *Service) { svc.newID = fn }
}

func NewService(repo Repository, carts *cart.Service, policy pricing.Policy, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		carts:    carts,
		policy:   policy,
		currency: DefaultCurrency,
		log:      slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = notify.NewLogSink(s.log)
	}
	return s
}

// Checkout snapshots the user's cart into a pending order and clears the
// cart. Cart reads and the clear happen under the same user lock as cart
// mutations. If the clear fails the order is cancelled again and the cart
// keeps its lines.
func (s *Service) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	held, release := s.carts.Hold(userID)
	defer release()

	c, err := held.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	order := s.buildOrder(c)

	if err := s.repo.Append(ctx, order); err != nil {
		s.log.ErrorContext(ctx, "append order failed", "user_id", userID, "error", err)
		return nil, domain.WrapStorage("append order", err)
	}

	if err := held.Clear(ctx); err != nil {
		s.log.ErrorContext(ctx, "clear cart after checkout failed, cancelling order",
			"user_id", userID, "order_id", order.ID, "error", err)
		if cancelErr := s.repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, s.now()); cancelErr != nil {
			s.log.ErrorContext(ctx, "compensating cancel failed",
				"order_id", order.ID, "error", cancelErr)
		}
		return nil, domain.WrapStorage("clear cart", err)
	}

	s.log.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"user_id", userID,
		"lines", len(order.Lines),
		"total", order.Total.StringFixed(2),
	)
	return order, nil
}

func (s *Service) buildOrder(c *domain.Cart) *domain.Order {
	quote := pricing.QuoteLines(c.Lines, s.policy)
	lines := make([]domain.OrderLine, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = domain.OrderLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			ListPrice: l.ListPrice,
			LineTotal: pricing.LineTotal(l),
		}
	}

	now := s.now()
	return &domain.Order{
		ID:          s.newID(),
		UserID:      c.UserID,
		Lines:       lines,
		Subtotal:    quote.Subtotal,
		DeliveryFee: quote.DeliveryFee,
		Total:       quote.Total,
		Savings:     quote.Savings,
		Currency:    s.currency,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Advance moves an order to status if the lifecycle allows it and notifies
// the sink once. Transitions for one user are serialized with that user's
// cart operations.
func (s *Service) Advance(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidTransition
	}

	current, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock := s.carts.Locker().Lock(current.UserID)
	defer unlock()

	// re-read under the lock, the first read only told us whose lock to take
	current, err = s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := current.Status
	if !domain.CanTransitionTo(from, status) {
		return nil, domain.ErrInvalidTransition
	}

	at := s.now()
	if err := s.repo.UpdateStatus(ctx, orderID, from, status, at); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, domain.ErrInvalidTransition
		}
		s.log.ErrorContext(ctx, "update order status failed", "order_id", orderID, "error", err)
		return nil, domain.WrapStorage("update order status", err)
	}

	current.Status = status
	current.UpdatedAt = at

	event := notify.Event{
		OrderID: current.ID,
		UserID:  current.UserID,
		From:    from,
		To:      status,
		At:      at,
	}
	if err := s.sink.StatusChanged(ctx, event); err != nil {
		s.log.WarnContext(ctx, "status notification failed",
			"order_id", orderID, "to", status.String(), "error", err)
	}

	return current, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, domain.WrapStorage("get order", err)
	}
	return o, nil
}

// History returns the status changes of orderID, oldest first.
func (s *Service) History(ctx context.Context, orderID string) ([]StatusChange, error) {
	h, err := s.repo.History(ctx, orderID)
	if err != nil {
		return nil, domain.WrapStorage("order history", err)
	}
	return h, nil
}

// List returns the user's orders newest first. limit <= 0 means
// DefaultListLimit; larger values are capped at MaxListLimit.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, domain.WrapStorage("list orders", err)
	}
	return list, nil
}
