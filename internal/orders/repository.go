package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

var (
	ErrOrderNotFound  = fmt.Errorf("order: %w", domain.ErrNotFound)
	ErrDuplicateOrder = errors.New("order with this id already exists")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// StatusChange is one step of an order's status history. From is empty for
// the row written when the order is placed.
type StatusChange struct {
	From domain.OrderStatus `json:"from,omitempty"`
	To   domain.OrderStatus `json:"to"`
	At   time.Time          `json:"at"`
}

// Repository is the append-only ledger. Orders are never deleted; the only
// mutation is a compare-and-set on status.
type Repository interface {
	Append(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Order, error)
	// UpdateStatus moves id from from to to, or returns ErrStatusConflict if
	// the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) error
	// History lists the statuses id went through, oldest first.
	History(ctx context.Context, id string) ([]StatusChange, error)
}
