package cart

import (
	"context"
	"errors"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository persists one cart document per user. Save is an upsert of the
// whole cart; callers hold the user lock around read-modify-save.
type Repository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}
