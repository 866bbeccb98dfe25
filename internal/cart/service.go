package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
	"github.com/zxc1031408077/line-bot-ordering/internal/userlock"
)

// Service is the cart store. Every operation for a user runs under that
// user's lock, so concurrent webhook deliveries cannot lose updates.
type Service struct {
	repo    Repository
	cache   Cache
	catalog catalog.Catalog
	locks   *userlock.Locker
	sfg     singleflight.Group
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocker shares a lock table with other per-user services.
func WithLocker(l *userlock.Locker) Option {
	return func(s *Service) { s.locks = l }
}

func NewService(repo Repository, cat catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		cache:   NopCache{},
		catalog: cat,
		locks:   userlock.New(),
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Locker() *userlock.Locker {
	return s.locks
}

// View returns the user's cart, or an empty one if they never added
// anything.
func (s *Service) View(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		unlock := s.locks.Lock(userID)
		defer unlock()

		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.WarnContext(ctx, "cart cache get failed", "user_id", userID, "error", err)
		}

		c, err = s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		if errSet := s.cache.Set(ctx, userID, c); errSet != nil {
			s.log.WarnContext(ctx, "cart cache set failed", "user_id", userID, "error", errSet)
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	// singleflight shares the pointer between callers
	return v.(*domain.Cart).Clone(), nil
}

// AddItem adds qty of itemID. A new line captures the item's current
// discounted price; an existing line only gains quantity and keeps its
// original price. The resulting line may not exceed domain.MaxLineQuantity.
func (s *Service) AddItem(ctx context.Context, userID string, itemID int64, qty int) (*domain.Cart, error) {
	if qty < 1 || qty > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	item, err := s.catalog.Lookup(ctx, itemID)
	if err != nil {
		return nil, domain.WrapStorage("lookup item", err)
	}
	if !item.Available {
		return nil, domain.ErrUnavailable
	}

	return s.mutate(ctx, userID, "add item", func(c *domain.Cart, now time.Time) (bool, error) {
		if i := c.Line(itemID); i >= 0 {
			if c.Lines[i].Quantity > domain.MaxLineQuantity-qty {
				return false, domain.ErrInvalidQuantity
			}
			c.Lines[i].Quantity += qty
			return true, nil
		}
		c.Lines = append(c.Lines, domain.CartLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  qty,
			UnitPrice: pricing.ApplyDiscount(item.UnitPrice, item.DiscountPercent),
			ListPrice: item.UnitPrice,
			AddedAt:   now,
		})
		return true, nil
	})
}

// SetQuantity sets an exact quantity. qty <= 0 removes the line like
// RemoveItem; a positive qty for an item not in the cart is ErrNotFound.
func (s *Service) SetQuantity(ctx context.Context, userID string, itemID int64, qty int) (*domain.Cart, error) {
	if qty > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, userID, "set quantity", func(c *domain.Cart, _ time.Time) (bool, error) {
		i := c.Line(itemID)
		if qty <= 0 {
			return removeLine(c, i), nil
		}
		if i < 0 {
			return false, domain.ErrNotFound
		}
		c.Lines[i].Quantity = qty
		return true, nil
	})
}

// RemoveItem drops the line for itemID. Removing an absent item succeeds.
func (s *Service) RemoveItem(ctx context.Context, userID string, itemID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "remove item", func(c *domain.Cart, _ time.Time) (bool, error) {
		return removeLine(c, c.Line(itemID)), nil
	})
}

// Clear empties the cart but keeps the cart record.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, "clear cart", func(c *domain.Cart, _ time.Time) (bool, error) {
		c.Lines = []domain.CartLine{}
		return true, nil
	})
}

// Held is a cart handle whose user lock is held by the caller. It exists
// for checkout, which has to read and clear the cart in one critical
// section.
type Held struct {
	s      *Service
	userID string
}

// Hold locks userID until release is called.
func (s *Service) Hold(userID string) (*Held, func()) {
	unlock := s.locks.Lock(userID)
	return &Held{s: s, userID: userID}, unlock
}

func (h *Held) Cart(ctx context.Context) (*domain.Cart, error) {
	c, err := h.s.load(ctx, h.userID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Held) Clear(ctx context.Context) error {
	c, err := h.s.load(ctx, h.userID)
	if err != nil {
		return err
	}
	c.Lines = []domain.CartLine{}
	c.UpdatedAt = h.s.now()
	return h.s.save(ctx, "clear cart", c)
}

// mutate loads the cart under the user lock, applies fn and saves when fn
// reports a change.
func (s *Service) mutate(
	ctx context.Context,
	userID, op string,
	fn func(c *domain.Cart, now time.Time) (bool, error),
) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	changed, err := fn(c, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	c.UpdatedAt = now
	if err := s.save(ctx, op, c); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

func (s *Service) load(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return domain.NewCart(userID, s.now()), nil
	}
	if err != nil {
		s.log.ErrorContext(ctx, "repo get cart failed", "user_id", userID, "error", err)
		return nil, domain.WrapStorage("get cart", err)
	}
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, op string, c *domain.Cart) error {
	if err := s.repo.SaveCart(ctx, c); err != nil {
		s.log.ErrorContext(ctx, "repo save cart failed", "op", op, "user_id", c.UserID, "error", err)
		return domain.WrapStorage(op, err)
	}
	s.invalidateCache(c)
	return nil
}

// invalidateCache drops the cached cart after a save. If the delete fails
// the saved cart is written over the cached one so View never serves a
// cart older than the repository's.
func (s *Service) invalidateCache(c *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := s.cache.Delete(ctx, c.UserID)
	if err == nil {
		return
	}
	s.log.Warn("cart cache invalidate failed", "user_id", c.UserID, "error", err)

	if errSet := s.cache.Set(ctx, c.UserID, c); errSet != nil {
		s.log.Error("cart cache stale", "user_id", c.UserID, "error", errSet)
	}
}

func removeLine(c *domain.Cart, i int) bool {
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}
