package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

type Carts interface {
	View(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, itemID int64, qty int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID string, itemID int64, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, itemID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

type Ledger interface {
	Checkout(ctx context.Context, userID string) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context, userID string, limit int) ([]*domain.Order, error)
}

type Kind string

const (
	KindMenu        Kind = "menu"
	KindCart        Kind = "cart"
	KindOrderPlaced Kind = "order_placed"
	KindOrders      Kind = "orders"
	KindOrder       Kind = "order"
	KindHelp        Kind = "help"
	KindRejected    Kind = "rejected"
)

// Result is what a command produced, left for a renderer to format.
// Rejected carries the domain error when Kind is KindRejected.
type Result struct {
	Kind       Kind                 `json:"kind"`
	Categories []domain.Category    `json:"categories,omitempty"`
	Items      []domain.CatalogItem `json:"items,omitempty"`
	Cart       *domain.Cart         `json:"cart,omitempty"`
	Quote      *pricing.Quote       `json:"quote,omitempty"`
	Order      *domain.Order        `json:"order,omitempty"`
	Orders     []*domain.Order      `json:"orders,omitempty"`
	Rejected   error                `json:"-"`
}

type Dispatcher struct {
	catalog catalog.Catalog
	carts   Carts
	ledger  Ledger
	policy  pricing.Policy
	log     *slog.Logger
}

func NewDispatcher(cat catalog.Catalog, carts Carts, ledger Ledger, policy pricing.Policy, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		catalog: cat,
		carts:   carts,
		ledger:  ledger,
		policy:  policy,
		log:     log,
	}
}

// Handle runs cmd for userID. Domain outcomes such as an empty cart come
// back as a KindRejected result; only internal failures return an error.
func (d *Dispatcher) Handle(ctx context.Context, userID string, cmd Command) (Result, error) {
	res, err := d.handle(ctx, userID, cmd)
	if err != nil {
		if IsRejection(err) {
			d.log.InfoContext(ctx, "command rejected",
				"user_id", userID, "command", fmt.Sprintf("%T", cmd), "reason", err)
			return Result{Kind: KindRejected, Rejected: err}, nil
		}
		return Result{}, err
	}
	return res, nil
}

func (d *Dispatcher) handle(ctx context.Context, userID string, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case ShowMenu:
		return d.menu(ctx, c.CategoryID)
	case AddItem:
		return d.cartResult(d.carts.AddItem(ctx, userID, c.ItemID, c.Qty))
	case SetQuantity:
		return d.cartResult(d.carts.SetQuantity(ctx, userID, c.ItemID, c.Qty))
	case RemoveItem:
		return d.cartResult(d.carts.RemoveItem(ctx, userID, c.ItemID))
	case ClearCart:
		return d.cartResult(d.carts.Clear(ctx, userID))
	case ViewCart:
		return d.cartResult(d.carts.View(ctx, userID))
	case Checkout:
		o, err := d.ledger.Checkout(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindOrderPlaced, Order: o}, nil
	case ListOrders:
		list, err := d.ledger.List(ctx, userID, 0)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindOrders, Orders: list}, nil
	case OrderStatus:
		o, err := d.ledger.Get(ctx, c.OrderID)
		if err != nil {
			return Result{}, err
		}
		// other users' orders look the same as missing ones
		if o.UserID != userID {
			return Result{}, domain.ErrNotFound
		}
		return Result{Kind: KindOrder, Order: o}, nil
	case Help:
		return Result{Kind: KindHelp}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (d *Dispatcher) menu(ctx context.Context, categoryID string) (Result, error) {
	cats, err := d.catalog.Categories(ctx)
	if err != nil {
		return Result{}, domain.WrapStorage("list categories", err)
	}
	items, err := d.catalog.List(ctx, categoryID)
	if err != nil {
		return Result{}, domain.WrapStorage("list items", err)
	}
	return Result{Kind: KindMenu, Categories: cats, Items: items}, nil
}

func (d *Dispatcher) cartResult(c *domain.Cart, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	quote := pricing.QuoteLines(c.Lines, d.policy)
	return Result{Kind: KindCart, Cart: c, Quote: &quote}, nil
}
