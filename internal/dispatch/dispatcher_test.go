package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxc1031408077/line-bot-ordering/internal/cart"
	"github.com/zxc1031408077/line-bot-ordering/internal/catalog"
	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
	"github.com/zxc1031408077/line-bot-ordering/internal/orders"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

var testPolicy = pricing.Policy{
	FreeDeliveryThreshold: decimal.NewFromInt(300),
	FlatFee:               decimal.NewFromInt(30),
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	cat := catalog.NewMemoryCatalog(
		[]domain.Category{{ID: "noodles", Name: "麵類"}, {ID: "drinks", Name: "飲料"}},
		[]domain.CatalogItem{
			{ID: 1, Name: "牛肉麵", CategoryID: "noodles", UnitPrice: decimal.NewFromInt(150), Available: true},
			{ID: 4, Name: "珍珠奶茶", CategoryID: "drinks", UnitPrice: decimal.NewFromInt(60), Available: true},
			{ID: 7, Name: "芒果冰", CategoryID: "drinks", UnitPrice: decimal.NewFromInt(90), Available: false},
		},
	)
	carts := cart.NewService(cart.NewMemoryRepository(), cat)
	ledger := orders.NewService(orders.NewMemoryRepository(), carts, testPolicy)
	return NewDispatcher(cat, carts, ledger, testPolicy, nil)
}

func TestHandle_MenuByCategory(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.Handle(context.Background(), "U1", ShowMenu{CategoryID: "drinks"})
	require.NoError(t, err)
	assert.Equal(t, KindMenu, res.Kind)
	assert.Len(t, res.Categories, 2)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(4), res.Items[0].ID)
}

func TestHandle_AddThenViewQuotesCart(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	res, err := d.Handle(ctx, "U1", AddItem{ItemID: 4, Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, KindCart, res.Kind)

	res, err = d.Handle(ctx, "U1", ViewCart{})
	require.NoError(t, err)
	require.NotNil(t, res.Quote)
	assert.True(t, res.Quote.Subtotal.Equal(decimal.NewFromInt(120)))
	assert.True(t, res.Quote.DeliveryFee.Equal(decimal.NewFromInt(30)))
	assert.True(t, res.Quote.Total.Equal(decimal.NewFromInt(150)))
}

func TestHandle_DomainErrorsAreRejections(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{"unavailable item", AddItem{ItemID: 7, Qty: 1}, domain.ErrUnavailable},
		{"unknown item", AddItem{ItemID: 99, Qty: 1}, domain.ErrNotFound},
		{"zero quantity", AddItem{ItemID: 1, Qty: 0}, domain.ErrInvalidQuantity},
		{"empty checkout", Checkout{}, domain.ErrEmptyCart},
		{"unknown category", ShowMenu{CategoryID: "pizza"}, domain.ErrNotFound},
		{"unknown order", OrderStatus{OrderID: "missing"}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := d.Handle(ctx, "U1", tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, KindRejected, res.Kind)
			assert.True(t, errors.Is(res.Rejected, tt.want), "got %v", res.Rejected)
		})
	}
}

func TestHandle_CheckoutAndOrderLookup(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Handle(ctx, "U1", ParseText("1x2"))
	require.NoError(t, err)

	res, err := d.Handle(ctx, "U1", ParseText("結帳"))
	require.NoError(t, err)
	require.Equal(t, KindOrderPlaced, res.Kind)
	assert.True(t, res.Order.Total.Equal(decimal.NewFromInt(300)))
	orderID := res.Order.ID

	res, err = d.Handle(ctx, "U1", ListOrders{})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, orderID, res.Orders[0].ID)

	res, err = d.Handle(ctx, "U1", OrderStatus{OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, KindOrder, res.Kind)
	assert.Equal(t, domain.OrderStatusPending, res.Order.Status)

	res, err = d.Handle(ctx, "U2", OrderStatus{OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, KindRejected, res.Kind)
	assert.ErrorIs(t, res.Rejected, domain.ErrNotFound)

	res, err = d.Handle(ctx, "U1", ViewCart{})
	require.NoError(t, err)
	assert.True(t, res.Cart.IsEmpty())
}

func TestHandle_Help(t *testing.T) {
	d := newTestDispatcher(t)

	res, err := d.Handle(context.Background(), "U1", ParseText("hello"))
	require.NoError(t, err)
	assert.Equal(t, KindHelp, res.Kind)
}

func TestHandle_OversizedQuantityRejected(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	res, err := d.Handle(ctx, "U1", ParseText("1x99999"))
	require.NoError(t, err)
	assert.Equal(t, KindRejected, res.Kind)
	assert.ErrorIs(t, res.Rejected, domain.ErrInvalidQuantity)

	res, err = d.Handle(ctx, "U1", ParseText("1x9223372036854775807"))
	require.NoError(t, err)
	assert.Equal(t, KindRejected, res.Kind)

	res, err = d.Handle(ctx, "U1", ParseText("1x98"))
	require.NoError(t, err)
	require.Equal(t, KindCart, res.Kind)

	res, err = d.Handle(ctx, "U1", ParseText("1x2"))
	require.NoError(t, err)
	assert.Equal(t, KindRejected, res.Kind)

	res, err = d.Handle(ctx, "U1", ParseText("1"))
	require.NoError(t, err)
	require.Equal(t, KindCart, res.Kind)
	require.Len(t, res.Cart.Lines, 1)
	assert.Equal(t, domain.MaxLineQuantity, res.Cart.Lines[0].Quantity)
	assert.True(t, res.Quote.Total.IsPositive())
}
