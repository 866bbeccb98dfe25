package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_ForwardPath(t *testing.T) {
	assert.True(t, CanTransitionTo(OrderStatusPending, OrderStatusConfirmed))
	assert.True(t, CanTransitionTo(OrderStatusConfirmed, OrderStatusPreparing))
	assert.True(t, CanTransitionTo(OrderStatusPreparing, OrderStatusReady))
	assert.True(t, CanTransitionTo(OrderStatusReady, OrderStatusDelivered))
}

func TestCanTransitionTo_RejectsSkipsAndBackwards(t *testing.T) {
	assert.False(t, CanTransitionTo(OrderStatusPending, OrderStatusReady))
	assert.False(t, CanTransitionTo(OrderStatusReady, OrderStatusPending))
	assert.False(t, CanTransitionTo(OrderStatusConfirmed, OrderStatusConfirmed))
	assert.False(t, CanTransitionTo(OrderStatusPending, OrderStatus("shipped")))
}

func TestCanTransitionTo_Cancel(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady} {
		assert.True(t, CanTransitionTo(s, OrderStatusCancelled), s)
	}
	assert.False(t, CanTransitionTo(OrderStatusDelivered, OrderStatusCancelled))
	assert.False(t, CanTransitionTo(OrderStatusCancelled, OrderStatusCancelled))
}

func TestTerminalStatusesGoNowhere(t *testing.T) {
	all := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled}
	for _, to := range all {
		assert.False(t, CanTransitionTo(OrderStatusDelivered, to))
		assert.False(t, CanTransitionTo(OrderStatusCancelled, to))
	}
}

func TestWrapStorage(t *testing.T) {
	raw := errors.New("connection reset")
	err := WrapStorage("save cart", raw)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, raw)
	assert.Contains(t, err.Error(), "save cart")

	assert.Equal(t, ErrEmptyCart, WrapStorage("checkout", ErrEmptyCart))
	assert.NoError(t, WrapStorage("noop", nil))
}

func TestCartClone_DoesNotAlias(t *testing.T) {
	c := &Cart{UserID: "u1", Lines: []CartLine{{ItemID: 1, Quantity: 2}}}
	cp := c.Clone()
	cp.Lines[0].Quantity = 9
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, 0, c.Line(1))
	assert.Equal(t, -1, c.Line(7))
}
