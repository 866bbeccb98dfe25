package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{"菜單", ShowMenu{}},
		{"  Menu ", ShowMenu{}},
		{"menu drinks", ShowMenu{CategoryID: "drinks"}},
		{"3", AddItem{ItemID: 3, Qty: 1}},
		{"3x2", AddItem{ItemID: 3, Qty: 2}},
		{"4 * 3", AddItem{ItemID: 4, Qty: 3}},
		{"購物車", ViewCart{}},
		{"CART", ViewCart{}},
		{"結帳", Checkout{}},
		{"checkout", Checkout{}},
		{"訂單", ListOrders{}},
		{"訂單 0b7e", OrderStatus{OrderID: "0b7e"}},
		{"清空", ClearCart{}},
		{"移除 5", RemoveItem{ItemID: 5}},
		{"remove 5", RemoveItem{ItemID: 5}},
		{"help", Help{}},
		{"我想吃拉麵", Help{}},
		{"", Help{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseText(tt.text))
		})
	}
}

func TestParsePostback(t *testing.T) {
	tests := []struct {
		data string
		want Command
	}{
		{"action=add&item=3&qty=2", AddItem{ItemID: 3, Qty: 2}},
		{"action=add&item=3", AddItem{ItemID: 3, Qty: 1}},
		{"action=set&item=1&qty=0", SetQuantity{ItemID: 1, Qty: 0}},
		{"action=remove&item=2", RemoveItem{ItemID: 2}},
		{"action=menu&category=rice", ShowMenu{CategoryID: "rice"}},
		{"action=cart", ViewCart{}},
		{"action=clear", ClearCart{}},
		{"action=checkout", Checkout{}},
		{"action=orders", ListOrders{}},
		{"action=status&order=abc", OrderStatus{OrderID: "abc"}},
		{"action=help", Help{}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := ParsePostback(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostback_Unknown(t *testing.T) {
	for _, data := range []string{
		"",
		"action=dance",
		"action=add",
		"action=add&item=three",
		"action=add&item=3&qty=lots",
		"action=set&item=3",
		"action=status",
		"%zz",
	} {
		t.Run(data, func(t *testing.T) {
			_, err := ParsePostback(data)
			assert.ErrorIs(t, err, ErrUnknownCommand)
		})
	}
}
