// Package pricing turns cart lines into money. Everything here is pure and
// works on fixed-point decimals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Policy controls delivery charging. Orders at or above
// FreeDeliveryThreshold ship for free, everything else pays FlatFee.
type Policy struct {
	FreeDeliveryThreshold decimal.Decimal
	FlatFee               decimal.Decimal
}

type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	Savings     decimal.Decimal `json:"savings"`
}

// ApplyDiscount returns price reduced by percent, rounded to cents.
// Percent is clamped to 0..100.
func ApplyDiscount(price decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return price
	}
	if percent > 100 {
		percent = 100
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return price.Mul(factor).Round(2)
}

func LineTotal(line domain.CartLine) decimal.Decimal {
	return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

func Subtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l))
	}
	return sum
}

func DeliveryFee(subtotal decimal.Decimal, p Policy) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

func Total(lines []domain.CartLine, p Policy) decimal.Decimal {
	sub := Subtotal(lines)
	return sub.Add(DeliveryFee(sub, p))
}

// Savings is what item discounts took off the list price. It is already
// reflected in the unit prices and does not enter Total.
func Savings(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if l.ListPrice.GreaterThan(l.UnitPrice) {
			diff := l.ListPrice.Sub(l.UnitPrice)
			sum = sum.Add(diff.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}
	return sum
}

func QuoteLines(lines []domain.CartLine, p Policy) Quote {
	sub := Subtotal(lines)
	fee := DeliveryFee(sub, p)
	return Quote{
		Subtotal:    sub,
		DeliveryFee: fee,
		Total:       Total(lines, p),
		Savings:     Savings(lines),
	}
}
