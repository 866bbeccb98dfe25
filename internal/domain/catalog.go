package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogItem is one orderable menu entry. Items are immutable for a given
// catalog version; a reload replaces them wholesale.
type CatalogItem struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CategoryID      string          `json:"category_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent int             `json:"discount_percent"`
	Available       bool            `json:"available"`
	PhotoURL        string          `json:"photo_url,omitempty"`
}
