// Package catalog serves the menu: categories and the items in
// them.
package catalog

import (
	"context"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

// Catalog is the read side used by the cart and the chat dispatcher.
// Unknown ids return domain.ErrNotFound; an unavailable item is still
// returned, with Available=false.
type Catalog interface {
	Lookup(ctx context.Context, itemID int64) (domain.CatalogItem, error)
	List(ctx context.Context, categoryID string) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}
