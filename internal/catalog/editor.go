package catalog

import (
	"context"
	"fmt"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

// Editor applies menu changes to the database and publishes them to the
// in-memory catalog right away instead of waiting for the next reload tick.
type Editor struct {
	repo *SQLiteRepository
	menu *MemoryCatalog
}

func NewEditor(repo *SQLiteRepository, menu *MemoryCatalog) *Editor {
	return &Editor{repo: repo, menu: menu}
}

// Upsert stores item and returns it as the catalog now sees it.
func (e *Editor) Upsert(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	id, err := e.repo.Upsert(ctx, item)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	if err := e.repo.ReloadInto(ctx, e.menu); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("reload after upsert: %w", err)
	}
	return e.menu.Lookup(ctx, id)
}

func (e *Editor) SetAvailability(ctx context.Context, itemID int64, available bool) (domain.CatalogItem, error) {
	if err := e.repo.SetAvailability(ctx, itemID, available); err != nil {
		return domain.CatalogItem{}, err
	}
	if err := e.repo.ReloadInto(ctx, e.menu); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("reload after availability change: %w", err)
	}
	return e.menu.Lookup(ctx, itemID)
}
