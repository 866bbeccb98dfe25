package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

// MemoryCatalog keeps one catalog version in memory. Replace swaps the
// whole version at once.
type MemoryCatalog struct {
	mu         sync.RWMutex
	items      map[int64]domain.CatalogItem
	order      []int64
	categories []domain.Category
}

func NewMemoryCatalog(categories []domain.Category, items []domain.CatalogItem) *MemoryCatalog {
	c := &MemoryCatalog{}
	c.Replace(categories, items)
	return c
}

// Replace installs a new catalog version. Categories referenced by items but
// missing from categories are added with their id as name.
func (c *MemoryCatalog) Replace(categories []domain.Category, items []domain.CatalogItem) {
	byID := make(map[int64]domain.CatalogItem, len(items))
	order := make([]int64, 0, len(items))
	cats := make([]domain.Category, len(categories))
	copy(cats, categories)

	known := make(map[string]bool, len(cats))
	for _, cat := range cats {
		known[cat.ID] = true
	}
	for _, it := range items {
		if _, dup := byID[it.ID]; !dup {
			order = append(order, it.ID)
		}
		byID[it.ID] = it
		if !known[it.CategoryID] {
			known[it.CategoryID] = true
			cats = append(cats, domain.Category{ID: it.CategoryID, Name: it.CategoryID})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = byID
	c.order = order
	c.categories = cats
}

func (c *MemoryCatalog) Lookup(_ context.Context, itemID int64) (domain.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}

func (c *MemoryCatalog) List(_ context.Context, categoryID string) ([]domain.CatalogItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if categoryID != "" && !c.hasCategory(categoryID) {
		return nil, fmt.Errorf("category %q: %w", categoryID, domain.ErrNotFound)
	}

	result := make([]domain.CatalogItem, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		if categoryID == "" || item.CategoryID == categoryID {
			result = append(result, item)
		}
	}
	return result, nil
}

func (c *MemoryCatalog) Categories(context.Context) ([]domain.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]domain.Category, len(c.categories))
	copy(result, c.categories)
	return result, nil
}

func (c *MemoryCatalog) hasCategory(id string) bool {
	for _, cat := range c.categories {
		if cat.ID == id {
			return true
		}
	}
	return false
}
