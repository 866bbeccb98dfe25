package orders

import (
	"context"
	"sync"
	"time"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Order
	byUser map[string][]string
	hist   map[string][]StatusChange
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*domain.Order),
		byUser: make(map[string][]string),
		hist:   make(map[string][]StatusChange),
	}
}

func (m *MemoryRepository) Append(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[order.ID]; exists {
		return ErrDuplicateOrder
	}
	m.byID[order.ID] = order.Clone()
	m.byUser[order.UserID] = append(m.byUser[order.UserID], order.ID)
	m.hist[order.ID] = []StatusChange{{To: order.Status, At: order.CreatedAt}}
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

// ListByUser returns newest first.
func (m *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[userID]
	result := make([]*domain.Order, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.byID[ids[i]].Clone())
	}
	return result, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.byID[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	m.hist[id] = append(m.hist[id], StatusChange{From: from, To: to, At: at})
	return nil
}

func (m *MemoryRepository) History(_ context.Context, id string) ([]StatusChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.hist[id]
	out := make([]StatusChange, len(h))
	copy(out, h)
	return out, nil
}
