package memory

import (
	"context"
	"sync"

	"github.com/xenking/inventory-offers/internal/domain/order"
)

var _ order.Repository = (*Orders)(nil)

// Orders is the in-memory order history.
type Orders struct {
	mu     sync.RWMutex
	orders []order.Order
	byID   map[string]int
}

// NewOrders returns an empty order history.
func NewOrders() *Orders {
	return &Orders{byID: make(map[string]int)}
}

// List returns all orders in creation order.
func (s *Orders) List(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]order.Order, len(s.orders))
	for i := range s.orders {
		out[i] = cloneOrder(s.orders[i])
	}
	return out, nil
}

func (s *Orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := cloneOrder(s.orders[i])
	return &o, nil
}

func (s *Orders) add(o *order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[o.ID] = len(s.orders)
	s.orders = append(s.orders, cloneOrder(*o))
}

func cloneOrder(o order.Order) order.Order {
	o.Lines = append([]order.Line(nil), o.Lines...)
	return o
}
