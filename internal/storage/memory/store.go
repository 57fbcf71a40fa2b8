package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/order"
)

var _ order.Store = (*Store)(nil)

// Store bundles the in-memory catalog, offers and order history and
// implements order.Store over them.
type Store struct {
	catalog *Catalog
	offers  *Offers
	orders  *Orders
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		catalog: NewCatalog(),
		offers:  NewOffers(),
		orders:  NewOrders(),
	}
}

func (s *Store) Items() *Catalog { return s.catalog }
func (s *Store) Offers() *Offers { return s.offers }
func (s *Store) Orders() *Orders { return s.orders }

// Commit locks every stored item in itemIDs in sorted order, runs fn, and
// applies the buffered stock deductions and order only if fn succeeds. Sorted
// acquisition keeps concurrent commits over overlapping items deadlock free.
// Unknown IDs are not locked; fn sees them as missing.
func (s *Store) Commit(ctx context.Context, itemIDs []string, fn func(ctx context.Context, tx order.Tx) error) error {
	ids := slices.Clone(itemIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var (
		locked []string
		held   []*sync.Mutex
	)
	for _, id := range ids {
		if l := s.catalog.acquire(id); l != nil {
			locked = append(locked, id)
			held = append(held, l)
		}
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	tx := &memTx{
		catalog:  s.catalog,
		locked:   locked,
		deducted: make(map[string]int, len(ids)),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := s.apply(ctx, tx); err != nil {
		return err
	}
	if tx.order != nil {
		s.orders.add(tx.order)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, tx *memTx) error {
	c := s.catalog
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check everything before touching anything.
	for id, qty := range tx.deducted {
		it, ok := c.items[id]
		if !ok {
			return &order.ItemNotFoundError{ItemID: id}
		}
		if it.Stock < qty {
			return &order.InsufficientStockError{ItemID: id, Available: it.Stock, Requested: qty}
		}
	}

	lg := zctx.From(ctx)
	for id, qty := range tx.deducted {
		it := c.items[id]
		updated := *it
		updated.Stock -= qty
		c.items[id] = &updated
		lg.Debug("Stock updated", zap.String("item_id", id), zap.Int("stock", updated.Stock))
	}
	return nil
}

type memTx struct {
	catalog  *Catalog
	locked   []string
	deducted map[string]int
	order    *order.Order
}

func (tx *memTx) isLocked(id string) bool {
	_, ok := slices.BinarySearch(tx.locked, id)
	return ok
}

// Item returns the item as it will be after the deductions buffered so far.
// Items this commit did not lock are reported as missing.
func (tx *memTx) Item(ctx context.Context, id string) (*item.Item, error) {
	if !tx.isLocked(id) {
		return nil, item.ErrNotFound
	}
	it, err := tx.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	it.Stock -= tx.deducted[id]
	return it, nil
}

func (tx *memTx) DeductStock(_ context.Context, id string, qty int) error {
	if !tx.isLocked(id) {
		return fmt.Errorf("deduct stock for %q: item not locked by this commit", id)
	}
	if qty <= 0 {
		return fmt.Errorf("deduct stock for %q: quantity %d must be positive", id, qty)
	}
	tx.deducted[id] += qty
	return nil
}

func (tx *memTx) CreateOrder(_ context.Context, o *order.Order) error {
	if tx.order != nil {
		return fmt.Errorf("create order %q: commit already holds order %q", o.ID, tx.order.ID)
	}
	tx.order = o
	return nil
}
