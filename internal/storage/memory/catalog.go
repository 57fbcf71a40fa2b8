// Package memory implements the catalog, offer and order stores in process
// memory. It backs the service when no database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

var _ item.Repository = (*Catalog)(nil)

// Catalog is an in-memory item.Repository.
//
// Every stored item has a stock lock, created with the item and dropped on
// delete. Writers that change an existing item (order commits and
// Update/Delete) hold that lock first and take mu only for the short copy in
// or out, so lock order is always item lock, then mu.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]*item.Item
	ids   []string // insertion order
	locks map[string]*sync.Mutex
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		items: make(map[string]*item.Item),
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *Catalog) lockFor(id string) *sync.Mutex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locks[id]
}

// acquire locks the stock lock of a stored item. It returns nil when the item
// does not exist. A lock dropped by Delete while waiting is released and the
// lookup repeated, so the returned lock is always the item's current one.
func (c *Catalog) acquire(id string) *sync.Mutex {
	for {
		l := c.lockFor(id)
		if l == nil {
			return nil
		}
		l.Lock()
		if c.lockFor(id) == l {
			return l
		}
		l.Unlock()
	}
}

// List returns every item in insertion order.
func (c *Catalog) List(_ context.Context) ([]item.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]item.Item, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, *c.items[id])
	}
	return out, nil
}

// GetByID returns a copy of the item or item.ErrNotFound.
func (c *Catalog) GetByID(_ context.Context, id string) (*item.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[id]
	if !ok {
		return nil, item.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

// GetByIDs returns the items that exist among ids. Missing IDs are skipped.
func (c *Catalog) GetByIDs(_ context.Context, ids []string) ([]item.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := c.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

// Create stores a copy of it. The ID must be set and unused.
func (c *Catalog) Create(_ context.Context, it *item.Item) error {
	if it.ID == "" {
		return fmt.Errorf("creating item: empty id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[it.ID]; ok {
		return fmt.Errorf("creating item %q: already exists", it.ID)
	}
	cp := *it
	c.items[it.ID] = &cp
	c.ids = append(c.ids, it.ID)
	c.locks[it.ID] = new(sync.Mutex)
	return nil
}

// Update runs fn on a copy of the stored item under its stock lock and saves
// the result if fn succeeds.
func (c *Catalog) Update(_ context.Context, id string, fn func(*item.Item) error) (*item.Item, error) {
	l := c.acquire(id)
	if l == nil {
		return nil, item.ErrNotFound
	}
	defer l.Unlock()

	c.mu.RLock()
	stored, ok := c.items[id]
	var cp item.Item
	if ok {
		cp = *stored
	}
	c.mu.RUnlock()
	if !ok {
		return nil, item.ErrNotFound
	}

	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.ID = id

	c.mu.Lock()
	c.items[id] = &cp
	c.mu.Unlock()

	out := cp
	return &out, nil
}

// Delete removes the item under its stock lock.
func (c *Catalog) Delete(_ context.Context, id string) error {
	l := c.acquire(id)
	if l == nil {
		return item.ErrNotFound
	}
	defer l.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, id)
	delete(c.locks, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return nil
}
