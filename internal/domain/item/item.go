package item

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrInvalid is wrapped by Validate when an item violates a catalog invariant.
	ErrInvalid = errors.New("invalid item")
)

// Item is a purchasable catalog entry.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
}

// Validate checks the catalog invariants: a name, a non-negative price and a
// non-negative stock level.
func (it *Item) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if it.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalid)
	}
	if it.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalid)
	}
	return nil
}

// Patch holds a partial item update. Nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
}

// Apply copies the set fields of p onto it.
func (p Patch) Apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Stock != nil {
		it.Stock = *p.Stock
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
}

// Repository defines catalog reads and management writes.
//
// Update runs fn against the stored item while holding the item's stock lock,
// so a management edit never overwrites a concurrent order deduction.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, id string, fn func(*Item) error) (*Item, error)
	Delete(ctx context.Context, id string) error
}
