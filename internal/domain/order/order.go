package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is an immutable record of a committed submission.
type Order struct {
	ID        string
	Lines     []Line
	Total     decimal.Decimal
	Discount  decimal.Decimal
	Final     decimal.Decimal
	CreatedAt time.Time
}

// Line is a single priced entry of an order. UnitPrice is the catalog price
// captured at submission time.
type Line struct {
	ItemID    string
	Quantity  int
	UnitPrice decimal.Decimal
	OfferID   string
	Discount  decimal.Decimal
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineRequest is one requested (item, quantity) pair.
type LineRequest struct {
	ItemID   string
	Quantity int
}

// Repository reads the order history.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
}

// Tx is the view of the store inside a commit. Reads see the locked items;
// writes become visible only when the enclosing Commit succeeds.
type Tx interface {
	Item(ctx context.Context, id string) (*item.Item, error)
	DeductStock(ctx context.Context, id string, qty int) error
	CreateOrder(ctx context.Context, o *Order) error
}

// Store is the serialization boundary for order submission. Commit holds an
// exclusive stock lock on every item in itemIDs while fn runs. If fn returns
// an error nothing it did through tx is applied.
type Store interface {
	Commit(ctx context.Context, itemIDs []string, fn func(ctx context.Context, tx Tx) error) error
}

// Publisher announces committed orders to downstream consumers.
type Publisher interface {
	OrderCreated(ctx context.Context, o *Order) error
}
