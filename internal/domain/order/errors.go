package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// ErrEmptyOrder is returned when a submission contains no lines.
var ErrEmptyOrder = errors.New("items required")

// ItemNotFoundError indicates a requested item does not exist in the catalog.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	ItemID   string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity for item %s must be greater than 0", e.ItemID)
}

// InsufficientStockError indicates the catalog cannot cover the requested
// quantity of an item.
type InsufficientStockError struct {
	ItemID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for item %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

// ValidationError collects every problem found in a submission.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := e.Messages()
	return "order validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Messages returns the human-readable problem list in submission order.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return msgs
}
