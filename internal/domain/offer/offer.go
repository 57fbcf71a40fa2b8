package offer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported offer discount strategies.
type Kind string

const (
	// KindPercentage takes a percentage off each applicable line.
	KindPercentage Kind = "percentage"
	// KindFixed takes a fixed amount off each applicable line, capped at the
	// line subtotal.
	KindFixed Kind = "fixed"
	// KindBuyXGetY is accepted and stored but never produces a discount.
	KindBuyXGetY Kind = "buy_x_get_y"
)

// Known reports whether k is one of the supported kinds.
func (k Kind) Known() bool {
	switch k {
	case KindPercentage, KindFixed, KindBuyXGetY:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when a requested offer does not exist.
	ErrNotFound = errors.New("offer not found")
	// ErrInvalid is wrapped by Validate when an offer is malformed.
	ErrInvalid = errors.New("invalid offer")
)

// UnknownItemsError lists applicable item IDs that are absent from the catalog.
type UnknownItemsError struct {
	IDs []string
}

func (e *UnknownItemsError) Error() string {
	return fmt.Sprintf("unknown item ids: %s", strings.Join(e.IDs, ", "))
}

// Offer is a time-bounded promotional rule targeting a set of items.
type Offer struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	Value       decimal.Decimal
	// MinQuantity is the per-line quantity threshold for fixed offers.
	// Zero means no threshold.
	MinQuantity int
	Items       []string
	StartsAt    *time.Time
	EndsAt      *time.Time
	Active      bool
}

// AppliesTo reports whether itemID is in the offer's applicable set.
func (o *Offer) AppliesTo(itemID string) bool {
	for _, id := range o.Items {
		if id == itemID {
			return true
		}
	}
	return false
}

// ValidAt reports whether the offer is active and its validity window, with
// inclusive bounds, contains now.
func (o *Offer) ValidAt(now time.Time) bool {
	if !o.Active {
		return false
	}
	if o.StartsAt != nil && o.StartsAt.After(now) {
		return false
	}
	if o.EndsAt != nil && o.EndsAt.Before(now) {
		return false
	}
	return true
}

// Validate checks the offer definition. It does not check that the
// applicable items exist; Service does that against the catalog.
func (o *Offer) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalid)
	}
	if !o.Kind.Known() {
		return fmt.Errorf("%w: unsupported offer type %q", ErrInvalid, o.Kind)
	}
	if o.Value.IsNegative() {
		return fmt.Errorf("%w: discount value must not be negative", ErrInvalid)
	}
	if o.Kind == KindPercentage && o.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage must not exceed 100", ErrInvalid)
	}
	if o.MinQuantity < 0 {
		return fmt.Errorf("%w: min quantity must not be negative", ErrInvalid)
	}
	if o.StartsAt != nil && o.EndsAt != nil && o.EndsAt.Before(*o.StartsAt) {
		return fmt.Errorf("%w: end date before start date", ErrInvalid)
	}
	return nil
}

// Patch holds a partial offer update. Nil fields are left untouched; the
// Clear flags reset an optional bound to "unbounded".
type Patch struct {
	Name          *string
	Description   *string
	Kind          *Kind
	Value         *decimal.Decimal
	MinQuantity   *int
	Items         []string
	StartsAt      *time.Time
	ClearStartsAt bool
	EndsAt        *time.Time
	ClearEndsAt   bool
	Active        *bool
}

// Apply copies the set fields of p onto o.
func (p Patch) Apply(o *Offer) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.Kind != nil {
		o.Kind = *p.Kind
	}
	if p.Value != nil {
		o.Value = *p.Value
	}
	if p.MinQuantity != nil {
		o.MinQuantity = *p.MinQuantity
	}
	if p.Items != nil {
		o.Items = append([]string(nil), p.Items...)
	}
	switch {
	case p.ClearStartsAt:
		o.StartsAt = nil
	case p.StartsAt != nil:
		t := *p.StartsAt
		o.StartsAt = &t
	}
	switch {
	case p.ClearEndsAt:
		o.EndsAt = nil
	case p.EndsAt != nil:
		t := *p.EndsAt
		o.EndsAt = &t
	}
	if p.Active != nil {
		o.Active = *p.Active
	}
}

// Lister enumerates offers in a deterministic order.
type Lister interface {
	List(ctx context.Context) ([]Offer, error)
}

// Repository provides offer lookup and management. List returns offers in
// insertion order, which fixes the tie-break outcome of Resolver.
type Repository interface {
	Lister
	GetByID(ctx context.Context, id string) (*Offer, error)
	Create(ctx context.Context, o *Offer) error
	Update(ctx context.Context, id string, fn func(*Offer) error) (*Offer, error)
	Delete(ctx context.Context, id string) error
}
