package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inventory-offers/internal/domain/offer"
)

const (
	offerColumns = `id, name, description, offer_type, discount_value, min_quantity,
		applicable_items, start_date, end_date, is_active`

	listOffersSQL = `SELECT ` + offerColumns + ` FROM offers ORDER BY position`

	getOfferByIDSQL = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	getOfferForUpdateSQL = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`

	createOfferSQL = `INSERT INTO offers (id, name, description, offer_type, discount_value, min_quantity,
		applicable_items, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	upsertOfferSQL = createOfferSQL + `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			offer_type = EXCLUDED.offer_type,
			discount_value = EXCLUDED.discount_value,
			min_quantity = EXCLUDED.min_quantity,
			applicable_items = EXCLUDED.applicable_items,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			is_active = EXCLUDED.is_active`

	updateOfferSQL = `UPDATE offers SET
		name = $2, description = $3, offer_type = $4, discount_value = $5, min_quantity = $6,
		applicable_items = $7, start_date = $8, end_date = $9, is_active = $10
		WHERE id = $1`

	deleteOfferSQL = `DELETE FROM offers WHERE id = $1`
)

var _ offer.Repository = (*OfferRepository)(nil)

// OfferRepository implements offer.Repository backed by PostgreSQL. Offers
// are listed in insertion order via the position column.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

func (r *OfferRepository) List(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	return getOffer(ctx, r.pool, getOfferByIDSQL, id)
}

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	if _, err := r.pool.Exec(ctx, createOfferSQL, offerArgs(o)...); err != nil {
		return fmt.Errorf("creating offer %q: %w", o.ID, err)
	}
	return nil
}

// Upsert inserts the offer or overwrites an existing row with the same ID,
// keeping its position.
func (r *OfferRepository) Upsert(ctx context.Context, o *offer.Offer) error {
	if _, err := r.pool.Exec(ctx, upsertOfferSQL, offerArgs(o)...); err != nil {
		return fmt.Errorf("upserting offer %q: %w", o.ID, err)
	}
	return nil
}

func (r *OfferRepository) Update(ctx context.Context, id string, fn func(*offer.Offer) error) (*offer.Offer, error) {
	var updated *offer.Offer
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := getOffer(ctx, tx, getOfferForUpdateSQL, id)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		o.ID = id
		if _, err := tx.Exec(ctx, updateOfferSQL, offerArgs(o)...); err != nil {
			return fmt.Errorf("updating offer %q: %w", id, err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OfferRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOfferSQL, id)
	if err != nil {
		return fmt.Errorf("deleting offer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrNotFound
	}
	return nil
}

func getOffer(ctx context.Context, q querier, sql, id string) (*offer.Offer, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}
	return &o, nil
}

func offerArgs(o *offer.Offer) []any {
	items := o.Items
	if items == nil {
		items = []string{}
	}
	return []any{
		o.ID, o.Name, o.Description, string(o.Kind), o.Value, o.MinQuantity,
		items, o.StartsAt, o.EndsAt, o.Active,
	}
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var (
		o    offer.Offer
		kind string
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Description, &kind, &o.Value, &o.MinQuantity,
		&o.Items, &o.StartsAt, &o.EndsAt, &o.Active,
	)
	o.Kind = offer.Kind(kind)
	return o, err
}
