package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inventory-offers/internal/domain/item"
)

const (
	itemColumns = `id, name, description, price, stock, category`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM items ORDER BY created_at, id`

	getItemByIDSQL = `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	getItemForUpdateSQL = `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	getItemsByIDsSQL = `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1) ORDER BY id`

	createItemSQL = `INSERT INTO items (id, name, description, price, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6)`

	upsertItemSQL = `INSERT INTO items (id, name, description, price, stock, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			category = EXCLUDED.category`

	updateItemSQL = `UPDATE items
		SET name = $2, description = $3, price = $4, stock = $5, category = $6
		WHERE id = $1`

	deleteItemSQL = `DELETE FROM items WHERE id = $1`
)

var _ item.Repository = (*ItemRepository)(nil)

// ItemRepository implements item.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns all items in creation order.
func (r *ItemRepository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	return getItem(ctx, r.pool, getItemByIDSQL, id)
}

// GetByIDs returns items matching any of the given IDs.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting items by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	if _, err := r.pool.Exec(ctx, createItemSQL, itemArgs(it)...); err != nil {
		return fmt.Errorf("creating item %q: %w", it.ID, err)
	}
	return nil
}

// Upsert inserts the item or overwrites an existing row with the same ID.
func (r *ItemRepository) Upsert(ctx context.Context, it *item.Item) error {
	if _, err := r.pool.Exec(ctx, upsertItemSQL, itemArgs(it)...); err != nil {
		return fmt.Errorf("upserting item %q: %w", it.ID, err)
	}
	return nil
}

// Update locks the row, runs fn on it and writes the result back in the same
// transaction.
func (r *ItemRepository) Update(ctx context.Context, id string, fn func(*item.Item) error) (*item.Item, error) {
	var updated *item.Item
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		it, err := getItem(ctx, tx, getItemForUpdateSQL, id)
		if err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
		it.ID = id
		if _, err := tx.Exec(ctx, updateItemSQL, itemArgs(it)...); err != nil {
			return fmt.Errorf("updating item %q: %w", id, err)
		}
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteItemSQL, id)
	if err != nil {
		return fmt.Errorf("deleting item %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return item.ErrNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getItem(ctx context.Context, q querier, sql, id string) (*item.Item, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %q: %w", id, err)
	}
	return &it, nil
}

func itemArgs(it *item.Item) []any {
	return []any{it.ID, it.Name, it.Description, it.Price, it.Stock, it.Category}
}

func scanItem(row pgx.CollectableRow) (item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Stock, &it.Category)
	return it, err
}
