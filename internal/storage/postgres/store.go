package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/order"
)

const (
	lockItemsSQL = `SELECT id FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	deductStockSQL = `UPDATE items SET stock = stock - $2 WHERE id = $1 AND stock >= $2 RETURNING stock`
)

var _ order.Store = (*Store)(nil)

// Store bundles the postgres repositories and implements order.Store with a
// single transaction per commit.
type Store struct {
	pool   *pgxpool.Pool
	items  *ItemRepository
	offers *OfferRepository
	orders *OrderRepository
}

// NewStore returns a Store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		items:  NewItemRepository(pool),
		offers: NewOfferRepository(pool),
		orders: NewOrderRepository(pool),
	}
}

func (s *Store) Items() *ItemRepository   { return s.items }
func (s *Store) Offers() *OfferRepository { return s.offers }
func (s *Store) Orders() *OrderRepository { return s.orders }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Commit opens a transaction, row-locks every item in itemIDs in ID order and
// runs fn. The transaction commits only if fn succeeds.
func (s *Store) Commit(ctx context.Context, itemIDs []string, fn func(ctx context.Context, tx order.Tx) error) error {
	ids := slices.Clone(itemIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockItemsSQL, ids)
		if err != nil {
			return fmt.Errorf("locking items: %w", err)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("locking items: %w", err)
		}

		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Item(ctx context.Context, id string) (*item.Item, error) {
	return getItem(ctx, t.tx, getItemByIDSQL, id)
}

// DeductStock decrements stock only while stock >= qty.
func (t *pgTx) DeductStock(ctx context.Context, id string, qty int) error {
	var stock int
	err := t.tx.QueryRow(ctx, deductStockSQL, id, qty).Scan(&stock)
	if err == nil {
		zctx.From(ctx).Debug("Stock updated", zap.String("item_id", id), zap.Int("stock", stock))
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("deducting stock for %q: %w", id, err)
	}

	it, getErr := t.Item(ctx, id)
	if getErr != nil {
		return &order.ItemNotFoundError{ItemID: id}
	}
	return &order.InsufficientStockError{ItemID: id, Available: it.Stock, Requested: qty}
}

func (t *pgTx) CreateOrder(ctx context.Context, o *order.Order) error {
	return insertOrder(ctx, t.tx, o)
}
