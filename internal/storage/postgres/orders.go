package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/inventory-offers/internal/domain/order"
)

const (
	listOrdersSQL = `SELECT id, total_amount, discount_amount, final_amount, created_at
		FROM orders ORDER BY created_at, id`

	getOrderByIDSQL = `SELECT id, total_amount, discount_amount, final_amount, created_at
		FROM orders WHERE id = $1`

	listOrderLinesSQL = `SELECT order_id, item_id, quantity, unit_price, applied_offer_id, discount_amount
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, line_no`

	createOrderSQL = `INSERT INTO orders (id, total_amount, discount_amount, final_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`
)

var orderLineColumns = []string{
	"order_id", "line_no", "item_id", "quantity", "unit_price", "applied_offer_id", "discount_amount",
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns the order history in creation order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) attachLines(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			offerID *string
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ItemID, &l.Quantity, &l.UnitPrice, &offerID, &l.Discount); err != nil {
			return fmt.Errorf("scanning order line: %w", err)
		}
		if offerID != nil {
			l.OfferID = *offerID
		}
		i := byID[orderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	return nil
}

// insertOrder writes the order header and its lines inside tx.
func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	if _, err := tx.Exec(ctx, createOrderSQL, o.ID, o.Total, o.Discount, o.Final, o.CreatedAt); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	rows := make([][]any, len(o.Lines))
	for i, l := range o.Lines {
		var offerID any
		if l.OfferID != "" {
			offerID = l.OfferID
		}
		rows[i] = []any{o.ID, i, l.ItemID, l.Quantity, l.UnitPrice, offerID, l.Discount}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_lines"}, orderLineColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("creating lines of order %q: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.Total, &o.Discount, &o.Final, &o.CreatedAt)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, err
}
