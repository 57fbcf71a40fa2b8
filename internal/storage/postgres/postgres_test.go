//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/domain/order"
	"github.com/xenking/inventory-offers/internal/seed"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "inventory",
				"POSTGRES_PASSWORD": "inventory",
				"POSTGRES_DB":       "inventory",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pg.Terminate(context.Background()) }()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://inventory:inventory@%s:%s/inventory?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

func resetTables(t *testing.T) *Store {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE order_lines, orders, offers, items`)
	require.NoError(t, err)
	return NewStore(testPool)
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestItemRepository(t *testing.T) {
	ctx := context.Background()
	s := resetTables(t)
	repo := s.Items()

	require.NoError(t, repo.Create(ctx, &item.Item{ID: "a", Name: "Laptop", Price: d("999.99"), Stock: 15, Category: "Electronics"}))

	it, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d("999.99").Equal(it.Price))

	updated, err := repo.Update(ctx, "a", func(it *item.Item) error {
		it.Stock = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)

	require.NoError(t, repo.Upsert(ctx, &item.Item{ID: "a", Name: "Laptop Pro", Price: d("1"), Stock: 1}))
	it, err = repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Laptop Pro", it.Name)

	require.NoError(t, repo.Delete(ctx, "a"))
	_, err = repo.GetByID(ctx, "a")
	require.ErrorIs(t, err, item.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "a"), item.ErrNotFound)
}

func TestOfferRepository_Order(t *testing.T) {
	ctx := context.Background()
	s := resetTables(t)
	repo := s.Offers()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"o3", "o1", "o2"} {
		require.NoError(t, repo.Create(ctx, &offer.Offer{
			ID: id, Name: id, Kind: offer.KindPercentage, Value: d("10"),
			Items: []string{"x"}, StartsAt: &start, Active: true,
		}))
	}
	_, err := repo.Update(ctx, "o1", func(o *offer.Offer) error {
		o.Name = "renamed"
		return nil
	})
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"o3", "o1", "o2"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "renamed", list[1].Name)
	require.NotNil(t, list[0].StartsAt)
	assert.True(t, start.Equal(*list[0].StartsAt))
	assert.Nil(t, list[0].EndsAt)
}

func TestStore_Submit(t *testing.T) {
	ctx := context.Background()
	s := resetTables(t)

	c, err := seed.Default()
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, c, s.Items().Upsert, s.Offers().Upsert))

	svc, err := order.NewService(s, offer.NewResolver(s.Offers()), order.ServiceConfig{})
	require.NoError(t, err)

	laptop := c.Items[0]
	o, err := svc.Submit(ctx, []order.LineRequest{{ItemID: laptop.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.True(t, d("1999.98").Equal(o.Total))
	assert.True(t, d("399.996").Equal(o.Discount))

	stored, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, c.Offers[0].ID, stored.Lines[0].OfferID)
	assert.True(t, o.Final.Equal(stored.Final))

	_, err = svc.Submit(ctx, []order.LineRequest{{ItemID: laptop.ID, Quantity: 100}})
	var isErr *order.InsufficientStockError
	require.ErrorAs(t, err, &isErr)

	it, err := s.Items().GetByID(ctx, laptop.ID)
	require.NoError(t, err)
	assert.Equal(t, laptop.Stock-2, it.Stock)

	orders, err := s.Orders().List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestStore_SubmitKeepsSixDecimals(t *testing.T) {
	ctx := context.Background()
	s := resetTables(t)
	require.NoError(t, s.Items().Create(ctx, &item.Item{ID: "p", Name: "Pen", Price: d("0.99"), Stock: 10}))
	require.NoError(t, s.Offers().Create(ctx, &offer.Offer{
		ID: "pct", Name: "Odd percent", Kind: offer.KindPercentage, Value: d("12.34"),
		Items: []string{"p"}, Active: true,
	}))

	svc, err := order.NewService(s, offer.NewResolver(s.Offers()), order.ServiceConfig{})
	require.NoError(t, err)

	o, err := svc.Submit(ctx, []order.LineRequest{{ItemID: "p", Quantity: 1}})
	require.NoError(t, err)
	require.True(t, d("0.122166").Equal(o.Discount), "discount %s", o.Discount)

	stored, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, o.Discount.Equal(stored.Discount), "stored discount %s", stored.Discount)
	assert.True(t, o.Final.Equal(stored.Final), "stored final %s", stored.Final)
	assert.True(t, d("0.122166").Equal(stored.Lines[0].Discount), "stored line discount %s", stored.Lines[0].Discount)
}

func TestStore_ConcurrentSubmitsNeverOversell(t *testing.T) {
	ctx := context.Background()
	s := resetTables(t)
	require.NoError(t, s.Items().Create(ctx, &item.Item{ID: "a", Name: "A", Price: d("10"), Stock: 10}))

	svc, err := order.NewService(s, offer.NewResolver(s.Offers()), order.ServiceConfig{})
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Submit(ctx, []order.LineRequest{{ItemID: "a", Quantity: 1}}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	it, err := s.Items().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, it.Stock)
}
