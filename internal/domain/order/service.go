package order

import (
	"context"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
)

const instrumentationName = "github.com/xenking/inventory-offers/internal/domain/order"

// DiscountResolver returns the best discount per item ID for a set of
// priced lines.
type DiscountResolver interface {
	Resolve(ctx context.Context, lines []offer.Line) (map[string]offer.Discount, error)
}

// ServiceConfig holds the optional collaborators of the Service. Nil fields
// fall back to no-op implementations.
type ServiceConfig struct {
	Publisher      Publisher
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service encapsulates order submission business logic.
type Service struct {
	store     Store
	resolver  DiscountResolver
	publisher Publisher
	now       func() time.Time

	tracer   trace.Tracer
	created  metric.Int64Counter
	rejected metric.Int64Counter
	discount metric.Float64Histogram
}

// NewService creates an order Service over the given store and resolver.
func NewService(store Store, resolver DiscountResolver, cfg ServiceConfig) (*Service, error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	created, err := meter.Int64Counter("inventory.orders.created",
		metric.WithDescription("Orders committed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	rejected, err := meter.Int64Counter("inventory.orders.rejected",
		metric.WithDescription("Order submissions rejected by validation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders rejected counter")
	}
	discount, err := meter.Float64Histogram("inventory.orders.discount",
		metric.WithDescription("Total discount granted per order"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order discount histogram")
	}

	return &Service{
		store:     store,
		resolver:  resolver,
		publisher: cfg.Publisher,
		now:       time.Now,
		tracer:    cfg.TracerProvider.Tracer(instrumentationName),
		created:   created,
		rejected:  rejected,
		discount:  discount,
	}, nil
}

// Submit validates the requested lines, prices them against the catalog,
// applies the best offer per line and commits the stock deduction together
// with the new order. Validation problems are accumulated and returned as a
// single *ValidationError; in that case no stock changes and no order is
// recorded.
func (s *Service) Submit(ctx context.Context, reqs []LineRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit",
		trace.WithAttributes(attribute.Int("order.lines", len(reqs))),
	)
	defer span.End()

	o, err := s.submit(ctx, reqs)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) || errors.Is(err, ErrEmptyOrder) {
			s.rejected.Add(ctx, 1)
			span.SetStatus(codes.Error, "validation failed")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.created.Add(ctx, 1)
	s.discount.Record(ctx, o.Discount.InexactFloat64())

	if s.publisher != nil {
		if err := s.publisher.OrderCreated(ctx, o); err != nil {
			// The order is already committed; downstream delivery is best effort.
			zctx.From(ctx).Warn("Publish order created", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

func (s *Service) submit(ctx context.Context, reqs []LineRequest) (*Order, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyOrder
	}

	lg := zctx.From(ctx)

	var created *Order
	err := s.store.Commit(ctx, itemIDs(reqs), func(ctx context.Context, tx Tx) error {
		lines, categories, err := validate(ctx, tx, reqs)
		if err != nil {
			return err
		}

		o, err := s.price(ctx, lines, categories)
		if err != nil {
			return err
		}

		for _, l := range o.Lines {
			if err := tx.DeductStock(ctx, l.ItemID, l.Quantity); err != nil {
				return errors.Wrapf(err, "deduct stock for %s", l.ItemID)
			}
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg.Info("Order created",
		zap.String("order_id", created.ID),
		zap.Int("lines", len(created.Lines)),
		zap.String("total", created.Total.String()),
		zap.String("discount", created.Discount.String()),
	)
	return created, nil
}

// validate checks every requested line and returns the merged, priced lines.
// Lines for the same item are merged into one (first-occurrence order) so
// stock is checked against the combined quantity.
func validate(ctx context.Context, tx Tx, reqs []LineRequest) ([]Line, map[string]string, error) {
	var (
		problems   []error
		lines      []Line
		index      = make(map[string]int, len(reqs))
		categories = make(map[string]string, len(reqs))
		stock      = make(map[string]int, len(reqs))
	)

	for _, req := range reqs {
		it, err := tx.Item(ctx, req.ItemID)
		if err != nil {
			if errors.Is(err, item.ErrNotFound) {
				problems = append(problems, &ItemNotFoundError{ItemID: req.ItemID})
				continue
			}
			return nil, nil, errors.Wrapf(err, "get item %s", req.ItemID)
		}

		if req.Quantity <= 0 {
			problems = append(problems, &InvalidQuantityError{ItemID: req.ItemID, Quantity: req.Quantity})
			continue
		}

		if i, ok := index[req.ItemID]; ok {
			// Saturate so an overflowing sum still fails the stock check.
			if lines[i].Quantity > math.MaxInt-req.Quantity {
				lines[i].Quantity = math.MaxInt
			} else {
				lines[i].Quantity += req.Quantity
			}
			continue
		}
		index[req.ItemID] = len(lines)
		categories[req.ItemID] = it.Category
		stock[req.ItemID] = it.Stock
		lines = append(lines, Line{
			ItemID:    req.ItemID,
			Quantity:  req.Quantity,
			UnitPrice: it.Price,
			Discount:  decimal.Zero,
		})
	}

	for _, l := range lines {
		if available := stock[l.ItemID]; l.Quantity > available {
			problems = append(problems, &InsufficientStockError{
				ItemID:    l.ItemID,
				Available: available,
				Requested: l.Quantity,
			})
		}
	}

	if len(problems) > 0 {
		return nil, nil, &ValidationError{Problems: problems}
	}
	return lines, categories, nil
}

// price resolves discounts for the validated lines and builds the order.
func (s *Service) price(ctx context.Context, lines []Line, categories map[string]string) (*Order, error) {
	offerLines := make([]offer.Line, len(lines))
	for i, l := range lines {
		offerLines[i] = offer.Line{
			ItemID:    l.ItemID,
			Category:  categories[l.ItemID],
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
	}

	discounts, err := s.resolver.Resolve(ctx, offerLines)
	if err != nil {
		return nil, errors.Wrap(err, "resolve discounts")
	}

	total := decimal.Zero
	discount := decimal.Zero
	for i := range lines {
		l := &lines[i]
		subtotal := l.Subtotal()
		total = total.Add(subtotal)

		d, ok := discounts[l.ItemID]
		if !ok {
			continue
		}
		// A line discount stays within [0, subtotal].
		amount := decimal.Min(decimal.Max(d.Amount, decimal.Zero), subtotal)
		l.OfferID = d.OfferID
		l.Discount = amount
		discount = discount.Add(amount)
	}

	return &Order{
		ID:        uuid.New().String(),
		Lines:     lines,
		Total:     total,
		Discount:  discount,
		Final:     total.Sub(discount),
		CreatedAt: s.now().UTC(),
	}, nil
}

// itemIDs returns the distinct item IDs referenced by reqs.
func itemIDs(reqs []LineRequest) []string {
	seen := make(map[string]struct{}, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		ids = append(ids, r.ItemID)
	}
	return ids
}
