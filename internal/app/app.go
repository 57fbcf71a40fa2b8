package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/domain/order"
	"github.com/xenking/inventory-offers/internal/events"
	"github.com/xenking/inventory-offers/internal/handler"
	"github.com/xenking/inventory-offers/internal/seed"
	"github.com/xenking/inventory-offers/internal/storage/memory"
	"github.com/xenking/inventory-offers/internal/storage/postgres"
	"github.com/xenking/inventory-offers/pkg/health"
	"github.com/xenking/inventory-offers/pkg/httpmiddleware"
)

// backend is the storage selected by Config.Storage.
type backend struct {
	items  item.Repository
	offers offer.Repository
	orders order.Repository
	store  order.Store
	pinger health.Pinger
	close  func()
}

func openBackend(ctx context.Context, lg *zap.Logger, cfg *Config) (*backend, error) {
	if cfg.Storage == StoragePostgres {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		s := postgres.NewStore(pool)
		return &backend{
			items:  s.Items(),
			offers: s.Offers(),
			orders: s.Orders(),
			store:  s,
			pinger: s,
			close:  pool.Close,
		}, nil
	}

	s := memory.New()
	if cfg.Seed {
		c, err := seed.Default()
		if err != nil {
			return nil, errors.Wrap(err, "load sample catalog")
		}
		if err := seed.Apply(ctx, c, s.Items().Create, s.Offers().Create); err != nil {
			return nil, errors.Wrap(err, "seed memory store")
		}
		lg.Info("Sample catalog loaded",
			zap.Int("items", len(c.Items)),
			zap.Int("offers", len(c.Offers)),
		)
	}
	return &backend{
		items:  s.Items(),
		offers: s.Offers(),
		orders: s.Orders(),
		store:  s,
		close:  func() {},
	}, nil
}

// service is the assembled API: the middleware-wrapped mux plus what Run
// needs to shut it down.
type service struct {
	handler http.Handler
	health  *health.Health
	close   func()
}

// telemetry is the subset of *app.Telemetry used to instrument the service.
type telemetry interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

func newService(ctx context.Context, lg *zap.Logger, m telemetry, cfg *Config) (_ *service, rerr error) {
	b, err := openBackend(ctx, lg, cfg)
	if err != nil {
		return nil, err
	}
	closers := []func(){b.close}
	defer func() {
		if rerr != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Order events.
	var publisher order.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		k := events.NewKafka(events.NewKafkaWriter(events.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}))
		closers = append(closers, func() {
			if err := k.Close(); err != nil {
				lg.Warn("Close kafka writer", zap.Error(err))
			}
		})
		publisher = k
		lg.Info("Publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Health checks.
	healthSvc := health.New()
	healthSvc.Register(health.Check{
		Name:    "goroutines",
		Kind:    health.Liveness,
		Timeout: time.Second,
		Func:    health.Goroutines(10000),
	})
	if b.pinger != nil {
		healthSvc.Register(health.Check{
			Name:             cfg.Storage,
			Kind:             health.Readiness,
			Timeout:          5 * time.Second,
			Func:             health.Ping(b.pinger),
			FailureThreshold: 2,
		})
	}

	// Domain services.
	offerService := offer.NewService(b.offers, b.items)
	orderService, err := order.NewService(b.store, offer.NewResolver(b.offers), order.ServiceConfig{
		Publisher:      publisher,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(
		handler.HandlerConfig{MaxBodyBytes: cfg.MaxBodySize},
		b.items,
		offerService,
		orderService,
		b.orders,
	)

	mux := http.NewServeMux()
	healthSvc.Mount(mux)
	h.Register(mux)

	api := httpmiddleware.Wrap(mux,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.LogRequests(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			Headers:          []string{"Content-Type", httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
	)

	return &service{
		handler: otelhttp.NewHandler(api, "inventory-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
		health: healthSvc,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	svc, err := newService(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	svc.health.Start(ctx, 10*time.Second)
	svc.health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.handler,
	}

	// Graceful shutdown: wait for cancellation or a server error, drain,
	// then stop.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		svc.health.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		svc.health.Stop()
		return nil
	})
	return g.Wait()
}
