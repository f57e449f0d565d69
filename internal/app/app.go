// Package app wires the api-server: storage, domain services, the GraphQL
// handler and the HTTP server lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/domain/report"
	"github.com/xenking/crm/internal/handler"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/internal/validation"
	"github.com/xenking/crm/pkg/health"
	"github.com/xenking/crm/pkg/httpmiddleware"
)

// Run builds every dependency, serves until ctx is done and then drains.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	probes := health.New()
	probes.Ready("postgres", 5*time.Second, health.Ping(pool))
	probes.Live("goroutines", time.Second, health.Goroutines(10000))
	probes.Live("gc", time.Second, health.GCPause(time.Second))
	probes.Start(ctx, 10*time.Second)
	defer probes.Stop()

	h, err := newHandler(ctx, cfg, pool, probes, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           h,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		probes.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	probes.SetReady(true)
	return g.Wait()
}

// newHandler builds the routed and instrumented HTTP handler over pool.
func newHandler(
	ctx context.Context,
	cfg *Config,
	pool *pgxpool.Pool,
	probes *health.Registry,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (http.Handler, error) {
	customers := postgres.NewCustomerRepository(pool)
	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	validate := validation.New()

	gql, err := handler.New(handler.Services{
		Customers: customer.NewService(customers, validate),
		Products:  product.NewService(products, validate),
		Orders:    order.NewService(customers, products, orders),
		Reports:   report.NewService(customers, orders),
	}, tp, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create graphql handler")
	}

	router := chi.NewRouter()
	router.Use(
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			Headers:          []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           24 * time.Hour,
		}),
		httpmiddleware.LogRequests(),
	)
	probes.Mount(router)
	router.With(httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
		Burst: cfg.RateLimit.Burst,
		Per:   cfg.RateLimit.Per,
	})).Post("/graphql", gql.ServeHTTP)

	return httpmiddleware.Wrap(router,
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(),
		httpmiddleware.Instrument("crm-api", tp, mp),
	), nil
}
