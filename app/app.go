package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jekabolt/grbpwr-insights/config"
	"github.com/jekabolt/grbpwr-insights/internal/analytics/ga4"
	httpapi "github.com/jekabolt/grbpwr-insights/internal/api/http"
	"github.com/jekabolt/grbpwr-insights/internal/cache"
	"github.com/jekabolt/grbpwr-insights/internal/compare"
	"github.com/jekabolt/grbpwr-insights/internal/coupon"
	"github.com/jekabolt/grbpwr-insights/internal/dashboard"
	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/ingest"
	"github.com/jekabolt/grbpwr-insights/internal/insight"
	"github.com/jekabolt/grbpwr-insights/internal/metrics"
	"github.com/jekabolt/grbpwr-insights/internal/ordersource"
	"github.com/jekabolt/grbpwr-insights/internal/period"
	"github.com/jekabolt/grbpwr-insights/internal/ratelimit"
	"github.com/jekabolt/grbpwr-insights/internal/shipping"
	"github.com/jekabolt/grbpwr-insights/internal/store"
	"github.com/jekabolt/grbpwr-insights/internal/telemetry"
)

// App is the main application
type App struct {
	hs    *httpapi.Server
	db    *store.MYSQLStore
	cache cache.Store
	c     *config.Config
	done  chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start wires every component and starts the API server.
func (a *App) Start(ctx context.Context) error {
	var err error
	slog.Default().InfoContext(ctx, "starting insights service")

	telemetry.Init()

	a.db, err = store.New(ctx, a.c.DB)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't connect to mysql", slog.String("err", err.Error()))
		return err
	}

	d, err := a.dashboard(ctx)
	if err != nil {
		return err
	}

	a.hs = httpapi.New(&a.c.HTTP, d, a.db)
	if err = a.hs.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server", slog.String("err", err.Error()))
		return err
	}

	go func() {
		<-a.hs.Done()
		a.close()
	}()

	return nil
}

func (a *App) dashboard(ctx context.Context) (*dashboard.Service, error) {
	clock := dependency.SystemClock{}

	resolver, err := period.New(&a.c.Period, clock)
	if err != nil {
		slog.Default().ErrorContext(ctx, "invalid period settings", slog.String("err", err.Error()))
		return nil, err
	}

	a.cache, err = cache.NewStore(ctx, &a.c.Cache)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create order cache", slog.String("err", err.Error()))
		return nil, err
	}
	pages := cache.New(a.cache, a.c.Cache.TTL, clock)

	source := ordersource.New(&a.c.OrderSource)
	ingestor := ingest.New(&a.c.Ingest, source, pages)
	aggregator := metrics.New(&a.c.Metrics)

	mapping, err := shipping.LoadMapping(a.c.Shipping.MappingFile)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't load shipping mapping", slog.String("err", err.Error()))
		return nil, err
	}
	slog.Default().InfoContext(ctx, "shipping mapping loaded",
		slog.Int("orders", mapping.Len()),
	)
	reconciler := shipping.New(&a.c.Shipping, a.db, mapping, ratelimit.NewInterval(a.c.Shipping.LookupInterval))

	coupons := coupon.New(&a.c.Coupon, reconciler)
	comparer := compare.New(ingestor, aggregator)

	var vendors []dependency.InsightsSource
	gc, err := ga4.NewClient(ctx, &a.c.GA4)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't create ga4 client", slog.String("err", err.Error()))
		return nil, err
	}
	if gc.Enabled() {
		vendors = append(vendors, gc)
	}
	for i := range a.c.Vendors {
		vendors = append(vendors, insight.New(&a.c.Vendors[i]))
	}

	return dashboard.New(resolver, ingestor, aggregator, coupons, reconciler, comparer, vendors...), nil
}

// Stop shuts the API server down and releases connections.
func (a *App) Stop(ctx context.Context) {
	if a.hs != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.hs.Shutdown(shutdownCtx); err != nil {
			slog.Default().ErrorContext(ctx, "http server shutdown failed", slog.String("err", err.Error()))
		}
		<-a.hs.Done()
		return
	}
	a.close()
}

func (a *App) close() {
	if c, ok := a.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Default().Warn("can't close order cache", slog.String("err", err.Error()))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
