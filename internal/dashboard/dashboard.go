// Package dashboard runs one query through the whole pipeline: period
// resolution, ingestion, aggregation, the best-effort enrichment stages and
// the optional comparison.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jekabolt/grbpwr-insights/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// ErrOrdersUnavailable wraps every failure to ingest the primary period.
var ErrOrdersUnavailable = errors.New("failed to load orders")

type Service struct {
	resolver   dependency.PeriodResolver
	ingestor   dependency.Ingestor
	aggregator dependency.Aggregator
	coupons    dependency.CouponAnalyzer
	shipping   dependency.ShippingReconciler
	comparer   dependency.Comparer
	vendors    []dependency.InsightsSource
}

func New(
	resolver dependency.PeriodResolver,
	ingestor dependency.Ingestor,
	aggregator dependency.Aggregator,
	coupons dependency.CouponAnalyzer,
	shipping dependency.ShippingReconciler,
	comparer dependency.Comparer,
	vendors ...dependency.InsightsSource,
) *Service {
	return &Service{
		resolver:   resolver,
		ingestor:   ingestor,
		aggregator: aggregator,
		coupons:    coupons,
		shipping:   shipping,
		comparer:   comparer,
		vendors:    vendors,
	}
}

// Build runs the pipeline for q. Only period validation and primary ingestion
// failures are returned; the enrichment stages and the comparison degrade to
// empty results.
func (s *Service) Build(ctx context.Context, q entity.DashboardQuery) (*entity.Dashboard, error) {
	runID := uuid.NewString()
	log := slog.Default().With(slog.String("run_id", runID))

	period, err := s.resolver.Resolve(dependency.PeriodSelector{
		Period:    q.Period,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	})
	if err != nil {
		telemetry.ObserveDashboardBuild(telemetry.ResultError)
		return nil, err
	}
	log = log.With(
		slog.String("period", period.Label),
		slog.Time("period_start", period.Start),
		slog.Time("period_end", period.End),
	)

	statuses := q.StatusFilters
	if len(statuses) == 0 {
		statuses = entity.AllOrderStatuses
	}

	ing, err := s.ingestor.Ingest(ctx, period, statuses)
	if err != nil {
		log.ErrorContext(ctx, "can't ingest orders", slog.String("err", err.Error()))
		telemetry.ObserveDashboardBuild(telemetry.ResultError)
		return nil, fmt.Errorf("%w: %w", ErrOrdersUnavailable, err)
	}

	d := &entity.Dashboard{
		RunID:     runID,
		Period:    period,
		Statuses:  statuses,
		Sales:     s.aggregator.Aggregate(ing.Orders),
		Ingestion: ing,
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.Go(func() error {
		d.Coupons = s.coupons.Analyze(ctx, ing.Orders)
		return nil
	})
	g.Go(func() error {
		d.Shipping = s.shipping.Reconcile(ctx, ing.Orders)
		return nil
	})
	days := period.Days()
	for _, v := range s.vendors {
		g.Go(func() error {
			vi, err := v.Insights(ctx, days)
			if err != nil {
				log.WarnContext(ctx, "can't get vendor insights",
					slog.String("source", v.Name()),
					slog.String("err", err.Error()),
				)
				return nil
			}
			if vi == nil {
				return nil
			}
			mu.Lock()
			d.Vendors = append(d.Vendors, *vi)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sortVendors(d.Vendors)

	if q.EnableComparison && s.comparer != nil {
		d.Comparison = s.compare(ctx, log, d.Sales, period, q.ComparisonPeriod, statuses)
	}

	log.InfoContext(ctx, "dashboard built",
		slog.Int("orders", len(ing.Orders)),
		slog.Int("fetched", ing.Fetched),
		slog.Bool("fallback", period.Fallback),
		slog.Bool("comparison", d.Comparison != nil),
	)
	telemetry.ObserveDashboardBuild(telemetry.ResultSuccess)
	return d, nil
}

// compare runs after the primary period has been fully processed. Any error
// or panic yields nil.
func (s *Service) compare(
	ctx context.Context,
	log *slog.Logger,
	primary *entity.SalesMetrics,
	period entity.Period,
	token string,
	statuses []entity.OrderStatus,
) (c *entity.Comparison) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "comparison panicked", slog.Any("panic", r))
			c = nil
		}
	}()

	info := entity.PeriodInfo{
		Current:  period,
		Previous: s.resolver.Comparison(period, token),
	}
	c, err := s.comparer.Compare(ctx, primary, info, statuses)
	if err != nil {
		log.WarnContext(ctx, "can't compute comparison",
			slog.String("comparison_period", info.Previous.Label),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return c
}

func sortVendors(vs []entity.VendorInsights) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Source < vs[j].Source })
}
