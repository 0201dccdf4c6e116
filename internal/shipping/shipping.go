// Package shipping reconciles declared shipping charges against the real
// carrier costs recorded in the ledger.
package shipping

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jekabolt/grbpwr-insights/internal/store"
	"github.com/jekabolt/grbpwr-insights/internal/telemetry"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxSingleLookups = 50

	unknownCarrier = "unknown"
	sourceMapping  = "mapping"
)

type Config struct {
	MaxSingleLookups int           `mapstructure:"max_single_lookups"`
	LookupInterval   time.Duration `mapstructure:"lookup_interval"`
	MappingFile      string        `mapstructure:"mapping_file"`
}

type Reconciler struct {
	store     dependency.ShipmentStore
	mapping   dependency.ShippingMapping
	limiter   dependency.Limiter
	maxSingle int
}

// New creates a Reconciler. mapping and limiter may be nil.
func New(c *Config, st dependency.ShipmentStore, mapping dependency.ShippingMapping, limiter dependency.Limiter) *Reconciler {
	r := &Reconciler{
		store:     st,
		mapping:   mapping,
		limiter:   limiter,
		maxSingle: c.MaxSingleLookups,
	}
	if r.maxSingle <= 0 {
		r.maxSingle = DefaultMaxSingleLookups
	}
	return r
}

func (r *Reconciler) fromMapping(orderID int) (entity.ShippingRecord, bool) {
	if r.mapping == nil {
		return entity.ShippingRecord{}, false
	}
	e, ok := r.mapping.Get(orderID)
	if !ok {
		return entity.ShippingRecord{}, false
	}
	telemetry.ObserveShippingLookup(sourceMapping)
	return entity.ShippingRecord{
		OrderID:     orderID,
		Found:       true,
		Cost:        e.Cost,
		Carrier:     e.Carrier,
		Source:      entity.ShippingSourceReconciled,
		FromMapping: true,
	}, true
}

// Lookup returns the real shipping cost of one order. The mapping is consulted
// first; only store lookups wait on the limiter. Failures are not retried.
func (r *Reconciler) Lookup(ctx context.Context, orderID int) entity.ShippingRecord {
	if rec, ok := r.fromMapping(orderID); ok {
		return rec
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.failed(ctx, orderID, err)
		}
	}

	sc, err := r.store.ShipmentCost(ctx, orderID)
	if errors.Is(err, store.ErrShipmentNotFound) {
		telemetry.ObserveShippingLookup(string(entity.ShippingSourceNotFound))
		return notFound(orderID)
	}
	if err != nil {
		return r.failed(ctx, orderID, err)
	}
	telemetry.ObserveShippingLookup(string(entity.ShippingSourceReconciled))
	return reconciled(*sc)
}

// LookupBulk resolves many orders with one store call for everything the
// mapping does not cover. A store failure marks all of those orders as errors.
func (r *Reconciler) LookupBulk(ctx context.Context, orderIDs []int) map[int]entity.ShippingRecord {
	res := make(map[int]entity.ShippingRecord, len(orderIDs))

	var remaining []int
	for _, id := range orderIDs {
		if _, done := res[id]; done {
			continue
		}
		if rec, ok := r.fromMapping(id); ok {
			res[id] = rec
			continue
		}
		res[id] = notFound(id)
		remaining = append(remaining, id)
	}
	if len(remaining) == 0 {
		return res
	}

	rows, err := r.store.ShipmentCosts(ctx, remaining)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't bulk lookup shipping costs",
			slog.Int("orders", len(remaining)),
			slog.String("err", err.Error()),
		)
		for _, id := range remaining {
			telemetry.ObserveShippingLookup(string(entity.ShippingSourceError))
			res[id] = entity.ShippingRecord{OrderID: id, Cost: decimal.Zero, Source: entity.ShippingSourceError}
		}
		return res
	}

	for _, id := range remaining {
		if sc, ok := rows[id]; ok {
			res[id] = reconciled(sc)
		}
		telemetry.ObserveShippingLookup(string(res[id].Source))
	}
	return res
}

type carrierAcc struct {
	total decimal.Decimal
	count int
}

// Reconcile looks up the first MaxSingleLookups orders one by one and
// aggregates real against declared cost. Orders past the cap are skipped.
func (r *Reconciler) Reconcile(ctx context.Context, orders []entity.Order) *entity.ShippingSummary {
	sum := &entity.ShippingSummary{
		TotalRealCost:     decimal.Zero,
		TotalDeclaredCost: decimal.Zero,
		Difference:        decimal.Zero,
	}

	process := orders
	if len(process) > r.maxSingle {
		process = process[:r.maxSingle]
		sum.Skipped = len(orders) - r.maxSingle
	}

	carriers := make(map[string]*carrierAcc)
	for _, o := range process {
		rec := r.Lookup(ctx, o.ID)
		sum.Records = append(sum.Records, rec)
		sum.Processed++
		sum.TotalDeclaredCost = sum.TotalDeclaredCost.Add(o.ShippingTotal)

		switch rec.Source {
		case entity.ShippingSourceReconciled:
			sum.Found++
			sum.TotalRealCost = sum.TotalRealCost.Add(rec.RealCost())
			name := rec.Carrier
			if name == "" {
				name = unknownCarrier
			}
			acc, ok := carriers[name]
			if !ok {
				acc = &carrierAcc{total: decimal.Zero}
				carriers[name] = acc
			}
			acc.total = acc.total.Add(rec.RealCost())
			acc.count++
		case entity.ShippingSourceError:
			sum.Errors++
			sum.NotFound++
		default:
			sum.NotFound++
		}
	}

	sum.Difference = sum.TotalRealCost.Sub(sum.TotalDeclaredCost)
	sum.Carriers = carrierMetrics(carriers)
	return sum
}

func carrierMetrics(carriers map[string]*carrierAcc) []entity.CarrierMetric {
	out := make([]entity.CarrierMetric, 0, len(carriers))
	for name, acc := range carriers {
		out = append(out, entity.CarrierMetric{
			Carrier:   name,
			TotalCost: acc.total,
			Count:     acc.count,
			AvgCost:   acc.total.Div(decimal.NewFromInt(int64(acc.count))).Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalCost.Equal(out[j].TotalCost) {
			return out[i].TotalCost.GreaterThan(out[j].TotalCost)
		}
		return out[i].Carrier < out[j].Carrier
	})
	return out
}

func (r *Reconciler) failed(ctx context.Context, orderID int, err error) entity.ShippingRecord {
	slog.Default().WarnContext(ctx, "can't look up shipping cost",
		slog.Int("order_id", orderID),
		slog.String("err", err.Error()),
	)
	telemetry.ObserveShippingLookup(string(entity.ShippingSourceError))
	return entity.ShippingRecord{OrderID: orderID, Cost: decimal.Zero, Source: entity.ShippingSourceError}
}

func notFound(orderID int) entity.ShippingRecord {
	return entity.ShippingRecord{OrderID: orderID, Cost: decimal.Zero, Source: entity.ShippingSourceNotFound}
}

func reconciled(sc entity.ShipmentCost) entity.ShippingRecord {
	return entity.ShippingRecord{
		OrderID:        sc.OrderID,
		Found:          true,
		Cost:           sc.Cost,
		Carrier:        sc.Carrier,
		Service:        sc.Service,
		TrackingNumber: sc.TrackingNumber,
		Source:         entity.ShippingSourceReconciled,
	}
}
