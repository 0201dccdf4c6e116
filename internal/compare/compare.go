// Package compare relates primary-period metrics to a comparison period.
package compare

import (
	"context"
	"fmt"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	ingestor   dependency.Ingestor
	aggregator dependency.Aggregator
}

func New(ingestor dependency.Ingestor, aggregator dependency.Aggregator) *Engine {
	return &Engine{
		ingestor:   ingestor,
		aggregator: aggregator,
	}
}

// Compare ingests and aggregates info.Previous with the same status filter and
// emits a result for every bucket of primary. Buckets missing from the
// comparison period count as zero there.
func (e *Engine) Compare(ctx context.Context, primary *entity.SalesMetrics, info entity.PeriodInfo, statuses []entity.OrderStatus) (*entity.Comparison, error) {
	ing, err := e.ingestor.Ingest(ctx, info.Previous, statuses)
	if err != nil {
		return nil, fmt.Errorf("can't ingest comparison period %s: %w", info.Previous.Label, err)
	}
	prior := e.aggregator.Aggregate(ing.Orders)
	return Metrics(primary, prior, info), nil
}

// Metrics builds the comparison of two already computed metric sets.
func Metrics(current, prior *entity.SalesMetrics, info entity.PeriodInfo) *entity.Comparison {
	c := &entity.Comparison{
		PeriodInfo:     info,
		Revenue:        Result(current.Revenue, prior.Revenue),
		AvgTicket:      Result(current.AvgTicket, prior.AvgTicket),
		OrdersCount:    ResultInt(current.OrdersCount, prior.OrdersCount),
		PaymentMethods: make(map[string]entity.ComparisonResult, len(current.PaymentMethods)),
		Statuses:       make(map[entity.OrderStatus]entity.ComparisonResult, len(current.OrdersByStatus)),
		Segments:       make(map[entity.CustomerType]entity.ComparisonResult, len(current.Segments)),
	}

	for _, pm := range current.PaymentMethods {
		prev, _ := prior.PaymentMethod(pm.PaymentMethod)
		c.PaymentMethods[pm.PaymentMethod] = Result(pm.Sales, orZero(prev.Sales))
	}
	for _, sm := range current.OrdersByStatus {
		prev, _ := prior.Status(sm.Status)
		c.Statuses[sm.Status] = Result(sm.Total, orZero(prev.Total))
	}
	for t, seg := range current.Segments {
		c.Segments[t] = Result(seg.Sales, orZero(prior.Segments[t].Sales))
	}
	return c
}

func Result(current, previous decimal.Decimal) entity.ComparisonResult {
	return entity.ComparisonResult{
		Current:  current,
		Previous: previous,
		Change:   ChangePct(current, previous),
	}
}

func ResultInt(current, previous int) entity.ComparisonResult {
	return Result(decimal.NewFromInt(int64(current)), decimal.NewFromInt(int64(previous)))
}

// ChangePct returns the percentage change from previous to current rounded to
// 2 places. Equal values give 0; growth from 0 gives 100 and a fall from 0
// gives -100.
func ChangePct(current, previous decimal.Decimal) decimal.Decimal {
	switch {
	case current.Equal(previous):
		return decimal.Zero
	case previous.IsZero() && current.IsPositive():
		return hundred
	case previous.IsZero():
		return hundred.Neg()
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred).Round(2)
}

// a zero value decimal from a missing bucket
func orZero(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d
}
