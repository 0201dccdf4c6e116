package compare

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jekabolt/grbpwr-insights/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestor struct {
	orders  []entity.Order
	err     error
	periods []entity.Period
}

func (f *fakeIngestor) Ingest(_ context.Context, period entity.Period, _ []entity.OrderStatus) (*entity.Ingestion, error) {
	f.periods = append(f.periods, period)
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Ingestion{Period: period, Orders: f.orders}, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestChangePct(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		previous string
		want     string
	}{
		{"equal", "150", "150", "0"},
		{"both zero", "0", "0", "0"},
		{"from zero up", "42", "0", "100"},
		{"from zero down", "-5", "0", "-100"},
		{"growth", "150", "100", "50"},
		{"drop to zero", "0", "80", "-100"},
		{"rounded", "100", "3", "3233.33"},
		{"negative prior", "-50", "-100", "50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangePct(d(tt.current), d(tt.previous))
			assert.True(t, d(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestCompare(t *testing.T) {
	agg := metrics.New(&metrics.Config{DistributorEmails: []string{"d@x.com"}})

	primary := agg.Aggregate([]entity.Order{
		{ID: 1, Total: d("150"), Status: entity.OrderStatusCompleted, PaymentMethod: "stripe", BillingEmail: "d@x.com"},
		{ID: 2, Total: d("50"), Status: entity.OrderStatusOnHold, PaymentMethod: "paypal", BillingEmail: "c@y.com"},
	})
	ing := &fakeIngestor{orders: []entity.Order{
		{ID: 9, Total: d("100"), Status: entity.OrderStatusCompleted, PaymentMethod: "stripe", BillingEmail: "c@y.com"},
	}}

	info := entity.PeriodInfo{
		Current:  entity.Period{Label: "October 2026", Start: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		Previous: entity.Period{Label: "September 2026", Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
	}

	c, err := New(ing, agg).Compare(context.Background(), primary, info, []entity.OrderStatus{entity.OrderStatusCompleted})
	require.NoError(t, err)

	require.Len(t, ing.periods, 1)
	assert.Equal(t, "September 2026", ing.periods[0].Label)
	assert.Equal(t, info, c.PeriodInfo)

	assert.True(t, d("100").Equal(c.Revenue.Change))
	assert.True(t, d("100").Equal(c.OrdersCount.Change))
	assert.True(t, d("0").Equal(c.AvgTicket.Change))

	assert.True(t, d("50").Equal(c.PaymentMethods[metrics.PaymentStripe].Change))
	// no paypal sales in the prior period
	paypal := c.PaymentMethods[metrics.PaymentPaypal]
	assert.True(t, paypal.Previous.IsZero())
	assert.True(t, d("100").Equal(paypal.Change))

	// status present only in the primary period still gets a result
	onHold, ok := c.Statuses[entity.OrderStatusOnHold]
	require.True(t, ok)
	assert.True(t, onHold.Previous.IsZero())
	assert.True(t, d("100").Equal(onHold.Change))

	assert.True(t, d("100").Equal(c.Segments[entity.CustomerTypeDistributor].Change))
	assert.True(t, d("-50").Equal(c.Segments[entity.CustomerTypeCustomer].Change))
}

func TestCompare_IngestError(t *testing.T) {
	agg := metrics.New(&metrics.Config{})
	ing := &fakeIngestor{err: errors.New("upstream down")}

	c, err := New(ing, agg).Compare(context.Background(), agg.Aggregate(nil), entity.PeriodInfo{}, nil)
	assert.Error(t, err)
	assert.Nil(t, c)
}
