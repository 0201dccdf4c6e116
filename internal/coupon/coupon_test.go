package coupon

import (
	"context"
	"testing"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	records map[int]entity.ShippingRecord
	calls   [][]int
}

func (f *fakeLookup) Lookup(_ context.Context, orderID int) entity.ShippingRecord {
	return f.records[orderID]
}

func (f *fakeLookup) LookupBulk(_ context.Context, orderIDs []int) map[int]entity.ShippingRecord {
	f.calls = append(f.calls, orderIDs)
	res := make(map[int]entity.ShippingRecord, len(orderIDs))
	for _, id := range orderIDs {
		if rec, ok := f.records[id]; ok {
			res[id] = rec
			continue
		}
		res[id] = entity.ShippingRecord{OrderID: id, Source: entity.ShippingSourceNotFound}
	}
	return res
}

func reconciledCost(id int, amount string) entity.ShippingRecord {
	return entity.ShippingRecord{
		OrderID: id,
		Found:   true,
		Cost:    decimal.RequireFromString(amount),
		Source:  entity.ShippingSourceReconciled,
	}
}

func coupons(codes ...string) []entity.CouponApplication {
	out := make([]entity.CouponApplication, 0, len(codes))
	for _, c := range codes {
		out = append(out, entity.CouponApplication{Code: c, Discount: decimal.NewFromInt(10)})
	}
	return out
}

func TestAnalyze_FreeShippingRealCost(t *testing.T) {
	lookup := &fakeLookup{records: map[int]entity.ShippingRecord{5: reconciledCost(5, "120")}}
	a := New(&Config{FreeShippingCodes: []string{"enviodist"}}, lookup)

	sum := a.Analyze(context.Background(), []entity.Order{
		{ID: 5, Coupons: []entity.CouponApplication{{Code: "ENVIODIST", Discount: decimal.Zero}}},
	})

	assert.True(t, decimal.NewFromInt(120).Equal(sum.FreeShipping.TotalRealCost))
	require.Len(t, sum.FreeShipping.Coupons, 1)
	c := sum.FreeShipping.Coupons[0]
	assert.Equal(t, "ENVIODIST", c.Code)
	assert.True(t, decimal.NewFromInt(120).Equal(c.TotalRealCost))
	assert.Equal(t, 1, c.Orders)
	assert.Equal(t, 1, sum.FreeShipping.Found)
	assert.Equal(t, [][]int{{5}}, lookup.calls)
}

func TestAnalyze_DiscountCoupons(t *testing.T) {
	a := New(&Config{FreeShippingCodes: []string{"ENVIOGRATIS"}}, &fakeLookup{})

	sum := a.Analyze(context.Background(), []entity.Order{
		{ID: 1, Coupons: coupons("Promo10")},
		{ID: 2, Coupons: coupons("PROMO10", "vip")},
		{ID: 3, Coupons: coupons("vip")},
		{ID: 4},
	})

	assert.Equal(t, 3, sum.OrdersWithCoupons)
	assert.Equal(t, 3, sum.Discount.Orders)
	assert.True(t, decimal.NewFromInt(40).Equal(sum.Discount.TotalDiscount))
	require.Len(t, sum.Discount.Coupons, 2)

	promo := sum.Discount.Coupons[0]
	assert.Equal(t, "Promo10", promo.Code)
	assert.Equal(t, 2, promo.Orders)
	assert.True(t, decimal.NewFromInt(20).Equal(promo.TotalDiscount))
	assert.True(t, decimal.NewFromInt(10).Equal(promo.AvgPerOrder))
	assert.True(t, decimal.NewFromInt(50).Equal(promo.Percentage))
	assert.Empty(t, sum.FreeShipping.Coupons)
}

func TestAnalyze_SplitsCostAcrossFreeShippingCodes(t *testing.T) {
	lookup := &fakeLookup{records: map[int]entity.ShippingRecord{
		1: reconciledCost(1, "100"),
		2: reconciledCost(2, "50"),
	}}
	a := New(&Config{FreeShippingCodes: []string{"envio1", "envio2", "envio3"}}, lookup)

	sum := a.Analyze(context.Background(), []entity.Order{
		{ID: 1, Coupons: coupons("ENVIO1", "ENVIO2", "ENVIO3")},
		{ID: 2, Coupons: coupons("envio1", "ENVIO1")},
	})

	assert.True(t, decimal.NewFromInt(150).Equal(sum.FreeShipping.TotalRealCost))

	total := decimal.Zero
	byCode := map[string]entity.CouponMetric{}
	for _, c := range sum.FreeShipping.Coupons {
		total = total.Add(c.TotalRealCost)
		byCode[c.Code] = c
	}
	assert.True(t, total.Equal(sum.FreeShipping.TotalRealCost), "per-code total %s", total)

	assert.True(t, decimal.RequireFromString("83.33").Equal(byCode["ENVIO1"].TotalRealCost))
	assert.Equal(t, 2, byCode["ENVIO1"].Orders)
	assert.True(t, decimal.RequireFromString("33.33").Equal(byCode["ENVIO2"].TotalRealCost))
	assert.True(t, decimal.RequireFromString("33.34").Equal(byCode["ENVIO3"].TotalRealCost))
}

func TestAnalyze_UnreconciledOrdersCostNothing(t *testing.T) {
	lookup := &fakeLookup{records: map[int]entity.ShippingRecord{
		2: {OrderID: 2, Cost: decimal.NewFromInt(999), Source: entity.ShippingSourceError},
	}}
	a := New(&Config{FreeShippingCodes: []string{"ENVIOGRATIS"}}, lookup)

	sum := a.Analyze(context.Background(), []entity.Order{
		{ID: 1, Coupons: coupons("enviogratis")},
		{ID: 2, Coupons: coupons("enviogratis")},
	})

	assert.True(t, sum.FreeShipping.TotalRealCost.IsZero())
	assert.Equal(t, 2, sum.FreeShipping.NotFound)
	assert.Equal(t, 0, sum.FreeShipping.Found)
	assert.Equal(t, 2, sum.FreeShipping.Orders)
}

func TestAnalyze_BlankCodesDoNotCount(t *testing.T) {
	a := New(&Config{FreeShippingCodes: []string{"enviodist"}}, &fakeLookup{})

	sum := a.Analyze(context.Background(), []entity.Order{
		{ID: 1, Coupons: coupons("", "  ")},
		{ID: 2, Coupons: coupons("", "WELCOME")},
		{ID: 3},
	})

	assert.Equal(t, 1, sum.OrdersWithCoupons)
	assert.Equal(t, 1, sum.Discount.Orders)
	require.Len(t, sum.Discount.Coupons, 1)
	assert.Equal(t, "WELCOME", sum.Discount.Coupons[0].Code)
}

func TestSplitCost(t *testing.T) {
	shares := splitCost(decimal.NewFromInt(10), 3)
	require.Len(t, shares, 3)
	assert.True(t, decimal.RequireFromString("3.33").Equal(shares[0]))
	assert.True(t, decimal.RequireFromString("3.34").Equal(shares[2]))
	assert.Nil(t, splitCost(decimal.NewFromInt(10), 0))
}
