// Package coupon summarises coupon usage and the shipping cost absorbed by
// free-shipping codes.
package coupon

import (
	"context"
	"sort"
	"strings"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
)

type Config struct {
	FreeShippingCodes []string `mapstructure:"free_shipping_codes"`
}

type Analyzer struct {
	freeShipping map[string]bool
	shipping     dependency.ShippingLookup
}

// New creates an Analyzer. Free-shipping costs stay at zero when shipping is
// nil.
func New(c *Config, shipping dependency.ShippingLookup) *Analyzer {
	a := &Analyzer{
		freeShipping: make(map[string]bool, len(c.FreeShippingCodes)),
		shipping:     shipping,
	}
	for _, code := range c.FreeShippingCodes {
		a.freeShipping[codeKey(code)] = true
	}
	return a
}

// IsFreeShipping reports whether code is a free-shipping code, ignoring case.
func (a *Analyzer) IsFreeShipping(code string) bool {
	return a.freeShipping[codeKey(code)]
}

type couponAcc struct {
	metric entity.CouponMetric
}

// Analyze groups coupon applications by code. Orders carrying free-shipping
// codes are reconciled in one bulk lookup and their real cost is split evenly
// across their distinct free-shipping codes, the remainder going to the last
// one, so per-code costs add up to the aggregate.
func (a *Analyzer) Analyze(ctx context.Context, orders []entity.Order) *entity.CouponSummary {
	sum := &entity.CouponSummary{
		Discount: entity.DiscountCoupons{TotalDiscount: decimal.Zero},
		FreeShipping: entity.FreeShippingCoupons{
			TotalRealCost: decimal.Zero,
			TotalDiscount: decimal.Zero,
		},
	}

	coupons := make(map[string]*couponAcc)
	freeCodes := make(map[int][]string)
	var freeOrders []int

	for _, o := range orders {
		if len(o.Coupons) == 0 {
			continue
		}

		seen := make(map[string]bool, len(o.Coupons))
		hasDiscount := false
		for _, ca := range o.Coupons {
			key := codeKey(ca.Code)
			if key == "" {
				continue
			}
			acc, ok := coupons[key]
			if !ok {
				acc = &couponAcc{metric: entity.CouponMetric{
					Code:          ca.Code,
					FreeShipping:  a.freeShipping[key],
					TotalDiscount: decimal.Zero,
					TotalRealCost: decimal.Zero,
				}}
				coupons[key] = acc
			}
			acc.metric.TotalDiscount = acc.metric.TotalDiscount.Add(ca.Discount)
			if acc.metric.FreeShipping {
				sum.FreeShipping.TotalDiscount = sum.FreeShipping.TotalDiscount.Add(ca.Discount)
			} else {
				sum.Discount.TotalDiscount = sum.Discount.TotalDiscount.Add(ca.Discount)
				hasDiscount = true
			}

			if seen[key] {
				continue
			}
			seen[key] = true
			acc.metric.Orders++
			if acc.metric.FreeShipping {
				freeCodes[o.ID] = append(freeCodes[o.ID], key)
			}
		}

		if len(seen) > 0 {
			sum.OrdersWithCoupons++
		}
		if hasDiscount {
			sum.Discount.Orders++
		}
		if len(freeCodes[o.ID]) > 0 {
			freeOrders = append(freeOrders, o.ID)
		}
	}

	sum.FreeShipping.Orders = len(freeOrders)
	if len(freeOrders) > 0 && a.shipping != nil {
		records := a.shipping.LookupBulk(ctx, freeOrders)
		for _, id := range freeOrders {
			rec, ok := records[id]
			if !ok {
				rec = entity.ShippingRecord{OrderID: id, Cost: decimal.Zero, Source: entity.ShippingSourceNotFound}
			}
			sum.FreeShipping.Records = append(sum.FreeShipping.Records, rec)
			if rec.Source == entity.ShippingSourceReconciled {
				sum.FreeShipping.Found++
			} else {
				sum.FreeShipping.NotFound++
			}

			cost := rec.RealCost()
			sum.FreeShipping.TotalRealCost = sum.FreeShipping.TotalRealCost.Add(cost)
			for i, part := range splitCost(cost, len(freeCodes[id])) {
				acc := coupons[freeCodes[id][i]]
				acc.metric.TotalRealCost = acc.metric.TotalRealCost.Add(part)
			}
		}
	} else {
		sum.FreeShipping.NotFound = len(freeOrders)
	}

	for _, acc := range coupons {
		m := acc.metric
		if m.FreeShipping {
			m.AvgPerOrder = perOrder(m.TotalRealCost, m.Orders)
			m.Percentage = share(m.TotalRealCost, sum.FreeShipping.TotalRealCost)
			sum.FreeShipping.Coupons = append(sum.FreeShipping.Coupons, m)
			continue
		}
		m.AvgPerOrder = perOrder(m.TotalDiscount, m.Orders)
		m.Percentage = share(m.TotalDiscount, sum.Discount.TotalDiscount)
		sum.Discount.Coupons = append(sum.Discount.Coupons, m)
	}
	sortCoupons(sum.Discount.Coupons, func(m entity.CouponMetric) decimal.Decimal { return m.TotalDiscount })
	sortCoupons(sum.FreeShipping.Coupons, func(m entity.CouponMetric) decimal.Decimal { return m.TotalRealCost })

	return sum
}

// splitCost divides cost into n shares rounded down to cents, adding the
// remainder to the last share.
func splitCost(cost decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	shares := make([]decimal.Decimal, n)
	each := cost.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	rest := cost
	for i := 0; i < n-1; i++ {
		shares[i] = each
		rest = rest.Sub(each)
	}
	shares[n-1] = rest
	return shares
}

func sortCoupons(cs []entity.CouponMetric, total func(entity.CouponMetric) decimal.Decimal) {
	sort.Slice(cs, func(i, j int) bool {
		ti, tj := total(cs[i]), total(cs[j])
		if !ti.Equal(tj) {
			return ti.GreaterThan(tj)
		}
		return codeKey(cs[i].Code) < codeKey(cs[j].Code)
	})
}

func perOrder(total decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(orders))).Round(2)
}

func share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

func codeKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
