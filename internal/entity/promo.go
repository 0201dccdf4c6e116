package entity

import (
	"github.com/shopspring/decimal"
)

// CouponMetric is a per-code summary. TotalRealCost is only set for
// free-shipping codes.
type CouponMetric struct {
	Code          string
	FreeShipping  bool
	TotalDiscount decimal.Decimal
	TotalRealCost decimal.Decimal
	Orders        int
	AvgPerOrder   decimal.Decimal
	Percentage    decimal.Decimal
}

type DiscountCoupons struct {
	TotalDiscount decimal.Decimal
	Orders        int
	Coupons       []CouponMetric
}

type FreeShippingCoupons struct {
	TotalRealCost decimal.Decimal
	TotalDiscount decimal.Decimal
	Orders        int
	Found         int
	NotFound      int
	Coupons       []CouponMetric
	Records       []ShippingRecord
}

type CouponSummary struct {
	Discount     DiscountCoupons
	FreeShipping FreeShippingCoupons
	// OrdersWithCoupons counts orders carrying at least one non-blank coupon code.
	OrdersWithCoupons int
}
