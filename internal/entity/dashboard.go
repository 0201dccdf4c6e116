package entity

import (
	"github.com/shopspring/decimal"
)

// ComparisonResult pairs a metric with its prior-period value.
type ComparisonResult struct {
	Current  decimal.Decimal
	Previous decimal.Decimal
	Change   decimal.Decimal
}

// Comparison holds period-over-period results for every primary bucket.
type Comparison struct {
	PeriodInfo     PeriodInfo
	Revenue        ComparisonResult
	AvgTicket      ComparisonResult
	OrdersCount    ComparisonResult
	PaymentMethods map[string]ComparisonResult
	Statuses       map[OrderStatus]ComparisonResult
	Segments       map[CustomerType]ComparisonResult
}

// VendorInsights is the fixed-shape summary returned by an external
// ads/analytics/social source.
type VendorInsights struct {
	Source      string
	Days        int
	Impressions int64
	Clicks      int64
	Reach       int64
	Sessions    int64
	Users       int64
	Conversions int64
	Spend       decimal.Decimal
}

// DashboardQuery is the inbound query contract.
type DashboardQuery struct {
	Period           string
	StartDate        string
	EndDate          string
	StatusFilters    []OrderStatus
	ComparisonPeriod string
	EnableComparison bool
}

// Dashboard is the assembled result of one pipeline run.
type Dashboard struct {
	RunID      string
	Period     Period
	Statuses   []OrderStatus
	Sales      *SalesMetrics
	Coupons    *CouponSummary
	Shipping   *ShippingSummary
	Vendors    []VendorInsights
	Comparison *Comparison
	Ingestion  *Ingestion
}
