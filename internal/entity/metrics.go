package entity

import (
	"github.com/shopspring/decimal"
)

// SalesMetrics contains everything computed from one filtered order set.
type SalesMetrics struct {
	Revenue     decimal.Decimal
	AvgTicket   decimal.Decimal
	OrdersCount int

	PaymentMethods      []PaymentMethodMetric
	UnknownPaymentCodes []PaymentCodeCount

	OrdersByStatus []StatusMetric

	// Products holds the full ranking, sorted by quantity.
	Products  []ProductMetric
	TopOrders []Order

	Customers []CustomerBucket
	Segments  map[CustomerType]SegmentMetric
}

// PaymentMethodMetric aggregates revenue by reported payment channel.
type PaymentMethodMetric struct {
	PaymentMethod string
	Sales         decimal.Decimal
	Count         int
	Percentage    decimal.Decimal
}

// PaymentCodeCount is a raw payment code that fell into the fallback bucket.
type PaymentCodeCount struct {
	Code  string
	Count int
}

type StatusMetric struct {
	Status OrderStatus
	Count  int
	Total  decimal.Decimal
}

type ProductMetric struct {
	ProductID   int
	ProductName string
	Quantity    int
	Sales       decimal.Decimal
	Orders      int
	Percentage  decimal.Decimal
}

type CustomerType string

const (
	CustomerTypeDistributor CustomerType = "distributor"
	CustomerTypeCustomer    CustomerType = "customer"
)

// CustomerBucket aggregates orders sharing one billing email.
type CustomerBucket struct {
	Email      string
	Name       string
	TotalSpent decimal.Decimal
	OrderCount int
	AvgTicket  decimal.Decimal
	Type       CustomerType
}

type SegmentMetric struct {
	Sales          decimal.Decimal
	Orders         int
	Customers      int
	AvgPerCustomer decimal.Decimal
	Percentage     decimal.Decimal
}

// PaymentMethod returns the metric for a bucket name.
func (m *SalesMetrics) PaymentMethod(name string) (PaymentMethodMetric, bool) {
	for _, pm := range m.PaymentMethods {
		if pm.PaymentMethod == name {
			return pm, true
		}
	}
	return PaymentMethodMetric{PaymentMethod: name}, false
}

// Status returns the metric for a status.
func (m *SalesMetrics) Status(st OrderStatus) (StatusMetric, bool) {
	for _, s := range m.OrdersByStatus {
		if s.Status == st {
			return s, true
		}
	}
	return StatusMetric{Status: st}, false
}
