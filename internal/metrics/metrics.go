// Package metrics computes sales aggregates over a filtered order set.
package metrics

import (
	"sort"
	"strings"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	PaymentStripe = "stripe"
	PaymentPaypal = "paypal"
	PaymentBacs   = "bacs"

	DefaultTopOrders = 5
)

// DefaultPaymentCodes maps upstream payment method codes to reported buckets.
var DefaultPaymentCodes = map[string]string{
	"stripe":       PaymentStripe,
	"paypal":       PaymentPaypal,
	"ppcp-gateway": PaymentPaypal,
	"bacs":         PaymentBacs,
}

type Config struct {
	// PaymentCodes maps a payment method code to its bucket. Codes missing
	// here land in FallbackPaymentMethod.
	PaymentCodes          map[string]string `mapstructure:"payment_codes"`
	FallbackPaymentMethod string            `mapstructure:"fallback_payment_method"`
	DistributorEmails     []string          `mapstructure:"distributor_emails"`
	TopOrders             int               `mapstructure:"top_orders"`
}

type Aggregator struct {
	codes        map[string]string
	buckets      []string
	fallback     string
	distributors map[string]bool
	topOrders    int
}

func New(c *Config) *Aggregator {
	a := &Aggregator{
		codes:        make(map[string]string),
		fallback:     c.FallbackPaymentMethod,
		distributors: make(map[string]bool, len(c.DistributorEmails)),
		topOrders:    c.TopOrders,
	}
	if a.fallback == "" {
		a.fallback = PaymentBacs
	}
	if a.topOrders <= 0 {
		a.topOrders = DefaultTopOrders
	}

	codes := c.PaymentCodes
	if len(codes) == 0 {
		codes = DefaultPaymentCodes
	}
	seen := map[string]bool{a.fallback: true}
	a.buckets = append(a.buckets, a.fallback)
	for code, bucket := range codes {
		a.codes[strings.ToLower(code)] = bucket
		if !seen[bucket] {
			seen[bucket] = true
			a.buckets = append(a.buckets, bucket)
		}
	}
	sort.Strings(a.buckets)

	for _, email := range c.DistributorEmails {
		a.distributors[normalizeEmail(email)] = true
	}
	return a
}

// IsDistributor reports whether email is on the distributor allow-list.
func (a *Aggregator) IsDistributor(email string) bool {
	return a.distributors[normalizeEmail(email)]
}

// PaymentBucket returns the reported bucket of a payment code and whether the
// code is known.
func (a *Aggregator) PaymentBucket(code string) (string, bool) {
	b, ok := a.codes[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return a.fallback, false
	}
	return b, true
}

type productAcc struct {
	metric entity.ProductMetric
	lastID int
}

// Aggregate computes every bucket in a single pass over orders. All
// percentages are shares of the revenue of the same order set.
func (a *Aggregator) Aggregate(orders []entity.Order) *entity.SalesMetrics {
	revenue := decimal.Zero

	payments := make(map[string]*entity.PaymentMethodMetric, len(a.buckets))
	for _, b := range a.buckets {
		payments[b] = &entity.PaymentMethodMetric{PaymentMethod: b, Sales: decimal.Zero}
	}
	unknown := make(map[string]int)

	statuses := make(map[entity.OrderStatus]*entity.StatusMetric)
	for _, st := range entity.HeadlineOrderStatuses {
		statuses[st] = &entity.StatusMetric{Status: st, Total: decimal.Zero}
	}

	products := make(map[int]*productAcc)
	customers := make(map[string]*entity.CustomerBucket)

	for _, o := range orders {
		revenue = revenue.Add(o.Total)

		bucket, known := a.PaymentBucket(o.PaymentMethod)
		pm := payments[bucket]
		pm.Sales = pm.Sales.Add(o.Total)
		pm.Count++
		if !known {
			unknown[o.PaymentMethod]++
		}

		sm, ok := statuses[o.Status]
		if !ok {
			sm = &entity.StatusMetric{Status: o.Status, Total: decimal.Zero}
			statuses[o.Status] = sm
		}
		sm.Count++
		sm.Total = sm.Total.Add(o.Total)

		for _, li := range o.LineItems {
			p, ok := products[li.ProductID]
			if !ok {
				p = &productAcc{metric: entity.ProductMetric{
					ProductID:   li.ProductID,
					ProductName: li.ProductName,
					Sales:       decimal.Zero,
				}}
				products[li.ProductID] = p
			}
			p.metric.Quantity += li.Quantity
			p.metric.Sales = p.metric.Sales.Add(li.Total)
			// repeated lines of one order count once
			if p.lastID != o.ID || p.metric.Orders == 0 {
				p.metric.Orders++
				p.lastID = o.ID
			}
		}

		email := normalizeEmail(o.BillingEmail)
		cb, ok := customers[email]
		if !ok {
			cb = &entity.CustomerBucket{
				Email:      email,
				Name:       o.BillingName,
				TotalSpent: decimal.Zero,
				Type:       entity.CustomerTypeCustomer,
			}
			if a.distributors[email] {
				cb.Type = entity.CustomerTypeDistributor
			}
			customers[email] = cb
		}
		if cb.Name == "" {
			cb.Name = o.BillingName
		}
		cb.TotalSpent = cb.TotalSpent.Add(o.Total)
		cb.OrderCount++
	}

	m := &entity.SalesMetrics{
		Revenue:     revenue,
		AvgTicket:   decimal.Zero,
		OrdersCount: len(orders),
	}
	if len(orders) > 0 {
		m.AvgTicket = revenue.Div(decimal.NewFromInt(int64(len(orders)))).Round(2)
	}

	m.PaymentMethods = paymentMetrics(payments, revenue)
	m.UnknownPaymentCodes = unknownCodes(unknown)
	m.OrdersByStatus = statusMetrics(statuses)
	m.Products = productRanking(products, revenue)
	m.TopOrders = topOrders(orders, a.topOrders)
	m.Customers, m.Segments = segments(customers, revenue)
	return m
}

func paymentMetrics(payments map[string]*entity.PaymentMethodMetric, revenue decimal.Decimal) []entity.PaymentMethodMetric {
	out := make([]entity.PaymentMethodMetric, 0, len(payments))
	for _, pm := range payments {
		pm.Percentage = share(pm.Sales, revenue)
		out = append(out, *pm)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Sales.Equal(out[j].Sales) {
			return out[i].Sales.GreaterThan(out[j].Sales)
		}
		return out[i].PaymentMethod < out[j].PaymentMethod
	})
	return out
}

func unknownCodes(unknown map[string]int) []entity.PaymentCodeCount {
	out := make([]entity.PaymentCodeCount, 0, len(unknown))
	for code, n := range unknown {
		out = append(out, entity.PaymentCodeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func statusMetrics(statuses map[entity.OrderStatus]*entity.StatusMetric) []entity.StatusMetric {
	rank := make(map[entity.OrderStatus]int, len(entity.AllOrderStatuses))
	for i, st := range entity.AllOrderStatuses {
		rank[st] = i
	}
	out := make([]entity.StatusMetric, 0, len(statuses))
	for _, sm := range statuses {
		out = append(out, *sm)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i].Status]
		rj, jok := rank[out[j].Status]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].Status < out[j].Status
		}
	})
	return out
}

func productRanking(products map[int]*productAcc, revenue decimal.Decimal) []entity.ProductMetric {
	out := make([]entity.ProductMetric, 0, len(products))
	for _, p := range products {
		p.metric.Percentage = share(p.metric.Sales, revenue)
		out = append(out, p.metric)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if !out[i].Sales.Equal(out[j].Sales) {
			return out[i].Sales.GreaterThan(out[j].Sales)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

func topOrders(orders []entity.Order, n int) []entity.Order {
	sorted := make([]entity.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Total.Equal(sorted[j].Total) {
			return sorted[i].Total.GreaterThan(sorted[j].Total)
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func segments(customers map[string]*entity.CustomerBucket, revenue decimal.Decimal) ([]entity.CustomerBucket, map[entity.CustomerType]entity.SegmentMetric) {
	seg := map[entity.CustomerType]entity.SegmentMetric{
		entity.CustomerTypeDistributor: {Sales: decimal.Zero, AvgPerCustomer: decimal.Zero, Percentage: decimal.Zero},
		entity.CustomerTypeCustomer:    {Sales: decimal.Zero, AvgPerCustomer: decimal.Zero, Percentage: decimal.Zero},
	}

	out := make([]entity.CustomerBucket, 0, len(customers))
	for _, cb := range customers {
		cb.AvgTicket = cb.TotalSpent.Div(decimal.NewFromInt(int64(cb.OrderCount))).Round(2)
		out = append(out, *cb)

		s := seg[cb.Type]
		s.Sales = s.Sales.Add(cb.TotalSpent)
		s.Orders += cb.OrderCount
		s.Customers++
		seg[cb.Type] = s
	}
	for t, s := range seg {
		if s.Customers > 0 {
			s.AvgPerCustomer = s.Sales.Div(decimal.NewFromInt(int64(s.Customers))).Round(2)
		}
		s.Percentage = share(s.Sales, revenue)
		seg[t] = s
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalSpent.Equal(out[j].TotalSpent) {
			return out[i].TotalSpent.GreaterThan(out[j].TotalSpent)
		}
		return out[i].Email < out[j].Email
	})
	return out, seg
}

// share returns part as a percentage of total rounded to 2 places, 0 when
// total is 0.
func share(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
