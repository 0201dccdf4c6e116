// Package dto holds the JSON shapes of the HTTP API and their conversion
// from entities. Money and percentages are decimal strings.
package dto

import (
	"sort"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
)

type Response struct {
	Success bool       `json:"success"`
	Data    *Dashboard `json:"data,omitempty"`
	Debug   *Debug     `json:"debug,omitempty"`
	Error   string     `json:"error,omitempty"`
}

type Dashboard struct {
	RunID          string             `json:"runId"`
	Period         Period             `json:"period"`
	Statuses       []string           `json:"statuses"`
	Revenue        decimal.Decimal    `json:"revenue"`
	AvgTicket      decimal.Decimal    `json:"avgTicket"`
	OrdersCount    int                `json:"ordersCount"`
	PaymentMethods []PaymentMethod    `json:"paymentMethods"`
	OrdersByStatus []StatusCount      `json:"ordersByStatus"`
	Products       []Product          `json:"products"`
	TopOrders      []Order            `json:"topOrders"`
	Customers      []Customer         `json:"customers"`
	Segments       map[string]Segment `json:"segments"`
	Coupons        *Coupons           `json:"coupons"`
	Shipping       *Shipping          `json:"shipping"`
	Vendors        []VendorInsights   `json:"vendors"`
	Comparative    *Comparative       `json:"comparative"`
}

type Period struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Label    string    `json:"label"`
	Kind     string    `json:"kind"`
	Token    string    `json:"token"`
	Fallback bool      `json:"fallback"`
}

type PeriodInfo struct {
	Current  Period `json:"current"`
	Previous Period `json:"previous"`
}

type PaymentMethod struct {
	Method     string          `json:"method"`
	Sales      decimal.Decimal `json:"sales"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type StatusCount struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type Product struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Sales      decimal.Decimal `json:"sales"`
	Orders     int             `json:"orders"`
	Percentage decimal.Decimal `json:"percentage"`
}

type Order struct {
	ID            int             `json:"id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Created       time.Time       `json:"created"`
	PaymentMethod string          `json:"paymentMethod"`
	Customer      string          `json:"customer"`
	Email         string          `json:"email"`
}

type Customer struct {
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
	Orders     int             `json:"orders"`
	AvgTicket  decimal.Decimal `json:"avgTicket"`
	Type       string          `json:"type"`
}

type Segment struct {
	Sales          decimal.Decimal `json:"sales"`
	Orders         int             `json:"orders"`
	Customers      int             `json:"customers"`
	AvgPerCustomer decimal.Decimal `json:"avgPerCustomer"`
	Percentage     decimal.Decimal `json:"percentage"`
}

type Coupon struct {
	Code          string          `json:"code"`
	FreeShipping  bool            `json:"freeShipping"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	TotalRealCost decimal.Decimal `json:"totalRealCost"`
	Orders        int             `json:"orders"`
	AvgPerOrder   decimal.Decimal `json:"avgPerOrder"`
	Percentage    decimal.Decimal `json:"percentage"`
}

type Coupons struct {
	OrdersWithCoupons int `json:"ordersWithCoupons"`
	Discount          struct {
		TotalDiscount decimal.Decimal `json:"totalDiscount"`
		Orders        int             `json:"orders"`
		Coupons       []Coupon        `json:"coupons"`
	} `json:"discount"`
	FreeShipping struct {
		TotalRealCost decimal.Decimal `json:"totalRealCost"`
		TotalDiscount decimal.Decimal `json:"totalDiscount"`
		Orders        int             `json:"orders"`
		Found         int             `json:"found"`
		NotFound      int             `json:"notFound"`
		Coupons       []Coupon        `json:"coupons"`
	} `json:"freeShipping"`
}

type Carrier struct {
	Carrier   string          `json:"carrier"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Count     int             `json:"count"`
	AvgCost   decimal.Decimal `json:"avgCost"`
}

type Shipping struct {
	TotalRealCost     decimal.Decimal `json:"totalRealCost"`
	TotalDeclaredCost decimal.Decimal `json:"totalDeclaredCost"`
	Difference        decimal.Decimal `json:"difference"`
	Processed         int             `json:"processed"`
	Found             int             `json:"found"`
	NotFound          int             `json:"notFound"`
	Errors            int             `json:"errors"`
	Carriers          []Carrier       `json:"carriers"`
}

type VendorInsights struct {
	Source      string          `json:"source"`
	Days        int             `json:"days"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Reach       int64           `json:"reach"`
	Sessions    int64           `json:"sessions"`
	Users       int64           `json:"users"`
	Conversions int64           `json:"conversions"`
	Spend       decimal.Decimal `json:"spend"`
}

type ComparisonResult struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Change   decimal.Decimal `json:"change"`
}

type Comparative struct {
	PeriodInfo     PeriodInfo                  `json:"periodInfo"`
	Revenue        ComparisonResult            `json:"revenue"`
	AvgTicket      ComparisonResult            `json:"avgTicket"`
	OrdersCount    ComparisonResult            `json:"ordersCount"`
	PaymentMethods map[string]ComparisonResult `json:"paymentMethods"`
	Statuses       map[string]ComparisonResult `json:"statuses"`
	Segments       map[string]ComparisonResult `json:"segments"`
}

type UnknownPaymentCode struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Debug carries the diagnostics needed to reproduce a run.
type Debug struct {
	RunID               string               `json:"runId"`
	PeriodFallback      bool                 `json:"periodFallback"`
	StatusCounts        map[string]int       `json:"statusCounts"`
	Fetched             int                  `json:"fetched"`
	Pages               int                  `json:"pages"`
	CacheHits           int                  `json:"cacheHits"`
	UnknownPaymentCodes []UnknownPaymentCode `json:"unknownPaymentCodes"`
	ShippingSkipped     int                  `json:"shippingSkipped"`
}

// ConvertEntityDashboardToResponse builds the success payload of d.
func ConvertEntityDashboardToResponse(d *entity.Dashboard) *Response {
	if d == nil {
		return &Response{Success: true}
	}
	return &Response{
		Success: true,
		Data:    dashboardToDto(d),
		Debug:   debugToDto(d),
	}
}

// NewErrorResponse builds the failure payload.
func NewErrorResponse(msg string) *Response {
	return &Response{Error: msg}
}

func dashboardToDto(d *entity.Dashboard) *Dashboard {
	out := &Dashboard{
		RunID:       d.RunID,
		Period:      periodToDto(d.Period),
		Statuses:    make([]string, 0, len(d.Statuses)),
		Coupons:     couponsToDto(d.Coupons),
		Shipping:    shippingToDto(d.Shipping),
		Vendors:     vendorsToDto(d.Vendors),
		Comparative: comparisonToDto(d.Comparison),
	}
	for _, s := range d.Statuses {
		out.Statuses = append(out.Statuses, string(s))
	}

	m := d.Sales
	if m == nil {
		return out
	}
	out.Revenue = m.Revenue
	out.AvgTicket = m.AvgTicket
	out.OrdersCount = m.OrdersCount

	out.PaymentMethods = make([]PaymentMethod, 0, len(m.PaymentMethods))
	for _, pm := range m.PaymentMethods {
		out.PaymentMethods = append(out.PaymentMethods, PaymentMethod{
			Method:     pm.PaymentMethod,
			Sales:      pm.Sales,
			Count:      pm.Count,
			Percentage: pm.Percentage,
		})
	}
	out.OrdersByStatus = make([]StatusCount, 0, len(m.OrdersByStatus))
	for _, s := range m.OrdersByStatus {
		out.OrdersByStatus = append(out.OrdersByStatus, StatusCount{
			Status: string(s.Status),
			Count:  s.Count,
			Total:  s.Total,
		})
	}
	out.Products = make([]Product, 0, len(m.Products))
	for _, p := range m.Products {
		out.Products = append(out.Products, Product{
			ID:         p.ProductID,
			Name:       p.ProductName,
			Quantity:   p.Quantity,
			Sales:      p.Sales,
			Orders:     p.Orders,
			Percentage: p.Percentage,
		})
	}
	out.TopOrders = make([]Order, 0, len(m.TopOrders))
	for _, o := range m.TopOrders {
		out.TopOrders = append(out.TopOrders, Order{
			ID:            o.ID,
			Status:        string(o.Status),
			Total:         o.Total,
			Created:       o.Created,
			PaymentMethod: o.PaymentMethod,
			Customer:      o.BillingName,
			Email:         o.BillingEmail,
		})
	}
	out.Customers = make([]Customer, 0, len(m.Customers))
	for _, c := range m.Customers {
		out.Customers = append(out.Customers, Customer{
			Email:      c.Email,
			Name:       c.Name,
			TotalSpent: c.TotalSpent,
			Orders:     c.OrderCount,
			AvgTicket:  c.AvgTicket,
			Type:       string(c.Type),
		})
	}
	out.Segments = make(map[string]Segment, len(m.Segments))
	for t, s := range m.Segments {
		out.Segments[string(t)] = Segment{
			Sales:          s.Sales,
			Orders:         s.Orders,
			Customers:      s.Customers,
			AvgPerCustomer: s.AvgPerCustomer,
			Percentage:     s.Percentage,
		}
	}
	return out
}

func periodToDto(p entity.Period) Period {
	return Period{
		Start:    p.Start,
		End:      p.End,
		Label:    p.Label,
		Kind:     string(p.Kind),
		Token:    p.Token,
		Fallback: p.Fallback,
	}
}

func couponMetricsToDto(cs []entity.CouponMetric) []Coupon {
	out := make([]Coupon, 0, len(cs))
	for _, c := range cs {
		out = append(out, Coupon{
			Code:          c.Code,
			FreeShipping:  c.FreeShipping,
			TotalDiscount: c.TotalDiscount,
			TotalRealCost: c.TotalRealCost,
			Orders:        c.Orders,
			AvgPerOrder:   c.AvgPerOrder,
			Percentage:    c.Percentage,
		})
	}
	return out
}

func couponsToDto(s *entity.CouponSummary) *Coupons {
	if s == nil {
		return nil
	}
	out := &Coupons{OrdersWithCoupons: s.OrdersWithCoupons}
	out.Discount.TotalDiscount = s.Discount.TotalDiscount
	out.Discount.Orders = s.Discount.Orders
	out.Discount.Coupons = couponMetricsToDto(s.Discount.Coupons)
	out.FreeShipping.TotalRealCost = s.FreeShipping.TotalRealCost
	out.FreeShipping.TotalDiscount = s.FreeShipping.TotalDiscount
	out.FreeShipping.Orders = s.FreeShipping.Orders
	out.FreeShipping.Found = s.FreeShipping.Found
	out.FreeShipping.NotFound = s.FreeShipping.NotFound
	out.FreeShipping.Coupons = couponMetricsToDto(s.FreeShipping.Coupons)
	return out
}

func shippingToDto(s *entity.ShippingSummary) *Shipping {
	if s == nil {
		return nil
	}
	out := &Shipping{
		TotalRealCost:     s.TotalRealCost,
		TotalDeclaredCost: s.TotalDeclaredCost,
		Difference:        s.Difference,
		Processed:         s.Processed,
		Found:             s.Found,
		NotFound:          s.NotFound,
		Errors:            s.Errors,
		Carriers:          make([]Carrier, 0, len(s.Carriers)),
	}
	for _, c := range s.Carriers {
		out.Carriers = append(out.Carriers, Carrier{
			Carrier:   c.Carrier,
			TotalCost: c.TotalCost,
			Count:     c.Count,
			AvgCost:   c.AvgCost,
		})
	}
	return out
}

func vendorsToDto(vs []entity.VendorInsights) []VendorInsights {
	out := make([]VendorInsights, 0, len(vs))
	for _, v := range vs {
		out = append(out, VendorInsights{
			Source:      v.Source,
			Days:        v.Days,
			Impressions: v.Impressions,
			Clicks:      v.Clicks,
			Reach:       v.Reach,
			Sessions:    v.Sessions,
			Users:       v.Users,
			Conversions: v.Conversions,
			Spend:       v.Spend,
		})
	}
	return out
}

func comparisonResultToDto(r entity.ComparisonResult) ComparisonResult {
	return ComparisonResult{Current: r.Current, Previous: r.Previous, Change: r.Change}
}

func comparisonToDto(c *entity.Comparison) *Comparative {
	if c == nil {
		return nil
	}
	out := &Comparative{
		PeriodInfo: PeriodInfo{
			Current:  periodToDto(c.PeriodInfo.Current),
			Previous: periodToDto(c.PeriodInfo.Previous),
		},
		Revenue:        comparisonResultToDto(c.Revenue),
		AvgTicket:      comparisonResultToDto(c.AvgTicket),
		OrdersCount:    comparisonResultToDto(c.OrdersCount),
		PaymentMethods: make(map[string]ComparisonResult, len(c.PaymentMethods)),
		Statuses:       make(map[string]ComparisonResult, len(c.Statuses)),
		Segments:       make(map[string]ComparisonResult, len(c.Segments)),
	}
	for k, r := range c.PaymentMethods {
		out.PaymentMethods[k] = comparisonResultToDto(r)
	}
	for k, r := range c.Statuses {
		out.Statuses[string(k)] = comparisonResultToDto(r)
	}
	for k, r := range c.Segments {
		out.Segments[string(k)] = comparisonResultToDto(r)
	}
	return out
}

func debugToDto(d *entity.Dashboard) *Debug {
	out := &Debug{
		RunID:               d.RunID,
		PeriodFallback:      d.Period.Fallback,
		StatusCounts:        map[string]int{},
		UnknownPaymentCodes: []UnknownPaymentCode{},
	}
	if ing := d.Ingestion; ing != nil {
		out.Fetched = ing.Fetched
		out.Pages = ing.Pages
		out.CacheHits = ing.CacheHits
		for st, n := range ing.StatusCounts {
			out.StatusCounts[string(st)] = n
		}
	}
	if d.Sales != nil {
		for _, c := range d.Sales.UnknownPaymentCodes {
			out.UnknownPaymentCodes = append(out.UnknownPaymentCodes, UnknownPaymentCode{Code: c.Code, Count: c.Count})
		}
		sort.Slice(out.UnknownPaymentCodes, func(i, j int) bool {
			return out.UnknownPaymentCodes[i].Code < out.UnknownPaymentCodes[j].Code
		})
	}
	if d.Shipping != nil {
		out.ShippingSkipped = d.Shipping.Skipped
	}
	return out
}
