package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// AllOrderStatuses is the default status allow-list, in reporting order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusCompleted,
	OrderStatusProcessing,
	OrderStatusOnHold,
	OrderStatusPending,
	OrderStatusDelivered,
	OrderStatusFailed,
	OrderStatusRefunded,
	OrderStatusCancelled,
}

// HeadlineOrderStatuses are always present in status breakdowns.
var HeadlineOrderStatuses = []OrderStatus{
	OrderStatusCompleted,
	OrderStatusDelivered,
	OrderStatusProcessing,
}

// ValidOrderStatuses is a set of valid order statuses
var ValidOrderStatuses = map[OrderStatus]bool{
	OrderStatusCompleted:  true,
	OrderStatusProcessing: true,
	OrderStatusOnHold:     true,
	OrderStatusPending:    true,
	OrderStatusDelivered:  true,
	OrderStatusFailed:     true,
	OrderStatusRefunded:   true,
	OrderStatusCancelled:  true,
}

// ParseOrderStatuses parses a comma separated status list. Unknown tokens are
// returned separately; an empty result means "all statuses".
func ParseOrderStatuses(raw string) (statuses []OrderStatus, unknown []string) {
	seen := make(map[OrderStatus]bool)
	for _, part := range strings.Split(raw, ",") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			continue
		}
		st := OrderStatus(token)
		if !ValidOrderStatuses[st] {
			unknown = append(unknown, token)
			continue
		}
		if seen[st] {
			continue
		}
		seen[st] = true
		statuses = append(statuses, st)
	}
	return statuses, unknown
}

// Order is an upstream order as fetched for a single pipeline run.
type Order struct {
	ID            int
	Status        OrderStatus
	Total         decimal.Decimal
	Created       time.Time
	PaymentMethod string
	BillingEmail  string
	BillingName   string
	LineItems     []LineItem
	Coupons       []CouponApplication
	ShippingTotal decimal.Decimal
}

type LineItem struct {
	ProductID   int
	ProductName string
	Quantity    int
	Total       decimal.Decimal
}

// CouponApplication is a coupon applied to an order. Discount is never negative.
type CouponApplication struct {
	Code     string
	Discount decimal.Decimal
}

// Ingestion is the result of fetching every order of a period.
type Ingestion struct {
	Period Period
	// Orders are the orders whose status passed the allow-list.
	Orders []Order
	// Fetched counts every order returned upstream, before filtering.
	Fetched int
	// StatusCounts holds per-status counts before filtering.
	StatusCounts map[OrderStatus]int
	Pages        int
	CacheHits    int
}
