package dependency

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jmoiron/sqlx"
)

type (
	// Clock abstracts time.Now so freshness windows and relative periods
	// can be tested deterministically.
	Clock interface {
		Now() time.Time
	}

	OrderSource interface {
		// ListOrders returns the raw payload of one page of orders.
		ListOrders(ctx context.Context, q ListOrdersQuery) ([]byte, error)
		// Decode maps a raw page payload into orders.
		Decode(payload []byte) ([]entity.Order, error)
		// Endpoint identifies the listing endpoint for cache keys.
		Endpoint() string
	}

	PageCache interface {
		Fetch(ctx context.Context, endpoint, query string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, bool, error)
	}

	Ingestor interface {
		Ingest(ctx context.Context, period entity.Period, statuses []entity.OrderStatus) (*entity.Ingestion, error)
	}

	Aggregator interface {
		Aggregate(orders []entity.Order) *entity.SalesMetrics
	}

	ShipmentStore interface {
		// ShipmentCost returns the ledger row of an order or an error
		// wrapping store.ErrShipmentNotFound.
		ShipmentCost(ctx context.Context, orderID int) (*entity.ShipmentCost, error)
		// ShipmentCosts returns ledger rows keyed by order id; missing ids
		// are absent from the map.
		ShipmentCosts(ctx context.Context, orderIDs []int) (map[int]entity.ShipmentCost, error)
	}

	ShippingMapping interface {
		Get(orderID int) (entity.ShippingMappingEntry, bool)
	}

	ShippingLookup interface {
		Lookup(ctx context.Context, orderID int) entity.ShippingRecord
		LookupBulk(ctx context.Context, orderIDs []int) map[int]entity.ShippingRecord
	}

	ShippingReconciler interface {
		ShippingLookup
		Reconcile(ctx context.Context, orders []entity.Order) *entity.ShippingSummary
	}

	CouponAnalyzer interface {
		Analyze(ctx context.Context, orders []entity.Order) *entity.CouponSummary
	}

	Comparer interface {
		// Compare recomputes metrics over info.Previous and relates them to
		// primary, which covers info.Current.
		Compare(ctx context.Context, primary *entity.SalesMetrics, info entity.PeriodInfo, statuses []entity.OrderStatus) (*entity.Comparison, error)
	}

	PeriodResolver interface {
		Resolve(sel PeriodSelector) (entity.Period, error)
		Comparison(primary entity.Period, token string) entity.Period
	}

	Limiter interface {
		Wait(ctx context.Context) error
	}

	InsightsSource interface {
		Name() string
		Insights(ctx context.Context, days int) (*entity.VendorInsights, error)
	}

	Dashboard interface {
		Build(ctx context.Context, q entity.DashboardQuery) (*entity.Dashboard, error)
	}

	// DB represents database interface.
	DB interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}
)

// ListOrdersQuery is one page request against the upstream order listing.
type ListOrdersQuery struct {
	After   time.Time
	Before  time.Time
	Page    int
	PerPage int
}

// Encode returns the deterministic query string of q.
func (q ListOrdersQuery) Encode() string {
	v := url.Values{}
	v.Set("after", q.After.Format(time.RFC3339))
	v.Set("before", q.Before.Format(time.RFC3339))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("orderby", "date")
	v.Set("order", "asc")
	return v.Encode()
}

// PeriodSelector is the raw period input of a request.
type PeriodSelector struct {
	Period    string
	StartDate string
	EndDate   string
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
