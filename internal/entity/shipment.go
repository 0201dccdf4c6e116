package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShippingSource string

const (
	ShippingSourceReconciled ShippingSource = "reconciled"
	ShippingSourceNotFound   ShippingSource = "not_found"
	ShippingSourceError      ShippingSource = "error"
)

// ShipmentCost is a row of the shipping cost ledger.
type ShipmentCost struct {
	OrderID        int             `db:"order_id"`
	Cost           decimal.Decimal `db:"cost"`
	Carrier        string          `db:"carrier"`
	Service        string          `db:"service"`
	TrackingNumber string          `db:"tracking_number"`
	CreatedAt      time.Time       `db:"created_at"`
}

// ShippingRecord is a transient reconciliation result for one order.
type ShippingRecord struct {
	OrderID        int
	Found          bool
	Cost           decimal.Decimal
	Carrier        string
	Service        string
	TrackingNumber string
	Source         ShippingSource
	FromMapping    bool
}

// RealCost is the cost the record contributes to aggregates.
func (r ShippingRecord) RealCost() decimal.Decimal {
	if r.Source != ShippingSourceReconciled {
		return decimal.Zero
	}
	return r.Cost
}

// ShippingMappingEntry is a preloaded cost for one order.
type ShippingMappingEntry struct {
	Cost    decimal.Decimal
	Carrier string
}

type CarrierMetric struct {
	Carrier   string
	TotalCost decimal.Decimal
	Count     int
	AvgCost   decimal.Decimal
}

// ShippingSummary aggregates reconciled shipping costs against declared ones.
type ShippingSummary struct {
	TotalRealCost     decimal.Decimal
	TotalDeclaredCost decimal.Decimal
	Difference        decimal.Decimal
	Processed         int
	Skipped           int
	Found             int
	NotFound          int
	Errors            int
	Carriers          []CarrierMetric
	Records           []ShippingRecord
}
