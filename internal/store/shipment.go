package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
)

// ErrShipmentNotFound is returned when the ledger has no row for an order.
var ErrShipmentNotFound = errors.New("shipment cost not found")

const shipmentCostColumns = `order_id, cost, carrier, service, tracking_number, created_at`

// ShipmentCost returns the ledger row of one order.
func (ms *MYSQLStore) ShipmentCost(ctx context.Context, orderID int) (*entity.ShipmentCost, error) {
	query := `SELECT ` + shipmentCostColumns + ` FROM shipment_cost WHERE order_id = :orderId`
	sc, err := QueryNamedOne[entity.ShipmentCost](ctx, ms.db, query, map[string]any{
		"orderId": orderID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrShipmentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("can't get shipment cost: %w", err)
	}
	return &sc, nil
}

// ShipmentCosts returns the ledger rows of orderIDs keyed by order id.
// Orders without a row are absent from the result.
func (ms *MYSQLStore) ShipmentCosts(ctx context.Context, orderIDs []int) (map[int]entity.ShipmentCost, error) {
	res := make(map[int]entity.ShipmentCost, len(orderIDs))
	if len(orderIDs) == 0 {
		return res, nil
	}

	query := `SELECT ` + shipmentCostColumns + ` FROM shipment_cost WHERE order_id IN (:orderIds)`
	rows, err := QueryListNamed[entity.ShipmentCost](ctx, ms.db, query, map[string]any{
		"orderIds": orderIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get shipment costs: %w", err)
	}
	for _, r := range rows {
		res[r.OrderID] = r
	}
	return res, nil
}

// UpsertShipmentCosts inserts ledger rows, replacing existing rows of the same
// order.
func (ms *MYSQLStore) UpsertShipmentCosts(ctx context.Context, costs []entity.ShipmentCost) error {
	query := `
	INSERT INTO shipment_cost (order_id, cost, carrier, service, tracking_number)
	VALUES (:orderId, :cost, :carrier, :service, :trackingNumber)
	ON DUPLICATE KEY UPDATE
		cost = VALUES(cost),
		carrier = VALUES(carrier),
		service = VALUES(service),
		tracking_number = VALUES(tracking_number)`

	for _, c := range costs {
		err := ExecNamed(ctx, ms.db, query, map[string]any{
			"orderId":        c.OrderID,
			"cost":           c.Cost,
			"carrier":        c.Carrier,
			"service":        c.Service,
			"trackingNumber": c.TrackingNumber,
		})
		if err != nil {
			return fmt.Errorf("can't upsert shipment cost of order %d: %w", c.OrderID, err)
		}
	}
	return nil
}
