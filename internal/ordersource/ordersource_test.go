package ordersource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pagePayload = `[
  {
    "id": 1042,
    "status": "completed",
    "total": "150.50",
    "date_created": "2026-10-02T09:15:00",
    "date_created_gmt": "2026-10-02T12:15:00",
    "payment_method": "ppcp-gateway",
    "billing": {"first_name": "Ana", "last_name": "Gomez", "email": " Ana@Example.com "},
    "line_items": [
      {"product_id": 7, "name": "Hoodie", "quantity": 2, "total": "120.00"},
      {"product_id": 9, "name": "Cap", "quantity": 1, "total": "30.50"}
    ],
    "coupon_lines": [{"code": "ENVIOGRATIS", "discount": "-12.00"}],
    "shipping_total": ""
  },
  {
    "id": 1043,
    "status": "On-Hold",
    "total": 80,
    "date_created_gmt": "2026-10-03T00:00:00",
    "payment_method": "stripe",
    "billing": {"email": "b@example.com"},
    "line_items": [],
    "coupon_lines": [],
    "shipping_total": "5.00"
  }
]`

func TestListOrders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pagePayload))
	}))
	defer server.Close()

	cli := New(&Config{
		BaseURL:        server.URL + "/wp-json/wc/v3/",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Timeout:        time.Second,
	})

	after := time.Date(2026, 10, 1, 3, 0, 0, 0, time.UTC)
	q := dependency.ListOrdersQuery{After: after, Before: after.Add(24 * time.Hour), Page: 3, PerPage: 100}
	body, err := cli.ListOrders(context.Background(), q)
	require.NoError(t, err)
	assert.JSONEq(t, pagePayload, string(body))

	require.NotNil(t, got)
	assert.Equal(t, "/wp-json/wc/v3/orders", got.URL.Path)
	assert.Equal(t, "3", got.URL.Query().Get("page"))
	assert.Equal(t, "100", got.URL.Query().Get("per_page"))
	assert.Equal(t, "2026-10-01T03:00:00Z", got.URL.Query().Get("after"))
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "ck", user)
	assert.Equal(t, "cs", pass)

	assert.Equal(t, server.URL+"/wp-json/wc/v3/orders", cli.Endpoint())
}

func TestListOrders_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"maintenance"}`))
	}))
	defer server.Close()

	cli := New(&Config{BaseURL: server.URL})
	_, err := cli.ListOrders(context.Background(), dependency.ListOrdersQuery{Page: 1, PerPage: 10})
	assert.True(t, errors.Is(err, ErrUpstreamStatus))
}

func TestDecode(t *testing.T) {
	orders, err := Decode([]byte(pagePayload))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	o := orders[0]
	assert.Equal(t, 1042, o.ID)
	assert.Equal(t, entity.OrderStatusCompleted, o.Status)
	assert.True(t, decimal.RequireFromString("150.50").Equal(o.Total))
	assert.Equal(t, time.Date(2026, 10, 2, 12, 15, 0, 0, time.UTC), o.Created)
	assert.Equal(t, "ppcp-gateway", o.PaymentMethod)
	assert.Equal(t, "Ana@Example.com", o.BillingEmail)
	assert.Equal(t, "Ana Gomez", o.BillingName)
	require.Len(t, o.LineItems, 2)
	assert.Equal(t, 2, o.LineItems[0].Quantity)
	require.Len(t, o.Coupons, 1)
	assert.True(t, decimal.NewFromInt(12).Equal(o.Coupons[0].Discount))
	assert.True(t, o.ShippingTotal.IsZero())

	assert.Equal(t, entity.OrderStatusOnHold, orders[1].Status)
	assert.True(t, decimal.NewFromInt(80).Equal(orders[1].Total))
	assert.Equal(t, "b@example.com", orders[1].BillingEmail)
	assert.Empty(t, orders[1].BillingName)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"not":"an array"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`[{"id":1,"total":"abc"}]`))
	assert.Error(t, err)

	_, err = Decode([]byte(`[{"id":1,"date_created_gmt":"yesterday"}]`))
	assert.Error(t, err)
}
