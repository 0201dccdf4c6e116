// Package ordersource is the client of the upstream paginated order listing.
package ordersource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jekabolt/grbpwr-insights/internal/telemetry"
	"github.com/shopspring/decimal"
)

const ordersEndpoint = "orders"

// ErrUpstreamStatus is returned when the order source answers with a
// non-success status.
var ErrUpstreamStatus = errors.New("order source returned non-success status")

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	ConsumerKey    string        `mapstructure:"consumer_key"`
	ConsumerSecret string        `mapstructure:"consumer_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type Client struct {
	cli *resty.Client
}

func New(c *Config) *Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cli := resty.New()
	cli.SetBaseURL(strings.TrimRight(c.BaseURL, "/"))
	cli.SetTimeout(timeout)
	cli.SetHeader("Accept", "application/json")
	if c.ConsumerKey != "" {
		cli.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)
	}
	return &Client{cli: cli}
}

// Endpoint identifies the listing endpoint in cache keys.
func (c *Client) Endpoint() string {
	return c.cli.BaseURL + "/" + ordersEndpoint
}

// ListOrders fetches one page of orders and returns the raw body.
func (c *Client) ListOrders(ctx context.Context, q dependency.ListOrdersQuery) ([]byte, error) {
	start := time.Now()
	resp, err := c.cli.R().
		SetContext(ctx).
		SetQueryString(q.Encode()).
		Get(ordersEndpoint)
	if err != nil {
		telemetry.ObserveUpstreamPage(telemetry.ResultError, time.Since(start))
		return nil, fmt.Errorf("list orders page %d: %w", q.Page, err)
	}
	if resp.IsError() {
		telemetry.ObserveUpstreamPage(telemetry.ResultError, time.Since(start))
		return nil, fmt.Errorf("list orders page %d: status %d: %w", q.Page, resp.StatusCode(), ErrUpstreamStatus)
	}
	telemetry.ObserveUpstreamPage(telemetry.ResultSuccess, time.Since(start))
	return resp.Body(), nil
}

// Decode maps a page payload into orders.
func (c *Client) Decode(payload []byte) ([]entity.Order, error) {
	return Decode(payload)
}

type amount decimal.Decimal

func (a *amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*a = amount(decimal.Zero)
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", s, err)
	}
	*a = amount(d)
	return nil
}

func (a amount) decimal() decimal.Decimal {
	return decimal.Decimal(a)
}

type wireOrder struct {
	ID             int    `json:"id"`
	Status         string `json:"status"`
	Total          amount `json:"total"`
	DateCreated    string `json:"date_created"`
	DateCreatedGMT string `json:"date_created_gmt"`
	PaymentMethod  string `json:"payment_method"`
	Billing        struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"billing"`
	LineItems []struct {
		ProductID int    `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Total     amount `json:"total"`
	} `json:"line_items"`
	CouponLines []struct {
		Code     string `json:"code"`
		Discount amount `json:"discount"`
	} `json:"coupon_lines"`
	ShippingTotal amount `json:"shipping_total"`
}

const wireTimeLayout = "2006-01-02T15:04:05"

// Decode maps the upstream JSON array into orders. Coupon discounts are
// normalised to be non-negative.
func Decode(payload []byte) ([]entity.Order, error) {
	var wire []wireOrder
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("could not unmarshal orders: %w", err)
	}

	orders := make([]entity.Order, 0, len(wire))
	for _, w := range wire {
		created, err := parseCreated(w.DateCreatedGMT, w.DateCreated)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", w.ID, err)
		}
		o := entity.Order{
			ID:            w.ID,
			Status:        entity.OrderStatus(strings.ToLower(w.Status)),
			Total:         w.Total.decimal(),
			Created:       created,
			PaymentMethod: w.PaymentMethod,
			BillingEmail:  strings.TrimSpace(w.Billing.Email),
			BillingName:   strings.TrimSpace(w.Billing.FirstName + " " + w.Billing.LastName),
			ShippingTotal: w.ShippingTotal.decimal(),
		}
		for _, li := range w.LineItems {
			o.LineItems = append(o.LineItems, entity.LineItem{
				ProductID:   li.ProductID,
				ProductName: li.Name,
				Quantity:    li.Quantity,
				Total:       li.Total.decimal(),
			})
		}
		for _, cl := range w.CouponLines {
			o.Coupons = append(o.Coupons, entity.CouponApplication{
				Code:     strings.TrimSpace(cl.Code),
				Discount: cl.Discount.decimal().Abs(),
			})
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func parseCreated(gmt, local string) (time.Time, error) {
	raw := gmt
	if raw == "" {
		raw = local
	}
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(wireTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date_created %q: %w", raw, err)
	}
	return t.UTC(), nil
}
