package ga4

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

const sourceName = "ga4"

// Config holds GA4 client configuration.
type Config struct {
	PropertyID      string `mapstructure:"property_id"`
	CredentialsJSON string `mapstructure:"credentials_json"` // path to service account JSON file, or raw JSON (for env vars)
	Enabled         bool   `mapstructure:"enabled"`
}

// Client wraps the GA4 Data API client.
type Client struct {
	service    *analyticsdata.Service
	propertyID string
	enabled    bool
	now        func() time.Time
}

// NewClient creates a new GA4 client.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Default().InfoContext(ctx, "GA4 analytics disabled")
		return &Client{enabled: false}, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		jsonBytes := []byte(cfg.CredentialsJSON)
		if len(jsonBytes) > 0 && jsonBytes[0] == '{' {
			opts = append(opts, option.WithCredentialsJSON(jsonBytes))
		} else {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsJSON))
		}
	}
	return newClient(ctx, cfg, opts...)
}

func newClient(ctx context.Context, cfg *Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.PropertyID == "" {
		return nil, fmt.Errorf("ga4 property_id is required")
	}

	service, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GA4 service: %w", err)
	}

	slog.Default().InfoContext(ctx, "GA4 analytics client initialized",
		slog.String("property_id", cfg.PropertyID))

	return &Client{
		service:    service,
		propertyID: cfg.PropertyID,
		enabled:    true,
		now:        time.Now,
	}, nil
}

func (c *Client) Name() string {
	return sourceName
}

// Enabled reports whether the client talks to GA4.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Insights sums the daily metrics of the last days days, today included.
// A disabled client returns nil.
func (c *Client) Insights(ctx context.Context, days int) (*entity.VendorInsights, error) {
	if !c.enabled {
		return nil, nil
	}
	if days < 1 {
		days = 1
	}

	end := c.now()
	start := end.AddDate(0, 0, -(days - 1))
	daily, err := c.GetDailyMetrics(ctx, start, end)
	if err != nil {
		return nil, err
	}

	vi := &entity.VendorInsights{Source: sourceName, Days: days}
	for _, d := range daily {
		vi.Sessions += int64(d.Sessions)
		vi.Users += int64(d.Users)
		vi.Impressions += int64(d.PageViews)
		vi.Conversions += int64(d.KeyEvents)
	}
	return vi, nil
}

// GetDailyMetrics fetches aggregated daily metrics for the given period.
func (c *Client) GetDailyMetrics(ctx context.Context, startDate, endDate time.Time) ([]DailyMetrics, error) {
	if !c.enabled {
		return nil, nil
	}

	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{
			{
				StartDate: startDate.Format("2006-01-02"),
				EndDate:   endDate.Format("2006-01-02"),
			},
		},
		Dimensions: []*analyticsdata.Dimension{
			{Name: "date"},
		},
		Metrics: []*analyticsdata.Metric{
			{Name: "sessions"},
			{Name: "totalUsers"},
			{Name: "newUsers"},
			{Name: "screenPageViews"},
			{Name: "keyEvents"},
			{Name: "bounceRate"},
			{Name: "averageSessionDuration"},
		},
		OrderBys: []*analyticsdata.OrderBy{
			{
				Dimension: &analyticsdata.DimensionOrderBy{DimensionName: "date"},
				Desc:      false,
			},
		},
	}

	resp, err := c.service.Properties.RunReport(fmt.Sprintf("properties/%s", c.propertyID), req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to run GA4 report: %w", err)
	}

	var metrics []DailyMetrics
	for _, row := range resp.Rows {
		if len(row.DimensionValues) == 0 || len(row.MetricValues) < 7 {
			continue
		}

		dateStr := row.DimensionValues[0].Value
		date, err := time.Parse("20060102", dateStr)
		if err != nil {
			slog.Default().WarnContext(ctx, "failed to parse GA4 date",
				slog.String("date", dateStr),
				slog.String("err", err.Error()))
			continue
		}

		metrics = append(metrics, DailyMetrics{
			Date:        date,
			Sessions:    parseInt(row.MetricValues[0].Value),
			Users:       parseInt(row.MetricValues[1].Value),
			NewUsers:    parseInt(row.MetricValues[2].Value),
			PageViews:   parseInt(row.MetricValues[3].Value),
			KeyEvents:   parseInt(row.MetricValues[4].Value),
			BounceRate:  parseFloat(row.MetricValues[5].Value),
			AvgDuration: parseFloat(row.MetricValues[6].Value),
		})
	}

	return metrics, nil
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
