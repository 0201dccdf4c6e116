// Package insight adapts external ads and social insight endpoints that share
// the "insights for N days" contract.
package insight

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
)

// Config describes one HTTP insights source.
type Config struct {
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Source struct {
	name string
	cli  *resty.Client
}

func New(c *Config) *Source {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cli := resty.New()
	cli.SetBaseURL(strings.TrimRight(c.BaseURL, "/"))
	cli.SetTimeout(timeout)
	if c.Token != "" {
		cli.SetAuthToken(c.Token)
	}
	return &Source{name: c.Name, cli: cli}
}

func (s *Source) Name() string {
	return s.name
}

type insightsResponse struct {
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Reach       int64           `json:"reach"`
	Sessions    int64           `json:"sessions"`
	Users       int64           `json:"users"`
	Conversions int64           `json:"conversions"`
	Spend       decimal.Decimal `json:"spend"`
}

// Insights returns the summary of the last days days.
func (s *Source) Insights(ctx context.Context, days int) (*entity.VendorInsights, error) {
	var res insightsResponse
	resp, err := s.cli.R().
		SetContext(ctx).
		SetQueryParam("days", strconv.Itoa(days)).
		SetResult(&res).
		Get("insights")
	if err != nil {
		return nil, fmt.Errorf("%s insights: %w", s.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s insights: status %d", s.name, resp.StatusCode())
	}

	return &entity.VendorInsights{
		Source:      s.name,
		Days:        days,
		Impressions: res.Impressions,
		Clicks:      res.Clicks,
		Reach:       res.Reach,
		Sessions:    res.Sessions,
		Users:       res.Users,
		Conversions: res.Conversions,
		Spend:       res.Spend,
	}, nil
}
