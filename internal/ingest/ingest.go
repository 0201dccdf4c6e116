// Package ingest pulls every order of a period from the paginated order
// source, page by page, through the page cache.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 200
)

// ErrPageLimitExceeded is returned when the source keeps returning full pages
// past the configured page limit.
var ErrPageLimitExceeded = errors.New("order source page limit exceeded")

type Config struct {
	PageSize int `mapstructure:"page_size"`
	MaxPages int `mapstructure:"max_pages"`
}

// Page is one decoded page of the upstream listing. End is set on the last
// page, which is shorter than the page size or empty.
type Page struct {
	Orders []entity.Order
	End    bool
}

type Ingestor struct {
	pageSize int
	maxPages int
	source   dependency.OrderSource
	cache    dependency.PageCache
}

// New creates an Ingestor. A nil cache fetches every page from the source.
func New(c *Config, source dependency.OrderSource, cache dependency.PageCache) *Ingestor {
	i := &Ingestor{
		pageSize: c.PageSize,
		maxPages: c.MaxPages,
		source:   source,
		cache:    cache,
	}
	if i.pageSize <= 0 {
		i.pageSize = DefaultPageSize
	}
	if i.maxPages <= 0 {
		i.maxPages = DefaultMaxPages
	}
	return i
}

// Ingest fetches all orders created within period and keeps those whose status
// is in statuses. An empty statuses list keeps every status. Any page failure
// aborts the whole ingestion.
func (i *Ingestor) Ingest(ctx context.Context, period entity.Period, statuses []entity.OrderStatus) (*entity.Ingestion, error) {
	allow := allowSet(statuses)

	res := &entity.Ingestion{
		Period:       period,
		StatusCounts: make(map[entity.OrderStatus]int),
	}
	seen := make(map[int]bool)

	for n := 1; ; n++ {
		if n > i.maxPages {
			return nil, fmt.Errorf("period %s: %d pages of %d: %w", period.Label, i.maxPages, i.pageSize, ErrPageLimitExceeded)
		}

		page, hit, err := i.page(ctx, period, n)
		if err != nil {
			return nil, fmt.Errorf("can't ingest orders page %d: %w", n, err)
		}
		res.Pages++
		if hit {
			res.CacheHits++
		}

		for _, o := range page.Orders {
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			if !o.Created.IsZero() && !period.Contains(o.Created) {
				continue
			}
			res.Fetched++
			res.StatusCounts[o.Status]++
			if allow[o.Status] {
				res.Orders = append(res.Orders, o)
			}
		}

		if page.End {
			break
		}
	}

	slog.Default().DebugContext(ctx, "orders ingested",
		slog.String("period", period.Label),
		slog.Int("pages", res.Pages),
		slog.Int("cache_hits", res.CacheHits),
		slog.Int("fetched", res.Fetched),
		slog.Int("kept", len(res.Orders)),
	)
	return res, nil
}

func (i *Ingestor) page(ctx context.Context, period entity.Period, n int) (Page, bool, error) {
	// after and before are exclusive upstream
	q := dependency.ListOrdersQuery{
		After:   period.Start.Add(-time.Second).UTC(),
		Before:  period.End.Add(time.Nanosecond).UTC(),
		Page:    n,
		PerPage: i.pageSize,
	}

	// only pages that decode are handed to the cache
	var orders []entity.Order
	fetched := false
	fetch := func(ctx context.Context) ([]byte, error) {
		payload, err := i.source.ListOrders(ctx, q)
		if err != nil {
			return nil, err
		}
		if orders, err = i.source.Decode(payload); err != nil {
			return nil, fmt.Errorf("can't decode orders page: %w", err)
		}
		fetched = true
		return payload, nil
	}

	var (
		payload []byte
		hit     bool
		err     error
	)
	if i.cache != nil {
		payload, hit, err = i.cache.Fetch(ctx, i.source.Endpoint(), q.Encode(), fetch)
	} else {
		payload, err = fetch(ctx)
	}
	if err != nil {
		return Page{}, false, err
	}

	if !fetched {
		if orders, err = i.source.Decode(payload); err != nil {
			return Page{}, hit, fmt.Errorf("can't decode cached orders page: %w", err)
		}
	}
	return Page{
		Orders: orders,
		End:    len(orders) < i.pageSize,
	}, hit, nil
}

func allowSet(statuses []entity.OrderStatus) map[entity.OrderStatus]bool {
	if len(statuses) == 0 {
		statuses = entity.AllOrderStatuses
	}
	allow := make(map[entity.OrderStatus]bool, len(statuses))
	for _, st := range statuses {
		allow[st] = true
	}
	return allow
}
