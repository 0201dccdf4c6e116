// Package period turns period selectors into absolute, inclusive time windows
// in a fixed reference time zone.
package period

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
)

const (
	TokenToday        = "today"
	TokenYesterday    = "yesterday"
	TokenLast7Days    = "last_7_days"
	TokenLast30Days   = "last_30_days"
	TokenLast90Days   = "last_90_days"
	TokenCurrentMonth = "current_month"
	TokenLastMonth    = "last_month"
	TokenCurrentYear  = "current_year"
	TokenLastYear     = "last_year"
	TokenHistorical   = "historical"

	CompareAuto               = "auto"
	ComparePreviousPeriod     = "previous_period"
	CompareSamePeriodLastYear = "same_period_last_year"

	dateLayout = "2006-01-02"
	maxDays    = 366
)

// ErrInvalidRange is returned for a custom range whose end precedes its start.
var ErrInvalidRange = errors.New("end date must not be before start date")

var (
	monthToken    = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	lastDaysToken = regexp.MustCompile(`^last_(\d+)_days$`)
)

// Config holds period resolution settings.
type Config struct {
	Timezone        string `mapstructure:"timezone"`
	DefaultPeriod   string `mapstructure:"default_period"`
	HistoricalStart string `mapstructure:"historical_start"`
}

// Resolver resolves period and comparison selectors.
type Resolver struct {
	loc             *time.Location
	defaultToken    string
	historicalStart time.Time
	clock           dependency.Clock
}

// New creates a resolver. An empty time zone means UTC.
func New(c *Config, clock dependency.Clock) (*Resolver, error) {
	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
		}
		loc = l
	}
	if clock == nil {
		clock = dependency.SystemClock{}
	}
	r := &Resolver{
		loc:          loc,
		defaultToken: TokenCurrentMonth,
		clock:        clock,
	}
	if c.HistoricalStart != "" {
		hs, err := time.ParseInLocation(dateLayout, c.HistoricalStart, loc)
		if err != nil {
			return nil, fmt.Errorf("parse historical_start: %w", err)
		}
		r.historicalStart = hs
	}
	if c.DefaultPeriod != "" {
		if _, ok := r.named(c.DefaultPeriod, clock.Now().In(loc)); !ok {
			return nil, fmt.Errorf("default period %q is not a known token", c.DefaultPeriod)
		}
		r.defaultToken = c.DefaultPeriod
	}
	return r, nil
}

// Location returns the reference time zone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the primary period. Explicit dates win over the token when
// both are present. Unknown tokens fall back to the default period and are
// flagged in the label; only an inverted custom range is an error.
func (r *Resolver) Resolve(sel dependency.PeriodSelector) (entity.Period, error) {
	now := r.clock.Now().In(r.loc)

	if sel.StartDate != "" && sel.EndDate != "" {
		p, err := r.custom(sel.StartDate, sel.EndDate)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrInvalidRange) {
			return entity.Period{}, err
		}
		slog.Default().Warn("can't parse custom range, using default period",
			slog.String("start_date", sel.StartDate),
			slog.String("end_date", sel.EndDate),
			slog.String("err", err.Error()),
		)
		return r.fallback(now, sel.StartDate+".."+sel.EndDate), nil
	}

	token := strings.ToLower(strings.TrimSpace(sel.Period))
	if token == "" {
		p, _ := r.named(r.defaultToken, now)
		return p, nil
	}
	if p, ok := r.named(token, now); ok {
		return p, nil
	}
	slog.Default().Warn("unknown period token, using default period",
		slog.String("period", sel.Period),
	)
	return r.fallback(now, sel.Period), nil
}

// Comparison returns the window primary is compared against. auto (and an
// unknown token) is the window of identical duration ending right before
// primary starts.
func (r *Resolver) Comparison(primary entity.Period, token string) entity.Period {
	token = strings.ToLower(strings.TrimSpace(token))
	switch token {
	case "", CompareAuto, ComparePreviousPeriod:
		return previous(primary)
	case CompareSamePeriodLastYear:
		return entity.Period{
			Start: primary.Start.AddDate(-1, 0, 0),
			End:   primary.End.AddDate(-1, 0, 0),
			Label: "Same period last year",
			Kind:  primary.Kind,
			Token: token,
		}
	}
	if p, ok := r.named(token, r.clock.Now().In(r.loc)); ok {
		return p
	}
	slog.Default().Warn("unknown comparison token, using previous period",
		slog.String("comparison_period", token),
	)
	p := previous(primary)
	p.Fallback = true
	return p
}

func previous(primary entity.Period) entity.Period {
	end := primary.Start.Add(-time.Nanosecond)
	start := end.Add(-primary.Duration())
	// shift whole days on the calendar so DST changes don't move the edges
	if days, ok := calendarDays(primary); ok {
		start = primary.Start.AddDate(0, 0, -days)
	}
	return entity.Period{
		Start: start,
		End:   end,
		Label: fmt.Sprintf("Previous period (%s to %s)", start.Format(dateLayout), end.Format(dateLayout)),
		Kind:  primary.Kind,
		Token: CompareAuto,
	}
}

// calendarDays reports how many calendar days p spans when it starts at
// midnight and ends at the last instant of a day.
func calendarDays(p entity.Period) (int, bool) {
	if !p.Start.Equal(startOfDay(p.Start)) || !p.End.Equal(endOfDay(p.End)) {
		return 0, false
	}
	from := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1, true
}

func (r *Resolver) fallback(now time.Time, requested string) entity.Period {
	p, _ := r.named(r.defaultToken, now)
	p.Fallback = true
	p.Label = fmt.Sprintf("%s (fallback from %q)", p.Label, requested)
	return p
}

func (r *Resolver) custom(startRaw, endRaw string) (entity.Period, error) {
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(startRaw), r.loc)
	if err != nil {
		return entity.Period{}, fmt.Errorf("parse start_date: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(endRaw), r.loc)
	if err != nil {
		return entity.Period{}, fmt.Errorf("parse end_date: %w", err)
	}
	if end.Before(start) {
		return entity.Period{}, ErrInvalidRange
	}
	return entity.Period{
		Start: start,
		End:   endOfDay(end),
		Label: fmt.Sprintf("%s to %s", start.Format(dateLayout), end.Format(dateLayout)),
		Kind:  entity.PeriodKindCustom,
		Token: "custom",
	}, nil
}

func (r *Resolver) named(token string, now time.Time) (entity.Period, bool) {
	today := startOfDay(now)
	p := entity.Period{Kind: entity.PeriodKindPreset, Token: token, End: endOfDay(now)}

	switch token {
	case TokenToday:
		p.Start, p.Label = today, "Today"
	case TokenYesterday:
		p.Start = today.AddDate(0, 0, -1)
		p.End = endOfDay(p.Start)
		p.Label = "Yesterday"
	case TokenCurrentMonth:
		p.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		p.Label = p.Start.Format("January 2006")
	case TokenLastMonth:
		p.Start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, r.loc)
		p.End = p.Start.AddDate(0, 1, 0).Add(-time.Nanosecond)
		p.Label = p.Start.Format("January 2006")
	case TokenCurrentYear:
		p.Start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, r.loc)
		p.Label = p.Start.Format("2006")
	case TokenLastYear:
		p.Start = time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, r.loc)
		p.End = p.Start.AddDate(1, 0, 0).Add(-time.Nanosecond)
		p.Label = p.Start.Format("2006")
	case TokenHistorical:
		if r.historicalStart.IsZero() {
			return entity.Period{}, false
		}
		p.Start = r.historicalStart
		p.Kind = entity.PeriodKindHistorical
		p.Label = fmt.Sprintf("Since %s", r.historicalStart.Format(dateLayout))
	default:
		if m := lastDaysToken.FindStringSubmatch(token); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > maxDays {
				return entity.Period{}, false
			}
			p.Start = today.AddDate(0, 0, -(n - 1))
			p.Label = fmt.Sprintf("Last %d days", n)
			return p, true
		}
		if m := monthToken.FindStringSubmatch(token); m != nil {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			if month < 1 || month > 12 {
				return entity.Period{}, false
			}
			p.Start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.loc)
			p.End = p.Start.AddDate(0, 1, 0).Add(-time.Nanosecond)
			p.Label = p.Start.Format("January 2006")
			return p, true
		}
		return entity.Period{}, false
	}
	return p, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
