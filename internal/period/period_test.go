package period

import (
	"testing"
	"time"

	"github.com/jekabolt/grbpwr-insights/internal/dependency"
	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTZ = "America/Argentina/Buenos_Aires"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestResolver(t *testing.T) (*Resolver, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation(testTZ)
	require.NoError(t, err)
	// 2026-10-19 15:30 local, i.e. 18:30 UTC
	clock := fixedClock{t: time.Date(2026, 10, 19, 18, 30, 0, 0, time.UTC)}
	r, err := New(&Config{
		Timezone:        testTZ,
		HistoricalStart: "2019-05-01",
	}, clock)
	require.NoError(t, err)
	return r, loc
}

func endOf(loc *time.Location, y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 23, 59, 59, 999999999, loc)
}

func TestResolve_NamedTokens(t *testing.T) {
	r, loc := newTestResolver(t)

	tests := []struct {
		token string
		start time.Time
		end   time.Time
		label string
	}{
		{TokenToday, time.Date(2026, 10, 19, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 19), "Today"},
		{TokenYesterday, time.Date(2026, 10, 18, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 18), "Yesterday"},
		{TokenLast7Days, time.Date(2026, 10, 13, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 19), "Last 7 days"},
		{TokenLast30Days, time.Date(2026, 9, 20, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 19), "Last 30 days"},
		{TokenCurrentMonth, time.Date(2026, 10, 1, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 19), "October 2026"},
		{TokenLastMonth, time.Date(2026, 9, 1, 0, 0, 0, 0, loc), endOf(loc, 2026, 9, 30), "September 2026"},
		{TokenCurrentYear, time.Date(2026, 1, 1, 0, 0, 0, 0, loc), endOf(loc, 2026, 10, 19), "2026"},
		{TokenLastYear, time.Date(2025, 1, 1, 0, 0, 0, 0, loc), endOf(loc, 2025, 12, 31), "2025"},
		{"2024-02", time.Date(2024, 2, 1, 0, 0, 0, 0, loc), endOf(loc, 2024, 2, 29), "February 2024"},
		{"LAST_MONTH", time.Date(2026, 9, 1, 0, 0, 0, 0, loc), endOf(loc, 2026, 9, 30), "September 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := r.Resolve(dependency.PeriodSelector{Period: tt.token})
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(p.Start), "start %s, want %s", p.Start, tt.start)
			assert.True(t, tt.end.Equal(p.End), "end %s, want %s", p.End, tt.end)
			assert.Equal(t, tt.label, p.Label)
			assert.False(t, p.Fallback)
			assert.Equal(t, entity.PeriodKindPreset, p.Kind)
		})
	}
}

func TestResolve_DefaultIsCurrentMonth(t *testing.T) {
	r, loc := newTestResolver(t)

	p, err := r.Resolve(dependency.PeriodSelector{})
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 1, 0, 0, 0, 0, loc).Equal(p.Start))
	assert.False(t, p.Fallback)
}

func TestResolve_UnknownTokenFallsBack(t *testing.T) {
	r, loc := newTestResolver(t)

	for _, token := range []string{"bogus", "2026-13", "last_0_days", "last_9999_days"} {
		t.Run(token, func(t *testing.T) {
			p, err := r.Resolve(dependency.PeriodSelector{Period: token})
			require.NoError(t, err)
			assert.True(t, p.Fallback)
			assert.True(t, time.Date(2026, 10, 1, 0, 0, 0, 0, loc).Equal(p.Start))
			assert.Contains(t, p.Label, "October 2026")
			assert.Contains(t, p.Label, "fallback")
			assert.Contains(t, p.Label, token)
		})
	}
}

func TestResolve_Historical(t *testing.T) {
	r, loc := newTestResolver(t)

	p, err := r.Resolve(dependency.PeriodSelector{Period: TokenHistorical})
	require.NoError(t, err)
	assert.Equal(t, entity.PeriodKindHistorical, p.Kind)
	assert.True(t, time.Date(2019, 5, 1, 0, 0, 0, 0, loc).Equal(p.Start))
	assert.True(t, endOf(loc, 2026, 10, 19).Equal(p.End))

	noHistory, err := New(&Config{Timezone: testTZ}, fixedClock{t: time.Now()})
	require.NoError(t, err)
	p, err = noHistory.Resolve(dependency.PeriodSelector{Period: TokenHistorical})
	require.NoError(t, err)
	assert.True(t, p.Fallback)
}

func TestResolve_CustomRange(t *testing.T) {
	r, loc := newTestResolver(t)

	t.Run("valid", func(t *testing.T) {
		p, err := r.Resolve(dependency.PeriodSelector{
			Period:    TokenToday,
			StartDate: "2026-03-01",
			EndDate:   "2026-03-15",
		})
		require.NoError(t, err)
		assert.Equal(t, entity.PeriodKindCustom, p.Kind)
		assert.True(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc).Equal(p.Start))
		assert.True(t, endOf(loc, 2026, 3, 15).Equal(p.End))
		assert.Equal(t, "2026-03-01 to 2026-03-15", p.Label)
	})

	t.Run("single day", func(t *testing.T) {
		p, err := r.Resolve(dependency.PeriodSelector{StartDate: "2026-03-01", EndDate: "2026-03-01"})
		require.NoError(t, err)
		assert.Equal(t, 1, p.Days())
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := r.Resolve(dependency.PeriodSelector{StartDate: "2026-03-15", EndDate: "2026-03-01"})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("unparsable falls back", func(t *testing.T) {
		p, err := r.Resolve(dependency.PeriodSelector{StartDate: "03/01/2026", EndDate: "2026-03-15"})
		require.NoError(t, err)
		assert.True(t, p.Fallback)
	})

	t.Run("single bound uses token", func(t *testing.T) {
		p, err := r.Resolve(dependency.PeriodSelector{Period: TokenYesterday, StartDate: "2026-03-01"})
		require.NoError(t, err)
		assert.Equal(t, "Yesterday", p.Label)
	})
}

func TestComparison_Auto(t *testing.T) {
	r, loc := newTestResolver(t)

	t.Run("month to date", func(t *testing.T) {
		primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenCurrentMonth})
		require.NoError(t, err)

		cmp := r.Comparison(primary, CompareAuto)
		assert.True(t, endOf(loc, 2026, 9, 30).Equal(cmp.End), "end %s", cmp.End)
		assert.True(t, time.Date(2026, 9, 12, 0, 0, 0, 0, loc).Equal(cmp.Start), "start %s", cmp.Start)
		assert.Equal(t, primary.Duration(), cmp.Duration())
		assert.Equal(t, time.Nanosecond, primary.Start.Sub(cmp.End))
	})

	t.Run("single day", func(t *testing.T) {
		primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenYesterday})
		require.NoError(t, err)

		cmp := r.Comparison(primary, "")
		assert.True(t, time.Date(2026, 10, 17, 0, 0, 0, 0, loc).Equal(cmp.Start))
		assert.True(t, endOf(loc, 2026, 10, 17).Equal(cmp.End))
	})

	t.Run("previous_period alias", func(t *testing.T) {
		primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenLast7Days})
		require.NoError(t, err)
		assert.Equal(t, r.Comparison(primary, CompareAuto), r.Comparison(primary, ComparePreviousPeriod))
	})
}

func TestComparison_AutoAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2026-03-10 12:00 EDT, two days after clocks moved forward
	clock := fixedClock{t: time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)}
	r, err := New(&Config{Timezone: "America/New_York"}, clock)
	require.NoError(t, err)

	primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenLast7Days})
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 3, 4, 0, 0, 0, 0, loc).Equal(primary.Start))

	cmp := r.Comparison(primary, CompareAuto)
	assert.True(t, time.Date(2026, 2, 25, 0, 0, 0, 0, loc).Equal(cmp.Start), "start %s", cmp.Start)
	assert.True(t, endOf(loc, 2026, 3, 3).Equal(cmp.End), "end %s", cmp.End)

	t.Run("fall back", func(t *testing.T) {
		// 2026-11-03 12:00 EST, two days after clocks moved back
		r, err := New(&Config{Timezone: "America/New_York"}, fixedClock{t: time.Date(2026, 11, 3, 17, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenLast7Days})
		require.NoError(t, err)

		cmp := r.Comparison(primary, CompareAuto)
		assert.True(t, time.Date(2026, 10, 21, 0, 0, 0, 0, loc).Equal(cmp.Start), "start %s", cmp.Start)
		assert.True(t, endOf(loc, 2026, 10, 27).Equal(cmp.End), "end %s", cmp.End)
	})
}

func TestComparison_NamedTokens(t *testing.T) {
	r, loc := newTestResolver(t)
	primary, err := r.Resolve(dependency.PeriodSelector{Period: TokenLast7Days})
	require.NoError(t, err)

	cmp := r.Comparison(primary, TokenLastMonth)
	assert.True(t, time.Date(2026, 9, 1, 0, 0, 0, 0, loc).Equal(cmp.Start))
	assert.True(t, endOf(loc, 2026, 9, 30).Equal(cmp.End))

	cmp = r.Comparison(primary, CompareSamePeriodLastYear)
	assert.True(t, time.Date(2025, 10, 13, 0, 0, 0, 0, loc).Equal(cmp.Start))
	assert.True(t, endOf(loc, 2025, 10, 19).Equal(cmp.End))

	cmp = r.Comparison(primary, "nope")
	assert.True(t, cmp.Fallback)
	assert.Equal(t, r.Comparison(primary, CompareAuto).Start, cmp.Start)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Timezone: "Mars/Olympus"}, nil)
	assert.Error(t, err)

	_, err = New(&Config{DefaultPeriod: "forever"}, nil)
	assert.Error(t, err)

	_, err = New(&Config{HistoricalStart: "yesterday"}, nil)
	assert.Error(t, err)

	r, err := New(&Config{DefaultPeriod: TokenLast30Days}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.Location())
}
