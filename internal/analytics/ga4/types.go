package ga4

import (
	"time"
)

// DailyMetrics represents aggregated GA4 metrics for a single day.
type DailyMetrics struct {
	Date        time.Time
	Sessions    int
	Users       int
	NewUsers    int
	PageViews   int
	KeyEvents   int
	BounceRate  float64
	AvgDuration float64
}
