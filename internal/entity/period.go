package entity

import "time"

type PeriodKind string

const (
	PeriodKindPreset     PeriodKind = "preset"
	PeriodKindCustom     PeriodKind = "custom"
	PeriodKindHistorical PeriodKind = "historical"
)

// Period is a time window with both bounds inclusive.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
	Kind  PeriodKind
	Token string
	// Fallback is set when the requested token could not be resolved.
	Fallback bool
}

// Duration returns End - Start.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Days returns the number of calendar days the period touches, at least 1.
func (p Period) Days() int {
	d := int(p.End.Sub(p.Start).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

type PeriodInfo struct {
	Current  Period
	Previous Period
}
