// Package risk implements the multi-dimensional OAuth application risk model:
// five independent dimension calculators combined into a weighted composite
// score with a data-completeness confidence estimate.
package risk

import (
	"sort"
	"time"
)

const (
	PlatformGoogle    = "google"
	PlatformSlack     = "slack"
	PlatformMicrosoft = "microsoft"

	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Off-hours is the 02:00-05:00 UTC band used by the activity calculator and
// the off_hours_access anomaly pattern.
const (
	offHoursStartHour = 2
	offHoursEndHour   = 5
)

// DefaultAuditWindowDays is the trailing audit window consumed by the
// dimension calculators and anomaly detectors.
const DefaultAuditWindowDays = 90

// AppMetadata describes one discovered OAuth application authorization.
// Created when a connector discovers a new grant; mutated on scope change or
// observed activity; never hard-deleted.
type AppMetadata struct {
	AppID             string    `json:"app_id"`
	ClientID          string    `json:"client_id"`
	DisplayName       string    `json:"display_name"`
	Platform          string    `json:"platform"`
	GrantedScopes     []string  `json:"granted_scopes"`
	InitialScopes     []string  `json:"initial_scopes,omitempty"`
	AuthorizingUser   string    `json:"authorizing_user"`
	IsAdminUser       bool      `json:"is_admin_user"`
	IsExternalUser    bool      `json:"is_external_user"`
	IsAIPlatform      bool      `json:"is_ai_platform"`
	FirstAuthorizedAt time.Time `json:"first_authorized_at"`
	LastScopeChangeAt time.Time `json:"last_scope_change_at,omitempty"`
	LastActivityAt    time.Time `json:"last_activity_at,omitempty"`
	OwnerEmails       []string  `json:"owner_emails,omitempty"`
}

// AuditEvent is one observed API call or action attributable to an
// application. Immutable once recorded; consumed as an append-only stream.
type AuditEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	ActorEmail   string    `json:"actor_email,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	DataVolume   int64     `json:"data_volume,omitempty"`
}

// IsOffHours reports whether the event falls in the 02:00-05:00 UTC band.
func (e AuditEvent) IsOffHours() bool {
	h := e.Timestamp.UTC().Hour()
	return h >= offHoursStartHour && h < offHoursEndHour
}

// IsWeekend reports whether the event falls on a Saturday or Sunday (UTC).
func (e AuditEvent) IsWeekend() bool {
	switch e.Timestamp.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// Dimensions holds the five 0-100 sub-scores.
type Dimensions struct {
	AIPlatform int `json:"ai_platform_risk"`
	Permission int `json:"permission_risk"`
	Activity   int `json:"activity_risk"`
	User       int `json:"user_risk"`
	Temporal   int `json:"temporal_risk"`
}

// ScoreResult is the computed composite risk output. Overall is always the
// rounded weighted sum of the dimensions; Severity is always a pure function
// of Overall; Confidence is advisory metadata and never mutates Overall.
type ScoreResult struct {
	Dimensions Dimensions `json:"dimensions"`
	Overall    int        `json:"overall"`
	Severity   string     `json:"severity"`
	Confidence int        `json:"confidence"`
}

// DayCount is the number of events observed on one UTC day.
type DayCount struct {
	Day   time.Time
	Count int
}

// ActivityStats summarizes the trailing audit window for the activity
// calculator and the anomaly detectors.
type ActivityStats struct {
	Total         int
	WindowDays    int
	EventsPerDay  float64
	OffHours      int
	Weekend       int
	Days          []DayCount
	PeakDay       time.Time
	PeakDayCount  int
	FirstObserved time.Time
	LastObserved  time.Time
}

// SummarizeActivity buckets events inside the trailing window ending at now.
// Events after now or before the window start are ignored.
func SummarizeActivity(events []AuditEvent, now time.Time, windowDays int) ActivityStats {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if windowDays <= 0 {
		windowDays = DefaultAuditWindowDays
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	stats := ActivityStats{WindowDays: windowDays}
	byDay := map[time.Time]int{}
	for _, event := range events {
		ts := event.Timestamp.UTC()
		if ts.IsZero() || ts.After(now) || ts.Before(cutoff) {
			continue
		}
		stats.Total++
		if event.IsOffHours() {
			stats.OffHours++
		}
		if event.IsWeekend() {
			stats.Weekend++
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day]++
		if stats.FirstObserved.IsZero() || ts.Before(stats.FirstObserved) {
			stats.FirstObserved = ts
		}
		if ts.After(stats.LastObserved) {
			stats.LastObserved = ts
		}
	}

	stats.Days = make([]DayCount, 0, len(byDay))
	for day, count := range byDay {
		stats.Days = append(stats.Days, DayCount{Day: day, Count: count})
	}
	sort.Slice(stats.Days, func(i, j int) bool { return stats.Days[i].Day.Before(stats.Days[j].Day) })
	for _, day := range stats.Days {
		// Ties resolve to the earliest day since the slice is sorted.
		if day.Count > stats.PeakDayCount {
			stats.PeakDayCount = day.Count
			stats.PeakDay = day.Day
		}
	}

	stats.EventsPerDay = float64(stats.Total) / float64(windowDays)
	return stats
}

// OffHoursRatio returns the share of windowed events in the off-hours band.
func (s ActivityStats) OffHoursRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.OffHours) / float64(s.Total)
}

// WeekendRatio returns the share of windowed events on weekends.
func (s ActivityStats) WeekendRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Weekend) / float64(s.Total)
}
