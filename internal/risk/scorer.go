package risk

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/singura/saas-xray/internal/scopes"
)

// Structural validation errors. Data-quality gaps (missing events, empty
// scope lists) never error; they degrade confidence instead.
var (
	ErrMissingAppID    = errors.New("risk: app id is required")
	ErrMissingPlatform = errors.New("risk: platform is required")
)

// recencyWindow bounds the +40 confidence bonus for recently observed
// activity.
const recencyWindow = 7 * 24 * time.Hour

// Score computes the composite risk result for one application over its
// trailing audit window. It is a pure function of its inputs: safe to invoke
// concurrently across applications, no I/O, no retained state.
func Score(app AppMetadata, events []AuditEvent, lib *scopes.Library, now time.Time) (ScoreResult, error) {
	if err := ValidateApp(app); err != nil {
		return ScoreResult{}, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stats := SummarizeActivity(events, now, DefaultAuditWindowDays)

	dims := Dimensions{
		AIPlatform: AIPlatformRisk(app, lib),
		Permission: PermissionRisk(app, lib),
		Activity:   ActivityRisk(stats),
		User:       UserRisk(app),
		Temporal:   TemporalRisk(app, now),
	}

	overall := WeightedOverall(dims)
	return ScoreResult{
		Dimensions: dims,
		Overall:    overall,
		Severity:   SeverityFromScore(overall),
		Confidence: confidence(app, stats, now),
	}, nil
}

// ValidateApp rejects structurally invalid application records.
func ValidateApp(app AppMetadata) error {
	var errs []error
	if strings.TrimSpace(app.AppID) == "" {
		errs = append(errs, ErrMissingAppID)
	}
	if strings.TrimSpace(app.Platform) == "" {
		errs = append(errs, ErrMissingPlatform)
	}
	return errors.Join(errs...)
}

// WeightedOverall is the rounded 30/25/20/15/10 weighted sum, clamped to
// [0,100].
func WeightedOverall(d Dimensions) int {
	sum := WeightAIPlatform*float64(d.AIPlatform) +
		WeightPermission*float64(d.Permission) +
		WeightActivity*float64(d.Activity) +
		WeightUser*float64(d.User) +
		WeightTemporal*float64(d.Temporal)
	return clampScore(int(math.Round(sum)))
}

// SeverityFromScore maps an overall score to its severity band. Bands are
// inclusive-lower, exclusive-upper, with 100 inclusive in critical.
func SeverityFromScore(score int) string {
	switch {
	case score >= 75:
		return SeverityCritical
	case score >= 50:
		return SeverityHigh
	case score >= 25:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// confidence estimates data completeness: +20 audit, +20 scope, +10 user,
// +10 temporal, +40 recent observation, capped at 100. More data never lowers
// confidence.
func confidence(app AppMetadata, stats ActivityStats, now time.Time) int {
	c := 0
	if stats.Total > 0 {
		c += 20
	}
	if len(scopes.NormalizeAll(app.GrantedScopes)) > 0 {
		c += 20
	}
	if strings.TrimSpace(app.AuthorizingUser) != "" {
		c += 10
	}
	if !app.FirstAuthorizedAt.IsZero() {
		c += 10
	}

	lastObserved := stats.LastObserved
	if app.LastActivityAt.After(lastObserved) {
		lastObserved = app.LastActivityAt.UTC()
	}
	if !lastObserved.IsZero() && now.Sub(lastObserved) <= recencyWindow {
		c += 40
	}

	if c > 100 {
		c = 100
	}
	return c
}
