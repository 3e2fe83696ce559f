// Package anomaly runs the fixed catalog of threshold-based detection
// patterns against an application's metadata and trailing audit window.
//
// Every pattern is a stateless predicate; all patterns are evaluated on every
// run and the results form a set with no ordering dependency. Confidence and
// severity are calibrated constants per pattern type, not per-instance
// estimates.
package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

const (
	PatternZombieApp         = "zombie_app"
	PatternScopeCreep        = "scope_creep"
	PatternDormancySpike     = "dormancy_spike"
	PatternOffHoursAccess    = "off_hours_access"
	PatternVelocitySpike     = "velocity_spike"
	PatternDataExfilCombo    = "data_exfil_combo"
	PatternAdminScopeNonAdmin = "admin_scope_non_admin"
	PatternExternalUserAuth  = "external_user_auth"
	PatternNewAppBroadScope  = "new_app_broad_scope"
	PatternWeekendBotPattern = "weekend_bot_pattern"
)

// Fixed detection thresholds.
const (
	zombieDormantDays        = 90
	scopeCreepGrowthRatio    = 0.5
	offHoursOccurrenceMin    = 5
	velocityIncreaseFactor   = 4.0 // >=300% increase over baseline
	velocityRecentWindowDays = 7
	newAppAgeDays            = 30
	newAppScopeMin           = 10
	weekendActivityRatio     = 0.30
)

// Result is the outcome of one pattern evaluation. Confidence and Severity
// carry the pattern's calibrated constants when Detected is true and are zero
// otherwise.
type Result struct {
	Pattern        string `json:"pattern"`
	Detected       bool   `json:"detected"`
	Confidence     int    `json:"confidence,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

type pattern struct {
	id             string
	confidence     int
	severity       string
	recommendation string
	detect         func(in input) bool
}

type input struct {
	app   risk.AppMetadata
	stats risk.ActivityStats
	lib   *scopes.Library
	now   time.Time
}

var catalog = []pattern{
	{
		id:             PatternZombieApp,
		confidence:     95,
		severity:       risk.SeverityMedium,
		recommendation: "Revoke the authorization: the app has been inactive for 90+ days and retains standing access.",
		detect:         detectZombie,
	},
	{
		id:             PatternScopeCreep,
		confidence:     90,
		severity:       risk.SeverityHigh,
		recommendation: "Re-review the grant: the scope set grew 50%+ since first authorization without re-approval.",
		detect:         detectScopeCreep,
	},
	{
		id:             PatternDormancySpike,
		confidence:     85,
		severity:       risk.SeverityCritical,
		recommendation: "Investigate immediately: a long-dormant app burst past 100 events/day, a common exfiltration signature.",
		detect:         func(in input) bool { return risk.HasDormancySpike(in.stats) },
	},
	{
		id:             PatternOffHoursAccess,
		confidence:     80,
		severity:       risk.SeverityHigh,
		recommendation: "Review off-hours sessions: repeated 2-5am access rarely matches legitimate interactive use.",
		detect:         func(in input) bool { return in.stats.OffHours >= offHoursOccurrenceMin },
	},
	{
		id:             PatternVelocitySpike,
		confidence:     85,
		severity:       risk.SeverityHigh,
		recommendation: "Check for automation takeover: recent activity is 4x+ the trailing baseline rate.",
		detect:         detectVelocitySpike,
	},
	{
		id:             PatternDataExfilCombo,
		confidence:     95,
		severity:       risk.SeverityCritical,
		recommendation: "Treat as a data exfiltration path: simultaneous file, mail, and AI-platform access allows bulk egress into external models.",
		detect:         detectDataExfilCombo,
	},
	{
		id:             PatternAdminScopeNonAdmin,
		confidence:     90,
		severity:       risk.SeverityCritical,
		recommendation: "Revoke the admin-level scopes: the grant was not made through an admin-flagged authorization.",
		detect:         detectAdminScopeNonAdmin,
	},
	{
		id:             PatternExternalUserAuth,
		confidence:     100,
		severity:       risk.SeverityHigh,
		recommendation: "Remove the grant: the authorizing account is external to the organization.",
		detect:         func(in input) bool { return in.app.IsExternalUser },
	},
	{
		id:             PatternNewAppBroadScope,
		confidence:     85,
		severity:       risk.SeverityHigh,
		recommendation: "Hold for review: an app under 30 days old requesting 10+ scopes exceeds normal onboarding breadth.",
		detect:         detectNewAppBroadScope,
	},
	{
		id:             PatternWeekendBotPattern,
		confidence:     75,
		severity:       risk.SeverityMedium,
		recommendation: "Confirm intended automation: over 30% of activity lands on weekends, typical of unattended bots.",
		detect:         func(in input) bool { return in.stats.Total > 0 && in.stats.WeekendRatio() > weekendActivityRatio },
	},
}

// Detect evaluates every catalog pattern against the application. Results are
// returned for all patterns, detected or not, sorted by pattern id for
// reproducible output.
func Detect(app risk.AppMetadata, events []risk.AuditEvent, lib *scopes.Library, now time.Time) []Result {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	in := input{
		app:   app,
		stats: risk.SummarizeActivity(events, now, risk.DefaultAuditWindowDays),
		lib:   lib,
		now:   now,
	}

	out := make([]Result, 0, len(catalog))
	for _, p := range catalog {
		result := Result{Pattern: p.id}
		if p.detect(in) {
			result.Detected = true
			result.Confidence = p.confidence
			result.Severity = p.severity
			result.Recommendation = p.recommendation
		}
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

// Detected filters a result set down to the triggered patterns.
func Detected(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Detected {
			out = append(out, r)
		}
	}
	return out
}

func detectZombie(in input) bool {
	last := in.stats.LastObserved
	if in.app.LastActivityAt.After(last) {
		last = in.app.LastActivityAt.UTC()
	}
	if last.IsZero() {
		// Never active: zombie once the authorization itself is 90+ days old.
		if in.app.FirstAuthorizedAt.IsZero() {
			return false
		}
		return daysBetween(in.app.FirstAuthorizedAt, in.now) >= zombieDormantDays
	}
	return daysBetween(last, in.now) >= zombieDormantDays
}

func detectScopeCreep(in input) bool {
	initial := len(scopes.NormalizeAll(in.app.InitialScopes))
	granted := len(scopes.NormalizeAll(in.app.GrantedScopes))
	if initial == 0 || granted <= initial {
		return false
	}
	growth := float64(granted-initial) / float64(initial)
	return growth >= scopeCreepGrowthRatio
}

func detectVelocitySpike(in input) bool {
	recentCutoff := in.now.AddDate(0, 0, -velocityRecentWindowDays)

	var recent, baseline int
	for _, day := range in.stats.Days {
		if day.Day.Before(recentCutoff) {
			baseline += day.Count
		} else {
			recent += day.Count
		}
	}
	baselineDays := in.stats.WindowDays - velocityRecentWindowDays
	if baseline == 0 || baselineDays <= 0 {
		return false
	}

	baselineRate := float64(baseline) / float64(baselineDays)
	recentRate := float64(recent) / float64(velocityRecentWindowDays)
	return recentRate >= baselineRate*velocityIncreaseFactor
}

func detectDataExfilCombo(in input) bool {
	granted := in.app.GrantedScopes
	ai := in.app.IsAIPlatform || scopes.HasAIIndicator(granted)
	return ai && scopes.HasFileScope(granted) && scopes.HasMailScope(granted)
}

func detectAdminScopeNonAdmin(in input) bool {
	if in.app.IsAdminUser {
		return false
	}
	return len(in.lib.AdminScopes(in.app.GrantedScopes)) > 0
}

func detectNewAppBroadScope(in input) bool {
	if in.app.FirstAuthorizedAt.IsZero() {
		return false
	}
	age := daysBetween(in.app.FirstAuthorizedAt, in.now)
	return age < newAppAgeDays && len(scopes.NormalizeAll(in.app.GrantedScopes)) >= newAppScopeMin
}

func daysBetween(from, to time.Time) int {
	return int(to.UTC().Sub(from.UTC()).Hours() / 24)
}

// String renders a short human-readable summary for logs.
func (r Result) String() string {
	if !r.Detected {
		return fmt.Sprintf("%s: not detected", r.Pattern)
	}
	return fmt.Sprintf("%s: detected (confidence %d%%, severity %s)", r.Pattern, r.Confidence, r.Severity)
}
