package risk

import (
	"math"
	"time"

	"github.com/singura/saas-xray/internal/scopes"
)

// Fixed composite weights. Overall is always the rounded weighted sum of the
// five dimensions.
const (
	WeightAIPlatform = 0.30
	WeightPermission = 0.25
	WeightActivity   = 0.20
	WeightUser       = 0.15
	WeightTemporal   = 0.10
)

// NeutralActivityScore is the explicit midpoint used when no audit data is
// available. Missing data degrades confidence, it must not read as "safe".
const NeutralActivityScore = 50

// unknownScopeScore is the neutral contribution of a scope absent from the
// catalog. Unknown scopes are surfaced as their own risk factor; they must
// never silently score zero.
const unknownScopeScore = 50

// broadReadScoreFloor marks catalog scores treated as broad data access when
// combined with AI-platform classification.
const broadReadScoreFloor = 60

// AIPlatformRisk scores AI-integration exposure: an AI-classified app holding
// broad data scopes dominates this dimension.
func AIPlatformRisk(app AppMetadata, lib *scopes.Library) int {
	indicator := scopes.HasAIIndicator(app.GrantedScopes)
	ai := app.IsAIPlatform || indicator
	if !ai {
		return 0
	}

	score := 55
	if hasBroadDataScope(app.GrantedScopes, lib) {
		score += 30
	}
	if indicator {
		score += 15
	}
	return clampScore(score)
}

func hasBroadDataScope(granted []string, lib *scopes.Library) bool {
	known, _ := lib.Partition(granted)
	for _, entry := range known {
		if entry.RiskScore >= broadReadScoreFloor {
			return true
		}
	}
	return false
}

// PermissionRisk aggregates catalog risk scores across granted scopes. The
// broadest grant dominates; additional sensitive scopes push the score
// further. Unknown scopes contribute a neutral score.
func PermissionRisk(app AppMetadata, lib *scopes.Library) int {
	known, unknown := lib.Partition(app.GrantedScopes)
	total := len(known) + len(unknown)
	if total == 0 {
		return 0
	}

	maxScore := 0
	sum := 0
	sensitive := 0
	for _, entry := range known {
		if entry.RiskScore > maxScore {
			maxScore = entry.RiskScore
		}
		sum += entry.RiskScore
		if entry.Sensitive() {
			sensitive++
		}
	}
	for range unknown {
		if unknownScopeScore > maxScore {
			maxScore = unknownScopeScore
		}
		sum += unknownScopeScore
	}

	avg := float64(sum) / float64(total)
	score := 0.6*float64(maxScore) + 0.4*avg
	if sensitive > 1 {
		extra := 5 * (sensitive - 1)
		if extra > 15 {
			extra = 15
		}
		score += float64(extra)
	}
	return clampScore(int(math.Round(score)))
}

// ActivityRisk scores the trailing audit window: volume, off-hours and
// weekend ratios, and dormancy-then-spike bursts. With no audit data it
// returns the neutral midpoint; the gap is reflected in confidence instead.
func ActivityRisk(stats ActivityStats) int {
	if stats.Total == 0 {
		return NeutralActivityScore
	}

	volume := int(math.Round(stats.EventsPerDay * 3))
	if volume > 30 {
		volume = 30
	}
	score := volume
	score += int(math.Round(30 * stats.OffHoursRatio()))
	score += int(math.Round(20 * stats.WeekendRatio()))
	if HasDormancySpike(stats) {
		score += 40
	}
	return clampScore(score)
}

// Dormancy-spike thresholds shared with the anomaly detector.
const (
	DormancyGapDays       = 60
	DormancySpikeEventMin = 101
)

// HasDormancySpike reports a gap of at least DormancyGapDays between active
// days followed by a day with more than 100 events.
func HasDormancySpike(stats ActivityStats) bool {
	for i := 1; i < len(stats.Days); i++ {
		gap := stats.Days[i].Day.Sub(stats.Days[i-1].Day).Hours() / 24
		if gap >= DormancyGapDays && stats.Days[i].Count >= DormancySpikeEventMin {
			return true
		}
	}
	return false
}

// UserRisk scores the authorization context: admin authorizers and external
// users raise risk.
func UserRisk(app AppMetadata) int {
	score := 10
	if app.IsAdminUser {
		score += 65
	}
	if app.IsExternalUser {
		score += 60
	}
	return clampScore(score)
}

// TemporalRisk scores authorization age, scope-change recency, and dormancy.
// New apps and freshly escalated scopes are riskier.
func TemporalRisk(app AppMetadata, now time.Time) int {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if app.FirstAuthorizedAt.IsZero() {
		return NeutralActivityScore
	}

	age := now.Sub(app.FirstAuthorizedAt.UTC())
	score := 0
	switch {
	case age < 7*24*time.Hour:
		score = 75
	case age < 30*24*time.Hour:
		score = 55
	case age < 90*24*time.Hour:
		score = 35
	case age < 180*24*time.Hour:
		score = 15
	default:
		score = 5
	}

	if !app.LastScopeChangeAt.IsZero() {
		sinceChange := now.Sub(app.LastScopeChangeAt.UTC())
		switch {
		case sinceChange < 7*24*time.Hour:
			score += 20
		case sinceChange < 30*24*time.Hour:
			score += 10
		}
	}

	if !app.LastActivityAt.IsZero() && now.Sub(app.LastActivityAt.UTC()) >= 90*24*time.Hour {
		score += 10
	}
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
