// Package recommend turns scored risk output into prioritized remediation
// plans across five fixed categories. Recommendations are generated fresh per
// run, deduplicated by category and title, and returned in a deterministic
// priority order.
package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/singura/saas-xray/internal/factors"
	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

const (
	PriorityImmediate = "immediate"
	PriorityHigh      = "high"
	PriorityMedium    = "medium"
	PriorityLow       = "low"

	CategoryScopeReduction = "scope_reduction"
	CategoryRevocation     = "revocation"
	CategoryMonitoring     = "monitoring"
	CategoryPolicy         = "policy"
	CategoryCompliance     = "compliance"

	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

var priorityRank = map[string]int{
	PriorityImmediate: 3,
	PriorityHigh:      2,
	PriorityMedium:    1,
	PriorityLow:       0,
}

// Recommendation is one actionable remediation item.
type Recommendation struct {
	Priority        string   `json:"priority"`
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ActionSteps     []string `json:"action_steps"`
	Impact          string   `json:"impact"`
	EstimatedEffort string   `json:"estimated_effort"`
}

// Build produces the remediation plan for one scored application. The factor
// list must come from the same scoring run as the score result.
func Build(app risk.AppMetadata, score risk.ScoreResult, factorList []factors.Factor, lib *scopes.Library, now time.Time) []Recommendation {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// The escalation condition promotes revocation-class items to immediate.
	escalate := score.Overall >= 75 || factors.HasTier(factorList, factors.TierCritical)

	var out []Recommendation
	out = append(out, scopeReductions(app, lib, escalate)...)
	out = append(out, revocations(app, score, lib, escalate, now)...)
	out = append(out, monitoring(app, score, now)...)
	out = append(out, policy(app, lib)...)
	out = append(out, compliance(app, lib)...)

	out = dedupe(out)
	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] > priorityRank[out[j].Priority]
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func appLabel(app risk.AppMetadata) string {
	name := strings.TrimSpace(app.DisplayName)
	if name == "" {
		name = strings.TrimSpace(app.AppID)
	}
	return name
}

// scopeReductions emits one recommendation per granted scope that has a
// narrower cataloged alternative.
func scopeReductions(app risk.AppMetadata, lib *scopes.Library, escalate bool) []Recommendation {
	alternatives := lib.NarrowerAlternatives(app.GrantedScopes)
	if len(alternatives) == 0 {
		return nil
	}

	urls := make([]string, 0, len(alternatives))
	for url := range alternatives {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	var out []Recommendation
	for _, url := range urls {
		entry, ok := lib.Lookup(url)
		if !ok {
			continue
		}
		narrower := alternatives[url]

		priority := PriorityHigh
		if escalate && entry.Sensitive() {
			priority = PriorityImmediate
		}
		out = append(out, Recommendation{
			Priority:    priority,
			Category:    CategoryScopeReduction,
			Title:       fmt.Sprintf("Replace %s with a narrower scope", url),
			Description: fmt.Sprintf("%s holds %s (catalog risk %d/%s); the catalog lists narrower alternatives that cover common use cases.", appLabel(app), url, entry.RiskScore, entry.RiskLevel),
			ActionSteps: []string{
				fmt.Sprintf("Confirm with the app owner which capability of %s is actually used.", url),
				fmt.Sprintf("Request a new grant using %s instead.", strings.Join(narrower, " or ")),
				fmt.Sprintf("Revoke %s once the narrower grant is verified working.", url),
				"Re-run scoring to confirm the permission dimension dropped.",
			},
			Impact:          reductionImpact(entry, narrower, lib),
			EstimatedEffort: EffortMedium,
		})
	}
	return out
}

// reductionImpact quantifies the exposure change when the catalog can compare
// the broad scope against its best alternative.
func reductionImpact(entry scopes.Entry, narrower []string, lib *scopes.Library) string {
	best := entry.RiskScore
	var bestURL string
	for _, url := range narrower {
		if alt, ok := lib.Lookup(url); ok && alt.RiskScore < best {
			best = alt.RiskScore
			bestURL = alt.ScopeURL
		}
	}
	if bestURL == "" {
		return fmt.Sprintf("Removes a %s-rated grant from the app's footprint.", entry.RiskLevel)
	}
	return fmt.Sprintf("Cuts the scope's catalog risk from %d to %d (%s).", entry.RiskScore, best, bestURL)
}

func revocations(app risk.AppMetadata, score risk.ScoreResult, lib *scopes.Library, escalate bool, now time.Time) []Recommendation {
	var out []Recommendation

	label := appLabel(app)
	revokeSteps := func(reason string) []string {
		return []string{
			fmt.Sprintf("Notify the authorizing user (%s) that the grant will be removed: %s.", strings.TrimSpace(app.AuthorizingUser), reason),
			fmt.Sprintf("Revoke the OAuth grant for client %s in the %s admin console.", app.ClientID, app.Platform),
			"Rotate any refresh tokens the platform reports as still live.",
			"Confirm the app disappears from the next discovery run.",
		}
	}

	if app.IsExternalUser {
		priority := PriorityHigh
		if escalate {
			priority = PriorityImmediate
		}
		out = append(out, Recommendation{
			Priority:        priority,
			Category:        CategoryRevocation,
			Title:           "Revoke externally authorized grant",
			Description:     fmt.Sprintf("%s was authorized by an account external to the organization; external identities must not hold workspace grants.", label),
			ActionSteps:     revokeSteps("external authorizing identity"),
			Impact:          "Eliminates a standing external access path into the workspace.",
			EstimatedEffort: EffortLow,
		})
	}

	dormant := dormantDays(app, now)
	if dormant >= 90 {
		priority := PriorityMedium
		known, _ := lib.Partition(app.GrantedScopes)
		for _, e := range known {
			if e.Sensitive() {
				priority = PriorityHigh
				break
			}
		}
		if escalate {
			priority = PriorityImmediate
		}
		out = append(out, Recommendation{
			Priority:        priority,
			Category:        CategoryRevocation,
			Title:           "Revoke dormant authorization",
			Description:     fmt.Sprintf("%s has produced no observed activity for %d days; the grant provides no business value while remaining exploitable.", label, dormant),
			ActionSteps:     revokeSteps(fmt.Sprintf("no activity for %d days", dormant)),
			Impact:          fmt.Sprintf("Removes %d unused scope grant(s) from the attack surface.", len(scopes.NormalizeAll(app.GrantedScopes))),
			EstimatedEffort: EffortLow,
		})
	}

	if score.Overall >= 75 {
		out = append(out, Recommendation{
			Priority:        PriorityImmediate,
			Category:        CategoryRevocation,
			Title:           "Review for revocation",
			Description:     fmt.Sprintf("%s scored %d/100 (critical band); unless a documented business case exists the grant should be removed.", label, score.Overall),
			ActionSteps:     revokeSteps(fmt.Sprintf("composite risk score %d/100", score.Overall)),
			Impact:          "Closes the highest-scored OAuth exposure in this run.",
			EstimatedEffort: EffortMedium,
		})
	}

	return out
}

func monitoring(app risk.AppMetadata, score risk.ScoreResult, now time.Time) []Recommendation {
	var out []Recommendation
	label := appLabel(app)

	if score.Confidence < 50 {
		out = append(out, Recommendation{
			Priority:    PriorityMedium,
			Category:    CategoryMonitoring,
			Title:       "Connect audit log coverage",
			Description: fmt.Sprintf("Scoring confidence for %s is %d/100 because observability inputs are missing; activity-based detection cannot run.", label, score.Confidence),
			ActionSteps: []string{
				fmt.Sprintf("Enable the %s audit log export for OAuth token activity.", app.Platform),
				"Verify events for this client id arrive in the trailing window.",
				"Re-run scoring after 7 days of collection.",
			},
			Impact:          "Raises scoring confidence and unlocks the activity-based anomaly patterns.",
			EstimatedEffort: EffortMedium,
		})
	}

	if score.Dimensions.Activity >= 50 && score.Confidence >= 50 {
		out = append(out, Recommendation{
			Priority:    PriorityMedium,
			Category:    CategoryMonitoring,
			Title:       "Alert on anomalous activity windows",
			Description: fmt.Sprintf("%s's activity dimension scored %d/100; its usage pattern warrants continuous watching rather than periodic review.", label, score.Dimensions.Activity),
			ActionSteps: []string{
				"Add the client id to the anomaly watch list.",
				"Alert on off-hours (02:00-05:00 UTC) and weekend bursts.",
				"Page on any day exceeding 100 events after a dormant stretch.",
			},
			Impact:          "Shortens detection time for token-theft activity signatures.",
			EstimatedEffort: EffortLow,
		})
	}

	return out
}

func policy(app risk.AppMetadata, lib *scopes.Library) []Recommendation {
	var out []Recommendation
	label := appLabel(app)

	if app.IsAdminUser {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Category:    CategoryPolicy,
			Title:       "Move grant off the admin identity",
			Description: fmt.Sprintf("%s was authorized by an admin account; admin-authorized grants inherit elevated reach regardless of scope.", label),
			ActionSteps: []string{
				"Create a least-privilege service account for the integration.",
				"Re-authorize the app from that account with the same scope set.",
				"Revoke the admin-issued grant.",
			},
			Impact:          "Caps the blast radius of a token compromise to a non-admin identity.",
			EstimatedEffort: EffortMedium,
		})
	}

	if len(app.OwnerEmails) == 0 {
		out = append(out, Recommendation{
			Priority:    PriorityMedium,
			Category:    CategoryPolicy,
			Title:       "Assign an accountable owner",
			Description: fmt.Sprintf("%s has no recorded owner; unowned apps stall both reviews and incident response.", label),
			ActionSteps: []string{
				"Identify the team using the integration from recent activity actors.",
				"Record an owner email on the app record.",
				"Add the app to that team's review rotation.",
			},
			Impact:          "Every future finding for this app gets a routable owner.",
			EstimatedEffort: EffortLow,
		})
	}

	if admin := lib.AdminScopes(app.GrantedScopes); !app.IsAdminUser && len(admin) > 0 {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Category:    CategoryPolicy,
			Title:       "Require admin review for admin-level scopes",
			Description: fmt.Sprintf("%s holds admin-level scope(s) (%s) granted outside an admin-flagged authorization.", label, strings.Join(admin, ", ")),
			ActionSteps: []string{
				"Revoke the admin-level scopes from the current grant.",
				"Route any re-request through the admin approval workflow.",
			},
			Impact:          "Admin capabilities only enter the estate through reviewed grants.",
			EstimatedEffort: EffortMedium,
		})
	}

	return out
}

func compliance(app risk.AppMetadata, lib *scopes.Library) []Recommendation {
	tags := lib.RegulatoryTags(app.GrantedScopes)
	if len(tags) == 0 {
		return nil
	}

	priority := PriorityMedium
	ai := app.IsAIPlatform || scopes.HasAIIndicator(app.GrantedScopes)
	if ai {
		priority = PriorityHigh
	}
	description := fmt.Sprintf("%s accesses data surfaces tagged %s.", appLabel(app), strings.Join(tags, ", "))
	if ai {
		description += " The app is AI-integrated, so regulated data may leave the compliance boundary."
	}
	return []Recommendation{{
		Priority:    priority,
		Category:    CategoryCompliance,
		Title:       fmt.Sprintf("Document %s processing for this app", strings.Join(tags, "/")),
		Description: description,
		ActionSteps: []string{
			"Record the app in the data processing register with the tagged regimes.",
			"Confirm a data processing agreement (or BAA for HIPAA) is on file with the vendor.",
			"Attach the scope list to the next compliance audit packet.",
		},
		Impact:          "Audit findings for this app become documentation checks instead of violations.",
		EstimatedEffort: EffortMedium,
	}}
}

// dedupe drops later duplicates sharing category and title, keeping the first
// (highest-priority generators run first).
func dedupe(list []Recommendation) []Recommendation {
	seen := map[string]struct{}{}
	out := list[:0]
	for _, rec := range list {
		key := rec.Category + "\x00" + rec.Title
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func dormantDays(app risk.AppMetadata, now time.Time) int {
	if app.LastActivityAt.IsZero() {
		return -1
	}
	return int(now.Sub(app.LastActivityAt.UTC()).Hours() / 24)
}
