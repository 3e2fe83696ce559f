// Package factors converts scorer output into ranked, evidence-backed,
// human-readable findings by matching a fixed catalog of trigger templates.
//
// Each template is a tagged variant: the trigger predicate decides whether the
// factor applies, the renderer words it with concrete evidence from the
// inputs. Factors are never emitted with placeholder text.
package factors

import (
	"sort"
	"time"

	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

const (
	TierCritical = "critical"
	TierHigh     = "high"
	TierMedium   = "medium"
	TierLow      = "low"
)

// Icon returns the severity marker used in rendered reports.
func Icon(tier string) string {
	switch tier {
	case TierCritical:
		return "🚨"
	case TierHigh:
		return "⚠️"
	case TierMedium:
		return "📊"
	default:
		return "ℹ️"
	}
}

var tierRank = map[string]int{
	TierCritical: 3,
	TierHigh:     2,
	TierMedium:   1,
	TierLow:      0,
}

// Factor is one generated finding. Generated fresh on each scoring run and
// embedded in the analysis result; not persisted independently.
type Factor struct {
	Severity       string   `json:"severity"`
	Icon           string   `json:"icon"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Evidence       []string `json:"evidence"`
	Recommendation string   `json:"recommendation"`
}

// Input carries everything a template may inspect. All fields are read-only.
type Input struct {
	App   risk.AppMetadata
	Score risk.ScoreResult
	Stats risk.ActivityStats
	Lib   *scopes.Library
	Now   time.Time
}

type rendered struct {
	Description    string
	Evidence       []string
	Recommendation string
}

type template struct {
	id       string
	tier     string
	category string
	title    string
	trigger  func(in Input) bool
	render   func(in Input) rendered
}

// NewInput assembles a template input from raw scoring materials.
func NewInput(app risk.AppMetadata, events []risk.AuditEvent, score risk.ScoreResult, lib *scopes.Library, now time.Time) Input {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Input{
		App:   app,
		Score: score,
		Stats: risk.SummarizeActivity(events, now, risk.DefaultAuditWindowDays),
		Lib:   lib,
		Now:   now,
	}
}

// Generate matches every catalog template against the input and returns the
// instantiated factors sorted by severity descending, ties broken by category
// then title ascending for reproducible output.
func Generate(in Input) []Factor {
	var out []Factor
	for _, tmpl := range catalog {
		if !tmpl.trigger(in) {
			continue
		}
		body := tmpl.render(in)
		out = append(out, Factor{
			Severity:       tmpl.tier,
			Icon:           Icon(tmpl.tier),
			Category:       tmpl.category,
			Title:          tmpl.title,
			Description:    body.Description,
			Evidence:       body.Evidence,
			Recommendation: body.Recommendation,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if tierRank[out[i].Severity] != tierRank[out[j].Severity] {
			return tierRank[out[i].Severity] > tierRank[out[j].Severity]
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// HasTier reports whether any factor carries the given severity tier.
func HasTier(factorList []Factor, tier string) bool {
	for _, f := range factorList {
		if f.Severity == tier {
			return true
		}
	}
	return false
}
