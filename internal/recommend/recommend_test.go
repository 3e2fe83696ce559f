package recommend

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/singura/saas-xray/internal/factors"
	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

var testNow = time.Date(2026, time.August, 19, 12, 0, 0, 0, time.UTC)

func testLibrary(t *testing.T) *scopes.Library {
	t.Helper()
	lib, err := scopes.Embedded()
	if err != nil {
		t.Fatalf("scopes.Embedded() error = %v", err)
	}
	return lib
}

func buildFor(t *testing.T, app risk.AppMetadata, events []risk.AuditEvent) []Recommendation {
	t.Helper()
	lib := testLibrary(t)
	score, err := risk.Score(app, events, lib, testNow)
	if err != nil {
		t.Fatalf("risk.Score() error = %v", err)
	}
	factorList := factors.Generate(factors.NewInput(app, events, score, lib, testNow))
	return Build(app, score, factorList, lib, testNow)
}

func TestBuildCriticalAppEscalatesToImmediate(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:             "app-critical",
		ClientID:          "client-critical",
		DisplayName:       "Inbox Copilot",
		Platform:          risk.PlatformGoogle,
		GrantedScopes:     []string{"https://mail.google.com/"},
		AuthorizingUser:   "admin@corp.example",
		IsAdminUser:       true,
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -5),
	}
	got := buildFor(t, app, nil)
	if len(got) == 0 {
		t.Fatal("Build() returned no recommendations")
	}
	if got[0].Priority != PriorityImmediate {
		t.Fatalf("first priority = %q, want immediate for critical-band app", got[0].Priority)
	}

	var reduction, revocation bool
	for _, rec := range got {
		switch rec.Category {
		case CategoryScopeReduction:
			reduction = true
			if rec.Priority != PriorityImmediate {
				t.Fatalf("sensitive scope reduction priority = %q, want immediate under escalation", rec.Priority)
			}
			if !strings.Contains(rec.Title, "https://mail.google.com/") {
				t.Fatalf("scope reduction title does not name the scope: %q", rec.Title)
			}
		case CategoryRevocation:
			revocation = true
		}
	}
	if !reduction {
		t.Fatal("missing scope_reduction recommendation for a scope with narrower alternatives")
	}
	if !revocation {
		t.Fatal("missing revocation recommendation for a critical-band score")
	}
}

func TestBuildScopeReductionHighWithoutEscalation(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:             "app-calendar",
		Platform:          risk.PlatformGoogle,
		GrantedScopes:     []string{"https://www.googleapis.com/auth/calendar"},
		AuthorizingUser:   "user@corp.example",
		OwnerEmails:       []string{"user@corp.example"},
		FirstAuthorizedAt: testNow.AddDate(0, 0, -120),
		LastActivityAt:    testNow.AddDate(0, 0, -1),
	}
	events := []risk.AuditEvent{
		{Timestamp: testNow.AddDate(0, 0, -1), EventType: "calendar.read"},
		{Timestamp: testNow.AddDate(0, 0, -8), EventType: "calendar.read"},
	}
	got := buildFor(t, app, events)

	var reduction *Recommendation
	for i := range got {
		if got[i].Category == CategoryScopeReduction {
			reduction = &got[i]
		}
		if got[i].Priority == PriorityImmediate {
			t.Fatalf("unexpected immediate recommendation for non-critical app: %q", got[i].Title)
		}
	}
	if reduction == nil {
		t.Fatal("missing scope_reduction recommendation")
	}
	if reduction.Priority != PriorityHigh {
		t.Fatalf("scope reduction priority = %q, want high when an alternative exists", reduction.Priority)
	}
	if len(reduction.ActionSteps) < 3 {
		t.Fatalf("scope reduction has %d action steps, want ordered concrete steps", len(reduction.ActionSteps))
	}
	if !strings.Contains(reduction.Impact, "risk from") {
		t.Fatalf("impact not quantified: %q", reduction.Impact)
	}
}

func TestBuildDormantAndExternal(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:             "app-stale",
		ClientID:          "client-stale",
		Platform:          risk.PlatformSlack,
		GrantedScopes:     []string{"channels:history"},
		AuthorizingUser:   "contractor@vendor.example",
		IsExternalUser:    true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -300),
		LastActivityAt:    testNow.AddDate(0, 0, -120),
	}
	got := buildFor(t, app, nil)

	titles := map[string]Recommendation{}
	for _, rec := range got {
		titles[rec.Title] = rec
	}
	if _, ok := titles["Revoke externally authorized grant"]; !ok {
		t.Fatalf("missing external revocation, got %v", recTitles(got))
	}
	dormant, ok := titles["Revoke dormant authorization"]
	if !ok {
		t.Fatalf("missing dormant revocation, got %v", recTitles(got))
	}
	if !strings.Contains(dormant.Description, "120 days") {
		t.Fatalf("dormant description lacks concrete day count: %q", dormant.Description)
	}
}

func TestBuildPolicyAndCompliance(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:             "app-graph",
		Platform:          risk.PlatformMicrosoft,
		GrantedScopes:     []string{"https://graph.microsoft.com/mail.read"},
		AuthorizingUser:   "user@corp.example",
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -60),
	}
	got := buildFor(t, app, nil)

	var sawOwner, sawCompliance bool
	for _, rec := range got {
		if rec.Title == "Assign an accountable owner" && rec.Category == CategoryPolicy {
			sawOwner = true
		}
		if rec.Category == CategoryCompliance {
			sawCompliance = true
			if rec.Priority != PriorityHigh {
				t.Fatalf("AI compliance priority = %q, want high", rec.Priority)
			}
			if !strings.Contains(rec.Description, "GDPR") {
				t.Fatalf("compliance description lacks regulatory tags: %q", rec.Description)
			}
		}
	}
	if !sawOwner {
		t.Fatalf("missing owner policy recommendation, got %v", recTitles(got))
	}
	if !sawCompliance {
		t.Fatalf("missing compliance recommendation, got %v", recTitles(got))
	}
}

func TestBuildDeterministicAndDeduplicated(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:    "app-repeat",
		Platform: risk.PlatformGoogle,
		GrantedScopes: []string{
			"https://mail.google.com/",
			"https://www.googleapis.com/auth/drive",
		},
		AuthorizingUser:   "admin@corp.example",
		IsAdminUser:       true,
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -10),
	}

	first := buildFor(t, app, nil)
	second := buildFor(t, app, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("Build() not deterministic across runs")
	}

	seen := map[string]struct{}{}
	for _, rec := range first {
		key := rec.Category + "|" + rec.Title
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate recommendation %q", key)
		}
		seen[key] = struct{}{}
	}

	for i := 1; i < len(first); i++ {
		if priorityRank[first[i].Priority] > priorityRank[first[i-1].Priority] {
			t.Fatalf("priority order violated at %d: %s after %s", i, first[i].Priority, first[i-1].Priority)
		}
	}
}

func recTitles(list []Recommendation) []string {
	out := make([]string, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.Title)
	}
	return out
}
