package factors

import (
	"reflect"
	"strings"
	"testing"
	"time"

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

func scoredInput(t *testing.T, app risk.AppMetadata, events []risk.AuditEvent) Input {
	t.Helper()
	lib := testLibrary(t)
	score, err := risk.Score(app, events, lib, testNow)
	if err != nil {
		t.Fatalf("risk.Score() error = %v", err)
	}
	return NewInput(app, events, score, lib, testNow)
}

func TestCatalogShape(t *testing.T) {
	t.Parallel()

	if len(catalog) < 50 {
		t.Fatalf("catalog has %d templates, want >= 50", len(catalog))
	}

	ids := map[string]struct{}{}
	perTier := map[string]int{}
	for _, tmpl := range catalog {
		if tmpl.id == "" || tmpl.title == "" || tmpl.category == "" {
			t.Fatalf("template %+v missing id, title, or category", tmpl.id)
		}
		if _, dup := ids[tmpl.id]; dup {
			t.Fatalf("duplicate template id %q", tmpl.id)
		}
		ids[tmpl.id] = struct{}{}
		if _, ok := tierRank[tmpl.tier]; !ok {
			t.Fatalf("template %q has unknown tier %q", tmpl.id, tmpl.tier)
		}
		if tmpl.trigger == nil || tmpl.render == nil {
			t.Fatalf("template %q missing trigger or render", tmpl.id)
		}
		perTier[tmpl.tier]++
	}
	for _, tier := range []string{TierCritical, TierHigh, TierMedium, TierLow} {
		if perTier[tier] < 10 {
			t.Fatalf("tier %s has %d templates, want >= 10", tier, perTier[tier])
		}
	}
}

func TestGenerateAdminAIGmailApp(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:             "app-gmail-ai",
		DisplayName:       "Inbox Copilot",
		Platform:          risk.PlatformGoogle,
		GrantedScopes:     []string{"https://mail.google.com/"},
		AuthorizingUser:   "admin@corp.example",
		IsAdminUser:       true,
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -5),
	}
	got := Generate(scoredInput(t, app, nil))

	if len(got) == 0 {
		t.Fatal("Generate() returned no factors")
	}
	if got[0].Severity != TierCritical {
		t.Fatalf("first factor severity = %q, want critical first", got[0].Severity)
	}

	titles := map[string]Factor{}
	for _, f := range got {
		titles[f.Title] = f
	}
	adminFactor, ok := titles["Admin Access"]
	if !ok {
		t.Fatalf("missing Admin Access factor, got titles %v", factorTitles(got))
	}
	if adminFactor.Severity != TierCritical {
		t.Fatalf("Admin Access severity = %q, want critical", adminFactor.Severity)
	}
	if adminFactor.Icon != "🚨" {
		t.Fatalf("Admin Access icon = %q", adminFactor.Icon)
	}
	if _, ok := titles["Full Mailbox Control"]; !ok {
		t.Fatalf("missing Full Mailbox Control factor, got titles %v", factorTitles(got))
	}
	if _, ok := titles["Critical Composite Risk"]; !ok {
		t.Fatalf("missing Critical Composite Risk factor, got titles %v", factorTitles(got))
	}
}

func TestGenerateBenignAppHasNoCriticalOrHigh(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:    "app-benign",
		Platform: risk.PlatformGoogle,
		GrantedScopes: []string{
			"https://www.googleapis.com/auth/drive.file",
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		AuthorizingUser:   "user@corp.example",
		OwnerEmails:       []string{"user@corp.example"},
		FirstAuthorizedAt: testNow.AddDate(0, 0, -200),
		LastActivityAt:    testNow.AddDate(0, 0, -2),
	}
	var events []risk.AuditEvent
	for d := 2; d <= 86; d += 7 {
		events = append(events, risk.AuditEvent{
			Timestamp: testNow.AddDate(0, 0, -d).Add(-2 * time.Hour),
			EventType: "file.read",
		})
	}

	got := Generate(scoredInput(t, app, events))
	if HasTier(got, TierCritical) || HasTier(got, TierHigh) {
		t.Fatalf("benign app produced critical/high factors: %v", factorTitles(got))
	}
	if !HasTier(got, TierLow) {
		t.Fatalf("benign app produced no low-tier positives: %v", factorTitles(got))
	}
	titles := factorTitles(got)
	for _, want := range []string{"App-Created Files Only", "Low Composite Risk", "Owner Documented"} {
		found := false
		for _, title := range titles {
			if title == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing %q factor, got %v", want, titles)
		}
	}
}

func TestGenerateSortAndDeterminism(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:    "app-mixed",
		Platform: risk.PlatformGoogle,
		GrantedScopes: []string{
			"https://mail.google.com/",
			"https://www.googleapis.com/auth/drive",
			"https://example.com/auth/custom.telemetry",
		},
		AuthorizingUser:   "user@corp.example",
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -10),
	}
	in := scoredInput(t, app, []risk.AuditEvent{
		{Timestamp: testNow.AddDate(0, 0, -1).Add(-9 * time.Hour), EventType: "export"},
	})

	first := Generate(in)
	for i := 0; i < 5; i++ {
		if again := Generate(in); !reflect.DeepEqual(first, again) {
			t.Fatalf("Generate() not deterministic on run %d", i+1)
		}
	}

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if tierRank[cur.Severity] > tierRank[prev.Severity] {
			t.Fatalf("severity order violated at %d: %s after %s", i, cur.Severity, prev.Severity)
		}
		if cur.Severity == prev.Severity {
			if cur.Category < prev.Category {
				t.Fatalf("category order violated at %d: %s after %s", i, cur.Category, prev.Category)
			}
			if cur.Category == prev.Category && cur.Title < prev.Title {
				t.Fatalf("title order violated at %d: %s after %s", i, cur.Title, prev.Title)
			}
		}
	}
}

func TestGeneratedFactorsCarryConcreteEvidence(t *testing.T) {
	t.Parallel()

	app := risk.AppMetadata{
		AppID:    "app-evidence",
		Platform: risk.PlatformGoogle,
		GrantedScopes: []string{
			"https://mail.google.com/",
			"https://www.googleapis.com/auth/drive",
		},
		InitialScopes:     []string{"https://www.googleapis.com/auth/userinfo.email"},
		AuthorizingUser:   "user@corp.example",
		IsAIPlatform:      true,
		IsExternalUser:    true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -400),
	}
	got := Generate(scoredInput(t, app, nil))

	for _, f := range got {
		if strings.TrimSpace(f.Description) == "" {
			t.Fatalf("%s: empty description", f.Title)
		}
		if len(f.Evidence) == 0 {
			t.Fatalf("%s: no evidence", f.Title)
		}
		if strings.TrimSpace(f.Recommendation) == "" {
			t.Fatalf("%s: empty recommendation", f.Title)
		}
		for _, line := range append([]string{f.Description, f.Recommendation}, f.Evidence...) {
			if strings.Contains(line, "%!") {
				t.Fatalf("%s: malformed format output %q", f.Title, line)
			}
		}
	}

	titles := map[string]Factor{}
	for _, f := range got {
		titles[f.Title] = f
	}
	exfil, ok := titles["Data Exfiltration Risk"]
	if !ok {
		t.Fatalf("missing Data Exfiltration Risk factor, got %v", factorTitles(got))
	}
	foundScope := false
	for _, line := range exfil.Evidence {
		if strings.Contains(line, "https://mail.google.com/") {
			foundScope = true
		}
	}
	if !foundScope {
		t.Fatalf("exfil evidence does not cite the granted scope: %v", exfil.Evidence)
	}
	creep, ok := titles["Scope Creep Into Sensitive Access"]
	if !ok {
		t.Fatalf("missing scope creep factor, got %v", factorTitles(got))
	}
	if creep.Severity != TierCritical {
		t.Fatalf("scope creep severity = %q, want critical", creep.Severity)
	}
}

func TestHasTier(t *testing.T) {
	t.Parallel()

	list := []Factor{{Severity: TierMedium}, {Severity: TierLow}}
	if !HasTier(list, TierMedium) {
		t.Fatal("HasTier(medium) = false")
	}
	if HasTier(list, TierCritical) {
		t.Fatal("HasTier(critical) = true")
	}
}

func factorTitles(list []Factor) []string {
	out := make([]string, 0, len(list))
	for _, f := range list {
		out = append(out, f.Title)
	}
	return out
}
