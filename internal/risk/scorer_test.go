package risk

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/singura/saas-xray/internal/scopes"
)

func testLibrary(t *testing.T) *scopes.Library {
	t.Helper()
	lib, err := scopes.Embedded()
	if err != nil {
		t.Fatalf("scopes.Embedded() error = %v", err)
	}
	return lib
}

var testNow = time.Date(2026, time.August, 19, 12, 0, 0, 0, time.UTC)

func TestSeverityFromScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  string
	}{
		{0, SeverityLow},
		{24, SeverityLow},
		{25, SeverityMedium},
		{49, SeverityMedium},
		{50, SeverityHigh},
		{74, SeverityHigh},
		{75, SeverityCritical},
		{100, SeverityCritical},
	}
	prev := ""
	rank := map[string]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}
	for _, tc := range cases {
		got := SeverityFromScore(tc.score)
		if got != tc.want {
			t.Fatalf("SeverityFromScore(%d) = %q, want %q", tc.score, got, tc.want)
		}
		if prev != "" && rank[got] < rank[prev] {
			t.Fatalf("severity not monotonic at score %d", tc.score)
		}
		prev = got
	}
}

func TestWeightedOverallInvariant(t *testing.T) {
	t.Parallel()

	cases := []Dimensions{
		{},
		{AIPlatform: 100, Permission: 100, Activity: 100, User: 100, Temporal: 100},
		{AIPlatform: 85, Permission: 95, Activity: 50, User: 75, Temporal: 75},
		{AIPlatform: 1, Permission: 1, Activity: 1, User: 1, Temporal: 1},
		{AIPlatform: 33, Permission: 67, Activity: 12, User: 99, Temporal: 42},
	}
	for _, d := range cases {
		got := WeightedOverall(d)
		if got < 0 || got > 100 {
			t.Fatalf("WeightedOverall(%+v) = %d out of range", d, got)
		}
	}
	if got := WeightedOverall(Dimensions{AIPlatform: 100, Permission: 100, Activity: 100, User: 100, Temporal: 100}); got != 100 {
		t.Fatalf("full-risk overall = %d, want 100", got)
	}
	if got := WeightedOverall(Dimensions{AIPlatform: 85, Permission: 95, Activity: 50, User: 75, Temporal: 75}); got != 78 {
		t.Fatalf("weighted overall = %d, want 78", got)
	}
}

func TestScoreRejectsStructurallyInvalidApps(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	_, err := Score(AppMetadata{Platform: PlatformGoogle}, nil, lib, testNow)
	if !errors.Is(err, ErrMissingAppID) {
		t.Fatalf("missing app id: error = %v", err)
	}

	_, err = Score(AppMetadata{AppID: "app-1"}, nil, lib, testNow)
	if !errors.Is(err, ErrMissingPlatform) {
		t.Fatalf("missing platform: error = %v", err)
	}
}

func TestScoreNewAIAppWithFullGmail(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	app := AppMetadata{
		AppID:             "app-gmail-ai",
		ClientID:          "client-1",
		DisplayName:       "Inbox Copilot",
		Platform:          PlatformGoogle,
		GrantedScopes:     []string{"https://mail.google.com/"},
		AuthorizingUser:   "admin@corp.example",
		IsAdminUser:       true,
		IsAIPlatform:      true,
		FirstAuthorizedAt: testNow.AddDate(0, 0, -5),
	}

	result, err := Score(app, nil, lib, testNow)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if result.Overall < 70 || result.Overall > 80 {
		t.Fatalf("Overall = %d, want in [70,80]", result.Overall)
	}
	if result.Severity != SeverityCritical && result.Severity != SeverityHigh {
		t.Fatalf("Severity = %q, want high or critical", result.Severity)
	}
	if result.Dimensions.Activity != NeutralActivityScore {
		t.Fatalf("Activity = %d, want neutral %d with no audit data", result.Dimensions.Activity, NeutralActivityScore)
	}
	// No audit history: no audit (+20) and no recency (+40) contributions.
	if result.Confidence != 40 {
		t.Fatalf("Confidence = %d, want 40", result.Confidence)
	}
	if got := WeightedOverall(result.Dimensions); got != result.Overall {
		t.Fatalf("Overall %d != weighted sum %d", result.Overall, got)
	}
}

func TestScoreBenignLongStandingApp(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	app := AppMetadata{
		AppID:    "app-benign",
		Platform: PlatformGoogle,
		GrantedScopes: []string{
			"https://www.googleapis.com/auth/drive.file",
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		AuthorizingUser:   "user@corp.example",
		FirstAuthorizedAt: testNow.AddDate(0, 0, -200),
		LastActivityAt:    testNow.AddDate(0, 0, -2),
	}

	// Steady low weekday activity: one event each Monday 10:00 UTC.
	var events []AuditEvent
	for d := 2; d <= 86; d += 7 {
		events = append(events, AuditEvent{
			Timestamp: testNow.AddDate(0, 0, -d).Add(-2 * time.Hour),
			EventType: "file.read",
		})
	}

	result, err := Score(app, events, lib, testNow)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if result.Overall >= 25 {
		t.Fatalf("Overall = %d, want < 25", result.Overall)
	}
	if result.Severity != SeverityLow {
		t.Fatalf("Severity = %q, want low", result.Severity)
	}
	if result.Confidence != 100 {
		t.Fatalf("Confidence = %d, want 100", result.Confidence)
	}
}

func TestScoreIdempotent(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	app := AppMetadata{
		AppID:             "app-idem",
		Platform:          PlatformSlack,
		GrantedScopes:     []string{"channels:history", "chat:write"},
		AuthorizingUser:   "user@corp.example",
		FirstAuthorizedAt: testNow.AddDate(0, 0, -45),
	}
	events := []AuditEvent{
		{Timestamp: testNow.AddDate(0, 0, -1), EventType: "message.post"},
		{Timestamp: testNow.AddDate(0, 0, -3).Add(3 * time.Hour), EventType: "message.post"},
	}

	first, err := Score(app, events, lib, testNow)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	second, err := Score(app, events, lib, testNow)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Score() not idempotent: %+v != %+v", first, second)
	}
}

func TestConfidenceNeverDecreasesWithMoreData(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	app := AppMetadata{AppID: "app-conf", Platform: PlatformGoogle}
	var events []AuditEvent

	score := func() int {
		t.Helper()
		result, err := Score(app, events, lib, testNow)
		if err != nil {
			t.Fatalf("Score() error = %v", err)
		}
		if result.Confidence < 0 || result.Confidence > 100 {
			t.Fatalf("Confidence = %d out of range", result.Confidence)
		}
		return result.Confidence
	}

	prev := score()

	app.GrantedScopes = []string{"openid"}
	if c := score(); c < prev {
		t.Fatalf("confidence dropped after adding scopes: %d < %d", c, prev)
	} else {
		prev = c
	}

	app.AuthorizingUser = "user@corp.example"
	if c := score(); c < prev {
		t.Fatalf("confidence dropped after adding user: %d < %d", c, prev)
	} else {
		prev = c
	}

	app.FirstAuthorizedAt = testNow.AddDate(0, 0, -40)
	if c := score(); c < prev {
		t.Fatalf("confidence dropped after adding temporal data: %d < %d", c, prev)
	} else {
		prev = c
	}

	events = []AuditEvent{{Timestamp: testNow.AddDate(0, 0, -30), EventType: "read"}}
	if c := score(); c < prev {
		t.Fatalf("confidence dropped after adding audit data: %d < %d", c, prev)
	} else {
		prev = c
	}

	events = append(events, AuditEvent{Timestamp: testNow.AddDate(0, 0, -1), EventType: "read"})
	if c := score(); c < prev {
		t.Fatalf("confidence dropped after adding recent data: %d < %d", c, prev)
	} else if c != 100 {
		t.Fatalf("all data present: confidence = %d, want 100", c)
	}
}

func TestPermissionRiskUnknownScopesScoreNeutral(t *testing.T) {
	t.Parallel()
	lib := testLibrary(t)

	app := AppMetadata{
		AppID:         "app-unknown",
		Platform:      PlatformGoogle,
		GrantedScopes: []string{"https://example.com/auth/custom.telemetry"},
	}
	if got := PermissionRisk(app, lib); got != 50 {
		t.Fatalf("PermissionRisk(unknown only) = %d, want 50", got)
	}
	if got := PermissionRisk(AppMetadata{AppID: "a", Platform: "p"}, lib); got != 0 {
		t.Fatalf("PermissionRisk(no scopes) = %d, want 0", got)
	}
}

func TestUserRisk(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		app  AppMetadata
		want int
	}{
		{name: "standard", app: AppMetadata{}, want: 10},
		{name: "admin", app: AppMetadata{IsAdminUser: true}, want: 75},
		{name: "external", app: AppMetadata{IsExternalUser: true}, want: 70},
		{name: "external admin", app: AppMetadata{IsAdminUser: true, IsExternalUser: true}, want: 100},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := UserRisk(tc.app); got != tc.want {
				t.Fatalf("UserRisk() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestHasDormancySpike(t *testing.T) {
	t.Parallel()

	var events []AuditEvent
	events = append(events, AuditEvent{Timestamp: testNow.AddDate(0, 0, -75), EventType: "read"})
	for i := 0; i < 150; i++ {
		events = append(events, AuditEvent{
			Timestamp: testNow.Add(-time.Duration(i) * time.Minute),
			EventType: "export",
		})
	}
	stats := SummarizeActivity(events, testNow, DefaultAuditWindowDays)
	if !HasDormancySpike(stats) {
		t.Fatal("HasDormancySpike() = false, want true for 75-day gap then 150-event day")
	}

	steady := SummarizeActivity([]AuditEvent{
		{Timestamp: testNow.AddDate(0, 0, -10)},
		{Timestamp: testNow.AddDate(0, 0, -5)},
		{Timestamp: testNow.AddDate(0, 0, -1)},
	}, testNow, DefaultAuditWindowDays)
	if HasDormancySpike(steady) {
		t.Fatal("HasDormancySpike() = true for steady activity")
	}
}

func TestSummarizeActivityWindowing(t *testing.T) {
	t.Parallel()

	events := []AuditEvent{
		{Timestamp: testNow.AddDate(0, 0, -100)},            // outside window
		{Timestamp: testNow.Add(time.Hour)},                 // future, ignored
		{Timestamp: testNow.AddDate(0, 0, -1)},              // counted
		{Timestamp: testNow.AddDate(0, 0, -2).Add(-9 * time.Hour)}, // 03:00 UTC, off-hours
	}
	stats := SummarizeActivity(events, testNow, DefaultAuditWindowDays)
	if stats.Total != 2 {
		t.Fatalf("Total = %d, want 2", stats.Total)
	}
	if stats.OffHours != 1 {
		t.Fatalf("OffHours = %d, want 1", stats.OffHours)
	}
	if stats.WindowDays != DefaultAuditWindowDays {
		t.Fatalf("WindowDays = %d", stats.WindowDays)
	}
}
