package factors

import (
	"fmt"
	"strings"
	"time"

	"github.com/singura/saas-xray/internal/risk"
	"github.com/singura/saas-xray/internal/scopes"
)

func fmtDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func granted(in Input) []string {
	return scopes.NormalizeAll(in.App.GrantedScopes)
}

func knownEntries(in Input) []scopes.Entry {
	known, _ := in.Lib.Partition(in.App.GrantedScopes)
	return known
}

func unknownScopes(in Input) []string {
	_, unknown := in.Lib.Partition(in.App.GrantedScopes)
	return unknown
}

func sensitiveEntries(in Input) []scopes.Entry {
	var out []scopes.Entry
	for _, e := range knownEntries(in) {
		if e.Sensitive() {
			out = append(out, e)
		}
	}
	return out
}

func entriesWithTag(in Input, tag string) []scopes.Entry {
	var out []scopes.Entry
	for _, e := range knownEntries(in) {
		for _, t := range e.RegulatoryImpact {
			if strings.EqualFold(t, tag) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func entriesOfService(in Input, serviceNeedle string) []scopes.Entry {
	var out []scopes.Entry
	for _, e := range knownEntries(in) {
		if strings.Contains(strings.ToLower(e.ServiceName), serviceNeedle) {
			out = append(out, e)
		}
	}
	return out
}

func scopeEvidence(entries []scopes.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("granted scope %s (%s, catalog risk %d/%s)", e.ScopeURL, e.AccessLevel, e.RiskScore, e.RiskLevel))
	}
	return out
}

func appAgeDays(in Input) int {
	if in.App.FirstAuthorizedAt.IsZero() {
		return -1
	}
	return int(in.Now.Sub(in.App.FirstAuthorizedAt.UTC()).Hours() / 24)
}

func dormantDays(in Input) int {
	last := in.Stats.LastObserved
	if in.App.LastActivityAt.After(last) {
		last = in.App.LastActivityAt.UTC()
	}
	if last.IsZero() {
		return -1
	}
	return int(in.Now.Sub(last).Hours() / 24)
}

func isAI(in Input) bool {
	return in.App.IsAIPlatform || scopes.HasAIIndicator(in.App.GrantedScopes)
}

func appLabel(in Input) string {
	name := strings.TrimSpace(in.App.DisplayName)
	if name == "" {
		name = strings.TrimSpace(in.App.AppID)
	}
	return name
}

func authorizationEvidence(in Input) []string {
	out := []string{}
	if !in.App.FirstAuthorizedAt.IsZero() {
		out = append(out, fmt.Sprintf("first authorized %s (%d days ago)", fmtDate(in.App.FirstAuthorizedAt), appAgeDays(in)))
	}
	if user := strings.TrimSpace(in.App.AuthorizingUser); user != "" {
		out = append(out, fmt.Sprintf("authorized by %s", user))
	}
	return out
}

func activityEvidence(in Input) []string {
	return []string{
		fmt.Sprintf("%d events in the trailing %d-day window (%.2f/day)", in.Stats.Total, in.Stats.WindowDays, in.Stats.EventsPerDay),
	}
}

// catalog is the fixed factor template set: four severity tiers matched
// against scored dimensions and raw metadata.
var catalog = []template{
	// --- critical tier ---
	{
		id: "data_exfiltration_combo", tier: TierCritical, category: "data_exposure",
		title: "Data Exfiltration Risk",
		trigger: func(in Input) bool {
			g := granted(in)
			return isAI(in) && scopes.HasFileScope(g) && scopes.HasMailScope(g)
		},
		render: func(in Input) rendered {
			ev := scopeEvidence(sensitiveEntries(in))
			ev = append(ev, "file storage, mailbox, and AI-platform access held simultaneously")
			return rendered{
				Description:    fmt.Sprintf("%s combines file storage and mailbox access with an AI-platform integration, a direct bulk-egress path into external models.", appLabel(in)),
				Evidence:       ev,
				Recommendation: "Revoke one leg of the combination: AI-integrated apps should not hold both file and mail scopes.",
			}
		},
	},
	{
		id: "admin_authorization", tier: TierCritical, category: "identity",
		title: "Admin Access",
		trigger: func(in Input) bool { return in.App.IsAdminUser },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was authorized by an administrator account; every granted scope inherits admin-level reach.", appLabel(in)),
				Evidence:       append(authorizationEvidence(in), fmt.Sprintf("%d scopes granted under an admin authorization", len(granted(in)))),
				Recommendation: "Re-issue the grant from a least-privilege service account instead of an admin identity.",
			}
		},
	},
	{
		id: "admin_scope_without_admin", tier: TierCritical, category: "permissions",
		title: "Admin Scope On Non-Admin Grant",
		trigger: func(in Input) bool {
			return !in.App.IsAdminUser && len(in.Lib.AdminScopes(in.App.GrantedScopes)) > 0
		},
		render: func(in Input) rendered {
			admin := in.Lib.AdminScopes(in.App.GrantedScopes)
			return rendered{
				Description:    fmt.Sprintf("%s holds %d admin-level scope(s) although the authorization is not admin-flagged.", appLabel(in), len(admin)),
				Evidence:       append([]string{fmt.Sprintf("admin scopes: %s", strings.Join(admin, ", "))}, authorizationEvidence(in)...),
				Recommendation: "Revoke the admin-level scopes; admin capabilities must come through reviewed admin grants only.",
			}
		},
	},
	{
		id: "full_mailbox_control", tier: TierCritical, category: "data_exposure",
		title: "Full Mailbox Control",
		trigger: func(in Input) bool {
			for _, e := range knownEntries(in) {
				if scopes.IsMailScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadWrite && e.RiskScore >= 85 {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if scopes.IsMailScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadWrite && e.RiskScore >= 85 {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can read, send, and delete mail across the entire mailbox.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Replace full mailbox access with the narrowest read-only or send-only scope that covers the use case.",
			}
		},
	},
	{
		id: "full_drive_control", tier: TierCritical, category: "data_exposure",
		title: "Full File Storage Control",
		trigger: func(in Input) bool {
			for _, e := range knownEntries(in) {
				if scopes.IsFileScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadWrite && e.RiskScore >= 85 {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if scopes.IsFileScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadWrite && e.RiskScore >= 85 {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s holds read-write access to all reachable files, not just its own.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Downgrade to an app-created-files-only scope or read-only access.",
			}
		},
	},
	{
		id: "directory_write_access", tier: TierCritical, category: "permissions",
		title: "Directory Write Access",
		trigger: func(in Input) bool {
			for _, e := range knownEntries(in) {
				if e.AccessLevel == scopes.AccessAdmin && e.RiskScore >= 90 {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if e.AccessLevel == scopes.AccessAdmin && e.RiskScore >= 90 {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can modify directory objects: accounts, roles, or workspace settings.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Restrict to read-only directory scopes unless the app is a reviewed provisioning system.",
			}
		},
	},
	{
		id: "critical_composite_score", tier: TierCritical, category: "governance",
		title: "Critical Composite Risk",
		trigger: func(in Input) bool { return in.Score.Overall >= 75 },
		render: func(in Input) rendered {
			d := in.Score.Dimensions
			return rendered{
				Description: fmt.Sprintf("%s scored %d/100 overall, in the critical band.", appLabel(in), in.Score.Overall),
				Evidence: []string{
					fmt.Sprintf("dimension scores: ai=%d permission=%d activity=%d user=%d temporal=%d", d.AIPlatform, d.Permission, d.Activity, d.User, d.Temporal),
					fmt.Sprintf("scoring confidence %d/100", in.Score.Confidence),
				},
				Recommendation: "Treat as an incident-priority review: confirm business need or revoke the authorization.",
			}
		},
	},
	{
		id: "external_sensitive_grant", tier: TierCritical, category: "identity",
		title: "External User With Sensitive Scopes",
		trigger: func(in Input) bool {
			return in.App.IsExternalUser && len(sensitiveEntries(in)) > 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was authorized by an account external to the organization and holds sensitive scopes.", appLabel(in)),
				Evidence:       append(scopeEvidence(sensitiveEntries(in)), authorizationEvidence(in)...),
				Recommendation: "Revoke the grant; sensitive scopes must never ride on external authorizations.",
			}
		},
	},
	{
		id: "dormant_privileged_app", tier: TierCritical, category: "activity",
		title: "Dormant App With Privileged Access",
		trigger: func(in Input) bool {
			return dormantDays(in) >= 90 && len(sensitiveEntries(in)) > 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s has been inactive for %d days while retaining privileged scopes.", appLabel(in), dormantDays(in)),
				Evidence:       append(scopeEvidence(sensitiveEntries(in)), fmt.Sprintf("no observed activity for %d days", dormantDays(in))),
				Recommendation: "Revoke now: unused privileged access is standing attack surface with no business benefit.",
			}
		},
	},
	{
		id: "ai_hipaa_exposure", tier: TierCritical, category: "compliance",
		title: "AI Integration Touching HIPAA Data",
		trigger: func(in Input) bool { return isAI(in) && len(entriesWithTag(in, "HIPAA")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s is AI-integrated and holds scopes tagged with HIPAA regulatory impact.", appLabel(in)),
				Evidence:       scopeEvidence(entriesWithTag(in, "HIPAA")),
				Recommendation: "Escalate to compliance: AI processing of HIPAA-scoped data requires a signed BAA and documented review.",
			}
		},
	},
	{
		id: "dormancy_burst", tier: TierCritical, category: "activity",
		title: "Dormancy Followed By Activity Burst",
		trigger: func(in Input) bool { return risk.HasDormancySpike(in.Stats) },
		render: func(in Input) rendered {
			return rendered{
				Description: fmt.Sprintf("%s was dormant for 60+ days, then produced over 100 events in a single day.", appLabel(in)),
				Evidence: append(activityEvidence(in),
					fmt.Sprintf("peak day %s with %d events", fmtDate(in.Stats.PeakDay), in.Stats.PeakDayCount)),
				Recommendation: "Investigate immediately; this signature matches token-theft exfiltration runs.",
			}
		},
	},
	{
		id: "creep_into_sensitive", tier: TierCritical, category: "permissions",
		title: "Scope Creep Into Sensitive Access",
		trigger: func(in Input) bool {
			initial := scopes.NormalizeAll(in.App.InitialScopes)
			if len(initial) == 0 {
				return false
			}
			initialSet := map[string]struct{}{}
			for _, s := range initial {
				initialSet[s] = struct{}{}
			}
			for _, e := range sensitiveEntries(in) {
				if _, ok := initialSet[e.ScopeURL]; !ok {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			initialSet := map[string]struct{}{}
			for _, s := range scopes.NormalizeAll(in.App.InitialScopes) {
				initialSet[s] = struct{}{}
			}
			var added []scopes.Entry
			for _, e := range sensitiveEntries(in) {
				if _, ok := initialSet[e.ScopeURL]; !ok {
					added = append(added, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s acquired sensitive scopes after its first authorization (%d initially granted, %d now).", appLabel(in), len(scopes.NormalizeAll(in.App.InitialScopes)), len(granted(in))),
				Evidence:       scopeEvidence(added),
				Recommendation: "Roll back to the originally reviewed scope set and require re-approval for the additions.",
			}
		},
	},

	// --- high tier ---
	{
		id: "ai_platform_sensitive", tier: TierHigh, category: "ai_integration",
		title: "AI Platform With Sensitive Data Access",
		trigger: func(in Input) bool {
			if !isAI(in) {
				return false
			}
			for _, e := range knownEntries(in) {
				if e.RiskScore >= 60 {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if e.RiskScore >= 60 {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s is AI-integrated and can read broad organizational data.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Confirm the AI vendor's data retention terms and narrow the readable data surface.",
			}
		},
	},
	{
		id: "external_user_authorization", tier: TierHigh, category: "identity",
		title: "External User Authorization",
		trigger: func(in Input) bool { return in.App.IsExternalUser },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was authorized by an account outside the organization.", appLabel(in)),
				Evidence:       authorizationEvidence(in),
				Recommendation: "Remove the grant; third parties must not hold authorizations into the workspace.",
			}
		},
	},
	{
		id: "broad_read_access", tier: TierHigh, category: "data_exposure",
		title: "Broad Read Access",
		trigger: func(in Input) bool {
			for _, e := range knownEntries(in) {
				if e.AccessLevel == scopes.AccessReadOnly && e.RiskScore >= 60 {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if e.AccessLevel == scopes.AccessReadOnly && e.RiskScore >= 60 {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can read large swaths of organizational content.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Swap broad read scopes for metadata-only or per-resource alternatives where the catalog lists one.",
			}
		},
	},
	{
		id: "mail_send_capability", tier: TierHigh, category: "data_exposure",
		title: "Send-As Mail Capability",
		trigger: func(in Input) bool {
			for _, s := range granted(in) {
				if strings.Contains(s, "gmail.send") || strings.Contains(s, "mail.send") {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []string
			for _, s := range granted(in) {
				if strings.Contains(s, "gmail.send") || strings.Contains(s, "mail.send") {
					hits = append(hits, s)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can send mail as the authorizing user.", appLabel(in)),
				Evidence:       []string{fmt.Sprintf("send scopes: %s", strings.Join(hits, ", "))},
				Recommendation: "Verify outbound mail templates and rate limits; send-as capability is a phishing amplifier if the token leaks.",
			}
		},
	},
	{
		id: "recent_scope_escalation", tier: TierHigh, category: "temporal",
		title: "Recent Scope Escalation",
		trigger: func(in Input) bool {
			return !in.App.LastScopeChangeAt.IsZero() && in.Now.Sub(in.App.LastScopeChangeAt.UTC()) < 30*24*time.Hour
		},
		render: func(in Input) rendered {
			days := int(in.Now.Sub(in.App.LastScopeChangeAt.UTC()).Hours() / 24)
			return rendered{
				Description:    fmt.Sprintf("%s changed its scope set %d day(s) ago.", appLabel(in), days),
				Evidence:       []string{fmt.Sprintf("last scope change %s", fmtDate(in.App.LastScopeChangeAt)), fmt.Sprintf("%d scopes currently granted", len(granted(in)))},
				Recommendation: "Diff the scope set against the last review and re-approve or roll back the change.",
			}
		},
	},
	{
		id: "new_app_many_scopes", tier: TierHigh, category: "temporal",
		title: "New App With Broad Scope Grant",
		trigger: func(in Input) bool {
			age := appAgeDays(in)
			return age >= 0 && age < 30 && len(granted(in)) >= 10
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s is %d day(s) old and already holds %d scopes.", appLabel(in), appAgeDays(in), len(granted(in))),
				Evidence:       append(authorizationEvidence(in), fmt.Sprintf("scopes: %s", strings.Join(granted(in), ", "))),
				Recommendation: "Hold for onboarding review; legitimate apps rarely need 10+ scopes on day one.",
			}
		},
	},
	{
		id: "off_hours_activity", tier: TierHigh, category: "activity",
		title: "Repeated Off-Hours Access",
		trigger: func(in Input) bool { return in.Stats.OffHours >= 5 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s accessed the workspace %d times between 02:00 and 05:00 UTC in the trailing window.", appLabel(in), in.Stats.OffHours),
				Evidence:       append(activityEvidence(in), fmt.Sprintf("%d off-hours events (%.0f%% of activity)", in.Stats.OffHours, 100*in.Stats.OffHoursRatio())),
				Recommendation: "Correlate off-hours sessions with expected batch schedules; investigate any that have no owner.",
			}
		},
	},
	{
		id: "elevated_api_volume", tier: TierHigh, category: "activity",
		title: "Elevated API Volume",
		trigger: func(in Input) bool { return in.Stats.EventsPerDay >= 50 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s averages %.0f events/day over the trailing window.", appLabel(in), in.Stats.EventsPerDay),
				Evidence:       append(activityEvidence(in), fmt.Sprintf("peak day %s with %d events", fmtDate(in.Stats.PeakDay), in.Stats.PeakDayCount)),
				Recommendation: "Confirm the volume matches the app's documented purpose; sustained high volume widens exfiltration bandwidth.",
			}
		},
	},
	{
		id: "slack_history_access", tier: TierHigh, category: "data_exposure",
		title: "Conversation History Access",
		trigger: func(in Input) bool {
			for _, e := range entriesOfService(in, "slack") {
				if strings.Contains(e.ScopeURL, "history") {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range entriesOfService(in, "slack") {
				if strings.Contains(e.ScopeURL, "history") {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can read message history in channels it joins.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Limit the bot to the specific channels it serves and audit its membership list.",
			}
		},
	},
	{
		id: "pci_scope_exposure", tier: TierHigh, category: "compliance",
		title: "PCI-Tagged Data Access",
		trigger: func(in Input) bool { return len(entriesWithTag(in, "PCI")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s holds scopes whose data surface is tagged with PCI impact.", appLabel(in)),
				Evidence:       scopeEvidence(entriesWithTag(in, "PCI")),
				Recommendation: "Verify the app is inside PCI scope boundaries or remove access to cardholder-adjacent data.",
			}
		},
	},
	{
		id: "high_composite_score", tier: TierHigh, category: "governance",
		title: "High Composite Risk",
		trigger: func(in Input) bool { return in.Score.Overall >= 50 && in.Score.Overall < 75 },
		render: func(in Input) rendered {
			d := in.Score.Dimensions
			return rendered{
				Description: fmt.Sprintf("%s scored %d/100 overall, in the high band.", appLabel(in), in.Score.Overall),
				Evidence: []string{
					fmt.Sprintf("dimension scores: ai=%d permission=%d activity=%d user=%d temporal=%d", d.AIPlatform, d.Permission, d.Activity, d.User, d.Temporal),
				},
				Recommendation: "Schedule a review within the current cycle and track the score trend.",
			}
		},
	},
	{
		id: "unowned_privileged_app", tier: TierHigh, category: "hygiene",
		title: "Privileged App Without Named Owner",
		trigger: func(in Input) bool {
			return len(in.App.OwnerEmails) == 0 && len(sensitiveEntries(in)) > 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s holds sensitive scopes but no owner is recorded.", appLabel(in)),
				Evidence:       append(scopeEvidence(sensitiveEntries(in)), "owner_emails is empty"),
				Recommendation: "Assign an accountable owner before the next review cycle; unowned privileged apps stall incident response.",
			}
		},
	},
	{
		id: "weekend_heavy_automation", tier: TierHigh, category: "activity",
		title: "Weekend-Heavy Automation",
		trigger: func(in Input) bool { return in.Stats.Total > 0 && in.Stats.WeekendRatio() > 0.30 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%.0f%% of %s's activity falls on weekends.", 100*in.Stats.WeekendRatio(), appLabel(in)),
				Evidence:       append(activityEvidence(in), fmt.Sprintf("%d weekend events of %d total", in.Stats.Weekend, in.Stats.Total)),
				Recommendation: "Confirm the automation schedule is intended; weekend-skewed activity often indicates unattended bots.",
			}
		},
	},
	{
		id: "excessive_scope_footprint", tier: TierHigh, category: "permissions",
		title: "Excessive Permission Footprint",
		trigger: func(in Input) bool { return len(granted(in)) >= 10 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s holds %d distinct scopes.", appLabel(in), len(granted(in))),
				Evidence:       []string{fmt.Sprintf("scopes: %s", strings.Join(granted(in), ", "))},
				Recommendation: "Audit each scope against a documented need and revoke the remainder.",
			}
		},
	},

	// --- medium tier ---
	{
		id: "unknown_scopes", tier: TierMedium, category: "hygiene",
		title: "Unrecognized Permission Scope",
		trigger: func(in Input) bool { return len(unknownScopes(in)) > 0 },
		render: func(in Input) rendered {
			unknown := unknownScopes(in)
			return rendered{
				Description:    fmt.Sprintf("%s holds %d scope(s) not present in the risk catalog; their blast radius is unscored.", appLabel(in), len(unknown)),
				Evidence:       []string{fmt.Sprintf("unrecognized scopes: %s", strings.Join(unknown, ", "))},
				Recommendation: "Curate catalog entries for these scopes so future scoring reflects their real risk.",
			}
		},
	},
	{
		id: "medium_composite_score", tier: TierMedium, category: "governance",
		title: "Medium Composite Risk",
		trigger: func(in Input) bool { return in.Score.Overall >= 25 && in.Score.Overall < 50 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s scored %d/100 overall, in the medium band.", appLabel(in), in.Score.Overall),
				Evidence:       []string{fmt.Sprintf("severity band %s, confidence %d/100", in.Score.Severity, in.Score.Confidence)},
				Recommendation: "Include in the periodic access review; no immediate action required.",
			}
		},
	},
	{
		id: "zombie_authorization", tier: TierMedium, category: "activity",
		title: "Inactive Authorization",
		trigger: func(in Input) bool {
			d := dormantDays(in)
			if d >= 90 {
				return true
			}
			return d < 0 && appAgeDays(in) >= 90
		},
		render: func(in Input) rendered {
			d := dormantDays(in)
			ev := authorizationEvidence(in)
			if d >= 0 {
				ev = append(ev, fmt.Sprintf("no observed activity for %d days", d))
			} else {
				ev = append(ev, "no activity ever observed")
			}
			return rendered{
				Description:    fmt.Sprintf("%s shows no recent activity but the authorization remains live.", appLabel(in)),
				Evidence:       ev,
				Recommendation: "Revoke unused authorizations; they are free attack surface.",
			}
		},
	},
	{
		id: "gdpr_scope_exposure", tier: TierMedium, category: "compliance",
		title: "GDPR-Tagged Data Access",
		trigger: func(in Input) bool { return len(entriesWithTag(in, "GDPR")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s accesses personal data surfaces tagged with GDPR impact.", appLabel(in)),
				Evidence:       scopeEvidence(entriesWithTag(in, "GDPR")),
				Recommendation: "Record the app in the processing register and confirm a data processing agreement exists.",
			}
		},
	},
	{
		id: "calendar_access", tier: TierMedium, category: "data_exposure",
		title: "Calendar Access",
		trigger: func(in Input) bool { return len(entriesOfService(in, "calendar")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s can read meeting titles, attendees, and schedules.", appLabel(in)),
				Evidence:       scopeEvidence(entriesOfService(in, "calendar")),
				Recommendation: "Prefer free/busy-only access if the app only needs availability.",
			}
		},
	},
	{
		id: "contacts_access", tier: TierMedium, category: "data_exposure",
		title: "Contact Directory Access",
		trigger: func(in Input) bool { return len(entriesOfService(in, "contacts")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s can read the user's contact graph.", appLabel(in)),
				Evidence:       scopeEvidence(entriesOfService(in, "contacts")),
				Recommendation: "Confirm contact sync is a documented feature; contact graphs feed targeted phishing.",
			}
		},
	},
	{
		id: "spreadsheet_access", tier: TierMedium, category: "data_exposure",
		title: "Spreadsheet Access",
		trigger: func(in Input) bool { return len(entriesOfService(in, "sheets")) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s holds read-write access to reachable spreadsheets.", appLabel(in)),
				Evidence:       scopeEvidence(entriesOfService(in, "sheets")),
				Recommendation: "Verify which sheets the integration actually touches; financial exports frequently live in spreadsheets.",
			}
		},
	},
	{
		id: "elevated_permission_dimension", tier: TierMedium, category: "permissions",
		title: "Elevated Permission Score",
		trigger: func(in Input) bool {
			return in.Score.Dimensions.Permission >= 40 && in.Score.Dimensions.Permission < 70
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s's permission dimension scored %d/100.", appLabel(in), in.Score.Dimensions.Permission),
				Evidence:       []string{fmt.Sprintf("%d known scopes, %d unrecognized", len(knownEntries(in)), len(unknownScopes(in)))},
				Recommendation: "Review the scope list for grants broader than the app's purpose.",
			}
		},
	},
	{
		id: "readonly_mailbox_access", tier: TierMedium, category: "data_exposure",
		title: "Read-Only Mailbox Access",
		trigger: func(in Input) bool {
			for _, e := range knownEntries(in) {
				if scopes.IsMailScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadOnly {
					return true
				}
			}
			return false
		},
		render: func(in Input) rendered {
			var hits []scopes.Entry
			for _, e := range knownEntries(in) {
				if scopes.IsMailScope(e.ScopeURL) && e.AccessLevel == scopes.AccessReadOnly {
					hits = append(hits, e)
				}
			}
			return rendered{
				Description:    fmt.Sprintf("%s can read mailbox content without write access.", appLabel(in)),
				Evidence:       scopeEvidence(hits),
				Recommendation: "Consider metadata-only scopes if the app does not need message bodies.",
			}
		},
	},
	{
		id: "limited_observability", tier: TierMedium, category: "governance",
		title: "Limited Observability",
		trigger: func(in Input) bool { return in.Score.Confidence < 50 },
		render: func(in Input) rendered {
			missing := []string{}
			if in.Stats.Total == 0 {
				missing = append(missing, "no audit events")
			}
			if len(granted(in)) == 0 {
				missing = append(missing, "no scope data")
			}
			if strings.TrimSpace(in.App.AuthorizingUser) == "" {
				missing = append(missing, "no authorizing user")
			}
			if in.App.FirstAuthorizedAt.IsZero() {
				missing = append(missing, "no authorization timestamp")
			}
			if len(missing) == 0 {
				missing = append(missing, "no recent observations")
			}
			return rendered{
				Description:    fmt.Sprintf("Scoring confidence for %s is %d/100; the risk picture is incomplete.", appLabel(in), in.Score.Confidence),
				Evidence:       missing,
				Recommendation: "Connect the platform's audit log feed so activity-based detection can run.",
			}
		},
	},
	{
		id: "stale_authorization_review", tier: TierMedium, category: "temporal",
		title: "Stale Authorization Review",
		trigger: func(in Input) bool {
			return appAgeDays(in) >= 180 && in.App.LastScopeChangeAt.IsZero()
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was authorized %d days ago and has no recorded scope review since.", appLabel(in), appAgeDays(in)),
				Evidence:       authorizationEvidence(in),
				Recommendation: "Fold the app into the periodic re-certification cycle.",
			}
		},
	},
	{
		id: "occasional_off_hours", tier: TierMedium, category: "activity",
		title: "Occasional Off-Hours Access",
		trigger: func(in Input) bool { return in.Stats.OffHours >= 1 && in.Stats.OffHours < 5 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s produced %d event(s) in the 02:00-05:00 UTC band.", appLabel(in), in.Stats.OffHours),
				Evidence:       activityEvidence(in),
				Recommendation: "No action needed unless the count grows; watch the trend.",
			}
		},
	},
	{
		id: "scope_growth_below_threshold", tier: TierMedium, category: "permissions",
		title: "Gradual Scope Growth",
		trigger: func(in Input) bool {
			initial := len(scopes.NormalizeAll(in.App.InitialScopes))
			now := len(granted(in))
			if initial == 0 || now <= initial {
				return false
			}
			return float64(now-initial)/float64(initial) < 0.5
		},
		render: func(in Input) rendered {
			initial := len(scopes.NormalizeAll(in.App.InitialScopes))
			return rendered{
				Description:    fmt.Sprintf("%s grew from %d to %d scopes since first authorization.", appLabel(in), initial, len(granted(in))),
				Evidence:       []string{fmt.Sprintf("current scopes: %s", strings.Join(granted(in), ", "))},
				Recommendation: "Track the growth; re-review once the set exceeds 150%% of the original grant.",
			}
		},
	},
	{
		id: "ai_indicator_unclassified", tier: TierMedium, category: "ai_integration",
		title: "AI Provider Scopes On Unclassified App",
		trigger: func(in Input) bool {
			return !in.App.IsAIPlatform && scopes.HasAIIndicator(in.App.GrantedScopes)
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s requests AI-provider surfaces but is not classified as an AI platform.", appLabel(in)),
				Evidence:       []string{fmt.Sprintf("scopes: %s", strings.Join(granted(in), ", "))},
				Recommendation: "Reclassify the app so AI-specific scoring and policy apply.",
			}
		},
	},

	// --- low tier ---
	{
		id: "minimal_scope_footprint", tier: TierLow, category: "permissions",
		title: "Minimal Permission Footprint",
		trigger: func(in Input) bool {
			known := knownEntries(in)
			if len(known) == 0 || len(granted(in)) > 3 || len(unknownScopes(in)) > 0 {
				return false
			}
			for _, e := range known {
				if e.RiskScore >= 25 {
					return false
				}
			}
			return true
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s holds only %d low-risk scope(s).", appLabel(in), len(granted(in))),
				Evidence:       scopeEvidence(knownEntries(in)),
				Recommendation: "No action needed; this is the footprint to hold other apps to.",
			}
		},
	},
	{
		id: "readonly_grants_only", tier: TierLow, category: "permissions",
		title: "Read-Only Grants",
		trigger: func(in Input) bool {
			known := knownEntries(in)
			if len(known) == 0 {
				return false
			}
			for _, e := range known {
				if e.AccessLevel != scopes.AccessReadOnly {
					return false
				}
			}
			return true
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("All of %s's cataloged scopes are read-only.", appLabel(in)),
				Evidence:       scopeEvidence(knownEntries(in)),
				Recommendation: "No write-path risk; review cadence can stay at the default.",
			}
		},
	},
	{
		id: "app_created_files_only", tier: TierLow, category: "data_exposure",
		title: "App-Created Files Only",
		trigger: func(in Input) bool {
			hasNarrow := false
			for _, s := range granted(in) {
				if strings.HasSuffix(s, "/auth/drive.file") {
					hasNarrow = true
				}
				if strings.HasSuffix(s, "/auth/drive") || strings.HasSuffix(s, "/auth/drive.readonly") {
					return false
				}
			}
			return hasNarrow
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s's file access is limited to files it created or was explicitly handed.", appLabel(in)),
				Evidence:       []string{"drive.file scope without broader drive grants"},
				Recommendation: "This is the recommended narrow file scope; no action needed.",
			}
		},
	},
	{
		id: "identity_scopes_only", tier: TierLow, category: "identity",
		title: "Sign-In Scopes Only",
		trigger: func(in Input) bool {
			g := granted(in)
			if len(g) == 0 {
				return false
			}
			for _, s := range g {
				if s != "openid" && !strings.Contains(s, "userinfo.") && !strings.HasSuffix(s, "/user.read") {
					return false
				}
			}
			return true
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s only performs sign-in; it reads no organizational content.", appLabel(in)),
				Evidence:       []string{fmt.Sprintf("scopes: %s", strings.Join(granted(in), ", "))},
				Recommendation: "No action needed.",
			}
		},
	},
	{
		id: "long_standing_low_risk", tier: TierLow, category: "temporal",
		title: "Long-Standing Low-Risk App",
		trigger: func(in Input) bool { return appAgeDays(in) >= 180 && in.Score.Overall < 25 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s has been authorized for %d days with a low composite score.", appLabel(in), appAgeDays(in)),
				Evidence:       append(authorizationEvidence(in), fmt.Sprintf("overall score %d/100", in.Score.Overall)),
				Recommendation: "Keep on the standard review cadence.",
			}
		},
	},
	{
		id: "steady_weekday_activity", tier: TierLow, category: "activity",
		title: "Steady Weekday Activity",
		trigger: func(in Input) bool {
			return in.Stats.Total > 0 && in.Stats.OffHours == 0 && in.Stats.WeekendRatio() <= 0.1
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s's activity stays in weekday working hours.", appLabel(in)),
				Evidence:       activityEvidence(in),
				Recommendation: "Consistent with interactive business use; no action needed.",
			}
		},
	},
	{
		id: "low_composite_score", tier: TierLow, category: "governance",
		title: "Low Composite Risk",
		trigger: func(in Input) bool { return in.Score.Overall < 25 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s scored %d/100 overall, in the low band.", appLabel(in), in.Score.Overall),
				Evidence:       []string{fmt.Sprintf("severity band %s, confidence %d/100", in.Score.Severity, in.Score.Confidence)},
				Recommendation: "No action needed.",
			}
		},
	},
	{
		id: "owner_documented", tier: TierLow, category: "hygiene",
		title: "Owner Documented",
		trigger: func(in Input) bool { return len(in.App.OwnerEmails) > 0 },
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s has %d recorded owner(s).", appLabel(in), len(in.App.OwnerEmails)),
				Evidence:       []string{fmt.Sprintf("owners: %s", strings.Join(in.App.OwnerEmails, ", "))},
				Recommendation: "Keep ownership current as teams change.",
			}
		},
	},
	{
		id: "recent_normal_hours_activity", tier: TierLow, category: "activity",
		title: "Recent Activity In Normal Hours",
		trigger: func(in Input) bool {
			return !in.Stats.LastObserved.IsZero() &&
				in.Now.Sub(in.Stats.LastObserved) <= 7*24*time.Hour &&
				in.Stats.OffHours == 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was last active %s, inside normal hours.", appLabel(in), fmtDate(in.Stats.LastObserved)),
				Evidence:       activityEvidence(in),
				Recommendation: "Actively used; include in routine monitoring only.",
			}
		},
	},
	{
		id: "standard_user_authorization", tier: TierLow, category: "identity",
		title: "Standard User Authorization",
		trigger: func(in Input) bool {
			return !in.App.IsAdminUser && !in.App.IsExternalUser && strings.TrimSpace(in.App.AuthorizingUser) != ""
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("%s was authorized by a standard internal account.", appLabel(in)),
				Evidence:       authorizationEvidence(in),
				Recommendation: "No elevated-identity risk from the authorization context.",
			}
		},
	},
	{
		id: "no_admin_scopes", tier: TierLow, category: "permissions",
		title: "No Admin-Level Scopes",
		trigger: func(in Input) bool {
			return len(granted(in)) > 0 && len(in.Lib.AdminScopes(in.App.GrantedScopes)) == 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("None of %s's %d scope(s) carries admin-level access.", appLabel(in), len(granted(in))),
				Evidence:       []string{fmt.Sprintf("scopes: %s", strings.Join(granted(in), ", "))},
				Recommendation: "No admin surface to reduce.",
			}
		},
	},
	{
		id: "fully_cataloged_permissions", tier: TierLow, category: "hygiene",
		title: "Fully Cataloged Permissions",
		trigger: func(in Input) bool {
			return len(granted(in)) > 0 && len(unknownScopes(in)) == 0
		},
		render: func(in Input) rendered {
			return rendered{
				Description:    fmt.Sprintf("Every scope granted to %s has a curated catalog entry.", appLabel(in)),
				Evidence:       []string{fmt.Sprintf("%d scopes, all cataloged", len(granted(in)))},
				Recommendation: "Scoring coverage is complete for this app.",
			}
		},
	},
}
