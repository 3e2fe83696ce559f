package scopes

import (
	"errors"
	"fmt"
	"strings"
)

const (
	AccessReadOnly  = "read-only"
	AccessReadWrite = "read-write"
	AccessAdmin     = "admin"

	RiskLevelLow      = "LOW"
	RiskLevelMedium   = "MEDIUM"
	RiskLevelHigh     = "HIGH"
	RiskLevelCritical = "CRITICAL"
)

// sensitiveScoreFloor marks the catalog score at which a scope is treated as
// sensitive for permission-risk weighting.
const sensitiveScoreFloor = 80

// Entry is one curated scope risk record. Entries are reference data: seeded
// once, read-only at runtime.
type Entry struct {
	ScopeURL                string   `json:"scope_url"`
	ServiceName             string   `json:"service_name"`
	AccessLevel             string   `json:"access_level"`
	RiskScore               int      `json:"risk_score"`
	RiskLevel               string   `json:"risk_level"`
	Description             string   `json:"description"`
	CommonUseCases          []string `json:"common_use_cases,omitempty"`
	AbuseScenarios          []string `json:"abuse_scenarios,omitempty"`
	RecommendedAlternatives []string `json:"recommended_alternatives,omitempty"`
	RegulatoryImpact        []string `json:"regulatory_impact,omitempty"`
}

// Sensitive reports whether the entry is a high-blast-radius grant.
func (e Entry) Sensitive() bool {
	return e.RiskScore >= sensitiveScoreFloor || e.AccessLevel == AccessAdmin
}

// Library is the immutable scope risk catalog. It is constructed once at
// startup and passed by reference into every scorer call; it requires no
// locking because it is never mutated after construction.
type Library struct {
	byURL map[string]Entry
	order []string
}

// NewLibrary validates the given entries and builds a catalog from them.
func NewLibrary(entries []Entry) (*Library, error) {
	if len(entries) == 0 {
		return nil, errors.New("scopes: catalog has no entries")
	}

	byURL := make(map[string]Entry, len(entries))
	order := make([]string, 0, len(entries))
	var errs []error
	for i, entry := range entries {
		url := Normalize(entry.ScopeURL)
		if url == "" {
			errs = append(errs, fmt.Errorf("entry %d: missing scope_url", i))
			continue
		}
		if _, ok := byURL[url]; ok {
			errs = append(errs, fmt.Errorf("duplicate scope_url %q", url))
			continue
		}
		if entry.RiskScore < 0 || entry.RiskScore > 100 {
			errs = append(errs, fmt.Errorf("%s: risk_score %d out of range [0,100]", url, entry.RiskScore))
			continue
		}
		switch entry.AccessLevel {
		case AccessReadOnly, AccessReadWrite, AccessAdmin:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown access_level %q", url, entry.AccessLevel))
			continue
		}
		switch entry.RiskLevel {
		case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown risk_level %q", url, entry.RiskLevel))
			continue
		}

		entry.ScopeURL = url
		byURL[url] = entry
		order = append(order, url)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("scopes: invalid catalog: %w", errors.Join(errs...))
	}

	return &Library{byURL: byURL, order: order}, nil
}

// Lookup returns the catalog entry for a scope URL. The second return is false
// for unrecognized scopes; callers must treat those as unknown-risk, never as
// zero risk.
func (l *Library) Lookup(scopeURL string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	entry, ok := l.byURL[Normalize(scopeURL)]
	return entry, ok
}

// Entries returns all entries in seed order.
func (l *Library) Entries() []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, 0, len(l.order))
	for _, url := range l.order {
		out = append(out, l.byURL[url])
	}
	return out
}

// Len returns the catalog size.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Partition splits a granted scope list into known catalog entries and
// unrecognized scope URLs.
func (l *Library) Partition(granted []string) (known []Entry, unknown []string) {
	for _, scope := range NormalizeAll(granted) {
		if entry, ok := l.Lookup(scope); ok {
			known = append(known, entry)
			continue
		}
		unknown = append(unknown, scope)
	}
	return known, unknown
}

// AdminScopes returns the granted scopes whose catalog entry carries admin
// access.
func (l *Library) AdminScopes(granted []string) []string {
	var out []string
	for _, scope := range NormalizeAll(granted) {
		if entry, ok := l.Lookup(scope); ok && entry.AccessLevel == AccessAdmin {
			out = append(out, scope)
		}
	}
	return out
}

// NarrowerAlternatives returns granted scopes that have a narrower recommended
// alternative in the catalog, keyed by scope URL.
func (l *Library) NarrowerAlternatives(granted []string) map[string][]string {
	out := map[string][]string{}
	for _, scope := range NormalizeAll(granted) {
		entry, ok := l.Lookup(scope)
		if !ok || len(entry.RecommendedAlternatives) == 0 {
			continue
		}
		out[scope] = append([]string(nil), entry.RecommendedAlternatives...)
	}
	return out
}

// RegulatoryTags returns the union of regulatory impact tags across granted
// scopes, in first-seen order.
func (l *Library) RegulatoryTags(granted []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, scope := range NormalizeAll(granted) {
		entry, ok := l.Lookup(scope)
		if !ok {
			continue
		}
		for _, tag := range entry.RegulatoryImpact {
			tag = strings.ToUpper(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
