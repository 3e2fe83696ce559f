// Package scopes holds the static OAuth scope risk catalog and scope
// classification helpers shared by the scoring engine.
package scopes

import (
	"slices"
	"strings"
)

// Normalize lowercases and trims a raw scope string.
func Normalize(scope string) string {
	return strings.ToLower(strings.TrimSpace(scope))
}

// NormalizeAll normalizes and deduplicates a scope list, preserving order.
func NormalizeAll(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		normalized := Normalize(scope)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// IsMailScope reports whether a scope grants access to mailbox content.
func IsMailScope(scope string) bool {
	return containsAny(Normalize(scope), mailNeedles)
}

// IsFileScope reports whether a scope grants access to file or document storage.
func IsFileScope(scope string) bool {
	return containsAny(Normalize(scope), fileNeedles)
}

// HasMailScope reports whether any scope in the list grants mailbox access.
func HasMailScope(scopes []string) bool {
	return slices.ContainsFunc(scopes, IsMailScope)
}

// HasFileScope reports whether any scope in the list grants file storage access.
func HasFileScope(scopes []string) bool {
	return slices.ContainsFunc(scopes, IsFileScope)
}

// HasAIIndicator reports whether any scope references a known AI provider
// integration surface.
func HasAIIndicator(scopes []string) bool {
	return slices.ContainsFunc(scopes, func(scope string) bool {
		return containsAny(Normalize(scope), aiNeedles)
	})
}

var mailNeedles = []string{
	"mail.google.com",
	"gmail",
	"mail.read",
	"mail.readwrite",
	"mail.send",
	"full_access_as_app",
}

var fileNeedles = []string{
	"/auth/drive",
	"files.read",
	"files.readwrite",
	"files:read",
	"files:write",
	"sites.read",
	"sites.readwrite",
}

var aiNeedles = []string{
	"openai",
	"anthropic",
	"claude",
	"gemini",
	"generativelanguage",
	"cognitiveservices",
	"bedrock",
	"assistant:",
}

func containsAny(scope string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(scope, needle) {
			return true
		}
	}
	return false
}
