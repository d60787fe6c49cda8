// Package rules derives the path deny-list applied while distilling.
//
// Every rule is a slash-delimited folder segment such as "/NoRedist/". A path
// is rejected when any segment appears in it, ignoring case. Paths are
// evaluated in rooted form so anchored segments also catch top-level entries.
package rules

import (
	"strings"

	"github.com/poltergeist/distill/pkg/paths"
	"github.com/poltergeist/distill/pkg/platform"
)

// Restricted folder markers
const (
	CarefullyRedist = "CarefullyRedist"
	NotForLicensees = "NotForLicensees"
	NoRedist        = "NoRedist"
	WindowsFolder   = "Windows"
)

// RejectRuleSet is an immutable, ordered list of deny segments
type RejectRuleSet struct {
	patterns []string
	// display keeps the configured spelling for diagnostics.
	display []string
}

// New builds the rule set for one distillation session.
// An empty legal list means every platform in registry is legal.
// A nil registry means platform.DefaultRegistry().
func New(registry *platform.Registry, legal []string, allowNoRedist bool) *RejectRuleSet {
	rs := &RejectRuleSet{}

	rs.add(CarefullyRedist)
	rs.add(NotForLicensees)
	if !allowNoRedist {
		rs.add(NoRedist)
	}

	if registry == nil {
		registry = platform.DefaultRegistry()
	}

	isLegal := make(map[string]bool)
	if len(legal) == 0 {
		for _, name := range registry.Names() {
			isLegal[strings.ToLower(name)] = true
		}
	} else {
		for _, name := range legal {
			isLegal[strings.ToLower(name)] = true
		}
	}

	for _, name := range registry.Names() {
		if !isLegal[strings.ToLower(name)] {
			rs.add(name)
		}
	}

	// Platform folders are not always named after the identifier; Windows
	// content commonly sits under a generic "Windows" folder.
	windowsLegal := false
	for _, name := range platform.WindowsFamily {
		if isLegal[strings.ToLower(name)] {
			windowsLegal = true
			break
		}
	}
	if !windowsLegal {
		rs.add(WindowsFolder)
	}

	return rs
}

func (rs *RejectRuleSet) add(segment string) {
	rs.patterns = append(rs.patterns, normalizePattern(segment))
	rs.display = append(rs.display, "/"+strings.Trim(segment, `/\`)+"/")
}

// Patterns returns the normalized deny segments in evaluation order
func (rs *RejectRuleSet) Patterns() []string {
	out := make([]string, len(rs.display))
	copy(out, rs.display)
	return out
}

// Matches reports whether any deny segment occurs in path
func (rs *RejectRuleSet) Matches(path string) bool {
	_, ok := rs.MatchingPattern(path)
	return ok
}

// MatchesRelative evaluates path after making it relative to root
func (rs *RejectRuleSet) MatchesRelative(path, root string) bool {
	return rs.Matches(paths.RelativeSlash(path, root))
}

// MatchingPattern returns the first deny segment found in path
func (rs *RejectRuleSet) MatchingPattern(path string) (string, bool) {
	candidate := normalizeCandidate(path)
	for i, pattern := range rs.patterns {
		if strings.Contains(candidate, pattern) {
			return rs.display[i], true
		}
	}
	return "", false
}

// normalizePattern lower-cases segment and wraps it in slashes
func normalizePattern(segment string) string {
	segment = strings.ToLower(strings.ReplaceAll(segment, `\`, "/"))
	return "/" + strings.Trim(segment, "/") + "/"
}

// normalizeCandidate produces the rooted, lower-case form that patterns are searched in
func normalizeCandidate(path string) string {
	candidate := strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
	if !strings.HasPrefix(candidate, "/") {
		candidate = "/" + candidate
	}
	return candidate
}
