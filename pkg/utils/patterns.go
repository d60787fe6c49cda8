package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Wildcard matches file names against a glob pattern, ignoring case.
// Supported syntax is "*", "?" and "[...]" classes; separators never match.
type Wildcard struct {
	regex *regexp.Regexp
}

// NewWildcard compiles a file name wildcard
func NewWildcard(pattern string) (*Wildcard, error) {
	regex, err := globToRegex(pattern)
	if err != nil {
		return nil, err
	}
	return &Wildcard{regex: regex}, nil
}

// Match checks whether the base name of path matches
func (w *Wildcard) Match(path string) bool {
	return w.regex.MatchString(filepath.Base(path))
}

// globToRegex converts a glob pattern to a case-insensitive regular expression
func globToRegex(pattern string) (*regexp.Regexp, error) {
	var regex strings.Builder
	regex.WriteString("(?i)^")

	i := 0
	for i < len(pattern) {
		switch pattern[i] {
		case '*':
			// Consecutive stars collapse; names never span directories.
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			regex.WriteString(`[^/\\]*`)
		case '?':
			regex.WriteString(`[^/\\]`)
			i++
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				regex.WriteString("[^")
				j++
			} else {
				regex.WriteString("[")
			}

			start := j
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}

			if j < len(pattern) {
				regex.WriteString(regexp.QuoteMeta(pattern[start:j]))
				regex.WriteByte(']')
				i = j + 1
			} else {
				// Unclosed bracket, treat as literal
				return regexp.Compile("(?i)^" + regexp.QuoteMeta(pattern) + "$")
			}
		default:
			regex.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}

	regex.WriteString("$")

	return regexp.Compile(regex.String())
}

// IsGlobPattern reports whether pattern uses any syntax Wildcard treats specially
func IsGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
