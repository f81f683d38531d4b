package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// ContainsFold reports whether needle is a case-insensitive substring of haystack.
// An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// Matcher folds the query once and reports matches against any of the candidates.
type Matcher struct {
	folder cases.Caser
	needle string
}

// NewMatcher prepares a case-insensitive matcher for query. Matchers are not safe for
// concurrent use.
func NewMatcher(query string) *Matcher {
	folder := cases.Fold()
	return &Matcher{folder: folder, needle: folder.String(query)}
}

// Empty reports whether the matcher accepts every candidate.
func (m *Matcher) Empty() bool {
	return m.needle == ""
}

// MatchAny reports whether the query is a substring of at least one candidate.
func (m *Matcher) MatchAny(candidates ...string) bool {
	if m.Empty() {
		return true
	}
	for _, candidate := range candidates {
		if strings.Contains(m.folder.String(candidate), m.needle) {
			return true
		}
	}
	return false
}
