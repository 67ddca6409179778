package panel

import (
	"strings"

	"github.com/jasmine-z2a/studio/internal/model"
)

// Matches reports whether a single record passes the filter spec.
// Term matching is case-sensitive substring containment against the
// message text and the emitter name.
func Matches(r model.LogRecord, spec model.FilterSpec) bool {
	if r.Level < spec.MinLevel {
		return false
	}
	if len(spec.SearchTerms) == 0 {
		return true
	}
	for _, term := range spec.SearchTerms {
		if strings.Contains(r.Message, term) || strings.Contains(r.Name, term) {
			return true
		}
	}
	return false
}

// Apply returns the subsequence of records passing spec. The output
// preserves the input order: this is a stable filter, never a reorder.
func Apply(records []model.LogRecord, spec model.FilterSpec) []model.LogRecord {
	out := make([]model.LogRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, spec) {
			out = append(out, r)
		}
	}
	return out
}
