// Package searchquery parses the log panel's filter-bar text into a
// FilterSpec. The grammar is deliberately small: bare words and quoted
// phrases become search terms, and a level:NAME directive sets the
// severity floor. Term order is irrelevant to the filter.
package searchquery

import (
	"fmt"
	"strings"

	"github.com/jasmine-z2a/studio/internal/model"
)

// Parse converts filter-bar input into a FilterSpec. Empty input yields
// the zero spec (no floor, no terms). Duplicate terms collapse; a later
// level directive overrides an earlier one.
func Parse(input string) (model.FilterSpec, error) {
	spec := model.FilterSpec{}
	if strings.TrimSpace(input) == "" {
		return spec, nil
	}

	seen := make(map[string]struct{})
	addTerm := func(term string) {
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		spec.SearchTerms = append(spec.SearchTerms, term)
	}

	lex := NewLexer(input)
	tok := lex.NextToken()
	for tok.Type != TokenEOF {
		switch tok.Type {
		case TokenString:
			addTerm(tok.Value)
			tok = lex.NextToken()

		case TokenWord:
			word := tok.Value
			tok = lex.NextToken()
			if tok.Type != TokenColon {
				addTerm(word)
				continue
			}
			// key:value directive
			tok = lex.NextToken()
			if tok.Type != TokenWord && tok.Type != TokenString {
				return model.FilterSpec{}, fmt.Errorf("expected value after %q:", word)
			}
			value := tok.Value
			tok = lex.NextToken()

			switch strings.ToLower(word) {
			case "level", "lvl":
				lvl := model.EncodeLevel(value)
				if lvl == model.LevelUnknown {
					return model.FilterSpec{}, fmt.Errorf("unknown level %q", value)
				}
				spec.MinLevel = lvl
			default:
				return model.FilterSpec{}, fmt.Errorf("unknown directive %q", word)
			}

		case TokenColon:
			// A stray colon is treated as part of free text.
			addTerm(":")
			tok = lex.NextToken()
		}
	}

	return spec, nil
}

// Format renders a FilterSpec back into filter-bar text. Parse(Format(s))
// is equivalent to s for specs produced by Parse.
func Format(spec model.FilterSpec) string {
	var parts []string
	if spec.MinLevel > model.LevelDebug && spec.MinLevel != model.LevelUnknown {
		parts = append(parts, "level:"+strings.ToLower(model.DecodeLevel(spec.MinLevel)))
	}
	for _, term := range spec.SearchTerms {
		if strings.ContainsAny(term, " \t:\"") {
			parts = append(parts, `"`+strings.ReplaceAll(term, `"`, `\"`)+`"`)
		} else {
			parts = append(parts, term)
		}
	}
	return strings.Join(parts, " ")
}
