/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Pattern Inference Engine
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package inference

import (
	"regexp"
	"strings"
)

// Confidence scores per rule class. Rule order is the tie-break policy:
// the first matching rule wins regardless of score.
const (
	ConfidenceExact    = 0.95
	ConfidenceSuffix   = 0.8
	ConfidencePrefix   = 0.75
	ConfidenceType     = 0.6
	ConfidenceFallback = 0.5
)

// Engine generates column descriptions from naming conventions. It holds
// only its rule tables and never touches the catalog, so Infer is a pure
// function of its arguments.
type Engine struct {
	rules Rules
}

// NewEngine creates an inference engine with the given rule tables
func NewEngine(rules Rules) *Engine {
	// Exact matches may come from DefaultRules or hand-built tables that
	// bypassed LoadRules; normalize to lower case once here.
	if len(rules.ExactMatches) > 0 {
		lowered := make(map[string]string, len(rules.ExactMatches))
		for name, desc := range rules.ExactMatches {
			lowered[strings.ToLower(name)] = desc
		}
		rules.ExactMatches = lowered
	}
	return &Engine{rules: rules}
}

// Infer produces a description and confidence for a column. It always
// returns a non-empty description: the fallback humanization guarantees
// totality.
//
// Resolution order, first match wins:
//  1. exact full-name match
//  2. suffix match
//  3. prefix match
//  4. declared-type convention
//  5. fallback humanization
func (e *Engine) Infer(columnName, dataType string) (string, float64) {
	lower := strings.ToLower(columnName)

	if desc, ok := e.rules.ExactMatches[lower]; ok {
		return desc, ConfidenceExact
	}

	for _, rule := range e.rules.SuffixPatterns {
		suffix := strings.ToLower(rule.Suffix)
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			base := Humanize(lower[:len(lower)-len(suffix)])
			return capitalize(base + " " + rule.Fragment), ConfidenceSuffix
		}
	}

	for _, rule := range e.rules.PrefixPatterns {
		prefix := strings.ToLower(rule.Prefix)
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			base := Humanize(lower[len(prefix):])
			return capitalize(rule.Fragment + " " + base), ConfidencePrefix
		}
	}

	if desc, ok := inferFromType(lower, dataType); ok {
		return desc, ConfidenceType
	}

	// Separator-only identifiers humanize to nothing; the raw name is
	// still a non-empty description.
	if fallback := Title(Humanize(columnName)); fallback != "" {
		return fallback, ConfidenceFallback
	}
	return columnName, ConfidenceFallback
}

// inferFromType applies declared-type conventions
func inferFromType(lowerName, dataType string) (string, bool) {
	base := strings.ToUpper(dataType)
	// Strip type modifiers, e.g. "timestamp(6) with time zone"
	if idx := strings.IndexAny(base, "( "); idx > 0 {
		base = base[:idx]
	}

	switch base {
	case "DATE":
		return "Date of " + Humanize(lowerName), true
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		return "Timestamp for " + Humanize(lowerName), true
	case "BOOLEAN", "BOOL":
		return "Flag indicating whether " + Humanize(lowerName), true
	}
	return "", false
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Humanize converts a snake_case, UPPER_CASE, or camelCase identifier to
// lower-case words separated by spaces
func Humanize(identifier string) string {
	if strings.ContainsAny(identifier, "_-") {
		words := strings.FieldsFunc(identifier, func(r rune) bool {
			return r == '_' || r == '-'
		})
		for i, w := range words {
			words[i] = strings.ToLower(w)
		}
		return strings.Join(words, " ")
	}

	spaced := camelBoundary.ReplaceAllString(identifier, "$1 $2")
	return strings.ToLower(spaced)
}

// Title upper-cases the first letter of every word
func Title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// capitalize upper-cases the first letter only
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
