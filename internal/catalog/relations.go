/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Database Snapshot
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package catalog

import (
	"regexp"
	"strings"
)

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	fromRe         = regexp.MustCompile(`(?i)\bFROM\s+([^\s,()]+)`)
	joinRe         = regexp.MustCompile(`(?i)\bJOIN\s+([^\s,()]+)`)
)

// Keywords that the FROM/JOIN patterns can pick up instead of a relation
// name (e.g. "FROM (SELECT ...") and must never be treated as one.
var relationStopwords = map[string]bool{
	"SELECT": true,
	"WHERE":  true,
	"GROUP":  true,
	"ORDER":  true,
	"ON":     true,
	"USING":  true,
}

// ExtractSourceRelations pulls the relation names a view reads from out of
// its defining query. The parse is regex-based over FROM and JOIN clauses,
// which covers the view definitions pg_get_viewdef emits; subqueries and
// CTE bodies contribute their inner relations the same way. Names come
// back unqualified, deduplicated, in order of first appearance.
func ExtractSourceRelations(viewSQL string) []string {
	clean := lineCommentRe.ReplaceAllString(viewSQL, "")
	clean = blockCommentRe.ReplaceAllString(clean, "")

	var relations []string
	for _, re := range []*regexp.Regexp{fromRe, joinRe} {
		for _, m := range re.FindAllStringSubmatch(clean, -1) {
			if name, ok := cleanRelationName(m[1]); ok {
				relations = append(relations, name)
			}
		}
	}

	seen := make(map[string]bool)
	var unique []string
	for _, r := range relations {
		key := strings.ToUpper(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique
}

// cleanRelationName strips quoting and schema qualification from a raw
// FROM/JOIN token and rejects keywords and CTE-local noise.
func cleanRelationName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	name = strings.NewReplacer(`"`, "", "'", "").Replace(name)
	name = strings.TrimRight(name, ";")

	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}

	if name == "" || relationStopwords[strings.ToUpper(name)] {
		return "", false
	}
	return name, true
}
