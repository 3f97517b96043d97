/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Coverage Reporting
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package report

import "strings"

// EscapeValue converts a value to a TSV-safe string. Tabs and newlines
// would break row parsing, so they become literal backslash sequences.
func EscapeValue(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

// BuildRow creates a single TSV row from string values
func BuildRow(values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = EscapeValue(v)
	}
	return strings.Join(escaped, "\t")
}
