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

import (
	"fmt"
	"sort"
	"strings"

	"pgedge-schema-doc/internal/metadata"
)

// EntityCoverage summarizes description quality for one entity
type EntityCoverage struct {
	Entity         string
	Kind           metadata.Kind
	Columns        int
	Canonical      int
	Manual         int
	Pattern        int
	Fallback       int
	Computed       int
	MeanConfidence float64
}

// Coverage is the full per-run report: one row per documented entity plus
// the views that never met the resolution threshold.
type Coverage struct {
	Entities             []EntityCoverage
	TerminallyUnresolved []string
}

// Compute builds a coverage report from a settled ledger. Rows come back
// sorted by entity name.
func Compute(ledger *metadata.Ledger, terminallyUnresolved []string) *Coverage {
	names := ledger.Names()
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	cov := &Coverage{TerminallyUnresolved: terminallyUnresolved}
	for _, name := range names {
		entity, _ := ledger.Get(name)

		row := EntityCoverage{
			Entity:  entity.Name,
			Kind:    entity.Kind,
			Columns: len(entity.Columns),
		}

		total := 0.0
		for _, col := range entity.Columns {
			total += col.Confidence
			switch col.Source {
			case metadata.SourceCanonical:
				row.Canonical++
			case metadata.SourceManual:
				row.Manual++
			case metadata.SourcePattern:
				row.Pattern++
			case metadata.SourceFallback:
				row.Fallback++
			case metadata.SourceComputed:
				row.Computed++
			}
		}
		if row.Columns > 0 {
			row.MeanConfidence = total / float64(row.Columns)
		}

		cov.Entities = append(cov.Entities, row)
	}

	return cov
}

// Described counts columns whose description rests on more than a
// humanized name
func (r EntityCoverage) Described() int {
	return r.Canonical + r.Manual + r.Pattern
}

// DescribedPct is the described share of the entity's columns, 0-100
func (r EntityCoverage) DescribedPct() float64 {
	if r.Columns == 0 {
		return 0
	}
	return 100 * float64(r.Described()) / float64(r.Columns)
}

var coverageHeader = []string{
	"entity", "kind", "columns", "canonical", "manual", "pattern",
	"fallback", "computed", "described_pct", "mean_confidence",
}

// TSV renders the report as tab-separated rows with a header, suitable
// for piping into cut/awk or a spreadsheet import
func (c *Coverage) TSV() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(coverageHeader, "\t"))

	for _, row := range c.Entities {
		sb.WriteString("\n")
		sb.WriteString(BuildRow(
			row.Entity,
			row.Kind.String(),
			fmt.Sprintf("%d", row.Columns),
			fmt.Sprintf("%d", row.Canonical),
			fmt.Sprintf("%d", row.Manual),
			fmt.Sprintf("%d", row.Pattern),
			fmt.Sprintf("%d", row.Fallback),
			fmt.Sprintf("%d", row.Computed),
			fmt.Sprintf("%.1f", row.DescribedPct()),
			fmt.Sprintf("%.2f", row.MeanConfidence),
		))
	}

	return sb.String()
}

// Markdown renders the report as a document for terminal display
func (c *Coverage) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# Schema Documentation Coverage\n\n")
	sb.WriteString("| Entity | Kind | Columns | Canonical | Manual | Pattern | Fallback | Computed | Described | Confidence |\n")
	sb.WriteString("|--------|------|---------|-----------|--------|---------|----------|----------|-----------|------------|\n")

	for _, row := range c.Entities {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %d | %.1f%% | %.2f |\n",
			row.Entity, row.Kind, row.Columns, row.Canonical, row.Manual,
			row.Pattern, row.Fallback, row.Computed, row.DescribedPct(), row.MeanConfidence))
	}

	if len(c.TerminallyUnresolved) > 0 {
		sb.WriteString("\n## Unresolved views\n\n")
		sb.WriteString("These views never met the resolution threshold and fall back to pattern inference:\n\n")
		for _, name := range c.TerminallyUnresolved {
			sb.WriteString("- " + name + "\n")
		}
	}

	return sb.String()
}
