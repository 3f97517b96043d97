/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Documentation Pipeline
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"fmt"
	"strings"

	"pgedge-schema-doc/internal/catalog"
	"pgedge-schema-doc/internal/comments"
	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/logging"
	"pgedge-schema-doc/internal/merge"
	"pgedge-schema-doc/internal/metadata"
	"pgedge-schema-doc/internal/report"
	"pgedge-schema-doc/internal/resolve"
)

// Inputs carries everything one documentation run consumes: the database
// snapshot plus the external metadata sources.
type Inputs struct {
	Snapshot  *catalog.Snapshot
	Canonical []*metadata.Entity
	Overrides []*metadata.Entity
}

// Options are the run-level knobs
type Options struct {
	SuccessThreshold float64
	Schema           string
	IncludeViews     bool
	Force            bool
}

// Result is the outcome of one run. The ledger holds the settled
// description for every catalog entity; Statements is what generation
// produced from it.
type Result struct {
	Ledger     *metadata.Ledger
	Resolution *resolve.Stats
	Statements []comments.Statement
	Coverage   *report.Coverage
}

// Run executes the full pipeline: seed the ledger with tables and
// canonically-described views, resolve the remaining views by
// propagation, layer manual overrides on top, then generate COMMENT
// statements. The run touches no database; applying the statements is a
// separate step.
func Run(in Inputs, opts Options, engine *inference.Engine) (*Result, error) {
	if in.Snapshot == nil || in.Snapshot.Catalog == nil {
		return nil, fmt.Errorf("pipeline requires a catalog snapshot")
	}

	resolver, err := resolve.New(opts.SuccessThreshold, engine)
	if err != nil {
		return nil, err
	}

	canonical := indexByName(in.Canonical)
	overrides := indexByName(in.Overrides)

	// Seed the ledger. Tables always settle immediately; a view settles
	// here only when a canonical definition covers it, otherwise it waits
	// for propagation.
	ledger := metadata.NewLedger()
	seeded := make(map[string]bool)
	for _, name := range in.Snapshot.Catalog.Names() {
		entity, _ := in.Snapshot.Catalog.Get(name)
		key := strings.ToLower(name)

		if entity.Kind == metadata.KindView && canonical[key] == nil {
			continue
		}

		ledger.Add(merge.Entity(entity, overrides[key], canonical[key], engine))
		seeded[key] = true
	}

	stats := resolver.Resolve(in.Snapshot.Catalog, ledger)

	// Manual overrides outrank whatever resolution produced. Seeded
	// entities already merged theirs.
	for _, name := range ledger.Names() {
		key := strings.ToLower(name)
		if seeded[key] || overrides[key] == nil {
			continue
		}
		entity, _ := ledger.Get(name)
		applyOverride(entity, overrides[key])
	}

	logging.Info("pipeline resolved",
		"entities", ledger.Len(),
		"passes", stats.Passes,
		"unresolved", len(stats.TerminallyUnresolved))

	statements := comments.NewGenerator(opts.Schema, opts.Force).
		Generate(generationLedger(ledger, opts.IncludeViews), in.Snapshot.Documented)

	return &Result{
		Ledger:     ledger,
		Resolution: stats,
		Statements: statements,
		Coverage:   report.Compute(ledger, stats.TerminallyUnresolved),
	}, nil
}

// indexByName builds a case-insensitive lookup over external entities
func indexByName(entities []*metadata.Entity) map[string]*metadata.Entity {
	index := make(map[string]*metadata.Entity, len(entities))
	for _, e := range entities {
		index[strings.ToLower(e.Name)] = e
	}
	return index
}

// applyOverride replaces a resolved entity's descriptions with the
// manually reviewed ones, column by column
func applyOverride(entity, override *metadata.Entity) {
	if override.Description != "" {
		entity.Description = override.Description
	}

	replaced := make([]metadata.Column, len(entity.Columns))
	for i, col := range entity.Columns {
		if o, ok := override.Column(col.Name); ok && o.Description != "" {
			col.Description = o.Description
			col.Confidence = 1.0
			col.Source = metadata.SourceManual
		}
		replaced[i] = col
	}
	entity.Columns = replaced
}

// generationLedger filters the settled ledger down to what generation
// should emit
func generationLedger(ledger *metadata.Ledger, includeViews bool) *metadata.Ledger {
	if includeViews {
		return ledger
	}

	filtered := metadata.NewLedger()
	for _, name := range ledger.Names() {
		entity, _ := ledger.Get(name)
		if entity.Kind == metadata.KindView {
			continue
		}
		filtered.Add(entity)
	}
	return filtered
}
