/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - View Propagation Resolver
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/logging"
	"pgedge-schema-doc/internal/metadata"
)

// Confidence damping per propagation hop. Descriptions inherited through a
// view carry slightly more risk than ones read straight off a table.
const (
	tableHopDamping = 0.95
	viewHopDamping  = 0.90
)

// Confidence scores for columns that could not be mapped to any source
const (
	confidenceComputed = 0.7
	confidenceFallback = 0.5
)

// DefaultSuccessThreshold is the fraction of a view's columns that must map
// to a resolved source before the view itself counts as resolved
const DefaultSuccessThreshold = 0.8

// Resolver propagates column descriptions from source relations to views
// using a multi-pass fixpoint: each pass maps the views whose sources
// resolved in earlier passes, so chains of views-of-views settle in
// dependency order without any explicit graph traversal.
type Resolver struct {
	threshold float64
	engine    *inference.Engine
}

// Stats summarizes one resolution run
type Stats struct {
	Passes               int
	Resolved             int
	TerminallyUnresolved []string
}

// New creates a resolver. The threshold must lie in [0,1]; anything else is
// a configuration error and rejected before resolution begins.
func New(threshold float64, engine *inference.Engine) (*Resolver, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("success threshold %v outside [0,1]", threshold)
	}
	if engine == nil {
		return nil, fmt.Errorf("inference engine is required")
	}
	return &Resolver{threshold: threshold, engine: engine}, nil
}

// Resolve maps every view in the catalog that is not already in the ledger.
// The ledger arrives seeded with all tables plus canonical and overridden
// entities; it grows monotonically and is never re-entered for an entity.
//
// Views left pending at fixpoint (missing sources, cycles, or too many
// unmapped columns) are terminally unresolved: their columns fall back to
// pattern inference rather than being left undocumented.
func (r *Resolver) Resolve(catalog *metadata.Catalog, ledger *metadata.Ledger) *Stats {
	stats := &Stats{}

	var pending []*metadata.Entity
	for _, name := range catalog.Names() {
		entity, _ := catalog.Get(name)
		if entity.Kind == metadata.KindView && !ledger.Has(name) {
			pending = append(pending, entity)
		}
	}

	// Each productive pass resolves at least one view, so |pending| passes
	// suffice even without an explicit cap.
	maxPasses := len(pending)

	for pass := 1; pass <= maxPasses && len(pending) > 0; pass++ {
		stats.Passes = pass
		logging.Debug("propagation pass", "pass", pass, "pending", len(pending))

		// Promotions are buffered and merged after the pass so every view in
		// the pass maps against the same resolved set.
		var promoted []*metadata.Entity
		var still []*metadata.Entity

		for _, view := range pending {
			mapped := r.mapView(view, ledger)
			if r.meetsThreshold(mapped) {
				promoted = append(promoted, mapped)
			} else {
				still = append(still, view)
			}
		}

		if len(promoted) == 0 {
			// Fixpoint: no further view can improve
			break
		}

		for _, view := range promoted {
			ledger.Add(view)
			stats.Resolved++
			logging.Debug("resolved view", "view", view.Name, "pass", pass,
				"sources", strings.Join(view.SourceRelations, ","))
		}
		pending = still
	}

	for _, view := range pending {
		stats.TerminallyUnresolved = append(stats.TerminallyUnresolved, view.Name)
		ledger.Add(r.inferView(view))
	}

	if len(pending) > 0 {
		logging.Warn("views could not be resolved by propagation",
			"count", len(pending),
			"views", strings.Join(stats.TerminallyUnresolved, ", "))
	}

	return stats
}

// mapView maps one view's columns against its resolved source relations.
// Sources are tried in declaration order; the first source with an equally
// named column wins for that column.
func (r *Resolver) mapView(view *metadata.Entity, ledger *metadata.Ledger) *metadata.Entity {
	columns := make([]metadata.Column, 0, len(view.Columns))
	for _, col := range view.Columns {
		columns = append(columns, r.mapColumn(view, col, ledger))
	}

	return &metadata.Entity{
		Name:            view.Name,
		Kind:            metadata.KindView,
		Description:     inference.EntityDescription(view),
		Columns:         columns,
		SourceRelations: view.SourceRelations,
		Definition:      view.Definition,
	}
}

// mapColumn propagates a single column's description from the first resolved
// source that declares an equally named column
func (r *Resolver) mapColumn(view *metadata.Entity, col metadata.Column, ledger *metadata.Ledger) metadata.Column {
	for _, sourceName := range view.SourceRelations {
		source, ok := ledger.Get(sourceName)
		if !ok {
			continue
		}

		sourceCol, ok := source.Column(col.Name)
		if !ok {
			continue
		}

		damping := tableHopDamping
		if source.Kind == metadata.KindView {
			damping = viewHopDamping
		}

		// The source tag travels with the description: a canonically
		// documented column stays canonical however many views deep.
		return metadata.Column{
			Name:        col.Name,
			DataType:    col.DataType,
			Description: sourceCol.Description,
			Confidence:  clamp(sourceCol.Confidence * damping),
			Source:      sourceCol.Source,
		}
	}

	if isComputedColumn(col.Name, view.Definition) {
		return metadata.Column{
			Name:        col.Name,
			DataType:    col.DataType,
			Description: "Computed field: " + col.Name,
			Confidence:  confidenceComputed,
			Source:      metadata.SourceComputed,
		}
	}

	return metadata.Column{
		Name:        col.Name,
		DataType:    col.DataType,
		Description: inference.Title(inference.Humanize(col.Name)),
		Confidence:  confidenceFallback,
		Source:      metadata.SourceFallback,
	}
}

// meetsThreshold applies the success criterion: enough of the view's columns
// must carry a description from a matched source column. Fallback and
// computed columns are generic filler and do not count.
func (r *Resolver) meetsThreshold(view *metadata.Entity) bool {
	if len(view.Columns) == 0 {
		return false
	}

	mapped := 0
	for _, col := range view.Columns {
		switch col.Source {
		case metadata.SourceFallback, metadata.SourceComputed:
		default:
			mapped++
		}
	}

	ratio := float64(mapped) / float64(len(view.Columns))
	return ratio >= r.threshold
}

// inferView builds the terminal fallback entity for a view that propagation
// could never resolve: every column gets pattern-engine output
func (r *Resolver) inferView(view *metadata.Entity) *metadata.Entity {
	columns := make([]metadata.Column, 0, len(view.Columns))
	for _, col := range view.Columns {
		desc, confidence := r.engine.Infer(col.Name, col.DataType)
		columns = append(columns, metadata.Column{
			Name:        col.Name,
			DataType:    col.DataType,
			Description: desc,
			Confidence:  confidence,
			Source:      metadata.SourcePattern,
		})
	}

	return &metadata.Entity{
		Name:            view.Name,
		Kind:            metadata.KindView,
		Description:     inference.EntityDescription(view),
		Columns:         columns,
		SourceRelations: view.SourceRelations,
		Definition:      view.Definition,
	}
}

// computedPattern spots expressions aliased to a column name. A heuristic,
// not a SQL parse: good enough to tell "CASE ... AS band" from a plain
// column selection.
var computedPattern = regexp.MustCompile(`(?is)\b(CASE|CAST|ROUND|UPPER|LOWER|CONCAT|COALESCE|SUM|COUNT|AVG|MIN|MAX)\b[^;]*?\bAS\s+`)

// isComputedColumn reports whether the view's defining query appears to
// derive the column from an expression rather than select it directly
func isComputedColumn(columnName, definition string) bool {
	if definition == "" {
		return false
	}
	pattern, err := regexp.Compile(computedPattern.String() + regexp.QuoteMeta(strings.ToLower(columnName)) + `\b`)
	if err != nil {
		return false
	}
	return pattern.MatchString(definition)
}

// clamp bounds a confidence score to [0,1]
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
