/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Multi-Source Merge Resolver
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package merge

import (
	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/metadata"
)

// Candidates collects the per-column inputs to a merge. Any of the three
// may be absent for a given column.
type Candidates struct {
	Manual    *metadata.Column
	Canonical *metadata.Column
	Inferred  *metadata.Column // propagated or pattern result
}

// Column resolves one column by fixed priority: manual > canonical >
// propagated/pattern. A higher-priority source missing its entry falls
// through to the next; the inferred candidate is total, so the merge never
// produces an empty description.
func Column(c Candidates) metadata.Column {
	if c.Manual != nil {
		return *c.Manual
	}
	if c.Canonical != nil {
		return *c.Canonical
	}
	if c.Inferred != nil {
		return *c.Inferred
	}
	return metadata.Column{}
}

// Entity builds the merged metadata for one catalog entity. The catalog
// entity supplies the column set and order; override and canonical supply
// descriptions where they have entries; the inference engine fills the rest.
// Override and canonical may be nil.
func Entity(catalogEntity *metadata.Entity, override, canonical *metadata.Entity, engine *inference.Engine) *metadata.Entity {
	columns := make([]metadata.Column, 0, len(catalogEntity.Columns))

	for _, col := range catalogEntity.Columns {
		var c Candidates

		if override != nil {
			if oc, ok := override.Column(col.Name); ok && oc.Description != "" {
				merged := oc
				merged.Name = col.Name
				merged.DataType = col.DataType
				merged.Source = metadata.SourceManual
				merged.Confidence = 1.0
				c.Manual = &merged
			}
		}
		if canonical != nil {
			if cc, ok := canonical.Column(col.Name); ok && cc.Description != "" {
				merged := cc
				merged.Name = col.Name
				merged.DataType = col.DataType
				merged.Source = metadata.SourceCanonical
				c.Canonical = &merged
			}
		}

		desc, confidence := engine.Infer(col.Name, col.DataType)
		c.Inferred = &metadata.Column{
			Name:        col.Name,
			DataType:    col.DataType,
			Description: desc,
			Confidence:  confidence,
			Source:      metadata.SourcePattern,
		}

		columns = append(columns, Column(c))
	}

	return &metadata.Entity{
		Name:            catalogEntity.Name,
		Kind:            catalogEntity.Kind,
		Description:     entityDescription(catalogEntity, override, canonical),
		Columns:         columns,
		SourceRelations: catalogEntity.SourceRelations,
		Definition:      catalogEntity.Definition,
	}
}

// entityDescription applies the same priority order at entity level
func entityDescription(catalogEntity, override, canonical *metadata.Entity) string {
	if override != nil && override.Description != "" {
		return override.Description
	}
	if canonical != nil && canonical.Description != "" {
		return canonical.Description
	}
	return inference.EntityDescription(catalogEntity)
}
