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
	"fmt"
	"strings"

	"pgedge-schema-doc/internal/metadata"
)

// EntityDescription synthesizes an entity-level description when neither a
// canonical source nor an override provides one
func EntityDescription(e *metadata.Entity) string {
	if e.Kind == metadata.KindView {
		if len(e.SourceRelations) > 0 {
			return "View based on " + strings.Join(e.SourceRelations, ", ")
		}
		return "View: " + e.Name
	}
	return fmt.Sprintf("Table containing %d columns", len(e.Columns))
}
