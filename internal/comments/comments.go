/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - COMMENT Statement Generator
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package comments

import (
	"fmt"
	"sort"
	"strings"

	"pgedge-schema-doc/internal/logging"
	"pgedge-schema-doc/internal/metadata"
)

// Kind distinguishes entity-level from column-level statements
type Kind int

const (
	KindEntity Kind = iota
	KindColumn
)

// String returns the string representation of a statement kind
func (k Kind) String() string {
	if k == KindColumn {
		return "column"
	}
	return "entity"
}

// Statement is one generated documentation statement. Target is the
// qualified name the statement documents (schema.entity or
// schema.entity.column); SQL is the executable COMMENT statement.
type Statement struct {
	Kind        Kind
	Target      string
	Description string
	SQL         string
}

// Generator turns resolved metadata into idempotent COMMENT statements.
// Generation is pure text emission: applying the statements is the
// caller's concern.
type Generator struct {
	// Schema qualifies every entity reference (default "public")
	Schema string

	// Force re-emits statements for items that already carry a comment
	Force bool
}

// NewGenerator creates a generator for the given schema
func NewGenerator(schema string, force bool) *Generator {
	if schema == "" {
		schema = "public"
	}
	return &Generator{Schema: schema, Force: force}
}

// Generate produces statements for every ledger entity in deterministic
// entity-then-column order (entities sorted by name, columns in catalog
// order). Items present in documented are skipped unless Force is set, so
// re-running the pipeline without new information does not churn the
// output. Descriptions that cannot be safely escaped are dropped with a
// warning; generation continues for everything else.
func (g *Generator) Generate(ledger *metadata.Ledger, documented map[string]bool) []Statement {
	names := ledger.Names()
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	var statements []Statement
	for _, name := range names {
		entity, _ := ledger.Get(name)

		entityTarget := g.Schema + "." + entity.Name
		if g.Force || !documented[strings.ToLower(entityTarget)] {
			if stmt, ok := g.entityStatement(entity, entityTarget); ok {
				statements = append(statements, stmt)
			}
		}

		for _, col := range entity.Columns {
			colTarget := entityTarget + "." + col.Name
			if !g.Force && documented[strings.ToLower(colTarget)] {
				continue
			}
			if stmt, ok := g.columnStatement(colTarget, col); ok {
				statements = append(statements, stmt)
			}
		}
	}

	return statements
}

// entityStatement builds the COMMENT ON TABLE/VIEW statement for an entity.
// An empty description yields nothing rather than a blank comment.
func (g *Generator) entityStatement(entity *metadata.Entity, target string) (Statement, bool) {
	if entity.Description == "" {
		return Statement{}, false
	}

	escaped, err := escape(entity.Description)
	if err != nil {
		logging.Warn("dropping entity comment", "target", target, "error", err.Error())
		return Statement{}, false
	}

	object := "TABLE"
	if entity.Kind == metadata.KindView {
		object = "VIEW"
	}

	return Statement{
		Kind:        KindEntity,
		Target:      target,
		Description: entity.Description,
		SQL:         fmt.Sprintf("COMMENT ON %s %s IS '%s';", object, target, escaped),
	}, true
}

// columnStatement builds the COMMENT ON COLUMN statement for one column
func (g *Generator) columnStatement(target string, col metadata.Column) (Statement, bool) {
	if col.Description == "" {
		return Statement{}, false
	}

	escaped, err := escape(col.Description)
	if err != nil {
		logging.Warn("dropping column comment", "target", target, "error", err.Error())
		return Statement{}, false
	}

	return Statement{
		Kind:        KindColumn,
		Target:      target,
		Description: col.Description,
		SQL:         fmt.Sprintf("COMMENT ON COLUMN %s IS '%s';", target, escaped),
	}, true
}

// escape doubles single quotes for SQL string literals. The escaping is
// mechanical and never alters semantic content; input that cannot form a
// valid literal at all (embedded NUL) is rejected.
func escape(text string) (string, error) {
	if strings.ContainsRune(text, 0) {
		return "", fmt.Errorf("description contains a NUL byte")
	}
	return strings.ReplaceAll(text, "'", "''"), nil
}

// Script renders statements as a SQL script. In pretty format the script
// carries a header and per-entity section comments; compact format emits
// bare statements only.
func Script(statements []Statement, pretty bool) string {
	var sb strings.Builder

	if pretty {
		sb.WriteString("-- Generated schema documentation comments\n")
		sb.WriteString("-- Created by pgedge-schema-doc\n\n")
	}

	lastEntity := ""
	for _, stmt := range statements {
		entity := stmt.Target
		if stmt.Kind == KindColumn {
			if idx := strings.LastIndex(entity, "."); idx > 0 {
				entity = entity[:idx]
			}
		}

		if pretty && entity != lastEntity {
			if lastEntity != "" {
				sb.WriteString("\n")
			}
			sb.WriteString("-- " + entity + "\n")
			lastEntity = entity
		}

		sb.WriteString(stmt.SQL)
		sb.WriteString("\n")
	}

	return sb.String()
}
