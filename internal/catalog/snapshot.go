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
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-schema-doc/internal/logging"
	"pgedge-schema-doc/internal/metadata"
)

// Snapshot is one consistent read of a schema: every table and view with
// its columns in attribute order, plus the targets that already carry a
// comment. Documented and Existing are keyed by lowercased qualified name
// (schema.entity and schema.entity.column); Existing holds the comment
// text itself.
type Snapshot struct {
	Schema     string
	Catalog    *metadata.Catalog
	Documented map[string]bool
	Existing   map[string]string
	TakenAt    time.Time
}

// Connect opens a connection pool to the given database. The pool tags
// itself with an application_name so the run shows up in pg_stat_activity.
func Connect(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	enhanced, err := addApplicationName(connStr, "pgEdge Schema Documenter")
	if err != nil {
		return nil, fmt.Errorf("unable to enhance connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(enhanced)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// addApplicationName adds application_name to a connection string unless
// one is already present
func addApplicationName(connStr, appName string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}

	query := u.Query()
	if !query.Has("application_name") {
		query.Set("application_name", appName)
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

// Load takes a snapshot of one schema. Tables and views come back in
// name order with columns in attribute order; view entities additionally
// carry their defining query and the relations it reads from. Existing
// comments populate the documented set so generation can skip them.
func Load(ctx context.Context, pool *pgxpool.Pool, schema string) (*Snapshot, error) {
	startTime := time.Now()

	if schema == "" {
		schema = "public"
	}

	query := `
		SELECT
			c.relname AS entity_name,
			c.relkind::text AS entity_kind,
			COALESCE(obj_description(c.oid), '') AS entity_description,
			CASE WHEN c.relkind IN ('v', 'm')
				THEN pg_get_viewdef(c.oid, true)
				ELSE ''
			END AS definition,
			a.attname AS column_name,
			pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
			COALESCE(col_description(c.oid, a.attnum), '') AS column_description
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		WHERE c.relkind IN ('r', 'v', 'm')
			AND n.nspname = $1
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY c.relname, a.attnum
	`

	rows, err := pool.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	snapshot := &Snapshot{
		Schema:     schema,
		Catalog:    metadata.NewCatalog(),
		Documented: make(map[string]bool),
		Existing:   make(map[string]string),
		TakenAt:    startTime,
	}

	columnCount := 0
	for rows.Next() {
		var entityName, entityKind, entityDesc, definition string
		var columnName, dataType, columnDesc string

		if err := rows.Scan(&entityName, &entityKind, &entityDesc, &definition,
			&columnName, &dataType, &columnDesc); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entity, exists := snapshot.Catalog.Get(entityName)
		if !exists {
			kind := metadata.KindTable
			if entityKind == "v" || entityKind == "m" {
				kind = metadata.KindView
			}
			entity = &metadata.Entity{
				Name:       entityName,
				Kind:       kind,
				Definition: definition,
			}
			if kind == metadata.KindView {
				entity.SourceRelations = ExtractSourceRelations(definition)
			}
			snapshot.Catalog.Add(entity)

			if entityDesc != "" {
				key := strings.ToLower(schema + "." + entityName)
				snapshot.Documented[key] = true
				snapshot.Existing[key] = entityDesc
			}
		}

		entity.Columns = append(entity.Columns, metadata.Column{
			Name:     columnName,
			DataType: dataType,
		})
		if columnDesc != "" {
			key := strings.ToLower(schema + "." + entityName + "." + columnName)
			snapshot.Documented[key] = true
			snapshot.Existing[key] = columnDesc
		}
		columnCount++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	logging.Info("catalog snapshot loaded",
		"schema", schema,
		"entities", snapshot.Catalog.Len(),
		"columns", columnCount,
		"documented", len(snapshot.Documented),
		"duration_ms", time.Since(startTime).Milliseconds())

	return snapshot, nil
}
