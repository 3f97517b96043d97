/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Comment Application
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-schema-doc/internal/comments"
	"pgedge-schema-doc/internal/logging"
)

// ApplyStats summarizes one apply run
type ApplyStats struct {
	Applied  int
	Failed   int
	Duration time.Duration
}

// Apply executes generated COMMENT statements against the database. A
// failing statement is logged and counted but does not stop the run: the
// statements are independent and each success is durable on its own.
func Apply(ctx context.Context, pool *pgxpool.Pool, statements []comments.Statement) (*ApplyStats, error) {
	startTime := time.Now()
	stats := &ApplyStats{}

	for _, stmt := range statements {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}

		if _, err := pool.Exec(ctx, stmt.SQL); err != nil {
			logging.Warn("failed to apply comment",
				"target", stmt.Target, "error", err.Error())
			stats.Failed++
			continue
		}
		stats.Applied++
	}

	stats.Duration = time.Since(startTime)
	logging.Info("comments applied",
		"applied", stats.Applied,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds())

	return stats, nil
}
