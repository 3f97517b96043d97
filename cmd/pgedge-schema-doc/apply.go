/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"pgedge-schema-doc/internal/catalog"
	"pgedge-schema-doc/internal/comments"
	"pgedge-schema-doc/internal/config"
)

var (
	applyForce bool
	applyYes   bool
	applyInput string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Generate COMMENT statements and execute them against the database",
	Long: `apply runs the same resolution as generate, then executes the resulting
COMMENT statements in the target database. Each statement is independent;
a failure is reported and the rest still apply.

Targets that already carry a comment are left alone unless --force is
given, so re-running apply is safe.

With --input a previously saved script (from generate or export) is
executed instead of resolving the schema again.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "Overwrite comments that already exist")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Apply without asking for confirmation")
	applyCmd.Flags().StringVarP(&applyInput, "input", "i", "", "Execute a saved script instead of resolving the schema")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if applyInput != "" {
		return applyScript(cmd, cfg)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	in, pool, err := loadInputs(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := resolveInputs(in, cfg, applyForce, engine)
	if err != nil {
		return err
	}

	if len(result.Statements) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to apply: every target is already documented.")
		return nil
	}

	return applyStatements(cmd, cfg, pool, result.Statements)
}

// applyScript executes a previously saved COMMENT script against the
// database
func applyScript(cmd *cobra.Command, cfg *config.Config) error {
	data, err := os.ReadFile(applyInput)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	statements := parseScript(string(data))
	if len(statements) == 0 {
		return fmt.Errorf("no statements found in %s", applyInput)
	}

	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required (set via -U, SCHEMADOC_DB_USER, PGUSER, or config file)")
	}

	pool, err := catalog.Connect(cmd.Context(), cfg.Database.BuildConnectionString())
	if err != nil {
		return err
	}
	defer pool.Close()

	return applyStatements(cmd, cfg, pool, statements)
}

// parseScript splits a generated script back into statements. Generated
// scripts put one statement per line, so blank lines and "--" comments
// are the only other content.
func parseScript(script string) []comments.Statement {
	var statements []comments.Statement
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		statements = append(statements, comments.Statement{SQL: line})
	}
	return statements
}

// applyStatements confirms with the user, executes the statements, and
// reports the outcome
func applyStatements(cmd *cobra.Command, cfg *config.Config, pool *pgxpool.Pool, statements []comments.Statement) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d statements will be applied to %s/%s.\n",
		len(statements), cfg.Database.Host, cfg.Database.Database)

	if !applyYes {
		fmt.Fprint(out, "Continue? [y/N] ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	stats, err := catalog.Apply(cmd.Context(), pool, statements)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Applied %d statements (%d failed) in %s.\n",
		stats.Applied, stats.Failed, stats.Duration.Round(time.Millisecond))
	if stats.Failed > 0 {
		return fmt.Errorf("%d statements failed to apply", stats.Failed)
	}
	return nil
}
