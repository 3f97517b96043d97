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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pgedge-schema-doc/internal/comments"
	"pgedge-schema-doc/internal/pipeline"
)

var (
	generateOutput  string
	generateForce   bool
	generateDryRun  bool
	generateTable   string
	generateNoViews bool
	generateFormat  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate COMMENT statements for the schema",
	Long: `generate resolves descriptions for every table, view, and column in the
target schema and emits the corresponding COMMENT statements as a SQL
script. Nothing is executed; use apply to run the statements.

Targets that already carry a comment in the database are skipped unless
--force is given, so the output only contains what is new.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Write the script to a file instead of stdout")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Re-emit statements for targets that already have comments")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print a summary instead of the script")
	generateCmd.Flags().StringVarP(&generateTable, "table", "t", "", "Only generate statements for one entity")
	generateCmd.Flags().BoolVar(&generateNoViews, "no-views", false, "Skip view documentation")
	generateCmd.Flags().StringVar(&generateFormat, "format", "", "Script format: pretty or compact")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if generateNoViews {
		cfg.Generator.IncludeViews = false
	}
	if generateFormat != "" {
		cfg.Generator.Format = generateFormat
	}

	result, err := runPipeline(cmd.Context(), cfg, generateForce)
	if err != nil {
		return err
	}

	statements := result.Statements
	if generateTable != "" {
		if _, err := ledgerEntity(result, generateTable); err != nil {
			return err
		}
		statements = filterStatements(statements, cfg.Generator.Schema, generateTable)
	}

	if generateDryRun {
		return printGenerateSummary(cmd, result, statements)
	}

	script := comments.Script(statements, cfg.Generator.Format == "pretty")
	if generateOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	}

	if err := os.WriteFile(generateOutput, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d statements to %s\n", len(statements), generateOutput)
	return nil
}

// filterStatements keeps statements targeting one entity
func filterStatements(statements []comments.Statement, schema, entity string) []comments.Statement {
	prefix := strings.ToLower(schema + "." + entity)

	var filtered []comments.Statement
	for _, s := range statements {
		target := strings.ToLower(s.Target)
		if target == prefix || strings.HasPrefix(target, prefix+".") {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func printGenerateSummary(cmd *cobra.Command, result *pipeline.Result, statements []comments.Statement) error {
	entities, columns := 0, 0
	for _, s := range statements {
		if s.Kind == comments.KindEntity {
			entities++
		} else {
			columns++
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Resolution passes:    %d\n", result.Resolution.Passes)
	fmt.Fprintf(out, "Entities resolved:    %d\n", result.Ledger.Len())
	fmt.Fprintf(out, "Unresolved views:     %d\n", len(result.Resolution.TerminallyUnresolved))
	fmt.Fprintf(out, "Entity statements:    %d\n", entities)
	fmt.Fprintf(out, "Column statements:    %d\n", columns)
	for _, name := range result.Resolution.TerminallyUnresolved {
		fmt.Fprintf(out, "  unresolved: %s\n", name)
	}
	return nil
}
