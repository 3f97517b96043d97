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

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var coverageFormat string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Report how well the schema is documented and where descriptions come from",
	Long: `coverage resolves the schema the same way generate does, then reports a
per-entity breakdown of description sources (canonical, manual, pattern,
fallback, computed) and mean confidence, plus any views that never met
the resolution threshold.`,
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageFormat, "format", "terminal", "Output format: terminal, markdown, or tsv")

	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	result, err := runPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch coverageFormat {
	case "tsv":
		fmt.Fprintln(out, result.Coverage.TSV())
		return nil
	case "markdown":
		fmt.Fprint(out, result.Coverage.Markdown())
		return nil
	case "terminal":
		return renderMarkdown(cmd, result.Coverage.Markdown())
	default:
		return fmt.Errorf("unknown coverage format %q (expected terminal, markdown, or tsv)", coverageFormat)
	}
}

// renderMarkdown pretty-prints markdown for the terminal, falling back to
// the raw text when no renderer can be built (e.g. output is a pipe)
func renderMarkdown(cmd *cobra.Command, markdown string) error {
	width := 100
	if w, _, err := term.GetSize(0); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), markdown)
		return nil
	}

	rendered, err := r.Render(markdown)
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), markdown)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}
