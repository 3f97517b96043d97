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
	"gopkg.in/yaml.v3"

	"pgedge-schema-doc/internal/catalog"
	"pgedge-schema-doc/internal/comments"
	"pgedge-schema-doc/internal/config"
	"pgedge-schema-doc/internal/metadata"
)

var (
	exportOutput    string
	exportCanonical bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export schema documentation for backup or reuse",
	Long: `export dumps the comments already stored in the database as a
re-runnable COMMENT script, so the documentation state can be versioned
or replayed onto another environment.

With --canonical the command instead resolves the schema (like generate)
and writes the result in the canonical YAML layout; the file can be
reviewed, edited, and fed back in with --canonical-file inputs, freezing
today's resolved state as an authoritative source for future runs.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the export to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportCanonical, "canonical", false, "Export resolved descriptions as a canonical YAML file")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if exportCanonical {
		return exportCanonicalYAML(cmd, cfg)
	}
	return exportExistingComments(cmd, cfg)
}

// exportExistingComments writes the comments currently stored in the
// database as a COMMENT script
func exportExistingComments(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required (set via -U, SCHEMADOC_DB_USER, PGUSER, or config file)")
	}

	pool, err := catalog.Connect(ctx, cfg.Database.BuildConnectionString())
	if err != nil {
		return err
	}
	defer pool.Close()

	snapshot, err := catalog.Load(ctx, pool, cfg.Generator.Schema)
	if err != nil {
		return err
	}

	// Rebuild a ledger holding only what is documented today; the
	// generator then emits exactly those statements.
	ledger := metadata.NewLedger()
	for _, name := range snapshot.Catalog.Names() {
		entity, _ := snapshot.Catalog.Get(name)
		target := strings.ToLower(snapshot.Schema + "." + entity.Name)

		documented := &metadata.Entity{
			Name:        entity.Name,
			Kind:        entity.Kind,
			Description: snapshot.Existing[target],
		}
		for _, col := range entity.Columns {
			if desc, ok := snapshot.Existing[target+"."+strings.ToLower(col.Name)]; ok {
				documented.Columns = append(documented.Columns, metadata.Column{
					Name:        col.Name,
					DataType:    col.DataType,
					Description: desc,
				})
			}
		}
		if documented.Description == "" && len(documented.Columns) == 0 {
			continue
		}
		ledger.Add(documented)
	}

	statements := comments.NewGenerator(cfg.Generator.Schema, true).Generate(ledger, nil)
	script := comments.Script(statements, cfg.Generator.Format == "pretty")

	return writeExport(cmd, []byte(script),
		fmt.Sprintf("Exported %d statements", len(statements)))
}

// exportFile mirrors the canonical YAML layout the importer reads
type exportFile struct {
	Entities []exportEntity `yaml:"entities"`
}

type exportEntity struct {
	Name        string         `yaml:"name"`
	Kind        string         `yaml:"kind,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Columns     []exportColumn `yaml:"columns,omitempty"`
}

type exportColumn struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// exportCanonicalYAML resolves the schema and writes the result in the
// canonical metadata layout
func exportCanonicalYAML(cmd *cobra.Command, cfg *config.Config) error {
	result, err := runPipeline(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}

	var file exportFile
	for _, name := range result.Ledger.Names() {
		entity, _ := result.Ledger.Get(name)

		exported := exportEntity{
			Name:        entity.Name,
			Description: entity.Description,
		}
		if entity.Kind == metadata.KindView {
			exported.Kind = "view"
		}
		for _, col := range entity.Columns {
			exported.Columns = append(exported.Columns, exportColumn{
				Name:        col.Name,
				Type:        col.DataType,
				Description: col.Description,
			})
		}
		file.Entities = append(file.Entities, exported)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}

	return writeExport(cmd, data,
		fmt.Sprintf("Exported %d entities", len(file.Entities)))
}

// writeExport sends export output to the configured destination
func writeExport(cmd *cobra.Command, data []byte, summary string) error {
	if exportOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	}

	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s to %s\n", summary, exportOutput)
	return nil
}
