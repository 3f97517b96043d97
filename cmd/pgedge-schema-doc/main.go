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
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pgedge-schema-doc/internal/canonical"
	"pgedge-schema-doc/internal/catalog"
	"pgedge-schema-doc/internal/config"
	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/metadata"
	"pgedge-schema-doc/internal/overrides"
	"pgedge-schema-doc/internal/pipeline"
)

var (
	flagConfigFile     string
	flagDBHost         string
	flagDBPort         int
	flagDBName         string
	flagDBUser         string
	flagDBPassword     string
	flagPromptPassword bool
	flagSSLMode        string
	flagRulesPath      string
	flagCanonical      []string
	flagDataDir        string
	flagThreshold      float64
	flagSchema         string
)

var rootCmd = &cobra.Command{
	Use:   "pgedge-schema-doc",
	Short: "pgEdge Schema Documenter - Generate and apply schema documentation comments",
	Long: `pgedge-schema-doc documents a PostgreSQL schema by combining canonical
metadata files, manual overrides, and naming-convention inference into
COMMENT statements for every table, view, and column.

View descriptions propagate from the relations each view reads, so
documenting the base tables is usually enough to document the whole
dependency graph.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfigFile, "config", "c", "", "Path to configuration file")
	pf.StringVarP(&flagDBHost, "db-host", "H", "localhost", "Database host")
	pf.IntVarP(&flagDBPort, "db-port", "p", 5432, "Database port")
	pf.StringVarP(&flagDBName, "db-name", "d", "postgres", "Database name")
	pf.StringVarP(&flagDBUser, "db-user", "U", "", "Database user")
	pf.StringVar(&flagDBPassword, "db-password", "", "Database password (prefer SCHEMADOC_DB_PASSWORD or .pgpass)")
	pf.BoolVarP(&flagPromptPassword, "prompt-password", "W", false, "Prompt for the database password")
	pf.StringVar(&flagSSLMode, "sslmode", "prefer", "SSL mode (disable, require, verify-ca, verify-full)")
	pf.StringVar(&flagRulesPath, "rules", "", "Path to a YAML inference rule file")
	pf.StringSliceVar(&flagCanonical, "canonical-file", nil, "Canonical metadata YAML files (repeatable)")
	pf.StringVar(&flagDataDir, "data-dir", "", "Directory holding the override database")
	pf.Float64Var(&flagThreshold, "threshold", 0.8, "Fraction of view columns that must map before the view resolves")
	pf.StringVarP(&flagSchema, "schema", "n", "public", "Schema to document")
}

func main() {
	// Let cobra handle errors and exit codes
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig assembles the effective configuration from defaults, the
// config file, environment, and whichever flags were explicitly set on
// this invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := config.CLIFlags{
		ConfigFile:    flagConfigFile,
		ConfigFileSet: cmd.Flags().Changed("config"),
		DBHost:        flagDBHost,
		DBHostSet:     cmd.Flags().Changed("db-host"),
		DBPort:        flagDBPort,
		DBPortSet:     cmd.Flags().Changed("db-port"),
		DBName:        flagDBName,
		DBNameSet:     cmd.Flags().Changed("db-name"),
		DBUser:        flagDBUser,
		DBUserSet:     cmd.Flags().Changed("db-user"),
		DBPassword:    flagDBPassword,
		DBPassSet:     cmd.Flags().Changed("db-password"),
		DBSSLMode:     flagSSLMode,
		DBSSLSet:      cmd.Flags().Changed("sslmode"),
		RulesPath:     flagRulesPath,
		RulesPathSet:  cmd.Flags().Changed("rules"),
		Canonical:     flagCanonical,
		CanonicalSet:  cmd.Flags().Changed("canonical-file"),
		OverridesDir:  flagDataDir,
		OverridesSet:  cmd.Flags().Changed("data-dir"),
		Threshold:     flagThreshold,
		ThresholdSet:  cmd.Flags().Changed("threshold"),
		Schema:        flagSchema,
		SchemaSet:     cmd.Flags().Changed("schema"),
	}

	configPath := flagConfigFile
	if configPath == "" {
		exePath, err := os.Executable()
		if err == nil {
			configPath = config.GetDefaultConfigPath(exePath)
		}
	}

	cfg, err := config.LoadConfig(configPath, flags)
	if err != nil {
		return nil, err
	}

	if flagPromptPassword {
		fmt.Fprint(os.Stderr, "Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Database.Password = string(passwordBytes)
	}

	return cfg, nil
}

// buildEngine creates the inference engine from the configured rule file,
// falling back to the built-in rules
func buildEngine(cfg *config.Config) (*inference.Engine, error) {
	if cfg.Rules.Path == "" {
		return inference.NewEngine(inference.DefaultRules()), nil
	}

	rules, err := inference.LoadRules(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load inference rules: %w", err)
	}
	return inference.NewEngine(rules), nil
}

// loadInputs connects to the database and gathers everything a pipeline
// run consumes. The caller owns the returned pool.
func loadInputs(ctx context.Context, cfg *config.Config) (pipeline.Inputs, *pgxpool.Pool, error) {
	var in pipeline.Inputs

	if cfg.Database.User == "" {
		return in, nil, fmt.Errorf("database user is required (set via -U, SCHEMADOC_DB_USER, PGUSER, or config file)")
	}

	pool, err := catalog.Connect(ctx, cfg.Database.BuildConnectionString())
	if err != nil {
		return in, nil, err
	}

	snapshot, err := catalog.Load(ctx, pool, cfg.Generator.Schema)
	if err != nil {
		pool.Close()
		return in, nil, err
	}
	in.Snapshot = snapshot

	if len(cfg.Canonical.Paths) > 0 {
		entities, err := canonical.LoadAll(cfg.Canonical.Paths)
		if err != nil {
			pool.Close()
			return in, nil, err
		}
		in.Canonical = entities
	}

	store, err := overrides.NewStore(cfg.Overrides.DataDir)
	if err != nil {
		pool.Close()
		return in, nil, err
	}
	manual, err := store.Load()
	store.Close()
	if err != nil {
		pool.Close()
		return in, nil, err
	}
	in.Overrides = manual

	return in, pool, nil
}

// resolveInputs runs the pipeline over loaded inputs with the configured
// options
func resolveInputs(in pipeline.Inputs, cfg *config.Config, force bool, engine *inference.Engine) (*pipeline.Result, error) {
	return pipeline.Run(in, pipeline.Options{
		SuccessThreshold: cfg.Resolver.SuccessThreshold,
		Schema:           cfg.Generator.Schema,
		IncludeViews:     cfg.Generator.IncludeViews,
		Force:            force,
	}, engine)
}

// runPipeline is the shared front half of generate, coverage, and export:
// load inputs, resolve, and hand back the result.
func runPipeline(ctx context.Context, cfg *config.Config, force bool) (*pipeline.Result, error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}

	in, pool, err := loadInputs(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	return resolveInputs(in, cfg, force, engine)
}

// openStore opens the manual override store from the effective config
func openStore(cmd *cobra.Command) (*overrides.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return overrides.NewStore(cfg.Overrides.DataDir)
}

// ledgerEntity fetches one entity from a result, failing with the list of
// known names when it is absent
func ledgerEntity(result *pipeline.Result, name string) (*metadata.Entity, error) {
	entity, ok := result.Ledger.Get(name)
	if !ok {
		return nil, fmt.Errorf("entity %q not found in schema", name)
	}
	return entity, nil
}
