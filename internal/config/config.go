/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Configuration
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the complete documenter configuration
type Config struct {
	// Database connection configuration
	Database DatabaseConfig `yaml:"database"`

	// Inference rule configuration
	Rules RulesConfig `yaml:"rules"`

	// Canonical metadata files
	Canonical CanonicalConfig `yaml:"canonical"`

	// Manual override store configuration
	Overrides OverridesConfig `yaml:"overrides"`

	// View resolution configuration
	Resolver ResolverConfig `yaml:"resolver"`

	// Statement generation configuration
	Generator GeneratorConfig `yaml:"generator"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`     // Database host (default: localhost)
	Port     int    `yaml:"port"`     // Database port (default: 5432)
	Database string `yaml:"database"` // Database name (default: postgres)
	User     string `yaml:"user"`     // Database user (required)
	Password string `yaml:"password"` // Database password (optional, will use SCHEMADOC_DB_PASSWORD env var or .pgpass if not set)
	SSLMode  string `yaml:"sslmode"`  // SSL mode: disable, require, verify-ca, verify-full (default: prefer)
}

// RulesConfig holds inference rule settings
type RulesConfig struct {
	Path string `yaml:"path"` // Path to a YAML rule file (empty = built-in rules)
}

// CanonicalConfig holds canonical metadata import settings
type CanonicalConfig struct {
	Paths []string `yaml:"paths"` // Canonical YAML files, in priority order
}

// OverridesConfig holds manual override store settings
type OverridesConfig struct {
	DataDir string `yaml:"data_dir"` // Directory holding the override database (default: ~/.pgedge-schema-doc)
}

// ResolverConfig holds view resolution settings
type ResolverConfig struct {
	// SuccessThreshold is the fraction of a view's columns that must map
	// to resolved sources before the view itself resolves (default: 0.8)
	SuccessThreshold float64 `yaml:"success_threshold"`
}

// GeneratorConfig holds statement generation settings
type GeneratorConfig struct {
	Schema       string `yaml:"schema"`        // Schema to document (default: public)
	Format       string `yaml:"format"`        // Script format: pretty or compact (default: pretty)
	IncludeViews bool   `yaml:"include_views"` // Whether views are documented (default: true)
}

// CLIFlags represents command line flag values and whether they were
// explicitly set
type CLIFlags struct {
	ConfigFileSet bool
	ConfigFile    string

	// Database flags
	DBHost     string
	DBHostSet  bool
	DBPort     int
	DBPortSet  bool
	DBName     string
	DBNameSet  bool
	DBUser     string
	DBUserSet  bool
	DBPassword string
	DBPassSet  bool
	DBSSLMode  string
	DBSSLSet   bool

	// Rule and canonical file flags
	RulesPath    string
	RulesPathSet bool
	Canonical    []string
	CanonicalSet bool
	OverridesDir string
	OverridesSet bool

	// Resolver flags
	Threshold    float64
	ThresholdSet bool

	// Generator flags
	Schema     string
	SchemaSet  bool
	Format     string
	FormatSet  bool
	NoViews    bool
	NoViewsSet bool
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load config file if it exists
	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// If file was explicitly specified, error out
			if cliFlags.ConfigFileSet {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
			// Otherwise just use defaults (file may not exist and that's ok)
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	// Override with environment variables
	applyEnvironmentVariables(cfg)

	// Override with command line flags (highest priority)
	applyCLIFlags(cfg, cliFlags)

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "",       // Required - must be provided
			Password: "",       // Optional - will use env var or .pgpass
			SSLMode:  "prefer", // Default SSL mode
		},
		Rules: RulesConfig{
			Path: "", // Built-in rules
		},
		Overrides: OverridesConfig{
			DataDir: defaultDataDir(),
		},
		Resolver: ResolverConfig{
			SuccessThreshold: 0.8,
		},
		Generator: GeneratorConfig{
			Schema:       "public",
			Format:       "pretty",
			IncludeViews: true,
		},
	}
}

// defaultDataDir returns the default override store location
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pgedge-schema-doc"
	}
	return filepath.Join(home, ".pgedge-schema-doc")
}

// fileConfig is a parsed config file plus presence information for
// include_views, whose false value is indistinguishable from an omitted
// key after a plain decode
type fileConfig struct {
	Config
	IncludeViews *bool
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc.Config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var presence struct {
		Generator struct {
			IncludeViews *bool `yaml:"include_views"`
		} `yaml:"generator"`
	}
	if err := yaml.Unmarshal(data, &presence); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	fc.IncludeViews = presence.Generator.IncludeViews

	return &fc, nil
}

// mergeConfig merges a parsed file into dest, only overriding values the
// file actually sets
func mergeConfig(dest *Config, src *fileConfig) {
	// Database
	if src.Database.Host != "" {
		dest.Database.Host = src.Database.Host
	}
	if src.Database.Port != 0 {
		dest.Database.Port = src.Database.Port
	}
	if src.Database.Database != "" {
		dest.Database.Database = src.Database.Database
	}
	if src.Database.User != "" {
		dest.Database.User = src.Database.User
	}
	if src.Database.Password != "" {
		dest.Database.Password = src.Database.Password
	}
	if src.Database.SSLMode != "" {
		dest.Database.SSLMode = src.Database.SSLMode
	}

	// Rules
	if src.Rules.Path != "" {
		dest.Rules.Path = src.Rules.Path
	}

	// Canonical
	if len(src.Canonical.Paths) > 0 {
		dest.Canonical.Paths = src.Canonical.Paths
	}

	// Overrides
	if src.Overrides.DataDir != "" {
		dest.Overrides.DataDir = src.Overrides.DataDir
	}

	// Resolver
	if src.Resolver.SuccessThreshold != 0 {
		dest.Resolver.SuccessThreshold = src.Resolver.SuccessThreshold
	}

	// Generator
	if src.Generator.Schema != "" {
		dest.Generator.Schema = src.Generator.Schema
	}
	if src.Generator.Format != "" {
		dest.Generator.Format = src.Generator.Format
	}
	if src.IncludeViews != nil {
		dest.Generator.IncludeViews = *src.IncludeViews
	}
}

// setStringFromEnv sets a string config value from an environment variable if it exists
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// setIntFromEnv sets an integer config value from an environment variable if it exists
func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			*dest = intVal
		}
	}
}

// setFloatFromEnv sets a float config value from an environment variable if it exists
func setFloatFromEnv(dest *float64, key string) {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			*dest = floatVal
		}
	}
}

// applyEnvironmentVariables overrides config with environment variables if
// they exist. All documenter variables use the SCHEMADOC_ prefix; the
// standard PostgreSQL variables are honored as fallbacks when the
// corresponding setting is still at its default.
func applyEnvironmentVariables(cfg *Config) {
	// Database
	setStringFromEnv(&cfg.Database.Host, "SCHEMADOC_DB_HOST")
	setIntFromEnv(&cfg.Database.Port, "SCHEMADOC_DB_PORT")
	setStringFromEnv(&cfg.Database.Database, "SCHEMADOC_DB_NAME")
	setStringFromEnv(&cfg.Database.User, "SCHEMADOC_DB_USER")
	setStringFromEnv(&cfg.Database.Password, "SCHEMADOC_DB_PASSWORD")
	setStringFromEnv(&cfg.Database.SSLMode, "SCHEMADOC_DB_SSLMODE")

	// Also support standard PostgreSQL environment variables for convenience
	if cfg.Database.Host == "localhost" {
		setStringFromEnv(&cfg.Database.Host, "PGHOST")
	}
	if cfg.Database.Port == 5432 {
		setIntFromEnv(&cfg.Database.Port, "PGPORT")
	}
	if cfg.Database.Database == "postgres" {
		setStringFromEnv(&cfg.Database.Database, "PGDATABASE")
	}
	if cfg.Database.User == "" {
		setStringFromEnv(&cfg.Database.User, "PGUSER")
	}
	if cfg.Database.Password == "" {
		setStringFromEnv(&cfg.Database.Password, "PGPASSWORD")
	}
	if cfg.Database.SSLMode == "prefer" {
		setStringFromEnv(&cfg.Database.SSLMode, "PGSSLMODE")
	}

	// Rules and overrides
	setStringFromEnv(&cfg.Rules.Path, "SCHEMADOC_RULES_PATH")
	setStringFromEnv(&cfg.Overrides.DataDir, "SCHEMADOC_DATA_DIR")

	// Resolver
	setFloatFromEnv(&cfg.Resolver.SuccessThreshold, "SCHEMADOC_SUCCESS_THRESHOLD")

	// Generator
	setStringFromEnv(&cfg.Generator.Schema, "SCHEMADOC_SCHEMA")
	setStringFromEnv(&cfg.Generator.Format, "SCHEMADOC_FORMAT")
}

// applyCLIFlags overrides config with CLI flags if they were explicitly set
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	// Database
	if flags.DBHostSet {
		cfg.Database.Host = flags.DBHost
	}
	if flags.DBPortSet {
		cfg.Database.Port = flags.DBPort
	}
	if flags.DBNameSet {
		cfg.Database.Database = flags.DBName
	}
	if flags.DBUserSet {
		cfg.Database.User = flags.DBUser
	}
	if flags.DBPassSet {
		cfg.Database.Password = flags.DBPassword
	}
	if flags.DBSSLSet {
		cfg.Database.SSLMode = flags.DBSSLMode
	}

	// Rules and canonical files
	if flags.RulesPathSet {
		cfg.Rules.Path = flags.RulesPath
	}
	if flags.CanonicalSet {
		cfg.Canonical.Paths = flags.Canonical
	}
	if flags.OverridesSet {
		cfg.Overrides.DataDir = flags.OverridesDir
	}

	// Resolver
	if flags.ThresholdSet {
		cfg.Resolver.SuccessThreshold = flags.Threshold
	}

	// Generator
	if flags.SchemaSet {
		cfg.Generator.Schema = flags.Schema
	}
	if flags.FormatSet {
		cfg.Generator.Format = flags.Format
	}
	if flags.NoViewsSet {
		cfg.Generator.IncludeViews = !flags.NoViews
	}
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *Config) error {
	if cfg.Resolver.SuccessThreshold < 0 || cfg.Resolver.SuccessThreshold > 1 {
		return fmt.Errorf("resolver success_threshold must be between 0 and 1, got %v", cfg.Resolver.SuccessThreshold)
	}

	switch cfg.Generator.Format {
	case "pretty", "compact":
	default:
		return fmt.Errorf("generator format must be pretty or compact, got %q", cfg.Generator.Format)
	}

	if cfg.Generator.Schema == "" {
		return fmt.Errorf("generator schema must not be empty")
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path.
// Searches /etc/pgedge/schema-doc/ first, then the binary directory.
func GetDefaultConfigPath(binaryPath string) string {
	systemPath := "/etc/pgedge/schema-doc/pgedge-schema-doc.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}

	dir := filepath.Dir(binaryPath)
	return filepath.Join(dir, "pgedge-schema-doc.yaml")
}

// BuildConnectionString creates a PostgreSQL connection string from DatabaseConfig.
// If password is not set, pgx will automatically look it up from .pgpass file.
func (cfg *DatabaseConfig) BuildConnectionString() string {
	connStr := fmt.Sprintf("postgres://%s", cfg.User)

	// Add password only if explicitly set
	// If not set, pgx will use .pgpass file automatically
	if cfg.Password != "" {
		connStr += ":" + cfg.Password
	}

	connStr += fmt.Sprintf("@%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)

	if cfg.SSLMode != "" {
		connStr += "?sslmode=" + cfg.SSLMode
	}

	return connStr
}
