/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Pattern Rule Configuration
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package inference

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SuffixRule maps a column name suffix to a description fragment
type SuffixRule struct {
	Suffix   string `yaml:"suffix"`
	Fragment string `yaml:"fragment"`
}

// PrefixRule maps a column name prefix to a description fragment
type PrefixRule struct {
	Prefix   string `yaml:"prefix"`
	Fragment string `yaml:"fragment"`
}

// Rules holds the configurable pattern tables. Suffix and prefix rules are
// ordered: the first matching rule wins, so more specific patterns belong
// earlier in the file.
type Rules struct {
	ExactMatches   map[string]string `yaml:"exact_matches"`
	SuffixPatterns []SuffixRule      `yaml:"suffix_patterns"`
	PrefixPatterns []PrefixRule      `yaml:"prefix_patterns"`
}

// DefaultRules returns the built-in rule tables used when no rule file is
// configured. The set covers the naming conventions common in UK statistical
// and property datasets.
func DefaultRules() Rules {
	return Rules{
		ExactMatches: map[string]string{
			"lmk_key":         "Unique record identifier for the lodgement",
			"uprn":            "Unique Property Reference Number",
			"postcode":        "Postal code of the property",
			"local_authority": "Local authority code",
		},
		SuffixPatterns: []SuffixRule{
			{Suffix: "_cd", Fragment: "code"},
			{Suffix: "_code", Fragment: "code"},
			{Suffix: "_nm", Fragment: "name"},
			{Suffix: "_name", Fragment: "name"},
			{Suffix: "_dt", Fragment: "date"},
			{Suffix: "_date", Fragment: "date"},
			{Suffix: "_flag", Fragment: "flag (Y/N)"},
			{Suffix: "_id", Fragment: "identifier"},
			{Suffix: "_count", Fragment: "count"},
			{Suffix: "_pct", Fragment: "percentage"},
		},
		PrefixPatterns: []PrefixRule{
			{Prefix: "current_", Fragment: "Current value of"},
			{Prefix: "previous_", Fragment: "Previous value of"},
			{Prefix: "total_", Fragment: "Total"},
			{Prefix: "avg_", Fragment: "Average"},
			{Prefix: "max_", Fragment: "Maximum"},
			{Prefix: "min_", Fragment: "Minimum"},
			{Prefix: "is_", Fragment: "Indicator for"},
			{Prefix: "has_", Fragment: "Indicator for"},
		},
	}
}

// LoadRules loads pattern rule tables from a YAML file
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rule file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return Rules{}, fmt.Errorf("unsupported rule file format: %s (expected .yaml or .yml)", ext)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rule file: %w", err)
	}

	if err := validateRules(&rules); err != nil {
		return Rules{}, fmt.Errorf("invalid rule file %s: %w", path, err)
	}

	// Exact-match lookup is case-insensitive
	if len(rules.ExactMatches) > 0 {
		lowered := make(map[string]string, len(rules.ExactMatches))
		for name, desc := range rules.ExactMatches {
			lowered[strings.ToLower(name)] = desc
		}
		rules.ExactMatches = lowered
	}

	return rules, nil
}

// validateRules rejects rule tables with empty keys or fragments
func validateRules(rules *Rules) error {
	for name, desc := range rules.ExactMatches {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exact match with empty column name")
		}
		if strings.TrimSpace(desc) == "" {
			return fmt.Errorf("exact match %q has an empty description", name)
		}
	}
	for i, r := range rules.SuffixPatterns {
		if strings.TrimSpace(r.Suffix) == "" {
			return fmt.Errorf("suffix pattern %d has an empty suffix", i)
		}
		if strings.TrimSpace(r.Fragment) == "" {
			return fmt.Errorf("suffix pattern %q has an empty fragment", r.Suffix)
		}
	}
	for i, r := range rules.PrefixPatterns {
		if strings.TrimSpace(r.Prefix) == "" {
			return fmt.Errorf("prefix pattern %d has an empty prefix", i)
		}
		if strings.TrimSpace(r.Fragment) == "" {
			return fmt.Errorf("prefix pattern %q has an empty fragment", r.Prefix)
		}
	}
	return nil
}
