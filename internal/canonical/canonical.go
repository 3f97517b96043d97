/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Canonical Metadata Importer
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package canonical

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pgedge-schema-doc/internal/logging"
	"pgedge-schema-doc/internal/metadata"
)

// file mirrors the canonical YAML layout:
//
//	entities:
//	  - name: epc_domestic
//	    kind: table
//	    description: Domestic Energy Performance Certificates
//	    columns:
//	      - name: lmk_key
//	        type: varchar
//	        description: Unique record identifier
type file struct {
	Entities []entity `yaml:"entities"`
}

type entity struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Description string   `yaml:"description"`
	Columns     []column `yaml:"columns"`
}

type column struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Load parses one canonical metadata file. A malformed entity (missing
// name, duplicate name, column without a name) is rejected with a warning
// and the rest of the file is still imported; only an unreadable or
// unparseable file is an error.
func Load(path string) ([]*metadata.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canonical file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported canonical file format: %s (expected .yaml or .yml)", ext)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse canonical file: %w", err)
	}

	seen := make(map[string]bool)
	var entities []*metadata.Entity

	for i, raw := range f.Entities {
		converted, err := convert(raw)
		if err != nil {
			logging.Warn("rejecting canonical entity", "file", path, "index", i, "error", err.Error())
			continue
		}

		key := strings.ToLower(converted.Name)
		if seen[key] {
			logging.Warn("rejecting duplicate canonical entity", "file", path, "entity", converted.Name)
			continue
		}
		seen[key] = true
		entities = append(entities, converted)
	}

	logging.Info("imported canonical metadata", "file", path, "entities", len(entities))
	return entities, nil
}

// LoadAll parses several canonical files in order. Entities duplicated
// across files keep the first occurrence.
func LoadAll(paths []string) ([]*metadata.Entity, error) {
	seen := make(map[string]bool)
	var all []*metadata.Entity

	for _, path := range paths {
		entities, err := Load(path)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			key := strings.ToLower(e.Name)
			if seen[key] {
				logging.Warn("rejecting duplicate canonical entity", "file", path, "entity", e.Name)
				continue
			}
			seen[key] = true
			all = append(all, e)
		}
	}

	return all, nil
}

// convert validates one raw entity and maps it onto the metadata model.
// Canonical descriptions carry full confidence.
func convert(raw entity) (*metadata.Entity, error) {
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("entity missing name")
	}

	kind := metadata.KindTable
	switch strings.ToLower(raw.Kind) {
	case "", "table":
	case "view":
		kind = metadata.KindView
	default:
		return nil, fmt.Errorf("entity %q has unknown kind %q", raw.Name, raw.Kind)
	}

	columns := make([]metadata.Column, 0, len(raw.Columns))
	colSeen := make(map[string]bool)
	for _, c := range raw.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("entity %q has a column without a name", raw.Name)
		}
		colKey := strings.ToLower(c.Name)
		if colSeen[colKey] {
			return nil, fmt.Errorf("entity %q declares column %q twice", raw.Name, c.Name)
		}
		colSeen[colKey] = true

		columns = append(columns, metadata.Column{
			Name:        c.Name,
			DataType:    c.Type,
			Description: strings.TrimSpace(c.Description),
			Confidence:  1.0,
			Source:      metadata.SourceCanonical,
		})
	}

	return &metadata.Entity{
		Name:        raw.Name,
		Kind:        kind,
		Description: strings.TrimSpace(raw.Description),
		Columns:     columns,
	}, nil
}
