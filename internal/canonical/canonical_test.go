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
	"os"
	"path/filepath"
	"testing"

	"pgedge-schema-doc/internal/metadata"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "epc_schema.yaml", `
entities:
  - name: epc_domestic
    description: Domestic Energy Performance Certificates
    columns:
      - name: lmk_key
        type: varchar
        description: Unique record identifier
      - name: lodgement_date
        type: date
        description: Date the certificate was lodged
  - name: v_epc_latest
    kind: view
    description: Latest certificate per property
    columns:
      - name: lmk_key
        description: Unique record identifier
`)

	entities, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}

	table := entities[0]
	if table.Name != "epc_domestic" || table.Kind != metadata.KindTable {
		t.Errorf("first entity = %s (%v), want epc_domestic table", table.Name, table.Kind)
	}
	if len(table.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(table.Columns))
	}
	col := table.Columns[0]
	if col.Source != metadata.SourceCanonical || col.Confidence != 1.0 {
		t.Errorf("canonical column should carry source=canonical confidence=1.0, got %v/%v", col.Source, col.Confidence)
	}

	if entities[1].Kind != metadata.KindView {
		t.Errorf("second entity kind = %v, want view", entities[1].Kind)
	}
}

// Malformed entities are rejected individually; the rest of the file
// still imports.
func TestLoadRejectsBadEntitiesOnly(t *testing.T) {
	path := writeFile(t, "mixed.yaml", `
entities:
  - name: good_table
    columns:
      - name: id
        description: Identifier
  - description: entity without a name
    columns:
      - name: x
  - name: dupe_columns
    columns:
      - name: a
      - name: A
  - name: good_table
    description: duplicate of the first
  - name: bad_kind
    kind: sequence
  - name: second_good
    columns:
      - name: y
        description: Y column
`)

	entities, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2 survivors", len(entities))
	}
	if entities[0].Name != "good_table" || entities[1].Name != "second_good" {
		t.Errorf("survivors = %s, %s", entities[0].Name, entities[1].Name)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("Load() should fail on a missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "broken.yaml", "entities: [unclosed")
		if _, err := Load(path); err == nil {
			t.Error("Load() should fail on malformed YAML")
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := writeFile(t, "schema.xml", "<schema/>")
		if _, err := Load(path); err == nil {
			t.Error("Load() should fail on non-YAML files")
		}
	})
}

func TestLoadAllDeduplicatesAcrossFiles(t *testing.T) {
	first := writeFile(t, "a.yaml", `
entities:
  - name: shared
    description: from the first file
`)
	second := writeFile(t, "b.yaml", `
entities:
  - name: SHARED
    description: from the second file
  - name: extra
    description: only here
`)

	entities, err := LoadAll([]string{first, second})
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	if entities[0].Description != "from the first file" {
		t.Errorf("first occurrence should win, got %q", entities[0].Description)
	}
}
