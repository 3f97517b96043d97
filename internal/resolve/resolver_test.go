/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - View Propagation Resolver
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package resolve

import (
	"fmt"
	"testing"

	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/metadata"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New(DefaultSuccessThreshold, inference.NewEngine(inference.DefaultRules()))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// canonicalTable builds a fully canonically described table with n columns
// named col_0..col_n-1
func canonicalTable(name string, n int) *metadata.Entity {
	cols := make([]metadata.Column, 0, n)
	for i := 0; i < n; i++ {
		cols = append(cols, metadata.Column{
			Name:        fmt.Sprintf("col_%d", i),
			DataType:    "varchar",
			Description: fmt.Sprintf("Canonical description %d", i),
			Confidence:  1.0,
			Source:      metadata.SourceCanonical,
		})
	}
	return &metadata.Entity{Name: name, Kind: metadata.KindTable, Description: "Base table", Columns: cols}
}

// viewOf builds an unresolved view selecting the given column names from
// the given sources
func viewOf(name string, sources []string, colNames ...string) *metadata.Entity {
	cols := make([]metadata.Column, 0, len(colNames))
	for _, c := range colNames {
		cols = append(cols, metadata.Column{Name: c, DataType: "varchar"})
	}
	return &metadata.Entity{Name: name, Kind: metadata.KindView, Columns: cols, SourceRelations: sources}
}

func colNames(n int) []string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, fmt.Sprintf("col_%d", i))
	}
	return names
}

func TestNewRejectsInvalidThreshold(t *testing.T) {
	engine := inference.NewEngine(inference.Rules{})
	for _, threshold := range []float64{-0.1, 1.5} {
		if _, err := New(threshold, engine); err == nil {
			t.Errorf("New(%v) should reject out-of-range threshold", threshold)
		}
	}
	if _, err := New(0.8, nil); err == nil {
		t.Error("New should reject a nil engine")
	}
}

// T (table) <- V1 <- V2 <- V3: canonical descriptions must propagate
// transitively through the whole chain.
func TestPropagationThroughViewChain(t *testing.T) {
	catalog := metadata.NewCatalog()
	table := canonicalTable("t_base", 10)
	catalog.Add(table)
	catalog.Add(viewOf("v1", []string{"t_base"}, colNames(10)...))
	catalog.Add(viewOf("v2", []string{"v1"}, colNames(10)...))
	catalog.Add(viewOf("v3", []string{"v2"}, colNames(10)...))

	ledger := metadata.NewLedger()
	ledger.Add(table)

	stats := newTestResolver(t).Resolve(catalog, ledger)

	if stats.Resolved != 3 {
		t.Fatalf("Resolved = %d, want 3", stats.Resolved)
	}
	if len(stats.TerminallyUnresolved) != 0 {
		t.Fatalf("TerminallyUnresolved = %v, want none", stats.TerminallyUnresolved)
	}

	v3, ok := ledger.Get("v3")
	if !ok {
		t.Fatal("v3 not in ledger")
	}
	for _, col := range v3.Columns {
		if col.Source != metadata.SourceCanonical {
			t.Errorf("v3.%s source = %v, want canonical", col.Name, col.Source)
		}
		if col.Description == "" {
			t.Errorf("v3.%s has empty description", col.Name)
		}
	}

	// Confidence damps per hop: table hop then two view hops
	want := 1.0 * tableHopDamping * viewHopDamping * viewHopDamping
	got := v3.Columns[0].Confidence
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("v3 confidence = %v, want %v", got, want)
	}
}

// A view reading a table whose 10 columns are all canonical: every matching
// column of a second-level view carries source=canonical.
func TestPropagationInheritsConfidenceFromBase(t *testing.T) {
	catalog := metadata.NewCatalog()
	table := canonicalTable("b", 10)
	catalog.Add(table)
	catalog.Add(viewOf("a", []string{"b"}, colNames(10)...))
	catalog.Add(viewOf("c", []string{"a"}, colNames(10)...))

	ledger := metadata.NewLedger()
	ledger.Add(table)

	newTestResolver(t).Resolve(catalog, ledger)

	c, ok := ledger.Get("c")
	if !ok {
		t.Fatal("view c not resolved")
	}
	if len(c.Columns) != 10 {
		t.Fatalf("view c has %d columns, want 10", len(c.Columns))
	}
	for _, col := range c.Columns {
		if col.Source != metadata.SourceCanonical {
			t.Errorf("c.%s source = %v, want canonical", col.Name, col.Source)
		}
	}
}

// A view where only half the columns map to a resolved source stays below
// the threshold and falls back to pattern inference.
func TestThresholdKeepsViewPending(t *testing.T) {
	catalog := metadata.NewCatalog()
	table := canonicalTable("t_base", 2)
	catalog.Add(table)
	// two mapped columns, two unknown to any source
	catalog.Add(viewOf("v_half", []string{"t_base"}, "col_0", "col_1", "mystery_a", "mystery_b"))

	ledger := metadata.NewLedger()
	ledger.Add(table)

	stats := newTestResolver(t).Resolve(catalog, ledger)

	if stats.Resolved != 0 {
		t.Fatalf("Resolved = %d, want 0", stats.Resolved)
	}
	if len(stats.TerminallyUnresolved) != 1 || stats.TerminallyUnresolved[0] != "v_half" {
		t.Fatalf("TerminallyUnresolved = %v, want [v_half]", stats.TerminallyUnresolved)
	}

	v, ok := ledger.Get("v_half")
	if !ok {
		t.Fatal("terminally unresolved view should still enter the ledger")
	}
	for _, col := range v.Columns {
		if col.Source != metadata.SourcePattern {
			t.Errorf("%s source = %v, want pattern fallback", col.Name, col.Source)
		}
		if col.Description == "" {
			t.Errorf("%s has empty description", col.Name)
		}
	}
}

// A mis-detected cycle (v_a reads v_b reads v_a) must terminate at fixpoint
// with both views terminally unresolved, not loop forever.
func TestCycleDegradesToUnresolved(t *testing.T) {
	catalog := metadata.NewCatalog()
	catalog.Add(viewOf("v_a", []string{"v_b"}, "x", "y"))
	catalog.Add(viewOf("v_b", []string{"v_a"}, "x", "y"))

	ledger := metadata.NewLedger()
	stats := newTestResolver(t).Resolve(catalog, ledger)

	if stats.Resolved != 0 {
		t.Errorf("Resolved = %d, want 0", stats.Resolved)
	}
	if len(stats.TerminallyUnresolved) != 2 {
		t.Errorf("TerminallyUnresolved = %v, want both views", stats.TerminallyUnresolved)
	}
	if !ledger.Has("v_a") || !ledger.Has("v_b") {
		t.Error("both cycle members should fall back into the ledger")
	}
}

// A view reading a relation outside the catalog behaves exactly like a
// terminally unresolved view.
func TestUnknownSourceRelation(t *testing.T) {
	catalog := metadata.NewCatalog()
	catalog.Add(viewOf("v_sys", []string{"pg_stat_activity"}, "pid", "query"))

	ledger := metadata.NewLedger()
	stats := newTestResolver(t).Resolve(catalog, ledger)

	if len(stats.TerminallyUnresolved) != 1 {
		t.Fatalf("TerminallyUnresolved = %v, want [v_sys]", stats.TerminallyUnresolved)
	}
	v, _ := ledger.Get("v_sys")
	for _, col := range v.Columns {
		if col.Source != metadata.SourcePattern {
			t.Errorf("%s source = %v, want pattern", col.Name, col.Source)
		}
	}
}

// For multi-source views the first listed source wins per column.
func TestMultiSourceFirstWins(t *testing.T) {
	left := &metadata.Entity{
		Name: "t_left", Kind: metadata.KindTable,
		Columns: []metadata.Column{
			{Name: "shared", Description: "From the left table", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "left_only", Description: "Left only", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}
	right := &metadata.Entity{
		Name: "t_right", Kind: metadata.KindTable,
		Columns: []metadata.Column{
			{Name: "shared", Description: "From the right table", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "right_only", Description: "Right only", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}

	catalog := metadata.NewCatalog()
	catalog.Add(left)
	catalog.Add(right)
	catalog.Add(viewOf("v_join", []string{"t_left", "t_right"}, "shared", "left_only", "right_only"))

	ledger := metadata.NewLedger()
	ledger.Add(left)
	ledger.Add(right)

	newTestResolver(t).Resolve(catalog, ledger)

	v, ok := ledger.Get("v_join")
	if !ok {
		t.Fatal("v_join not resolved")
	}

	shared, _ := v.Column("shared")
	if shared.Description != "From the left table" {
		t.Errorf("shared description = %q, want the first listed source to win", shared.Description)
	}
	rightOnly, _ := v.Column("right_only")
	if rightOnly.Description != "Right only" {
		t.Errorf("right_only description = %q, want propagation from t_right", rightOnly.Description)
	}
}

// Column name matching between view and source is case-insensitive.
func TestPropagationCaseInsensitive(t *testing.T) {
	table := &metadata.Entity{
		Name: "epc", Kind: metadata.KindTable,
		Columns: []metadata.Column{
			{Name: "LMK_KEY", Description: "Lodgement key", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}
	catalog := metadata.NewCatalog()
	catalog.Add(table)
	catalog.Add(viewOf("v_epc", []string{"EPC"}, "lmk_key"))

	ledger := metadata.NewLedger()
	ledger.Add(table)

	newTestResolver(t).Resolve(catalog, ledger)

	v, ok := ledger.Get("v_epc")
	if !ok {
		t.Fatal("v_epc not resolved")
	}
	col, _ := v.Column("lmk_key")
	if col.Description != "Lodgement key" {
		t.Errorf("description = %q, want propagated value", col.Description)
	}
}

// Computed columns are tagged from the defining query but do not count
// toward the success threshold.
func TestComputedColumnDetection(t *testing.T) {
	table := canonicalTable("t_base", 9)
	catalog := metadata.NewCatalog()
	catalog.Add(table)

	view := viewOf("v_banded", []string{"t_base"}, append(colNames(9), "band")...)
	view.Definition = "SELECT col_0, CASE WHEN col_1 > 10 THEN 'high' ELSE 'low' END AS band FROM t_base"
	catalog.Add(view)

	ledger := metadata.NewLedger()
	ledger.Add(table)

	stats := newTestResolver(t).Resolve(catalog, ledger)

	// 9 of 10 columns mapped: meets the 0.8 threshold
	if stats.Resolved != 1 {
		t.Fatalf("Resolved = %d, want 1", stats.Resolved)
	}

	v, _ := ledger.Get("v_banded")
	band, _ := v.Column("band")
	if band.Source != metadata.SourceComputed {
		t.Errorf("band source = %v, want computed", band.Source)
	}
	if band.Confidence != confidenceComputed {
		t.Errorf("band confidence = %v, want %v", band.Confidence, confidenceComputed)
	}
}

// The pass count never exceeds the initial pending size, and progress per
// pass resolves deeper chain levels.
func TestPassBound(t *testing.T) {
	catalog := metadata.NewCatalog()
	table := canonicalTable("t0", 5)
	catalog.Add(table)

	// Chain of 6 views, each reading the previous
	prev := "t0"
	for i := 1; i <= 6; i++ {
		name := fmt.Sprintf("v%d", i)
		catalog.Add(viewOf(name, []string{prev}, colNames(5)...))
		prev = name
	}

	ledger := metadata.NewLedger()
	ledger.Add(table)

	stats := newTestResolver(t).Resolve(catalog, ledger)

	if stats.Resolved != 6 {
		t.Errorf("Resolved = %d, want 6", stats.Resolved)
	}
	if stats.Passes > 6 {
		t.Errorf("Passes = %d, want at most the initial pending count", stats.Passes)
	}
}
