/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter - Documentation Pipeline
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"strings"
	"testing"

	"pgedge-schema-doc/internal/catalog"
	"pgedge-schema-doc/internal/inference"
	"pgedge-schema-doc/internal/metadata"
)

func testSnapshot() *catalog.Snapshot {
	cat := metadata.NewCatalog()
	cat.Add(&metadata.Entity{
		Name: "epc_domestic",
		Kind: metadata.KindTable,
		Columns: []metadata.Column{
			{Name: "lmk_key", DataType: "varchar"},
			{Name: "postcode", DataType: "varchar"},
			{Name: "lodgement_date", DataType: "date"},
		},
	})
	cat.Add(&metadata.Entity{
		Name:            "v_epc_latest",
		Kind:            metadata.KindView,
		SourceRelations: []string{"epc_domestic"},
		Definition:      "SELECT lmk_key, postcode, lodgement_date FROM epc_domestic",
		Columns: []metadata.Column{
			{Name: "lmk_key", DataType: "varchar"},
			{Name: "postcode", DataType: "varchar"},
			{Name: "lodgement_date", DataType: "date"},
		},
	})
	return &catalog.Snapshot{
		Schema:     "public",
		Catalog:    cat,
		Documented: make(map[string]bool),
	}
}

func defaultOptions() Options {
	return Options{
		SuccessThreshold: 0.8,
		Schema:           "public",
		IncludeViews:     true,
	}
}

func TestRunPropagatesThroughViews(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	canonical := []*metadata.Entity{{
		Name:        "epc_domestic",
		Kind:        metadata.KindTable,
		Description: "Domestic Energy Performance Certificates",
		Columns: []metadata.Column{
			{Name: "lmk_key", Description: "Unique record identifier", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "postcode", Description: "Property postcode", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "lodgement_date", Description: "Date the certificate was lodged", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}}

	result, err := Run(Inputs{Snapshot: testSnapshot(), Canonical: canonical}, defaultOptions(), engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.Ledger.Len() != 2 {
		t.Fatalf("ledger holds %d entities, want 2", result.Ledger.Len())
	}

	view, ok := result.Ledger.Get("v_epc_latest")
	if !ok {
		t.Fatal("view missing from ledger")
	}
	col, _ := view.Column("lmk_key")
	if col.Description != "Unique record identifier" {
		t.Errorf("view column = %q, want the propagated description", col.Description)
	}
	if col.Source != metadata.SourceCanonical {
		t.Errorf("view column source = %v, want canonical", col.Source)
	}
	// One hop from a table dampens confidence by 0.95
	if col.Confidence != 0.95 {
		t.Errorf("view column confidence = %v, want 0.95", col.Confidence)
	}

	if len(result.Resolution.TerminallyUnresolved) != 0 {
		t.Errorf("unexpected unresolved views: %v", result.Resolution.TerminallyUnresolved)
	}
}

func TestRunOverridesOutrankPropagation(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	canonical := []*metadata.Entity{{
		Name: "epc_domestic",
		Columns: []metadata.Column{
			{Name: "lmk_key", Description: "From canonical", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "postcode", Description: "Property postcode", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "lodgement_date", Description: "Lodgement date", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}}
	overrides := []*metadata.Entity{
		{
			Name: "epc_domestic",
			Columns: []metadata.Column{
				{Name: "lmk_key", Description: "Reviewed table description", Confidence: 1.0, Source: metadata.SourceManual},
			},
		},
		{
			Name:        "v_epc_latest",
			Description: "Latest certificate per property",
			Columns: []metadata.Column{
				{Name: "postcode", Description: "Reviewed view description", Confidence: 1.0, Source: metadata.SourceManual},
			},
		},
	}

	result, err := Run(Inputs{
		Snapshot:  testSnapshot(),
		Canonical: canonical,
		Overrides: overrides,
	}, defaultOptions(), engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Table override applied during seeding
	table, _ := result.Ledger.Get("epc_domestic")
	col, _ := table.Column("lmk_key")
	if col.Description != "Reviewed table description" || col.Source != metadata.SourceManual {
		t.Errorf("table column = %q (%v), want the manual override", col.Description, col.Source)
	}

	// View override applied after propagation
	view, _ := result.Ledger.Get("v_epc_latest")
	if view.Description != "Latest certificate per property" {
		t.Errorf("view description = %q, want the manual override", view.Description)
	}
	vcol, _ := view.Column("postcode")
	if vcol.Description != "Reviewed view description" || vcol.Source != metadata.SourceManual {
		t.Errorf("view column = %q (%v), want the manual override", vcol.Description, vcol.Source)
	}
	// Untouched view columns keep their propagated values
	other, _ := view.Column("lmk_key")
	if other.Source != metadata.SourceCanonical {
		t.Errorf("untouched column source = %v, want canonical", other.Source)
	}
}

func TestRunIgnoresBlankOverrideDescriptions(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	canonical := []*metadata.Entity{{
		Name: "epc_domestic",
		Columns: []metadata.Column{
			{Name: "lmk_key", Description: "Unique record identifier", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "postcode", Description: "Property postcode", Confidence: 1.0, Source: metadata.SourceCanonical},
			{Name: "lodgement_date", Description: "Lodgement date", Confidence: 1.0, Source: metadata.SourceCanonical},
		},
	}}
	overrides := []*metadata.Entity{{
		Name: "v_epc_latest",
		Columns: []metadata.Column{
			{Name: "postcode", Source: metadata.SourceManual},
		},
	}}

	result, err := Run(Inputs{
		Snapshot:  testSnapshot(),
		Canonical: canonical,
		Overrides: overrides,
	}, defaultOptions(), engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	view, _ := result.Ledger.Get("v_epc_latest")
	col, _ := view.Column("postcode")
	if col.Description != "Property postcode" || col.Source != metadata.SourceCanonical {
		t.Errorf("blank override should not replace the propagated description, got %q (%v)",
			col.Description, col.Source)
	}
}

func TestRunWithoutExternalSources(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	result, err := Run(Inputs{Snapshot: testSnapshot()}, defaultOptions(), engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Every column still gets a description
	for _, name := range result.Ledger.Names() {
		entity, _ := result.Ledger.Get(name)
		if entity.Description == "" {
			t.Errorf("%s has no description", name)
		}
		for _, col := range entity.Columns {
			if col.Description == "" {
				t.Errorf("%s.%s has no description", name, col.Name)
			}
		}
	}
}

func TestRunSkipsDocumentedTargets(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	snapshot := testSnapshot()
	snapshot.Documented["public.epc_domestic.lmk_key"] = true

	result, err := Run(Inputs{Snapshot: snapshot}, defaultOptions(), engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for _, stmt := range result.Statements {
		if stmt.Target == "public.epc_domestic.lmk_key" {
			t.Error("documented target should be skipped without force")
		}
	}

	forced := defaultOptions()
	forced.Force = true
	result, err = Run(Inputs{Snapshot: snapshot}, forced, engine)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, stmt := range result.Statements {
		if stmt.Target == "public.epc_domestic.lmk_key" {
			found = true
		}
	}
	if !found {
		t.Error("force should re-emit documented targets")
	}
}

func TestRunExcludesViewsWhenAsked(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	opts := defaultOptions()
	opts.IncludeViews = false

	result, err := Run(Inputs{Snapshot: testSnapshot()}, opts, engine)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	for _, stmt := range result.Statements {
		if strings.Contains(stmt.Target, "v_epc_latest") {
			t.Errorf("view statement emitted with views excluded: %s", stmt.Target)
		}
	}
	// The ledger still resolves views; only generation filters them
	if !result.Ledger.Has("v_epc_latest") {
		t.Error("ledger should still hold the resolved view")
	}
}

func TestRunRejectsMissingSnapshot(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())
	if _, err := Run(Inputs{}, defaultOptions(), engine); err == nil {
		t.Error("Run() should reject a missing snapshot")
	}
}

func TestRunCoverageMatchesLedger(t *testing.T) {
	engine := inference.NewEngine(inference.DefaultRules())

	result, err := Run(Inputs{Snapshot: testSnapshot()}, defaultOptions(), engine)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Coverage.Entities) != result.Ledger.Len() {
		t.Errorf("coverage rows = %d, ledger entities = %d",
			len(result.Coverage.Entities), result.Ledger.Len())
	}
}
