/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package metadata

import (
	"fmt"
	"strings"
)

// Source identifies where a description came from. The set is closed:
// merge logic switches exhaustively over these values.
type Source int

const (
	// SourceCanonical is an authoritative external definition
	SourceCanonical Source = iota

	// SourceManual is a human-reviewed override
	SourceManual

	// SourcePattern is a description inferred from naming conventions
	SourcePattern

	// SourceFallback is a humanized column name used when nothing better exists
	SourceFallback

	// SourceComputed marks a view column derived by an expression rather
	// than selected from a source relation
	SourceComputed
)

// String returns the string representation of a metadata source
func (s Source) String() string {
	switch s {
	case SourceCanonical:
		return "canonical"
	case SourceManual:
		return "manual"
	case SourcePattern:
		return "pattern"
	case SourceFallback:
		return "fallback"
	case SourceComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// ParseSource converts a stored string back into a Source
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "canonical":
		return SourceCanonical, nil
	case "manual":
		return SourceManual, nil
	case "pattern":
		return SourcePattern, nil
	case "fallback":
		return SourceFallback, nil
	case "computed":
		return SourceComputed, nil
	default:
		return SourcePattern, fmt.Errorf("unknown metadata source: %q", s)
	}
}

// Kind distinguishes tables from views
type Kind int

const (
	KindTable Kind = iota
	KindView
)

// String returns the string representation of an entity kind
func (k Kind) String() string {
	if k == KindView {
		return "view"
	}
	return "table"
}

// Column describes a single column. Values are immutable once produced by a
// pipeline stage; later stages build replacement Columns rather than
// mutating in place.
type Column struct {
	Name        string
	DataType    string
	Description string
	Confidence  float64
	Source      Source
}

// Entity describes a table or view and its columns in catalog order.
// SourceRelations is empty for tables; for views it holds the immediate
// relation names read by the defining query, in declaration order.
// Definition carries the view's defining query text (empty for tables);
// it is used only to spot expression-derived columns, never parsed as SQL.
type Entity struct {
	Name            string
	Kind            Kind
	Description     string
	Columns         []Column
	SourceRelations []string
	Definition      string
}

// Column returns the column with the given name, case-insensitively
func (e *Entity) Column(name string) (Column, bool) {
	for _, c := range e.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Catalog is a case-insensitive mapping from entity name to metadata,
// built once per run and never mutated afterwards. Iteration order is
// insertion order, which callers keep deterministic (the snapshot loader
// inserts in the catalog query's ORDER BY order).
type Catalog struct {
	entities map[string]*Entity
	order    []string
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{entities: make(map[string]*Entity)}
}

// Add inserts an entity, replacing any existing entry with the same name
func (c *Catalog) Add(e *Entity) {
	key := strings.ToLower(e.Name)
	if _, exists := c.entities[key]; !exists {
		c.order = append(c.order, e.Name)
	}
	c.entities[key] = e
}

// Get looks up an entity by name, case-insensitively
func (c *Catalog) Get(name string) (*Entity, bool) {
	e, ok := c.entities[strings.ToLower(name)]
	return e, ok
}

// Names returns entity names in insertion order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of entities in the catalog
func (c *Catalog) Len() int {
	return len(c.entities)
}

// Ledger tracks entities whose descriptions are settled. It is seeded with
// tables and canonical/overridden entities, grows monotonically while views
// resolve, and is discarded at run end. An entity enters at most once.
type Ledger struct {
	entries map[string]*Entity
	order   []string
}

// NewLedger creates an empty resolution ledger
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*Entity)}
}

// Add records an entity. It returns false without modifying the ledger if
// an entity with the same name is already present.
func (l *Ledger) Add(e *Entity) bool {
	key := strings.ToLower(e.Name)
	if _, exists := l.entries[key]; exists {
		return false
	}
	l.entries[key] = e
	l.order = append(l.order, e.Name)
	return true
}

// Get looks up a ledger entry by name, case-insensitively
func (l *Ledger) Get(name string) (*Entity, bool) {
	e, ok := l.entries[strings.ToLower(name)]
	return e, ok
}

// Has reports whether an entity is present
func (l *Ledger) Has(name string) bool {
	_, ok := l.entries[strings.ToLower(name)]
	return ok
}

// Names returns entity names in the order they entered the ledger
func (l *Ledger) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of ledger entries
func (l *Ledger) Len() int {
	return len(l.entries)
}
