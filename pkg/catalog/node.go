// Package catalog implements the lazy database catalog tree: a hierarchy
// of catalog, schema, table and column nodes populated on demand through
// batched metadata queries.
package catalog

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/stagehand/pkg/glyph"
)

// Kind tags the node variant.
type Kind int

const (
	KindCatalog Kind = iota
	KindSchema
	KindTable
	KindColumn
)

// Node is one entry in the catalog tree. Schema and table nodes load
// their children lazily through the owning Fetcher; catalog nodes are
// populated at build time and column nodes are leaves.
//
// A node's children are either fully absent or fully populated: one
// fetch loads all of them, and repeated Expand calls after the first
// return the cached children without a remote call.
type Node struct {
	Kind      Kind
	Qualified string // fully quoted path, e.g. "cat"."schema"."table"
	QueryName string // identifier to splice into SQL
	Label     string
	TypeLabel string
	Children  []*Node

	loaded  bool
	fetcher *Fetcher

	catalogName string
	schemaName  string
	tableName   string
	columnType  string
}

// NewCatalogNode creates a catalog node with its schema children.
// Catalog children are eager; everything below stays lazy.
func NewCatalogNode(name string, schemas []*Node) *Node {
	return &Node{
		Kind:      KindCatalog,
		Qualified: QuoteIdent(name),
		QueryName: QuoteIdent(name),
		Label:     name,
		TypeLabel: "c",
		Children:  schemas,
		loaded:    true,
	}
}

// NewSchemaNode creates an unexpanded schema node.
func NewSchemaNode(f *Fetcher, catalogName, schemaName string) *Node {
	return &Node{
		Kind:        KindSchema,
		Qualified:   QuoteIdent(catalogName, schemaName),
		QueryName:   QuoteIdent(catalogName, schemaName),
		Label:       schemaName,
		TypeLabel:   "s",
		fetcher:     f,
		catalogName: catalogName,
		schemaName:  schemaName,
	}
}

// NewTableNode creates an unexpanded table node. typeLabel is "t" for
// tables and "v" for views.
func NewTableNode(f *Fetcher, catalogName, schemaName, tableName, typeLabel string) *Node {
	return &Node{
		Kind:        KindTable,
		Qualified:   QuoteIdent(catalogName, schemaName, tableName),
		QueryName:   QuoteIdent(catalogName, schemaName, tableName),
		Label:       tableName,
		TypeLabel:   typeLabel,
		fetcher:     f,
		catalogName: catalogName,
		schemaName:  schemaName,
		tableName:   tableName,
	}
}

// NewColumnNode creates a column leaf. The type label is the glyph for
// the column's engine type.
func NewColumnNode(catalogName, schemaName, tableName, columnName, typeName string) *Node {
	return &Node{
		Kind:       KindColumn,
		Qualified:  QuoteIdent(catalogName, schemaName, tableName, columnName),
		QueryName:  QuoteIdent(columnName),
		Label:      columnName,
		TypeLabel:  glyph.Short(typeName),
		loaded:     true,
		columnType: typeName,
	}
}

// ColumnType returns the engine type name of a column node, preserved
// so a persisted projection can rebuild the glyph from the real type.
func (n *Node) ColumnType() string {
	return n.columnType
}

// Loaded reports whether the node's children have been populated.
func (n *Node) Loaded() bool {
	return n.loaded
}

// SetChildren installs pre-fetched children and marks the node expanded.
// Used when rebuilding a tree from a persisted snapshot.
func (n *Node) SetChildren(children []*Node) {
	n.Children = children
	n.loaded = true
}

// Expand returns the node's children, fetching them on first call.
// Expansion is idempotent: once loaded, no further remote calls happen
// for this node's lifetime.
func (n *Node) Expand(ctx context.Context) ([]*Node, error) {
	if n.loaded {
		return n.Children, nil
	}

	switch n.Kind {
	case KindSchema:
		return n.expandSchema(ctx)
	case KindTable:
		return n.expandTable(ctx)
	default:
		// Catalog nodes are built loaded; column nodes are leaves.
		n.loaded = true
		return n.Children, nil
	}
}

func (n *Node) expandSchema(ctx context.Context) ([]*Node, error) {
	relations, err := n.fetcher.Relations(ctx, n.catalogName, []string{n.schemaName})
	if err != nil {
		return nil, fmt.Errorf("failed to load tables for schema %s: %w", n.schemaName, err)
	}

	children := make([]*Node, 0, len(relations[n.schemaName]))
	for _, rel := range relations[n.schemaName] {
		children = append(children, NewTableNode(n.fetcher, n.catalogName, n.schemaName, rel.Name, rel.TypeLabel))
	}
	n.SetChildren(children)
	return children, nil
}

func (n *Node) expandTable(ctx context.Context) ([]*Node, error) {
	ref := TableRef{Schema: n.schemaName, Table: n.tableName}
	cols, err := n.fetcher.ColumnsFor(ctx, n.catalogName, []TableRef{ref})
	if err != nil {
		return nil, fmt.Errorf("failed to load columns for table %s: %w", n.tableName, err)
	}

	children := make([]*Node, 0, len(cols[ref]))
	for _, col := range cols[ref] {
		children = append(children, NewColumnNode(n.catalogName, n.schemaName, n.tableName, col.Name, col.TypeName))
	}
	n.SetChildren(children)
	return children, nil
}
