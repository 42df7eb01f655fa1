package session

import (
	"context"

	"github.com/leapstack-labs/stagehand/internal/cache"
	"github.com/leapstack-labs/stagehand/pkg/catalog"
)

// catalogCache orchestrates the in-memory tree, the persistent snapshot
// store, and tree construction.
//
// The two layers stay separate: the in-memory tree holds live fetcher
// references and is never serialized; only the connection-free
// projection goes to disk. The snapshot's per-schema loaded markers are
// honored on rebuild, so previously expanded schemas come back expanded
// without a remote call.
//
// Not goroutine-safe. A connection is a single logical session; callers
// needing concurrent access synchronize externally.
type catalogCache struct {
	fetcher       *catalog.Fetcher
	store         *cache.Store
	key           string
	catalogFilter string
	schemaFilter  string

	tree *catalog.Tree
}

// get returns the cached tree, a tree rebuilt from a valid snapshot, or
// a freshly built one (top two levels eager, rest lazy), in that order.
func (cc *catalogCache) get(ctx context.Context) (*catalog.Tree, error) {
	if cc.tree != nil {
		return cc.tree, nil
	}

	if snap, ok := cc.store.Load(cc.key); ok {
		cc.tree = cc.fromSnapshot(snap)
		return cc.tree, nil
	}

	tree, err := catalog.Build(ctx, cc.fetcher, cc.catalogFilter, cc.schemaFilter)
	if err != nil {
		return nil, err
	}
	cc.tree = tree
	cc.store.Save(cc.key, toSnapshot(tree))
	return tree, nil
}

// persist saves the current tree, including any expansion that happened
// since it was built, so the next run can rebuild expanded schemas
// without remote calls. Best-effort.
func (cc *catalogCache) persist() {
	if cc.tree != nil {
		cc.store.Save(cc.key, toSnapshot(cc.tree))
	}
}

// invalidate clears the in-memory tree and removes the snapshot file.
// A schema-mutating statement would otherwise be resurrected from disk.
func (cc *catalogCache) invalidate() {
	cc.tree = nil
	cc.store.Invalidate(cc.key)
}

// fromSnapshot rebuilds a live lazy tree from a persisted projection.
func (cc *catalogCache) fromSnapshot(snap *cache.Snapshot) *catalog.Tree {
	items := make([]*catalog.Node, 0, len(snap.Catalogs))
	for _, cs := range snap.Catalogs {
		schemas := make([]*catalog.Node, 0, len(cs.Schemas))
		for _, ss := range cs.Schemas {
			schemaNode := catalog.NewSchemaNode(cc.fetcher, cs.Name, ss.Name)
			if ss.Loaded {
				tables := make([]*catalog.Node, 0, len(ss.Relations))
				for _, rs := range ss.Relations {
					tableNode := catalog.NewTableNode(cc.fetcher, cs.Name, ss.Name, rs.Name, rs.TypeLabel)
					if rs.Loaded {
						cols := make([]*catalog.Node, 0, len(rs.Columns))
						for _, col := range rs.Columns {
							cols = append(cols, catalog.NewColumnNode(cs.Name, ss.Name, rs.Name, col.Name, col.TypeName))
						}
						tableNode.SetChildren(cols)
					}
					tables = append(tables, tableNode)
				}
				schemaNode.SetChildren(tables)
			}
			schemas = append(schemas, schemaNode)
		}
		items = append(items, catalog.NewCatalogNode(cs.Name, schemas))
	}
	return &catalog.Tree{Items: items}
}

// toSnapshot projects a tree into its connection-free form: labels,
// loaded markers, and the raw column type names the rebuild needs to
// recompute glyphs.
func toSnapshot(tree *catalog.Tree) *cache.Snapshot {
	snap := &cache.Snapshot{}
	for _, catNode := range tree.Items {
		cs := cache.CatalogSnap{Name: catNode.Label}
		for _, schemaNode := range catNode.Children {
			ss := cache.SchemaSnap{Name: schemaNode.Label, Loaded: schemaNode.Loaded()}
			if schemaNode.Loaded() {
				for _, tableNode := range schemaNode.Children {
					rs := cache.RelationSnap{
						Name:      tableNode.Label,
						TypeLabel: tableNode.TypeLabel,
						Loaded:    tableNode.Loaded(),
					}
					if tableNode.Loaded() {
						for _, colNode := range tableNode.Children {
							rs.Columns = append(rs.Columns, cache.ColumnSnap{
								Name:     colNode.Label,
								TypeName: colNode.ColumnType(),
							})
						}
					}
					ss.Relations = append(ss.Relations, rs)
				}
			}
			cs.Schemas = append(cs.Schemas, ss)
		}
		snap.Catalogs = append(snap.Catalogs, cs)
	}
	return snap
}
