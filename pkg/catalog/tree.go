package catalog

import "context"

// Tree is the root of a catalog hierarchy: one node per catalog, each
// holding its schema nodes. Tables and columns below stay lazy.
type Tree struct {
	Items []*Node
}

// Build constructs the top two levels of the tree. Athena has no SHOW
// CATALOGS, so the catalog level is exactly the configured catalog name;
// schemaFilter, when set, pins the schema level to a single schema
// without a listing call.
func Build(ctx context.Context, f *Fetcher, catalogName, schemaFilter string) (*Tree, error) {
	var schemas []string
	if schemaFilter != "" {
		schemas = []string{schemaFilter}
	} else {
		listed, err := f.Schemas(ctx)
		if err != nil {
			return nil, err
		}
		schemas = listed
	}

	schemaNodes := make([]*Node, 0, len(schemas))
	for _, s := range schemas {
		schemaNodes = append(schemaNodes, NewSchemaNode(f, catalogName, s))
	}

	return &Tree{Items: []*Node{NewCatalogNode(catalogName, schemaNodes)}}, nil
}
