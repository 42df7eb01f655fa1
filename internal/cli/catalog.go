package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stagehand/pkg/catalog"
	"github.com/leapstack-labs/stagehand/pkg/session"
)

// catalogOptions holds options for the catalog command.
type catalogOptions struct {
	Depth   int
	Refresh bool
}

func newCatalogCommand() *cobra.Command {
	opts := &catalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the data catalog",
		Long: `Print the data catalog as a tree.

Depth 1 lists schemas, depth 2 adds tables and views, depth 3 adds
columns with their type glyphs. Deeper levels mean more metadata
queries on a cold cache.`,
		Example: `  # Schemas and relations
  stagehand catalog

  # Full tree with columns
  stagehand catalog --depth 3

  # Drop cached metadata first
  stagehand catalog --refresh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Depth, "depth", 2, "Tree depth: 1=schemas, 2=relations, 3=columns")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Invalidate cached metadata before listing")

	return cmd
}

func runCatalog(cmd *cobra.Command, opts *catalogOptions) error {
	ctx := cmd.Context()

	conn, err := session.Open(ctx, cfg.Connection, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if opts.Refresh {
		conn.InvalidateCatalog()
	}

	tree, err := conn.Catalog(ctx)
	if err != nil {
		return err
	}

	l := list.NewWriter()
	l.SetOutputMirror(cmd.OutOrStdout())
	l.SetStyle(list.StyleConnectedRounded)

	for _, cat := range tree.Items {
		l.AppendItem(cat.Label)
		l.Indent()
		for _, schema := range cat.Children {
			l.AppendItem(schema.Label)
			if opts.Depth >= 2 {
				if err := appendRelations(ctx, l, schema, opts.Depth); err != nil {
					return err
				}
			}
		}
		l.UnIndent()
	}

	l.Render()
	return nil
}

func appendRelations(ctx context.Context, l list.Writer, schema *catalog.Node, depth int) error {
	tables, err := schema.Expand(ctx)
	if err != nil {
		return err
	}

	l.Indent()
	defer l.UnIndent()
	for _, tbl := range tables {
		l.AppendItem(fmt.Sprintf("%s %s", tbl.TypeLabel, tbl.Label))
		if depth < 3 {
			continue
		}
		cols, err := tbl.Expand(ctx)
		if err != nil {
			return err
		}
		l.Indent()
		for _, col := range cols {
			l.AppendItem(fmt.Sprintf("%s %s", col.TypeLabel, col.Label))
		}
		l.UnIndent()
	}
	return nil
}
