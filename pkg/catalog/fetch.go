package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// introspectionSchema is excluded from schema listings; it is the
// engine's own metadata namespace, not user data.
const introspectionSchema = "information_schema"

// Relation is a table or view within a schema.
type Relation struct {
	Name      string
	TypeLabel string // "t" for tables, "v" for views
}

// TableRef identifies a table within a catalog.
type TableRef struct {
	Schema string
	Table  string
}

// ColumnDef is one column of a relation, in ordinal position order.
type ColumnDef struct {
	Name     string
	TypeName string
}

// Fetcher runs the metadata queries that populate the catalog tree.
// Both levels accept multiple sibling keys at once so several nodes can
// be warmed in one round trip; per-node expansion is the single-key case.
type Fetcher struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger means discard.
func NewFetcher(conn driver.Conn, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{conn: conn, logger: logger}
}

// Schemas lists the databases of the connected catalog, excluding the
// introspection namespace. Athena lists schemas with SHOW DATABASES; the
// catalog is fixed by the connection, not the statement.
func (f *Fetcher) Schemas(ctx context.Context) ([]string, error) {
	rows, err := f.run(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	schemas := make([]string, 0, len(rows))
	for _, row := range rows {
		name := valueString(row[0])
		if name == introspectionSchema {
			continue
		}
		schemas = append(schemas, name)
	}
	f.logger.Debug("listed schemas", "count", len(schemas))
	return schemas, nil
}

// Relations fetches all tables and views for the given schemas in a
// single information_schema query, grouped by schema. Relations whose
// engine type ends in TABLE are tables, everything else is a view.
func (f *Fetcher) Relations(ctx context.Context, catalogName string, schemas []string) (map[string][]Relation, error) {
	if len(schemas) == 0 {
		return map[string][]Relation{}, nil
	}

	literals := make([]string, len(schemas))
	for i, s := range schemas {
		literals[i] = quoteLiteral(s)
	}
	query := fmt.Sprintf(`SELECT table_schema, table_name,
    CASE WHEN table_type LIKE '%%TABLE' THEN 't' ELSE 'v' END AS table_type
FROM %s.information_schema.tables
WHERE table_schema IN (%s)`,
		QuoteIdent(catalogName), strings.Join(literals, ", "))

	rows, err := f.run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	bySchema := make(map[string][]Relation)
	for _, row := range rows {
		schema := valueString(row[0])
		bySchema[schema] = append(bySchema[schema], Relation{
			Name:      valueString(row[1]),
			TypeLabel: valueString(row[2]),
		})
	}
	f.logger.Debug("listed relations", "schemas", len(schemas), "relations", len(rows))
	return bySchema, nil
}

// ColumnsFor fetches all columns for the given tables in a single
// information_schema query, grouped by table and ordered by ordinal
// position.
func (f *Fetcher) ColumnsFor(ctx context.Context, catalogName string, refs []TableRef) (map[TableRef][]ColumnDef, error) {
	if len(refs) == 0 {
		return map[TableRef][]ColumnDef{}, nil
	}

	conditions := make([]string, len(refs))
	for i, ref := range refs {
		conditions[i] = fmt.Sprintf("(table_schema = %s AND table_name = %s)",
			quoteLiteral(ref.Schema), quoteLiteral(ref.Table))
	}
	query := fmt.Sprintf(`SELECT table_schema, table_name, column_name, data_type
FROM %s.information_schema.columns
WHERE %s
ORDER BY table_schema, table_name, ordinal_position`,
		QuoteIdent(catalogName), strings.Join(conditions, " OR "))

	rows, err := f.run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}

	byTable := make(map[TableRef][]ColumnDef)
	for _, row := range rows {
		ref := TableRef{Schema: valueString(row[0]), Table: valueString(row[1])}
		byTable[ref] = append(byTable[ref], ColumnDef{
			Name:     valueString(row[2]),
			TypeName: valueString(row[3]),
		})
	}
	f.logger.Debug("listed columns", "tables", len(refs), "columns", len(rows))
	return byTable, nil
}

// run executes one metadata query on a fresh cursor and drains it.
func (f *Fetcher) run(ctx context.Context, query string) ([][]any, error) {
	cur, err := f.conn.Cursor()
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close() }()

	if err := cur.Execute(ctx, query); err != nil {
		return nil, err
	}
	return cur.FetchAll(ctx)
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
