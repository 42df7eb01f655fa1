// Package sqlbridge adapts any database/sql driver to the Stagehand
// driver contract. It exists for local development and testing: the
// catalog tree and session layer can run against SQLite or a mock
// without touching a remote engine.
package sqlbridge

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// Driver implements driver.Driver over database/sql.
// Options["driver"] selects the sql driver name, Options["dsn"] the DSN.
type Driver struct {
	logger *slog.Logger
}

// New creates a sqlbridge driver. A nil logger means discard.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{logger: logger}
}

// Connect opens the underlying database/sql handle and pings it.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	name := cfg.Options["driver"]
	if name == "" {
		return nil, fmt.Errorf("sqlbridge requires options.driver")
	}
	dsn := cfg.Options["dsn"]

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", name, err)
	}

	d.logger.Debug("opened sql bridge", "driver", name)
	return &Conn{db: db, logger: d.logger}, nil
}

// Conn wraps a *sql.DB.
type Conn struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConn wraps an existing handle. Used by tests with sqlmock.
func NewConn(db *sql.DB, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conn{db: db, logger: logger}
}

// Cursor returns a fresh cursor.
func (c *Conn) Cursor() (driver.Cursor, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	return &Cursor{conn: c}, nil
}

// Close closes the database handle.
func (c *Conn) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Cursor executes one statement through database/sql and scans its rows.
type Cursor struct {
	conn *Conn

	rows    *sql.Rows
	columns []driver.Column
	closed  bool
}

// Execute runs the statement. Column metadata is captured immediately:
// the sql.Rows handle becomes useless once closed, and a later Columns
// call must still succeed.
func (c *Cursor) Execute(ctx context.Context, query string) error {
	if c.closed {
		return fmt.Errorf("cursor is closed")
	}
	if c.conn.db == nil {
		return fmt.Errorf("database connection not established")
	}

	//nolint:rowserrcheck // rows.Err is checked during fetch
	rows, err := c.conn.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	c.rows = rows

	colTypes, err := rows.ColumnTypes()
	if err == nil {
		c.columns = make([]driver.Column, len(colTypes))
		for i, ct := range colTypes {
			c.columns[i] = driver.Column{
				Name:     ct.Name(),
				TypeName: ct.DatabaseTypeName(),
			}
		}
	}
	return nil
}

// Columns returns metadata captured at Execute time, or nil before Execute.
func (c *Cursor) Columns() []driver.Column {
	return c.columns
}

// FetchAll scans every remaining row.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	return c.fetch(ctx, -1)
}

// FetchMany scans at most n rows.
func (c *Cursor) FetchMany(ctx context.Context, n int) ([][]any, error) {
	if n < 0 {
		n = 0
	}
	return c.fetch(ctx, n)
}

func (c *Cursor) fetch(ctx context.Context, limit int) ([][]any, error) {
	if c.closed {
		return nil, fmt.Errorf("cursor is closed")
	}
	if c.rows == nil {
		return nil, fmt.Errorf("no statement executed")
	}

	var out [][]any
	for (limit < 0 || len(out) < limit) && c.rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values := make([]any, len(c.columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := c.rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := c.rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Close releases the sql.Rows handle. Idempotent.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.rows != nil {
		return c.rows.Close()
	}
	return nil
}

var _ driver.Driver = (*Driver)(nil)
var _ driver.Conn = (*Conn)(nil)
var _ driver.Cursor = (*Cursor)(nil)
