package session

import (
	"context"
	"sync"

	"github.com/leapstack-labs/stagehand/pkg/driver"
	"github.com/leapstack-labs/stagehand/pkg/glyph"
)

// Column is one result column with its display glyph.
type Column struct {
	Name string
	Type string
}

// Cursor wraps one executed statement. It is consumed exactly once by
// FetchAll, which always releases the underlying driver cursor.
type Cursor struct {
	cur   driver.Cursor
	cols  []driver.Column
	limit int

	closeOnce sync.Once
	closeErr  error
}

func newCursor(cur driver.Cursor) *Cursor {
	c := &Cursor{cur: cur, limit: -1}
	// Preserve metadata now. The driver cursor may be closed before
	// Columns is read, and some drivers only report metadata after
	// execution completes.
	c.cols = cur.Columns()
	return c
}

// Columns returns the result columns with their glyphs. Statements with
// no result set (DDL) yield an empty slice. Metadata preserved at
// execution time is returned even after the driver cursor was closed.
func (c *Cursor) Columns() []Column {
	cols := c.cols
	if cols == nil {
		cols = c.cur.Columns()
	}
	out := make([]Column, len(cols))
	for i, col := range cols {
		out[i] = Column{Name: col.Name, Type: glyph.Short(col.TypeName)}
	}
	return out
}

// SetLimit caps the number of rows the next FetchAll retrieves.
// Returns the cursor for chaining.
func (c *Cursor) SetLimit(limit int) *Cursor {
	c.limit = limit
	return c
}

// FetchAll retrieves the result rows, honoring any limit, and closes
// the driver cursor on every exit path. Failures come back as
// *QueryError with the engine's message.
func (c *Cursor) FetchAll(ctx context.Context) (rows [][]any, err error) {
	defer func() {
		c.close()
		if err != nil {
			err = queryError(err)
		}
	}()

	c.captureColumns()

	if c.limit < 0 {
		rows, err = c.cur.FetchAll(ctx)
	} else {
		rows, err = c.cur.FetchMany(ctx, c.limit)
	}
	if err != nil {
		return nil, err
	}

	// Some drivers only expose metadata once rows have moved.
	c.captureColumns()
	return rows, nil
}

func (c *Cursor) captureColumns() {
	if cols := c.cur.Columns(); cols != nil {
		c.cols = cols
	}
}

// close releases the driver cursor exactly once.
func (c *Cursor) close() {
	c.closeOnce.Do(func() {
		c.closeErr = c.cur.Close()
	})
}
