// Package testutil provides a scripted in-memory implementation of the
// driver contract for tests, with per-query call counting.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// ScriptedResult is the canned response for statements matching Match.
type ScriptedResult struct {
	Match   string // case-insensitive substring; "" matches everything
	Columns []driver.Column
	Rows    [][]any
	Err     error
}

// FakeDriver hands out a single FakeConn.
type FakeDriver struct {
	Conn         *FakeConn
	ConnectErr   error
	ConnectCalls int
}

// NewFakeDriver creates a driver wrapping a fresh FakeConn.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Conn: NewFakeConn()}
}

// Connect returns the scripted connection.
func (d *FakeDriver) Connect(_ context.Context, _ driver.Config) (driver.Conn, error) {
	d.ConnectCalls++
	if d.ConnectErr != nil {
		return nil, d.ConnectErr
	}
	return d.Conn, nil
}

// Factory adapts the fake to the registry signature.
func (d *FakeDriver) Factory() func(*slog.Logger) driver.Driver {
	return func(_ *slog.Logger) driver.Driver { return d }
}

// FakeConn records every executed statement and serves scripted results.
type FakeConn struct {
	mu       sync.Mutex
	scripts  []ScriptedResult
	executed []string
	Closed   bool

	// Cursors holds every cursor handed out, in creation order.
	Cursors []*FakeCursor
}

// NewFakeConn creates an empty connection; unscripted statements return
// no result set (DDL-style).
func NewFakeConn() *FakeConn {
	return &FakeConn{}
}

// Script adds a canned result for statements containing match.
func (c *FakeConn) Script(match string, cols []driver.Column, rows [][]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, ScriptedResult{Match: match, Columns: cols, Rows: rows})
}

// ScriptErr makes statements containing match fail with err.
func (c *FakeConn) ScriptErr(match string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, ScriptedResult{Match: match, Err: err})
}

// CallCount returns how many executed statements contained substr
// (case-insensitive).
func (c *FakeConn) CallCount(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.executed {
		if strings.Contains(strings.ToLower(q), strings.ToLower(substr)) {
			n++
		}
	}
	return n
}

// Executed returns a copy of all executed statements, in order.
func (c *FakeConn) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.executed...)
}

// Cursor returns a fresh cursor.
func (c *FakeConn) Cursor() (driver.Cursor, error) {
	if c.Closed {
		return nil, fmt.Errorf("connection is closed")
	}
	cur := &FakeCursor{conn: c}
	c.mu.Lock()
	c.Cursors = append(c.Cursors, cur)
	c.mu.Unlock()
	return cur, nil
}

// Close marks the connection closed.
func (c *FakeConn) Close() error {
	c.Closed = true
	return nil
}

func (c *FakeConn) record(query string) *ScriptedResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executed = append(c.executed, query)
	lower := strings.ToLower(query)
	for i := range c.scripts {
		if strings.Contains(lower, strings.ToLower(c.scripts[i].Match)) {
			return &c.scripts[i]
		}
	}
	return nil
}

// FakeCursor is one scripted statement execution.
type FakeCursor struct {
	conn *FakeConn

	executionID string
	result      *ScriptedResult
	CloseCalls  int
	closed      bool
}

func (f *FakeCursor) Execute(_ context.Context, query string) error {
	if f.closed {
		return fmt.Errorf("cursor is closed")
	}
	f.executionID = uuid.NewString()
	res := f.conn.record(query)
	if res != nil && res.Err != nil {
		return fmt.Errorf("query %s: %w", f.executionID, res.Err)
	}
	f.result = res
	return nil
}

func (f *FakeCursor) Columns() []driver.Column {
	if f.result == nil {
		return nil
	}
	return f.result.Columns
}

func (f *FakeCursor) FetchAll(_ context.Context) ([][]any, error) {
	if f.closed {
		return nil, fmt.Errorf("cursor is closed")
	}
	if f.result == nil {
		return nil, nil
	}
	return f.result.Rows, nil
}

func (f *FakeCursor) FetchMany(_ context.Context, n int) ([][]any, error) {
	rows, err := f.FetchAll(context.Background())
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (f *FakeCursor) Close() error {
	f.CloseCalls++
	f.closed = true
	return nil
}

var _ driver.Driver = (*FakeDriver)(nil)
var _ driver.Conn = (*FakeConn)(nil)
var _ driver.Cursor = (*FakeCursor)(nil)
