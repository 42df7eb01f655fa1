// Package driver defines the remote query engine contract that Stagehand
// depends on, plus the registry of available driver implementations.
//
// The core (catalog tree, session façade) depends only on these interfaces.
// Concrete implementations live in pkg/driver/ subdirectories.
package driver

import (
	"context"
	"time"
)

// Config holds everything needed to open a connection to a query engine.
// Credential fields are passed through to the driver opaquely; Stagehand
// never interprets them.
type Config struct {
	Region     string
	StagingDir string
	WorkGroup  string
	Schema     string
	Catalog    string

	// PollInterval is the delay between query status checks for engines
	// that execute asynchronously.
	PollInterval time.Duration

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string

	// Options carries driver-specific settings (e.g. the sqlbridge driver
	// reads "driver" and "dsn" from here).
	Options map[string]string
}

// Column describes one column of a result set as reported by the engine.
type Column struct {
	Name     string
	TypeName string
}

// Driver opens connections to a query engine.
type Driver interface {
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

// Conn is a single logical session with a query engine. Stagehand uses
// one Conn sequentially; drivers are not required to support concurrent
// cursors.
type Conn interface {
	// Cursor returns a fresh cursor for executing one statement.
	Cursor() (Cursor, error)

	// Close releases the connection.
	Close() error
}

// Cursor executes exactly one statement and exposes its result.
type Cursor interface {
	// Execute runs the statement to completion. For asynchronous engines
	// this blocks until the query reaches a terminal state.
	Execute(ctx context.Context, query string) error

	// FetchAll retrieves every remaining row.
	FetchAll(ctx context.Context) ([][]any, error)

	// FetchMany retrieves at most n rows.
	FetchMany(ctx context.Context, n int) ([][]any, error)

	// Columns returns the result set metadata, or nil when the statement
	// produced no result set (e.g. DDL). Only valid after Execute.
	Columns() []Column

	// Close releases the cursor. Close is idempotent.
	Close() error
}
