// Package session is the public façade over a query engine connection:
// statement execution with result cursors, the lazily populated catalog
// tree, and catalog cache invalidation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/stagehand/internal/cache"
	"github.com/leapstack-labs/stagehand/internal/completions"
	"github.com/leapstack-labs/stagehand/pkg/catalog"
	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// ddlPrefixes are the statement keywords that can change the catalog.
var ddlPrefixes = []string{"CREATE", "DROP", "ALTER", "TRUNCATE", "RENAME"}

// Connection owns one remote client handle, used sequentially: at most
// one in-flight statement at a time, no internal queueing. Methods are
// not goroutine-safe; embedding applications synchronize externally.
type Connection struct {
	settings Settings
	conn     driver.Conn
	logger   *slog.Logger
	catalogs *catalogCache
}

// Open validates the settings, opens the driver connection and prepares
// the catalog cache. Validation failures and driver-open failures come
// back as *ConnectionError; no remote call happens when validation
// fails.
func Open(ctx context.Context, settings Settings, logger *slog.Logger) (*Connection, error) {
	return OpenWithStore(ctx, settings, cache.NewStore(logger), logger)
}

// OpenWithStore is Open with an explicit snapshot store. Tests use it
// to point persistence at a scratch directory.
func OpenWithStore(ctx context.Context, settings Settings, store *cache.Store, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	settings.ApplyDefaults()

	// The staging location receives query results; without it the
	// engine cannot run anything. The local sql bridge is the one
	// driver with no staging concept.
	if settings.StagingDir == "" && settings.Driver != "sql" {
		return nil, connectionError(errors.New("staging_dir is required for Athena connections"))
	}

	drv, err := driver.New(settings.Driver, logger)
	if err != nil {
		return nil, connectionError(err)
	}

	conn, err := drv.Connect(ctx, settings.driverConfig())
	if err != nil {
		return nil, connectionError(err)
	}

	logger.Debug("connection opened",
		"driver", settings.Driver,
		"region", settings.Region,
		"catalog", settings.Catalog)

	return &Connection{
		settings: settings,
		conn:     conn,
		logger:   logger,
		catalogs: &catalogCache{
			fetcher:       catalog.NewFetcher(conn, logger),
			store:         store,
			key:           cache.Key(settings.Catalog, settings.Region, settings.WorkGroup, settings.Schema),
			catalogFilter: settings.Catalog,
			schemaFilter:  settings.Schema,
		},
	}, nil
}

// Execute runs one statement on a fresh cursor and returns a Cursor
// wrapping the executed handle. Schema-mutating statements invalidate
// the catalog cache. Failures come back as *QueryError carrying the
// engine's message.
func (c *Connection) Execute(ctx context.Context, query string) (*Cursor, error) {
	cur, err := c.conn.Cursor()
	if err != nil {
		return nil, queryError(err)
	}

	if err := cur.Execute(ctx, query); err != nil {
		_ = cur.Close()
		return nil, queryError(err)
	}

	if isDDL(query) {
		c.logger.Debug("schema-mutating statement, invalidating catalog cache")
		c.InvalidateCatalog()
	}

	return newCursor(cur), nil
}

// Catalog returns the catalog tree, serving the in-memory cache, a
// persisted snapshot, or a fresh top-two-level build, in that order.
func (c *Connection) Catalog(ctx context.Context) (*catalog.Tree, error) {
	return c.catalogs.get(ctx)
}

// InvalidateCatalog clears the cached catalog so the next Catalog call
// fetches fresh metadata. Called automatically on DDL; also callable
// explicitly.
func (c *Connection) InvalidateCatalog() {
	c.catalogs.invalidate()
}

// Completions returns the static keyword and function completions for
// the engine's SQL dialect.
func (c *Connection) Completions() []completions.Completion {
	return completions.Load()
}

// Close persists the current catalog tree as a snapshot (best-effort)
// and releases the driver connection.
func (c *Connection) Close() error {
	c.catalogs.persist()
	return c.conn.Close()
}

// isDDL reports whether the trimmed statement starts with a
// schema-mutating keyword, case-insensitively.
func isDDL(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range ddlPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
