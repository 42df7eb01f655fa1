// Package cache persists connection-free catalog snapshots between runs.
//
// The store is strictly best-effort: every fault (no writable cache
// directory, serialization failure, corrupt file) degrades to a cache
// miss. Nothing here ever surfaces as a user-facing error.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const appDirName = "stagehand"

// Snapshot is the persistable projection of a catalog tree: labels,
// identifiers and type names only, no live connection references.
type Snapshot struct {
	Catalogs []CatalogSnap `msgpack:"catalogs"`
}

// CatalogSnap is one catalog with its schemas.
type CatalogSnap struct {
	Name    string       `msgpack:"name"`
	Schemas []SchemaSnap `msgpack:"schemas"`
}

// SchemaSnap records a schema and, when it was expanded before the
// snapshot was taken, its relations.
type SchemaSnap struct {
	Name      string         `msgpack:"name"`
	Loaded    bool           `msgpack:"loaded"`
	Relations []RelationSnap `msgpack:"relations"`
}

// RelationSnap is a table or view, with columns when they were loaded.
type RelationSnap struct {
	Name      string       `msgpack:"name"`
	TypeLabel string       `msgpack:"type_label"`
	Loaded    bool         `msgpack:"loaded"`
	Columns   []ColumnSnap `msgpack:"columns"`
}

// ColumnSnap is one column with its engine type name.
type ColumnSnap struct {
	Name     string `msgpack:"name"`
	TypeName string `msgpack:"type_name"`
}

// Key derives a stable cache key from the connection parameters, so
// different connections get different cache entries.
func Key(catalogName, region, workGroup, schema string) string {
	if catalogName == "" {
		catalogName = "AwsDataCatalog"
	}
	if region == "" {
		region = "us-east-1"
	}

	parts := []string{catalogName, region}
	if workGroup != "" {
		parts = append(parts, "wg:"+workGroup)
	}
	if schema != "" {
		parts = append(parts, "schema:"+schema)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Store reads and writes snapshot files under the user cache directory.
// A Store with no usable directory is valid and silently does nothing.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore resolves the platform cache directory and creates it on
// demand. Any failure yields a disabled store, never an error.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{logger: logger}

	base, err := os.UserCacheDir()
	if err != nil {
		logger.Debug("no user cache directory, persistence disabled", "error", err)
		return s
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Debug("cannot create cache directory, persistence disabled", "dir", dir, "error", err)
		return s
	}
	s.dir = dir
	return s
}

// NewStoreAt creates a store rooted at dir. Used by tests.
func NewStoreAt(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: dir, logger: logger}
}

// Enabled reports whether a writable cache location exists.
func (s *Store) Enabled() bool {
	return s.dir != ""
}

// Dir returns the cache directory, or "" when persistence is disabled.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the snapshot file for a key, or "" when disabled.
func (s *Store) Path(key string) string {
	if s.dir == "" {
		return ""
	}
	return filepath.Join(s.dir, fmt.Sprintf("catalog_%s.bin", key))
}

// Load reads the snapshot for key. A missing file is a miss; a corrupt
// file is deleted and reported as a miss.
func (s *Store) Load(key string) (*Snapshot, bool) {
	path := s.Path(key)
	if path == "" {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		s.logger.Debug("discarding corrupt catalog snapshot", "path", path, "error", err)
		_ = os.Remove(path)
		return nil, false
	}
	return &snap, true
}

// Save writes the snapshot for key. Failures are swallowed; caching is
// simply skipped for this run.
func (s *Store) Save(key string, snap *Snapshot) {
	path := s.Path(key)
	if path == "" || snap == nil {
		return
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		s.logger.Debug("failed to encode catalog snapshot", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Debug("failed to write catalog snapshot", "path", path, "error", err)
	}
}

// Invalidate removes the snapshot for key, ignoring errors.
func (s *Store) Invalidate(key string) {
	if path := s.Path(key); path != "" {
		_ = os.Remove(path)
	}
}
