package session_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stagehand/internal/cache"
	"github.com/leapstack-labs/stagehand/internal/testutil"
	"github.com/leapstack-labs/stagehand/pkg/driver"
	"github.com/leapstack-labs/stagehand/pkg/session"
)

var driverSeq int

// registerFake registers a fresh fake driver under a unique name and
// returns the name plus the scripted connection.
func registerFake(t *testing.T) (string, *testutil.FakeDriver) {
	t.Helper()
	driverSeq++
	name := fmt.Sprintf("fake%d", driverSeq)
	fake := testutil.NewFakeDriver()
	driver.Register(name, fake.Factory())
	return name, fake
}

func openConn(t *testing.T, fakeName string, dir string) *session.Connection {
	t.Helper()
	conn, err := session.OpenWithStore(context.Background(), session.Settings{
		Driver:     fakeName,
		StagingDir: "s3://bucket/results/",
		Schema:     "",
	}, cache.NewStoreAt(dir, nil), testutil.NewTestLogger(t))
	require.NoError(t, err)
	return conn
}

func scriptCatalog(conn *testutil.FakeConn) {
	conn.Script("SHOW DATABASES", nil, [][]any{{"sales"}, {"information_schema"}})
	conn.Script("information_schema.tables", nil, [][]any{{"sales", "orders", "t"}})
	conn.Script("information_schema.columns", nil, [][]any{
		{"sales", "orders", "order_id", "bigint"},
	})
}

func TestOpen(t *testing.T) {
	t.Run("missing staging dir", func(t *testing.T) {
		name, fake := registerFake(t)
		_, err := session.OpenWithStore(context.Background(), session.Settings{Driver: name},
			cache.NewStoreAt(t.TempDir(), nil), nil)
		require.Error(t, err)

		var connErr *session.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Contains(t, connErr.Error(), "staging_dir")
		assert.Zero(t, fake.ConnectCalls, "validation failure must not touch the driver")
	})

	t.Run("driver connect failure", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.ConnectErr = errors.New("no credentials found")

		_, err := session.OpenWithStore(context.Background(), session.Settings{
			Driver: name, StagingDir: "s3://b/r/",
		}, cache.NewStoreAt(t.TempDir(), nil), nil)

		var connErr *session.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Contains(t, err.Error(), "no credentials found")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := session.OpenWithStore(context.Background(), session.Settings{
			Driver: "nonexistent", StagingDir: "s3://b/r/",
		}, cache.NewStoreAt(t.TempDir(), nil), nil)

		var connErr *session.ConnectionError
		require.ErrorAs(t, err, &connErr)
		var unknownErr *driver.UnknownDriverError
		assert.ErrorAs(t, err, &unknownErr)
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("select one row", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.Script("SELECT 1 AS a", []driver.Column{{Name: "a", TypeName: "integer"}}, [][]any{{"1"}})
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "SELECT 1 AS a")
		require.NoError(t, err)

		rows, err := cur.FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Len(t, rows[0], 1)

		assert.Equal(t, []session.Column{{Name: "a", Type: "#"}}, cur.Columns())
	})

	t.Run("duplicate column names preserved positionally", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.Script("SELECT 1 AS a, 2 AS a, 3 AS a", []driver.Column{
			{Name: "a", TypeName: "integer"},
			{Name: "a", TypeName: "integer"},
			{Name: "a", TypeName: "integer"},
		}, [][]any{{"1", "2", "3"}})
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "SELECT 1 AS a, 2 AS a, 3 AS a")
		require.NoError(t, err)

		cols := cur.Columns()
		require.Len(t, cols, 3)
		for _, c := range cols {
			assert.Equal(t, "a", c.Name)
		}
	})

	t.Run("limit caps fetch", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.Script("SELECT n", []driver.Column{{Name: "n", TypeName: "integer"}},
			[][]any{{"1"}, {"2"}, {"3"}})
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "SELECT n FROM t")
		require.NoError(t, err)

		rows, err := cur.SetLimit(2).FetchAll(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("malformed statement yields QueryError", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.ScriptErr("selec;", errors.New("SYNTAX_ERROR: mismatched input 'selec'"))
		conn := openConn(t, name, t.TempDir())

		_, err := conn.Execute(ctx, "selec;")
		require.Error(t, err)

		var queryErr *session.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Contains(t, err.Error(), "SYNTAX_ERROR")
	})

	t.Run("ddl produces empty column metadata", func(t *testing.T) {
		name, fake := registerFake(t)
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "CREATE TABLE t (a int)")
		require.NoError(t, err)

		assert.Empty(t, cur.Columns())
		rows, err := cur.FetchAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
		_ = fake
	})

	t.Run("driver cursor closed exactly once on success and failure", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.Script("SELECT 1", []driver.Column{{Name: "a", TypeName: "integer"}}, [][]any{{"1"}})
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "SELECT 1")
		require.NoError(t, err)
		_, err = cur.FetchAll(ctx)
		require.NoError(t, err)
		// Second consumption attempt must not reopen anything.
		_, _ = cur.FetchAll(ctx)

		require.Len(t, fake.Conn.Cursors, 1)
		assert.Equal(t, 1, fake.Conn.Cursors[0].CloseCalls)
	})

	t.Run("metadata survives cursor close", func(t *testing.T) {
		name, fake := registerFake(t)
		fake.Conn.Script("SELECT 1", []driver.Column{{Name: "a", TypeName: "bigint"}}, [][]any{{"1"}})
		conn := openConn(t, name, t.TempDir())

		cur, err := conn.Execute(ctx, "SELECT 1")
		require.NoError(t, err)
		_, err = cur.FetchAll(ctx)
		require.NoError(t, err)

		assert.Equal(t, []session.Column{{Name: "a", Type: "##"}}, cur.Columns())
	})
}

func TestCatalogCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("memory cache avoids repeat listings", func(t *testing.T) {
		name, fake := registerFake(t)
		scriptCatalog(fake.Conn)
		conn := openConn(t, name, t.TempDir())

		_, err := conn.Catalog(ctx)
		require.NoError(t, err)
		_, err = conn.Catalog(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, fake.Conn.CallCount("SHOW DATABASES"))
	})

	t.Run("ddl invalidates memory and disk", func(t *testing.T) {
		name, fake := registerFake(t)
		scriptCatalog(fake.Conn)
		dir := t.TempDir()
		conn := openConn(t, name, dir)

		_, err := conn.Catalog(ctx)
		require.NoError(t, err)

		key := cache.Key(session.DefaultCatalog, session.DefaultRegion, "", "")
		store := cache.NewStoreAt(dir, nil)
		_, ok := store.Load(key)
		require.True(t, ok, "initial build must persist a snapshot")

		cur, err := conn.Execute(ctx, "DROP TABLE x")
		require.NoError(t, err)
		_, _ = cur.FetchAll(ctx)

		_, ok = store.Load(key)
		assert.False(t, ok, "invalidation must remove the snapshot")

		_, err = conn.Catalog(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, fake.Conn.CallCount("SHOW DATABASES"),
			"post-DDL catalog access must refetch")
	})

	t.Run("explicit invalidation forces refetch", func(t *testing.T) {
		name, fake := registerFake(t)
		scriptCatalog(fake.Conn)
		conn := openConn(t, name, t.TempDir())

		_, err := conn.Catalog(ctx)
		require.NoError(t, err)
		conn.InvalidateCatalog()
		_, err = conn.Catalog(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, fake.Conn.CallCount("SHOW DATABASES"))
	})

	t.Run("corrupt snapshot is a silent miss", func(t *testing.T) {
		name, fake := registerFake(t)
		scriptCatalog(fake.Conn)
		dir := t.TempDir()

		key := cache.Key(session.DefaultCatalog, session.DefaultRegion, "", "")
		store := cache.NewStoreAt(dir, nil)
		require.NoError(t, os.WriteFile(store.Path(key), []byte("garbage"), 0o644))

		conn := openConn(t, name, dir)
		tree, err := conn.Catalog(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, tree.Items)
		assert.Equal(t, 1, fake.Conn.CallCount("SHOW DATABASES"))
	})
}

func TestCatalogSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// First session: build, expand one schema and one table, close.
	name1, fake1 := registerFake(t)
	scriptCatalog(fake1.Conn)
	conn1 := openConn(t, name1, dir)

	tree, err := conn1.Catalog(ctx)
	require.NoError(t, err)
	schemas, err := tree.Items[0].Expand(ctx)
	require.NoError(t, err)
	tables, err := schemas[0].Expand(ctx)
	require.NoError(t, err)
	_, err = tables[0].Expand(ctx)
	require.NoError(t, err)
	require.NoError(t, conn1.Close())

	// Second session: the snapshot serves the tree without remote calls,
	// with the previously expanded nodes already populated.
	name2, fake2 := registerFake(t)
	scriptCatalog(fake2.Conn)
	conn2 := openConn(t, name2, dir)

	restored, err := conn2.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fake2.Conn.CallCount("SHOW DATABASES"))

	schema := restored.Items[0].Children[0]
	require.True(t, schema.Loaded())
	table := schema.Children[0]
	require.True(t, table.Loaded())
	require.Len(t, table.Children, 1)
	assert.Equal(t, "order_id", table.Children[0].Label)
	assert.Equal(t, "##", table.Children[0].TypeLabel)
}

func TestCompletions(t *testing.T) {
	name, _ := registerFake(t)
	conn := openConn(t, name, t.TempDir())

	comps := conn.Completions()
	assert.NotEmpty(t, comps)
}
