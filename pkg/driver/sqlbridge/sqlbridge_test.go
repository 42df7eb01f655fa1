package sqlbridge

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

func newMockCursor(t *testing.T) (*Cursor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conn := NewConn(db, nil)
	cur, err := conn.Cursor()
	require.NoError(t, err)
	return cur.(*Cursor), mock
}

func TestCursor_ExecuteAndFetchAll(t *testing.T) {
	cur, mock := newMockCursor(t)

	mock.ExpectQuery("SELECT id, name FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alpha").
			AddRow(2, "beta"),
	)

	ctx := context.Background()
	require.NoError(t, cur.Execute(ctx, "SELECT id, name FROM users"))

	cols := cur.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)

	rows, err := cur.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0][1])

	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close(), "close must be idempotent")
}

func TestCursor_FetchMany(t *testing.T) {
	cur, mock := newMockCursor(t)

	mock.ExpectQuery("SELECT a FROM t").WillReturnRows(
		sqlmock.NewRows([]string{"a"}).AddRow(1).AddRow(2).AddRow(3),
	)

	ctx := context.Background()
	require.NoError(t, cur.Execute(ctx, "SELECT a FROM t"))

	rows, err := cur.FetchMany(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestCursor_ExecuteError(t *testing.T) {
	cur, mock := newMockCursor(t)

	mock.ExpectQuery("selec;").WillReturnError(assertableError("near \"selec\": syntax error"))

	err := cur.Execute(context.Background(), "selec;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestCursor_FetchBeforeExecute(t *testing.T) {
	cur, _ := newMockCursor(t)
	_, err := cur.FetchAll(context.Background())
	assert.Error(t, err)
}

func TestConn_CursorAfterClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := NewConn(db, nil)

	mock.ExpectClose()
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "close must be idempotent")

	_, err = conn.Cursor()
	assert.Error(t, err)
}

func TestDriver_ConnectValidation(t *testing.T) {
	d := New(nil)
	_, err := d.Connect(context.Background(), driver.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options.driver")
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
