package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/stagehand/pkg/session"
)

var (
	testCols = []session.Column{
		{Name: "id", Type: "##"},
		{Name: "name", Type: "t"},
	}
	testRows = [][]any{
		{"1", "alice"},
		{"2", nil},
	}
)

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResults(&buf, testCols, testRows, "table"))

	out := buf.String()
	assert.Contains(t, out, "ID ##")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResults(&buf, testCols, testRows, "json"))

	var results []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0]["name"])
	assert.Nil(t, results[1]["name"])
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResults(&buf, testCols, [][]any{
		{"1", `say "hi"`},
		{"2", "a,b"},
	}, "csv"))

	out := buf.String()
	assert.Contains(t, out, "id,name\n")
	assert.Contains(t, out, `"say ""hi"""`)
	assert.Contains(t, out, `"a,b"`)
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResults(&buf, testCols, testRows, "md"))

	out := buf.String()
	assert.Contains(t, out, "| id | name |")
	assert.Contains(t, out, "| --- | --- |")
	assert.Contains(t, out, "| 1 | alice |")
}

func TestRenderEmptyResultSet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResults(&buf, nil, nil, "table"))
	assert.Contains(t, buf.String(), "(0 rows)")
}
