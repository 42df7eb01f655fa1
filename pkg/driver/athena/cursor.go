package athena

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// Cursor executes one statement against Athena and pages its results.
type Cursor struct {
	conn *Conn

	executionID string
	columns     []driver.Column
	hasResult   bool

	// primed holds the results page retrieved during Execute; the first
	// fetch consumes it instead of issuing another request.
	primed *athena.GetQueryResultsOutput

	nextToken *string
	firstPage bool
	exhausted bool
	closed    bool
}

// Execute submits the statement and polls until it reaches a terminal state.
func (c *Cursor) Execute(ctx context.Context, query string) error {
	if c.closed {
		return fmt.Errorf("cursor is closed")
	}
	if c.conn.client == nil {
		return fmt.Errorf("connection is closed")
	}

	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(c.conn.cfg.StagingDir),
		},
	}
	if c.conn.cfg.WorkGroup != "" {
		input.WorkGroup = aws.String(c.conn.cfg.WorkGroup)
	}
	execCtx := &types.QueryExecutionContext{}
	if c.conn.cfg.Catalog != "" {
		execCtx.Catalog = aws.String(c.conn.cfg.Catalog)
	}
	if c.conn.cfg.Schema != "" {
		execCtx.Database = aws.String(c.conn.cfg.Schema)
	}
	if execCtx.Catalog != nil || execCtx.Database != nil {
		input.QueryExecutionContext = execCtx
	}

	started, err := c.conn.client.StartQueryExecution(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to start query execution: %w", err)
	}
	c.executionID = aws.ToString(started.QueryExecutionId)

	c.conn.logger.Debug("query submitted", "execution_id", c.executionID)

	if err := c.waitForCompletion(ctx); err != nil {
		return err
	}

	// Prime metadata from the first results page so Columns is available
	// immediately after Execute, before any fetch.
	c.firstPage = true
	return c.primeMetadata(ctx)
}

// waitForCompletion polls GetQueryExecution until a terminal state.
func (c *Cursor) waitForCompletion(ctx context.Context) error {
	for {
		out, err := c.conn.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(c.executionID),
		})
		if err != nil {
			return fmt.Errorf("failed to get query execution status: %w", err)
		}

		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			reason := aws.ToString(status.StateChangeReason)
			if reason == "" {
				reason = string(status.State)
			}
			return fmt.Errorf("query %s: %s", c.executionID, reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.conn.poll):
		}
	}
}

// primeMetadata fetches the first page to capture column metadata.
// Rows from the page are buffered for the first fetch call.
func (c *Cursor) primeMetadata(ctx context.Context) error {
	out, err := c.conn.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(c.executionID),
	})
	if err != nil {
		return fmt.Errorf("failed to get query results: %w", err)
	}
	c.consumeMetadata(out)
	c.primed = out
	return nil
}

// Columns returns the result set metadata, or nil when the statement
// produced none (DDL, CTAS without output).
func (c *Cursor) Columns() []driver.Column {
	if !c.hasResult {
		return nil
	}
	return c.columns
}

// FetchAll retrieves every remaining row.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	return c.fetch(ctx, -1)
}

// FetchMany retrieves at most n rows.
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

	var rows [][]any
	for !c.exhausted && (limit < 0 || len(rows) < limit) {
		var page *athena.GetQueryResultsOutput
		if c.primed != nil {
			page = c.primed
			c.primed = nil
		} else {
			var err error
			page, err = c.conn.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
				QueryExecutionId: aws.String(c.executionID),
				NextToken:        c.nextToken,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to get query results: %w", err)
			}
			c.consumeMetadata(page)
		}

		if page.ResultSet != nil {
			pageRows := page.ResultSet.Rows
			// Athena returns the header as the first row of the first page
			// for result-set queries.
			if c.firstPage && len(pageRows) > 0 && c.isHeaderRow(pageRows[0]) {
				pageRows = pageRows[1:]
			}
			for _, r := range pageRows {
				rows = append(rows, datumsToValues(r.Data))
			}
		}
		c.firstPage = false

		c.nextToken = page.NextToken
		if c.nextToken == nil {
			c.exhausted = true
		}
	}

	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// consumeMetadata captures column metadata from a results page.
func (c *Cursor) consumeMetadata(out *athena.GetQueryResultsOutput) {
	if c.hasResult || out.ResultSet == nil || out.ResultSet.ResultSetMetadata == nil {
		return
	}
	info := out.ResultSet.ResultSetMetadata.ColumnInfo
	if len(info) == 0 {
		return
	}
	cols := make([]driver.Column, len(info))
	for i, ci := range info {
		cols[i] = driver.Column{
			Name:     aws.ToString(ci.Name),
			TypeName: aws.ToString(ci.Type),
		}
	}
	c.columns = cols
	c.hasResult = true
}

// isHeaderRow reports whether the row's values positionally match the
// column labels.
func (c *Cursor) isHeaderRow(row types.Row) bool {
	if !c.hasResult || len(row.Data) != len(c.columns) {
		return false
	}
	for i, d := range row.Data {
		if aws.ToString(d.VarCharValue) != c.columns[i].Name {
			return false
		}
	}
	return true
}

// Close marks the cursor done. Athena keeps results in the staging
// location, so there is no remote handle to release. Idempotent.
func (c *Cursor) Close() error {
	c.closed = true
	c.primed = nil
	return nil
}

func datumsToValues(data []types.Datum) []any {
	values := make([]any, len(data))
	for i, d := range data {
		if d.VarCharValue == nil {
			values[i] = nil
		} else {
			values[i] = *d.VarCharValue
		}
	}
	return values
}

var _ driver.Cursor = (*Cursor)(nil)
