package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/stagehand/pkg/session"

	// sqlite driver for the local sql bridge.
	_ "modernc.org/sqlite"
)

// queryOptions holds options for the query command.
type queryOptions struct {
	Input string
	Limit int
}

func newQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute SQL against the configured engine",
		Long: `Execute SQL statements against the configured query engine.

SQL can be passed as an argument, read from a file with --input, or
piped on stdin. When invoked without input on a terminal, enters
interactive REPL mode.`,
		Example: `  # Execute SQL directly
  stagehand query "SELECT * FROM sales.orders LIMIT 10"

  # Read SQL from a file
  stagehand query --input report.sql

  # Pipe SQL on stdin
  echo "SHOW DATABASES" | stagehand query

  # Output as JSON
  stagehand query "SELECT * FROM sales.orders" --format json

  # Interactive mode
  stagehand query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().IntVar(&opts.Limit, "limit", -1, "Cap the number of rows fetched (-1 for all)")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *queryOptions) error {
	ctx := cmd.Context()

	conn, err := session.Open(ctx, cfg.Connection, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// Determine SQL source
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runREPL(cmd, conn, opts)
	}

	sqlQuery = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlQuery), ";"))
	if sqlQuery == "" {
		return fmt.Errorf("no SQL to execute")
	}

	return executeAndRender(cmd, conn, sqlQuery, opts.Limit)
}

func executeAndRender(cmd *cobra.Command, conn *session.Connection, sqlQuery string, limit int) error {
	cur, err := conn.Execute(cmd.Context(), sqlQuery)
	if err != nil {
		return err
	}

	rows, err := cur.SetLimit(limit).FetchAll(cmd.Context())
	if err != nil {
		return err
	}

	return renderResults(cmd.OutOrStdout(), cur.Columns(), rows, cfg.Format)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
