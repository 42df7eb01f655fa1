package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/stagehand/internal/cache"
	"github.com/leapstack-labs/stagehand/pkg/catalog"
	"github.com/leapstack-labs/stagehand/pkg/session"
)

func runREPL(cmd *cobra.Command, conn *session.Connection, opts *queryOptions) error {
	ctx := cmd.Context()

	// History lives next to the catalog snapshots.
	var historyFile string
	if store := cache.NewStore(logger); store.Enabled() {
		historyFile = filepath.Join(store.Dir(), "history")
	}

	completer := newReplCompleter(ctx, conn)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "stagehand> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stagehand (region: %s, catalog: %s)\n",
		cfg.Connection.Region, cfg.Connection.Catalog)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt("stagehand> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Dot-commands only apply outside a multi-line statement.
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if handleDotCommand(ctx, cmd, conn, line) {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("      ...> ")
			continue
		}
		rl.SetPrompt("stagehand> ")

		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		if err := executeAndRender(cmd, conn, query, opts.Limit); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func handleDotCommand(ctx context.Context, cmd *cobra.Command, conn *session.Connection, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())
		return true

	case ".schemas":
		if err := printSchemas(ctx, cmd.OutOrStdout(), conn); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		}
		return true

	case ".tables":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .tables <schema>")
			return true
		}
		if err := printTables(ctx, cmd.OutOrStdout(), conn, parts[1]); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		}
		return true

	case ".columns":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .columns <schema.table>")
			return true
		}
		if err := printColumns(ctx, cmd.OutOrStdout(), conn, parts[1]); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		}
		return true

	case ".refresh":
		conn.InvalidateCatalog()
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Catalog cache cleared")
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                   Show this help message
  .schemas                List schemas in the catalog
  .tables <schema>        List relations in a schema
  .columns <schema.table> Show columns for a relation
  .refresh                Drop the cached catalog and refetch
  .clear                  Clear the screen
  .quit / .exit           Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion covers keywords, functions and dot-commands
`
	_, _ = fmt.Fprintln(w, help)
}

func printSchemas(ctx context.Context, w io.Writer, conn *session.Connection) error {
	tree, err := conn.Catalog(ctx)
	if err != nil {
		return err
	}
	for _, cat := range tree.Items {
		for _, schema := range cat.Children {
			_, _ = fmt.Fprintln(w, schema.Label)
		}
	}
	return nil
}

func printTables(ctx context.Context, w io.Writer, conn *session.Connection, schemaName string) error {
	schema, err := findSchema(ctx, conn, schemaName)
	if err != nil {
		return err
	}
	tables, err := schema.Expand(ctx)
	if err != nil {
		return err
	}
	for _, tbl := range tables {
		_, _ = fmt.Fprintf(w, "%s %s\n", tbl.TypeLabel, tbl.Label)
	}
	return nil
}

func printColumns(ctx context.Context, w io.Writer, conn *session.Connection, qualified string) error {
	schemaName, tableName, ok := strings.Cut(qualified, ".")
	if !ok {
		return fmt.Errorf("expected <schema.table>, got %q", qualified)
	}

	schema, err := findSchema(ctx, conn, schemaName)
	if err != nil {
		return err
	}
	tables, err := schema.Expand(ctx)
	if err != nil {
		return err
	}
	for _, tbl := range tables {
		if tbl.Label != tableName {
			continue
		}
		cols, err := tbl.Expand(ctx)
		if err != nil {
			return err
		}
		for _, col := range cols {
			_, _ = fmt.Fprintf(w, "%-4s %s\n", col.TypeLabel, col.Label)
		}
		return nil
	}
	return fmt.Errorf("relation %q not found in schema %q", tableName, schemaName)
}

func findSchema(ctx context.Context, conn *session.Connection, name string) (*catalog.Node, error) {
	tree, err := conn.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	for _, cat := range tree.Items {
		for _, schema := range cat.Children {
			if schema.Label == name {
				return schema, nil
			}
		}
	}
	return nil, fmt.Errorf("schema %q not found", name)
}

// newReplCompleter builds a readline completer from static keyword and
// function completions plus the catalog's schema names.
func newReplCompleter(ctx context.Context, conn *session.Connection) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	for _, comp := range conn.Completions() {
		items = append(items, readline.PcItem(comp.Label))
	}

	// Schema names come from the cached tree; a fetch failure just
	// means no schema completion this session.
	if tree, err := conn.Catalog(ctx); err == nil {
		for _, cat := range tree.Items {
			for _, schema := range cat.Children {
				items = append(items, readline.PcItem(schema.Label))
			}
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".schemas"),
		readline.PcItem(".tables"),
		readline.PcItem(".columns"),
		readline.PcItem(".refresh"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
