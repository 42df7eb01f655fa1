package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "stagehand v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "SQL client for AWS Athena")
		},
	}
}
