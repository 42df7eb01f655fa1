// Package main provides the Stagehand command-line SQL client.
package main

import (
	"os"

	"github.com/leapstack-labs/stagehand/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
