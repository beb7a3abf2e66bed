// Package main provides the CLI for assetlink.
package main

import (
	"os"

	"github.com/leapstack-labs/assetlink/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
