// Package main provides the autonomos admin tool.
package main

import (
	"os"

	"autonomos/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
