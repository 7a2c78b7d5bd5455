// Package main is the entry point for the ringline CLI.
package main

import (
	"os"

	"github.com/ringline/ringline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
