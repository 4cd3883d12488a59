// Package main is the entry point for the waclaw CLI.
package main

import (
	"os"

	"github.com/WaClaw/WaClaw/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
