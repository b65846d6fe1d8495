// Package main is the entry point of the ochotona command line.
package main

import (
	"os"

	"ochotona/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
