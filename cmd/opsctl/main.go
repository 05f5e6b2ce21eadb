// Package main is the entry point for the opsctl admin tool.
package main

import (
	"os"

	"github.com/brightpath-dev/opsdesk/cmd/opsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
