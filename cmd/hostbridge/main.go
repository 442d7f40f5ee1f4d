// Package main provides the entry point for hostbridge.
//
// hostbridge prepares a Go runtime for life inside a restricted host
// process and exposes the resulting facilities (trust bundle, asset
// protocol, preferences, resource bundles) as commands.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/hostbridge/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
