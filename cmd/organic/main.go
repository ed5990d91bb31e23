// Command organic compiles and runs an Organic source program: a small
// declarative language for procedural audio synthesis (spec.md §1). See
// internal/cli for flag handling and the compile/run pipeline.
package main

import (
	"os"

	"github.com/organic-audio/organic/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
