// CodeAtlas - structural code scanner and quality rule engine.
//
// CodeAtlas walks a source tree, extracts classes, functions, and
// metrics into a JSON index, and evaluates configurable quality rules
// against it.
package main

import (
	"fmt"
	"os"

	"github.com/codeatlas/codeatlas/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
