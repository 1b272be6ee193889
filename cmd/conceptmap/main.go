// conceptmap renders concept-map diagrams and lets you explore them:
// interactively in the terminal, as exported SVG, or as an id report.
//
// Run: go run ./cmd/conceptmap view diagram.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", bad.Sprint("error:"), err)
		os.Exit(1)
	}
}
