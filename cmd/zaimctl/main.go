// Command zaimctl holds the operator tools around the relay: dumping the
// Zaim genre table, bootstrapping OAuth tokens and dry-running the parser.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
