// Command rosalloy analyzes bounded relational models: it verifies
// properties by counterexample search and finds witnesses for predicates
// within per-signature cardinality scopes.
package main

import (
	"fmt"
	"os"

	"github.com/eskang/RosAlloy/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
