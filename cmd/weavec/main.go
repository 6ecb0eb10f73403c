// Command weavec is the CLI front end for the Weave compilation core
// (SPEC_FULL.md §10). It has no interactive REPL and no lexer/parser of
// its own — both are named external collaborators (spec.md §1) — so its
// one subcommand reads an already-resolved fixture instead of Weave
// source text.
package main

import (
	"os"

	"github.com/weave-lang/weavec/cmd/weavec/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
