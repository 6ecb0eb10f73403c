package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weave-lang/weavec/internal/compiler"
	"github.com/weave-lang/weavec/internal/config"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/fixture"
	"github.com/weave-lang/weavec/internal/memrel"
	"github.com/weave-lang/weavec/internal/relbuilder"
)

func newCompileCmd(c *Command) *cobra.Command {
	var configPath string
	var rel bool
	var trace bool

	cmd := &cobra.Command{
		Use:   "compile <fixture.yaml>",
		Short: "resolve and optimise a fixture declaration, printing the result",
		Long: `compile reads a fixture YAML document describing an already-resolved
surface declaration plus its type map (the lexer/parser and the
Hindley-Milner unifier are external collaborators this module does not
implement) and drives the compile pipeline: resolve, uniquify,
analyze/inline to a fixed point, relationalize, and — when --rel is set
and the declaration is a val — attempt relational lowering of its value
(a comprehension or a union/except/intersect) against the in-memory
reference RelBuilder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCompile(args[0], configPath, rel, trace)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "weave.yaml", "path to a weave.yaml configuration file")
	cmd.Flags().BoolVar(&rel, "rel", false, "attempt relational lowering against the reference RelBuilder")
	cmd.Flags().BoolVar(&trace, "trace", false, "print the iteration cap and lowering outcome")

	return cmd
}

func runCompile(fixturePath, configPath string, rel, trace bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	trace = trace || cfg.Trace

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("reading fixture: %w", err)
	}
	var fx fixture.Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parsing fixture: %w", err)
	}

	sys := types.NewTypeSystem()
	conv := fixture.NewConverter(sys)
	decl, err := conv.Decl(&fx.Decl)
	if err != nil {
		return fmt.Errorf("converting fixture: %w", err)
	}

	// builder must stay a nil interface, not a typed nil *memrel.Builder,
	// or compiler.Compile's "c.Builder != nil" check would see a non-nil
	// interface wrapping a nil pointer and attempt lowering anyway.
	var builder relbuilder.Builder
	if rel {
		builder = memrel.New(sys)
	}

	if trace {
		fmt.Fprintf(os.Stderr, "weavec: iteration cap %d, relational lowering %v\n", cfg.IterationCap, rel)
	}

	comp := compiler.New(sys, conv.TM, builder, cfg.IterationCap)
	code, err := comp.Compile(nil, decl)
	if err != nil {
		return err
	}

	printCode(os.Stdout, code, trace)
	return nil
}

// printCode writes the compiled result: the relational plan when toRel
// succeeded, otherwise the optimised Core expression via ir.Sdump — the
// Core-IR pretty-printer spec.md §10 names as the CLI's one output format.
func printCode(w *os.File, code *compiler.Code, trace bool) {
	if plan, ok := code.Rel.(*memrel.Plan); ok {
		fmt.Fprintf(w, "columns: %v\n", plan.Columns)
		for _, row := range plan.Rows {
			fmt.Fprintf(w, "%v\n", row)
		}
		return
	}
	if trace {
		fmt.Fprintln(os.Stderr, "weavec: no relational plan, printing optimised Core expression")
	}
	switch d := code.Decl.(type) {
	case ir.ValDecl:
		fmt.Fprintln(w, ir.Sdump(d.Value))
	case ir.RecValDecl:
		for _, b := range d.Bindings {
			fmt.Fprintf(w, "%s =\n%s\n", b.Name, ir.Sdump(b.Expr))
		}
	case ir.DatatypeDecl:
		for _, t := range d.Types {
			fmt.Fprintf(w, "datatype %s\n", t.Name)
		}
	}
}
