// Package inverters implements generator synthesis strategy 5 (spec.md
// §4.7 item 5): a small table of named-predicate rewrites, each
// recognising one built-in applied to the pattern variable and producing
// a Generator directly, rather than synthesising one structurally the way
// internal/generator's point/range/union/extent strategies do. Kept
// separate from internal/generator so the generic constraint-shape table
// and the named-built-in table can each grow independently.
package inverters

import (
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/generator"
)

// entry recognises one named built-in applied to the pattern variable and
// builds the Core expression enumerating the values it implies, e.g.
// `x elem xs` -> xs itself, `String.isPrefix x s` -> `prefixesOf s`.
type entry struct {
	name        string
	argOnLeft   bool // true when the pattern variable is the built-in's first argument
	build       func(sys types.TypeSystem, arg ir.Expr, patType types.Type) ir.Expr
	cardinality generator.Cardinality
}

// registry is consulted in order; the first matching entry wins.
var registry = []entry{
	{
		name:      "elem",
		argOnLeft: true,
		build: func(_ types.TypeSystem, arg ir.Expr, _ types.Type) ir.Expr {
			return arg
		},
		cardinality: generator.Finite,
	},
	{
		name:      "String.isPrefix",
		argOnLeft: true,
		build: func(sys types.TypeSystem, arg ir.Expr, patType types.Type) ir.Expr {
			fnT := sys.Function(arg.Type(), sys.List(patType))
			return ir.NewApp(sys.List(patType), ir.NewIdent(fnT, "prefixesOf", 0), arg)
		},
		cardinality: generator.Finite,
	},
	{
		name:      "String.isSuffix",
		argOnLeft: true,
		build: func(sys types.TypeSystem, arg ir.Expr, patType types.Type) ir.Expr {
			fnT := sys.Function(arg.Type(), sys.List(patType))
			return ir.NewApp(sys.List(patType), ir.NewIdent(fnT, "suffixesOf", 0), arg)
		},
		cardinality: generator.Finite,
	},
}

// Invert tries generator synthesis strategy 5 against conjuncts: a
// built-in named in the registry applied directly to pat. It returns the
// winning generator, the conjuncts it did not consume, and whether any
// entry matched. Callers try internal/generator.Synthesize first and fall
// through to Invert only when that returns false, matching the order
// spec.md §4.7 lists the five strategies in.
func Invert(sys types.TypeSystem, pat ir.Ident, conjuncts []ir.Expr) (generator.Generator, []ir.Expr, bool) {
	for i, c := range conjuncts {
		name, lhs, rhs, ok := asBinApp(c)
		if !ok {
			continue
		}
		for _, e := range registry {
			if e.name != name {
				continue
			}
			subject, arg := lhs, rhs
			if !e.argOnLeft {
				subject, arg = rhs, lhs
			}
			if !isIdentRef(pat, subject) {
				continue
			}
			ext := e.build(sys, arg, pat.Type())
			gen := generator.NewSequence(ext, e.cardinality, []ir.Expr{c})
			residual := append(append([]ir.Expr{}, conjuncts[:i]...), conjuncts[i+1:]...)
			return gen, residual, true
		}
	}
	return nil, conjuncts, false
}

func asBinApp(e ir.Expr) (name string, lhs, rhs ir.Expr, ok bool) {
	outer, ok := e.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	inner, ok := outer.Fun.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	id, ok := inner.Fun.(*ir.Ident)
	if !ok {
		return "", nil, nil, false
	}
	return id.Name, inner.Arg, outer.Arg, true
}

func isIdentRef(pat ir.Ident, e ir.Expr) bool {
	id, ok := e.(*ir.Ident)
	return ok && id.Name == pat.Name && id.Ord == pat.Ord
}
