// Package relationalize implements the Relationalizer (spec.md §4.6): it
// rewrites `List.map f xs` to `from e in xs yield f e` and
// `List.filter p xs` to `from e in xs where p e`, so that later passes
// only ever have to recognise comprehensions, never a separate map/filter
// application form, when deciding whether a fragment lowers relationally.
package relationalize

import (
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/shuttle"
	"github.com/weave-lang/weavec/internal/core/types"
)

// mapName and filterName are the built-in names the Resolver leaves a bare
// `List.map`/`List.filter` reference as (spec.md §4.1: unresolved
// identifiers fall through to the seed environment's prelude names), the
// same way infix operators become named built-ins the Inliner and
// relational scalar translator both recognise by name.
const (
	mapName    = "List.map"
	filterName = "List.filter"
)

// Relationalize runs one Relationalizer pass over x. It is stateful only in
// the synthetic row-variable names it mints for a freshly built
// comprehension; those never collide with any name to come out of the
// Resolver or Uniquifier, since user surface syntax cannot contain `$` and
// this pass uses a distinct literal suffix from the Resolver's own
// freshName counter.
func Relationalize(x ir.Expr) ir.Expr {
	rl := &relationalizer{}
	return rl.shuttle().WalkExpr(new(env.Env), x)
}

type relationalizer struct {
	counter int
}

func (rl *relationalizer) freshRow(t types.Type) ir.Ident {
	rl.counter++
	return *ir.NewIdent(t, "row$rel", rl.counter)
}

func (rl *relationalizer) shuttle() *shuttle.Shuttle {
	return &shuttle.Shuttle{
		PostHook: func(_ *env.Env, x ir.Expr) ir.Expr {
			name, f, xs, ok := matchMapOrFilter(x)
			if !ok {
				return x
			}
			switch name {
			case mapName:
				return rl.rewriteMap(x.Type(), f, xs)
			case filterName:
				return rl.rewriteFilter(x.Type(), f, xs)
			default:
				return x
			}
		},
	}
}

// matchMapOrFilter recognises `App(App(Ident(name), arg0), arg1)`, the
// curried-application shape every named built-in compiles to (spec.md
// §4.1's infix-operator rule uses the identical shape).
func matchMapOrFilter(x ir.Expr) (name string, arg0, arg1 ir.Expr, ok bool) {
	outer, ok := x.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	inner, ok := outer.Fun.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	id, ok := inner.Fun.(*ir.Ident)
	if !ok || (id.Name != mapName && id.Name != filterName) {
		return "", nil, nil, false
	}
	return id.Name, inner.Arg, outer.Arg, true
}

// rewriteMap builds `from e in xs yield f e`, or, when xs is already a
// comprehension whose yield is a plain record-of-identifiers row (the
// shape the Resolver's default yield always has, spec.md §4.1), rewrites
// the yield in place instead of nesting a new comprehension around it.
func (rl *relationalizer) rewriteMap(resultT types.Type, f, xs ir.Expr) ir.Expr {
	if c, ok := xs.(*ir.Comprehension); ok && isRecordOfIdents(c.Yield) {
		return ir.NewComprehension(resultT, c.Sources, c.Steps, ir.NewApp(resultT.Elem(), f, c.Yield))
	}
	elemT := f.Type().Param()
	row := rl.freshRow(elemT)
	src := ir.CompSource{Pat: ir.NewIdentPat(elemT, row), Expr: xs}
	yield := ir.NewApp(resultT.Elem(), f, ir.NewIdent(elemT, row.Name, row.Ord))
	return ir.NewComprehension(resultT, []ir.CompSource{src}, nil, yield)
}

// rewriteFilter builds `from e in xs where p e`, with the same in-place
// append when xs is already a comprehension with a record-of-identifiers
// yield: the new WhereStep tests p directly against that existing row
// instead of rebinding it under a fresh name first.
func (rl *relationalizer) rewriteFilter(resultT types.Type, p, xs ir.Expr) ir.Expr {
	if c, ok := xs.(*ir.Comprehension); ok && isRecordOfIdents(c.Yield) {
		cond := ir.NewApp(p.Type().Result(), p, c.Yield)
		steps := append(append([]ir.CompStep{}, c.Steps...), ir.WhereStep{Cond: cond})
		return ir.NewComprehension(resultT, c.Sources, steps, c.Yield)
	}
	elemT := p.Type().Param()
	row := rl.freshRow(elemT)
	src := ir.CompSource{Pat: ir.NewIdentPat(elemT, row), Expr: xs}
	rowRef := ir.NewIdent(elemT, row.Name, row.Ord)
	cond := ir.NewApp(p.Type().Result(), p, rowRef)
	return ir.NewComprehension(resultT, []ir.CompSource{src}, []ir.CompStep{ir.WhereStep{Cond: cond}}, ir.NewIdent(elemT, row.Name, row.Ord))
}

// isRecordOfIdents reports whether e is exactly the shape the Resolver's
// implicit default yield always builds: a Record literal whose every
// element is a bare identifier reference (spec.md §4.1 "defaultYield").
// Any record matching this shape, explicit or implicit, is safe to re-embed
// in place of a fresh row binding: it computes nothing beyond the row
// already in scope, so referencing it again duplicates no work.
func isRecordOfIdents(e ir.Expr) bool {
	rec, ok := e.(*ir.Record)
	if !ok {
		return false
	}
	for _, el := range rec.Elems {
		if _, ok := el.(*ir.Ident); !ok {
			return false
		}
	}
	return true
}
