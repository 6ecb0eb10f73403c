package predinvert_test

import (
	"testing"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/predinvert"
)

var sys = types.NewTypeSystem()

func intT() types.Type  { return sys.Primitive(types.Int) }
func boolT() types.Type { return sys.Primitive(types.Bool) }

func ident(t types.Type, name string) ir.Ident { return *ir.NewIdent(t, name, 0) }

func binApp(name string, lhs, rhs ir.Expr, resultT types.Type) ir.Expr {
	fnT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), resultT))
	id := ir.NewIdent(fnT, name, 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), resultT), id, lhs)
	return ir.NewApp(resultT, partial, rhs)
}

func eq(lhs, rhs ir.Expr) ir.Expr      { return binApp("=", lhs, rhs, boolT()) }
func andAlso(lhs, rhs ir.Expr) ir.Expr { return binApp("andalso", lhs, rhs, boolT()) }
func orElse(lhs, rhs ir.Expr) ir.Expr  { return binApp("orelse", lhs, rhs, boolT()) }
func gt(lhs, rhs ir.Expr) ir.Expr      { return binApp(">", lhs, rhs, boolT()) }
func le(lhs, rhs ir.Expr) ir.Expr      { return binApp("<=", lhs, rhs, boolT()) }

// TestInvertPointPredicate covers spec.md §8 scenario 1 (point generator)
// routed through predinvert's flat, non-PPT path.
func TestInvertPointPredicate(t *testing.T) {
	x := ident(intT(), "p")
	def := predinvert.Def{
		Self:   ident(sys.Function(intT(), boolT()), "isSeven"),
		Params: []ir.Ident{x},
		Body:   eq(ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 7)),
	}
	gen, filters, ok := predinvert.Invert(sys, def, def.Params, nil)
	if !ok {
		t.Fatalf("Invert: ok = false, want true")
	}
	if len(filters) != 0 {
		t.Fatalf("filters = %v, want none", filters)
	}
	if gen == nil {
		t.Fatalf("gen = nil, want the point generator for p = 7")
	}
}

// TestInvertRangePredicateWithResidualFilter covers spec.md §8 scenario 2, with an extra
// leftover filter: ModeAnalyzer's greedy order must place the range
// conjuncts first and leave the unrelated filter as a residual.
func TestInvertRangePredicateWithResidualFilter(t *testing.T) {
	p := ident(intT(), "p")
	pRef := func() ir.Expr { return ir.NewIdent(intT(), p.Name, p.Ord) }
	lower := gt(pRef(), ir.IntLiteral(intT(), 3))
	upper := le(pRef(), ir.IntLiteral(intT(), 8))
	unrelated := gt(ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 0))

	def := predinvert.Def{
		Self:   ident(sys.Function(intT(), boolT()), "inRange"),
		Params: []ir.Ident{p},
		Body:   andAlso(andAlso(lower, upper), unrelated),
	}
	gen, filters, ok := predinvert.Invert(sys, def, def.Params, nil)
	if !ok {
		t.Fatalf("Invert: ok = false, want true")
	}
	if gen == nil {
		t.Fatalf("gen = nil, want the range generator")
	}
	if len(filters) != 1 || filters[0] != unrelated {
		t.Fatalf("filters = %v, want exactly [unrelated]", filters)
	}
}

// TestInvertDisjunctionRoutesThroughPPT covers spec.md §8 scenario 3: a
// top-level orelse is structure ModeAnalyzer's flat ordering cannot
// express, so predinvert must hand it to internal/ppt instead.
func TestInvertDisjunctionRoutesThroughPPT(t *testing.T) {
	p := ident(intT(), "p")
	pRef := func() ir.Expr { return ir.NewIdent(intT(), p.Name, p.Ord) }
	def := predinvert.Def{
		Self:   ident(sys.Function(intT(), boolT()), "isOneOrTwo"),
		Params: []ir.Ident{p},
		Body:   orElse(eq(pRef(), ir.IntLiteral(intT(), 1)), eq(pRef(), ir.IntLiteral(intT(), 2))),
	}
	gen, filters, ok := predinvert.Invert(sys, def, def.Params, nil)
	if !ok {
		t.Fatalf("Invert: ok = false, want true")
	}
	if len(filters) != 0 {
		t.Fatalf("filters = %v, want none", filters)
	}
	if gen == nil {
		t.Fatalf("gen = nil, want a union generator")
	}
}

// TestInvertFailsOnUngroundedRecursivePredicate mirrors the transitive
// closure pattern spec.md §4.9 names: the recursive arm cannot be unrolled
// without the interpreter, so inversion must fail rather than produce a
// partial answer (spec.md §7).
func TestInvertFailsOnUngroundedRecursivePredicate(t *testing.T) {
	predT := sys.Function(intT(), sys.Function(intT(), boolT()))
	self := ident(predT, "reach")
	x := ident(intT(), "x")
	y := ident(intT(), "y")

	base := eq(ir.NewIdent(intT(), y.Name, y.Ord), ir.NewIdent(intT(), x.Name, x.Ord))
	recCall := ir.NewApp(boolT(), ir.NewApp(sys.Function(intT(), boolT()), ir.NewIdent(predT, self.Name, self.Ord), ir.NewIdent(intT(), x.Name, x.Ord)), ir.NewIdent(intT(), y.Name, y.Ord))
	body := orElse(base, recCall)

	def := predinvert.Def{Self: self, Params: []ir.Ident{x, y}, Body: body}
	_, _, ok := predinvert.Invert(sys, def, []ir.Ident{x, y}, []ir.Ident{x})
	if ok {
		t.Fatalf("Invert: ok = true, want false for an unrollable recursive case")
	}
}

func TestFlattenParamsWalksCurriedChain(t *testing.T) {
	x := ident(intT(), "x")
	y := ident(intT(), "y")
	body := eq(ir.NewIdent(intT(), x.Name, x.Ord), ir.NewIdent(intT(), y.Name, y.Ord))
	inner := ir.NewFn(sys.Function(intT(), boolT()), y, body)
	outer := ir.NewFn(sys.Function(intT(), sys.Function(intT(), boolT())), x, inner)

	params, innerBody := predinvert.FlattenParams(outer)
	if len(params) != 2 || params[0].Name != "x" || params[1].Name != "y" {
		t.Fatalf("params = %v, want [x y]", params)
	}
	if innerBody != body {
		t.Fatalf("innerBody = %v, want the equality body", innerBody)
	}
}
