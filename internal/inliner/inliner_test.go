package inliner_test

import (
	"testing"

	"github.com/weave-lang/weavec/internal/analyzer"
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/inliner"
)

var sys = types.NewTypeSystem()

func intT() types.Type { return sys.Primitive(types.Int) }

func TestInlineIdentifierFromAnalysis(t *testing.T) {
	// let x = 1 in x  ->  1
	x := *ir.NewIdent(intT(), "x", 0)
	let := ir.NewLet(intT(), ir.NewIdentPat(intT(), x), ir.IntLiteral(intT(), 1), ir.NewIdent(intT(), "x", 0))

	a := analyzer.Analyze(let)
	got := inliner.Inline(sys, nil, a, let)

	lit, ok := got.(*ir.Literal)
	if !ok || lit.Kind != ir.IntLit || lit.Int != 1 {
		t.Fatalf("got %#v, want literal 1", got)
	}
}

func TestInlineDoesNotSubstituteMultiSafe(t *testing.T) {
	// let x = 1 in (x, x) -- two uses, safe RHS: MULTI_SAFE, never substituted
	x := *ir.NewIdent(intT(), "x", 0)
	tupT := sys.Tuple([]types.Type{intT(), intT()})
	body := ir.NewTuple(tupT, []ir.Expr{ir.NewIdent(intT(), "x", 0), ir.NewIdent(intT(), "x", 0)})
	let := ir.NewLet(tupT, ir.NewIdentPat(intT(), x), ir.IntLiteral(intT(), 1), body)

	a := analyzer.Analyze(let)
	got := inliner.Inline(sys, nil, a, let)

	stillLet, ok := got.(*ir.Let)
	if !ok {
		t.Fatalf("got %#v, want the Let to survive (MULTI_SAFE binder)", got)
	}
	tup, ok := stillLet.Body.(*ir.Tuple)
	if !ok || len(tup.Elems) != 2 {
		t.Fatalf("body = %#v, want a 2-tuple of Idents", stillLet.Body)
	}
	for _, el := range tup.Elems {
		if _, ok := el.(*ir.Ident); !ok {
			t.Fatalf("element %#v, want an unsubstituted Ident", el)
		}
	}
}

func TestInlineMacroFromSeedEnv(t *testing.T) {
	// A free identifier not declared anywhere in x, resolved via a macro
	// binding in the seed environment (spec.md §9 "Macros and opaque
	// values").
	called := false
	macro := env.MacroBinding(func(s types.TypeSystem, e *env.Env, argType types.Type) ir.Expr {
		called = true
		return ir.IntLiteral(argType, 42)
	})
	seed := new(env.Env).Bind("answer", macro)

	ref := ir.NewIdent(intT(), "answer", 0)
	got := inliner.Inline(sys, seed, nil, ref)

	if !called {
		t.Fatalf("macro was never invoked")
	}
	lit, ok := got.(*ir.Literal)
	if !ok || lit.Int != 42 {
		t.Fatalf("got %#v, want literal 42", got)
	}
}

func TestInlineSelectOverRecord(t *testing.T) {
	// #b {a = 1, b = 2}  ->  2
	recT := sys.Record([]string{"a", "b"}, []types.Type{intT(), intT()})
	rec := ir.NewRecord(recT, []string{"a", "b"}, []ir.Expr{ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 2)})
	sel := ir.NewSelect(intT(), "b", 1, rec)

	got := inliner.Inline(sys, nil, nil, sel)

	lit, ok := got.(*ir.Literal)
	if !ok || lit.Int != 2 {
		t.Fatalf("got %#v, want literal 2", got)
	}
}

func TestInlineSelectOverTuple(t *testing.T) {
	// #1 (10, 20)  ->  10  (Index is already 0-based, resolved upstream)
	tupT := sys.Tuple([]types.Type{intT(), intT()})
	tup := ir.NewTuple(tupT, []ir.Expr{ir.IntLiteral(intT(), 10), ir.IntLiteral(intT(), 20)})
	sel := ir.NewSelect(intT(), "", 0, tup)

	got := inliner.Inline(sys, nil, nil, sel)

	lit, ok := got.(*ir.Literal)
	if !ok || lit.Int != 10 {
		t.Fatalf("got %#v, want literal 10", got)
	}
}

func TestInlineBetaReduction(t *testing.T) {
	// (fn x => x) 5  ->  let x = 5 in x
	x := *ir.NewIdent(intT(), "x", 0)
	fn := ir.NewFn(sys.Function(intT(), intT()), x, ir.NewIdent(intT(), "x", 0))
	app := ir.NewApp(intT(), fn, ir.IntLiteral(intT(), 5))

	got := inliner.Inline(sys, nil, nil, app)

	let, ok := got.(*ir.Let)
	if !ok {
		t.Fatalf("got %#v, want a Let", got)
	}
	if _, ok := let.Pat.(ir.IdentPat); !ok {
		t.Fatalf("Pat = %#v, want IdentPat", let.Pat)
	}
	if lit, ok := let.Value.(*ir.Literal); !ok || lit.Int != 5 {
		t.Fatalf("Value = %#v, want literal 5", let.Value)
	}
}

func TestInlineSingletonCaseIdent(t *testing.T) {
	// case 5 of x => x  ->  let x = 5 in x
	x := *ir.NewIdent(intT(), "x", 0)
	c := ir.NewCase(intT(), ir.IntLiteral(intT(), 5), []ir.Match{
		{Pat: ir.NewIdentPat(intT(), x), Body: ir.NewIdent(intT(), "x", 0)},
	})

	got := inliner.Inline(sys, nil, nil, c)

	let, ok := got.(*ir.Let)
	if !ok {
		t.Fatalf("got %#v, want a Let", got)
	}
	if lit, ok := let.Value.(*ir.Literal); !ok || lit.Int != 5 {
		t.Fatalf("Value = %#v, want literal 5", let.Value)
	}
}

func TestInlineSingletonCaseTupleDistributes(t *testing.T) {
	// case (1, 2) of (a, b) => a  ->  let a = 1 in let b = 2 in a
	tupT := sys.Tuple([]types.Type{intT(), intT()})
	a := *ir.NewIdent(intT(), "a", 0)
	b := *ir.NewIdent(intT(), "b", 0)
	scrutinee := ir.NewTuple(tupT, []ir.Expr{ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 2)})
	pat := ir.NewTuplePat(tupT, []ir.Pattern{ir.NewIdentPat(intT(), a), ir.NewIdentPat(intT(), b)})
	c := ir.NewCase(intT(), scrutinee, []ir.Match{{Pat: pat, Body: ir.NewIdent(intT(), "a", 0)}})

	got := inliner.Inline(sys, nil, nil, c)

	outer, ok := got.(*ir.Let)
	if !ok {
		t.Fatalf("got %#v, want outer Let (for a)", got)
	}
	if lit, ok := outer.Value.(*ir.Literal); !ok || lit.Int != 1 {
		t.Fatalf("outer Value = %#v, want literal 1", outer.Value)
	}
	inner, ok := outer.Body.(*ir.Let)
	if !ok {
		t.Fatalf("outer.Body = %#v, want inner Let (for b)", outer.Body)
	}
	if lit, ok := inner.Value.(*ir.Literal); !ok || lit.Int != 2 {
		t.Fatalf("inner Value = %#v, want literal 2", inner.Value)
	}
}

func TestInlineCaseOfLiteralFolds(t *testing.T) {
	// case 2 of 1 => "one" | 2 => "two" | _ => "other"  ->  "two"
	strT := sys.Primitive(types.String)
	c := ir.NewCase(strT, ir.IntLiteral(intT(), 2), []ir.Match{
		{Pat: ir.NewLiteralPat(intT(), *ir.IntLiteral(intT(), 1)), Body: ir.StringLiteral(strT, "one")},
		{Pat: ir.NewLiteralPat(intT(), *ir.IntLiteral(intT(), 2)), Body: ir.StringLiteral(strT, "two")},
		{Pat: ir.NewWildcardPat(intT()), Body: ir.StringLiteral(strT, "other")},
	})

	got := inliner.Inline(sys, nil, nil, c)

	lit, ok := got.(*ir.Literal)
	if !ok || lit.Kind != ir.StringLit || lit.String != "two" {
		t.Fatalf("got %#v, want literal \"two\"", got)
	}
}

func TestInlineCaseOfConstructorFolds(t *testing.T) {
	// case SOME 7 of NONE => 0 | SOME n => n  ->  let n = 7 in n
	dataT := sys.Data("option", []types.Type{intT()})
	scrutinee := ir.NewConApp(dataT, "SOME", ir.IntLiteral(intT(), 7))
	n := *ir.NewIdent(intT(), "n", 0)
	c := ir.NewCase(intT(), scrutinee, []ir.Match{
		{Pat: ir.NewCon0Pat(dataT, "NONE"), Body: ir.IntLiteral(intT(), 0)},
		{Pat: ir.NewConPat(dataT, "SOME", ir.NewIdentPat(intT(), n)), Body: ir.NewIdent(intT(), "n", 0)},
	})

	got := inliner.Inline(sys, nil, nil, c)

	let, ok := got.(*ir.Let)
	if !ok {
		t.Fatalf("got %#v, want a Let binding n", got)
	}
	if lit, ok := let.Value.(*ir.Literal); !ok || lit.Int != 7 {
		t.Fatalf("Value = %#v, want literal 7", let.Value)
	}
}

func TestInlineCaseOfUnknownScrutineeDeclines(t *testing.T) {
	// case f x of 1 => "a" | _ => "b" -- scrutinee isn't a known literal, so
	// folding must decline and leave the Case as-is.
	strT := sys.Primitive(types.String)
	fnRef := ir.NewIdent(sys.Function(intT(), intT()), "f", 0)
	arg := ir.NewIdent(intT(), "x", 0)
	scrutinee := ir.NewApp(intT(), fnRef, arg)
	c := ir.NewCase(strT, scrutinee, []ir.Match{
		{Pat: ir.NewLiteralPat(intT(), *ir.IntLiteral(intT(), 1)), Body: ir.StringLiteral(strT, "a")},
		{Pat: ir.NewWildcardPat(intT()), Body: ir.StringLiteral(strT, "b")},
	})

	got := inliner.Inline(sys, nil, nil, c)

	if _, ok := got.(*ir.Case); !ok {
		t.Fatalf("got %#v, want the Case to survive unfolded", got)
	}
}

func TestInlineDropsDeadLet(t *testing.T) {
	// let x = 1 in 2  ->  2
	x := *ir.NewIdent(intT(), "x", 0)
	let := ir.NewLet(intT(), ir.NewIdentPat(intT(), x), ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 2))

	a := analyzer.Analyze(let)
	got := inliner.Inline(sys, nil, a, let)

	lit, ok := got.(*ir.Literal)
	if !ok || lit.Int != 2 {
		t.Fatalf("got %#v, want literal 2 (declaration dropped)", got)
	}
}

func TestInlineKeepsUnsafeDeadLet(t *testing.T) {
	// let x = f y in 2 -- x is unused, but its value is an App (unsafe to
	// discard: might not terminate or might have an effect), so the
	// declaration must survive for its evaluation's sake.
	fnRef := ir.NewIdent(sys.Function(intT(), intT()), "f", 0)
	arg := ir.NewIdent(intT(), "y", 0)
	value := ir.NewApp(intT(), fnRef, arg)
	x := *ir.NewIdent(intT(), "x", 0)
	let := ir.NewLet(intT(), ir.NewIdentPat(intT(), x), value, ir.IntLiteral(intT(), 2))

	a := analyzer.Analyze(let)
	got := inliner.Inline(sys, nil, a, let)

	if _, ok := got.(*ir.Let); !ok {
		t.Fatalf("got %#v, want the Let to survive (unsafe value)", got)
	}
}
