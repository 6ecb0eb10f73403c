package compiler_test

import (
	"strconv"
	"testing"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/compiler"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/memrel"
	"github.com/weave-lang/weavec/internal/typemap"
)

var sys = types.NewTypeSystem()

func intT() types.Type  { return sys.Primitive(types.Int) }
func boolT() types.Type { return sys.Primitive(types.Bool) }

// TestCompileBetaReduction mirrors spec.md §8 scenario 5: `(fn x => x + 1)
// 5` fully inlines to the literal `6`.
func TestCompileBetaReduction(t *testing.T) {
	tm := typemap.NewMap()

	five := &ast.Literal{Kind: ast.IntLit, Text: "5"}
	one := &ast.Literal{Kind: ast.IntLit, Text: "1"}
	xRef := &ast.Ident{Name: "x"}
	body := &ast.Infix{Op: "+", Lhs: xRef, Rhs: one}
	xPat := &ast.IdentPat{Name: "x"}
	fn := &ast.Fn{Matches: []ast.Match{{Pat: xPat, Body: body}}}
	app := &ast.App{Fun: fn, Arg: five}
	resultPat := &ast.IdentPat{Name: "result"}
	decl := &ast.ValDecl{Pat: resultPat, Expr: app}

	fnT := sys.Function(intT(), intT())
	tm.Set(five, intT())
	tm.Set(one, intT())
	tm.Set(xRef, intT())
	tm.Set(body, intT())
	tm.Set(fn, fnT)
	tm.Set(app, intT())
	tm.Set(resultPat, intT())

	c := compiler.New(sys, tm, nil, 0)
	code, err := c.Compile(nil, decl)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	v, ok := code.Decl.(ir.ValDecl)
	if !ok {
		t.Fatalf("Decl = %T, want ir.ValDecl", code.Decl)
	}
	lit, ok := v.Value.(*ir.Literal)
	if !ok {
		t.Fatalf("Value = %T, want *ir.Literal", v.Value)
	}
	if lit.Kind != ir.IntLit || lit.Int != 6 {
		t.Fatalf("Value = %+v, want the integer literal 6", lit)
	}
	if code.Rel != nil {
		t.Fatalf("Rel = %v, want nil (not a comprehension)", code.Rel)
	}
}

// TestCompileCaseOfLiteralFolding mirrors spec.md §8 scenario 4: `case
// SOME 3 of NONE => 0 | SOME y => y + 1` folds to `4`.
func TestCompileCaseOfLiteralFolding(t *testing.T) {
	tm := typemap.NewMap()

	optionT := sys.Data("option", []types.Type{intT()})
	three := &ast.Literal{Kind: ast.IntLit, Text: "3"}
	someThree := &ast.App{Fun: &ast.Ident{Name: "SOME"}, Arg: three}

	zero := &ast.Literal{Kind: ast.IntLit, Text: "0"}
	noneMatch := ast.Match{Pat: &ast.Con0Pat{Name: "NONE"}, Body: zero}

	yPat := &ast.IdentPat{Name: "y"}
	yRef := &ast.Ident{Name: "y"}
	oneLit := &ast.Literal{Kind: ast.IntLit, Text: "1"}
	yPlusOne := &ast.Infix{Op: "+", Lhs: yRef, Rhs: oneLit}
	somePat := &ast.ConPat{Name: "SOME", Arg: yPat}
	someMatch := ast.Match{Pat: somePat, Body: yPlusOne}

	caseExpr := &ast.Case{Scrutinee: someThree, Matches: []ast.Match{noneMatch, someMatch}}

	// The datatype is declared locally, ahead of the expression that uses
	// it, so one Resolver sees both: spec.md §4.1's DatatypeDecl
	// constructor bindings only live in the Resolver's own scope, not in
	// the environment seed, so a constructor used across two separate
	// Compile calls would not resolve.
	dt := &ast.DatatypeDecl{Types: []ast.Datatype{{
		Name: "option",
		Cons: []ast.DatatypeCon{
			{Name: "NONE"},
			{Name: "SOME", Arg: &ast.Type{Name: "int"}},
		},
	}}}
	letExpr := &ast.Let{Decl: dt, Body: caseExpr}
	resultPat := &ast.IdentPat{Name: "result"}
	decl := &ast.ValDecl{Pat: resultPat, Expr: letExpr}

	tm.Set(three, intT())
	tm.Set(someThree, optionT)
	tm.Set(zero, intT())
	tm.Set(noneMatch.Pat, optionT)
	tm.Set(yRef, intT())
	tm.Set(oneLit, intT())
	tm.Set(yPlusOne, intT())
	tm.Set(yPat, intT())
	tm.Set(somePat, optionT)
	tm.Set(caseExpr, intT())
	tm.Set(letExpr, intT())
	tm.Set(resultPat, intT())

	c := compiler.New(sys, tm, nil, 0)
	code, err := c.Compile(nil, decl)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	v, ok := code.Decl.(ir.ValDecl)
	if !ok {
		t.Fatalf("Decl = %T, want ir.ValDecl", code.Decl)
	}
	value := v.Value
	if lt, ok := value.(*ir.LocalType); ok {
		value = lt.Body
	}
	lit, ok := value.(*ir.Literal)
	if !ok {
		t.Fatalf("Value = %T, want *ir.Literal", value)
	}
	if lit.Kind != ir.IntLit || lit.Int != 4 {
		t.Fatalf("Value = %+v, want the integer literal 4", lit)
	}
}

// TestCompileRelationalLowering mirrors spec.md §8 scenario 6: `from e in
// [{a=1,b=2},{a=3,b=4}] where #a e > 1 yield #b e` lowers to a plan
// evaluating to the bag {4}.
func TestCompileRelationalLowering(t *testing.T) {
	tm := typemap.NewMap()

	rowT := sys.Record([]string{"a", "b"}, []types.Type{intT(), intT()})
	listT := sys.List(rowT)

	mk := func(a, b int64) (*ast.Literal, *ast.Literal, *ast.RecordExpr) {
		aLit := &ast.Literal{Kind: ast.IntLit, Text: strconv.FormatInt(a, 10)}
		bLit := &ast.Literal{Kind: ast.IntLit, Text: strconv.FormatInt(b, 10)}
		rec := &ast.RecordExpr{Labels: []string{"a", "b"}, Elems: []ast.Expr{aLit, bLit}}
		tm.Set(aLit, intT())
		tm.Set(bLit, intT())
		tm.Set(rec, rowT)
		return aLit, bLit, rec
	}
	_, _, rec1 := mk(1, 2)
	_, _, rec2 := mk(3, 4)
	list := &ast.ListExpr{Elems: []ast.Expr{rec1, rec2}}
	tm.Set(list, listT)

	ePat := &ast.IdentPat{Name: "e"}
	eRefSelA := &ast.Ident{Name: "e"}
	selA := &ast.Select{Label: "a", Expr: eRefSelA}
	oneLit := &ast.Literal{Kind: ast.IntLit, Text: "1"}
	cond := &ast.Infix{Op: ">", Lhs: selA, Rhs: oneLit}

	eRefSelB := &ast.Ident{Name: "e"}
	selB := &ast.Select{Label: "b", Expr: eRefSelB}

	from := &ast.From{
		Sources: []ast.Source{{Pat: ePat, Expr: list}},
		Steps:   []ast.Step{{Kind: ast.WhereStep{Cond: cond}}},
		Yield:   selB,
	}
	resultPat := &ast.IdentPat{Name: "result"}
	decl := &ast.ValDecl{Pat: resultPat, Expr: from}

	tm.Set(ePat, rowT)
	tm.Set(eRefSelA, rowT)
	tm.Set(selA, intT())
	tm.Set(oneLit, intT())
	tm.Set(cond, boolT())
	tm.Set(eRefSelB, rowT)
	tm.Set(selB, intT())
	tm.Set(from, sys.List(intT()))
	tm.Set(resultPat, sys.List(intT()))

	builder := memrel.New(sys)
	c := compiler.New(sys, tm, builder, 0)
	code, err := c.Compile(nil, decl)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if code.Rel == nil {
		t.Fatalf("Rel = nil, want a lowered plan")
	}
	plan, ok := code.Rel.(*memrel.Plan)
	if !ok {
		t.Fatalf("Rel = %T, want *memrel.Plan", code.Rel)
	}
	if len(plan.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (only b=4 survives a>1): %v", len(plan.Rows), plan.Rows)
	}
	v, ok := plan.Rows[0][""]
	if !ok || v.(int64) != 4 {
		t.Fatalf("rows[0] = %v, want the unnamed column 4", plan.Rows[0])
	}
}

