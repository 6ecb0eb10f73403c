package memrel_test

import (
	"testing"

	"github.com/kr/pretty"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/memrel"
	"github.com/weave-lang/weavec/internal/rellower"
)

var sys = types.NewTypeSystem()

func intT() types.Type { return sys.Primitive(types.Int) }
func boolT() types.Type { return sys.Primitive(types.Bool) }
func ident(t types.Type, name string) ir.Ident { return *ir.NewIdent(t, name, 0) }

func binApp(name string, lhs, rhs ir.Expr, resultT types.Type) ir.Expr {
	fnT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), resultT))
	id := ir.NewIdent(fnT, name, 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), resultT), id, lhs)
	return ir.NewApp(resultT, partial, rhs)
}

func rowsOf(t *testing.T, plan *memrel.Plan) []map[string]any {
	t.Helper()
	out := make([]map[string]any, len(plan.Rows))
	for i, r := range plan.Rows {
		m := map[string]any{}
		for k, v := range r {
			m[k] = v
		}
		out[i] = m
	}
	return out
}

func TestWhereFilterAndYield(t *testing.T) {
	x := ident(intT(), "x")
	src := ir.CompSource{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}
	where := ir.WhereStep{Cond: binApp(">", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 2), boolT())}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{src},
		Steps:   []ir.CompStep{where},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}})

	result, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	rows := rowsOf(t, plan)
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (x=3, x=4): %v", len(rows), rows)
	}
	var got []int64
	for _, r := range rows {
		for _, v := range r {
			got = append(got, v.(int64))
		}
	}
	seen := map[int64]bool{}
	for _, v := range got {
		seen[v] = true
	}
	if !seen[3] || !seen[4] {
		t.Fatalf("rows = %v, want values {3,4}", rows)
	}
}

func TestJoinTwoSources(t *testing.T) {
	x := ident(intT(), "x")
	y := ident(intT(), "y")
	srcs := []ir.CompSource{
		{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)},
		{Pat: ir.NewIdentPat(intT(), y), Expr: ir.NewIdent(sys.List(intT()), "ys", 0)},
	}
	where := ir.WhereStep{Cond: binApp("=", ir.NewIdent(intT(), x.Name, x.Ord), ir.NewIdent(intT(), y.Name, y.Ord), boolT())}
	comp := &ir.Comprehension{
		Sources: srcs,
		Steps:   []ir.CompStep{where},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(2)}})
	b.Register("ys", []string{"v"}, [][]any{{int64(2)}, {int64(3)}})

	result, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	if len(plan.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (only x=y=2 matches): %v", len(plan.Rows), plan.Rows)
	}
}

func TestGroupAggregateSum(t *testing.T) {
	x := ident(intT(), "x")
	total := ident(intT(), "total")
	group := ir.GroupStep{
		Keys: nil,
		Aggs: []ir.NamedAgg{{Name: "total", Op: "sum", Expr: ir.NewIdent(intT(), x.Name, x.Ord)}},
	}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		Steps:   []ir.CompStep{group},
		// references the aggregate binding rebindAfterGroup introduces, not
		// the pre-group row variable x (which no longer denotes anything
		// once rows have collapsed into groups).
		Yield: ir.NewIdent(intT(), total.Name, total.Ord),
	}

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})

	result, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	if len(plan.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 group", len(plan.Rows))
	}
	total, ok := plan.Rows[0][""]
	if !ok {
		t.Fatalf("rows[0] = %v, want the yield's single unnamed column", plan.Rows[0])
	}
	if total.(int64) != 6 {
		t.Fatalf("total = %v, want 6", total)
	}
}

// TestUnionOfTwoScansDeduplicatesNothingButConcatenates mirrors spec.md
// §4.10.2 end to end: `xs union ys` lowers to Builder.Union over two
// function scans and evaluates to the bag union of their rows.
func TestUnionOfTwoScansDeduplicatesNothingButConcatenates(t *testing.T) {
	x := ident(intT(), "x")
	left := ir.NewComprehension(sys.List(intT()),
		[]ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		nil,
		ir.NewIdent(intT(), x.Name, x.Ord),
	)
	y := ident(intT(), "y")
	right := ir.NewComprehension(sys.List(intT()),
		[]ir.CompSource{{Pat: ir.NewIdentPat(intT(), y), Expr: ir.NewIdent(sys.List(intT()), "ys", 0)}},
		nil,
		ir.NewIdent(intT(), y.Name, y.Ord),
	)
	setOp := binApp("union", left, right, sys.List(intT()))

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(2)}})
	b.Register("ys", []string{"v"}, [][]any{{int64(2)}, {int64(3)}})

	result, ok := rellower.ToRel(b, sys, setOp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	if len(plan.Rows) != 4 {
		t.Fatalf("len(rows) = %d, want 4 (bag union keeps duplicates):\n%s", len(plan.Rows), pretty.Sprint(plan.Rows))
	}
}

// TestExceptOfTwoScansRemovesSharedRows covers the `minus` side of the
// same wiring, with `harmonizeTop` relied on to make rows from the two
// sides comparable in the first place (each lowers from a source under a
// different row variable name).
func TestExceptOfTwoScansRemovesSharedRows(t *testing.T) {
	x := ident(intT(), "x")
	left := ir.NewComprehension(sys.List(intT()),
		[]ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		nil,
		ir.NewIdent(intT(), x.Name, x.Ord),
	)
	y := ident(intT(), "y")
	right := ir.NewComprehension(sys.List(intT()),
		[]ir.CompSource{{Pat: ir.NewIdentPat(intT(), y), Expr: ir.NewIdent(sys.List(intT()), "ys", 0)}},
		nil,
		ir.NewIdent(intT(), y.Name, y.Ord),
	)
	setOp := binApp("except", left, right, sys.List(intT()))

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})
	b.Register("ys", []string{"v"}, [][]any{{int64(2)}})

	result, ok := rellower.ToRel(b, sys, setOp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	if len(plan.Rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (x=1 and x=3):\n%s", len(plan.Rows), pretty.Sprint(plan.Rows))
	}
	for _, r := range plan.Rows {
		for _, v := range r {
			if v.(int64) == 2 {
				t.Fatalf("rows = %s, want 2 removed by except", pretty.Sprint(plan.Rows))
			}
		}
	}
}

func TestScalarEscapeEvaluatesOpaqueLiteral(t *testing.T) {
	x := ident(intT(), "x")
	// An opaque literal (spec.md §3: "a value the core does not interpret
	// itself") can never translate to a relbuilder.Lit, so comparing x
	// against one forces the whole conjunct through the ScalarEscape path;
	// memrel's reference evaluator still resolves it since the opaque
	// payload happens to be a plain int64 underneath.
	opaque := &ir.Literal{Typed: ir.TypeOf(ir.IntLiteral(intT(), 0)), Kind: ir.OpaqueLit, Opaque: int64(3), OpaqueTag: "external-handle"}
	cond := binApp("=", ir.NewIdent(intT(), x.Name, x.Ord), opaque, boolT())
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		Steps:   []ir.CompStep{ir.WhereStep{Cond: cond}},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := memrel.New(sys)
	b.Register("xs", []string{"v"}, [][]any{{int64(1)}, {int64(3)}})

	result, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	plan := result.(*memrel.Plan)
	if len(plan.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (x=3 only), got %v", len(plan.Rows), plan.Rows)
	}
}
