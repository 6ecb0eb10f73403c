package rellower_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/predinvert"
	"github.com/weave-lang/weavec/internal/relbuilder"
	"github.com/weave-lang/weavec/internal/rellower"
)

// assertCalls compares the builder's recorded call sequence against want,
// reporting the full diff on mismatch rather than the first differing index.
func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

var sys = types.NewTypeSystem()

func intT() types.Type   { return sys.Primitive(types.Int) }
func boolT() types.Type  { return sys.Primitive(types.Bool) }
func ident(t types.Type, name string) ir.Ident { return *ir.NewIdent(t, name, 0) }

func binApp(name string, lhs, rhs ir.Expr, resultT types.Type) ir.Expr {
	fnT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), resultT))
	id := ir.NewIdent(fnT, name, 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), resultT), id, lhs)
	return ir.NewApp(resultT, partial, rhs)
}

// fakeBuilder is a minimal in-memory relbuilder.Builder recording enough
// of the call sequence for assertions, without depending on any real
// backend (the reference RelBuilder belongs to internal/memrel).
type fakeBuilder struct {
	stack []relbuilder.RelPlan
	calls []string
}

type fakePlan struct {
	kind  string
	alias string
	extra any
}

func newFakeBuilder() *fakeBuilder { return &fakeBuilder{} }

func (b *fakeBuilder) push(p relbuilder.RelPlan) { b.stack = append(b.stack, p) }
func (b *fakeBuilder) top() relbuilder.RelPlan    { return b.stack[len(b.stack)-1] }
func (b *fakeBuilder) replaceTop(p relbuilder.RelPlan) {
	b.stack[len(b.stack)-1] = p
}

func (b *fakeBuilder) Push(plan relbuilder.RelPlan) relbuilder.Builder {
	b.calls = append(b.calls, "push")
	b.push(plan)
	return b
}
func (b *fakeBuilder) As(alias string) relbuilder.Builder {
	b.calls = append(b.calls, "as:"+alias)
	p := b.top().(fakePlan)
	p.alias = alias
	b.replaceTop(p)
	return b
}
func (b *fakeBuilder) Project(fields []relbuilder.Rex, names []string) relbuilder.Builder {
	b.calls = append(b.calls, "project")
	b.replaceTop(fakePlan{kind: "project", extra: names})
	return b
}
func (b *fakeBuilder) Filter(rex relbuilder.Rex) relbuilder.Builder {
	b.calls = append(b.calls, "filter")
	b.replaceTop(fakePlan{kind: "filter", extra: rex})
	return b
}
func (b *fakeBuilder) Sort(items []relbuilder.SortItem) relbuilder.Builder {
	b.calls = append(b.calls, "sort")
	b.replaceTop(fakePlan{kind: "sort", extra: items})
	return b
}
func (b *fakeBuilder) Aggregate(keys []relbuilder.Rex, aggs []relbuilder.AggCall) relbuilder.Builder {
	b.calls = append(b.calls, "aggregate")
	b.replaceTop(fakePlan{kind: "aggregate", extra: aggs})
	return b
}
func (b *fakeBuilder) Union(n int) relbuilder.Builder {
	b.calls = append(b.calls, "union")
	b.stack = b.stack[:len(b.stack)-n]
	b.push(fakePlan{kind: "union"})
	return b
}
func (b *fakeBuilder) Intersect(n int) relbuilder.Builder {
	b.calls = append(b.calls, "intersect")
	b.stack = b.stack[:len(b.stack)-n]
	b.push(fakePlan{kind: "intersect"})
	return b
}
func (b *fakeBuilder) Minus(n int) relbuilder.Builder {
	b.calls = append(b.calls, "minus")
	b.stack = b.stack[:len(b.stack)-n]
	b.push(fakePlan{kind: "minus"})
	return b
}
func (b *fakeBuilder) Join(cond relbuilder.Rex) relbuilder.Builder {
	b.calls = append(b.calls, "join")
	b.stack = b.stack[:len(b.stack)-2]
	b.push(fakePlan{kind: "join", extra: cond})
	return b
}
func (b *fakeBuilder) Values(schema relbuilder.Schema, rows [][]any) relbuilder.Builder {
	b.calls = append(b.calls, "values")
	b.push(fakePlan{kind: "values", extra: rows})
	return b
}
func (b *fakeBuilder) FunctionScan(op string, args []relbuilder.Rex) relbuilder.Builder {
	b.calls = append(b.calls, "functionScan:"+op)
	b.push(fakePlan{kind: "functionScan:" + op})
	return b
}
func (b *fakeBuilder) Peek() relbuilder.RelPlan { return b.top() }
func (b *fakeBuilder) Build() relbuilder.RelPlan {
	p := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	return p
}
func (b *fakeBuilder) Types() types.TypeSystem { return sys }

func TestToRelSingleSourceWhereYield(t *testing.T) {
	x := ident(intT(), "x")
	src := ir.CompSource{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}
	where := ir.WhereStep{Cond: binApp(">", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 0), boolT())}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{src},
		Steps:   []ir.CompStep{where},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	plan, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	if plan == nil {
		t.Fatalf("ToRel: plan = nil")
	}
	assertCalls(t, b.calls, []string{"functionScan:xs", "as:x$0", "filter", "project"})
}

func TestToRelTwoSourcesJoin(t *testing.T) {
	x := ident(intT(), "x")
	y := ident(intT(), "y")
	srcs := []ir.CompSource{
		{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)},
		{Pat: ir.NewIdentPat(intT(), y), Expr: ir.NewIdent(sys.List(intT()), "ys", 0)},
	}
	comp := &ir.Comprehension{
		Sources: srcs,
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	found := false
	for _, c := range b.calls {
		if c == "join" {
			found = true
		}
	}
	if !found {
		t.Fatalf("calls = %v, want a join call for the second source", b.calls)
	}
}

func TestToRelUnknownSourceFails(t *testing.T) {
	x := ident(intT(), "x")
	// A source expression that isn't an identifier, nested comprehension,
	// or constant list literal cannot be lowered.
	weird := binApp("+", ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 2), intT())
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: weird}},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, nil)
	if ok {
		t.Fatalf("ToRel: ok = true, want false for an unlowerable source")
	}
}

func TestToRelUnknownScalarEscapes(t *testing.T) {
	x := ident(intT(), "x")
	// An application of a name outside the known-operator table (e.g. a
	// user-defined predicate) must still lower: it escapes to a
	// ScalarEscape Rex rather than failing the whole comprehension.
	userPred := binApp("isPrime", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 0), boolT())
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		Steps:   []ir.CompStep{ir.WhereStep{Cond: userPred}},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true (unknown ops escape, they don't fail lowering)")
	}
}

func TestToRelGroupStep(t *testing.T) {
	x := ident(intT(), "x")
	group := ir.GroupStep{
		Keys: []ir.Expr{ir.NewIdent(intT(), x.Name, x.Ord)},
		Aggs: []ir.NamedAgg{{Name: "total", Op: "sum", Expr: ir.NewIdent(intT(), x.Name, x.Ord)}},
	}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		Steps:   []ir.CompStep{group},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	sawAggregate := false
	for _, c := range b.calls {
		if c == "aggregate" {
			sawAggregate = true
		}
	}
	if !sawAggregate {
		t.Fatalf("calls = %v, want an aggregate call", b.calls)
	}
}

// TestToRelUnionOfTwoComprehensions covers spec.md §4.10.2: `a union b`
// resolves (internal/resolver's infixBuiltins) to App of the named
// built-in "union", and ToRel must recognise that shape, lower both
// operands, and combine them via Builder.Union rather than requiring a
// bare *ir.Comprehension.
func TestToRelUnionOfTwoComprehensions(t *testing.T) {
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

	b := newFakeBuilder()
	plan, ok := rellower.ToRel(b, sys, setOp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	if plan == nil {
		t.Fatalf("ToRel: plan = nil")
	}
	assertCalls(t, b.calls, []string{
		"functionScan:xs", "as:x$0", "project",
		"push", "as:$setop", "project",
		"functionScan:ys", "as:y$0", "project",
		"push", "as:$setop", "project",
		"union",
	})
}

// TestToRelExceptRecordElementHarmonisesFieldOrder covers the record
// element case: each side yields a record, and harmonizeTop must project
// both to the same sorted-label order before Builder.Minus runs, per
// spec.md §4.10.2's "harmonised to a least-restrictive common row type".
func TestToRelExceptRecordElementHarmonisesFieldOrder(t *testing.T) {
	recT := sys.Record([]string{"a", "b"}, []types.Type{intT(), intT()})
	x := ident(recT, "x")
	left := ir.NewComprehension(sys.List(recT),
		[]ir.CompSource{{Pat: ir.NewIdentPat(recT, x), Expr: ir.NewIdent(sys.List(recT), "xs", 0)}},
		nil,
		ir.NewIdent(recT, x.Name, x.Ord),
	)
	y := ident(recT, "y")
	right := ir.NewComprehension(sys.List(recT),
		[]ir.CompSource{{Pat: ir.NewIdentPat(recT, y), Expr: ir.NewIdent(sys.List(recT), "ys", 0)}},
		nil,
		ir.NewIdent(recT, y.Name, y.Ord),
	)
	setOp := binApp("except", left, right, sys.List(recT))

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, setOp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	found := false
	for _, c := range b.calls {
		if c == "minus" {
			found = true
		}
	}
	if !found {
		t.Fatalf("calls = %v, want a minus call for except", b.calls)
	}
}

// TestToRelSourcePredicateInversionReplacesFunctionScan covers the wiring
// between rellower and internal/predinvert: a source naming a known
// predicate is offered to PredicateInverter before falling back to
// FunctionScan, and on success the source lowers from the synthesised
// generator's extent instead.
func TestToRelSourcePredicateInversionReplacesFunctionScan(t *testing.T) {
	p := ident(intT(), "p")
	self := ident(sys.Function(intT(), boolT()), "isSeven")
	def := predinvert.Def{
		Self:   self,
		Params: []ir.Ident{p},
		Body:   binApp("=", ir.NewIdent(intT(), p.Name, p.Ord), ir.IntLiteral(intT(), 7), boolT()),
	}
	preds := map[string]predinvert.Def{"isSeven": def}

	x := ident(intT(), "x")
	src := ir.CompSource{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(self.Type(), "isSeven", 0)}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{src},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, preds)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	for _, c := range b.calls {
		if c == "functionScan:isSeven" {
			t.Fatalf("calls = %v, want no functionScan — isSeven should invert to a generator", b.calls)
		}
	}
	sawValues := false
	for _, c := range b.calls {
		if c == "values" {
			sawValues = true
		}
	}
	if !sawValues {
		t.Fatalf("calls = %v, want a values call for the point generator's extent", b.calls)
	}
}

// TestToRelSourcePredicateInversionFallsBackWhenArityMismatches covers the
// case where the source pattern doesn't match the predicate's parameter
// count: chainSources must not attempt inversion and should fall back to
// treating the name as an external relation.
func TestToRelSourcePredicateInversionFallsBackWhenArityMismatches(t *testing.T) {
	p, q := ident(intT(), "p"), ident(intT(), "q")
	self := ident(sys.Function(intT(), sys.Function(intT(), boolT())), "reach")
	def := predinvert.Def{
		Self:   self,
		Params: []ir.Ident{p, q},
		Body:   binApp("=", ir.NewIdent(intT(), p.Name, p.Ord), ir.NewIdent(intT(), q.Name, q.Ord), boolT()),
	}
	preds := map[string]predinvert.Def{"reach": def}

	x := ident(intT(), "x")
	src := ir.CompSource{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(self.Type(), "reach", 0)}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{src},
		Yield:   ir.NewIdent(intT(), x.Name, x.Ord),
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, preds)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
	found := false
	for _, c := range b.calls {
		if c == "functionScan:reach" {
			found = true
		}
	}
	if !found {
		t.Fatalf("calls = %v, want functionScan:reach (arity mismatch must skip inversion)", b.calls)
	}
}

func TestToRelRecordYieldProjectsFields(t *testing.T) {
	x := ident(intT(), "x")
	rec := &ir.Record{
		Typed:  ir.Typed{},
		Labels: []string{"a", "b"},
		Elems:  []ir.Expr{ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 1)},
	}
	comp := &ir.Comprehension{
		Sources: []ir.CompSource{{Pat: ir.NewIdentPat(intT(), x), Expr: ir.NewIdent(sys.List(intT()), "xs", 0)}},
		Yield:   rec,
	}

	b := newFakeBuilder()
	_, ok := rellower.ToRel(b, sys, comp, nil)
	if !ok {
		t.Fatalf("ToRel: ok = false, want true")
	}
}
