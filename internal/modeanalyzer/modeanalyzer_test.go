package modeanalyzer_test

import (
	"testing"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/modeanalyzer"
)

var sys = types.NewTypeSystem()

func intT() types.Type  { return sys.Primitive(types.Int) }
func boolT() types.Type { return sys.Primitive(types.Bool) }

func ident(t types.Type, name string) ir.Ident { return *ir.NewIdent(t, name, 0) }

func eq(lhs, rhs ir.Expr) ir.Expr {
	fnT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), boolT()))
	id := ir.NewIdent(fnT, "=", 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), boolT()), id, lhs)
	return ir.NewApp(boolT(), partial, rhs)
}

func cmp(name string, lhs, rhs ir.Expr) ir.Expr {
	fnT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), boolT()))
	id := ir.NewIdent(fnT, name, 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), boolT()), id, lhs)
	return ir.NewApp(boolT(), partial, rhs)
}

// TestOrderGeneratorsBeforeFilters: given a point generator for x and an
// unrelated filter, the generator must be placed first and x must end up
// bound, regardless of the two conjuncts' input order.
func TestOrderGeneratorsBeforeFilters(t *testing.T) {
	x := ident(intT(), "x")
	filter := cmp("<", ir.IntLiteral(intT(), 1), ir.IntLiteral(intT(), 2))
	point := eq(ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 5))

	steps, ok := modeanalyzer.Order(sys, []ir.Ident{x}, []ir.Expr{filter, point})
	if !ok {
		t.Fatalf("Order: canGround = false, want true")
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if !steps[0].IsGenerator || steps[0].Conjunct != point {
		t.Fatalf("steps[0] = %#v, want the point generator first", steps[0])
	}
	if steps[1].IsGenerator {
		t.Fatalf("steps[1] = %#v, want the unrelated filter, not a generator", steps[1])
	}
}

// TestOrderWaitsForRequiredBound: y = x+1 cannot generate y until x is
// bound, so the point generator for x must be scheduled first even
// though both conjuncts are point-shaped.
func TestOrderWaitsForRequiredBound(t *testing.T) {
	x := ident(intT(), "x")
	y := ident(intT(), "y")
	xRef := ir.NewIdent(intT(), x.Name, x.Ord)
	genX := eq(xRef, ir.IntLiteral(intT(), 3))
	plusT := sys.Function(intT(), sys.Function(intT(), intT()))
	plusFn := ir.NewIdent(plusT, "+", 0)
	xPlusOne := ir.NewApp(intT(), ir.NewApp(sys.Function(intT(), intT()), plusFn, ir.NewIdent(intT(), x.Name, x.Ord)), ir.IntLiteral(intT(), 1))
	genY := eq(ir.NewIdent(intT(), y.Name, y.Ord), xPlusOne)

	steps, ok := modeanalyzer.Order(sys, []ir.Ident{x, y}, []ir.Expr{genY, genX})
	if !ok {
		t.Fatalf("Order: canGround = false, want true")
	}
	if steps[0].Conjunct != genX {
		t.Fatalf("steps[0] = %#v, want x's generator scheduled first", steps[0])
	}
	if steps[1].Conjunct != genY {
		t.Fatalf("steps[1] = %#v, want y's generator scheduled second", steps[1])
	}
}

func TestCanGroundFalseWhenAGoalHasNoGenerator(t *testing.T) {
	x := ident(intT(), "x")
	y := ident(intT(), "y")
	genX := eq(ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 1))

	if modeanalyzer.CanGround(sys, []ir.Ident{x, y}, []ir.Expr{genX}) {
		t.Fatalf("CanGround = true, want false: nothing generates y")
	}
}

func TestCanGroundTrueForRangeGenerator(t *testing.T) {
	x := ident(intT(), "x")
	lower := cmp(">=", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 0))
	upper := cmp("<", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 10))

	if !modeanalyzer.CanGround(sys, []ir.Ident{x}, []ir.Expr{lower, upper}) {
		t.Fatalf("CanGround = false, want true")
	}
}

func TestSignaturePriorityOrdersRangeBetweenGeneratorAndFilter(t *testing.T) {
	x := ident(intT(), "x")
	pointConj := eq(ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 1))
	rangeLower := cmp(">=", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 0))

	pointSig := modeanalyzer.Signature(sys, []ir.Ident{x}, nil, []ir.Expr{pointConj}, pointConj)
	rangeSig := modeanalyzer.Signature(sys, []ir.Ident{x}, nil, []ir.Expr{rangeLower}, rangeLower)

	if pointSig.Priority != modeanalyzer.PriorityGenerator {
		t.Fatalf("point Priority = %d, want PriorityGenerator", pointSig.Priority)
	}
	// A single bound conjunct cannot synthesise a range generator alone
	// (strategy 2 needs both a lower and an upper bound); it falls back to
	// a filter here.
	if rangeSig.Priority != modeanalyzer.PriorityFilter {
		t.Fatalf("lone-bound Priority = %d, want PriorityFilter", rangeSig.Priority)
	}
	// With both bounds among the siblings, the same conjunct is credited
	// with a range generator and ranks between the two.
	rangeUpper := cmp("<", ir.NewIdent(intT(), x.Name, x.Ord), ir.IntLiteral(intT(), 10))
	pairSig := modeanalyzer.Signature(sys, []ir.Ident{x}, nil, []ir.Expr{rangeLower, rangeUpper}, rangeLower)
	if pairSig.Priority != modeanalyzer.PriorityRange {
		t.Fatalf("paired-bound Priority = %d, want PriorityRange", pairSig.Priority)
	}
}
