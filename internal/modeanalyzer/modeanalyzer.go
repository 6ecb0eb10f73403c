// Package modeanalyzer implements the ModeAnalyzer (spec.md §4.8): for a
// set of goal variables and the conjuncts of a predicate body, decide
// which conjuncts can act as generators (and for which variables), order
// them greedily so each generator's inputs are bound by the time it
// runs, and report whether the goals can be fully grounded at all.
package modeanalyzer

import (
	"strconv"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/generator"
	"github.com/weave-lang/weavec/internal/inverters"
)

// Priority classes mirror spec.md §4.8's "generators < ranges < filters":
// lower ranks first when scores are otherwise tied, since the score
// formula subtracts Priority.
const (
	PriorityGenerator = 0
	PriorityRange     = 1
	PriorityFilter    = 2
)

// ModeSignature is spec.md §4.8's per-conjunct classification.
type ModeSignature struct {
	CanGenerate   []ir.Ident          // goal variables this conjunct can produce
	Gen           generator.Generator // the generator for CanGenerate[0], if len(CanGenerate) > 0
	IsFinite      bool
	RequiredBound []ir.Ident // goal variables that must already be bound first
	JoinVars      []ir.Ident // goal variables already in bound that this conjunct also mentions
	Priority      int
}

// Signature computes φ's ModeSignature relative to goals, the variables
// already bound under the current ordering state, and its sibling
// conjuncts. Siblings matter because a single strategy can need more than
// one conjunct together (a range generator, spec.md §4.7 item 2, needs
// both a lower and an upper bound): φ is credited with generating g only
// when synthesising a generator for g from the *whole* sibling set
// actually consumes φ, not merely some other conjunct in the set.
func Signature(sys types.TypeSystem, goals, bound []ir.Ident, siblings []ir.Expr, phi ir.Expr) ModeSignature {
	goalSet := toSet(goals)
	boundSet := toSet(bound)
	free := freeVars(phi)

	var canGenerate []ir.Ident
	var gen generator.Generator
	isFinite := true
	for _, g := range goals {
		if _, already := boundSet[key(g)]; already {
			continue
		}
		if cand, ok := synthesizeFor(sys, g, phi, siblings); ok {
			canGenerate = append(canGenerate, g)
			if gen == nil {
				gen = cand
			}
			if cand.Cardinality() == generator.Infinite {
				isFinite = false
			}
		}
	}

	var requiredBound, joinVars []ir.Ident
	for _, v := range free {
		if _, isGoal := goalSet[key(v)]; !isGoal {
			continue
		}
		if isGenerated(canGenerate, v) {
			continue
		}
		requiredBound = append(requiredBound, v)
		if _, already := boundSet[key(v)]; already {
			joinVars = append(joinVars, v)
		}
	}

	priority := PriorityFilter
	if len(canGenerate) > 0 {
		if generator.IsRange(gen) {
			priority = PriorityRange
		} else {
			priority = PriorityGenerator
		}
	}

	return ModeSignature{
		CanGenerate:   canGenerate,
		Gen:           gen,
		IsFinite:      len(canGenerate) > 0 && isFinite,
		RequiredBound: requiredBound,
		JoinVars:      joinVars,
		Priority:      priority,
	}
}

// synthesizeFor tries strategies 1-4 (internal/generator) then strategy 5
// (internal/inverters) to build a generator for g out of siblings
// (spec.md §4.7's five strategies, in order), crediting phi only if the
// winning generator actually consumed it.
func synthesizeFor(sys types.TypeSystem, g ir.Ident, phi ir.Expr, siblings []ir.Expr) (generator.Generator, bool) {
	if gen, residual, ok := generator.Synthesize(sys, g, siblings); ok && !contains(residual, phi) {
		return gen, true
	}
	if gen, residual, ok := inverters.Invert(sys, g, siblings); ok && !contains(residual, phi) {
		return gen, true
	}
	return nil, false
}

func contains(exprs []ir.Expr, e ir.Expr) bool {
	for _, x := range exprs {
		if x == e {
			return true
		}
	}
	return false
}

func isGenerated(vs []ir.Ident, v ir.Ident) bool {
	for _, x := range vs {
		if x.Name == v.Name && x.Ord == v.Ord {
			return true
		}
	}
	return false
}

// Score implements spec.md §4.8's ordering score: `1000*|canGenerate| -
// priority, +10000 if requiredBound ⊆ bound`.
func Score(sig ModeSignature, bound []ir.Ident) int {
	boundSet := toSet(bound)
	score := 1000*len(sig.CanGenerate) - sig.Priority
	ready := true
	for _, v := range sig.RequiredBound {
		if _, ok := boundSet[key(v)]; !ok {
			ready = false
			break
		}
	}
	if ready {
		score += 10000
	}
	return score
}

// Step is one conjunct placed by Order, tagged with the signature it was
// chosen under and whether it was selected as a generator or fell through
// to the final filter pass.
type Step struct {
	Conjunct    ir.Expr
	Sig         ModeSignature
	IsGenerator bool
}

// Order runs spec.md §4.8's greedy ordering algorithm: repeatedly pick the
// remaining conjunct with the highest score, append it, and extend `bound`
// with its CanGenerate set; once no remaining conjunct can generate
// anything new, append everything left over as filters. The second
// return value is `canGround`: whether the loop terminated with
// goals ⊆ bound.
func Order(sys types.TypeSystem, goals []ir.Ident, conjuncts []ir.Expr) ([]Step, bool) {
	remaining := append([]ir.Expr{}, conjuncts...)
	bound := map[string]ir.Ident{}
	var out []Step

	for len(remaining) > 0 {
		boundSlice := boundValues(bound)
		bestIdx := -1
		var bestSig ModeSignature
		bestScore := 0
		for i, c := range remaining {
			sig := Signature(sys, goals, boundSlice, remaining, c)
			s := Score(sig, boundSlice)
			if bestIdx == -1 || s > bestScore {
				bestIdx, bestSig, bestScore = i, sig, s
			}
		}
		if len(bestSig.CanGenerate) == 0 {
			break
		}
		chosen := remaining[bestIdx]
		out = append(out, Step{Conjunct: chosen, Sig: bestSig, IsGenerator: true})
		for _, g := range bestSig.CanGenerate {
			bound[key(g)] = g
		}
		rest := append(append([]ir.Expr{}, remaining[:bestIdx]...), remaining[bestIdx+1:]...)
		remaining = dropSubsumed(rest, bestSig.Gen)
	}

	boundSlice := boundValues(bound)
	for _, c := range remaining {
		out = append(out, Step{Conjunct: c, Sig: Signature(sys, goals, boundSlice, remaining, c), IsGenerator: false})
	}

	for _, g := range goals {
		if _, ok := bound[key(g)]; !ok {
			return out, false
		}
	}
	return out, true
}

// CanGround reports whether goals can be fully grounded from conjuncts at
// all (spec.md §4.8's `canGround`), discarding the ordering itself.
func CanGround(sys types.TypeSystem, goals []ir.Ident, conjuncts []ir.Expr) bool {
	_, ok := Order(sys, goals, conjuncts)
	return ok
}

// dropSubsumed removes conjuncts that gen was actually built from (e.g. a
// range generator's second bound) from remaining, so they are not
// re-emitted as redundant filter Steps later. Reuses Generator.Simplify
// rather than re-deriving which conjuncts a generator consumed.
func dropSubsumed(remaining []ir.Expr, gen generator.Generator) []ir.Expr {
	if gen == nil {
		return remaining
	}
	out := make([]ir.Expr, 0, len(remaining))
	for _, c := range remaining {
		if _, consumed := gen.Simplify(ir.Ident{}, c); consumed {
			continue
		}
		out = append(out, c)
	}
	return out
}

func key(id ir.Ident) string { return id.Name + "\x00" + strconv.Itoa(id.Ord) }

func toSet(ids []ir.Ident) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[key(id)] = struct{}{}
	}
	return m
}

func boundValues(m map[string]ir.Ident) []ir.Ident {
	out := make([]ir.Ident, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

// freeVars collects every Ident referenced by e that is not bound within
// e itself, covering every Core-IR Expr variant (spec.md §3's closed
// union).
func freeVars(e ir.Expr) []ir.Ident {
	seen := map[string]ir.Ident{}
	var walk func(ir.Expr, map[string]struct{})
	bound := func(locals map[string]struct{}, ids ...ir.Ident) map[string]struct{} {
		out := make(map[string]struct{}, len(locals)+len(ids))
		for k := range locals {
			out[k] = struct{}{}
		}
		for _, id := range ids {
			out[key(id)] = struct{}{}
		}
		return out
	}
	walk = func(e ir.Expr, locals map[string]struct{}) {
		switch n := e.(type) {
		case *ir.Ident:
			if _, isLocal := locals[key(*n)]; !isLocal {
				seen[key(*n)] = *n
			}
		case *ir.Fn:
			walk(n.Body, bound(locals, n.Param))
		case *ir.App:
			walk(n.Fun, locals)
			walk(n.Arg, locals)
		case *ir.Let:
			walk(n.Value, locals)
			walk(n.Body, bound(locals, n.Pat.Binders()...))
		case *ir.LetRec:
			inner := locals
			for _, b := range n.Bindings {
				inner = bound(inner, b.Name)
			}
			for _, b := range n.Bindings {
				walk(b.Expr, inner)
			}
			walk(n.Body, inner)
		case *ir.Case:
			walk(n.Scrutinee, locals)
			for _, m := range n.Matches {
				walk(m.Body, bound(locals, m.Pat.Binders()...))
			}
		case *ir.Tuple:
			for _, el := range n.Elems {
				walk(el, locals)
			}
		case *ir.Record:
			for _, el := range n.Elems {
				walk(el, locals)
			}
		case *ir.LocalType:
			walk(n.Body, locals)
		case *ir.Comprehension:
			inner := locals
			for _, src := range n.Sources {
				walk(src.Expr, inner)
				inner = bound(inner, src.Pat.Binders()...)
			}
			for _, st := range n.Steps {
				walkStep(st, inner, walk)
			}
			walk(n.Yield, inner)
		case *ir.Aggregate:
			walk(n.Expr, locals)
		case *ir.ConApp:
			walk(n.Arg, locals)
		case *ir.Select:
			walk(n.Expr, locals)
		case *ir.Literal, *ir.Con0:
			// no children
		}
	}
	walk(e, nil)
	out := make([]ir.Ident, 0, len(seen))
	for _, id := range seen {
		out = append(out, id)
	}
	return out
}

func walkStep(st ir.CompStep, locals map[string]struct{}, walk func(ir.Expr, map[string]struct{})) {
	switch s := st.(type) {
	case ir.WhereStep:
		walk(s.Cond, locals)
	case ir.OrderStep:
		for _, it := range s.Items {
			walk(it.Expr, locals)
		}
	case ir.GroupStep:
		for _, k := range s.Keys {
			walk(k, locals)
		}
		for _, a := range s.Aggs {
			walk(a.Expr, locals)
		}
	}
}
