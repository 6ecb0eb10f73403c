// Package predinvert implements the PredicateInverter spec.md's component
// table (§2) names as its own line item: the step the control-flow summary
// places "for each comprehension" between the analyze/inline/relationalize
// fixed point and the relational lowering attempt. It composes
// internal/modeanalyzer (greedy conjunct ordering for straight-line bodies)
// and internal/ppt (URA-style structural inversion for bodies that branch
// on `orelse` or call themselves) into the one entry point a caller needs:
// given a predicate's declaration and the variables it should enumerate,
// try to invert it into a generator.
package predinvert

import (
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/generator"
	"github.com/weave-lang/weavec/internal/modeanalyzer"
	"github.com/weave-lang/weavec/internal/ppt"
)

// Def names the predicate being inverted. Self identifies it for the
// recursive-call detection spec.md §4.9 describes; Params are its declared
// parameters in curried order (a Core Fn chain flattened one Param per
// level, spec.md §3's "multi-match fn is desugared" note); Body is its
// boolean-valued definition.
type Def struct {
	Self   ir.Ident
	Params []ir.Ident
	Body   ir.Expr
}

// Invert attempts to synthesise a generator enumerating goals — normally
// def.Params itself, or a subset of it — given bound (variables already
// known at the call site). A body containing `orelse` or a call back to
// Self goes through the PPT/URA route (internal/ppt), which is the only
// one of the two that understands branch/recursion structure; everything
// else is a flat `andalso` chain handed to ModeAnalyzer's greedy ordering,
// which reorders conjuncts for generator readiness in a way PPT
// deliberately does not (spec.md §4.9's construction invariant keeps PPT's
// Sequence children in declaration order).
//
// Failure is reported by the third return value, never an error (spec.md
// §7): the caller falls back to evaluating the original predicate call.
func Invert(sys types.TypeSystem, def Def, goals, bound []ir.Ident) (generator.Generator, []ir.Expr, bool) {
	if needsPPT(def) {
		node := ppt.Build(sys, def.Self, goals, bound, def.Body)
		return ppt.Invert(sys, def.Self, def.Params, bound, node, map[string]bool{})
	}

	conjuncts := decomposeAndAlso(def.Body)
	steps, ground := modeanalyzer.Order(sys, goals, conjuncts)
	if !ground || len(steps) == 0 || !steps[0].IsGenerator {
		return nil, conjuncts, false
	}
	first := steps[0]
	if !coversAll(first.Sig.CanGenerate, goals) {
		return nil, conjuncts, false
	}
	filters := make([]ir.Expr, 0, len(steps)-1)
	for _, s := range steps[1:] {
		filters = append(filters, s.Conjunct)
	}
	return first.Sig.Gen, filters, true
}

// needsPPT reports whether def's body has structure ModeAnalyzer's flat
// ordering cannot handle on its own: a disjunction or a call back to the
// predicate being inverted, anywhere in its body.
func needsPPT(def Def) bool {
	return containsOrElse(def.Body) || containsSelf(def.Body, def.Self)
}

func coversAll(have, want []ir.Ident) bool {
	haveSet := make(map[string]struct{}, len(have))
	for _, id := range have {
		haveSet[key(id)] = struct{}{}
	}
	for _, id := range want {
		if _, ok := haveSet[key(id)]; !ok {
			return false
		}
	}
	return true
}

func key(id ir.Ident) string { return id.Name + "\x00" + itoa(id.Ord) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func containsOrElse(e ir.Expr) bool {
	name, _, _, ok := asBinApp(e)
	if ok && name == "orelse" {
		return true
	}
	found := false
	walkExpr(e, func(sub ir.Expr) bool {
		if found {
			return false
		}
		if n, _, _, ok := asBinApp(sub); ok && n == "orelse" {
			found = true
			return false
		}
		return true
	})
	return found
}

func containsSelf(e ir.Expr, self ir.Ident) bool {
	found := false
	walkExpr(e, func(sub ir.Expr) bool {
		if id, ok := sub.(*ir.Ident); ok && id.Name == self.Name && id.Ord == self.Ord {
			found = true
			return false
		}
		return true
	})
	return found
}

func decomposeAndAlso(e ir.Expr) []ir.Expr {
	if name, lhs, rhs, ok := asBinApp(e); ok && name == "andalso" {
		return append(decomposeAndAlso(lhs), decomposeAndAlso(rhs)...)
	}
	return []ir.Expr{e}
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

// walkExpr visits e and every subexpression reachable from it, calling
// visit on each; visit returns false to stop descending from that node.
func walkExpr(e ir.Expr, visit func(ir.Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch n := e.(type) {
	case *ir.Fn:
		walkExpr(n.Body, visit)
	case *ir.App:
		walkExpr(n.Fun, visit)
		walkExpr(n.Arg, visit)
	case *ir.Let:
		walkExpr(n.Value, visit)
		walkExpr(n.Body, visit)
	case *ir.LetRec:
		for _, b := range n.Bindings {
			walkExpr(b.Expr, visit)
		}
		walkExpr(n.Body, visit)
	case *ir.Case:
		walkExpr(n.Scrutinee, visit)
		for _, m := range n.Matches {
			walkExpr(m.Body, visit)
		}
	case *ir.Tuple:
		for _, el := range n.Elems {
			walkExpr(el, visit)
		}
	case *ir.Record:
		for _, el := range n.Elems {
			walkExpr(el, visit)
		}
	case *ir.LocalType:
		walkExpr(n.Body, visit)
	case *ir.Comprehension:
		for _, src := range n.Sources {
			walkExpr(src.Expr, visit)
		}
		for _, st := range n.Steps {
			switch s := st.(type) {
			case ir.WhereStep:
				walkExpr(s.Cond, visit)
			case ir.OrderStep:
				for _, it := range s.Items {
					walkExpr(it.Expr, visit)
				}
			case ir.GroupStep:
				for _, k := range s.Keys {
					walkExpr(k, visit)
				}
				for _, a := range s.Aggs {
					walkExpr(a.Expr, visit)
				}
			}
		}
		walkExpr(n.Yield, visit)
	case *ir.Aggregate:
		walkExpr(n.Expr, visit)
	case *ir.ConApp:
		walkExpr(n.Arg, visit)
	case *ir.Select:
		walkExpr(n.Expr, visit)
	}
}

// FlattenParams walks a curried Fn chain (spec.md §3's "multi-match fn is
// desugared to fn x => case x of …" — each surface parameter is its own
// nested Fn) and returns its parameters in declaration order along with
// the innermost, non-Fn body.
func FlattenParams(fn *ir.Fn) ([]ir.Ident, ir.Expr) {
	var params []ir.Ident
	var body ir.Expr = fn
	for {
		f, ok := body.(*ir.Fn)
		if !ok {
			break
		}
		params = append(params, f.Param)
		body = f.Body
	}
	return params, body
}
