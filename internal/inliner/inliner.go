// Package inliner implements the Inliner (spec.md §4.5): a single
// bottom-up rewrite pass driven by an analyzer.Analysis. It is not itself
// a fixed-point loop — spec.md notes the pass "is idempotent modulo the
// usage classification, which must be re-derived after each pass" — the
// iterate-to-fixed-point driver lives in internal/compiler, which
// re-analyzes and re-inlines until the tree stops changing or an
// iteration cap is hit (spec.md §9 open question ii).
package inliner

import (
	"github.com/weave-lang/weavec/internal/analyzer"
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/shuttle"
	"github.com/weave-lang/weavec/internal/core/types"
)

// Inline rewrites x bottom-up per spec.md §4.5's six rules.
//
//   - sys and seed support rule 1's macro case (spec.md §9 "Macros and
//     opaque values"): an identifier the Analyzer never saw declared (it
//     is not bound by any Let/LetRec/Fn/Case/comprehension in x) is looked
//     up in seed; if it resolves to a macro binding, the macro is invoked
//     with the reference's own type as ArgType and the result substituted.
//   - a holds the Use classification for every binder the Analyzer found
//     in x; nil is valid and means no locally bound identifier is
//     substituted (seed macros are still expanded, and rules 2-5 still
//     fold).
func Inline(sys types.TypeSystem, seed *env.Env, a *analyzer.Analysis, x ir.Expr) ir.Expr {
	s := &shuttle.Shuttle{
		ExprHook: identHook(sys, seed, a),
		PostHook: postHook(a),
	}
	return s.WalkExpr(new(env.Env), x)
}

// identHook implements rule 1. It fires before generic recursion (an
// identifier is a leaf, so there is nothing below it to walk) and, when it
// substitutes, deliberately does not recurse into the substituted
// expression: a later Analyzer+Inliner iteration sees the now-duplicated
// subtree fresh and decides whether to simplify it further.
func identHook(sys types.TypeSystem, seed *env.Env, a *analyzer.Analysis) func(*env.Env, ir.Expr) (ir.Expr, bool) {
	return func(_ *env.Env, x ir.Expr) (ir.Expr, bool) {
		id, ok := x.(*ir.Ident)
		if !ok {
			return nil, false
		}
		if a != nil {
			if info, ok := a.Lookup(*id); ok {
				if info.RHS != nil && info.Use.CanInline() {
					return info.RHS, true
				}
				// A binder the Analyzer saw but decided not to inline
				// (MULTI_SAFE/MULTI_UNSAFE, or no RHS at all): never a
				// macro candidate, since it is locally bound.
				return nil, false
			}
		}
		if seed == nil {
			return nil, false
		}
		b, ok := seed.Lookup(id.Name)
		if !ok || !b.IsMacro() {
			return nil, false
		}
		return b.Macro(sys, seed, id.Type()), true
	}
}

// postHook implements rules 2 through 6, plus integer constant folding,
// applied to a node already rebuilt from its (already-inlined) children.
func postHook(a *analyzer.Analysis) func(*env.Env, ir.Expr) ir.Expr {
	return func(_ *env.Env, x ir.Expr) ir.Expr {
		switch n := x.(type) {
		case *ir.Select:
			return foldSelect(n)
		case *ir.App:
			// Integer +, - and * over two literal operands fold to the
			// literal result (constant folding, applied before rule 3).
			if inner, ok := n.Fun.(*ir.App); ok {
				op, isOp := inner.Fun.(*ir.Ident)
				l, lok := inner.Arg.(*ir.Literal)
				r, rok := n.Arg.(*ir.Literal)
				if isOp && lok && rok && l.Kind == ir.IntLit && r.Kind == ir.IntLit {
					switch op.Name {
					case "+":
						return ir.IntLiteral(n.Type(), l.Int+r.Int)
					case "-":
						return ir.IntLiteral(n.Type(), l.Int-r.Int)
					case "*":
						return ir.IntLiteral(n.Type(), l.Int*r.Int)
					}
				}
			}
			return foldBeta(n)
		case *ir.Case:
			if e, ok := foldCase(n); ok {
				return e
			}
			return n
		case *ir.Let:
			return foldLet(n, a)
		default:
			return x
		}
	}
}

// foldSelect is rule 2: a record or tuple selector over an already-known
// (literal) Record or Tuple value folds to the indexed element.
func foldSelect(n *ir.Select) ir.Expr {
	switch rec := n.Expr.(type) {
	case *ir.Record:
		return rec.Elems[n.Index]
	case *ir.Tuple:
		return rec.Elems[n.Index]
	default:
		return n
	}
}

// foldBeta is rule 3: `(fn p => E) A` becomes `let p = A in E`. This is
// correct under call-by-value since a Let evaluates Value exactly once,
// before Body, matching function-application order.
func foldBeta(n *ir.App) ir.Expr {
	fn, ok := n.Fun.(*ir.Fn)
	if !ok {
		return n
	}
	return ir.NewLet(n.Type(), ir.NewIdentPat(fn.Param.Type(), fn.Param), n.Arg, fn.Body)
}

// foldLet is rule 6: a dead binding (by any pattern shape, provided the
// discarded value is itself safe to never evaluate) drops the
// declaration outright; an Ident-pattern binding already fully consumed
// by identHook's substitution (ATOMIC/ONCE_SAFE, or DEAD) is now
// redundant and is dropped the same way. MULTI_SAFE/MULTI_UNSAFE bindings
// are left in place — their surviving uses were never substituted.
func foldLet(n *ir.Let, a *analyzer.Analysis) ir.Expr {
	if a == nil {
		return n
	}
	if ip, ok := n.Pat.(ir.IdentPat); ok {
		if info, ok := a.Lookup(ip.Name); ok && info.Use.CanInline() {
			return n.Body
		}
		return n
	}
	allDead := true
	for _, b := range n.Pat.Binders() {
		if info, ok := a.Lookup(b); !ok || info.Use != analyzer.Dead {
			allDead = false
			break
		}
	}
	if allDead && analyzer.Safe(n.Value) {
		return n.Body
	}
	return n
}

// foldCase implements rules 4 and 5.
func foldCase(c *ir.Case) (ir.Expr, bool) {
	if e, ok := foldKnownScrutinee(c); ok {
		return e, true
	}
	return foldSingletonMatch(c)
}

// foldKnownScrutinee is rule 5: case-of-literal (or known nullary/unary
// constructor) folding. Branches are tested in order; the first
// definitely-matching branch replaces the whole case, non-matching
// branches ahead of it are dropped, and an indeterminate branch aborts
// folding entirely (we can never skip past a branch we can't rule out,
// or a later branch might wrongly win).
func foldKnownScrutinee(c *ir.Case) (ir.Expr, bool) {
	if !isKnownValue(c.Scrutinee) {
		return nil, false
	}
	for _, m := range c.Matches {
		v, binds := matchKnown(m.Pat, c.Scrutinee)
		switch v {
		case matchYes:
			return wrapBindings(c.Type(), binds, m.Body), true
		case matchNo:
			continue
		default:
			return nil, false
		}
	}
	return nil, false
}

// foldSingletonMatch is rule 4: a case with exactly one match folds
// unconditionally (no knowledge of the scrutinee's value is needed). A
// bare-identifier pattern becomes a let-binding of the whole scrutinee; a
// tuple pattern over an already-tupled scrutinee expression distributes
// element-wise into nested lets instead.
func foldSingletonMatch(c *ir.Case) (ir.Expr, bool) {
	if len(c.Matches) != 1 {
		return nil, false
	}
	m := c.Matches[0]
	switch pat := m.Pat.(type) {
	case ir.IdentPat:
		return ir.NewLet(c.Type(), pat, c.Scrutinee, m.Body), true
	case ir.TuplePat:
		if tup, ok := c.Scrutinee.(*ir.Tuple); ok && len(tup.Elems) == len(pat.Elems) {
			return nestTuple(c.Type(), pat.Elems, tup.Elems, m.Body), true
		}
	}
	return nil, false
}

func nestTuple(t types.Type, pats []ir.Pattern, exprs []ir.Expr, body ir.Expr) ir.Expr {
	if len(pats) == 0 {
		return body
	}
	return ir.NewLet(t, pats[0], exprs[0], nestTuple(t, pats[1:], exprs[1:], body))
}

func isKnownValue(x ir.Expr) bool {
	switch x.(type) {
	case *ir.Literal, *ir.Con0, *ir.ConApp:
		return true
	default:
		return false
	}
}

type verdict int

const (
	matchNo verdict = iota
	matchYes
	matchUnknown
)

// binding is one internal binding a matched pattern contributes, wrapped
// as a Let around the branch body by wrapBindings.
type binding struct {
	name ir.Ident
	expr ir.Expr
}

// matchKnown statically tests p against a known scrutinee expression,
// covering exactly the pattern kinds spec.md §4.5 item 5 names:
// WildcardPat, (bare) IdentPat, LiteralPat, Con0Pat, and ConPat. Any other
// pattern shape reports matchUnknown rather than guessing, deliberately
// conservative — spec.md's rule only enumerates these four as statically
// decidable against a literal/constructor scrutinee.
func matchKnown(p ir.Pattern, scrutinee ir.Expr) (verdict, []binding) {
	switch pt := p.(type) {
	case ir.WildcardPat:
		return matchYes, nil
	case ir.IdentPat:
		return matchYes, []binding{{pt.Name, scrutinee}}
	case ir.LiteralPat:
		lit, ok := scrutinee.(*ir.Literal)
		if !ok {
			return matchUnknown, nil
		}
		if literalEqual(pt.Value, *lit) {
			return matchYes, nil
		}
		return matchNo, nil
	case ir.Con0Pat:
		switch s := scrutinee.(type) {
		case *ir.Con0:
			if s.Name == pt.Name {
				return matchYes, nil
			}
			return matchNo, nil
		case *ir.ConApp:
			// an applied constructor never has a nullary constructor's name
			return matchNo, nil
		}
		return matchUnknown, nil
	case ir.ConPat:
		if _, ok := scrutinee.(*ir.Con0); ok {
			return matchNo, nil
		}
		ca, ok := scrutinee.(*ir.ConApp)
		if !ok {
			return matchUnknown, nil
		}
		if ca.Name != pt.Name {
			return matchNo, nil
		}
		return matchKnown(pt.Arg, ca.Arg)
	default:
		return matchUnknown, nil
	}
}

func wrapBindings(t types.Type, binds []binding, body ir.Expr) ir.Expr {
	for i := len(binds) - 1; i >= 0; i-- {
		b := binds[i]
		body = ir.NewLet(t, ir.NewIdentPat(b.name.Type(), b.name), b.expr, body)
	}
	return body
}

func literalEqual(a, b ir.Literal) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.BoolLit:
		return a.Bool == b.Bool
	case ir.CharLit:
		return a.Char == b.Char
	case ir.IntLit:
		return a.Int == b.Int
	case ir.RealLit:
		return ir.CompareDecimal(a.Real, b.Real) == 0
	case ir.StringLit:
		return a.String == b.String
	case ir.UnitLit:
		return true
	default:
		return false
	}
}
