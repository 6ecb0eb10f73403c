// Package shuttle implements the generic environment-carrying tree
// transformer described in spec.md §4.2: for every binding-introducing
// node (Fn, Let, LetRec, Case match, comprehension source) the shuttle
// pushes a new environment before recursing and pops on exit. Passes
// built on top only override the hooks they care about; the rest of the
// traversal is handled here once, instead of being re-implemented by
// every pass (spec.md §9 "Deep dynamic dispatch").
//
// Two variants exist, as spec.md §4.2 names them: Shuttle returns a new
// tree (ExprHook may rewrite a node), Visitor traverses only. Visitor is
// implemented here as a Shuttle whose ExprHook always returns
// (nil, false) and whose caller only uses the side effects of its hooks;
// see Visitor below.
package shuttle

import (
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
)

// Shuttle carries zero or more overridable hooks over a generic recursive
// walk of Core IR. The zero value is the identity transform.
type Shuttle struct {
	// ExprHook, if non-nil, is consulted before generic recursion on
	// every expression node. If it returns ok == true, its result is used
	// verbatim instead of the generic rule for that node (but the hook is
	// responsible for recursing into children itself if it wants them
	// transformed).
	ExprHook func(e *env.Env, x ir.Expr) (ir.Expr, bool)

	// PatternHook, analogous to ExprHook, for patterns.
	PatternHook func(e *env.Env, p ir.Pattern) (ir.Pattern, bool)

	// BindHook is called whenever a scope introduces new binders; it must
	// return the environment the scope's body should see. The default
	// (nil) binds each identifier to itself (an opaque ir.Expr wrapping
	// the Ident), which is enough for passes that only need Lookup to
	// succeed (e.g. the Analyzer counting uses) — passes that need real
	// values (the Inliner) supply their own BindHook.
	BindHook func(e *env.Env, binders []ir.Ident) *env.Env

	// IdentHook rewrites a single bare-identifier binder before it is
	// bound and before it is embedded in the rebuilt node. Most binders
	// arrive wrapped in a Pattern, where PatternHook can already rewrite
	// them in place; Fn.Param and a LetRecBinding's own Name are bare
	// Idents with no enclosing Pattern, so a pass that needs to change the
	// binder itself (the Uniquifier, rewriting ordinals) needs this
	// separate hook to affect the reconstructed node, not just the scope
	// used to walk its body.
	IdentHook func(e *env.Env, id ir.Ident) ir.Ident

	// PostHook is consulted after a node has been generically rebuilt from
	// its (already-transformed) children, giving a pass a true bottom-up
	// rewrite point — unlike ExprHook, which fires before recursion and
	// must recurse itself to see transformed children. The Inliner
	// (spec.md §4.5, "the inliner rewrites bottom-up") is the motivating
	// user: its rules (beta-reduction, case-of-literal folding, record
	// selector folding, ...) all pattern-match on an already-simplified
	// subtree.
	PostHook func(e *env.Env, x ir.Expr) ir.Expr
}

func (s *Shuttle) bind(e *env.Env, binders []ir.Ident) *env.Env {
	if s.BindHook != nil {
		return s.BindHook(e, binders)
	}
	for i := range binders {
		id := binders[i]
		e = e.Bind(id.Name, env.ValueBinding(&id))
	}
	return e
}

// bindIdent applies IdentHook (if any) to a single bare-identifier binder,
// then binds the (possibly rewritten) result, returning both the extended
// environment and the identifier that should be embedded in the rebuilt
// node in place of the original.
func (s *Shuttle) bindIdent(e *env.Env, id ir.Ident) (*env.Env, ir.Ident) {
	if s.IdentHook != nil {
		id = s.IdentHook(e, id)
	}
	return s.bind(e, []ir.Ident{id}), id
}

// WalkExpr transforms x under environment e, applying ExprHook and
// recursing generically otherwise; PostHook, if set, runs last on the
// rebuilt node (see its doc comment).
func (s *Shuttle) WalkExpr(e *env.Env, x ir.Expr) ir.Expr {
	if x == nil {
		return nil
	}
	if s.ExprHook != nil {
		if r, ok := s.ExprHook(e, x); ok {
			return r
		}
	}
	out := s.walkExprDefault(e, x)
	if s.PostHook != nil {
		out = s.PostHook(e, out)
	}
	return out
}

func (s *Shuttle) walkExprDefault(e *env.Env, x ir.Expr) ir.Expr {
	switch n := x.(type) {
	case *ir.Literal:
		return n

	case *ir.Ident:
		return n

	case *ir.Fn:
		inner, param := s.bindIdent(e, n.Param)
		body := s.WalkExpr(inner, n.Body)
		return ir.NewFn(n.Type(), param, body)

	case *ir.App:
		return ir.NewApp(n.Type(), s.WalkExpr(e, n.Fun), s.WalkExpr(e, n.Arg))

	case *ir.Let:
		value := s.WalkExpr(e, n.Value)
		pat := s.WalkPattern(e, n.Pat)
		inner := s.bind(e, pat.Binders())
		body := s.WalkExpr(inner, n.Body)
		return ir.NewLet(n.Type(), pat, value, body)

	case *ir.LetRec:
		names := make([]ir.Ident, len(n.Bindings))
		for i, b := range n.Bindings {
			names[i] = b.Name
		}
		if s.IdentHook != nil {
			for i := range names {
				names[i] = s.IdentHook(e, names[i])
			}
		}
		inner := s.bind(e, names)
		bindings := make([]ir.LetRecBinding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = ir.LetRecBinding{Name: names[i], Expr: s.WalkExpr(inner, b.Expr)}
		}
		return ir.NewLetRec(n.Type(), bindings, s.WalkExpr(inner, n.Body))

	case *ir.Case:
		scrutinee := s.WalkExpr(e, n.Scrutinee)
		matches := make([]ir.Match, len(n.Matches))
		for i, m := range n.Matches {
			pat := s.WalkPattern(e, m.Pat)
			inner := s.bind(e, pat.Binders())
			matches[i] = ir.Match{Pat: pat, Body: s.WalkExpr(inner, m.Body)}
		}
		return ir.NewCase(n.Type(), scrutinee, matches)

	case *ir.Tuple:
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = s.WalkExpr(e, el)
		}
		return ir.NewTuple(n.Type(), elems)

	case *ir.Record:
		elems := make([]ir.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = s.WalkExpr(e, el)
		}
		return ir.NewRecord(n.Type(), n.Labels, elems)

	case *ir.LocalType:
		return ir.NewLocalType(n.Type(), n.Name, s.WalkExpr(e, n.Body))

	case *ir.Comprehension:
		cur := e
		sources := make([]ir.CompSource, len(n.Sources))
		for i, src := range n.Sources {
			expr := s.WalkExpr(cur, src.Expr)
			pat := s.WalkPattern(cur, src.Pat)
			sources[i] = ir.CompSource{Pat: pat, Expr: expr}
			cur = s.bind(cur, pat.Binders())
		}
		steps := make([]ir.CompStep, len(n.Steps))
		for i, st := range n.Steps {
			steps[i] = s.walkStep(cur, st)
		}
		yield := s.WalkExpr(cur, n.Yield)
		return ir.NewComprehension(n.Type(), sources, steps, yield)

	case *ir.Aggregate:
		return ir.NewAggregate(n.Type(), n.Op, s.WalkExpr(e, n.Expr))

	case *ir.Con0:
		return n

	case *ir.ConApp:
		return ir.NewConApp(n.Type(), n.Name, s.WalkExpr(e, n.Arg))

	case *ir.Select:
		return ir.NewSelect(n.Type(), n.Label, n.Index, s.WalkExpr(e, n.Expr))

	default:
		return x
	}
}

func (s *Shuttle) walkStep(e *env.Env, st ir.CompStep) ir.CompStep {
	switch x := st.(type) {
	case ir.WhereStep:
		return ir.WhereStep{Cond: s.WalkExpr(e, x.Cond)}
	case ir.OrderStep:
		items := make([]ir.OrderItem, len(x.Items))
		for i, it := range x.Items {
			items[i] = ir.OrderItem{Expr: s.WalkExpr(e, it.Expr), Desc: it.Desc}
		}
		return ir.OrderStep{Items: items}
	case ir.GroupStep:
		keys := make([]ir.Expr, len(x.Keys))
		for i, k := range x.Keys {
			keys[i] = s.WalkExpr(e, k)
		}
		aggs := make([]ir.NamedAgg, len(x.Aggs))
		for i, a := range x.Aggs {
			ae := a.Expr
			if ae != nil {
				ae = s.WalkExpr(e, ae)
			}
			aggs[i] = ir.NamedAgg{Name: a.Name, Op: a.Op, Expr: ae}
		}
		return ir.GroupStep{Keys: keys, Aggs: aggs}
	default:
		return st
	}
}

// WalkPattern transforms p, applying PatternHook and recursing generically
// otherwise. Patterns never themselves carry a sub-environment (their
// binders scope over what follows them, not over their own sub-patterns).
func (s *Shuttle) WalkPattern(e *env.Env, p ir.Pattern) ir.Pattern {
	if p == nil {
		return nil
	}
	if s.PatternHook != nil {
		if r, ok := s.PatternHook(e, p); ok {
			return r
		}
	}
	switch n := p.(type) {
	case ir.WildcardPat, ir.IdentPat, ir.LiteralPat, ir.Con0Pat:
		return n
	case ir.TuplePat:
		elems := make([]ir.Pattern, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = s.WalkPattern(e, el)
		}
		return ir.NewTuplePat(n.Type(), elems)
	case ir.RecordPat:
		elems := make([]ir.Pattern, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = s.WalkPattern(e, el)
		}
		return ir.NewRecordPat(n.Type(), n.Labels, elems)
	case ir.ListPat:
		elems := make([]ir.Pattern, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = s.WalkPattern(e, el)
		}
		return ir.NewListPat(n.Type(), elems)
	case ir.ConsPat:
		return ir.NewConsPat(n.Type(), s.WalkPattern(e, n.Head), s.WalkPattern(e, n.Tail))
	case ir.ConPat:
		return ir.NewConPat(n.Type(), n.Name, s.WalkPattern(e, n.Arg))
	case ir.AsPat:
		return ir.NewAsPat(n.Type(), n.Name, s.WalkPattern(e, n.Pat))
	default:
		return p
	}
}

// Visitor traverses Core IR for side effects only, with no rebuild.
// It is implemented on top of Shuttle: its ExprHook always declines
// (ok=false), so the hooks below just observe.
type Visitor struct {
	s *Shuttle

	OnExpr    func(e *env.Env, x ir.Expr)
	OnPattern func(e *env.Env, p ir.Pattern)
	BindHook  func(e *env.Env, binders []ir.Ident) *env.Env
}

// NewVisitor builds a Visitor; call Walk to traverse.
func NewVisitor() *Visitor {
	v := &Visitor{}
	v.s = &Shuttle{
		ExprHook: func(e *env.Env, x ir.Expr) (ir.Expr, bool) {
			if v.OnExpr != nil {
				v.OnExpr(e, x)
			}
			return nil, false
		},
		PatternHook: func(e *env.Env, p ir.Pattern) (ir.Pattern, bool) {
			if v.OnPattern != nil {
				v.OnPattern(e, p)
			}
			return nil, false
		},
		BindHook: func(e *env.Env, binders []ir.Ident) *env.Env {
			if v.BindHook != nil {
				return v.BindHook(e, binders)
			}
			for i := range binders {
				id := binders[i]
				e = e.Bind(id.Name, env.ValueBinding(&id))
			}
			return e
		},
	}
	return v
}

// Walk traverses x under e, invoking the Visitor's hooks; the tree itself
// is discarded (the hooks must capture anything useful via closures).
func (v *Visitor) Walk(e *env.Env, x ir.Expr) {
	_ = v.s.WalkExpr(e, x)
}
