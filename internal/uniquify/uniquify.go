// Package uniquify implements the Uniquifier (spec.md §4.3): it rewrites
// every binder to a fresh ordinal while preserving its surface name, and
// rewrites every reference to the binder it actually resolves to, so
// later passes never have to worry about shadowing. Only the structural
// flavour is implemented — spec.md §9(iii) notes that the source carried
// a second, monotonic-ordinal variant and says an implementer should pick
// the structural one and delete the other.
package uniquify

import (
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/shuttle"
)

// Uniquify renames every binder in x to a fresh ordinal. Ordinals are
// counted separately for each surface name: the first binder of a name
// keeps ordinal 0 and prints as plain "x", later ones print as "x#1",
// "x#2", .... An ordinal is never handed out twice, so it is not reused
// after the scope of the binder that took it has ended.
func Uniquify(x ir.Expr) ir.Expr {
	u := &uniquifier{used: map[string]map[int]bool{}}
	return u.shuttle().WalkExpr(new(env.Env), x)
}

// uniquifier tracks, per surface name, which ordinals are already live
// anywhere in the program seen so far — not just in the active scope
// chain — so two unrelated binders both named "x" in sibling scopes
// still end up with distinct ordinals: a global uniquification, not a
// per-scope one, matching spec.md §4.3's "unique across the program".
type uniquifier struct {
	used map[string]map[int]bool
}

func (u *uniquifier) freshOrdinal(name string) int {
	seen := u.used[name]
	if seen == nil {
		seen = map[int]bool{}
		u.used[name] = seen
	}
	for ord := 0; ; ord++ {
		if !seen[ord] {
			seen[ord] = true
			return ord
		}
	}
}

// shuttle builds the rewrite. Minting happens exactly once per binder, at
// the point where its declared identity is fixed:
//   - IdentHook mints a fresh ordinal for a bare-Ident binder (Fn.Param, a
//     LetRecBinding's own Name) before it is bound and before it is
//     embedded back into the rebuilt node.
//   - PatternHook mints a fresh ordinal for the Ident a pattern binds
//     (IdentPat, AsPat) for the same reason — the rewritten pattern, not
//     the original, is what WalkExpr's Let/Case/Comprehension cases embed
//     and then pass to bind().
//
// BindHook is left at its default: by the time bind() runs, every binder
// it receives already carries its final (fresh) identity, so the default
// "bind each identifier under its own name" behaviour is exactly right —
// minting again there would hand out two distinct ordinals for one binder.
//
// ExprHook rewrites every Ident reference to whatever the innermost binder
// of that name was renamed to.
func (u *uniquifier) shuttle() *shuttle.Shuttle {
	s := &shuttle.Shuttle{}
	s.IdentHook = func(e *env.Env, id ir.Ident) ir.Ident {
		return *ir.NewIdent(id.Type(), id.Name, u.freshOrdinal(id.Name))
	}
	s.PatternHook = func(e *env.Env, p ir.Pattern) (ir.Pattern, bool) {
		switch n := p.(type) {
		case ir.IdentPat:
			fresh := ir.NewIdent(n.Name.Type(), n.Name.Name, u.freshOrdinal(n.Name.Name))
			return ir.NewIdentPat(n.Type(), *fresh), true
		case ir.AsPat:
			fresh := ir.NewIdent(n.Name.Type(), n.Name.Name, u.freshOrdinal(n.Name.Name))
			return ir.NewAsPat(n.Type(), *fresh, s.WalkPattern(e, n.Pat)), true
		default:
			return nil, false
		}
	}
	s.ExprHook = func(e *env.Env, x ir.Expr) (ir.Expr, bool) {
		id, ok := x.(*ir.Ident)
		if !ok {
			return nil, false
		}
		b, ok := e.Lookup(id.Name)
		if !ok || b.IsMacro() {
			return nil, false
		}
		fresh, ok := b.Value.(*ir.Ident)
		if !ok {
			return nil, false
		}
		return ir.NewIdent(id.Type(), fresh.Name, fresh.Ord), true
	}
	return s
}
