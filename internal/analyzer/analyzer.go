// Package analyzer implements the Analyzer pass (spec.md §4.4): a single
// traversal that visits every binder and accumulates a Use classification
// the Inliner consults to decide what can be substituted without changing
// behaviour.
package analyzer

import (
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/shuttle"
)

// Use classifies a binder by how many times it is referenced and whether
// its right-hand side is safe to duplicate or defer (spec.md §3 "Usage
// analysis"). Only Dead, Atomic and OnceSafe permit unconditional inlining.
type Use int

const (
	Dead Use = iota
	Atomic
	OnceSafe
	MultiSafe
	MultiUnsafe
)

func (u Use) String() string {
	switch u {
	case Dead:
		return "DEAD"
	case Atomic:
		return "ATOMIC"
	case OnceSafe:
		return "ONCE_SAFE"
	case MultiSafe:
		return "MULTI_SAFE"
	case MultiUnsafe:
		return "MULTI_UNSAFE"
	default:
		return "INVALID"
	}
}

// CanInline reports whether u permits unconditional inlining (spec.md §3:
// "Only the first three permit unconditional inlining").
func (u Use) CanInline() bool { return u == Dead || u == Atomic || u == OnceSafe }

// Info is the recorded analysis for one binder.
type Info struct {
	Use   Use
	Count int

	// RHS is the single Core expression this binder's value comes from,
	// when one exists: a Let binding a bare IdentPat, or one binding of a
	// LetRec group. It is nil for a binder with no statically-known
	// single value to substitute (a Fn parameter, a Case match pattern's
	// binders, a comprehension source's binders, or a name bound by a
	// non-trivial Let pattern) — the Inliner's identifier-substitution
	// rule (spec.md §4.5 item 1) only ever fires where RHS is non-nil.
	RHS ir.Expr
}

type key struct {
	name string
	ord  int
}

func keyOf(id ir.Ident) key { return key{id.Name, id.Ord} }

// Analysis is the result of one Analyzer pass: per-binder usage info keyed
// by identity. Uniquification (spec.md §4.3) guarantees every (Name, Ord)
// pair is unique across the whole program, so a single flat map suffices —
// no scope-chain lookup is needed to tell two binders of the same surface
// name apart.
type Analysis struct {
	infos map[key]*Info
}

// Lookup returns the recorded Info for id, if the Analyzer saw it declared
// as a binder.
func (a *Analysis) Lookup(id ir.Ident) (Info, bool) {
	info, ok := a.infos[keyOf(id)]
	if !ok {
		return Info{}, false
	}
	return *info, true
}

func (a *Analysis) declare(id ir.Ident, rhs ir.Expr) {
	k := keyOf(id)
	info, ok := a.infos[k]
	if !ok {
		info = &Info{}
		a.infos[k] = info
	}
	info.RHS = rhs
}

func (a *Analysis) bump(id ir.Ident) {
	k := keyOf(id)
	info, ok := a.infos[k]
	if !ok {
		info = &Info{}
		a.infos[k] = info
	}
	info.Count++
}

func (a *Analysis) classify() {
	for _, info := range a.infos {
		info.Use = classify(info.Count, info.RHS)
	}
}

// classify implements spec.md §3's rule set verbatim: a binder with zero
// uses is DEAD; with an unsafe (or absent) RHS it is MULTI_UNSAFE
// regardless of count; otherwise its count distinguishes ATOMIC (one use,
// RHS a literal or identifier), ONCE_SAFE (one use, any other safe RHS)
// and MULTI_SAFE (more than one use).
func classify(count int, rhs ir.Expr) Use {
	switch {
	case count == 0:
		return Dead
	case rhs == nil || !Safe(rhs):
		return MultiUnsafe
	case count == 1 && atomic(rhs):
		return Atomic
	case count == 1:
		return OnceSafe
	default:
		return MultiSafe
	}
}

// atomic reports whether x is a literal or a bare identifier reference
// (spec.md §3: "A use is atomic if the host expression is a literal or
// bare identifier").
func atomic(x ir.Expr) bool {
	switch x.(type) {
	case *ir.Literal, *ir.Ident:
		return true
	default:
		return false
	}
}

// Safe reports whether evaluating x cannot observe or change external
// state. Conservatively, only literals, bare identifier references (which
// may denote a pure built-in, since built-ins are referenced as plain,
// unbound Idents — see internal/resolver/builtins.go) and function
// abstractions qualify; everything else is treated as unsafe, exactly as
// spec.md §4.4 states ("everything else is MULTI_UNSAFE"). Exported for
// internal/inliner's dead-binding-drop rule, which needs the same
// judgement applied to a Let's actual Value expression rather than a
// per-name RHS.
func Safe(x ir.Expr) bool {
	switch x.(type) {
	case *ir.Literal, *ir.Ident, *ir.Fn:
		return true
	default:
		return false
	}
}

// Analyze runs the Analyzer over x and returns the resulting Analysis.
func Analyze(x ir.Expr) *Analysis {
	a := &Analysis{infos: map[key]*Info{}}
	v := visitor(a)
	v.Walk(new(env.Env), x)
	a.classify()
	return a
}

// visitor builds the generic traversal: every binder-introducing node
// records its binders (with an RHS where one exists), and every Ident
// reference bumps the count of the binder it names.
func visitor(a *Analysis) *shuttle.Visitor {
	v := shuttle.NewVisitor()
	v.OnExpr = func(e *env.Env, x ir.Expr) {
		switch n := x.(type) {
		case *ir.Ident:
			a.bump(*n)

		case *ir.Fn:
			a.declare(n.Param, nil)

		case *ir.Let:
			if ip, ok := n.Pat.(ir.IdentPat); ok {
				a.declare(ip.Name, n.Value)
				return
			}
			for _, b := range n.Pat.Binders() {
				a.declare(b, nil)
			}

		case *ir.LetRec:
			for _, b := range n.Bindings {
				a.declare(b.Name, b.Expr)
			}

		case *ir.Case:
			for _, m := range n.Matches {
				for _, b := range m.Pat.Binders() {
					a.declare(b, nil)
				}
			}

		case *ir.Comprehension:
			for _, src := range n.Sources {
				for _, b := range src.Pat.Binders() {
					a.declare(b, nil)
				}
			}
		}
	}
	return v
}
