// Package generator implements generator synthesis (spec.md §4.7, §3's
// "Generator" data model): given a pattern variable and a conjunction of
// constraints, try to build a Core expression that enumerates every value
// the pattern could take, with the first of four strategies to match
// winning — point, range, union, extent marker. A fifth strategy, the
// named-predicate inverter registry, lives in internal/inverters to keep
// the two concerns (generic constraint shapes vs. named built-in
// rewrites) in separate, independently extensible tables.
package generator

import (
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
)

// Cardinality tags how many values a Generator's extent may produce
// (spec.md §3).
type Cardinality int

const (
	Single Cardinality = iota
	Finite
	Infinite
)

// Generator is the abstract value spec.md §3 describes: a Core expression
// that enumerates its extent, a cardinality, and a Simplify method that
// strips conjuncts the generator already guarantees.
type Generator interface {
	// Extent is the Core expression enumerating every value the generator
	// can produce.
	Extent() ir.Expr
	Cardinality() Cardinality

	// Simplify reports whether filter is exactly one of the conjuncts this
	// generator was synthesised from (and is therefore already guaranteed
	// by Extent, redundant to re-test) — returning (filter, false) when
	// it is not, leaving the filter for the caller to keep as a residual
	// WhereStep (spec.md §4.7: "returns the filter unchanged").
	Simplify(pat ir.Ident, filter ir.Expr) (ir.Expr, bool)
}

// source is embedded by every concrete Generator to implement Simplify
// uniformly: each generator remembers, by identity, exactly which input
// conjuncts it was built from (its own "point"/"bound"/"orelse"/"extent
// marker" constraint), and consumes only those — never attempting general
// semantic subsumption of an unrelated filter.
type source struct {
	from []ir.Expr
}

func (s source) Simplify(_ ir.Ident, filter ir.Expr) (ir.Expr, bool) {
	for _, f := range s.from {
		if f == filter {
			return filter, true
		}
	}
	return filter, false
}

// ---- Point ----

type pointGen struct {
	source
	sys   types.TypeSystem
	value ir.Expr
}

// NewPoint builds the generator for a conjunct shaped `p = e` or `e = p`
// (spec.md §4.7 item 1): a SINGLE-cardinality generator enumerating `[e]`.
func NewPoint(sys types.TypeSystem, value ir.Expr, from ir.Expr) Generator {
	return &pointGen{source: source{from: []ir.Expr{from}}, sys: sys, value: value}
}

// Extent builds the one-element cons/nil list `e :: nil`, the same
// constructor chain the Resolver desugars list literals to (spec.md §3).
func (p *pointGen) Extent() ir.Expr {
	listT := p.sys.List(p.value.Type())
	nilV := ir.NewCon0(listT, "nil")
	return consCell(p.sys, p.value.Type(), p.value, nilV)
}

func (p *pointGen) Cardinality() Cardinality { return Single }

func consCell(sys types.TypeSystem, elemT types.Type, head, tail ir.Expr) ir.Expr {
	listT := tail.Type()
	consT := sys.Function(elemT, sys.Function(listT, listT))
	fn := ir.NewIdent(consT, "::", 0)
	partial := ir.NewApp(sys.Function(listT, listT), fn, head)
	return ir.NewApp(listT, partial, tail)
}

// ---- Range ----

type rangeGen struct {
	source
	sys         types.TypeSystem
	patType     types.Type
	lower       ir.Expr // inclusive
	upper       ir.Expr // inclusive
}

func NewRange(sys types.TypeSystem, patType types.Type, lower, upper ir.Expr, from []ir.Expr) Generator {
	return &rangeGen{source: source{from: from}, sys: sys, patType: patType, lower: lower, upper: upper}
}

// Extent builds `tabulate(upper-lower+1, fn k => lower+k)`, the formula
// spec.md §4.7 item 2 names verbatim.
func (r *rangeGen) Extent() ir.Expr {
	intT := r.patType
	one := ir.IntLiteral(intT, 1)
	span := binOp(r.sys, "-", r.upper, r.lower, intT)
	count := binOp(r.sys, "+", span, one, intT)
	k := *ir.NewIdent(intT, "k$gen", 0)
	body := binOp(r.sys, "+", r.lower, ir.NewIdent(intT, k.Name, k.Ord), intT)
	fn := ir.NewFn(r.sys.Function(intT, intT), k, body)
	listT := r.sys.List(intT)
	tabT := r.sys.Function(intT, r.sys.Function(fn.Type(), listT))
	return ir.NewApp(listT, ir.NewApp(r.sys.Function(fn.Type(), listT), ir.NewIdent(tabT, "tabulate", 0), count), fn)
}

func (r *rangeGen) Cardinality() Cardinality { return Finite }

// IsRange reports whether g is a range generator, used by
// internal/modeanalyzer to rank range generators between point/union/
// extent generators and plain filters (spec.md §4.8: "generators <
// ranges < filters").
func IsRange(g Generator) bool {
	_, ok := g.(*rangeGen)
	return ok
}

// ---- Union ----

type unionGen struct {
	source
	sys      types.TypeSystem
	elemType types.Type
	children []Generator
}

func NewUnion(sys types.TypeSystem, elemType types.Type, children []Generator, from ir.Expr) Generator {
	return &unionGen{source: source{from: []ir.Expr{from}}, sys: sys, elemType: elemType, children: children}
}

// Extent builds `concat[g1, ..., gm]`, applying the named "concat"
// built-in to a tuple of the children's own extents (spec.md §4.7 item 3).
func (u *unionGen) Extent() ir.Expr {
	listT := u.sys.List(u.elemType)
	extents := make([]ir.Expr, len(u.children))
	elemTypes := make([]types.Type, len(u.children))
	for i, c := range u.children {
		extents[i] = c.Extent()
		elemTypes[i] = extents[i].Type()
	}
	arg := ir.NewTuple(u.sys.Tuple(elemTypes), extents)
	concatT := u.sys.Function(arg.Type(), listT)
	return ir.NewApp(listT, ir.NewIdent(concatT, "concat", 0), arg)
}

func (u *unionGen) Cardinality() Cardinality {
	for _, c := range u.children {
		if c.Cardinality() == Infinite {
			return Infinite
		}
	}
	return Finite
}

// ---- Extent marker ----

type extentGen struct {
	source
	sys  types.TypeSystem
	typ  types.Type
	card Cardinality
}

// NewExtentMarker builds the generator for an explicit `_extent τ`
// constant (spec.md §4.7 item 4): INFINITE in general, FINITE when τ has a
// statically-known finite set of values.
func NewExtentMarker(sys types.TypeSystem, typ types.Type, from ir.Expr) Generator {
	card := Infinite
	if types.IsEnumerable(typ) {
		card = Finite
	}
	return &extentGen{source: source{from: []ir.Expr{from}}, sys: sys, typ: typ, card: card}
}

// Extent re-emits the same opaque `_extent τ` marker: the core cannot
// itself materialise "every value of a type" as a concrete expression
// (that is exactly what makes it a possibly-infinite marker rather than a
// literal list), so the marker is the extent.
func (e *extentGen) Extent() ir.Expr {
	return &ir.Literal{Typed: ir.Typed{T: e.sys.List(e.typ)}, Kind: ir.OpaqueLit, Opaque: e.typ, OpaqueTag: "extent"}
}

func (e *extentGen) Cardinality() Cardinality { return e.card }

// ---- Sequence (used by internal/inverters for strategy 5) ----

type sequenceGen struct {
	source
	expr ir.Expr
	card Cardinality
}

// NewSequence wraps an already-known Core expression that enumerates a
// sequence of values directly (e.g. `xs` for `x elem xs`, or `prefixesOf
// s` for `String.isPrefix x s`) as a Generator, for named-predicate
// inversions that have nothing further to synthesise.
func NewSequence(expr ir.Expr, card Cardinality, from []ir.Expr) Generator {
	return &sequenceGen{source: source{from: from}, expr: expr, card: card}
}

func (s *sequenceGen) Extent() ir.Expr          { return s.expr }
func (s *sequenceGen) Cardinality() Cardinality { return s.card }

func binOp(sys types.TypeSystem, name string, lhs, rhs ir.Expr, resultT types.Type) ir.Expr {
	opT := sys.Function(lhs.Type(), sys.Function(rhs.Type(), resultT))
	fn := ir.NewIdent(opT, name, 0)
	partial := ir.NewApp(sys.Function(rhs.Type(), resultT), fn, lhs)
	return ir.NewApp(resultT, partial, rhs)
}

// ---- Synthesize: strategies 1-4 ----

// Synthesize tries, in the order spec.md §4.7 lists them, to build a
// Generator for pat out of conjuncts: point, range, union, extent marker.
// It returns the winning generator, the conjuncts it did not consume, and
// whether any strategy matched. Strategy 5 — named-predicate inversion —
// is not tried here; callers fall through to internal/inverters.Invert
// when Synthesize returns false.
func Synthesize(sys types.TypeSystem, pat ir.Ident, conjuncts []ir.Expr) (Generator, []ir.Expr, bool) {
	if value, from, ok := matchPoint(pat, conjuncts); ok {
		return NewPoint(sys, value, from), remove(conjuncts, from), true
	}
	if lowerIncl, upperIncl, froms, ok := matchRange(sys, pat, conjuncts); ok {
		return NewRange(sys, pat.Type(), lowerIncl, upperIncl, froms), removeAll(conjuncts, froms), true
	}
	if from, ok := matchOrElse(conjuncts); ok {
		if gen, ok := synthesizeUnion(sys, pat, from); ok {
			return gen, remove(conjuncts, from), true
		}
	}
	if typ, from, ok := matchExtentMarker(pat, conjuncts); ok {
		return NewExtentMarker(sys, typ, from), remove(conjuncts, from), true
	}
	return nil, conjuncts, false
}

// asBinApp recognises the curried `App(App(Ident(name), lhs), rhs)` shape
// every named built-in (comparison operators, `orelse`, `andalso`, `=`)
// compiles to (spec.md §4.1's infix-operator rule).
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

func isIdentRef(pat ir.Ident, e ir.Expr) bool {
	id, ok := e.(*ir.Ident)
	return ok && id.Name == pat.Name && id.Ord == pat.Ord
}

func isExtentMarker(e ir.Expr) bool {
	lit, ok := e.(*ir.Literal)
	return ok && lit.Kind == ir.OpaqueLit && lit.OpaqueTag == "extent"
}

// matchPoint finds a conjunct shaped `pat = e` or `e = pat`, excluding the
// extent-marker shape (strategy 4 claims that one instead).
func matchPoint(pat ir.Ident, conjuncts []ir.Expr) (value, from ir.Expr, ok bool) {
	for _, c := range conjuncts {
		name, lhs, rhs, isBin := asBinApp(c)
		if !isBin || name != "=" {
			continue
		}
		switch {
		case isIdentRef(pat, lhs) && !isIdentRef(pat, rhs) && !isExtentMarker(rhs):
			return rhs, c, true
		case isIdentRef(pat, rhs) && !isIdentRef(pat, lhs) && !isExtentMarker(lhs):
			return lhs, c, true
		}
	}
	return nil, nil, false
}

// matchBound recognises a single comparison conjunct bounding pat from
// below or above, normalising `e < pat`/`pat > e` etc. to a single
// "lower-or-upper, bound expression, strict?" triple.
func matchBound(pat ir.Ident, e ir.Expr) (lower bool, bound ir.Expr, strict, ok bool) {
	name, lhs, rhs, isBin := asBinApp(e)
	if !isBin {
		return false, nil, false, false
	}
	switch name {
	case ">=":
		if isIdentRef(pat, lhs) {
			return true, rhs, false, true
		}
		if isIdentRef(pat, rhs) {
			return false, lhs, false, true
		}
	case ">":
		if isIdentRef(pat, lhs) {
			return true, rhs, true, true
		}
		if isIdentRef(pat, rhs) {
			return false, lhs, true, true
		}
	case "<=":
		if isIdentRef(pat, lhs) {
			return false, rhs, false, true
		}
		if isIdentRef(pat, rhs) {
			return true, lhs, false, true
		}
	case "<":
		if isIdentRef(pat, lhs) {
			return false, rhs, true, true
		}
		if isIdentRef(pat, rhs) {
			return true, lhs, true, true
		}
	}
	return false, nil, false, false
}

// matchRange scans conjuncts for the first lower bound and first upper
// bound on pat (spec.md §4.7 item 2), normalising strict bounds to the
// inclusive integer they imply (`p > lo` means the inclusive lower bound
// is `lo+1`; `p < hi` means the inclusive upper bound is `hi-1`).
func matchRange(sys types.TypeSystem, pat ir.Ident, conjuncts []ir.Expr) (lowerIncl, upperIncl ir.Expr, froms []ir.Expr, ok bool) {
	var lowerFrom, upperFrom ir.Expr
	for _, c := range conjuncts {
		lower, bound, strict, matched := matchBound(pat, c)
		if !matched {
			continue
		}
		if lower && lowerFrom == nil {
			lowerFrom = c
			lowerIncl = adjustBound(sys, pat.Type(), bound, strict, true)
		} else if !lower && upperFrom == nil {
			upperFrom = c
			upperIncl = adjustBound(sys, pat.Type(), bound, strict, false)
		}
	}
	if lowerFrom == nil || upperFrom == nil {
		return nil, nil, nil, false
	}
	return lowerIncl, upperIncl, []ir.Expr{lowerFrom, upperFrom}, true
}

func adjustBound(sys types.TypeSystem, t types.Type, bound ir.Expr, strict, isLower bool) ir.Expr {
	if !strict {
		return bound
	}
	one := ir.IntLiteral(t, 1)
	if isLower {
		return binOp(sys, "+", bound, one, t)
	}
	return binOp(sys, "-", bound, one, t)
}

// matchOrElse finds the first conjunct that is an `orelse` application
// (spec.md §4.7 item 3).
func matchOrElse(conjuncts []ir.Expr) (ir.Expr, bool) {
	for _, c := range conjuncts {
		if name, _, _, ok := asBinApp(c); ok && name == "orelse" {
			return c, true
		}
	}
	return nil, false
}

func synthesizeUnion(sys types.TypeSystem, pat ir.Ident, orElseExpr ir.Expr) (Generator, bool) {
	disjuncts := decomposeOrElse(orElseExpr)
	children := make([]Generator, 0, len(disjuncts))
	for _, d := range disjuncts {
		g, _, ok := Synthesize(sys, pat, decomposeAndAlso(d))
		if !ok {
			return nil, false
		}
		children = append(children, g)
	}
	return NewUnion(sys, pat.Type(), children, orElseExpr), true
}

func decomposeOrElse(e ir.Expr) []ir.Expr {
	if name, lhs, rhs, ok := asBinApp(e); ok && name == "orelse" {
		return append(decomposeOrElse(lhs), decomposeOrElse(rhs)...)
	}
	return []ir.Expr{e}
}

func decomposeAndAlso(e ir.Expr) []ir.Expr {
	if name, lhs, rhs, ok := asBinApp(e); ok && name == "andalso" {
		return append(decomposeAndAlso(lhs), decomposeAndAlso(rhs)...)
	}
	return []ir.Expr{e}
}

// matchExtentMarker finds a conjunct shaped `pat = _extent τ` or the
// reverse, where `_extent τ` is represented as an opaque literal tagged
// "extent" carrying τ (spec.md §4.7 item 4).
func matchExtentMarker(pat ir.Ident, conjuncts []ir.Expr) (types.Type, ir.Expr, bool) {
	for _, c := range conjuncts {
		name, lhs, rhs, isBin := asBinApp(c)
		if !isBin || name != "=" {
			continue
		}
		var other ir.Expr
		switch {
		case isIdentRef(pat, lhs):
			other = rhs
		case isIdentRef(pat, rhs):
			other = lhs
		default:
			continue
		}
		lit, ok := other.(*ir.Literal)
		if !ok || lit.Kind != ir.OpaqueLit || lit.OpaqueTag != "extent" {
			continue
		}
		if t, ok := lit.Opaque.(types.Type); ok {
			return t, c, true
		}
	}
	return types.Type{}, nil, false
}

func remove(conjuncts []ir.Expr, drop ir.Expr) []ir.Expr {
	return removeAll(conjuncts, []ir.Expr{drop})
}

func removeAll(conjuncts []ir.Expr, drop []ir.Expr) []ir.Expr {
	out := make([]ir.Expr, 0, len(conjuncts))
	for _, c := range conjuncts {
		skip := false
		for _, d := range drop {
			if c == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}
