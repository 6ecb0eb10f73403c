// Package rellower implements relational lowering (spec.md §4.10):
// offering a comprehension to an external relbuilder.Builder, chaining
// its sources by inner joins, translating where/order/group steps and
// the final yield, and falling back — silently, never as an error
// (spec.md §7) — to leaving the original Core expression in place when
// any step cannot be expressed relationally.
package rellower

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/shuttle"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/predinvert"
	"github.com/weave-lang/weavec/internal/relbuilder"
)

// knownOps is the fixed operator table of spec.md §4.10.1: every core
// built-in name it contains maps straight through to a relbuilder.Op of
// the same name (resolver.infixBuiltins already chose these names so the
// scalar translator needs no renaming step).
var knownOps = map[string]bool{
	"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "mod": true,
	"andalso": true, "orelse": true,
}

var unaryOps = map[string]bool{"~": true}

// setOps maps spec.md §4.10.2's three named set-operators to the
// relbuilder.Builder method that implements each: "a union b"/"a except
// b"/"a intersect b" lower to Union/Minus/Intersect once both children
// have been harmonised to a common row shape (harmonizeTop).
var setOps = map[string]func(relbuilder.Builder, int) relbuilder.Builder{
	"union":     func(b relbuilder.Builder, n int) relbuilder.Builder { return b.Union(n) },
	"except":    func(b relbuilder.Builder, n int) relbuilder.Builder { return b.Minus(n) },
	"intersect": func(b relbuilder.Builder, n int) relbuilder.Builder { return b.Intersect(n) },
}

// binding records how a bound pattern variable resolves to a relational
// reference: either the whole row (Alias set, Column empty) or one named
// column of it.
type binding struct {
	alias  string
	column string // empty means "the whole row"
}

type scope struct {
	vars map[string]binding // keyed by ident key (Name + Ord)
	// byName is a fallback keyed only by name, for the fresh binders a
	// GroupStep's keys/aggregates introduce (e.g. `total` in `total =
	// sum sales`): Core IR gives a NamedAgg only a bare string name, not
	// an Ident with a resolved Ord, so a later step or the yield can only
	// reference it by name.
	byName map[string]binding
}

func newScope() *scope { return &scope{vars: map[string]binding{}, byName: map[string]binding{}} }

func (s *scope) bind(id ir.Ident, b binding) {
	s.vars[identKey(id)] = b
	s.byName[id.Name] = b
}

func (s *scope) bindName(name string, b binding) {
	s.byName[name] = b
}

func (s *scope) lookup(id ir.Ident) (binding, bool) {
	if b, ok := s.vars[identKey(id)]; ok {
		return b, true
	}
	b, ok := s.byName[id.Name]
	return b, ok
}

func identKey(id ir.Ident) string { return id.Name + "\x00" + strconv.Itoa(id.Ord) }

// ToRel attempts spec.md §4.10's lowering algorithm for e. It returns
// ok=false the moment any source, step, or the yield cannot be
// translated — the caller (internal/compiler) keeps the original Core
// expression and lets the interpreter evaluate it instead. preds carries
// the predicate definitions spec.md §2's control flow line says
// PredicateInverter runs "for each comprehension", keyed by predicate
// name; a nil map simply disables that step, so every existing caller
// that has no predicate bindings in scope can pass nil.
//
// e is usually a *ir.Comprehension, but spec.md §4.10.2 also names a
// second shape: `a union b`/`a except b`/`a intersect b`, resolved to an
// App of one of those three built-in names (internal/resolver's
// infixBuiltins), lowers by recursively lowering both operands and
// combining them with the matching Builder set-operation.
func ToRel(b relbuilder.Builder, sys types.TypeSystem, e ir.Expr, preds map[string]predinvert.Def) (relbuilder.RelPlan, bool) {
	if name, lhs, rhs, ok := asBinApp(e); ok {
		if combine, isSetOp := setOps[name]; isSetOp {
			return lowerSetOp(b, sys, combine, lhs, rhs, preds)
		}
	}
	comp, ok := e.(*ir.Comprehension)
	if !ok {
		return nil, false
	}
	sc := newScope()
	extra, ok := chainSources(b, sys, sc, comp.Sources, preds)
	if !ok {
		return nil, false
	}
	for _, f := range extra {
		rex, ok := translateScalar(sys, sc, f)
		if !ok {
			return nil, false
		}
		b.Filter(rex)
	}
	for _, step := range comp.Steps {
		if !applyStep(b, sys, sc, step) {
			return nil, false
		}
	}
	if !applyYield(b, sys, sc, comp.Yield) {
		return nil, false
	}
	return b.Build(), true
}

// lowerSetOp lowers lhs and rhs independently, harmonises each to a
// common row shape derived from the list element type (spec.md §4.10.2's
// "least-restrictive common row type" — since the external unifier has
// already type-checked both operands as the same list type, harmonising
// reduces to projecting both to the same alias and, for a record element
// type, the same canonical field order, the same canonicalisation
// GroupStep's own output already goes through in applyGroup), and asks
// combine to fold the two resulting plans into one.
func lowerSetOp(b relbuilder.Builder, sys types.TypeSystem, combine func(relbuilder.Builder, int) relbuilder.Builder, lhs, rhs ir.Expr, preds map[string]predinvert.Def) (relbuilder.RelPlan, bool) {
	if lhs.Type().Kind() != types.List || rhs.Type().Kind() != types.List {
		return nil, false
	}
	elemT := lhs.Type().Elem()

	lplan, ok := ToRel(b, sys, lhs, preds)
	if !ok {
		return nil, false
	}
	b.Push(lplan)
	if !harmonizeTop(b, elemT) {
		return nil, false
	}

	rplan, ok := ToRel(b, sys, rhs, preds)
	if !ok {
		return nil, false
	}
	b.Push(rplan)
	if !harmonizeTop(b, elemT) {
		return nil, false
	}

	combine(b, 2)
	return b.Build(), true
}

// harmonizeTop re-aliases the current top-of-stack plan to a fixed alias
// shared by both operands of a set operation, and, for a record element
// type, projects its fields into sorted-label order — the same
// canonicalisation permuteToSortedNames already applies after a
// GroupStep, for the same reason: two structurally equal record types
// built from differently-ordered field lists must still compare equal
// row for row.
const setOpAlias = "$setop"

func harmonizeTop(b relbuilder.Builder, elemT types.Type) bool {
	b.As(setOpAlias)
	switch elemT.Kind() {
	case types.Record:
		labels := elemT.Labels()
		elems := elemT.Elems()
		order := make([]int, len(labels))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool { return labels[order[i]] < labels[order[j]] })
		fields := make([]relbuilder.Rex, len(order))
		names := make([]string, len(order))
		for i, idx := range order {
			fields[i] = relbuilder.NewColumnRef(elems[idx], setOpAlias, labels[idx])
			names[i] = labels[idx]
		}
		b.Project(fields, names)
	case types.Tuple:
		elems := elemT.Elems()
		fields := make([]relbuilder.Rex, len(elems))
		names := make([]string, len(elems))
		for i, et := range elems {
			name := columnName(i, "")
			fields[i] = relbuilder.NewColumnRef(et, setOpAlias, name)
			names[i] = name
		}
		b.Project(fields, names)
	default:
		b.Project([]relbuilder.Rex{relbuilder.NewRowRef(elemT, setOpAlias)}, []string{""})
	}
	return true
}

// chainSources lowers each source in turn and joins it to the plans
// already on the stack with a trivial (always-true) inner-join
// condition — any correlation between sources is expressed by a later
// `where` step, exactly as spec.md §4.10 item 2 describes. When a source
// is a bare reference to a known predicate (src.Expr names an entry in
// preds, with as many parameters as the source pattern has binders), it
// is first offered to internal/predinvert: success replaces the source
// with the synthesised generator's extent and returns the predicate's
// uninverted conjuncts, renamed to the pattern's own binders, as extra
// filter expressions the caller applies once every source is bound.
func chainSources(b relbuilder.Builder, sys types.TypeSystem, sc *scope, sources []ir.CompSource, preds map[string]predinvert.Def) ([]ir.Expr, bool) {
	var extra []ir.Expr
	for i, src := range sources {
		expr := src.Expr
		if id, isIdent := expr.(*ir.Ident); isIdent {
			if _, alreadyBound := sc.lookup(*id); !alreadyBound {
				if def, ok := preds[id.Name]; ok {
					goals := src.Pat.Binders()
					if len(goals) == len(def.Params) {
						if gen, filters, ok := predinvert.Invert(sys, def, def.Params, nil); ok {
							expr = renameIdents(gen.Extent(), def.Params, goals)
							for _, f := range filters {
								extra = append(extra, renameIdents(f, def.Params, goals))
							}
						}
					}
				}
			}
		}
		if !lowerSourceExpr(b, sys, sc, preds, expr) {
			return nil, false
		}
		alias := sourceAlias(src.Pat, i)
		b.As(alias)
		if i > 0 {
			b.Join(relbuilder.NewLit(trueLit(sys)))
		}
		bindPattern(sc, src.Pat, alias)
	}
	return extra, true
}

// renameIdents rewrites every occurrence of from[i] in e to to[i],
// reusing internal/core/shuttle the same way internal/uniquify does for
// its own identifier substitution — here binding each source name to its
// replacement ident in a throwaway environment instead of minting fresh
// ordinals.
func renameIdents(e ir.Expr, from, to []ir.Ident) ir.Expr {
	if len(from) == 0 {
		return e
	}
	scopeEnv := new(env.Env)
	for i, f := range from {
		repl := to[i]
		scopeEnv = scopeEnv.Bind(f.Name, env.ValueBinding(ir.NewIdent(repl.Type(), repl.Name, repl.Ord)))
	}
	s := &shuttle.Shuttle{
		ExprHook: func(e *env.Env, x ir.Expr) (ir.Expr, bool) {
			id, ok := x.(*ir.Ident)
			if !ok {
				return nil, false
			}
			b, ok := e.Lookup(id.Name)
			if !ok || b.IsMacro() {
				return nil, false
			}
			return b.Value, true
		},
	}
	return s.WalkExpr(scopeEnv, e)
}

func trueLit(sys types.TypeSystem) (types.Type, any) { return sys.Primitive(types.Bool), true }

func sourceAlias(pat ir.Pattern, index int) string {
	if idp, ok := pat.(ir.IdentPat); ok {
		return idp.Name.Name + "$" + strconv.Itoa(idp.Name.Ord)
	}
	return fmt.Sprintf("src%d", index)
}

// bindPattern records how each binder of pat resolves against alias's
// row: a bare IdentPat binds the whole row; anything else binds each of
// its names positionally against the row's columns, since the Resolver
// only ever destructures a source pattern over an already-canonically
// ordered tuple/record (spec.md §4.1).
func bindPattern(sc *scope, pat ir.Pattern, alias string) {
	if idp, ok := pat.(ir.IdentPat); ok {
		sc.bind(idp.Name, binding{alias: alias})
		return
	}
	for i, id := range pat.Binders() {
		sc.bind(id, binding{alias: alias, column: columnName(i, "")})
	}
}

// lowerSourceExpr tries the handful of source shapes relational lowering
// can express directly: a named external relation (a bare identifier,
// scanned via functionScan), a literal list of constant rows (a Values
// plan), or a nested comprehension (lowered recursively). e has already
// been substituted with a predicate's synthesised extent, if chainSources
// found one; any bare Ident reaching here, including a predicate name
// whose inversion was skipped or failed, is scanned as an external
// relation.
func lowerSourceExpr(b relbuilder.Builder, sys types.TypeSystem, sc *scope, preds map[string]predinvert.Def, e ir.Expr) bool {
	if name, _, _, ok := asBinApp(e); ok {
		if _, isSetOp := setOps[name]; isSetOp {
			plan, ok := ToRel(b, sys, e, preds)
			if !ok {
				return false
			}
			b.Push(plan)
			return true
		}
	}
	switch x := e.(type) {
	case *ir.Ident:
		if _, bound := sc.lookup(*x); bound {
			return false
		}
		b.FunctionScan(x.Name, nil)
		return true
	case *ir.Comprehension:
		plan, ok := ToRel(b, sys, x, preds)
		if !ok {
			return false
		}
		b.Push(plan)
		return true
	default:
		if rows, schema, ok := constListLiteral(e); ok {
			b.Values(schema, rows)
			return true
		}
	}
	return false
}

// constListLiteral recognises the cons/nil constructor chain the
// Resolver desugars a `[e1, e2, ...]` list literal to (spec.md §3;
// internal/generator's Point strategy builds the same shape) and
// extracts it as row data only when every element is itself a constant.
func constListLiteral(e ir.Expr) ([][]any, relbuilder.Schema, bool) {
	var rows [][]any
	var schema relbuilder.Schema
	cur := e
	for {
		if con0, isCon0 := cur.(*ir.Con0); isCon0 && con0.Name == "nil" {
			return rows, schema, true
		}
		app, ok := cur.(*ir.App)
		if !ok {
			return nil, relbuilder.Schema{}, false
		}
		inner, ok := app.Fun.(*ir.App)
		if !ok {
			return nil, relbuilder.Schema{}, false
		}
		id, ok := inner.Fun.(*ir.Ident)
		if !ok || id.Name != "::" {
			return nil, relbuilder.Schema{}, false
		}
		row, rowSchema, ok := constRow(inner.Arg)
		if !ok {
			return nil, relbuilder.Schema{}, false
		}
		rows = append(rows, row)
		schema = rowSchema
		cur = app.Arg
	}
}

func constRow(e ir.Expr) ([]any, relbuilder.Schema, bool) {
	switch x := e.(type) {
	case *ir.Literal:
		if x.Kind == ir.OpaqueLit {
			return nil, relbuilder.Schema{}, false
		}
		return []any{literalValue(x)}, relbuilder.Schema{Names: []string{columnName(0, "")}, Types: []types.Type{x.Type()}}, true
	case *ir.Record:
		vals := make([]any, len(x.Elems))
		types_ := make([]types.Type, len(x.Elems))
		for i, el := range x.Elems {
			lit, ok := el.(*ir.Literal)
			if !ok || lit.Kind == ir.OpaqueLit {
				return nil, relbuilder.Schema{}, false
			}
			vals[i] = literalValue(lit)
			types_[i] = lit.Type()
		}
		return vals, relbuilder.Schema{Names: x.Labels, Types: types_}, true
	case *ir.Tuple:
		vals := make([]any, len(x.Elems))
		types_ := make([]types.Type, len(x.Elems))
		names := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			lit, ok := el.(*ir.Literal)
			if !ok || lit.Kind == ir.OpaqueLit {
				return nil, relbuilder.Schema{}, false
			}
			vals[i] = literalValue(lit)
			types_[i] = lit.Type()
			names[i] = columnName(i, "")
		}
		return vals, relbuilder.Schema{Names: names, Types: types_}, true
	}
	return nil, relbuilder.Schema{}, false
}

func literalValue(lit *ir.Literal) any {
	switch lit.Kind {
	case ir.BoolLit:
		return lit.Bool
	case ir.CharLit:
		return lit.Char
	case ir.IntLit:
		return lit.Int
	case ir.RealLit:
		return lit.Real
	case ir.StringLit:
		return lit.String
	case ir.OpaqueLit:
		return lit.Opaque
	default:
		return nil
	}
}

func columnName(i int, label string) string {
	if label != "" {
		return label
	}
	return strconv.Itoa(i + 1)
}

func applyStep(b relbuilder.Builder, sys types.TypeSystem, sc *scope, step ir.CompStep) bool {
	switch s := step.(type) {
	case ir.WhereStep:
		rex, ok := translateScalar(sys, sc, s.Cond)
		if !ok {
			return false
		}
		b.Filter(rex)
		return true
	case ir.OrderStep:
		items := make([]relbuilder.SortItem, len(s.Items))
		for i, it := range s.Items {
			rex, ok := translateScalar(sys, sc, it.Expr)
			if !ok {
				return false
			}
			items[i] = relbuilder.SortItem{Expr: rex, Desc: it.Desc}
		}
		b.Sort(items)
		return true
	case ir.GroupStep:
		return applyGroup(b, sys, sc, s)
	}
	return false
}

func applyGroup(b relbuilder.Builder, sys types.TypeSystem, sc *scope, s ir.GroupStep) bool {
	keys := make([]relbuilder.Rex, len(s.Keys))
	names := make([]string, 0, len(s.Keys)+len(s.Aggs))
	fieldTypes := make([]types.Type, 0, len(s.Keys)+len(s.Aggs))
	for i, k := range s.Keys {
		rex, ok := translateScalar(sys, sc, k)
		if !ok {
			return false
		}
		keys[i] = rex
		names = append(names, fmt.Sprintf("$key%d", i))
		fieldTypes = append(fieldTypes, rex.Type())
	}
	aggs := make([]relbuilder.AggCall, len(s.Aggs))
	for i, a := range s.Aggs {
		var arg relbuilder.Rex
		aggT := sys.Primitive(types.Int)
		if a.Expr != nil {
			rex, ok := translateScalar(sys, sc, a.Expr)
			if !ok {
				return false
			}
			arg = rex
			aggT = rex.Type()
		}
		aggs[i] = relbuilder.AggCall{Name: a.Name, Op: a.Op, Arg: arg}
		names = append(names, a.Name)
		fieldTypes = append(fieldTypes, aggT)
	}
	b.Aggregate(keys, aggs)
	rebindAfterGroup(sc, s, names)
	// spec.md §4.10 item 4: "after aggregate, permute output fields to
	// name-sorted order so the result matches a canonical record layout."
	return permuteToSortedNames(b, names, fieldTypes)
}

// rebindAfterGroup replaces sc's bindings with exactly the columns a
// GroupStep produces: a row-level reference valid before the group (e.g.
// a source variable the `where` step above could filter on directly) no
// longer denotes anything once rows have been collapsed into groups, so
// only the group keys and named aggregates remain referenceable by a
// later step or the yield.
func rebindAfterGroup(sc *scope, s ir.GroupStep, names []string) {
	sc.vars = map[string]binding{}
	sc.byName = map[string]binding{}
	for i, k := range s.Keys {
		if id, ok := k.(*ir.Ident); ok {
			sc.bind(*id, binding{column: names[i]})
		}
	}
	for i, a := range s.Aggs {
		sc.bindName(a.Name, binding{column: names[len(s.Keys)+i]})
	}
}

func permuteToSortedNames(b relbuilder.Builder, names []string, fieldTypes []types.Type) bool {
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return names[order[i]] < names[order[j]] })

	fields := make([]relbuilder.Rex, len(order))
	sorted := make([]string, len(order))
	for i, origIdx := range order {
		fields[i] = relbuilder.NewColumnRef(fieldTypes[origIdx], "", names[origIdx])
		sorted[i] = names[origIdx]
	}
	b.Project(fields, sorted)
	return true
}

func applyYield(b relbuilder.Builder, sys types.TypeSystem, sc *scope, yield ir.Expr) bool {
	switch y := yield.(type) {
	case *ir.Record:
		fields := make([]relbuilder.Rex, len(y.Elems))
		for i, el := range y.Elems {
			rex, ok := translateScalar(sys, sc, el)
			if !ok {
				return false
			}
			fields[i] = rex
		}
		b.Project(fields, y.Labels)
		return true
	case *ir.Tuple:
		fields := make([]relbuilder.Rex, len(y.Elems))
		names := make([]string, len(y.Elems))
		for i, el := range y.Elems {
			rex, ok := translateScalar(sys, sc, el)
			if !ok {
				return false
			}
			fields[i] = rex
			names[i] = columnName(i, "")
		}
		b.Project(fields, names)
		return true
	default:
		rex, ok := translateScalar(sys, sc, yield)
		if !ok {
			return false
		}
		b.Project([]relbuilder.Rex{rex}, []string{""})
		return true
	}
}

// translateScalar implements spec.md §4.10.1. Identifiers resolve
// through sc (a literal environment binding is out of scope here — the
// interpreter's constant environment is not consumed by this package —
// so (a) is realised by constant-folded Core literals reaching this
// function directly, already produced by internal/inliner before
// lowering runs); anything it cannot place becomes a ScalarEscape
// carrying the expression's printed form and serialised type.
func translateScalar(sys types.TypeSystem, sc *scope, e ir.Expr) (relbuilder.Rex, bool) {
	switch x := e.(type) {
	case *ir.Literal:
		if x.Kind == ir.OpaqueLit {
			return escape(e), true
		}
		return relbuilder.NewLit(x.Type(), literalValue(x)), true

	case *ir.Ident:
		b, ok := sc.lookup(*x)
		if !ok {
			return escape(e), true
		}
		if b.column == "" {
			return relbuilder.NewRowRef(x.Type(), b.alias), true
		}
		return relbuilder.NewColumnRef(x.Type(), b.alias, b.column), true

	case *ir.Select:
		inner, ok := x.Expr.(*ir.Ident)
		if !ok {
			return escape(e), true
		}
		b, lookupOK := sc.lookup(*inner)
		if !lookupOK || b.column != "" {
			return escape(e), true
		}
		col := x.Label
		if col == "" {
			col = strconv.Itoa(x.Index + 1)
		}
		return relbuilder.NewColumnRef(x.Type(), b.alias, col), true

	case *ir.App:
		if name, lhs, rhs, ok := asBinApp(e); ok && knownOps[name] {
			lRex, lOK := translateScalar(sys, sc, lhs)
			rRex, rOK := translateScalar(sys, sc, rhs)
			if lOK && rOK && !isEscape(lRex) && !isEscape(rRex) {
				return relbuilder.NewOp(x.Type(), name, lRex, rRex), true
			}
			return escape(e), true
		}
		if name, arg, ok := asUnaryApp(e); ok && unaryOps[name] {
			aRex, aOK := translateScalar(sys, sc, arg)
			if aOK && !isEscape(aRex) {
				return relbuilder.NewOp(x.Type(), name, aRex), true
			}
		}
		return escape(e), true

	default:
		return escape(e), true
	}
}

func isEscape(r relbuilder.Rex) bool {
	_, ok := r.(relbuilder.ScalarEscape)
	return ok
}

func escape(e ir.Expr) relbuilder.Rex {
	return relbuilder.NewScalarEscape(e, ir.Sdump(e), serializeType(e.Type()))
}

// serializeType produces the small JSON encoding spec.md §4.10.1/§6
// describes for the scalar escape hatch's expected-type payload.
func serializeType(t types.Type) string {
	return fmt.Sprintf("{%q:%q}", "kind", t.Kind().String())
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

func asUnaryApp(e ir.Expr) (name string, arg ir.Expr, ok bool) {
	app, ok := e.(*ir.App)
	if !ok {
		return "", nil, false
	}
	id, ok := app.Fun.(*ir.Ident)
	if !ok {
		return "", nil, false
	}
	return id.Name, app.Arg, true
}
