// Package resolver implements the Resolver (spec.md §4.1): it turns a
// type-checked surface tree (ast.* nodes, annotated by an external
// Hindley-Milner unifier and exposed through a typemap.TypeMap) into Core
// IR. Desugarings performed here: multi-val flattens to a tuple-pattern
// case expression, multi-match fn becomes `fn x => case x of ...`, `if`
// becomes a two-match boolean case,
// infix operators become applications of named built-ins, record patterns
// are expanded to a canonically-ordered, wildcard-filled form, list
// literals become `::`/nil constructor chains, and comprehensions with no
// explicit yield get the implicit default-yield row.
package resolver

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/compileerr"
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/typemap"
)

// Resolver turns ast.* into ir.* against a fixed TypeSystem and TypeMap.
// One Resolver resolves one compilation unit; construct a fresh one per
// call to Compile (spec.md §6).
type Resolver struct {
	Types   types.TypeSystem
	TypeMap typemap.TypeMap

	scope *scope
	fresh int
	errs  compileerr.List
}

// New builds a Resolver whose outermost scope already knows every name
// bound by seed (spec.md §6's "Environment seed"), so references to
// pre-supplied constants and module values resolve without the Resolver
// needing to interpret them.
func New(ts types.TypeSystem, tm typemap.TypeMap, seed *env.Env) *Resolver {
	r := &Resolver{Types: ts, TypeMap: tm, scope: newScope(nil)}
	if seed != nil {
		for name := range seed.Values() {
			r.scope.bindIdent(name)
		}
	}
	return r
}

// Err returns the accumulated resolution errors, or nil if there were
// none.
func (r *Resolver) Err() error { return r.errs.Err() }

func (r *Resolver) fail(code compileerr.Code, format string, args ...any) {
	r.errs.Add(compileerr.Newf(code, nil, format, args...))
}

// failAt is fail with a source position attached, for the call sites that
// have a surface node to blame.
func (r *Resolver) failAt(n ast.Node, code compileerr.Code, format string, args ...any) {
	r.errs.Add(compileerr.NewfAt(code, n, nil, format, args...))
}

func (r *Resolver) freshName(base string) string {
	r.fresh++
	return fmt.Sprintf("%s$%d", base, r.fresh)
}

// typeOf looks up n's resolved type. A miss means the external unifier
// never annotated a node the resolver expects to find typed, which spec.md
// §4.1 treats as a condition that "should never happen if type resolution
// succeeded" — it is reported as MalformedInput rather than panicking, so
// a caller driving the compiler over untrusted input degrades to an error
// value instead of a crash.
func (r *Resolver) typeOf(n ast.Node) types.Type {
	t, ok := r.TypeMap.TypeOf(n)
	if !ok {
		r.failAt(n, compileerr.MalformedInput, "no resolved type recorded for node")
		return types.Type{}
	}
	return t
}

// ---- Declarations ----

// ResolveDecl resolves one top-level or let-bound declaration. Callers
// that process a sequence of top-level declarations (spec.md §6) should
// call Bind after each one to make its names visible to the next.
func (r *Resolver) ResolveDecl(d ast.Decl) ir.Decl {
	switch x := d.(type) {
	case *ast.ValDecl:
		pat := r.resolvePattern(x.Pat)
		value := r.resolveExpr(x.Expr)
		return ir.ValDecl{Pat: pat, Value: value}

	case *ast.RecValDecl:
		child := newScope(r.scope)
		names := make([]ir.Ident, len(x.Bindings))
		for i, b := range x.Bindings {
			child.bindIdent(b.Name)
			names[i] = *ir.NewIdent(r.identTypeOf(b.Expr), b.Name, 0)
		}
		saved := r.scope
		r.scope = child
		bindings := make([]ir.LetRecBinding, len(x.Bindings))
		for i, b := range x.Bindings {
			bindings[i] = ir.LetRecBinding{Name: names[i], Expr: r.resolveExpr(b.Expr)}
		}
		r.scope = saved
		return ir.RecValDecl{Bindings: bindings}

	case *ast.DatatypeDecl:
		return r.resolveDatatypeDecl(x)

	default:
		r.failAt(d, compileerr.Unsupported, "unsupported declaration %T", d)
		return nil
	}
}

// identTypeOf infers the type a recursive binding's own Ident node should
// carry: the type recorded for its right-hand-side expression, since
// surface decls have no separate node for the bound name itself.
func (r *Resolver) identTypeOf(rhs ast.Expr) types.Type { return r.typeOf(rhs) }

func (r *Resolver) resolveDatatypeDecl(x *ast.DatatypeDecl) ir.Decl {
	types_ := make([]ir.Datatype, len(x.Types))
	for i, dt := range x.Types {
		cons := make([]ir.DataCon, len(dt.Cons))
		for j, c := range dt.Cons {
			if c.Arg == nil {
				r.scope.bindCon(c.Name, 0)
				cons[j] = ir.DataCon{Name: c.Name}
			} else {
				argType := r.resolveTypeExpr(*c.Arg)
				r.scope.bindCon(c.Name, 1)
				cons[j] = ir.DataCon{Name: c.Name, Arg: &argType}
			}
		}
		types_[i] = ir.Datatype{Name: dt.Name, Cons: cons}
	}
	return ir.DatatypeDecl{Types: types_}
}

// resolveTypeExpr resolves the small surface type grammar used only
// inside a DatatypeDecl's constructor argument. "list" is recognised as
// the one built-in unary type constructor; everything else, known
// primitive names aside, becomes a Data reference (either a type variable
// if it carries no arguments and starts lower-case and is not a known
// name, or a named data type).
func (r *Resolver) resolveTypeExpr(t ast.Type) types.Type {
	switch t.Name {
	case "bool":
		return r.Types.Primitive(types.Bool)
	case "char":
		return r.Types.Primitive(types.Char)
	case "int":
		return r.Types.Primitive(types.Int)
	case "real":
		return r.Types.Primitive(types.Real)
	case "string":
		return r.Types.Primitive(types.String)
	case "unit":
		return r.Types.Primitive(types.Unit)
	case "list":
		if len(t.Args) != 1 {
			r.fail(compileerr.MalformedInput, "list type expects exactly one argument, got %d", len(t.Args))
			return types.Type{}
		}
		return r.Types.List(r.resolveTypeExpr(t.Args[0]))
	default:
		if len(t.Args) == 0 && len(t.Name) > 0 && t.Name[0] >= 'a' && t.Name[0] <= 'z' {
			return r.Types.Var(t.Name)
		}
		args := make([]types.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = r.resolveTypeExpr(a)
		}
		return r.Types.Data(t.Name, args)
	}
}

// ---- Expressions ----

func (r *Resolver) resolveExpr(x ast.Expr) ir.Expr {
	switch n := x.(type) {
	case *ast.Literal:
		return r.resolveLiteral(n)

	case *ast.Ident:
		return r.resolveIdent(n)

	case *ast.Fn:
		return r.resolveFn(n)

	case *ast.App:
		return r.resolveApp(n)

	case *ast.Infix:
		return r.resolveInfix(n)

	case *ast.If:
		return r.resolveIf(n)

	case *ast.Let:
		return r.resolveLet(n)

	case *ast.MultiVal:
		return r.resolveMultiVal(n)

	case *ast.Case:
		return r.resolveCase(n)

	case *ast.TupleExpr:
		elems := make([]ir.Expr, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = r.resolveExpr(e)
		}
		return ir.NewTuple(r.typeOf(n), elems)

	case *ast.RecordExpr:
		return r.resolveRecordExpr(n)

	case *ast.ListExpr:
		return r.resolveListExpr(n)

	case *ast.LocalType:
		return ir.NewLocalType(r.typeOf(n), n.Name, r.resolveExpr(n.Body))

	case *ast.From:
		return r.resolveFrom(n)

	case *ast.Aggregate:
		return ir.NewAggregate(r.typeOf(n), n.Agg, r.resolveExpr(n.Expr))

	case *ast.Select:
		return r.resolveSelect(n)

	default:
		r.failAt(x, compileerr.Unsupported, "unsupported expression %T", x)
		return nil
	}
}

func (r *Resolver) resolveLiteral(n *ast.Literal) ir.Expr {
	return r.literalValue(n, r.typeOf(n), n.Kind, n.Text)
}

// literalValue parses a literal lexeme given its already-resolved type. It
// is split out from resolveLiteral so a LiteralPat (which has its own
// TypeMap entry, separate from any ast.Literal node) can reuse the same
// parsing logic without fabricating a throwaway ast.Literal to look up. n
// is the surface node to blame a parse failure on, for diagnostics only.
func (r *Resolver) literalValue(n ast.Node, t types.Type, kind ast.LitKind, text string) *ir.Literal {
	switch kind {
	case ast.BoolLit:
		return ir.BoolLiteral(t, text == "true")
	case ast.CharLit:
		rs := []rune(text)
		var c rune
		if len(rs) > 0 {
			c = rs[0]
		}
		return &ir.Literal{Typed: ir.Typed{T: t}, Kind: ir.CharLit, Char: c}
	case ast.IntLit:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			r.failAt(n, compileerr.MalformedInput, "invalid integer literal %q: %v", text, err)
		}
		return ir.IntLiteral(t, i)
	case ast.RealLit:
		d, err := ir.ParseDecimal(text)
		if err != nil {
			r.failAt(n, compileerr.MalformedInput, "invalid real literal %q: %v", text, err)
		}
		return &ir.Literal{Typed: ir.Typed{T: t}, Kind: ir.RealLit, Real: d}
	case ast.StringLit:
		return ir.StringLiteral(t, text)
	case ast.UnitLit:
		return &ir.Literal{Typed: ir.Typed{T: t}, Kind: ir.UnitLit}
	default:
		r.failAt(n, compileerr.Unsupported, "unsupported literal kind %v", kind)
		return nil
	}
}

// resolveIdent resolves a bare identifier reference. A name installed by a
// DatatypeDecl resolves to a constructor value instead of a plain Ident
// (spec.md §4.1): arity 0 becomes Con0 directly; arity 1, not immediately
// applied here, is eta-expanded to `fn x => Name x` since a constructor
// used as a first-class function value still needs a Core node to apply
// (resolveApp recognises the non-eta-expanded, directly-applied case and
// emits ConApp instead).
func (r *Resolver) resolveIdent(n *ast.Ident) ir.Expr {
	t := r.typeOf(n)
	if c, ok := r.scope.lookupCon(n.Name); ok {
		if c.arity == 0 {
			return ir.NewCon0(t, n.Name)
		}
		return r.etaExpandCon(n.Name, t)
	}
	if !r.scope.hasIdent(n.Name) {
		r.failAt(n, compileerr.UnknownIdentifier, "unknown identifier %q", n.Name)
	}
	return ir.NewIdent(t, n.Name, 0)
}

func (r *Resolver) etaExpandCon(name string, fnType types.Type) ir.Expr {
	param := ir.NewIdent(fnType.Param(), r.freshName("x"), 0)
	body := ir.NewConApp(fnType.Result(), name, ir.NewIdent(fnType.Param(), param.Name, 0))
	return ir.NewFn(fnType, *param, body)
}

func (r *Resolver) resolveFn(n *ast.Fn) ir.Expr {
	if len(n.Matches) == 1 {
		if id, ok := n.Matches[0].Pat.(*ast.IdentPat); ok {
			t := r.typeOf(n)
			child := newScope(r.scope)
			child.bindIdent(id.Name)
			param := ir.NewIdent(t.Param(), id.Name, 0)
			saved := r.scope
			r.scope = child
			body := r.resolveExpr(n.Matches[0].Body)
			r.scope = saved
			return ir.NewFn(t, *param, body)
		}
	}
	// Multi-match (or non-trivial single-match) `fn` desugars to
	// `fn x => case x of ...` (spec.md §4.1).
	t := r.typeOf(n)
	param := ir.NewIdent(t.Param(), r.freshName("fn"), 0)
	matches := make([]ir.Match, len(n.Matches))
	for i, m := range n.Matches {
		child := newScope(r.scope)
		pat := r.resolvePatternIn(child, m.Pat)
		saved := r.scope
		r.scope = child
		matches[i] = ir.Match{Pat: pat, Body: r.resolveExpr(m.Body)}
		r.scope = saved
	}
	scrutinee := ir.NewIdent(t.Param(), param.Name, 0)
	body := ir.NewCase(t.Result(), scrutinee, matches)
	return ir.NewFn(t, *param, body)
}

// resolveApp special-cases an application whose function position is a
// unary constructor name: it becomes ConApp directly rather than routing
// through the eta-expansion resolveIdent would otherwise produce (spec.md
// §4.1's Con0/ConApp rule).
func (r *Resolver) resolveApp(n *ast.App) ir.Expr {
	if id, ok := n.Fun.(*ast.Ident); ok {
		if c, ok := r.scope.lookupCon(id.Name); ok && c.arity == 1 {
			return ir.NewConApp(r.typeOf(n), id.Name, r.resolveExpr(n.Arg))
		}
	}
	return ir.NewApp(r.typeOf(n), r.resolveExpr(n.Fun), r.resolveExpr(n.Arg))
}

// resolveInfix rewrites a surface infix application to App of a named
// built-in (spec.md §4.1). The built-in's own function type and the
// partial application's type are synthesised from the operand/result
// types already on record in the TypeMap, since there is no surface node
// for either intermediate value.
func (r *Resolver) resolveInfix(n *ast.Infix) ir.Expr {
	name, ok := infixBuiltins[n.Op]
	if !ok {
		r.failAt(n, compileerr.Unsupported, "unsupported infix operator %q", n.Op)
		name = n.Op
	}
	lhs := r.resolveExpr(n.Lhs)
	rhs := r.resolveExpr(n.Rhs)
	resultType := r.typeOf(n)
	opType := r.Types.Function(lhs.Type(), r.Types.Function(rhs.Type(), resultType))
	fn := ir.NewIdent(opType, name, 0)
	partial := ir.NewApp(r.Types.Function(rhs.Type(), resultType), fn, lhs)
	return ir.NewApp(resultType, partial, rhs)
}

// resolveIf desugars `if c then t else f` to a two-match boolean Case
// (spec.md §4.1), so later passes never special-case If at all.
func (r *Resolver) resolveIf(n *ast.If) ir.Expr {
	t := r.typeOf(n)
	boolType := r.Types.Primitive(types.Bool)
	cond := r.resolveExpr(n.Cond)
	then := r.resolveExpr(n.Then)
	els := r.resolveExpr(n.Else)
	matches := []ir.Match{
		{Pat: ir.NewLiteralPat(boolType, *ir.BoolLiteral(boolType, true)), Body: then},
		{Pat: ir.NewLiteralPat(boolType, *ir.BoolLiteral(boolType, false)), Body: els},
	}
	return ir.NewCase(t, cond, matches)
}

func (r *Resolver) resolveLet(n *ast.Let) ir.Expr {
	t := r.typeOf(n)
	switch d := n.Decl.(type) {
	case *ast.ValDecl:
		value := r.resolveExpr(d.Expr)
		child := newScope(r.scope)
		pat := r.resolvePatternIn(child, d.Pat)
		saved := r.scope
		r.scope = child
		body := r.resolveExpr(n.Body)
		r.scope = saved
		return ir.NewLet(t, pat, value, body)

	case *ast.RecValDecl:
		child := newScope(r.scope)
		names := make([]ir.Ident, len(d.Bindings))
		for i, b := range d.Bindings {
			child.bindIdent(b.Name)
			names[i] = *ir.NewIdent(r.identTypeOf(b.Expr), b.Name, 0)
		}
		saved := r.scope
		r.scope = child
		bindings := make([]ir.LetRecBinding, len(d.Bindings))
		for i, b := range d.Bindings {
			bindings[i] = ir.LetRecBinding{Name: names[i], Expr: r.resolveExpr(b.Expr)}
		}
		body := r.resolveExpr(n.Body)
		r.scope = saved
		return ir.NewLetRec(t, bindings, body)

	case *ast.DatatypeDecl:
		child := newScope(r.scope)
		saved := r.scope
		r.scope = child
		r.resolveDatatypeDecl(d)
		body := r.resolveExpr(n.Body)
		r.scope = saved
		return ir.NewLocalType(t, d.Types[0].Name, body)

	default:
		r.failAt(d, compileerr.Unsupported, "unsupported let-declaration %T", d)
		return nil
	}
}

// resolveMultiVal desugars `val p1 = e1 and p2 = e2 ... in body` to
// `let v = (e1, ..., en) in case v of (p1, ..., pn) => body` under a fresh
// name for v (spec.md §4.1).
func (r *Resolver) resolveMultiVal(n *ast.MultiVal) ir.Expr {
	t := r.typeOf(n)
	exprs := make([]ir.Expr, len(n.Exprs))
	elemTypes := make([]types.Type, len(n.Exprs))
	for i, e := range n.Exprs {
		exprs[i] = r.resolveExpr(e)
		elemTypes[i] = exprs[i].Type()
	}
	tupleType := r.Types.Tuple(elemTypes)
	tuple := ir.NewTuple(tupleType, exprs)

	vName := r.freshName("mv")
	vIdent := ir.NewIdent(tupleType, vName, 0)

	child := newScope(r.scope)
	elemPats := make([]ir.Pattern, len(n.Pats))
	for i, p := range n.Pats {
		elemPats[i] = r.resolvePatternIn(child, p)
	}
	tuplePat := ir.NewTuplePat(tupleType, elemPats)

	saved := r.scope
	r.scope = child
	body := r.resolveExpr(n.Body)
	r.scope = saved

	scrutinee := ir.NewIdent(tupleType, vName, 0)
	caseExpr := ir.NewCase(t, scrutinee, []ir.Match{{Pat: tuplePat, Body: body}})
	return ir.NewLet(t, ir.NewIdentPat(tupleType, *vIdent), tuple, caseExpr)
}

func (r *Resolver) resolveCase(n *ast.Case) ir.Expr {
	t := r.typeOf(n)
	scrutinee := r.resolveExpr(n.Scrutinee)
	matches := make([]ir.Match, len(n.Matches))
	for i, m := range n.Matches {
		child := newScope(r.scope)
		pat := r.resolvePatternIn(child, m.Pat)
		saved := r.scope
		r.scope = child
		matches[i] = ir.Match{Pat: pat, Body: r.resolveExpr(m.Body)}
		r.scope = saved
	}
	return ir.NewCase(t, scrutinee, matches)
}

// resolveRecordExpr reorders labels/elems into the canonical order carried
// by the expression's own Record-kind type (spec.md §4.1); a record
// literal is always total, so every canonical label is present.
func (r *Resolver) resolveRecordExpr(n *ast.RecordExpr) ir.Expr {
	t := r.typeOf(n)
	byLabel := make(map[string]ir.Expr, len(n.Elems))
	for i, l := range n.Labels {
		byLabel[l] = r.resolveExpr(n.Elems[i])
	}
	canon := t.Labels()
	elems := make([]ir.Expr, len(canon))
	for i, l := range canon {
		e, ok := byLabel[l]
		if !ok {
			r.failAt(n, compileerr.MalformedInput, "record literal missing field %q", l)
			continue
		}
		elems[i] = e
	}
	return ir.NewRecord(t, canon, elems)
}

// resolveListExpr desugars a list literal to a `::`/nil constructor chain
// (spec.md §3 models lists as cons/nil data, mirroring ConsPat/Con0Pat on
// the pattern side), reusing the same built-in-application machinery as
// resolveInfix's `::` case rather than inventing a dedicated list-literal
// IR node.
func (r *Resolver) resolveListExpr(n *ast.ListExpr) ir.Expr {
	listType := r.typeOf(n)
	elemType := listType.Elem()
	consType := r.Types.Function(elemType, r.Types.Function(listType, listType))
	acc := ir.Expr(ir.NewCon0(listType, "nil"))
	for i := len(n.Elems) - 1; i >= 0; i-- {
		el := r.resolveExpr(n.Elems[i])
		fn := ir.NewIdent(consType, "::", 0)
		partial := ir.NewApp(r.Types.Function(listType, listType), fn, el)
		acc = ir.NewApp(listType, partial, acc)
	}
	return acc
}

// resolveSelect resolves a record or tuple field selector `#label e` /
// `#1 e`. The field position is computed once here, from the already
// type-checked operand, so later passes index straight into Elems instead
// of re-deriving a position from the label at every use (spec.md §4.5
// item 2's "record selector over a known tuple value").
func (r *Resolver) resolveSelect(n *ast.Select) ir.Expr {
	operand := r.resolveExpr(n.Expr)
	opType := operand.Type()
	switch opType.Kind() {
	case types.Record:
		for i, l := range opType.Labels() {
			if l == n.Label {
				return ir.NewSelect(r.typeOf(n), n.Label, i, operand)
			}
		}
		r.failAt(n, compileerr.MalformedInput, "record has no field %q", n.Label)
		return ir.NewSelect(r.typeOf(n), n.Label, 0, operand)
	case types.Tuple:
		idx, err := strconv.Atoi(n.Label)
		if err != nil || idx < 1 || idx > len(opType.Elems()) {
			r.failAt(n, compileerr.MalformedInput, "invalid tuple selector #%s", n.Label)
			return ir.NewSelect(r.typeOf(n), "", 0, operand)
		}
		return ir.NewSelect(r.typeOf(n), "", idx-1, operand)
	default:
		r.failAt(n, compileerr.MalformedInput, "selector #%s applied to non-tuple/record type", n.Label)
		return ir.NewSelect(r.typeOf(n), n.Label, 0, operand)
	}
}

// ---- Comprehensions ----

func (r *Resolver) resolveFrom(n *ast.From) ir.Expr {
	t := r.typeOf(n)
	child := newScope(r.scope)
	saved := r.scope
	r.scope = child

	sources := make([]ir.CompSource, len(n.Sources))
	var rowNames []ir.Ident
	for i, src := range n.Sources {
		expr := r.resolveExpr(src.Expr)
		pat := r.resolvePatternIn(r.scope, src.Pat)
		sources[i] = ir.CompSource{Pat: pat, Expr: expr}
		rowNames = append(rowNames, pat.Binders()...)
	}

	steps := make([]ir.CompStep, len(n.Steps))
	for i, st := range n.Steps {
		steps[i] = r.resolveStep(st.Kind)
		if g, ok := st.Kind.(ast.GroupStep); ok {
			rowNames = r.groupRowNames(&g, steps[i].(ir.GroupStep))
		}
	}

	var yield ir.Expr
	if n.Yield != nil {
		yield = r.resolveExpr(n.Yield)
	} else {
		yield = r.defaultYield(t, rowNames)
	}
	r.scope = saved
	return ir.NewComprehension(t, sources, steps, yield)
}

// defaultYield builds the implicit yield row for a `from` with no
// explicit `yield` clause (spec.md §4.1): a record of the names currently
// bound, sorted by label for a deterministic canonical shape.
func (r *Resolver) defaultYield(compType types.Type, names []ir.Ident) ir.Expr {
	sorted := make([]ir.Ident, len(names))
	copy(sorted, names)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	labels := make([]string, len(sorted))
	elems := make([]ir.Expr, len(sorted))
	for i, id := range sorted {
		labels[i] = id.Name
		elems[i] = ir.NewIdent(id.Type(), id.Name, id.Ord)
	}
	return ir.NewRecord(compType.Elem(), labels, elems)
}

// groupRowNames computes the row shape a GroupStep leaves behind: the
// group's key expressions are anonymous at the surface (ast.GroupStep
// carries bare Keys, no names), so they are given synthetic positional
// names; a subsequent implicit yield sees "key0", "key1", ... followed by
// each named aggregate, in source order. A query relying on the implicit
// yield after a group step is expected to name its keys via an explicit
// yield in practice; this is a deliberate, documented fallback.
func (r *Resolver) groupRowNames(g *ast.GroupStep, ir_ ir.GroupStep) []ir.Ident {
	names := make([]ir.Ident, 0, len(g.Keys)+len(g.Aggs))
	for i, k := range ir_.Keys {
		names = append(names, *ir.NewIdent(k.Type(), fmt.Sprintf("key%d", i), 0))
	}
	for _, a := range ir_.Aggs {
		t := r.Types.Primitive(types.Int)
		if a.Expr != nil {
			t = a.Expr.Type()
		}
		names = append(names, *ir.NewIdent(t, a.Name, 0))
	}
	return names
}

func (r *Resolver) resolveStep(st ast.Step2) ir.CompStep {
	switch x := st.(type) {
	case ast.WhereStep:
		return ir.WhereStep{Cond: r.resolveExpr(x.Cond)}
	case ast.OrderStep:
		items := make([]ir.OrderItem, len(x.Items))
		for i, it := range x.Items {
			items[i] = ir.OrderItem{Expr: r.resolveExpr(it.Expr), Desc: it.Desc}
		}
		return ir.OrderStep{Items: items}
	case ast.GroupStep:
		return r.resolveGroupStep(&x)
	default:
		// Step2 carries no embedded Pos of its own (spec.md §3's step
		// payloads are plain value types, not surface nodes), so this
		// diagnostic is one of the few left unpositioned.
		r.fail(compileerr.Unsupported, "unsupported comprehension step %T", st)
		return nil
	}
}

func (r *Resolver) resolveGroupStep(x *ast.GroupStep) ir.GroupStep {
	keys := make([]ir.Expr, len(x.Keys))
	for i, k := range x.Keys {
		keys[i] = r.resolveExpr(k)
	}
	aggs := make([]ir.NamedAgg, len(x.Aggs))
	for i, a := range x.Aggs {
		if !aggregateNames[a.Agg] {
			if a.Expr != nil {
				r.failAt(a.Expr, compileerr.Unsupported, "unknown aggregate %q", a.Agg)
			} else {
				r.fail(compileerr.Unsupported, "unknown aggregate %q", a.Agg)
			}
		}
		var ae ir.Expr
		if a.Expr != nil {
			ae = r.resolveExpr(a.Expr)
		}
		aggs[i] = ir.NamedAgg{Name: a.Name, Op: a.Agg, Expr: ae}
	}
	return ir.GroupStep{Keys: keys, Aggs: aggs}
}

// ---- Patterns ----

func (r *Resolver) resolvePattern(p ast.Pattern) ir.Pattern {
	return r.resolvePatternIn(r.scope, p)
}

// resolvePatternIn resolves p, installing every binder it introduces into
// scope as it goes (so a later element of the same pattern, or the body
// that follows it, sees earlier binders — relevant for AsPat and for
// sibling scope frames built incrementally, e.g. comprehension sources).
func (r *Resolver) resolvePatternIn(scope *scope, p ast.Pattern) ir.Pattern {
	switch n := p.(type) {
	case *ast.WildcardPat:
		return ir.NewWildcardPat(r.typeOf(n))

	case *ast.IdentPat:
		scope.bindIdent(n.Name)
		return ir.NewIdentPat(r.typeOf(n), *ir.NewIdent(r.typeOf(n), n.Name, 0))

	case *ast.LiteralPat:
		t := r.typeOf(n)
		lit := r.literalValue(n, t, n.Kind, n.Text)
		return ir.NewLiteralPat(t, *lit)

	case *ast.TuplePat:
		elems := make([]ir.Pattern, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = r.resolvePatternIn(scope, el)
		}
		return ir.NewTuplePat(r.typeOf(n), elems)

	case *ast.RecordPat:
		return r.resolveRecordPat(scope, n)

	case *ast.ListPat:
		elems := make([]ir.Pattern, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = r.resolvePatternIn(scope, el)
		}
		return ir.NewListPat(r.typeOf(n), elems)

	case *ast.ConsPat:
		head := r.resolvePatternIn(scope, n.Head)
		tail := r.resolvePatternIn(scope, n.Tail)
		return ir.NewConsPat(r.typeOf(n), head, tail)

	case *ast.Con0Pat:
		return ir.NewCon0Pat(r.typeOf(n), n.Name)

	case *ast.ConPat:
		arg := r.resolvePatternIn(scope, n.Arg)
		return ir.NewConPat(r.typeOf(n), n.Name, arg)

	case *ast.AsPat:
		scope.bindIdent(n.Name)
		inner := r.resolvePatternIn(scope, n.Pat)
		t := r.typeOf(n)
		return ir.NewAsPat(t, *ir.NewIdent(t, n.Name, 0), inner)

	default:
		r.failAt(p, compileerr.Unsupported, "unsupported pattern %T", p)
		return nil
	}
}

// resolveRecordPat expands a possibly-partial, possibly-disordered record
// pattern into the canonical, fully-ordered form with wildcards filling
// absent fields (spec.md §4.1), using the pattern's own Record-kind type
// for the canonical label order.
func (r *Resolver) resolveRecordPat(scope *scope, n *ast.RecordPat) ir.Pattern {
	t := r.typeOf(n)
	byLabel := make(map[string]ir.Pattern, len(n.Elems))
	for i, l := range n.Labels {
		byLabel[l] = r.resolvePatternIn(scope, n.Elems[i])
	}
	canon := t.Labels()
	fieldTypes := t.Elems()
	elems := make([]ir.Pattern, len(canon))
	for i, l := range canon {
		if p, ok := byLabel[l]; ok {
			elems[i] = p
			continue
		}
		var ft types.Type
		if i < len(fieldTypes) {
			ft = fieldTypes[i]
		}
		elems[i] = ir.NewWildcardPat(ft)
	}
	return ir.NewRecordPat(t, canon, elems)
}
