// Package memrel is a reference, in-memory implementation of
// relbuilder.Builder (spec.md §4.10, §6). It exists so internal/rellower's
// relational lowering path is exercised end to end by tests in this
// repository rather than merely documented against an interface: a real
// RelBuilder belongs to the external relational backend, but a compiler
// this small still needs something to run its own plans against.
package memrel

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/apd/v3"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/relbuilder"
)

// row is one tuple flowing through a plan. Columns are keyed by a
// qualified name: "alias" for a whole single-column row (the common case
// for a source that is itself a list of scalars) or "alias.column" for one
// field of a multi-column row. RowRef/ColumnRef translate directly to
// these two key shapes (see Builder.As).
type row map[string]any

// Plan is the RelPlan value this package produces: a materialised table.
// Evaluation is eager, matching a reference implementation's job of being
// obviously correct rather than fast.
type Plan struct {
	Columns []string // qualified column names, in output order
	Rows    []row
}

// relation is a named, registered external table a FunctionScan resolves
// against (spec.md §4.10 item 1's "scanning a relation the backend already
// knows about").
type relation struct {
	columns []string
	rows    []row
}

// Builder is the reference relbuilder.Builder. It is not safe for
// concurrent use; build one plan to completion before reusing it for the
// next comprehension.
type Builder struct {
	sys       types.TypeSystem
	relations map[string]relation
	stack     []*Plan
}

// New returns an empty reference Builder over sys.
func New(sys types.TypeSystem) *Builder {
	return &Builder{sys: sys, relations: map[string]relation{}}
}

// Register installs a named relation FunctionScan(name, ...) can later
// resolve, with rows given positionally against names.
func (b *Builder) Register(name string, names []string, data [][]any) {
	rows := make([]row, len(data))
	for i, d := range data {
		r := row{}
		for j, col := range names {
			r[name+"."+col] = d[j]
		}
		if len(names) == 1 {
			r[name] = d[0]
		}
		rows[i] = r
	}
	qualified := make([]string, len(names))
	for i, n := range names {
		qualified[i] = name + "." + n
	}
	b.relations[name] = relation{columns: qualified, rows: rows}
}

func (b *Builder) top() *Plan { return b.stack[len(b.stack)-1] }

func (b *Builder) Push(plan relbuilder.RelPlan) relbuilder.Builder {
	p, ok := plan.(*Plan)
	if !ok {
		panic(fmt.Sprintf("memrel: Push given a %T, want *memrel.Plan", plan))
	}
	b.stack = append(b.stack, p)
	return b
}

// As aliases the current top of stack: every column is renamed to
// "alias.<suffix>" (the part after the last '.', or the whole name for an
// unqualified single column), and a bare "alias" key is added when the row
// has exactly one column so RowRef(alias) resolves to that scalar value
// directly instead of a one-field map.
func (b *Builder) As(alias string) relbuilder.Builder {
	p := b.top()
	newCols := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		newCols[i] = alias + "." + suffix(col)
	}
	for _, r := range p.Rows {
		for i, col := range p.Columns {
			r[newCols[i]] = r[col]
			if col != newCols[i] {
				delete(r, col)
			}
		}
		if len(newCols) == 1 {
			r[alias] = r[newCols[0]]
		}
	}
	p.Columns = newCols
	return b
}

func suffix(qualified string) string {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[i+1:]
		}
	}
	return qualified
}

func (b *Builder) Project(fields []relbuilder.Rex, names []string) relbuilder.Builder {
	p := b.top()
	out := make([]row, len(p.Rows))
	for i, r := range p.Rows {
		nr := row{}
		for j, f := range fields {
			v, err := eval(b.sys, f, r)
			if err != nil {
				panic(err)
			}
			nr[names[j]] = v
		}
		out[i] = nr
	}
	b.stack[len(b.stack)-1] = &Plan{Columns: append([]string{}, names...), Rows: out}
	return b
}

func (b *Builder) Filter(rex relbuilder.Rex) relbuilder.Builder {
	p := b.top()
	var out []row
	for _, r := range p.Rows {
		v, err := eval(b.sys, rex, r)
		if err != nil {
			panic(err)
		}
		if keep, _ := v.(bool); keep {
			out = append(out, r)
		}
	}
	b.stack[len(b.stack)-1] = &Plan{Columns: p.Columns, Rows: out}
	return b
}

func (b *Builder) Sort(items []relbuilder.SortItem) relbuilder.Builder {
	p := b.top()
	out := append([]row{}, p.Rows...)
	sort.SliceStable(out, func(i, j int) bool {
		for _, it := range items {
			vi, _ := eval(b.sys, it.Expr, out[i])
			vj, _ := eval(b.sys, it.Expr, out[j])
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if it.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	b.stack[len(b.stack)-1] = &Plan{Columns: p.Columns, Rows: out}
	return b
}

func (b *Builder) Aggregate(keys []relbuilder.Rex, aggs []relbuilder.AggCall) relbuilder.Builder {
	p := b.top()
	type group struct {
		keyVals []any
		rows    []row
	}
	var groups []*group
	for _, r := range p.Rows {
		vals := make([]any, len(keys))
		for i, k := range keys {
			v, err := eval(b.sys, k, r)
			if err != nil {
				panic(err)
			}
			vals[i] = v
		}
		var g *group
		for _, cand := range groups {
			if sameValues(cand.keyVals, vals) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{keyVals: vals}
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}

	names := make([]string, 0, len(keys)+len(aggs))
	for i := range keys {
		names = append(names, fmt.Sprintf("$key%d", i))
	}
	for _, a := range aggs {
		names = append(names, a.Name)
	}

	out := make([]row, len(groups))
	for gi, g := range groups {
		nr := row{}
		for i, v := range g.keyVals {
			nr[names[i]] = v
		}
		for ai, a := range aggs {
			nr[names[len(keys)+ai]] = aggregate(b.sys, a, g.rows)
		}
		out[gi] = nr
	}
	b.stack[len(b.stack)-1] = &Plan{Columns: names, Rows: out}
	return b
}

func aggregate(sys types.TypeSystem, a relbuilder.AggCall, rows []row) any {
	switch a.Op {
	case "count":
		return int64(len(rows))
	case "sum":
		acc := apd.Decimal{}
		isInt := true
		var intAcc int64
		for _, r := range rows {
			v, _ := eval(sys, a.Arg, r)
			switch n := v.(type) {
			case int64:
				intAcc += n
			default:
				isInt = false
				d := decimalOf(v)
				ctx := apd.BaseContext.WithPrecision(40)
				_, _ = ctx.Add(&acc, &acc, &d)
			}
		}
		if isInt {
			return intAcc
		}
		return acc
	case "min", "max":
		if len(rows) == 0 {
			return nil
		}
		best, _ := eval(sys, a.Arg, rows[0])
		for _, r := range rows[1:] {
			v, _ := eval(sys, a.Arg, r)
			c := compareValues(v, best)
			if (a.Op == "min" && c < 0) || (a.Op == "max" && c > 0) {
				best = v
			}
		}
		return best
	}
	return nil
}

func (b *Builder) Union(n int) relbuilder.Builder    { return b.setOp(n, unionOp) }
func (b *Builder) Intersect(n int) relbuilder.Builder { return b.setOp(n, intersectOp) }
func (b *Builder) Minus(n int) relbuilder.Builder     { return b.setOp(n, minusOp) }

type setOpKind int

const (
	unionOp setOpKind = iota
	intersectOp
	minusOp
)

func (b *Builder) setOp(n int, kind setOpKind) relbuilder.Builder {
	plans := b.stack[len(b.stack)-n:]
	b.stack = b.stack[:len(b.stack)-n]

	base := plans[0]
	var out []row
	switch kind {
	case unionOp:
		out = append(out, base.Rows...)
		for _, p := range plans[1:] {
			out = append(out, p.Rows...)
		}
	case intersectOp:
		for _, r := range base.Rows {
			inAll := true
			for _, p := range plans[1:] {
				if !containsRow(p.Rows, r) {
					inAll = false
					break
				}
			}
			if inAll {
				out = append(out, r)
			}
		}
	case minusOp:
		for _, r := range base.Rows {
			excluded := false
			for _, p := range plans[1:] {
				if containsRow(p.Rows, r) {
					excluded = true
					break
				}
			}
			if !excluded {
				out = append(out, r)
			}
		}
	}
	b.stack = append(b.stack, &Plan{Columns: base.Columns, Rows: out})
	return b
}

func containsRow(rows []row, target row) bool {
	for _, r := range rows {
		if rowsEqual(r, target) {
			return true
		}
	}
	return false
}

func rowsEqual(a, b row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || compareValues(v, bv) != 0 {
			return false
		}
	}
	return true
}

// Join inner-joins the top two plans on cond (spec.md §4.10 item 2: every
// comprehension source after the first is always joined this way). Since
// this reference implementation evaluates eagerly, it simply computes the
// cross product and filters, rather than choosing a join algorithm.
func (b *Builder) Join(cond relbuilder.Rex) relbuilder.Builder {
	right := b.stack[len(b.stack)-1]
	left := b.stack[len(b.stack)-2]
	b.stack = b.stack[:len(b.stack)-2]

	cols := append(append([]string{}, left.Columns...), right.Columns...)
	var out []row
	for _, lr := range left.Rows {
		for _, rr := range right.Rows {
			merged := row{}
			for k, v := range lr {
				merged[k] = v
			}
			for k, v := range rr {
				merged[k] = v
			}
			v, err := eval(b.sys, cond, merged)
			if err != nil {
				panic(err)
			}
			if keep, _ := v.(bool); keep {
				out = append(out, merged)
			}
		}
	}
	b.stack = append(b.stack, &Plan{Columns: cols, Rows: out})
	return b
}

func (b *Builder) Values(schema relbuilder.Schema, rows [][]any) relbuilder.Builder {
	out := make([]row, len(rows))
	for i, r := range rows {
		nr := row{}
		for j, name := range schema.Names {
			nr[name] = r[j]
		}
		out[i] = nr
	}
	b.stack = append(b.stack, &Plan{Columns: append([]string{}, schema.Names...), Rows: out})
	return b
}

// FunctionScan resolves op against a relation previously installed with
// Register. A backend able to invoke arbitrary table functions is out of
// scope for a reference implementation: Register's fixtures stand in for
// whatever scan op names the real backend understands.
func (b *Builder) FunctionScan(op string, args []relbuilder.Rex) relbuilder.Builder {
	rel, ok := b.relations[op]
	if !ok {
		panic(fmt.Sprintf("memrel: no relation registered for FunctionScan(%q)", op))
	}
	rows := make([]row, len(rel.rows))
	for i, r := range rel.rows {
		nr := row{}
		for k, v := range r {
			nr[k] = v
		}
		rows[i] = nr
	}
	b.stack = append(b.stack, &Plan{Columns: append([]string{}, rel.columns...), Rows: rows})
	return b
}

func (b *Builder) Peek() relbuilder.RelPlan { return b.top() }

func (b *Builder) Build() relbuilder.RelPlan {
	p := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	return p
}

func (b *Builder) Types() types.TypeSystem { return b.sys }

// eval is the reference scalar evaluator (SPEC_FULL.md's commitment that
// the escape hatch is exercised by tests, not merely documented): Lit,
// RowRef, ColumnRef, and the fixed Op table evaluate directly; a
// ScalarEscape falls back to evaluating its carried ir.Expr via a small
// closed-expression interpreter limited to literals, known operators, and
// the same whole-row identifiers As ties to a row's bare alias key — not a
// general evaluator, since interpreting arbitrary Core IR (unresolved
// lets, case expressions, user function calls) is explicitly out of scope.
func eval(sys types.TypeSystem, rex relbuilder.Rex, r row) (any, error) {
	switch x := rex.(type) {
	case relbuilder.Lit:
		return x.Value, nil
	case relbuilder.RowRef:
		v, ok := r[x.Alias]
		if !ok {
			return nil, fmt.Errorf("memrel: no row value bound for alias %q", x.Alias)
		}
		return v, nil
	case relbuilder.ColumnRef:
		key := x.Alias + "." + x.Column
		if x.Alias == "" {
			key = x.Column
		}
		v, ok := r[key]
		if !ok {
			return nil, fmt.Errorf("memrel: no column %q", key)
		}
		return v, nil
	case relbuilder.Op:
		return evalOp(sys, x, r)
	case relbuilder.ScalarEscape:
		return evalExpr(x.Expr, r)
	}
	return nil, fmt.Errorf("memrel: unrecognised Rex %T", rex)
}

func evalOp(sys types.TypeSystem, op relbuilder.Op, r row) (any, error) {
	args := make([]any, len(op.Args))
	for i, a := range op.Args {
		v, err := eval(sys, a, r)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return applyOp(op.Name, args)
}

// evalExpr evaluates the closed subset of ir.Expr memrel is willing to
// interpret directly: literals, known-operator applications, and an
// identifier that resolves to a whole row bound under its own alias (the
// alias convention internal/rellower's lowerSourceExpr/bindPattern use for
// an IdentPat source, encoded as "name$ord" — see identKeyAlias).
func evalExpr(e ir.Expr, r row) (any, error) {
	switch x := e.(type) {
	case *ir.Literal:
		return literalValue(x), nil
	case *ir.Ident:
		alias := identKeyAlias(*x)
		if v, ok := r[alias]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("memrel: escaped expression references unbound identifier %q", x.Name)
	case *ir.App:
		if name, lhs, rhs, ok := binAppOf(e); ok {
			lv, err := evalExpr(lhs, r)
			if err != nil {
				return nil, err
			}
			rv, err := evalExpr(rhs, r)
			if err != nil {
				return nil, err
			}
			return applyOp(name, []any{lv, rv})
		}
		if name, arg, ok := unaryAppOf(e); ok {
			av, err := evalExpr(arg, r)
			if err != nil {
				return nil, err
			}
			return applyOp(name, []any{av})
		}
		return nil, fmt.Errorf("memrel: cannot evaluate escaped application")
	}
	return nil, fmt.Errorf("memrel: cannot evaluate escaped expression of type %T", e)
}

func identKeyAlias(id ir.Ident) string {
	return fmt.Sprintf("%s$%d", id.Name, id.Ord)
}

func binAppOf(e ir.Expr) (name string, lhs, rhs ir.Expr, ok bool) {
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

func unaryAppOf(e ir.Expr) (name string, arg ir.Expr, ok bool) {
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

func applyOp(name string, args []any) (any, error) {
	switch name {
	case "andalso":
		return args[0].(bool) && args[1].(bool), nil
	case "orelse":
		return args[0].(bool) || args[1].(bool), nil
	case "not", "~":
		if b, ok := args[0].(bool); ok {
			return !b, nil
		}
		return negate(args[0]), nil
	case "=":
		return compareValues(args[0], args[1]) == 0, nil
	case "<>":
		return compareValues(args[0], args[1]) != 0, nil
	case "<":
		return compareValues(args[0], args[1]) < 0, nil
	case "<=":
		return compareValues(args[0], args[1]) <= 0, nil
	case ">":
		return compareValues(args[0], args[1]) > 0, nil
	case ">=":
		return compareValues(args[0], args[1]) >= 0, nil
	case "+":
		return arith(args, '+'), nil
	case "-":
		if len(args) == 1 {
			return negate(args[0]), nil
		}
		return arith(args, '-'), nil
	case "*":
		return arith(args, '*'), nil
	case "/":
		return arith(args, '/'), nil
	case "mod":
		return args[0].(int64) % args[1].(int64), nil
	}
	return nil, fmt.Errorf("memrel: unknown operator %q", name)
}

func negate(v any) any {
	switch n := v.(type) {
	case int64:
		return -n
	case apd.Decimal:
		var r apd.Decimal
		ctx := apd.BaseContext.WithPrecision(40)
		_, _ = ctx.Neg(&r, &n)
		return r
	}
	return v
}

func arith(args []any, op byte) any {
	if li, ok := args[0].(int64); ok {
		if ri, ok := args[1].(int64); ok {
			switch op {
			case '+':
				return li + ri
			case '-':
				return li - ri
			case '*':
				return li * ri
			case '/':
				if ri == 0 {
					return int64(0)
				}
				return li / ri
			}
		}
	}
	l := decimalOf(args[0])
	r := decimalOf(args[1])
	var out apd.Decimal
	ctx := apd.BaseContext.WithPrecision(40)
	switch op {
	case '+':
		_, _ = ctx.Add(&out, &l, &r)
	case '-':
		_, _ = ctx.Sub(&out, &l, &r)
	case '*':
		_, _ = ctx.Mul(&out, &l, &r)
	case '/':
		_, _ = ctx.Quo(&out, &l, &r)
	}
	return out
}

func decimalOf(v any) apd.Decimal {
	switch n := v.(type) {
	case apd.Decimal:
		return n
	case int64:
		return *apd.New(n, 0)
	}
	return apd.Decimal{}
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case apd.Decimal:
		y := decimalOf(b)
		return x.Cmp(&y)
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case rune:
		y := b.(rune)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	}
	return 0
}

func sameValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if compareValues(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}
