// Package relbuilder defines the RelBuilder interface consumed from the
// external relational backend (spec.md §4.10, §6): "bit-exact operator
// names are backend-defined", so this package fixes only the shape
// internal/rellower needs to drive — a stack-based construction API in
// the style of a relational-algebra query builder (push a plan, then
// project/filter/sort/aggregate/join/union against the top of the
// stack), plus the Rex scalar-expression vocabulary spec.md §4.10.1
// names and a Types() factory mirroring internal/core/types.TypeSystem's
// own construction-interface shape.
package relbuilder

import (
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
)

// RelPlan is an opaque handle to a relational subplan. The core never
// inspects one itself, only threads it back into the Builder that
// produced it.
type RelPlan any

// Rex is a relational scalar expression built by rellower's scalar
// translation (spec.md §4.10.1).
type Rex interface {
	Type() types.Type
	rexNode()
}

type rexTyped struct{ t types.Type }

func (r rexTyped) Type() types.Type { return r.t }
func (rexTyped) rexNode()           {}

// Lit is a constant scalar value carried straight from a Core literal
// (spec.md §4.10.1(a): "a literal if the environment holds a primitive
// value").
type Lit struct {
	rexTyped
	Value any
}

func NewLit(t types.Type, value any) Lit { return Lit{rexTyped{t}, value} }

// RowRef refers to an entire row produced by one join input, identified
// by the alias assigned when its source was pushed (spec.md
// §4.10.1(b): "a range reference if the variable denotes a whole row").
type RowRef struct {
	rexTyped
	Alias string
}

func NewRowRef(t types.Type, alias string) RowRef { return RowRef{rexTyped{t}, alias} }

// ColumnRef refers to a single named column of a row (spec.md
// §4.10.1(c): "a single-column reference otherwise").
type ColumnRef struct {
	rexTyped
	Alias  string
	Column string
}

func NewColumnRef(t types.Type, alias, column string) ColumnRef {
	return ColumnRef{rexTyped{t}, alias, column}
}

// Op is a known operator applied to translated scalar arguments — the
// fixed table internal/rellower translates: `=`, `<>`, `<`, `<=`, `>`,
// `>=`, `+`, `-`, `*`, `/`, `mod`, `andalso`, `orelse`, and unary
// negation under the name `~`.
type Op struct {
	rexTyped
	Name string
	Args []Rex
}

func NewOp(t types.Type, name string, args ...Rex) Op { return Op{rexTyped{t}, name, args} }

// ScalarEscape carries a Core expression the scalar translator could not
// map to the known operator table (spec.md §4.10.1, §6). Expr is the
// original Core-IR node, kept for an in-process reference backend (such
// as internal/memrel) to evaluate directly; SerializedExpr/SerializedType
// are the printed/encoded forms a genuinely external backend would need
// instead, since it cannot share Go values with the compiler.
type ScalarEscape struct {
	rexTyped
	Expr           ir.Expr
	SerializedExpr string
	SerializedType string
}

func NewScalarEscape(expr ir.Expr, serializedExpr, serializedType string) ScalarEscape {
	return ScalarEscape{rexTyped{expr.Type()}, expr, serializedExpr, serializedType}
}

// SortItem is one `order` entry.
type SortItem struct {
	Expr Rex
	Desc bool
}

// AggCall is one `group` aggregate: a result name, a built-in op
// (sum/count/min/max), and its argument (nil for count, spec.md §4.10
// item 4).
type AggCall struct {
	Name string
	Op   string
	Arg  Rex
}

// Schema names and types the columns of a Values plan.
type Schema struct {
	Names []string
	Types []types.Type
}

// Builder is the consumed relational construction API (spec.md §4.10):
// push(source), as(alias), project(fields, names), filter(rex),
// sort(items), aggregate(keys, aggs), union(n), intersect(n), minus(n),
// join(inner), values(schema), functionScan(op, args), and a type
// factory. Every method but Build/Peek/Types operates on (and replaces)
// the top of an implicit plan stack, so a caller building a chain of
// joins never has to thread intermediate RelPlan values through by hand.
type Builder interface {
	// Push makes plan the new top of the stack — the entry point for a
	// base relation (e.g. a table scan a backend already knows about).
	Push(plan RelPlan) Builder
	// As assigns an alias to the row produced by the current top of
	// stack, for later RowRef/ColumnRef construction.
	As(alias string) Builder
	Project(fields []Rex, names []string) Builder
	Filter(rex Rex) Builder
	Sort(items []SortItem) Builder
	Aggregate(keys []Rex, aggs []AggCall) Builder
	// Union/Intersect/Minus combine the top n plans on the stack,
	// replacing them with one.
	Union(n int) Builder
	Intersect(n int) Builder
	Minus(n int) Builder
	// Join inner-joins the top two plans on the stack on cond,
	// replacing them with one (spec.md §4.10 item 2: sources are always
	// chained by inner joins).
	Join(cond Rex) Builder
	Values(schema Schema, rows [][]any) Builder
	FunctionScan(op string, args []Rex) Builder
	// Peek returns the current top of stack without popping it, for a
	// caller (rellower) that needs to inspect the plan it just built
	// before deciding the next step.
	Peek() RelPlan
	// Build pops and returns the top of stack as the finished plan.
	Build() RelPlan
	Types() types.TypeSystem
}
