// Package ast defines the surface syntax tree consumed by the resolver
// (spec.md §4.1). The lexer and parser that produce these nodes, and the
// Hindley-Milner unifier that annotates them, are named external
// collaborators (spec.md §1) and live outside this module; ast only needs
// to describe the node shapes the resolver pattern-matches on.
package ast

// Pos is a minimal source position, enough for diagnostics. It carries no
// file table of its own; callers that need one can wrap it.
type Pos struct {
	Line, Column int
}

// Node is the common supertype of every surface-tree node.
type Node interface {
	Pos() Pos
}

type base struct{ P Pos }

func (b base) Pos() Pos { return b.P }

// ---- Expressions ----

// Expr is a surface expression node.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ base }

func (exprBase) exprNode() {}

// LitKind discriminates literal expressions.
type LitKind uint8

const (
	BoolLit LitKind = iota
	CharLit
	IntLit
	RealLit
	StringLit
	UnitLit
)

// Literal is a literal expression, e.g. 3, "s", true, ().
type Literal struct {
	exprBase
	Kind LitKind
	Text string // raw lexeme; the resolver parses it per Kind
}

// Ident is an identifier reference.
type Ident struct {
	exprBase
	Name string
}

// Fn is a (possibly multi-match) function abstraction:
//
//	fn p1 => e1 | p2 => e2 | ...
//
// A single-match Fn with p1 a bare identifier is already in Core form; the
// general case desugars per spec.md §4.1.
type Fn struct {
	exprBase
	Matches []Match
}

// Match is one arm of a Fn or Case: a pattern and its right-hand side.
type Match struct {
	Pat  Pattern
	Body Expr
}

// App is function application `Fun Arg`.
type App struct {
	exprBase
	Fun, Arg Expr
}

// Infix is a surface infix-operator application, e.g. `a + b`, `a andalso
// b`, `a :: b`. The resolver rewrites it to App of a named built-in
// (spec.md §4.1).
type Infix struct {
	exprBase
	Op       string
	Lhs, Rhs Expr
}

// If is a surface conditional; the resolver desugars it to a two-match
// Case over true/false (spec.md §4.1).
type If struct {
	exprBase
	Cond, Then, Else Expr
}

// Let is `let decl in body end` with a single declaration group; the
// resolver handles recursive-group markers via Decl.Rec.
type Let struct {
	exprBase
	Decl Decl
	Body Expr
}

// MultiVal is `val p1 = e1 and p2 = e2 ... in body end`, n >= 1. n == 1 is
// equivalent to a plain Let; n >= 2 triggers the tuple-pattern desugaring
// of spec.md §4.1.
type MultiVal struct {
	exprBase
	Pats  []Pattern
	Exprs []Expr
	Body  Expr
}

// Case is `case scrutinee of match1 | match2 | ...`.
type Case struct {
	exprBase
	Scrutinee Expr
	Matches   []Match
}

// TupleExpr is a tuple literal `(e1, e2, ...)`.
type TupleExpr struct {
	exprBase
	Elems []Expr
}

// RecordExpr is a record literal `{l1 = e1, l2 = e2, ...}`; labels need not
// be in canonical order (the resolver sorts them, spec.md §4.1).
type RecordExpr struct {
	exprBase
	Labels []string
	Elems  []Expr
}

// ListExpr is a list literal `[e1, e2, ...]`.
type ListExpr struct {
	exprBase
	Elems []Expr
}

// LocalType introduces a local type-scope expression, e.g. `let type t =
// ... in e end` restricted to the type level; carried through unchanged.
type LocalType struct {
	exprBase
	Name string
	Body Expr
}

// Select is a record or tuple field selector, e.g. `#a e` or `#1 t`. Label
// is the raw lexeme after `#` (a name for a record field, a base-1 digit
// string for a tuple position); the resolver turns it into a resolved
// position using Expr's record/tuple type (spec.md §4.5 item 2).
type Select struct {
	exprBase
	Label string
	Expr  Expr
}

// StepKind discriminates comprehension step variants.
type StepKind uint8

const (
	StepSource StepKind = iota // p in e (only used internally while building Sources)
	StepWhere
	StepOrder
	StepGroup
)

// Source is one `p in e` clause of a from-expression.
type Source struct {
	Pat  Pattern
	Expr Expr
}

// OrderItem is one item of an `order` step: an expression and a direction.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// NamedAgg is one aggregate of a `group` step, e.g. `total = sum sales`.
type NamedAgg struct {
	Name string
	Agg  string // sum | count | min | max | ...
	Expr Expr   // argument expression (absent for count, represented nil)
}

// Step is one intermediate comprehension step (spec.md §3).
type Step struct {
	Kind Step2
}

// Step2 is the tagged union of step payloads. Exactly one field group is
// meaningful per Kind.
type Step2 interface {
	stepNode()
}

type WhereStep struct{ Cond Expr }
type OrderStep struct{ Items []OrderItem }
type GroupStep struct {
	Keys []Expr
	Aggs []NamedAgg
}

func (WhereStep) stepNode() {}
func (OrderStep) stepNode() {}
func (GroupStep) stepNode() {}

// From is a comprehension: `from p1 in s1, p2 in s2, steps... yield y`. A
// missing Yield (nil) means the implicit default-yield rule applies
// (spec.md §4.1): the record of all in-scope variables.
type From struct {
	exprBase
	Sources []Source
	Steps   []Step
	Yield   Expr // may be nil
}

// Aggregate is a bare aggregate expression outside a comprehension (e.g.
// `sum xs`), distinct from a group-step's named aggregates.
type Aggregate struct {
	exprBase
	Agg  string
	Expr Expr
}

// ---- Patterns ----

// Pattern is a surface pattern node.
type Pattern interface {
	Node
	patNode()
}

type patBase struct{ base }

func (patBase) patNode() {}

type WildcardPat struct{ patBase }

type IdentPat struct {
	patBase
	Name string
}

type LiteralPat struct {
	patBase
	Kind LitKind
	Text string
}

type TuplePat struct {
	patBase
	Elems []Pattern
}

// RecordPat is a record pattern; fields may be missing or disordered — the
// resolver expands it to a canonical tuple pattern with wildcards filling
// absent fields (spec.md §4.1).
type RecordPat struct {
	patBase
	Labels []string
	Elems  []Pattern
}

type ListPat struct {
	patBase
	Elems []Pattern
}

// ConsPat is `head :: tail`.
type ConsPat struct {
	patBase
	Head, Tail Pattern
}

// Con0Pat is a zero-arity constructor pattern, e.g. `NONE`.
type Con0Pat struct {
	patBase
	Name string
}

// ConPat is an applied constructor pattern, e.g. `SOME x`.
type ConPat struct {
	patBase
	Name string
	Arg  Pattern
}

// AsPat is `p as x`, binding x to the whole matched value.
type AsPat struct {
	patBase
	Name string
	Pat  Pattern
}

// ---- Declarations ----

// Decl is a surface declaration.
type Decl interface {
	Node
	declNode()
}

type declBase struct{ base }

func (declBase) declNode() {}

// ValDecl is a non-recursive single-binding `val p = e`.
type ValDecl struct {
	declBase
	Pat  Pattern
	Expr Expr
}

// RecValDecl is a recursive value group: `val rec f1 = e1 and f2 = e2 ...`.
// Every name is bound before any right-hand side is evaluated (spec.md §3
// invariant 5).
type RecValBinding struct {
	Name string
	Expr Expr
}

type RecValDecl struct {
	declBase
	Bindings []RecValBinding
}

// DatatypeCon is one constructor of a datatype declaration.
type DatatypeCon struct {
	Name string
	Arg  *Type // nil for a zero-arity constructor
}

// Datatype is one type in a (possibly mutually-recursive) datatype group.
type Datatype struct {
	Name     string
	TypeVars []string
	Cons     []DatatypeCon
}

// DatatypeDecl installs a group of mutually-recursive datatypes.
type DatatypeDecl struct {
	declBase
	Types []Datatype
}

// Type is a surface type expression, used only within DatatypeDecl; all
// other type information arrives pre-resolved via the TypeMap.
type Type struct {
	Name string
	Args []Type
}
