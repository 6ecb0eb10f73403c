// Package ir defines Core IR: the normalised, explicitly-typed tree that
// the Resolver produces and every optimiser pass, generator synthesiser,
// and relational lowering stage operates over (spec.md §3). It is a
// closed family of node variants; passes are written as functions that
// switch over the concrete type, not as a visitor-hierarchy of
// subclasses (spec.md §9 "Deep dynamic dispatch").
package ir

import "github.com/weave-lang/weavec/internal/core/types"

// Expr is a Core-IR expression. Every variant carries its resolved type;
// Core IR never reconstructs a type from context (spec.md §3 invariant 1).
type Expr interface {
	Type() types.Type
	exprNode()
}

// Typed is embedded by every Expr variant to carry its type. It is
// exported so other packages can build new Core-IR nodes (e.g. the
// Shuttle rebuilding a subtree, or the Inliner materialising a
// specialised node) without reaching into unexported fields.
type Typed struct{ T types.Type }

func (t Typed) Type() types.Type { return t.T }

func (Typed) exprNode() {}

// LitKind discriminates literal expressions, matching ast.LitKind plus the
// opaque-value escape hatch spec.md §3 names for values that only make
// sense at runtime (e.g. a constructed RelBuilder handle folded back into
// a literal by an earlier pass).
type LitKind uint8

const (
	BoolLit LitKind = iota
	CharLit
	IntLit
	RealLit
	StringLit
	UnitLit
	OpaqueLit
)

// Literal is a literal value. Bool/Char/Int/String/Unit are represented
// directly in native Go types; Real uses an arbitrary-precision decimal
// (github.com/cockroachdb/apd/v3) so constant folding during inlining
// (spec.md §4.5) and range-generator bound arithmetic (spec.md §4.7) never
// lose precision the way a float64 literal would. Opaque carries a value
// of a type the core does not interpret itself (e.g. a handle produced by
// `eval`), identified only by an implementer-defined tag.
type Literal struct {
	Typed
	Kind LitKind

	Bool   bool
	Char   rune
	Int    int64
	Real   Decimal
	String string

	Opaque    any
	OpaqueTag string
}

// Ident is a reference to a binder introduced by Fn, Let, LetRec, a Case
// match, or a comprehension Source. Name is preserved from the surface
// syntax; Ord distinguishes otherwise-identical names after uniquification
// (spec.md §4.3).
type Ident struct {
	Typed
	Name string
	Ord  int
}

// Fn is a single-parameter function abstraction. Multi-match `fn` is
// desugared by the Resolver to `fn x => case x of ...` (spec.md §4.1), so
// Core IR never represents more than one match directly on a Fn node.
type Fn struct {
	Typed
	Param Ident
	Body  Expr
}

// App is function application.
type App struct {
	Typed
	Fun, Arg Expr
}

// Let is a single non-recursive binding followed by a body.
type Let struct {
	Typed
	Pat   Pattern
	Value Expr
	Body  Expr
}

// LetRecBinding is one binding of a recursive let group.
type LetRecBinding struct {
	Name Ident
	Expr Expr
}

// LetRec is a recursive let: every name is bound before any right-hand
// side is evaluated (spec.md §3 invariant 5).
type LetRec struct {
	Typed
	Bindings []LetRecBinding
	Body     Expr
}

// Match is one arm of a Case: an ordered pattern and its right-hand side.
// Earlier matches shadow later ones (spec.md §3 invariant 3).
type Match struct {
	Pat  Pattern
	Body Expr
}

// Case is a case-of expression over an ordered list of matches.
type Case struct {
	Typed
	Scrutinee Expr
	Matches   []Match
}

// Tuple is a tuple literal.
type Tuple struct {
	Typed
	Elems []Expr
}

// Record is a tuple with labelled fields (spec.md §3): same shape as
// Tuple, plus a parallel Labels slice, already canonically ordered by the
// Resolver.
type Record struct {
	Typed
	Labels []string
	Elems  []Expr
}

// LocalType scopes a local type declaration around Body; it carries no
// semantic content of its own beyond delimiting scope, since all type
// information lives in the TypeMap / node types.
type LocalType struct {
	Typed
	Name string
	Body Expr
}

// Comprehension is a `from` expression: an ordered sequence of sources
// executed as left-deep inner joins (spec.md §3 invariant 4), an ordered
// sequence of intermediate steps, and a yield expression.
type Comprehension struct {
	Typed
	Sources []CompSource
	Steps   []CompStep
	Yield   Expr
}

// CompSource is one `p in e` clause; Pat's binders enter scope for every
// later source and step (spec.md §3 invariant 4).
type CompSource struct {
	Pat  Pattern
	Expr Expr
}

// Aggregate is a bare aggregate applied to a finite sequence, e.g. the
// Core-IR form of `sum xs` outside of a comprehension group step.
type Aggregate struct {
	Typed
	Op   string // sum | count | min | max | ...
	Expr Expr
}

// Con0 is the value of a zero-arity constructor, e.g. `NONE`. The Resolver
// emits this directly in place of a generic Ident when a reference
// resolves to a datatype constructor installed by a DatatypeDecl
// (spec.md §4.1): "zero-arity constructors are emitted as Con0Pat/Con0".
type Con0 struct {
	Typed
	Name string
}

// ConApp is the value of an applied constructor, e.g. `SOME 3`: the
// expression-side counterpart of ConPat, used by the same rule.
type ConApp struct {
	Typed
	Name string
	Arg  Expr
}

// Select extracts one field of a tuple or record value (surface `#a e` /
// `#1 e`). Label is the field name for a Record-typed Expr and empty for a
// positional Tuple-typed Expr; Index is the resolved position within
// Elems either way, computed once by the Resolver from Expr's static type
// so later passes (the Inliner's record-selector fold, relational
// lowering's column reference) never need to re-derive it by name.
type Select struct {
	Typed
	Label string
	Index int
	Expr  Expr
}
