package ir

import "github.com/weave-lang/weavec/internal/core/types"

// Decl is a Core-IR top-level declaration.
type Decl interface {
	declNode()
}

// ValDecl is a non-recursive value declaration.
type ValDecl struct {
	Pat   Pattern
	Value Expr
}

func (ValDecl) declNode() {}

// RecValDecl is a recursive value group: every name is bound before any
// right-hand side is evaluated (spec.md §3 invariant 5).
type RecValDecl struct {
	Bindings []LetRecBinding
}

func (RecValDecl) declNode() {}

// DataCon is one constructor of a Core-IR datatype.
type DataCon struct {
	Name string
	Arg  *types.Type // nil for a zero-arity constructor
}

// Datatype is one type of a (possibly mutually-recursive) datatype group.
type Datatype struct {
	Name string
	Cons []DataCon
}

// DatatypeDecl installs a group of datatypes and their constructors into
// the Resolver's scope (spec.md §4.1): a zero-arity constructor resolves
// to a Con0 value, an applied one to a ConApp value (or, when it is not
// applied directly, to a function producing one).
type DatatypeDecl struct {
	Types []Datatype
}

func (DatatypeDecl) declNode() {}
