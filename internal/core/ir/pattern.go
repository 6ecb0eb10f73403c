package ir

import "github.com/weave-lang/weavec/internal/core/types"

// Pattern is a Core-IR pattern. Every pattern binds a set of identifiers
// (spec.md §3 invariant 2); Binders returns that set.
type Pattern interface {
	Type() types.Type
	Binders() []Ident
	patNode()
}

// TypedPat is embedded by every Pattern variant to carry its type,
// exported for the same reason as Typed above.
type TypedPat struct{ T types.Type }

func (t TypedPat) Type() types.Type { return t.T }
func (TypedPat) patNode()           {}

// WildcardPat matches anything and binds nothing.
type WildcardPat struct{ TypedPat }

func (WildcardPat) Binders() []Ident { return nil }

// IdentPat binds the matched value to a single identifier.
type IdentPat struct {
	TypedPat
	Name Ident
}

func (p IdentPat) Binders() []Ident { return []Ident{p.Name} }

// LiteralPat matches by value equality and binds nothing.
type LiteralPat struct {
	TypedPat
	Value Literal
}

func (LiteralPat) Binders() []Ident { return nil }

// TuplePat matches a tuple element-wise.
type TuplePat struct {
	TypedPat
	Elems []Pattern
}

func (p TuplePat) Binders() []Ident { return binderUnion(p.Elems) }

// RecordPat matches a record by label; the Resolver has already expanded
// any surface record pattern to this canonical, fully-ordered form with
// wildcards for absent fields (spec.md §4.1), so RecordPat is never itself
// partial.
type RecordPat struct {
	TypedPat
	Labels []string
	Elems  []Pattern
}

func (p RecordPat) Binders() []Ident { return binderUnion(p.Elems) }

// ListPat matches a fixed-length list element-wise.
type ListPat struct {
	TypedPat
	Elems []Pattern
}

func (p ListPat) Binders() []Ident { return binderUnion(p.Elems) }

// ConsPat matches a non-empty list as head :: tail.
type ConsPat struct {
	TypedPat
	Head, Tail Pattern
}

func (p ConsPat) Binders() []Ident { return binderUnion([]Pattern{p.Head, p.Tail}) }

// Con0Pat matches a zero-arity constructor by name.
type Con0Pat struct {
	TypedPat
	Name string
}

func (Con0Pat) Binders() []Ident { return nil }

// ConPat matches an applied constructor by name and recurses into its
// argument pattern.
type ConPat struct {
	TypedPat
	Name string
	Arg  Pattern
}

func (p ConPat) Binders() []Ident { return binderUnion([]Pattern{p.Arg}) }

// AsPat binds Name to the whole matched value in addition to whatever Pat
// binds.
type AsPat struct {
	TypedPat
	Name Ident
	Pat  Pattern
}

func (p AsPat) Binders() []Ident { return append([]Ident{p.Name}, p.Pat.Binders()...) }

func binderUnion(pats []Pattern) []Ident {
	var out []Ident
	for _, p := range pats {
		if p == nil {
			continue
		}
		out = append(out, p.Binders()...)
	}
	return out
}
