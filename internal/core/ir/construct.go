package ir

import "github.com/weave-lang/weavec/internal/core/types"

// Constructors for rebuilding Core-IR nodes from other packages (the
// Shuttle, the Inliner, the Relationalizer, ...). Kept separate from the
// type declarations themselves so the shape of each node stays the
// visible part; these are just convenience.

func NewFn(t types.Type, param Ident, body Expr) *Fn {
	return &Fn{Typed: Typed{T: t}, Param: param, Body: body}
}

func NewApp(t types.Type, fun, arg Expr) *App {
	return &App{Typed: Typed{T: t}, Fun: fun, Arg: arg}
}

func NewLet(t types.Type, pat Pattern, value, body Expr) *Let {
	return &Let{Typed: Typed{T: t}, Pat: pat, Value: value, Body: body}
}

func NewLetRec(t types.Type, bindings []LetRecBinding, body Expr) *LetRec {
	return &LetRec{Typed: Typed{T: t}, Bindings: bindings, Body: body}
}

func NewCase(t types.Type, scrutinee Expr, matches []Match) *Case {
	return &Case{Typed: Typed{T: t}, Scrutinee: scrutinee, Matches: matches}
}

func NewTuple(t types.Type, elems []Expr) *Tuple {
	return &Tuple{Typed: Typed{T: t}, Elems: elems}
}

func NewRecord(t types.Type, labels []string, elems []Expr) *Record {
	return &Record{Typed: Typed{T: t}, Labels: labels, Elems: elems}
}

func NewLocalType(t types.Type, name string, body Expr) *LocalType {
	return &LocalType{Typed: Typed{T: t}, Name: name, Body: body}
}

func NewComprehension(t types.Type, sources []CompSource, steps []CompStep, yield Expr) *Comprehension {
	return &Comprehension{Typed: Typed{T: t}, Sources: sources, Steps: steps, Yield: yield}
}

func NewAggregate(t types.Type, op string, expr Expr) *Aggregate {
	return &Aggregate{Typed: Typed{T: t}, Op: op, Expr: expr}
}

func NewIdent(t types.Type, name string, ord int) *Ident {
	return &Ident{Typed: Typed{T: t}, Name: name, Ord: ord}
}

func BoolLiteral(t types.Type, b bool) *Literal {
	return &Literal{Typed: Typed{T: t}, Kind: BoolLit, Bool: b}
}

func IntLiteral(t types.Type, i int64) *Literal {
	return &Literal{Typed: Typed{T: t}, Kind: IntLit, Int: i}
}

func StringLiteral(t types.Type, s string) *Literal {
	return &Literal{Typed: Typed{T: t}, Kind: StringLit, String: s}
}

func NewCon0(t types.Type, name string) *Con0 {
	return &Con0{Typed: Typed{T: t}, Name: name}
}

func NewConApp(t types.Type, name string, arg Expr) *ConApp {
	return &ConApp{Typed: Typed{T: t}, Name: name, Arg: arg}
}

func NewSelect(t types.Type, label string, index int, expr Expr) *Select {
	return &Select{Typed: Typed{T: t}, Label: label, Index: index, Expr: expr}
}

// TypeOf copies the type carried by an existing node into a fresh Typed
// embed, used when rebuilding a node of the same type as one already in
// hand (the common case for a Shuttle that doesn't change types).
func TypeOf(e Expr) Typed { return Typed{T: e.Type()} }

// PatTypeOf is TypeOf for patterns.
func PatTypeOf(p Pattern) TypedPat { return TypedPat{T: p.Type()} }

func NewWildcardPat(t types.Type) WildcardPat { return WildcardPat{TypedPat{T: t}} }

func NewIdentPat(t types.Type, name Ident) IdentPat {
	return IdentPat{TypedPat: TypedPat{T: t}, Name: name}
}

func NewLiteralPat(t types.Type, v Literal) LiteralPat {
	return LiteralPat{TypedPat: TypedPat{T: t}, Value: v}
}

func NewTuplePat(t types.Type, elems []Pattern) TuplePat {
	return TuplePat{TypedPat: TypedPat{T: t}, Elems: elems}
}

func NewRecordPat(t types.Type, labels []string, elems []Pattern) RecordPat {
	return RecordPat{TypedPat: TypedPat{T: t}, Labels: labels, Elems: elems}
}

func NewListPat(t types.Type, elems []Pattern) ListPat {
	return ListPat{TypedPat: TypedPat{T: t}, Elems: elems}
}

func NewConsPat(t types.Type, head, tail Pattern) ConsPat {
	return ConsPat{TypedPat: TypedPat{T: t}, Head: head, Tail: tail}
}

func NewCon0Pat(t types.Type, name string) Con0Pat {
	return Con0Pat{TypedPat: TypedPat{T: t}, Name: name}
}

func NewConPat(t types.Type, name string, arg Pattern) ConPat {
	return ConPat{TypedPat: TypedPat{T: t}, Name: name, Arg: arg}
}

func NewAsPat(t types.Type, name Ident, pat Pattern) AsPat {
	return AsPat{TypedPat: TypedPat{T: t}, Name: name, Pat: pat}
}
