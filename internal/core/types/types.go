// Package types defines the Type representation used throughout Core IR
// and the TypeSystem construction interface consumed from the external
// Hindley-Milner unifier (spec.md §6). The core never reconstructs a type
// from context: every Core-IR node carries one, built exclusively through
// this interface or read back off a TypeMap.
package types

import "strings"

// Kind discriminates the shape of a Type.
type Kind uint8

const (
	Invalid Kind = iota
	Bool
	Char
	Int
	Real
	String
	Unit
	Fun
	Tuple
	Record
	List
	Data // a user datatype, possibly parameterised
	Var  // an unresolved type variable handed back by the unifier
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Int:
		return "int"
	case Real:
		return "real"
	case String:
		return "string"
	case Unit:
		return "unit"
	case Fun:
		return "fun"
	case Tuple:
		return "tuple"
	case Record:
		return "record"
	case List:
		return "list"
	case Data:
		return "data"
	case Var:
		return "var"
	default:
		return "invalid"
	}
}

// Type is the closed representation of a Weave type. Fields are only
// meaningful for the Kind that uses them; the zero value is Invalid.
type Type struct {
	kind Kind

	// Fun
	param, result *Type

	// Tuple / Record: Labels is nil for Tuple, len(Labels) == len(Elems)
	// for Record (a record is a labelled tuple, per spec.md §3).
	labels []string
	elems  []Type

	// List
	elem *Type

	// Data
	name string
	args []Type

	// Var: an opaque identity assigned by the unifier; two Vars are the
	// same type iff their tags are equal.
	varTag string
}

// Kind reports the discriminant of t.
func (t Type) Kind() Kind { return t.kind }

// Param returns the parameter type of a Fun type.
func (t Type) Param() Type { return *t.param }

// Result returns the result type of a Fun type.
func (t Type) Result() Type { return *t.result }

// Elems returns the element types of a Tuple or Record type, in order.
func (t Type) Elems() []Type { return t.elems }

// Labels returns the field labels of a Record type, aligned with Elems.
func (t Type) Labels() []string { return t.labels }

// Elem returns the element type of a List type.
func (t Type) Elem() Type { return *t.elem }

// Name returns the declared name of a Data type.
func (t Type) Name() string { return t.name }

// Args returns the type arguments of a Data type.
func (t Type) Args() []Type { return t.args }

// VarTag returns the unifier-assigned identity of a Var type.
func (t Type) VarTag() string { return t.varTag }

// String renders t for diagnostics and for the scalar-escape-hatch JSON
// payload described in spec.md §4.10.1 and §6.
func (t Type) String() string {
	switch t.kind {
	case Fun:
		return t.Param().String() + " -> " + t.Result().String()
	case Tuple:
		parts := make([]string, len(t.elems))
		for i, e := range t.elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, " * ") + ")"
	case Record:
		parts := make([]string, len(t.elems))
		for i, e := range t.elems {
			parts[i] = t.labels[i] + ": " + e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case List:
		return t.Elem().String() + " list"
	case Data:
		if len(t.args) == 0 {
			return t.name
		}
		parts := make([]string, len(t.args))
		for i, a := range t.args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, ", ") + ") " + t.name
	case Var:
		return "'" + t.varTag
	default:
		return t.kind.String()
	}
}

// Equal reports structural equality of two types. Var types compare by tag,
// never by position: callers that need alpha-equivalence over type
// variables must substitute first.
func Equal(a, b Type) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Fun:
		return Equal(a.Param(), b.Param()) && Equal(a.Result(), b.Result())
	case Tuple:
		return equalSlices(a.elems, b.elems)
	case Record:
		if len(a.labels) != len(b.labels) {
			return false
		}
		for i := range a.labels {
			if a.labels[i] != b.labels[i] {
				return false
			}
		}
		return equalSlices(a.elems, b.elems)
	case List:
		return Equal(a.Elem(), b.Elem())
	case Data:
		if a.name != b.name {
			return false
		}
		return equalSlices(a.args, b.args)
	case Var:
		return a.varTag == b.varTag
	default:
		return true
	}
}

func equalSlices(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsEnumerable reports whether a type has a finite, statically-known
// extent, used by Generator synthesis to decide the cardinality tag of an
// extent marker (spec.md §4.7 item 4).
func IsEnumerable(t Type) bool {
	switch t.kind {
	case Bool, Unit:
		return true
	case Data:
		return true // finite sum of nullary/unary constructors, by convention
	default:
		return false
	}
}

// TypeSystem constructs Types. It is the consumed interface named in
// spec.md §6; the core never builds a Type except through it (or by
// copying one read off a TypeMap).
type TypeSystem interface {
	Primitive(k Kind) Type
	Tuple(elems []Type) Type
	Record(labels []string, elems []Type) Type
	Function(param, result Type) Type
	List(elem Type) Type
	Data(name string, args []Type) Type
	Var(tag string) Type

	// Substitute applies a substitution (type-variable tag -> Type) to t,
	// used by the inliner when a singleton case specialises a polymorphic
	// scrutinee type (spec.md §4.5 item 4).
	Substitute(t Type, subst map[string]Type) Type
}

// reference is the default TypeSystem implementation. It is exposed for
// the CLI fixture loader and tests; it performs no caching or hash-consing
// and is not required by the interface contract.
type reference struct{}

// NewTypeSystem returns the reference TypeSystem implementation.
func NewTypeSystem() TypeSystem { return reference{} }

func (reference) Primitive(k Kind) Type { return Type{kind: k} }

func (reference) Tuple(elems []Type) Type {
	return Type{kind: Tuple, elems: append([]Type(nil), elems...)}
}

func (reference) Record(labels []string, elems []Type) Type {
	return Type{
		kind:   Record,
		labels: append([]string(nil), labels...),
		elems:  append([]Type(nil), elems...),
	}
}

func (reference) Function(param, result Type) Type {
	p, r := param, result
	return Type{kind: Fun, param: &p, result: &r}
}

func (reference) List(elem Type) Type {
	e := elem
	return Type{kind: List, elem: &e}
}

func (reference) Data(name string, args []Type) Type {
	return Type{kind: Data, name: name, args: append([]Type(nil), args...)}
}

func (reference) Var(tag string) Type {
	return Type{kind: Var, varTag: tag}
}

func (r reference) Substitute(t Type, subst map[string]Type) Type {
	switch t.kind {
	case Var:
		if repl, ok := subst[t.varTag]; ok {
			return repl
		}
		return t
	case Fun:
		return r.Function(r.Substitute(t.Param(), subst), r.Substitute(t.Result(), subst))
	case Tuple:
		return r.Tuple(substSlice(r, t.elems, subst))
	case Record:
		return r.Record(t.labels, substSlice(r, t.elems, subst))
	case List:
		return r.List(r.Substitute(t.Elem(), subst))
	case Data:
		return r.Data(t.name, substSlice(r, t.args, subst))
	default:
		return t
	}
}

func substSlice(r reference, ts []Type, subst map[string]Type) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = r.Substitute(t, subst)
	}
	return out
}
