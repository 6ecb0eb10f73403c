// Package typemap defines the TypeMap interface consumed from the external
// type resolver (spec.md §1, §6) and a reference implementation used by
// tests and the weavec CLI fixture loader.
package typemap

import (
	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/core/types"
)

// TypeMap looks up the resolved type of a surface-AST node by identity.
// Every Core-IR construction in the resolver depends on it (spec.md §4.1);
// a lookup miss on a node the unifier should have typed is a programmer
// error in an earlier pass, not a recoverable condition.
type TypeMap interface {
	// TypeOf returns the resolved type of n and true, or the zero Type and
	// false if the unifier discarded n (e.g. dead code after an earlier
	// optimisation, or a node kind that carries no type of its own).
	TypeOf(n ast.Node) (types.Type, bool)
}

// Map is a reference TypeMap backed by a plain identity-keyed map. It is
// the implementation used by tests and by the weavec CLI when loading a
// fixture that states types inline (since this module does not contain a
// real unifier).
type Map struct {
	types map[ast.Node]types.Type
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{types: make(map[ast.Node]types.Type)}
}

// Set records the type of n, overwriting any previous entry.
func (m *Map) Set(n ast.Node, t types.Type) {
	m.types[n] = t
}

// TypeOf implements TypeMap.
func (m *Map) TypeOf(n ast.Node) (types.Type, bool) {
	t, ok := m.types[n]
	return t, ok
}
