// Package env implements the immutable, persistent name->binding
// environment described in spec.md §3: a linked stack of single-binding
// frames where Bind returns a new frame pointing at its predecessor,
// never mutating the one it was called on (spec.md §5 "Environments...
// are logically immutable").
package env

import (
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
)

// Macro is a named rewrite applied at the use site of an identifier,
// rather than a value substituted in directly (spec.md §9 "Macros and
// opaque values"). ArgType is the type the identifier carries at the
// reference site, which may be a specialisation of the macro's general
// type.
type Macro func(sys types.TypeSystem, e *Env, argType types.Type) ir.Expr

// Binding is the sum `Value(v) | Macro(f)` spec.md §9 calls for: either a
// concrete Core expression or a macro closure the inliner invokes when it
// resolves an identifier to this binding.
type Binding struct {
	Value ir.Expr
	Macro Macro
}

// IsMacro reports whether b is a macro binding rather than a value.
func (b Binding) IsMacro() bool { return b.Macro != nil }

// ValueBinding wraps a concrete expression as a Binding.
func ValueBinding(v ir.Expr) Binding { return Binding{Value: v} }

// MacroBinding wraps a macro closure as a Binding.
func MacroBinding(m Macro) Binding { return Binding{Macro: m} }

// Env is one frame of the environment stack. The zero value is the empty
// environment (no bindings, no parent).
type Env struct {
	parent *Env
	name   string
	bind   Binding
	depth  int // distance from the empty environment; used for free-variable slots
}

// Bind returns a new environment extending e with name -> b. e is left
// unmodified; this is the persistent "modification" spec.md §5 describes.
func (e *Env) Bind(name string, b Binding) *Env {
	d := 1
	if e != nil {
		d = e.depth + 1
	}
	return &Env{parent: e, name: name, bind: b, depth: d}
}

// Lookup walks the chain from the most recent binding outward and returns
// the first binding for name. Earlier bindings for the same name are
// obscured, never removed (spec.md §3).
func (e *Env) Lookup(name string) (Binding, bool) {
	for f := e; f != nil; f = f.parent {
		if f.name == name {
			return f.bind, true
		}
	}
	return Binding{}, false
}

// Slot returns the distance from the top of the stack (0 = most recent
// frame) to the nearest binding of name, used for free-variable distance
// queries (spec.md §3).
func (e *Env) Slot(name string) (int, bool) {
	i := 0
	for f := e; f != nil; f = f.parent {
		if f.name == name {
			return i, true
		}
		i++
	}
	return 0, false
}

// Values returns the full name->binding map visible from e, most-recent
// binding winning per name (spec.md §3).
func (e *Env) Values() map[string]Binding {
	out := make(map[string]Binding)
	// Walk from newest to oldest and only insert names not yet seen, so
	// the most recent binding for each name is the one kept.
	seen := make(map[string]bool)
	for f := e; f != nil; f = f.parent {
		if !seen[f.name] {
			out[f.name] = f.bind
			seen[f.name] = true
		}
	}
	return out
}

// IsAncestor reports whether anc is reachable from e by walking parent
// links (spec.md §3 "ancestorship"). The empty environment is an ancestor
// of every environment, including itself.
func IsAncestor(anc, e *Env) bool {
	for f := e; f != nil; f = f.parent {
		if f == anc {
			return true
		}
	}
	return anc == nil
}

// Depth returns the number of frames between e and the empty environment.
func (e *Env) Depth() int {
	if e == nil {
		return 0
	}
	return e.depth
}
