// Package compiler implements the two exposed entry points of spec.md §6:
// compile(env, decl) -> (Code, error) and toRel(env, exp) -> RelPlan?. It
// is the only package that wires the other passes together into the
// pipeline spec.md describes: resolve, uniquify, analyze/inline to a
// fixed point, relationalize, then (for a comprehension) attempt
// relational lowering, falling back to the optimised Core expression when
// lowering does not apply.
package compiler

import (
	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/analyzer"
	"github.com/weave-lang/weavec/internal/compileerr"
	"github.com/weave-lang/weavec/internal/core/env"
	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/inliner"
	"github.com/weave-lang/weavec/internal/predinvert"
	"github.com/weave-lang/weavec/internal/relationalize"
	"github.com/weave-lang/weavec/internal/relbuilder"
	"github.com/weave-lang/weavec/internal/rellower"
	"github.com/weave-lang/weavec/internal/resolver"
	"github.com/weave-lang/weavec/internal/typemap"
	"github.com/weave-lang/weavec/internal/uniquify"
)

// DefaultIterationCap is the inliner fixed-point bound spec.md §5 names
// ("a configurable iteration limit (default 20)").
const DefaultIterationCap = 20

// Code is the opaque handle compile returns (spec.md §6: "Code is an
// opaque handle the interpreter evaluates; it may internally be a
// relational plan, a Core expression, or a mix"). Decl is always the
// fully optimised Core declaration; Rel is additionally populated for a
// ValDecl whose value lowered relationally.
type Code struct {
	Decl ir.Decl
	Rel  relbuilder.RelPlan
}

// Compiler holds the configuration and collaborators a single compile
// call needs: the type system and type map come from the external
// unifier (spec.md §6 "Consumed interfaces"), RelBuilder is optional —
// nil disables relational lowering entirely and every comprehension is
// left for the interpreter — and IterationCap bounds the inliner's
// fixed-point loop (spec.md §5, §9(ii)).
type Compiler struct {
	Types        types.TypeSystem
	TypeMap      typemap.TypeMap
	Builder      relbuilder.Builder
	IterationCap int
}

// New builds a Compiler with IterationCap defaulted when cap <= 0.
func New(ts types.TypeSystem, tm typemap.TypeMap, builder relbuilder.Builder, cap int) *Compiler {
	if cap <= 0 {
		cap = DefaultIterationCap
	}
	return &Compiler{Types: ts, TypeMap: tm, Builder: builder, IterationCap: cap}
}

// Compile resolves decl against seed and optimises every expression it
// carries (spec.md §6). A fresh Resolver is constructed per call, per
// spec.md §6's "construct a fresh one per call to Compile".
func (c *Compiler) Compile(seed *env.Env, decl ast.Decl) (*Code, error) {
	r := resolver.New(c.Types, c.TypeMap, seed)
	coreDecl := r.ResolveDecl(decl)
	if err := r.Err(); err != nil {
		return nil, err
	}

	optimised, err := c.optimiseDecl(seed, coreDecl)
	if err != nil {
		return nil, err
	}

	code := &Code{Decl: optimised}
	if v, ok := optimised.(ir.ValDecl); ok && c.Builder != nil {
		preds := predsFromEnv(seed)
		for name, def := range predsFromDecl(optimised) {
			preds[name] = def
		}
		if plan, ok := rellower.ToRel(c.Builder, c.Types, v.Value, preds); ok {
			code.Rel = plan
		}
	}
	return code, nil
}

// ToRel implements spec.md §6's toRel(env, exp) -> RelPlan?: it runs the
// same optimisation pipeline as Compile over a bare expression and then
// tries relational lowering, reporting false rather than an error when
// exp is non-relational (spec.md §4.10.3, §7: lowering failure is never
// an error). internal/rellower.ToRel itself recognises both shapes
// relational lowering understands — a comprehension and spec.md §4.10.2's
// union/except/intersect of two relational expressions — so this method
// need not distinguish them.
func (c *Compiler) ToRel(seed *env.Env, exp ir.Expr) (relbuilder.RelPlan, bool) {
	if c.Builder == nil {
		return nil, false
	}
	optimised, err := c.optimiseExpr(seed, exp)
	if err != nil {
		return nil, false
	}
	return rellower.ToRel(c.Builder, c.Types, optimised, predsFromEnv(seed))
}

// predsFromDecl recognises boolean-valued function bindings within a
// single declaration as predicates: the common case is a RecValDecl's own
// `fun` groups, but a plain ValDecl bound to a function literal qualifies
// too (spec.md §3 desugars every surface function to a single-parameter
// Fn chain, so FlattenParams also handles a curried multi-argument one).
func predsFromDecl(d ir.Decl) map[string]predinvert.Def {
	preds := map[string]predinvert.Def{}
	switch x := d.(type) {
	case ir.ValDecl:
		if idp, ok := x.Pat.(ir.IdentPat); ok {
			addPred(preds, idp.Name, x.Value)
		}
	case ir.RecValDecl:
		for _, b := range x.Bindings {
			addPred(preds, b.Name, b.Expr)
		}
	}
	return preds
}

// predsFromEnv recognises the same shape among seed's bindings, so a
// predicate defined by an earlier top-level declaration and carried
// forward in the environment is still available to PredicateInverter when
// a later comprehension names it as a source.
func predsFromEnv(seed *env.Env) map[string]predinvert.Def {
	preds := map[string]predinvert.Def{}
	for name, b := range seed.Values() {
		if b.IsMacro() {
			continue
		}
		addPred(preds, ir.Ident{Name: name}, b.Value)
	}
	return preds
}

// addPred records name as a predicate when value is a function literal
// whose (possibly curried) body is boolean-valued; anything else is
// silently not a predicate, matching predicate-inversion's "never an
// error" contract (spec.md §7) one level up: recognising a candidate is
// itself allowed to fail quietly.
func addPred(preds map[string]predinvert.Def, name ir.Ident, value ir.Expr) {
	fn, ok := value.(*ir.Fn)
	if !ok {
		return
	}
	params, body := predinvert.FlattenParams(fn)
	if body == nil || body.Type() == nil || body.Type().Kind() != types.Bool {
		return
	}
	preds[name.Name] = predinvert.Def{Self: name, Params: params, Body: body}
}

// optimiseDecl applies optimiseExpr to every expression a declaration
// carries, leaving datatype declarations untouched (they carry no
// expression, only constructor signatures installed at resolve time).
func (c *Compiler) optimiseDecl(seed *env.Env, d ir.Decl) (ir.Decl, error) {
	switch x := d.(type) {
	case ir.ValDecl:
		v, err := c.optimiseExpr(seed, x.Value)
		if err != nil {
			return nil, err
		}
		return ir.ValDecl{Pat: x.Pat, Value: v}, nil

	case ir.RecValDecl:
		bindings := make([]ir.LetRecBinding, len(x.Bindings))
		for i, b := range x.Bindings {
			v, err := c.optimiseExpr(seed, b.Expr)
			if err != nil {
				return nil, err
			}
			bindings[i] = ir.LetRecBinding{Name: b.Name, Expr: v}
		}
		return ir.RecValDecl{Bindings: bindings}, nil

	case ir.DatatypeDecl:
		return x, nil

	default:
		return nil, compileerr.Newf(compileerr.Unsupported, nil, "compiler: unrecognised declaration %T", d)
	}
}

// optimiseExpr runs the pipeline spec.md §4 lays out over a single
// expression: structural uniquification (spec.md §4.3, the flavour
// spec.md §9(iii) keeps), then the analyze/inline fixed-point loop
// (spec.md §4.4, §4.5), then the Relationalizer (spec.md §4.6), which
// runs once, after inlining, since it targets List.map/List.filter calls
// the inliner may just have un-hidden by substituting a function value
// for its name.
func (c *Compiler) optimiseExpr(seed *env.Env, x ir.Expr) (ir.Expr, error) {
	x = uniquify.Uniquify(x)

	x, err := c.fixInline(seed, x)
	if err != nil {
		return nil, err
	}

	x = relationalize.Relationalize(x)
	return x, nil
}

// fixInline iterates Analyzer+Inliner to a fixed point (spec.md §4.5:
// "the inliner is idempotent modulo the usage classification, which must
// be re-derived after each pass"), bounded by IterationCap (spec.md §5).
// Equality is checked by printed form (internal/core/ir.Sdump), since
// Core-IR nodes carry no cheaper identity for structural comparison.
func (c *Compiler) fixInline(seed *env.Env, x ir.Expr) (ir.Expr, error) {
	prev := ir.Sdump(x)
	for i := 0; i < c.IterationCap; i++ {
		a := analyzer.Analyze(x)
		next := inliner.Inline(c.Types, seed, a, x)
		cur := ir.Sdump(next)
		if cur == prev {
			return next, nil
		}
		x, prev = next, cur
	}
	return nil, compileerr.Newf(compileerr.InternalLimit, nil,
		"inliner did not reach a fixed point within %d iterations", c.IterationCap)
}
