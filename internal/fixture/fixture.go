// Package fixture turns a small hand-authored YAML document into a
// surface ast.Decl plus the typemap.Map a Resolver needs to turn it into
// Core IR. It stands in for the lexer/parser and the Hindley-Milner
// unifier — both named external collaborators (spec.md §1) that this
// module does not implement — so that cmd/weavec has something to drive
// compiler.Compile with. Weave's own concrete syntax is deliberately
// unspecified; this YAML shape is fixture plumbing only.
package fixture

import (
	"fmt"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/typemap"
)

// Fixture is the top-level YAML document a weavec compile invocation
// reads: one declaration.
type Fixture struct {
	Decl DeclNode `yaml:"decl"`
}

// Node is every expression and pattern shape the fixture format supports,
// discriminated by Kind. Only the fields relevant to Kind are read; the
// rest are left at their zero value. Type is a fixture type expression
// (see ParseType) recorded for every node the resolver calls typeOf on —
// omitting it on a node that needs one surfaces as a compile error, not a
// panic, since toExpr/toPattern return one.
type Node struct {
	Kind string `yaml:"kind"`
	Type string `yaml:"type,omitempty"`

	LitKind string `yaml:"litKind,omitempty"`
	Text    string `yaml:"text,omitempty"`

	Name string `yaml:"name,omitempty"`

	Op  string `yaml:"op,omitempty"`
	Lhs *Node  `yaml:"lhs,omitempty"`
	Rhs *Node  `yaml:"rhs,omitempty"`

	Fn  *Node `yaml:"fn,omitempty"`
	Arg *Node `yaml:"arg,omitempty"`

	Matches []MatchNode `yaml:"matches,omitempty"`

	Cond *Node `yaml:"cond,omitempty"`
	Then *Node `yaml:"then,omitempty"`
	Else *Node `yaml:"else,omitempty"`

	Decl *DeclNode `yaml:"decl,omitempty"`
	Body *Node     `yaml:"body,omitempty"`

	Pats  []*Node `yaml:"pats,omitempty"`
	Exprs []*Node `yaml:"exprs,omitempty"`

	Scrutinee *Node `yaml:"scrutinee,omitempty"`

	Elems  []*Node  `yaml:"elems,omitempty"`
	Labels []string `yaml:"labels,omitempty"`

	Label   string `yaml:"label,omitempty"`
	Operand *Node  `yaml:"operand,omitempty"`

	Pat  *Node `yaml:"pat,omitempty"`
	Head *Node `yaml:"head,omitempty"`
	Tail *Node `yaml:"tail,omitempty"`

	Sources []SourceNode `yaml:"sources,omitempty"`
	Steps   []StepNode   `yaml:"steps,omitempty"`
	Yield   *Node        `yaml:"yield,omitempty"`

	Agg string `yaml:"agg,omitempty"`
}

// MatchNode is one arm of a fn or case node.
type MatchNode struct {
	Pat  *Node `yaml:"pat"`
	Body *Node `yaml:"body"`
}

// SourceNode is one `p in e` clause of a from node.
type SourceNode struct {
	Pat  *Node `yaml:"pat"`
	Expr *Node `yaml:"expr"`
}

// StepNode is one where/order/group step of a from node.
type StepNode struct {
	Kind  string          `yaml:"kind"` // where | order | group
	Cond  *Node           `yaml:"cond,omitempty"`
	Items []OrderItemNode `yaml:"items,omitempty"`
	Keys  []*Node         `yaml:"keys,omitempty"`
	Aggs  []NamedAggNode  `yaml:"aggs,omitempty"`
}

// OrderItemNode is one item of an order step.
type OrderItemNode struct {
	Expr *Node `yaml:"expr"`
	Desc bool  `yaml:"desc,omitempty"`
}

// NamedAggNode is one aggregate of a group step.
type NamedAggNode struct {
	Name string `yaml:"name"`
	Agg  string `yaml:"agg"`
	Expr *Node  `yaml:"expr,omitempty"`
}

// DeclNode is a top-level declaration: val | recval | datatype.
type DeclNode struct {
	Kind string `yaml:"kind"`

	Pat  *Node `yaml:"pat,omitempty"`
	Expr *Node `yaml:"expr,omitempty"`

	Bindings []BindingNode `yaml:"bindings,omitempty"`

	Types []DatatypeNode `yaml:"types,omitempty"`
}

// BindingNode is one binding of a recval declaration.
type BindingNode struct {
	Name string `yaml:"name"`
	Expr *Node  `yaml:"expr"`
}

// DatatypeNode is one type of a datatype declaration group.
type DatatypeNode struct {
	Name     string    `yaml:"name"`
	TypeVars []string  `yaml:"typeVars,omitempty"`
	Cons     []ConNode `yaml:"cons"`
}

// ConNode is one constructor of a DatatypeNode; Arg is a fixture surface
// type expression (ParseSurfaceType), empty for a zero-arity constructor.
type ConNode struct {
	Name string `yaml:"name"`
	Arg  string `yaml:"arg,omitempty"`
}

// Converter turns Fixture nodes into ast.Decl/ast.Expr/ast.Pattern trees
// while recording every annotated node's type into TM, the TypeMap the
// resulting tree must be resolved against.
type Converter struct {
	Sys types.TypeSystem
	TM  *typemap.Map
}

// NewConverter returns a Converter with a fresh, empty TypeMap.
func NewConverter(sys types.TypeSystem) *Converter {
	return &Converter{Sys: sys, TM: typemap.NewMap()}
}

// Decl converts the fixture's top-level declaration.
func (c *Converter) Decl(d *DeclNode) (ast.Decl, error) {
	return c.toDecl(d)
}

func (c *Converter) setType(n ast.Node, s string) error {
	if s == "" {
		return nil
	}
	t, err := ParseType(c.Sys, s)
	if err != nil {
		return err
	}
	c.TM.Set(n, t)
	return nil
}

func (c *Converter) toDecl(d *DeclNode) (ast.Decl, error) {
	if d == nil {
		return nil, fmt.Errorf("fixture: nil declaration")
	}
	switch d.Kind {
	case "val":
		pat, err := c.toPattern(d.Pat)
		if err != nil {
			return nil, err
		}
		expr, err := c.toExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.ValDecl{Pat: pat, Expr: expr}, nil

	case "recval":
		bindings := make([]ast.RecValBinding, len(d.Bindings))
		for i, b := range d.Bindings {
			expr, err := c.toExpr(b.Expr)
			if err != nil {
				return nil, err
			}
			bindings[i] = ast.RecValBinding{Name: b.Name, Expr: expr}
		}
		return &ast.RecValDecl{Bindings: bindings}, nil

	case "datatype":
		types_ := make([]ast.Datatype, len(d.Types))
		for i, dt := range d.Types {
			cons := make([]ast.DatatypeCon, len(dt.Cons))
			for j, con := range dt.Cons {
				dc := ast.DatatypeCon{Name: con.Name}
				if con.Arg != "" {
					argT, err := ParseSurfaceType(con.Arg)
					if err != nil {
						return nil, err
					}
					dc.Arg = &argT
				}
				cons[j] = dc
			}
			types_[i] = ast.Datatype{Name: dt.Name, TypeVars: dt.TypeVars, Cons: cons}
		}
		return &ast.DatatypeDecl{Types: types_}, nil

	default:
		return nil, fmt.Errorf("fixture: unrecognised declaration kind %q", d.Kind)
	}
}

func (c *Converter) toExpr(n *Node) (ast.Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("fixture: nil expression")
	}
	switch n.Kind {
	case "lit":
		kind, err := litKind(n.LitKind)
		if err != nil {
			return nil, err
		}
		lit := &ast.Literal{Kind: kind, Text: n.Text}
		return lit, c.setType(lit, n.Type)

	case "ident":
		id := &ast.Ident{Name: n.Name}
		return id, c.setType(id, n.Type)

	case "infix":
		lhs, err := c.toExpr(n.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := c.toExpr(n.Rhs)
		if err != nil {
			return nil, err
		}
		infix := &ast.Infix{Op: n.Op, Lhs: lhs, Rhs: rhs}
		return infix, c.setType(infix, n.Type)

	case "app":
		fn, err := c.toExpr(n.Fn)
		if err != nil {
			return nil, err
		}
		arg, err := c.toExpr(n.Arg)
		if err != nil {
			return nil, err
		}
		app := &ast.App{Fun: fn, Arg: arg}
		return app, c.setType(app, n.Type)

	case "fn":
		matches, err := c.toMatches(n.Matches)
		if err != nil {
			return nil, err
		}
		fn := &ast.Fn{Matches: matches}
		return fn, c.setType(fn, n.Type)

	case "if":
		cond, err := c.toExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.toExpr(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := c.toExpr(n.Else)
		if err != nil {
			return nil, err
		}
		ifExpr := &ast.If{Cond: cond, Then: then, Else: els}
		return ifExpr, c.setType(ifExpr, n.Type)

	case "let":
		decl, err := c.toDecl(n.Decl)
		if err != nil {
			return nil, err
		}
		body, err := c.toExpr(n.Body)
		if err != nil {
			return nil, err
		}
		let := &ast.Let{Decl: decl, Body: body}
		return let, c.setType(let, n.Type)

	case "multival":
		pats := make([]ast.Pattern, len(n.Pats))
		for i, p := range n.Pats {
			pat, err := c.toPattern(p)
			if err != nil {
				return nil, err
			}
			pats[i] = pat
		}
		exprs := make([]ast.Expr, len(n.Exprs))
		for i, e := range n.Exprs {
			expr, err := c.toExpr(e)
			if err != nil {
				return nil, err
			}
			exprs[i] = expr
		}
		body, err := c.toExpr(n.Body)
		if err != nil {
			return nil, err
		}
		mv := &ast.MultiVal{Pats: pats, Exprs: exprs, Body: body}
		return mv, c.setType(mv, n.Type)

	case "case":
		scrutinee, err := c.toExpr(n.Scrutinee)
		if err != nil {
			return nil, err
		}
		matches, err := c.toMatches(n.Matches)
		if err != nil {
			return nil, err
		}
		caseExpr := &ast.Case{Scrutinee: scrutinee, Matches: matches}
		return caseExpr, c.setType(caseExpr, n.Type)

	case "tuple":
		elems, err := c.toExprs(n.Elems)
		if err != nil {
			return nil, err
		}
		t := &ast.TupleExpr{Elems: elems}
		return t, c.setType(t, n.Type)

	case "record":
		elems, err := c.toExprs(n.Elems)
		if err != nil {
			return nil, err
		}
		r := &ast.RecordExpr{Labels: n.Labels, Elems: elems}
		return r, c.setType(r, n.Type)

	case "list":
		elems, err := c.toExprs(n.Elems)
		if err != nil {
			return nil, err
		}
		l := &ast.ListExpr{Elems: elems}
		return l, c.setType(l, n.Type)

	case "select":
		operand, err := c.toExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		sel := &ast.Select{Label: n.Label, Expr: operand}
		return sel, c.setType(sel, n.Type)

	case "from":
		sources := make([]ast.Source, len(n.Sources))
		for i, s := range n.Sources {
			pat, err := c.toPattern(s.Pat)
			if err != nil {
				return nil, err
			}
			expr, err := c.toExpr(s.Expr)
			if err != nil {
				return nil, err
			}
			sources[i] = ast.Source{Pat: pat, Expr: expr}
		}
		steps, err := c.toSteps(n.Steps)
		if err != nil {
			return nil, err
		}
		var yield ast.Expr
		if n.Yield != nil {
			yield, err = c.toExpr(n.Yield)
			if err != nil {
				return nil, err
			}
		}
		from := &ast.From{Sources: sources, Steps: steps, Yield: yield}
		return from, c.setType(from, n.Type)

	case "aggregate":
		arg, err := c.toExpr(n.Arg)
		if err != nil {
			return nil, err
		}
		agg := &ast.Aggregate{Agg: n.Agg, Expr: arg}
		return agg, c.setType(agg, n.Type)

	default:
		return nil, fmt.Errorf("fixture: unrecognised expression kind %q", n.Kind)
	}
}

func (c *Converter) toExprs(ns []*Node) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(ns))
	for i, n := range ns {
		e, err := c.toExpr(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (c *Converter) toMatches(ms []MatchNode) ([]ast.Match, error) {
	out := make([]ast.Match, len(ms))
	for i, m := range ms {
		pat, err := c.toPattern(m.Pat)
		if err != nil {
			return nil, err
		}
		body, err := c.toExpr(m.Body)
		if err != nil {
			return nil, err
		}
		out[i] = ast.Match{Pat: pat, Body: body}
	}
	return out, nil
}

func (c *Converter) toSteps(ss []StepNode) ([]ast.Step, error) {
	out := make([]ast.Step, len(ss))
	for i, s := range ss {
		switch s.Kind {
		case "where":
			cond, err := c.toExpr(s.Cond)
			if err != nil {
				return nil, err
			}
			out[i] = ast.Step{Kind: ast.WhereStep{Cond: cond}}

		case "order":
			items := make([]ast.OrderItem, len(s.Items))
			for j, it := range s.Items {
				expr, err := c.toExpr(it.Expr)
				if err != nil {
					return nil, err
				}
				items[j] = ast.OrderItem{Expr: expr, Desc: it.Desc}
			}
			out[i] = ast.Step{Kind: ast.OrderStep{Items: items}}

		case "group":
			keys, err := c.toExprs(s.Keys)
			if err != nil {
				return nil, err
			}
			aggs := make([]ast.NamedAgg, len(s.Aggs))
			for j, a := range s.Aggs {
				var expr ast.Expr
				if a.Expr != nil {
					expr, err = c.toExpr(a.Expr)
					if err != nil {
						return nil, err
					}
				}
				aggs[j] = ast.NamedAgg{Name: a.Name, Agg: a.Agg, Expr: expr}
			}
			out[i] = ast.Step{Kind: ast.GroupStep{Keys: keys, Aggs: aggs}}

		default:
			return nil, fmt.Errorf("fixture: unrecognised step kind %q", s.Kind)
		}
	}
	return out, nil
}

func (c *Converter) toPattern(n *Node) (ast.Pattern, error) {
	if n == nil {
		return nil, fmt.Errorf("fixture: nil pattern")
	}
	switch n.Kind {
	case "wildcard":
		p := &ast.WildcardPat{}
		return p, c.setType(p, n.Type)

	case "ident":
		p := &ast.IdentPat{Name: n.Name}
		return p, c.setType(p, n.Type)

	case "lit":
		kind, err := litKind(n.LitKind)
		if err != nil {
			return nil, err
		}
		p := &ast.LiteralPat{Kind: kind, Text: n.Text}
		return p, c.setType(p, n.Type)

	case "tuple":
		elems, err := c.toPatterns(n.Elems)
		if err != nil {
			return nil, err
		}
		p := &ast.TuplePat{Elems: elems}
		return p, c.setType(p, n.Type)

	case "record":
		elems, err := c.toPatterns(n.Elems)
		if err != nil {
			return nil, err
		}
		p := &ast.RecordPat{Labels: n.Labels, Elems: elems}
		return p, c.setType(p, n.Type)

	case "list":
		elems, err := c.toPatterns(n.Elems)
		if err != nil {
			return nil, err
		}
		p := &ast.ListPat{Elems: elems}
		return p, c.setType(p, n.Type)

	case "cons":
		head, err := c.toPattern(n.Head)
		if err != nil {
			return nil, err
		}
		tail, err := c.toPattern(n.Tail)
		if err != nil {
			return nil, err
		}
		p := &ast.ConsPat{Head: head, Tail: tail}
		return p, c.setType(p, n.Type)

	case "con0":
		p := &ast.Con0Pat{Name: n.Name}
		return p, c.setType(p, n.Type)

	case "con":
		arg, err := c.toPattern(n.Pat)
		if err != nil {
			return nil, err
		}
		p := &ast.ConPat{Name: n.Name, Arg: arg}
		return p, c.setType(p, n.Type)

	case "as":
		inner, err := c.toPattern(n.Pat)
		if err != nil {
			return nil, err
		}
		p := &ast.AsPat{Name: n.Name, Pat: inner}
		return p, c.setType(p, n.Type)

	default:
		return nil, fmt.Errorf("fixture: unrecognised pattern kind %q", n.Kind)
	}
}

func (c *Converter) toPatterns(ns []*Node) ([]ast.Pattern, error) {
	out := make([]ast.Pattern, len(ns))
	for i, n := range ns {
		p, err := c.toPattern(n)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func litKind(s string) (ast.LitKind, error) {
	switch s {
	case "bool":
		return ast.BoolLit, nil
	case "char":
		return ast.CharLit, nil
	case "int":
		return ast.IntLit, nil
	case "real":
		return ast.RealLit, nil
	case "string":
		return ast.StringLit, nil
	case "unit":
		return ast.UnitLit, nil
	default:
		return 0, fmt.Errorf("fixture: unrecognised literal kind %q", s)
	}
}
