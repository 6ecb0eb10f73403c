// Package ppt implements the Perfect Process Tree (spec.md §4.9): a
// structural decomposition of a predicate's body along its `orelse`
// (Branch) and `andalso` (Sequence) connectives, down to Terminal leaves
// that attempt local inversion via internal/modeanalyzer. It also carries
// the recursion bookkeeping the URA (predicate-inversion) traversal needs:
// a Terminal that calls the predicate currently being inverted is marked
// isRecursive and left uninverted, and VisitKey gives callers a
// (function-name, argument-shape) cycle key for the visited set spec.md
// §9 asks for.
//
// Building the full fixpoint generator for a recursive predicate (the
// actual unrolling of a Branch's recursive case) requires evaluating the
// base case repeatedly against growing intermediate state — that is
// interpreter work, out of scope here (spec.md's Non-goals). Invert
// therefore inverts everything it structurally can and reports failure,
// not a best-effort partial answer, the moment it reaches a case it
// cannot resolve without the interpreter; spec.md §7 treats that as a
// silent fallback, never an error.
package ppt

import (
	"strconv"
	"strings"

	"github.com/weave-lang/weavec/internal/core/ir"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/generator"
	"github.com/weave-lang/weavec/internal/modeanalyzer"
)

// Node is one node of a Perfect Process Tree.
type Node interface {
	ppNode()
}

// TerminalNode wraps a single non-composite conjunct.
type TerminalNode struct {
	Expr        ir.Expr
	IsRecursive bool
	Sig         modeanalyzer.ModeSignature
	Inverted    bool
}

func (*TerminalNode) ppNode() {}

// BranchNode is an `orelse`: Left and Right are explored independently,
// the solution is their union.
type BranchNode struct {
	Expr        ir.Expr
	Left, Right Node
}

func (*BranchNode) ppNode() {}

// HasBaseCase reports whether Left is a terminal that was fully inverted
// locally — the transitive-closure pattern's `edge(x,y)` arm.
func (b *BranchNode) HasBaseCase() bool {
	t, ok := b.Left.(*TerminalNode)
	return ok && t.Inverted
}

// HasRecursiveCase reports whether any descendant of Right calls the
// predicate currently being inverted.
func (b *BranchNode) HasRecursiveCase() bool {
	return anyRecursive(b.Right)
}

// SequenceNode is an `andalso`: all children must hold, in declaration
// order (spec.md §4.9's construction invariant — children are never
// reordered the way internal/modeanalyzer's greedy Order reorders flat
// conjunct lists).
type SequenceNode struct {
	Children []Node
	JoinVars []ir.Ident
}

func (*SequenceNode) ppNode() {}

func anyRecursive(n Node) bool {
	switch x := n.(type) {
	case *TerminalNode:
		return x.IsRecursive
	case *BranchNode:
		return anyRecursive(x.Left) || anyRecursive(x.Right)
	case *SequenceNode:
		for _, c := range x.Children {
			if anyRecursive(c) {
				return true
			}
		}
	}
	return false
}

// Build walks body's top-level boolean structure into a PPT relative to
// self (the predicate being inverted), goals (the variables an inversion
// is wanted for) and bound (variables already known at this point).
func Build(sys types.TypeSystem, self ir.Ident, goals, bound []ir.Ident, body ir.Expr) Node {
	if name, lhs, rhs, ok := asBinApp(body); ok && name == "orelse" {
		return &BranchNode{
			Expr: body,
			Left: Build(sys, self, goals, bound, lhs),
			Right: Build(sys, self, goals, bound, rhs),
		}
	}
	conjuncts := decomposeAndAlso(body)
	if len(conjuncts) > 1 {
		return buildSequence(sys, self, goals, bound, conjuncts)
	}
	return buildTerminal(sys, self, goals, bound, body)
}

func buildSequence(sys types.TypeSystem, self ir.Ident, goals, bound []ir.Ident, conjuncts []ir.Expr) *SequenceNode {
	children := make([]Node, len(conjuncts))
	boundHere := append([]ir.Ident{}, bound...)
	for i, c := range conjuncts {
		children[i] = Build(sys, self, goals, boundHere, c)
		boundHere = append(boundHere, generatedVars(children[i])...)
	}
	return &SequenceNode{Children: children, JoinVars: sharedVars(children)}
}

// buildTerminal handles a single non-composite conjunct, unwrapping an
// `exists` comprehension (spec.md §4.9's construction invariant: "for
// generation purposes we enumerate witnesses rather than test
// existence") and otherwise attempting local inversion by delegating
// straight to internal/modeanalyzer's single-conjunct ModeSignature.
func buildTerminal(sys types.TypeSystem, self ir.Ident, goals, bound []ir.Ident, expr ir.Expr) Node {
	if comp, ok := expr.(*ir.Comprehension); ok {
		return unwrapExists(sys, self, goals, bound, comp)
	}
	if containsIdent(expr, self) {
		return &TerminalNode{Expr: expr, IsRecursive: true}
	}
	sig := modeanalyzer.Signature(sys, goals, bound, []ir.Expr{expr}, expr)
	return &TerminalNode{Expr: expr, Sig: sig, Inverted: isInverted(sig, bound)}
}

func isInverted(sig modeanalyzer.ModeSignature, bound []ir.Ident) bool {
	if len(sig.CanGenerate) == 0 {
		return false
	}
	boundSet := toSet(bound)
	for _, v := range sig.RequiredBound {
		if _, ok := boundSet[key(v)]; !ok {
			return false
		}
	}
	return true
}

// unwrapExists treats `comp`'s sources as generators for their own
// binders (the existential witnesses) and its where-steps as further
// structure to classify, rather than testing the comprehension's truth
// as an opaque value.
func unwrapExists(sys types.TypeSystem, self ir.Ident, goals, bound []ir.Ident, comp *ir.Comprehension) Node {
	witnessGoals := append([]ir.Ident{}, goals...)
	boundHere := append([]ir.Ident{}, bound...)
	var children []Node
	for _, src := range comp.Sources {
		binders := src.Pat.Binders()
		witnessGoals = append(witnessGoals, binders...)
		gen := generator.NewSequence(src.Expr, generator.Finite, nil)
		children = append(children, &TerminalNode{
			Expr: src.Expr,
			Sig: modeanalyzer.ModeSignature{
				CanGenerate: binders,
				Gen:         gen,
				IsFinite:    true,
				Priority:    modeanalyzer.PriorityGenerator,
			},
			Inverted: true,
		})
		boundHere = append(boundHere, binders...)
	}
	for _, st := range comp.Steps {
		if w, ok := st.(ir.WhereStep); ok {
			children = append(children, Build(sys, self, witnessGoals, boundHere, w.Cond))
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return &SequenceNode{Children: children, JoinVars: sharedVars(children)}
}

func generatedVars(n Node) []ir.Ident {
	switch x := n.(type) {
	case *TerminalNode:
		if x.Inverted {
			return x.Sig.CanGenerate
		}
	case *SequenceNode:
		var out []ir.Ident
		for _, c := range x.Children {
			out = append(out, generatedVars(c)...)
		}
		return out
	case *BranchNode:
		if x.HasBaseCase() {
			return generatedVars(x.Left)
		}
	}
	return nil
}

func sharedVars(children []Node) []ir.Ident {
	counts := map[string]ir.Ident{}
	seenIn := map[string]int{}
	for _, c := range children {
		local := map[string]struct{}{}
		for _, e := range exprsOf(c) {
			for _, v := range localFreeVars(e) {
				if _, dup := local[key(v)]; dup {
					continue
				}
				local[key(v)] = struct{}{}
				counts[key(v)] = v
				seenIn[key(v)]++
			}
		}
	}
	var out []ir.Ident
	for k, n := range seenIn {
		if n > 1 {
			out = append(out, counts[k])
		}
	}
	return out
}

func exprsOf(n Node) []ir.Expr {
	switch x := n.(type) {
	case *TerminalNode:
		return []ir.Expr{x.Expr}
	case *BranchNode:
		return append(exprsOf(x.Left), exprsOf(x.Right)...)
	case *SequenceNode:
		var out []ir.Expr
		for _, c := range x.Children {
			out = append(out, exprsOf(c)...)
		}
		return out
	}
	return nil
}

// Invert attempts a full structural inversion of node for self, reusing
// each Terminal's already-computed local inversion and combining them
// along Sequence/Branch structure. visited carries the (function-name,
// argument-shape) cycle set spec.md §9 requires of the URA traversal;
// Invert never grows it on its own (it never unrolls a recursive case),
// but a caller performing iterative fixpoint evaluation over the base
// case should add each shape it commits to before recursing.
func Invert(sys types.TypeSystem, self ir.Ident, params []ir.Ident, bound []ir.Ident, node Node, visited map[string]bool) (generator.Generator, []ir.Expr, bool) {
	switch n := node.(type) {
	case *TerminalNode:
		if n.IsRecursive {
			if mode, ok := callMode(self, n.Expr, params, bound); ok {
				k := VisitKey(self, mode)
				if visited[k] {
					return nil, []ir.Expr{n.Expr}, false
				}
			}
			return nil, []ir.Expr{n.Expr}, false
		}
		if !n.Inverted {
			return nil, []ir.Expr{n.Expr}, false
		}
		return n.Sig.Gen, nil, true

	case *SequenceNode:
		for i, c := range n.Children {
			gen, _, ok := Invert(sys, self, params, bound, c, visited)
			if !ok {
				continue
			}
			var filters []ir.Expr
			for j, sib := range n.Children {
				if j == i {
					continue
				}
				filters = append(filters, exprsOf(sib)...)
			}
			return gen, filters, true
		}
		return nil, exprsOf(n), false

	case *BranchNode:
		if !n.HasBaseCase() {
			return nil, exprsOf(n), false
		}
		baseGen := n.Left.(*TerminalNode).Sig.Gen
		if n.HasRecursiveCase() {
			// Unrolling the recursive arm needs repeated evaluation against
			// growing intermediate state (the interpreter); report failure
			// so the caller falls back to the original predicate, per
			// spec.md §7.
			return nil, exprsOf(n.Right), false
		}
		rightGen, rightFilters, ok := Invert(sys, self, params, bound, n.Right, visited)
		if ok && len(rightFilters) == 0 {
			elemType := baseGen.Extent().Type().Elem()
			union := generator.NewUnion(sys, elemType, []generator.Generator{baseGen, rightGen}, n.Expr)
			return union, nil, true
		}
		return nil, exprsOf(n.Right), false
	}
	return nil, nil, false
}

// VisitKey builds the (function-name, argument-shape) cycle key spec.md
// §9 names: mode[i] = true means parameter i is known (bound) at the
// call site being recorded.
func VisitKey(self ir.Ident, mode []bool) string {
	var b strings.Builder
	b.WriteString(self.Name)
	b.WriteByte('\x00')
	b.WriteString(strconv.Itoa(self.Ord))
	for _, m := range mode {
		if m {
			b.WriteByte('b')
		} else {
			b.WriteByte('f')
		}
	}
	return b.String()
}

// callMode locates the first application of self within e (flattening
// the curried chain against params) and reports, for each argument,
// whether it is already determined at this point in the traversal — an
// Ident already in bound, or a literal/nullary constructor.
func callMode(self ir.Ident, e ir.Expr, params []ir.Ident, bound []ir.Ident) ([]bool, bool) {
	args, ok := findCall(e, self, len(params))
	if !ok {
		return nil, false
	}
	boundSet := toSet(bound)
	mode := make([]bool, len(args))
	for i, a := range args {
		mode[i] = isKnown(a, boundSet)
	}
	return mode, true
}

func isKnown(e ir.Expr, boundSet map[string]struct{}) bool {
	switch n := e.(type) {
	case *ir.Ident:
		_, ok := boundSet[key(*n)]
		return ok
	case *ir.Literal, *ir.Con0:
		return true
	}
	return false
}

func findCall(e ir.Expr, self ir.Ident, arity int) ([]ir.Expr, bool) {
	if args, ok := flattenCall(e, self); ok {
		if arity == 0 || len(args) == arity {
			return args, true
		}
	}
	var found []ir.Expr
	var ok bool
	walkExpr(e, func(sub ir.Expr) bool {
		if found != nil {
			return false
		}
		if args, matched := flattenCall(sub, self); matched && (arity == 0 || len(args) == arity) {
			found, ok = args, true
			return false
		}
		return true
	})
	return found, ok
}

func flattenCall(e ir.Expr, self ir.Ident) ([]ir.Expr, bool) {
	var args []ir.Expr
	cur := e
	for {
		app, ok := cur.(*ir.App)
		if !ok {
			return nil, false
		}
		args = append([]ir.Expr{app.Arg}, args...)
		if id, ok := app.Fun.(*ir.Ident); ok && id.Name == self.Name && id.Ord == self.Ord {
			return args, true
		}
		cur = app.Fun
	}
}

// containsIdent reports whether target occurs anywhere within e.
func containsIdent(e ir.Expr, target ir.Ident) bool {
	found := false
	walkExpr(e, func(sub ir.Expr) bool {
		if id, ok := sub.(*ir.Ident); ok && id.Name == target.Name && id.Ord == target.Ord {
			found = true
			return false
		}
		return true
	})
	return found
}

// localFreeVars collects the Idents directly referenced by e, without
// tracking local binders (good enough for the join-variable heuristic,
// which only needs "does this name appear in more than one child").
func localFreeVars(e ir.Expr) []ir.Ident {
	var out []ir.Ident
	walkExpr(e, func(sub ir.Expr) bool {
		if id, ok := sub.(*ir.Ident); ok {
			out = append(out, *id)
		}
		return true
	})
	return out
}

// walkExpr visits e and every subexpression reachable from it, calling
// visit on each; visit returns false to stop descending further from
// that node (not to stop the whole walk).
func walkExpr(e ir.Expr, visit func(ir.Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch n := e.(type) {
	case *ir.Fn:
		walkExpr(n.Body, visit)
	case *ir.App:
		walkExpr(n.Fun, visit)
		walkExpr(n.Arg, visit)
	case *ir.Let:
		walkExpr(n.Value, visit)
		walkExpr(n.Body, visit)
	case *ir.LetRec:
		for _, b := range n.Bindings {
			walkExpr(b.Expr, visit)
		}
		walkExpr(n.Body, visit)
	case *ir.Case:
		walkExpr(n.Scrutinee, visit)
		for _, m := range n.Matches {
			walkExpr(m.Body, visit)
		}
	case *ir.Tuple:
		for _, el := range n.Elems {
			walkExpr(el, visit)
		}
	case *ir.Record:
		for _, el := range n.Elems {
			walkExpr(el, visit)
		}
	case *ir.LocalType:
		walkExpr(n.Body, visit)
	case *ir.Comprehension:
		for _, src := range n.Sources {
			walkExpr(src.Expr, visit)
		}
		for _, st := range n.Steps {
			switch s := st.(type) {
			case ir.WhereStep:
				walkExpr(s.Cond, visit)
			case ir.OrderStep:
				for _, it := range s.Items {
					walkExpr(it.Expr, visit)
				}
			case ir.GroupStep:
				for _, k := range s.Keys {
					walkExpr(k, visit)
				}
				for _, a := range s.Aggs {
					walkExpr(a.Expr, visit)
				}
			}
		}
		walkExpr(n.Yield, visit)
	case *ir.Aggregate:
		walkExpr(n.Expr, visit)
	case *ir.ConApp:
		walkExpr(n.Arg, visit)
	case *ir.Select:
		walkExpr(n.Expr, visit)
	}
}

func asBinApp(e ir.Expr) (name string, lhs, rhs ir.Expr, ok bool) {
	outer, ok := e.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	inner, ok := outer.Fun.(*ir.App)
	if !ok {
		return "", nil, nil, false
	}
	id, ok := inner.Fun.(*ir.Ident)
	if !ok {
		return "", nil, nil, false
	}
	return id.Name, inner.Arg, outer.Arg, true
}

func decomposeAndAlso(e ir.Expr) []ir.Expr {
	if name, lhs, rhs, ok := asBinApp(e); ok && name == "andalso" {
		return append(decomposeAndAlso(lhs), decomposeAndAlso(rhs)...)
	}
	return []ir.Expr{e}
}

func key(id ir.Ident) string { return id.Name + "\x00" + strconv.Itoa(id.Ord) }

func toSet(ids []ir.Ident) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[key(id)] = struct{}{}
	}
	return m
}
