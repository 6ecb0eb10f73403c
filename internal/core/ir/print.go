package ir

import (
	"fmt"
	"strings"
)

// Sdump renders e as Weave surface-like syntax. It is not a parser-round-
// trippable pretty-printer (none is needed; the REPL/pretty-printer are
// named external collaborators, spec.md §1) — it exists for test
// fixtures, the weavec CLI trace output, and the relational scalar
// escape-hatch payload (spec.md §4.10.1) that carries a Core expression's
// printed form to the backend.
func Sdump(e Expr) string {
	var b strings.Builder
	dumpExpr(&b, e)
	return b.String()
}

func dumpExpr(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Literal:
		dumpLiteral(b, x)
	case *Ident:
		fmt.Fprintf(b, "%s", x.Name)
		if x.Ord != 0 {
			fmt.Fprintf(b, "#%d", x.Ord)
		}
	case *Fn:
		b.WriteString("fn ")
		dumpPattern(b, IdentPat{Name: x.Param})
		b.WriteString(" => ")
		dumpExpr(b, x.Body)
	case *App:
		b.WriteString("(")
		dumpExpr(b, x.Fun)
		b.WriteString(" ")
		dumpExpr(b, x.Arg)
		b.WriteString(")")
	case *Let:
		b.WriteString("let ")
		dumpPattern(b, x.Pat)
		b.WriteString(" = ")
		dumpExpr(b, x.Value)
		b.WriteString(" in ")
		dumpExpr(b, x.Body)
	case *LetRec:
		b.WriteString("let rec ")
		for i, bind := range x.Bindings {
			if i > 0 {
				b.WriteString(" and ")
			}
			fmt.Fprintf(b, "%s = ", bind.Name.Name)
			dumpExpr(b, bind.Expr)
		}
		b.WriteString(" in ")
		dumpExpr(b, x.Body)
	case *Case:
		b.WriteString("case ")
		dumpExpr(b, x.Scrutinee)
		b.WriteString(" of ")
		for i, m := range x.Matches {
			if i > 0 {
				b.WriteString(" | ")
			}
			dumpPattern(b, m.Pat)
			b.WriteString(" => ")
			dumpExpr(b, m.Body)
		}
	case *Tuple:
		b.WriteString("(")
		for i, el := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpExpr(b, el)
		}
		b.WriteString(")")
	case *Record:
		b.WriteString("{")
		for i, el := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s = ", x.Labels[i])
			dumpExpr(b, el)
		}
		b.WriteString("}")
	case *LocalType:
		fmt.Fprintf(b, "let type %s in ", x.Name)
		dumpExpr(b, x.Body)
	case *Comprehension:
		b.WriteString("from ")
		for i, s := range x.Sources {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpPattern(b, s.Pat)
			b.WriteString(" in ")
			dumpExpr(b, s.Expr)
		}
		for _, st := range x.Steps {
			b.WriteString(" ")
			dumpStep(b, st)
		}
		b.WriteString(" yield ")
		dumpExpr(b, x.Yield)
	case *Aggregate:
		fmt.Fprintf(b, "%s ", x.Op)
		dumpExpr(b, x.Expr)
	case *Con0:
		b.WriteString(x.Name)
	case *ConApp:
		fmt.Fprintf(b, "%s ", x.Name)
		dumpExpr(b, x.Arg)
	case *Select:
		if x.Label != "" {
			fmt.Fprintf(b, "#%s ", x.Label)
		} else {
			fmt.Fprintf(b, "#%d ", x.Index+1)
		}
		dumpExpr(b, x.Expr)
	default:
		fmt.Fprintf(b, "<?%T>", e)
	}
}

func dumpLiteral(b *strings.Builder, l *Literal) {
	switch l.Kind {
	case BoolLit:
		fmt.Fprintf(b, "%v", l.Bool)
	case CharLit:
		fmt.Fprintf(b, "#%q", l.Char)
	case IntLit:
		fmt.Fprintf(b, "%d", l.Int)
	case RealLit:
		fmt.Fprintf(b, "%s", l.Real.String())
	case StringLit:
		fmt.Fprintf(b, "%q", l.String)
	case UnitLit:
		b.WriteString("()")
	case OpaqueLit:
		fmt.Fprintf(b, "<opaque:%s>", l.OpaqueTag)
	}
}

func dumpPattern(b *strings.Builder, p Pattern) {
	switch x := p.(type) {
	case WildcardPat:
		b.WriteString("_")
	case IdentPat:
		fmt.Fprintf(b, "%s", x.Name.Name)
		if x.Name.Ord != 0 {
			fmt.Fprintf(b, "#%d", x.Name.Ord)
		}
	case LiteralPat:
		dumpLiteral(b, &x.Value)
	case TuplePat:
		b.WriteString("(")
		for i, el := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpPattern(b, el)
		}
		b.WriteString(")")
	case RecordPat:
		b.WriteString("{")
		for i, el := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s = ", x.Labels[i])
			dumpPattern(b, el)
		}
		b.WriteString("}")
	case ListPat:
		b.WriteString("[")
		for i, el := range x.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpPattern(b, el)
		}
		b.WriteString("]")
	case ConsPat:
		dumpPattern(b, x.Head)
		b.WriteString(" :: ")
		dumpPattern(b, x.Tail)
	case Con0Pat:
		b.WriteString(x.Name)
	case ConPat:
		fmt.Fprintf(b, "%s ", x.Name)
		dumpPattern(b, x.Arg)
	case AsPat:
		dumpPattern(b, x.Pat)
		fmt.Fprintf(b, " as %s", x.Name.Name)
	default:
		fmt.Fprintf(b, "<?%T>", p)
	}
}

func dumpStep(b *strings.Builder, s CompStep) {
	switch x := s.(type) {
	case WhereStep:
		b.WriteString("where ")
		dumpExpr(b, x.Cond)
	case OrderStep:
		b.WriteString("order ")
		for i, it := range x.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpExpr(b, it.Expr)
			if it.Desc {
				b.WriteString(" desc")
			}
		}
	case GroupStep:
		b.WriteString("group ")
		for i, k := range x.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			dumpExpr(b, k)
		}
		for _, a := range x.Aggs {
			fmt.Fprintf(b, " %s = %s ", a.Name, a.Op)
			if a.Expr != nil {
				dumpExpr(b, a.Expr)
			}
		}
	}
}
