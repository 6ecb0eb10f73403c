package fixture

import (
	"fmt"
	"strings"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/core/types"
)

// ParseType parses a fixture type expression into a resolved types.Type.
// The grammar is fixture's own compact notation, distinct from
// types.Type.String()'s diagnostic rendering (which is a one-way
// pretty-printer, not meant to be re-parsed):
//
//	int | bool | char | real | string | unit   primitives
//	'tag                                       type variable
//	list<T>                                    list
//	tuple<T1,T2,...>                           tuple
//	record<a:T1,b:T2,...>                      record
//	fun<Param,Result>                          function
//	Name | Name<T1,T2,...>                     data
func ParseType(sys types.TypeSystem, s string) (types.Type, error) {
	name, args, err := splitHead(s)
	if err != nil {
		return types.Type{}, err
	}
	switch name {
	case "bool":
		return sys.Primitive(types.Bool), nil
	case "char":
		return sys.Primitive(types.Char), nil
	case "int":
		return sys.Primitive(types.Int), nil
	case "real":
		return sys.Primitive(types.Real), nil
	case "string":
		return sys.Primitive(types.String), nil
	case "unit":
		return sys.Primitive(types.Unit), nil
	case "list":
		if len(args) != 1 {
			return types.Type{}, fmt.Errorf("fixture: list<T> expects exactly one argument, got %q", s)
		}
		elem, err := ParseType(sys, args[0])
		if err != nil {
			return types.Type{}, err
		}
		return sys.List(elem), nil
	case "tuple":
		elems, err := parseTypeList(sys, args)
		if err != nil {
			return types.Type{}, err
		}
		return sys.Tuple(elems), nil
	case "record":
		labels := make([]string, len(args))
		elems := make([]types.Type, len(args))
		for i, a := range args {
			label, rest, ok := strings.Cut(a, ":")
			if !ok {
				return types.Type{}, fmt.Errorf("fixture: malformed record field %q in %q", a, s)
			}
			labels[i] = strings.TrimSpace(label)
			elem, err := ParseType(sys, strings.TrimSpace(rest))
			if err != nil {
				return types.Type{}, err
			}
			elems[i] = elem
		}
		return sys.Record(labels, elems), nil
	case "fun":
		if len(args) != 2 {
			return types.Type{}, fmt.Errorf("fixture: fun<Param,Result> expects exactly two arguments, got %q", s)
		}
		param, err := ParseType(sys, args[0])
		if err != nil {
			return types.Type{}, err
		}
		result, err := ParseType(sys, args[1])
		if err != nil {
			return types.Type{}, err
		}
		return sys.Function(param, result), nil
	default:
		if strings.HasPrefix(name, "'") {
			return sys.Var(strings.TrimPrefix(name, "'")), nil
		}
		dargs, err := parseTypeList(sys, args)
		if err != nil {
			return types.Type{}, err
		}
		return sys.Data(name, dargs), nil
	}
}

func parseTypeList(sys types.TypeSystem, parts []string) ([]types.Type, error) {
	out := make([]types.Type, len(parts))
	for i, p := range parts {
		t, err := ParseType(sys, p)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// ParseSurfaceType parses the small surface type grammar resolveTypeExpr
// accepts inside a DatatypeDecl constructor argument: a bare name, or a
// name with angle-bracket arguments (fixture's own notation — DatatypeCon
// arguments are genuinely unresolved surface syntax, spec.md §4.1).
func ParseSurfaceType(s string) (ast.Type, error) {
	name, args, err := splitHead(s)
	if err != nil {
		return ast.Type{}, err
	}
	out := make([]ast.Type, len(args))
	for i, a := range args {
		t, err := ParseSurfaceType(a)
		if err != nil {
			return ast.Type{}, err
		}
		out[i] = t
	}
	return ast.Type{Name: name, Args: out}, nil
}

// splitHead splits "name<a,b,c>" into ("name", ["a","b","c"]), or "name"
// into ("name", nil). Commas are split only at angle-bracket depth zero, so
// "record<a:list<int>,b:int>" yields ["a:list<int>", "b:int"].
func splitHead(s string) (string, []string, error) {
	s = strings.TrimSpace(s)
	lt := strings.IndexByte(s, '<')
	if lt < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ">") {
		return "", nil, fmt.Errorf("fixture: malformed type expression %q", s)
	}
	name := strings.TrimSpace(s[:lt])
	parts, err := splitTopLevel(s[lt+1:len(s)-1], '<', '>')
	if err != nil {
		return "", nil, err
	}
	return name, parts, nil
}

func splitTopLevel(s string, open, close byte) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("fixture: unbalanced %q in %q", close, s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("fixture: unbalanced %q in %q", open, s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts, nil
}
