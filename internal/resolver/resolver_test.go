package resolver_test

import (
	"testing"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/compileerr"
	"github.com/weave-lang/weavec/internal/core/types"
	"github.com/weave-lang/weavec/internal/resolver"
	"github.com/weave-lang/weavec/internal/typemap"
)

// TestUnknownIdentifierCarriesPosition covers SPEC_FULL.md's Ambient
// Stack/Errors section: an error raised over a surface node records that
// node's position, not just a free-text mention of it.
func TestUnknownIdentifierCarriesPosition(t *testing.T) {
	sys := types.NewTypeSystem()
	tm := typemap.NewMap()

	ref := &ast.Ident{Name: "undefined"}
	ref.P = ast.Pos{Line: 7, Column: 2}
	tm.Set(ref, sys.Primitive(types.Int))
	decl := &ast.ValDecl{Pat: &ast.IdentPat{Name: "result"}, Expr: ref}
	tm.Set(decl.Pat, sys.Primitive(types.Int))

	r := resolver.New(sys, tm, nil)
	r.ResolveDecl(decl)

	err := r.Err()
	if err == nil {
		t.Fatalf("Err() = nil, want an UnknownIdentifier error")
	}
	list, ok := err.(*compileerr.List)
	if !ok {
		t.Fatalf("Err() = %T, want *compileerr.List", err)
	}
	errs := list.Errs()
	if len(errs) != 1 {
		t.Fatalf("len(Errs()) = %d, want 1: %v", len(errs), errs)
	}
	if errs[0].Code != compileerr.UnknownIdentifier {
		t.Fatalf("Code = %v, want UnknownIdentifier", errs[0].Code)
	}
	pos, ok := errs[0].Position()
	if !ok {
		t.Fatalf("Position() ok = false, want true")
	}
	if pos != (ast.Pos{Line: 7, Column: 2}) {
		t.Fatalf("Position() = %+v, want {7 2}", pos)
	}
}
