package compileerr_test

import (
	"testing"

	"github.com/weave-lang/weavec/ast"
	"github.com/weave-lang/weavec/internal/compileerr"
)

type fakeNode struct{ pos ast.Pos }

func (n fakeNode) Pos() ast.Pos { return n.pos }

func TestNewfHasNoPosition(t *testing.T) {
	err := compileerr.Newf(compileerr.Unsupported, nil, "bad thing: %d", 3)
	if _, ok := err.Position(); ok {
		t.Fatalf("Position() ok = true, want false for Newf")
	}
	if got, want := err.Error(), "Unsupported: bad thing: 3"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewfAtRecordsPosition(t *testing.T) {
	n := fakeNode{pos: ast.Pos{Line: 3, Column: 5}}
	err := compileerr.NewfAt(compileerr.MalformedInput, n, nil, "unexpected %s", "shape")
	pos, ok := err.Position()
	if !ok {
		t.Fatalf("Position() ok = false, want true")
	}
	if pos != (ast.Pos{Line: 3, Column: 5}) {
		t.Fatalf("Position() = %+v, want {3 5}", pos)
	}
	if got, want := err.Error(), "3:5: MalformedInput: unexpected shape"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewfAtNilNodeLeavesPositionUnset(t *testing.T) {
	err := compileerr.NewfAt(compileerr.Unsupported, nil, nil, "no node here")
	if _, ok := err.Position(); ok {
		t.Fatalf("Position() ok = true, want false when n is nil")
	}
}
