// Package compileerr defines the error kinds of spec.md §7. It follows the
// shape of CUE's cue/errors package (a Message-carrying error with an
// optional path and a List for accumulating several at once) but is
// scoped to the four kinds the compilation core actually raises.
package compileerr

import (
	"fmt"
	"strings"

	"github.com/weave-lang/weavec/ast"
)

// Code discriminates the error kinds named in spec.md §7.
type Code uint8

const (
	// MalformedInput: a Core invariant violated. Always a bug in an
	// earlier pass; aborts compilation.
	MalformedInput Code = iota
	// UnknownIdentifier: a name not in the environment. Should have been
	// caught by type resolution; aborts.
	UnknownIdentifier
	// InternalLimit: the inliner fixed point was not reached within the
	// configured iteration cap (spec.md §5, §9(ii)).
	InternalLimit
	// Unsupported: a construct the compiler has no rule for; aborts.
	Unsupported
)

func (c Code) String() string {
	switch c {
	case MalformedInput:
		return "MalformedInput"
	case UnknownIdentifier:
		return "UnknownIdentifier"
	case InternalLimit:
		return "InternalLimit"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error is a single compilation error: a code, a human message, the path
// of frame labels (e.g. enclosing let/fn/comprehension names) active when
// it was raised, and an optional source position, mirroring CUE's
// compiler.path() diagnostics and its errors.Error.Position(). Pos is nil
// when no surface node was available at the raise site (e.g. a step kind
// the resolver recognises by its Go type alone, with nothing in the
// surface grammar to blame).
type Error struct {
	Code    Code
	Message string
	Path    []string
	Pos     *ast.Pos
}

func (e *Error) Error() string {
	var pos string
	if e.Pos != nil {
		pos = fmt.Sprintf("%d:%d: ", e.Pos.Line, e.Pos.Column)
	}
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s%s: %s", pos, e.Code, e.Message)
	}
	return fmt.Sprintf("%s%s: %s: %s", pos, e.Code, strings.Join(e.Path, "."), e.Message)
}

// Position reports e's source position and whether one was recorded,
// matching the shape of CUE's errors.Error.Position() without requiring a
// caller to nil-check Pos directly.
func (e *Error) Position() (ast.Pos, bool) {
	if e.Pos == nil {
		return ast.Pos{}, false
	}
	return *e.Pos, true
}

// Newf builds an Error of the given code with no position recorded.
func Newf(code Code, path []string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Path: append([]string(nil), path...)}
}

// NewfAt builds an Error of the given code positioned at n.
func NewfAt(code Code, n ast.Node, path []string, format string, args ...any) *Error {
	e := Newf(code, path, format, args...)
	if n != nil {
		pos := n.Pos()
		e.Pos = &pos
	}
	return e
}

// List accumulates zero or more errors, the way CUE's errors.Append does,
// so a pass can keep going after a recoverable diagnostic and report
// everything it found.
type List struct {
	errs []*Error
}

// Add appends err to the list. A nil err is a no-op.
func (l *List) Add(err *Error) {
	if err == nil {
		return
	}
	l.errs = append(l.errs, err)
}

// Err returns the list as an error (nil if empty).
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}

// Errs returns the accumulated errors directly.
func (l *List) Errs() []*Error { return l.errs }

func (l *List) Error() string {
	parts := make([]string, len(l.errs))
	for i, e := range l.errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n")
}

// Len reports how many errors have been accumulated.
func (l *List) Len() int { return len(l.errs) }
