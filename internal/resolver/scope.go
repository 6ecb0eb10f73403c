package resolver

// conInfo records what the resolver needs to know about a datatype
// constructor once its DatatypeDecl has been processed: whether a bare
// reference to its name should become Con0 (arity 0) or an eta-expanded
// function value (arity 1), and what an App whose function is this name
// should become (ConApp).
type conInfo struct {
	arity int
}

// scope is a chain of lexical frames. Each frame tracks both plain
// identifiers (Fn/Let/Case/comprehension binders, and the seed
// environment's names) and datatype constructors installed by a
// DatatypeDecl, since the two live in different namespaces but both need
// shadowing semantics as the resolver descends.
type scope struct {
	parent *scope
	idents map[string]bool
	cons   map[string]conInfo
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, idents: map[string]bool{}, cons: map[string]conInfo{}}
}

func (s *scope) bindIdent(name string) {
	s.idents[name] = true
}

func (s *scope) bindCon(name string, arity int) {
	s.cons[name] = conInfo{arity: arity}
}

func (s *scope) hasIdent(name string) bool {
	for f := s; f != nil; f = f.parent {
		if f.idents[name] {
			return true
		}
		if _, ok := f.cons[name]; ok {
			// A constructor name also counts as a bound identifier: it
			// resolves, just to a Con0/ConApp/eta-expansion instead of a
			// plain Ident.
			return true
		}
	}
	return false
}

func (s *scope) lookupCon(name string) (conInfo, bool) {
	for f := s; f != nil; f = f.parent {
		if c, ok := f.cons[name]; ok {
			return c, true
		}
		if f.idents[name] {
			// A plain identifier shadows an outer constructor of the same
			// name.
			return conInfo{}, false
		}
	}
	return conInfo{}, false
}
