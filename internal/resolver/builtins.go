package resolver

// infixBuiltins maps a surface infix operator token to the name of the
// built-in function it compiles to (spec.md §4.1: "Infix operators
// (andalso, orelse, =, <, ::, etc.) become applications of named built-ins
// via a fixed operator→built-in table"). The chosen names are also the
// ones the relational scalar translator's operator table recognises
// (spec.md §4.10.1), so a conjunct built from one of these survives
// straight through to relational lowering without a name translation
// step.
var infixBuiltins = map[string]string{
	"=":       "=",
	"<>":      "<>",
	"<":       "<",
	"<=":      "<=",
	">":       ">",
	">=":      ">=",
	"+":       "+",
	"-":       "-",
	"*":       "*",
	"/":       "/",
	"mod":     "mod",
	"andalso": "andalso",
	"orelse":  "orelse",
	"::":      "::",

	// union/except/intersect lower relationally (spec.md §4.10.2: "a union
	// b, a except b, a intersect b lower to union/minus/intersect after the
	// children have been harmonised to a least-restrictive common row
	// type"); a fragment that cannot lower still evaluates as an ordinary
	// named built-in the way every other infix does, so they are resolved
	// identically to the arithmetic/comparison operators above and only
	// internal/rellower treats them specially.
	"union":     "union",
	"except":    "except",
	"intersect": "intersect",
}

// unaryBuiltins maps a surface prefix operator to its built-in name.
var unaryBuiltins = map[string]string{
	"~":   "~", // unary negation
	"not": "not",
}

// aggregateNames is the set of built-in aggregate operators a group step
// or bare Aggregate expression may name (spec.md §4.10 item 4).
var aggregateNames = map[string]bool{
	"sum":   true,
	"count": true,
	"min":   true,
	"max":   true,
}
