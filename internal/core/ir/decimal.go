package ir

import "github.com/cockroachdb/apd/v3"

// Decimal is the representation of a Core-IR real literal. Weave reals are
// arbitrary precision so that constant folding (spec.md §4.5) and range
// generator arithmetic (spec.md §4.7) never lose precision the way a
// float64 constant would.
type Decimal = apd.Decimal

var decimalCtx = apd.BaseContext.WithPrecision(40)

// ParseDecimal parses the raw lexeme of a real literal.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return *d, nil
}

// DecimalFromInt64 builds an exact Decimal from a machine integer, used
// when the range generator (spec.md §4.7) needs to compare an integer
// bound against a real-valued conjunct, or when folding `real i` in the
// inliner.
func DecimalFromInt64(i int64) Decimal {
	return *apd.New(i, 0)
}

// AddDecimal returns a + b using the shared decimal context.
func AddDecimal(a, b Decimal) Decimal {
	var r apd.Decimal
	_, _ = decimalCtx.Add(&r, &a, &b)
	return r
}

// SubDecimal returns a - b using the shared decimal context.
func SubDecimal(a, b Decimal) Decimal {
	var r apd.Decimal
	_, _ = decimalCtx.Sub(&r, &a, &b)
	return r
}

// CompareDecimal returns -1, 0, or 1 as a is less than, equal to, or
// greater than b.
func CompareDecimal(a, b Decimal) int {
	return a.Cmp(&b)
}
