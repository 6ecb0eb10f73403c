package ir

// CompStep is one intermediate step of a Comprehension (spec.md §3):
// where (filter), order, or group. It is a closed tagged union, not an
// interface with many implementations elsewhere, so every pass that
// handles steps is a single exhaustive switch.
type CompStep interface {
	stepNode()
}

// WhereStep filters the current binding tuple by Cond.
type WhereStep struct {
	Cond Expr
}

func (WhereStep) stepNode() {}

// OrderItem is one sort key of an OrderStep.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// OrderStep sorts the current sequence by a list of keys and directions.
type OrderStep struct {
	Items []OrderItem
}

func (OrderStep) stepNode() {}

// NamedAgg is one aggregate of a GroupStep, e.g. `total = sum sales`. Op is
// one of the built-in aggregate names (spec.md §4.10 item 4): sum, count,
// min, max. Expr is nil for `count`.
type NamedAgg struct {
	Name string
	Op   string
	Expr Expr
}

// GroupStep groups the current sequence by Keys and computes Aggs per
// group.
type GroupStep struct {
	Keys []Expr
	Aggs []NamedAgg
}

func (GroupStep) stepNode() {}
