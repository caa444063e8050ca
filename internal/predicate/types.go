package predicate

import (
	"fmt"

	"github.com/roach88/northwind/internal/ir"
)

// Predicate is an unbound filter expression.
type Predicate interface {
	predicateNode()
}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpGt Op = "gt"
	OpGe Op = "ge"
)

// Valid reports whether o is one of the six comparison operators.
func (o Op) Valid() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// ordering reports whether o needs an ordered kind.
func (o Op) ordering() bool {
	return o != OpEq && o != OpNe
}

// holds reports whether a comparison result c satisfies o.
func (o Op) holds(c int) bool {
	switch o {
	case OpEq:
		return c == 0
	case OpNe:
		return c != 0
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	panic(fmt.Sprintf("predicate: invalid op %q", string(o)))
}

// Compare tests a field against a literal.
type Compare struct {
	Field string
	Op    Op
	Value ir.Value
}

func (Compare) predicateNode() {}

// In tests a field for membership in a literal set.
type In struct {
	Field  string
	Values []ir.Value
}

func (In) predicateNode() {}

// IsNull is true when an optional field is absent.
type IsNull struct {
	Field string
}

func (IsNull) predicateNode() {}

// Contains tests a string field for a substring. Matching is case-sensitive.
type Contains struct {
	Field     string
	Substring string
}

func (Contains) predicateNode() {}

// And is true when every member is true. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is true when any member is true. An empty Or is false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates its operand.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Eq builds Compare{field, OpEq, v}.
func Eq(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpEq, Value: v} }

// Ne builds Compare{field, OpNe, v}.
func Ne(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpNe, Value: v} }

// Lt builds Compare{field, OpLt, v}.
func Lt(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpLt, Value: v} }

// Le builds Compare{field, OpLe, v}.
func Le(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpLe, Value: v} }

// Gt builds Compare{field, OpGt, v}.
func Gt(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpGt, Value: v} }

// Ge builds Compare{field, OpGe, v}.
func Ge(field string, v ir.Value) Compare { return Compare{Field: field, Op: OpGe, Value: v} }

// AllOf builds an And.
func AllOf(ps ...Predicate) And { return And{Predicates: ps} }

// AnyOf builds an Or.
func AnyOf(ps ...Predicate) Or { return Or{Predicates: ps} }
