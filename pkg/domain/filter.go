package domain

import "fmt"

// FilterKind selects what a DataFilter inspects.
type FilterKind uint8

// Filter kinds.
const (
	FilterNodeCoordinate FilterKind = iota
	FilterAttributeDouble
	FilterAttributeString
)

// Coordinate names a node axis.
type Coordinate uint8

// Node axes.
const (
	CoordX Coordinate = iota
	CoordY
	CoordZ
)

func (c Coordinate) String() string {
	switch c {
	case CoordX:
		return "X"
	case CoordY:
		return "Y"
	case CoordZ:
		return "Z"
	}
	return fmt.Sprintf("Coordinate(%d)", uint8(c))
}

// ParseCoordinate maps "X", "Y" or "Z" (either case) to a node axis.
func ParseCoordinate(s string) (Coordinate, bool) {
	switch s {
	case "X", "x":
		return CoordX, true
	case "Y", "y":
		return CoordY, true
	case "Z", "z":
		return CoordZ, true
	}
	return 0, false
}

// Operator is a comparison operator.
type Operator uint8

// Comparison operators.
const (
	OpGreater Operator = iota
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpEqual
)

var operatorSymbols = [...]string{">", ">=", "<", "<=", "=="}

func (o Operator) String() string {
	if int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return fmt.Sprintf("Operator(%d)", uint8(o))
}

// ParseOperator maps a symbol such as ">=" to its Operator.
func ParseOperator(s string) (Operator, bool) {
	for i, sym := range operatorSymbols {
		if sym == s {
			return Operator(i), true
		}
	}
	return 0, false
}

func (o Operator) compare(a, b float64) bool {
	switch o {
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpEqual:
		return a == b
	}
	return false
}

// DataFilter is an immutable predicate over a node coordinate or an attribute.
// The struct is comparable; == is the structural equality used to diff filter sets.
type DataFilter struct {
	kind      FilterKind
	coord     Coordinate
	attribute string
	op        Operator
	number    float64
	text      string
}

// NodeFilter matches nodes whose coordinate satisfies op against value.
func NodeFilter(coord Coordinate, op Operator, value float64) DataFilter {
	return DataFilter{kind: FilterNodeCoordinate, coord: coord, op: op, number: value}
}

// AttributeFilter matches components whose double attribute satisfies op against value.
func AttributeFilter(name string, op Operator, value float64) DataFilter {
	return DataFilter{kind: FilterAttributeDouble, attribute: name, op: op, number: value}
}

// AttributeStringFilter matches components whose string attribute equals value.
func AttributeStringFilter(name, value string) DataFilter {
	return DataFilter{kind: FilterAttributeString, attribute: name, op: OpEqual, text: value}
}

// Kind returns the filter kind.
func (f DataFilter) Kind() FilterKind { return f.kind }

// Coordinate returns the node axis of a coordinate filter.
func (f DataFilter) Coordinate() Coordinate { return f.coord }

// AttributeName returns the inspected attribute of an attribute filter.
func (f DataFilter) AttributeName() string { return f.attribute }

// Operator returns the comparison operator.
func (f DataFilter) Operator() Operator { return f.op }

// Number returns the numeric operand.
func (f DataFilter) Number() float64 { return f.number }

// Text returns the string operand.
func (f DataFilter) Text() string { return f.text }

func (f DataFilter) String() string {
	switch f.kind {
	case FilterNodeCoordinate:
		return fmt.Sprintf("%s %s %g", f.coord, f.op, f.number)
	case FilterAttributeDouble:
		return fmt.Sprintf("%s %s %g", f.attribute, f.op, f.number)
	default:
		return fmt.Sprintf("%s == %q", f.attribute, f.text)
	}
}

// FilterTarget is the read surface a filter evaluates against.
type FilterTarget interface {
	// Coordinate returns the axis value; ok is false for components without a position.
	Coordinate(c Coordinate) (value float64, ok bool)
	// AttributeValue returns the named attribute value; ok is false when absent.
	AttributeValue(name string) (value Value, ok bool)
}

// Match evaluates the filter. Components without a position never match a
// coordinate filter and components without the attribute never match an
// attribute filter. A present attribute of another type is read through the
// coercing getters (0 or "").
func (f DataFilter) Match(t FilterTarget) bool {
	switch f.kind {
	case FilterNodeCoordinate:
		v, ok := t.Coordinate(f.coord)
		return ok && f.op.compare(v, f.number)
	case FilterAttributeDouble:
		v, ok := t.AttributeValue(f.attribute)
		return ok && f.op.compare(v.Double(), f.number)
	case FilterAttributeString:
		v, ok := t.AttributeValue(f.attribute)
		return ok && v.String() == f.text
	}
	return false
}

// MatchAll reports whether every filter matches.
func MatchAll(filters []DataFilter, t FilterTarget) bool {
	for _, f := range filters {
		if !f.Match(t) {
			return false
		}
	}
	return true
}

// FilterSetDiff returns the filters of old missing from next (removed) and the
// filters of next missing from old (added), both in their original order.
func FilterSetDiff(old, next []DataFilter) (removed, added []DataFilter) {
	inOld := make(map[DataFilter]struct{}, len(old))
	for _, f := range old {
		inOld[f] = struct{}{}
	}
	inNext := make(map[DataFilter]struct{}, len(next))
	for _, f := range next {
		inNext[f] = struct{}{}
	}
	for _, f := range old {
		if _, ok := inNext[f]; !ok {
			removed = append(removed, f)
		}
	}
	for _, f := range next {
		if _, ok := inOld[f]; !ok {
			added = append(added, f)
		}
	}
	return removed, added
}
