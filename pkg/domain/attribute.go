// Package domain defines the value types shared by the simulation object store:
// dynamically typed attribute values and their binary codec, view descriptors,
// data filters, component kinds, and the collaborator interfaces the core consumes.
package domain

import (
	"fmt"
	"math"
)

// AttributeType is the discriminant of an attribute Value. The numeric codes are
// part of the binary encoding and must never be renumbered.
type AttributeType uint8

// Supported attribute payload kinds.
const (
	TypeNone AttributeType = iota
	TypeDouble
	TypeString
	TypeTimeSeries
	TypeLink
	TypeDoubleVector
	TypeStringVector
)

var attributeTypeNames = [...]string{
	TypeNone:         "NOTYPE",
	TypeDouble:       "DOUBLE",
	TypeString:       "STRING",
	TypeTimeSeries:   "TIMESERIES",
	TypeLink:         "LINK",
	TypeDoubleVector: "DOUBLEVECTOR",
	TypeStringVector: "STRINGVECTOR",
}

// Valid reports whether t is a known discriminant.
func (t AttributeType) Valid() bool { return int(t) < len(attributeTypeNames) }

// String returns the canonical upper-case type name.
func (t AttributeType) String() string {
	if t.Valid() {
		return attributeTypeNames[t]
	}
	return fmt.Sprintf("AttributeType(%d)", uint8(t))
}

// ParseAttributeType maps a canonical type name back to its discriminant.
func ParseAttributeType(s string) (AttributeType, bool) {
	for t, name := range attributeTypeNames {
		if name == s {
			return AttributeType(t), true
		}
	}
	return TypeNone, false
}

// Link references a component by uuid inside a named view.
type Link struct {
	UUID string `json:"uuid"`
	View string `json:"view"`
}

// TimeSeries is a parallel list of timestamps and values of equal length.
type TimeSeries struct {
	Timestamps []string  `json:"timestamps"`
	Values     []float64 `json:"values"`
}

// Len returns the number of samples.
func (ts TimeSeries) Len() int { return len(ts.Timestamps) }

func (ts TimeSeries) clone() TimeSeries {
	return TimeSeries{
		Timestamps: append([]string{}, ts.Timestamps...),
		Values:     append([]float64{}, ts.Values...),
	}
}

// Value is a tagged variant holding exactly one payload kind. The zero Value is
// TypeNone. Payloads are immutable once stored: every setter installs a fresh
// copy and every getter hands out a copy, so two Values never observe each
// other's mutations even after a plain struct assignment.
//
// Getters never fail. Reading a Value as a type other than its discriminant
// yields the zero value of the requested type (0, "", empty slice).
type Value struct {
	typ     AttributeType
	payload any
}

// DoubleValue returns a TypeDouble value.
func DoubleValue(d float64) Value { return Value{typ: TypeDouble, payload: d} }

// StringValue returns a TypeString value.
func StringValue(s string) Value { return Value{typ: TypeString, payload: s} }

// DoubleVectorValue returns a TypeDoubleVector value holding a copy of v.
func DoubleVectorValue(v []float64) Value {
	return Value{typ: TypeDoubleVector, payload: append([]float64{}, v...)}
}

// StringVectorValue returns a TypeStringVector value holding a copy of v.
func StringVectorValue(v []string) Value {
	return Value{typ: TypeStringVector, payload: append([]string{}, v...)}
}

// LinksValue returns a TypeLink value holding a copy of links.
func LinksValue(links []Link) Value {
	return Value{typ: TypeLink, payload: append([]Link{}, links...)}
}

// TimeSeriesValue returns a TypeTimeSeries value. Mismatched lengths yield ErrLengthMismatch.
func TimeSeriesValue(timestamps []string, values []float64) (Value, error) {
	if len(timestamps) != len(values) {
		return Value{}, fmt.Errorf("%w: %d timestamps, %d values", ErrLengthMismatch, len(timestamps), len(values))
	}
	ts := TimeSeries{Timestamps: timestamps, Values: values}
	return Value{typ: TypeTimeSeries, payload: ts.clone()}, nil
}

// ZeroValue returns the empty payload for t.
func ZeroValue(t AttributeType) Value {
	switch t {
	case TypeDouble:
		return DoubleValue(0)
	case TypeString:
		return StringValue("")
	case TypeTimeSeries:
		return Value{typ: TypeTimeSeries, payload: TimeSeries{Timestamps: []string{}, Values: []float64{}}}
	case TypeLink:
		return LinksValue(nil)
	case TypeDoubleVector:
		return DoubleVectorValue(nil)
	case TypeStringVector:
		return StringVectorValue(nil)
	default:
		return Value{}
	}
}

// Type returns the discriminant.
func (v Value) Type() AttributeType { return v.typ }

// IsNone reports whether v carries no payload.
func (v Value) IsNone() bool { return v.typ == TypeNone }

// Free drops the payload and resets the discriminant to TypeNone.
func (v *Value) Free() { *v = Value{} }

// SetType replaces the payload with the zero payload of t.
func (v *Value) SetType(t AttributeType) { *v = ZeroValue(t) }

// SetDouble replaces the payload with d.
func (v *Value) SetDouble(d float64) { *v = DoubleValue(d) }

// SetString replaces the payload with s.
func (v *Value) SetString(s string) { *v = StringValue(s) }

// SetDoubleVector replaces the payload with a copy of d.
func (v *Value) SetDoubleVector(d []float64) { *v = DoubleVectorValue(d) }

// SetStringVector replaces the payload with a copy of s.
func (v *Value) SetStringVector(s []string) { *v = StringVectorValue(s) }

// SetLinks replaces the payload with a copy of links.
func (v *Value) SetLinks(links []Link) { *v = LinksValue(links) }

// AddLink appends a link, converting the value to TypeLink if needed.
func (v *Value) AddLink(view, uuid string) {
	links := v.Links()
	*v = Value{typ: TypeLink, payload: append(links, Link{UUID: uuid, View: view})}
}

// SetTimeSeries replaces the payload. On length mismatch the value is left untouched.
func (v *Value) SetTimeSeries(timestamps []string, values []float64) error {
	nv, err := TimeSeriesValue(timestamps, values)
	if err != nil {
		return err
	}
	*v = nv
	return nil
}

// Double returns the payload or 0.
func (v Value) Double() float64 {
	if d, ok := v.payload.(float64); ok && v.typ == TypeDouble {
		return d
	}
	return 0
}

// String returns the payload or "" for any other type. Use %v (Format) to
// print a Value of any type.
func (v Value) String() string {
	if s, ok := v.payload.(string); ok && v.typ == TypeString {
		return s
	}
	return ""
}

// DoubleVector returns a copy of the payload or an empty slice.
func (v Value) DoubleVector() []float64 {
	if d, ok := v.payload.([]float64); ok && v.typ == TypeDoubleVector {
		return append([]float64{}, d...)
	}
	return []float64{}
}

// StringVector returns a copy of the payload or an empty slice.
func (v Value) StringVector() []string {
	if s, ok := v.payload.([]string); ok && v.typ == TypeStringVector {
		return append([]string{}, s...)
	}
	return []string{}
}

// Links returns a copy of the payload or an empty slice.
func (v Value) Links() []Link {
	if l, ok := v.payload.([]Link); ok && v.typ == TypeLink {
		return append([]Link{}, l...)
	}
	return []Link{}
}

// Link returns the first link or the zero Link.
func (v Value) Link() Link {
	if l, ok := v.payload.([]Link); ok && v.typ == TypeLink && len(l) > 0 {
		return l[0]
	}
	return Link{}
}

// TimeSeries returns a copy of the payload or an empty series.
func (v Value) TimeSeries() TimeSeries {
	if ts, ok := v.payload.(TimeSeries); ok && v.typ == TypeTimeSeries {
		return ts.clone()
	}
	return TimeSeries{Timestamps: []string{}, Values: []float64{}}
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.typ {
	case TypeDouble, TypeString, TypeNone:
		return v
	case TypeTimeSeries:
		return Value{typ: TypeTimeSeries, payload: v.TimeSeries()}
	case TypeLink:
		return LinksValue(v.Links())
	case TypeDoubleVector:
		return DoubleVectorValue(v.DoubleVector())
	case TypeStringVector:
		return StringVectorValue(v.StringVector())
	default:
		return Value{}
	}
}

// Equal compares discriminant and payload. Doubles compare bit-for-bit so NaN
// payloads survive an encode/decode comparison.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNone:
		return true
	case TypeDouble:
		return math.Float64bits(v.Double()) == math.Float64bits(o.Double())
	case TypeString:
		return v.String() == o.String()
	case TypeDoubleVector:
		return floatsEqual(v.DoubleVector(), o.DoubleVector())
	case TypeStringVector:
		return stringsEqual(v.StringVector(), o.StringVector())
	case TypeLink:
		a, b := v.Links(), o.Links()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	case TypeTimeSeries:
		a, b := v.TimeSeries(), o.TimeSeries()
		return stringsEqual(a.Timestamps, b.Timestamps) && floatsEqual(a.Values, b.Values)
	}
	return false
}

func floatsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Attribute is a named Value attached to at most one component. The name is
// fixed at construction; the owner is recorded by id only.
type Attribute struct {
	name      string
	value     Value
	owner     string
	persisted bool
}

// NewAttribute returns a detached attribute.
func NewAttribute(name string, value Value) *Attribute {
	return &Attribute{name: name, value: value.Clone()}
}

// Name returns the immutable attribute name.
func (a *Attribute) Name() string { return a.name }

// Value returns a copy of the held value.
func (a *Attribute) Value() Value { return a.value.Clone() }

// Type returns the value discriminant.
func (a *Attribute) Type() AttributeType { return a.value.typ }

// Owner returns the id of the owning component, or "" while detached.
func (a *Attribute) Owner() string { return a.owner }

// Persisted reports whether the attribute has been handed to a persistence hook.
func (a *Attribute) Persisted() bool { return a.persisted }

// Clone returns a detached deep copy keeping the name and value.
func (a *Attribute) Clone() *Attribute {
	return &Attribute{name: a.name, value: a.value.Clone()}
}

// Set replaces the held value.
func (a *Attribute) Set(v Value) { a.value = v.Clone() }

// Double, String and friends mirror the Value getters.
func (a *Attribute) Double() float64         { return a.value.Double() }
func (a *Attribute) String() string          { return a.value.String() }
func (a *Attribute) DoubleVector() []float64 { return a.value.DoubleVector() }
func (a *Attribute) StringVector() []string  { return a.value.StringVector() }
func (a *Attribute) Links() []Link           { return a.value.Links() }
func (a *Attribute) TimeSeries() TimeSeries  { return a.value.TimeSeries() }

// SetDouble replaces the value with a double.
func (a *Attribute) SetDouble(d float64) { a.value.SetDouble(d) }

// SetString replaces the value with a string.
func (a *Attribute) SetString(s string) { a.value.SetString(s) }

// SetDoubleVector replaces the value with a double vector.
func (a *Attribute) SetDoubleVector(d []float64) { a.value.SetDoubleVector(d) }

// SetStringVector replaces the value with a string vector.
func (a *Attribute) SetStringVector(s []string) { a.value.SetStringVector(s) }

// SetLinks replaces the value with a link list.
func (a *Attribute) SetLinks(l []Link) { a.value.SetLinks(l) }

// AddLink appends one link.
func (a *Attribute) AddLink(view, uuid string) { a.value.AddLink(view, uuid) }

// SetTimeSeries replaces the value with a time series.
func (a *Attribute) SetTimeSeries(timestamps []string, values []float64) error {
	return a.value.SetTimeSeries(timestamps, values)
}

// SetType resets the value to the zero payload of t.
func (a *Attribute) SetType(t AttributeType) { a.value.SetType(t) }

// Bind records the owning component id. Intended for component implementations.
func (a *Attribute) Bind(ownerID string) { a.owner = ownerID }

// MarkPersisted flags the attribute as handed to a persistence hook.
func (a *Attribute) MarkPersisted() { a.persisted = true }
