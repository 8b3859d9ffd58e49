package domain

import (
	"fmt"
	"sort"
)

// Access is the access mode a view declares for geometry or an attribute.
// Modes are ordered: Read < Modify < Write.
type Access uint8

// Access modes. AccessNone is the sentinel for undeclared attributes.
const (
	AccessNone Access = iota
	AccessRead
	AccessModify
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessModify:
		return "modify"
	case AccessWrite:
		return "write"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// ParseAccess maps "read", "modify" or "write" to an Access.
func ParseAccess(s string) (Access, bool) {
	switch s {
	case "read":
		return AccessRead, true
	case "modify":
		return AccessModify, true
	case "write":
		return AccessWrite, true
	}
	return AccessNone, false
}

// AttributeAccess pairs the declared type and access mode of one attribute.
type AttributeAccess struct {
	Type   AttributeType
	Access Access
}

// View declares which component kind a stage works on, how it touches geometry
// and attributes, and which filters narrow its working set. Builder methods
// are meant to run before the view is bound to a data viewer; a bound view is
// only ever replaced wholesale.
type View struct {
	name           string
	kind           Kind
	geometryAccess Access
	attributes     map[string]AttributeAccess
	order          []string
	links          map[string]string
	filters        []DataFilter
}

// NewView returns a view of kind with the given geometry access.
func NewView(name string, kind Kind, geometryAccess Access) View {
	return View{name: name, kind: kind, geometryAccess: geometryAccess}
}

// Name returns the view name.
func (v View) Name() string { return v.name }

// Kind returns the governed component kind.
func (v View) Kind() Kind { return v.kind }

// GeometryAccess returns the declared geometry access.
func (v View) GeometryAccess() Access { return v.geometryAccess }

func (v *View) declare(name string, t AttributeType, a Access) {
	if v.attributes == nil {
		v.attributes = make(map[string]AttributeAccess)
	}
	if _, ok := v.attributes[name]; !ok {
		v.order = append(v.order, name)
	}
	v.attributes[name] = AttributeAccess{Type: t, Access: a}
}

// AddAttribute declares an attribute the stage creates.
func (v *View) AddAttribute(name string, t AttributeType) *View {
	v.declare(name, t, AccessWrite)
	return v
}

// GetAttribute declares an attribute the stage only reads.
func (v *View) GetAttribute(name string, t AttributeType) *View {
	v.declare(name, t, AccessRead)
	return v
}

// ModifyAttribute declares an attribute the stage reads and changes.
func (v *View) ModifyAttribute(name string, t AttributeType) *View {
	v.declare(name, t, AccessModify)
	return v
}

// SetAttributeType changes the declared type of an already declared attribute.
// Undeclared names are ignored.
func (v *View) SetAttributeType(name string, t AttributeType) *View {
	if aa, ok := v.attributes[name]; ok {
		aa.Type = t
		v.attributes[name] = aa
	}
	return v
}

// AddLinks declares a link attribute written by the stage that points into target view.
func (v *View) AddLinks(name, targetView string) *View {
	v.declare(name, TypeLink, AccessWrite)
	if v.links == nil {
		v.links = make(map[string]string)
	}
	v.links[name] = targetView
	return v
}

// AddFilter appends a filter predicate.
func (v *View) AddFilter(f DataFilter) *View {
	v.filters = append(v.filters, f)
	return v
}

// SetFilters replaces the filter list.
func (v *View) SetFilters(filters []DataFilter) *View {
	v.filters = append([]DataFilter(nil), filters...)
	return v
}

// Filters returns a copy of the filter list.
func (v View) Filters() []DataFilter { return append([]DataFilter(nil), v.filters...) }

// AttributeType returns the declared type of name or TypeNone.
func (v View) AttributeType(name string) AttributeType {
	return v.attributes[name].Type
}

// AttributeAccess returns the declared access of name or AccessNone.
func (v View) AttributeAccess(name string) Access {
	return v.attributes[name].Access
}

// Attributes returns the declared attribute names in declaration order.
func (v View) Attributes() []string { return append([]string(nil), v.order...) }

// ReadAttributes returns the declared names the stage reads (access below Write).
func (v View) ReadAttributes() []string {
	var out []string
	for _, name := range v.order {
		if v.attributes[name].Access < AccessWrite {
			out = append(out, name)
		}
	}
	return out
}

// WriteAttributes returns the declared names the stage changes (access above Read).
func (v View) WriteAttributes() []string {
	var out []string
	for _, name := range v.order {
		if v.attributes[name].Access > AccessRead {
			out = append(out, name)
		}
	}
	return out
}

// Reads reports whether the view consumes existing data.
func (v View) Reads() bool {
	if v.geometryAccess < AccessWrite {
		return true
	}
	for _, aa := range v.attributes {
		if aa.Access < AccessWrite {
			return true
		}
	}
	return false
}

// Writes reports whether the view changes data.
func (v View) Writes() bool {
	if v.geometryAccess > AccessRead {
		return true
	}
	for _, aa := range v.attributes {
		if aa.Access > AccessRead {
			return true
		}
	}
	return false
}

// LinkNames returns the link attribute names sorted.
func (v View) LinkNames() []string {
	out := make([]string, 0, len(v.links))
	for name := range v.links {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LinkedView returns the target view of a link attribute or "".
func (v View) LinkedView(name string) string { return v.links[name] }

// Clone returns a deep copy.
func (v View) Clone() View {
	out := View{
		name:           v.name,
		kind:           v.kind,
		geometryAccess: v.geometryAccess,
		order:          append([]string(nil), v.order...),
		filters:        append([]DataFilter(nil), v.filters...),
	}
	if v.attributes != nil {
		out.attributes = make(map[string]AttributeAccess, len(v.attributes))
		for k, aa := range v.attributes {
			out.attributes[k] = aa
		}
	}
	if v.links != nil {
		out.links = make(map[string]string, len(v.links))
		for k, t := range v.links {
			out.links[k] = t
		}
	}
	return out
}
