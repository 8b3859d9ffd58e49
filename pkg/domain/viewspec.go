package domain

import "fmt"

// ViewSpec is the serialisable form of a View used by archives and pipeline
// files.
type ViewSpec struct {
	Name       string            `json:"name" yaml:"name"`
	Kind       string            `json:"kind" yaml:"kind"`
	Geometry   string            `json:"geometry,omitempty" yaml:"geometry,omitempty"`
	Attributes []AttributeSpec   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Links      map[string]string `json:"links,omitempty" yaml:"links,omitempty"`
	Filters    []FilterSpec      `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// AttributeSpec declares one view attribute.
type AttributeSpec struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Access string `json:"access" yaml:"access"`
}

// FilterSpec is the serialisable form of a DataFilter. Axis selects a node
// coordinate filter, Text a string attribute filter, anything else a double
// attribute filter.
type FilterSpec struct {
	Axis      string  `json:"axis,omitempty" yaml:"axis,omitempty"`
	Attribute string  `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Op        string  `json:"op,omitempty" yaml:"op,omitempty"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Text      string  `json:"text,omitempty" yaml:"text,omitempty"`
}

// SpecOf describes v.
func SpecOf(v View) ViewSpec {
	spec := ViewSpec{Name: v.name, Kind: v.kind.String(), Geometry: v.geometryAccess.String()}
	for _, name := range v.order {
		aa := v.attributes[name]
		spec.Attributes = append(spec.Attributes, AttributeSpec{Name: name, Type: aa.Type.String(), Access: aa.Access.String()})
	}
	if len(v.links) > 0 {
		spec.Links = make(map[string]string, len(v.links))
		for name, target := range v.links {
			spec.Links[name] = target
		}
	}
	for _, f := range v.filters {
		spec.Filters = append(spec.Filters, filterSpecOf(f))
	}
	return spec
}

func filterSpecOf(f DataFilter) FilterSpec {
	switch f.kind {
	case FilterNodeCoordinate:
		return FilterSpec{Axis: f.coord.String(), Op: f.op.String(), Value: f.number}
	case FilterAttributeString:
		return FilterSpec{Attribute: f.attribute, Text: f.text}
	default:
		return FilterSpec{Attribute: f.attribute, Op: f.op.String(), Value: f.number}
	}
}

// View rebuilds the described view.
func (s ViewSpec) View() (View, error) {
	kind, ok := ParseKind(s.Kind)
	if !ok {
		return View{}, fmt.Errorf("view %s: unknown kind %q", s.Name, s.Kind)
	}
	geometry := AccessNone
	if s.Geometry != "" && s.Geometry != AccessNone.String() {
		if geometry, ok = ParseAccess(s.Geometry); !ok {
			return View{}, fmt.Errorf("view %s: unknown geometry access %q", s.Name, s.Geometry)
		}
	}
	v := NewView(s.Name, kind, geometry)
	for _, a := range s.Attributes {
		t, ok := ParseAttributeType(a.Type)
		if !ok {
			return View{}, fmt.Errorf("view %s: attribute %s has unknown type %q", s.Name, a.Name, a.Type)
		}
		access, ok := ParseAccess(a.Access)
		if !ok {
			return View{}, fmt.Errorf("view %s: attribute %s has unknown access %q", s.Name, a.Name, a.Access)
		}
		v.declare(a.Name, t, access)
		if target, ok := s.Links[a.Name]; ok {
			if v.links == nil {
				v.links = make(map[string]string)
			}
			v.links[a.Name] = target
		}
	}
	for _, fs := range s.Filters {
		f, err := fs.Filter()
		if err != nil {
			return View{}, fmt.Errorf("view %s: %w", s.Name, err)
		}
		v.filters = append(v.filters, f)
	}
	return v, nil
}

// Filter rebuilds the described filter.
func (fs FilterSpec) Filter() (DataFilter, error) {
	if fs.Text != "" {
		if fs.Attribute == "" {
			return DataFilter{}, fmt.Errorf("string filter needs an attribute")
		}
		return AttributeStringFilter(fs.Attribute, fs.Text), nil
	}
	op, ok := ParseOperator(fs.Op)
	if !ok {
		return DataFilter{}, fmt.Errorf("unknown operator %q", fs.Op)
	}
	if fs.Axis != "" {
		axis, ok := ParseCoordinate(fs.Axis)
		if !ok {
			return DataFilter{}, fmt.Errorf("unknown axis %q", fs.Axis)
		}
		return NodeFilter(axis, op, fs.Value), nil
	}
	if fs.Attribute == "" {
		return DataFilter{}, fmt.Errorf("filter needs an axis or an attribute")
	}
	return AttributeFilter(fs.Attribute, op, fs.Value), nil
}
