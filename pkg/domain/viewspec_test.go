package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestViewSpecRebuildsView(t *testing.T) {
	v := NewView("catchments", KindFace, AccessRead)
	v.GetAttribute("area", TypeDouble).
		ModifyAttribute("runoff", TypeTimeSeries).
		AddLinks("outlet", "junctions").
		AddFilter(AttributeFilter("area", OpGreater, 10)).
		AddFilter(AttributeStringFilter("landuse", "urban"))

	spec := SpecOf(v)
	back, err := spec.View()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if diff := cmp.Diff(spec, SpecOf(back)); diff != "" {
		t.Fatalf("spec round trip (-want +got):\n%s", diff)
	}
	if back.LinkedView("outlet") != "junctions" || back.AttributeAccess("runoff") != AccessModify {
		t.Fatalf("declarations lost: %+v", SpecOf(back))
	}
	if got := back.Filters(); len(got) != 2 || got[0] != v.Filters()[0] || got[1] != v.Filters()[1] {
		t.Fatalf("filters differ: %v", got)
	}
}

func TestFilterSpecForms(t *testing.T) {
	cases := []struct {
		spec FilterSpec
		want DataFilter
	}{
		{FilterSpec{Axis: "x", Op: ">=", Value: 5}, NodeFilter(CoordX, OpGreaterEqual, 5)},
		{FilterSpec{Attribute: "depth", Op: "<", Value: 2}, AttributeFilter("depth", OpLess, 2)},
		{FilterSpec{Attribute: "name", Text: "outfall"}, AttributeStringFilter("name", "outfall")},
	}
	for _, tc := range cases {
		got, err := tc.spec.Filter()
		if err != nil {
			t.Fatalf("%+v: %v", tc.spec, err)
		}
		if got != tc.want {
			t.Fatalf("%+v: got %v want %v", tc.spec, got, tc.want)
		}
	}

	bad := []FilterSpec{
		{Axis: "w", Op: ">"},
		{Axis: "x", Op: "~"},
		{Op: ">"},
		{Text: "orphan"},
	}
	for _, fs := range bad {
		if _, err := fs.Filter(); err == nil {
			t.Fatalf("expected error for %+v", fs)
		}
	}
}

func TestViewSpecRejectsUnknownNames(t *testing.T) {
	bad := []ViewSpec{
		{Name: "v", Kind: "polygon"},
		{Name: "v", Kind: "node", Geometry: "rw"},
		{Name: "v", Kind: "node", Attributes: []AttributeSpec{{Name: "a", Type: "INT", Access: "read"}}},
		{Name: "v", Kind: "node", Attributes: []AttributeSpec{{Name: "a", Type: "DOUBLE", Access: "all"}}},
		{Name: "v", Kind: "node", Filters: []FilterSpec{{Op: "?"}}},
	}
	for _, spec := range bad {
		if _, err := spec.View(); err == nil {
			t.Fatalf("expected error for %+v", spec)
		}
	}
	v, err := ViewSpec{Name: "n", Kind: "node"}.View()
	if err != nil || v.GeometryAccess() != AccessNone || v.Kind() != KindNode {
		t.Fatalf("minimal spec: %v %+v", err, v)
	}
}
