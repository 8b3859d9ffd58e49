package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestViewReadsWrites(t *testing.T) {
	cases := []struct {
		name   string
		build  func() View
		reads  bool
		writes bool
	}{
		{
			name:   "geometry read",
			build:  func() View { return NewView("a", KindNode, AccessRead) },
			reads:  true,
			writes: false,
		},
		{
			name:   "geometry write only",
			build:  func() View { return NewView("a", KindNode, AccessWrite) },
			reads:  false,
			writes: true,
		},
		{
			name: "write geometry but read attribute",
			build: func() View {
				v := NewView("a", KindNode, AccessWrite)
				v.GetAttribute("depth", TypeDouble)
				return v
			},
			reads:  true,
			writes: true,
		},
		{
			name: "modify attribute",
			build: func() View {
				v := NewView("a", KindEdge, AccessRead)
				v.ModifyAttribute("flow", TypeDouble)
				return v
			},
			reads:  true,
			writes: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.build()
			if v.Reads() != tc.reads || v.Writes() != tc.writes {
				t.Fatalf("reads=%v writes=%v, want %v %v", v.Reads(), v.Writes(), tc.reads, tc.writes)
			}
		})
	}
}

func TestViewSentinelsAndLinks(t *testing.T) {
	v := NewView("conduits", KindEdge, AccessRead)
	v.AddAttribute("diameter", TypeDouble).
		GetAttribute("material", TypeString).
		AddLinks("outlet", "junctions").
		SetAttributeType("diameter", TypeDoubleVector)

	if v.AttributeType("missing") != TypeNone || v.AttributeAccess("missing") != AccessNone {
		t.Fatalf("unknown attributes must return sentinels")
	}
	if v.AttributeType("diameter") != TypeDoubleVector {
		t.Fatalf("SetAttributeType not applied")
	}
	if v.AttributeAccess("outlet") != AccessWrite || v.AttributeType("outlet") != TypeLink {
		t.Fatalf("links must be written link attributes")
	}
	if v.LinkedView("outlet") != "junctions" || v.LinkedView("material") != "" {
		t.Fatalf("unexpected linked views")
	}
	if diff := cmp.Diff([]string{"material"}, v.ReadAttributes()); diff != "" {
		t.Fatalf("read attributes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"diameter", "outlet"}, v.WriteAttributes()); diff != "" {
		t.Fatalf("write attributes (-want +got):\n%s", diff)
	}
}

func TestViewCloneIsIndependent(t *testing.T) {
	v := NewView("n", KindNode, AccessRead)
	v.GetAttribute("a", TypeDouble).AddFilter(NodeFilter(CoordX, OpGreater, 1))
	c := v.Clone()
	c.ModifyAttribute("a", TypeString).AddFilter(NodeFilter(CoordY, OpLess, 1))
	if v.AttributeAccess("a") != AccessRead || len(v.Filters()) != 1 {
		t.Fatalf("clone mutation leaked into original")
	}
}

type target struct {
	pos   *Point
	attrs map[string]Value
}

func (t target) Coordinate(c Coordinate) (float64, bool) {
	if t.pos == nil {
		return 0, false
	}
	return t.pos.Axis(c), true
}

func (t target) AttributeValue(name string) (Value, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

func TestFilterMatch(t *testing.T) {
	node := target{pos: &Point{X: 10, Y: 0.5}, attrs: map[string]Value{"kind": StringValue("pipe"), "depth": DoubleValue(3)}}
	bare := target{attrs: map[string]Value{"depth": StringValue("deep")}}

	cases := []struct {
		name string
		f    DataFilter
		t    FilterTarget
		want bool
	}{
		{"x greater", NodeFilter(CoordX, OpGreater, 5), node, true},
		{"y less equal", NodeFilter(CoordY, OpLessEqual, 0.5), node, true},
		{"z equal", NodeFilter(CoordZ, OpEqual, 1), node, false},
		{"no position", NodeFilter(CoordX, OpGreaterEqual, -100), bare, false},
		{"attr double", AttributeFilter("depth", OpGreaterEqual, 3), node, true},
		{"attr missing", AttributeFilter("width", OpLess, 100), node, false},
		{"attr coerced", AttributeFilter("depth", OpEqual, 0), bare, true},
		{"attr string", AttributeStringFilter("kind", "pipe"), node, true},
		{"attr string other", AttributeStringFilter("kind", "weir"), node, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Match(tc.t); got != tc.want {
				t.Fatalf("%s: got %v want %v", tc.f, got, tc.want)
			}
		})
	}
}

func TestFilterSetDiff(t *testing.T) {
	x5 := NodeFilter(CoordX, OpGreater, 5)
	y1 := NodeFilter(CoordY, OpLess, 1)
	z0 := AttributeFilter("z", OpEqual, 0)

	removed, added := FilterSetDiff([]DataFilter{x5, y1}, []DataFilter{NodeFilter(CoordY, OpLess, 1), z0})
	if diff := cmp.Diff([]DataFilter{x5}, removed, cmp.AllowUnexported(DataFilter{})); diff != "" {
		t.Fatalf("removed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]DataFilter{z0}, added, cmp.AllowUnexported(DataFilter{})); diff != "" {
		t.Fatalf("added (-want +got):\n%s", diff)
	}

	removed, added = FilterSetDiff([]DataFilter{x5}, []DataFilter{x5})
	if len(removed) != 0 || len(added) != 0 {
		t.Fatalf("identical sets must diff empty")
	}
}
