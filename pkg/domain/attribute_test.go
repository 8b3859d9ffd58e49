package domain

import (
	"errors"
	"testing"
)

func TestGettersCoerceOnTypeMismatch(t *testing.T) {
	v := StringValue("text")
	if v.Double() != 0 {
		t.Fatalf("expected 0 for string read as double")
	}
	if got := v.DoubleVector(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil vector, got %v", got)
	}
	if got := v.Links(); len(got) != 0 {
		t.Fatalf("expected no links, got %v", got)
	}
	if got := v.TimeSeries(); got.Len() != 0 {
		t.Fatalf("expected empty series")
	}
	d := DoubleValue(7)
	if d.String() != "" {
		t.Fatalf("expected empty string for double read as string")
	}
	if (Link{}) != d.Link() {
		t.Fatalf("expected zero link")
	}
}

func TestSettersReplacePayload(t *testing.T) {
	var v Value
	v.SetDouble(1)
	v.SetString("s")
	if v.Type() != TypeString || v.Double() != 0 || v.String() != "s" {
		t.Fatalf("unexpected state after SetString: %v", v.Type())
	}
	v.SetType(TypeDoubleVector)
	if v.Type() != TypeDoubleVector || len(v.DoubleVector()) != 0 {
		t.Fatalf("SetType must reset to zero payload")
	}
	v.AddLink("junctions", "id-1")
	v.AddLink("junctions", "id-2")
	if v.Type() != TypeLink || len(v.Links()) != 2 || v.Link().UUID != "id-1" {
		t.Fatalf("AddLink failed: %+v", v.Links())
	}
	v.Free()
	if !v.IsNone() {
		t.Fatalf("Free must reset to none")
	}
}

func TestSetTimeSeriesRejectsLengthMismatch(t *testing.T) {
	v := DoubleValue(4)
	err := v.SetTimeSeries([]string{"a", "b"}, []float64{1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
	if v.Type() != TypeDouble || v.Double() != 4 {
		t.Fatalf("value must be unchanged after rejected series")
	}
}

func TestValuesNeverAliasPayload(t *testing.T) {
	src := []float64{1, 2, 3}
	v := DoubleVectorValue(src)
	src[0] = 99
	if v.DoubleVector()[0] != 1 {
		t.Fatalf("constructor must copy input")
	}
	out := v.DoubleVector()
	out[1] = 42
	if v.DoubleVector()[1] != 2 {
		t.Fatalf("getter must return a copy")
	}
	w := v
	w.SetDoubleVector([]float64{5})
	if len(v.DoubleVector()) != 3 {
		t.Fatalf("assignment must not share payload")
	}
}

func TestAttributeCloneIsDetached(t *testing.T) {
	a := NewAttribute("depth", DoubleValue(2))
	a.Bind("owner-1")
	a.MarkPersisted()
	c := a.Clone()
	if c.Owner() != "" || c.Persisted() {
		t.Fatalf("clone must be detached and unpersisted")
	}
	c.SetDouble(5)
	if a.Double() != 2 {
		t.Fatalf("clone mutation leaked into original")
	}
	if c.Name() != "depth" {
		t.Fatalf("clone must keep name")
	}
}

func TestAttributeTypeNames(t *testing.T) {
	want := []string{"NOTYPE", "DOUBLE", "STRING", "TIMESERIES", "LINK", "DOUBLEVECTOR", "STRINGVECTOR"}
	for i, name := range want {
		if got := AttributeType(i).String(); got != name {
			t.Fatalf("type %d: expected %s, got %s", i, name, got)
		}
		if back, ok := ParseAttributeType(name); !ok || back != AttributeType(i) {
			t.Fatalf("parse %s: got %v %v", name, back, ok)
		}
	}
	if _, ok := ParseAttributeType("double"); ok {
		t.Fatalf("type names are case sensitive")
	}
	if AttributeType(99).Valid() {
		t.Fatalf("99 must not be valid")
	}
}
