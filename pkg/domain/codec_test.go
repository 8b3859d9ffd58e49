package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleValues(t *testing.T) map[string]Value {
	t.Helper()
	ts, err := TimeSeriesValue([]string{"2024-01-01T00:00:00Z", "2024-01-01T01:00:00Z"}, []float64{1.5, -2})
	if err != nil {
		t.Fatalf("time series: %v", err)
	}
	return map[string]Value{
		"none":          {},
		"double":        DoubleValue(3.25),
		"double nan":    DoubleValue(math.NaN()),
		"string":        StringValue("héllo"),
		"empty string":  StringValue(""),
		"double vector": DoubleVectorValue([]float64{1, 2, math.Inf(-1)}),
		"string vector": StringVectorValue([]string{"a", "", "ccc"}),
		"empty vector":  StringVectorValue(nil),
		"links":         LinksValue([]Link{{UUID: "u1", View: "conduits"}, {UUID: "u2", View: "junctions"}}),
		"time series":   ts,
		"zero series":   ZeroValue(TypeTimeSeries),
	}
}

func TestValueBinaryRoundTrip(t *testing.T) {
	for name, v := range sampleValues(t) {
		t.Run(name, func(t *testing.T) {
			data, err := v.MarshalBinary()
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if AttributeType(data[0]) != v.Type() {
				t.Fatalf("expected tag %d, got %d", v.Type(), data[0])
			}
			var got Value
			if err := got.UnmarshalBinary(data); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !got.Equal(v) {
				t.Fatalf("round trip mismatch: %v != %v", got.Type(), v.Type())
			}
		})
	}
}

func TestEncodePayloadLayout(t *testing.T) {
	payload, err := EncodePayload(StringVectorValue([]string{"ab", "c"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		0, 0, 0, 2,
		0, 0, 0, 2, 'a', 'b',
		0, 0, 0, 1, 'c',
	}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}

	payload, err = EncodePayload(LinksValue([]Link{{UUID: "x", View: "v"}}))
	if err != nil {
		t.Fatalf("encode links: %v", err)
	}
	want = []byte{0, 0, 0, 1, 0, 0, 0, 1, 'x', 0, 0, 0, 1, 'v'}
	if diff := cmp.Diff(want, payload); diff != "" {
		t.Fatalf("link layout mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	good, err := StringValue("abc").MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	cases := map[string][]byte{
		"empty":        {},
		"unknown tag":  {42},
		"truncated":    good[:len(good)-1],
		"trailing":     append(append([]byte{}, good...), 0),
		"short double": {byte(TypeDouble), 1, 2},
		"huge count":   {byte(TypeDoubleVector), 0xff, 0xff, 0xff, 0xff},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var v Value
			err := v.UnmarshalBinary(data)
			if !errors.Is(err, ErrCorruptEncoding) {
				t.Fatalf("expected ErrCorruptEncoding, got %v", err)
			}
			if !v.IsNone() {
				t.Fatalf("value must stay untouched on error")
			}
		})
	}
}
