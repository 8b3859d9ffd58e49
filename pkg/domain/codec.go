package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Binary layout (big-endian, stable across versions):
//
//	Value       = type:uint8 payload
//	DOUBLE      = float64
//	STRING      = str
//	DOUBLEVECTOR= n:uint32 float64*n
//	STRINGVECTOR= n:uint32 str*n
//	TIMESERIES  = n:uint32 (timestamp:str value:float64)*n
//	LINK        = n:uint32 (uuid:str view:str)*n
//	str         = len:uint32 utf8-bytes
//
// NOTYPE has an empty payload.

// MarshalBinary encodes the discriminant followed by the payload.
func (v Value) MarshalBinary() ([]byte, error) {
	payload, err := EncodePayload(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(v.typ))
	return append(out, payload...), nil
}

// UnmarshalBinary decodes a buffer produced by MarshalBinary.
func (v *Value) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrCorruptEncoding)
	}
	decoded, err := DecodePayload(AttributeType(data[0]), data[1:])
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// EncodePayload encodes only the payload of v; the discriminant is stored elsewhere.
func EncodePayload(v Value) ([]byte, error) {
	var w encoder
	switch v.typ {
	case TypeNone:
	case TypeDouble:
		w.float(v.Double())
	case TypeString:
		w.str(v.String())
	case TypeDoubleVector:
		d := v.DoubleVector()
		w.count(len(d))
		for _, f := range d {
			w.float(f)
		}
	case TypeStringVector:
		s := v.StringVector()
		w.count(len(s))
		for _, item := range s {
			w.str(item)
		}
	case TypeTimeSeries:
		ts := v.TimeSeries()
		w.count(ts.Len())
		for i := range ts.Timestamps {
			w.str(ts.Timestamps[i])
			w.float(ts.Values[i])
		}
	case TypeLink:
		links := v.Links()
		w.count(len(links))
		for _, l := range links {
			w.str(l.UUID)
			w.str(l.View)
		}
	default:
		return nil, fmt.Errorf("%w: unknown attribute type %d", ErrCorruptEncoding, v.typ)
	}
	return w.buf, nil
}

// DecodePayload decodes a payload of type t. The whole buffer must be consumed.
func DecodePayload(t AttributeType, data []byte) (Value, error) {
	r := decoder{buf: data}
	var out Value
	switch t {
	case TypeNone:
	case TypeDouble:
		out = DoubleValue(r.float())
	case TypeString:
		out = StringValue(r.str())
	case TypeDoubleVector:
		n := r.count(8)
		d := make([]float64, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			d = append(d, r.float())
		}
		out = Value{typ: TypeDoubleVector, payload: d}
	case TypeStringVector:
		n := r.count(4)
		s := make([]string, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			s = append(s, r.str())
		}
		out = Value{typ: TypeStringVector, payload: s}
	case TypeTimeSeries:
		n := r.count(12)
		ts := TimeSeries{Timestamps: make([]string, 0, n), Values: make([]float64, 0, n)}
		for i := 0; i < n && r.err == nil; i++ {
			ts.Timestamps = append(ts.Timestamps, r.str())
			ts.Values = append(ts.Values, r.float())
		}
		out = Value{typ: TypeTimeSeries, payload: ts}
	case TypeLink:
		n := r.count(8)
		links := make([]Link, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			uuid := r.str()
			view := r.str()
			links = append(links, Link{UUID: uuid, View: view})
		}
		out = Value{typ: TypeLink, payload: links}
	default:
		return Value{}, fmt.Errorf("%w: unknown attribute type %d", ErrCorruptEncoding, t)
	}
	if r.err != nil {
		return Value{}, r.err
	}
	if r.off != len(r.buf) {
		return Value{}, fmt.Errorf("%w: %d trailing bytes after %s payload", ErrCorruptEncoding, len(r.buf)-r.off, t)
	}
	return out, nil
}

type encoder struct{ buf []byte }

func (w *encoder) count(n int) { w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(n)) }

func (w *encoder) float(f float64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(f))
}

func (w *encoder) str(s string) {
	w.count(len(s))
	w.buf = append(w.buf, s...)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (r *decoder) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrCorruptEncoding, n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// count reads an element count and rejects counts that cannot fit in the
// remaining buffer given the minimum encoded element size.
func (r *decoder) count(minElem int) int {
	b := r.take(4)
	if b == nil {
		return 0
	}
	n := int(binary.BigEndian.Uint32(b))
	if minElem > 0 && n > (len(r.buf)-r.off)/minElem {
		r.err = fmt.Errorf("%w: element count %d exceeds buffer", ErrCorruptEncoding, n)
		return 0
	}
	return n
}

func (r *decoder) float() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *decoder) str() string {
	b := r.take(4)
	if b == nil {
		return ""
	}
	return string(r.take(int(binary.BigEndian.Uint32(b))))
}
