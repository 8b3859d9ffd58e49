package domain

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format renders the payload whatever its type, so %v, %s and loggers that
// format with fmt show the value. String stays the coercing getter and yields
// "" for non-string values; pass a Value itself, not v.String(), to a logger
// that prefers fmt.Stringer.
func (v Value) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v', 's':
		if f.Flag('#') {
			fmt.Fprintf(f, "domain.Value{%s: %s}", v.typ, v.render())
			return
		}
		io.WriteString(f, v.render())
	case 'q':
		fmt.Fprintf(f, "%q", v.render())
	default:
		fmt.Fprintf(f, "%%!%c(domain.Value=%s)", verb, v.render())
	}
}

func (v Value) render() string {
	switch v.typ {
	case TypeDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case TypeString:
		return v.String()
	case TypeTimeSeries:
		ts := v.TimeSeries()
		parts := make([]string, ts.Len())
		for i := range parts {
			parts[i] = ts.Timestamps[i] + "=" + strconv.FormatFloat(ts.Values[i], 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case TypeLink:
		links := v.Links()
		parts := make([]string, len(links))
		for i, l := range links {
			parts[i] = l.View + "/" + l.UUID
		}
		return "[" + strings.Join(parts, " ") + "]"
	case TypeDoubleVector:
		return fmt.Sprint(v.DoubleVector())
	case TypeStringVector:
		return fmt.Sprint(v.StringVector())
	default:
		return "<none>"
	}
}

// Format renders name=value; see Value.Format.
func (a *Attribute) Format(f fmt.State, verb rune) {
	if a == nil {
		io.WriteString(f, "<nil>")
		return
	}
	switch verb {
	case 'v', 's':
		io.WriteString(f, a.name+"="+a.value.render())
	default:
		a.value.Format(f, verb)
	}
}
