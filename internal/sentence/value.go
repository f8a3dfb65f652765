// Package sentence implements the format-template parsing engine that turns
// raw ASCII telemetry lines from instruments into typed field records. A
// device's output is described declaratively by one or more format templates
// (literal delimiters mixed with named, typed placeholders); the package
// compiles each template once and applies it to incoming lines on the hot
// ingestion path.
package sentence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TypeTag identifies the coercion applied to a captured substring. The
// vocabulary is closed: device definitions only ever use these tags.
type TypeTag int

const (
	TagInt      TypeTag = iota // d: base-10 signed integer
	TagFloat                   // f: decimal float
	TagNumber                  // g: float if '.' or exponent present, else integer
	TagHex                     // x: base-16 unsigned integer
	TagString                  // s: delimited text, also the anonymous skip
	TagWord                    // w: whitespace/delimiter-bounded token
	TagCode                    // nc: token up to the next literal delimiter
	TagOptFloat                // of: float, zero width allowed
	TagOptInt                  // od: integer, zero width allowed
	TagTime                    // ti: yyyy-mm-ddThh:mm:ss.sss timestamp
)

var tagsByName = map[string]TypeTag{
	"d":  TagInt,
	"f":  TagFloat,
	"g":  TagNumber,
	"x":  TagHex,
	"s":  TagString,
	"w":  TagWord,
	"nc": TagCode,
	"of": TagOptFloat,
	"od": TagOptInt,
	"ti": TagTime,
}

func (t TypeTag) String() string {
	for name, tag := range tagsByName {
		if tag == t {
			return name
		}
	}
	return fmt.Sprintf("TypeTag(%d)", int(t))
}

// Optional reports whether a zero-width capture is valid for this tag. A
// zero-width capture of any other tag is a non-match for the whole template.
func (t TypeTag) Optional() bool {
	return t == TagOptFloat || t == TagOptInt
}

// Kind discriminates the variants of Value.
type Kind int

const (
	KindAbsent Kind = iota // optional capture with zero width
	KindInt
	KindUint
	KindFloat
	KindString
	KindTime
)

// Value is one typed field extracted from a line. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Time  time.Time
}

func intValue(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func uintValue(v uint64) Value    { return Value{Kind: KindUint, Uint: v} }
func floatValue(v float64) Value  { return Value{Kind: KindFloat, Float: v} }
func stringValue(v string) Value  { return Value{Kind: KindString, Str: v} }
func timeValue(v time.Time) Value { return Value{Kind: KindTime, Time: v} }

// Absent is the value of an optional capture that matched zero width.
var Absent = Value{Kind: KindAbsent}

// Numeric returns the value as a float64 where that makes sense (integer,
// unsigned and float kinds). Downstream consumers such as the max/min
// transform only care about numeric fields.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindUint:
		return float64(v.Uint), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.Kind {
	case KindAbsent:
		return "<absent>"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindUint:
		return fmt.Sprintf("0x%X", v.Uint)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindTime:
		return v.Time.Format(timeLayout)
	}
	return fmt.Sprintf("Value(kind=%d)", int(v.Kind))
}

// timeLayout is the fixed shape accepted by the ti tag.
const timeLayout = "2006-01-02T15:04:05.000"

// coerce converts a raw captured substring into a typed value according to
// the tag. The caller has already handled zero-width captures, so raw is
// non-empty here. An error means this template attempt fails; the resolver
// falls through to the next candidate.
func coerce(tag TypeTag, raw string) (Value, error) {
	switch tag {
	case TagInt, TagOptInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not an integer: %q", raw)
		}
		return intValue(n), nil

	case TagFloat, TagOptFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not a float: %q", raw)
		}
		return floatValue(f), nil

	case TagNumber:
		if strings.ContainsAny(raw, ".eE") {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Value{}, fmt.Errorf("not a number: %q", raw)
			}
			return floatValue(f), nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not a number: %q", raw)
		}
		return intValue(n), nil

	case TagHex:
		u, err := strconv.ParseUint(raw, 16, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not a hex integer: %q", raw)
		}
		return uintValue(u), nil

	case TagString, TagWord, TagCode:
		return stringValue(raw), nil

	case TagTime:
		ts, err := time.Parse(timeLayout, raw)
		if err != nil {
			return Value{}, fmt.Errorf("not a timestamp: %q", raw)
		}
		return timeValue(ts), nil
	}
	return Value{}, fmt.Errorf("unknown type tag %v", tag)
}
