package sentence

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldSpec is one placeholder in a template. Name is empty for anonymous
// skip captures such as {:s}, which consume input without appearing in the
// output record. Width, when non-zero, pins the capture to an exact number of
// characters instead of scanning to the next literal delimiter.
type FieldSpec struct {
	Name  string
	Tag   TypeTag
	Width int
}

// segment is either a literal to be matched verbatim or a capture slot.
// capture == nil marks a literal.
type segment struct {
	literal string
	capture *FieldSpec
}

// Template is a compiled format template: an ordered sequence of literal and
// capture segments. It is immutable after Compile and safe for concurrent
// use across any number of Match calls.
type Template struct {
	source   string
	segments []segment

	// checksumField names the trailing x capture when the template follows
	// the $...*hh convention; empty otherwise. checksum is the recompute
	// strategy, NMEAChecksum unless overridden.
	checksumField string
	checksum      ChecksumFunc
}

// CompileError describes a malformed template string. It surfaces at
// catalog-load time and makes the offending device entry unusable; it is
// never produced on the per-line parse path.
type CompileError struct {
	Format string
	Pos    int
	Reason string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("format %q: offset %d: %s", e.Format, e.Pos, e.Reason)
}

// Compile parses a format template into a reusable Template. Literal text is
// matched verbatim (doubled braces escape literal { and }); placeholders are
// {name:tag}, {name:Ntag} for a fixed width of N characters, or {:tag} for an
// anonymous skip. Compilation is pure: the same input always yields an
// equivalent Template.
func Compile(format string) (*Template, error) {
	t := &Template{source: format}
	seen := make(map[string]bool)

	var lit strings.Builder
	flushLiteral := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); {
		switch format[i] {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return nil, &CompileError{format, i, "unbalanced '{'"}
			}
			end += i
			spec, err := parseFieldSpec(format[i+1 : end])
			if err != nil {
				return nil, &CompileError{format, i, err.Error()}
			}
			if spec.Name != "" {
				if seen[spec.Name] {
					return nil, &CompileError{format, i, fmt.Sprintf("duplicate field name %q", spec.Name)}
				}
				seen[spec.Name] = true
			}
			// a delimiter-bounded capture cannot be followed directly by
			// another capture: its extent would be undecidable
			if n := len(t.segments); lit.Len() == 0 && n > 0 &&
				t.segments[n-1].capture != nil && t.segments[n-1].capture.Width == 0 {
				return nil, &CompileError{format, i, "adjacent captures without a delimiter"}
			}
			flushLiteral()
			t.segments = append(t.segments, segment{capture: spec})
			i = end + 1

		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, &CompileError{format, i, "unbalanced '}'"}

		default:
			lit.WriteByte(format[i])
			i++
		}
	}
	flushLiteral()

	t.detectChecksum()
	return t, nil
}

// MustCompile is Compile for templates known good at build time; it panics on
// a compile error. Intended for tests and fixed built-in formats.
func MustCompile(format string) *Template {
	t, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the template string this Template was compiled from.
func (t *Template) Source() string { return t.source }

// FieldNames returns the names of all named captures in template order.
func (t *Template) FieldNames() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.capture != nil && seg.capture.Name != "" {
			names = append(names, seg.capture.Name)
		}
	}
	return names
}

// parseFieldSpec parses the inside of a placeholder: "name:tag", "name:Ntag"
// or ":tag" for anonymous captures.
func parseFieldSpec(body string) (*FieldSpec, error) {
	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		return nil, fmt.Errorf("placeholder %q has no type tag", "{"+body+"}")
	}
	name := body[:colon]
	spec := body[colon+1:]
	if spec == "" {
		return nil, fmt.Errorf("placeholder %q has an empty type tag", "{"+body+"}")
	}

	width := 0
	digits := 0
	for digits < len(spec) && spec[digits] >= '0' && spec[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		w, err := strconv.Atoi(spec[:digits])
		if err != nil || w == 0 {
			return nil, fmt.Errorf("bad width in placeholder %q", "{"+body+"}")
		}
		width = w
		spec = spec[digits:]
	}

	tag, ok := tagsByName[spec]
	if !ok {
		return nil, fmt.Errorf("unknown type tag %q", spec)
	}
	return &FieldSpec{Name: name, Tag: tag, Width: width}, nil
}

// detectChecksum recognises the NMEA-style convention: a leading literal
// starting with '$', a final capture of type x, and a '*' literal immediately
// before it. Templates of that shape get checksum validation on match.
func (t *Template) detectChecksum() {
	n := len(t.segments)
	if n < 3 {
		return
	}
	last := t.segments[n-1].capture
	if last == nil || last.Tag != TagHex || last.Name == "" {
		return
	}
	star := t.segments[n-2]
	if star.capture != nil || !strings.HasSuffix(star.literal, "*") {
		return
	}
	head := t.segments[0]
	if head.capture != nil || !strings.HasPrefix(head.literal, "$") {
		return
	}
	t.checksumField = last.Name
	t.checksum = NMEAChecksum
}

// SetChecksum replaces the checksum recompute strategy for this template.
// It has no effect on templates that do not follow the $...*hh convention.
// Not safe to call concurrently with Match; configure at load time.
func (t *Template) SetChecksum(fn ChecksumFunc) {
	if t.checksumField != "" && fn != nil {
		t.checksum = fn
	}
}

// HasChecksum reports whether the template carries a trailing checksum
// capture subject to validation.
func (t *Template) HasChecksum() bool { return t.checksumField != "" }
