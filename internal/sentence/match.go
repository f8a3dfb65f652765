package sentence

import "strings"

// Record is the outcome of successfully matching one line against one
// template: a mapping from capture name to typed value. Each Match call
// returns a fresh Record owned entirely by the caller.
type Record struct {
	Fields map[string]Value

	// ChecksumValid is set only when the matching template carries a
	// checksum capture: true when the recomputed checksum agrees with the
	// parsed value. A mismatch does not fail the parse; downstream
	// consumers decide whether to reject the record.
	ChecksumValid *bool
}

// Match applies the compiled template to one raw line. It returns the
// extracted record and true on a match, or a zero Record and false otherwise.
// Matching is by prefix agreement: input beyond the final segment is
// tolerated, so sentences with undocumented trailing fields still parse.
// A failed literal or coercion is an ordinary non-match, never an error.
func (t *Template) Match(line string) (Record, bool) {
	fields := make(map[string]Value)
	pos := 0
	starPos := -1

	for i, seg := range t.segments {
		if seg.capture == nil {
			if !strings.HasPrefix(line[pos:], seg.literal) {
				return Record{}, false
			}
			pos += len(seg.literal)
			if i == len(t.segments)-2 && t.checksumField != "" {
				// the '*' delimiter immediately before the checksum capture
				starPos = pos - 1
			}
			continue
		}

		spec := seg.capture
		var raw string
		switch {
		case spec.Width > 0:
			if len(line)-pos < spec.Width {
				return Record{}, false
			}
			raw = line[pos : pos+spec.Width]
			pos += spec.Width

		case i+1 < len(t.segments):
			// extent runs to the nearest occurrence of the next literal
			delim := t.segments[i+1].literal
			j := strings.Index(line[pos:], delim)
			if j < 0 {
				return Record{}, false
			}
			raw = line[pos : pos+j]
			if spec.Tag == TagWord {
				// a w capture ends at the first whitespace even when the
				// delimiter lies beyond it; the literal must then match at
				// the whitespace, so "abc def," never satisfies {X:w},
				raw = trimAtSpace(raw)
			}
			pos += len(raw)

		default:
			// final segment: consume the rest of the line
			raw = line[pos:]
			if spec.Tag == TagWord {
				raw = trimAtSpace(raw)
			}
			pos += len(raw)
		}

		if raw == "" {
			if !spec.Tag.Optional() {
				return Record{}, false
			}
			if spec.Name != "" {
				fields[spec.Name] = Absent
			}
			continue
		}

		v, err := coerce(spec.Tag, raw)
		if err != nil {
			return Record{}, false
		}
		if spec.Name != "" {
			fields[spec.Name] = v
		}
	}

	rec := Record{Fields: fields}
	if t.checksumField != "" && starPos > 0 {
		want := fields[t.checksumField].Uint
		valid := t.checksum(line[1:starPos]) == want
		rec.ChecksumValid = &valid
	}
	return rec, true
}

// trimAtSpace bounds a w capture at the first whitespace character; the
// remainder is left for the following literal to consume.
func trimAtSpace(raw string) string {
	if k := strings.IndexAny(raw, " \t"); k >= 0 {
		return raw[:k]
	}
	return raw
}
