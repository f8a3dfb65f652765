package sentence

import "errors"

// ErrNoMatch is returned by FormatSet.Parse when a line matches none of the
// device's templates. On a multiplexed feed this is an expected, frequent
// condition (interleaved or corrupted sentences), not a fault.
var ErrNoMatch = errors.New("line matched no template")

// FormatSet is the ordered list of alternative compiled templates for one
// device type. Order is load-bearing: templates are tried in declared order
// and the first match wins, so device definitions encode precedence purely
// by listing the more specific sentence first. Immutable after construction
// and safe for concurrent Parse calls.
type FormatSet struct {
	templates []*Template
}

// NewFormatSet compiles the given format strings in order. Any compile error
// fails the whole set; a device with a malformed template is unusable.
func NewFormatSet(formats ...string) (*FormatSet, error) {
	if len(formats) == 0 {
		return nil, errors.New("format set needs at least one template")
	}
	s := &FormatSet{templates: make([]*Template, 0, len(formats))}
	for _, f := range formats {
		t, err := Compile(f)
		if err != nil {
			return nil, err
		}
		s.templates = append(s.templates, t)
	}
	return s, nil
}

// Parse tries each template in declared order against the line and returns
// the first successful record, or ErrNoMatch if none matched.
func (s *FormatSet) Parse(line string) (Record, error) {
	for _, t := range s.templates {
		if rec, ok := t.Match(line); ok {
			return rec, nil
		}
	}
	return Record{}, ErrNoMatch
}

// Templates returns the compiled templates in declared order.
func (s *FormatSet) Templates() []*Template { return s.templates }

// FieldNames returns the union of named captures across all templates, in
// first-appearance order. The catalog loader uses this to cross-check a
// device's field metadata.
func (s *FormatSet) FieldNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range s.templates {
		for _, name := range t.FieldNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
