// Package transform derives secondary observations from parsed records.
package transform

import (
	"sync"

	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
)

// MaxMin tracks the running maximum and minimum of every numeric field it
// sees and reports only newly exceeded bounds. The first observation of a
// field establishes both its max and min. Non-numeric fields (strings,
// timestamps, absent optionals) are ignored.
//
// Unlike the parsing core this is stateful, so it is mutex-guarded for use
// by concurrent subscribers.
type MaxMin struct {
	mu  sync.Mutex
	max map[string]float64
	min map[string]float64
}

// NewMaxMin returns an empty bounds tracker.
func NewMaxMin() *MaxMin {
	return &MaxMin{
		max: make(map[string]float64),
		min: make(map[string]float64),
	}
}

// Update feeds one record's fields through the tracker. The result maps
// colon-suffixed field names (Depth:max, Depth:min) to the new bound values;
// it is nil when no bound moved.
func (t *MaxMin) Update(fields map[string]sentence.Value) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed map[string]float64
	emit := func(name string, v float64) {
		if changed == nil {
			changed = make(map[string]float64)
		}
		changed[name] = v
	}

	for field, v := range fields {
		n, ok := v.Numeric()
		if !ok {
			continue
		}
		if cur, seen := t.max[field]; !seen || n > cur {
			t.max[field] = n
			emit(field+":max", n)
		}
		if cur, seen := t.min[field]; !seen || n < cur {
			t.min[field] = n
			emit(field+":min", n)
		}
	}
	return changed
}
