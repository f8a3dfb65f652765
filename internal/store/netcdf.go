package store

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"

	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
)

// Rollover layouts for NetCDF archive filenames. The datestamp is taken from
// each record's timestamp, so a new file starts when records cross the
// boundary, not when the wall clock does.
const (
	DailyRollover  = "2006-01-02"
	HourlyRollover = "2006-01-02_1500"
)

// NetCDFWriter archives parsed records as NetCDF classic files named
// <filebase>-<datestamp>.nc. Each file carries a time variable (Unix seconds)
// plus one variable per field; numeric fields are stored as float64, all
// other kinds as their string form. Records are buffered in memory and
// written out when the datestamp rolls over or on Close.
type NetCDFWriter struct {
	mu       sync.Mutex
	filebase string
	rollover string

	stamp   string
	times   []float64
	numeric map[string][]float64
	text    map[string][]string
	order   []string
}

// NewNetCDFWriter creates a writer for the given filebase. An empty rollover
// layout selects daily files.
func NewNetCDFWriter(filebase, rollover string) (*NetCDFWriter, error) {
	if filebase == "" {
		return nil, fmt.Errorf("netcdf writer requires a filebase")
	}
	if rollover == "" {
		rollover = DailyRollover
	}
	w := &NetCDFWriter{
		filebase: filebase,
		rollover: rollover,
	}
	w.resetBuffers()
	return w, nil
}

func (w *NetCDFWriter) resetBuffers() {
	w.times = nil
	w.numeric = make(map[string][]float64)
	w.text = make(map[string][]string)
	w.order = nil
}

// WriteRecord buffers one record under its timestamp, flushing the previous
// file first if the timestamp's datestamp has rolled over.
func (w *NetCDFWriter) WriteRecord(ts time.Time, fields map[string]sentence.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	stamp := ts.UTC().Format(w.rollover)
	if stamp != w.stamp {
		if len(w.times) > 0 {
			if err := w.flushLocked(); err != nil {
				return err
			}
		}
		w.stamp = stamp
	}

	w.times = append(w.times, float64(ts.UnixNano())/float64(time.Second))

	// map order is random; sort so columns fill deterministically
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := fields[name]
		if v.Kind == sentence.KindAbsent {
			continue
		}
		// a column's type is fixed by the first value it receives; a later
		// non-numeric value in a numeric column records as NaN
		switch {
		case w.text[name] != nil:
			w.text[name] = append(w.text[name], v.String())
		case w.numeric[name] != nil:
			n, ok := v.Numeric()
			if !ok {
				n = math.NaN()
			}
			w.numeric[name] = append(w.numeric[name], n)
		default:
			w.order = append(w.order, name)
			if n, ok := v.Numeric(); ok {
				w.numeric[name] = append(w.numeric[name], n)
			} else {
				w.text[name] = append(w.text[name], v.String())
			}
		}
	}
	return nil
}

// flushLocked writes the buffered rows to <filebase>-<stamp>.nc and clears
// the buffers. Caller holds the mutex.
func (w *NetCDFWriter) flushLocked() error {
	name := fmt.Sprintf("%s-%s.nc", w.filebase, w.stamp)
	cw, err := cdf.OpenWriter(name)
	if err != nil {
		return fmt.Errorf("failed to create netcdf file %s: %w", name, err)
	}

	if err := cw.AddVar("time", api.Variable{
		Values:     w.times,
		Dimensions: []string{"time"},
	}); err != nil {
		cw.Close()
		return fmt.Errorf("failed to write time variable: %w", err)
	}

	// each field gets its own dimension: columns may have different lengths
	// when a field is absent from some records
	for _, field := range w.order {
		var v api.Variable
		if vals, ok := w.numeric[field]; ok {
			v = api.Variable{Values: vals, Dimensions: []string{field}}
		} else {
			v = api.Variable{Values: w.text[field], Dimensions: []string{field}}
		}
		if err := cw.AddVar(field, v); err != nil {
			cw.Close()
			return fmt.Errorf("failed to write variable %s: %w", field, err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to close netcdf file %s: %w", name, err)
	}
	w.resetBuffers()
	return nil
}

// Close flushes any buffered records to their file.
func (w *NetCDFWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.times) == 0 {
		return nil
	}
	return w.flushLocked()
}
