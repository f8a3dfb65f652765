package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/google/go-cmp/cmp"

	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
)

func floatFields(m map[string]float64) map[string]sentence.Value {
	out := make(map[string]sentence.Value, len(m))
	for k, v := range m {
		out[k] = sentence.Value{Kind: sentence.KindFloat, Float: v}
	}
	return out
}

func readFloats(t *testing.T, path, name string) []float64 {
	t.Helper()
	nc, err := netcdf.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer nc.Close()
	vr, err := nc.GetVariable(name)
	if err != nil {
		t.Fatalf("failed to read variable %s from %s: %v", name, path, err)
	}
	vals, ok := vr.Values.([]float64)
	if !ok {
		t.Fatalf("variable %s holds %T, want []float64", name, vr.Values)
	}
	return vals
}

func TestNetCDFWriterRoundTrip(t *testing.T) {
	filebase := filepath.Join(t.TempDir(), "archive")
	w, err := NewNetCDFWriter(filebase, "")
	if err != nil {
		t.Fatalf("NewNetCDFWriter: %v", err)
	}

	stamps := []time.Time{
		time.Date(2023, 8, 7, 12, 17, 38, 0, time.UTC),
		time.Date(2023, 8, 7, 12, 17, 39, 0, time.UTC),
		time.Date(2023, 8, 7, 12, 17, 40, 0, time.UTC),
	}
	f1 := []float64{4.26, 5.26, 6.26}
	f2 := []float64{121736.82, 121735.82, 121734.82}

	for i, ts := range stamps {
		err := w.WriteRecord(ts, floatFields(map[string]float64{"F1": f1[i], "F2": f2[i]}))
		if err != nil {
			t.Fatalf("WriteRecord %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filebase + "-2023-08-07.nc"
	wantTimes := []float64{1691410658, 1691410659, 1691410660}
	if diff := cmp.Diff(wantTimes, readFloats(t, path, "time")); diff != "" {
		t.Errorf("time variable mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f1, readFloats(t, path, "F1")); diff != "" {
		t.Errorf("F1 variable mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f2, readFloats(t, path, "F2")); diff != "" {
		t.Errorf("F2 variable mismatch (-want +got):\n%s", diff)
	}
}

func TestNetCDFWriterDailyRollover(t *testing.T) {
	filebase := filepath.Join(t.TempDir(), "archive")
	w, err := NewNetCDFWriter(filebase, "")
	if err != nil {
		t.Fatalf("NewNetCDFWriter: %v", err)
	}

	day1 := time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 8, 0, 1, 0, 0, time.UTC)

	if err := w.WriteRecord(day1, floatFields(map[string]float64{"Depth": 104.2})); err != nil {
		t.Fatalf("WriteRecord day1: %v", err)
	}
	// the first day's file is written when the datestamp rolls over
	if err := w.WriteRecord(day2, floatFields(map[string]float64{"Depth": 98.7})); err != nil {
		t.Fatalf("WriteRecord day2: %v", err)
	}
	if _, err := os.Stat(filebase + "-2024-03-07.nc"); err != nil {
		t.Errorf("first day file missing after rollover: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	first := readFloats(t, filebase+"-2024-03-07.nc", "Depth")
	if diff := cmp.Diff([]float64{104.2}, first); diff != "" {
		t.Errorf("first day Depth mismatch (-want +got):\n%s", diff)
	}
	second := readFloats(t, filebase+"-2024-03-08.nc", "Depth")
	if diff := cmp.Diff([]float64{98.7}, second); diff != "" {
		t.Errorf("second day Depth mismatch (-want +got):\n%s", diff)
	}
}

func TestNetCDFWriterHourlyRollover(t *testing.T) {
	filebase := filepath.Join(t.TempDir(), "archive")
	w, err := NewNetCDFWriter(filebase, HourlyRollover)
	if err != nil {
		t.Fatalf("NewNetCDFWriter: %v", err)
	}

	hours := []time.Time{
		time.Date(2023, 8, 7, 12, 17, 38, 0, time.UTC),
		time.Date(2023, 8, 7, 13, 7, 39, 0, time.UTC),
	}
	for i, ts := range hours {
		if err := w.WriteRecord(ts, floatFields(map[string]float64{"F1": float64(i)})); err != nil {
			t.Fatalf("WriteRecord %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, suffix := range []string{"-2023-08-07_1200.nc", "-2023-08-07_1300.nc"} {
		if _, err := os.Stat(filebase + suffix); err != nil {
			t.Errorf("hourly file %s missing: %v", suffix, err)
		}
	}
}

func TestNetCDFWriterStringAndAbsentFields(t *testing.T) {
	filebase := filepath.Join(t.TempDir(), "archive")
	w, err := NewNetCDFWriter(filebase, "")
	if err != nil {
		t.Fatalf("NewNetCDFWriter: %v", err)
	}

	ts := time.Date(2024, 3, 7, 14, 22, 5, 0, time.UTC)
	fields := map[string]sentence.Value{
		"Depth":   {Kind: sentence.KindFloat, Float: 104.2},
		"Status":  {Kind: sentence.KindString, Str: "A"},
		"LFValid": sentence.Absent,
	}
	if err := w.WriteRecord(ts, fields); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filebase + "-2024-03-07.nc"
	nc, err := netcdf.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer nc.Close()

	vr, err := nc.GetVariable("Status")
	if err != nil {
		t.Fatalf("failed to read Status: %v", err)
	}
	status, ok := vr.Values.([]string)
	if !ok {
		t.Fatalf("Status holds %T, want []string", vr.Values)
	}
	if diff := cmp.Diff([]string{"A"}, status); diff != "" {
		t.Errorf("Status mismatch (-want +got):\n%s", diff)
	}

	// absent optionals contribute no value to any column
	if _, err := nc.GetVariable("LFValid"); err == nil {
		t.Error("absent field produced a variable")
	}
}

func TestNetCDFWriterRequiresFilebase(t *testing.T) {
	if _, err := NewNetCDFWriter("", ""); err == nil {
		t.Error("NewNetCDFWriter(\"\", \"\") succeeded, want error")
	}
}

func TestNetCDFWriterCloseWithoutRecords(t *testing.T) {
	w, err := NewNetCDFWriter(filepath.Join(t.TempDir(), "archive"), "")
	if err != nil {
		t.Fatalf("NewNetCDFWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close on empty writer: %v", err)
	}
}
