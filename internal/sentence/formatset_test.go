package sentence

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func gyrocompassSet(t *testing.T) *FormatSet {
	t.Helper()
	set, err := NewFormatSet(
		"$HEHDT,{HeadingTrue:f},T*{Checksum:x}",
		"$HEROT,{RateOfTurn:f},A*{Checksum:x}",
	)
	if err != nil {
		t.Fatalf("NewFormatSet: %v", err)
	}
	return set
}

func TestParseSelectsMatchingTemplate(t *testing.T) {
	set := gyrocompassSet(t)

	rec, err := set.Parse("$HEHDT,123.4,T*1A")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := rec.Fields["HeadingTrue"]; !ok {
		t.Error("HeadingTrue missing: line matched the wrong template")
	}
	if _, ok := rec.Fields["RateOfTurn"]; ok {
		t.Error("RateOfTurn present: line matched the wrong template")
	}
	if got := rec.Fields["Checksum"].Uint; got != 0x1A {
		t.Errorf("Checksum = %#x, want 0x1A", got)
	}

	rec, err = set.Parse("$HEROT,-2.1,A*05")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := rec.Fields["RateOfTurn"].Float; got != -2.1 {
		t.Errorf("RateOfTurn = %v, want -2.1", got)
	}
}

func TestParseFirstMatchWins(t *testing.T) {
	// both templates can structurally match the same line; declared order
	// decides, never a specificity heuristic
	set, err := NewFormatSet(
		"$WIMWV,{WindAngle:f},{Reference:w}",
		"$WIMWV,{Angle:f},{Ref:nc}",
	)
	if err != nil {
		t.Fatalf("NewFormatSet: %v", err)
	}
	rec, err := set.Parse("$WIMWV,47.5,R")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := rec.Fields["WindAngle"]; !ok {
		t.Error("first declared template did not win")
	}
}

func TestParseNoMatch(t *testing.T) {
	set := gyrocompassSet(t)

	rec, err := set.Parse("$GPGGA,120000,4124.89,N")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("Parse error = %v, want ErrNoMatch", err)
	}
	if rec.Fields != nil {
		t.Errorf("NoMatch left a partial record: %v", rec.Fields)
	}

	// repeated evaluation of a non-matching line stays cheap and pure
	for i := 0; i < 3; i++ {
		if _, err := set.Parse("garbage line"); !errors.Is(err, ErrNoMatch) {
			t.Fatalf("Parse error = %v, want ErrNoMatch", err)
		}
	}
}

func TestNewFormatSetRejectsBadTemplate(t *testing.T) {
	_, err := NewFormatSet("$HEHDT,{HeadingTrue:f},T*{Checksum:x}", "$BAD,{X:q}")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("NewFormatSet error = %v, want *CompileError", err)
	}
}

func TestNewFormatSetRequiresTemplates(t *testing.T) {
	if _, err := NewFormatSet(); err == nil {
		t.Error("NewFormatSet() with no formats succeeded")
	}
}

func TestFormatSetFieldNames(t *testing.T) {
	set := gyrocompassSet(t)
	want := []string{"HeadingTrue", "Checksum", "RateOfTurn"}
	if diff := cmp.Diff(want, set.FieldNames()); diff != "" {
		t.Errorf("FieldNames mismatch (-want +got):\n%s", diff)
	}
}
