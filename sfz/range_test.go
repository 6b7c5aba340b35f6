package sfz

import "testing"

func TestRangeContainsExcludesEnd(t *testing.T) {
	r := NewRange(0.0, 0.5)
	if !r.Contains(0.49) {
		t.Fatalf("expected 0.49 inside [0, 0.5)")
	}
	if r.Contains(0.5) {
		t.Fatalf("expected 0.5 outside [0, 0.5)")
	}
	if !r.Contains(0.0) {
		t.Fatalf("expected start inside [0, 0.5)")
	}
}

func TestRangeContainsWithEndIncludesEnd(t *testing.T) {
	r := NewRange(0, 127)
	if !r.ContainsWithEnd(127) {
		t.Fatalf("expected 127 inside 0..127 inclusive")
	}
	if r.ContainsWithEnd(128) {
		t.Fatalf("expected 128 outside 0..127")
	}
	if r.ContainsWithEnd(-1) {
		t.Fatalf("expected -1 outside 0..127")
	}
}

func TestRangeValidity(t *testing.T) {
	if !NewRange(0.5, 0.5).IsValid() {
		t.Fatalf("expected single-point range to be valid")
	}
	r := NewRange(0.6, 0.4)
	if r.IsValid() {
		t.Fatalf("expected inverted range to be invalid")
	}
	if r.Contains(0.5) || r.ContainsWithEnd(0.5) {
		t.Fatalf("expected inverted range to contain nothing")
	}
}
