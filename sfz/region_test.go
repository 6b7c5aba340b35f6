package sfz

import (
	"strings"
	"testing"
)

func TestNewRegionDefaults(t *testing.T) {
	r := NewRegion()
	if r.KeyRange.Start != 0 || r.KeyRange.End != 127 {
		t.Fatalf("expected full key range, got %d..%d", r.KeyRange.Start, r.KeyRange.End)
	}
	if r.Trigger != TriggerAttack {
		t.Fatalf("expected attack trigger, got %v", r.Trigger)
	}
	if !r.TriggerOnNote || r.TriggerOnCC {
		t.Fatalf("expected note triggering only by default")
	}
	if r.SequenceLength != 1 || r.SequencePosition != 1 {
		t.Fatalf("expected trivial sequence, got %d/%d", r.SequencePosition, r.SequenceLength)
	}
	if r.SustainCC != DefaultSustainCC || r.SostenutoCC != DefaultSostenutoCC {
		t.Fatalf("expected pedal controllers %d and %d, got %d and %d",
			DefaultSustainCC, DefaultSostenutoCC, r.SustainCC, r.SostenutoCC)
	}
	if r.KeyswitchLast != NoKeyswitch || r.KeyswitchPrevious != NoKeyswitch {
		t.Fatalf("expected no keyswitches by default")
	}
	if r.BPMRange.Start != 0 || r.BPMRange.End != 500 {
		t.Fatalf("expected tempo range 0..500, got %g..%g", r.BPMRange.Start, r.BPMRange.End)
	}
}

func TestDeriveSwitches(t *testing.T) {
	r := NewRegion()
	r.DeriveSwitches()
	if r.UsesKeySwitches || r.UsesPreviousKeySwitches || r.UsesSequenceSwitches {
		t.Fatalf("expected no switch usage on a default region")
	}

	r = NewRegion()
	r.KeyswitchLast = 36
	r.DeriveSwitches()
	if !r.UsesKeySwitches {
		t.Fatalf("expected key switch usage with sw_last set")
	}

	r = NewRegion()
	r.KeyswitchDown = 37
	r.DeriveSwitches()
	if !r.UsesKeySwitches {
		t.Fatalf("expected key switch usage with sw_down set")
	}

	r = NewRegion()
	r.KeyswitchPrevious = 38
	r.DeriveSwitches()
	if r.UsesKeySwitches {
		t.Fatalf("expected sw_previous not to count as a key switch")
	}
	if !r.UsesPreviousKeySwitches {
		t.Fatalf("expected previous key switch usage with sw_previous set")
	}

	r = NewRegion()
	r.SequenceLength = 3
	r.DeriveSwitches()
	if !r.UsesSequenceSwitches {
		t.Fatalf("expected sequence switch usage with seq_length > 1")
	}
}

func TestDeriveSwitchesEnablesCCTriggering(t *testing.T) {
	r := NewRegion()
	r.CCTriggers = CCTriggers{64: NewRange(0.5, 1.0)}
	r.DeriveSwitches()
	if !r.TriggerOnCC {
		t.Fatalf("expected on_locc/on_hicc to enable CC triggering")
	}
}

func TestValidateRejectsBadSequence(t *testing.T) {
	r := NewRegion()
	r.SequenceLength = 0
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "seq_length") {
		t.Fatalf("expected seq_length error, got %v", err)
	}

	r = NewRegion()
	r.SequenceLength = 4
	r.SequencePosition = 5
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "seq_position") {
		t.Fatalf("expected seq_position error, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeControllers(t *testing.T) {
	r := NewRegion()
	r.SustainCC = NumCCs
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "sustain_cc") {
		t.Fatalf("expected sustain_cc error, got %v", err)
	}

	r = NewRegion()
	r.CCConditions = CCConditions{NumCCs + 3: NewRange(0.0, 1.0)}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected condition controller error, got nil")
	}

	r = NewRegion()
	r.CCTriggers = CCTriggers{-1: NewRange(0.0, 1.0)}
	if err := r.Validate(); err == nil {
		t.Fatalf("expected trigger controller error, got nil")
	}
}

func TestValidateRejectsBadNotes(t *testing.T) {
	r := NewRegion()
	r.KeyRange = NewRange(10, 130)
	if err := r.Validate(); err == nil {
		t.Fatalf("expected key range error, got nil")
	}

	r = NewRegion()
	r.KeyswitchLast = 128
	if err := r.Validate(); err == nil {
		t.Fatalf("expected keyswitch note error, got nil")
	}
}

func TestCCConditionsDefault(t *testing.T) {
	var c CCConditions
	r := c.GetWithDefault(11)
	if r.Start != 0 || r.End != 1 {
		t.Fatalf("expected full default range, got %g..%g", r.Start, r.End)
	}

	c = CCConditions{11: NewRange(0.25, 0.75)}
	r = c.GetWithDefault(11)
	if r.Start != 0.25 || r.End != 0.75 {
		t.Fatalf("expected configured range, got %g..%g", r.Start, r.End)
	}
	r = c.GetWithDefault(12)
	if r.Start != 0 || r.End != 1 {
		t.Fatalf("expected default range for unset controller, got %g..%g", r.Start, r.End)
	}
}

func TestCCTriggersLookup(t *testing.T) {
	c := CCTriggers{64: NewRange(0.5, 1.0)}
	if _, ok := c.Get(64); !ok {
		t.Fatalf("expected trigger range for controller 64")
	}
	if _, ok := c.Get(65); ok {
		t.Fatalf("expected no trigger range for controller 65")
	}
}

func TestTriggerString(t *testing.T) {
	cases := []struct {
		trigger Trigger
		want    string
	}{
		{TriggerAttack, "attack"},
		{TriggerRelease, "release"},
		{TriggerReleaseKey, "release_key"},
		{TriggerFirst, "first"},
		{TriggerLegato, "legato"},
	}
	for _, c := range cases {
		if got := c.trigger.String(); got != c.want {
			t.Fatalf("expected %q, got %q", c.want, got)
		}
	}
}
