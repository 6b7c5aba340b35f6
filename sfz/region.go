// Package sfz holds the declarative configuration of instrument regions:
// numeric ranges, trigger modes and controller maps, mirroring the SFZ
// opcode vocabulary. Regions are assembled by the caller and frozen once
// loaded into a Synth.
package sfz

import "fmt"

// Trigger selects which events can fire a region: attack fires on note-on;
// release and release_key fire on note-off (release defers under pedals);
// first and legato split a phrase's opening note from the notes played
// into it.
type Trigger int

const (
	TriggerAttack Trigger = iota
	TriggerRelease
	TriggerReleaseKey
	TriggerFirst
	TriggerLegato
)

func (t Trigger) String() string {
	switch t {
	case TriggerAttack:
		return "attack"
	case TriggerRelease:
		return "release"
	case TriggerReleaseKey:
		return "release_key"
	case TriggerFirst:
		return "first"
	case TriggerLegato:
		return "legato"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

// VelocityOverride selects the velocity a note event is judged by: the
// event's own, or the previous note's (sw_vel=previous in keyswitched
// setups).
type VelocityOverride int

const (
	VelocityOverrideNone VelocityOverride = iota
	VelocityOverridePrevious
)

// NoKeyswitch marks an unassigned keyswitch note.
const NoKeyswitch = -1

// Region is the declarative configuration of one instrument layer.
// Assemble it from NewRegion defaults, then load it into a Synth; loading
// derives the usage flags and the region is frozen from then on.
//
// Note numbers are MIDI ints; velocities, controller values and aftertouch
// are normalized to [0, 1]; pitch bend is normalized to [-1, 1]; tempo
// ranges are in BPM.
type Region struct {
	KeyRange            Range[int]
	VelocityRange       Range[float64]
	RandRange           Range[float64]
	BendRange           Range[float64]
	AftertouchRange     Range[float64]
	PolyAftertouchRange Range[float64]
	BPMRange            Range[float64]

	Trigger          Trigger
	TriggerOnNote    bool
	TriggerOnCC      bool
	VelocityOverride VelocityOverride

	// Round-robin: the region fires on the SequencePosition-th (1-based)
	// candidate trigger of every SequenceLength window.
	SequenceLength   int
	SequencePosition int

	CCConditions CCConditions
	CCTriggers   CCTriggers

	SustainCC          int
	SostenutoCC        int
	SustainThreshold   float64
	SostenutoThreshold float64
	CheckSustain       bool
	CheckSostenuto     bool

	// Keyswitches, NoKeyswitch when unassigned. Last arms the region while
	// its note is the most recent keyswitch pressed; Down while the note is
	// held; Up while it is not; Previous when the preceding note matches.
	KeyswitchLast     int
	KeyswitchDown     int
	KeyswitchUp       int
	KeyswitchPrevious int

	// Derived by DeriveSwitches at load time. Switches a region does not
	// use start pre-satisfied and never block firing.
	UsesKeySwitches         bool
	UsesPreviousKeySwitches bool
	UsesSequenceSwitches    bool
}

// NewRegion returns a region with the format defaults: full key range, open
// velocity and random ranges, attack trigger, pedals on CC64/CC66 with
// half-way thresholds.
func NewRegion() *Region {
	return &Region{
		KeyRange:            Range[int]{Start: 0, End: 127},
		VelocityRange:       Range[float64]{Start: 0, End: 1},
		RandRange:           Range[float64]{Start: 0, End: 1},
		BendRange:           Range[float64]{Start: -1, End: 1},
		AftertouchRange:     Range[float64]{Start: 0, End: 1},
		PolyAftertouchRange: Range[float64]{Start: 0, End: 1},
		BPMRange:            Range[float64]{Start: 0, End: 500},

		Trigger:       TriggerAttack,
		TriggerOnNote: true,

		SequenceLength:   1,
		SequencePosition: 1,

		SustainCC:          DefaultSustainCC,
		SostenutoCC:        DefaultSostenutoCC,
		SustainThreshold:   0.5,
		SostenutoThreshold: 0.5,
		CheckSustain:       true,
		CheckSostenuto:     true,

		KeyswitchLast:     NoKeyswitch,
		KeyswitchDown:     NoKeyswitch,
		KeyswitchUp:       NoKeyswitch,
		KeyswitchPrevious: NoKeyswitch,
	}
}

// DeriveSwitches fills the switch-usage flags from the keyswitch
// assignments and sequence length, and enables CC triggering when trigger
// ranges are configured. Called once when the region is loaded.
func (r *Region) DeriveSwitches() {
	r.UsesKeySwitches = r.KeyswitchLast != NoKeyswitch ||
		r.KeyswitchDown != NoKeyswitch || r.KeyswitchUp != NoKeyswitch
	r.UsesPreviousKeySwitches = r.KeyswitchPrevious != NoKeyswitch
	r.UsesSequenceSwitches = r.SequenceLength > 1
	if len(r.CCTriggers) > 0 {
		r.TriggerOnCC = true
	}
}

// Validate checks the parts of a region the engine depends on for safe
// dispatch. Loading rejects invalid regions rather than guarding the hot
// path.
func (r *Region) Validate() error {
	if r.SequenceLength < 1 {
		return fmt.Errorf("seq_length must be >= 1, got %d", r.SequenceLength)
	}
	if r.SequencePosition < 1 || r.SequencePosition > r.SequenceLength {
		return fmt.Errorf("seq_position %d outside sequence of length %d",
			r.SequencePosition, r.SequenceLength)
	}
	if r.KeyRange.Start < 0 || r.KeyRange.End > 127 {
		return fmt.Errorf("key range %d..%d outside 0..127", r.KeyRange.Start, r.KeyRange.End)
	}
	if r.SustainCC < 0 || r.SustainCC >= NumCCs {
		return fmt.Errorf("sustain_cc %d outside controller space", r.SustainCC)
	}
	if r.SostenutoCC < 0 || r.SostenutoCC >= NumCCs {
		return fmt.Errorf("sostenuto_cc %d outside controller space", r.SostenutoCC)
	}
	if r.SustainThreshold < 0 || r.SustainThreshold > 1 {
		return fmt.Errorf("sustain threshold %g outside 0..1", r.SustainThreshold)
	}
	if r.SostenutoThreshold < 0 || r.SostenutoThreshold > 1 {
		return fmt.Errorf("sostenuto threshold %g outside 0..1", r.SostenutoThreshold)
	}
	for cc := range r.CCConditions {
		if cc < 0 || cc >= NumCCs {
			return fmt.Errorf("condition controller %d outside controller space", cc)
		}
	}
	for cc := range r.CCTriggers {
		if cc < 0 || cc >= NumCCs {
			return fmt.Errorf("trigger controller %d outside controller space", cc)
		}
	}
	for _, ks := range [4]int{r.KeyswitchLast, r.KeyswitchDown, r.KeyswitchUp, r.KeyswitchPrevious} {
		if ks != NoKeyswitch && (ks < 0 || ks > 127) {
			return fmt.Errorf("keyswitch note %d outside 0..127", ks)
		}
	}
	return nil
}
