package layer

import (
	"github.com/praashie/sfizz/internal/controller"
	"github.com/praashie/sfizz/sfz"
)

// DefaultDelayedReleaseCapacity bounds each pedal-deferral list when no
// explicit capacity is configured.
const DefaultDelayedReleaseCapacity = 32

// NoteVelocity is a parked note-off: the note number and the velocity
// captured when its release was deferred.
type NoteVelocity struct {
	Note     int
	Velocity float64
}

// ccBits holds one activation bit per controller number. Fixed size keeps
// the register paths free of allocation.
type ccBits [sfz.NumCCs / 64]uint64

func (b *ccBits) setAll() {
	for i := range b {
		b[i] = ^uint64(0)
	}
}

func (b *ccBits) set(i int, on bool) {
	if on {
		b[i>>6] |= 1 << (uint(i) & 63)
	} else {
		b[i>>6] &^= 1 << (uint(i) & 63)
	}
}

func (b *ccBits) all() bool {
	for _, w := range b {
		if w != ^uint64(0) {
			return false
		}
	}
	return true
}

// Layer decides, for one region, whether each incoming event should fire.
// It owns the region's dynamic switch state and the pedal-deferral
// bookkeeping; the region is read-only and the controller state is queried,
// never mutated. All methods run on the caller's single dispatch goroutine
// and never block or allocate.
type Layer struct {
	region *sfz.Region
	state  *controller.State

	keySwitched         bool
	previousKeySwitched bool
	sequenceSwitched    bool
	pitchSwitched       bool
	bpmSwitched         bool
	aftertouchSwitched  bool
	ccSwitched          ccBits

	sequenceCounter uint64

	sustainPressed   bool
	sostenutoPressed bool

	delayedSustainReleases   []NoteVelocity
	delayedSostenutoReleases []NoteVelocity
	droppedReleases          int
}

// New builds the layer for region, reading performance context from state.
// capacity bounds each pedal-deferral list; zero or negative selects
// DefaultDelayedReleaseCapacity.
func New(region *sfz.Region, state *controller.State, capacity int) *Layer {
	if capacity <= 0 {
		capacity = DefaultDelayedReleaseCapacity
	}
	l := &Layer{
		region:                   region,
		state:                    state,
		delayedSustainReleases:   make([]NoteVelocity, 0, capacity),
		delayedSostenutoReleases: make([]NoteVelocity, 0, capacity),
	}
	l.initActivations()
	return l
}

// initActivations presets every switch. A condition the region does not use
// starts satisfied and never blocks firing.
func (l *Layer) initActivations() {
	l.keySwitched = !l.region.UsesKeySwitches
	l.previousKeySwitched = !l.region.UsesPreviousKeySwitches
	l.sequenceSwitched = !l.region.UsesSequenceSwitches
	l.pitchSwitched = true
	l.bpmSwitched = true
	l.aftertouchSwitched = true
	l.ccSwitched.setAll()
}

// IsArmed reports whether every gating condition currently holds. Arming is
// necessary but not sufficient to fire; the event itself must also satisfy
// the region's trigger.
func (l *Layer) IsArmed() bool {
	return l.keySwitched && l.previousKeySwitched && l.sequenceSwitched &&
		l.pitchSwitched && l.bpmSwitched && l.aftertouchSwitched &&
		l.ccSwitched.all()
}

// walkSequence advances the round-robin position by one candidate trigger.
// The pre-increment counter value selects the position, so the first
// candidate is position 1.
func (l *Layer) walkSequence() {
	n := l.sequenceCounter
	l.sequenceCounter++
	l.sequenceSwitched = n%uint64(l.region.SequenceLength) == uint64(l.region.SequencePosition-1)
}

// checkRandom applies the end-exclusive random range, except that a value
// of exactly 1.0 still matches a range ending at 1.0.
func (l *Layer) checkRandom(randValue float64) bool {
	r := l.region.RandRange
	return r.Contains(randValue) || (randValue >= 1.0 && r.IsValid() && r.End >= 1.0)
}

func (l *Layer) checkNote(note int, velocity float64) bool {
	return l.region.KeyRange.ContainsWithEnd(note) &&
		l.region.VelocityRange.ContainsWithEnd(velocity)
}

// RegisterNoteOn reports whether the note-on fires this layer. velocity and
// randValue are normalized to [0, 1]; controller state must already reflect
// the note-on when this runs.
func (l *Layer) RegisterNoteOn(note int, velocity, randValue float64) bool {
	region := l.region

	if region.VelocityOverride == sfz.VelocityOverridePrevious {
		velocity = l.state.VelocityOverride()
	}

	if !(region.TriggerOnNote && l.checkNote(note, velocity) && l.checkRandom(randValue)) {
		return false
	}
	if !region.PolyAftertouchRange.ContainsWithEnd(l.state.PolyAftertouch(note)) {
		return false
	}

	attack := region.Trigger == sfz.TriggerAttack
	firstNote := region.Trigger == sfz.TriggerFirst && l.state.ActiveNotes() == 1
	legatoNote := region.Trigger == sfz.TriggerLegato && l.state.ActiveNotes() > 1

	if attack || firstNote || legatoNote {
		l.walkSequence()
		return l.IsArmed()
	}
	return false
}

// RegisterNoteOff reports whether the note-off fires this layer. Under a
// held sustain or sostenuto pedal a release trigger is parked instead of
// firing; the dispatcher replays parked releases when the pedal lifts.
func (l *Layer) RegisterNoteOff(note int, velocity, randValue float64) bool {
	region := l.region

	if region.VelocityOverride == sfz.VelocityOverridePrevious {
		velocity = l.state.VelocityOverride()
	}

	if !(region.TriggerOnNote && l.checkNote(note, velocity) && l.checkRandom(randValue)) {
		return false
	}
	if !region.PolyAftertouchRange.ContainsWithEnd(l.state.PolyAftertouch(note)) {
		return false
	}

	triggerOk := false

	switch region.Trigger {
	case sfz.TriggerReleaseKey:
		triggerOk = true
	case sfz.TriggerRelease:
		sostenutoed := l.IsNoteSostenutoed(note)

		if sostenutoed && !l.sostenutoPressed {
			l.removeFromSostenutoReleases(note)
			if l.sustainPressed {
				l.delaySustainRelease(note, l.state.NoteVelocity(note))
			}
		}

		if !l.sostenutoPressed || !sostenutoed {
			if l.sustainPressed {
				l.delaySustainRelease(note, l.state.NoteVelocity(note))
			} else {
				triggerOk = true
			}
		}
	}

	if triggerOk {
		l.walkSequence()
		return l.IsArmed()
	}
	return false
}

// RegisterCC updates pedal state and the controller's activation bit, then
// reports whether the value fires a CC trigger. randValue is accepted for
// dispatch symmetry; CC firing is not randomized.
func (l *Layer) RegisterCC(cc int, value, randValue float64) bool {
	if cc < 0 || cc >= sfz.NumCCs {
		return false
	}

	region := l.region

	if cc == region.SustainCC {
		l.sustainPressed = region.CheckSustain && value >= region.SustainThreshold
	}

	if cc == region.SostenutoCC {
		newState := region.CheckSostenuto && value >= region.SostenutoThreshold
		if !l.sostenutoPressed && newState {
			l.storeSostenutoNotes()
		}
		if !newState && l.sostenutoPressed {
			l.delayedSostenutoReleases = l.delayedSostenutoReleases[:0]
		}
		l.sostenutoPressed = newState
	}

	l.ccSwitched.set(cc, region.CCConditions.GetWithDefault(cc).ContainsWithEnd(value))

	if !region.TriggerOnCC {
		return false
	}

	if trigger, ok := region.CCTriggers.Get(cc); ok && trigger.ContainsWithEnd(value) {
		l.walkSequence()
		return l.IsArmed()
	}
	return false
}

// RegisterPitchWheel updates the pitch gate. Pure switch update; never
// fires and never walks the sequence.
func (l *Layer) RegisterPitchWheel(pitch float64) {
	l.pitchSwitched = l.region.BendRange.ContainsWithEnd(pitch)
}

// RegisterAftertouch updates the channel aftertouch gate.
func (l *Layer) RegisterAftertouch(aftertouch float64) {
	l.aftertouchSwitched = l.region.AftertouchRange.ContainsWithEnd(aftertouch)
}

// RegisterTempo updates the tempo gate from a quarter-note duration in
// seconds.
func (l *Layer) RegisterTempo(secondsPerQuarter float64) {
	bpm := 60.0 / secondsPerQuarter
	l.bpmSwitched = l.region.BPMRange.ContainsWithEnd(bpm)
}

func (l *Layer) delaySustainRelease(note int, velocity float64) {
	if len(l.delayedSustainReleases) == cap(l.delayedSustainReleases) {
		l.droppedReleases++
		return
	}
	l.delayedSustainReleases = append(l.delayedSustainReleases, NoteVelocity{note, velocity})
}

func (l *Layer) delaySostenutoRelease(note int, velocity float64) {
	if len(l.delayedSostenutoReleases) == cap(l.delayedSostenutoReleases) {
		l.droppedReleases++
		return
	}
	l.delayedSostenutoReleases = append(l.delayedSostenutoReleases, NoteVelocity{note, velocity})
}

// removeFromSostenutoReleases drops the first entry for note, swapping the
// last entry into its place. Order is not preserved.
func (l *Layer) removeFromSostenutoReleases(note int) {
	dl := l.delayedSostenutoReleases
	for i := range dl {
		if dl[i].Note == note {
			last := len(dl) - 1
			dl[i] = dl[last]
			l.delayedSostenutoReleases = dl[:last]
			return
		}
	}
}

// storeSostenutoNotes snapshots every pressed note in the key range into
// the sostenuto list. The list is empty here; the pedal transition guard in
// RegisterCC is the only caller.
func (l *Layer) storeSostenutoNotes() {
	for note := l.region.KeyRange.Start; note <= l.region.KeyRange.End; note++ {
		if l.state.IsNotePressed(note) {
			l.delaySostenutoRelease(note, l.state.NoteVelocity(note))
		}
	}
}

// IsNoteSustained reports whether note has a release parked behind the
// sustain pedal.
func (l *Layer) IsNoteSustained(note int) bool {
	for _, nv := range l.delayedSustainReleases {
		if nv.Note == note {
			return true
		}
	}
	return false
}

// IsNoteSostenutoed reports whether note is held by the sostenuto pedal.
func (l *Layer) IsNoteSostenutoed(note int) bool {
	for _, nv := range l.delayedSostenutoReleases {
		if nv.Note == note {
			return true
		}
	}
	return false
}

func (l *Layer) SustainPressed() bool   { return l.sustainPressed }
func (l *Layer) SostenutoPressed() bool { return l.sostenutoPressed }

// DroppedReleases counts deferral insertions dropped at capacity.
func (l *Layer) DroppedReleases() int { return l.droppedReleases }

// Region returns the configuration this layer gates for.
func (l *Layer) Region() *sfz.Region { return l.region }

// TakeSustainReleases appends the parked sustain releases to dst and clears
// the list. The dispatcher drains it when the sustain pedal lifts, before
// the pedal CC reaches RegisterCC.
func (l *Layer) TakeSustainReleases(dst []NoteVelocity) []NoteVelocity {
	dst = append(dst, l.delayedSustainReleases...)
	l.delayedSustainReleases = l.delayedSustainReleases[:0]
	return dst
}

// TakeSostenutoReleases appends the parked sostenuto holds to dst and
// clears the list.
func (l *Layer) TakeSostenutoReleases(dst []NoteVelocity) []NoteVelocity {
	dst = append(dst, l.delayedSostenutoReleases...)
	l.delayedSostenutoReleases = l.delayedSostenutoReleases[:0]
	return dst
}

// SetKeySwitch is the dispatcher's hook for last/down/up keyswitch
// bookkeeping; the layer stores the result, it does not track keyswitch
// notes itself.
func (l *Layer) SetKeySwitch(on bool) { l.keySwitched = on }

// SetPreviousKeySwitch is the dispatcher's hook for previous-note
// keyswitch bookkeeping.
func (l *Layer) SetPreviousKeySwitch(on bool) { l.previousKeySwitched = on }
