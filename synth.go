package sfizz

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	intctl "github.com/praashie/sfizz/internal/controller"
	intlayer "github.com/praashie/sfizz/internal/layer"
	"github.com/praashie/sfizz/sfz"
)

// TriggerType classifies what fired a layer.
type TriggerType int

const (
	TriggerNoteOn TriggerType = iota
	TriggerNoteOff
	TriggerCC
)

func (t TriggerType) String() string {
	switch t {
	case TriggerNoteOn:
		return "note_on"
	case TriggerNoteOff:
		return "note_off"
	case TriggerCC:
		return "cc"
	}
	return fmt.Sprintf("trigger_type(%d)", int(t))
}

// TriggerEvent reports one fired layer: which layer fired, on what kind of
// event, and the note or controller number with its normalized value.
type TriggerEvent struct {
	Type   TriggerType
	Layer  int
	Number int
	Value  float64
}

type SynthOption func(*synthConfig)

type synthConfig struct {
	onTrigger       func(TriggerEvent)
	rng             *rand.Rand
	releaseCapacity int
}

func defaultSynthConfig() synthConfig {
	return synthConfig{releaseCapacity: intlayer.DefaultDelayedReleaseCapacity}
}

// WithOnTrigger installs a callback invoked synchronously for every trigger
// decision. The callback runs on the dispatch path; keep work brief and
// non-blocking.
func WithOnTrigger(fn func(TriggerEvent)) SynthOption {
	return func(cfg *synthConfig) {
		cfg.onTrigger = fn
	}
}

// WithRandom replaces the region-selection random source, e.g. with a
// seeded one for reproducible playback.
func WithRandom(rng *rand.Rand) SynthOption {
	return func(cfg *synthConfig) {
		cfg.rng = rng
	}
}

// WithDelayedReleaseCapacity bounds each layer's pedal-deferral lists.
func WithDelayedReleaseCapacity(n int) SynthOption {
	return func(cfg *synthConfig) {
		cfg.releaseCapacity = n
	}
}

// Synth dispatches incoming events to every loaded layer and reports which
// layers fire. It owns the controller state the layers query, the keyswitch
// bookkeeping, and the replay of releases parked behind the sustain and
// sostenuto pedals.
//
// All entry points must be called from one goroutine; the dispatch path
// never blocks and, once regions are loaded, never allocates.
type Synth struct {
	state   *intctl.State
	rng     *rand.Rand
	regions []*sfz.Region
	layers  []*intlayer.Layer

	onTrigger       func(TriggerEvent)
	releaseCapacity int
	triggerCount    uint64

	lastKeyswitch     [128][]*intlayer.Layer
	downKeyswitch     [128][]*intlayer.Layer
	upKeyswitch       [128][]*intlayer.Layer
	previousKeyswitch []*intlayer.Layer
	currentSwitch     int

	alternate float64

	flushScratch []intlayer.NoteVelocity
	flushSeen    [128]bool
	resetCCs     []int

	eventCh   chan TriggerEvent
	eventChMu sync.Mutex
}

func NewSynth(opts ...SynthOption) *Synth {
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	rng := cfg.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.releaseCapacity <= 0 {
		cfg.releaseCapacity = intlayer.DefaultDelayedReleaseCapacity
	}
	return &Synth{
		state:           intctl.New(),
		rng:             rng,
		onTrigger:       cfg.onTrigger,
		releaseCapacity: cfg.releaseCapacity,
		currentSwitch:   -1,
	}
}

// AddRegion validates and loads region, returning its layer index. Loading
// derives the region's switch-usage flags and is the only allocating phase;
// the region must not be mutated afterwards.
func (s *Synth) AddRegion(region *sfz.Region) (int, error) {
	if region == nil {
		return 0, errors.New("nil region")
	}
	if err := region.Validate(); err != nil {
		return 0, err
	}
	region.DeriveSwitches()
	ly := intlayer.New(region, s.state, s.releaseCapacity)
	idx := len(s.layers)
	s.regions = append(s.regions, region)
	s.layers = append(s.layers, ly)
	s.indexKeyswitches(ly)
	s.collectResetCCs(region)
	// Worst case one pedal CC drains both lists of every layer.
	s.flushScratch = make([]intlayer.NoteVelocity, 0, 2*len(s.layers)*s.releaseCapacity)
	return idx, nil
}

func (s *Synth) indexKeyswitches(ly *intlayer.Layer) {
	region := ly.Region()
	if n := region.KeyswitchLast; n != sfz.NoKeyswitch {
		s.lastKeyswitch[n] = append(s.lastKeyswitch[n], ly)
	}
	if n := region.KeyswitchDown; n != sfz.NoKeyswitch {
		s.downKeyswitch[n] = append(s.downKeyswitch[n], ly)
	}
	if n := region.KeyswitchUp; n != sfz.NoKeyswitch {
		s.upKeyswitch[n] = append(s.upKeyswitch[n], ly)
	}
	if region.KeyswitchPrevious != sfz.NoKeyswitch {
		s.previousKeyswitch = append(s.previousKeyswitch, ly)
	}
}

// collectResetCCs keeps a sorted set of every controller a loaded region
// reacts to, driven to zero by ResetAllControllers.
func (s *Synth) collectResetCCs(region *sfz.Region) {
	add := func(cc int) {
		i := sort.SearchInts(s.resetCCs, cc)
		if i < len(s.resetCCs) && s.resetCCs[i] == cc {
			return
		}
		s.resetCCs = append(s.resetCCs, 0)
		copy(s.resetCCs[i+1:], s.resetCCs[i:])
		s.resetCCs[i] = cc
	}
	add(region.SustainCC)
	add(region.SostenutoCC)
	for cc := range region.CCConditions {
		add(cc)
	}
	for cc := range region.CCTriggers {
		add(cc)
	}
}

// NoteOn dispatches a note-on. velocity is normalized to [0, 1]. Returns
// the number of layers fired, counting extended-controller CC triggers.
func (s *Synth) NoteOn(note int, velocity float64) int {
	if note < 0 || note > 127 {
		return 0
	}
	prevNote := s.state.LastNote()
	s.state.NoteOnEvent(note, velocity)

	fired := 0
	fired += s.ccDispatch(sfz.CCNoteOnVelocity, velocity)
	fired += s.ccDispatch(sfz.CCNoteNumber, float64(note)/127)
	fired += s.ccDispatch(sfz.CCNoteGate, s.noteGate())
	fired += s.ccDispatch(sfz.CCUnipolarRandom, s.rng.Float64())
	fired += s.ccDispatch(sfz.CCBipolarRandom, s.rng.Float64())
	if s.alternate == 0 {
		s.alternate = 1
	} else {
		s.alternate = 0
	}
	fired += s.ccDispatch(sfz.CCAlternate, s.alternate)
	if prevNote >= 0 {
		// Key deltas are signed, so they bypass layer dispatch: a signed
		// value would clear default activation bits for good.
		delta := note - prevNote
		s.state.CCEvent(sfz.CCKeyDelta, float64(delta))
		if delta < 0 {
			delta = -delta
		}
		s.state.CCEvent(sfz.CCAbsoluteKeyDelta, float64(delta))
	}

	s.applyNoteOnKeyswitches(note)

	randValue := s.rng.Float64()
	for i, ly := range s.layers {
		if ly.RegisterNoteOn(note, velocity, randValue) {
			fired++
			s.emit(TriggerEvent{Type: TriggerNoteOn, Layer: i, Number: note, Value: velocity})
		}
	}

	// The previous-note keyswitch describes the note just played; updating
	// it after dispatch makes it gate the next note.
	for _, ly := range s.previousKeyswitch {
		ly.SetPreviousKeySwitch(ly.Region().KeyswitchPrevious == note)
	}
	return fired
}

// NoteOff dispatches a note-off. A zero velocity is replaced with the
// note's own note-on velocity, covering running-status note-offs and wire
// formats that carry no release velocity. Returns the number of layers
// fired.
func (s *Synth) NoteOff(note int, velocity float64) int {
	if note < 0 || note > 127 {
		return 0
	}
	if velocity == 0 {
		velocity = s.state.NoteVelocity(note)
	}
	s.state.NoteOffEvent(note)

	fired := 0
	fired += s.ccDispatch(sfz.CCNoteOffVelocity, velocity)
	fired += s.ccDispatch(sfz.CCNoteGate, s.noteGate())

	for _, ly := range s.downKeyswitch[note] {
		ly.SetKeySwitch(false)
	}
	for _, ly := range s.upKeyswitch[note] {
		ly.SetKeySwitch(true)
	}

	randValue := s.rng.Float64()
	for i, ly := range s.layers {
		if ly.RegisterNoteOff(note, velocity, randValue) {
			fired++
			s.emit(TriggerEvent{Type: TriggerNoteOff, Layer: i, Number: note, Value: velocity})
		}
	}
	return fired
}

// ControlChange dispatches a controller value normalized to [0, 1]. When a
// pedal controller crosses below its threshold, the releases parked behind
// that pedal are replayed as synthetic note-offs; notes still physically
// pressed wait for their real note-off. Returns the number of layers fired.
func (s *Synth) ControlChange(cc int, value float64) int {
	if cc < 0 || cc >= sfz.NumCCs {
		return 0
	}
	return s.ccDispatch(cc, value)
}

// PitchBend dispatches a pitch wheel position normalized to [-1, 1]. The
// position is mirrored to the pitch bend controller as (value+1)/2.
func (s *Synth) PitchBend(value float64) {
	s.state.PitchBendEvent(value)
	s.ccDispatch(sfz.CCPitchBend, (value+1)/2)
	for _, ly := range s.layers {
		ly.RegisterPitchWheel(value)
	}
}

// ChannelAftertouch dispatches channel pressure normalized to [0, 1].
func (s *Synth) ChannelAftertouch(value float64) {
	s.state.ChannelAftertouchEvent(value)
	s.ccDispatch(sfz.CCChannelAftertouch, value)
	for _, ly := range s.layers {
		ly.RegisterAftertouch(value)
	}
}

// PolyAftertouch records per-note pressure normalized to [0, 1]. Layers
// consult it when the note itself is dispatched.
func (s *Synth) PolyAftertouch(note int, value float64) {
	if note < 0 || note > 127 {
		return
	}
	s.state.PolyAftertouchEvent(note, value)
	s.ccDispatch(sfz.CCPolyAftertouch, value)
}

// Tempo updates every layer's tempo gate from a quarter-note duration in
// seconds.
func (s *Synth) Tempo(secondsPerQuarter float64) {
	for _, ly := range s.layers {
		ly.RegisterTempo(secondsPerQuarter)
	}
}

func (s *Synth) noteGate() float64 {
	if s.state.ActiveNotes() > 0 {
		return 1
	}
	return 0
}

func (s *Synth) applyNoteOnKeyswitches(note int) {
	if len(s.lastKeyswitch[note]) > 0 {
		if s.currentSwitch >= 0 && s.currentSwitch != note {
			for _, ly := range s.lastKeyswitch[s.currentSwitch] {
				ly.SetKeySwitch(false)
			}
		}
		s.currentSwitch = note
	}
	for _, ly := range s.lastKeyswitch[note] {
		ly.SetKeySwitch(true)
	}
	for _, ly := range s.downKeyswitch[note] {
		ly.SetKeySwitch(true)
	}
	for _, ly := range s.upKeyswitch[note] {
		ly.SetKeySwitch(false)
	}
}

// ccDispatch is the single controller path: update state, drain the parked
// releases of any pedal about to lift, register the value with every layer,
// then replay the drained releases.
func (s *Synth) ccDispatch(cc int, value float64) int {
	s.state.CCEvent(cc, value)

	scratch := s.flushScratch[:0]
	for _, ly := range s.layers {
		region := ly.Region()
		if cc == region.SustainCC && ly.SustainPressed() &&
			!(region.CheckSustain && value >= region.SustainThreshold) {
			scratch = ly.TakeSustainReleases(scratch)
		}
		if cc == region.SostenutoCC && ly.SostenutoPressed() &&
			!(region.CheckSostenuto && value >= region.SostenutoThreshold) {
			scratch = ly.TakeSostenutoReleases(scratch)
		}
	}

	fired := 0
	randValue := s.rng.Float64()
	for i, ly := range s.layers {
		if ly.RegisterCC(cc, value, randValue) {
			fired++
			s.emit(TriggerEvent{Type: TriggerCC, Layer: i, Number: cc, Value: value})
		}
	}

	fired += s.dispatchParkedReleases(scratch)
	return fired
}

// dispatchParkedReleases replays drained (note, velocity) pairs as
// synthetic note-offs, once per note. Controller state is left alone; the
// physical note-off already updated it. A layer whose other pedal is still
// down re-parks the note through its own release logic.
func (s *Synth) dispatchParkedReleases(scratch []intlayer.NoteVelocity) int {
	fired := 0
	for _, nv := range scratch {
		if s.flushSeen[nv.Note] {
			continue
		}
		s.flushSeen[nv.Note] = true
		if s.state.IsNotePressed(nv.Note) {
			continue
		}
		randValue := s.rng.Float64()
		for i, ly := range s.layers {
			if ly.RegisterNoteOff(nv.Note, nv.Velocity, randValue) {
				fired++
				s.emit(TriggerEvent{Type: TriggerNoteOff, Layer: i, Number: nv.Note, Value: nv.Velocity})
			}
		}
	}
	for _, nv := range scratch {
		s.flushSeen[nv.Note] = false
	}
	s.flushScratch = scratch[:0]
	return fired
}

// Reset reloads the instrument: fresh layers for the kept regions, fresh
// controller and keyswitch state.
func (s *Synth) Reset() {
	s.state.Reset()
	s.lastKeyswitch = [128][]*intlayer.Layer{}
	s.downKeyswitch = [128][]*intlayer.Layer{}
	s.upKeyswitch = [128][]*intlayer.Layer{}
	s.previousKeyswitch = nil
	s.currentSwitch = -1
	s.alternate = 0
	for i, region := range s.regions {
		ly := intlayer.New(region, s.state, s.releaseCapacity)
		s.layers[i] = ly
		s.indexKeyswitches(ly)
	}
}

// ResetAllControllers drives every pedal and configured controller to zero
// through the normal dispatch path, replaying parked releases on the way,
// then clears the remaining controller values and centers pitch bend.
func (s *Synth) ResetAllControllers() {
	for _, cc := range s.resetCCs {
		s.ccDispatch(cc, 0)
	}
	s.state.ResetAllControllers()
	s.PitchBend(0)
}

func (s *Synth) emit(ev TriggerEvent) {
	s.triggerCount++
	if s.onTrigger != nil {
		s.onTrigger(ev)
	}
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel receiving every trigger decision. The channel is
// buffered (cap 64) and events are dropped when it is full; receive in a
// goroutine to keep the dispatch path non-blocking. Only the most recent
// Watch() channel receives events.
func (s *Synth) Watch() <-chan TriggerEvent {
	ch := make(chan TriggerEvent, 64)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

func (s *Synth) NumLayers() int { return len(s.layers) }

// Layer returns the i-th loaded layer for diagnostic queries such as
// pedal-deferral state.
func (s *Synth) Layer(i int) *intlayer.Layer { return s.layers[i] }

// ActiveNotes returns the count of notes currently down.
func (s *Synth) ActiveNotes() int { return s.state.ActiveNotes() }

// TriggerCount returns the total number of trigger events emitted since
// construction.
func (s *Synth) TriggerCount() uint64 { return s.triggerCount }
