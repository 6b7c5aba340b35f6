package controller

import "github.com/praashie/sfizz/sfz"

// State is the shared performance snapshot the dispatcher keeps current and
// layers read while deciding triggers: per-note velocities and gates,
// controller values, pitch bend, aftertouch and note bookkeeping. Values
// are normalized the same way region ranges are.
type State struct {
	velocities       [128]float64
	pressed          [128]bool
	polyAftertouch   [128]float64
	cc               [sfz.NumCCs]float64
	pitchBend        float64
	channelPressure  float64
	activeNotes      int
	lastNote         int
	velocityOverride float64
}

func New() *State {
	return &State{lastNote: -1}
}

// NoteOnEvent records a note-on. The velocity override is captured from the
// note played immediately before this one, so a region judging by the
// previous velocity sees the value that was current when the new note
// arrived.
func (s *State) NoteOnEvent(note int, velocity float64) {
	if note < 0 || note > 127 {
		return
	}
	if s.lastNote >= 0 {
		s.velocityOverride = s.velocities[s.lastNote]
	}
	s.velocities[note] = velocity
	s.pressed[note] = true
	s.lastNote = note
	s.activeNotes++
}

// NoteOffEvent records a note-off. The note-on velocity stays available for
// delayed releases.
func (s *State) NoteOffEvent(note int) {
	if note < 0 || note > 127 {
		return
	}
	s.pressed[note] = false
	if s.activeNotes > 0 {
		s.activeNotes--
	}
}

func (s *State) CCEvent(cc int, value float64) {
	if cc < 0 || cc >= sfz.NumCCs {
		return
	}
	s.cc[cc] = value
}

func (s *State) PitchBendEvent(value float64) {
	s.pitchBend = value
}

func (s *State) ChannelAftertouchEvent(value float64) {
	s.channelPressure = value
}

func (s *State) PolyAftertouchEvent(note int, value float64) {
	if note < 0 || note > 127 {
		return
	}
	s.polyAftertouch[note] = value
}

func (s *State) CCValue(cc int) float64 {
	if cc < 0 || cc >= sfz.NumCCs {
		return 0
	}
	return s.cc[cc]
}

func (s *State) PitchBend() float64 {
	return s.pitchBend
}

func (s *State) ChannelAftertouch() float64 {
	return s.channelPressure
}

func (s *State) PolyAftertouch(note int) float64 {
	if note < 0 || note > 127 {
		return 0
	}
	return s.polyAftertouch[note]
}

// NoteVelocity returns the velocity of the last note-on for note.
func (s *State) NoteVelocity(note int) float64 {
	if note < 0 || note > 127 {
		return 0
	}
	return s.velocities[note]
}

// VelocityOverride returns the velocity of the note played before the most
// recent one.
func (s *State) VelocityOverride() float64 {
	return s.velocityOverride
}

func (s *State) IsNotePressed(note int) bool {
	if note < 0 || note > 127 {
		return false
	}
	return s.pressed[note]
}

// ActiveNotes returns the count of notes currently down.
func (s *State) ActiveNotes() int {
	return s.activeNotes
}

// LastNote returns the most recent note-on, or -1 before any note.
func (s *State) LastNote() int {
	return s.lastNote
}

// Reset clears the whole performance snapshot back to power-on state.
func (s *State) Reset() {
	*s = State{lastNote: -1}
}

// ResetAllControllers zeroes every controller and centers pitch bend. Note
// gates and velocities are left alone, matching the MIDI reset-all-
// controllers message.
func (s *State) ResetAllControllers() {
	for i := range s.cc {
		s.cc[i] = 0
	}
	s.pitchBend = 0
}
