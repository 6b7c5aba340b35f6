package sfizz

import (
	"gitlab.com/gomidi/midi/v2"
)

// HandleMessage maps a wire MIDI message onto the dispatch entry points,
// normalizing 7-bit values to [0, 1] and the pitch wheel to [-1, 1]. The
// channel is ignored; the engine listens omni. Note-ons with zero velocity
// dispatch as note-offs. Returns the number of layers the message fired and
// whether the message kind is one the engine consumes.
func (s *Synth) HandleMessage(msg midi.Message) (int, bool) {
	before := s.triggerCount

	var ch, key, vel, cc, val, pressure uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		s.NoteOn(int(key), float64(vel)/127)
	case msg.GetNoteOff(&ch, &key, &vel):
		s.NoteOff(int(key), float64(vel)/127)
	case msg.GetNoteEnd(&ch, &key):
		// Note-on with zero velocity; NoteOff substitutes the note-on
		// velocity for the zero.
		s.NoteOff(int(key), 0)
	case msg.GetPolyAfterTouch(&ch, &key, &pressure):
		s.PolyAftertouch(int(key), float64(pressure)/127)
	case msg.GetControlChange(&ch, &cc, &val):
		s.ControlChange(int(cc), float64(val)/127)
	case msg.GetPitchBend(&ch, &rel, &abs):
		s.PitchBend(float64(rel) / 8192)
	case msg.GetAfterTouch(&ch, &pressure):
		s.ChannelAftertouch(float64(pressure) / 127)
	default:
		return 0, false
	}
	return int(s.triggerCount - before), true
}
