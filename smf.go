package sfizz

import (
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// SMFEvent is one Standard MIDI File event with its absolute position, as
// delivered by ReadSMFEvents in playback order.
type SMFEvent struct {
	TrackNo         int
	AbsTicks        int64
	AbsMicroSeconds int64
	Message         smf.Message
}

// SMFStats summarizes one ProcessSMF run.
type SMFStats struct {
	Events   int // events consumed by the engine
	Ignored  int // events of kinds the engine does not handle
	Triggers int // trigger decisions fired
}

// ReadSMFEvents reads a Standard MIDI File and returns its events merged
// across tracks in absolute-tick order.
func ReadSMFEvents(r io.Reader) ([]SMFEvent, error) {
	var events []SMFEvent
	rd := smf.ReadTracksFrom(r)
	rd.Do(func(te smf.TrackEvent) {
		events = append(events, SMFEvent{
			TrackNo:         te.TrackNo,
			AbsTicks:        te.AbsTicks,
			AbsMicroSeconds: te.AbsMicroSeconds,
			Message:         te.Message,
		})
	})
	if err := rd.Error(); err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].AbsTicks < events[j].AbsTicks
	})
	return events, nil
}

// HandleSMFEvent feeds one file event through the engine. Meta tempo events
// update the tempo gates; channel messages dispatch like wire input.
// Returns the number of layers fired and whether the event was consumed.
func (s *Synth) HandleSMFEvent(ev SMFEvent) (int, bool) {
	var bpm float64
	if ev.Message.GetMetaTempo(&bpm) {
		if bpm > 0 {
			s.Tempo(60 / bpm)
		}
		return 0, true
	}
	return s.HandleMessage(midi.Message(ev.Message))
}

// ProcessSMF feeds a whole Standard MIDI File through the engine as fast as
// possible and reports what happened. Callers that want wall-clock pacing
// iterate ReadSMFEvents themselves and sleep on AbsMicroSeconds deltas.
func (s *Synth) ProcessSMF(r io.Reader) (SMFStats, error) {
	var stats SMFStats
	events, err := ReadSMFEvents(r)
	if err != nil {
		return stats, err
	}
	before := s.triggerCount
	for _, ev := range events {
		if _, ok := s.HandleSMFEvent(ev); ok {
			stats.Events++
		} else {
			stats.Ignored++
		}
	}
	stats.Triggers = int(s.triggerCount - before)
	return stats, nil
}
