package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"go.uber.org/zap"

	"github.com/praashie/sfizz"
	"github.com/praashie/sfizz/sfz"
)

type envConfig struct {
	Seed       int64 `env:"SFIZZ_SEED" envDefault:"0"`
	ReleaseCap int   `env:"SFIZZ_RELEASE_CAP" envDefault:"32"`
}

func main() {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		log.Fatal(errors.Wrap(err, "parse environment"))
	}
	var (
		filePath   = flag.String("file", "", "path to a Standard MIDI File (empty plays the demo sequence)")
		seed       = flag.Int64("seed", ec.Seed, "random seed for trigger decisions (0 = time-based)")
		releaseCap = flag.Int("release-cap", ec.ReleaseCap, "delayed releases held per layer while a pedal is down")
		quiet      = flag.Bool("quiet", false, "suppress per-trigger logging")
		stats      = flag.Bool("stats", false, "print a run summary")
	)
	flag.Parse()

	logger := zap.NewNop()
	if !*quiet {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
	}
	defer logger.Sync()

	opts := []sfizz.SynthOption{
		sfizz.WithDelayedReleaseCapacity(*releaseCap),
		sfizz.WithOnTrigger(func(ev sfizz.TriggerEvent) {
			logger.Info("trigger",
				zap.Stringer("type", ev.Type),
				zap.Int("layer", ev.Layer),
				zap.Int("number", ev.Number),
				zap.Float64("value", ev.Value),
			)
		}),
	}
	if *seed != 0 {
		opts = append(opts, sfizz.WithRandom(rand.New(rand.NewSource(*seed))))
	}
	s := sfizz.NewSynth(opts...)
	if err := loadDemoInstrument(s); err != nil {
		log.Fatal(errors.Wrap(err, "load instrument"))
	}

	input, err := resolveInput(*filePath)
	if err != nil {
		log.Fatal(err)
	}
	result, err := s.ProcessSMF(input)
	if err != nil {
		log.Fatal(errors.Wrap(err, "process file"))
	}
	if *stats {
		fmt.Printf("events %d, ignored %d, triggers %d\n", result.Events, result.Ignored, result.Triggers)
	}
}

func resolveInput(path string) (io.Reader, error) {
	if path == "" {
		return demoSequence()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return bytes.NewReader(data), nil
}

// loadDemoInstrument builds a small instrument that touches most of the
// engine: a sustaining attack/release pair, a round-robin trio in the low
// octave, a keyswitched first/legato split, and a pedal-noise region fired
// by the sustain controller itself.
func loadDemoInstrument(s *sfizz.Synth) error {
	sustained := sfz.NewRegion()
	sustained.KeyRange = sfz.NewRange(48, 127)

	released := sfz.NewRegion()
	released.KeyRange = sfz.NewRange(48, 127)
	released.Trigger = sfz.TriggerRelease

	regions := []*sfz.Region{sustained, released}

	for pos := 1; pos <= 3; pos++ {
		rr := sfz.NewRegion()
		rr.KeyRange = sfz.NewRange(24, 47)
		rr.SequenceLength = 3
		rr.SequencePosition = pos
		regions = append(regions, rr)
	}

	phraseFirst := sfz.NewRegion()
	phraseFirst.KeyRange = sfz.NewRange(48, 127)
	phraseFirst.Trigger = sfz.TriggerFirst
	phraseFirst.KeyswitchLast = 12
	phraseLegato := sfz.NewRegion()
	phraseLegato.KeyRange = sfz.NewRange(48, 127)
	phraseLegato.Trigger = sfz.TriggerLegato
	phraseLegato.KeyswitchLast = 12
	regions = append(regions, phraseFirst, phraseLegato)

	pedalNoise := sfz.NewRegion()
	pedalNoise.TriggerOnNote = false
	pedalNoise.CCTriggers = sfz.CCTriggers{sfz.DefaultSustainCC: sfz.NewRange(0.5, 1.0)}
	regions = append(regions, pedalNoise)

	for _, region := range regions {
		if _, err := s.AddRegion(region); err != nil {
			return err
		}
	}
	return nil
}

// demoSequence renders a short built-in performance as an in-memory file:
// a keyswitched phrase, a round-robin bass line, and a sustained chord
// released by the pedal.
func demoSequence() (io.Reader, error) {
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 12, 100)) // select the phrase keyswitch
	tr.Add(0, midi.NoteOff(0, 12))
	for i, key := range []uint8{36, 38, 40, 36} {
		delta := uint32(0)
		if i > 0 {
			delta = 240
		}
		tr.Add(delta, midi.NoteOn(0, key, 96))
		tr.Add(120, midi.NoteOff(0, key))
	}
	tr.Add(120, midi.ControlChange(0, sfz.DefaultSustainCC, 127))
	for _, key := range []uint8{60, 64, 67} {
		tr.Add(0, midi.NoteOn(0, key, 80))
	}
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOff(0, 64))
	tr.Add(0, midi.NoteOff(0, 67))
	tr.Add(240, midi.ControlChange(0, sfz.DefaultSustainCC, 0))
	tr.Close(240)

	f := smf.New()
	f.Add(tr)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "demo sequence")
	}
	return &buf, nil
}
