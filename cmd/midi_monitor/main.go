package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"

	"github.com/praashie/sfizz"
	"github.com/praashie/sfizz/sfz"
)

func main() {
	var (
		list     = flag.Bool("list", false, "list MIDI input ports and exit")
		portName = flag.String("port", "", "MIDI input port name (substring match, empty takes the first port)")
		verbose  = flag.Bool("verbose", false, "also log messages the engine ignores")
	)
	flag.Parse()
	defer midi.CloseDriver()

	if *list {
		for i, in := range midi.GetInPorts() {
			fmt.Printf("%d: %s\n", i, in.String())
		}
		return
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	s := sfizz.NewSynth(sfizz.WithOnTrigger(func(ev sfizz.TriggerEvent) {
		logger.Info("trigger",
			zap.Stringer("type", ev.Type),
			zap.Int("layer", ev.Layer),
			zap.Int("number", ev.Number),
			zap.Float64("value", ev.Value),
		)
	}))
	if err := loadMonitorInstrument(s); err != nil {
		log.Fatal(err)
	}

	in, err := resolvePort(*portName)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info("listening", zap.String("port", in.String()))

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if _, ok := s.HandleMessage(msg); !ok && *verbose {
			logger.Debug("ignored", zap.String("message", msg.String()))
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("listener error", zap.Error(listenErr))
	}))
	if err != nil {
		log.Fatal(err)
	}
	defer stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

func resolvePort(name string) (drivers.In, error) {
	if name != "" {
		return midi.FindInPort(name)
	}
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI input ports available")
	}
	return ins[0], nil
}

// loadMonitorInstrument wires an attack/release pair over the whole
// keyboard plus a pedal region, enough to watch sustain parking and
// flushing decisions on live input.
func loadMonitorInstrument(s *sfizz.Synth) error {
	attack := sfz.NewRegion()
	release := sfz.NewRegion()
	release.Trigger = sfz.TriggerRelease
	pedal := sfz.NewRegion()
	pedal.TriggerOnNote = false
	pedal.CCTriggers = sfz.CCTriggers{sfz.DefaultSustainCC: sfz.NewRange(0.5, 1.0)}

	for _, region := range []*sfz.Region{attack, release, pedal} {
		if _, err := s.AddRegion(region); err != nil {
			return err
		}
	}
	return nil
}
