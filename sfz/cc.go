package sfz

// NumCCs is the size of the controller space: the 128 wire controllers plus
// the extended controllers the dispatcher mirrors performance data into.
const NumCCs = 512

// Extended controller numbers. These are fed alongside wire controllers so
// conditions and triggers can gate on performance data. KeyDelta and
// AbsoluteKeyDelta are recorded in controller state only; their values are
// signed and do not participate in gating.
const (
	CCPitchBend         = 128
	CCChannelAftertouch = 129
	CCPolyAftertouch    = 130
	CCNoteOnVelocity    = 131
	CCNoteOffVelocity   = 132
	CCNoteNumber        = 133
	CCNoteGate          = 134
	CCUnipolarRandom    = 135
	CCBipolarRandom     = 136
	CCAlternate         = 137
	CCKeyDelta          = 140
	CCAbsoluteKeyDelta  = 141
)

// Standard pedal controllers.
const (
	DefaultSustainCC   = 64
	DefaultSostenutoCC = 66
)

// fullCCRange is the activation range assumed for controllers with no
// configured condition: any normalized value satisfies it.
var fullCCRange = Range[float64]{Start: 0, End: 1}

// CCConditions maps controller numbers to activation ranges. A controller
// with no entry never blocks arming.
type CCConditions map[int]Range[float64]

// GetWithDefault returns the configured range for cc, or the full range
// when none is configured.
func (c CCConditions) GetWithDefault(cc int) Range[float64] {
	if r, ok := c[cc]; ok {
		return r
	}
	return fullCCRange
}

// CCTriggers maps controller numbers to the value ranges that fire the
// region.
type CCTriggers map[int]Range[float64]

// Get returns the trigger range for cc, if one is configured.
func (c CCTriggers) Get(cc int) (Range[float64], bool) {
	r, ok := c[cc]
	return r, ok
}
