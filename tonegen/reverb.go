package tonegen

import "github.com/GeoffreyPlitt/debuggo"

var reverbDebug = debuggo.Debug("fretmidi:tonegen:reverb")

// Classic Freeverb (Jezar at Dreampoint) constants, applied to the
// generator's single mono mix bus.
const (
	numCombs     = 8
	numAllpasses = 4

	fixedGain    = 0.015
	scaleWet     = 3.0
	scaleDamp    = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	initialRoom  = 0.5
	initialDamp  = 0.5
	initialWet   = 1.0 / scaleWet
)

type combFilter struct {
	buffer      []float64
	idx         int
	feedback    float64
	damp1       float64
	damp2       float64
	filterStore float64
}

func newCombFilter(size int) *combFilter {
	return &combFilter{buffer: make([]float64, size)}
}

func (cf *combFilter) process(input float64) float64 {
	output := cf.buffer[cf.idx]
	cf.filterStore = (output * cf.damp2) + (cf.filterStore * cf.damp1)
	cf.buffer[cf.idx] = input + (cf.filterStore * cf.feedback)
	cf.idx++
	if cf.idx >= len(cf.buffer) {
		cf.idx = 0
	}
	return output
}

func (cf *combFilter) setDamp(val float64) {
	cf.damp1 = val
	cf.damp2 = 1.0 - val
}

type allpassFilter struct {
	buffer   []float64
	idx      int
	feedback float64
}

func newAllpassFilter(size int) *allpassFilter {
	return &allpassFilter{buffer: make([]float64, size), feedback: 0.5}
}

func (af *allpassFilter) process(input float64) float64 {
	bufout := af.buffer[af.idx]
	output := -input + bufout
	af.buffer[af.idx] = input + (bufout * af.feedback)
	af.idx++
	if af.idx >= len(af.buffer) {
		af.idx = 0
	}
	return output
}

// Reverb is a mono Freeverb send effect applied to the generator's mixed
// voice output.
type Reverb struct {
	combs     [numCombs]*combFilter
	allpasses [numAllpasses]*allpassFilter

	gain     float64
	roomSize float64
	damp     float64
	wet      float64
}

// NewReverb builds a Reverb sized for sampleRate, scaling the classic
// 44.1kHz delay-line lengths.
func NewReverb(sampleRate int) *Reverb {
	r := &Reverb{
		gain:     fixedGain,
		roomSize: initialRoom,
		damp:     initialDamp,
		wet:      initialWet * scaleWet,
	}

	scaleFactor := float64(sampleRate) / 44100.0
	combDelays := []int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	for i := range r.combs {
		r.combs[i] = newCombFilter(int(float64(combDelays[i]) * scaleFactor))
	}
	allpassDelays := []int{556, 441, 341, 225}
	for i := range r.allpasses {
		r.allpasses[i] = newAllpassFilter(int(float64(allpassDelays[i]) * scaleFactor))
	}

	r.updateParameters()
	reverbDebug("reverb initialized: sampleRate=%d", sampleRate)
	return r
}

func (r *Reverb) updateParameters() {
	roomScaled := (r.roomSize * scaleRoom) + offsetRoom
	dampScaled := r.damp * scaleDamp
	for i := range r.combs {
		r.combs[i].feedback = roomScaled
		r.combs[i].setDamp(dampScaled)
	}
}

// SetRoomSize sets the room size in [0,1].
func (r *Reverb) SetRoomSize(size float64) {
	r.roomSize = clamp01(size)
	r.updateParameters()
}

// SetDamping sets the damping amount in [0,1].
func (r *Reverb) SetDamping(damp float64) {
	r.damp = clamp01(damp)
	r.updateParameters()
}

// SetWet sets the wet send level in [0,1].
func (r *Reverb) SetWet(wet float64) {
	r.wet = clamp01(wet) * scaleWet
}

// Process runs one mono sample through the reverb tank and returns the wet
// signal only — the generator mixes dry/wet itself via its reverb-send level.
func (r *Reverb) Process(input float64) float64 {
	in := input * r.gain
	var out float64
	for _, c := range r.combs {
		out += c.process(in)
	}
	for _, a := range r.allpasses {
		out = a.process(out)
	}
	return out * r.wet
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
