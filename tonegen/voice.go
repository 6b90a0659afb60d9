package tonegen

import "math"

// envelopeState tracks a voice's position in a simple linear ADSR with
// fixed stage timings.
type envelopeState int

const (
	EnvelopeAttack envelopeState = iota
	EnvelopeDecay
	EnvelopeSustain
	EnvelopeRelease
	EnvelopeOff
)

const (
	attackSeconds  = 0.005
	decaySeconds   = 0.05
	sustainLevel   = 0.8
	releaseSeconds = 0.15
)

// Voice is one active continuous-pitch playback of the generator's single
// loaded sample, driven by a decoded (channel, pitch, vol) event rather than
// a fixed 12-ET MIDI note.
type Voice struct {
	sample   *Sample
	channel  int
	position float64
	pitch    float64
	vol      float64

	envelopeState envelopeState
	envelopeLevel float64
	attackRate    float64
	decayRate     float64
	releaseRate   float64

	active   bool
	tieArmed bool
}

// start (re)triggers the voice at pitch/vol, resetting its envelope to
// Attack and its playback position to the start of the sample — unless tie
// is set, in which case the existing playback position and envelope level
// are preserved (a legato continuation, matching the note-tie NRPN's
// intent: the upcoming note-on is not a fresh articulation).
func (v *Voice) start(sample *Sample, channel int, pitch, vol float64, sampleRate int, tie bool) {
	v.sample = sample
	v.channel = channel
	v.pitch = pitch
	v.vol = vol
	v.active = true

	v.attackRate = 1.0 / (attackSeconds * float64(sampleRate))
	v.decayRate = (1.0 - sustainLevel) / (decaySeconds * float64(sampleRate))
	v.releaseRate = sustainLevel / (releaseSeconds * float64(sampleRate))

	if !tie {
		v.position = 0
		v.envelopeState = EnvelopeAttack
		v.envelopeLevel = 0
	}
}

// release begins the release stage; the voice keeps sounding (decaying)
// until processEnvelope reports it has reached zero.
func (v *Voice) release() {
	if v.active {
		v.envelopeState = EnvelopeRelease
	}
}

func (v *Voice) processEnvelope() float64 {
	switch v.envelopeState {
	case EnvelopeAttack:
		v.envelopeLevel += v.attackRate
		if v.envelopeLevel >= 1.0 {
			v.envelopeLevel = 1.0
			v.envelopeState = EnvelopeDecay
		}
	case EnvelopeDecay:
		v.envelopeLevel -= v.decayRate
		if v.envelopeLevel <= sustainLevel {
			v.envelopeLevel = sustainLevel
			v.envelopeState = EnvelopeSustain
		}
	case EnvelopeSustain:
		// holds at sustainLevel until release() is called
	case EnvelopeRelease:
		v.envelopeLevel -= v.releaseRate
		if v.envelopeLevel <= 0 {
			v.envelopeLevel = 0
			v.envelopeState = EnvelopeOff
			v.active = false
		}
	}
	return v.envelopeLevel
}

// pitchRatio converts the voice's continuous MIDI pitch to a sample
// playback-rate multiplier, treating 60 (middle C) as the sample's
// recorded pitch.
func (v *Voice) pitchRatio() float64 {
	return math.Pow(2.0, (v.pitch-60.0)/12.0)
}

func (v *Voice) render(out []float64) {
	if !v.active || v.sample == nil {
		return
	}
	ratio := v.pitchRatio()
	samplesPerFrame := 1
	maxFrames := len(v.sample.Data)
	if v.sample.Channels > 1 {
		samplesPerFrame = v.sample.Channels
		maxFrames = len(v.sample.Data) / samplesPerFrame
	}

	for i := range out {
		level := v.processEnvelope()
		if !v.active && level <= 0 {
			break
		}

		intPos := int(v.position)
		if intPos >= maxFrames {
			v.active = false
			break
		}
		frac := v.position - float64(intPos)

		s1 := v.sample.Data[intPos*samplesPerFrame]
		s2 := s1
		if intPos+1 < maxFrames {
			s2 = v.sample.Data[(intPos+1)*samplesPerFrame]
		}
		sampleValue := s1 + frac*(s2-s1)

		out[i] += sampleValue * v.vol * level
		v.position += ratio
	}
}
