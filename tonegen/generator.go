package tonegen

import (
	"fmt"

	"github.com/GeoffreyPlitt/debuggo"
)

var genDebug = debuggo.Debug("fretmidi:tonegen:generator")

const maxVoices = 16

// Generator is a fixed-size polyphonic, continuous-pitch tone generator
// driven one callback at a time by an inbound MIDI decoder. NoteEvent's
// signature matches the decoder's EngineCallback exactly, so a *Generator
// can be handed straight to Decoder.Start.
type Generator struct {
	sample     *Sample
	sampleRate int
	voices     [maxVoices]Voice

	reverb     *Reverb
	reverbSend float64
}

// NewGenerator loads one WAV or FLAC file as the generator's single timbre.
func NewGenerator(samplePath string, sampleRate int) (*Generator, error) {
	sample, err := LoadSample(samplePath)
	if err != nil {
		return nil, fmt.Errorf("tonegen: failed to create generator: %w", err)
	}
	g := &Generator{
		sample:     sample,
		sampleRate: sampleRate,
		reverb:     NewReverb(sampleRate),
	}
	genDebug("generator ready: sample=%s rate=%d", samplePath, sampleRate)
	return g, nil
}

// SetReverbSend sets the generator's reverb send level (0.0 to 1.0),
// mirroring SfzPlayer.SetReverbSend.
func (g *Generator) SetReverbSend(send float64) {
	g.reverbSend = clamp01(send)
}

// NoteEvent is an EngineCallback-shaped callback: attack true with zeroed
// pitch/vol is the note-tie marker and arms the channel's voice for a legato
// continuation; attack false with vol>0 (re)triggers a voice on channel;
// vol==0 releases it.
func (g *Generator) NoteEvent(channel int, attack bool, pitch float64, vol float64, exprParm int, expr int) {
	if attack && vol == 0 && pitch == 0 {
		g.tieNextFor(channel)
		return
	}
	if vol <= 0 {
		g.release(channel)
		return
	}
	g.trigger(channel, pitch, vol)
}

func (g *Generator) findVoice(channel int) *Voice {
	for i := range g.voices {
		if g.voices[i].active && g.voices[i].channel == channel {
			return &g.voices[i]
		}
	}
	return nil
}

func (g *Generator) allocVoice() *Voice {
	for i := range g.voices {
		if !g.voices[i].active {
			return &g.voices[i]
		}
	}
	// Steal the voice in the first slot rather than drop the new note.
	return &g.voices[0]
}

func (g *Generator) tieNextFor(channel int) {
	if v := g.findVoice(channel); v != nil {
		v.tieArmed = true
	}
}

func (g *Generator) trigger(channel int, pitch, vol float64) {
	existing := g.findVoice(channel)
	v := existing
	if v == nil {
		v = g.allocVoice()
	}
	tie := v == existing && v.tieArmed
	v.tieArmed = false
	v.start(g.sample, channel, pitch, vol, g.sampleRate, tie)
}

func (g *Generator) release(channel int) {
	if v := g.findVoice(channel); v != nil {
		v.release()
	}
}

// Render mixes every active voice into out (mono, additive), then applies
// the reverb send and sums dry+wet, mirroring SfzPlayer's reverb send model.
func (g *Generator) Render(out []float64) {
	for i := range out {
		out[i] = 0
	}
	for i := range g.voices {
		g.voices[i].render(out)
	}
	if g.reverbSend <= 0 {
		return
	}
	for i := range out {
		wet := g.reverb.Process(out[i])
		out[i] = out[i]*(1-g.reverbSend) + wet*g.reverbSend
	}
}
