package gofretmidi

import "github.com/GeoffreyPlitt/debuggo"

var decDebug = debuggo.Debug("fretmidi:decoder")

// EngineCallback is invoked by a Decoder whenever a decoded MIDI message
// changes what a channel should be sounding: a note on/off, a pitch bend,
// or a channel-pressure update on an already-sounding channel. attack is
// true only for the one-shot "note tie" NRPN signal (manufacturer code
// 1223); it is always false for ordinary note-on/note-off/bend callbacks.
type EngineCallback func(channel int, attack bool, pitch float64, vol float64, exprParm int, expr int)

type decoderState int

const (
	expectStatus decoderState = iota
	expectOnNote
	expectOnVol
	expectOffNote
	expectOffVol
	expectBendLo
	expectBendHi
	expectCtrlNum
	expectNRPNKeyLo
	expectNRPNKeyHi
	expectRPNVal
	expectRPNKeyLo
	expectRPNKeyHi
	expectChannelPressure
	expectExpression
)

// Decoder is a byte-level state machine that reverses a subset of the wire
// protocol an encoder emits: note on/off, pitch bend, channel pressure, and
// the RPN (pitch-bend range) / manufacturer NRPN (note tie) messages. It
// holds one shared expect-register FSM (not one per channel), matching the
// single-threaded reference decoder: RPN/NRPN sequences are only decoded
// correctly if they are not interleaved with another channel's status bytes
// mid-sequence.
type Decoder struct {
	engine EngineCallback

	expect  decoderState
	channel int

	note [ChannelMax]int
	vol  [ChannelMax]int
	bend [ChannelMax]int

	pitchBendSemis int
	exprParm       int
	expr           int

	nrpnKeyLo    int
	nrpnKeyHi    int
	rpnKeyLo     int
	rpnKeyHi     int
	rpnVal       int
	isRegistered bool
}

// NewDecoder constructs a Decoder that is idle until Start is called.
func NewDecoder() *Decoder {
	d := &Decoder{
		expect:         expectStatus,
		pitchBendSemis: 2,
	}
	for ch := 0; ch < ChannelMax; ch++ {
		d.bend[ch] = bendCenter
	}
	return d
}

// Start registers the engine callback invoked for every decoded event.
func (d *Decoder) Start(engine EngineCallback) {
	d.engine = engine
}

// Stop clears the engine callback; subsequent decoded events are dropped.
func (d *Decoder) Stop() {
	d.engine = nil
}

func (d *Decoder) computePitch(ch int) float64 {
	return float64(d.note[ch]) + float64(d.pitchBendSemis)*float64(d.bend[ch]-bendCenter)/float64(bendCenter)
}

func (d *Decoder) computeVol(ch int) float64 {
	return float64(d.vol[ch]) / 127.0
}

func (d *Decoder) fire(ch int, attack bool) {
	if d.engine == nil {
		return
	}
	d.engine(ch, attack, d.computePitch(ch), d.computeVol(ch), d.exprParm, d.expr)
}

// PutByte feeds one inbound MIDI byte through the decoder FSM. Malformed or
// unrecognized input (an unrecognized status nibble, or a data byte arriving
// while a status byte was expected) is logged via debuggo and dropped — no
// panic, no error return.
func (d *Decoder) PutByte(b byte) {
	if d.expect == expectStatus {
		for ch := 0; ch < ChannelMax; ch++ {
			d.bend[ch] = bendCenter
		}
	}

	if b&0x80 != 0 {
		status := (b & 0xF0) >> 4
		d.channel = int(b & 0x0F)
		switch status {
		case 0x8:
			d.expect = expectOffNote
		case 0x9:
			d.expect = expectOnNote
		case 0xB:
			d.expect = expectCtrlNum
		case 0xD:
			d.expect = expectChannelPressure
		case 0xE:
			d.expect = expectBendLo
		default:
			decDebug("unrecognized status nibble 0x%X, dropping", status)
		}
		return
	}

	data := int(b & 0x7F)
	ch := d.channel

	switch d.expect {
	case expectOnNote:
		d.note[ch] = data
		d.expect = expectOnVol
	case expectOnVol:
		d.vol[ch] = data
		d.expect = expectOnNote
		d.fire(ch, false)
	case expectOffNote:
		d.note[ch] = data
		d.expect = expectOffVol
	case expectOffVol:
		d.vol[ch] = 0
		d.expect = expectOffNote
		d.fire(ch, false)
	case expectBendLo:
		d.bend[ch] = data
		d.expect = expectBendHi
	case expectBendHi:
		d.bend[ch] = (data << 7) + d.bend[ch]
		d.expect = expectBendLo
		d.fire(ch, false)
	case expectCtrlNum:
		switch data {
		case 0x63:
			d.expect = expectNRPNKeyLo
		case 0x62:
			d.expect = expectNRPNKeyHi
		case 101:
			d.expect = expectRPNKeyLo
		case 100:
			d.expect = expectRPNKeyHi
		case 0x06:
			d.expect = expectRPNVal
		case 11:
			d.expect = expectExpression
		default:
			decDebug("unrecognized controller %d on channel %d, dropping", data, ch)
		}
	case expectNRPNKeyLo:
		d.isRegistered = false
		d.nrpnKeyLo = data
	case expectNRPNKeyHi:
		d.isRegistered = false
		d.nrpnKeyHi = data
	case expectRPNKeyLo:
		d.isRegistered = true
		d.rpnKeyLo = data
	case expectRPNKeyHi:
		d.isRegistered = true
		d.rpnKeyHi = data
	case expectRPNVal:
		d.rpnVal = data
		if d.isRegistered && d.rpnKeyLo == 0 && d.rpnKeyHi == 0 {
			d.pitchBendSemis = d.rpnVal
		} else if !d.isRegistered && d.nrpnKeyLo == 9 && d.nrpnKeyHi == 71 {
			// The upcoming note-on/off pair on this channel is a legato
			// continuation, not a fresh attack. This is a one-shot signal
			// fired the instant the marker arrives, not a flag consumed by
			// the next note event.
			d.engineFireTie(ch)
		}
	case expectChannelPressure:
		if d.vol[ch] != 0 {
			d.vol[ch] = data
			d.fire(ch, false)
		}
	case expectExpression:
		d.exprParm = 11
		d.expr = data
	case expectStatus:
		decDebug("illegal state: data byte 0x%X arrived while expecting a status byte, dropping", b)
	default:
		decDebug("skipping unrecognized data byte 0x%X in state %d", b, d.expect)
	}
}

func (d *Decoder) engineFireTie(ch int) {
	if d.engine == nil {
		return
	}
	d.engine(ch, true, 0, 0, 0, 0)
}

// Flush is a no-op hint that a logical gesture boundary has passed; the
// decoder does no buffering of its own to synchronize.
func (d *Decoder) Flush() {}
