package gofretmidi

import "github.com/GeoffreyPlitt/debuggo"

var encDebug = debuggo.Debug("fretmidi:encoder")

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func velocityToMIDI(v float64) int {
	return clampInt(int(v*127), 1, 127)
}

func (c *Context) emitNoteOn(ch ChannelID, note, velocity int) {
	c.sink.PutByte(byte(0x90 + int(ch)))
	c.sink.PutByte(byte(note & 0x7F))
	c.sink.PutByte(byte(velocity & 0x7F))
}

// noteTie emits the manufacturer NRPN marker (controllers 99/98 carrying the
// pair (9,71), with the target note as the NRPN data value) that signals an
// inbound decoder to treat the following note-on as a legato continuation of
// the same voice rather than a fresh attack.
func (c *Context) noteTie(f FingerID) {
	fg := &c.fingers[f]
	ch := byte(0xB0 + int(fg.channel))
	c.sink.PutByte(ch)
	c.sink.PutByte(99)
	c.sink.PutByte(9)
	c.sink.PutByte(ch)
	c.sink.PutByte(98)
	c.sink.PutByte(71)
	c.sink.PutByte(ch)
	c.sink.PutByte(6)
	c.sink.PutByte(byte(fg.note & 0x7F))
}

// setCurrentBend emits a pitch bend for f's channel if f is the audible
// (currentFinger) occupant of that channel, its bend value actually changed
// since the last emission, and bends are not suppressed.
func (c *Context) setCurrentBend(f FingerID) {
	fg := &c.fingers[f]
	if fg.channel == NoneID {
		return
	}
	ch := &c.channels[fg.channel]
	if ch.lastBend == fg.bend {
		return
	}
	if ch.currentFinger != f || !fg.on || c.hints.suppressBends {
		return
	}
	c.sink.PutByte(byte(0xE0 + int(fg.channel)))
	c.sink.PutByte(byte(fg.bend & 0x7F))
	c.sink.PutByte(byte((fg.bend >> 7) & 0x7F))
	ch.lastBend = fg.bend
}

// setCurrentAftertouch emits channel pressure for f's channel under the same
// four-way gate as setCurrentBend: f must be the audible occupant, on, and
// bends (which channel pressure piggybacks on) must not be suppressed.
func (c *Context) setCurrentAftertouch(f FingerID, velocity float64) {
	fg := &c.fingers[f]
	if fg.channel == NoneID {
		return
	}
	v := velocityToMIDI(velocity)
	ch := &c.channels[fg.channel]
	if ch.lastAftertouch == v {
		return
	}
	if ch.currentFinger != f || !fg.on || c.hints.suppressBends {
		return
	}
	c.sink.PutByte(byte(0xD0 + int(fg.channel)))
	c.sink.PutByte(byte(v & 0x7F))
	ch.lastAftertouch = v
}

// BeginDown marks a finger as touched down and allocates it a channel. No
// bytes are emitted yet — the caller must follow with EndDown once the
// initial pitch and velocity are known.
func (c *Context) BeginDown(f FingerID) {
	c.checkBooted()
	c.checkFinger(f)
	fg := &c.fingers[f]
	if fg.on {
		c.fail("BeginDown: finger %d is already down", f)
		return
	}
	fg.on = true
	c.allocateChannel(f)
}

// EndDown completes a touch-down gesture begun with BeginDown: it computes
// the note/bend pair for fnote, links the finger into polyGroup (silencing
// whatever finger was previously audible in that group, with an optional
// note-tie if legato == 2), and emits the finger's own Note-On.
func (c *Context) EndDown(f FingerID, fnote float64, polyGroup PolyID, velocity float64, legato int) {
	c.checkBooted()
	c.checkFinger(f)
	c.checkFnote(fnote)

	fg := &c.fingers[f]
	if !fg.on {
		c.fail("EndDown: finger %d was not begun", f)
		return
	}

	note, bend := fnoteToNoteBend(fnote, c.hints.bendSemis)
	fg.note = note
	fg.bend = bend
	fg.velocity = velocityToMIDI(velocity)

	c.fingersDownCount++
	c.downCount[note][fg.channel]++

	// Only send a pre-emptive off if more than one logical finger is now
	// claiming (note,channel) — the common case of one finger per channel
	// never triggers this.
	if !fg.suppressed && c.downCount[note][fg.channel] > 1 {
		c.emitNoteOn(fg.channel, note, 0)
		c.downRawBalance[note][fg.channel]--
	}

	fingerTurningOff := c.linkPoly(f, polyGroup)
	c.setCurrentBend(f)

	if c.channels[fg.channel].currentFinger != f {
		c.fail("EndDown: finger %d should be current in channel because it's now down", f)
	}

	if fingerTurningOff != NoneID {
		off := &c.fingers[fingerTurningOff]
		if !off.on || !off.suppressed {
			c.fail("EndDown: finger %d being silenced is not on+suppressed", fingerTurningOff)
		}
		if legato == 2 {
			c.noteTie(fingerTurningOff)
		}
		c.emitNoteOn(off.channel, off.note, 0)
		c.downRawBalance[off.note][off.channel]--
	}

	c.emitNoteOn(fg.channel, fg.note, fg.velocity)
	c.downRawBalance[note][fg.channel]++
	if c.downRawBalance[note][fg.channel] > 1 {
		c.log("note-on balance for note %d channel %d exceeds 1 (%d)", note, fg.channel, c.downRawBalance[note][fg.channel])
	}

	encDebug("EndDown finger=%d note=%d channel=%d legato=%d", f, note, fg.channel, legato)
}

// Express sends a continuous-controller message on f's channel: the
// controller number is int(key) modulo 127 and the value is int(val*127)
// modulo 127, so out-of-range inputs wrap instead of failing. It is legal even while f is
// suppressed within its poly group — only a touched-down finger may express.
func (c *Context) Express(f FingerID, key, val float64) {
	c.checkBooted()
	c.checkFinger(f)
	fg := &c.fingers[f]
	if !fg.on {
		c.fail("Express: finger %d is not down", f)
		return
	}
	ccNum := int(key) % 127
	ccVal := int(val*127) % 127
	if ccNum < 0 {
		ccNum += 127
	}
	if ccVal < 0 {
		ccVal += 127
	}
	c.sink.PutByte(byte(0xB0 + int(fg.channel)))
	c.sink.PutByte(byte(ccNum))
	c.sink.PutByte(byte(ccVal))
}

// Move glides a touched-down finger to a new continuous pitch. If fnote
// stays within bendSemis of the finger's current integer note, this is a
// pure bend/aftertouch update; otherwise the finger is silently re-voiced
// (tied, released, and re-pressed) at the new integer note so the bend
// range never saturates.
func (c *Context) Move(f FingerID, fnote float64, velocity float64, polyGroup PolyID) {
	c.checkBooted()
	c.checkFinger(f)
	c.checkFnote(fnote)

	fg := &c.fingers[f]
	if !fg.on {
		c.fail("Move: finger %d is not down", f)
		return
	}
	if polyGroup != NoneID {
		c.checkPoly(polyGroup)
		fg.visitingPolyGroup = polyGroup
	}

	_, bend, unchanged := fnoteBendFromExisting(fnote, fg.note, c.hints.bendSemis)
	if unchanged {
		fg.bend = bend
		c.setCurrentAftertouch(f, velocity)
		c.setCurrentBend(f)
		return
	}

	existingPolyGroup := fg.polyGroup
	c.noteTie(f)
	c.Up(f, 1)
	c.BeginDown(f)
	c.EndDown(f, fnote, existingPolyGroup, velocity, 1)
}

// Up releases a touched-down finger. If it was the audible occupant of its
// poly group and no other finger is still holding the same (note,channel)
// pair, a zero-velocity Note-Off is emitted, preceded by a note-tie on the
// releasing finger when legato > 0 and a suppressed finger is revealed; a
// revealed finger beneath it in the poly group is then re-voiced. Self-test runs whenever this
// brings the context back to a fully-released state.
func (c *Context) Up(f FingerID, legato int) {
	c.checkBooted()
	c.checkFinger(f)

	fg := &c.fingers[f]
	if !fg.on {
		c.fail("Up: finger %d is not down", f)
		return
	}

	note := fg.note
	ch := fg.channel
	wasSuppressed := fg.suppressed

	revealed := c.unlinkPoly(f)

	c.downCount[note][ch]--

	if !wasSuppressed && c.downCount[note][ch] == 0 {
		// The tie goes out on the releasing finger's (note, channel), telling
		// the receiver the off that follows continues into the revealed voice.
		if revealed != NoneID && legato > 0 {
			c.noteTie(f)
		}
		c.emitNoteOn(ch, note, 0)
		c.downRawBalance[note][ch]--
	}

	if revealed != NoneID {
		rev := &c.fingers[revealed]
		if !rev.on || rev.suppressed {
			c.fail("Up: finger %d being revealed is not on+unsuppressed", revealed)
		}
		// Invalidate the channel's bend memory so the revealed finger's bend
		// always goes back out, even if it matches the stale value.
		c.channels[rev.channel].lastBend = -1
		c.setCurrentBend(revealed)
		rev.velocity = fg.velocity
		c.emitNoteOn(rev.channel, rev.note, rev.velocity)
		c.downRawBalance[rev.note][rev.channel]++
	}

	if c.downCount[note][ch] < 0 {
		c.fail("Up: downCount[%d][%d] == %d", note, ch, c.downCount[note][ch])
	}

	c.freeChannel(f)
	fg.reset()
	c.fingersDownCount--

	encDebug("Up finger=%d note=%d channel=%d revealed=%d", f, note, ch, revealed)

	if c.fingersDownCount <= 0 {
		c.selfTest()
	}
}

// Flush asks the byte sink to deliver any buffered bytes downstream now.
func (c *Context) Flush() {
	c.sink.Flush()
}
