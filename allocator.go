package gofretmidi

import "github.com/GeoffreyPlitt/debuggo"

var allocDebug = debuggo.Debug("fretmidi:allocator")

// allocateChannel picks a channel for f using a least-use, rotating-start
// algorithm: starting just after the last channel handed out, it walks the
// configured span looking for the lowest use count, and among channels
// tied at that use count it picks the first one found past the rotation
// point. This spreads bends and aftertouch evenly across the span instead
// of always reusing channel zero.
func (c *Context) allocateChannel(f FingerID) ChannelID {
	c.checkBooted()
	c.checkFinger(f)

	base := c.hints.channelBase
	span := c.hints.channelSpan

	var chosen ChannelID = NoneID
	for lowUseCount := 0; chosen == NoneID; lowUseCount++ {
		for s := 0; s < span; s++ {
			candidate := int(c.lastAllocatedChannel) + 1 + s
			ch := ((candidate-base)%span+span)%span + base
			useCount := c.channels[ch].useCount
			if useCount < 0 {
				c.fail("channel %d has negative use count %d", ch, useCount)
				return NoneID
			}
			if useCount == lowUseCount {
				chosen = ChannelID(ch)
				break
			}
		}
		if lowUseCount > DefaultFingerMax*2 {
			c.fail("allocateChannel could not find a channel in the configured span")
			return NoneID
		}
	}

	ch := &c.channels[chosen]
	fg := &c.fingers[f]

	if ch.currentFinger != NoneID && c.fingers[ch.currentFinger].nextInChannel != NoneID {
		c.fail("allocateChannel: channel %d currentFinger already has a next occupant", chosen)
	}

	fg.channel = chosen
	fg.nextInChannel = NoneID
	fg.prevInChannel = ch.currentFinger
	if ch.currentFinger != NoneID {
		c.fingers[ch.currentFinger].nextInChannel = f
	}
	ch.currentFinger = f
	ch.useCount++

	c.lastAllocatedChannel = chosen
	allocDebug("allocated channel %d to finger %d (useCount now %d)", chosen, f, ch.useCount)
	return chosen
}

// freeChannel removes f from its channel's occupancy list and decrements
// the channel's use count. If f was the channel's currentFinger, occupancy
// is handed to the finger that was linked immediately before it.
func (c *Context) freeChannel(f FingerID) {
	c.checkBooted()
	c.checkFinger(f)

	fg := &c.fingers[f]
	if fg.channel == NoneID {
		c.fail("freeChannel: finger %d has no channel", f)
		return
	}
	ch := &c.channels[fg.channel]

	if ch.useCount <= 0 {
		c.fail("freeChannel: channel %d use count already %d", fg.channel, ch.useCount)
	} else {
		ch.useCount--
	}

	if fg.prevInChannel != NoneID {
		c.fingers[fg.prevInChannel].nextInChannel = fg.nextInChannel
	}
	if fg.nextInChannel != NoneID {
		c.fingers[fg.nextInChannel].prevInChannel = fg.prevInChannel
	}
	if ch.currentFinger == f {
		ch.currentFinger = fg.prevInChannel
	}

	allocDebug("freed channel %d from finger %d (useCount now %d)", fg.channel, f, ch.useCount)
	fg.channel = NoneID
	fg.prevInChannel = NoneID
	fg.nextInChannel = NoneID
}
