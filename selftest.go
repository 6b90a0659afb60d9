package gofretmidi

import "github.com/GeoffreyPlitt/debuggo"

var selfTestDebug = debuggo.Debug("fretmidi:selftest")

// selfTest verifies every invariant from the data model whenever the context
// returns to "all fingers up" (fingersDownCount reaches zero). A negative
// downRawBalance residue is logged and clamped to zero — it indicates a
// spurious off emission elsewhere, not a stuck note, and is treated as
// benign. Anything else failing routes to Fail and is followed by a
// brute-force silence sweep (Note-On, note, 0 on every (note,channel) pair)
// and a fresh Boot, so the context recovers to a clean state without losing
// the caller's hints.
func (c *Context) selfTest() {
	passed := true

	if c.fingersDownCount == 0 {
		for ch := 0; ch < ChannelMax; ch++ {
			if c.channels[ch].useCount != 0 {
				c.fail("selfTest: channel %d useCount == %d with fingersDownCount == 0", ch, c.channels[ch].useCount)
				passed = false
			}
			for n := 0; n < NoteMax; n++ {
				if c.downCount[n][ch] != 0 {
					c.fail("selfTest: downCount[%d][%d] == %d", n, ch, c.downCount[n][ch])
					passed = false
				}
				if c.downRawBalance[n][ch] != 0 {
					if c.downRawBalance[n][ch] < 0 {
						found := c.downRawBalance[n][ch]
						c.downRawBalance[n][ch] = 0
						c.log("downRawBalance[%d][%d] == %d, clamping to 0", n, ch, found)
					} else {
						c.fail("selfTest: downRawBalance[%d][%d] == %d", n, ch, c.downRawBalance[n][ch])
						passed = false
					}
				}
			}
			if c.channels[ch].currentFinger != NoneID {
				c.fail("selfTest: channel %d currentFinger != NoneID", ch)
				passed = false
			}
		}
		for p := 0; p < c.polyMax; p++ {
			if c.polys[p].currentFinger != NoneID {
				c.fail("selfTest: poly group %d currentFinger != NoneID", p)
				passed = false
			}
		}
		for fi := 0; fi < c.fingerMax; fi++ {
			fg := &c.fingers[fi]
			if fg.on {
				c.fail("selfTest: finger %d is still on", fi)
				passed = false
			}
			if fg.nextInChannel != NoneID {
				c.fail("selfTest: finger %d nextInChannel != NoneID", fi)
				passed = false
			}
			if fg.prevInChannel != NoneID {
				c.fail("selfTest: finger %d prevInChannel != NoneID", fi)
				passed = false
			}
		}
	}

	if c.fingersDownCount < 0 {
		c.fail("selfTest: fingersDownCount == %d", c.fingersDownCount)
		passed = false
	}

	if passed {
		selfTestDebug("self-test passed at quiescence")
		c.diag.Passed()
		return
	}

	selfTestDebug("self-test failed, running brute-force silence sweep and rebooting")
	for n := 0; n < NoteMax; n++ {
		for ch := 0; ch < ChannelMax; ch++ {
			c.sink.PutByte(byte(0x90 + ch))
			c.sink.PutByte(byte(n & 0x7F))
			c.sink.PutByte(0)
		}
		c.sink.Flush()
	}
	c.Boot()
}
