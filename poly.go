package gofretmidi

import "github.com/GeoffreyPlitt/debuggo"

var polyDebug = debuggo.Debug("fretmidi:poly")

// linkPoly pushes f onto the LIFO stack for poly group p, suppressing
// whichever finger was previously at the top (if any) and returning it so
// the caller can decide what to do about the note it was sounding (the
// encoder turns it into a pre-emptive note-off). The newly linked finger
// itself is never suppressed — it is always the audible one immediately
// after linking.
func (c *Context) linkPoly(f FingerID, p PolyID) FingerID {
	c.checkFinger(f)
	if p == NoneID {
		fg := &c.fingers[f]
		fg.polyGroup = NoneID
		fg.nextInPoly = NoneID
		fg.prevInPoly = NoneID
		return NoneID
	}
	c.checkPoly(p)

	fg := &c.fingers[f]
	group := &c.polys[p]

	previousTop := group.currentFinger
	if previousTop != NoneID {
		c.fingers[previousTop].suppressed = true
	}

	fg.polyGroup = p
	fg.suppressed = false
	fg.prevInPoly = previousTop
	fg.nextInPoly = NoneID
	if previousTop != NoneID {
		c.fingers[previousTop].nextInPoly = f
	}
	group.currentFinger = f

	polyDebug("linked finger %d onto poly group %d (suppressing %d)", f, p, previousTop)
	return previousTop
}

// unlinkPoly removes f from its poly group's stack. If f was the group's
// top (the audible one), the finger immediately beneath it, if any, is
// unsuppressed and becomes the new top; unlinkPoly returns that finger so
// the caller can re-voice it. It returns NoneID if f was not the group's
// top, or if there was nothing beneath it.
func (c *Context) unlinkPoly(f FingerID) FingerID {
	c.checkFinger(f)

	fg := &c.fingers[f]
	if fg.polyGroup == NoneID {
		return NoneID
	}
	p := fg.polyGroup
	group := &c.polys[p]

	wasTop := group.currentFinger == f
	revealed := FingerID(NoneID)

	if fg.prevInPoly != NoneID {
		c.fingers[fg.prevInPoly].nextInPoly = fg.nextInPoly
	}
	if fg.nextInPoly != NoneID {
		c.fingers[fg.nextInPoly].prevInPoly = fg.prevInPoly
	}

	if wasTop {
		group.currentFinger = fg.prevInPoly
		if fg.prevInPoly != NoneID {
			c.fingers[fg.prevInPoly].suppressed = false
			revealed = fg.prevInPoly
		}
	}

	fg.polyGroup = NoneID
	fg.prevInPoly = NoneID
	fg.nextInPoly = NoneID

	polyDebug("unlinked finger %d from poly group %d (revealed %d)", f, p, revealed)
	return revealed
}
