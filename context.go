package gofretmidi

import (
	"fmt"

	"github.com/GeoffreyPlitt/debuggo"
)

var ctxDebug = debuggo.Debug("fretmidi:context")

// FingerID identifies one of the fixed pool of logical touches a Context tracks.
type FingerID int

// ChannelID identifies one of the 16 MIDI channels.
type ChannelID int

// PolyID identifies one of the fixed pool of polyphony groups.
type PolyID int

// NoneID is the sentinel value for FingerID/ChannelID/PolyID fields that
// point at nothing.
const NoneID = -1

const (
	// ChannelMax is the number of MIDI channels (fixed by the wire protocol).
	ChannelMax = 16
	// NoteMax is the number of distinct 12-ET notes tracked by the ledgers.
	NoteMax = 128

	bendCenter = 8192
)

// DefaultFingerMax and DefaultPolyMax size the fixed pools held by a Context. They can be
// overridden per Context via Config for embedders with a smaller
// touch/polyphony budget.
const (
	DefaultFingerMax = 16
	DefaultPolyMax   = 16
)

type contextState int

const (
	stateInit contextState = iota
	stateBooted
)

type finger struct {
	on                bool
	suppressed        bool
	channel           ChannelID
	note              int
	bend              int
	velocity          int
	polyGroup         PolyID
	visitingPolyGroup PolyID
	nextInPoly        FingerID
	prevInPoly        FingerID
	nextInChannel     FingerID
	prevInChannel     FingerID
}

func (f *finger) reset() {
	f.on = false
	f.suppressed = false
	f.channel = NoneID
	f.note = 0
	f.bend = bendCenter
	f.velocity = 0
	f.polyGroup = NoneID
	f.visitingPolyGroup = NoneID
	f.nextInPoly = NoneID
	f.prevInPoly = NoneID
	f.nextInChannel = NoneID
	f.prevInChannel = NoneID
}

type channel struct {
	lastBend       int
	lastAftertouch int
	currentFinger  FingerID
	useCount       int
}

type poly struct {
	currentFinger FingerID
}

// ByteSink receives the raw MIDI bytes an encoder emits. Implementations must
// be non-blocking, or the embedder must explicitly tolerate blocking inside
// a gesture call.
type ByteSink interface {
	PutByte(b byte)
	Flush()
}

// Diagnostics is the injected capability bundle for assertions, quiescent-OK
// notification, and informational logging.
type Diagnostics interface {
	// Fail reports a contract violation or internal invariant failure. The
	// embedder decides whether this aborts, panics, or is merely recorded.
	Fail(msg string)
	// Passed is invoked whenever self-test runs (at every return-to-idle) and
	// finds every invariant holding.
	Passed()
	// Log records a non-fatal, informational condition (e.g. a clamped
	// negative ledger residue, or a note-on balance above 1).
	Log(msg string)
}

// Hints are the user-controlled configuration knobs preserved across Boot.
type Hints struct {
	channelBase   int
	channelSpan   int
	bendSemis     int
	suppressBends bool
}

// DefaultHints returns the default configuration: base=0, span=8,
// bendSemis=2, suppressBends=false.
func DefaultHints() Hints {
	return Hints{channelBase: 0, channelSpan: 8, bendSemis: 2, suppressBends: false}
}

// Config bundles the dependencies and pool sizes used to construct a Context.
type Config struct {
	Sink        ByteSink
	Diagnostics Diagnostics
	FingerMax   int // 0 means DefaultFingerMax
	PolyMax     int // 0 means DefaultPolyMax
}

// Context holds all state for one independent gesture-to-MIDI encoder. A
// process may hold any number of contexts; none of them share mutable state.
// A Context is not safe for concurrent use by multiple goroutines; the
// caller must serialize calls on a given Context.
type Context struct {
	fingers  []finger
	channels [ChannelMax]channel
	polys    []poly

	state contextState

	lastAllocatedChannel ChannelID
	fingersDownCount     int

	downCount      [NoteMax][ChannelMax]int
	downRawBalance [NoteMax][ChannelMax]int

	hints Hints

	sink ByteSink
	diag Diagnostics

	fingerMax int
	polyMax   int
}

// New constructs a Context with the given Config and DefaultHints. The
// Context is not usable until Boot is called — only hint setters and Boot
// are legal before that.
func New(cfg Config) (*Context, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("gofretmidi: New: Config.Sink must not be nil")
	}
	if cfg.Diagnostics == nil {
		return nil, fmt.Errorf("gofretmidi: New: Config.Diagnostics must not be nil")
	}
	fingerMax := cfg.FingerMax
	if fingerMax == 0 {
		fingerMax = DefaultFingerMax
	}
	polyMax := cfg.PolyMax
	if polyMax == 0 {
		polyMax = DefaultPolyMax
	}
	if fingerMax <= 0 || fingerMax > 1<<20 {
		return nil, fmt.Errorf("gofretmidi: New: Config.FingerMax out of range: %d", fingerMax)
	}
	if polyMax <= 0 || polyMax > 1<<20 {
		return nil, fmt.Errorf("gofretmidi: New: Config.PolyMax out of range: %d", polyMax)
	}

	ctxDebug("Creating new context: fingerMax=%d polyMax=%d", fingerMax, polyMax)

	ctx := &Context{
		fingers:   make([]finger, fingerMax),
		polys:     make([]poly, polyMax),
		state:     stateInit,
		hints:     DefaultHints(),
		sink:      cfg.Sink,
		diag:      cfg.Diagnostics,
		fingerMax: fingerMax,
		polyMax:   polyMax,
	}
	return ctx, nil
}

func (c *Context) fail(format string, args ...interface{}) {
	c.diag.Fail(fmt.Sprintf(format, args...))
}

func (c *Context) log(format string, args ...interface{}) {
	c.diag.Log(fmt.Sprintf(format, args...))
}

func (c *Context) checkBooted() {
	if c.state != stateBooted {
		c.fail("context is not booted yet")
	}
}

func (c *Context) checkFinger(f FingerID) {
	if int(f) < 0 || int(f) >= c.fingerMax {
		c.fail("finger out of range %d", f)
	}
}

func (c *Context) checkPoly(p PolyID) {
	if int(p) < 0 || int(p) >= c.polyMax {
		c.fail("poly group out of range %d", p)
	}
}

func (c *Context) checkFnote(fnote float64) {
	if fnote < -0.5 || fnote >= 127.5 {
		c.fail("fnote out of range %f", fnote)
	}
}

// SetChannelBase sets the lowest channel in the contiguous span the
// allocator cycles across. Legal at any time; the allocator uses it from its
// next allocation, and the bend-range RPN for the new span goes out on the
// next Boot.
func (c *Context) SetChannelBase(base int) {
	if base < 0 || base >= ChannelMax {
		c.fail("channel base out of range: %d", base)
		return
	}
	c.hints.channelBase = base
	if c.hints.channelBase+c.hints.channelSpan > ChannelMax {
		c.hints.channelSpan = ChannelMax - c.hints.channelBase
	}
}

// ChannelBase returns the currently configured channel base.
func (c *Context) ChannelBase() int { return c.hints.channelBase }

// SetChannelSpan sets how many channels, starting at ChannelBase, the
// allocator cycles across.
func (c *Context) SetChannelSpan(span int) {
	if span < 1 || span > ChannelMax {
		c.fail("channel span out of range: %d", span)
		return
	}
	c.hints.channelSpan = span
	if c.hints.channelBase+c.hints.channelSpan > ChannelMax {
		c.hints.channelSpan = ChannelMax - c.hints.channelBase
	}
}

// ChannelSpan returns the currently configured channel span.
func (c *Context) ChannelSpan() int { return c.hints.channelSpan }

// SetBendSemis sets the number of semitones a maximized pitch bend spans. If
// the context is already booted, this immediately emits the pitch-bend-range
// RPN on every channel in the current span, so it is usable as a live patch
// change and not just a pre-boot configuration step.
func (c *Context) SetBendSemis(semitones int) {
	if semitones < 1 || semitones > 24 {
		c.fail("bend semitones out of range (MIDI spec limits to 24): %d", semitones)
		return
	}
	c.hints.bendSemis = semitones
	if c.state == stateBooted {
		c.emitBendRangeRPN()
	}
}

// BendSemis returns the currently configured bend width in semitones.
func (c *Context) BendSemis() int { return c.hints.bendSemis }

// SetSuppressBends sets whether pitch-bend (and channel-pressure) bytes are
// emitted at all. Useful for receivers that cannot track per-channel bend
// state reliably.
func (c *Context) SetSuppressBends(suppress bool) {
	c.hints.suppressBends = suppress
}

// SuppressBends reports the current suppress-bends setting.
func (c *Context) SuppressBends() bool { return c.hints.suppressBends }

func (c *Context) emitBendRangeRPN() {
	for s := 0; s < c.hints.channelSpan; s++ {
		ch := c.hints.channelBase + s
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(101)
		c.sink.PutByte(0)
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(100)
		c.sink.PutByte(0)
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(6)
		c.sink.PutByte(byte(c.hints.bendSemis))
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(38)
		c.sink.PutByte(0)
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(101)
		c.sink.PutByte(127)
		c.sink.PutByte(byte(0xB0 + ch))
		c.sink.PutByte(100)
		c.sink.PutByte(127)
	}
}

// Boot must be called before any operation other than the hint setters. It
// resets every channel, finger, poly group, and ledger to its default state
// without touching hints or injected dependencies, then emits the
// pitch-bend-range RPN for every channel in the configured span. It can be
// called again at any time fingers are all known to be up, to silently
// recover from a self-test failure without losing configuration.
func (c *Context) Boot() {
	ctxDebug("Booting context")

	for ci := 0; ci < ChannelMax; ci++ {
		c.channels[ci] = channel{
			lastBend:      bendCenter,
			useCount:      0,
			currentFinger: NoneID,
		}
		for n := 0; n < NoteMax; n++ {
			c.downCount[n][ci] = 0
			c.downRawBalance[n][ci] = 0
		}
	}
	for fi := range c.fingers {
		c.fingers[fi].reset()
	}
	for pi := range c.polys {
		c.polys[pi].currentFinger = NoneID
	}
	c.fingersDownCount = 0
	c.lastAllocatedChannel = 0

	if c.hints.channelSpan == 0 {
		c.fail("channelSpan == 0")
	}
	if c.hints.channelBase < 0 {
		c.fail("channelBase < 0: %d", c.hints.channelBase)
	}
	if c.hints.channelBase >= ChannelMax {
		c.fail("channelBase >= ChannelMax")
	}
	if c.hints.channelBase+c.hints.channelSpan > ChannelMax {
		c.fail("channelBase:%d + channelSpan:%d > ChannelMax", c.hints.channelBase, c.hints.channelSpan)
	}

	c.state = stateBooted
	c.emitBendRangeRPN()
}
