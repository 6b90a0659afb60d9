package gofretmidi

import "testing"

// TestBeginEndDownEmitsNoteOn: a single touch-down emits
// exactly Note-On, note 60, velocity 127 on its allocated channel.
func TestBeginEndDownEmitsNoteOn(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.Boot()
	sink.reset()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)
	requireNoFails(t, diag)

	want := []byte{0x90, 0x3C, 0x7F}
	if len(sink.bytes) != len(want) {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	for i := range want {
		if sink.bytes[i] != want[i] {
			t.Fatalf("emitted % X, want % X", sink.bytes, want)
		}
	}
}

// TestUpEmitsNoteOff covers the release half of a plain touch.
func TestUpEmitsNoteOff(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)
	sink.reset()

	ctx.Up(0, 0)
	requireNoFails(t, diag)

	want := []byte{0x90, 0x3C, 0x00}
	if len(sink.bytes) != len(want) || sink.bytes[0] != want[0] || sink.bytes[1] != want[1] || sink.bytes[2] != want[2] {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	if diag.passes == 0 {
		t.Error("releasing the last finger should trigger a passing self-test")
	}
}

// TestLegatoStackSuppressesAndTies: a second finger entering
// the same poly group silences the first (with a note-tie when legato==2)
// and becomes the sole audible voice.
func TestLegatoStackSuppressesAndTies(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(8)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, 0, 1.0, 0)
	if ctx.fingers[0].suppressed {
		t.Fatal("first finger in a poly group must not start suppressed")
	}

	sink.reset()
	ctx.BeginDown(1)
	ctx.EndDown(1, 64.0, 0, 1.0, 2)
	requireNoFails(t, diag)

	if !ctx.fingers[0].suppressed {
		t.Error("finger 0 should be suppressed once finger 1 takes the poly group")
	}
	if ctx.fingers[1].suppressed {
		t.Error("finger 1, the new top of the poly stack, must not be suppressed")
	}

	// Expect: note-tie (CC 99=9, 98=71, 6=<note>) on finger 0's channel,
	// then Note-Off for finger 0's note, then Note-On for finger 1's note.
	ch0 := byte(0x90 + int(ctx.fingers[0].channel))
	cc0 := byte(0xB0 + int(ctx.fingers[0].channel))
	wantPrefix := []byte{cc0, 99, 9, cc0, 98, 71, cc0, 6, 60, ch0, 60, 0}
	if len(sink.bytes) < len(wantPrefix) {
		t.Fatalf("emitted only %d bytes, want at least %d: % X", len(sink.bytes), len(wantPrefix), sink.bytes)
	}
	for i := range wantPrefix {
		if sink.bytes[i] != wantPrefix[i] {
			t.Fatalf("emitted % X, want prefix % X", sink.bytes, wantPrefix)
		}
	}
}

// TestLegatoReleaseRevealsAndRevoices covers the release half of a legato
// stack: lifting the top with legato > 0 emits the note-tie on the lifted
// finger's own channel, then its Note-Off, then re-voices the
// revealed finger on its original channel (bend re-sent, velocity inherited).
func TestLegatoReleaseRevealsAndRevoices(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(8)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, 5, 1.0, 2)
	ctx.BeginDown(1)
	ctx.EndDown(1, 62.0, 5, 1.0, 2)
	ch0 := int(ctx.fingers[0].channel)
	ch1 := int(ctx.fingers[1].channel)
	sink.reset()

	ctx.Up(1, 1)
	requireNoFails(t, diag)

	if ctx.fingers[0].suppressed {
		t.Error("finger 0 should be unsuppressed after the finger above it lifts")
	}
	want := []byte{
		byte(0xB0 + ch1), 99, 9, byte(0xB0 + ch1), 98, 71, byte(0xB0 + ch1), 6, 62,
		byte(0x90 + ch1), 62, 0,
		byte(0xE0 + ch0), 0x00, 0x40,
		byte(0x90 + ch0), 60, 127,
	}
	if len(sink.bytes) != len(want) {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	for i := range want {
		if sink.bytes[i] != want[i] {
			t.Fatalf("emitted % X, want % X", sink.bytes, want)
		}
	}

	ctx.Up(0, 0)
	requireNoFails(t, diag)
	if diag.passes == 0 {
		t.Error("returning to all-fingers-up should run a passing self-test")
	}
	if ctx.downRawBalance[60][ch0] != 0 || ctx.downRawBalance[62][ch1] != 0 {
		t.Error("ledgers must return to zero once the stack fully unwinds")
	}
}

// TestCollisionEmitsPreemptiveOff: two distinct fingers that
// land on the same (note, channel) pair cause a zero-velocity pre-emptive
// off before the second Note-On, so the receiver's note stays in sync.
func TestCollisionEmitsPreemptiveOff(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1) // force every finger onto channel 0
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)

	sink.reset()
	ctx.BeginDown(1)
	ctx.EndDown(1, 60.0, NoneID, 1.0, 0)
	requireNoFails(t, diag)

	want := []byte{0x90, 0x3C, 0x00, 0x90, 0x3C, 0x7F}
	if len(sink.bytes) != len(want) {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	for i := range want {
		if sink.bytes[i] != want[i] {
			t.Fatalf("emitted % X, want % X", sink.bytes, want)
		}
	}
}

// TestMoveWithinBendRangeOnlyBends: a glide that
// stays inside bendSemis emits only channel pressure and a pitch bend,
// never a re-trigger.
func TestMoveWithinBendRangeOnlyBends(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.SetBendSemis(2)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)
	sink.reset()

	ctx.Move(0, 61.0, 1.0, NoneID)
	requireNoFails(t, diag)

	// An in-range glide updates channel pressure (aftertouch) and then
	// pitch bend; it must never re-trigger a Note-On.
	want := []byte{0xD0, 127, 0xE0, 0x00, 0x60}
	if len(sink.bytes) != len(want) {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	for i := range want {
		if sink.bytes[i] != want[i] {
			t.Fatalf("emitted % X, want % X", sink.bytes, want)
		}
	}
	if ctx.fingers[0].note != 60 {
		t.Errorf("note after an in-range glide changed to %d, want unchanged 60", ctx.fingers[0].note)
	}
}

// TestMoveBeyondBendRangeRetriggers: a glide that exceeds
// bendSemis silently re-voices the finger at a new integer note via
// note-tie + up + begin/end-down.
func TestMoveBeyondBendRangeRetriggers(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.SetBendSemis(2)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)
	sink.reset()

	ctx.Move(0, 65.0, 1.0, NoneID)
	requireNoFails(t, diag)

	if ctx.fingers[0].note != 65 {
		t.Errorf("note after a 5-semitone glide = %d, want re-voiced to 65", ctx.fingers[0].note)
	}
	// The re-voicing must include a note-tie (CC 99=9) and end with a fresh
	// Note-On for note 65.
	foundTie := false
	for i := 0; i+2 < len(sink.bytes); i++ {
		if sink.bytes[i]&0xF0 == 0xB0 && sink.bytes[i+1] == 99 && sink.bytes[i+2] == 9 {
			foundTie = true
			break
		}
	}
	if !foundTie {
		t.Errorf("expected a note-tie marker in %X", sink.bytes)
	}
	last3 := sink.bytes[len(sink.bytes)-3:]
	if last3[0]&0xF0 != 0x90 || last3[1] != 65 {
		t.Errorf("final message = % X, want a Note-On for note 65", last3)
	}
}

// TestEndDownFractionalPitchEmitsBendFirst: a touch-down between two 12-ET
// notes emits the pitch bend before its Note-On, so the receiver never
// sounds the uncorrected pitch.
func TestEndDownFractionalPitchEmitsBendFirst(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.SetBendSemis(2)
	ctx.Boot()
	sink.reset()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.25, NoneID, 1.0, 0)
	requireNoFails(t, diag)

	// 60.25 rounds to note 60 with bend 8192 + 0.25*8192/2 = 9216.
	want := []byte{0xE0, 0x00, 0x48, 0x90, 0x3C, 0x7F}
	if len(sink.bytes) != len(want) {
		t.Fatalf("emitted % X, want % X", sink.bytes, want)
	}
	for i := range want {
		if sink.bytes[i] != want[i] {
			t.Fatalf("emitted % X, want % X", sink.bytes, want)
		}
	}
}

// TestMultiFingerSequenceReturnsToQuiescence drives a legato stack plus
// glides across two channels and verifies the context drains back to a
// clean, self-test-passing state with zeroed ledgers.
func TestMultiFingerSequenceReturnsToQuiescence(t *testing.T) {
	ctx, _, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(2)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, 3, 0.9, 2)
	ctx.BeginDown(1)
	ctx.EndDown(1, 62.3, 3, 0.8, 2)
	ctx.Move(1, 62.8, 0.8, NoneID)
	ctx.Up(1, 1)
	ctx.Up(0, 0)
	requireNoFails(t, diag)

	if diag.passes == 0 {
		t.Error("expected a passing self-test once every finger lifted")
	}
	for n := 0; n < NoteMax; n++ {
		for ch := 0; ch < ChannelMax; ch++ {
			if ctx.downCount[n][ch] != 0 || ctx.downRawBalance[n][ch] != 0 {
				t.Fatalf("ledger residue at note %d channel %d: count=%d balance=%d",
					n, ch, ctx.downCount[n][ch], ctx.downRawBalance[n][ch])
			}
		}
	}
	for ch := 0; ch < ChannelMax; ch++ {
		if ctx.channels[ch].useCount != 0 {
			t.Errorf("channel %d useCount = %d after full release", ch, ctx.channels[ch].useCount)
		}
	}
}

// TestRepeatedMoveEmitsNoRedundantBend: a second Move with identical fnote
// and velocity must emit zero bytes — bend and aftertouch are both
// rate-limited against the channel's last-emitted values.
func TestRepeatedMoveEmitsNoRedundantBend(t *testing.T) {
	ctx, sink, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.EndDown(0, 60.0, NoneID, 1.0, 0)
	ctx.Move(0, 61.0, 1.0, NoneID)
	sink.reset()

	ctx.Move(0, 61.0, 1.0, NoneID)
	requireNoFails(t, diag)

	if len(sink.bytes) != 0 {
		t.Errorf("second identical Move emitted % X, want nothing", sink.bytes)
	}
}

func TestVelocityNeverZero(t *testing.T) {
	if got := velocityToMIDI(0.0); got != 1 {
		t.Errorf("velocityToMIDI(0.0) = %d, want 1 (Note-On velocity must never be 0)", got)
	}
	if got := velocityToMIDI(1.0); got != 127 {
		t.Errorf("velocityToMIDI(1.0) = %d, want 127", got)
	}
}

func TestBeginDownRejectsDoubleDown(t *testing.T) {
	ctx, _, diag := newTestContext(t)
	ctx.BeginDown(0)
	ctx.BeginDown(0)
	if len(diag.fails) == 0 {
		t.Error("expected Fail when BeginDown is called twice on the same finger")
	}
}
