package gofretmidi

import "testing"

// TestAllocateChannelRoundRobinsLeastUsed exercises the allocator's
// least-use, rotating-start selection: with span 2 and two fingers pressed
// simultaneously, each must land on a distinct channel.
func TestAllocateChannelRoundRobinsLeastUsed(t *testing.T) {
	ctx, _, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(2)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.BeginDown(1)
	requireNoFails(t, diag)

	ch0 := ctx.fingers[0].channel
	ch1 := ctx.fingers[1].channel
	if ch0 == ch1 {
		t.Fatalf("two simultaneous fingers landed on the same channel %d", ch0)
	}
	if ctx.ChannelOccupancy(ch0) != 1 || ctx.ChannelOccupancy(ch1) != 1 {
		t.Errorf("expected useCount 1 on both allocated channels")
	}
}

// The channel occupancy list's head (currentFinger) must always have
// nextInChannel == NoneID; this was previously broken (new fingers linked
// backwards).
func TestAllocateChannelHeadHasNoNext(t *testing.T) {
	ctx, _, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1) // force both fingers onto channel 0
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.BeginDown(1)
	requireNoFails(t, diag)

	ch := ctx.fingers[1].channel
	head := ctx.channels[ch].currentFinger
	if head != 1 {
		t.Fatalf("currentFinger = %d, want 1 (the most recently allocated finger)", head)
	}
	if ctx.fingers[head].nextInChannel != NoneID {
		t.Errorf("head finger's nextInChannel = %d, want NoneID", ctx.fingers[head].nextInChannel)
	}
	if ctx.fingers[head].prevInChannel != 0 {
		t.Errorf("head finger's prevInChannel = %d, want 0 (the older occupant)", ctx.fingers[head].prevInChannel)
	}
	if ctx.fingers[0].nextInChannel != 1 {
		t.Errorf("older finger's nextInChannel = %d, want 1", ctx.fingers[0].nextInChannel)
	}
}

func TestFreeChannelHandsOccupancyToPredecessor(t *testing.T) {
	ctx, _, diag := newTestContext(t)
	ctx.SetChannelBase(0)
	ctx.SetChannelSpan(1)
	ctx.Boot()

	ctx.BeginDown(0)
	ctx.BeginDown(1)
	ch := ctx.fingers[1].channel

	ctx.freeChannel(1)
	requireNoFails(t, diag)

	if ctx.channels[ch].currentFinger != 0 {
		t.Errorf("currentFinger after freeing head = %d, want 0", ctx.channels[ch].currentFinger)
	}
	if ctx.fingers[0].nextInChannel != NoneID {
		t.Errorf("remaining finger's nextInChannel = %d, want NoneID", ctx.fingers[0].nextInChannel)
	}
	if ctx.channels[ch].useCount != 1 {
		t.Errorf("useCount after freeing one of two occupants = %d, want 1", ctx.channels[ch].useCount)
	}
}
