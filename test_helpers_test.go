package gofretmidi

import "testing"

// fakeSink is a minimal ByteSink that records every emitted byte plus a
// marker for each Flush call, so tests can assert on exact wire output.
type fakeSink struct {
	bytes   []byte
	flushes int
}

func (s *fakeSink) PutByte(b byte) { s.bytes = append(s.bytes, b) }
func (s *fakeSink) Flush()         { s.flushes++ }

func (s *fakeSink) reset() {
	s.bytes = nil
	s.flushes = 0
}

// fakeDiag records Fail/Passed/Log calls instead of acting on them, so
// tests can assert a context stayed healthy (or caught exactly the
// violation being provoked).
type fakeDiag struct {
	fails  []string
	passes int
	logs   []string
}

func (d *fakeDiag) Fail(msg string) { d.fails = append(d.fails, msg) }
func (d *fakeDiag) Passed()         { d.passes++ }
func (d *fakeDiag) Log(msg string)  { d.logs = append(d.logs, msg) }

func newTestContext(t *testing.T) (*Context, *fakeSink, *fakeDiag) {
	t.Helper()
	sink := &fakeSink{}
	diag := &fakeDiag{}
	ctx, err := New(Config{Sink: sink, Diagnostics: diag})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx.Boot()
	sink.reset() // discard the boot-time bend-range RPN for readable assertions
	return ctx, sink, diag
}

func requireNoFails(t *testing.T, diag *fakeDiag) {
	t.Helper()
	if len(diag.fails) != 0 {
		t.Fatalf("unexpected Fail() calls: %v", diag.fails)
	}
}
