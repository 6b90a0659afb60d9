// Package transport provides concrete byte transports for the gofretmidi
// encoder and decoder: an in-memory BufferSink, and (behind the jack build
// tag) a real JACK MIDI client. The encoder itself only ever talks to the
// ByteSink interface, so everything here is optional.
package transport

// BufferSink is a trivial in-memory gofretmidi.ByteSink: it accumulates
// emitted bytes in a slice, with Flush() recording a boundary marker. This
// is what test suites use in place of real hardware.
type BufferSink struct {
	Bytes         []byte
	FlushBoundary []int
}

// NewBufferSink returns an empty BufferSink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// PutByte appends b to the accumulated byte stream.
func (s *BufferSink) PutByte(b byte) {
	s.Bytes = append(s.Bytes, b)
}

// Flush records the current stream length as a flush boundary.
func (s *BufferSink) Flush() {
	s.FlushBoundary = append(s.FlushBoundary, len(s.Bytes))
}

// Reset clears all accumulated bytes and flush boundaries.
func (s *BufferSink) Reset() {
	s.Bytes = s.Bytes[:0]
	s.FlushBoundary = s.FlushBoundary[:0]
}
