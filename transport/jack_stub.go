//go:build !jack
// +build !jack

package transport

import "fmt"

// JACKByteSink stub for builds without JACK support.
type JACKByteSink struct{}

// PutByter mirrors the build-tagged file's interface so callers compile
// either way.
type PutByter interface {
	PutByte(b byte)
}

// DecoderSource stub for builds without JACK support.
type DecoderSource struct{}

// Start is a no-op for the stub source.
func (s *DecoderSource) Start(d PutByter) {}

// Stop is a no-op for the stub source.
func (s *DecoderSource) Stop() {}

// NewJACKByteSink returns an error: rebuild with '-tags jack' and JACK
// development headers installed to get a real transport.
func NewJACKByteSink(clientName string) (*JACKByteSink, error) {
	return nil, fmt.Errorf("transport: JACK support not enabled - rebuild with '-tags jack' and ensure JACK development headers are installed")
}

// PutByte is a no-op for the stub sink.
func (s *JACKByteSink) PutByte(b byte) {}

// Flush is a no-op for the stub sink.
func (s *JACKByteSink) Flush() {}

// Source returns a no-op DecoderSource stub.
func (s *JACKByteSink) Source() *DecoderSource {
	return &DecoderSource{}
}

// Close does nothing for the stub sink except return an error.
func (s *JACKByteSink) Close() error {
	return fmt.Errorf("transport: JACK support not enabled")
}
