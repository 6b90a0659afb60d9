//go:build jack
// +build jack

package transport

import (
	"fmt"
	"sync"

	"github.com/GeoffreyPlitt/debuggo"
	jack "github.com/xthexder/go-jack"
)

var jackDebug = debuggo.Debug("fretmidi:transport:jack")

// maxPendingMIDI bounds the queue of bytes waiting to be drained into a
// JACK process cycle; a stuck/disconnected port should not grow unbounded.
const maxPendingMIDI = 4096

// JACKByteSink is a real MIDI transport backed by a JACK client with one
// MIDI-out port (carrying the encoder's emitted bytes) and one MIDI-in port.
// Pairing the in port with a decoder is the separate DecoderSource half
// (see Source).
type JACKByteSink struct {
	client  *jack.Client
	midiOut *jack.Port
	midiIn  *jack.Port
	decoder PutByter

	mu      sync.Mutex
	pending []byte
}

// PutByter is satisfied by gofretmidi.Decoder; kept local to transport so
// this package need not import gofretmidi.
type PutByter interface {
	PutByte(b byte)
}

// DecoderSource feeds a JACKByteSink's MIDI-in port, byte by byte, to a
// decoder. Obtained via JACKByteSink.Source.
type DecoderSource struct {
	sink *JACKByteSink
}

// Start arms byte forwarding from the JACK MIDI-in port to d, beginning on
// the next process cycle.
func (s *DecoderSource) Start(d PutByter) {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()
	s.sink.decoder = d
}

// Stop disarms byte forwarding.
func (s *DecoderSource) Stop() {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()
	s.sink.decoder = nil
}

// NewJACKByteSink opens a JACK client named clientName with one MIDI output
// port (this sink's emitted bytes) and one MIDI input port (forwarded, byte
// by byte, to whatever decoder Source().Start attaches, if any).
func NewJACKByteSink(clientName string) (*JACKByteSink, error) {
	jackDebug("opening JACK client: %s", clientName)

	client, err := jack.ClientOpen(clientName, jack.NoStartServer)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to open JACK client: %w", err)
	}

	midiOut, err := client.PortRegister("midi_out", jack.DEFAULT_MIDI_TYPE, jack.PortIsOutput, 0)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: failed to register MIDI output port: %w", err)
	}

	midiIn, err := client.PortRegister("midi_in", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput, 0)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: failed to register MIDI input port: %w", err)
	}

	sink := &JACKByteSink{
		client:  client,
		midiOut: midiOut,
		midiIn:  midiIn,
	}

	client.SetProcessCallback(sink.processCallback)

	if err := client.Activate(); err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: failed to activate JACK client: %w", err)
	}

	jackDebug("JACK MIDI client activated: %s", clientName)
	return sink, nil
}

// PutByte queues b for emission on the next JACK process cycle.
// Implements gofretmidi.ByteSink.
func (s *JACKByteSink) PutByte(b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= maxPendingMIDI {
		jackDebug("Warning: MIDI out queue full, dropping byte 0x%02x", b)
		return
	}
	s.pending = append(s.pending, b)
}

// Flush is a no-op: bytes drain on the JACK thread's own cadence.
// Implements gofretmidi.ByteSink.
func (s *JACKByteSink) Flush() {}

// Source returns the DecoderSource half of this client, for forwarding the
// JACK MIDI-in port to a decoder.
func (s *JACKByteSink) Source() *DecoderSource {
	return &DecoderSource{sink: s}
}

// Close deactivates and closes the underlying JACK client.
func (s *JACKByteSink) Close() error {
	if err := s.client.Deactivate(); err != nil {
		jackDebug("Warning: deactivate failed: %v", err)
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("transport: failed to close JACK client: %w", err)
	}
	return nil
}

// messageLength returns the total byte count of the MIDI message starting at
// status, for the subset of the protocol the encoder emits (program change
// and channel pressure are two bytes, everything else three).
func messageLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 2
	default:
		return 3
	}
}

func (s *JACKByteSink) processCallback(nframes uint32) int {
	outBuf := s.midiOut.GetBuffer(nframes)
	jack.MidiClearBuffer(outBuf)

	s.mu.Lock()
	toWrite := s.pending
	s.pending = nil
	decoder := s.decoder
	s.mu.Unlock()

	// JACK MIDI events carry whole messages, not raw bytes: walk the queue
	// splitting on status bytes. A trailing incomplete message is pushed back
	// for the next cycle.
	i := 0
	for i < len(toWrite) {
		if toWrite[i]&0x80 == 0 {
			jackDebug("Warning: dropping stray data byte 0x%02x", toWrite[i])
			i++
			continue
		}
		n := messageLength(toWrite[i])
		if i+n > len(toWrite) {
			break
		}
		jack.MidiEventWrite(outBuf, &jack.MidiData{Time: 0, Buffer: toWrite[i : i+n]})
		i += n
	}
	if i < len(toWrite) {
		s.mu.Lock()
		s.pending = append(toWrite[i:], s.pending...)
		s.mu.Unlock()
	}

	if decoder != nil {
		inBuf := s.midiIn.GetBuffer(nframes)
		count := jack.MidiGetEventCount(inBuf)
		for i := uint32(0); i < count; i++ {
			event, err := jack.MidiEventGet(inBuf, i)
			if err != nil {
				continue
			}
			for _, b := range event.Buffer {
				decoder.PutByte(b)
			}
		}
	}

	return 0
}
