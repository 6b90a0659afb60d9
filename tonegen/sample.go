// Package tonegen is a minimal software tone generator for the inbound MIDI
// decoder: one timbre (a single loaded WAV or FLAC sample) played back
// pitch-shifted per decoded gesture. Embedders with a real synth engine can
// supply their own EngineCallback instead and skip this package entirely.
package tonegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

var sampleDebug = debuggo.Debug("fretmidi:tonegen:sample")

// Sample is one loaded audio file's PCM data, normalized to float64.
type Sample struct {
	FilePath   string
	Data       []float64
	SampleRate int
	Channels   int
	Length     int
}

// LoadSample loads a single WAV or FLAC file, dispatched by extension.
func LoadSample(filePath string) (*Sample, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tonegen: sample file not found: %s", filePath)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".wav":
		return loadWAV(filePath)
	case ".flac":
		return loadFLAC(filePath)
	default:
		return nil, fmt.Errorf("tonegen: unsupported audio format: %s (supported: .wav, .flac)", filePath)
	}
}

func loadWAV(filePath string) (*Sample, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("tonegen: failed to open WAV file %s: %w", filePath, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("tonegen: invalid WAV file: %s", filePath)
	}

	audioData, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("tonegen: failed to read audio data from %s: %w", filePath, err)
	}

	samples := make([]float64, len(audioData.Data))
	for i, s := range audioData.Data {
		samples[i] = normalize(int64(s), int(decoder.BitDepth))
	}

	sampleDebug("loaded WAV %s: rate=%d channels=%d", filePath, audioData.Format.SampleRate, audioData.Format.NumChannels)
	return &Sample{
		FilePath:   filePath,
		Data:       samples,
		SampleRate: int(audioData.Format.SampleRate),
		Channels:   int(audioData.Format.NumChannels),
		Length:     len(samples) / int(audioData.Format.NumChannels),
	}, nil
}

func loadFLAC(filePath string) (*Sample, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("tonegen: failed to open FLAC file %s: %w", filePath, err)
	}
	defer file.Close()

	stream, err := flac.New(file)
	if err != nil {
		return nil, fmt.Errorf("tonegen: failed to create FLAC decoder for %s: %w", filePath, err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitsPerSample := int(info.BitsPerSample)

	var allSamples []float64
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			break
		}
		for i := 0; i < len(frame.Subframes[0].Samples); i++ {
			for ch := 0; ch < channels; ch++ {
				allSamples = append(allSamples, normalize(int64(frame.Subframes[ch].Samples[i]), bitsPerSample))
			}
		}
	}

	sampleDebug("loaded FLAC %s: rate=%d channels=%d", filePath, info.SampleRate, channels)
	return &Sample{
		FilePath:   filePath,
		Data:       allSamples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
		Length:     len(allSamples) / channels,
	}, nil
}

func normalize(sample int64, bitsPerSample int) float64 {
	switch bitsPerSample {
	case 24:
		return float64(sample) / 8388608.0
	case 32:
		return float64(sample) / 2147483648.0
	default:
		return float64(sample) / 32768.0
	}
}
