package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"relayforge/internal/ports"
)

const (
	sampleRate    = 16000
	wordsPerSec   = 2.5
	maxDurationS  = 90
	wavHeaderSize = 44
)

// WavSynthesizer renders a silent narration track sized to the script.
// It stands in for the voice model while producing real, playable WAV
// bytes with the correct container layout.
type WavSynthesizer struct{}

var _ ports.MediaSynthesizer = (*WavSynthesizer)(nil)

// NewWavSynthesizer returns the placeholder synthesizer.
func NewWavSynthesizer() *WavSynthesizer {
	return &WavSynthesizer{}
}

// Synthesize renders PCM16 mono audio whose duration tracks the script's
// word count at a natural speaking rate.
func (s *WavSynthesizer) Synthesize(_ context.Context, script string) ([]byte, string, error) {
	if strings.TrimSpace(script) == "" {
		return nil, "", fmt.Errorf("empty script")
	}

	seconds := float64(len(strings.Fields(script))) / wordsPerSec
	if seconds < 1 {
		seconds = 1
	}
	if seconds > maxDurationS {
		seconds = maxDurationS
	}

	samples := int(seconds * sampleRate)
	dataSize := samples * 2

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	return buf.Bytes(), "audio/wav", nil
}
