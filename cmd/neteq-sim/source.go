package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/opd-ai/neteq/simulation"
)

// mp3Channels is the layout go-mp3 always decodes to.
const mp3Channels = 2

// loadMP3 decodes a whole MP3 file into an interleaved stereo source at the
// file's sample rate.
func loadMP3(path string) (*simulation.PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return decodeMP3(f)
}

func decodeMP3(r io.Reader) (*simulation.PCMSource, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	pcm := make([]float32, len(data)/2)
	for i := range pcm {
		pcm[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return simulation.NewPCMSource(pcm, uint32(decoder.SampleRate()), mp3Channels), nil
}
