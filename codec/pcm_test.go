package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.5, -1}
	d := NewPCM16Decoder(16000, 1)

	out, err := d.Decode(PCM16Encode(in))
	require.NoError(t, err)
	assert.InDeltaSlice(t, in, out, 1.0/32768)
}

func TestPCM16EncodeClips(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want []byte
	}{
		{name: "positive overflow", in: 1.5, want: []byte{0x7F, 0xFF}},
		{name: "full scale positive", in: 1, want: []byte{0x7F, 0xFF}},
		{name: "negative overflow", in: -2, want: []byte{0x80, 0x00}},
		{name: "zero", in: 0, want: []byte{0x00, 0x00}},
		{name: "half", in: 0.5, want: []byte{0x40, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PCM16Encode([]float32{tt.in}))
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		decoder Decoder
		payload []byte
		wantErr error
	}{
		{name: "L16 empty", decoder: NewPCM16Decoder(8000, 1), payload: nil, wantErr: ErrEmptyPayload},
		{name: "L16 odd bytes", decoder: NewPCM16Decoder(8000, 1), payload: []byte{1, 2, 3}, wantErr: ErrTruncatedPayload},
		{name: "L16 partial stereo frame", decoder: NewPCM16Decoder(8000, 2), payload: []byte{1, 2}, wantErr: ErrTruncatedPayload},
		{name: "F32 empty", decoder: NewFloat32Decoder(8000, 1), payload: []byte{}, wantErr: ErrEmptyPayload},
		{name: "F32 short", decoder: NewFloat32Decoder(8000, 1), payload: []byte{1, 2, 3}, wantErr: ErrTruncatedPayload},
		{name: "opus empty", decoder: NewOpusDecoder(), payload: nil, wantErr: ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.decoder.Decode(tt.payload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	in := []float32{0.1, -0.7, 1e-6, 0.999}
	d := NewFloat32Decoder(48000, 2)

	out, err := d.Decode(Float32Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "F32", d.Name())
	assert.Equal(t, Format{SampleRate: 48000, Channels: 2}, d.Format())
}
