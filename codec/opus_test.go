package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpusPacketSamples(t *testing.T) {
	tests := []struct {
		name    string
		packet  []byte
		want    int
		wantErr error
	}{
		{name: "SILK NB 10 ms", packet: []byte{0 << 3}, want: 480},
		{name: "SILK WB 20 ms", packet: []byte{9 << 3}, want: 960},
		{name: "SILK 60 ms", packet: []byte{3 << 3}, want: 2880},
		{name: "hybrid SWB 10 ms", packet: []byte{12 << 3}, want: 480},
		{name: "hybrid FB 20 ms", packet: []byte{15 << 3}, want: 960},
		{name: "CELT 2.5 ms", packet: []byte{16 << 3}, want: 120},
		{name: "CELT FB 20 ms", packet: []byte{31 << 3}, want: 960},
		{name: "two equal frames", packet: []byte{1<<3 | 1}, want: 1920},
		{name: "two different frames", packet: []byte{31<<3 | 2}, want: 1920},
		{name: "arbitrary count", packet: []byte{31<<3 | 3, 3}, want: 2880},
		{name: "count ignores padding flags", packet: []byte{16<<3 | 3, 0xC4}, want: 480},
		{name: "missing count byte", packet: []byte{31<<3 | 3}, wantErr: ErrMalformedOpus},
		{name: "zero count", packet: []byte{31<<3 | 3, 0}, wantErr: ErrMalformedOpus},
		{name: "longer than 120 ms", packet: []byte{3<<3 | 3, 3}, wantErr: ErrMalformedOpus},
		{name: "empty", packet: nil, wantErr: ErrEmptyPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OpusPacketSamples(tt.packet)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpusDecoderFormat(t *testing.T) {
	d := NewOpusDecoder()
	assert.Equal(t, Format{SampleRate: OpusSampleRate, Channels: 1}, d.Format())
	assert.Equal(t, "opus", d.Name())

	_, err := d.Decode([]byte{31<<3 | 3})
	assert.ErrorIs(t, err, ErrMalformedOpus)
}
