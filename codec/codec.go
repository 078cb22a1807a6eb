package codec

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Format describes decoded PCM.
type Format struct {
	SampleRate uint32
	Channels   uint8
}

// Validate checks that the format can describe audio.
func (f Format) Validate() error {
	if f.SampleRate == 0 || f.Channels == 0 {
		return fmt.Errorf("%w: %d Hz x%d", ErrInvalidFormat, f.SampleRate, f.Channels)
	}
	return nil
}

// Decoder converts one RTP payload into interleaved float32 samples in
// [-1, 1].
type Decoder interface {
	// Decode returns the samples carried by payload.
	Decode(payload []byte) ([]float32, error)
	// Format returns the layout of decoded samples.
	Format() Format
	// Name identifies the codec in logs and statistics.
	Name() string
}

// Registry maps RTP payload types to decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[uint8]Decoder
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint8]Decoder)}
}

// Register binds a decoder to a payload type.
func (r *Registry) Register(payloadType uint8, d Decoder) error {
	if payloadType > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidPayloadType, payloadType)
	}
	if d == nil {
		return fmt.Errorf("%w: nil decoder for %d", ErrInvalidFormat, payloadType)
	}
	if err := d.Format().Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.decoders[payloadType]; ok {
		return fmt.Errorf("%w: %d is %s", ErrPayloadTypeInUse, payloadType, existing.Name())
	}
	r.decoders[payloadType] = d

	logrus.WithFields(logrus.Fields{
		"function":     "Registry.Register",
		"payload_type": payloadType,
		"codec":        d.Name(),
		"sample_rate":  d.Format().SampleRate,
		"channels":     d.Format().Channels,
	}).Info("Registered decoder")
	return nil
}

// Unregister removes the decoder bound to a payload type.
func (r *Registry) Unregister(payloadType uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.decoders, payloadType)
}

// Lookup returns the decoder for a payload type.
func (r *Registry) Lookup(payloadType uint8) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[payloadType]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPayloadType, payloadType)
	}
	return d, nil
}

// Decode decodes payload with the decoder registered for payloadType.
func (r *Registry) Decode(payloadType uint8, payload []byte) ([]float32, Format, error) {
	d, err := r.Lookup(payloadType)
	if err != nil {
		return nil, Format{}, err
	}
	pcm, err := d.Decode(payload)
	if err != nil {
		return nil, Format{}, fmt.Errorf("%s decode: %w", d.Name(), err)
	}
	return pcm, d.Format(), nil
}

// Len returns the number of registered payload types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decoders)
}
