package simulation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/neteq/rtp"
)

// TraceVersion is the trace format written by TraceWriter.
const TraceVersion = 1

// TraceHeader describes the stream recorded in a trace.
type TraceHeader struct {
	Version     uint8  `msgpack:"version"`
	StreamID    string `msgpack:"stream_id"`
	SampleRate  uint32 `msgpack:"sample_rate"`
	Channels    uint8  `msgpack:"channels"`
	PayloadType uint8  `msgpack:"payload_type"`
	Encoding    string `msgpack:"encoding"`
	CreatedAt   int64  `msgpack:"created_at"`
}

// TraceEvent is one datagram delivered by the network.
type TraceEvent struct {
	// AtMicros is the delivery time relative to the start of the run.
	AtMicros int64  `msgpack:"at"`
	Datagram []byte `msgpack:"d"`
}

// At returns the delivery time as a Duration.
func (e TraceEvent) At() time.Duration {
	return time.Duration(e.AtMicros) * time.Microsecond
}

// Trace is a fully loaded recording.
type Trace struct {
	Header TraceHeader
	Events []TraceEvent
}

// NewTraceHeader returns a header for a new stream with a random id.
func NewTraceHeader(sampleRate uint32, channels uint8, payloadType uint8, encoding rtp.Encoding) TraceHeader {
	return TraceHeader{
		Version:     TraceVersion,
		StreamID:    uuid.NewString(),
		SampleRate:  sampleRate,
		Channels:    channels,
		PayloadType: payloadType,
		Encoding:    encoding.String(),
		CreatedAt:   time.Now().Unix(),
	}
}

// TraceWriter streams a trace as a msgpack header followed by events.
type TraceWriter struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	enc     *msgpack.Encoder
	header  TraceHeader
	events  int
	started bool
	closed  bool
}

// NewTraceWriter creates a TraceWriter on w. The header is written by Start.
func NewTraceWriter(w io.Writer) *TraceWriter {
	buf := bufio.NewWriter(w)
	return &TraceWriter{buf: buf, enc: msgpack.NewEncoder(buf)}
}

// Start writes the header. A missing StreamID is filled in.
func (t *TraceWriter) Start(header TraceHeader) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTraceClosed
	}
	if header.StreamID == "" {
		header.StreamID = uuid.NewString()
	}
	header.Version = TraceVersion
	if err := t.enc.Encode(&header); err != nil {
		return fmt.Errorf("failed to write trace header: %w", err)
	}
	t.header = header
	t.started = true

	logrus.WithFields(logrus.Fields{
		"function":  "TraceWriter.Start",
		"stream_id": header.StreamID,
	}).Info("Trace recording started")
	return nil
}

// WriteEvent appends one delivered datagram.
func (t *TraceWriter) WriteEvent(at time.Duration, datagram []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTraceClosed
	}
	event := TraceEvent{AtMicros: at.Microseconds(), Datagram: datagram}
	if err := t.enc.Encode(&event); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}
	t.events++
	return nil
}

// Header returns the header written by Start.
func (t *TraceWriter) Header() TraceHeader {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.header
}

// Close flushes buffered events. The underlying writer is not closed.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	logrus.WithFields(logrus.Fields{
		"function":  "TraceWriter.Close",
		"stream_id": t.header.StreamID,
		"events":    t.events,
	}).Info("Trace recording finished")
	return t.buf.Flush()
}

// TraceReader reads a trace written by TraceWriter.
type TraceReader struct {
	dec    *msgpack.Decoder
	header TraceHeader
}

// NewTraceReader reads and checks the header.
func NewTraceReader(r io.Reader) (*TraceReader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var header TraceHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to read trace header: %w", err)
	}
	if header.Version != TraceVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedTraceVersion, header.Version)
	}
	if _, err := uuid.Parse(header.StreamID); err != nil {
		return nil, fmt.Errorf("invalid trace stream id: %w", err)
	}
	return &TraceReader{dec: dec, header: header}, nil
}

// Header returns the trace header.
func (r *TraceReader) Header() TraceHeader {
	return r.header
}

// Next returns the next event, or io.EOF at the end of the trace.
func (r *TraceReader) Next() (TraceEvent, error) {
	var event TraceEvent
	if err := r.dec.Decode(&event); err != nil {
		if errors.Is(err, io.EOF) {
			return TraceEvent{}, io.EOF
		}
		return TraceEvent{}, fmt.Errorf("failed to read trace event: %w", err)
	}
	return event, nil
}

// ReadTrace loads a whole trace into memory.
func ReadTrace(r io.Reader) (*Trace, error) {
	reader, err := NewTraceReader(r)
	if err != nil {
		return nil, err
	}
	trace := &Trace{Header: reader.Header()}
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return trace, nil
		}
		if err != nil {
			return nil, err
		}
		trace.Events = append(trace.Events, event)
	}
}

func parseEncoding(name string) (rtp.Encoding, error) {
	for _, e := range []rtp.Encoding{rtp.EncodingL16, rtp.EncodingFloat32} {
		if e.String() == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown trace encoding %q", name)
}
