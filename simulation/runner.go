package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/neteq"
	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/codec"
	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/rtp"
	"github.com/opd-ai/neteq/stats"
)

const (
	// DefaultPayloadType is the dynamic payload type used for simulated streams.
	DefaultPayloadType = 96
	// drainLimit bounds playout after the source and network are exhausted.
	drainLimit = 2 * time.Second
)

// Config configures a Runner.
type Config struct {
	// Engine options. Nil uses neteq.NewOptions. The TimeProvider is
	// replaced by the runner's virtual clock.
	Engine  *neteq.Options
	Network NetworkConfig
	// PacketMs is the audio duration per datagram.
	PacketMs    uint32
	Encoding    rtp.Encoding
	PayloadType uint8
	// Duration stops the run after this much virtual time. Zero runs until
	// the source ends and the buffer drains.
	Duration time.Duration
	// StatsInterval is the spacing of StatsWriter lines and OnStats calls.
	StatsInterval time.Duration
	// StatsWriter receives one JSON object per line.
	StatsWriter io.Writer
	// Trace records every delivered datagram. Ignored by replay runners.
	Trace *TraceWriter
	// CollectOutput keeps all output samples in Result.Output.
	CollectOutput bool
	OnFrame       func(*neteq.Frame)
	OnStats       func(StatsLine)
	// Epoch is the wall time the virtual clock starts at.
	Epoch time.Time
}

// DefaultConfig returns a 20 ms float32 stream over DefaultNetworkConfig with
// one stats line per second.
func DefaultConfig() Config {
	return Config{
		Network:       DefaultNetworkConfig(),
		PacketMs:      20,
		Encoding:      rtp.EncodingFloat32,
		PayloadType:   DefaultPayloadType,
		StatsInterval: time.Second,
		Epoch:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// StatsLine is one periodic statistics record.
type StatsLine struct {
	TimestampMs        int64   `json:"timestamp_ms"`
	BufferMs           uint32  `json:"buffer_ms"`
	TargetMs           uint32  `json:"target_ms"`
	FilteredBufferMs   uint32  `json:"filtered_buffer_ms"`
	Packets            int     `json:"packets"`
	ExpandRate         float32 `json:"expand_rate"`
	AccelRate          float32 `json:"accel_rate"`
	PreemptiveRate     float32 `json:"preemptive_rate"`
	ReorderRate        float32 `json:"reorder_rate"`
	ReorderedPackets   uint32  `json:"reordered_packets"`
	MaxReorderDistance uint16  `json:"max_reorder_distance"`
	LostPackets        uint64  `json:"lost_packets"`
	ConcealmentEvents  uint64  `json:"concealment_events"`
	BufferFlushes      uint64  `json:"buffer_flushes"`
	Operation          string  `json:"operation"`
}

// Result summarizes a finished run.
type Result struct {
	StreamID     string
	Frames       uint64
	Duration     time.Duration
	Output       []float32
	Statistics   stats.Snapshot
	Quality      stats.QualityLevel
	Network      NetworkStats
	DecodeErrors int
	InsertErrors int
}

type delivery struct {
	at       time.Duration
	datagram []byte
}

// Runner drives one Engine through a simulated stream.
type Runner struct {
	config       Config
	clock        *clock.MockTimeProvider
	engine       *neteq.Engine
	depack       *rtp.Depacketizer
	source       Source
	packetizer   *rtp.Packetizer
	network      *Network
	replay       *Trace
	pending      deque.Deque[delivery]
	streamID     string
	encoder      *json.Encoder
	packetDur    time.Duration
	packetSize   int
	sourceDone   bool
	nextSend     time.Duration
	nextReplay   int
	lastStats    time.Duration
	decodeErrs   int
	insertErrs   int
	frames       uint64
	output       []float32
	lastActivity time.Duration
}

// NewRunner creates a Runner that streams source through a simulated network.
func NewRunner(config Config, source Source) (*Runner, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	config = withDefaults(config)
	if config.PacketMs == 0 || config.PacketMs%neteq.FrameDurationMs != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPacketDuration, config.PacketMs)
	}
	format := source.Format()
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source format: %w", err)
	}

	network, err := NewNetwork(config.Network)
	if err != nil {
		return nil, err
	}
	packetizer, err := rtp.NewPacketizer(rtp.PacketizerConfig{
		PayloadType: config.PayloadType,
		ClockRate:   format.SampleRate,
		Channels:    format.Channels,
		Encoding:    config.Encoding,
		MTU:         uint16(min(limits.MaxRTPPacketSize, 12+int(format.SampleRate)*int(config.PacketMs)/1000*int(format.Channels)*4)),
	})
	if err != nil {
		return nil, err
	}

	r, err := newRunner(config, format, config.Encoding)
	if err != nil {
		return nil, err
	}
	r.source = source
	r.network = network
	r.packetizer = packetizer
	r.packetDur = time.Duration(config.PacketMs) * time.Millisecond
	r.packetSize = int(format.SampleRate) * int(config.PacketMs) / 1000

	if config.Trace != nil {
		header := NewTraceHeader(format.SampleRate, format.Channels, config.PayloadType, config.Encoding)
		if err := config.Trace.Start(header); err != nil {
			return nil, err
		}
		r.streamID = config.Trace.Header().StreamID
	}
	return r, nil
}

// NewReplayRunner creates a Runner that delivers the datagrams of a recorded
// trace at their recorded times.
func NewReplayRunner(config Config, trace *Trace) (*Runner, error) {
	if trace == nil {
		return nil, ErrNilTrace
	}
	config = withDefaults(config)
	config.Trace = nil
	encoding, err := parseEncoding(trace.Header.Encoding)
	if err != nil {
		return nil, err
	}
	config.PayloadType = trace.Header.PayloadType
	format := codec.Format{SampleRate: trace.Header.SampleRate, Channels: trace.Header.Channels}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	r, err := newRunner(config, format, encoding)
	if err != nil {
		return nil, err
	}
	r.replay = trace
	r.sourceDone = true
	r.streamID = trace.Header.StreamID

	logrus.WithFields(logrus.Fields{
		"function":  "NewReplayRunner",
		"stream_id": trace.Header.StreamID,
		"events":    len(trace.Events),
	}).Info("Replaying trace")
	return r, nil
}

func withDefaults(config Config) Config {
	defaults := DefaultConfig()
	if config.Engine == nil {
		config.Engine = neteq.NewOptions()
	}
	if config.PayloadType == 0 {
		config.PayloadType = defaults.PayloadType
	}
	if config.PacketMs == 0 {
		config.PacketMs = defaults.PacketMs
	}
	if config.StatsInterval <= 0 {
		config.StatsInterval = defaults.StatsInterval
	}
	if config.Epoch.IsZero() {
		config.Epoch = defaults.Epoch
	}
	return config
}

func newRunner(config Config, format codec.Format, encoding rtp.Encoding) (*Runner, error) {
	mock := clock.NewMockTimeProvider(config.Epoch)

	options := *config.Engine
	options.TimeProvider = mock
	engine, err := neteq.New(&options)
	if err != nil {
		return nil, err
	}

	registry := codec.NewRegistry()
	var decoder codec.Decoder
	switch encoding {
	case rtp.EncodingL16:
		decoder = codec.NewPCM16Decoder(format.SampleRate, format.Channels)
	default:
		decoder = codec.NewFloat32Decoder(format.SampleRate, format.Channels)
	}
	if err := registry.Register(config.PayloadType, decoder); err != nil {
		return nil, err
	}
	depack, err := rtp.NewDepacketizer(rtp.DepacketizerConfig{
		Registry:     registry,
		SampleRate:   options.SampleRate,
		Channels:     options.Channels,
		TimeProvider: mock,
	})
	if err != nil {
		return nil, err
	}

	r := &Runner{
		config: config,
		clock:  mock,
		engine: engine,
		depack: depack,
	}
	if config.StatsWriter != nil {
		r.encoder = json.NewEncoder(config.StatsWriter)
	}
	return r, nil
}

// Engine returns the engine under test.
func (r *Runner) Engine() *neteq.Engine {
	return r.engine
}

// StreamID returns the id of the recorded or replayed trace, or "".
func (r *Runner) StreamID() string {
	return r.streamID
}

// Network returns the network model, or nil for replay runners.
func (r *Runner) Network() *Network {
	return r.network
}

// Run plays the scenario to completion or until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	tick := time.Duration(neteq.FrameDurationMs) * time.Millisecond
	now := time.Duration(0)

	logrus.WithFields(logrus.Fields{
		"function": "Runner.Run",
		"duration": r.config.Duration,
		"replay":   r.replay != nil,
	}).Info("Starting simulation")

	for {
		if err := ctx.Err(); err != nil {
			return r.result(now), err
		}
		if r.config.Duration > 0 && now >= r.config.Duration {
			break
		}
		if r.config.Duration == 0 && r.finished(now) {
			break
		}

		if err := r.send(now); err != nil {
			return r.result(now), err
		}
		if err := r.deliver(now); err != nil {
			return r.result(now), err
		}

		r.clock.Set(r.config.Epoch.Add(now))
		frame, err := r.engine.GetAudio()
		if err != nil {
			return r.result(now), err
		}
		r.frames++
		if r.config.CollectOutput {
			r.output = append(r.output, frame.Samples...)
		}
		if r.config.OnFrame != nil {
			r.config.OnFrame(frame)
		}

		now += tick
		if now-r.lastStats >= r.config.StatsInterval {
			r.lastStats = now
			if err := r.emitStats(now); err != nil {
				return r.result(now), err
			}
		}
	}

	result := r.result(now)
	logrus.WithFields(logrus.Fields{
		"function": "Runner.Run",
		"frames":   result.Frames,
		"quality":  result.Quality.String(),
	}).Info("Simulation finished")
	return result, nil
}

// finished reports whether nothing more can reach the engine and the buffer
// has drained.
func (r *Runner) finished(now time.Duration) bool {
	if !r.sourceDone || r.pending.Len() > 0 {
		r.lastActivity = now
		return false
	}
	if r.replay != nil && r.nextReplay < len(r.replay.Events) {
		r.lastActivity = now
		return false
	}
	return r.engine.IsEmpty() || now-r.lastActivity >= drainLimit
}

func (r *Runner) send(now time.Duration) error {
	if r.replay != nil {
		for r.nextReplay < len(r.replay.Events) {
			event := r.replay.Events[r.nextReplay]
			if event.At() > now {
				break
			}
			r.enqueue(delivery{at: event.At(), datagram: event.Datagram})
			r.nextReplay++
		}
		return nil
	}

	for !r.sourceDone && r.nextSend <= now {
		pcm, err := r.source.ReadFrame(r.packetSize)
		if errors.Is(err, io.EOF) {
			r.sourceDone = true
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		datagram, err := r.packetizer.Packetize(pcm)
		if err != nil {
			return err
		}
		for _, d := range r.network.Schedule(r.nextSend) {
			r.enqueue(delivery{at: r.nextSend + d, datagram: datagram})
		}
		r.nextSend += r.packetDur
	}
	return nil
}

// enqueue keeps pending sorted by delivery time; equal times keep send order.
func (r *Runner) enqueue(d delivery) {
	i := r.pending.Len()
	for i > 0 && r.pending.At(i-1).at > d.at {
		i--
	}
	r.pending.Insert(i, d)
}

func (r *Runner) deliver(now time.Duration) error {
	for r.pending.Len() > 0 && r.pending.Front().at <= now {
		d := r.pending.PopFront()
		r.clock.Set(r.config.Epoch.Add(d.at))

		if r.config.Trace != nil {
			if err := r.config.Trace.WriteEvent(d.at, d.datagram); err != nil {
				return err
			}
		}

		pkt, err := r.depack.Process(d.datagram)
		if err != nil {
			if !errors.Is(err, rtp.ErrResamplerPriming) {
				r.decodeErrs++
				logrus.WithFields(logrus.Fields{
					"function": "Runner.deliver",
					"error":    err.Error(),
				}).Debug("Dropped undecodable datagram")
			}
			continue
		}
		if err := r.engine.InsertPacket(pkt); err != nil {
			r.insertErrs++
			logrus.WithFields(logrus.Fields{
				"function": "Runner.deliver",
				"sequence": pkt.Sequence,
				"error":    err.Error(),
			}).Debug("Engine rejected packet")
		}
	}
	return nil
}

func (r *Runner) emitStats(now time.Duration) error {
	snap := r.engine.GetStatistics()
	line := StatsLine{
		TimestampMs:        now.Milliseconds(),
		BufferMs:           snap.CurrentBufferSizeMs,
		TargetMs:           snap.TargetDelayMs,
		FilteredBufferMs:   r.engine.FilteredBufferLevelMs(),
		Packets:            snap.PacketsAwaitingDecode,
		ExpandRate:         stats.Q14ToPerMille(snap.Network.ExpandRate),
		AccelRate:          stats.Q14ToPerMille(snap.Network.AccelerateRate),
		PreemptiveRate:     stats.Q14ToPerMille(snap.Network.PreemptiveRate),
		ReorderRate:        float32(snap.Network.ReorderRatePermyriad) / 10,
		ReorderedPackets:   snap.Network.ReorderedPackets,
		MaxReorderDistance: snap.Network.MaxReorderDistance,
		LostPackets:        snap.Lifetime.LostPackets,
		ConcealmentEvents:  snap.Lifetime.ConcealmentEvents,
		BufferFlushes:      snap.Lifetime.BufferFlushes,
		Operation:          r.engine.LastOperation().String(),
	}
	if r.encoder != nil {
		if err := r.encoder.Encode(&line); err != nil {
			return fmt.Errorf("failed to write stats: %w", err)
		}
	}
	if r.config.OnStats != nil {
		r.config.OnStats(line)
	}
	return nil
}

func (r *Runner) result(now time.Duration) *Result {
	snap := r.engine.GetStatistics()
	result := &Result{
		StreamID:     r.streamID,
		Frames:       r.frames,
		Duration:     now,
		Output:       r.output,
		Statistics:   snap,
		Quality:      stats.Assess(snap, nil),
		DecodeErrors: r.decodeErrs,
		InsertErrors: r.insertErrs,
	}
	if r.network != nil {
		result.Network = r.network.Stats()
	}
	return result
}
