package neteq

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/opd-ai/neteq/buffer"
	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/delay"
	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/packet"
	"github.com/opd-ai/neteq/stats"
	"github.com/opd-ai/neteq/stretch"
	"github.com/sirupsen/logrus"
)

const (
	// maxConsecutiveExpands flushes the engine after six seconds of
	// uninterrupted concealment.
	maxConsecutiveExpands     = 600
	maxPreemptiveWindowFrames = 6
	// bypassFramesPerPacket bounds the bypass queue at the largest packet
	// size for every buffer slot.
	bypassFramesPerPacket = limits.MaxPacketDurationMs / FrameDurationMs
)

// Engine is a jitter buffer for one audio stream.
type Engine struct {
	options      Options
	timeProvider clock.TimeProvider

	packets *buffer.PacketBuffer
	delay   *delay.Manager
	stats   *stats.Calculator
	filter  *BufferLevelFilter
	dwell   *dwell

	accelerate *stretch.Accelerate
	preemptive *stretch.PreemptiveExpand
	expand     *stretch.Expand

	channels         int
	frameSamples     int
	frameLen         int
	preemptiveFrames int

	// sync holds decoded audio that has been pulled from the packet buffer
	// but not played yet. cursor is the timestamp that follows it.
	sync      []float32
	cursor    uint32
	hasCursor bool
	playout   uint32

	// lastPlayed is the timestamp of the most recently pulled packet.
	lastPlayed uint32
	hasPlayed  bool

	lastSequence uint32
	hasSequence  bool
	// discardedUnplayed counts packets that arrived but were dropped before
	// playout and whose sequence numbers have not yet been passed.
	discardedUnplayed uint64

	filterPrimed       bool
	timeStretched      int
	consecutiveExpands int
	muted              bool
	lastOperation      Operation

	bypass           deque.Deque[float32]
	bypassLimit      int
	bypassConcealing bool

	initialized bool
}

// New creates an Engine. A nil options value uses NewOptions().
func New(options *Options) (*Engine, error) {
	if options == nil {
		options = NewOptions()
	}
	if err := options.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "New",
			"error":    err.Error(),
		}).Error("Invalid engine options")
		return nil, err
	}

	opts := *options
	tp := clock.OrDefault(opts.TimeProvider)

	bufCfg := buffer.DefaultConfig(opts.MaxPacketsInBuffer)
	bufCfg.SmartFlush = opts.SmartFlush
	packets, err := buffer.NewPacketBuffer(bufCfg, tp)
	if err != nil {
		return nil, newConfigError("MaxPacketsInBuffer", err)
	}

	mgr, err := delay.NewManager(opts.Delay, tp)
	if err != nil {
		return nil, newConfigError("Delay", err)
	}
	mgr.SetMinimumDelay(opts.MinDelayMs)
	if opts.MaxDelayMs > 0 {
		mgr.SetMaximumDelay(opts.MaxDelayMs)
	}

	sampleRate := int(opts.SampleRate)
	channels := int(opts.Channels)
	e := &Engine{
		options:      opts,
		timeProvider: tp,
		packets:      packets,
		delay:        mgr,
		stats:        stats.NewCalculator(),
		filter:       NewBufferLevelFilter(opts.SampleRate),
		dwell:        newDwell(opts.MinDwellFrames),
		accelerate:   stretch.NewAccelerate(sampleRate, channels),
		preemptive:   stretch.NewPreemptiveExpand(sampleRate, channels),
		expand:       stretch.NewExpand(sampleRate, channels),
		channels:     channels,
		frameSamples: opts.FrameSamples(),
		initialized:  true,
	}
	e.frameLen = e.frameSamples * channels
	e.preemptiveFrames = preemptiveWindowFrames(e.preemptive.MinOutputFrames(), e.frameSamples)
	e.bypassLimit = opts.MaxPacketsInBuffer * bypassFramesPerPacket * e.frameLen

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"sample_rate": opts.SampleRate,
		"channels":    opts.Channels,
		"max_packets": opts.MaxPacketsInBuffer,
		"min_delay":   opts.MinDelayMs,
		"max_delay":   opts.MaxDelayMs,
		"bypass":      opts.BypassMode,
	}).Info("Engine created")

	return e, nil
}

// preemptiveWindowFrames returns how many frames a PreemptiveExpand call
// works on so that the search window is long enough to add audio.
func preemptiveWindowFrames(minOutput, frameSamples int) int {
	frames := 2
	for frames < maxPreemptiveWindowFrames && frames*frameSamples < minOutput {
		frames++
	}
	return frames
}

// SetTimeProvider replaces the clock used for arrival times and packet age.
func (e *Engine) SetTimeProvider(tp clock.TimeProvider) {
	e.timeProvider = clock.OrDefault(tp)
	e.packets.SetTimeProvider(e.timeProvider)
	e.delay.SetTimeProvider(e.timeProvider)
}

// InsertPacket hands a decoded packet to the engine. Duplicates, late
// packets and overflow are absorbed and only visible in the statistics; an
// error is returned only for malformed packets.
func (e *Engine) InsertPacket(pkt *packet.AudioPacket) error {
	if e == nil || !e.initialized {
		return &EngineError{Op: "InsertPacket", Err: ErrNotInitialized}
	}
	if pkt == nil {
		return newInsertError(0, 0, ErrNilPacket)
	}
	if err := e.validatePacket(pkt); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Engine.InsertPacket",
			"sequence":  pkt.Sequence,
			"timestamp": pkt.Timestamp,
			"error":     err.Error(),
		}).Warn("Rejected packet")
		return newInsertError(pkt.Sequence, pkt.Timestamp, err)
	}

	p := *pkt
	if p.ArrivalTime.IsZero() {
		p.ArrivalTime = e.timeProvider.Now()
	}
	if p.DurationMs == 0 {
		p.DurationMs = float32(p.SamplesPerChannel()) * 1000 / float32(p.SampleRate)
	}

	if e.options.BypassMode {
		e.insertBypass(&p)
		return nil
	}

	if e.behindPlayout(&p) {
		return nil
	}

	res, err := e.packets.Insert(&p, e.stats, e.delay.TargetDelayMs())
	if err != nil {
		return newInsertError(p.Sequence, p.Timestamp, err)
	}
	if res.Flushed {
		e.filterPrimed = false
	}
	e.discardedUnplayed += uint64(res.Discarded)
	if res.Status == buffer.Duplicate {
		return nil
	}

	if err := e.delay.Update(p.Timestamp, p.SampleRate, res.Reordered); err != nil {
		return newInsertError(p.Sequence, p.Timestamp, err)
	}
	if !res.Reordered {
		e.stats.RelativeArrivalDelay(e.delay.RelativeDelayMs())
	}
	e.stats.UpdateBufferSize(e.CurrentBufferSizeMs(), e.delay.TargetDelayMs())
	return nil
}

// behindPlayout rejects a packet whose audio has already been played or
// concealed. A repeat of the last played packet counts as a duplicate, anything
// else as a late discard.
func (e *Engine) behindPlayout(p *packet.AudioPacket) bool {
	if !e.hasCursor {
		return false
	}
	if e.hasPlayed && p.Timestamp == e.lastPlayed {
		e.stats.PacketDuplicate()
		logrus.WithFields(logrus.Fields{
			"function":  "Engine.InsertPacket",
			"sequence":  p.Sequence,
			"timestamp": p.Timestamp,
		}).Debug("Discarded duplicate of played packet")
		return true
	}

	end := p.Timestamp + uint32(p.SamplesPerChannel())
	late := (e.hasPlayed && !packet.IsTimestampNewer(p.Timestamp, e.lastPlayed)) ||
		packet.TimestampDiff(e.cursor, end) >= 0 ||
		int(packet.TimestampDiff(e.cursor, p.Timestamp)) > e.frameSamples
	if !late {
		return false
	}

	e.stats.PacketDiscarded(true)
	if e.hasSequence && packet.IsSequenceNewer(p.Sequence, e.lastSequence) {
		e.discardedUnplayed++
	}
	logrus.WithFields(logrus.Fields{
		"function":  "Engine.InsertPacket",
		"sequence":  p.Sequence,
		"timestamp": p.Timestamp,
		"cursor":    e.cursor,
	}).Debug("Discarded packet behind playout position")
	return true
}

func (e *Engine) validatePacket(pkt *packet.AudioPacket) error {
	if err := limits.ValidatePayload(pkt.Payload); err != nil {
		return err
	}
	if pkt.SampleRate != e.options.SampleRate || pkt.Channels != e.options.Channels {
		return fmt.Errorf("%w: %d Hz x%d, want %d Hz x%d", ErrFormatMismatch,
			pkt.SampleRate, pkt.Channels, e.options.SampleRate, e.options.Channels)
	}
	if len(pkt.Payload)%e.channels != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrFormatMismatch, len(pkt.Payload), e.channels)
	}
	return nil
}

// GetAudio produces the next frame. It never blocks and always returns
// FrameDurationMs of audio; an error is returned only for an Engine that was
// not created with New.
func (e *Engine) GetAudio() (*Frame, error) {
	if e == nil || !e.initialized {
		return nil, &EngineError{Op: "GetAudio", Err: ErrNotInitialized}
	}

	frame := newFrame(e.options.SampleRate, e.options.Channels, e.frameSamples)
	frame.Timestamp = e.playout
	e.playout += uint32(e.frameSamples)

	if e.options.BypassMode {
		e.playBypass(frame)
		return frame, nil
	}

	if e.hasCursor {
		n := e.packets.DiscardOlderThan(e.cursor-uint32(e.frameSamples), e.stats)
		e.discardedUnplayed += uint64(n)
	}

	target := e.delay.TargetDelayMs()
	e.updateFilter(target)

	ready := e.packetReady()
	if !ready {
		_, highMs := Limits(target, e.options.Margins())
		if e.skipGap(msToSamples(highMs, e.options.SampleRate)) {
			ready = e.packetReady()
		}
	}

	op := Decide(DecisionInput{
		PacketReady:          ready,
		LevelSamples:         e.filter.Level(),
		TargetDelayMs:        target,
		SampleRate:           e.options.SampleRate,
		Margins:              e.options.Margins(),
		EnableFastAccelerate: e.options.EnableFastAccelerate,
		NoTimeStretching:     e.options.ForTestNoTimeStretching,
	})
	op = e.dwell.apply(op)

	switch op {
	case Accelerate, FastAccelerate:
		frame.SpeechType = e.playAccelerate(frame.Samples, op == FastAccelerate)
	case PreemptiveExpand:
		frame.SpeechType = e.playPreemptiveExpand(frame.Samples)
	case Expand:
		e.playExpand(frame.Samples)
		frame.SpeechType = SpeechExpand
	default:
		frame.SpeechType = e.playNormal(frame.Samples)
	}
	if op != Expand {
		e.consecutiveExpands = 0
	}
	frame.Operation = op
	frame.Muted = e.muted && frame.SpeechType == SpeechExpand
	e.lastOperation = op

	bufferMs := e.CurrentBufferSizeMs()
	e.stats.FrameEmitted(e.frameSamples, op.String(), bufferMs, target)
	e.stats.UpdateBufferSize(bufferMs, target)

	logrus.WithFields(logrus.Fields{
		"function":  "Engine.GetAudio",
		"operation": op.String(),
		"buffer_ms": bufferMs,
		"target_ms": target,
		"level_ms":  e.filter.LevelMs(),
		"packets":   e.packets.Len(),
	}).Debug("Produced frame")

	if e.consecutiveExpands > maxConsecutiveExpands {
		logrus.WithFields(logrus.Fields{
			"function": "Engine.GetAudio",
			"expands":  e.consecutiveExpands,
		}).Warn("Sustained concealment, flushing engine")
		e.Flush()
	}

	return frame, nil
}

func (e *Engine) updateFilter(targetMs uint32) {
	e.filter.SetTargetLevel(targetMs)
	level := e.CurrentBufferSizeSamples()
	if !e.filterPrimed {
		e.filter.SetFilteredLevel(level)
		e.filterPrimed = true
	} else {
		e.filter.Update(level, e.timeStretched)
	}
	e.timeStretched = 0
}

// packetReady reports whether real audio can be played this frame.
func (e *Engine) packetReady() bool {
	return len(e.sync) > 0 || e.frontDue()
}

// frontDue reports whether the oldest buffered packet starts within one
// frame of the playout cursor.
func (e *Engine) frontDue() bool {
	front := e.packets.Front()
	if front == nil {
		return false
	}
	if !e.hasCursor {
		return true
	}
	return int(packet.TimestampDiff(front.Timestamp, e.cursor)) < e.frameSamples
}

// skipGap jumps the cursor over missing audio when the buffer is already
// above its high limit, so the gap is dropped instead of concealed.
func (e *Engine) skipGap(highSamples int) bool {
	if len(e.sync) > 0 || !e.hasCursor || e.filter.Level() <= highSamples {
		return false
	}
	front := e.packets.Front()
	if front == nil {
		return false
	}
	gap := int(packet.TimestampDiff(front.Timestamp, e.cursor))
	if gap <= 0 {
		return false
	}
	e.stats.SamplesSkipped(gap)
	e.cursor = front.Timestamp
	logrus.WithFields(logrus.Fields{
		"function": "Engine.skipGap",
		"samples":  gap,
		"level":    e.filter.Level(),
	}).Debug("Skipped gap above high limit")
	return true
}

// fill pulls due packets into the sync buffer until it holds n samples.
func (e *Engine) fill(n int) {
	for len(e.sync) < n && e.frontDue() {
		e.pull()
	}
}

func (e *Engine) pull() {
	p := e.packets.GetNextPacket()
	if p == nil {
		return
	}

	if !p.ArrivalTime.IsZero() {
		e.stats.WaitingTime(int(e.timeProvider.Since(p.ArrivalTime).Milliseconds()))
	}
	if !e.hasSequence || packet.IsSequenceNewer(p.Sequence, e.lastSequence) {
		if e.hasSequence {
			e.countLost(p.Sequence - e.lastSequence - 1)
		} else {
			e.discardedUnplayed = 0
		}
		e.lastSequence = p.Sequence
		e.hasSequence = true
	}

	start := len(e.sync)
	e.sync = append(e.sync, p.Payload...)
	if e.expand.Finish(e.sync[start:]) {
		e.muted = false
	}
	e.cursor = p.Timestamp + uint32(p.SamplesPerChannel())
	e.hasCursor = true
	e.lastPlayed = p.Timestamp
	e.hasPlayed = true
}

// countLost records the sequence numbers skipped before the next played
// packet, minus those that arrived and were discarded.
func (e *Engine) countLost(gap uint32) {
	absorbed := min(uint64(gap), e.discardedUnplayed)
	e.discardedUnplayed -= absorbed
	lost := uint64(gap) - absorbed
	if lost == 0 {
		return
	}
	e.stats.PacketsLost(lost)
	logrus.WithFields(logrus.Fields{
		"function": "Engine.pull",
		"sequence": e.lastSequence + gap + 1,
		"lost":     lost,
	}).Debug("Sequence gap")
}

func (e *Engine) consume(n int) {
	n = min(n, len(e.sync))
	e.sync = append(e.sync[:0], e.sync[n:]...)
}

func (e *Engine) playNormal(out []float32) SpeechType {
	e.fill(len(out))
	n := copy(out, e.sync)
	e.consume(n)
	if n > 0 {
		e.expand.Remember(out[:n])
	}
	if n == len(out) {
		return SpeechNormal
	}
	e.conceal(out[n:])
	return SpeechExpand
}

func (e *Engine) playAccelerate(out []float32, fast bool) SpeechType {
	window := e.frameSamples * 3 / 2
	if fast {
		window = 2 * e.frameSamples
	}
	window *= e.channels

	e.fill(window)
	if len(e.sync) < window {
		return e.playNormal(out)
	}

	res := e.accelerate.Process(e.sync[:window], out, fast)
	e.consume(res.UsedSamples)
	e.expand.Remember(out)
	if res.Status.Stretched() {
		e.stats.Accelerated(res.LengthChange)
		e.timeStretched = res.LengthChange
	}
	return SpeechNormal
}

func (e *Engine) playPreemptiveExpand(out []float32) SpeechType {
	window := e.preemptiveFrames * e.frameLen
	e.fill(window)
	if len(e.sync) < window {
		return e.playNormal(out)
	}

	stretched := make([]float32, window)
	res := e.preemptive.Process(e.sync[:window], stretched, false)
	if !res.Status.Stretched() {
		return e.playNormal(out)
	}

	copy(out, stretched[:e.frameLen])
	e.consume(res.UsedSamples)
	rest := stretched[e.frameLen:]
	merged := make([]float32, 0, len(rest)+len(e.sync))
	merged = append(merged, rest...)
	e.sync = append(merged, e.sync...)

	e.expand.Remember(out)
	e.stats.PreemptiveExpanded(res.LengthChange)
	e.timeStretched = -res.LengthChange
	return SpeechNormal
}

func (e *Engine) playExpand(out []float32) {
	e.conceal(out)
	e.consecutiveExpands++
}

// conceal fills out with synthesized audio, or silence once concealment has
// decayed out and the muted state is enabled.
func (e *Engine) conceal(out []float32) {
	frames := len(out) / e.channels
	newEvent := !e.expand.Active()
	if e.options.EnableMutedState && e.expand.Exhausted() {
		clear(out)
		if !e.muted {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.conceal",
			}).Debug("Concealment decayed, output muted")
		}
		e.muted = true
	} else {
		e.expand.Process(out)
	}
	e.stats.Concealed(frames, e.muted, newEvent)
	if e.hasCursor {
		e.cursor += uint32(frames)
	}
}

func (e *Engine) insertBypass(p *packet.AudioPacket) {
	for _, s := range p.Payload {
		e.bypass.PushBack(s)
	}
	dropped := 0
	for e.bypass.Len() > e.bypassLimit {
		e.bypass.PopFront()
		dropped++
	}
	if dropped > 0 {
		e.stats.SamplesSkipped(dropped / e.channels)
	}
	e.stats.PacketReceived(p.SamplesPerChannel())
}

func (e *Engine) playBypass(frame *Frame) {
	n := min(e.bypass.Len(), len(frame.Samples))
	for i := 0; i < n; i++ {
		frame.Samples[i] = e.bypass.PopFront()
	}

	frame.Operation = Normal
	frame.SpeechType = SpeechNormal
	if missing := (len(frame.Samples) - n) / e.channels; missing > 0 {
		frame.Operation = Expand
		frame.SpeechType = SpeechExpand
		e.stats.Concealed(missing, true, !e.bypassConcealing)
		e.bypassConcealing = true
	} else {
		e.bypassConcealing = false
	}
	e.lastOperation = frame.Operation

	bufferMs := uint32(e.bypass.Len() / e.channels * 1000 / int(e.options.SampleRate))
	e.stats.FrameEmitted(e.frameSamples, frame.Operation.String(), bufferMs, 0)
	e.stats.UpdateBufferSize(bufferMs, 0)
}

// Flush drops all buffered audio and restarts delay estimation. Lifetime
// statistics are kept.
func (e *Engine) Flush() {
	flushed := e.packets.Flush(e.stats)
	e.delay.Reset()
	e.filter.Reset()
	e.filterPrimed = false
	e.sync = e.sync[:0]
	e.hasCursor = false
	e.hasPlayed = false
	e.hasSequence = false
	e.discardedUnplayed = 0
	e.consecutiveExpands = 0
	e.timeStretched = 0
	e.muted = false
	e.expand.Reset()
	e.dwell.reset()
	e.bypass.Clear()
	e.bypassConcealing = false

	logrus.WithFields(logrus.Fields{
		"function": "Engine.Flush",
		"packets":  flushed,
	}).Info("Engine flushed")
}

// Reset flushes the engine and clears all statistics and the learned delay
// distribution.
func (e *Engine) Reset() {
	e.Flush()
	e.delay.Histogram().Reset()
	e.stats.Reset()
	e.lastOperation = Normal
	e.playout = 0
}

// GetStatistics returns a snapshot of the stream statistics.
func (e *Engine) GetStatistics() stats.Snapshot {
	snap := e.stats.Snapshot()
	snap.CurrentBufferSizeMs = e.CurrentBufferSizeMs()
	snap.TargetDelayMs = e.delay.TargetDelayMs()
	snap.PacketsAwaitingDecode = e.packets.Len()
	if e.options.ResetRatesOnRead {
		e.stats.ResetRates()
	}
	return snap
}

// TargetDelayMs returns the current target delay.
func (e *Engine) TargetDelayMs() uint32 {
	return e.delay.TargetDelayMs()
}

// SetMinimumDelay requests a minimum target delay and returns the effective
// minimum after clamping to the base bounds.
func (e *Engine) SetMinimumDelay(delayMs uint32) uint32 {
	effective := e.delay.SetMinimumDelay(delayMs)
	logrus.WithFields(logrus.Fields{
		"function":  "Engine.SetMinimumDelay",
		"requested": delayMs,
		"effective": effective,
	}).Info("Minimum delay changed")
	return effective
}

// SetMaximumDelay requests a maximum target delay (0 removes the request) and
// returns the effective maximum.
func (e *Engine) SetMaximumDelay(delayMs uint32) uint32 {
	effective := e.delay.SetMaximumDelay(delayMs)
	logrus.WithFields(logrus.Fields{
		"function":  "Engine.SetMaximumDelay",
		"requested": delayMs,
		"effective": effective,
	}).Info("Maximum delay changed")
	return effective
}

// CurrentBufferSizeSamples returns buffered audio in samples per channel,
// including decoded audio not yet played.
func (e *Engine) CurrentBufferSizeSamples() int {
	return e.packets.NumSamples() + len(e.sync)/e.channels
}

// CurrentBufferSizeMs returns buffered audio in milliseconds.
func (e *Engine) CurrentBufferSizeMs() uint32 {
	return uint32(uint64(e.CurrentBufferSizeSamples()) * 1000 / uint64(e.options.SampleRate))
}

// FilteredBufferLevelMs returns the smoothed buffer level used for decisions.
func (e *Engine) FilteredBufferLevelMs() uint32 {
	return e.filter.LevelMs()
}

// IsEmpty reports whether no audio is buffered.
func (e *Engine) IsEmpty() bool {
	if e.options.BypassMode {
		return e.bypass.Len() == 0
	}
	return e.packets.IsEmpty() && len(e.sync) == 0
}

// PacketCount returns the number of packets waiting in the buffer.
func (e *Engine) PacketCount() int {
	return e.packets.Len()
}

// LastOperation returns the operation of the most recent frame.
func (e *Engine) LastOperation() Operation {
	return e.lastOperation
}

// Options returns a copy of the engine configuration.
func (e *Engine) Options() Options {
	return e.options
}
