package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/stats"
)

const (
	// DefaultHistoryLimit is the number of reports kept per stream.
	DefaultHistoryLimit = 60

	writeTimeout = 5 * time.Second
	sendBuffer   = 16
	readLimit    = 4096
)

// Message types sent to WebSocket clients.
const (
	MessageHello  = "hello"
	MessageReport = "report"
)

// StreamReport is the latest view of one stream.
type StreamReport struct {
	StreamID  string         `json:"stream_id"`
	Snapshot  stats.Snapshot `json:"snapshot"`
	Quality   string         `json:"quality"`
	UpdatedAt time.Time      `json:"updated_at"`

	level stats.QualityLevel
}

// Report aggregates every stream at one moment.
type Report struct {
	Timestamp      time.Time               `json:"timestamp"`
	Streams        map[string]StreamReport `json:"streams"`
	ActiveStreams  int                     `json:"active_streams"`
	OverallQuality string                  `json:"overall_quality"`
}

// Message is the envelope of every WebSocket frame.
type Message struct {
	Type     string  `json:"type"`
	ClientID string  `json:"client_id,omitempty"`
	Report   *Report `json:"report,omitempty"`
}

type streamHistory struct {
	current StreamReport
	history []StreamReport
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub collects stream statistics and broadcasts them to dashboard clients.
type Hub struct {
	interval     time.Duration
	historyLimit int
	thresholds   *stats.QualityThresholds
	timeProvider clock.TimeProvider
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	running bool
	streams map[string]*streamHistory
	clients map[string]*client
	cancel  context.CancelFunc
}

// NewHub creates a Hub that reports every interval.
func NewHub(interval time.Duration) *Hub {
	logrus.WithFields(logrus.Fields{
		"function": "NewHub",
		"interval": interval,
	}).Info("Creating dashboard hub")

	return &Hub{
		interval:     interval,
		historyLimit: DefaultHistoryLimit,
		timeProvider: clock.NewDefaultTimeProvider(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		streams: make(map[string]*streamHistory),
		clients: make(map[string]*client),
	}
}

// SetTimeProvider replaces the clock used to stamp reports.
func (h *Hub) SetTimeProvider(tp clock.TimeProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeProvider = clock.OrDefault(tp)
}

// SetQualityThresholds replaces the thresholds used to grade streams. Nil
// restores the defaults.
func (h *Hub) SetQualityThresholds(t *stats.QualityThresholds) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.thresholds = t
}

// Start begins the periodic report loop.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrAlreadyRunning
	}
	if h.interval <= 0 {
		return ErrInvalidInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.running = true
	go h.reportLoop(ctx)

	logrus.WithFields(logrus.Fields{
		"function": "Hub.Start",
	}).Info("Dashboard hub started")
	return nil
}

// Stop halts the report loop and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	h.running = false
	h.cancel()

	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Hub.Stop",
	}).Info("Dashboard hub stopped")
}

// IsRunning reports whether the report loop is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Publish records a fresh snapshot for streamID.
func (h *Hub) Publish(streamID string, snapshot stats.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	level := stats.Assess(snapshot, h.thresholds)
	report := StreamReport{
		StreamID:  streamID,
		Snapshot:  snapshot,
		Quality:   level.String(),
		UpdatedAt: h.timeProvider.Now(),
		level:     level,
	}

	history, exists := h.streams[streamID]
	if !exists {
		history = &streamHistory{history: make([]StreamReport, 0, h.historyLimit)}
		h.streams[streamID] = history
		logrus.WithFields(logrus.Fields{
			"function":  "Hub.Publish",
			"stream_id": streamID,
		}).Info("Tracking new stream")
	}
	history.current = report
	history.history = append(history.history, report)
	if len(history.history) > h.historyLimit {
		history.history = history.history[1:]
	}
}

// RemoveStream stops tracking streamID.
func (h *Hub) RemoveStream(streamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.streams, streamID)
}

// History returns a copy of the rolling history of streamID, or nil.
func (h *Hub) History(streamID string) []StreamReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	history, exists := h.streams[streamID]
	if !exists {
		return nil
	}
	out := make([]StreamReport, len(history.history))
	copy(out, history.history)
	return out
}

// Report builds the current aggregated report.
func (h *Hub) Report() Report {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buildReport()
}

func (h *Hub) buildReport() Report {
	report := Report{
		Timestamp:     h.timeProvider.Now(),
		Streams:       make(map[string]StreamReport, len(h.streams)),
		ActiveStreams: len(h.streams),
	}
	levels := make([]stats.QualityLevel, 0, len(h.streams))
	for id, history := range h.streams {
		report.Streams[id] = history.current
		levels = append(levels, history.current.level)
	}
	report.OverallQuality = overallQuality(levels).String()
	return report
}

// overallQuality grades the set of streams by majority: a majority of poor
// or worse streams is Poor, a majority of fair or worse is Fair, and
// otherwise Excellent needs more excellent than good streams.
func overallQuality(levels []stats.QualityLevel) stats.QualityLevel {
	if len(levels) == 0 {
		return stats.QualityExcellent
	}

	var excellent, good, fair, poor int
	for _, l := range levels {
		switch l {
		case stats.QualityExcellent:
			excellent++
		case stats.QualityGood:
			good++
		case stats.QualityFair:
			fair++
		default:
			poor++
		}
	}

	half := len(levels) / 2
	switch {
	case poor > half:
		return stats.QualityPoor
	case fair+poor > half:
		return stats.QualityFair
	case excellent > good && excellent+good > half:
		return stats.QualityExcellent
	default:
		return stats.QualityGood
	}
}

// Broadcast sends the current report to every client immediately.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}
	report := h.buildReport()
	data, err := json.Marshal(Message{Type: MessageReport, Report: &report})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Hub.Broadcast",
			"error":    err.Error(),
		}).Error("Failed to encode report")
		return
	}
	for _, c := range h.clients {
		h.enqueue(c, data)
	}

	logrus.WithFields(logrus.Fields{
		"function":        "Hub.Broadcast",
		"clients":         len(h.clients),
		"active_streams":  report.ActiveStreams,
		"overall_quality": report.OverallQuality,
	}).Debug("Broadcast report")
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{
			"function":  "Hub.enqueue",
			"client_id": c.id,
		}).Warn("Client is slow, dropping report")
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) reportLoop(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.WithFields(logrus.Fields{
				"function": "Hub.reportLoop",
			}).Debug("Report loop stopped")
			return
		case <-ticker.C:
			h.Broadcast()
		}
	}
}

// Handler returns the HTTP routes of the dashboard.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.serveWebSocket)
	mux.HandleFunc("GET /api/streams", h.serveStreams)
	mux.HandleFunc("GET /api/streams/{id}", h.serveHistory)
	return mux
}

func (h *Hub) serveStreams(w http.ResponseWriter, _ *http.Request) {
	report := h.Report()
	streams := make([]StreamReport, 0, len(report.Streams))
	for _, s := range report.Streams {
		streams = append(streams, s)
	}
	sort.Slice(streams, func(i, j int) bool { return streams[i].StreamID < streams[j].StreamID })
	writeJSON(w, http.StatusOK, streams)
}

func (h *Hub) serveHistory(w http.ResponseWriter, r *http.Request) {
	history := h.History(r.PathValue("id"))
	if history == nil {
		http.Error(w, "unknown stream", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "writeJSON",
			"error":    err.Error(),
		}).Debug("Failed to write response")
	}
}

func (h *Hub) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Hub.serveWebSocket",
			"remote":   r.RemoteAddr,
			"error":    err.Error(),
		}).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return
	}
	go h.writeLoop(c)
	h.readLoop(c)
}

// register adds c and queues its hello and the current report.
func (h *Hub) register(c *client) error {
	hello, err := json.Marshal(Message{Type: MessageHello, ClientID: c.id})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	report := h.buildReport()
	initial, err := json.Marshal(Message{Type: MessageReport, Report: &report})
	if err != nil {
		return err
	}
	h.clients[c.id] = c
	c.send <- hello
	c.send <- initial

	logrus.WithFields(logrus.Fields{
		"function":  "Hub.register",
		"client_id": c.id,
		"remote":    c.conn.RemoteAddr().String(),
	}).Info("Dashboard client connected")
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	logrus.WithFields(logrus.Fields{
		"function":  "Hub.unregister",
		"client_id": c.id,
	}).Info("Dashboard client disconnected")
}

// readLoop drains client frames until the connection fails.
func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Hub.writeLoop",
				"client_id": c.id,
				"error":     err.Error(),
			}).Debug("Write failed")
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
