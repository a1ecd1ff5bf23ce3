package display

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
	"go.uber.org/zap"
)

const (
	hubWriteTimeout = 200 * time.Millisecond
	hubParamSubject = "params"
)

// Hub broadcasts the live waveform as binary frames and heart-rate updates as JSON text
// to every connected websocket client. A client that cannot keep up is dropped.
type Hub struct {
	logger   *zap.Logger
	session  utility.SessionID
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]bool

	batch *batch // owned by the waveform sink

	frameCount   atomic.Uint64
	paramCount   atomic.Uint64
	dropCount    atomic.Uint64
	connectCount atomic.Uint64
}

func NewHub(logger *zap.Logger, session utility.SessionID, batchSize int) *Hub {
	return &Hub{
		logger:  logger,
		session: session,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]bool),
		batch: newBatch(batchSize),
	}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	h.mu.Unlock()
	h.connectCount.Add(1)
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

func (h *Hub) broadcast(messageType int, b []byte) {
	for _, c := range h.snapshot() {
		_ = c.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.WriteMessage(messageType, b); err != nil {
			h.logger.Debug("dropping websocket client", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
			h.dropCount.Add(1)
			_ = c.Close()
			h.remove(c)
		}
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it goes away.
// Anything the client sends is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.add(conn)
	h.logger.Info("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))
	defer func() {
		h.remove(conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket client read failed", zap.Error(err))
			}
			return
		}
	}
}

// OnSample is a waveform sink. It must be called from a single goroutine.
func (h *Hub) OnSample(_ context.Context, sample common.WaveformSample) {
	for _, frame := range h.batch.add(sample) {
		h.frameCount.Add(1)
		h.broadcast(websocket.BinaryMessage, frame)
	}
}

// OnHeartRate is a heart-rate sink.
func (h *Hub) OnHeartRate(_ context.Context, hr common.HeartRate) {
	b, err := json.Marshal(newParamMessage(h.session, hubParamSubject, hr))
	if err != nil {
		h.logger.Warn("unable to encode heart rate", zap.Error(err))
		return
	}
	h.paramCount.Add(1)
	h.broadcast(websocket.TextMessage, b)
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "monitor stopping"),
			time.Now().Add(hubWriteTimeout))
		_ = c.Close()
		h.remove(c)
	}
}

func (h *Hub) PrintStatistics() {
	h.logger.Info("websocket hub statistics",
		zap.String("session", h.session.String()),
		zap.Uint64("connects", h.connectCount.Load()),
		zap.Uint64("drops", h.dropCount.Load()),
		zap.Uint64("waveform_frames", h.frameCount.Load()),
		zap.Uint64("param_messages", h.paramCount.Load()))
}
