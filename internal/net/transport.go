package net

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"CurveBoard/internal/editcurve"
)

var (
	ErrHubClosed        = errors.New("hub closed")
	ErrSubscriberExists = errors.New("subscriber already exists")
	ErrNilChannel       = errors.New("nil channel")
)

const (
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

// Stats counts deliveries. A message counts once per receiver.
type Stats struct {
	Published uint64
	Sent      uint64
	Dropped   uint64
}

// peer is one websocket observer. Only its writer goroutine touches conn
// for writing.
type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans change events out to websocket observers and in-process
// subscribers. Slow receivers lose events instead of stalling the editor.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	peers  map[*peer]struct{}
	subs   map[string]chan<- editcurve.Event
	closed bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

var _ editcurve.Notifier = (*Hub)(nil)

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "hub"),
		peers:  make(map[*peer]struct{}),
		subs:   make(map[string]chan<- editcurve.Event),
	}
}

// ServeHTTP upgrades the request and streams events until the observer
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(p) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"), time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writeLoop(p)

	// observers never talk back; reading only detects the close
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.logger.Debug("observer disconnected", "remote", conn.RemoteAddr().String(), "error", err)
			break
		}
	}
	h.remove(p)
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p] = struct{}{}
	h.logger.Info("observer connected", "remote", p.conn.RemoteAddr().String())
	return true
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; !ok {
		return
	}
	delete(h.peers, p)
	close(p.send)
	h.logger.Info("observer removed", "remote", p.conn.RemoteAddr().String())
}

func (h *Hub) writeLoop(p *peer) {
	defer p.conn.Close()
	for msg := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("send failed", "remote", p.conn.RemoteAddr().String(), "error", err)
			return
		}
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// Subscribe registers an in-process receiver.
func (h *Hub) Subscribe(id string, ch chan<- editcurve.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	if _, ok := h.subs[id]; ok {
		return ErrSubscriberExists
	}
	h.subs[id] = ch
	return nil
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Notify delivers ev to every receiver without blocking.
func (h *Hub) Notify(ev editcurve.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.published.Add(1)

	for p := range h.peers {
		select {
		case p.send <- data:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
	for id, ch := range h.subs {
		select {
		case ch <- ev:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
			h.logger.Debug("subscriber full, event dropped", "subscriber", id)
		}
	}
}

// Peers returns the number of connected websocket observers.
func (h *Hub) Peers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) Stats() Stats {
	return Stats{
		Published: h.published.Load(),
		Sent:      h.sent.Load(),
		Dropped:   h.dropped.Load(),
	}
}

// Close disconnects every observer and drops all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for p := range h.peers {
		close(p.send)
		delete(h.peers, p)
	}
	clear(h.subs)
}
