// Package relay fans session snapshots out from publishing games to
// spectators over websockets.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/protocol"
)

const (
	DefaultBroadcastInterval = 100 * time.Millisecond

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// peer is one websocket connection, publisher or watcher.
type peer struct {
	id     string
	conn   *websocket.Conn
	sendCh chan []byte
	logger *log.Logger

	mu     sync.Mutex
	player string
	state  *protocol.SessionState
	left   bool
}

func newPeer(id string, conn *websocket.Conn, logger *log.Logger) *peer {
	return &peer{
		id:     id,
		conn:   conn,
		sendCh: make(chan []byte, 256),
		logger: logger,
	}
}

// writePump sends messages from sendCh to the websocket.
func (p *peer) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-p.sendCh:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send marshals an envelope and queues it.
func (p *peer) send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal", "peer", p.id, "err", err)
		return
	}
	p.sendRaw(data)
}

func (p *peer) sendRaw(data []byte) {
	select {
	case p.sendCh <- data:
	default:
		p.logger.Warn("send channel full, dropping message", "peer", p.id)
	}
}

func (p *peer) snapshot() (protocol.SessionState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return protocol.SessionState{}, false
	}
	st := *p.state
	st.SessionID = p.id
	st.Player = p.player
	return st, true
}

// Hub tracks publishers and watchers and broadcasts the latest session
// states to every watcher on a fixed interval.
type Hub struct {
	mu         sync.RWMutex
	publishers map[string]*peer
	watchers   map[string]*peer
	nextID     int

	interval time.Duration
	logger   *log.Logger
}

func NewHub(interval time.Duration, logger *log.Logger) *Hub {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{
		publishers: make(map[string]*peer),
		watchers:   make(map[string]*peer),
		interval:   interval,
		logger:     logger,
	}
}

func (h *Hub) generateID(kind string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return fmt.Sprintf("%s_%d_%d", kind, time.Now().UnixMilli(), h.nextID)
}

// Run broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.broadcastSessions()
		case <-ctx.Done():
			return
		}
	}
}

// Sessions returns the latest state of every publisher that has sent one,
// ordered by session id.
func (h *Hub) Sessions() []protocol.SessionState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]protocol.SessionState, 0, len(h.publishers))
	for _, p := range h.publishers {
		if st, ok := p.snapshot(); ok {
			sessions = append(sessions, st)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionID < sessions[j].SessionID })
	return sessions
}

func (h *Hub) broadcastSessions() {
	sessions := h.Sessions()
	data, err := json.Marshal(protocol.Envelope{
		Type:    protocol.MsgSessions,
		Payload: protocol.SessionsPayload{Sessions: sessions},
	})
	if err != nil {
		h.logger.Error("marshal sessions", "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.watchers {
		w.sendRaw(data)
	}
}

func (h *Hub) broadcastToWatchers(env protocol.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, w := range h.watchers {
		w.send(env)
	}
}

func (h *Hub) add(set map[string]*peer, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set[p.id] = p
}

func (h *Hub) remove(set map[string]*peer, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := set[id]; ok {
		close(p.sendCh)
		delete(set, id)
	}
}

func (h *Hub) counts() (int, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.publishers), len(h.watchers)
}

// Handler returns the relay's HTTP routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/publish", h.handlePublish)
	mux.HandleFunc("/ws/watch", h.handleWatch)
	mux.HandleFunc("/sessions", h.handleSessions)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok")
	})
	return mux
}

func (h *Hub) handlePublish(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade", "err", err)
		return
	}

	p := newPeer(h.generateID("session"), conn, h.logger)
	h.add(h.publishers, p)
	p.send(protocol.Envelope{
		Type:    protocol.MsgAssignID,
		Payload: protocol.AssignIDPayload{ClientID: p.id},
	})
	go p.writePump()

	h.readPump(p, h.handlePublisherMessage)

	h.remove(h.publishers, p.id)
	p.mu.Lock()
	player, clean := p.player, p.left
	p.mu.Unlock()
	h.logger.Info("session ended", "session", p.id, "player", player, "clean", clean)
	h.broadcastToWatchers(protocol.Envelope{
		Type:    protocol.MsgSessionEnded,
		Payload: protocol.SessionEndedPayload{SessionID: p.id, Player: player, Clean: clean},
	})
}

func (h *Hub) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade", "err", err)
		return
	}

	p := newPeer(h.generateID("watcher"), conn, h.logger)
	h.add(h.watchers, p)
	p.send(protocol.Envelope{
		Type:    protocol.MsgAssignID,
		Payload: protocol.AssignIDPayload{ClientID: p.id},
	})
	go p.writePump()
	h.logger.Info("watcher joined", "watcher", p.id)

	// Watchers only send control frames; reading keeps pongs flowing.
	h.readPump(p, func(*peer, protocol.Envelope, []byte) {})

	h.remove(h.watchers, p.id)
	h.logger.Info("watcher left", "watcher", p.id)
}

func (h *Hub) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, protocol.ErrorResponse{Error: "method not allowed"})
		return
	}
	var resp protocol.ListSessionsResponse
	for _, s := range h.Sessions() {
		resp.Sessions = append(resp.Sessions, protocol.SessionInfo{
			SessionID: s.SessionID,
			Player:    s.Player,
			Level:     s.Level,
			Score:     s.Score,
			Mode:      s.Mode,
		})
	}
	_, resp.Watchers = h.counts()
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readPump reads messages from the websocket and dispatches them.
func (h *Hub) readPump(p *peer, handle func(*peer, protocol.Envelope, []byte)) {
	defer p.conn.Close()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read", "peer", p.id, "err", err)
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			h.logger.Warn("unmarshal", "peer", p.id, "err", err)
			continue
		}
		handle(p, env, message)
	}
}

func (h *Hub) handlePublisherMessage(p *peer, env protocol.Envelope, raw []byte) {
	switch env.Type {
	case protocol.MsgHello:
		var payload protocol.HelloPayload
		if extractPayload(raw, &payload) == nil {
			p.mu.Lock()
			p.player = payload.Player
			p.mu.Unlock()
			h.logger.Info("session started", "session", p.id, "player", payload.Player)
		}

	case protocol.MsgSnapshot:
		var payload protocol.SessionState
		if err := extractPayload(raw, &payload); err != nil {
			p.send(protocol.Envelope{
				Type:    protocol.MsgRelayError,
				Payload: protocol.RelayErrorPayload{Message: "bad snapshot"},
			})
			return
		}
		p.mu.Lock()
		p.state = &payload
		p.mu.Unlock()

	case protocol.MsgGoodbye:
		p.mu.Lock()
		p.left = true
		p.mu.Unlock()
		p.conn.Close()

	default:
		h.logger.Warn("unknown message type", "peer", p.id, "type", env.Type)
	}
}

// extractPayload re-unmarshals the raw JSON to extract a typed payload.
func extractPayload(raw []byte, target interface{}) error {
	var wrapper struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return err
	}
	return json.Unmarshal(wrapper.Payload, target)
}
