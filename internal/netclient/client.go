package netclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/hersh/levels/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// RelayMsg is a tea.Msg that wraps an incoming relay message.
type RelayMsg struct {
	Type protocol.MessageType
	Raw  json.RawMessage
}

// ConnectedMsg is sent when the relay assigns this client an id.
type ConnectedMsg struct {
	ClientID string
}

// SessionsMsg carries the latest state of every live session.
type SessionsMsg struct {
	Sessions []protocol.SessionState
}

// SessionEndedMsg is sent when a watched session disconnects.
type SessionEndedMsg struct {
	SessionID string
	Player    string
	Clean     bool
}

// DisconnectedMsg is sent when the WebSocket connection is lost.
type DisconnectedMsg struct {
	Err error
}

// Client manages the WebSocket connection to the relay.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	sendCh  chan []byte
	deliver func(tea.Msg)
	logger  *log.Logger
	done    chan struct{}
	started bool
	closed  bool
	// goodbye is sent ahead of the close frame by publishers.
	goodbye []byte
}

// Endpoint joins a relay base URL with a path, accepting http(s) or ws(s).
func Endpoint(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}

// Dial connects to the relay endpoint at path under base.
func Dial(base, path string, logger *log.Logger) (*Client, error) {
	endpoint, err := Endpoint(base, path)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return &Client{
		conn:   conn,
		sendCh: make(chan []byte, 256),
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// DialPublisher connects as a publishing session and introduces the player.
func DialPublisher(base, player string, logger *log.Logger) (*Client, error) {
	c, err := Dial(base, "/ws/publish", logger)
	if err != nil {
		return nil, err
	}
	c.Send(protocol.Envelope{Type: protocol.MsgHello, Payload: protocol.HelloPayload{Player: player}})
	c.goodbye, _ = json.Marshal(protocol.Envelope{Type: protocol.MsgGoodbye})
	return c, nil
}

func DialWatcher(base string, logger *log.Logger) (*Client, error) {
	return Dial(base, "/ws/watch", logger)
}

// SetProgram sets the bubbletea program so the client can send messages to it.
func (c *Client) SetProgram(p *tea.Program) {
	c.SetHandler(p.Send)
}

// SetHandler routes incoming messages to fn.
func (c *Client) SetHandler(fn func(tea.Msg)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliver = fn
}

func (c *Client) handler() func(tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliver
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.writePump()
	go c.readPump()
}

// Send marshals and queues an envelope. Sends after Close are dropped.
func (c *Client) Send(env protocol.Envelope) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		c.logf("marshal", err)
		return
	}
	select {
	case c.sendCh <- data:
	default:
		c.logf("send channel full, dropping message", nil)
	}
}

// Publish queues a session snapshot.
func (c *Client) Publish(st protocol.SessionState) {
	c.Send(protocol.Envelope{Type: protocol.MsgSnapshot, Payload: st})
}

// Close shuts down the connection. The write pump sends the close frame
// so there is only ever one writer.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if !c.started {
		c.conn.Close()
	}
}

func (c *Client) logf(msg string, err error) {
	if c.logger == nil {
		return
	}
	if err != nil {
		c.logger.Warn(msg, "err", err)
		return
	}
	c.logger.Warn(msg)
}

// readPump reads messages from the WebSocket and hands them to the handler.
func (c *Client) readPump() {
	var readErr error
	defer func() {
		c.Close()
		if deliver := c.handler(); deliver != nil {
			deliver(DisconnectedMsg{Err: readErr})
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				readErr = err
				c.logf("read", err)
			}
			return
		}

		var env struct {
			Type    protocol.MessageType `json:"type"`
			Payload json.RawMessage      `json:"payload"`
		}
		if err := json.Unmarshal(message, &env); err != nil {
			c.logf("unmarshal", err)
			continue
		}

		deliver := c.handler()
		if deliver == nil {
			continue
		}
		deliver(decode(env.Type, env.Payload))
	}
}

func decode(t protocol.MessageType, raw json.RawMessage) tea.Msg {
	switch t {
	case protocol.MsgAssignID:
		var payload protocol.AssignIDPayload
		if json.Unmarshal(raw, &payload) == nil {
			return ConnectedMsg{ClientID: payload.ClientID}
		}
	case protocol.MsgSessions:
		var payload protocol.SessionsPayload
		if json.Unmarshal(raw, &payload) == nil {
			return SessionsMsg{Sessions: payload.Sessions}
		}
	case protocol.MsgSessionEnded:
		var payload protocol.SessionEndedPayload
		if json.Unmarshal(raw, &payload) == nil {
			return SessionEndedMsg{SessionID: payload.SessionID, Player: payload.Player, Clean: payload.Clean}
		}
	}
	return RelayMsg{Type: t, Raw: raw}
}

// writePump writes messages from sendCh to the WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if c.goodbye != nil {
				c.flush()
				c.conn.WriteMessage(websocket.TextMessage, c.goodbye)
			}
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued so a publisher's last snapshot
// reaches the relay ahead of its goodbye.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.sendCh:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
