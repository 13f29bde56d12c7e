package protocol

import (
	"github.com/hersh/levels/internal/game"
)

// MessageType identifies the kind of message sent over the wire.
type MessageType string

const (
	// Relay -> Client messages
	MsgAssignID     MessageType = "assign_id"
	MsgSessions     MessageType = "sessions"
	MsgSessionEnded MessageType = "session_ended"
	MsgRelayError   MessageType = "relay_error"

	// Publisher -> Relay messages
	MsgHello    MessageType = "hello"
	MsgSnapshot MessageType = "snapshot"
	MsgGoodbye  MessageType = "goodbye"
)

// Envelope is the top-level wire format for all messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Relay -> Client payloads ---

// AssignIDPayload is sent when a client first connects.
type AssignIDPayload struct {
	ClientID string `json:"client_id"`
}

// SessionsPayload carries the latest state of every live session.
type SessionsPayload struct {
	Sessions []SessionState `json:"sessions"`
}

// SessionEndedPayload tells watchers a publisher went away. Clean is set
// when the publisher said goodbye before disconnecting.
type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
	Player    string `json:"player"`
	Clean     bool   `json:"clean"`
}

// RelayErrorPayload is sent when the relay rejects a message.
type RelayErrorPayload struct {
	Message string `json:"message"`
}

// --- Publisher -> Relay payloads ---

// HelloPayload names the player behind a publishing session.
type HelloPayload struct {
	Player string `json:"player"`
}

// BoardState is one board of a session.
type BoardState struct {
	// Board is a flat array: BoardHeight * BoardWidth cells.
	// Each value is a color index (0 = empty).
	Board []int      `json:"board"`
	Gaze  []game.Pos `json:"gaze,omitempty"`
	Bombs []game.Pos `json:"bombs,omitempty"`
}

// SessionState is a compressed snapshot of one play session. The relay
// fills SessionID and Player; publishers leave them empty.
type SessionState struct {
	SessionID   string       `json:"session_id,omitempty"`
	Player      string       `json:"player,omitempty"`
	Level       int          `json:"level"`
	LevelName   string       `json:"level_name"`
	Mode        string       `json:"mode"`
	Score       int          `json:"score"`
	RemainingMS int64        `json:"remaining_ms"`
	Active      int          `json:"active"`
	Boards      []BoardState `json:"boards"`
	Piece       []game.Pos   `json:"piece,omitempty"`
	PieceColor  int          `json:"piece_color,omitempty"`
	Total       int          `json:"total"`
}

// FromSnapshot compresses an engine snapshot for the wire.
func FromSnapshot(s game.Snapshot) SessionState {
	st := SessionState{
		Level:       s.Level,
		LevelName:   s.Spec.Name,
		Mode:        s.Mode.String(),
		Score:       s.Score,
		RemainingMS: s.Remaining.Milliseconds(),
		Active:      s.Active,
	}
	for _, b := range s.Boards {
		flat := make([]int, 0, game.BoardWidth*game.BoardHeight)
		for _, row := range b.Grid {
			flat = append(flat, row...)
		}
		st.Boards = append(st.Boards, BoardState{Board: flat, Gaze: b.Gaze, Bombs: b.Bombs})
	}
	if s.Current != nil {
		st.Piece = s.Current.Cells
		st.PieceColor = s.Current.Color
	}
	for _, hs := range s.HighScores {
		st.Total += hs
	}
	return st
}

// --- HTTP Request/Response types ---

// SessionInfo describes a session in the list-sessions response.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Player    string `json:"player"`
	Level     int    `json:"level"`
	Score     int    `json:"score"`
	Mode      string `json:"mode"`
}

// ListSessionsResponse is returned by GET /sessions.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Watchers int           `json:"watchers"`
}

// ErrorResponse is a generic JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
