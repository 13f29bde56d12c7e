package netclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/levels/internal/protocol"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base string
		path string
		want string
	}{
		{"http://localhost:8080", "/ws/watch", "ws://localhost:8080/ws/watch"},
		{"https://relay.example.com/", "/ws/publish", "wss://relay.example.com/ws/publish"},
		{"ws://10.0.0.2:9000/levels", "/ws/watch", "ws://10.0.0.2:9000/levels/ws/watch"},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.base, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Endpoint("ftp://x", "/ws/watch")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	raw, err := json.Marshal(protocol.SessionsPayload{Sessions: []protocol.SessionState{{Player: "ana", Score: 3}}})
	require.NoError(t, err)

	msg := decode(protocol.MsgSessions, raw)
	sessions, ok := msg.(SessionsMsg)
	require.True(t, ok)
	assert.Equal(t, "ana", sessions.Sessions[0].Player)

	raw, _ = json.Marshal(protocol.AssignIDPayload{ClientID: "watcher_1"})
	assert.Equal(t, ConnectedMsg{ClientID: "watcher_1"}, decode(protocol.MsgAssignID, raw))

	raw = json.RawMessage(`{"message":"bad snapshot"}`)
	assert.Equal(t, RelayMsg{Type: protocol.MsgRelayError, Raw: raw}, decode(protocol.MsgRelayError, raw))
}
