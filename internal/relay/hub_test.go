package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/levels/internal/netclient"
	"github.com/hersh/levels/internal/protocol"
)

func startRelay(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(20*time.Millisecond, log.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func collect(c *netclient.Client) <-chan tea.Msg {
	ch := make(chan tea.Msg, 256)
	c.SetHandler(func(m tea.Msg) {
		select {
		case ch <- m:
		default:
		}
	})
	return ch
}

func waitFor(t *testing.T, ch <-chan tea.Msg, match func(tea.Msg) bool) tea.Msg {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case m := <-ch:
			if match(m) {
				return m
			}
		case <-timeout:
			t.Fatal("timed out waiting for relay message")
			return nil
		}
	}
}

func TestPublishAndWatch(t *testing.T) {
	_, srv := startRelay(t)

	watcher, err := netclient.DialWatcher(srv.URL, nil)
	require.NoError(t, err)
	msgs := collect(watcher)
	watcher.Start()
	defer watcher.Close()

	pub, err := netclient.DialPublisher(srv.URL, "ana", nil)
	require.NoError(t, err)
	pub.Start()
	pub.Publish(protocol.SessionState{Level: 2, LevelName: "Full Throttle", Score: 42, Mode: "running"})

	got := waitFor(t, msgs, func(m tea.Msg) bool {
		s, ok := m.(netclient.SessionsMsg)
		return ok && len(s.Sessions) == 1
	}).(netclient.SessionsMsg)

	st := got.Sessions[0]
	assert.Equal(t, "ana", st.Player)
	assert.Equal(t, 42, st.Score)
	assert.Equal(t, "Full Throttle", st.LevelName)
	assert.NotEmpty(t, st.SessionID)

	pub.Close()
	ended := waitFor(t, msgs, func(m tea.Msg) bool {
		_, ok := m.(netclient.SessionEndedMsg)
		return ok
	}).(netclient.SessionEndedMsg)
	assert.Equal(t, st.SessionID, ended.SessionID)
	assert.Equal(t, "ana", ended.Player)
	assert.True(t, ended.Clean)
}

func TestDroppedPublisherEndsUnclean(t *testing.T) {
	hub, srv := startRelay(t)

	watcher, err := netclient.DialWatcher(srv.URL, nil)
	require.NoError(t, err)
	msgs := collect(watcher)
	watcher.Start()
	defer watcher.Close()

	endpoint, err := netclient.Endpoint(srv.URL, "/ws/publish")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(protocol.Envelope{
		Type:    protocol.MsgHello,
		Payload: protocol.HelloPayload{Player: "cy"},
	}))
	require.NoError(t, conn.WriteJSON(protocol.Envelope{
		Type:    protocol.MsgSnapshot,
		Payload: protocol.SessionState{Level: 1, Mode: "running"},
	}))
	require.Eventually(t, func() bool {
		for _, s := range hub.Sessions() {
			if s.Player == "cy" {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	conn.Close()

	ended := waitFor(t, msgs, func(m tea.Msg) bool {
		_, ok := m.(netclient.SessionEndedMsg)
		return ok
	}).(netclient.SessionEndedMsg)
	assert.Equal(t, "cy", ended.Player)
	assert.False(t, ended.Clean)
}

func TestSessionsEndpoint(t *testing.T) {
	hub, srv := startRelay(t)

	pub, err := netclient.DialPublisher(srv.URL, "bo", nil)
	require.NoError(t, err)
	pub.Start()
	defer pub.Close()
	pub.Publish(protocol.SessionState{Level: 5, Score: 7, Mode: "paused"})

	require.Eventually(t, func() bool { return len(hub.Sessions()) == 1 }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body protocol.ListSessionsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "bo", body.Sessions[0].Player)
	assert.Equal(t, 5, body.Sessions[0].Level)
	assert.Equal(t, "paused", body.Sessions[0].Mode)
}

func TestNewHubDefaults(t *testing.T) {
	hub := NewHub(0, nil)
	require.NotNil(t, hub.logger)
	assert.Equal(t, DefaultBroadcastInterval, hub.interval)
	assert.Empty(t, hub.Sessions())
}

func TestHealth(t *testing.T) {
	_, srv := startRelay(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestSessionsRejectsPost(t *testing.T) {
	_, srv := startRelay(t)

	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
