package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/netclient"
	"github.com/hersh/levels/internal/protocol"
)

type countingSaver struct {
	calls int
	err   error
}

func (c *countingSaver) Save() error {
	c.calls++
	return c.err
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCommandForKey(t *testing.T) {
	tests := []struct {
		key  string
		want game.Command
	}{
		{"left", game.Cmd(game.CmdMoveLeft)},
		{"h", game.Cmd(game.CmdMoveLeft)},
		{"l", game.Cmd(game.CmdMoveRight)},
		{"j", game.Cmd(game.CmdSoftDrop)},
		{"up", game.Cmd(game.CmdRotateCW)},
		{"x", game.Cmd(game.CmdRotateCW)},
		{" ", game.Cmd(game.CmdHardDrop)},
		{"p", game.Cmd(game.CmdTogglePause)},
		{"enter", game.Cmd(game.CmdStart)},
		{"r", game.Cmd(game.CmdRestart)},
		{"[", game.Cmd(game.CmdSelectPrevLevel)},
		{"]", game.Cmd(game.CmdSelectNextLevel)},
		{"1", game.SelectLevel(0)},
		{"7", game.SelectLevel(6)},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := commandForKey(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, k := range []string{"8", "0", "z", "ctrl+a"} {
		_, ok := commandForKey(k)
		assert.False(t, ok, k)
	}
}

func TestModelStartsAndTicks(t *testing.T) {
	e := game.NewEngine(game.Options{Seed: 9})
	m := NewModel(Options{Engine: e, Player: "ana"})
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	next, cmd := m.Update(key("s"))
	assert.Nil(t, cmd)
	next, cmd = next.Update(TickMsg(t0))
	require.NotNil(t, cmd)
	assert.Equal(t, game.ModeRunning, e.Mode())
	assert.Equal(t, game.Levels[0].TimeLimit, e.Remaining())

	next, _ = next.Update(TickMsg(t0.Add(50 * time.Millisecond)))
	assert.Equal(t, game.Levels[0].TimeLimit-50*time.Millisecond, e.Remaining())

	// A long stall is clamped.
	next, _ = next.Update(TickMsg(t0.Add(10 * time.Second)))
	assert.Equal(t, game.Levels[0].TimeLimit-150*time.Millisecond, e.Remaining())

	view := next.View()
	assert.Contains(t, view, "Novice Road")
	assert.Contains(t, view, "ana")
}

func TestModelQuitSaves(t *testing.T) {
	saver := &countingSaver{err: errors.New("read-only")}
	m := NewModel(Options{Engine: game.NewEngine(game.Options{Seed: 1}), Progress: saver})

	next, cmd := m.Update(key("q"))

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, saver.calls)
	assert.Empty(t, next.View())
}

type fakeHistory struct {
	attempts []history.Attempt
	err      error
}

func (f fakeHistory) Recent(_ context.Context, player string, limit int) ([]history.Attempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.attempts[:min(limit, len(f.attempts))], nil
}

func (f fakeHistory) Best(_ context.Context, player string) (map[int]int, error) {
	best := map[int]int{}
	for _, a := range f.attempts {
		best[a.Level] = max(best[a.Level], a.Score)
	}
	return best, nil
}

func TestModelShowsHistory(t *testing.T) {
	finished := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	h := fakeHistory{attempts: []history.Attempt{
		{Player: "ana", Level: 0, Score: 90, FinishedAt: finished},
		{Player: "ana", Level: 0, Score: 130, NewRecord: true, FinishedAt: finished},
	}}
	m := NewModel(Options{Engine: game.NewEngine(game.Options{Seed: 1}), History: h, Player: "ana"})

	msg := m.loadHistory()()
	require.IsType(t, HistoryMsg{}, msg)
	next, _ := m.Update(msg)

	view := next.View()
	assert.Contains(t, view, "HISTORY")
	assert.Contains(t, view, "best on L1: 130")
	assert.Contains(t, view, "L1   130 *")
}

func TestModelIgnoresHistoryErrors(t *testing.T) {
	m := NewModel(Options{Engine: game.NewEngine(game.Options{Seed: 1}), History: fakeHistory{err: errors.New("locked")}})

	next, _ := m.Update(m.loadHistory()())

	assert.NotContains(t, next.View(), "HISTORY")
	assert.Nil(t, NewModel(Options{Engine: game.NewEngine(game.Options{Seed: 1})}).loadHistory())
}

func TestModelRelayLost(t *testing.T) {
	m := NewModel(Options{Engine: game.NewEngine(game.Options{Seed: 1})})
	next, _ := m.Update(netclient.DisconnectedMsg{})
	assert.Contains(t, next.View(), "relay disconnected")
}

func TestWatchModel(t *testing.T) {
	m := NewWatchModel(nil)
	assert.Contains(t, m.View(), "Connecting")

	e := game.NewEngine(game.Options{Seed: 4, Level: 3})
	a := protocol.FromSnapshot(e.Snapshot())
	a.SessionID, a.Player = "session_1", "ana"
	b := a
	b.SessionID, b.Player = "session_2", "bo"

	next, _ := m.Update(netclient.SessionsMsg{Sessions: []protocol.SessionState{a, b}})
	wm := next.(WatchModel)
	assert.Equal(t, "session_1", wm.selected)
	assert.Contains(t, wm.View(), "King's Gaze I")

	next, _ = wm.Update(key("tab"))
	assert.Equal(t, "session_2", next.(WatchModel).selected)
	next, _ = next.Update(key("tab"))
	assert.Equal(t, "session_1", next.(WatchModel).selected)

	next, _ = next.Update(netclient.SessionEndedMsg{SessionID: "session_1"})
	next, _ = next.Update(netclient.SessionsMsg{Sessions: []protocol.SessionState{b}})
	assert.Equal(t, "session_2", next.(WatchModel).selected)

	next, _ = next.Update(netclient.DisconnectedMsg{})
	assert.Contains(t, next.View(), "Disconnected")
}

func TestRenderBoardMarksSpecialCells(t *testing.T) {
	b := game.NewBoard()
	require.NoError(t, b.SetBombs([]game.Pos{{X: 0, Y: 19}}))
	view := game.BoardView{Grid: b.Grid(), Bombs: b.BombCells()}

	out := RenderBoard(view, nil, nil, false)
	assert.Contains(t, out, "<>")
}
