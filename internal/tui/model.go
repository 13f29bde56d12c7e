package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/netclient"
	"github.com/hersh/levels/internal/protocol"
)

const (
	tickInterval = 50 * time.Millisecond
	// maxTickStep bounds the time fed to the engine after a stall.
	maxTickStep = 100 * time.Millisecond

	recentAttempts = 5
)

// --- Custom tea.Msg types ---

type TickMsg time.Time

// HistoryMsg carries the player's past attempts.
type HistoryMsg struct {
	Recent []history.Attempt
	Best   map[int]int
	Err    error
}

// Saver persists progression on quit.
type Saver interface {
	Save() error
}

// History reads past attempts for the history panel.
type History interface {
	Recent(ctx context.Context, player string, limit int) ([]history.Attempt, error)
	Best(ctx context.Context, player string) (map[int]int, error)
}

type Options struct {
	Engine       *game.Engine
	Progress     Saver
	History      History
	Client       *netclient.Client
	Player       string
	PublishEvery time.Duration
}

// --- Model ---

// Model drives one engine from the keyboard and renders its snapshot.
type Model struct {
	engine   *game.Engine
	progress Saver
	client   *netclient.Client
	player   string

	history  History
	past     HistoryView
	lastMode game.Mode

	width  int
	height int

	lastTick     time.Time
	publishEvery time.Duration
	sincePublish time.Duration

	relayLost bool
	quitting  bool
}

func NewModel(opts Options) Model {
	every := opts.PublishEvery
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	return Model{
		engine:       opts.Engine,
		progress:     opts.Progress,
		history:      opts.History,
		client:       opts.Client,
		player:       opts.Player,
		publishEvery: every,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.loadHistory())
}

// loadHistory reads the player's attempts off the update loop.
func (m Model) loadHistory() tea.Cmd {
	if m.history == nil {
		return nil
	}
	h, player := m.history, m.player
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		recent, err := h.Recent(ctx, player, recentAttempts)
		if err != nil {
			return HistoryMsg{Err: err}
		}
		best, err := h.Best(ctx, player)
		return HistoryMsg{Recent: recent, Best: best, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// commandForKey maps a key to an engine command.
func commandForKey(key string) (game.Command, bool) {
	switch key {
	case "left", "h":
		return game.Cmd(game.CmdMoveLeft), true
	case "right", "l":
		return game.Cmd(game.CmdMoveRight), true
	case "down", "j":
		return game.Cmd(game.CmdSoftDrop), true
	case "up", "x", "k":
		return game.Cmd(game.CmdRotateCW), true
	case " ", "space":
		return game.Cmd(game.CmdHardDrop), true
	case "p", "esc":
		return game.Cmd(game.CmdTogglePause), true
	case "enter", "s":
		return game.Cmd(game.CmdStart), true
	case "r":
		return game.Cmd(game.CmdRestart), true
	case "[":
		return game.Cmd(game.CmdSelectPrevLevel), true
	case "]":
		return game.Cmd(game.CmdSelectNextLevel), true
	}
	if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < game.NumLevels {
		return game.SelectLevel(int(key[0] - '1')), true
	}
	return game.Command{}, false
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		return m.handleTick(time.Time(msg))
	case HistoryMsg:
		if msg.Err == nil {
			m.past = HistoryView{Recent: msg.Recent, Best: msg.Best}
		}
		return m, nil
	case netclient.DisconnectedMsg:
		m.relayLost = true
		m.client = nil
		return m, nil
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.shutdown()
		m.quitting = true
		return m, tea.Quit
	}
	if cmd, ok := commandForKey(msg.String()); ok {
		m.engine.Submit(cmd)
	}
	return m, nil
}

// shutdown saves progression and closes the relay connection.
func (m *Model) shutdown() {
	if m.progress != nil {
		// Failures are logged by the progression itself.
		_ = m.progress.Save()
	}
	if m.client != nil {
		m.client.Close()
	}
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	var dt time.Duration
	if !m.lastTick.IsZero() {
		dt = min(max(now.Sub(m.lastTick), 0), maxTickStep)
	}
	m.lastTick = now
	m.engine.Tick(dt)

	next := tickCmd()
	// Completed attempts are recorded on the transition, so refresh then.
	mode := m.engine.Mode()
	if mode == game.ModeLevelComplete && m.lastMode != game.ModeLevelComplete {
		next = tea.Batch(next, m.loadHistory())
	}
	m.lastMode = mode

	if m.client != nil {
		m.sincePublish += dt
		if m.sincePublish >= m.publishEvery || dt == 0 {
			m.sincePublish = 0
			m.client.Publish(protocol.FromSnapshot(m.engine.Snapshot()))
		}
	}
	return m, next
}

// --- View ---

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	content := RenderGame(m.engine.Snapshot(), m.player, m.past)
	if m.relayLost {
		content = lipgloss.JoinVertical(lipgloss.Left, content, dimStyle.Render("relay disconnected"))
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

// --- Watch model ---

// WatchModel shows the sessions published to a relay.
type WatchModel struct {
	client   *netclient.Client
	clientID string
	sessions []protocol.SessionState
	selected string

	width  int
	height int

	connected    bool
	disconnected bool
	err          error
}

func NewWatchModel(client *netclient.Client) WatchModel {
	return WatchModel{client: client}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.client != nil {
				m.client.Close()
			}
			return m, tea.Quit
		case "tab", "right", "l":
			m.cycle(1)
		case "shift+tab", "left", "h":
			m.cycle(-1)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case netclient.ConnectedMsg:
		m.connected = true
		m.clientID = msg.ClientID
	case netclient.SessionsMsg:
		m.connected = true
		m.sessions = msg.Sessions
		if m.index() < 0 && len(m.sessions) > 0 {
			m.selected = m.sessions[0].SessionID
		}
	case netclient.SessionEndedMsg:
		if m.selected == msg.SessionID {
			m.selected = ""
		}
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
	}
	return m, nil
}

func (m WatchModel) index() int {
	for i, s := range m.sessions {
		if s.SessionID == m.selected {
			return i
		}
	}
	return -1
}

func (m *WatchModel) cycle(step int) {
	if len(m.sessions) == 0 {
		return
	}
	i := m.index()
	if i < 0 {
		i = 0
	} else {
		i = (i + step + len(m.sessions)) % len(m.sessions)
	}
	m.selected = m.sessions[i].SessionID
}

func (m WatchModel) View() string {
	var content string
	switch {
	case m.disconnected:
		content = "Disconnected from relay.\nPress Ctrl+C to exit."
	case !m.connected:
		content = "Connecting to relay..."
	default:
		i := m.index()
		list := RenderSessionList(m.sessions, i)
		if i >= 0 {
			content = lipgloss.JoinHorizontal(lipgloss.Top,
				lipgloss.NewStyle().Width(30).Render(list),
				lipgloss.NewStyle().Padding(0, 2).Render(RenderSession(m.sessions[i])),
			)
		} else {
			content = list
		}
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
