package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/protocol"
)

var (
	colors = []string{
		"0",
		"51",  // I
		"226", // O
		"201", // T
		"46",  // S
		"196", // Z
		"21",  // J
		"208", // L
		"245", // obstacle fill
	}

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15"))

	activeBoardStyle = lipgloss.NewStyle().
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("51"))

	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	dimStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("244"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	gameOverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	winnerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	gazeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bombStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	ghostStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	flashStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
)

func colorFor(tag int) lipgloss.Color {
	if tag >= 0 && tag < len(colors) {
		return lipgloss.Color(colors[tag])
	}
	return lipgloss.Color("248")
}

func cellSet(cells []game.Pos) map[game.Pos]bool {
	set := make(map[game.Pos]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}
	return set
}

// RenderBoard draws one board with its special cells, the falling piece and
// its ghost. piece may be nil.
func RenderBoard(view game.BoardView, piece *game.PieceView, clearing []int, active bool) string {
	var sb strings.Builder

	gaze := cellSet(view.Gaze)
	bombs := cellSet(view.Bombs)
	flashing := make(map[int]bool, len(clearing))
	for _, y := range clearing {
		flashing[y] = true
	}

	var pieceCells, ghostCells map[game.Pos]bool
	if piece != nil {
		pieceCells = cellSet(piece.Cells)
		ghost := make([]game.Pos, len(piece.Cells))
		for i, c := range piece.Cells {
			ghost[i] = game.Pos{X: c.X, Y: c.Y + piece.GhostY - piece.Y}
		}
		ghostCells = cellSet(ghost)
	}

	for y := 0; y < len(view.Grid); y++ {
		for x := 0; x < len(view.Grid[y]); x++ {
			p := game.Pos{X: x, Y: y}
			cell := view.Grid[y][x]
			switch {
			case flashing[y]:
				sb.WriteString(flashStyle.Render("▓▓"))
			case pieceCells[p]:
				sb.WriteString(lipgloss.NewStyle().Foreground(colorFor(piece.Color)).Render("██"))
			case cell != 0:
				block := "██"
				if gaze[p] {
					block = "▓▓"
				}
				sb.WriteString(lipgloss.NewStyle().Foreground(colorFor(cell)).Render(block))
			case bombs[p]:
				sb.WriteString(bombStyle.Render("<>"))
			case ghostCells[p]:
				sb.WriteString(ghostStyle.Render("[]"))
			case gaze[p]:
				sb.WriteString(gazeStyle.Render("::"))
			default:
				sb.WriteString("  ")
			}
		}
		if y < len(view.Grid)-1 {
			sb.WriteString("\n")
		}
	}

	if active {
		return activeBoardStyle.Render(sb.String())
	}
	return boardStyle.Render(sb.String())
}

func RenderPiece(p *game.PieceView) string {
	if p == nil {
		return "Empty"
	}

	var sb strings.Builder
	pieceStyle := lipgloss.NewStyle().Foreground(colorFor(p.Color))

	for y, row := range p.Shape {
		for _, filled := range row {
			if filled {
				sb.WriteString(pieceStyle.Render("██"))
			} else {
				sb.WriteString("  ")
			}
		}
		if y < len(p.Shape)-1 {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func formatClock(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func RenderInfo(s game.Snapshot, player string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("LEVELS") + "\n\n")
	if player != "" {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Player: %s", player)) + "\n")
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Level %d: %s", s.Spec.ID, s.Spec.Name)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Time: %s", formatClock(s.Remaining))) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Score: %d", s.Score)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Goal: %d", s.Spec.UnlockScore)) + "\n")
	if s.Level < len(s.HighScores) {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("Best: %d", s.HighScores[s.Level])) + "\n")
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Speed: %.2fs", s.FallInterval.Seconds())) + "\n\n")

	sb.WriteString(titleStyle.Render("NEXT") + "\n")
	sb.WriteString(RenderPiece(s.Next) + "\n")

	if turn := s.Last.Turn; turn.Total > 0 {
		sb.WriteString("\n")
		msg := fmt.Sprintf("+%d", turn.Base+turn.Gaze)
		if turn.Bonus > 0 {
			msg += fmt.Sprintf("  bonus +%d", turn.Bonus)
		}
		sb.WriteString(winnerStyle.Render(msg) + "\n")
	}

	return sb.String()
}

// RenderLevels lists every level with its progression state.
func RenderLevels(s game.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("LEVELS") + "\n")
	total := 0
	for i, spec := range game.Levels {
		state := game.Unlocked
		if i < len(s.States) {
			state = s.States[i]
		}
		best := 0
		if i < len(s.HighScores) {
			best = s.HighScores[i]
		}
		total += best

		mark := "  "
		if i == s.Level {
			mark = "> "
		}
		line := fmt.Sprintf("%s%d %-16s %5d", mark, spec.ID, spec.Name, best)
		switch state {
		case game.Locked:
			sb.WriteString(dimStyle.Render(fmt.Sprintf("%s%d %-16s  ----", mark, spec.ID, "locked")) + "\n")
		case game.Completed:
			sb.WriteString(winnerStyle.Render(line) + "\n")
		default:
			sb.WriteString(infoStyle.Render(line) + "\n")
		}
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Total: %d", total)))
	return sb.String()
}

func RenderJournal(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return dimStyle.Render(strings.Join(lines, "\n"))
}

// RenderStatus is the banner shown for non-running modes.
func RenderStatus(s game.Snapshot) string {
	switch s.Mode {
	case game.ModeIdle:
		return titleStyle.Render(fmt.Sprintf("Level %d: %s", s.Spec.ID, s.Spec.Name)) +
			"\n" + infoStyle.Render("ENTER/S to start, [ ] or 1-7 to pick a level")
	case game.ModePaused:
		return titleStyle.Render("PAUSED") + "\n" + infoStyle.Render("P to resume")
	case game.ModeLevelComplete:
		msg := fmt.Sprintf("TIME UP  Score: %d", s.Score)
		if s.Last.NewRecord {
			msg += "  NEW RECORD!"
		}
		return winnerStyle.Render(msg) + "\n" + infoStyle.Render("R to replay, ] for next level")
	case game.ModeGameOver:
		return gameOverStyle.Render(fmt.Sprintf("GAME OVER  Score: %d", s.Score)) +
			"\n" + infoStyle.Render("R to restart")
	}
	return ""
}

func RenderControls() string {
	return infoStyle.Render(`Controls:
  ← →/h l  Move
  ↓/j      Soft drop
  ↑/x      Rotate
  Space    Hard drop / warp
  P        Pause
  R        Restart
  [ ] 1-7  Select level
  Q        Quit`)
}

// HistoryView is what the history panel shows.
type HistoryView struct {
	Recent []history.Attempt
	Best   map[int]int
}

// RenderHistory lists recent attempts and the all-time best for the
// current level. Empty when nothing has been recorded.
func RenderHistory(h HistoryView, level int) string {
	if len(h.Recent) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("HISTORY") + "\n")
	if best, ok := h.Best[level]; ok {
		sb.WriteString(infoStyle.Render(fmt.Sprintf("best on L%d: %d", level+1, best)) + "\n")
	}
	for _, a := range h.Recent {
		mark := " "
		if a.NewRecord {
			mark = "*"
		}
		line := fmt.Sprintf("L%d %5d %s %s", a.Level+1, a.Score, mark, a.FinishedAt.Local().Format("Jan 02 15:04"))
		sb.WriteString(dimStyle.Render(line) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderGame lays out a full session: info, board(s), level list and journal.
func RenderGame(s game.Snapshot, player string, past HistoryView) string {
	var boards []string
	for i, b := range s.Boards {
		var piece *game.PieceView
		var clearing []int
		if i == s.Active {
			piece = s.Current
			clearing = s.ClearingRows
		}
		boards = append(boards, RenderBoard(b, piece, clearing, len(s.Boards) > 1 && i == s.Active))
	}

	center := lipgloss.JoinHorizontal(lipgloss.Top, boards...)
	if status := RenderStatus(s); status != "" {
		center = lipgloss.JoinVertical(lipgloss.Center, center, status)
	}

	left := lipgloss.NewStyle().Width(26).Render(RenderInfo(s, player))
	panels := []string{RenderLevels(s), ""}
	if hist := RenderHistory(past, s.Level); hist != "" {
		panels = append(panels, hist, "")
	}
	panels = append(panels, RenderControls())
	right := lipgloss.NewStyle().Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, panels...))

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		lipgloss.NewStyle().Padding(0, 2).Render(center),
		right,
	)
	if journal := RenderJournal(s.Journal); journal != "" {
		main = lipgloss.JoinVertical(lipgloss.Left, main, "", journal)
	}
	return main
}

// sessionBoards rebuilds board views from a wire snapshot.
func sessionBoards(st protocol.SessionState) []game.BoardView {
	views := make([]game.BoardView, 0, len(st.Boards))
	for _, b := range st.Boards {
		bd := game.BoardFromFlat(b.Board, game.BoardWidth, game.BoardHeight)
		views = append(views, game.BoardView{Grid: bd.Cells, Gaze: b.Gaze, Bombs: b.Bombs})
	}
	return views
}

// RenderSession draws a watched session.
func RenderSession(st protocol.SessionState) string {
	var piece *game.PieceView
	if len(st.Piece) > 0 {
		piece = &game.PieceView{Cells: st.Piece, Color: st.PieceColor}
		lowest := 0
		for _, c := range st.Piece {
			lowest = max(lowest, c.Y)
		}
		piece.Y, piece.GhostY = lowest, lowest
	}

	var boards []string
	for i, b := range sessionBoards(st) {
		var p *game.PieceView
		if i == st.Active {
			p = piece
		}
		boards = append(boards, RenderBoard(b, p, nil, len(st.Boards) > 1 && i == st.Active))
	}

	name := st.Player
	if name == "" {
		name = st.SessionID
	}
	header := titleStyle.Render(name) + "\n" +
		infoStyle.Render(fmt.Sprintf("Level %d: %s  %s", st.Level+1, st.LevelName, st.Mode)) + "\n" +
		infoStyle.Render(fmt.Sprintf("Score: %d  Time: %s  Total: %d",
			st.Score, formatClock(time.Duration(st.RemainingMS)*time.Millisecond), st.Total))
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, boards...))
}

// RenderSessionList lists every live session, marking the selected one.
func RenderSessionList(sessions []protocol.SessionState, selected int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("SESSIONS") + "\n")
	if len(sessions) == 0 {
		sb.WriteString(dimStyle.Render("waiting for players..."))
		return sb.String()
	}
	for i, st := range sessions {
		mark := "  "
		if i == selected {
			mark = "> "
		}
		name := st.Player
		if name == "" {
			name = st.SessionID
		}
		sb.WriteString(infoStyle.Render(fmt.Sprintf("%s%-12s L%d %5d", mark, name, st.Level+1, st.Score)) + "\n")
	}
	sb.WriteString(dimStyle.Render("TAB/← → to switch, Q to quit"))
	return sb.String()
}
