package game

import (
	"slices"
	"time"
)

// BoardView is a read-only copy of one board.
type BoardView struct {
	Grid  [][]int
	Gaze  []Pos
	Bombs []Pos
}

// PieceView is a read-only copy of a piece. GhostY is the row the piece
// would land on if hard dropped on the active board.
type PieceView struct {
	Type     PieceType
	Rotation int
	X, Y     int
	GhostY   int
	Color    int
	Shape    [][]bool
	Cells    []Pos
}

// Snapshot is everything a front-end needs to draw a session.
type Snapshot struct {
	Mode         Mode
	Level        int
	Spec         LevelSpec
	Boards       []BoardView
	Active       int
	Current      *PieceView
	Next         *PieceView
	Remaining    time.Duration
	Elapsed      time.Duration
	FallInterval time.Duration
	Score        int
	ClearingRows []int
	Last         Outcome
	HighScores   []int
	States       []LevelState
	Journal      []string
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Mode:         e.mode,
		Level:        e.level,
		Spec:         e.spec,
		Active:       e.active,
		Remaining:    e.remaining,
		Elapsed:      e.elapsed,
		FallInterval: e.interval,
		Score:        e.score,
		Last:         e.last,
		Journal:      e.journal.Lines(),
	}
	for _, b := range e.boards {
		s.Boards = append(s.Boards, BoardView{
			Grid:  b.Grid(),
			Gaze:  b.GazeCells(),
			Bombs: b.BombCells(),
		})
	}
	if e.current != nil {
		s.Current = viewPiece(e.current, e.board())
	}
	if e.next != nil {
		s.Next = viewPiece(e.next, nil)
	}
	if e.pending != nil {
		s.ClearingRows = slices.Clone(e.pending.rows)
	}
	if e.progress != nil {
		s.HighScores = e.progress.HighScores()
		s.States = e.progress.States()
	}
	return s
}

func viewPiece(p *Piece, b *Board) *PieceView {
	v := &PieceView{
		Type:     p.Type,
		Rotation: p.Rotation,
		X:        p.X,
		Y:        p.Y,
		GhostY:   p.Y,
		Color:    p.Color(),
		Shape:    cloneShape(p.Shape()),
		Cells:    p.Cells(),
	}
	if b != nil {
		for dy := 1; b.IsValidPosition(p, 0, dy); dy++ {
			v.GhostY = p.Y + dy
		}
	}
	return v
}

func cloneShape(shape [][]bool) [][]bool {
	out := make([][]bool, len(shape))
	for i, row := range shape {
		out[i] = slices.Clone(row)
	}
	return out
}
