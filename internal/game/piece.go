package game

import "math/rand"

const (
	BoardWidth  = 10
	BoardHeight = 20
)

type PieceType int

const (
	PieceI PieceType = iota
	PieceO
	PieceT
	PieceS
	PieceZ
	PieceJ
	PieceL

	NumPieceTypes = 7
)

var pieceNames = [NumPieceTypes]string{"I", "O", "T", "S", "Z", "J", "L"}

func (t PieceType) String() string {
	if t < 0 || int(t) >= NumPieceTypes {
		return "?"
	}
	return pieceNames[t]
}

// States reports how many rotation states the shape has.
func (t PieceType) States() int {
	return len(pieceShapes[t])
}

// Pos is a cell coordinate on a board. Y grows downward and may be negative
// while a piece is still in the spawn buffer.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func mask(rows ...string) [][]bool {
	shape := make([][]bool, len(rows))
	for y, row := range rows {
		shape[y] = make([]bool, len(row))
		for x, c := range row {
			shape[y][x] = c == '#'
		}
	}
	return shape
}

// Rotation states in clockwise order. The anchor of a piece is the top-left
// corner of the current matrix.
var pieceShapes = [NumPieceTypes][][][]bool{
	PieceI: {
		mask("####"),
		mask("#", "#", "#", "#"),
	},
	PieceO: {
		mask("##", "##"),
	},
	PieceT: {
		mask(".#.", "###"),
		mask("#..", "##.", "#.."),
		mask("###", ".#."),
		mask(".#.", "##.", ".#."),
	},
	PieceS: {
		mask(".##", "##."),
		mask("#..", "##.", ".#."),
	},
	PieceZ: {
		mask("##.", ".##"),
		mask(".#.", "##.", "#.."),
	},
	PieceJ: {
		mask("#..", "###"),
		mask("##.", "#..", "#.."),
		mask("###", "..#"),
		mask(".#.", ".#.", "##."),
	},
	PieceL: {
		mask("..#", "###"),
		mask("#..", "#..", "##."),
		mask("###", "#.."),
		mask("##.", ".#.", ".#."),
	},
}

type Piece struct {
	Type     PieceType
	Rotation int
	X, Y     int
}

// NewPiece returns a piece in its spawn position: horizontally centred on
// the board, anchored at row 0.
func NewPiece(t PieceType) *Piece {
	p := &Piece{Type: t}
	p.X = BoardWidth/2 - len(p.Shape()[0])/2
	return p
}

// RandomPiece returns a piece of uniformly random type drawn from rng.
func RandomPiece(rng *rand.Rand) *Piece {
	return NewPiece(PieceType(rng.Intn(NumPieceTypes)))
}

func (p *Piece) Shape() [][]bool {
	return pieceShapes[p.Type][p.Rotation]
}

// Color is the tag written into the board when the piece locks (1..7).
func (p *Piece) Color() int {
	return int(p.Type) + 1
}

func (p *Piece) Translate(dx, dy int) {
	p.X += dx
	p.Y += dy
}

// Rotate advances the rotation state and returns the previous one so the
// caller can revert. Shapes with a single state are left untouched.
func (p *Piece) Rotate(cw bool) int {
	prior := p.Rotation
	n := p.Type.States()
	if n > 1 {
		if cw {
			p.Rotation = (p.Rotation + 1) % n
		} else {
			p.Rotation = (p.Rotation - 1 + n) % n
		}
	}
	return prior
}

// Cells enumerates the occupied cells in board coordinates.
func (p *Piece) Cells() []Pos {
	return p.cellsAt(0, 0)
}

func (p *Piece) cellsAt(dx, dy int) []Pos {
	cells := make([]Pos, 0, 4)
	for y, row := range p.Shape() {
		for x, filled := range row {
			if filled {
				cells = append(cells, Pos{X: p.X + x + dx, Y: p.Y + y + dy})
			}
		}
	}
	return cells
}

// ColumnSpan returns the leftmost and rightmost occupied columns.
func (p *Piece) ColumnSpan() (int, int) {
	cells := p.Cells()
	if len(cells) == 0 {
		return 0, 0
	}
	lo, hi := cells[0].X, cells[0].X
	for _, c := range cells[1:] {
		lo = min(lo, c.X)
		hi = max(hi, c.X)
	}
	return lo, hi
}

func (p *Piece) Clone() *Piece {
	c := *p
	return &c
}
