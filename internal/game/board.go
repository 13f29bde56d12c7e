package game

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

var (
	ErrCellOutOfBounds = errors.New("cell out of bounds")
	ErrCellConflict    = errors.New("cell is both gaze and bomb")
)

const (
	// GazeScore is awarded each time a gaze region is cleared.
	GazeScore = 100

	maxObstacleAttempts = 20
)

// ClearResult describes the rows removed by ClearFullRows.
type ClearResult struct {
	Count  int
	Rows   []int // top to bottom, indices before removal
	Blocks int
}

// GazeResult describes a gaze region activation.
type GazeResult struct {
	Blocks int
	Score  int
}

// Board is the playfield. Cells hold 0 for empty or a piece color tag.
type Board struct {
	Cells  [][]int
	Width  int
	Height int

	gaze  cellSet
	bombs cellSet
}

func NewBoard() *Board {
	cells := make([][]int, BoardHeight)
	for i := range cells {
		cells[i] = make([]int, BoardWidth)
	}
	return &Board{
		Cells:  cells,
		Width:  BoardWidth,
		Height: BoardHeight,
		gaze:   newCellSet(BoardWidth),
		bombs:  newCellSet(BoardWidth),
	}
}

func (b *Board) inBounds(p Pos) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

func (b *Board) Occupied(p Pos) bool {
	return b.inBounds(p) && b.Cells[p.Y][p.X] != 0
}

// IsValidPosition reports whether p, shifted by the offsets, fits the board.
// Rows above the top edge count as empty.
func (b *Board) IsValidPosition(p *Piece, offsetX, offsetY int) bool {
	for _, c := range p.cellsAt(offsetX, offsetY) {
		if c.X < 0 || c.X >= b.Width {
			return false
		}
		if c.Y >= b.Height {
			return false
		}
		if c.Y >= 0 && b.Cells[c.Y][c.X] != 0 {
			return false
		}
	}
	return true
}

// Merge writes the piece color into every occupied cell inside the board.
func (b *Board) Merge(p *Piece) {
	for _, c := range p.Cells() {
		if b.inBounds(c) {
			b.Cells[c.Y][c.X] = p.Color()
		}
	}
}

func (b *Board) rowFull(y int) bool {
	for x := 0; x < b.Width; x++ {
		if b.Cells[y][x] == 0 {
			return false
		}
	}
	return true
}

// ClearFullRows removes every full row and shifts the rows above down.
func (b *Board) ClearFullRows() ClearResult {
	var res ClearResult
	kept := make([][]int, 0, b.Height)

	for y := 0; y < b.Height; y++ {
		if b.rowFull(y) {
			res.Rows = append(res.Rows, y)
			continue
		}
		kept = append(kept, b.Cells[y])
	}

	res.Count = len(res.Rows)
	res.Blocks = res.Count * b.Width
	if res.Count == 0 {
		return res
	}

	cells := make([][]int, 0, b.Height)
	for range res.Count {
		cells = append(cells, make([]int, b.Width))
	}
	b.Cells = append(cells, kept...)
	return res
}

// CheckGaze clears the gaze region if every one of its cells is occupied.
// The region is emptied on activation; either all of it clears or none.
func (b *Board) CheckGaze() GazeResult {
	if b.gaze.Len() == 0 {
		return GazeResult{}
	}
	cells := b.gaze.Sorted()
	for _, c := range cells {
		if !b.Occupied(c) {
			return GazeResult{}
		}
	}
	for _, c := range cells {
		b.Cells[c.Y][c.X] = 0
	}
	b.gaze.Clear()
	return GazeResult{Blocks: len(cells), Score: GazeScore}
}

// CheckBombHit reports whether any visible cell of p sits on a bomb.
func (b *Board) CheckBombHit(p *Piece) bool {
	if b.bombs.Len() == 0 {
		return false
	}
	for _, c := range p.Cells() {
		if c.Y >= 0 && b.bombs.Has(c) {
			return true
		}
	}
	return false
}

func (b *Board) IsToppedOut() bool {
	for x := 0; x < b.Width; x++ {
		if b.Cells[0][x] != 0 {
			return true
		}
	}
	return false
}

func (b *Board) GazeCells() []Pos { return b.gaze.Sorted() }
func (b *Board) BombCells() []Pos { return b.bombs.Sorted() }

// SetGaze replaces the gaze region.
func (b *Board) SetGaze(cells []Pos) error {
	if err := b.checkSpecial(cells, b.bombs); err != nil {
		return fmt.Errorf("set gaze: %w", err)
	}
	b.gaze.Clear()
	for _, c := range cells {
		b.gaze.Add(c)
	}
	return nil
}

// SetBombs replaces the bomb cells.
func (b *Board) SetBombs(cells []Pos) error {
	if err := b.checkSpecial(cells, b.gaze); err != nil {
		return fmt.Errorf("set bombs: %w", err)
	}
	b.bombs.Clear()
	for _, c := range cells {
		b.bombs.Add(c)
	}
	return nil
}

func (b *Board) checkSpecial(cells []Pos, other cellSet) error {
	for _, c := range cells {
		if !b.inBounds(c) {
			return fmt.Errorf("%w: (%d,%d)", ErrCellOutOfBounds, c.X, c.Y)
		}
		if other.Has(c) {
			return fmt.Errorf("%w: (%d,%d)", ErrCellConflict, c.X, c.Y)
		}
	}
	return nil
}

// PopulateGaze replaces the gaze region with up to n connected cells grown
// breadth-first from a seed in the middle band of the board. Bomb cells act
// as walls. It returns the number of cells produced.
func (b *Board) PopulateGaze(n int, rng *rand.Rand) int {
	b.gaze.Clear()
	if n <= 0 {
		return 0
	}

	lo, hi := b.Height/4, 3*b.Height/4
	seed := Pos{X: b.Width / 2, Y: lo + rng.Intn(hi-lo+1)}
	start, ok := b.nearestNonBomb(seed)
	if !ok {
		return 0
	}

	visited := make([]bool, b.Width*b.Height)
	visited[start.Y*b.Width+start.X] = true
	b.gaze.Add(start)
	queue := []Pos{start}

	for len(queue) > 0 && b.gaze.Len() < n {
		cur := queue[0]
		queue = queue[1:]

		neighbors := []Pos{
			{cur.X + 1, cur.Y}, {cur.X - 1, cur.Y},
			{cur.X, cur.Y + 1}, {cur.X, cur.Y - 1},
		}
		rng.Shuffle(len(neighbors), func(i, j int) {
			neighbors[i], neighbors[j] = neighbors[j], neighbors[i]
		})

		for _, nb := range neighbors {
			if !b.inBounds(nb) || visited[nb.Y*b.Width+nb.X] {
				continue
			}
			visited[nb.Y*b.Width+nb.X] = true
			if b.bombs.Has(nb) {
				continue
			}
			b.gaze.Add(nb)
			queue = append(queue, nb)
			if b.gaze.Len() >= n {
				break
			}
		}
	}
	return b.gaze.Len()
}

// nearestNonBomb walks outward from p over the whole board.
func (b *Board) nearestNonBomb(p Pos) (Pos, bool) {
	visited := make([]bool, b.Width*b.Height)
	visited[p.Y*b.Width+p.X] = true
	queue := []Pos{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !b.bombs.Has(cur) {
			return cur, true
		}
		for _, nb := range []Pos{{cur.X + 1, cur.Y}, {cur.X - 1, cur.Y}, {cur.X, cur.Y + 1}, {cur.X, cur.Y - 1}} {
			if b.inBounds(nb) && !visited[nb.Y*b.Width+nb.X] {
				visited[nb.Y*b.Width+nb.X] = true
				queue = append(queue, nb)
			}
		}
	}
	return Pos{}, false
}

// PopulateBombs replaces the bomb cells with up to n distinct cells in the
// lower two thirds of the board, avoiding the gaze region.
func (b *Board) PopulateBombs(n int, rng *rand.Rand) int {
	b.bombs.Clear()
	minY := max(3, b.Height/3)
	maxAttempts := b.Width * b.Height * 5

	for attempts := 0; b.bombs.Len() < n && attempts < maxAttempts; attempts++ {
		p := Pos{X: rng.Intn(b.Width), Y: minY + rng.Intn(b.Height-minY)}
		if b.gaze.Has(p) || b.bombs.Has(p) {
			continue
		}
		b.bombs.Add(p)
	}
	return b.bombs.Len()
}

// SeedObstacles locks up to n random pieces into the lower half of the
// board. Placements that would complete a row are skipped so the board
// never starts with a clearable line.
func (b *Board) SeedObstacles(n int, rng *rand.Rand) int {
	added := 0
	for attempts := 0; added < n && attempts < n*maxObstacleAttempts; attempts++ {
		p := RandomPiece(rng)
		p.Rotation = rng.Intn(p.Type.States())
		shape := p.Shape()

		minY := b.Height / 2
		maxY := max(b.Height-len(shape), minY)
		xs := make([]int, b.Width-len(shape[0])+1)
		for i := range xs {
			xs[i] = i
		}

	search:
		for y := maxY; y >= minY; y-- {
			rng.Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
			for _, x := range xs {
				p.X, p.Y = x, y
				if b.IsValidPosition(p, 0, 0) && !b.completesRow(p) {
					b.Merge(p)
					added++
					break search
				}
			}
		}
	}
	return added
}

func (b *Board) completesRow(p *Piece) bool {
	rows := map[int]int{}
	for _, c := range p.Cells() {
		rows[c.Y]++
	}
	for y, filled := range rows {
		if y < 0 || y >= b.Height {
			continue
		}
		empty := 0
		for x := 0; x < b.Width; x++ {
			if b.Cells[y][x] == 0 {
				empty++
			}
		}
		if empty == filled {
			return true
		}
	}
	return false
}

// Grid returns a copy of the cells.
func (b *Board) Grid() [][]int {
	grid := make([][]int, b.Height)
	for y := range grid {
		grid[y] = slices.Clone(b.Cells[y])
	}
	return grid
}

// ToFlat returns the board as a flat array of color indices (0 = empty).
func (b *Board) ToFlat() []int {
	flat := make([]int, 0, b.Height*b.Width)
	for y := 0; y < b.Height; y++ {
		flat = append(flat, b.Cells[y]...)
	}
	return flat
}

// BoardFromFlat reconstructs a Board from a flat color-index array.
func BoardFromFlat(flat []int, width, height int) *Board {
	bd := &Board{
		Width:  width,
		Height: height,
		Cells:  make([][]int, height),
		gaze:   newCellSet(width),
		bombs:  newCellSet(width),
	}
	for y := 0; y < height; y++ {
		bd.Cells[y] = make([]int, width)
		for x := 0; x < width; x++ {
			if idx := y*width + x; idx < len(flat) {
				bd.Cells[y][x] = flat[idx]
			}
		}
	}
	return bd
}
