package game

import (
	"slices"

	"github.com/kamstrup/intmap"
)

// cellSet is a set of board cells keyed by their row-major index.
type cellSet struct {
	width int
	m     *intmap.Map[int, struct{}]
}

func newCellSet(width int) cellSet {
	return cellSet{width: width, m: intmap.New[int, struct{}](32)}
}

func (s cellSet) key(p Pos) int {
	return p.Y*s.width + p.X
}

func (s cellSet) Add(p Pos) {
	s.m.Put(s.key(p), struct{}{})
}

func (s cellSet) Has(p Pos) bool {
	return s.m.Has(s.key(p))
}

func (s cellSet) Len() int {
	return s.m.Len()
}

func (s cellSet) Clear() {
	s.m.Clear()
}

// Sorted returns the cells in row-major order.
func (s cellSet) Sorted() []Pos {
	keys := make([]int, 0, s.m.Len())
	s.m.ForEach(func(k int, _ struct{}) bool {
		keys = append(keys, k)
		return true
	})
	slices.Sort(keys)
	cells := make([]Pos, len(keys))
	for i, k := range keys {
		cells[i] = Pos{X: k % s.width, Y: k / s.width}
	}
	return cells
}
