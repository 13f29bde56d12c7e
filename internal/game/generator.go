package game

import "math/rand"

// Generator produces piece types uniformly at random. There is no bag: every
// draw is independent. When created with the same seed, two generators
// produce identical sequences.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Next returns the next piece type.
func (g *Generator) Next() PieceType {
	return PieceType(g.rng.Intn(NumPieceTypes))
}

// NextPiece returns a freshly spawned piece of the next type.
func (g *Generator) NextPiece() *Piece {
	return NewPiece(g.Next())
}

// Rand exposes the underlying source so board generation draws from the
// same deterministic stream.
func (g *Generator) Rand() *rand.Rand {
	return g.rng
}
