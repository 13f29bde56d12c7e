package game

// TurnScore is the score earned by one lock.
type TurnScore struct {
	Blocks int
	Base   int
	Gaze   int
	Bonus  int
	Total  int
}

// Bonus returns the bonus for clearing blocks in a single turn. Only the
// highest satisfied tier applies.
func Bonus(blocks int) int {
	switch {
	case blocks >= 40:
		return 40
	case blocks >= 30:
		return 20
	case blocks >= 20:
		return 10
	}
	return 0
}

// ScoreTurn scores a lock that cleared blocks (line and gaze blocks
// combined) and earned gazeScore from a gaze activation.
func ScoreTurn(blocks, gazeScore int) TurnScore {
	ts := TurnScore{
		Blocks: blocks,
		Base:   blocks,
		Gaze:   gazeScore,
		Bonus:  Bonus(blocks),
	}
	ts.Total = ts.Base + ts.Gaze + ts.Bonus
	return ts
}
