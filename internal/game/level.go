package game

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidLevel = errors.New("invalid level index")

const (
	BaseFallInterval = 800 * time.Millisecond
	MinFallInterval  = 50 * time.Millisecond

	// ClearDelay is how long the engine stays in Clearing before scoring.
	ClearDelay = 300 * time.Millisecond
)

// LevelState is the progression state of a level.
type LevelState int

const (
	Locked LevelState = iota
	Unlocked
	Completed
)

func (s LevelState) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	case Completed:
		return "completed"
	}
	return "unknown"
}

func (s LevelState) Valid() bool {
	return s >= Locked && s <= Completed
}

// LevelSpec holds the static parameters of one level.
type LevelSpec struct {
	ID            int
	Name          string
	TimeLimit     time.Duration
	UnlockScore   int
	Obstacles     int
	SpeedDecay    float64
	SpeedInterval time.Duration
	GazeCells     int
	Bombs         int
	DualBoard     bool
}

var Levels = [...]LevelSpec{
	{ID: 1, Name: "Novice Road", TimeLimit: 180 * time.Second, UnlockScore: 100, Obstacles: 5, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second},
	{ID: 2, Name: "Obstacle Course", TimeLimit: 180 * time.Second, UnlockScore: 120, Obstacles: 10, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second},
	{ID: 3, Name: "Full Throttle", TimeLimit: 180 * time.Second, UnlockScore: 150, SpeedDecay: 0.03, SpeedInterval: 5 * time.Second},
	{ID: 4, Name: "King's Gaze I", TimeLimit: 180 * time.Second, UnlockScore: 200, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second, GazeCells: 10},
	{ID: 5, Name: "King's Gaze II", TimeLimit: 180 * time.Second, UnlockScore: 300, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second, GazeCells: 15},
	{ID: 6, Name: "Minefield", TimeLimit: 180 * time.Second, UnlockScore: 400, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second, Bombs: 3},
	{ID: 7, Name: "Space Warp", TimeLimit: 180 * time.Second, UnlockScore: 500, SpeedDecay: 0.01, SpeedInterval: 5 * time.Second, DualBoard: true},
}

const NumLevels = len(Levels)

// Level returns the spec for a zero-based level index.
func Level(index int) (LevelSpec, error) {
	if index < 0 || index >= NumLevels {
		return LevelSpec{}, ErrInvalidLevel
	}
	return Levels[index], nil
}

// FallInterval is the time per row of gravity after elapsed play time.
// It shrinks by SpeedDecay every SpeedInterval, down to MinFallInterval.
func (l LevelSpec) FallInterval(elapsed time.Duration) time.Duration {
	steps := 0
	if l.SpeedInterval > 0 && elapsed > 0 {
		steps = int(elapsed / l.SpeedInterval)
	}
	factor := math.Pow(1-l.SpeedDecay, float64(steps))
	interval := time.Duration(float64(BaseFallInterval) * factor)
	return max(interval, MinFallInterval)
}
