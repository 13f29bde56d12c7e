package progress

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/save"
)

// Saver persists a progression document.
type Saver interface {
	Save(doc save.Document) error
}

// Recorder keeps a log of finished levels.
type Recorder interface {
	Record(ctx context.Context, a history.Attempt) error
}

type Options struct {
	Player   string
	Saver    Saver
	Recorder Recorder
	Logger   *log.Logger
}

// Levels tracks per-level state and high scores. It is safe for concurrent
// use so a host can read it while a session records results.
type Levels struct {
	mu         sync.RWMutex
	states     []game.LevelState
	highScores []int
	total      int

	player   string
	saver    Saver
	recorder Recorder
	logger   *log.Logger
}

// New builds a registry from a loaded document. Levels whose predecessor
// already met its unlock score are unlocked.
func New(doc save.Document, opts Options) *Levels {
	if doc.Validate() != nil {
		doc = save.Default()
	}
	doc.Normalize()

	l := &Levels{
		states:     make([]game.LevelState, game.NumLevels),
		highScores: make([]int, game.NumLevels),
		player:     opts.Player,
		saver:      opts.Saver,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	for i := range l.states {
		l.states[i] = game.LevelState(doc.States[i])
		l.highScores[i] = doc.HighScores[i]
	}
	for i := 0; i+1 < game.NumLevels; i++ {
		if l.highScores[i] >= game.Levels[i].UnlockScore && l.states[i+1] == game.Locked {
			l.states[i+1] = game.Unlocked
		}
	}
	l.total = doc.Total
	return l
}

// RecordAttempt stores the result of a completed level and reports whether
// it set a new high score. The updated progression is saved right away.
func (l *Levels) RecordAttempt(level, score int) bool {
	if level < 0 || level >= game.NumLevels {
		return false
	}

	l.mu.Lock()
	newRecord := score > l.highScores[level]
	if newRecord {
		l.highScores[level] = score
	}
	l.states[level] = game.Completed
	unlocked := false
	if next := level + 1; next < game.NumLevels && score >= game.Levels[level].UnlockScore && l.states[next] == game.Locked {
		l.states[next] = game.Unlocked
		unlocked = true
	}
	l.total = 0
	for _, hs := range l.highScores {
		l.total += hs
	}
	doc := l.documentLocked()
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Info("level finished", "lvl", level+1, "score", score, "record", newRecord, "unlocked", unlocked)
	}
	if l.recorder != nil {
		a := history.Attempt{Player: l.player, Level: level, Score: score, NewRecord: newRecord, FinishedAt: time.Now().UTC()}
		if err := l.recorder.Record(context.Background(), a); err != nil && l.logger != nil {
			l.logger.Warn("record attempt", "err", err)
		}
	}
	l.save(doc)
	return newRecord
}

// Save writes the current progression. Failures are logged and returned.
func (l *Levels) Save() error {
	return l.save(l.Document())
}

func (l *Levels) save(doc save.Document) error {
	if l.saver == nil {
		return nil
	}
	err := l.saver.Save(doc)
	if err != nil && l.logger != nil {
		l.logger.Error("save progression", "err", err)
	}
	return err
}

func (l *Levels) CanSelect(level int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= 0 && level < game.NumLevels && l.states[level] != game.Locked
}

// NextUnlocked finds the first selectable level after from. There is no
// wrap-around.
func (l *Levels) NextUnlocked(from int) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := max(from+1, 0); i < game.NumLevels; i++ {
		if l.states[i] != game.Locked {
			return i, true
		}
	}
	return from, false
}

func (l *Levels) PrevUnlocked(from int) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := min(from-1, game.NumLevels-1); i >= 0; i-- {
		if l.states[i] != game.Locked {
			return i, true
		}
	}
	return from, false
}

func (l *Levels) State(level int) game.LevelState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < 0 || level >= game.NumLevels {
		return game.Locked
	}
	return l.states[level]
}

func (l *Levels) States() []game.LevelState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]game.LevelState, len(l.states))
	copy(out, l.states)
	return out
}

func (l *Levels) HighScores() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]int, len(l.highScores))
	copy(out, l.highScores)
	return out
}

func (l *Levels) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Document returns the progression in its persisted form.
func (l *Levels) Document() save.Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.documentLocked()
}

func (l *Levels) documentLocked() save.Document {
	doc := save.Document{
		SchemaVersion: save.SchemaVersion,
		States:        make([]int, len(l.states)),
		HighScores:    make([]int, len(l.highScores)),
		Total:         l.total,
	}
	for i, s := range l.states {
		doc.States[i] = int(s)
	}
	copy(doc.HighScores, l.highScores)
	return doc
}

var _ game.Progression = (*Levels)(nil)
