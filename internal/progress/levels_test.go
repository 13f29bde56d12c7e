package progress

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/save"
)

type memSaver struct {
	docs []save.Document
	err  error
}

func (m *memSaver) Save(doc save.Document) error {
	m.docs = append(m.docs, doc)
	return m.err
}

type memRecorder struct {
	attempts []history.Attempt
}

func (m *memRecorder) Record(_ context.Context, a history.Attempt) error {
	m.attempts = append(m.attempts, a)
	return nil
}

func TestDefaults(t *testing.T) {
	l := New(save.Default(), Options{})

	assert.Equal(t, game.Unlocked, l.State(0))
	for i := 1; i < game.NumLevels; i++ {
		assert.Equal(t, game.Locked, l.State(i))
		assert.False(t, l.CanSelect(i))
	}
	assert.True(t, l.CanSelect(0))
	assert.Zero(t, l.Total())
}

func TestRecordAttemptBelowThreshold(t *testing.T) {
	saver := &memSaver{}
	l := New(save.Default(), Options{Saver: saver})

	assert.True(t, l.RecordAttempt(0, 99))

	assert.Equal(t, game.Completed, l.State(0))
	assert.Equal(t, game.Locked, l.State(1))
	assert.Equal(t, 99, l.Total())
	require.Len(t, saver.docs, 1)
	assert.Equal(t, 99, saver.docs[0].HighScores[0])
}

func TestRecordAttemptExactThresholdUnlocks(t *testing.T) {
	f := save.File{Path: filepath.Join(t.TempDir(), "save.json")}
	l := New(save.Default(), Options{Saver: f})

	assert.True(t, l.RecordAttempt(0, game.Levels[0].UnlockScore))

	assert.Equal(t, game.Completed, l.State(0))
	assert.Equal(t, game.Unlocked, l.State(1))
	assert.Equal(t, game.Locked, l.State(2))
	assert.Equal(t, 100, l.HighScores()[0])
	assert.Equal(t, 100, l.Total())

	reloaded := New(f.Load(), Options{})
	assert.Equal(t, l.Document(), reloaded.Document())
	assert.Equal(t, l.States(), reloaded.States())
	assert.Equal(t, l.HighScores(), reloaded.HighScores())
	assert.Equal(t, 100, reloaded.Total())
}

func TestRecordAttemptLogsLevelNumber(t *testing.T) {
	var buf bytes.Buffer
	l := New(save.Default(), Options{Logger: log.New(&buf)})

	l.RecordAttempt(0, 150)

	assert.Contains(t, buf.String(), "lvl=1")
	assert.Contains(t, buf.String(), "score=150")
}

func TestRecordAttemptUnlocksNext(t *testing.T) {
	rec := &memRecorder{}
	l := New(save.Default(), Options{Player: "ana", Recorder: rec})

	assert.True(t, l.RecordAttempt(0, 130))
	assert.Equal(t, game.Unlocked, l.State(1))
	assert.Equal(t, 130, l.Total())

	assert.False(t, l.RecordAttempt(0, 20), "lower score is not a record")
	assert.Equal(t, 130, l.HighScores()[0])
	assert.Equal(t, game.Completed, l.State(0))

	require.Len(t, rec.attempts, 2)
	assert.Equal(t, "ana", rec.attempts[0].Player)
	assert.True(t, rec.attempts[0].NewRecord)
	assert.False(t, rec.attempts[1].NewRecord)
}

func TestRecordAttemptKeepsCompletedState(t *testing.T) {
	l := New(save.Default(), Options{})
	l.RecordAttempt(0, 100)
	l.RecordAttempt(1, 200)
	require.Equal(t, game.Unlocked, l.State(2))

	// Replaying level 1 must not relock or downgrade level 2.
	l.RecordAttempt(0, 0)
	assert.Equal(t, game.Completed, l.State(1))
	assert.Equal(t, 300, l.Total())
}

func TestRecordAttemptLastLevel(t *testing.T) {
	doc := save.Default()
	for i := range doc.States {
		doc.States[i] = int(game.Unlocked)
	}
	l := New(doc, Options{})

	assert.True(t, l.RecordAttempt(game.NumLevels-1, 900))
	assert.Equal(t, game.Completed, l.State(game.NumLevels-1))
	assert.False(t, l.RecordAttempt(game.NumLevels, 900))
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	saver := &memSaver{err: errors.New("disk full")}
	l := New(save.Default(), Options{Saver: saver})

	assert.True(t, l.RecordAttempt(0, 150))
	assert.Equal(t, game.Unlocked, l.State(1))
	assert.Error(t, l.Save())
}

func TestNeighbors(t *testing.T) {
	doc := save.Default()
	doc.States[2] = int(game.Unlocked)
	doc.States[4] = int(game.Completed)
	l := New(doc, Options{})

	next, ok := l.NextUnlocked(0)
	assert.True(t, ok)
	assert.Equal(t, 2, next)
	next, ok = l.NextUnlocked(2)
	assert.True(t, ok)
	assert.Equal(t, 4, next)
	_, ok = l.NextUnlocked(4)
	assert.False(t, ok)

	prev, ok := l.PrevUnlocked(4)
	assert.True(t, ok)
	assert.Equal(t, 2, prev)
	_, ok = l.PrevUnlocked(0)
	assert.False(t, ok)
}

func TestNewRepairsUnlockChain(t *testing.T) {
	doc := save.Default()
	doc.States[0] = int(game.Completed)
	doc.HighScores[0] = 120
	l := New(doc, Options{})

	assert.Equal(t, game.Unlocked, l.State(1))
	assert.Equal(t, 120, l.Total())
}

func TestNewRejectsInvalidDocument(t *testing.T) {
	l := New(save.Document{SchemaVersion: 1, States: []int{2}}, Options{})
	assert.Equal(t, save.Default().States, l.Document().States)
}

func TestRoundTripThroughFile(t *testing.T) {
	f := save.File{Path: filepath.Join(t.TempDir(), "save.json")}
	l := New(f.Load(), Options{Saver: f})
	l.RecordAttempt(0, 140)
	l.RecordAttempt(1, 80)

	reloaded := New(f.Load(), Options{})
	assert.Equal(t, l.States(), reloaded.States())
	assert.Equal(t, l.HighScores(), reloaded.HighScores())
	assert.Equal(t, 220, reloaded.Total())
}
