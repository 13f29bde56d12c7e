package game

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(size int) (*Journal, *time.Time) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	j := NewJournal(size, nil)
	j.now = func() time.Time { return clock }
	return j, &clock
}

func TestJournalKeepsMostRecent(t *testing.T) {
	j, _ := newTestJournal(3)
	for i := range 5 {
		j.Infof("line %d", i)
	}
	lines := j.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "[12:00:00] line 2", lines[0])
	assert.Equal(t, "[12:00:00] line 4", lines[2])
}

func TestJournalCollapsesRepeats(t *testing.T) {
	j, _ := newTestJournal(0)
	j.Infof("level %d is locked", 3)
	j.Infof("level %d is locked", 3)
	j.Infof("level %d is locked", 3)

	assert.Equal(t, []string{"[12:00:00] level 3 is locked (x3)"}, j.Lines())

	j.Warnf("odd")
	j.Errorf("bad")
	lines := j.Lines()
	assert.Equal(t, "[12:00:00] warning: odd", lines[1])
	assert.Equal(t, "[12:00:00] error: bad", lines[2])
}

func TestJournalCoalescesOps(t *testing.T) {
	j, clock := newTestJournal(0)
	j.Op('←')
	j.Op('←')
	j.Op('↑')
	assert.Equal(t, []string{"[12:00:00] ops: ←←↑"}, j.Lines())

	*clock = clock.Add(2 * time.Second)
	j.Op('░')
	assert.Equal(t, "[12:00:02] ops: ░", j.Lines()[1])

	j.Infof("game over")
	j.Op('→')
	assert.Len(t, j.Lines(), 4)
}

func TestJournalTruncatesLongOpRuns(t *testing.T) {
	j, _ := newTestJournal(0)
	for range 60 {
		j.Op('→')
	}
	line := j.Lines()[0]
	assert.True(t, strings.HasSuffix(line, "..."))
	assert.Equal(t, fmt.Sprintf("[12:00:00] ops: %s...", strings.Repeat("→", maxOpLength)), line)
}

func TestJournalString(t *testing.T) {
	j, _ := newTestJournal(0)
	j.Infof("a")
	j.Infof("b")
	assert.Equal(t, "[12:00:00] a\n[12:00:00] b", j.String())
}
