package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultJournalSize = 8

	opWindow    = time.Second
	maxOpLength = 50
)

// Journal keeps the most recent diagnostic lines of a session. Repeated
// messages collapse into one line and bursts of player operations are
// coalesced. Every entry is mirrored to the logger when one is set.
type Journal struct {
	size   int
	lines  []string
	logger *log.Logger
	now    func() time.Time

	last    string
	repeats int

	ops      []rune
	opPrefix string
	opAt     time.Time
}

func NewJournal(size int, logger *log.Logger) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{size: size, logger: logger, now: time.Now}
}

func (j *Journal) stamp() string {
	return "[" + j.now().Format("15:04:05") + "] "
}

func (j *Journal) push(line string) {
	j.lines = append(j.lines, line)
	if len(j.lines) > j.size {
		j.lines = j.lines[len(j.lines)-j.size:]
	}
}

func (j *Journal) add(msg string) {
	j.ops = nil
	if msg == j.last && len(j.lines) > 0 {
		j.repeats++
		j.lines[len(j.lines)-1] = fmt.Sprintf("%s%s (x%d)", j.stamp(), msg, j.repeats+1)
		return
	}
	j.last = msg
	j.repeats = 0
	j.push(j.stamp() + msg)
}

func (j *Journal) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.add(msg)
	if j.logger != nil {
		j.logger.Info(msg)
	}
}

func (j *Journal) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.add("warning: " + msg)
	if j.logger != nil {
		j.logger.Warn(msg)
	}
}

func (j *Journal) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.add("error: " + msg)
	if j.logger != nil {
		j.logger.Error(msg)
	}
}

// Op records a single player operation symbol.
func (j *Journal) Op(symbol rune) {
	now := j.now()
	if j.ops != nil && len(j.lines) > 0 && now.Sub(j.opAt) < opWindow {
		j.ops = append(j.ops, symbol)
		j.lines[len(j.lines)-1] = j.opPrefix + j.opText()
	} else {
		j.ops = []rune{symbol}
		j.opPrefix = j.stamp() + "ops: "
		j.push(j.opPrefix + j.opText())
	}
	j.opAt = now
	j.last = ""
	if j.logger != nil {
		j.logger.Debug("op", "key", string(symbol))
	}
}

func (j *Journal) opText() string {
	if len(j.ops) > maxOpLength {
		return string(j.ops[:maxOpLength]) + "..."
	}
	return string(j.ops)
}

// Lines returns the journal, oldest first.
func (j *Journal) Lines() []string {
	out := make([]string, len(j.lines))
	copy(out, j.lines)
	return out
}

func (j *Journal) String() string {
	return strings.Join(j.lines, "\n")
}
