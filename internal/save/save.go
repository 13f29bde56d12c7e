// Package save reads and writes the progression file.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/hersh/levels/internal/game"
)

const SchemaVersion = 1

var ErrInvalidDocument = errors.New("invalid save document")

// Document is the on-disk progression record. Total is redundant and
// recomputed on load.
type Document struct {
	SchemaVersion int   `json:"schema_version"`
	States        []int `json:"states"`
	HighScores    []int `json:"high_scores"`
	Total         int   `json:"total"`
}

// Default is a fresh progression: level 1 unlocked, everything else locked.
func Default() Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		States:        make([]int, game.NumLevels),
		HighScores:    make([]int, game.NumLevels),
	}
	doc.States[0] = int(game.Unlocked)
	return doc
}

// Validate checks lengths and value ranges.
func (d Document) Validate() error {
	if d.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d", ErrInvalidDocument, d.SchemaVersion)
	}
	if len(d.States) != game.NumLevels {
		return fmt.Errorf("%w: %d states", ErrInvalidDocument, len(d.States))
	}
	if len(d.HighScores) != game.NumLevels {
		return fmt.Errorf("%w: %d high scores", ErrInvalidDocument, len(d.HighScores))
	}
	for i, s := range d.States {
		if !game.LevelState(s).Valid() {
			return fmt.Errorf("%w: level %d state %d", ErrInvalidDocument, i+1, s)
		}
	}
	for i, hs := range d.HighScores {
		if hs < 0 {
			return fmt.Errorf("%w: level %d high score %d", ErrInvalidDocument, i+1, hs)
		}
	}
	return nil
}

// Normalize forces level 1 to at least Unlocked and recomputes the total.
func (d *Document) Normalize() {
	if d.States[0] == int(game.Locked) {
		d.States[0] = int(game.Unlocked)
	}
	d.Total = 0
	for _, hs := range d.HighScores {
		d.Total += hs
	}
}

// Decode parses and validates a document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	doc.Normalize()
	return doc, nil
}

// File is a save file on disk.
type File struct {
	Path   string
	Logger *log.Logger
}

// Load reads the file. It never fails: a missing file yields the default
// document and an unreadable or invalid one yields the default plus a
// logged warning.
func (f File) Load() Document {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	if err != nil {
		f.warn("read save file, using defaults", err)
		return Default()
	}
	doc, err := Decode(data)
	if err != nil {
		f.warn("decode save file, using defaults", err)
		return Default()
	}
	return doc
}

func (f File) warn(msg string, err error) {
	if f.Logger != nil {
		f.Logger.Warn(msg, "path", f.Path, "err", err)
	}
}

// Save atomically replaces the file with doc.
func (f File) Save(doc Document) error {
	doc.SchemaVersion = SchemaVersion
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	return writeAtomic(f.Path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp save: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("write temp save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("sync temp save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("close temp save: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}
