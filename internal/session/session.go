// Package session wires an engine to its progression, history and relay
// for one player.
package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hersh/levels/internal/game"
	"github.com/hersh/levels/internal/history"
	"github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/netclient"
	"github.com/hersh/levels/internal/progress"
	"github.com/hersh/levels/internal/save"
	"github.com/hersh/levels/internal/tui"
)

type Config struct {
	Player       string
	SavePath     string
	Seed         int64
	Level        int
	JournalSize  int
	RelayURL     string
	PublishEvery time.Duration

	// HistoryPath opens a private history store. Ignored when History is set.
	HistoryPath string
	History     *history.Store
}

// Session owns everything a single player needs.
type Session struct {
	Engine   *game.Engine
	Progress *progress.Levels
	Client   *netclient.Client

	player       string
	publishEvery time.Duration
	history      *history.Store
	ownHistory   *history.Store
	logger       *log.Logger
}

// Open loads progression and builds an engine on the first selectable level
// at or below cfg.Level. Relay failures are logged and the session runs
// offline.
func Open(cfg Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("player", cfg.Player)
	s := &Session{player: cfg.Player, publishEvery: cfg.PublishEvery, logger: logger}

	store := cfg.History
	if store == nil && cfg.HistoryPath != "" {
		opened, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		store, s.ownHistory = opened, opened
	}

	file := save.File{Path: cfg.SavePath, Logger: logger}
	opts := progress.Options{Player: cfg.Player, Saver: file, Logger: logger}
	if store != nil {
		opts.Recorder = store
		s.history = store
	}
	s.Progress = progress.New(file.Load(), opts)

	level := cfg.Level
	for level > 0 && !s.Progress.CanSelect(level) {
		level--
	}
	s.Engine = game.NewEngine(game.Options{
		Seed:        cfg.Seed,
		Level:       level,
		Progression: s.Progress,
		Logger:      logger,
		JournalSize: cfg.JournalSize,
	})

	if cfg.RelayURL != "" {
		client, err := netclient.DialPublisher(cfg.RelayURL, cfg.Player, logger)
		if err != nil {
			logger.Warn("relay unavailable, playing offline", "err", err)
		} else {
			s.Client = client
		}
	}

	logger.Info("session opened", "save", cfg.SavePath, "lvl", level+1, "total", s.Progress.Total())
	return s, nil
}

// Model returns the terminal model for this session.
func (s *Session) Model() tui.Model {
	opts := tui.Options{
		Engine:       s.Engine,
		Progress:     s.Progress,
		Client:       s.Client,
		Player:       s.player,
		PublishEvery: s.publishEvery,
	}
	if s.history != nil {
		opts.History = s.history
	}
	return tui.NewModel(opts)
}

// Close saves progression and releases the relay connection and any
// history store the session opened itself.
func (s *Session) Close() error {
	var errs []error
	if err := s.Progress.Save(); err != nil {
		errs = append(errs, err)
	}
	if s.Client != nil {
		s.Client.Close()
	}
	if err := s.ownHistory.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	s.logger.Info("session closed", "total", s.Progress.Total())
	return errors.Join(errs...)
}

// SavePathFor returns the per-user save file under dir. Characters outside
// [A-Za-z0-9_-] are replaced so user names cannot escape dir.
func SavePathFor(dir, user string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, user)
	if name == "" {
		name = "anonymous"
	}
	return filepath.Join(dir, name+".json")
}
