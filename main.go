package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hersh/levels/internal/config"
	"github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/session"
)

// This is the local single-player entry point.
// To let others watch, run the relay and pass its address:
//   Relay:  go run ./cmd/relay
//   Player: go run . -relay http://localhost:8080
//   Viewer: go run ./cmd/client -relay http://localhost:8080

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	savePath := flag.String("save", cfg.SavePath, "Progress save file")
	historyPath := flag.String("history", cfg.HistoryPath, "SQLite attempt history (empty to disable)")
	relayURL := flag.String("relay", cfg.RelayURL, "Relay base URL to publish to (empty for offline)")
	seed := flag.Int64("seed", cfg.Seed, "Random seed")
	playerName := flag.String("name", cfg.Player, "Player name (defaults to OS username)")
	level := flag.Int("level", 1, "Level to start on (1-7)")
	flag.Parse()

	name := *playerName
	if name == "" {
		if u, err := user.Current(); err == nil && u.Username != "" {
			name = u.Username
		} else {
			name = "Player"
		}
	}

	// The terminal belongs to bubbletea, so logs go to a file.
	logger, closer, err := logging.File(cfg.LogFile, cfg.LogLevel, "levels")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	s, err := session.Open(session.Config{
		Player:       name,
		SavePath:     *savePath,
		HistoryPath:  *historyPath,
		Seed:         *seed,
		Level:        *level - 1,
		JournalSize:  cfg.JournalSize,
		RelayURL:     *relayURL,
		PublishEvery: cfg.PublishEvery,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(s.Model(), tea.WithAltScreen())

	// Wire the program into the client so relay loss reaches the model
	if s.Client != nil {
		s.Client.SetProgram(p)
		s.Client.Start()
	}

	_, runErr := p.Run()
	if err := s.Close(); err != nil {
		logger.Error("close session", "err", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
