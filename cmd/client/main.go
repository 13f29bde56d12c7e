package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hersh/levels/internal/config"
	"github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/netclient"
	"github.com/hersh/levels/internal/tui"
)

// The spectator follows live sessions published to a relay.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	defaultRelay := cfg.RelayURL
	if defaultRelay == "" {
		defaultRelay = "http://localhost:8080"
	}
	relayURL := flag.String("relay", defaultRelay, "Relay base URL")
	flag.Parse()

	logger, closer, err := logging.File(cfg.LogFile, cfg.LogLevel, "watch")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	client, err := netclient.DialWatcher(*relayURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to relay at %s: %v\n", *relayURL, err)
		fmt.Fprintf(os.Stderr, "Make sure the relay is running (go run ./cmd/relay)\n")
		os.Exit(1)
	}
	defer client.Close()

	p := tea.NewProgram(tui.NewWatchModel(client), tea.WithAltScreen())

	// Wire the program into the client so readPump can send tea.Msgs
	client.SetProgram(p)
	client.Start()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
