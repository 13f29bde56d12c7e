package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/logging"

	"github.com/hersh/levels/internal/config"
	"github.com/hersh/levels/internal/history"
	applog "github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/session"
)

// The SSH host gives every user their own engine and save file.
func main() {
	cfg, err := config.Load()
	logger := applog.New(os.Stderr, cfg.LogLevel, "sshd")
	if err != nil {
		logger.Fatal("load config", "err", err)
	}

	if err := os.MkdirAll(cfg.SSHSaveDir, 0o755); err != nil {
		logger.Fatal("create save dir", "dir", cfg.SSHSaveDir, "err", err)
	}

	// One history store is shared by every session.
	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Fatal("open history", "err", err)
		}
		defer store.Close()
	}

	s, err := wish.NewServer(
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKey),
		wish.WithMiddleware(
			gameMiddleware(cfg, store, logger),
			activeterm.Middleware(),
			logging.Middleware(),
		),
		// Set TCP_NODELAY to reduce latency for game input
		ssh.WrapConn(func(ctx ssh.Context, conn net.Conn) net.Conn {
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn
		}),
	)
	if err != nil {
		logger.Fatal("create server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting SSH server", "addr", cfg.SSHAddr)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

// gameMiddleware runs one bubbletea program per SSH session.
func gameMiddleware(cfg config.Config, store *history.Store, logger *log.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			pty, winCh, ok := sess.Pty()
			if !ok {
				fmt.Fprintln(sess, "Error: PTY required. Please connect with: ssh -t user@host")
				return
			}
			user := sess.User()
			logger.Info("new game session", "user", user, "term", pty.Term,
				"width", pty.Window.Width, "height", pty.Window.Height)

			gs, err := session.Open(session.Config{
				Player:       user,
				SavePath:     session.SavePathFor(cfg.SSHSaveDir, user),
				History:      store,
				Seed:         time.Now().UnixNano(),
				JournalSize:  cfg.JournalSize,
				RelayURL:     cfg.RelayURL,
				PublishEvery: cfg.PublishEvery,
			}, logger)
			if err != nil {
				logger.Error("open session", "user", user, "err", err)
				fmt.Fprintln(sess, "Error: could not start a game")
				return
			}

			p := tea.NewProgram(gs.Model(),
				tea.WithInput(sess),
				tea.WithOutput(sess),
				tea.WithAltScreen(),
			)
			if gs.Client != nil {
				gs.Client.SetProgram(p)
				gs.Client.Start()
			}

			go func() {
				p.Send(tea.WindowSizeMsg{Width: pty.Window.Width, Height: pty.Window.Height})
				for win := range winCh {
					p.Send(tea.WindowSizeMsg{Width: win.Width, Height: win.Height})
				}
			}()

			if _, err := p.Run(); err != nil {
				logger.Error("game error", "user", user, "err", err)
			}
			if err := gs.Close(); err != nil {
				logger.Error("close session", "user", user, "err", err)
			}
			logger.Info("session ended", "user", user)
			next(sess)
		}
	}
}
