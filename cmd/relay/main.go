package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hersh/levels/internal/config"
	"github.com/hersh/levels/internal/logging"
	"github.com/hersh/levels/internal/relay"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, "relay")
	if err != nil {
		logger.Fatal("load config", "err", err)
	}

	addr := flag.String("addr", cfg.RelayAddr, "Listen address")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := relay.NewHub(cfg.PublishEvery, logger)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("relay starting", "addr", *addr)
	logger.Info("endpoints", "publish", "/ws/publish", "watch", "/ws/watch", "sessions", "/sessions")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-done
	logger.Info("relay shutting down")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
