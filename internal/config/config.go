// Package config loads host settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is shared by every host. Command-line flags override it.
type Config struct {
	SavePath    string `env:"SAVE_PATH" envDefault:"levels_save.json"`
	HistoryPath string `env:"HISTORY_PATH"`
	Seed        int64  `env:"SEED"`
	Player      string `env:"PLAYER"`
	LogFile     string `env:"LOG_FILE" envDefault:"levels.log"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	JournalSize int    `env:"JOURNAL_SIZE" envDefault:"8"`

	RelayURL     string        `env:"RELAY_URL"`
	RelayAddr    string        `env:"RELAY_ADDR" envDefault:":8080"`
	PublishEvery time.Duration `env:"PUBLISH_EVERY" envDefault:"100ms"`

	SSHAddr    string `env:"SSH_ADDR" envDefault:":2222"`
	SSHHostKey string `env:"SSH_HOST_KEY" envDefault:".ssh/levels_ed25519"`
	SSHSaveDir string `env:"SSH_SAVE_DIR" envDefault:"saves"`
}

const envPrefix = "LEVELS_"

// Load parses Config from LEVELS_* environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.JournalSize <= 0 {
		cfg.JournalSize = 8
	}
	return cfg, nil
}
