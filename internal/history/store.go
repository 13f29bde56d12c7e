// Package history keeps a log of finished levels in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    player TEXT NOT NULL,
    level INTEGER NOT NULL,
    score INTEGER NOT NULL,
    new_record INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_player_level ON attempts (player, level);
`

// Attempt is one completed level. Level is zero-based.
type Attempt struct {
	Player     string
	Level      int
	Score      int
	NewRecord  bool
	FinishedAt time.Time
}

// Store provides SQLite-backed persistence for attempts.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Record(ctx context.Context, a Attempt) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if a.FinishedAt.IsZero() {
		a.FinishedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO attempts (player, level, score, new_record, finished_at) VALUES (?, ?, ?, ?, ?)`,
		a.Player, a.Level, a.Score, boolToInt(a.NewRecord), a.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts by player, newest first.
func (s *Store) Recent(ctx context.Context, player string, limit int) ([]Attempt, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player, level, score, new_record, finished_at
		 FROM attempts
		 WHERE player = ?
		 ORDER BY finished_at DESC, id DESC
		 LIMIT ?`,
		player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var record, finished int64
		if err := rows.Scan(&a.Player, &a.Level, &a.Score, &record, &finished); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.NewRecord = record != 0
		a.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}

// Best returns the highest recorded score per level for player.
func (s *Store) Best(ctx context.Context, player string) (map[int]int, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT level, MAX(score) FROM attempts WHERE player = ? GROUP BY level`,
		player,
	)
	if err != nil {
		return nil, fmt.Errorf("best scores: %w", err)
	}
	defer rows.Close()

	best := make(map[int]int)
	for rows.Next() {
		var level, score int
		if err := rows.Scan(&level, &score); err != nil {
			return nil, fmt.Errorf("scan best score: %w", err)
		}
		best[level] = score
	}
	return best, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
