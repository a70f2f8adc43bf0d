package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/diacast/diacast/internal/config"
)

// Episode is one generated podcast recorded for operators.
type Episode struct {
	ID            int64
	RequestID     string
	Title         string
	AudioPath     string
	TargetMinutes int
	ActualMinutes float64
	WordCount     int
	SegmentCount  int
	FileSizeMB    float64
	CreatedAt     time.Time
}

// Store keeps a SQLite log of generated episodes. An empty path disables
// persistence; every method becomes a no-op then.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the episode log according to config.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("episode log prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS episodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT,
    title TEXT NOT NULL,
    audio_path TEXT NOT NULL,
    target_minutes INTEGER NOT NULL,
    actual_minutes REAL NOT NULL,
    word_count INTEGER NOT NULL,
    segment_count INTEGER NOT NULL,
    file_size_mb REAL NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_episodes_created ON episodes(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one generated episode.
func (s *Store) Append(ctx context.Context, ep Episode) error {
	if s.db == nil {
		return nil
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes(request_id, title, audio_path, target_minutes, actual_minutes,
		                      word_count, segment_count, file_size_mb, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.RequestID, ep.Title, ep.AudioPath, ep.TargetMinutes, ep.ActualMinutes,
		ep.WordCount, ep.SegmentCount, ep.FileSizeMB, ep.CreatedAt)
	return err
}

// List returns the most recent episodes, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Episode, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, title, audio_path, target_minutes, actual_minutes,
		        word_count, segment_count, file_size_mb, created_at
		 FROM episodes ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.ID, &ep.RequestID, &ep.Title, &ep.AudioPath, &ep.TargetMinutes,
			&ep.ActualMinutes, &ep.WordCount, &ep.SegmentCount, &ep.FileSizeMB, &ep.CreatedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// Prune applies the retention policy: drop rows older than retention_days
// and keep at most max_episodes of the newest rows.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM episodes WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if s.cfg.MaxEpisodes > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM episodes WHERE id NOT IN (
			    SELECT id FROM episodes ORDER BY created_at DESC, id DESC LIMIT ?
			)`, s.cfg.MaxEpisodes); err != nil {
			return err
		}
	}
	return nil
}
