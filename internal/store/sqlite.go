package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode keeps route inserts from blocking the ops endpoints.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		interests TEXT NOT NULL,
		hours REAL NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		route_text TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_routes_created ON routes(created_at);
	CREATE INDEX IF NOT EXISTS idx_routes_chat ON routes(chat_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRoute records one delivered route, retrying on SQLITE_BUSY since
// inserts race the ops endpoints' reads.
func (s *SQLiteStore) SaveRoute(ctx context.Context, rec *domain.RouteRecord) error {
	query := `
	INSERT INTO routes (chat_id, interests, hours, latitude, longitude, route_text, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const maxRetries = 3
	baseDelay := 100 * time.Millisecond
	var err error
	for i := 0; i < maxRetries; i++ {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query,
			rec.ChatID, rec.Interests, rec.Hours,
			rec.Latitude, rec.Longitude, rec.RouteText,
			rec.DurationMs, createdAt.Unix(),
		)
		if err == nil {
			if id, idErr := res.LastInsertId(); idErr == nil {
				rec.ID = id
			}
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("route insert hit SQLITE_BUSY, retrying", "chat_id", rec.ChatID, "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return fmt.Errorf("insert route: %w", err)
}

// RecentRoutes retrieves the latest delivered routes, newest first.
func (s *SQLiteStore) RecentRoutes(ctx context.Context, limit int) ([]*domain.RouteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, chat_id, interests, hours, latitude, longitude, route_text, duration_ms, created_at
	FROM routes ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.RouteRecord
	for rows.Next() {
		var rec domain.RouteRecord
		var createdAt int64
		if err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.Interests, &rec.Hours,
			&rec.Latitude, &rec.Longitude, &rec.RouteText,
			&rec.DurationMs, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route rows: %w", err)
	}
	return records, nil
}

// CountRoutes reports the total number of recorded routes.
func (s *SQLiteStore) CountRoutes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count routes: %w", err)
	}
	return count, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
