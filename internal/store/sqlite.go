package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvidalr/gramreach/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
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

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS campaigns (
		run_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		competitors TEXT NOT NULL,
		messages_per_cycle INTEGER NOT NULL,
		total_messages INTEGER NOT NULL,
		duration_hours INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		recipient_name TEXT NOT NULL,
		message TEXT NOT NULL,
		sent_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_run ON deliveries(run_id, sent_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateCampaign records the start of a campaign run.
func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	query := `
	INSERT INTO campaigns (run_id, username, competitors, messages_per_cycle, total_messages, duration_hours, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.RunID, c.Username, strings.Join(c.Config.Competitors, ","),
		c.Config.MessagesPerCycle, c.Config.TotalMessages, c.Config.DurationHours,
		c.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// RecordDelivery appends one sent message to the delivery log.
func (s *SQLiteStore) RecordDelivery(ctx context.Context, d *Delivery) error {
	query := `
	INSERT INTO deliveries (run_id, recipient_id, recipient_name, message, sent_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		d.RunID, d.RecipientID, d.RecipientName, d.Message, d.SentAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// CountDeliveries returns how many messages a run has delivered.
func (s *SQLiteStore) CountDeliveries(ctx context.Context, runID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM deliveries WHERE run_id = ?`
	if err := s.db.QueryRowContext(ctx, query, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return count, nil
}

// RecentDeliveries returns the most recent deliveries of a run, newest
// first, up to limit.
func (s *SQLiteStore) RecentDeliveries(ctx context.Context, runID string, limit int) ([]*Delivery, error) {
	query := `
	SELECT run_id, recipient_id, recipient_name, message, sent_at
	FROM deliveries WHERE run_id = ?
	ORDER BY sent_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close deliveries rows", "error", closeErr)
		}
	}()

	var deliveries []*Delivery
	for rows.Next() {
		var d Delivery
		var sentAt int64
		if err := rows.Scan(&d.RunID, &d.RecipientID, &d.RecipientName, &d.Message, &sentAt); err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		d.SentAt = time.Unix(sentAt, 0)
		deliveries = append(deliveries, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	return deliveries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
