// ABOUTME: SQLite-backed exchange journal for the ingestion relay.
// ABOUTME: Records each inbound message and the reply it received, for diagnostics and the history command.

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested exchange does not exist.
var ErrNotFound = errors.New("not found")

// Exchange records one completed relay round trip: an admitted inbound
// message and the single reply (real or fallback) delivered for it.
type Exchange struct {
	ID            string
	CorrelationID string
	Sender        string
	SenderName    string
	Message       string
	Reply         string
	Fallback      bool
	RoundTrip     time.Duration
	CreatedAt     time.Time
}

// Stats summarizes the journal contents.
type Stats struct {
	Exchanges     int
	UniqueSenders int
	Fallbacks     int
}

// Journal is a SQLite-backed log of relay exchanges. Writes are best-effort
// from the relay's perspective: a journal failure is logged by the caller and
// never blocks the reply path.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the journal database at the given path. The schema
// is created if it doesn't exist; parent directories are created if needed.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "journal")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// WAL for concurrent reads while the relay writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db, logger: logger}

	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("journal initialized", "path", path)
	return j, nil
}

// createSchema creates the journal tables if they don't exist.
func (j *Journal) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS exchanges (
			id             TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			sender         TEXT NOT NULL,
			sender_name    TEXT NOT NULL DEFAULT '',
			message        TEXT NOT NULL,
			reply          TEXT NOT NULL,
			fallback       INTEGER NOT NULL DEFAULT 0,
			round_trip_ms  INTEGER NOT NULL DEFAULT 0,
			created_at     DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_exchanges_sender
			ON exchanges(sender);

		CREATE INDEX IF NOT EXISTS idx_exchanges_created
			ON exchanges(created_at);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Record persists one exchange.
func (j *Journal) Record(ctx context.Context, ex *Exchange) error {
	fallback := 0
	if ex.Fallback {
		fallback = 1
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, correlation_id, sender, sender_name, message, reply, fallback, round_trip_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.CorrelationID, ex.Sender, ex.SenderName, ex.Message, ex.Reply,
		fallback, ex.RoundTrip.Milliseconds(), ex.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording exchange: %w", err)
	}

	j.logger.Debug("exchange recorded",
		"exchange_id", ex.ID,
		"sender", ex.Sender,
		"fallback", ex.Fallback)
	return nil
}

// Get returns a single exchange by message id.
func (j *Journal) Get(ctx context.Context, id string) (*Exchange, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, correlation_id, sender, sender_name, message, reply, fallback, round_trip_ms, created_at
		FROM exchanges WHERE id = ?`, id)

	ex, err := scanExchange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting exchange: %w", err)
	}
	return ex, nil
}

// Recent returns the newest exchanges first, up to limit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Exchange, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, correlation_id, sender, sender_name, message, reply, fallback, round_trip_ms, created_at
		FROM exchanges ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

// Stats returns journal totals.
func (j *Journal) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT sender), COALESCE(SUM(fallback), 0)
		FROM exchanges`).Scan(&s.Exchanges, &s.UniqueSenders, &s.Fallbacks)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}
	return &s, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExchange(s scanner) (*Exchange, error) {
	var ex Exchange
	var fallback int
	var roundTripMs int64

	if err := s.Scan(&ex.ID, &ex.CorrelationID, &ex.Sender, &ex.SenderName,
		&ex.Message, &ex.Reply, &fallback, &roundTripMs, &ex.CreatedAt); err != nil {
		return nil, err
	}

	ex.Fallback = fallback != 0
	ex.RoundTrip = time.Duration(roundTripMs) * time.Millisecond
	return &ex, nil
}
