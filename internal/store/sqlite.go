package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/quitc/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLite persists the ledger in a single-table SQLite database.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every row. Rows that fail to parse are skipped rather than
// failing the whole load.
func (s *SQLite) Load(ctx context.Context) (model.Days, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date, status FROM days")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	days := make(model.Days)
	for rows.Next() {
		var dateStr, statusStr string
		if err := rows.Scan(&dateStr, &statusStr); err != nil {
			return nil, err
		}
		date, err := model.ParseDate(dateStr)
		if err != nil {
			continue
		}
		status, err := model.ParseStatus(statusStr)
		if err != nil {
			continue
		}
		days[date] = status
	}
	return days, rows.Err()
}

// Save replaces the stored ledger with days in one transaction.
func (s *SQLite) Save(ctx context.Context, days model.Days) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM days"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO days (date, status, updated_at) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for date, status := range days {
		if _, err := stmt.ExecContext(ctx, date.String(), status.String(), now); err != nil {
			return fmt.Errorf("saving %s: %w", date, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES ('saved_at', ?)`, now); err != nil {
		return err
	}

	return tx.Commit()
}

// SavedAt returns when the ledger was last written, or the zero time.
func (s *SQLite) SavedAt(ctx context.Context) (time.Time, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'saved_at'").Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
