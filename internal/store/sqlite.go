package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"norne/internal/calendar"
	"norne/internal/domain"
)

// ErrCalendarEmpty is returned when no trading days were ever stored for an
// exchange. Run a calendar sync first.
var ErrCalendarEmpty = errors.New("no trading days stored for exchange")

// Compile-time interface checks.
var (
	_ CalendarStore     = (*SQLiteStore)(nil)
	_ calendar.Calendar = (*SQLiteStore)(nil)
)

// SQLiteStore implements CalendarStore backed by a SQLite database. It also
// serves as a calendar.Calendar for alignment.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trading_days (
	exchange TEXT NOT NULL,
	day      TEXT NOT NULL,
	PRIMARY KEY (exchange, day)
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", dbPath, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// CalendarStore implementation
// ---------------------------------------------------------------------------

// WriteTradingDays inserts days for exchange. Existing days are kept.
func (s *SQLiteStore) WriteTradingDays(ctx context.Context, exchange domain.Exchange, days []time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO trading_days (exchange, day) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, string(exchange), domain.DateOnly(d).Format(domain.DateLayout)); err != nil {
			return fmt.Errorf("inserting %s %s: %w", exchange, d.Format(domain.DateLayout), err)
		}
	}
	return tx.Commit()
}

// TradingDays returns the stored trading days of exchange in [start, end].
func (s *SQLiteStore) TradingDays(ctx context.Context, exchange domain.Exchange, start, end time.Time) ([]time.Time, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trading_days WHERE exchange = ?`, string(exchange),
	).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", exchange, ErrCalendarEmpty)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM trading_days WHERE exchange = ? AND day >= ? AND day <= ? ORDER BY day`,
		string(exchange),
		domain.DateOnly(start).Format(domain.DateLayout),
		domain.DateOnly(end).Format(domain.DateLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing stored day %q: %w", raw, err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// Exchanges returns the exchanges that have stored trading days.
func (s *SQLiteStore) Exchanges(ctx context.Context) ([]domain.Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT exchange FROM trading_days ORDER BY exchange`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Exchange
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, domain.Exchange(e))
	}
	return out, rows.Err()
}
