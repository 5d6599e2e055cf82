package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps reviews in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations. Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and Submit relies on its
	// transaction holding the only connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, now: utcNow}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// WithClock replaces the clock used by RecentSubmissionExists.
func (s *SQLiteStore) WithClock(c Clock) *SQLiteStore {
	s.now = c
	return s
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecentSubmissionExists(ctx context.Context, submitterID int64, window time.Duration) (bool, error) {
	return recentSQL(ctx, s.db, submitterID, cutoff(s.now(), window))
}

func (s *SQLiteStore) Append(ctx context.Context, r Review) error {
	return insertSQL(ctx, s.db, r)
}

func (s *SQLiteStore) Submit(ctx context.Context, r Review, window time.Duration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback()

	recent, err := recentSQL(ctx, tx, r.SubmitterID, cutoff(r.CreatedAt, window))
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}
	if err := insertSQL(ctx, tx, r); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit submit: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) FindByIdentifier(ctx context.Context, identifier string) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identifier, rating, review, user_id, timestamp
		 FROM reviews WHERE identifier = ? ORDER BY timestamp DESC`, identifier)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return scanReviews(rows)
}

func (s *SQLiteStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identifier, rating, review, user_id, timestamp
		 FROM reviews WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp ASC`,
		from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return scanReviews(rows)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func recentSQL(ctx context.Context, q querier, submitterID int64, since time.Time) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = ? AND timestamp >= ?)`,
		submitterID, since.UnixMilli()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query recent submission: %w", err)
	}
	return exists == 1, nil
}

func insertSQL(ctx context.Context, q querier, r Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	var rating sql.NullInt64
	if r.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*r.Rating), Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO reviews (id, identifier, rating, review, user_id, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Identifier, rating, r.Comment, r.SubmitterID, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func scanReviews(rows *sql.Rows) ([]Review, error) {
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var (
			r      Review
			rating sql.NullInt64
			ts     int64
		)
		if err := rows.Scan(&r.ID, &r.Identifier, &rating, &r.Comment, &r.SubmitterID, &ts); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if rating.Valid {
			r.Rating = IntRating(int(rating.Int64))
		}
		r.CreatedAt = time.UnixMilli(ts).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) runMigrations() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		description := strings.TrimSuffix(parts[1], ".sql")

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			version, time.Now(), description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
		log.Printf("applied migration %04d (%s)", version, description)
	}
	return nil
}
