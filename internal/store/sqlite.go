package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JavedNissar/bgrapher/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sqlx.DB }

// userRow is the persisted shape of a domain.UserRecord.
type userRow struct {
	UserID     int64  `db:"user_id"`
	Status     string `db:"status"`
	TriggerSec int    `db:"trigger_sec"`
	TZ         string `db:"tz"`
	Version    int64  `db:"version"`
	CreatedAt  int64  `db:"created_at"`
}

func (r userRow) toDomain() domain.UserRecord {
	return domain.UserRecord{
		UserID:     r.UserID,
		Status:     domain.Status(r.Status),
		TriggerSec: r.TriggerSec,
		TZ:         r.TZ,
		Version:    r.Version,
		CreatedAt:  time.Unix(r.CreatedAt, 0).UTC(),
	}
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies PRAGMAs, runs migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// Get returns the record for userID, or ErrNotFound.
func (r *SQLiteRepo) Get(ctx context.Context, userID int64) (*domain.UserRecord, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, status, trigger_sec, tz, version, created_at
		FROM users
		WHERE user_id = ?`,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := row.toDomain()
	return &u, nil
}

// Create inserts a new record. An existing row for the same user id is left
// untouched and reported as ErrDuplicate.
func (r *SQLiteRepo) Create(ctx context.Context, u *domain.UserRecord) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, status, trigger_sec, tz, version, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		u.UserID, string(u.Status), u.TriggerSec, u.TZ, created.Unix(),
	)
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	u.Version = 1
	u.CreatedAt = created
	return nil
}

// Save writes the record back guarded by its version. A zero-row update
// means a concurrent writer got there first (or the row is gone) and is
// reported as ErrConflict; callers re-read and retry.
func (r *SQLiteRepo) Save(ctx context.Context, u *domain.UserRecord) error {
	if u == nil {
		return errors.New("nil user")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET status = ?, trigger_sec = ?, tz = ?, version = version + 1
		WHERE user_id = ? AND version = ?`,
		string(u.Status), u.TriggerSec, u.TZ, u.UserID, u.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	u.Version++
	return nil
}

// ListDueInWindow returns users with trigger_sec strictly inside
// (startSec, endSec), splitting the query in two when the window wraps past
// midnight. Results are ordered by trigger_sec for deterministic sweeps.
func (r *SQLiteRepo) ListDueInWindow(ctx context.Context, startSec, endSec int) ([]domain.UserRecord, error) {
	var (
		rows []userRow
		err  error
	)
	if endSec <= domain.DaySeconds {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT user_id, status, trigger_sec, tz, version, created_at
			FROM users
			WHERE trigger_sec > ? AND trigger_sec < ?
			ORDER BY trigger_sec ASC`,
			startSec, endSec,
		)
	} else {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT user_id, status, trigger_sec, tz, version, created_at
			FROM users
			WHERE (trigger_sec > ? AND trigger_sec < ?)
			   OR (trigger_sec > 0 AND trigger_sec < ?)
			ORDER BY trigger_sec ASC`,
			startSec, domain.DaySeconds, endSec-domain.DaySeconds,
		)
	}
	if err != nil {
		return nil, err
	}
	res := make([]domain.UserRecord, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

// isConstraintViolation reports whether err is a SQLite unique or primary
// key violation.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
