package store

import (
	"context"
	"errors"

	"github.com/JavedNissar/bgrapher/internal/domain"
)

var (
	// ErrNotFound means no record exists for the requested user.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate means a record already exists for the user id. Callers
	// treat this as the resume path, not a failure.
	ErrDuplicate = errors.New("user already exists")
	// ErrConflict means a Save lost a concurrent-write race; re-read the
	// record and reapply the change.
	ErrConflict = errors.New("stale user record")
)

// Repo defines storage operations for user records.
type Repo interface {
	Get(ctx context.Context, userID int64) (*domain.UserRecord, error)
	Create(ctx context.Context, u *domain.UserRecord) error
	// Save writes u back and bumps its version. Returns ErrConflict when the
	// stored version no longer matches u.Version.
	Save(ctx context.Context, u *domain.UserRecord) error
	// ListDueInWindow returns users whose trigger time lies strictly inside
	// (startSec, endSec) in the UTC seconds-of-day domain; endSec past
	// DaySeconds wraps into the next day.
	ListDueInWindow(ctx context.Context, startSec, endSec int) ([]domain.UserRecord, error)
	Close() error
}
