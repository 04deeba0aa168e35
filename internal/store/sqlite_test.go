package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JavedNissar/bgrapher/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testRecord(userID int64, triggerSec int) *domain.UserRecord {
	return &domain.UserRecord{
		UserID:     userID,
		Status:     domain.StatusIdle,
		TriggerSec: triggerSec,
		TZ:         "UTC",
		CreatedAt:  time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testRecord(1, 21*3600)); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Status != domain.StatusIdle || u.TriggerSec != 21*3600 || u.TZ != "UTC" {
		t.Fatalf("round trip mismatch: %+v", u)
	}
	if u.Version != 1 {
		t.Fatalf("fresh record version = %d, want 1", u.Version)
	}
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateDuplicateKeepsOriginal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testRecord(2, 7*3600)); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := testRecord(2, 9*3600)
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	u, err := repo.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.TriggerSec != 7*3600 {
		t.Fatalf("duplicate create overwrote the record: trigger = %d", u.TriggerSec)
	}
}

func TestSaveBumpsVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testRecord(3, 7*3600)); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, _ := repo.Get(ctx, 3)
	u.Status = domain.StatusAwaitingGratitude
	if err := repo.Save(ctx, u); err != nil {
		t.Fatalf("save: %v", err)
	}
	if u.Version != 2 {
		t.Fatalf("version after save = %d, want 2", u.Version)
	}

	fresh, _ := repo.Get(ctx, 3)
	if fresh.Status != domain.StatusAwaitingGratitude || fresh.Version != 2 {
		t.Fatalf("persisted record mismatch: %+v", fresh)
	}
}

func TestSaveDetectsStaleWrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testRecord(4, 7*3600)); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := repo.Get(ctx, 4)
	second, _ := repo.Get(ctx, 4)

	first.Status = domain.StatusAwaitingGratitude
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second.Status = domain.StatusAwaitingMistakes
	if err := repo.Save(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save: want ErrConflict, got %v", err)
	}

	u, _ := repo.Get(ctx, 4)
	if u.Status != domain.StatusAwaitingGratitude {
		t.Fatalf("stale write clobbered the record: %s", u.Status)
	}
}

func TestSaveMissingRowIsConflict(t *testing.T) {
	repo := newTestRepo(t)

	ghost := testRecord(5, 7*3600)
	ghost.Version = 1
	if err := repo.Save(context.Background(), ghost); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestListDueInWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := 9 * 3600
	end := start + 5*60
	for id, trigger := range map[int64]int{
		1: start,      // boundary, excluded
		2: start + 60, // inside
		3: end,        // boundary, excluded
		4: end - 1,    // inside
		5: start - 60, // before
		6: end + 3600, // after
	} {
		if err := repo.Create(ctx, testRecord(id, trigger)); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}

	due, err := repo.ListDueInWindow(ctx, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[int64]bool{}
	for _, u := range due {
		got[u.UserID] = true
	}
	if len(got) != 2 || !got[2] || !got[4] {
		t.Fatalf("due users = %v, want exactly {2, 4}", got)
	}
}

func TestListDueInWindowWrapsMidnight(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start := 23*3600 + 58*60 // 23:58
	end := start + 5*60      // 00:03 next day

	for id, trigger := range map[int64]int{
		1: 60,         // 00:01, inside the wrapped segment
		2: 0,          // midnight seam, excluded
		3: start + 60, // 23:59, inside the evening segment
		4: 4 * 60,     // 00:04, past the wrapped end
		5: 12 * 3600,  // midday, nowhere near
	} {
		if err := repo.Create(ctx, testRecord(id, trigger)); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}

	due, err := repo.ListDueInWindow(ctx, start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := map[int64]bool{}
	for _, u := range due {
		got[u.UserID] = true
	}
	if len(got) != 2 || !got[1] || !got[3] {
		t.Fatalf("due users = %v, want exactly {1, 3}", got)
	}
}
