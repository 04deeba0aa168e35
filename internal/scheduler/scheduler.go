// Package scheduler implements the daily-reminder sweep.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/JavedNissar/bgrapher/internal/domain"
	"github.com/JavedNissar/bgrapher/internal/store"
)

// Sender is the minimal interface the scheduler needs to deliver a reminder.
type Sender interface {
	SendMessage(userID int64, text string) error
}

const reminderText = "It's time. What are you grateful for today?"

// Scheduler sweeps the record store on a fixed cadence and fires one
// reminder per due user. Lateness is bounded by the sweep interval; exact
// delivery is not a goal.
type Scheduler struct {
	repo     store.Repo
	sender   Sender
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// New creates a Scheduler sweeping every interval.
func New(repo store.Repo, sender Sender, log *zap.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		repo:     repo,
		sender:   sender,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run registers the sweep as a singleton gocron job and blocks until ctx is
// done. Singleton mode keeps a slow sweep from overlapping the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = gs.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Tick(ctx, s.now()) }),
		gocron.WithName("reminder-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	gs.Start()
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	<-ctx.Done()
	if err := gs.Shutdown(); err != nil {
		s.log.Warn("scheduler shutdown error", zap.Error(err))
	}
	s.log.Info("scheduler stopped")
	return nil
}

// Tick performs one sweep: find users whose trigger time falls strictly
// inside (now, now+interval) in the UTC seconds-of-day domain, send each of
// them exactly one reminder, and start their new daily cycle. A store query
// failure aborts the whole tick; the next tick retries on its own.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	startSec := domain.SecondsOfDay(now.UTC())
	endSec := startSec + int(s.interval/time.Second)

	due, err := s.repo.ListDueInWindow(ctx, startSec, endSec)
	if err != nil {
		s.log.Error("due-user query failed", zap.Error(err),
			zap.Int("window_start", startSec), zap.Int("window_end", endSec))
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("sweep found due users", zap.Int("count", len(due)),
		zap.Int("window_start", startSec), zap.Int("window_end", endSec))

	for _, u := range due {
		if err := s.sender.SendMessage(u.UserID, reminderText); err != nil {
			// Delivery is fire-and-forget; skip the state change so the
			// user's cycle isn't advanced by a message they never saw.
			s.log.Error("reminder send failed", zap.Int64("user_id", u.UserID), zap.Error(err))
			continue
		}
		if err := s.beginCycle(ctx, u); err != nil {
			s.log.Error("cycle start failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
	}
}

// beginCycle forces the user into AWAITING_GRATITUDE, retrying version
// conflicts with a fresh read. The overwrite is unconditional: a reminder
// starts a new day's cycle even if yesterday's never finished.
func (s *Scheduler) beginCycle(ctx context.Context, u domain.UserRecord) error {
	rec := u
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		rec.Status = domain.StatusAwaitingGratitude
		err = s.repo.Save(ctx, &rec)
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
		fresh, gerr := s.repo.Get(ctx, u.UserID)
		if gerr != nil {
			return gerr
		}
		rec = *fresh
	}
	return err
}
