// Package session implements the per-user conversation state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JavedNissar/bgrapher/internal/domain"
	"github.com/JavedNissar/bgrapher/internal/store"
	"github.com/JavedNissar/bgrapher/internal/tzlookup"
)

// Sender is the minimal outbound interface the state machine needs.
type Sender interface {
	SendMessage(userID int64, text string) error
}

// DefaultTriggerSec is the default reminder time, 21:00 in the user's zone.
const DefaultTriggerSec = 21 * 3600

// Writes that lose a version race are retried with a fresh read this many
// times before giving up.
const saveAttempts = 3

// Service drives the conversation state machine. All dependencies are
// injected so tests can substitute fakes and a fixed clock.
type Service struct {
	repo      store.Repo
	sender    Sender
	zones     tzlookup.Resolver
	log       *zap.Logger
	defaultTZ string
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a session service with the given collaborators.
func New(repo store.Repo, sender Sender, zones tzlookup.Resolver, log *zap.Logger, defaultTZ string) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		zones:     zones,
		log:       log,
		defaultTZ: defaultTZ,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start handles /start. First contact creates a record with defaults and
// sends onboarding; a repeat /start resumes straight into a gratitude
// session. Either way the call cannot corrupt an existing record.
func (s *Service) Start(ctx context.Context, userID int64) {
	rec := s.defaultRecord(userID)
	err := s.repo.Create(ctx, rec)
	switch {
	case err == nil:
		s.log.Info("new user", zap.Int64("user_id", userID), zap.String("tz", rec.TZ))
		s.send(userID, onboardingText)
	case errors.Is(err, store.ErrDuplicate):
		s.resume(ctx, userID)
	default:
		s.log.Error("create user failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *Service) resume(ctx context.Context, userID int64) {
	err := s.mutate(ctx, userID, func(u *domain.UserRecord) {
		u.Status = domain.StatusAwaitingGratitude
	})
	if err != nil {
		s.log.Error("resume failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.send(userID, gratitudePrompt)
}

// Done handles /done: one step forward in the daily cycle, with the prompt
// for whatever comes next. Unknown users are logged and ignored.
func (s *Service) Done(ctx context.Context, userID int64) {
	var prev domain.Status
	err := s.mutate(ctx, userID, func(u *domain.UserRecord) {
		prev = u.Status
		u.Status = u.Status.Advance()
	})
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("done from unknown user", zap.Int64("user_id", userID))
		return
	}
	if err != nil {
		s.log.Error("done failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	switch prev {
	case domain.StatusIdle:
		s.send(userID, resumePrompt)
	case domain.StatusAwaitingGratitude:
		s.send(userID, mistakesPrompt)
	case domain.StatusAwaitingMistakes:
		s.send(userID, closingText)
	}
}

// FreeText handles any non-command message. Status never changes; the reply
// acknowledges the entry and nudges for more, themed by the current status.
func (s *Service) FreeText(ctx context.Context, userID int64, text string) {
	u, err := s.repo.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("text from unknown user", zap.Int64("user_id", userID))
		return
	}
	if err != nil {
		s.log.Error("read user failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	switch u.Status {
	case domain.StatusAwaitingGratitude:
		s.send(userID, s.pick(gratitudeAcks)+" "+s.pick(gratitudeFollowUps))
	case domain.StatusAwaitingMistakes:
		s.send(userID, s.pick(mistakeAcks)+" "+s.pick(mistakeFollowUps))
	default:
		s.send(userID, idleNudge)
	}
}

// SetTime handles /time. Without an argument it reports the current trigger
// time in the user's zone; with one it parses the clock string, interprets
// it in the user's zone, and persists the canonical value.
func (s *Service) SetTime(ctx context.Context, userID int64, arg string) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		s.reportTime(ctx, userID)
		return
	}

	localSec, err := domain.ParseClock(arg)
	if err != nil {
		s.send(userID, badTimeText)
		return
	}

	now := s.now()
	var tz string
	err = s.mutate(ctx, userID, func(u *domain.UserRecord) {
		sec, cerr := domain.CanonicalSec(localSec, u.TZ, now)
		if cerr != nil {
			// Stored zone is unloadable; treat the input as UTC rather
			// than rejecting the command.
			s.log.Warn("bad stored timezone", zap.Int64("user_id", userID), zap.String("tz", u.TZ), zap.Error(cerr))
			sec = localSec
		}
		u.TriggerSec = sec
		tz = u.TZ
	})
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("time from unknown user", zap.Int64("user_id", userID))
		return
	}
	if err != nil {
		s.log.Error("set time failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	h, m := localSec/3600, localSec%3600/60
	s.send(userID, fmt.Sprintf("The time you will be messaged at is now %d:%02d in 24-hour time (%s) as per your request.", h, m, tz))
}

func (s *Service) reportTime(ctx context.Context, userID int64) {
	u, err := s.repo.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("time from unknown user", zap.Int64("user_id", userID))
		return
	}
	if err != nil {
		s.log.Error("read user failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	lt, err := domain.LocalClock(u.TriggerSec, u.TZ, s.now())
	if err != nil {
		s.log.Warn("bad stored timezone", zap.Int64("user_id", userID), zap.String("tz", u.TZ), zap.Error(err))
		lt, _ = domain.LocalClock(u.TriggerSec, "UTC", s.now())
	}
	s.send(userID, fmt.Sprintf("You'll be messaged at %s (%s).", lt.Format("3:04 PM MST"), u.TZ))
}

// Location handles a shared location: resolve its timezone and persist it.
// The stored trigger value stays fixed, so changing zones shifts the local
// wall-clock reminder time; the confirmation spells out where it now lands.
func (s *Service) Location(ctx context.Context, userID int64, lat, lon float64) {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("location from unknown user", zap.Int64("user_id", userID))
		} else {
			s.log.Error("read user failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return
	}

	tz, err := s.zones.Resolve(lat, lon)
	if err != nil {
		s.log.Warn("timezone lookup failed", zap.Int64("user_id", userID),
			zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		s.send(userID, noZoneText)
		return
	}

	var trigger int
	err = s.mutate(ctx, userID, func(u *domain.UserRecord) {
		u.TZ = tz
		trigger = u.TriggerSec
	})
	if err != nil {
		s.log.Error("set timezone failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	confirm := fmt.Sprintf("Your timezone is now %s.", tz)
	if lt, lerr := domain.LocalClock(trigger, tz, s.now()); lerr == nil {
		confirm += fmt.Sprintf(" Your daily reminder lands at %s there.", lt.Format("3:04 PM MST"))
	}
	s.send(userID, confirm)
}

// Help handles /help.
func (s *Service) Help(ctx context.Context, userID int64) {
	s.send(userID, helpText)
}

// defaultRecord builds a fresh record: idle, default zone, reminder at
// 21:00 local converted to its canonical UTC value.
func (s *Service) defaultRecord(userID int64) *domain.UserRecord {
	now := s.now()
	trigger, err := domain.CanonicalSec(DefaultTriggerSec, s.defaultTZ, now)
	if err != nil {
		s.log.Warn("bad default timezone, falling back to UTC", zap.String("tz", s.defaultTZ), zap.Error(err))
		trigger = DefaultTriggerSec
	}
	return &domain.UserRecord{
		UserID:     userID,
		Status:     domain.StatusIdle,
		TriggerSec: trigger,
		TZ:         s.defaultTZ,
		CreatedAt:  now.UTC(),
	}
}

// mutate runs a read-modify-write cycle for userID, retrying on version
// conflicts so concurrent writers never silently drop each other's updates.
func (s *Service) mutate(ctx context.Context, userID int64, fn func(*domain.UserRecord)) error {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		var u *domain.UserRecord
		u, err = s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		fn(u)
		err = s.repo.Save(ctx, u)
		if err == nil || !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Service) pick(pool []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rng.Intn(len(pool))]
}

// send delivers one outbound message; failures are the transport's problem
// and are only logged here.
func (s *Service) send(userID int64, text string) {
	if err := s.sender.SendMessage(userID, text); err != nil {
		s.log.Error("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
