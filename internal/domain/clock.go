package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DaySeconds is the length of one day in the seconds-of-day domain.
const DaySeconds = 24 * 60 * 60

// ErrBadClock is returned when a trigger time cannot be parsed.
var ErrBadClock = errors.New("unrecognized clock time")

// Accepted layouts for user-supplied trigger times. 24-hour forms first so
// "7:00" never parses as a bare 12-hour time.
var clockLayouts = []string{
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// ParseClock parses a wall-clock string like "7:00" or "8:00 PM" into
// seconds since local midnight.
func ParseClock(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrBadClock
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*3600 + t.Minute()*60, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
}

// SecondsOfDay returns t's offset from midnight, in t's own location.
func SecondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// CanonicalSec converts a local seconds-since-midnight value in the given
// timezone into UTC seconds since midnight, anchored on now's date. The
// result is what gets persisted and what the sweep compares against.
func CanonicalSec(localSec int, tz string, now time.Time) (int, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	ln := now.In(loc)
	local := time.Date(ln.Year(), ln.Month(), ln.Day(), localSec/3600, localSec%3600/60, 0, 0, loc)
	return SecondsOfDay(local.UTC()), nil
}

// LocalClock maps a canonical trigger value back into the user's timezone,
// anchored on now's UTC date. Only the clock fields of the result are
// meaningful.
func LocalClock(triggerSec int, tz string, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	un := now.UTC()
	utc := time.Date(un.Year(), un.Month(), un.Day(), triggerSec/3600, triggerSec%3600/60, triggerSec%60, 0, time.UTC)
	return utc.In(loc), nil
}

// ValidateTZ checks that tz names a loadable IANA location.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}
