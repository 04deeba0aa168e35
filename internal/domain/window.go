package domain

// InWindow reports whether triggerSec falls strictly inside the open
// interval (startSec, endSec) in the seconds-of-day domain. Boundary values
// are excluded so adjacent sweep windows never fire twice for the same
// trigger. endSec may exceed DaySeconds, in which case the window wraps past
// midnight and the overflow matches (0, endSec-DaySeconds).
func InWindow(triggerSec, startSec, endSec int) bool {
	if endSec <= DaySeconds {
		return triggerSec > startSec && triggerSec < endSec
	}
	wrapped := endSec - DaySeconds
	if triggerSec > startSec && triggerSec < DaySeconds {
		return true
	}
	return triggerSec > 0 && triggerSec < wrapped
}
