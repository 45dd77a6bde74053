package teamchat

import "time"

// maxBackoffShift keeps the doubling from overflowing a Duration for
// any attempt count a caller could realistically configure.
const maxBackoffShift = 16

// backoffDelay returns the delay before reconnect attempt n (1-based):
// base, 2*base, 4*base, ... Pure so the schedule is testable without
// timers.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return base << uint(shift)
}
