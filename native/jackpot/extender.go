package jackpot

import (
	"math"
	"time"
)

// Extend returns the deadline after the bidCount-th bid of a round lands at
// now. The first bid opens the countdown at now+base; every later bid pushes
// the existing deadline out by ext, independent of now. The result never
// precedes the current deadline and saturates instead of overflowing.
func Extend(deadline, now int64, bidCount uint64, base, ext time.Duration) int64 {
	var next int64
	switch {
	case bidCount == 0:
		return deadline
	case bidCount == 1:
		next = addSeconds(now, base)
	default:
		next = addSeconds(deadline, ext)
	}
	if next < deadline {
		return deadline
	}
	return next
}

// TimeUntilWithdrawal is max(0, deadline-now). An unset deadline reads as zero.
func TimeUntilWithdrawal(deadline, now int64) time.Duration {
	if deadline == 0 || now >= deadline {
		return 0
	}
	remaining := deadline - now
	if remaining > int64(math.MaxInt64/time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(remaining) * time.Second
}

func addSeconds(ts int64, d time.Duration) int64 {
	secs := int64(d / time.Second)
	if secs <= 0 {
		return ts
	}
	if ts > math.MaxInt64-secs {
		return math.MaxInt64
	}
	return ts + secs
}
