package collector

import (
	"time"

	"pubgstats/internal/pubg"
)

// FallbackDelay is used whenever a cycle gives us no usable rate limit signal
const FallbackDelay = 10 * time.Second

// NextDelay decides how long to wait before the next sample request.
// rl is nil when the cycle failed before any response arrived.
func NextDelay(rl *pubg.RateLimit, now time.Time) time.Duration {
	if rl == nil {
		return FallbackDelay
	}
	if rl.Remaining != nil && *rl.Remaining > 0 {
		return 0
	}
	if rl.Reset == nil {
		return FallbackDelay
	}

	// Wait until the window resets, plus a second of slack for clock skew
	waitMs := *rl.Reset*1000 - now.UnixMilli() + 1000
	if waitMs < 0 {
		return 0
	}
	return time.Duration(waitMs) * time.Millisecond
}
