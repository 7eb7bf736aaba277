package security

import "time"

// Clock returns the current time. Tests inject a fake clock.
type Clock func() time.Time

// observe returns now, or last if the clock moved backwards. Bucket
// timestamps never decrease so negative elapsed time counts as zero.
func observe(last, now time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}

// backoffMultiplier returns min(2^(violations-1), maxBackoffMultiplier), or 1
// when there are no violations.
func backoffMultiplier(violations int) float64 {
	if violations <= 1 {
		return 1
	}
	if violations-1 >= maxBackoffShift {
		return maxBackoffMultiplier
	}
	return float64(int(1) << (violations - 1))
}

const (
	maxBackoffShift      = 5
	maxBackoffMultiplier = 1 << maxBackoffShift
)
