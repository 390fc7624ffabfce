package notify

import "time"

// Clock supplies "now" to the scheduler and the recovery coordinator.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Useful for previews and tests.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
