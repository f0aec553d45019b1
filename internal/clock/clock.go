package clock

import "time"

// Clock supplies the tenant's business date. All relative-date computations in the
// engine go through a Clock so tests can pin "today".
type Clock interface {
	Today() time.Time
}

type systemClock struct{}

// System returns a Clock backed by wall-clock UTC, truncated to midnight.
func System() Clock {
	return systemClock{}
}

func (systemClock) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type fixedClock struct {
	today time.Time
}

// Fixed returns a Clock that always reports the given date.
func Fixed(today time.Time) Clock {
	return fixedClock{today: time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)}
}

func (c fixedClock) Today() time.Time {
	return c.today
}
