package scan

import "time"

// Clock abstracts wall-clock reads so orchestrator tests can pin
// source.last_scan_at to a fixed value. Grounded on the teacher's
// Clock/RealClock split (internal/bt/clock.go).
type Clock interface {
	Now() time.Time
}

// RealClock reads the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
