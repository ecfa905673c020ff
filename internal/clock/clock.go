// Package clock provides the monotonic and wall-clock time sources used by
// the P25 state machine. Production code uses the system clock; tests inject
// a Manual clock so boundary cases (hangtime=0, grant_timeout=0, simultaneous
// events) can be driven exactly.
package clock

import "time"

// Source is the time abstraction consumed by the SM core and its
// collaborators. Monotonic returns seconds as a float64, matching the base
// spec's "monotonic seconds (doubles)" timestamp fields.
type Source interface {
	// Monotonic returns a monotonically increasing number of seconds. It is
	// never used for display; only for interval arithmetic.
	Monotonic() float64
	// Wall returns the current wall-clock time, used for event-log timestamps.
	Wall() time.Time
}

// System is the production clock, backed by time.Now() and a fixed epoch
// captured at process start so Monotonic() stays small and stable.
type System struct {
	epoch time.Time
}

// NewSystem returns a System clock anchored to the current instant.
func NewSystem() *System {
	return &System{epoch: time.Now()}
}

func (s *System) Monotonic() float64 {
	return time.Since(s.epoch).Seconds()
}

func (s *System) Wall() time.Time {
	return time.Now()
}

// Manual is a clock tests can advance explicitly.
type Manual struct {
	now  float64
	wall time.Time
}

// NewManual returns a Manual clock starting at t=0 monotonic and the given
// wall-clock instant.
func NewManual(wall time.Time) *Manual {
	return &Manual{wall: wall}
}

func (m *Manual) Monotonic() float64 {
	return m.now
}

func (m *Manual) Wall() time.Time {
	return m.wall
}

// Set moves the clock to an absolute monotonic second value. It must be
// monotonically non-decreasing; callers (tests) are responsible for that.
func (m *Manual) Set(seconds float64) {
	delta := seconds - m.now
	m.now = seconds
	if delta > 0 {
		m.wall = m.wall.Add(time.Duration(delta * float64(time.Second)))
	}
}

// Advance moves the clock forward by the given number of seconds.
func (m *Manual) Advance(seconds float64) {
	m.Set(m.now + seconds)
}
