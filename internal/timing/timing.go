// Package timing provides the time-gated triggers and activation counters
// shared by every component driven from the scheduler's fixed-cadence tick:
// Intervalable (fire at most once per period), Uptime (monotonic process
// age) and Tracker (last-value-change bookkeeping for diagnostics).
// Grounded on jangala-dev-devicecode-go/services/hal's worker-interval
// helpers, generalized from a fixed HAL poll period to an arbitrary
// caller-supplied period per use site.
package timing

import "time"

// Intervalable fires at most once every Period, driven by repeated calls to
// Due with the current time (never time.Now() directly, so components stay
// testable and single-stepped per spec §9's "coroutines rewritten as state
// machines" guidance).
type Intervalable struct {
	Period time.Duration
	last   time.Time
}

// NewIntervalable returns an Intervalable that is due on its first check.
func NewIntervalable(period time.Duration) *Intervalable {
	return &Intervalable{Period: period}
}

// Due reports whether Period has elapsed since the last time Due returned
// true, and if so advances the internal clock to now.
func (iv *Intervalable) Due(now time.Time) bool {
	if now.Sub(iv.last) < iv.Period {
		return false
	}
	iv.last = now
	return true
}

// Reset forces the next Due call to fire regardless of elapsed time.
func (iv *Intervalable) Reset() { iv.last = time.Time{} }

// Uptime tracks monotonic process age from an explicit start time.
type Uptime struct {
	start time.Time
}

func NewUptime(start time.Time) *Uptime { return &Uptime{start: start} }

func (u *Uptime) Since(now time.Time) time.Duration { return now.Sub(u.start) }

// Tracker records the last value a component observed, exposing both the
// value and whether the most recent Update call changed it, used by the
// fan strategies' "write only when a motor's assigned duty actually
// changes" rule (spec §4.4) and by diagnostics for activation counters.
type Tracker[T comparable] struct {
	value   T
	has     bool
	changes uint64
}

func (t *Tracker[T]) Update(v T) (changed bool) {
	if t.has && t.value == v {
		return false
	}
	t.value = v
	t.has = true
	t.changes++
	return true
}

func (t *Tracker[T]) Value() T         { return t.value }
func (t *Tracker[T]) Changes() uint64  { return t.changes }
