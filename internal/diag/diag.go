// Package diag implements the wall-time Watchdog tickler (reset last in
// every scheduler tick) and DiagnosticsCollector, a fan-out JSON collector
// over a registry of Diagnosticable components (spec §2 row 19, §5
// "hardware watchdog on a wall-clock timeout"). Grounded on
// jangala-dev-devicecode-go/services/hal/registry.go's registry-of-
// named-components pattern.
package diag

import (
	"time"

	"github.com/matthewgream/battery-pack-sub000/types"
)

// WatchdogPin is the external platform collaborator that actually resets
// the hardware timer.
type WatchdogPin interface {
	Tickle()
}

// Watchdog wraps the platform watchdog pin with the timeout bookkeeping
// spec §5 describes (default 60s), reset each tick as the scheduler's
// very last call.
type Watchdog struct {
	pin     WatchdogPin
	timeout time.Duration
	last    time.Time
}

func NewWatchdog(pin WatchdogPin, timeout time.Duration) *Watchdog {
	return &Watchdog{pin: pin, timeout: timeout}
}

// Tickle resets the timer. Expired reports whether the previous tickle
// (if any) was longer than timeout ago, for diagnostics visibility before
// the platform watchdog itself would have fired.
func (w *Watchdog) Tickle(now time.Time) (expired bool) {
	if !w.last.IsZero() && now.Sub(w.last) > w.timeout {
		expired = true
	}
	w.last = now
	w.pin.Tickle()
	return expired
}

// Diagnosticable is implemented by any component that can contribute a
// named diagnostics fragment.
type Diagnosticable interface {
	CollectDiagnostics() map[string]any
}

// Collector owns an ordered registry of named Diagnosticable components
// and builds one diag-typed Snapshot per call.
type Collector struct {
	entries []namedDiagnosticable
	addr    string
}

type namedDiagnosticable struct {
	name string
	d    Diagnosticable
}

func NewCollector(addr string) *Collector {
	return &Collector{addr: addr}
}

// Register adds a component under a stable name; registration order is
// the order fragments appear when iterated (not guaranteed by JSON
// marshaling, but kept for deterministic internal inspection/testing).
func (c *Collector) Register(name string, d Diagnosticable) {
	c.entries = append(c.entries, namedDiagnosticable{name, d})
}

// Diagnose builds the aggregate diagnostics snapshot.
func (c *Collector) Diagnose(now time.Time) types.Snapshot {
	fields := make(map[string]any, len(c.entries))
	for _, e := range c.entries {
		fields[e.name] = e.d.CollectDiagnostics()
	}
	return types.Snapshot{
		Envelope: types.Envelope{Type: types.PayloadDiag, Time: now.UTC().Format(time.RFC3339), Addr: c.addr},
		Fields:   fields,
	}
}
