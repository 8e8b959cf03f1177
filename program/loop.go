// Package program implements ProgramLoop: the fixed-cadence scheduler that
// invokes every component's Process in a fixed leaves-first order, then
// sleeps until the next tick (spec §2, §5). Grounded on
// jangala-dev-devicecode-go/services/hal's top-level Run() select-loop
// shape, adapted from a channel-driven event loop to a plain ticker since
// this controller has no HAL worker-pool layer beneath it.
package program

import (
	"context"
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/fmtx"
)

// Component is implemented by every long-lived subsystem the loop drives.
// Begin acquires external resources once; Process runs every tick.
type Component interface {
	Begin() error
	Process(now time.Time)
}

// Loop owns the fixed cadence and the leaves-first component order.
type Loop struct {
	Period     time.Duration
	components []Component
	watchdog   func(now time.Time)
}

func NewLoop(period time.Duration) *Loop {
	return &Loop{Period: period}
}

// Register appends a component to the end of the run order. Callers are
// responsible for registering in leaves-first order: hardware before
// managers before telemetry before alarms before diagnostics before the
// top (spec §5 "Ordering").
func (l *Loop) Register(c Component) {
	l.components = append(l.components, c)
}

// SetWatchdog installs the tickle callback invoked last on every tick,
// after every component has run.
func (l *Loop) SetWatchdog(tickle func(now time.Time)) {
	l.watchdog = tickle
}

// Begin initializes every registered component in order, stopping at the
// first failure.
func (l *Loop) Begin() error {
	for _, c := range l.components {
		if err := c.Begin(); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the scheduler until ctx is canceled. now is supplied by the
// caller on each tick so the loop itself never calls time.Now() directly.
func (l *Loop) Run(ctx context.Context, now func() time.Time) {
	ticker := time.NewTicker(l.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			l.tick(now2(now, t))
		}
	}
}

func now2(now func() time.Time, fallback time.Time) time.Time {
	if now != nil {
		return now()
	}
	return fallback
}

func (l *Loop) tick(t time.Time) {
	defer func() {
		if r := recover(); r != nil {
			fmtx.Logf("program: recovered panic in tick: %v", r)
		}
	}()
	for _, c := range l.components {
		c.Process(t)
	}
	if l.watchdog != nil {
		l.watchdog(t)
	}
}
