// Package alarms implements AlarmAggregator: an ordered list of predicate
// sources evaluated every tick into a bitset, with edge-detected
// activation/deactivation counters and a single non-latching alarm output
// (spec §4.8). Grounded on original_source's ActivationTracker pattern
// (used throughout the original for activation/deactivation-style
// counters) generalized to the whole fixed alarm enumeration.
package alarms

import "github.com/matthewgream/battery-pack-sub000/types"

// Alarmable exposes the set of alarm kinds currently asserted by one
// subsystem's predicates.
type Alarmable interface {
	Alarms() types.AlarmSet
}

// Counters tracks, per alarm kind, how many times it has transitioned
// from clear to set (Activations) and set to clear (Deactivations).
type Counters struct {
	Activations   [16]uint64
	Deactivations [16]uint64
}

// Aggregator owns the ordered list of alarm sources and the previous
// tick's bitset for edge detection.
type Aggregator struct {
	sources []Alarmable
	prev    types.AlarmSet
	counts  Counters
}

func NewAggregator(sources ...Alarmable) *Aggregator {
	return &Aggregator{sources: sources}
}

// Process rebuilds the bitset from every source, XORs it against the
// previous tick to find edges, updates activation/deactivation counters,
// and returns the new bitset plus whether the alarm output should be
// driven high.
func (a *Aggregator) Process() (current types.AlarmSet, active bool) {
	var next types.AlarmSet
	for _, s := range a.sources {
		next |= s.Alarms()
	}

	edges := next.Edges(a.prev)
	for kind := types.AlarmKind(0); kind < 16; kind++ {
		if !edges.Has(kind) {
			continue
		}
		if next.Has(kind) {
			a.counts.Activations[kind]++
		} else {
			a.counts.Deactivations[kind]++
		}
	}

	a.prev = next
	return next, next.Any()
}

func (a *Aggregator) Counters() Counters { return a.counts }
func (a *Aggregator) Current() types.AlarmSet { return a.prev }
