// Package telemetry implements TelemetryOrchestrator: the periodic
// snapshot loop that decides independently whether to deliver, capture
// (publish+store) or diagnose, draining the store through publish before
// emitting fresh data, and the JSON MTU splitter for oversized payloads
// (spec §4.9). Grounded on jangala-dev-devicecode-go's small-interface,
// explicit-interval style.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/timing"
	"github.com/matthewgream/battery-pack-sub000/internal/transport"
	"github.com/matthewgream/battery-pack-sub000/types"
)

// Sampler produces the current telemetry snapshot on demand.
type Sampler interface {
	Sample(now time.Time) types.Snapshot
}

// Diagnoser produces the current diagnostics snapshot on demand.
type Diagnoser interface {
	Diagnose(now time.Time) types.Snapshot
}

// Orchestrator drives the telemetry/diagnostics cadence. Each concern
// gates independently on its own Intervalable.
type Orchestrator struct {
	deliverIv, captureIv, diagnoseIv *timing.Intervalable

	sampler   Sampler
	diagnoser Diagnoser
	fanout    *transport.Fanout
	store     *transport.StoreFile

	deviceID string
}

func NewOrchestrator(deliverPeriod, capturePeriod, diagnosePeriod time.Duration, sampler Sampler, diagnoser Diagnoser, fanout *transport.Fanout, store *transport.StoreFile, deviceID string) *Orchestrator {
	return &Orchestrator{
		deliverIv:  timing.NewIntervalable(deliverPeriod),
		captureIv:  timing.NewIntervalable(capturePeriod),
		diagnoseIv: timing.NewIntervalable(diagnosePeriod),
		sampler:    sampler,
		diagnoser:  diagnoser,
		fanout:     fanout,
		store:      store,
		deviceID:   deviceID,
	}
}

// Process runs one scheduler tick of the telemetry loop.
func (o *Orchestrator) Process(now time.Time) {
	if o.deliverIv.Due(now) {
		o.deliver(now)
	}
	if o.captureIv.Due(now) {
		o.capture(now)
	}
	if o.diagnoseIv.Due(now) {
		o.diagnose(now)
	}
}

func (o *Orchestrator) deliver(now time.Time) {
	snap := o.sampler.Sample(now)
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = o.fanout.Deliver(transport.TopicFor(o.deviceID, string(snap.Type)), b, true)
}

func (o *Orchestrator) capture(now time.Time) {
	if o.store != nil && !o.store.IsEmpty() {
		if !o.drainStore() {
			return // a stored line failed to publish; retry next tick, don't emit fresh data yet
		}
	}
	snap := o.sampler.Sample(now)
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	topic := transport.TopicFor(o.deviceID, string(snap.Type))
	if err := o.fanout.Publish(topic, b); err != nil {
		if o.store != nil {
			_ = o.store.Append(b)
		}
		return
	}
}

// drainStore replays every buffered line through publish and truncates the
// store once all of them succeed. Any failure aborts the drain and leaves
// the store as it is, so the next drain replays every buffered line again,
// including those already published in this pass.
func (o *Orchestrator) drainStore() bool {
	it, err := o.store.Lines()
	if err != nil {
		return false
	}
	defer it.Close()

	var lines []string
	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	for _, line := range lines {
		if err := o.fanout.Publish(transport.TopicFor(o.deviceID, "data"), []byte(line)); err != nil {
			return false
		}
	}
	_ = o.store.Truncate()
	return true
}

func (o *Orchestrator) diagnose(now time.Time) {
	snap := o.diagnoser.Diagnose(now)
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = o.fanout.Publish(transport.TopicFor(o.deviceID, string(snap.Type)), b)
}
