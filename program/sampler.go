package program

import (
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/alarms"
	"github.com/matthewgream/battery-pack-sub000/internal/peers"
	"github.com/matthewgream/battery-pack-sub000/internal/thermal"
	"github.com/matthewgream/battery-pack-sub000/internal/tpms"
	"github.com/matthewgream/battery-pack-sub000/internal/updater"
	"github.com/matthewgream/battery-pack-sub000/types"
)

// snapshotSampler builds the periodic telemetry payload (spec §3's "data"
// envelope) from whatever components currently hold fresh state. It
// implements telemetry.Sampler.
type snapshotSampler struct {
	deviceAddr string
	bank       *thermal.Bank
	channels   []int
	tpms       *tpms.Scanner
	aggregator *alarms.Aggregator
	peers      *peers.Peers[string]
}

func (s *snapshotSampler) Sample(now time.Time) types.Snapshot {
	temps := make(map[string]float64, len(s.channels))
	for _, ch := range s.channels {
		if t, ok := s.bank.GetTemperature(ch); ok {
			temps[types.SensorKey(ch)] = t
		}
	}

	front, frontCount := s.tpms.Front()
	rear, rearCount := s.tpms.Rear()

	current := s.aggregator.Current()

	fields := map[string]any{
		"temperatures": temps,
		"tpms": map[string]any{
			"front": front, "front_count": frontCount,
			"rear": rear, "rear_count": rearCount,
		},
		"alarms": uint32(current),
	}
	if s.peers != nil {
		if peer, ok := s.peers.Select(); ok {
			fields["peer"] = peer
		}
	}

	return types.Snapshot{
		Envelope: types.Envelope{Type: types.PayloadData, Time: now.UTC().Format(time.RFC3339), Addr: s.deviceAddr},
		Fields:   fields,
	}
}

// thermalDiagnostics exposes per-channel min/max/avg for the diagnostics
// collector (spec §4.3's statistics requirement).
type thermalDiagnostics struct {
	bank     *thermal.Bank
	channels []int
}

func (d thermalDiagnostics) CollectDiagnostics() map[string]any {
	out := make(map[string]any, len(d.channels))
	for _, ch := range d.channels {
		min, max, avg, count, err := d.bank.Stats(ch)
		if err != nil || count == 0 {
			continue
		}
		out[types.SensorKey(ch)] = map[string]any{"min": min, "max": max, "avg": avg, "count": count}
	}
	return out
}

type alarmDiagnostics struct {
	aggregator *alarms.Aggregator
}

func (d alarmDiagnostics) CollectDiagnostics() map[string]any {
	counters := d.aggregator.Counters()
	return map[string]any{
		"current":       uint32(d.aggregator.Current()),
		"activations":   counters.Activations,
		"deactivations": counters.Deactivations,
	}
}

type updaterDiagnostics struct {
	upd *updater.Updater
}

func (d updaterDiagnostics) CollectDiagnostics() map[string]any {
	return map[string]any{
		"available":   d.upd.Available(),
		"latest":      d.upd.LatestVersion(),
		"last_polled": d.upd.LastPolled().UTC().Format(time.RFC3339),
		"failures":    d.upd.Failures(),
	}
}
