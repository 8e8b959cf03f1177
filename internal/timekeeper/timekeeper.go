// Package timekeeper implements TimeKeeper: fetch-by-HTTP-HEAD clock
// sync, drift estimation and persisted drift/epoch replay across power
// cycles (spec §4.7). Grounded on
// original_source/arduino/Battery_Monitor/src/ComponentsDevicesNetworkTimeFetcher.hpp's
// TimeDriftCalculator, translated from its clamp/EMA arithmetic directly.
package timekeeper

import (
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/kv"
	"github.com/matthewgream/battery-pack-sub000/types"
)

const maxDriftMsPerHour = 60000

// DriftCalculator tracks the estimated clock drift in ms/hour as a 75%/25%
// EMA of the previous estimate and the newly observed rate, clamped to
// ±60000. A value that would have exceeded the clamp is remembered in
// HighDrift (non-zero raises TIME_DRIFT) before being clamped away.
type DriftCalculator struct {
	driftMs    int64
	HighDrift  int64
}

func NewDriftCalculator(initialMs int64) *DriftCalculator {
	return &DriftCalculator{driftMs: initialMs}
}

// UpdateDrift folds in one observed (periodSecs, periodMs) measurement and
// returns the new clamped drift.
func (d *DriftCalculator) UpdateDrift(periodSecs int64, periodMs int64) int64 {
	if periodMs == 0 {
		return d.driftMs
	}
	observed := ((periodSecs*1000 - periodMs) * 3600000) / periodMs
	blended := (d.driftMs*3 + observed) / 4
	d.HighDrift = 0
	if blended > maxDriftMsPerHour || blended < -maxDriftMsPerHour {
		d.HighDrift = blended
	}
	d.driftMs = clampDrift(blended)
	return d.driftMs
}

func clampDrift(v int64) int64 {
	if v > maxDriftMsPerHour {
		return maxDriftMsPerHour
	}
	if v < -maxDriftMsPerHour {
		return -maxDriftMsPerHour
	}
	return v
}

// ApplyDrift computes the adjustment for a period of periodMs in whole
// milliseconds (drift * periodMs / 3600000, truncated) and adds it to the
// wall-clock time.
func (d *DriftCalculator) ApplyDrift(current time.Time, periodMs int64) time.Time {
	adjustMs := (d.driftMs * periodMs) / 3600000
	return current.Add(time.Duration(adjustMs) * time.Millisecond)
}

func (d *DriftCalculator) Drift() int64 { return d.driftMs }

// Fetcher is the external HTTP-HEAD collaborator: issue the request and
// return the parsed Date header as a wall-clock time.
type Fetcher interface {
	FetchDate() (time.Time, error)
}

// KeeperConfig bounds alarm-raising behavior.
type KeeperConfig struct {
	FailureLimit int
}

// Keeper owns drift estimation, persistence and the failure counter that
// raises TIME_SYNC after FailureLimit consecutive HTTP fetch failures.
type Keeper struct {
	cfg     KeeperConfig
	fetcher Fetcher
	ns      *kv.Namespace

	drift *DriftCalculator

	lastFetched   time.Time
	haveFetched   bool
	failures      int
}

func NewKeeper(cfg KeeperConfig, fetcher Fetcher, ns *kv.Namespace) *Keeper {
	driftMs := int64(ns.GetInt32(types.KeyNetTimeDrift, 0))
	return &Keeper{cfg: cfg, fetcher: fetcher, ns: ns, drift: NewDriftCalculator(driftMs)}
}

// IntervalUpdate issues one fetch attempt. On success it updates the drift
// estimator against the previously fetched time (if any) and resets the
// failure counter; on failure it increments the counter and reports
// whether TIME_SYNC should now be raised.
func (k *Keeper) IntervalUpdate(networkUp bool, now time.Time) (raiseTimeSync bool) {
	if !networkUp {
		k.failures++
		return k.failures > k.cfg.FailureLimit
	}
	fetched, err := k.fetcher.FetchDate()
	if err != nil {
		k.failures++
		return k.failures > k.cfg.FailureLimit
	}
	k.failures = 0
	if k.haveFetched {
		periodSecs := int64(fetched.Sub(k.lastFetched).Seconds())
		periodMs := now.Sub(k.lastFetched).Milliseconds()
		k.drift.UpdateDrift(periodSecs, periodMs)
		k.persistDrift()
	}
	k.lastFetched = fetched
	k.haveFetched = true
	k.persistEpoch(fetched)
	return false
}

// IntervalAdjust applies the current drift estimate to the wall clock for
// a tick of periodMs, persisting the new epoch so power cycles re-seed
// from it.
func (k *Keeper) IntervalAdjust(current time.Time, periodMs int64) time.Time {
	adjusted := k.drift.ApplyDrift(current, periodMs)
	k.persistEpoch(adjusted)
	return adjusted
}

func (k *Keeper) persistDrift() {
	_ = k.ns.SetInt32(types.KeyNetTimeDrift, int32(k.drift.Drift()))
}

func (k *Keeper) persistEpoch(t time.Time) {
	_ = k.ns.SetUint32(types.KeyNetTimeTime, uint32(t.Unix()))
}

// LoadEpoch returns the last-persisted epoch as a reseed time for startup,
// before the first successful fetch.
func (k *Keeper) LoadEpoch() time.Time {
	return time.Unix(int64(k.ns.GetUint32(types.KeyNetTimeTime, 0)), 0).UTC()
}

func (k *Keeper) HighDrift() int64 { return k.drift.HighDrift }
func (k *Keeper) Failures() int    { return k.failures }
