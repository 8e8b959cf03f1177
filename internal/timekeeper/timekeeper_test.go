package timekeeper

import (
	"errors"
	"testing"
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/kv"
)

func TestApplyDriftScenario(t *testing.T) {
	d := NewDriftCalculator(3600)
	base := time.Unix(1000, 0)
	got := d.ApplyDrift(base, 60000)
	if got.Sub(base) != 60*time.Millisecond {
		t.Fatalf("expected +60ms adjustment, got %v", got.Sub(base))
	}
}

func TestDriftClamp(t *testing.T) {
	d := NewDriftCalculator(0)
	// A huge discrepancy should clamp to the bound and set HighDrift.
	d.UpdateDrift(1000, 1) // enormous observed rate
	if d.Drift() != maxDriftMsPerHour {
		t.Fatalf("expected clamp to %d, got %d", maxDriftMsPerHour, d.Drift())
	}
	if d.HighDrift == 0 {
		t.Fatal("expected HighDrift to record the unclamped value")
	}
}

type fakeFetcher struct {
	t   time.Time
	err error
}

func (f fakeFetcher) FetchDate() (time.Time, error) { return f.t, f.err }

func TestDriftPersistRoundTrip(t *testing.T) {
	root := t.TempDir()
	ns := kv.Open(root).Namespace("nettime")

	k := NewKeeper(KeeperConfig{FailureLimit: 3}, fakeFetcher{t: time.Unix(1000, 0)}, ns)
	k.IntervalUpdate(true, time.Unix(1000, 0))
	// A second fetch one reference hour later, with the local clock one
	// second further on, yields a non-zero drift that is persisted.
	k.fetcher = fakeFetcher{t: time.Unix(4600, 0)}
	k.IntervalUpdate(true, time.Unix(4601, 0))
	want := k.drift.Drift()
	k2 := NewKeeper(KeeperConfig{FailureLimit: 3}, fakeFetcher{t: time.Unix(2000, 0)}, kv.Open(root).Namespace("nettime"))
	// reload should start from the persisted drift
	if want == 0 || k2.drift.Drift() != want {
		t.Fatalf("expected persisted non-zero drift %d, got %d", want, k2.drift.Drift())
	}
}

func TestFailureLimitRaisesAlarm(t *testing.T) {
	ns := kv.Open(t.TempDir()).Namespace("nettime")
	k := NewKeeper(KeeperConfig{FailureLimit: 2}, fakeFetcher{err: errors.New("boom")}, ns)
	var raised bool
	for i := 0; i < 5; i++ {
		raised = k.IntervalUpdate(true, time.Unix(int64(i), 0))
	}
	if !raised {
		t.Fatal("expected TIME_SYNC to be raised after exceeding failure limit")
	}
}
