package updater

import (
	"testing"
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/kv"
)

type fakeFetcher struct {
	manifest Manifest
	err      error
}

func (f fakeFetcher) FetchManifest(channel, currentVersion, addr string) (Manifest, error) {
	return f.manifest, f.err
}

func TestUpdaterDetectsNewVersionEdge(t *testing.T) {
	ns := kv.Open(t.TempDir()).Namespace("updates")
	u := NewUpdater(time.Second, fakeFetcher{manifest: Manifest{Version: "1.1.0"}}, ns, "stable", "1.0.0", "aa:bb")

	now := time.Unix(0, 0)
	if raised := u.Process(now); !raised {
		t.Fatal("expected UPDATE_VERS edge on first poll with newer version")
	}
	if raised := u.Process(now.Add(2 * time.Second)); raised {
		t.Fatal("expected no further edge while version stays newer")
	}
	if !u.Available() {
		t.Fatal("expected Available() true")
	}
}

func TestUpdaterNoEdgeWhenSameVersion(t *testing.T) {
	ns := kv.Open(t.TempDir()).Namespace("updates")
	u := NewUpdater(time.Second, fakeFetcher{manifest: Manifest{Version: "1.0.0"}}, ns, "stable", "1.0.0", "aa:bb")
	if raised := u.Process(time.Unix(0, 0)); raised {
		t.Fatal("expected no edge when manifest version matches current")
	}
}

func TestUpdaterRespectsInterval(t *testing.T) {
	ns := kv.Open(t.TempDir()).Namespace("updates")
	u := NewUpdater(time.Hour, fakeFetcher{manifest: Manifest{Version: "2.0.0"}}, ns, "stable", "1.0.0", "aa:bb")
	u.Process(time.Unix(0, 0))
	if u.Process(time.Unix(10, 0)) {
		t.Fatal("expected no poll before interval elapses")
	}
}

func TestUpdaterPersistsLastPolledAcrossRestart(t *testing.T) {
	root := t.TempDir()
	ns := kv.Open(root).Namespace("updates")
	u := NewUpdater(time.Second, fakeFetcher{manifest: Manifest{Version: "1.0.0"}}, ns, "stable", "1.0.0", "aa:bb")

	polledAt := time.Unix(1000, 0)
	u.Process(polledAt)
	if got := ns.GetUint32("previous", 0); got != uint32(polledAt.Unix()) {
		t.Fatalf("expected updates/previous persisted as %d, got %d", polledAt.Unix(), got)
	}

	// Simulate a restart: reopen the namespace and build a fresh Updater.
	ns2 := kv.Open(root).Namespace("updates")
	restarted := NewUpdater(time.Second, fakeFetcher{manifest: Manifest{Version: "1.0.0"}}, ns2, "stable", "1.0.0", "aa:bb")
	if !restarted.LastPolled().Equal(polledAt.UTC()) {
		t.Fatalf("expected LastPolled to survive restart as %v, got %v", polledAt.UTC(), restarted.LastPolled())
	}
}
