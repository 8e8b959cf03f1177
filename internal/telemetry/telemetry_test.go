package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/transport"
	"github.com/matthewgream/battery-pack-sub000/types"
)

type fixedSampler struct{ n int }

func (s *fixedSampler) Sample(now time.Time) types.Snapshot {
	s.n++
	return types.Snapshot{Envelope: types.Envelope{Type: types.PayloadData, Time: "t", Addr: "a"}, Fields: map[string]any{"n": s.n}}
}

type fixedDiagnoser struct{}

func (fixedDiagnoser) Diagnose(now time.Time) types.Snapshot {
	return types.Snapshot{Envelope: types.Envelope{Type: types.PayloadDiag, Time: "t", Addr: "a"}}
}

type countingTransport struct {
	available bool
	sends     int
}

func (c *countingTransport) Available() bool { return c.available }
func (c *countingTransport) Send(topic string, data []byte) error {
	c.sends++
	return nil
}

func TestOrchestratorIndependentIntervals(t *testing.T) {
	mqtt := &countingTransport{available: true}
	fo := &transport.Fanout{MQTT: mqtt}
	sampler := &fixedSampler{}
	o := NewOrchestrator(10*time.Second, 1*time.Hour, 1*time.Hour, sampler, fixedDiagnoser{}, fo, nil, "dev1")

	// Every interval is due on its first check, so deliver and capture each
	// sample once on the first tick.
	now := time.Unix(0, 0)
	o.Process(now)
	if sampler.n != 2 {
		t.Fatalf("expected deliver and capture to sample once each, got %d", sampler.n)
	}
	o.Process(now.Add(5 * time.Second))
	if sampler.n != 2 {
		t.Fatal("expected no further sample before deliver interval elapses")
	}
	o.Process(now.Add(10 * time.Second))
	if sampler.n != 3 {
		t.Fatalf("expected one more sample after deliver interval, got %d", sampler.n)
	}
}

func TestOrchestratorDrainsStoreBeforeCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ndjson")
	store, err := transport.OpenStoreFile(path, 1<<20)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store.Append([]byte(`{"type":"data","time":"t","addr":"a","n":1}`))

	mqtt := &countingTransport{available: true}
	fo := &transport.Fanout{MQTT: mqtt}
	sampler := &fixedSampler{}
	o := NewOrchestrator(1*time.Hour, 10*time.Second, 1*time.Hour, sampler, fixedDiagnoser{}, fo, store, "dev1")

	o.Process(time.Unix(0, 0))
	if mqtt.sends < 2 {
		t.Fatalf("expected drained line plus fresh capture to both publish, got %d sends", mqtt.sends)
	}
	if !store.IsEmpty() {
		t.Fatal("expected store to be empty after successful drain")
	}
}
