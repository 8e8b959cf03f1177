package calib

import (
	"path/filepath"
	"testing"

	"github.com/matthewgream/battery-pack-sub000/types"
)

// fakeReference lets a test drive the reference-thermometer reading
// directly, rather than waiting on real settling time.
type fakeReference struct {
	value float64
	ok    bool
}

func (f *fakeReference) ReadCelsius() (float64, bool) { return f.value, f.ok }

// fakeChannels returns a fixed resistance per channel, independent of the
// requested reference temperature; good enough to exercise the state
// machine without needing a physically consistent thermistor curve.
type fakeChannels struct {
	ohms []float64
}

func (f *fakeChannels) ReadResistance(channel int) (float64, bool) {
	if channel < 0 || channel >= len(f.ohms) {
		return 0, false
	}
	return f.ohms[channel], true
}

func TestPipelineCollectsOneStepAtATime(t *testing.T) {
	ref := &fakeReference{value: 30, ok: true} // already above tStart-tStep
	ch := &fakeChannels{ohms: []float64{1000, 1100}}
	p := NewPipeline(20, 20, 5, 2, ref, ch)

	// First step from collectWaitBelowThreshold: reference is already
	// above tStart-tStep, so it stays in that state until it reads below.
	if done := p.Step(); done {
		t.Fatal("did not expect completion while still waiting for settle")
	}

	ref.value = 10 // below tStart-tStep (20-5=15)
	if done := p.Step(); done {
		t.Fatal("unexpected completion on transition into poll-reference")
	}

	ref.value = 25 // above target (20)
	if done := p.Step(); done {
		t.Fatal("unexpected completion on transition into averaging")
	}

	// avgSample samples needed before a row is recorded; single target
	// (tStart==tEnd) means the sweep finishes after one row.
	var done bool
	for i := 0; i < avgSample; i++ {
		done = p.Step()
	}
	if !done {
		t.Fatal("expected sweep to complete after the only target step")
	}

	table := p.Table()
	if len(table.Temperatures) != 1 || table.Temperatures[0] != 20 {
		t.Fatalf("expected one row at target 20, got %+v", table.Temperatures)
	}
	if len(table.Resistances) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(table.Resistances))
	}
	if table.Resistances[0][0] != 1000 || table.Resistances[1][0] != 1100 {
		t.Fatalf("unexpected averaged resistances: %+v", table.Resistances)
	}
}

func TestFitAndPersistThenLoadRoundTrips(t *testing.T) {
	temps, resistances := syntheticTable(1.2e-3, 2.3e-4, 0, 9.5e-8, 6)
	table := types.CalibrationTable{
		Temperatures: temps,
		Resistances:  [][]float64{resistances},
	}
	fallback := types.CalibrationStrategy{Kind: types.StrategySteinhart, Steinhart: &types.SteinhartCoeffs{A: 1, B: 1, C: 1, D: 1}}

	path := filepath.Join(t.TempDir(), "calibration.json")
	doc, err := FitAndPersist(path, table, fallback)
	if err != nil {
		t.Fatalf("FitAndPersist failed: %v", err)
	}
	if _, ok := doc.Sensors[types.SensorKey(0)]; !ok {
		t.Fatal("expected channel 0 to be fitted")
	}

	rt, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := rt.CalculateTemperature(0, resistances[0])
	if got != got { // NaN check
		t.Fatal("expected a finite temperature from the loaded runtime")
	}
}

func TestFitAndPersistRejectsShortTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	_, err := FitAndPersist(path, types.CalibrationTable{Temperatures: []float64{1, 2}}, types.CalibrationStrategy{})
	if err == nil {
		t.Fatal("expected error for fewer than 4 collected samples")
	}
}
