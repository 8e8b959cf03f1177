package thermal

import (
	"testing"

	"github.com/matthewgream/battery-pack-sub000/internal/calib"
	"github.com/matthewgream/battery-pack-sub000/types"
)

type fakeMux struct {
	values map[int]float64
}

func (f fakeMux) ReadResistance(channel int) (float64, bool) {
	v, ok := f.values[channel]
	return v, ok
}

func newTestRuntime() *calib.Runtime {
	def := types.CalibrationStrategy{Kind: types.StrategySteinhart, Steinhart: &types.SteinhartCoeffs{A: 1.2e-3, B: 2.3e-4, D: 9.5e-8}}
	return calib.NewRuntime(def)
}

func TestGetTemperatureValid(t *testing.T) {
	mux := fakeMux{values: map[int]float64{0: 1000}}
	bank := NewBank(mux, newTestRuntime())
	_, ok := bank.GetTemperature(0)
	if !ok {
		t.Fatal("expected valid reading")
	}
}

func TestGetTemperatureRejectsOutOfRangeChannel(t *testing.T) {
	bank := NewBank(fakeMux{}, newTestRuntime())
	if _, ok := bank.GetTemperature(99); ok {
		t.Fatal("expected rejection of out-of-range channel")
	}
}

func TestGetTemperatureRejectsBadResistance(t *testing.T) {
	mux := fakeMux{values: map[int]float64{0: 0, 1: 10001}}
	bank := NewBank(mux, newTestRuntime())
	if _, ok := bank.GetTemperature(0); ok {
		t.Fatal("expected rejection of zero resistance")
	}
	if _, ok := bank.GetTemperature(1); ok {
		t.Fatal("expected rejection of resistance >= 10000")
	}
}

func TestStatsAccumulate(t *testing.T) {
	mux := fakeMux{values: map[int]float64{0: 1000}}
	bank := NewBank(mux, newTestRuntime())
	bank.GetTemperature(0)
	bank.GetTemperature(0)
	_, _, _, count, err := bank.Stats(0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestMaxAcross(t *testing.T) {
	mux := fakeMux{values: map[int]float64{0: 1000, 1: 1500}}
	bank := NewBank(mux, newTestRuntime())
	max, found := bank.MaxAcross([]int{0, 1})
	if !found {
		t.Fatal("expected found")
	}
	t0, _ := bank.GetTemperature(0)
	t1, _ := bank.GetTemperature(1)
	if max != t0 && max != t1 {
		t.Fatalf("max %v should match one of the channel readings", max)
	}
}
