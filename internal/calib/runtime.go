package calib

import (
	"math"
	"sort"

	"github.com/matthewgream/battery-pack-sub000/types"
)

// Runtime dispatches resistance -> temperature conversion per channel,
// trying each registered strategy in registration order before falling
// back to the default (spec §4.2).
type Runtime struct {
	perChannel map[int][]types.CalibrationStrategy
	def        types.CalibrationStrategy
}

func NewRuntime(def types.CalibrationStrategy) *Runtime {
	return &Runtime{perChannel: make(map[int][]types.CalibrationStrategy), def: def}
}

// Register adds a strategy for a channel, in the order it should be tried.
func (r *Runtime) Register(channel int, s types.CalibrationStrategy) {
	r.perChannel[channel] = append(r.perChannel[channel], s)
}

// CalculateTemperature returns the converted temperature or math.NaN() if
// no registered strategy (nor the default) produces a value within
// [-100, 150] °C for a positive resistance.
func (r *Runtime) CalculateTemperature(channel int, resistanceOhm float64) float64 {
	if resistanceOhm <= 0 {
		return math.NaN()
	}
	for _, s := range r.perChannel[channel] {
		if t, ok := evaluate(s, resistanceOhm); ok {
			return t
		}
	}
	if t, ok := evaluate(r.def, resistanceOhm); ok {
		return t
	}
	return math.NaN()
}

func evaluate(s types.CalibrationStrategy, resistanceOhm float64) (float64, bool) {
	var t float64
	switch s.Kind {
	case types.StrategySteinhart:
		if s.Steinhart == nil {
			return 0, false
		}
		t = forward(*s.Steinhart, resistanceOhm)
	case types.StrategyLookup:
		if s.Lookup == nil {
			return 0, false
		}
		var ok bool
		t, ok = interpolateLookup(*s.Lookup, resistanceOhm)
		if !ok {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(t) || t < -100 || t > 150 {
		return 0, false
	}
	return t, true
}

// interpolateLookup linearly interpolates temperature for a resistance
// value against a table monotone by resistance (ascending or descending).
func interpolateLookup(tbl types.LookupTable, resistanceOhm float64) (float64, bool) {
	n := len(tbl.Resistances)
	if n == 0 || n != len(tbl.Temperatures) {
		return 0, false
	}
	var idx int
	if n > 1 && tbl.Resistances[0] > tbl.Resistances[n-1] {
		// descending table: first index whose resistance is at or below the input
		idx = sort.Search(n, func(i int) bool { return tbl.Resistances[i] <= resistanceOhm })
	} else {
		idx = sort.SearchFloat64s(tbl.Resistances, resistanceOhm)
	}
	if idx == 0 {
		if resistanceOhm == tbl.Resistances[0] {
			return tbl.Temperatures[0], true
		}
		return 0, false
	}
	if idx >= n {
		return 0, false
	}
	r0, r1 := tbl.Resistances[idx-1], tbl.Resistances[idx]
	t0, t1 := tbl.Temperatures[idx-1], tbl.Temperatures[idx]
	if r1 == r0 {
		return t0, true
	}
	frac := (resistanceOhm - r0) / (r1 - r0)
	return t0 + frac*(t1-t0), true
}
