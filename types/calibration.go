// Package types holds the wire- and persistence-shaped data structures
// shared across the controller's components: calibration strategies and
// tables, telemetry payload envelopes and alarm kinds. Grounded on
// jangala-dev-devicecode-go/types, which keeps exactly this kind of
// small, JSON-tagged, dependency-free struct set separate from the
// components that use them.
package types

import "strconv"

// StrategyKind tags which variant a CalibrationStrategy holds.
type StrategyKind string

const (
	StrategyLookup    StrategyKind = "lookup"
	StrategySteinhart StrategyKind = "steinhart"
)

// SteinhartCoeffs are the four Steinhart-Hart coefficients:
// T = 1/(A + B*lnR + C*lnR^2 + D*lnR^3) - 273.15.
type SteinhartCoeffs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

// LookupTable is a monotone-by-resistance set of reference pairs;
// temperatures are interpolated linearly between adjacent resistances.
type LookupTable struct {
	Temperatures []float64 `json:"t"`
	Resistances  []float64 `json:"r"`
}

// CalibrationStrategy is the persisted, tagged-variant form of a per-channel
// (or default) calibration strategy (spec §3 "Calibration strategy").
type CalibrationStrategy struct {
	Kind      StrategyKind     `json:"kind"`
	Steinhart *SteinhartCoeffs `json:"steinhart,omitempty"`
	Lookup    *LookupTable     `json:"lookup,omitempty"`
}

// CalibrationDocument is the on-disk JSON shape written by the calibration
// pipeline: sensor0..sensorN plus a default, per spec §4.1/§6.
type CalibrationDocument struct {
	Sensors map[string]CalibrationStrategy `json:"sensors"`
	Default CalibrationStrategy            `json:"default"`
}

// CalibrationTable is the raw collected reference data, owned transiently by
// the calibration pipeline and discarded after fitting (spec §3).
type CalibrationTable struct {
	Temperatures []float64   // monotone non-decreasing, length N
	Resistances  [][]float64 // [sensor][N], each row length == len(Temperatures)
}

// SensorKey formats a channel index as the persistence key ("sensor0", ...).
func SensorKey(channel int) string {
	return "sensor" + strconv.Itoa(channel)
}
