package calib

import (
	"encoding/json"
	"math"
	"os"

	"github.com/matthewgream/battery-pack-sub000/errcode"
	"github.com/matthewgream/battery-pack-sub000/types"
)

const avgSample = 6

// collectState is the pipeline's collection state machine, rewritten from
// the "loop until reference settles" shape into one step per tick (per the
// guidance to express blocking waits as explicit state machines).
type collectState int

const (
	collectWaitBelowThreshold collectState = iota
	collectPollReference
	collectAveraging
	collectDone
)

// ReferenceSource is the external collaborator providing the settling
// reference thermometer reading; out of scope per the purpose statement,
// modeled here as an interface so the pipeline can be driven in tests.
type ReferenceSource interface {
	ReadCelsius() (float64, bool)
}

// ChannelSource reads the raw resistance for a given thermistor channel.
type ChannelSource interface {
	ReadResistance(channel int) (float64, bool)
}

// Pipeline drives reference-thermometer stepped collection and, once
// complete, fits and persists calibration strategies (spec §4.1).
type Pipeline struct {
	tStart, tEnd, tStep float64
	channels            int
	ref                 ReferenceSource
	src                  ChannelSource

	state       collectState
	target      float64
	samples     [][]float64 // [channel] running sum accumulator for current step
	sampleCount int
	table       types.CalibrationTable
}

func NewPipeline(tStart, tEnd, tStep float64, channels int, ref ReferenceSource, src ChannelSource) *Pipeline {
	return &Pipeline{
		tStart: tStart, tEnd: tEnd, tStep: tStep, channels: channels,
		ref: ref, src: src,
		state:  collectWaitBelowThreshold,
		target: tStart,
	}
}

// Step advances collection by at most one poll; callers invoke it once per
// scheduler tick, so the reference is polled at the scheduler's cadence.
func (p *Pipeline) Step() (done bool) {
	switch p.state {
	case collectWaitBelowThreshold:
		v, ok := p.ref.ReadCelsius()
		if ok && v < p.tStart-p.tStep {
			p.state = collectPollReference
		}
		return false

	case collectPollReference:
		v, ok := p.ref.ReadCelsius()
		if !ok {
			return false
		}
		if v > p.target {
			p.state = collectAveraging
			p.samples = make([][]float64, p.channels)
			p.sampleCount = 0
		}
		return false

	case collectAveraging:
		for ch := 0; ch < p.channels; ch++ {
			if v, ok := p.src.ReadResistance(ch); ok {
				p.samples[ch] = append(p.samples[ch], v)
			}
		}
		p.sampleCount++
		if p.sampleCount < avgSample {
			return false
		}
		row := make([]float64, p.channels)
		for ch := 0; ch < p.channels; ch++ {
			row[ch] = mean(p.samples[ch])
		}
		p.table.Temperatures = append(p.table.Temperatures, p.target)
		if p.table.Resistances == nil {
			p.table.Resistances = make([][]float64, p.channels)
		}
		for ch := 0; ch < p.channels; ch++ {
			p.table.Resistances[ch] = append(p.table.Resistances[ch], row[ch])
		}
		p.target += p.tStep
		if p.target > p.tEnd {
			p.state = collectDone
			return true
		}
		p.state = collectPollReference
		return false

	default:
		return true
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Table returns the collected calibration table; valid once Step reports
// done.
func (p *Pipeline) Table() types.CalibrationTable { return p.table }

// FitAndPersist fits every channel (and the pooled default) from the
// collected table and writes the resulting document atomically.
func FitAndPersist(path string, table types.CalibrationTable, fallbackDefault types.CalibrationStrategy) (types.CalibrationDocument, error) {
	doc := types.CalibrationDocument{Sensors: make(map[string]types.CalibrationStrategy), Default: fallbackDefault}
	if len(table.Temperatures) < 4 {
		return doc, errcode.New("calib.fit_and_persist", errcode.IllConditioned, "fewer than 4 samples collected")
	}

	var fitter SteinhartFitter
	for ch, resistances := range table.Resistances {
		coeffs, err := fitter.FitChannel(table.Temperatures, resistances)
		if err != nil {
			continue // skip this channel, keep collecting others
		}
		doc.Sensors[types.SensorKey(ch)] = types.CalibrationStrategy{Kind: types.StrategySteinhart, Steinhart: &coeffs}
	}

	if coeffs, err := fitter.FitPooled(table); err == nil {
		doc.Default = types.CalibrationStrategy{Kind: types.StrategySteinhart, Steinhart: &coeffs}
	}

	if err := persist(path, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func persist(path string, doc types.CalibrationDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return errcode.New("calib.persist", errcode.PersistFailed, err.Error())
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errcode.New("calib.persist", errcode.PersistFailed, err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		return errcode.New("calib.persist", errcode.PersistFailed, err.Error())
	}
	return nil
}

// Load deserializes a calibration document and builds a Runtime; on
// failure the caller falls back to building a Runtime with only a
// statically configured default (spec §4.1 "Load at start").
func Load(path string) (*Runtime, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.New("calib.load", errcode.LoadFailed, err.Error())
	}
	var doc types.CalibrationDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errcode.New("calib.load", errcode.LoadFailed, err.Error())
	}
	rt := NewRuntime(doc.Default)
	for key, strat := range doc.Sensors {
		ch, ok := channelFromKey(key)
		if !ok {
			continue
		}
		rt.Register(ch, strat)
	}
	return rt, nil
}

func channelFromKey(key string) (int, bool) {
	const prefix = "sensor"
	if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for _, r := range key[len(prefix):] {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
