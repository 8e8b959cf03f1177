// Package thermal implements ThermistorBank, the ADC-mux sweep over up to
// 16 channels that converts raw resistance readings into calibrated
// temperatures and tracks per-channel min/max/avg statistics for
// diagnostics (spec §4.3). Grounded on jangala-dev-devicecode-go's
// pattern of small driver-facing interfaces (Pin, ADC) kept local to the
// package rather than imported from a hardware-abstraction dependency.
package thermal

import (
	"math"

	"github.com/matthewgream/battery-pack-sub000/errcode"
	"github.com/matthewgream/battery-pack-sub000/internal/calib"
)

const (
	maxChannels   = 16
	resistanceMin = 0
	resistanceMax = 10000
	tempMinC      = -100
	tempMaxC      = 150
)

// MuxReader is the external ADC-mux collaborator: drive the four address
// pins, settle, and return the raw resistance reading.
type MuxReader interface {
	ReadResistance(channel int) (ohms float64, ok bool)
}

type channelStats struct {
	min, max, sum float64
	count         uint64
	has           bool
}

func (s *channelStats) observe(v float64) {
	if !s.has {
		s.min, s.max = v, v
		s.has = true
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

// Bank converts raw channel readings to calibrated temperatures through a
// CalibrationRuntime, tracking per-channel statistics as it goes.
type Bank struct {
	mux   MuxReader
	rt    *calib.Runtime
	stats [maxChannels]channelStats
}

func NewBank(mux MuxReader, rt *calib.Runtime) *Bank {
	return &Bank{mux: mux, rt: rt}
}

// SetRuntime swaps in a newly fitted calibration runtime, letting a
// completed calibration pipeline take effect without restarting the
// controller (spec §4.1, the pipeline persists and this is how a running
// bank picks the result up).
func (b *Bank) SetRuntime(rt *calib.Runtime) {
	b.rt = rt
}

// GetTemperature reads and converts one channel. ok is false whenever the
// raw resistance or the converted temperature falls outside the valid
// ranges in spec §4.3; there is no third state.
func (b *Bank) GetTemperature(channel int) (float64, bool) {
	if channel < 0 || channel >= maxChannels {
		return 0, false
	}
	ohms, ok := b.mux.ReadResistance(channel)
	if !ok || ohms <= resistanceMin || ohms >= resistanceMax {
		return 0, false
	}
	t := b.rt.CalculateTemperature(channel, ohms)
	if math.IsNaN(t) || t < tempMinC || t > tempMaxC {
		return 0, false
	}
	b.stats[channel].observe(t)
	return t, true
}

// Stats returns the (min, max, avg, count) statistics accumulated for a
// channel since start, for diagnostics reporting.
func (b *Bank) Stats(channel int) (min, max, avg float64, count uint64, err error) {
	if channel < 0 || channel >= maxChannels {
		return 0, 0, 0, 0, errcode.New("thermal.stats", errcode.ChannelOutOfRange, "channel out of [0,16)")
	}
	s := &b.stats[channel]
	if !s.has {
		return 0, 0, 0, 0, nil
	}
	return s.min, s.max, s.sum / float64(s.count), s.count, nil
}

// MaxAcross returns the maximum currently-valid temperature across a set
// of channels, used by the fan loop's "current = max(batterypack
// temperatures)" (spec §4.5).
func (b *Bank) MaxAcross(channels []int) (float64, bool) {
	max := math.Inf(-1)
	found := false
	for _, ch := range channels {
		if t, ok := b.GetTemperature(ch); ok {
			found = true
			if t > max {
				max = t
			}
		}
	}
	return max, found
}

// MinAcross returns the minimum currently-valid temperature across a set
// of channels, used by the TEMP_FAIL/TEMP_MIN alarm predicates (spec
// §4.8), which evaluate the coldest reading rather than the hottest.
func (b *Bank) MinAcross(channels []int) (float64, bool) {
	min := math.Inf(1)
	found := false
	for _, ch := range channels {
		if t, ok := b.GetTemperature(ch); ok {
			found = true
			if t < min {
				min = t
			}
		}
	}
	return min, found
}
