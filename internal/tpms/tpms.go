// Package tpms implements TpmsScanner, the BLE advertisement decoder for
// the two known tyre-pressure beacon addresses (front, rear), per spec
// §2 row 11 and the TPMS glossary entry. Grounded on
// original_source/arduino/Battery_Monitor/src/ProgramManageBluetoothTPMS.hpp:
// a scan-result callback looks up the reporting device by address, updates
// an activation counter, and decodes its manufacturer data; the scan
// itself restarts from an "end of scan" callback that only sets a flag for
// the main loop to observe, which this package models as the asynchronous
// hand-off spec §5 requires (enqueue in the callback, drain on Process).
package tpms

import (
	"encoding/binary"
	"sync"

	"github.com/matthewgream/battery-pack-sub000/internal/timing"
)

// Advertisement is the raw scan-result payload handed off from the BLE
// callback: address plus manufacturer-specific data bytes.
type Advertisement struct {
	Address string
	Data    []byte
	RSSI    int
	Name    string
}

// Reading is one decoded tyre-pressure/temperature/battery sample.
type Reading struct {
	PressureKPa     float64
	TemperatureC    float64
	BatteryPct      float64
	Alarms          []string
	RSSI            int
	Name            string
}

// DecodeReading extracts a Reading from manufacturer data laid out as
// u16 pressure (kPa x10), i8 temperature, u8 battery percent, u8 alarm
// bitmask (bit0=low pressure, bit1=high pressure, bit2=low battery).
func DecodeReading(adv Advertisement) (Reading, bool) {
	if len(adv.Data) < 5 {
		return Reading{}, false
	}
	pressure := float64(binary.BigEndian.Uint16(adv.Data[0:2])) / 10
	temp := float64(int8(adv.Data[2]))
	battery := float64(adv.Data[3])
	alarmBits := adv.Data[4]

	var alarms []string
	if alarmBits&0x01 != 0 {
		alarms = append(alarms, "low_pressure")
	}
	if alarmBits&0x02 != 0 {
		alarms = append(alarms, "high_pressure")
	}
	if alarmBits&0x04 != 0 {
		alarms = append(alarms, "low_battery")
	}

	return Reading{
		PressureKPa:  pressure,
		TemperatureC: temp,
		BatteryPct:   battery,
		Alarms:       alarms,
		RSSI:         adv.RSSI,
		Name:         adv.Name,
	}, true
}

// Tyre pairs a decoded reading with the activation tracker counting how
// many scan results have updated it.
type Tyre struct {
	Updated timing.Tracker[bool]
	Reading Reading
	count   uint64
}

// Scanner owns the front/rear tyre state and a lock-guarded queue that the
// asynchronous BLE scan-result callback enqueues into; Process drains it
// on the next tick, per spec §5's drain-later queue requirement.
type Scanner struct {
	frontAddr, rearAddr string

	mu      sync.Mutex
	pending []Advertisement

	front, rear Tyre
}

func NewScanner(frontAddr, rearAddr string) *Scanner {
	return &Scanner{frontAddr: frontAddr, rearAddr: rearAddr}
}

// OnResult is the asynchronous scan-result callback: enqueue only, no
// decoding, per spec §5's "no application logic runs in the callback
// beyond enqueue and counter updates".
func (s *Scanner) OnResult(adv Advertisement) {
	if adv.Address != s.frontAddr && adv.Address != s.rearAddr {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, adv)
	s.mu.Unlock()
}

// Process drains the queue built up since the previous tick, decoding and
// applying each advertisement to its tyre.
func (s *Scanner) Process() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, adv := range batch {
		reading, ok := DecodeReading(adv)
		if !ok {
			continue
		}
		tyre := s.tyreFor(adv.Address)
		if tyre == nil {
			continue
		}
		tyre.Reading = reading
		tyre.count++
		tyre.Updated.Update(true)
	}
}

func (s *Scanner) tyreFor(address string) *Tyre {
	switch address {
	case s.frontAddr:
		return &s.front
	case s.rearAddr:
		return &s.rear
	default:
		return nil
	}
}

// Front and Rear expose the last decoded reading and activation count for
// diagnostics and telemetry.
func (s *Scanner) Front() (Reading, uint64) { return s.front.Reading, s.front.count }
func (s *Scanner) Rear() (Reading, uint64)  { return s.rear.Reading, s.rear.count }
