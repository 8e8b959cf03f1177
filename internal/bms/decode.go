package bms

import (
	"encoding/binary"

	"github.com/matthewgream/battery-pack-sub000/internal/mathx"
	"github.com/matthewgream/battery-pack-sub000/types"
)

func be16(d [8]byte, off int) uint16 { return binary.BigEndian.Uint16(d[off : off+2]) }
func be32(d [8]byte, off int) uint32 { return binary.BigEndian.Uint32(d[off : off+4]) }

// DecodePackStatus decodes 0x90 PACK_STATUS. The current field sits at data
// offset 2, matching the worked voltage/current/SOC example rather than
// the nominal offset 4.
func DecodePackStatus(f types.BmsFrame) types.PackStatus {
	voltage := float64(be16(f.Data, 0)) / 10
	current := (float64(be16(f.Data, 2)) - 30000) / 10
	soc := float64(be16(f.Data, 6)) / 10
	return types.PackStatus{VoltageV: voltage, CurrentA: current, SOCPct: soc}
}

// DecodeCellVoltMinMax decodes 0x91 CELL_VOLT_MINMAX.
func DecodeCellVoltMinMax(f types.BmsFrame) types.CellVoltMinMax {
	return types.CellVoltMinMax{
		MaxVoltageV: float64(be16(f.Data, 0)) / 1000,
		MaxCell:     f.Data[2],
		MinVoltageV: float64(be16(f.Data, 3)) / 1000,
		MinCell:     f.Data[5],
	}
}

// DecodeCellTempMinMax decodes 0x92 CELL_TEMP_MINMAX.
func DecodeCellTempMinMax(f types.BmsFrame) types.CellTempMinMax {
	return types.CellTempMinMax{
		MaxTempC: int8(f.Data[0]) - 40,
		MaxCell:  f.Data[1],
		MinTempC: int8(f.Data[2]) - 40,
		MinCell:  f.Data[3],
	}
}

// DecodeMosfet decodes 0x93 MOSFET.
func DecodeMosfet(f types.BmsFrame) types.Mosfet {
	return types.Mosfet{
		State:       f.Data[0],
		ChargeOn:    f.Data[1] != 0,
		DischargeOn: f.Data[2] != 0,
		Life:        f.Data[3],
		ResidualAh:  float64(be32(f.Data, 4)) / 1000,
	}
}

// DecodePackInfo decodes 0x94 PACK_INFO.
func DecodePackInfo(f types.BmsFrame) types.PackInfo {
	var dio [8]bool
	for i := 0; i < 8; i++ {
		dio[i] = f.Data[4]&(1<<uint(i)) != 0
	}
	return types.PackInfo{
		Cells:     f.Data[0],
		Sensors:   f.Data[1],
		ChargerOn: f.Data[2] != 0,
		LoadOn:    f.Data[3] != 0,
		DIO:       dio,
		Cycles:    be16(f.Data, 5),
	}
}

// DecodeCellBalances decodes 0x97 CELL_BALANCES, 48 bits across one frame.
func DecodeCellBalances(f types.BmsFrame) types.CellBalances {
	var out types.CellBalances
	for i := 0; i < 48; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx < len(f.Data) {
			out.Balancing[i] = f.Data[byteIdx]&(1<<bitIdx) != 0
		}
	}
	return out
}

// DecodeBmsRTC decodes 0x61 BMS_RTC as two opaque u32s. The vendor layout
// is unconfirmed; this is carried verbatim rather than synthesized into a
// date, per the open question it was distilled from.
func DecodeBmsRTC(f types.BmsFrame) types.BmsRTC {
	return types.BmsRTC{Word0: be32(f.Data, 0), Word1: be32(f.Data, 4)}
}

// ExpectedVoltageFrames returns the number of CELL_VOLTAGES frames expected
// for a pack with the given cell count (3 cells per frame).
func ExpectedVoltageFrames(cells int) int { return mathx.CeilDiv(cells, 3) }

// ExpectedTemperatureFrames returns the number of CELL_TEMPERATURES frames
// expected for a pack with the given sensor count (7 temps per frame).
func ExpectedTemperatureFrames(sensors int) int { return mathx.CeilDiv(sensors, 7) }

// DecodeCellVoltagesFrame extracts up to 3 cell voltages from one
// CELL_VOLTAGES frame (voltage x1000, 2 bytes each).
func DecodeCellVoltagesFrame(f types.BmsFrame, remaining int) []float64 {
	n := remaining
	if n > 3 {
		n = 3
	}
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		off := 1 + i*2 // data[0] is the sequence byte
		out = append(out, float64(be16(f.Data, off))/1000)
	}
	return out
}

// DecodeCellTemperaturesFrame extracts up to 7 cell temperatures from one
// CELL_TEMPERATURES frame (1 byte each, raw-40).
func DecodeCellTemperaturesFrame(f types.BmsFrame, remaining int) []int8 {
	n := remaining
	if n > 7 {
		n = 7
	}
	out := make([]int8, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, int8(f.Data[1+i])-40)
	}
	return out
}

// SequenceByte returns the sequence number carried in data byte 0 of a
// multi-frame response fragment.
func SequenceByte(f types.BmsFrame) byte { return f.Data[0] }
