package types

// Command bytes recognized by the BMS codec (spec §4.6).
const (
	CmdBmsReset           byte = 0x00
	CmdPackStatus         byte = 0x90
	CmdCellVoltMinMax     byte = 0x91
	CmdCellTempMinMax     byte = 0x92
	CmdMosfet             byte = 0x93
	CmdPackInfo           byte = 0x94
	CmdCellVoltages       byte = 0x95
	CmdCellTemperatures   byte = 0x96
	CmdCellBalances       byte = 0x97
	CmdFailureStatus      byte = 0x98
	CmdBatteryStat        byte = 0x52 // XXX TBC, keep literal
	CmdBatteryInfo        byte = 0x53 // XXX TBC, keep literal
	CmdBmsRTC             byte = 0x61 // XXX TBC, two opaque u32s
	CmdMosfetDischarge    byte = 0xD9
	CmdMosfetCharge       byte = 0xDA
)

const (
	FrameStartByte   byte = 0xA5
	FrameDataLen     byte = 0x08
	FrameLength           = 13
	AddrHost         byte = 0x40 // host -> slave
	AddrSlave        byte = 0x01 // slave -> host
)

// BmsFrame is the fixed 13-byte on-wire record:
// [0xA5, addr, cmd, 0x08, d0..d7, checksum].
type BmsFrame struct {
	Addr byte
	Cmd  byte
	Data [8]byte
}

// Checksum is the sum of bytes 0..11 mod 256 (start, addr, cmd, len, 8 data
// bytes), matching spec §4.6's definition bit-exactly.
func (f BmsFrame) Checksum() byte {
	sum := FrameStartByte + f.Addr + f.Cmd + FrameDataLen
	for _, b := range f.Data {
		sum += b
	}
	return sum
}

// Encode renders the frame as its 13-byte wire form.
func (f BmsFrame) Encode() [FrameLength]byte {
	var out [FrameLength]byte
	out[0] = FrameStartByte
	out[1] = f.Addr
	out[2] = f.Cmd
	out[3] = FrameDataLen
	copy(out[4:12], f.Data[:])
	out[12] = f.Checksum()
	return out
}

// PackStatus is the decoded 0x90 PACK_STATUS response.
type PackStatus struct {
	VoltageV float64
	CurrentA float64
	SOCPct   float64
}

// CellVoltMinMax is the decoded 0x91 CELL_VOLT_MINMAX response.
type CellVoltMinMax struct {
	MaxVoltageV float64
	MaxCell     uint8
	MinVoltageV float64
	MinCell     uint8
}

// CellTempMinMax is the decoded 0x92 CELL_TEMP_MINMAX response.
type CellTempMinMax struct {
	MaxTempC int8
	MaxCell  uint8
	MinTempC int8
	MinCell  uint8
}

// Mosfet is the decoded 0x93 MOSFET response.
type Mosfet struct {
	State       uint8 // 0, 1, 2
	ChargeOn    bool
	DischargeOn bool
	Life        uint8
	ResidualAh  float64
}

// PackInfo is the decoded 0x94 PACK_INFO response.
type PackInfo struct {
	Cells      uint8
	Sensors    uint8
	ChargerOn  bool
	LoadOn     bool
	DIO        [8]bool
	Cycles     uint16
}

// CellVoltages is the decoded 0x95 CELL_VOLTAGES multi-frame response.
type CellVoltages struct {
	VoltagesV []float64 // length == cells
}

// CellTemperatures is the decoded 0x96 CELL_TEMPERATURES multi-frame response.
type CellTemperatures struct {
	TempsC []int8 // length == sensors
}

// CellBalances is the decoded 0x97 CELL_BALANCES response, one bit per cell.
type CellBalances struct {
	Balancing [48]bool
}

// FailureStatus is the decoded 0x98 FAILURE_STATUS response, 56 fault bits.
type FailureStatus struct {
	Bits [56]bool
}

// BmsRTC is the opaque, un-decoded 0x61 BMS_RTC response. The vendor layout
// is unconfirmed; the two words are carried verbatim rather than split into
// a synthesized date.
type BmsRTC struct {
	Word0 uint32
	Word1 uint32
}
