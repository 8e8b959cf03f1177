// Package bms implements the BMS wire protocol: frame encode/decode with
// checksum validation (BmsCodec), and request/response dispatch with
// multi-frame reassembly over a shared half-duplex line (BmsSession),
// per spec §4.6. Grounded on jangala-dev-devicecode-go/uartio's receiver
// state-machine shape (WaitStart -> ReadHeader -> ReadData) and its
// non-blocking, single-step-per-call philosophy.
package bms

import "github.com/matthewgream/battery-pack-sub000/types"

// DecodeFrame validates and extracts a BmsFrame from a 13-byte buffer. It
// returns ok=false (without partial results) if the start byte, declared
// data length or checksum do not match.
func DecodeFrame(buf [types.FrameLength]byte) (types.BmsFrame, bool) {
	if buf[0] != types.FrameStartByte || buf[3] != types.FrameDataLen {
		return types.BmsFrame{}, false
	}
	f := types.BmsFrame{Addr: buf[1], Cmd: buf[2]}
	copy(f.Data[:], buf[4:12])
	if f.Checksum() != buf[12] {
		return types.BmsFrame{}, false
	}
	return f, true
}

// EncodeFrame is the inverse of DecodeFrame.
func EncodeFrame(f types.BmsFrame) [types.FrameLength]byte {
	return f.Encode()
}
