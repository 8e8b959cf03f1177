package bms

import (
	"testing"

	"github.com/matthewgream/battery-pack-sub000/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus, Data: [8]byte{0, 100, 0x75, 0x30, 0, 0, 3, 0xE8}}
	buf := EncodeFrame(f)
	got, ok := DecodeFrame(buf)
	if !ok {
		t.Fatal("expected decode to succeed for a freshly encoded frame")
	}
	if got != f {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, f)
	}
}

func TestDecodeFrameRejectsBadChecksum(t *testing.T) {
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus}
	buf := EncodeFrame(f)
	buf[12] ^= 0xFF
	if _, ok := DecodeFrame(buf); ok {
		t.Fatal("expected checksum mismatch to be rejected")
	}
}

func TestDecodeFrameRejectsBadStart(t *testing.T) {
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus}
	buf := EncodeFrame(f)
	buf[0] = 0x00
	if _, ok := DecodeFrame(buf); ok {
		t.Fatal("expected bad start byte to be rejected")
	}
}

func TestChecksumFormula(t *testing.T) {
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus, Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	var sum int
	buf := EncodeFrame(f)
	for _, b := range buf[:12] {
		sum += int(b)
	}
	if byte(sum%256) != f.Checksum() {
		t.Fatalf("checksum formula mismatch")
	}
}
