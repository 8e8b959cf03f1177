package bms

import (
	"testing"

	"github.com/matthewgream/battery-pack-sub000/types"
)

func feedAll(r *Receiver, buf [types.FrameLength]byte) (types.BmsFrame, bool) {
	var f types.BmsFrame
	var ok bool
	for _, b := range buf {
		f, ok = r.Feed(b)
	}
	return f, ok
}

func TestReceiverDropsSleepingAddr(t *testing.T) {
	r := NewReceiver(types.AddrSlave)
	f := types.BmsFrame{Addr: types.AddrSlave, Cmd: types.CmdPackStatus}
	_, ok := feedAll(r, EncodeFrame(f))
	if ok {
		t.Fatal("expected frame from sleeping address to be dropped")
	}
}

func TestReceiverAcceptsHostFrame(t *testing.T) {
	r := NewReceiver(types.AddrSlave)
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus, Data: [8]byte{0, 100, 0x75, 0x30, 0, 0, 3, 0xE8}}
	got, ok := feedAll(r, EncodeFrame(f))
	if !ok {
		t.Fatal("expected host-addressed frame to be accepted")
	}
	if got.Cmd != types.CmdPackStatus {
		t.Fatalf("unexpected cmd: %x", got.Cmd)
	}
	ps := DecodePackStatus(got)
	if ps.VoltageV != 10.0 || ps.CurrentA != 0.0 || ps.SOCPct != 100.0 {
		t.Fatalf("unexpected decode: %+v", ps)
	}
}

func TestReceiverRestartsOnGarbage(t *testing.T) {
	r := NewReceiver(types.AddrSlave)
	r.Feed(0x00) // garbage before start byte
	r.Feed(0x01)
	f := types.BmsFrame{Addr: types.AddrHost, Cmd: types.CmdPackStatus}
	_, ok := feedAll(r, EncodeFrame(f))
	if !ok {
		t.Fatal("expected receiver to resync after garbage bytes")
	}
}
