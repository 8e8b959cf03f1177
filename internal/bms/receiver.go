package bms

import "github.com/matthewgream/battery-pack-sub000/types"

type receiverState int

const (
	waitStart receiverState = iota
	readHeader
	readData
)

// Receiver is the byte-at-a-time state machine described in spec §4.6:
// WaitStart -> ReadHeader -> ReadData. Feed accepts one byte at a time and
// is safe to call from a non-blocking read loop; a completed, checksum-
// valid frame is returned only once, on the byte that completes it.
type Receiver struct {
	state    receiverState
	buf      [types.FrameLength]byte
	pos      int
	slaveAddr byte
}

// NewReceiver configures the receiver to drop frames whose address field
// is <= sleepAddr (the slave is asleep and only asserting its own idle
// byte), per spec §4.6. Pass types.AddrSlave as sleepAddr for a host-side
// session listening for real slave responses.
func NewReceiver(sleepAddr byte) *Receiver {
	return &Receiver{slaveAddr: sleepAddr}
}

// Feed consumes one byte and reports a decoded frame if this byte
// completed a valid one. Invalid frames silently restart the state
// machine without emitting anything.
func (r *Receiver) Feed(b byte) (types.BmsFrame, bool) {
	switch r.state {
	case waitStart:
		if b == types.FrameStartByte {
			r.buf[0] = b
			r.pos = 1
			r.state = readHeader
		}
		return types.BmsFrame{}, false

	case readHeader:
		r.buf[r.pos] = b
		r.pos++
		if r.pos < 4 {
			return types.BmsFrame{}, false
		}
		if r.buf[1] <= r.slaveAddr {
			r.reset()
			return types.BmsFrame{}, false
		}
		r.state = readData
		return types.BmsFrame{}, false

	case readData:
		r.buf[r.pos] = b
		r.pos++
		if r.pos < types.FrameLength {
			return types.BmsFrame{}, false
		}
		f, ok := DecodeFrame(r.buf)
		r.reset()
		return f, ok

	default:
		r.reset()
		return types.BmsFrame{}, false
	}
}

func (r *Receiver) reset() {
	r.state = waitStart
	r.pos = 0
}
