package bms

import (
	"github.com/matthewgream/battery-pack-sub000/bus"
	"github.com/matthewgream/battery-pack-sub000/types"
)

// ResponseObject tracks assembly progress for a single command's response,
// which may span multiple frames (spec §4.6 dispatch).
type ResponseObject struct {
	Cmd       byte
	Expected  int
	got       int
	Valid     bool
	Frames    []types.BmsFrame
	abortOnMismatch bool
}

// NewResponseObject creates a tracker expecting `expected` frames for cmd.
// abortOnMismatch selects the tightened (true) or loose (false) behavior
// for out-of-order sequence bytes (spec §9 open question).
func NewResponseObject(cmd byte, expected int, abortOnMismatch bool) *ResponseObject {
	return &ResponseObject{Cmd: cmd, Expected: expected, abortOnMismatch: abortOnMismatch}
}

// Reset clears assembly progress ahead of a fresh request for the same
// command.
func (r *ResponseObject) Reset() {
	r.got = 0
	r.Valid = false
	r.Frames = r.Frames[:0]
}

// Feed hands one frame of this command's response to the tracker. For
// multi-frame responses the frame's first data byte must carry the
// sequence number got+1; a mismatch aborts (tightened behavior) or is
// ignored without discarding progress (loose behavior), per the open
// question this was distilled from.
func (r *ResponseObject) Feed(f types.BmsFrame) {
	if r.Expected > 1 {
		seq := int(SequenceByte(f))
		if seq != r.got+1 {
			if r.abortOnMismatch {
				r.Reset()
			}
			return
		}
	}
	r.Frames = append(r.Frames, f)
	r.got++
	if r.got == r.Expected {
		r.Valid = true
	}
}

// Session owns the receiver, dispatch table and bus fan-out for one
// half-duplex BMS line (spec §4.6). listenerTopic carries every accepted
// frame (for logging); handlerTopic carries only completed, valid
// responses.
type Session struct {
	recv      *Receiver
	responses map[byte]*ResponseObject
	conn      *bus.Connection
	listenerTopic bus.Topic
	handlerTopic  bus.Topic
}

func NewSession(slaveAddr byte, conn *bus.Connection, listenerTopic, handlerTopic bus.Topic) *Session {
	return &Session{
		recv:          NewReceiver(slaveAddr),
		responses:     make(map[byte]*ResponseObject),
		conn:          conn,
		listenerTopic: listenerTopic,
		handlerTopic:  handlerTopic,
	}
}

// Register binds a command byte to its expected frame count and sequence-
// mismatch policy.
func (s *Session) Register(cmd byte, expected int, abortOnMismatch bool) {
	s.responses[cmd] = NewResponseObject(cmd, expected, abortOnMismatch)
}

// Lookup returns the response tracker for a command, if registered.
func (s *Session) Lookup(cmd byte) (*ResponseObject, bool) {
	r, ok := s.responses[cmd]
	return r, ok
}

// FeedByte advances the wire-level receiver by one byte; a completed valid
// frame is dispatched to the matching ResponseObject and published to the
// listener topic. Once that response's final frame parses cleanly, it is
// published once to the handler topic.
func (s *Session) FeedByte(b byte) {
	f, ok := s.recv.Feed(b)
	if !ok {
		return
	}
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(s.listenerTopic, f, false))
	}
	resp, known := s.responses[f.Cmd]
	if !known {
		return
	}
	wasValid := resp.Valid
	resp.Feed(f)
	if resp.Valid && !wasValid && s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(s.handlerTopic, resp, false))
	}
}

// RequestFrame resets the tracker for cmd (a fresh request supersedes any
// in-progress assembly) and returns the wire bytes to transmit.
func (s *Session) RequestFrame(cmd byte, data [8]byte) [types.FrameLength]byte {
	if resp, ok := s.responses[cmd]; ok {
		resp.Reset()
	}
	return EncodeFrame(types.BmsFrame{Addr: types.AddrHost, Cmd: cmd, Data: data})
}
