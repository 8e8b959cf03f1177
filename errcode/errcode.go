// Package errcode defines a stable, bus-facing error identifier used across
// the controller's components, so that subsystem failures surface as
// comparable codes rather than opaque error strings. Grounded on
// jangala-dev-devicecode-go/errcode, with the code table replaced by the
// controller's own failure taxonomy (spec §7).
package errcode

// Code is a stable, comparable, allocation-free error identifier.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes. These are the "structural" and "transient" failures named
// in spec §7's taxonomy; alarm-raising budgeted-transient failures are
// tracked by counters in the owning component, not by a distinct code here.
const (
	OK Code = "ok"

	// Calibration pipeline / runtime.
	IllConditioned  Code = "ill_conditioned"
	FitOutOfBounds  Code = "fit_out_of_bounds"
	NoStrategyFound Code = "no_strategy_found"
	PersistFailed   Code = "persist_failed"
	LoadFailed      Code = "load_failed"

	// Thermistor bank.
	ChannelOutOfRange Code = "channel_out_of_range"
	ResistanceInvalid Code = "resistance_invalid"
	TemperatureBad    Code = "temperature_bad"

	// BMS codec / session.
	FrameInvalid     Code = "frame_invalid"
	FrameOutOfOrder  Code = "frame_out_of_order"
	ChecksumMismatch Code = "checksum_mismatch"
	ResponseTimeout  Code = "response_timeout"

	// Peers / transport.
	NoPeersAvailable Code = "no_peers_available"
	DeliverFailed    Code = "deliver_failed"
	PublishFailed    Code = "publish_failed"
	StoreFailed      Code = "store_failed"

	// Time keeper.
	FetchFailed Code = "fetch_failed"
	BadDateHdr  Code = "bad_date_header"

	// Generic fallback.
	Error Code = "error"
)

// E wraps a Code with an operation name and an optional cause, for the
// human-readable "last-detail string" that spec §7 says components expose.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + string(e.C) + ": " + e.Msg
	}
	return e.Op + ": " + string(e.C)
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

func New(op string, c Code, msg string) *E { return &E{C: c, Op: op, Msg: msg} }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
