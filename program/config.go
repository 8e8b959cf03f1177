// Config assembles every component package into one ProgramLoop, the way
// jangala-dev-devicecode-go's root main.go wires hal against a single bus
// and a flat set of topics. Hardware-facing collaborators (mux reader, fan
// motors, serial ports, radio transports, watchdog pin) are accepted as
// interfaces so platform bindings stay outside this package.
package program

import (
	"bufio"
	"io"
	"time"

	"github.com/matthewgream/battery-pack-sub000/bus"
	"github.com/matthewgream/battery-pack-sub000/internal/alarms"
	"github.com/matthewgream/battery-pack-sub000/internal/bms"
	"github.com/matthewgream/battery-pack-sub000/internal/calib"
	"github.com/matthewgream/battery-pack-sub000/internal/diag"
	"github.com/matthewgream/battery-pack-sub000/internal/fans"
	"github.com/matthewgream/battery-pack-sub000/internal/fmtx"
	"github.com/matthewgream/battery-pack-sub000/internal/kv"
	"github.com/matthewgream/battery-pack-sub000/internal/peers"
	"github.com/matthewgream/battery-pack-sub000/internal/telemetry"
	"github.com/matthewgream/battery-pack-sub000/internal/thermal"
	"github.com/matthewgream/battery-pack-sub000/internal/timekeeper"
	"github.com/matthewgream/battery-pack-sub000/internal/tpms"
	"github.com/matthewgream/battery-pack-sub000/internal/transport"
	"github.com/matthewgream/battery-pack-sub000/internal/updater"
	"github.com/matthewgream/battery-pack-sub000/types"
)

// Hardware collects every platform-specific collaborator. Mux is required.
// Any other field left nil disables the subsystem that depends on it (e.g.
// a board without a rear BMS line leaves RearBmsPort nil).
type Hardware struct {
	Mux            thermal.MuxReader
	FanMotors      []fans.Motor
	FrontBmsPort   io.Reader
	RearBmsPort    io.Reader
	WatchdogPin    diag.WatchdogPin
	BLETransport   transport.Transport
	WSTransport    transport.Transport
	MQTTTransport  transport.Transport
	TimeFetcher    timekeeper.Fetcher
	Manifest       updater.ManifestFetcher
	CalibReference calib.ReferenceSource
}

// Config is every tunable the original firmware hard-coded as a constant
// (spec §6 "Defaults"). Build replaces zero periods, a zero store cap and
// unset calibration sweep settings with defaults; the other fields are used
// as given.
type Config struct {
	Hardware Hardware

	DeviceAddr string
	KVRoot     string
	StorePath  string
	CalibPath  string

	TickPeriod      time.Duration
	DeliverPeriod   time.Duration
	CapturePeriod   time.Duration
	DiagnosePeriod  time.Duration
	UpdatePeriod    time.Duration
	WatchdogTimeout time.Duration
	StoreCapBytes   int64

	FanKp, FanKi, FanKd, FanAlpha, FanSetpoint float64

	UpdateChannel  string
	CurrentVersion string

	PeerOrder   []string
	PeerRetries int

	// Calibration collection sweep (spec §4.1); only runs when
	// Hardware.CalibReference is set. CalibChannels defaults to the
	// channels the thermal bank reports over (coreChannels).
	CalibTStart, CalibTEnd, CalibTStep float64
	CalibChannels                      int
	CalibDefault                       types.CalibrationStrategy
}

func withDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// SessionHandle binds a BMS wire session to the serial reader that feeds
// it; Begin starts the reader goroutine, so the goroutine count matches
// the number of half-duplex lines actually wired (spec §4.6's "one
// session per line").
type SessionHandle struct {
	Session *bms.Session
	Port    io.Reader
}

// Process is a no-op: frames arrive on the reader goroutine started by
// Begin, not on the scheduler tick. SessionHandle still registers as a
// Component so Begin runs as part of the fixed startup order.
func (h *SessionHandle) Process(now time.Time) {}

func (h *SessionHandle) Begin() error {
	if h.Port == nil {
		return nil
	}
	r := bufio.NewReaderSize(h.Port, 64)
	go func() {
		var b [1]byte
		for {
			if _, err := io.ReadFull(r, b[:]); err != nil {
				fmtx.Logf("bms: session reader stopped: %v", err)
				return
			}
			h.Session.FeedByte(b[0])
		}
	}()
	return nil
}

// Calibrator drives the reference-thermometer collection sweep to
// completion, one pipeline step per scheduler tick, then fits and
// persists the result and hot-swaps it into the live thermal bank (spec
// §4.1, §2 row 5). It registers as a Component so collection runs
// alongside every other subsystem rather than blocking startup.
type Calibrator struct {
	pipeline        *calib.Pipeline
	path            string
	fallbackDefault types.CalibrationStrategy
	bank            *thermal.Bank
	done            bool
}

func (c *Calibrator) Begin() error { return nil }

func (c *Calibrator) Process(now time.Time) {
	if c.done {
		return
	}
	if !c.pipeline.Step() {
		return
	}
	c.done = true
	if _, err := calib.FitAndPersist(c.path, c.pipeline.Table(), c.fallbackDefault); err != nil {
		fmtx.Logf("calibration: fit/persist failed: %v", err)
		return
	}
	rt, err := calib.Load(c.path)
	if err != nil {
		fmtx.Logf("calibration: reload after fit failed: %v", err)
		return
	}
	c.bank.SetRuntime(rt)
	fmtx.Logf("calibration: collection complete, fitted document loaded")
}

// Done reports whether the collection sweep has finished (and, if so,
// fitted and persisted a document).
func (c *Calibrator) Done() bool { return c.done }

// Built bundles the assembled components a caller may want to reach past
// the scheduler (e.g. to feed BLE scan results, or request BMS frames).
type Built struct {
	Loop       *Loop
	Bank       *thermal.Bank
	FanLoop    *fans.Loop
	FrontBms   *SessionHandle
	RearBms    *SessionHandle
	TpmsScan   *tpms.Scanner
	Keeper     *timekeeper.Keeper
	Aggregator *alarms.Aggregator
	Peers      *peers.Peers[string]
	Calibrator *Calibrator
}

var coreChannels = []int{0, 1, 2, 3, 4, 5, 6, 7}

// Build constructs every component and registers it with a new Loop in
// this order: the calibration collector (when a reference is wired), the
// fan loop, the BMS sessions and TPMS, then time keeping, alarms and the
// updater, then telemetry/diagnostics; the watchdog tickle runs last.
func Build(cfg Config, b *bus.Bus) (*Built, error) {
	cfg.TickPeriod = withDefault(cfg.TickPeriod, 5*time.Second)
	cfg.DeliverPeriod = withDefault(cfg.DeliverPeriod, 30*time.Second)
	cfg.CapturePeriod = withDefault(cfg.CapturePeriod, 5*time.Minute)
	cfg.DiagnosePeriod = withDefault(cfg.DiagnosePeriod, time.Minute)
	cfg.UpdatePeriod = withDefault(cfg.UpdatePeriod, time.Hour)
	cfg.WatchdogTimeout = withDefault(cfg.WatchdogTimeout, 60*time.Second)
	if cfg.StoreCapBytes <= 0 {
		cfg.StoreCapBytes = 1 << 20
	}

	store := kv.Open(cfg.KVRoot)
	loop := NewLoop(cfg.TickPeriod)

	// Calibration: load a previously fitted document, or fall back to a
	// bare Steinhart default so the bank still answers while unfitted.
	rt, err := calib.Load(cfg.CalibPath)
	if err != nil {
		fmtx.Logf("program: no calibration document at %s (%v), using static Steinhart default", cfg.CalibPath, err)
		rt = calib.NewRuntime(types.CalibrationStrategy{
			Kind:      types.StrategySteinhart,
			Steinhart: &types.SteinhartCoeffs{A: 0.0008, B: 0.0002, C: 0, D: 0.0000001},
		})
	}
	bank := thermal.NewBank(cfg.Hardware.Mux, rt)

	// Calibration collection: only wired when a reference thermometer is
	// present. Runs concurrently with normal operation; the bank keeps
	// using its current runtime until the sweep completes (spec §4.1).
	var calibrator *Calibrator
	if cfg.Hardware.CalibReference != nil {
		channels := cfg.CalibChannels
		if channels <= 0 {
			channels = len(coreChannels)
		}
		tStart, tEnd, tStep := cfg.CalibTStart, cfg.CalibTEnd, cfg.CalibTStep
		if tStep <= 0 {
			tStart, tEnd, tStep = -20, 60, 5
		}
		fallback := cfg.CalibDefault
		if fallback.Kind == "" {
			fallback = types.CalibrationStrategy{
				Kind:      types.StrategySteinhart,
				Steinhart: &types.SteinhartCoeffs{A: 0.0008, B: 0.0002, C: 0, D: 0.0000001},
			}
		}
		pipeline := calib.NewPipeline(tStart, tEnd, tStep, channels, cfg.Hardware.CalibReference, cfg.Hardware.Mux)
		calibrator = &Calibrator{pipeline: pipeline, path: cfg.CalibPath, fallbackDefault: fallback, bank: bank}
		loop.Register(calibrator)
	}

	// Fan control: map strategy across every configured motor, driven by
	// the PID loop against the hottest channel read this tick.
	var strategy fans.Strategy
	if len(cfg.Hardware.FanMotors) > 0 {
		strategy = fans.NewMapStrategy(cfg.Hardware.FanMotors, 0, 255)
	} else {
		strategy = noopStrategy{}
	}
	fanLoop := fans.NewLoop(cfg.FanKp, cfg.FanKi, cfg.FanKd, cfg.FanAlpha, cfg.FanSetpoint, strategy)
	tickSeconds := cfg.TickPeriod.Seconds()
	loop.Register(funcComponent{process: func(now time.Time) {
		max, ok := bank.MaxAcross(coreChannels)
		if !ok {
			max = cfg.FanSetpoint - 1
		}
		fanLoop.Step(max, tickSeconds)
	}})

	// BMS: one half-duplex session per line, fed by its own reader
	// goroutine (spec §4.6's asynchronous byte arrival).
	frontConn := b.NewConnection("bms-front")
	frontBase := bus.T("bms", "front")
	frontSession := bms.NewSession(types.AddrSlave, frontConn, frontBase.Append("frame"), frontBase.Append("response"))
	registerBmsCommands(frontSession)
	front := &SessionHandle{Session: frontSession, Port: cfg.Hardware.FrontBmsPort}
	loop.Register(front)

	var rear *SessionHandle
	if cfg.Hardware.RearBmsPort != nil {
		rearConn := b.NewConnection("bms-rear")
		rearBase := bus.T("bms", "rear")
		rearSession := bms.NewSession(types.AddrSlave, rearConn, rearBase.Append("frame"), rearBase.Append("response"))
		registerBmsCommands(rearSession)
		rear = &SessionHandle{Session: rearSession, Port: cfg.Hardware.RearBmsPort}
		loop.Register(rear)
	}

	tpmsScanner := tpms.NewScanner("front-tyre", "rear-tyre")
	loop.Register(funcComponent{process: func(now time.Time) { tpmsScanner.Process() }})

	keeper := timekeeper.NewKeeper(timekeeper.KeeperConfig{FailureLimit: 5}, cfg.Hardware.TimeFetcher, store.Namespace(types.NamespaceNetTime))
	loop.Register(funcComponent{process: func(now time.Time) { keeper.IntervalUpdate(cfg.Hardware.TimeFetcher != nil, now) }})

	tempSource := &boundThermal{bank: bank, channels: coreChannels}
	aggregator := alarms.NewAggregator(tempSource)
	loop.Register(funcComponent{process: func(now time.Time) { aggregator.Process() }})

	peerSet := peers.New(cfg.PeerOrder, cfg.PeerRetries, func(s string) string { return s })

	fanout := &transport.Fanout{BLE: cfg.Hardware.BLETransport, WS: cfg.Hardware.WSTransport, MQTT: cfg.Hardware.MQTTTransport}
	storeFile, err := transport.OpenStoreFile(cfg.StorePath, cfg.StoreCapBytes)
	if err != nil {
		return nil, err
	}

	upd := updater.NewUpdater(cfg.UpdatePeriod, cfg.Hardware.Manifest, store.Namespace(types.NamespaceUpdates), cfg.UpdateChannel, cfg.CurrentVersion, cfg.DeviceAddr)
	loop.Register(funcComponent{process: func(now time.Time) {
		if cfg.Hardware.Manifest != nil {
			upd.Process(now)
		}
	}})

	sampler := &snapshotSampler{
		deviceAddr: cfg.DeviceAddr,
		bank:       bank,
		channels:   coreChannels,
		tpms:       tpmsScanner,
		aggregator: aggregator,
		peers:      peerSet,
	}

	diagCollector := diag.NewCollector(cfg.DeviceAddr)
	diagCollector.Register("thermal", thermalDiagnostics{bank: bank, channels: coreChannels})
	diagCollector.Register("alarms", alarmDiagnostics{aggregator: aggregator})
	diagCollector.Register("updater", updaterDiagnostics{upd: upd})
	diagCollector.Register("bus", b)

	orchestrator := telemetry.NewOrchestrator(cfg.DeliverPeriod, cfg.CapturePeriod, cfg.DiagnosePeriod, sampler, diagCollector, fanout, storeFile, cfg.DeviceAddr)
	loop.Register(funcComponent{process: orchestrator.Process})

	if cfg.Hardware.WatchdogPin != nil {
		watchdog := diag.NewWatchdog(cfg.Hardware.WatchdogPin, cfg.WatchdogTimeout)
		loop.SetWatchdog(func(now time.Time) {
			if expired := watchdog.Tickle(now); expired {
				fmtx.Logf("program: watchdog gap exceeded timeout")
			}
		})
	}

	return &Built{
		Loop:       loop,
		Bank:       bank,
		FanLoop:    fanLoop,
		FrontBms:   front,
		RearBms:    rear,
		TpmsScan:   tpmsScanner,
		Keeper:     keeper,
		Aggregator: aggregator,
		Peers:      peerSet,
		Calibrator: calibrator,
	}, nil
}

// registerBmsCommands binds the fixed command table every session expects
// (spec §4.6's per-command expected-frame-count table); the cell-level
// commands (multi-frame voltages and temperatures, single-frame balances)
// are requested and assembled
// by their callers directly against the decoded cell counts, not through
// this fixed table.
func registerBmsCommands(s *bms.Session) {
	s.Register(types.CmdPackStatus, 1, true)
	s.Register(types.CmdCellVoltMinMax, 1, true)
	s.Register(types.CmdCellTempMinMax, 1, true)
	s.Register(types.CmdMosfet, 1, true)
	s.Register(types.CmdPackInfo, 1, true)
	s.Register(types.CmdFailureStatus, 1, true)
	s.Register(types.CmdBmsRTC, 1, true)
}

type funcComponent struct {
	begin   func() error
	process func(now time.Time)
}

func (f funcComponent) Begin() error {
	if f.begin == nil {
		return nil
	}
	return f.begin()
}

func (f funcComponent) Process(now time.Time) {
	if f.process != nil {
		f.process(now)
	}
}

type noopStrategy struct{}

func (noopStrategy) SetSpeed(float64) bool { return false }

// boundThermal adapts the thermistor bank's coldest/hottest readings into
// the alarms.Alarmable shape the aggregator requires (spec §4.8).
type boundThermal struct {
	bank     *thermal.Bank
	channels []int
}

func (b *boundThermal) Alarms() types.AlarmSet {
	pred := alarms.TemperaturePredicate{
		Min: func() (float64, bool) { return b.bank.MinAcross(b.channels) },
		Max: func() (float64, bool) { return b.bank.MaxAcross(b.channels) },
	}
	return pred.Alarms()
}
