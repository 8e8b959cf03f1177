// Command controller is the battery-pack monitoring and thermal-management
// firmware's host entry point: it wires the bus, builds every component
// through program.Build, and drives the scheduler until interrupted.
// Grounded on jangala-dev-devicecode-go's root main.go bootstrap shape
// (construct bus, construct connections, run the loop, wait on signals).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewgream/battery-pack-sub000/bus"
	"github.com/matthewgream/battery-pack-sub000/internal/fmtx"
	"github.com/matthewgream/battery-pack-sub000/program"
)

func main() {
	fmtx.Logf("controller: bootstrapping bus")
	b := bus.NewBus(4)

	cfg := program.Config{
		DeviceAddr:     envOr("CONTROLLER_ADDR", "00:00:00:00:00:00"),
		KVRoot:         envOr("CONTROLLER_KV_ROOT", "./var/kv"),
		StorePath:      envOr("CONTROLLER_STORE_PATH", "./var/telemetry.store"),
		CalibPath:      envOr("CONTROLLER_CALIB_PATH", "./var/calibration.json"),
		UpdateChannel:  envOr("CONTROLLER_UPDATE_CHANNEL", "stable"),
		CurrentVersion: envOr("CONTROLLER_VERSION", "0.0.0"),

		TickPeriod: 5 * time.Second,

		FanKp: 2.0, FanKi: 0.5, FanKd: 1.0, FanAlpha: 0.3, FanSetpoint: 30.0,

		PeerOrder:   []string{"primary", "secondary"},
		PeerRetries: 3,

		Hardware: program.Hardware{
			Mux: noMux{},
		},
	}

	if _, calibrate := os.LookupEnv("CONTROLLER_CALIBRATE"); calibrate {
		fmtx.Logf("controller: calibration collection mode enabled, target=%s", cfg.CalibPath)
		cfg.Hardware.CalibReference = noReference{}
	}

	if err := os.MkdirAll(cfg.KVRoot, 0o755); err != nil {
		fmtx.Logf("controller: failed to create kv root: %v", err)
		os.Exit(1)
	}

	built, err := program.Build(cfg, b)
	if err != nil {
		fmtx.Logf("controller: build failed: %v", err)
		os.Exit(1)
	}

	if err := built.Loop.Begin(); err != nil {
		fmtx.Logf("controller: component startup failed: %v", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmtx.Logf("controller: entering scheduler loop (period=%s)", cfg.TickPeriod)
	built.Loop.Run(ctx, time.Now)
	fmtx.Logf("controller: shutdown")
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// noMux stands in for the real ADC-mux binding until a platform driver is
// wired in; every channel reads as absent rather than panicking.
type noMux struct{}

func (noMux) ReadResistance(channel int) (float64, bool) { return 0, false }

// noReference stands in for the real reference-thermometer binding used
// during a calibration collection run; every read reports absent, so
// Build wires the calibration pipeline but it simply never progresses
// past its first wait state until a real reference is bound in its place.
type noReference struct{}

func (noReference) ReadCelsius() (float64, bool) { return 0, false }
