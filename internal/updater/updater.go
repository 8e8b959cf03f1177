// Package updater implements Updater: the periodic OTA-manifest poll that
// compares the running version against a published manifest and records
// whether a newer version is available (spec §4.9's sibling in §6 "OTA
// manifest"). Grounded on
// original_source/arduino/Battery_Monitor/UtilitiesOTA.hpp's poll-and-
// compare shape, adapted to the host-side HTTP client interface style
// used throughout this port.
package updater

import (
	"time"

	"github.com/matthewgream/battery-pack-sub000/internal/kv"
	"github.com/matthewgream/battery-pack-sub000/internal/timing"
	"github.com/matthewgream/battery-pack-sub000/types"
)

// Manifest is the decoded OTA manifest response.
type Manifest struct {
	Version string
}

// ManifestFetcher is the external HTTP collaborator: GET
// <json>?type=<type>&vers=<vers>&addr=<mac> and decode the manifest.
type ManifestFetcher interface {
	FetchManifest(channel, currentVersion, addr string) (Manifest, error)
}

// Updater polls for a newer manifest version on its own interval.
type Updater struct {
	fetcher ManifestFetcher
	ns      *kv.Namespace
	iv      *timing.Intervalable

	channel        string
	currentVersion string
	addr           string

	available    bool
	latest       string
	lastPolled   time.Time
	failures     int
}

func NewUpdater(period time.Duration, fetcher ManifestFetcher, ns *kv.Namespace, channel, currentVersion, addr string) *Updater {
	// Record the running version immediately so a freshly applied OTA
	// build shows up in persisted state before its first poll, and
	// restore the last successful poll time so LastPolled survives a
	// restart (spec §6's updates/previous, epoch secs).
	_ = ns.SetString(types.KeyUpdatesVersion, currentVersion)
	var lastPolled time.Time
	if prev := ns.GetUint32(types.KeyUpdatesPrevious, 0); prev != 0 {
		lastPolled = time.Unix(int64(prev), 0).UTC()
	}
	return &Updater{
		fetcher:        fetcher,
		ns:             ns,
		iv:             timing.NewIntervalable(period),
		channel:        channel,
		currentVersion: currentVersion,
		addr:           addr,
		lastPolled:     lastPolled,
	}
}

// Process polls the manifest if due. Returns true if this call observed a
// newer version becoming available (the caller raises UPDATE_VERS).
func (u *Updater) Process(now time.Time) (raiseUpdateVers bool) {
	if !u.iv.Due(now) {
		return false
	}
	m, err := u.fetcher.FetchManifest(u.channel, u.currentVersion, u.addr)
	if err != nil {
		u.failures++
		return false
	}
	u.failures = 0
	u.lastPolled = now
	_ = u.ns.SetUint32(types.KeyUpdatesPrevious, uint32(now.Unix()))

	wasAvailable := u.available
	u.available = m.Version != "" && m.Version != u.currentVersion
	u.latest = m.Version
	return u.available && !wasAvailable
}

func (u *Updater) Available() bool      { return u.available }
func (u *Updater) LatestVersion() string { return u.latest }
func (u *Updater) LastPolled() time.Time { return u.lastPolled }
func (u *Updater) Failures() int         { return u.failures }
