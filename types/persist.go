package types

// Persistence namespaces and keys, per the table in spec §6. A namespace
// groups related keys on the same flash partition; PersistentKV opens one
// namespace per owning component.
const (
	NamespaceNetTime  = "nettime"
	NamespaceUpdates  = "updates"
	NamespaceCalibrat = "calibration"

	KeyNetTimeDrift = "drift" // i32 ms per hour, signed
	KeyNetTimeTime  = "time"  // u32 unix epoch seconds, last-known-good

	KeyUpdatesPrevious = "previous" // u32 epoch secs, time of last successful manifest poll
	KeyUpdatesVersion  = "version"  // string, currently running version
)
