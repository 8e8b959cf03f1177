package types

import "encoding/json"

func jsonMarshal(v any) ([]byte, error) { return json.Marshal(v) }

// PayloadType tags the top-level telemetry envelope (spec §3).
type PayloadType string

const (
	PayloadData PayloadType = "data"
	PayloadDiag PayloadType = "diag"
)

// Envelope is the common top-level shape every telemetry/diagnostics JSON
// document carries, including every fragment of a split payload (spec §3,
// §4.9 "payload splitting").
type Envelope struct {
	Type PayloadType `json:"type"`
	Time string      `json:"time"` // ISO-8601 UTC
	Addr string      `json:"addr"` // controller MAC
}

// Snapshot is the periodic telemetry sample produced by the orchestrator
// before fan-out; Fields carries the domain-specific measurements (battery
// pack temperatures, TPMS readings, alarm bitset, selected peer).
type Snapshot struct {
	Envelope
	Fields map[string]any `json:"-"`
}

// MarshalJSON flattens Envelope and Fields into one JSON object, matching
// spec §3's "top level is {type, time, addr, ...}".
func (s Snapshot) MarshalJSON() ([]byte, error) {
	flat := map[string]any{
		"type": s.Type,
		"time": s.Time,
		"addr": s.Addr,
	}
	for k, v := range s.Fields {
		flat[k] = v
	}
	return jsonMarshal(flat)
}
