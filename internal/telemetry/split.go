package telemetry

import (
	"bytes"
	"encoding/json"

	"github.com/matthewgream/battery-pack-sub000/errcode"
)

// Split walks a serialized JSON object's top-level elements and emits
// multiple smaller objects, each carrying the shared {type,time,addr}
// fields. A fragment takes as many elements as fit within mtu bytes; an
// element that does not fit beside the shared fields alone gets a fragment
// of its own, which then exceeds mtu. It works on the
// already-serialized payload rather than re-serializing per fragment
// (spec §9 "Splitting JSON by MTU").
func Split(payload []byte, mtu int) ([][]byte, error) {
	var whole map[string]json.RawMessage
	if err := json.Unmarshal(payload, &whole); err != nil {
		return nil, errcode.New("telemetry.split", errcode.Error, err.Error())
	}

	common := make(map[string]json.RawMessage, 3)
	for _, key := range []string{"type", "time", "addr"} {
		if v, ok := whole[key]; ok {
			common[key] = v
		}
	}

	if len(payload) <= mtu {
		return [][]byte{payload}, nil
	}

	var fragments [][]byte
	current := cloneMap(common)
	for k, v := range whole {
		if _, isCommon := common[k]; isCommon {
			continue
		}
		candidate := cloneMap(current)
		candidate[k] = v
		b, err := marshalSorted(candidate)
		if err != nil {
			return nil, errcode.New("telemetry.split", errcode.Error, err.Error())
		}
		if len(b) > mtu && len(current) > len(common) {
			b2, err := marshalSorted(current)
			if err != nil {
				return nil, errcode.New("telemetry.split", errcode.Error, err.Error())
			}
			fragments = append(fragments, b2)
			current = cloneMap(common)
			current[k] = v
			continue
		}
		current = candidate
	}
	if len(current) > len(common) {
		b, err := marshalSorted(current)
		if err != nil {
			return nil, errcode.New("telemetry.split", errcode.Error, err.Error())
		}
		fragments = append(fragments, b)
	}
	return fragments, nil
}

func cloneMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func marshalSorted(m map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range []string{"type", "time", "addr"} {
		v, ok := m[key]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	for k, v := range m {
		switch k {
		case "type", "time", "addr":
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
