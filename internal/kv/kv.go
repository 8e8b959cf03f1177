// Package kv implements PersistentKV, a typed key-value store over named
// "flash namespaces" (spec §3 "Persistent values", §6 persistence layout).
// The actual flash filesystem is an external collaborator; this package
// treats a directory of small JSON files as that collaborator's host-side
// stand-in, one file per namespace, grounded on the persistence style of
// jangala-dev-devicecode-go's config loader (read-whole-file, decode,
// write-whole-file-atomically).
package kv

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/matthewgream/battery-pack-sub000/errcode"
)

// Store owns one JSON document per namespace under a root directory.
type Store struct {
	root string
	mu   sync.Mutex
	docs map[string]map[string]json.RawMessage
}

func Open(root string) *Store {
	return &Store{root: root, docs: make(map[string]map[string]json.RawMessage)}
}

func (s *Store) path(namespace string) string {
	return filepath.Join(s.root, namespace+".json")
}

func (s *Store) loadLocked(namespace string) (map[string]json.RawMessage, error) {
	if doc, ok := s.docs[namespace]; ok {
		return doc, nil
	}
	doc := make(map[string]json.RawMessage)
	b, err := os.ReadFile(s.path(namespace))
	if err != nil {
		if os.IsNotExist(err) {
			s.docs[namespace] = doc
			return doc, nil
		}
		return nil, errcode.New("kv.load", errcode.LoadFailed, err.Error())
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, errcode.New("kv.load", errcode.LoadFailed, err.Error())
		}
	}
	s.docs[namespace] = doc
	return doc, nil
}

func (s *Store) saveLocked(namespace string, doc map[string]json.RawMessage) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return errcode.New("kv.save", errcode.PersistFailed, err.Error())
	}
	tmp := s.path(namespace) + ".tmp"
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return errcode.New("kv.save", errcode.PersistFailed, err.Error())
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errcode.New("kv.save", errcode.PersistFailed, err.Error())
	}
	if err := os.Rename(tmp, s.path(namespace)); err != nil {
		return errcode.New("kv.save", errcode.PersistFailed, err.Error())
	}
	s.docs[namespace] = doc
	return nil
}

// Namespace binds a fixed namespace name (<= 15 chars per spec §3) for
// typed reads/writes, so callers never repeat the namespace string.
type Namespace struct {
	store *Store
	name  string
}

func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

func get[T any](n *Namespace, key string, def T) T {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	doc, err := n.store.loadLocked(n.name)
	if err != nil {
		return def
	}
	raw, ok := doc[key]
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	return v
}

func set[T any](n *Namespace, key string, val T) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	doc, err := n.store.loadLocked(n.name)
	if err != nil {
		return err
	}
	b, err := json.Marshal(val)
	if err != nil {
		return errcode.New("kv.set", errcode.PersistFailed, err.Error())
	}
	doc[key] = b
	return n.store.saveLocked(n.name, doc)
}

func (n *Namespace) GetInt32(key string, def int32) int32   { return get(n, key, def) }
func (n *Namespace) SetInt32(key string, val int32) error    { return set(n, key, val) }
func (n *Namespace) GetUint32(key string, def uint32) uint32 { return get(n, key, def) }
func (n *Namespace) SetUint32(key string, val uint32) error  { return set(n, key, val) }

// GetString returns the stored value or def, truncated to 4000 chars per
// spec §3's string binding limit.
func (n *Namespace) GetString(key string, def string) string {
	v := get(n, key, def)
	if len(v) > 4000 {
		return v[:4000]
	}
	return v
}

func (n *Namespace) SetString(key string, val string) error {
	if len(val) > 4000 {
		val = val[:4000]
	}
	return set(n, key, val)
}
