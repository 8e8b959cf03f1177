package kv

import "testing"

func TestDefaultOnFirstRead(t *testing.T) {
	s := Open(t.TempDir())
	ns := s.Namespace("nettime")
	if got := ns.GetInt32("drift", 0); got != 0 {
		t.Fatalf("expected default 0, got %d", got)
	}
}

func TestRoundTrip(t *testing.T) {
	root := t.TempDir()
	ns := Open(root).Namespace("nettime")
	if err := ns.SetInt32("drift", 3600); err != nil {
		t.Fatalf("set: %v", err)
	}
	ns2 := Open(root).Namespace("nettime")
	if got := ns2.GetInt32("drift", 0); got != 3600 {
		t.Fatalf("expected 3600 after reload, got %d", got)
	}
}

func TestStringTruncation(t *testing.T) {
	ns := Open(t.TempDir()).Namespace("updates")
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	if err := ns.SetString("version", string(long)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := ns.GetString("version", ""); len(got) != 4000 {
		t.Fatalf("expected truncation to 4000 chars, got %d", len(got))
	}
}
