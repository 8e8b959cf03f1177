package bus

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("bms", "front", "frame"))

	msg := conn.NewMessage(T("bms", "front", "frame"), "hello", false)
	conn.Publish(msg)

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "hello" {
			t.Errorf("expected payload 'hello', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	msg := conn.NewMessage(T("bms", "front", "response"), "persist", true)
	conn.Publish(msg)

	sub := conn.Subscribe(T("bms", "front", "response"))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "persist" {
			t.Errorf("expected retained payload 'persist', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained message")
	}
}

// -----------------------------------------------------------------------------
// Topic.Append
// -----------------------------------------------------------------------------

func TestTopicAppendBuildsSessionFamily(t *testing.T) {
	base := T("bms", "rear")
	frame := base.Append("frame")
	response := base.Append("response")

	if frame.String() != "bms/rear/frame" {
		t.Fatalf("unexpected frame topic string: %q", frame.String())
	}
	if response.String() != "bms/rear/response" {
		t.Fatalf("unexpected response topic string: %q", response.String())
	}
	// base must be untouched by either Append call.
	if base.String() != "bms/rear" {
		t.Fatalf("Append mutated its receiver: base now %q", base.String())
	}

	b := NewBus(4)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(frame)
	conn.Publish(conn.NewMessage(frame, "f1", false))

	select {
	case got := <-sub.Channel():
		if got.Payload.(string) != "f1" {
			t.Fatalf("expected 'f1', got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for appended-topic message")
	}
}

// -----------------------------------------------------------------------------
// Wildcards (exercised the way program.Build subscribes across both BMS lines)
// -----------------------------------------------------------------------------

func TestWildcard_SingleLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	s1 := c.Subscribe(T("bms", "+", "frame"))
	s2 := c.Subscribe(T("bms", "+", "+"))
	s3 := c.Subscribe(T("bms", "front", "+"))
	sNo := c.Subscribe(T("bms", "+", "diag"))

	c.Publish(b.NewMessage(T("bms", "front", "frame"), "m1", false))

	expectOneOf(t, s1, "m1")
	expectOneOf(t, s2, "m1")
	expectOneOf(t, s3, "m1")
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("bms", "rear", "response"), "m2", false))

	expectOneOf(t, s2, "m2")
	expectNoMessage(t, s1)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("bms", "frame"), "m3", false))
	expectNoMessage(t, s1)
	expectNoMessage(t, s2)
	expectNoMessage(t, s3)
	expectNoMessage(t, sNo)
}

func TestWildcard_MultiLevel(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	sBmsHash := c.Subscribe(T("bms", "#"))
	sHash := c.Subscribe(T("#"))
	sFrontHash := c.Subscribe(T("bms", "front", "#"))
	sBmsExact := c.Subscribe(T("bms"))

	c.Publish(b.NewMessage(T("bms"), "p1", false))
	expectOneOf(t, sBmsHash, "p1")
	expectOneOf(t, sHash, "p1")
	expectOneOf(t, sBmsExact, "p1")
	expectNoMessage(t, sFrontHash)

	c.Publish(b.NewMessage(T("bms", "front"), "p2", false))
	expectOneOf(t, sBmsHash, "p2")
	expectOneOf(t, sHash, "p2")
	expectOneOf(t, sFrontHash, "p2")
	expectNoMessage(t, sBmsExact)

	c.Publish(b.NewMessage(T("bms", "front", "frame"), "p3", false))
	expectOneOf(t, sBmsHash, "p3")
	expectOneOf(t, sHash, "p3")
	expectOneOf(t, sFrontHash, "p3")
	expectNoMessage(t, sBmsExact)
}

func TestWildcard_RetainedDelivery(t *testing.T) {
	b := NewBus(32)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("bms"), "r0", true))
	c.Publish(b.NewMessage(T("bms", "front"), "r1", true))
	c.Publish(b.NewMessage(T("bms", "front", "frame"), "r2", true))
	c.Publish(b.NewMessage(T("bms", "rear"), "r3", true))

	sAll := c.Subscribe(T("bms", "#"))
	gotAll := drainPayloads(t, sAll, 4)
	assertUnorderedEqual(t, gotAll, []string{"r0", "r1", "r2", "r3"})

	sPlusHash := c.Subscribe(T("bms", "+", "#"))
	gotPH := drainPayloads(t, sPlusHash, 3)
	assertUnorderedEqual(t, gotPH, []string{"r1", "r2", "r3"})

	sPlus := c.Subscribe(T("bms", "+"))
	gotP := drainPayloads(t, sPlus, 2)
	assertUnorderedEqual(t, gotP, []string{"r1", "r3"})
}

func TestWildcard_RetainedClear(t *testing.T) {
	b := NewBus(16)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("bms", "front"), "keep", true))
	c.Publish(b.NewMessage(T("bms", "rear"), "other", true))

	c.Publish(b.NewMessage(T("bms", "front"), nil, true))

	s := c.Subscribe(T("bms", "#"))
	got := drainPayloads(t, s, 1)

	if len(got) != 1 || got[0] != "other" {
		t.Fatalf("expected only 'other' after clear, got %v", got)
	}
}

func TestWildcard_NoMatchCases(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	s := c.Subscribe(T("bms", "+", "frame"))

	c.Publish(b.NewMessage(T("bms", "frame"), "x", false))
	expectNoMessage(t, s)

	c.Publish(b.NewMessage(T("bms", "front", "diag"), "y", false))
	expectNoMessage(t, s)
}

// -----------------------------------------------------------------------------
// Request-Reply
// -----------------------------------------------------------------------------

func TestRequestReply_RequestWait(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")
	respConn := b.NewConnection("responder")

	reqTopic := T("bms", "front", "status", "get")
	respSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(respSub)

	go func() {
		if msg, ok := <-respSub.Channel(); ok {
			respConn.Reply(msg, "OK", false)
		}
	}()

	req := b.NewMessage(reqTopic, nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	reply, err := reqConn.RequestWait(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error waiting for reply: %v", err)
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		t.Fatalf("unexpected reply payload: %#v", reply.Payload)
	}
	if len(req.ReplyTo) == 0 {
		t.Fatal("request lacks ReplyTo after RequestWait")
	}
}

func TestRequestReply_Timeout(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")

	req := b.NewMessage(T("bms", "rear", "status", "get"), nil, false)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := reqConn.RequestWait(ctx, req)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestRequestReply_ManualSubscription(t *testing.T) {
	b := NewBus(8)
	reqConn := b.NewConnection("requester")
	respConn := b.NewConnection("responder")

	reqTopic := T("bms", "front", "cell", "read")
	reqSub := respConn.Subscribe(reqTopic)
	defer respConn.Unsubscribe(reqSub)

	reqMsg := b.NewMessage(reqTopic, nil, false)
	replySub := reqConn.Request(reqMsg)
	defer reqConn.Unsubscribe(replySub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if msg, ok := <-reqSub.Channel(); ok {
			respConn.Reply(msg, map[string]any{"value": 42}, false)
		}
	}()

	select {
	case got := <-replySub.Channel():
		m, ok := got.Payload.(map[string]any)
		if !ok {
			t.Fatalf("unexpected reply type: %#v", got.Payload)
		}
		if m["value"] != 42 {
			t.Fatalf("unexpected reply content: %#v", m)
		}
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for manual reply")
	}

	<-done
}

// -----------------------------------------------------------------------------
// Diagnostics counters
// -----------------------------------------------------------------------------

func TestStatsTracksDeliveredDroppedRetained(t *testing.T) {
	b := NewBus(1) // one-deep queue so a second publish forces an eviction
	c := b.NewConnection("test")

	sub := c.Subscribe(T("bms", "front", "frame"))
	c.Publish(b.NewMessage(T("bms", "front", "frame"), "first", false))
	c.Publish(b.NewMessage(T("bms", "front", "frame"), "second", false)) // evicts "first"

	got := drainPayloads(t, sub, 1)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only 'second' to survive the eviction, got %v", got)
	}

	stats := b.Stats()
	if stats.Dropped == 0 {
		t.Fatalf("expected at least one dropped delivery, got stats=%+v", stats)
	}
	if stats.Delivered == 0 {
		t.Fatalf("expected at least one successful delivery, got stats=%+v", stats)
	}

	c.Publish(b.NewMessage(T("bms", "front", "status"), "snapshot", true))
	if got := b.Stats().Retained; got == 0 {
		t.Fatalf("expected a retained message to be counted, got %d", got)
	}

	frag := b.CollectDiagnostics()
	if _, ok := frag["dropped"]; !ok {
		t.Fatalf("expected CollectDiagnostics to report a dropped field, got %#v", frag)
	}
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(string); ok {
				out = append(out, s)
			} else {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %q, want %q (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func TestTopic_InvalidTokenPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for non-comparable token, got none")
		}
	}()

	// []byte is not comparable, so T should panic
	_ = T([]byte{1, 2, 3})
}
