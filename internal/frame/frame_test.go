package frame

import (
	"sync"
	"testing"
	"time"
)

func TestManual_StepRunsOneFrameOnly(t *testing.T) {
	m := NewManual()
	var order []string
	m.NextFrame(func() {
		order = append(order, "first")
		m.NextFrame(func() { order = append(order, "second") })
	})

	m.Step()
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("after one step order = %v, want [first]", order)
	}
	m.Step()
	if len(order) != 2 || order[1] != "second" {
		t.Fatalf("after two steps order = %v, want [first second]", order)
	}
}

func TestHandshake_TwoDistinctFrames(t *testing.T) {
	m := NewManual()
	var committed, transitioned bool
	Handshake(m, func() { committed = true }, func() { transitioned = true })

	m.Step()
	if !committed {
		t.Fatal("commit should run on frame 1")
	}
	if transitioned {
		t.Fatal("transition must not share commit's frame")
	}
	m.Step()
	if !transitioned {
		t.Fatal("transition should run on frame 2")
	}
}

func TestManual_Advance(t *testing.T) {
	m := NewManual()
	var fired []string
	m.After(100*time.Millisecond, func() { fired = append(fired, "a") })
	m.After(300*time.Millisecond, func() { fired = append(fired, "b") })

	m.Advance(150 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v, want [a]", fired)
	}
	m.Advance(150 * time.Millisecond)
	if len(fired) != 2 {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
}

func TestTicker_DeliversThroughExec(t *testing.T) {
	var mu sync.Mutex
	var ran bool
	exec := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
	tick := NewTicker(5*time.Millisecond, exec)
	defer tick.Close()

	done := make(chan struct{})
	tick.NextFrame(func() {
		ran = true
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for frame callback")
	}
	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Fatal("callback did not run")
	}
}
