// Package frame provides the animation scheduling primitive used by row
// widgets: callbacks queued to distinct frame boundaries, plus duration
// timers. Splitting "commit" and "transition" across two frames guarantees
// a freshly written starting value has been observed by consumers before
// the value it transitions toward is written, so a transition can never
// collapse into an instant jump.
package frame

import (
	"sync"
	"time"
)

// Scheduler schedules callbacks on frame boundaries and after durations.
// Implementations run every callback on the owning engine's goroutine.
type Scheduler interface {
	// NextFrame runs fn at the next frame boundary. Callbacks queued
	// during a frame run on the following frame, never the current one.
	NextFrame(fn func())
	// After runs fn once d has elapsed.
	After(d time.Duration, fn func())
}

// Handshake performs the two-frame commit/transition sequence:
// commit runs on the next frame, transition on the frame after it.
func Handshake(s Scheduler, commit, transition func()) {
	s.NextFrame(func() {
		commit()
		s.NextFrame(transition)
	})
}

// Ticker is the production Scheduler. It fires frames at a fixed interval
// and hands every callback to exec, which the owner uses to marshal the
// call onto its loop goroutine.
type Ticker struct {
	exec func(func())

	mu      sync.Mutex
	pending []func()
	stop    chan struct{}
	done    chan struct{}
}

// NewTicker starts a Ticker firing every interval. exec must serialize the
// given function onto the engine loop.
func NewTicker(interval time.Duration, exec func(func())) *Ticker {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	t := &Ticker{
		exec: exec,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(interval)
	return t
}

func (t *Ticker) run(interval time.Duration) {
	defer close(t.done)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-tick.C:
			t.mu.Lock()
			batch := t.pending
			t.pending = nil
			t.mu.Unlock()
			for _, fn := range batch {
				t.exec(fn)
			}
		}
	}
}

// NextFrame implements Scheduler.
func (t *Ticker) NextFrame(fn func()) {
	t.mu.Lock()
	t.pending = append(t.pending, fn)
	t.mu.Unlock()
}

// After implements Scheduler.
func (t *Ticker) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case <-t.stop:
		default:
			t.exec(fn)
		}
	})
}

// Close stops the frame loop. Pending callbacks are dropped.
func (t *Ticker) Close() {
	close(t.stop)
	<-t.done
}

// timerEntry is a Manual timer waiting for its deadline.
type timerEntry struct {
	at time.Duration
	fn func()
}

// Manual is a deterministic Scheduler for tests: frames advance only via
// Step, timers only via Advance. Callbacks run synchronously on the
// calling goroutine.
type Manual struct {
	pending []func()
	now     time.Duration
	timers  []timerEntry
}

// NewManual creates a Manual scheduler.
func NewManual() *Manual { return &Manual{} }

// NextFrame implements Scheduler.
func (m *Manual) NextFrame(fn func()) { m.pending = append(m.pending, fn) }

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) {
	m.timers = append(m.timers, timerEntry{at: m.now + d, fn: fn})
}

// Step runs exactly one frame: the callbacks queued before the call.
// Callbacks queued by those callbacks wait for the next Step.
func (m *Manual) Step() {
	batch := m.pending
	m.pending = nil
	for _, fn := range batch {
		fn()
	}
}

// Advance moves the clock forward and fires every timer whose deadline
// has passed, in registration order.
func (m *Manual) Advance(d time.Duration) {
	m.now += d
	var rest []timerEntry
	var due []func()
	for _, t := range m.timers {
		if t.at <= m.now {
			due = append(due, t.fn)
		} else {
			rest = append(rest, t)
		}
	}
	m.timers = rest
	for _, fn := range due {
		fn()
	}
}

// Drain steps frames until no callbacks remain queued.
func (m *Manual) Drain() {
	for len(m.pending) > 0 {
		m.Step()
	}
}
