package widget

import (
	"testing"
	"time"

	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/frame"
	"github.com/starford/trolley/internal/render"
)

const (
	appearDur = 200 * time.Millisecond
	removeDur = 400 * time.Millisecond
)

type env struct {
	sched    *frame.Manual
	intents  []Intent
	detached []*Widget
}

func (e *env) cfg() Config {
	return Config{
		Renderer:  render.NewRegistry(),
		Scheduler: e.sched,
		Timing:    func() Timing { return Timing{Appear: appearDur, Remove: removeDur} },
		Emit:      func(i Intent) { e.intents = append(e.intents, i) },
		Detach:    func(w *Widget) { e.detached = append(e.detached, w) },
	}
}

func newEnv() *env { return &env{sched: frame.NewManual()} }

func li(key string, qty int, price int64) cart.LineItem {
	return cart.LineItem{Key: key, Title: key, Quantity: qty, LinePrice: price}
}

func mustNew(t *testing.T, e *env, item cart.LineItem, appearing bool) *Widget {
	t.Helper()
	w, err := New(e.cfg(), item, &cart.Snapshot{Items: []cart.LineItem{item}}, appearing)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestInitialStates(t *testing.T) {
	e := newEnv()
	if w := mustNew(t, e, li("a", 1, 100), false); w.State() != StateReady {
		t.Errorf("non-appearing state = %q, want ready", w.State())
	}
	if w := mustNew(t, e, li("b", 1, 100), true); w.State() != StateAppearing {
		t.Errorf("appearing state = %q, want appearing", w.State())
	}
}

func TestAppearSettlesToReady(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 1, 100), true)

	// Two-frame handshake, then the appear duration.
	e.sched.Step()
	e.sched.Step()
	if w.State() != StateAppearing {
		t.Fatalf("state before duration = %q, want appearing", w.State())
	}
	e.sched.Advance(appearDur)
	if w.State() != StateReady {
		t.Errorf("state after appear = %q, want ready", w.State())
	}

	// Re-entry is a no-op.
	w.finishAppear()
	if w.State() != StateReady {
		t.Errorf("state after re-entry = %q, want ready", w.State())
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 1, 100), false)

	w.Destroy()
	w.Destroy()
	if w.State() != StateRemoving {
		t.Fatalf("state = %q, want removing", w.State())
	}

	e.sched.Step() // commit
	e.sched.Step() // transition
	e.sched.Advance(removeDur)

	if len(e.detached) != 1 {
		t.Fatalf("detached %d times, want exactly 1", len(e.detached))
	}
	if w.Attached() {
		t.Error("widget still attached after removal")
	}

	// A third Destroy after detachment changes nothing.
	w.Destroy()
	e.sched.Drain()
	e.sched.Advance(removeDur)
	if len(e.detached) != 1 {
		t.Errorf("detached %d times after repeat, want 1", len(e.detached))
	}
}

func TestDestroyFromProcessing(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 1, 100), false)
	if err := w.SetState(StateProcessing); err != nil {
		t.Fatal(err)
	}
	w.Destroy()
	if w.State() != StateRemoving {
		t.Errorf("state = %q, want removing", w.State())
	}
	if err := w.SetState(StateReady); err == nil {
		t.Error("SetState on a removing widget should fail")
	}
}

func TestSetDataShortCircuit(t *testing.T) {
	e := newEnv()
	item := li("a", 2, 1000)
	w := mustNew(t, e, item, false)
	before := w.Row().Markup

	// Same item data renders identical markup: subtree untouched.
	if err := w.SetData(item, &cart.Snapshot{Items: []cart.LineItem{item}}); err != nil {
		t.Fatal(err)
	}
	if w.Row().Markup != before {
		t.Error("identical render should not replace markup")
	}

	// New quantity changes the markup and resyncs the control value.
	bumped := li("a", 3, 1500)
	if err := w.SetData(bumped, &cart.Snapshot{Items: []cart.LineItem{bumped}}); err != nil {
		t.Fatal(err)
	}
	if w.Row().Markup == before {
		t.Error("changed render should replace markup")
	}
	if w.Row().Quantity != 3 {
		t.Errorf("quantity = %d, want 3", w.Row().Quantity)
	}
}

func TestSetDataReturnsProcessingToReady(t *testing.T) {
	e := newEnv()
	item := li("a", 2, 1000)
	w := mustNew(t, e, item, false)
	w.SetState(StateProcessing)

	// Fast path: same markup, just confirm the server quantity.
	if err := w.SetData(item, &cart.Snapshot{Items: []cart.LineItem{item}}); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateReady {
		t.Errorf("state = %q, want ready", w.State())
	}
}

func TestRevert(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 2, 1000), false)
	w.SetState(StateProcessing)
	before := w.Row().Markup

	w.Revert()
	if w.State() != StateReady {
		t.Errorf("state = %q, want ready", w.State())
	}
	if w.Row().Markup != before {
		t.Error("revert must not touch rendered content")
	}
	if w.Row().Quantity != 2 {
		t.Errorf("quantity = %d, want prior 2", w.Row().Quantity)
	}

	// Revert outside processing is a no-op.
	w.Revert()
	if w.State() != StateReady {
		t.Errorf("state = %q, want ready", w.State())
	}
}

func TestIntentsGuardedByState(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 2, 1000), false)

	w.ChangeQuantity(3)
	w.Remove()
	if len(e.intents) != 2 {
		t.Fatalf("intents = %d, want 2", len(e.intents))
	}
	if e.intents[0].Kind != IntentQuantityChange || e.intents[0].Quantity != 3 {
		t.Errorf("first intent = %+v", e.intents[0])
	}
	if e.intents[1].Kind != IntentRemove || e.intents[1].Key != "a" {
		t.Errorf("second intent = %+v", e.intents[1])
	}

	// Processing disables the controls: no further intents originate.
	w.SetState(StateProcessing)
	w.ChangeQuantity(5)
	w.Remove()
	if len(e.intents) != 2 {
		t.Errorf("intents = %d after processing guard, want still 2", len(e.intents))
	}
}

func TestSetStateValidation(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 1, 100), false)
	if err := w.SetState("exploded"); err == nil {
		t.Error("invalid state should be rejected")
	}
	if err := w.SetState(StateProcessing); err != nil {
		t.Errorf("valid state rejected: %v", err)
	}
}

func TestAbandonSuppressesDetach(t *testing.T) {
	e := newEnv()
	w := mustNew(t, e, li("a", 1, 100), false)
	w.Destroy()
	if !w.Removing() {
		t.Fatal("Removing() should latch after Destroy")
	}

	// A replacement took over the key mid-collapse.
	w.Abandon()
	if w.Attached() {
		t.Error("Abandon should detach immediately")
	}

	e.sched.Step()
	e.sched.Step()
	e.sched.Advance(removeDur)
	if len(e.detached) != 0 {
		t.Errorf("detach callbacks = %d, want none after Abandon", len(e.detached))
	}
}
