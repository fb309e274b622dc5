// Package widget implements the per-line-item row widget: a small state
// machine driving rendered content, animated enter/exit transitions, and
// typed user intents. A widget never performs I/O; intents travel to the
// panel controller through an injected emit function, and the controller
// drives state around its network calls.
//
// Widgets are loop-confined: every method, and every scheduler callback a
// widget registers, must run on the owning engine's goroutine.
package widget

import (
	"fmt"
	"time"

	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/frame"
)

// State is the widget lifecycle state.
type State string

const (
	// StateReady renders normally with interactive controls enabled.
	StateReady State = "ready"
	// StateProcessing disables controls while a mutation is in flight.
	// It is also the same-key concurrency guard: no second intent can
	// originate from a processing widget.
	StateProcessing State = "processing"
	// StateRemoving plays the collapse animation; terminal.
	StateRemoving State = "removing"
	// StateAppearing plays the entry animation for newly added items.
	StateAppearing State = "appearing"
)

func validState(s State) bool {
	switch s {
	case StateReady, StateProcessing, StateRemoving, StateAppearing:
		return true
	}
	return false
}

// IntentKind tags an Intent.
type IntentKind string

const (
	IntentRemove         IntentKind = "remove"
	IntentQuantityChange IntentKind = "quantity-change"
)

// Intent is a widget-originated mutation request.
type Intent struct {
	Kind     IntentKind
	Key      string
	Quantity int
}

// Timing holds the animation durations a widget reads at each animation
// start. Durations are presentation configuration, not computed here.
type Timing struct {
	Appear time.Duration
	Remove time.Duration
}

// Renderer renders one line item to markup.
type Renderer interface {
	Render(item cart.LineItem, snap *cart.Snapshot) (string, error)
}

// Row is the widget's rendered projection, written once per transition and
// shipped to the presentation layer, which maps State to CSS.
type Row struct {
	Key       string `json:"key"`
	State     State  `json:"state"`
	Markup    string `json:"markup"`
	Quantity  int    `json:"quantity"`
	LinePrice int64  `json:"line_price"`
}

// Config wires a widget's collaborators.
type Config struct {
	Renderer  Renderer
	Scheduler frame.Scheduler
	Timing    func() Timing
	Emit      func(Intent)
	// Detach is called exactly once, after the removal animation
	// completes, so the owner can forget the widget.
	Detach func(*Widget)
}

// Widget owns one rendered line item.
type Widget struct {
	cfg  Config
	key  string
	item cart.LineItem
	snap *cart.Snapshot

	state    State
	markup   string
	quantity int

	// removing latches once Destroy is first called and is never
	// cleared; it makes repeated Destroy calls no-ops.
	removing bool
	appeared bool
	attached bool
}

// New creates a widget for item. appearing selects the entry animation:
// true for items added to an already-rendered list, false for the initial
// bulk render, which must show instantly.
func New(cfg Config, item cart.LineItem, snap *cart.Snapshot, appearing bool) (*Widget, error) {
	markup, err := cfg.Renderer.Render(item, snap)
	if err != nil {
		return nil, fmt.Errorf("widget %s: render: %w", item.Key, err)
	}
	w := &Widget{
		cfg:      cfg,
		key:      item.Key,
		item:     item,
		snap:     snap,
		state:    StateReady,
		markup:   markup,
		quantity: item.Quantity,
		attached: true,
	}
	if appearing {
		w.state = StateAppearing
		w.beginAppear()
	}
	return w, nil
}

// Key returns the item key; stable for the widget's lifetime.
func (w *Widget) Key() string { return w.key }

// State returns the current lifecycle state.
func (w *Widget) State() State { return w.state }

// Attached reports whether the widget is still owned by a collection.
// Async completions check this before mutating a widget that may have
// been destroyed while their call was in flight.
func (w *Widget) Attached() bool { return w.attached }

// Removing reports whether the removal sequence has started. The latch
// never clears; a removing widget can only leave via detach.
func (w *Widget) Removing() bool { return w.removing }

// Abandon detaches the widget immediately, skipping the Detach callback.
// Used when a replacement widget takes over this widget's key: the
// pending removal completion finds the widget detached and does nothing.
func (w *Widget) Abandon() { w.attached = false }

// Item returns the last-known line item data.
func (w *Widget) Item() cart.LineItem { return w.item }

// Row returns the rendered projection.
func (w *Widget) Row() Row {
	return Row{
		Key:       w.key,
		State:     w.state,
		Markup:    w.markup,
		Quantity:  w.quantity,
		LinePrice: w.item.LinePrice,
	}
}

// SetState is the administrative override the controller uses to force
// ready/processing around network calls. The state must be valid, and a
// removing widget cannot be resurrected.
func (w *Widget) SetState(s State) error {
	if !validState(s) {
		return fmt.Errorf("widget %s: invalid state %q", w.key, s)
	}
	if w.removing {
		return fmt.Errorf("widget %s: is removing", w.key)
	}
	w.state = s
	return nil
}

// Revert returns a processing widget to ready without touching its
// rendered content. Used on call failure: the user sees their prior
// quantity and the controls re-enable.
func (w *Widget) Revert() {
	if w.state == StateProcessing {
		w.state = StateReady
		w.quantity = w.item.Quantity
	}
}

// Remove emits a remove intent. Ignored unless the widget is ready
// (processing disables the controls this intent originates from).
func (w *Widget) Remove() {
	if w.state != StateReady {
		return
	}
	w.cfg.Emit(Intent{Kind: IntentRemove, Key: w.key})
}

// ChangeQuantity emits a quantity-change intent. Ignored unless ready.
func (w *Widget) ChangeQuantity(quantity int) {
	if w.state != StateReady || quantity < 0 {
		return
	}
	w.cfg.Emit(Intent{Kind: IntentQuantityChange, Key: w.key, Quantity: quantity})
}

// SetData re-renders the widget for new item data. If the new markup is
// identical to what is currently shown, the rendered subtree is left
// alone and only the quantity control value is resynchronized; this keeps
// a user-focused control alive across refreshes. A processing widget
// returns to ready either way.
func (w *Widget) SetData(item cart.LineItem, snap *cart.Snapshot) error {
	if w.removing {
		return nil
	}
	markup, err := w.cfg.Renderer.Render(item, snap)
	if err != nil {
		return fmt.Errorf("widget %s: render: %w", w.key, err)
	}

	w.item = item
	w.snap = snap
	if markup != w.markup {
		w.markup = markup
	}
	// Fast path and slow path both resync the control value.
	w.quantity = item.Quantity
	if w.state == StateProcessing {
		w.state = StateReady
	}
	return nil
}

// Destroy begins the removal sequence: collapse animation, then detach.
// Calling it again while removing is a no-op, so the animation plays and
// the detach callback fires exactly once.
func (w *Widget) Destroy() {
	if w.removing {
		return
	}
	w.removing = true
	w.state = StateRemoving

	remove := w.cfg.Timing().Remove
	frame.Handshake(w.cfg.Scheduler,
		func() {
			// Commit phase: the current row height becomes the explicit
			// transition start.
		},
		func() {
			// Transition phase: collapse toward zero.
			w.cfg.Scheduler.After(remove, w.finishRemove)
		})
}

func (w *Widget) finishRemove() {
	if !w.attached {
		return
	}
	w.attached = false
	if w.cfg.Detach != nil {
		w.cfg.Detach(w)
	}
}

// beginAppear runs the entry animation: commit zero height, transition to
// natural height, then settle to ready. Safe against re-entry.
func (w *Widget) beginAppear() {
	appear := w.cfg.Timing().Appear
	frame.Handshake(w.cfg.Scheduler,
		func() {
			// Commit phase: zero height is the transition start.
		},
		func() {
			if w.removing {
				return
			}
			w.cfg.Scheduler.After(appear, w.finishAppear)
		})
}

func (w *Widget) finishAppear() {
	if w.appeared || w.removing || !w.attached {
		return
	}
	w.appeared = true
	if w.state == StateAppearing {
		w.state = StateReady
	}
}
