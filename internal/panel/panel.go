// Package panel implements the cart panel controller: it owns the current
// snapshot and the rendered widget collection, routes widget intents to
// the upstream client, applies result snapshots through the reconciler,
// and fans out typed notifications.
//
// Concurrency model: a single loop goroutine owns all mutable state
// (snapshot, collection, open flag), so no mutexes are needed. Public
// methods post closures into the loop; frame callbacks and network
// completions re-enter through the same channel. Network calls themselves
// run on their own goroutines and never block the loop, so intents for
// different keys can be in flight simultaneously. For a single key the
// widget's processing state is the guard: a second intent for a
// processing key is rejected with apperr.ErrBusy.
package panel

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/frame"
	"github.com/starford/trolley/internal/presets"
	"github.com/starford/trolley/internal/reconcile"
	"github.com/starford/trolley/internal/widget"
)

// ErrClosed is returned by operations on a closed panel.
var ErrClosed = errors.New("panel closed")

// Client is the upstream cart API surface the panel needs.
type Client interface {
	FetchCart(ctx context.Context) (*cart.Snapshot, error)
	ChangeQuantity(ctx context.Context, key string, quantity int) (*cart.Snapshot, error)
}

// NotificationKind tags an outbound notification.
type NotificationKind string

const (
	NoteShow        NotificationKind = "panel.show"
	NoteHide        NotificationKind = "panel.hide"
	NoteAfterHide   NotificationKind = "panel.afterHide"
	NoteRefreshed   NotificationKind = "cart.refreshed"
	NoteUpdated     NotificationKind = "cart.updated"
	NoteDataChanged NotificationKind = "cart.dataChanged"
)

// Notification is the typed fan-out payload. Count and Subtotal are
// computed from the snapshot directly, never from rendered rows, so they
// are consistent regardless of animation timing.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	Snapshot *cart.Snapshot   `json:"snapshot,omitempty"`
	Count    int              `json:"count"`
	Subtotal int64            `json:"subtotal"`
	Rows     []widget.Row     `json:"rows,omitempty"`
}

// Notifier receives panel notifications. Implementations must not block:
// the panel calls them from its loop goroutine.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// State is the synchronously queried panel projection.
type State struct {
	Open     bool         `json:"open"`
	Count    int          `json:"count"`
	Subtotal int64        `json:"subtotal"`
	Currency string       `json:"currency,omitempty"`
	Rows     []widget.Row `json:"rows"`
}

// Config wires the panel's collaborators.
type Config struct {
	Client   Client
	Renderer widget.Renderer
	Notifier Notifier
	Timings  func() presets.Durations
	Logger   *slog.Logger
	// Manual suppresses the automatic initial refresh.
	Manual bool
	// Scheduler overrides the internal frame ticker. Nil starts a
	// ticker at the configured frame interval.
	Scheduler frame.Scheduler
}

// Panel is the cart panel controller.
type Panel struct {
	cfg    Config
	logger *slog.Logger
	sched  frame.Scheduler
	ticker *frame.Ticker

	ops     chan func()
	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool

	// Loop-owned state.
	col     *reconcile.Collection
	rec     *reconcile.Reconciler
	current *cart.Snapshot
	open    bool
}

// New creates and starts a panel. Unless cfg.Manual is set, an initial
// refresh is kicked off in the background.
func New(cfg Config) *Panel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Panel{
		cfg:     cfg,
		logger:  logger,
		ops:     make(chan func(), 128),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		col:     reconcile.NewCollection(),
	}

	p.sched = cfg.Scheduler
	if p.sched == nil {
		p.ticker = frame.NewTicker(cfg.Timings().FrameInterval, func(fn func()) { p.post(fn) })
		p.sched = p.ticker
	}

	p.rec = reconcile.New(p.col, p.newWidget, p.sched,
		func() time.Duration { return cfg.Timings().InsertDelay }, logger)

	go p.loop()

	if !cfg.Manual {
		go func() {
			// Failure is already logged inside Refresh; the snapshot
			// simply stays unset until the next refresh succeeds.
			_, _ = p.Refresh(context.Background(), nil)
		}()
	}
	return p
}

func (p *Panel) loop() {
	defer close(p.stopped)
	for {
		select {
		case <-p.stop:
			return
		case fn := <-p.ops:
			fn()
		}
	}
}

// post schedules fn on the loop. Returns false if the panel is closed.
func (p *Panel) post(fn func()) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case p.ops <- fn:
		return true
	case <-p.stopped:
		return false
	}
}

// run executes fn on the loop and waits for it.
func (p *Panel) run(fn func()) error {
	done := make(chan struct{})
	if !p.post(func() { fn(); close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-p.stopped:
		return ErrClosed
	}
}

// Close stops the loop and the frame ticker.
func (p *Panel) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.stop)
	}
	<-p.stopped
	if p.ticker != nil {
		p.ticker.Close()
	}
}
