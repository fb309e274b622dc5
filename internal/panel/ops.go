package panel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/trolley/internal/apperr"
	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/widget"
)

// Show marks the panel open, emits panel.show, then refreshes. A non-nil
// snapshotOverride skips the network fetch and is treated as
// authoritative.
func (p *Panel) Show(ctx context.Context, snapshotOverride *cart.Snapshot) error {
	if err := p.run(func() {
		p.open = true
		p.broadcast(NoteShow)
	}); err != nil {
		return err
	}
	_, err := p.Refresh(ctx, snapshotOverride)
	return err
}

// Hide marks the panel closed and emits panel.hide, followed by
// panel.afterHide once the configured hide duration elapses.
func (p *Panel) Hide() error {
	return p.run(func() {
		p.open = false
		p.broadcast(NoteHide)
		p.sched.After(p.cfg.Timings().Hide, func() {
			p.broadcast(NoteAfterHide)
		})
	})
}

// Refresh replaces the current snapshot. On fetch failure the snapshot is
// left untouched, the error is logged, and no notification fans out.
func (p *Panel) Refresh(ctx context.Context, override *cart.Snapshot) (*cart.Snapshot, error) {
	snap := override
	if snap == nil {
		fetched, err := p.cfg.Client.FetchCart(ctx)
		if err != nil {
			p.logger.Error("panel: refresh failed", slog.String("error", err.Error()))
			return nil, err
		}
		snap = fetched
	}
	if err := p.run(func() { p.apply(snap, NoteRefreshed) }); err != nil {
		return nil, err
	}
	return snap, nil
}

// SetQuantity routes a quantity-change intent for key by firing the
// widget's own intent emitter, the same path embedded controls use. The
// synchronous part validates: apperr.ErrNotFound if no widget is rendered
// for key, apperr.ErrBusy if that widget already has a mutation in
// flight. The network call and its application happen asynchronously.
func (p *Panel) SetQuantity(key string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity %d out of range", quantity)
	}
	errCh := make(chan error, 1)
	if !p.post(func() { errCh <- p.submit(key, quantity) }) {
		return ErrClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-p.stopped:
		return ErrClosed
	}
}

// Remove routes a remove intent for key (quantity zero).
func (p *Panel) Remove(key string) error {
	return p.SetQuantity(key, 0)
}

// State returns the current panel projection.
func (p *Panel) State() (State, error) {
	var st State
	err := p.run(func() {
		st = State{
			Open:     p.open,
			Count:    p.current.VisibleCount(),
			Subtotal: p.current.VisibleSubtotal(),
			Rows:     p.col.Rows(),
		}
		if p.current != nil {
			st.Currency = p.current.Currency
		}
	})
	return st, err
}

// submit validates an externally routed intent and hands it to the
// widget's emitter, so it reaches beginMutation through handleIntent like
// any widget-originated one. Runs on the loop.
func (p *Panel) submit(key string, quantity int) error {
	w, ok := p.col.Get(key)
	if !ok {
		return fmt.Errorf("item %q: %w", key, apperr.ErrNotFound)
	}
	if w.State() != widget.StateReady {
		return fmt.Errorf("item %q: %w", key, apperr.ErrBusy)
	}
	if quantity == 0 {
		w.Remove()
	} else {
		w.ChangeQuantity(quantity)
	}
	return nil
}

// handleIntent receives widget-originated intents. Runs on the loop.
func (p *Panel) handleIntent(i widget.Intent) {
	quantity := 0
	if i.Kind == widget.IntentQuantityChange {
		quantity = i.Quantity
	}
	if err := p.beginMutation(i.Key, quantity); err != nil {
		p.logger.Warn("panel: intent dropped",
			slog.String("key", i.Key),
			slog.String("kind", string(i.Kind)),
			slog.String("error", err.Error()))
	}
}

// beginMutation validates an intent and launches the upstream call.
// Runs on the loop.
func (p *Panel) beginMutation(key string, quantity int) error {
	w, ok := p.col.Get(key)
	if !ok {
		return fmt.Errorf("item %q: %w", key, apperr.ErrNotFound)
	}
	if w.State() != widget.StateReady {
		return fmt.Errorf("item %q: %w", key, apperr.ErrBusy)
	}
	if err := w.SetState(widget.StateProcessing); err != nil {
		return err
	}
	go p.mutate(w, key, quantity)
	return nil
}

// mutate performs the upstream call off the loop and posts the completion
// back in. There is no cancellation of in-flight calls; the completion
// defensively checks the widget is still attached before touching it.
func (p *Panel) mutate(w *widget.Widget, key string, quantity int) {
	snap, err := p.cfg.Client.ChangeQuantity(context.Background(), key, quantity)
	p.post(func() {
		if err != nil {
			p.logger.Error("panel: mutation failed",
				slog.String("key", key),
				slog.Int("quantity", quantity),
				slog.String("error", err.Error()))
			if cur, ok := p.col.Get(key); ok && cur == w && w.Attached() {
				w.Revert()
			}
			return
		}
		p.apply(snap, NoteUpdated)
	})
}

// apply swaps in a new snapshot, reconciles, and broadcasts. Runs on the
// loop. The snapshot is replaced whole, never patched.
func (p *Panel) apply(snap *cart.Snapshot, kind NotificationKind) {
	p.current = snap
	p.rec.Apply(snap)
	p.broadcast(kind)
	p.broadcast(NoteDataChanged)
}

// broadcast pushes one notification to the configured notifier. Count and
// subtotal always derive from the snapshot, not from rendered rows.
func (p *Panel) broadcast(kind NotificationKind) {
	if p.cfg.Notifier == nil {
		return
	}
	p.cfg.Notifier.Notify(Notification{
		Kind:     kind,
		Snapshot: p.current,
		Count:    p.current.VisibleCount(),
		Subtotal: p.current.VisibleSubtotal(),
		Rows:     p.col.Rows(),
	})
}

// newWidget is the reconciler's widget factory.
func (p *Panel) newWidget(item cart.LineItem, snap *cart.Snapshot, appearing bool) (*widget.Widget, error) {
	return widget.New(widget.Config{
		Renderer:  p.cfg.Renderer,
		Scheduler: p.sched,
		Timing: func() widget.Timing {
			d := p.cfg.Timings()
			return widget.Timing{Appear: d.Appear, Remove: d.Remove}
		},
		Emit:   p.handleIntent,
		Detach: func(w *widget.Widget) { p.col.Forget(w.Key()) },
	}, item, snap, appearing)
}
