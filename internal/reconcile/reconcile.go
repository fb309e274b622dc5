// Package reconcile diffs a new cart snapshot against the currently
// rendered widget collection and applies the minimal set of removals,
// updates, and insertions. Removals run before insertions, so a key that
// leaves and re-enters in the same snapshot has no stable identity.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/starford/trolley/internal/cart"
	"github.com/starford/trolley/internal/widget"
)

// Factory creates a widget for an item. appearing selects the entry
// animation for items joining an already-rendered list.
type Factory func(item cart.LineItem, snap *cart.Snapshot, appearing bool) (*widget.Widget, error)

// Scheduler defers widget insertion by the configured delay.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// Reconciler drives the widget collection toward each new snapshot.
type Reconciler struct {
	col     *Collection
	factory Factory
	sched   Scheduler
	// InsertDelay keeps item mount work out of the way of a
	// simultaneous panel slide-in. Tunable, not a correctness knob.
	insertDelay func() time.Duration
	logger      *slog.Logger

	initialDone bool
	// wanted is the visible key set of the latest snapshot; deferred
	// insertions consult it so a key removed again before its insert
	// timer fires is not created.
	wanted map[string]struct{}
}

// New creates a Reconciler over col.
func New(col *Collection, factory Factory, sched Scheduler, insertDelay func() time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		col:         col,
		factory:     factory,
		sched:       sched,
		insertDelay: insertDelay,
		logger:      logger,
		wanted:      make(map[string]struct{}),
	}
}

// InitialRenderDone reports whether the first reconciliation has run.
func (r *Reconciler) InitialRenderDone() bool { return r.initialDone }

// Apply reconciles the collection against snap: removals first, then
// updates on common keys, then deferred ordered insertions. The very
// first call instead bulk-creates every visible item in ready state with
// no animation.
func (r *Reconciler) Apply(snap *cart.Snapshot) {
	visible := snap.Visible()

	r.wanted = make(map[string]struct{}, len(visible))
	for _, it := range visible {
		r.wanted[it.Key] = struct{}{}
	}

	if !r.initialDone {
		r.initialDone = true
		for _, it := range visible {
			r.create(it, snap, false, "")
		}
		return
	}

	// Removals: widgets whose key left the visible set. Removal is
	// async; the widget detaches itself when its animation completes.
	for _, key := range r.col.Keys() {
		if _, ok := r.wanted[key]; !ok {
			if w, found := r.col.Get(key); found {
				w.Destroy()
			}
		}
	}

	// Updates on common keys; the content-diff short-circuit lives in
	// the widget. A removing widget is not a common key: its item
	// re-entered while the collapse is still playing, so it goes through
	// the insertion path below and gets a fresh widget.
	for _, it := range visible {
		if w, ok := r.col.Get(it.Key); ok && !w.Removing() {
			if err := w.SetData(it, snap); err != nil {
				r.logger.Warn("reconcile: update failed",
					slog.String("key", it.Key),
					slog.String("error", err.Error()))
			}
		}
	}

	// Insertions, in snapshot order, each anchored to the nearest
	// preceding visible key that is rendered at insertion time. The
	// anchor is resolved when the deferred insert fires, so a run of
	// consecutive new items chains in order behind the same neighbor.
	delay := r.insertDelay()
	for i, it := range visible {
		if w, ok := r.col.Get(it.Key); ok && !w.Removing() {
			continue
		}
		item, idx := it, i
		r.sched.After(delay, func() {
			if _, still := r.wanted[item.Key]; !still {
				return
			}
			if w, ok := r.col.Get(item.Key); ok {
				if !w.Removing() {
					return
				}
				// The old widget is still mid-collapse. It yields the
				// key: detach it without the callback so its pending
				// removal completion cannot forget the replacement.
				w.Abandon()
				r.col.Forget(item.Key)
			}
			anchor := ""
			for j := idx - 1; j >= 0; j-- {
				if r.col.Has(visible[j].Key) {
					anchor = visible[j].Key
					break
				}
			}
			r.create(item, snap, true, anchor)
		})
	}
}

func (r *Reconciler) create(item cart.LineItem, snap *cart.Snapshot, appearing bool, anchor string) {
	w, err := r.factory(item, snap, appearing)
	if err != nil {
		r.logger.Warn("reconcile: create failed",
			slog.String("key", item.Key),
			slog.String("error", err.Error()))
		return
	}
	if anchor != "" {
		r.col.InsertAfter(anchor, w)
		return
	}
	// No rendered preceding key: append at the end.
	r.col.Append(w)
}
