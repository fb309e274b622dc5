package reconcile

import "github.com/starford/trolley/internal/widget"

// Collection is the ordered, keyed set of currently-rendered row widgets.
// At most one widget exists per key. Order matches the visible order of
// the most recent snapshot, except for rows still playing their removal
// animation. Only the reconciler and widget detach callbacks mutate it,
// and both run on the engine loop.
type Collection struct {
	order []string
	byKey map[string]*widget.Widget
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{byKey: make(map[string]*widget.Widget)}
}

// Get returns the widget for key.
func (c *Collection) Get(key string) (*widget.Widget, bool) {
	w, ok := c.byKey[key]
	return w, ok
}

// Has reports whether a widget exists for key.
func (c *Collection) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Len returns the number of rendered widgets, removing ones included.
func (c *Collection) Len() int { return len(c.order) }

// Keys returns the rendered keys in order.
func (c *Collection) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Rows returns the rendered projections in order.
func (c *Collection) Rows() []widget.Row {
	out := make([]widget.Row, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byKey[key].Row())
	}
	return out
}

// Append adds w at the end. Returns false if the key is already present.
func (c *Collection) Append(w *widget.Widget) bool {
	if c.Has(w.Key()) {
		return false
	}
	c.byKey[w.Key()] = w
	c.order = append(c.order, w.Key())
	return true
}

// InsertAfter adds w immediately after anchor. If anchor is not rendered,
// w is appended at the end. Returns false if the key is already present.
func (c *Collection) InsertAfter(anchor string, w *widget.Widget) bool {
	if c.Has(w.Key()) {
		return false
	}
	for i, key := range c.order {
		if key == anchor {
			c.byKey[w.Key()] = w
			c.order = append(c.order, "")
			copy(c.order[i+2:], c.order[i+1:])
			c.order[i+1] = w.Key()
			return true
		}
	}
	return c.Append(w)
}

// Forget drops the widget for key. Called from a widget's detach callback
// once its removal animation completes.
func (c *Collection) Forget(key string) {
	if !c.Has(key) {
		return
	}
	delete(c.byKey, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
