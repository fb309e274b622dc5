// Package cart defines the cart snapshot data model shared by the client,
// reconciler, and panel engine. Snapshots arrive whole from the upstream
// service and are always replaced, never patched in place.
package cart

import "encoding/json"

// Property flags the engine recognizes on a line item.
const (
	// PropHideInCart excludes an item from rendering and the visible count.
	PropHideInCart = "_hide_in_cart"
	// PropIgnorePrice excludes an item from the visible subtotal.
	PropIgnorePrice = "_ignore_price_in_subtotal"
	// PropTemplate selects the render template for an item by name.
	PropTemplate = "_cart_template"
)

// LineItem is one entry in a cart snapshot. Prices are integer cents.
type LineItem struct {
	Key        string            `json:"key"`
	Quantity   int               `json:"quantity"`
	LinePrice  int64             `json:"line_price"`
	Title      string            `json:"title,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// UnmarshalJSON accepts "id" as a fallback identity field: some upstreams
// send "id" instead of "key", and both name the same logical item key.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type alias LineItem
	aux := struct {
		*alias
		ID string `json:"id"`
	}{alias: (*alias)(li)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if li.Key == "" {
		li.Key = aux.ID
	}
	return nil
}

// Flag reports whether the named property is present and truthy.
// Empty string, "false" and "0" are falsy; anything else is truthy.
func (li LineItem) Flag(name string) bool {
	v, ok := li.Properties[name]
	if !ok {
		return false
	}
	return v != "" && v != "false" && v != "0"
}

// Visible reports whether the item should be rendered and counted.
func (li LineItem) Visible() bool { return !li.Flag(PropHideInCart) }

// Priced reports whether the item counts toward the visible subtotal.
// Independent of Visible: a hidden bundle child can still be priced, a
// visible gift item can be unpriced.
func (li LineItem) Priced() bool { return !li.Flag(PropIgnorePrice) }

// Template returns the render template name for the item, or "" for the
// default template.
func (li LineItem) Template() string { return li.Properties[PropTemplate] }

// Snapshot is the complete cart document returned by the upstream service
// at a point in time.
type Snapshot struct {
	Items      []LineItem `json:"items"`
	TotalPrice int64      `json:"total_price"`
	ItemCount  int        `json:"item_count"`
	Currency   string     `json:"currency,omitempty"`
}

// Visible returns the renderable items in snapshot order. Duplicate keys
// are collapsed last-occurrence-wins: the later entry replaces the earlier
// one at the earlier position.
func (s *Snapshot) Visible() []LineItem {
	if s == nil {
		return nil
	}
	out := make([]LineItem, 0, len(s.Items))
	at := make(map[string]int, len(s.Items))
	for _, it := range s.Items {
		if !it.Visible() {
			continue
		}
		if i, seen := at[it.Key]; seen {
			out[i] = it
			continue
		}
		at[it.Key] = len(out)
		out = append(out, it)
	}
	return out
}

// VisibleCount is the quantity sum over visible items.
func (s *Snapshot) VisibleCount() int {
	var n int
	for _, it := range s.Visible() {
		n += it.Quantity
	}
	return n
}

// VisibleSubtotal is the line-price sum in cents over priced items.
// Pricing ignores visibility.
func (s *Snapshot) VisibleSubtotal() int64 {
	if s == nil {
		return 0
	}
	var sum int64
	seen := make(map[string]struct{}, len(s.Items))
	// Walk backwards so a duplicated key contributes its last occurrence.
	for i := len(s.Items) - 1; i >= 0; i-- {
		it := s.Items[i]
		if _, dup := seen[it.Key]; dup {
			continue
		}
		seen[it.Key] = struct{}{}
		if it.Priced() {
			sum += it.LinePrice
		}
	}
	return sum
}
