// Package testutil provides shared cart fixtures for tests.
package testutil

import (
	"github.com/starford/trolley/internal/cart"
)

// Item builds a line item with the given key, quantity, and line price.
func Item(key string, qty int, linePrice int64) cart.LineItem {
	return cart.LineItem{Key: key, Title: key, Quantity: qty, LinePrice: linePrice}
}

// Snap builds a snapshot from items, deriving the totals the way the
// upstream would: quantities and line prices summed over all items.
func Snap(items ...cart.LineItem) *cart.Snapshot {
	s := &cart.Snapshot{Items: items}
	for _, it := range items {
		s.ItemCount += it.Quantity
		s.TotalPrice += it.LinePrice
	}
	return s
}
