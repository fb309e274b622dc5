// Package render turns one line item into row markup. Rendering is a pure
// function supplied by the embedding application; this package only holds
// the explicit name→function registry (selected per item by the
// _cart_template property) and a built-in default row template.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/starford/trolley/internal/cart"
)

// Func renders one line item, with the full snapshot available as context.
type Func func(item cart.LineItem, snap *cart.Snapshot) (string, error)

// Registry maps template names to render functions. It is built once and
// injected at construction; there is no process-wide template state.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a registry containing the built-in default template.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{"default": defaultRow()}}
}

// Register adds or replaces a named render function.
func (r *Registry) Register(name string, fn Func) { r.funcs[name] = fn }

// Lookup returns the render function for an item, falling back to
// "default" when the item names no template or names an unknown one.
func (r *Registry) Lookup(item cart.LineItem) Func {
	if fn, ok := r.funcs[item.Template()]; ok {
		return fn
	}
	return r.funcs["default"]
}

// Render renders item with its selected template.
func (r *Registry) Render(item cart.LineItem, snap *cart.Snapshot) (string, error) {
	return r.Lookup(item)(item, snap)
}

const defaultRowTmpl = `<div class="trolley-row" data-key="{{.Item.Key}}">
  <span class="trolley-row__title">{{.Item.Title}}</span>
  <input class="trolley-row__qty" name="quantity" type="number" min="0" value="{{.Item.Quantity}}">
  <span class="trolley-row__price">{{money .Item.LinePrice}}</span>
  <button class="trolley-row__remove" type="button" aria-label="Remove {{.Item.Title}}">&times;</button>
</div>`

func defaultRow() Func {
	tmpl := template.Must(template.New("row").Funcs(template.FuncMap{
		"money": Money,
	}).Parse(defaultRowTmpl))

	return func(item cart.LineItem, snap *cart.Snapshot) (string, error) {
		var buf bytes.Buffer
		data := struct {
			Item cart.LineItem
			Cart *cart.Snapshot
		}{item, snap}
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render default row: %w", err)
		}
		return buf.String(), nil
	}
}

// Money formats integer cents as a decimal string ("1234" → "12.34").
// Currency symbols are left to the embedding page.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
