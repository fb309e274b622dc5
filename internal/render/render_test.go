package render

import (
	"strings"
	"testing"

	"github.com/starford/trolley/internal/cart"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{100000, "1000.00"},
		{-250, "-2.50"},
	}
	for _, c := range cases {
		if got := Money(c.cents); got != c.want {
			t.Errorf("Money(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}

func TestDefaultRow(t *testing.T) {
	r := NewRegistry()
	out, err := r.Render(cart.LineItem{Key: "k1", Title: "Socks", Quantity: 2, LinePrice: 1998}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{`data-key="k1"`, "Socks", `value="2"`, "19.98"} {
		if !strings.Contains(out, want) {
			t.Errorf("markup missing %q:\n%s", want, out)
		}
	}
}

func TestRegistry_TemplateSelection(t *testing.T) {
	r := NewRegistry()
	r.Register("gift", func(item cart.LineItem, _ *cart.Snapshot) (string, error) {
		return "<div>gift " + item.Key + "</div>", nil
	})

	gift := cart.LineItem{Key: "g", Properties: map[string]string{cart.PropTemplate: "gift"}}
	out, err := r.Render(gift, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "<div>gift g</div>" {
		t.Errorf("out = %q", out)
	}

	// Unknown template name falls back to default.
	odd := cart.LineItem{Key: "o", Properties: map[string]string{cart.PropTemplate: "nope"}}
	out, err = r.Render(odd, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `data-key="o"`) {
		t.Errorf("fallback did not use default template: %q", out)
	}
}
