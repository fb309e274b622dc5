package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/trolley/internal/apperr"
	"github.com/starford/trolley/internal/cart"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotOrderAndTotals(t *testing.T) {
	s := testStore(t)
	items := []Item{
		{Key: "a", Title: "Socks", Quantity: 2, UnitPrice: 500},
		{Key: "b", Title: "Hat", Quantity: 1, UnitPrice: 1500},
		{Key: "c", Title: "Gift", Quantity: 1, UnitPrice: 0,
			Properties: map[string]string{cart.PropIgnorePrice: "true"}},
	}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			t.Fatalf("Add(%s): %v", it.Key, err)
		}
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(snap.Items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if snap.Items[i].Key != want {
			t.Errorf("items[%d].Key = %q, want %q (insertion order)", i, snap.Items[i].Key, want)
		}
	}
	if snap.Items[0].LinePrice != 1000 {
		t.Errorf("line_price = %d, want unit*qty = 1000", snap.Items[0].LinePrice)
	}
	if snap.TotalPrice != 2500 || snap.ItemCount != 4 {
		t.Errorf("total/count = %d/%d, want 2500/4", snap.TotalPrice, snap.ItemCount)
	}
	if !snap.Items[2].Flag(cart.PropIgnorePrice) {
		t.Error("properties lost on round trip")
	}
}

func TestSetQuantity(t *testing.T) {
	s := testStore(t)
	if err := s.Add(Item{Key: "a", Quantity: 1, UnitPrice: 100}); err != nil {
		t.Fatal(err)
	}

	if err := s.SetQuantity("a", 4); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	snap, _ := s.Snapshot()
	if snap.Items[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4", snap.Items[0].Quantity)
	}

	// Zero removes the row.
	if err := s.SetQuantity("a", 0); err != nil {
		t.Fatalf("SetQuantity(0): %v", err)
	}
	snap, _ = s.Snapshot()
	if len(snap.Items) != 0 {
		t.Errorf("items = %d after zero quantity, want 0", len(snap.Items))
	}

	if err := s.SetQuantity("ghost", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown key err = %v, want ErrNotFound", err)
	}
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	s := testStore(t)
	seed := []Item{{Key: "a", Quantity: 1, UnitPrice: 100}}
	if err := s.Seed(seed); err != nil {
		t.Fatal(err)
	}
	if err := s.SetQuantity("a", 9); err != nil {
		t.Fatal(err)
	}
	// A second seed must not reset the existing cart.
	if err := s.Seed(seed); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if snap.Items[0].Quantity != 9 {
		t.Errorf("quantity = %d after reseed, want 9", snap.Items[0].Quantity)
	}
}

func TestHTTPChangeQuantity(t *testing.T) {
	s := testStore(t)
	if err := s.Add(Item{Key: "a", Title: "Socks", Quantity: 2, UnitPrice: 500}); err != nil {
		t.Fatal(err)
	}
	router := NewHandler(s).Router()

	body, _ := json.Marshal(map[string]any{"id": "a", "quantity": 3})
	req := httptest.NewRequest(http.MethodPost, "/cart/change", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var snap cart.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 3 {
		t.Errorf("snapshot = %+v, want a@3", snap.Items)
	}

	// Unknown id is a 404.
	body, _ = json.Marshal(map[string]any{"id": "ghost", "quantity": 1})
	req = httptest.NewRequest(http.MethodPost, "/cart/change", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	// Missing quantity is a 400.
	req = httptest.NewRequest(http.MethodPost, "/cart/change", bytes.NewReader([]byte(`{"id":"a"}`)))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHTTPGetAndAdd(t *testing.T) {
	s := testStore(t)
	router := NewHandler(s).Router()

	body, _ := json.Marshal(Item{Key: "a", Title: "Socks", Quantity: 2, UnitPrice: 500})
	req := httptest.NewRequest(http.MethodPost, "/cart/add", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d, body = %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var snap cart.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.TotalPrice != 1000 || snap.ItemCount != 2 {
		t.Errorf("total/count = %d/%d, want 1000/2", snap.TotalPrice, snap.ItemCount)
	}
}
