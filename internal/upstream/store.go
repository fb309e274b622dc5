// Package upstream provides the embedded demo cart service: an in-process
// implementation of the upstream HTTP boundary the panel engine talks to,
// backed by SQLite. It exists for development and demos, so trolley can
// run standalone; the panel treats it exactly like a remote cart service.
package upstream

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/trolley/internal/apperr"
	"github.com/starford/trolley/internal/cart"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	key        TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	quantity   INTEGER NOT NULL DEFAULT 0,
	unit_price INTEGER NOT NULL DEFAULT 0,
	properties TEXT NOT NULL DEFAULT '{}'
);
`

// Item is one stored cart line. UnitPrice is integer cents.
type Item struct {
	Key        string            `json:"key" yaml:"key"`
	Title      string            `json:"title" yaml:"title"`
	Quantity   int               `json:"quantity" yaml:"quantity"`
	UnitPrice  int64             `json:"unit_price" yaml:"unit_price"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties"`
}

// Store wraps a sql.DB with cart operations. Insertion order (rowid) is
// the snapshot order.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// ":memory:" gives an ephemeral cart.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("upstream: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("upstream: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("upstream: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Snapshot assembles the full cart document in insertion order.
func (s *Store) Snapshot() (*cart.Snapshot, error) {
	rows, err := s.conn.Query(`SELECT key, title, quantity, unit_price, properties FROM items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("upstream: query items: %w", err)
	}
	defer rows.Close()

	snap := &cart.Snapshot{Items: []cart.LineItem{}}
	for rows.Next() {
		var it Item
		var props string
		if err := rows.Scan(&it.Key, &it.Title, &it.Quantity, &it.UnitPrice, &props); err != nil {
			return nil, fmt.Errorf("upstream: scan item: %w", err)
		}
		properties := map[string]string{}
		if props != "" {
			if err := json.Unmarshal([]byte(props), &properties); err != nil {
				return nil, fmt.Errorf("upstream: decode properties for %s: %w", it.Key, err)
			}
		}
		line := cart.LineItem{
			Key:       it.Key,
			Title:     it.Title,
			Quantity:  it.Quantity,
			LinePrice: it.UnitPrice * int64(it.Quantity),
		}
		if len(properties) > 0 {
			line.Properties = properties
		}
		snap.Items = append(snap.Items, line)
		snap.TotalPrice += line.LinePrice
		snap.ItemCount += it.Quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("upstream: iterate items: %w", err)
	}
	return snap, nil
}

// SetQuantity sets key's quantity; zero deletes the row. Returns
// apperr.ErrNotFound for an unknown key.
func (s *Store) SetQuantity(key string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("upstream: quantity %d out of range", quantity)
	}
	var res sql.Result
	var err error
	if quantity == 0 {
		res, err = s.conn.Exec(`DELETE FROM items WHERE key = ?`, key)
	} else {
		res, err = s.conn.Exec(`UPDATE items SET quantity = ? WHERE key = ?`, quantity, key)
	}
	if err != nil {
		return fmt.Errorf("upstream: set quantity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upstream: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %q: %w", key, apperr.ErrNotFound)
	}
	return nil
}

// Add inserts or replaces an item.
func (s *Store) Add(it Item) error {
	if it.Key == "" {
		return fmt.Errorf("upstream: item key is required")
	}
	props := "{}"
	if len(it.Properties) > 0 {
		raw, err := json.Marshal(it.Properties)
		if err != nil {
			return fmt.Errorf("upstream: encode properties: %w", err)
		}
		props = string(raw)
	}
	_, err := s.conn.Exec(
		`INSERT INTO items (key, title, quantity, unit_price, properties) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET title = excluded.title, quantity = excluded.quantity,
		 unit_price = excluded.unit_price, properties = excluded.properties`,
		it.Key, it.Title, it.Quantity, it.UnitPrice, props)
	if err != nil {
		return fmt.Errorf("upstream: add item: %w", err)
	}
	return nil
}

// Seed adds items only when the cart is currently empty, so a restart
// does not duplicate demo data.
func (s *Store) Seed(items []Item) error {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return fmt.Errorf("upstream: count items: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return err
		}
	}
	return nil
}
