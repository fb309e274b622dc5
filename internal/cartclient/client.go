// Package cartclient implements the HTTP client for the upstream cart
// service: one read operation (fetch the snapshot) and one write operation
// (set a line item's quantity). The upstream is the sole source of truth;
// the client never predicts a resulting snapshot locally.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/trolley/internal/cart"
)

// TransportError is the single failure kind the engine recognizes: a
// network failure or a non-2xx upstream response. Status is 0 for network
// errors. Callers use errors.As to detect it.
type TransportError struct {
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cart upstream: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("cart upstream: %s", e.Message)
}

// NotFound reports whether the upstream answered 404, which for a mutation
// usually means the item was already removed.
func (e *TransportError) NotFound() bool { return e.Status == http.StatusNotFound }

// Client talks to the upstream cart API.
type Client struct {
	http     *http.Client
	base     *url.URL
	readPath string
	mutePath string
	token    string
}

// New creates a Client for the given base URL and endpoint paths.
// token, if non-empty, is sent as a Bearer token on every request.
func New(baseURL, readPath, mutatePath, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("cartclient: parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		base:     u,
		readPath: readPath,
		mutePath: mutatePath,
		token:    token,
	}, nil
}

// FetchCart reads the current cart snapshot.
func (c *Client) FetchCart(ctx context.Context) (*cart.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.readPath), nil)
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	return c.do(req)
}

// ChangeQuantity sets key's quantity to quantity (0 meaning remove) and
// returns the resulting snapshot.
func (c *Client) ChangeQuantity(ctx context.Context, key string, quantity int) (*cart.Snapshot, error) {
	body, err := json.Marshal(map[string]any{"id": key, "quantity": quantity})
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.mutePath), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	return u.String()
}

func (c *Client) do(req *http.Request) (*cart.Snapshot, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransportError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(msg))}
	}

	var snap cart.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Message: "decode snapshot: " + err.Error()}
	}
	return &snap, nil
}
