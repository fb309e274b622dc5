package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the panel REST API. The MCP server
// runs as a separate process, so it talks to a running app over HTTP
// rather than holding the panel engine itself.
type Client struct {
	http  *http.Client
	base  string
	token string
}

// NewClient creates a client for the API mounted at baseURL
// (e.g. http://127.0.0.1:8080/api). token may be empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		http:  &http.Client{Timeout: 15 * time.Second},
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// Panel fetches the current panel state.
func (c *Client) Panel(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/panel", nil)
}

// Refresh re-fetches the cart from upstream and returns the snapshot.
func (c *Client) Refresh(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodPost, "/panel/refresh", nil)
}

// SetQuantity submits a quantity change for one line item.
func (c *Client) SetQuantity(ctx context.Context, key string, quantity int) ([]byte, error) {
	body := strings.NewReader(fmt.Sprintf(`{"quantity":%d}`, quantity))
	return c.do(ctx, http.MethodPut, "/panel/items/"+key, body)
}

// Remove submits a removal for one line item.
func (c *Client) Remove(ctx context.Context, key string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, "/panel/items/"+key, nil)
}
