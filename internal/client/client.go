// Package client talks to the menu JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
)

// RequestTimeout bounds every non-streaming request.
const RequestTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when the server does not answer in time.
	ErrTimeout = errors.New("request timeout - server may be down")
	// ErrUnreachable is returned when no connection can be made.
	ErrUnreachable = errors.New("cannot connect to server - make sure the backend is running")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d - %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server error: %d - %s", e.Status, e.Message)
}

// Client is a menu API client. BaseURL includes the /api prefix.
type Client struct {
	BaseURL string
	Token   string

	http   *http.Client
	stream *http.Client
}

// New creates a client for the API at baseURL, e.g. http://localhost:3001/api.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: RequestTimeout},
		stream:  &http.Client{},
	}
}

// mapError turns transport failures into readable errors.
func mapError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Items returns all menu items in creation order.
func (c *Client) Items(ctx context.Context) ([]model.MenuItem, error) {
	var items []model.MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu-items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Item returns a single item.
func (c *Client) Item(ctx context.Context, id string) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.do(ctx, http.MethodGet, "/menu-items/"+id, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Metadata returns the last-update record, or nil if the menu was never changed.
func (c *Client) Metadata(ctx context.Context) (*model.Metadata, error) {
	var md model.Metadata
	if err := c.do(ctx, http.MethodGet, "/metadata", nil, &md); err != nil {
		return nil, err
	}
	if md.Timestamp.IsZero() {
		return nil, nil
	}
	return &md, nil
}

// Snapshot fetches the items and the metadata.
func (c *Client) Snapshot(ctx context.Context) (model.Snapshot, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	md, err := c.Metadata(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{Items: items, Metadata: md}, nil
}

// Login obtains a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return err
	}
	c.Token = resp.Token
	return nil
}

// Create adds a new item.
func (c *Client) Create(ctx context.Context, in menu.NewItem) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.do(ctx, http.MethodPost, "/menu-items", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := c.do(ctx, http.MethodPut, "/menu-items/"+id, patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

type bulkEntry struct {
	ID string `json:"id"`
	model.ItemPatch
}

// BulkUpdate applies several partial updates at once.
func (c *Client) BulkUpdate(ctx context.Context, updates []menu.ItemUpdate) (int, error) {
	entries := make([]bulkEntry, len(updates))
	for i, u := range updates {
		entries[i] = bulkEntry{ID: u.ID, ItemPatch: u.Patch}
	}
	var resp struct {
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPut, "/menu-items", map[string]any{"items": entries}, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/menu-items/"+id, nil, nil)
}
