package meiliclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meili-operator/meilisearch-operator/internal/metrics"
)

const listPageSize = 1000

type client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New returns a Client for the given endpoint. The credential is the master
// key, or a previously issued key for scoped operations.
func New(endpoint, apiKey string, timeout time.Duration) Client {
	return &client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// NewFactory returns a Factory closing over the request timeout.
func NewFactory(timeout time.Duration) Factory {
	return func(endpoint, apiKey string) Client {
		return New(endpoint, apiKey, timeout)
	}
}

func (c *client) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteRequestsTotal.WithLabelValues(operation, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.RemoteRequestsTotal.WithLabelValues(operation, "not_found").Inc()
		return ErrNotFound
	case resp.StatusCode >= 400:
		metrics.RemoteRequestsTotal.WithLabelValues(operation, "error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("meilisearch: %s %s returned %d: %s", method, path, resp.StatusCode, snippet)
	}

	metrics.RemoteRequestsTotal.WithLabelValues(operation, "success").Inc()
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func (c *client) GetIndex(ctx context.Context, uid string) (*Index, error) {
	idx := &Index{}
	if err := c.do(ctx, "get_index", http.MethodGet, "/indexes/"+uid, nil, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// CreateIndex enqueues index creation. Meilisearch processes it as an async
// task; callers observe completion with GetIndex on a later reconcile.
func (c *client) CreateIndex(ctx context.Context, uid string, primaryKey *string) error {
	body := createIndexRequest{UID: uid, PrimaryKey: primaryKey}
	return c.do(ctx, "create_index", http.MethodPost, "/indexes", body, nil)
}

func (c *client) DeleteIndex(ctx context.Context, uid string) error {
	return c.do(ctx, "delete_index", http.MethodDelete, "/indexes/"+uid, nil, nil)
}

func (c *client) GetKey(ctx context.Context, uid string) (*Key, error) {
	key := &Key{}
	if err := c.do(ctx, "get_key", http.MethodGet, "/keys/"+uid, nil, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *client) ListKeys(ctx context.Context) ([]Key, error) {
	var out []Key
	offset := 0
	for {
		page := keysPage{}
		path := fmt.Sprintf("/keys?offset=%d&limit=%d", offset, listPageSize)
		if err := c.do(ctx, "list_keys", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		offset += len(page.Results)
		if offset >= page.Total || len(page.Results) == 0 {
			return out, nil
		}
	}
}

func (c *client) CreateKey(ctx context.Context, params KeyParams) (*Key, error) {
	key := &Key{}
	if err := c.do(ctx, "create_key", http.MethodPost, "/keys", params, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *client) DeleteKey(ctx context.Context, uid string) error {
	return c.do(ctx, "delete_key", http.MethodDelete, "/keys/"+uid, nil, nil)
}
